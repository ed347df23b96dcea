package rubric_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/reportcoach/reportcoach/internal/rubric"
)

func TestValidate_AcceptsInterchangeShape(t *testing.T) {
	doc := []byte(`[
	  {"name":"Executive Summary","scoringCriteria":[
	    {"points":4,"description":"Summarizes key findings"},
	    {"points":0,"description":"Absent"}
	  ]},
	  {"name":"Economic Analysis","scoringCriteria":[{"points":5,"description":"CAPEX/OPEX justified"}]}
	]`)
	r, err := rubric.Validate(doc)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(r) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(r))
	}
	if r[0].Name != "Executive Summary" || r[1].Name != "Economic Analysis" {
		t.Fatalf("section order not preserved: %v", r.Names())
	}
	if r[0].MaxPoints() != 4 || r[1].MaxPoints() != 5 {
		t.Fatalf("max points wrong: %d, %d", r[0].MaxPoints(), r[1].MaxPoints())
	}
	if got := r[0].ScoringCriteria[1].Points; got != 0 {
		t.Fatalf("zero-point criterion must be accepted, got %d", got)
	}
}

func TestValidate_EmptyArrayIsValid(t *testing.T) {
	r, err := rubric.Validate([]byte(`[]`))
	if err != nil {
		t.Fatalf("empty rubric must validate: %v", err)
	}
	if len(r) != 0 {
		t.Fatalf("expected empty rubric, got %d sections", len(r))
	}
}

func TestValidate_RejectsMalformedDocuments(t *testing.T) {
	cases := []struct {
		name string
		doc  string
		want string // substring expected among violations
	}{
		{"not json", `{`, "not valid JSON"},
		{"object top level", `{"foo":"bar"}`, "top level must be a JSON array"},
		{"string top level", `"rubric"`, "top level must be a JSON array"},
		{"section not object", `["Executive Summary"]`, "must be an object"},
		{"missing name", `[{"scoringCriteria":[]}]`, `missing required key "name"`},
		{"name wrong type", `[{"name":3,"scoringCriteria":[]}]`, "name must be a string"},
		{"empty name", `[{"name":"  ","scoringCriteria":[]}]`, "non-empty"},
		{"missing criteria", `[{"name":"A"}]`, `missing required key "scoringCriteria"`},
		{"criteria wrong type", `[{"name":"A","scoringCriteria":{}}]`, "scoringCriteria must be an array"},
		{"criterion not object", `[{"name":"A","scoringCriteria":[4]}]`, "must be an object"},
		{"missing points", `[{"name":"A","scoringCriteria":[{"description":"x"}]}]`, `missing required key "points"`},
		{"float points", `[{"name":"A","scoringCriteria":[{"points":3.5,"description":"x"}]}]`, "points must be an integer"},
		{"string points", `[{"name":"A","scoringCriteria":[{"points":"4","description":"x"}]}]`, "points must be an integer"},
		{"negative points", `[{"name":"A","scoringCriteria":[{"points":-1,"description":"x"}]}]`, "not be negative"},
		{"missing description", `[{"name":"A","scoringCriteria":[{"points":4}]}]`, `missing required key "description"`},
		{"description wrong type", `[{"name":"A","scoringCriteria":[{"points":4,"description":7}]}]`, "description must be a string"},
		{"duplicate names", `[{"name":"A","scoringCriteria":[]},{"name":"A","scoringCriteria":[]}]`, "duplicate section name"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := rubric.Validate([]byte(tc.doc))
			if err == nil {
				t.Fatalf("expected validation failure")
			}
			var malformed *rubric.MalformedRubricError
			if !errors.As(err, &malformed) {
				t.Fatalf("expected *rubric.MalformedRubricError, got %T", err)
			}
			found := false
			for _, v := range malformed.Violations {
				if strings.Contains(v, tc.want) {
					found = true
					break
				}
			}
			if !found {
				t.Fatalf("violations %v do not mention %q", malformed.Violations, tc.want)
			}
		})
	}
}

func TestValidate_CollectsAllViolationsInOnePass(t *testing.T) {
	doc := []byte(`[
	  {"scoringCriteria":[{"points":"high","description":4}]},
	  {"name":"B"}
	]`)
	_, err := rubric.Validate(doc)
	var malformed *rubric.MalformedRubricError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected *rubric.MalformedRubricError, got %v", err)
	}
	if len(malformed.Violations) < 4 {
		t.Fatalf("expected every violation enumerated, got %v", malformed.Violations)
	}
}

func TestDefault_ShapeRoundTrips(t *testing.T) {
	def := rubric.Default()
	if len(def) != 8 {
		t.Fatalf("default rubric must have 8 sections, got %d", len(def))
	}
	if def.TotalPoints() != 32 {
		t.Fatalf("default rubric total points = %d, want 32", def.TotalPoints())
	}
}
