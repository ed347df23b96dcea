package rubric_test

import (
	"testing"

	"github.com/reportcoach/reportcoach/internal/rubric"
)

func TestExtractFromText_ParsesHeadingsAndCriteria(t *testing.T) {
	syllabus := `Course policies apply to all sections.

Grading Rubric

Executive Summary:
- 4 pts: Clear problem and key results.
- 2 pts: Partial summary.
- 0 pts: Missing.

Economic Analysis:
- 5 points: CAPEX and OPEX with sensitivity.
- 3: Costs present but thin basis.
`
	r := rubric.ExtractFromText(syllabus)
	if len(r) < 2 {
		t.Fatalf("expected at least 2 sections, got %d: %v", len(r), r.Names())
	}

	byName := map[string]rubric.Section{}
	for _, s := range r {
		byName[s.Name] = s
	}
	es, ok := byName["Executive Summary"]
	if !ok {
		t.Fatalf("Executive Summary not extracted: %v", r.Names())
	}
	if len(es.ScoringCriteria) != 3 || es.ScoringCriteria[0].Points != 4 {
		t.Fatalf("Executive Summary criteria wrong: %+v", es.ScoringCriteria)
	}
	ea, ok := byName["Economic Analysis"]
	if !ok {
		t.Fatalf("Economic Analysis not extracted: %v", r.Names())
	}
	if len(ea.ScoringCriteria) != 2 {
		t.Fatalf("Economic Analysis criteria wrong: %+v", ea.ScoringCriteria)
	}
	if ea.ScoringCriteria[1].Points != 3 || ea.ScoringCriteria[1].Description != "Costs present but thin basis." {
		t.Fatalf("bare numeric criterion not parsed: %+v", ea.ScoringCriteria[1])
	}
}

func TestExtractFromText_EmptyInputYieldsNothing(t *testing.T) {
	if r := rubric.ExtractFromText("   \n  "); r != nil {
		t.Fatalf("expected nil for empty input, got %v", r)
	}
}

func TestExtractFromText_FallsBackToSkeleton(t *testing.T) {
	r := rubric.ExtractFromText("nothing rubric-shaped in here at all")
	if len(r) != 8 {
		t.Fatalf("expected 8 skeleton sections, got %d", len(r))
	}
	if r[0].Name != "Executive Summary" {
		t.Fatalf("skeleton order wrong: %v", r.Names())
	}
}

func TestExtractFromText_DedupesRepeatedCriteria(t *testing.T) {
	syllabus := `Rubric
Writing Quality:
- 3 pts: Clear and concise.
- 3 pts: Clear and concise.
`
	r := rubric.ExtractFromText(syllabus)
	var wq *rubric.Section
	for i := range r {
		if r[i].Name == "Writing Quality" {
			wq = &r[i]
		}
	}
	if wq == nil {
		t.Fatalf("Writing Quality not extracted: %v", r.Names())
	}
	if len(wq.ScoringCriteria) != 1 {
		t.Fatalf("duplicate criteria not removed: %+v", wq.ScoringCriteria)
	}
}

func TestNormalizeSection_SubstitutesDefaultLadder(t *testing.T) {
	s := rubric.NormalizeSection("  Methods  ", nil)
	if s.Name != "Methods" {
		t.Fatalf("name not trimmed: %q", s.Name)
	}
	if len(s.ScoringCriteria) != 5 || s.ScoringCriteria[0].Points != 4 {
		t.Fatalf("default ladder missing: %+v", s.ScoringCriteria)
	}
	if got := rubric.NormalizeSection("", nil).Name; got != "Untitled" {
		t.Fatalf("empty name should become Untitled, got %q", got)
	}
}
