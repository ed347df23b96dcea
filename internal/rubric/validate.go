package rubric

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// MalformedRubricError reports every shape violation found in a rubric
// document. It is the only error kind Replace surfaces to callers.
type MalformedRubricError struct {
	Violations []string
}

func (e *MalformedRubricError) Error() string {
	return "malformed rubric: " + strings.Join(e.Violations, "; ")
}

// Validate decodes a raw rubric document into a typed Rubric. The wire
// shape is a JSON array of {name, scoringCriteria:[{points, description}]}.
// All violations are collected in a single pass so an admin sees the full
// list at once rather than fixing one field per round-trip.
func Validate(doc []byte) (Rubric, error) {
	dec := json.NewDecoder(bytes.NewReader(doc))
	dec.UseNumber()

	var raw interface{}
	if err := dec.Decode(&raw); err != nil {
		return nil, &MalformedRubricError{Violations: []string{"document is not valid JSON: " + err.Error()}}
	}
	if dec.More() {
		return nil, &MalformedRubricError{Violations: []string{"document contains trailing data after the rubric array"}}
	}

	arr, ok := raw.([]interface{})
	if !ok {
		return nil, &MalformedRubricError{Violations: []string{"top level must be a JSON array of sections"}}
	}

	var viol []string
	seen := make(map[string]int, len(arr))
	out := make(Rubric, 0, len(arr))

	for i, el := range arr {
		obj, ok := el.(map[string]interface{})
		if !ok {
			viol = append(viol, fmt.Sprintf("sections[%d]: must be an object", i))
			continue
		}
		sec := Section{}

		switch name := obj["name"].(type) {
		case nil:
			viol = append(viol, fmt.Sprintf("sections[%d]: missing required key %q", i, "name"))
		case string:
			sec.Name = strings.TrimSpace(name)
			if sec.Name == "" {
				viol = append(viol, fmt.Sprintf("sections[%d]: name must be a non-empty string", i))
			} else if prev, dup := seen[sec.Name]; dup {
				viol = append(viol, fmt.Sprintf("sections[%d]: duplicate section name %q (first at sections[%d])", i, sec.Name, prev))
			} else {
				seen[sec.Name] = i
			}
		default:
			viol = append(viol, fmt.Sprintf("sections[%d]: name must be a string", i))
		}

		switch sc := obj["scoringCriteria"].(type) {
		case nil:
			viol = append(viol, fmt.Sprintf("sections[%d]: missing required key %q", i, "scoringCriteria"))
		case []interface{}:
			sec.ScoringCriteria = make([]Criterion, 0, len(sc))
			for j, ce := range sc {
				crit, errs := validateCriterion(i, j, ce)
				viol = append(viol, errs...)
				sec.ScoringCriteria = append(sec.ScoringCriteria, crit)
			}
		default:
			viol = append(viol, fmt.Sprintf("sections[%d]: scoringCriteria must be an array", i))
		}

		out = append(out, sec)
	}

	if len(viol) > 0 {
		return nil, &MalformedRubricError{Violations: viol}
	}
	return out, nil
}

func validateCriterion(si, ci int, el interface{}) (Criterion, []string) {
	var crit Criterion
	obj, ok := el.(map[string]interface{})
	if !ok {
		return crit, []string{fmt.Sprintf("sections[%d].scoringCriteria[%d]: must be an object", si, ci)}
	}

	var viol []string
	switch pts := obj["points"].(type) {
	case nil:
		viol = append(viol, fmt.Sprintf("sections[%d].scoringCriteria[%d]: missing required key %q", si, ci, "points"))
	case json.Number:
		n, err := strconv.ParseInt(pts.String(), 10, 64)
		switch {
		case err != nil:
			viol = append(viol, fmt.Sprintf("sections[%d].scoringCriteria[%d]: points must be an integer, got %s", si, ci, pts.String()))
		case n < 0:
			viol = append(viol, fmt.Sprintf("sections[%d].scoringCriteria[%d]: points must not be negative", si, ci))
		default:
			crit.Points = int(n)
		}
	default:
		viol = append(viol, fmt.Sprintf("sections[%d].scoringCriteria[%d]: points must be an integer", si, ci))
	}

	switch desc := obj["description"].(type) {
	case nil:
		viol = append(viol, fmt.Sprintf("sections[%d].scoringCriteria[%d]: missing required key %q", si, ci, "description"))
	case string:
		crit.Description = desc
	default:
		viol = append(viol, fmt.Sprintf("sections[%d].scoringCriteria[%d]: description must be a string", si, ci))
	}
	return crit, viol
}
