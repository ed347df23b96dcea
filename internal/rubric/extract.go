package rubric

import (
	"regexp"
	"strings"
)

// Heuristic syllabus extraction. Finds rubric-like headings and
// "N pts: description" lines so an admin can seed a rubric from a course
// document without any model being configured.

var (
	headingRe   = regexp.MustCompile(`^([A-Z][A-Za-z0-9 ,/&()\-]{3,})\s*(?:\([^)]+\))?\s*[:\-]?$`)
	critPtsRe   = regexp.MustCompile(`(?i)^(?:-\s*)?(\d{1,2})\s*(?:points?|pts?)\s*[:\-]\s*(.+)$`)
	critPlainRe = regexp.MustCompile(`^(?:-\s*)?(\d{1,2})\s*[:\-]\s*(.+)$`)
	spaceRe     = regexp.MustCompile(`\s+`)
)

// ExtractFromText pulls rubric sections out of free-form syllabus text.
// Empty input yields nil; any other input yields at least a default
// skeleton, so "nothing extracted" only happens for empty documents.
func ExtractFromText(text string) Rubric {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	lines := make([]string, 0, 64)
	for _, ln := range strings.Split(text, "\n") {
		lines = append(lines, spaceRe.ReplaceAllString(strings.TrimSpace(ln), " "))
	}

	// Narrow to a window around the word "rubric" when present; syllabi
	// bury the grading table deep in unrelated policy text.
	joined := strings.Join(lines, "\n")
	if loc := strings.Index(strings.ToLower(joined), "rubric"); loc >= 0 {
		start := loc - 200
		if start < 0 {
			start = 0
		}
		end := start + 8000
		if end > len(joined) {
			end = len(joined)
		}
		lines = strings.Split(joined[start:end], "\n")
	}

	var items Rubric
	var curName string
	var curCriteria []Criterion

	push := func() {
		if curName != "" {
			items = append(items, NormalizeSection(curName, curCriteria))
		}
		curName, curCriteria = "", nil
	}

	for _, ln := range lines {
		if ln == "" {
			continue
		}
		if m := headingRe.FindStringSubmatch(ln); m != nil && len(strings.Fields(ln)) <= 8 {
			push()
			curName = strings.TrimSpace(m[1])
			continue
		}
		if m := critPtsRe.FindStringSubmatch(ln); m != nil && curName != "" {
			curCriteria = append(curCriteria, Criterion{Points: atoiSafe(m[1]), Description: strings.TrimSpace(m[2])})
			continue
		}
		if m := critPlainRe.FindStringSubmatch(ln); m != nil && curName != "" {
			desc := strings.TrimSpace(m[2])
			if len(desc) >= 6 {
				curCriteria = append(curCriteria, Criterion{Points: atoiSafe(m[1]), Description: desc})
			}
		}
	}
	push()

	if len(items) == 0 {
		items = skeleton()
	}
	return items
}

// NormalizeSection trims and dedupes a section's criteria, substituting a
// standard 4..0 ladder when no usable criteria came through.
func NormalizeSection(name string, criteria []Criterion) Section {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "Untitled"
	}

	type key struct {
		pts  int
		desc string
	}
	seen := make(map[key]bool, len(criteria))
	out := make([]Criterion, 0, len(criteria))
	for _, c := range criteria {
		c.Description = strings.TrimSpace(c.Description)
		if c.Points < 0 {
			c.Points = 0
		}
		k := key{c.Points, c.Description}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		out = []Criterion{
			{Points: 4, Description: "Excellent."},
			{Points: 3, Description: "Good."},
			{Points: 2, Description: "Fair."},
			{Points: 1, Description: "Poor."},
			{Points: 0, Description: "Insufficient."},
		}
	}
	return Section{Name: name, ScoringCriteria: out}
}

// skeleton mirrors the default rubric's shape with blank descriptions, used
// when a document mentions a rubric but none of its lines parse.
func skeleton() Rubric {
	defaults := []struct {
		name   string
		points []int
	}{
		{"Executive Summary", []int{4, 3, 2, 1, 0}},
		{"Context: Puerto Rico", []int{4, 3, 2, 1, 0}},
		{"Process Description & Flows", []int{5, 4, 3, 2, 0}},
		{"Safety & Environmental", []int{4, 3, 2, 1, 0}},
		{"Economic Analysis", []int{4, 3, 2, 1, 0}},
		{"Data, Methods, and Rigor", []int{5, 4, 3, 2, 0}},
		{"Figures, Tables, and Formatting", []int{3, 2, 1, 0}},
		{"Writing Quality", []int{3, 2, 1, 0}},
	}
	out := make(Rubric, 0, len(defaults))
	for _, d := range defaults {
		crit := make([]Criterion, 0, len(d.points))
		for _, p := range d.points {
			crit = append(crit, Criterion{Points: p})
		}
		out = append(out, Section{Name: d.name, ScoringCriteria: crit})
	}
	return out
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}
