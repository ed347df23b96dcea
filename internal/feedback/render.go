package feedback

import (
	"fmt"
	"sort"
	"strings"
)

const (
	titleOnline  = "**Final Report Feedback**"
	titleOffline = "**Final Report Feedback (offline mode)**"
)

// renderText assembles the markdown feedback body: header, total,
// applied caps, the overall summary block, then the per-section
// breakdown in section order.
func renderText(title string, sections []SectionResult, summaryBlock string) string {
	lines := []string{title}
	earned, max := totals(sections)
	if max > 0 {
		lines = append(lines, fmt.Sprintf("**Total Score**: %.0f/%.0f", earned, max))
	}
	if caps := capNotes(sections); len(caps) > 0 {
		lines = append(lines, "", "**Applied Caps/Gates**")
		if len(caps) > 8 {
			caps = caps[:8]
		}
		lines = append(lines, caps...)
	}
	lines = append(lines, "", "**Overall Summary**", summaryBlock, "")

	body := []string{"**Per-Rubric Breakdown**"}
	for _, s := range sections {
		body = append(body, fmt.Sprintf(" **%s**: %.0f/%.0f", s.Name, s.Score, s.Total))
		if s.Commentary != "" {
			body = append(body, "  - **Why**: "+s.Commentary)
		}
		if s.Suggestion != "" && !strings.EqualFold(s.Suggestion, "none") {
			body = append(body, "  - **Improve**: "+s.Suggestion)
		}
		if len(s.Evidence) > 0 {
			quotes := s.Evidence
			if len(quotes) > 2 {
				quotes = quotes[:2]
			}
			parts := make([]string, len(quotes))
			for i, q := range quotes {
				parts[i] = "“" + strings.TrimSpace(q) + "”"
			}
			body = append(body, "  - **Evidence**: "+strings.Join(parts, " | "))
		}
	}
	all := append(lines, body...)
	return strings.TrimSpace(strings.Join(all, "\n"))
}

// buildSummary writes the overall-summary block: total, weakest
// sections to revise first, sections with no visible work, and the
// strongest sections. Sections with a zero total carry no signal and
// are left out of the ranking.
func buildSummary(sections []SectionResult) string {
	earned, max := totals(sections)
	out := []string{fmt.Sprintf(
		"Draft scores **%.0f/%.0f**. To reach Exemplary, fix gated items first, then raise weakest sections.",
		earned, max)}

	type rated struct {
		s     SectionResult
		ratio float64
	}
	var weak []rated
	var strong []string
	for _, s := range sections {
		if s.Total <= 0 {
			continue
		}
		ratio := s.Score / s.Total
		if ratio < 0.8 {
			weak = append(weak, rated{s: s, ratio: ratio})
		} else {
			strong = append(strong, s.Name)
		}
	}
	sort.SliceStable(weak, func(i, j int) bool { return weak[i].ratio < weak[j].ratio })

	if len(weak) > 0 {
		n := len(weak)
		if n > 3 {
			n = 3
		}
		steps := make([]string, 0, n)
		for _, w := range weak[:n] {
			action := strings.TrimSpace(w.s.Suggestion)
			if action == "" {
				action = fmt.Sprintf("Strengthen %s with quantitative evidence", w.s.Name)
			}
			steps = append(steps, fmt.Sprintf("%s: %s", w.s.Name, strings.TrimRight(action, ".")))
		}
		out = append(out, "**Revise in this order:** "+strings.Join(steps, " → "))
	}

	var missing []string
	for _, w := range weak {
		if w.s.Score == 0 {
			missing = append(missing, w.s.Name)
		}
	}
	if len(missing) > 0 {
		if len(missing) > 5 {
			missing = missing[:5]
		}
		out = append(out, "**Missing sections:** "+strings.Join(missing, ", "))
	}
	if len(strong) > 0 {
		if len(strong) > 3 {
			strong = strong[:3]
		}
		out = append(out, "**Highlights:** "+strings.Join(strong, ", "))
	}
	return strings.Join(out, "\n")
}

// capNotes collects "section: cap" lines for every applied cap or gate.
func capNotes(sections []SectionResult) []string {
	var out []string
	for _, s := range sections {
		for _, c := range s.AppliedCaps {
			c = strings.TrimSpace(c)
			if c != "" {
				out = append(out, fmt.Sprintf("%s: %s", s.Name, c))
			}
		}
	}
	return out
}

func totals(sections []SectionResult) (earned, max float64) {
	for _, s := range sections {
		earned += s.Score
		max += s.Total
	}
	return earned, max
}
