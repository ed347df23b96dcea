package feedback

import (
	"fmt"
	"math"
	"strings"
	"unicode"

	"github.com/reportcoach/reportcoach/internal/rubric"
)

// wordsPerSection is the rough length a full treatment of one rubric
// section is expected to take.
const wordsPerSection = 150

const offlineSummary = "Offline heuristic review; scores reflect section keyword coverage and report length."

var stopwords = map[string]struct{}{
	"and": {}, "the": {}, "for": {}, "with": {}, "from": {},
	"that": {}, "this": {}, "are": {}, "was": {}, "were": {},
}

type band int

const (
	bandMissing band = iota
	bandTrace
	bandThin
	bandSolid
	bandStrong
)

// heuristicSections scores every rubric section from keyword coverage
// and overall report length. Deterministic: same inputs, same output.
func heuristicSections(report string, rub rubric.Rubric) []SectionResult {
	norm := normalize(report)
	words := len(strings.Fields(report))

	var lengthRatio float64
	if expected := wordsPerSection * len(rub); expected > 0 {
		lengthRatio = float64(words) / float64(expected)
		if lengthRatio > 1 {
			lengthRatio = 1
		}
	}

	out := make([]SectionResult, 0, len(rub))
	for _, sec := range rub {
		tokens := sectionTokens(sec.Name)
		var matched, missing []string
		for _, tk := range tokens {
			if strings.Contains(norm, tk) {
				matched = append(matched, tk)
			} else {
				missing = append(missing, tk)
			}
		}
		signal := lengthRatio
		if len(tokens) > 0 {
			coverage := float64(len(matched)) / float64(len(tokens))
			signal = 0.7*coverage + 0.3*lengthRatio
		}
		frac, b := bandFor(signal)
		maxPts := float64(sec.MaxPoints())
		commentary, suggestion := bandText(b, sec.Name, matched, missing)
		out = append(out, SectionResult{
			Name:       sec.Name,
			Score:      math.Round(frac * maxPts),
			Total:      maxPts,
			Commentary: commentary,
			Suggestion: suggestion,
		})
	}
	return out
}

// bandFor maps a coverage signal in [0,1] to a score fraction.
func bandFor(signal float64) (float64, band) {
	switch {
	case signal >= 0.75:
		return 1.0, bandStrong
	case signal >= 0.5:
		return 0.75, bandSolid
	case signal >= 0.25:
		return 0.5, bandThin
	case signal > 0:
		return 0.25, bandTrace
	default:
		return 0, bandMissing
	}
}

func bandText(b band, name string, matched, missing []string) (string, string) {
	switch b {
	case bandStrong:
		return fmt.Sprintf("Report mentions %s and carries enough text for a full treatment.", listWords(matched)),
			fmt.Sprintf("Check %s against its top criterion before submitting", name)
	case bandSolid:
		return fmt.Sprintf("Covers %s; depth looks moderate for the report length.", listWords(matched)),
			fmt.Sprintf("Add quantitative detail to %s", name)
	case bandThin:
		if len(matched) == 0 {
			return fmt.Sprintf("Report length suggests partial coverage but %s never appears by name.", listWords(missing)),
				fmt.Sprintf("Expand %s well beyond a passing mention", name)
		}
		return fmt.Sprintf("Touches on %s but %s is absent.", listWords(matched), listWords(missing)),
			fmt.Sprintf("Expand %s well beyond a passing mention", name)
	case bandTrace:
		if len(matched) == 0 {
			return fmt.Sprintf("Only the report length hints at coverage; %s is not referenced directly.", name),
				fmt.Sprintf("Add a dedicated %s section covering its criteria", name)
		}
		return fmt.Sprintf("Barely touches %s; treatment reads as an aside.", listWords(matched)),
			fmt.Sprintf("Give %s its own developed section", name)
	default:
		if len(missing) > 0 {
			return fmt.Sprintf("No mention of %s found in the report.", listWords(missing)),
				fmt.Sprintf("Add a dedicated %s section covering its criteria", name)
		}
		return "Report text is too short to show work for this section.",
			fmt.Sprintf("Add a dedicated %s section covering its criteria", name)
	}
}

func listWords(ws []string) string {
	return strings.Join(ws, ", ")
}

// sectionTokens lowercases a section name and keeps the content words.
func sectionTokens(name string) []string {
	fields := strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	var out []string
	for _, f := range fields {
		if len(f) < 3 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		out = append(out, f)
	}
	return out
}

// normalize does simple casefolding and trims punctuation/extra spaces.
func normalize(s string) string {
	out := make([]rune, 0, len(s))
	space := false
	for _, r := range []rune(s) {
		switch {
		case unicode.IsSpace(r):
			space = true
		case unicode.IsPunct(r):
			// skip
		default:
			if space && len(out) > 0 {
				out = append(out, ' ')
			}
			space = false
			out = append(out, unicode.ToLower(r))
		}
	}
	return string(out)
}
