package feedback

import "time"

// GeneratedVia records which path produced a result.
type GeneratedVia string

const (
	ViaLLM      GeneratedVia = "llm"
	ViaFallback GeneratedVia = "fallback"
)

// ScoreEntry is the {score,total} pair persisted per section.
type ScoreEntry struct {
	Score float64 `json:"score"`
	Total float64 `json:"total"`
}

// SectionResult is the feedback produced for one rubric section.
type SectionResult struct {
	Name        string   `json:"name"`
	Score       float64  `json:"score"`
	Total       float64  `json:"total"`
	Commentary  string   `json:"commentary"`
	Suggestion  string   `json:"suggestion,omitempty"`
	Evidence    []string `json:"evidence,omitempty"`
	AppliedCaps []string `json:"applied_caps,omitempty"`
}

// Result is one complete feedback report. Sections follows rubric order
// exactly, one entry per rubric section. Immutable once produced.
type Result struct {
	ReportText     string          `json:"report_text"`
	Sections       []SectionResult `json:"sections"`
	Text           string          `json:"text"`
	Summary        string          `json:"summary"`
	EvidenceQuotes []string        `json:"evidence_quotes"`
	Via            GeneratedVia    `json:"generated_via"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Commentary returns the per-section commentary keyed by section name.
func (r Result) Commentary() map[string]string {
	out := make(map[string]string, len(r.Sections))
	for _, s := range r.Sections {
		out[s.Name] = s.Commentary
	}
	return out
}

// Scores returns the per-section score pairs keyed by section name.
func (r Result) Scores() map[string]ScoreEntry {
	out := make(map[string]ScoreEntry, len(r.Sections))
	for _, s := range r.Sections {
		out[s.Name] = ScoreEntry{Score: s.Score, Total: s.Total}
	}
	return out
}
