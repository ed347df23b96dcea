package feedback

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reportcoach/reportcoach/internal/rubric"
)

// SectionScore is one scored rubric section as returned by a Scorer.
type SectionScore struct {
	Name           string   `json:"name"`
	Score          float64  `json:"score"`
	Total          float64  `json:"total"`
	Rationale      string   `json:"rationale"`
	Suggestion     string   `json:"suggestion"`
	EvidenceQuotes []string `json:"evidence_quotes"`
	AppliedCaps    []string `json:"applied_caps"`
}

// OverallNotes carries the scorer's free-form overall assessment.
type OverallNotes struct {
	Notes string `json:"notes"`
}

// ScoreResponse is the structured scoring payload a Scorer produces.
type ScoreResponse struct {
	Writing []SectionScore `json:"writing"`
	Overall OverallNotes   `json:"overall"`
}

// Scorer scores a report against a rubric. Implementations may call out
// to an external model; the engine treats any error as grounds for the
// deterministic fallback.
type Scorer interface {
	Configured() bool
	ScoreReport(ctx context.Context, report string, rub rubric.Rubric) (*ScoreResponse, error)
}

// Engine turns report text plus the active rubric into a Result. It is
// safe for concurrent use.
type Engine struct {
	scorer Scorer
	strict bool
	now    func() time.Time
	log    *zap.Logger
}

// Option customizes an Engine.
type Option func(*Engine)

// WithStrictEvidence toggles the evidence penalty: positive section
// scores with no supporting quotes are reduced by 10%.
func WithStrictEvidence(strict bool) Option {
	return func(e *Engine) { e.strict = strict }
}

// WithClock overrides the engine clock, for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// NewEngine builds an Engine. scorer may be nil, in which case every
// report takes the heuristic path.
func NewEngine(scorer Scorer, log *zap.Logger, opts ...Option) *Engine {
	if log == nil {
		log = zap.NewNop()
	}
	e := &Engine{scorer: scorer, strict: true, now: time.Now, log: log}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Generate produces feedback for reportText under rub. It never returns
// an error: scorer failures, malformed scorer output, and missing
// configuration all degrade to the deterministic heuristic. The result
// always carries exactly one section entry per rubric section, in
// rubric order.
func (e *Engine) Generate(ctx context.Context, reportText string, rub rubric.Rubric) Result {
	text := strings.TrimSpace(reportText)
	if text == "" {
		res := e.emptyResult(rub)
		e.log.Info("feedback generated",
			zap.String("via", string(res.Via)),
			zap.Int("sections", len(res.Sections)),
			zap.Bool("empty_report", true))
		return res
	}
	if len(rub) > 0 && e.scorer != nil && e.scorer.Configured() {
		res, err := e.external(ctx, text, rub)
		if err == nil {
			e.log.Info("feedback generated",
				zap.String("via", string(res.Via)),
				zap.Int("sections", len(res.Sections)))
			return res
		}
		e.log.Warn("external scoring failed, using heuristic fallback", zap.Error(err))
	}
	res := e.heuristic(text, rub)
	e.log.Info("feedback generated",
		zap.String("via", string(res.Via)),
		zap.Int("sections", len(res.Sections)))
	return res
}

// external scores via the configured Scorer and validates the response
// shape against the rubric. Any deviation is an error so the caller can
// fall back.
func (e *Engine) external(ctx context.Context, text string, rub rubric.Rubric) (Result, error) {
	resp, err := e.scorer.ScoreReport(ctx, text, rub)
	if err != nil {
		return Result{}, err
	}
	if resp == nil {
		return Result{}, fmt.Errorf("scorer returned no response")
	}
	rows := make(map[string]SectionScore, len(resp.Writing))
	for _, w := range resp.Writing {
		name := strings.TrimSpace(w.Name)
		if name == "" {
			continue
		}
		rows[name] = w
	}
	sections := make([]SectionResult, 0, len(rub))
	var quotes []string
	for _, sec := range rub {
		w, ok := rows[sec.Name]
		if !ok {
			return Result{}, fmt.Errorf("scorer response missing section %q", sec.Name)
		}
		score := w.Score
		if score < 0 {
			score = 0
		}
		if w.Total > 0 && score > w.Total {
			score = w.Total
		}
		evidence := cleanStrings(w.EvidenceQuotes)
		if e.strict && score > 0 && len(evidence) == 0 {
			score *= 0.9
		}
		if len(evidence) > 2 {
			evidence = evidence[:2]
		}
		for _, q := range evidence {
			if !containsString(quotes, q) {
				quotes = append(quotes, q)
			}
		}
		sections = append(sections, SectionResult{
			Name:        sec.Name,
			Score:       score,
			Total:       w.Total,
			Commentary:  strings.TrimSpace(w.Rationale),
			Suggestion:  strings.TrimSpace(w.Suggestion),
			Evidence:    evidence,
			AppliedCaps: cleanStrings(w.AppliedCaps),
		})
	}
	if quotes == nil {
		quotes = []string{}
	}
	return Result{
		ReportText:     text,
		Sections:       sections,
		Text:           renderText(titleOnline, sections, buildSummary(sections)),
		Summary:        strings.TrimSpace(resp.Overall.Notes),
		EvidenceQuotes: quotes,
		Via:            ViaLLM,
		CreatedAt:      e.now(),
	}, nil
}

// heuristic produces the deterministic offline result.
func (e *Engine) heuristic(text string, rub rubric.Rubric) Result {
	sections := heuristicSections(text, rub)
	return Result{
		ReportText:     text,
		Sections:       sections,
		Text:           renderText(titleOffline, sections, buildSummary(sections)),
		Summary:        offlineSummary,
		EvidenceQuotes: []string{},
		Via:            ViaFallback,
		CreatedAt:      e.now(),
	}
}

// emptyResult handles blank submissions without consulting any scorer.
func (e *Engine) emptyResult(rub rubric.Rubric) Result {
	sections := make([]SectionResult, 0, len(rub))
	for _, sec := range rub {
		sections = append(sections, SectionResult{
			Name:       sec.Name,
			Score:      0,
			Total:      float64(sec.MaxPoints()),
			Commentary: "No content to evaluate for this section.",
		})
	}
	return Result{
		Sections:       sections,
		Text:           "No report content provided. Paste your final report text or upload a file.",
		Summary:        "No content to evaluate.",
		EvidenceQuotes: []string{},
		Via:            ViaFallback,
		CreatedAt:      e.now(),
	}
}

func cleanStrings(in []string) []string {
	var out []string
	for _, s := range in {
		s = strings.TrimSpace(s)
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
