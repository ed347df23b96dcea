// Package llm implements the OpenAI-compatible chat client used for
// report scoring and rubric extraction. Callers treat every error as
// non-fatal and fall back to the deterministic paths.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/reportcoach/reportcoach/internal/feedback"
	"github.com/reportcoach/reportcoach/internal/rubric"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o-mini"
	defaultTimeout = 60 * time.Second

	// Excerpt caps keep prompts inside the model context window.
	reportExcerptLimit   = 16000
	syllabusExcerptLimit = 12000

	maxResponseBytes = 1 << 20
)

// Config carries the connection settings for the chat endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client talks to a chat-completions endpoint. Safe for concurrent use.
type Client struct {
	cfg  Config
	http *http.Client
	log  *zap.Logger
}

// New builds a Client, filling unset config fields with defaults. The
// client is usable without an API key; Configured reports false and
// calls fail fast.
func New(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{cfg: cfg, http: &http.Client{}, log: log}
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c != nil && strings.TrimSpace(c.cfg.APIKey) != ""
}

var scoringRules = []string{
	"Bands: Exemplary/Proficient/Developing/Insufficient.",
	"Round decimals to nearest integer before band mapping.",
	"Page limits: if >10% over, cap section at Proficient.",
	"Numbering consistency: enforce one-to-one PFD↔simulation where required.",
}

var sectionGates = map[string][]string{
	"Justification (Intro & Baseline)": {
		"Missing PFD or full stream table → cap 7",
		"Missing one-to-one PFD↔simulation numbering → cap 7",
	},
	"Summary (Improved Process & Results)": {
		"Missing improved PFD or missing NPW/IRR → cap 5",
		"Main equipment replaced without strong justification → cap 7",
	},
	"6a) Designed Equipment": {
		"No one-to-one PFD↔simulation mapping, or missing full process stream table, or missing capital-cost method → cap 12",
		"Missing Aspen backups (base & improved) → cap 12",
	},
	"6b) Safety, Health & Environment": {
		"Missing P&ID or HAZOP → cap 4",
	},
	"6c) Economic Analysis": {
		"Missing DCF or NPW/IRR → cap 4",
	},
}

var pageLimits = map[string]int{
	"Executive Summary":                    1,
	"Justification (Intro & Baseline)":     6,
	"Summary (Improved Process & Results)": 6,
}

var scoringInstructions = []string{
	"For each rubric, compute a raw score 0..max based on the provided text and rubric intent.",
	"Apply gates and page caps: final_score = min(rounded_raw, caps).",
	"Rounding: round raw to nearest integer before capping.",
	"If you cap, note which gate triggered in 'applied_caps'.",
	"Ground judgments strictly in the provided text; include 0-2 short evidence quotes when helpful.",
	"Keep rationales <= 25 words; suggestions <= 16 words; be concrete.",
}

var outputSchema = json.RawMessage(`{
  "writing": [
    {
      "name": "string",
      "score": "integer (0..max after caps)",
      "total": "integer (the rubric max)",
      "rationale": "string (<= 25 words)",
      "suggestion": "string (<= 16 words)",
      "evidence_quotes": ["string (0-2 quotes)"],
      "applied_caps": ["string (optional; gates or page caps applied)"]
    }
  ],
  "overall": {
    "notes": "string (<= 120 words; 2-4 concrete actions to reach Exemplary in capped/weak areas)"
  }
}`)

const scoreSystemPrompt = "You are a rigorous grader for a final chemical engineering design report. " +
	"Enforce gates and caps, rounding rules, and page limits as specified. " +
	"Return ONLY a valid JSON object that matches the requested schema."

const extractSystemPrompt = "You extract grading rubrics for technical report writing from syllabi. " +
	"Return ONLY a JSON array. Each item: {name, scoringCriteria:[{points:number, description:string}]}. " +
	"Prefer 3-6 clear items; keep descriptions short and concrete."

type scorePayload struct {
	ReportExcerpt string              `json:"report_excerpt"`
	Rubrics       []rubricLine        `json:"rubrics"`
	GlobalRules   []string            `json:"global_rules"`
	Gates         map[string][]string `json:"gates"`
	PageLimits    map[string]int      `json:"page_limits"`
	Instructions  []string            `json:"instructions"`
	OutputSchema  json.RawMessage     `json:"output_schema"`
}

type rubricLine struct {
	Name      string  `json:"name"`
	MaxPoints float64 `json:"max_points"`
}

// ScoreReport asks the model to score report text against rub and
// parses the structured response. A single attempt, bounded by the
// configured timeout.
func (c *Client) ScoreReport(ctx context.Context, report string, rub rubric.Rubric) (*feedback.ScoreResponse, error) {
	if !c.Configured() {
		return nil, errors.New("llm: no API key configured")
	}
	lines := make([]rubricLine, 0, len(rub))
	for _, sec := range rub {
		lines = append(lines, rubricLine{Name: sec.Name, MaxPoints: float64(sec.MaxPoints())})
	}
	payload, err := json.Marshal(scorePayload{
		ReportExcerpt: truncateRunes(report, reportExcerptLimit),
		Rubrics:       lines,
		GlobalRules:   scoringRules,
		Gates:         sectionGates,
		PageLimits:    pageLimits,
		Instructions:  scoringInstructions,
		OutputSchema:  outputSchema,
	})
	if err != nil {
		return nil, fmt.Errorf("encode scoring payload: %w", err)
	}
	user := "Return a JSON object that strictly matches the output_schema. " +
		"The word json here indicates your output must be JSON.\n\nPayload:\n" + string(payload)

	c.log.Debug("scoring report", zap.Int("rubric_sections", len(rub)), zap.Int("report_chars", len(report)))
	content, err := c.complete(ctx, scoreSystemPrompt, user)
	if err != nil {
		return nil, err
	}
	var out feedback.ScoreResponse
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("parse scoring response: %w", err)
	}
	return &out, nil
}

type extractedItem struct {
	Name            string `json:"name"`
	ScoringCriteria []struct {
		Points      flexFloat `json:"points"`
		Description string    `json:"description"`
	} `json:"scoringCriteria"`
}

// ExtractRubric asks the model to pull a rubric out of syllabus text.
// Accepts either a bare JSON array or an object wrapping it under
// "rubric". Sections are normalized the same way the heuristic
// extractor normalizes them.
func (c *Client) ExtractRubric(ctx context.Context, syllabus string) ([]rubric.Section, error) {
	if !c.Configured() {
		return nil, errors.New("llm: no API key configured")
	}
	user, err := json.Marshal(map[string]any{
		"syllabus_excerpt": truncateRunes(syllabus, syllabusExcerptLimit),
		"format": []map[string]any{{
			"name": "Executive Summary",
			"scoringCriteria": []map[string]any{
				{"points": 4, "description": "Clear problem, approach, key results, and recommendation."},
				{"points": 3, "description": "Mostly clear; minor missing elements."},
			},
		}},
	})
	if err != nil {
		return nil, fmt.Errorf("encode extraction payload: %w", err)
	}
	content, err := c.complete(ctx, extractSystemPrompt, string(user))
	if err != nil {
		return nil, err
	}

	var items []extractedItem
	if err := json.Unmarshal([]byte(content), &items); err != nil {
		var wrapped struct {
			Rubric []extractedItem `json:"rubric"`
		}
		if err2 := json.Unmarshal([]byte(content), &wrapped); err2 != nil {
			return nil, fmt.Errorf("parse extraction response: %w", err)
		}
		items = wrapped.Rubric
	}
	if len(items) == 0 {
		return nil, errors.New("extraction returned no sections")
	}
	out := make([]rubric.Section, 0, len(items))
	for _, it := range items {
		crits := make([]rubric.Criterion, 0, len(it.ScoringCriteria))
		for _, sc := range it.ScoringCriteria {
			pts := int(math.Round(float64(sc.Points)))
			if pts < 0 {
				pts = 0
			}
			crits = append(crits, rubric.Criterion{Points: pts, Description: strings.TrimSpace(sc.Description)})
		}
		out = append(out, rubric.NormalizeSection(it.Name, crits))
	}
	return out, nil
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []chatMessage   `json:"messages"`
	Temperature    float64         `json:"temperature"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// complete runs one chat completion and returns the first choice's
// content. The configured timeout bounds the whole call.
func (c *Client) complete(ctx context.Context, system, user string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:          c.cfg.Model,
		Temperature:    0.2,
		ResponseFormat: &responseFormat{Type: "json_object"},
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return "", fmt.Errorf("encode chat request: %w", err)
	}
	url := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build chat request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read chat response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chat completion: status %d: %s", resp.StatusCode, snippet(raw))
	}
	var cr chatResponse
	if err := json.Unmarshal(raw, &cr); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if cr.Error != nil && cr.Error.Message != "" {
		return "", fmt.Errorf("chat completion: %s", cr.Error.Message)
	}
	if len(cr.Choices) == 0 {
		return "", errors.New("chat completion: empty choices")
	}
	content := strings.TrimSpace(cr.Choices[0].Message.Content)
	if content == "" {
		return "", errors.New("chat completion: empty content")
	}
	return content, nil
}

// flexFloat tolerates models emitting points as strings ("4 pts").
type flexFloat float64

var numRe = regexp.MustCompile(`[0-9]+(?:\.[0-9]+)?`)

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	var n float64
	if err := json.Unmarshal(b, &n); err == nil {
		*f = flexFloat(n)
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		if m := numRe.FindString(s); m != "" {
			n, _ = strconv.ParseFloat(m, 64)
		}
		*f = flexFloat(n)
		return nil
	}
	*f = 0
	return nil
}

func truncateRunes(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func snippet(b []byte) string {
	s := strings.TrimSpace(string(b))
	if len(s) > 200 {
		s = s[:200]
	}
	return s
}
