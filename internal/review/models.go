// Package review persists submitted reports together with the feedback
// they received.
package review

import "time"

// Review is one stored submit-and-score round for a user.
type Review struct {
	ID              string    `json:"id"`
	UserID          string    `json:"user_id"`
	ReportText      string    `json:"report_text"`
	FeedbackText    string    `json:"feedback_text"`
	FeedbackSummary string    `json:"feedback_summary"`
	ScoresJSON      string    `json:"scores_json"`
	GeneratedVia    string    `json:"generated_via"`
	Rating          *int      `json:"rating,omitempty"`
	RatingNote      string    `json:"rating_note,omitempty"`
	Status          string    `json:"status"`
	SourceName      string    `json:"source_name,omitempty"`
	SubmittedAt     time.Time `json:"submitted_at"`
	FeedbackAt      time.Time `json:"feedback_at"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Summary is the trimmed listing row for history views.
type Summary struct {
	ID              string    `json:"id"`
	FeedbackAt      time.Time `json:"feedback_at"`
	PromptExcerpt   string    `json:"prompt_excerpt"`
	FeedbackExcerpt string    `json:"feedback_excerpt"`
}
