package review

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

const (
	defaultListLimit = 30
	excerptLen       = 160
)

type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

const reviewColumns = `id, user_id, report_text, feedback_text, feedback_summary, scores_json,
	generated_via, rating, rating_note, status, source_name,
	submitted_at, feedback_at, created_at, updated_at`

func (s *SQLStore) Put(ctx context.Context, rec *Review) error {
	if rec.ID == "" {
		return errors.New("review: missing id")
	}
	if rec.UserID == "" {
		return errors.New("review: missing user id")
	}
	now := time.Now().UTC()
	if rec.Status == "" {
		rec.Status = "final"
	}
	if rec.SubmittedAt.IsZero() {
		rec.SubmittedAt = now
	}
	if rec.FeedbackAt.IsZero() {
		rec.FeedbackAt = now
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now
	_, err := s.db.ExecContext(ctx, `INSERT INTO reviews
		(id, user_id, report_text, feedback_text, feedback_summary, scores_json,
		 generated_via, status, source_name, submitted_at, feedback_at, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)`,
		rec.ID, rec.UserID, rec.ReportText, rec.FeedbackText, rec.FeedbackSummary, rec.ScoresJSON,
		rec.GeneratedVia, rec.Status, rec.SourceName,
		rec.SubmittedAt.Unix(), rec.FeedbackAt.Unix(), rec.CreatedAt.Unix(), rec.UpdatedAt.Unix())
	if err != nil {
		return fmt.Errorf("review: insert %s: %w", rec.ID, err)
	}
	return nil
}

func (s *SQLStore) Get(ctx context.Context, userID, id string) (*Review, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews WHERE id = $1 AND user_id = $2`, id, userID)
	return scanReview(row)
}

func (s *SQLStore) LatestByUser(ctx context.Context, userID string) (*Review, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+reviewColumns+` FROM reviews
		 WHERE user_id = $1 AND feedback_text <> ''
		 ORDER BY feedback_at DESC, created_at DESC LIMIT 1`, userID)
	return scanReview(row)
}

func (s *SQLStore) ListByUser(ctx context.Context, userID string, limit int) ([]Summary, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, feedback_at, report_text, feedback_text FROM reviews
		 WHERE user_id = $1 AND feedback_text <> ''
		 ORDER BY feedback_at DESC, created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("review: list for %s: %w", userID, err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			item       Summary
			feedbackAt int64
			report     string
			feedback   string
		)
		if err := rows.Scan(&item.ID, &feedbackAt, &report, &feedback); err != nil {
			return nil, fmt.Errorf("review: scan summary: %w", err)
		}
		item.FeedbackAt = time.Unix(feedbackAt, 0).UTC()
		item.PromptExcerpt = excerpt(report)
		item.FeedbackExcerpt = excerpt(feedback)
		out = append(out, item)
	}
	return out, rows.Err()
}

func (s *SQLStore) SetRating(ctx context.Context, userID, reviewID string, rating *int, note *string) (string, error) {
	id := reviewID
	if id != "" {
		var found string
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM reviews WHERE id = $1 AND user_id = $2`, id, userID).Scan(&found)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			id = ""
		case err != nil:
			return "", fmt.Errorf("review: look up %s: %w", reviewID, err)
		}
	}
	if id == "" {
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM reviews WHERE user_id = $1
			 ORDER BY feedback_at DESC, created_at DESC LIMIT 1`, userID).Scan(&id)
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrNotFound
		}
		if err != nil {
			return "", fmt.Errorf("review: latest for %s: %w", userID, err)
		}
	}
	_, err := s.db.ExecContext(ctx,
		`UPDATE reviews SET rating = COALESCE($1, rating),
			rating_note = COALESCE($2, rating_note),
			updated_at = $3
		 WHERE id = $4`,
		rating, note, time.Now().Unix(), id)
	if err != nil {
		return "", fmt.Errorf("review: rate %s: %w", id, err)
	}
	return id, nil
}

func scanReview(row *sql.Row) (*Review, error) {
	var (
		r          Review
		rating     sql.NullInt64
		note       sql.NullString
		submitted  int64
		feedbackAt int64
		created    int64
		updated    int64
	)
	err := row.Scan(&r.ID, &r.UserID, &r.ReportText, &r.FeedbackText, &r.FeedbackSummary, &r.ScoresJSON,
		&r.GeneratedVia, &rating, &note, &r.Status, &r.SourceName,
		&submitted, &feedbackAt, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("review: scan: %w", err)
	}
	if rating.Valid {
		v := int(rating.Int64)
		r.Rating = &v
	}
	r.RatingNote = note.String
	r.SubmittedAt = time.Unix(submitted, 0).UTC()
	r.FeedbackAt = time.Unix(feedbackAt, 0).UTC()
	r.CreatedAt = time.Unix(created, 0).UTC()
	r.UpdatedAt = time.Unix(updated, 0).UTC()
	return &r, nil
}

// excerpt trims s for listings, rune-safe, appending an ellipsis when
// text was cut.
func excerpt(s string) string {
	r := []rune(s)
	if len(r) <= excerptLen {
		return s
	}
	return string(r[:excerptLen]) + "..."
}
