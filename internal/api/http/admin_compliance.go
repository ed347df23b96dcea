package http

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/reportcoach/reportcoach/internal/storage"
)

// -----------------------------
// Admin: Compliance
// -----------------------------

// ExportUserDataHandler returns everything held on a user (account row
// plus stored reviews) as a downloadable JSON file. Timestamps are the
// raw epoch seconds as stored.
func ExportUserDataHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "user_id required", http.StatusBadRequest)
			return
		}

		var id, username, role string
		var createdAt int64
		err := db.QueryRowContext(r.Context(),
			`SELECT id, username, role, created_at FROM users WHERE id=$1 OR username=$1`,
			req.UserID).Scan(&id, &username, &role, &createdAt)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		rows, err := db.QueryContext(r.Context(),
			`SELECT id, report_text, feedback_text, feedback_summary, scores_json,
				generated_via, rating, rating_note, source_name, submitted_at, feedback_at
			 FROM reviews WHERE user_id=$1 ORDER BY submitted_at DESC`, id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer rows.Close()

		reviews := []map[string]any{}
		for rows.Next() {
			var (
				rid, report, feedback, summary, scoresJSON, via, sourceName string
				rating                                                      sql.NullInt64
				note                                                        sql.NullString
				submittedAt, feedbackAt                                     int64
			)
			if err := rows.Scan(&rid, &report, &feedback, &summary, &scoresJSON,
				&via, &rating, &note, &sourceName, &submittedAt, &feedbackAt); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			item := map[string]any{
				"id":               rid,
				"report_text":      report,
				"feedback_text":    feedback,
				"feedback_summary": summary,
				"scores_json":      scoresJSON,
				"generated_via":    via,
				"source_name":      sourceName,
				"submitted_at":     submittedAt,
				"feedback_at":      feedbackAt,
			}
			if rating.Valid {
				item["rating"] = rating.Int64
			}
			if note.Valid && note.String != "" {
				item["rating_note"] = note.String
			}
			reviews = append(reviews, item)
		}
		if err := rows.Err(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		resp := map[string]any{
			"id":         id,
			"username":   username,
			"role":       role,
			"created_at": createdAt,
			"reviews":    reviews,
		}

		filename := fmt.Sprintf("pii_%s.json", id)
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// DeleteUserDataHandler purges a user's reviews and account record in
// one transaction, then removes any archived upload blobs. Refuses to
// delete the last remaining admin.
func DeleteUserDataHandler(db *sql.DB, blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			UserID string `json:"user_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.UserID == "" {
			http.Error(w, "user_id required", http.StatusBadRequest)
			return
		}

		var id, role string
		err := db.QueryRowContext(r.Context(),
			`SELECT id, role FROM users WHERE id=$1 OR username=$1`, req.UserID).Scan(&id, &role)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "user not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if role == "admin" {
			var adminCount int
			if err := db.QueryRowContext(r.Context(),
				`SELECT COUNT(1) FROM users WHERE role='admin'`).Scan(&adminCount); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			if adminCount <= 1 {
				http.Error(w, "cannot delete the last admin", http.StatusBadRequest)
				return
			}
		}

		reviewIDs, err := collectReviewIDs(r, db, id)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		tx, err := db.BeginTx(r.Context(), nil)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(r.Context(),
			`DELETE FROM reviews WHERE user_id=$1`, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if _, err := tx.ExecContext(r.Context(),
			`DELETE FROM users WHERE id=$1`, id); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if err := tx.Commit(); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		// Rows are gone; leftover blobs are harmless if a remove fails.
		for _, rid := range reviewIDs {
			_ = blobs.Delete(sourceKey(rid))
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "deleted"})
	}
}

func collectReviewIDs(r *http.Request, db *sql.DB, userID string) ([]string, error) {
	rows, err := db.QueryContext(r.Context(), `SELECT id FROM reviews WHERE user_id=$1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
