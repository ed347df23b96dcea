package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	auth "github.com/reportcoach/reportcoach/internal/auth/middleware"
	"github.com/reportcoach/reportcoach/internal/extract"
	"github.com/reportcoach/reportcoach/internal/rubric"
)

// RubricExtractor is the LLM-backed syllabus extractor. The handler falls
// back to the line heuristic when it is unconfigured or comes back empty.
type RubricExtractor interface {
	Configured() bool
	ExtractRubric(ctx context.Context, syllabus string) ([]rubric.Section, error)
}

// GetRubricHandler serves the active rubric in interchange form.
func GetRubricHandler(store *rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rub := store.Load()
		if rub == nil {
			rub = rubric.Rubric{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(rub)
	}
}

// SaveRubricHandler replaces the active rubric with the posted document.
// A document that fails validation changes nothing and the response body
// carries every violation found.
func SaveRubricHandler(store *rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		doc, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
		if err != nil {
			http.Error(w, "read body", http.StatusBadRequest)
			return
		}
		if _, err := store.Replace(r.Context(), doc, auth.SubjectFromContext(r.Context())); err != nil {
			var malformed *rubric.MalformedRubricError
			if errors.As(err, &malformed) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{
					"error":      "malformed rubric",
					"violations": malformed.Violations,
				})
				return
			}
			http.Error(w, "save rubric", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"message": "Rubrics saved"})
	}
}

// RubricVersionsHandler lists the newest stored rubric versions.
func RubricVersionsHandler(store *rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		repo := store.Versions()
		if repo == nil {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "versions": []any{}})
			return
		}
		vs, err := repo.List(r.Context(), 20)
		if err != nil {
			http.Error(w, "list versions", http.StatusInternalServerError)
			return
		}
		out := make([]map[string]any, 0, len(vs))
		for _, v := range vs {
			out = append(out, map[string]any{
				"id":         v.ID,
				"created_at": v.CreatedAt.Format(time.RFC3339),
				"created_by": v.CreatedBy,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "versions": out})
	}
}

// RubricRollbackHandler re-activates a stored rubric version.
func RubricRollbackHandler(store *rubric.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			VersionID int64 `json:"version_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.VersionID == 0 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "version_id is required"})
			return
		}
		_, err := store.Rollback(r.Context(), req.VersionID, auth.SubjectFromContext(r.Context()))
		switch {
		case err == nil:
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "Rolled back to selected version"})
		case errors.Is(err, rubric.ErrVersionNotFound):
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Version not found"})
		default:
			var malformed *rubric.MalformedRubricError
			if errors.As(err, &malformed) {
				w.WriteHeader(http.StatusBadRequest)
				_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "Stored version JSON invalid"})
				return
			}
			http.Error(w, "rollback", http.StatusInternalServerError)
		}
	}
}

// ExtractRubricHandler turns an uploaded syllabus (PDF/DOCX/TXT) into a
// rubric draft. The draft is returned for review, never saved directly.
func ExtractRubricHandler(x RubricExtractor, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		filename, data, err := readFormFile(r, "file")
		if errors.Is(err, extract.ErrTooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		if err != nil || len(data) == 0 {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false, "error": "Please upload a syllabus file (PDF/DOCX/TXT).",
			})
			return
		}

		text, xerr := extract.FromUpload(filename, data)
		if xerr != nil {
			log.Warn("syllabus text extraction failed",
				zap.String("filename", filename), zap.Error(xerr))
		}
		text = strings.TrimSpace(text)
		if text == "" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false, "error": "Could not read text from the uploaded file.",
			})
			return
		}

		var rub rubric.Rubric
		if x != nil && x.Configured() {
			sections, lerr := x.ExtractRubric(r.Context(), text)
			if lerr != nil {
				log.Warn("rubric extraction via model failed, using heuristic", zap.Error(lerr))
			}
			rub = rubric.Rubric(sections)
		}
		if len(rub) == 0 {
			rub = rubric.ExtractFromText(text)
		}
		if len(rub) == 0 {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"success": false, "error": "No rubric could be extracted.",
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "rubric": rub})
	}
}
