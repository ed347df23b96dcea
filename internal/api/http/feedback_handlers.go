package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	auth "github.com/reportcoach/reportcoach/internal/auth/middleware"
	"github.com/reportcoach/reportcoach/internal/extract"
	"github.com/reportcoach/reportcoach/internal/feedback"
	"github.com/reportcoach/reportcoach/internal/review"
	"github.com/reportcoach/reportcoach/internal/rubric"
	"github.com/reportcoach/reportcoach/internal/storage"
)

// prompt excerpt length returned to the client, in runes
const promptExcerptRunes = 4000

var validate = validator.New()

// Generator produces feedback for a report against the active rubric.
type Generator interface {
	Generate(ctx context.Context, reportText string, rub rubric.Rubric) feedback.Result
}

// SubmitFeedbackHandler accepts a report as a multipart "message" field
// and/or "file" upload, generates feedback against the active rubric, and
// persists the round as a review. The typed message wins when both are sent.
func SubmitFeedbackHandler(gen Generator, rubrics *rubric.Store, reviews review.Store, blobs storage.BlobStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		if userID == "" {
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}

		msg := strings.TrimSpace(r.FormValue("message"))
		filename, data, err := readFormFile(r, "file")
		if errors.Is(err, extract.ErrTooLarge) {
			http.Error(w, "file too large", http.StatusRequestEntityTooLarge)
			return
		}
		if err != nil {
			http.Error(w, "read upload", http.StatusBadRequest)
			return
		}

		narrative := msg
		if narrative == "" && len(data) > 0 {
			text, xerr := extract.FromUpload(filename, data)
			if xerr != nil {
				log.Warn("upload text extraction failed",
					zap.String("filename", filename), zap.Error(xerr))
			}
			narrative = text
		}

		res := gen.Generate(r.Context(), narrative, rubrics.Load())

		scoresJSON, err := json.Marshal(res.Scores())
		if err != nil {
			http.Error(w, "encode scores", http.StatusInternalServerError)
			return
		}
		id := uuid.NewString()
		rec := &review.Review{
			ID:              id,
			UserID:          userID,
			ReportText:      res.ReportText,
			FeedbackText:    res.Text,
			FeedbackSummary: res.Summary,
			ScoresJSON:      string(scoresJSON),
			GeneratedVia:    string(res.Via),
			Status:          "final",
			SourceName:      filename,
			SubmittedAt:     res.CreatedAt,
			FeedbackAt:      res.CreatedAt,
		}
		if err := reviews.Put(r.Context(), rec); err != nil {
			http.Error(w, "save review", http.StatusInternalServerError)
			return
		}

		// Archive the raw upload; losing it only degrades the source view.
		if blobs != nil && len(data) > 0 {
			if _, err := blobs.Put(sourceKey(id), bytes.NewReader(data)); err != nil {
				log.Warn("archive upload failed", zap.String("review_id", id), zap.Error(err))
			}
		}

		quotes := res.EvidenceQuotes
		if quotes == nil {
			quotes = []string{}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success":          true,
			"feedback":         res.Text,
			"feedback_summary": res.Summary,
			"scores":           res.Scores(),
			"sections":         res.Sections,
			"evidence_quotes":  quotes,
			"generated_via":    res.Via,
			"review_id":        id,
			"prompt_excerpt":   truncRunes(res.ReportText, promptExcerptRunes),
		})
	}
}

// LatestFeedbackHandler returns the caller's most recent feedback text,
// or an empty string when they have none yet.
func LatestFeedbackHandler(reviews review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		rec, err := reviews.LatestByUser(r.Context(), userID)
		if errors.Is(err, review.ErrNotFound) {
			_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "feedback": ""})
			return
		}
		if err != nil {
			http.Error(w, "load feedback", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "feedback": rec.FeedbackText})
	}
}

type rateFeedbackReq struct {
	ReviewID string  `json:"review_id"`
	Rating   *int    `json:"rating" validate:"omitempty,min=1,max=5"`
	Comment  *string `json:"comment"`
}

// RateFeedbackHandler records a 1..5 rating and/or free-form comment on a
// review. Without a review_id (or with one the caller does not own) the
// rating lands on their most recent review.
func RateFeedbackHandler(reviews review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())

		var req rateFeedbackReq
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if err := validate.Struct(req); err != nil {
			http.Error(w, "rating must be between 1 and 5", http.StatusBadRequest)
			return
		}
		if req.Rating == nil && req.Comment == nil {
			http.Error(w, "rating or comment required", http.StatusBadRequest)
			return
		}

		id, err := reviews.SetRating(r.Context(), userID, req.ReviewID, req.Rating, req.Comment)
		if errors.Is(err, review.ErrNotFound) {
			w.WriteHeader(http.StatusNotFound)
			_ = json.NewEncoder(w).Encode(map[string]any{"success": false, "error": "record not found"})
			return
		}
		if err != nil {
			http.Error(w, "save rating", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "review_id": id})
	}
}

func sourceKey(reviewID string) string { return "reviews/" + reviewID + "/upload.bin" }

// readFormFile reads an optional multipart upload, enforcing the size cap.
// A missing file field (or a non-multipart request) returns ("", nil, nil).
func readFormFile(r *http.Request, field string) (string, []byte, error) {
	f, hdr, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return "", nil, nil
	}
	if err != nil {
		return "", nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(io.LimitReader(f, extract.MaxUploadBytes+1))
	if err != nil {
		return "", nil, err
	}
	if len(data) > extract.MaxUploadBytes {
		return "", nil, extract.ErrTooLarge
	}
	return hdr.Filename, data, nil
}

func truncRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
