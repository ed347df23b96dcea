package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"
	"github.com/go-pdf/fpdf"

	auth "github.com/reportcoach/reportcoach/internal/auth/middleware"
	"github.com/reportcoach/reportcoach/internal/review"
	"github.com/reportcoach/reportcoach/internal/storage"
)

// ListReviewsHandler returns the caller's review history, newest first.
func ListReviewsHandler(reviews review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		items, err := reviews.ListByUser(r.Context(), userID, 30)
		if err != nil {
			http.Error(w, "list reviews", http.StatusInternalServerError)
			return
		}
		out := make([]map[string]any, 0, len(items))
		for _, it := range items {
			out = append(out, map[string]any{
				"id":               it.ID,
				"feedback_time":    it.FeedbackAt.Format(time.RFC3339),
				"prompt_excerpt":   it.PromptExcerpt,
				"feedback_excerpt": it.FeedbackExcerpt,
			})
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"success": true, "items": out})
	}
}

// ReviewDetailHandler returns one review in full. Owner-only; anything
// else is indistinguishable from a missing id.
func ReviewDetailHandler(reviews review.Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		rec, err := reviews.Get(r.Context(), userID, chi.URLParam(r, "reviewID"))
		if errors.Is(err, review.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "load review", http.StatusInternalServerError)
			return
		}

		scores := json.RawMessage(rec.ScoresJSON)
		if len(scores) == 0 {
			scores = json.RawMessage("{}")
		}
		resp := map[string]any{
			"success":       true,
			"id":            rec.ID,
			"feedback_time": rec.FeedbackAt.Format(time.RFC3339),
			"prompt_text":   rec.ReportText,
			"feedback_text": rec.FeedbackText,
			"scores":        scores,
			"generated_via": rec.GeneratedVia,
		}
		if rec.Rating != nil {
			resp["rating"] = *rec.Rating
		}
		if rec.RatingNote != "" {
			resp["rating_note"] = rec.RatingNote
		}
		if rec.SourceName != "" {
			resp["source_name"] = rec.SourceName
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// ExportReviewPDFHandler renders a review's feedback as a downloadable
// PDF. llmOnline only changes the hint shown when no feedback exists yet.
func ExportReviewPDFHandler(reviews review.Store, llmOnline bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		rec, err := reviews.Get(r.Context(), userID, chi.URLParam(r, "reviewID"))
		if errors.Is(err, review.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "load review", http.StatusInternalServerError)
			return
		}

		text := strings.TrimSpace(rec.FeedbackText)
		if text == "" {
			text = "No feedback available yet."
			if !llmOnline {
				text += " LLM offline (no OPENAI_API_KEY)."
			}
		}

		pdf := fpdf.New("P", "mm", "A4", "")
		tr := pdf.UnicodeTranslatorFromDescriptor("")
		pdf.SetMargins(12, 12, 12)
		pdf.SetAutoPageBreak(true, 12)
		pdf.AddPage()
		pdf.SetFont("Helvetica", "", 12)

		pdf.SetTextColor(20, 20, 20)
		pdf.MultiCell(0, 8, "Technical Report Feedback", "", "L", false)
		pdf.SetTextColor(80, 80, 80)
		pdf.MultiCell(0, 6, "Time: "+rec.FeedbackAt.Format(time.RFC3339), "", "L", false)
		pdf.Ln(2)
		pdf.SetTextColor(20, 20, 20)
		for _, para := range strings.Split(text, "\n") {
			pdf.MultiCell(0, 6, tr(latin1Safe(wrapForPDF(para))), "", "L", false)
		}

		var buf bytes.Buffer
		if err := pdf.Output(&buf); err != nil {
			http.Error(w, "render pdf", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", `attachment; filename="feedback_`+rec.ID+`.pdf"`)
		_, _ = w.Write(buf.Bytes())
	}
}

// ReviewSourceHandler streams back the archived upload for a review.
func ReviewSourceHandler(reviews review.Store, blobs storage.BlobStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := auth.SubjectFromContext(r.Context())
		rec, err := reviews.Get(r.Context(), userID, chi.URLParam(r, "reviewID"))
		if errors.Is(err, review.ErrNotFound) {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		if err != nil {
			http.Error(w, "load review", http.StatusInternalServerError)
			return
		}

		rc, err := blobs.Get(sourceKey(rec.ID))
		if err != nil {
			http.Error(w, "no source archived", http.StatusNotFound)
			return
		}
		defer rc.Close()

		name := rec.SourceName
		if name == "" {
			name = "report.bin"
		}
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Disposition", `attachment; filename="`+safeFilename(name)+`"`)
		_, _ = io.Copy(w, rc)
	}
}

var latin1Repl = strings.NewReplacer(
	"–", "-", "—", "-", // en/em dash
	"‘", "'", "’", "'", // single quotes
	"“", `"`, "”", `"`, // double quotes
	"…", "...", // ellipsis
	" ", " ", // nbsp
)

// latin1Safe maps common punctuation onto latin-1 and drops everything
// else the core PDF fonts cannot encode.
func latin1Safe(s string) string {
	s = latin1Repl.Replace(s)
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r <= 0xFF {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// wrapForPDF splits tokens longer than 50 chars with spaces so MultiCell
// has somewhere to break them.
func wrapForPDF(s string) string {
	const maxToken = 50
	lines := strings.Split(s, "\n")
	for li, line := range lines {
		parts := strings.Split(line, " ")
		for pi, p := range parts {
			if utf8.RuneCountInString(p) <= maxToken {
				continue
			}
			runes := []rune(p)
			chunks := make([]string, 0, len(runes)/maxToken+1)
			for len(runes) > maxToken {
				chunks = append(chunks, string(runes[:maxToken]))
				runes = runes[maxToken:]
			}
			chunks = append(chunks, string(runes))
			parts[pi] = strings.Join(chunks, " ")
		}
		lines[li] = strings.Join(parts, " ")
	}
	return strings.Join(lines, "\n")
}

func safeFilename(name string) string {
	return strings.Map(func(r rune) rune {
		if r < 0x20 || r == '"' || r == '\\' || r == '/' {
			return '_'
		}
		return r
	}, name)
}
