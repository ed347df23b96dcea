package http_test

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	api "github.com/reportcoach/reportcoach/internal/api/http"
	"github.com/reportcoach/reportcoach/internal/review"
	"github.com/reportcoach/reportcoach/internal/storage"
)

func reviewRouter(reviews *fakeReviews, blobs storage.BlobStore, llmOnline bool) http.Handler {
	r := chi.NewRouter()
	r.Get("/reviews", api.ListReviewsHandler(reviews))
	r.Get("/reviews/{reviewID}", api.ReviewDetailHandler(reviews))
	r.Get("/reviews/{reviewID}/export", api.ExportReviewPDFHandler(reviews, llmOnline))
	if blobs != nil {
		r.Get("/reviews/{reviewID}/source", api.ReviewSourceHandler(reviews, blobs))
	}
	return r
}

func TestListReviewsHandler(t *testing.T) {
	reviews := newFakeReviews()
	at := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	reviews.listOut = []review.Summary{
		{ID: "r2", FeedbackAt: at, PromptExcerpt: "newer...", FeedbackExcerpt: "fb2"},
		{ID: "r1", FeedbackAt: at.Add(-time.Hour), PromptExcerpt: "older", FeedbackExcerpt: "fb1"},
	}
	rr := httptest.NewRecorder()
	reviewRouter(reviews, nil, true).ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/reviews", nil), "u1"))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decodeJSON(t, rr)
	items := resp["items"].([]any)
	if len(items) != 2 {
		t.Fatalf("items = %d", len(items))
	}
	first := items[0].(map[string]any)
	if first["id"] != "r2" || first["prompt_excerpt"] != "newer..." {
		t.Errorf("first item = %v", first)
	}
	if first["feedback_time"] != "2025-06-01T10:00:00Z" {
		t.Errorf("feedback_time = %v", first["feedback_time"])
	}
}

func TestReviewDetailHandler(t *testing.T) {
	reviews := newFakeReviews()
	rating := 4
	reviews.add(&review.Review{
		ID:           "r1",
		UserID:       "u1",
		ReportText:   "the report",
		FeedbackText: "the feedback",
		ScoresJSON:   `{"Alpha":{"score":3,"total":4}}`,
		GeneratedVia: "fallback",
		Rating:       &rating,
		RatingNote:   "helpful",
		FeedbackAt:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	router := reviewRouter(reviews, nil, true)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/reviews/r1", nil), "u1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	resp := decodeJSON(t, rr)
	if resp["prompt_text"] != "the report" || resp["feedback_text"] != "the feedback" {
		t.Errorf("texts = %v / %v", resp["prompt_text"], resp["feedback_text"])
	}
	if resp["generated_via"] != "fallback" || resp["rating"] != 4.0 || resp["rating_note"] != "helpful" {
		t.Errorf("metadata = %v", resp)
	}
	scores := resp["scores"].(map[string]any)
	if scores["Alpha"].(map[string]any)["score"] != 3.0 {
		t.Errorf("scores = %v", scores)
	}

	// another user's id looks like a missing record
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/reviews/r1", nil), "u2"))
	if rr.Code != http.StatusNotFound {
		t.Errorf("foreign review: status = %d, want 404", rr.Code)
	}
}

func TestExportReviewPDF(t *testing.T) {
	reviews := newFakeReviews()
	reviews.add(&review.Review{
		ID:           "r1",
		UserID:       "u1",
		FeedbackText: "**Final Report Feedback**\nGood work — tighten the economics.",
		FeedbackAt:   time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	})
	router := reviewRouter(reviews, nil, true)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/reviews/r1/export", nil), "u1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content-type = %q", ct)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, `feedback_r1.pdf`) {
		t.Errorf("content-disposition = %q", cd)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF-") {
		t.Errorf("body does not look like a PDF: %q", rr.Body.String()[:16])
	}

	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/reviews/missing/export", nil), "u1"))
	if rr.Code != http.StatusNotFound {
		t.Errorf("missing review: status = %d, want 404", rr.Code)
	}
}

func TestExportReviewPDFWithNoFeedbackYet(t *testing.T) {
	reviews := newFakeReviews()
	reviews.add(&review.Review{ID: "r1", UserID: "u1", FeedbackText: "   "})
	router := reviewRouter(reviews, nil, false)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/reviews/r1/export", nil), "u1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	if !strings.HasPrefix(rr.Body.String(), "%PDF-") {
		t.Error("empty feedback should still render the hint PDF")
	}
}

func TestReviewSourceHandler(t *testing.T) {
	reviews := newFakeReviews()
	reviews.add(&review.Review{ID: "r1", UserID: "u1", SourceName: "final report.docx"})
	blobs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatalf("blob store: %v", err)
	}
	if _, err := blobs.Put("reviews/r1/upload.bin", strings.NewReader("raw upload bytes")); err != nil {
		t.Fatalf("seed blob: %v", err)
	}
	router := reviewRouter(reviews, blobs, true)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/reviews/r1/source", nil), "u1"))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d", rr.Code)
	}
	body, _ := io.ReadAll(rr.Body)
	if string(body) != "raw upload bytes" {
		t.Errorf("body = %q", body)
	}
	if cd := rr.Header().Get("Content-Disposition"); !strings.Contains(cd, "final report.docx") {
		t.Errorf("content-disposition = %q", cd)
	}

	// review without an archived upload
	reviews.add(&review.Review{ID: "r2", UserID: "u1"})
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, asUser(httptest.NewRequest(http.MethodGet, "/reviews/r2/source", nil), "u1"))
	if rr.Code != http.StatusNotFound {
		t.Errorf("no blob: status = %d, want 404", rr.Code)
	}
}
