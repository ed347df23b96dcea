package http_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.uber.org/zap"

	auth "github.com/reportcoach/reportcoach/internal/auth/middleware"
	"github.com/reportcoach/reportcoach/internal/db"
	"github.com/reportcoach/reportcoach/internal/feedback"
	"github.com/reportcoach/reportcoach/internal/review"
	"github.com/reportcoach/reportcoach/internal/rubric"
)

// fakeReviews is an in-memory review.Store for handler tests.
type fakeReviews struct {
	puts    []*review.Review
	byID    map[string]*review.Review
	latest  *review.Review
	rated   []ratedCall
	listOut []review.Summary
	err     error
}

type ratedCall struct {
	userID, reviewID string
	rating           *int
	note             *string
}

func newFakeReviews() *fakeReviews {
	return &fakeReviews{byID: map[string]*review.Review{}}
}

func (f *fakeReviews) add(rec *review.Review) {
	f.byID[rec.UserID+"/"+rec.ID] = rec
	f.latest = rec
}

func (f *fakeReviews) Put(ctx context.Context, rec *review.Review) error {
	if f.err != nil {
		return f.err
	}
	f.puts = append(f.puts, rec)
	f.add(rec)
	return nil
}

func (f *fakeReviews) Get(ctx context.Context, userID, id string) (*review.Review, error) {
	if rec, ok := f.byID[userID+"/"+id]; ok {
		return rec, nil
	}
	return nil, review.ErrNotFound
}

func (f *fakeReviews) LatestByUser(ctx context.Context, userID string) (*review.Review, error) {
	if f.latest != nil && f.latest.UserID == userID {
		return f.latest, nil
	}
	return nil, review.ErrNotFound
}

func (f *fakeReviews) ListByUser(ctx context.Context, userID string, limit int) ([]review.Summary, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.listOut, nil
}

func (f *fakeReviews) SetRating(ctx context.Context, userID, reviewID string, rating *int, note *string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.rated = append(f.rated, ratedCall{userID, reviewID, rating, note})
	if reviewID == "" && f.latest != nil {
		reviewID = f.latest.ID
	}
	if reviewID == "" {
		return "", review.ErrNotFound
	}
	return reviewID, nil
}

// fakeGenerator records its inputs and returns a canned result the way the
// engine would, with the trimmed report text carried through.
type fakeGenerator struct {
	lastReport string
	lastRubric rubric.Rubric
	out        feedback.Result
}

func (g *fakeGenerator) Generate(ctx context.Context, reportText string, rub rubric.Rubric) feedback.Result {
	g.lastReport = strings.TrimSpace(reportText)
	g.lastRubric = rub
	out := g.out
	out.ReportText = g.lastReport
	return out
}

func cannedResult() feedback.Result {
	return feedback.Result{
		Sections: []feedback.SectionResult{
			{Name: "Alpha", Score: 3, Total: 4, Commentary: "solid work"},
			{Name: "Beta", Score: 1, Total: 2, Commentary: "thin coverage"},
		},
		Text:           "**Final Report Feedback**\nbody",
		Summary:        "summary line",
		EvidenceQuotes: []string{"quoted words"},
		Via:            feedback.ViaLLM,
		CreatedAt:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
	}
}

func newRubricStore(t *testing.T) *rubric.Store {
	t.Helper()
	s := rubric.NewStore(filepath.Join(t.TempDir(), "rubric.json"), nil, zap.NewNop())
	if err := s.Bootstrap(context.Background()); err != nil {
		t.Fatalf("bootstrap rubric: %v", err)
	}
	return s
}

func openDB(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := db.Open(context.Background(), db.DriverSQLite, "file:"+t.Name()+"?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func asUser(req *http.Request, userID string) *http.Request {
	return req.WithContext(auth.WithSubject(req.Context(), userID))
}

// multipartBody builds a multipart form with optional text fields and one
// optional file part. Returns the body and its Content-Type.
func multipartBody(t *testing.T, fields map[string]string, fileName string, fileContent []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if fileName != "" {
		fw, err := mw.CreateFormFile("file", fileName)
		if err != nil {
			t.Fatalf("create file part: %v", err)
		}
		if _, err := fw.Write(fileContent); err != nil {
			t.Fatalf("write file part: %v", err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close multipart: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func decodeJSON(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rr.Body.Bytes(), &m); err != nil {
		t.Fatalf("decode response: %v (body %q)", err, rr.Body.String())
	}
	return m
}
