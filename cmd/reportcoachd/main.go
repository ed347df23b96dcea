package main

import (
	"context"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	api "github.com/reportcoach/reportcoach/internal/api/http"
	auth "github.com/reportcoach/reportcoach/internal/auth/middleware"
	"github.com/reportcoach/reportcoach/internal/config"
	"github.com/reportcoach/reportcoach/internal/db"
	"github.com/reportcoach/reportcoach/internal/feedback"
	"github.com/reportcoach/reportcoach/internal/llm"
	"github.com/reportcoach/reportcoach/internal/logging"
	"github.com/reportcoach/reportcoach/internal/rbac"
	"github.com/reportcoach/reportcoach/internal/review"
	"github.com/reportcoach/reportcoach/internal/rubric"
	"github.com/reportcoach/reportcoach/internal/storage"
)

func main() {
	cfg := config.FromEnv()
	log := logging.New(cfg.LogFile, cfg.Env == "prod")
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	// --- DB ---
	dbh, err := db.Open(ctx, db.Driver(cfg.DBDriver), cfg.DBDSN)
	if err != nil {
		log.Fatal("db open failed", zap.Error(err))
	}
	if err := auth.EnsureAdmin(ctx, dbh, cfg.AdminUsername, cfg.AdminPassword, log); err != nil {
		log.Fatal("admin seed failed", zap.Error(err))
	}

	// --- Rubric store ---
	rubrics := rubric.NewStore(filepath.Join(cfg.DataDir, "rubric.json"), rubric.NewVersionRepo(dbh), log)
	if err := rubrics.Bootstrap(ctx); err != nil {
		log.Fatal("rubric bootstrap failed", zap.Error(err))
	}

	// --- Feedback engine (LLM scorer with heuristic fallback) ---
	scorer := llm.New(llm.Config{
		BaseURL: cfg.OpenAIBaseURL,
		APIKey:  cfg.OpenAIAPIKey,
		Model:   cfg.OpenAIModel,
		Timeout: cfg.LLMTimeout,
	}, log)
	engine := feedback.NewEngine(scorer, log, feedback.WithStrictEvidence(cfg.EvidenceStrict))

	reviews := review.NewSQLStore(dbh)

	blobs, err := storage.NewFSStore(filepath.Join(cfg.DataDir, "uploads"))
	if err != nil {
		log.Fatal("blob store failed", zap.Error(err))
	}

	authSvc := auth.NewAuthService(cfg.AuthSecret, cfg.TokenTTL)

	// --- Router ---
	r := chi.NewRouter()
	r.Use(middleware.RealIP, logging.RequestLogger(log), middleware.Recoverer)
	r.Use(middleware.Timeout(90 * time.Second))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Post("/auth/login", auth.LoginHandler(authSvc, dbh))
	r.Post("/auth/register", auth.RegisterHandler(dbh))
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })
	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200) })

	// Protected API (JWT -> role refresh -> RBAC)
	r.Group(func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))
		pr.Use(auth.AttachRoleFromDB(dbh, cfg.Env == "dev"))

		pr.With(rbac.Require("rubric:view")).
			Get("/rubric", api.GetRubricHandler(rubrics))
		pr.With(rbac.Require("rubric:edit")).
			Put("/rubric", api.SaveRubricHandler(rubrics))
		pr.With(rbac.Require("rubric:edit")).
			Get("/rubric/versions", api.RubricVersionsHandler(rubrics))
		pr.With(rbac.Require("rubric:edit")).
			Post("/rubric/rollback", api.RubricRollbackHandler(rubrics))
		pr.With(rbac.Require("rubric:edit")).
			Post("/rubric/extract", api.ExtractRubricHandler(scorer, log))

		pr.With(rbac.Require("feedback:create")).
			Post("/feedback", api.SubmitFeedbackHandler(engine, rubrics, reviews, blobs, log))
		pr.With(rbac.Require("review:view-own")).
			Get("/feedback/latest", api.LatestFeedbackHandler(reviews))
		pr.With(rbac.Require("feedback:rate")).
			Post("/feedback/rating", api.RateFeedbackHandler(reviews))

		pr.With(rbac.Require("review:view-own")).
			Get("/reviews", api.ListReviewsHandler(reviews))
		pr.With(rbac.Require("review:view-own")).
			Get("/reviews/{reviewID}", api.ReviewDetailHandler(reviews))
		pr.With(rbac.Require("review:export-own")).
			Get("/reviews/{reviewID}/export", api.ExportReviewPDFHandler(reviews, scorer.Configured()))
		pr.With(rbac.Require("review:view-own")).
			Get("/reviews/{reviewID}/source", api.ReviewSourceHandler(reviews, blobs))

		// Admin roster management
		pr.With(rbac.Require("users:bulk_upsert")).
			Post("/users/bulk", api.BulkUpsertUsersHandler(dbh))
		pr.With(rbac.Require("users:list")).
			Get("/users", api.ListUsersHandler(dbh))
		pr.With(rbac.Require("users:update")).
			Patch("/users/{userID}/role", api.AdminUpdateUserRoleHandler(dbh))
		pr.With(rbac.Require("admin:compliance")).
			Post("/admin/pii/export", api.ExportUserDataHandler(dbh))
		pr.With(rbac.Require("admin:compliance")).
			Post("/admin/pii/delete", api.DeleteUserDataHandler(dbh, blobs))
		pr.With(rbac.Require("user:change_password")).
			Post("/users/change-password", api.ChangePasswordHandler(dbh))
	})

	log.Info("listening",
		zap.String("addr", cfg.HTTPAddr),
		zap.String("db", cfg.DBDriver),
		zap.Bool("llm_configured", scorer.Configured()))
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatal("server exited", zap.Error(err))
	}
}
