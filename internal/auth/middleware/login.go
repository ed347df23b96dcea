package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var validate = validator.New()

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// POST /auth/login  { "username": "...", "password": "..." }
func LoginHandler(a *AuthService, db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req loginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if err := validate.Struct(req); err != nil {
			http.Error(w, "username and password are required", http.StatusBadRequest)
			return
		}
		var (
			id   string
			hash string
			role string
		)
		err := db.QueryRowContext(r.Context(),
			`SELECT id, password_hash, role FROM users WHERE username=$1`, req.Username).
			Scan(&id, &hash, &role)
		if errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		if err != nil {
			http.Error(w, "lookup user", http.StatusInternalServerError)
			return
		}
		if bcrypt.CompareHashAndPassword([]byte(hash), []byte(req.Password)) != nil {
			http.Error(w, "invalid credentials", http.StatusUnauthorized)
			return
		}
		tok, err := a.IssueJWT(id, role)
		if err != nil {
			http.Error(w, "issue token", http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]string{
			"access_token": tok,
			"user_id":      id,
			"role":         role,
		})
	}
}

type registerRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8,max=128"`
}

// POST /auth/register creates a student account.
func RegisterHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req registerRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		req.Username = strings.TrimSpace(req.Username)
		if err := validate.Struct(req); err != nil {
			http.Error(w, "username (3-64 chars) and password (8-128 chars) are required", http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		if err := db.QueryRowContext(ctx, `SELECT 1 FROM users WHERE username=$1`, req.Username).Scan(new(int)); err == nil {
			http.Error(w, "username already exists", http.StatusConflict)
			return
		} else if !errors.Is(err, sql.ErrNoRows) {
			http.Error(w, "lookup user", http.StatusInternalServerError)
			return
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), 12)
		if err != nil {
			http.Error(w, "hash password", http.StatusInternalServerError)
			return
		}
		id := uuid.NewString()
		if _, err := db.ExecContext(ctx,
			`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,'student',$4)`,
			id, req.Username, string(hash), time.Now().Unix()); err != nil {
			http.Error(w, "create user", http.StatusInternalServerError)
			return
		}
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(map[string]string{
			"user_id":  id,
			"username": req.Username,
			"role":     "student",
		})
	}
}

// EnsureAdmin seeds the admin account from configuration. Existing
// accounts are left untouched; empty credentials are a no-op.
func EnsureAdmin(ctx context.Context, db *sql.DB, username, password string, log *zap.Logger) error {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil
	}
	var id string
	err := db.QueryRowContext(ctx, `SELECT id FROM users WHERE username=$1`, username).Scan(&id)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		hash, herr := bcrypt.GenerateFromPassword([]byte(password), 12)
		if herr != nil {
			return herr
		}
		if _, err := db.ExecContext(ctx,
			`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,'admin',$4)`,
			uuid.NewString(), username, string(hash), time.Now().Unix()); err != nil {
			return err
		}
		log.Info("admin account seeded", zap.String("username", username))
		return nil
	case err != nil:
		return err
	default:
		return nil
	}
}
