package http_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	api "github.com/reportcoach/reportcoach/internal/api/http"
)

func TestChangePasswordHandler(t *testing.T) {
	conn := openDB(t)
	id := uuid.NewString()
	hash, _ := bcrypt.GenerateFromPassword([]byte("oldpass123"), bcrypt.MinCost)
	if _, err := conn.Exec(`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,'student',$4)`,
		id, "erin", string(hash), time.Now().Unix()); err != nil {
		t.Fatalf("seed: %v", err)
	}
	h := api.ChangePasswordHandler(conn)

	post := func(userID, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/users/change-password", strings.NewReader(body))
		if userID != "" {
			req = asUser(req, userID)
		}
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)
		return rr
	}

	rr := post(id, `{"old_password":"oldpass123","new_password":"newpass456"}`)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("status = %d, body %q", rr.Code, rr.Body.String())
	}
	var stored string
	if err := conn.QueryRow(`SELECT password_hash FROM users WHERE id=$1`, id).Scan(&stored); err != nil {
		t.Fatalf("reread: %v", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(stored), []byte("newpass456")) != nil {
		t.Error("stored hash does not match the new password")
	}

	if rr := post(id, `{"old_password":"wrong","new_password":"another456"}`); rr.Code != http.StatusForbidden {
		t.Errorf("wrong old password: status = %d, want 403", rr.Code)
	}
	if rr := post(id, `{"old_password":"newpass456","new_password":"short"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("short new password: status = %d, want 400", rr.Code)
	}
	if rr := post("", `{"old_password":"x","new_password":"whatever12"}`); rr.Code != http.StatusUnauthorized {
		t.Errorf("no subject: status = %d, want 401", rr.Code)
	}
}

func TestBulkUpsertAndListUsers(t *testing.T) {
	conn := openDB(t)
	upsert := api.BulkUpsertUsersHandler(conn)
	list := api.ListUsersHandler(conn)

	post := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/users/bulk", strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
		rr := httptest.NewRecorder()
		upsert.ServeHTTP(rr, req)
		return rr
	}

	rr := post(`[
		{"id":"s1","username":"stu1","role":"student","password":"pass1234"},
		{"id":"a1","username":"boss","role":"admin","password":"pass1234"}
	]`)
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, body %q", rr.Code, rr.Body.String())
	}
	resp := decodeJSON(t, rr)
	if resp["inserted"] != 2.0 || resp["updated"] != 0.0 {
		t.Errorf("counts = %v", resp)
	}

	// same id again updates rather than inserts
	rr = post(`[{"id":"s1","username":"stu1-renamed","role":"student"}]`)
	resp = decodeJSON(t, rr)
	if resp["inserted"] != 0.0 || resp["updated"] != 1.0 {
		t.Errorf("rerun counts = %v", resp)
	}

	// only student and admin exist here
	if rr := post(`[{"id":"t1","username":"t1","role":"teacher","password":"pass1234"}]`); rr.Code != http.StatusInternalServerError {
		t.Errorf("unknown role: status = %d", rr.Code)
	}

	// new user without a password is rejected
	if rr := post(`[{"id":"s2","username":"stu2","role":"student"}]`); rr.Code != http.StatusInternalServerError {
		t.Errorf("missing password: status = %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/users?role=admin", nil)
	lr := httptest.NewRecorder()
	list.ServeHTTP(lr, req)
	var rows []map[string]string
	if err := json.Unmarshal(lr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(rows) != 1 || rows[0]["username"] != "boss" {
		t.Errorf("admin rows = %v", rows)
	}

	req = httptest.NewRequest(http.MethodGet, "/users", nil)
	lr = httptest.NewRecorder()
	list.ServeHTTP(lr, req)
	rows = nil
	if err := json.Unmarshal(lr.Body.Bytes(), &rows); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(rows) != 2 {
		t.Errorf("all rows = %v", rows)
	}
	for _, row := range rows {
		if row["username"] == "stu1-renamed" {
			return
		}
	}
	t.Error("renamed user missing from list")
}

func TestAdminUpdateUserRole(t *testing.T) {
	conn := openDB(t)
	seed := func(id, username, role string) {
		hash, _ := bcrypt.GenerateFromPassword([]byte("pass1234"), bcrypt.MinCost)
		if _, err := conn.Exec(`INSERT INTO users (id, username, password_hash, role, created_at) VALUES ($1,$2,$3,$4,$5)`,
			id, username, string(hash), role, time.Now().Unix()); err != nil {
			t.Fatalf("seed %s: %v", username, err)
		}
	}
	seed("a1", "root", "admin")
	seed("s1", "dana", "student")

	r := chi.NewRouter()
	r.Patch("/users/{userID}/role", api.AdminUpdateUserRoleHandler(conn))

	patch := func(target, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/users/"+target+"/role", strings.NewReader(body))
		rr := httptest.NewRecorder()
		r.ServeHTTP(rr, req)
		return rr
	}

	// promote by username
	if rr := patch("dana", `{"role":"admin"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("promote: status = %d, body %q", rr.Code, rr.Body.String())
	}
	var role string
	if err := conn.QueryRow(`SELECT role FROM users WHERE id='s1'`).Scan(&role); err != nil {
		t.Fatalf("reread: %v", err)
	}
	if role != "admin" {
		t.Errorf("role = %q, want admin", role)
	}

	// two admins exist, so demoting one is fine
	if rr := patch("a1", `{"role":"student"}`); rr.Code != http.StatusNoContent {
		t.Fatalf("demote: status = %d, body %q", rr.Code, rr.Body.String())
	}

	// dana is now the only admin
	if rr := patch("s1", `{"role":"student"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("last admin: status = %d, want 400", rr.Code)
	}
	if rr := patch("dana", `{"role":"teacher"}`); rr.Code != http.StatusBadRequest {
		t.Errorf("unknown role: status = %d, want 400", rr.Code)
	}
	if rr := patch("ghost", `{"role":"admin"}`); rr.Code != http.StatusNotFound {
		t.Errorf("missing user: status = %d, want 404", rr.Code)
	}
}
