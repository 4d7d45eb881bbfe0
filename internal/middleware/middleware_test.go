package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
	"packshop/internal/metrics"
	"packshop/internal/models"
	"packshop/internal/services"
)

type stubAuth struct {
	users map[string]*models.User
	errs  map[string]error
}

func (s *stubAuth) Authenticate(ctx context.Context, token string) (*models.User, error) {
	if err, ok := s.errs[token]; ok {
		return nil, err
	}
	if u, ok := s.users[token]; ok {
		return u, nil
	}
	return nil, services.ErrSessionTokenInvalid
}

func newStubAuth() *stubAuth {
	return &stubAuth{
		users: map[string]*models.User{
			"user-token":  {ID: "u1", Role: models.RoleUser},
			"admin-token": {ID: "u2", Role: models.RoleAdmin},
		},
		errs: map[string]error{
			"expired": services.ErrSessionTokenExpired,
			"deleted": services.ErrUnauthorized,
			"broken":  errors.New("db down"),
		},
	}
}

var okHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromContext(r.Context())
	if u != nil {
		w.Header().Set("X-User", u.ID)
	}
	w.WriteHeader(http.StatusNoContent)
})

func TestJWTAuth(t *testing.T) {
	h := JWTAuth(newStubAuth())(okHandler)

	cases := []struct {
		name   string
		header string
		status int
		code   string
	}{
		{name: "missing header", status: http.StatusUnauthorized, code: "missing_token"},
		{name: "wrong scheme", header: "Basic abc", status: http.StatusUnauthorized, code: "missing_token"},
		{name: "invalid", header: "Bearer nope", status: http.StatusForbidden, code: "invalid_token"},
		{name: "expired", header: "Bearer expired", status: http.StatusForbidden, code: "token_expired"},
		{name: "deleted user", header: "Bearer deleted", status: http.StatusUnauthorized, code: "user_not_found"},
		{name: "store failure", header: "Bearer broken", status: http.StatusInternalServerError, code: "internal_error"},
		{name: "valid", header: "bearer user-token", status: http.StatusNoContent},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, req)

			if w.Code != tc.status {
				t.Fatalf("expected %d got %d (%s)", tc.status, w.Code, w.Body.String())
			}
			if tc.code == "" {
				if w.Header().Get("X-User") != "u1" {
					t.Fatalf("expected user in context")
				}
				return
			}
			var resp map[string]any
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("invalid json: %v", err)
			}
			if resp["error"] != tc.code || resp["success"] != false {
				t.Fatalf("unexpected body %v", resp)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	h := JWTAuth(newStubAuth())(RequireAdmin(okHandler))

	for token, want := range map[string]int{"user-token": http.StatusForbidden, "admin-token": http.StatusNoContent} {
		req := httptest.NewRequest(http.MethodPost, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != want {
			t.Fatalf("%s: expected %d got %d", token, want, w.Code)
		}
	}

	w := httptest.NewRecorder()
	RequireAdmin(okHandler).ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/", nil))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without user, got %d", w.Code)
	}
}

func TestRequestLoggerAndRecoverer(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	log := zap.New(core)
	collector := metrics.NewCollector(prometheus.NewRegistry())

	r := chi.NewRouter()
	r.Use(RequestLogger(log, collector))
	r.Use(Recoverer(log))
	r.Get("/boom/{id}", func(w http.ResponseWriter, r *http.Request) { panic("kaboom") })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom/42", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", w.Code)
	}
	if logs.FilterMessage("Panic while serving request").Len() != 1 {
		t.Fatalf("expected panic to be logged")
	}
	entries := logs.FilterMessage("HTTP request").All()
	if len(entries) != 1 || entries[0].ContextMap()["status"] != int64(500) {
		t.Fatalf("unexpected request log: %+v", entries)
	}
}
