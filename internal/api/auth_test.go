package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/platedesk/backoffice/internal/auth/ratelimit"
	"github.com/platedesk/backoffice/internal/auth/token"
	"github.com/platedesk/backoffice/pkg/postgres"
)

func newMockValidator(t *testing.T) (*token.Validator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("creating sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return token.NewValidator(&postgres.Client{DB: db}), mock
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "role", "created_at", "expires_at"})
}

func TestAuthMissingToken(t *testing.T) {
	validator, _ := newMockValidator(t)
	handler := Auth(validator)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/realtime", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rec.Code)
	}
}

func TestAuthValidBearerToken(t *testing.T) {
	validator, mock := newMockValidator(t)
	mock.ExpectQuery("SELECT id, user_id, role, created_at, expires_at").
		WithArgs(token.HashToken("good-token")).
		WillReturnRows(sessionRows().AddRow("sess-1", "user-1", "manager", time.Now(), nil))

	var captured *token.Session
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		captured = SessionFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
	handler := Auth(validator)(inner)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/realtime", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 with valid token, got %d", rec.Code)
	}
	if captured == nil || captured.ID != "sess-1" {
		t.Errorf("expected session in context, got %+v", captured)
	}
}

func TestAuthInvalidToken(t *testing.T) {
	validator, mock := newMockValidator(t)
	mock.ExpectQuery("SELECT id, user_id, role, created_at, expires_at").
		WillReturnRows(sessionRows())

	handler := Auth(validator)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/realtime", nil)
	req.Header.Set("X-Session-Token", "bad-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for unknown token, got %d", rec.Code)
	}
}

func TestAuthHealthExempt(t *testing.T) {
	validator, _ := newMockValidator(t)
	handler := Auth(validator)(okHandler())

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("health probes must bypass auth, got %d", rec.Code)
	}
}

func TestRateLimitPerSession(t *testing.T) {
	validator, mock := newMockValidator(t)
	for i := 0; i < 3; i++ {
		mock.ExpectQuery("SELECT id, user_id, role, created_at, expires_at").
			WillReturnRows(sessionRows().AddRow("sess-1", "user-1", "manager", time.Now(), nil))
	}

	limiter := ratelimit.New(time.Minute)
	handler := Auth(validator)(RateLimit(limiter, 2)(okHandler()))

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/realtime", nil)
		req.Header.Set("Authorization", "Bearer good-token")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i+1, rec.Code)
		}
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/analytics/realtime", nil)
	req.Header.Set("Authorization", "Bearer good-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 over the limit, got %d", rec.Code)
	}
}

func TestRateLimitSkipsUnauthenticated(t *testing.T) {
	limiter := ratelimit.New(time.Minute)
	handler := RateLimit(limiter, 1)(okHandler())

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/live", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d: sessionless request must pass through, got %d", i+1, rec.Code)
		}
	}
}
