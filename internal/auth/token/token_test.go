package token

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/platedesk/backoffice/pkg/postgres"
)

func newMockValidator(t *testing.T) (*Validator, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("creating sqlmock: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewValidator(&postgres.Client{DB: db}), mock
}

func sessionRows() *sqlmock.Rows {
	return sqlmock.NewRows([]string{"id", "user_id", "role", "created_at", "expires_at"})
}

func TestValidate(t *testing.T) {
	v, mock := newMockValidator(t)
	expires := time.Now().Add(time.Hour)

	mock.ExpectQuery("SELECT id, user_id, role, created_at, expires_at").
		WithArgs(HashToken("secret-token")).
		WillReturnRows(sessionRows().AddRow("sess-1", "user-42", "manager", time.Now().Add(-time.Hour), expires))

	session, err := v.Validate(context.Background(), "secret-token")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if session.ID != "sess-1" || session.UserID != "user-42" || session.Role != "manager" {
		t.Errorf("unexpected session: %+v", session)
	}
	if session.ExpiresAt == nil || !session.ExpiresAt.Equal(expires) {
		t.Errorf("expected expiry %v, got %v", expires, session.ExpiresAt)
	}
}

func TestValidateUnknownToken(t *testing.T) {
	v, mock := newMockValidator(t)

	mock.ExpectQuery("SELECT id, user_id, role, created_at, expires_at").
		WillReturnRows(sessionRows())

	_, err := v.Validate(context.Background(), "no-such-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestValidateExpiredToken(t *testing.T) {
	v, mock := newMockValidator(t)

	mock.ExpectQuery("SELECT id, user_id, role, created_at, expires_at").
		WillReturnRows(sessionRows().AddRow("sess-2", "user-7", "staff", time.Now().Add(-48*time.Hour), time.Now().Add(-time.Minute)))

	_, err := v.Validate(context.Background(), "stale-token")
	if !errors.Is(err, ErrExpiredToken) {
		t.Fatalf("expected ErrExpiredToken, got %v", err)
	}
}

func TestValidateNoExpiry(t *testing.T) {
	v, mock := newMockValidator(t)

	mock.ExpectQuery("SELECT id, user_id, role, created_at, expires_at").
		WillReturnRows(sessionRows().AddRow("sess-3", "user-9", "admin", time.Now(), nil))

	session, err := v.Validate(context.Background(), "long-lived-token")
	if err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if session.ExpiresAt != nil {
		t.Errorf("expected nil expiry, got %v", session.ExpiresAt)
	}
}

func TestRevoke(t *testing.T) {
	v, mock := newMockValidator(t)

	mock.ExpectExec("UPDATE sessions SET revoked = true").
		WithArgs(HashToken("secret-token")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := v.Revoke(context.Background(), "secret-token"); err != nil {
		t.Fatalf("Revoke failed: %v", err)
	}
}

func TestRevokeUnknownToken(t *testing.T) {
	v, mock := newMockValidator(t)

	mock.ExpectExec("UPDATE sessions SET revoked = true").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := v.Revoke(context.Background(), "no-such-token")
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestHashTokenDeterministic(t *testing.T) {
	if HashToken("abc") != HashToken("abc") {
		t.Error("same token must produce the same hash")
	}
	if HashToken("abc") == HashToken("abd") {
		t.Error("different tokens must produce different hashes")
	}
	if len(HashToken("abc")) != 64 {
		t.Errorf("expected 64-char hex digest, got %d chars", len(HashToken("abc")))
	}
}
