// Package token validates bearer session tokens against PostgreSQL. Tokens
// are minted by the external identity provider, which stores their SHA-256
// hash in the sessions table; this package only checks presented tokens
// against those hashes, along with expiry and revocation.
package token

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/platedesk/backoffice/pkg/postgres"
)

var (
	ErrInvalidToken = errors.New("invalid session token")
	ErrExpiredToken = errors.New("session token expired")
)

// Session holds metadata about a validated session token.
type Session struct {
	ID        string     `json:"id"`
	UserID    string     `json:"user_id"`
	Role      string     `json:"role"`
	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
}

// Validator validates session tokens against the sessions table.
type Validator struct {
	db     *postgres.Client
	logger *slog.Logger
}

// NewValidator creates a session-token validator backed by PostgreSQL.
func NewValidator(db *postgres.Client) *Validator {
	return &Validator{
		db:     db,
		logger: slog.Default().With("component", "token-validator"),
	}
}

// Validate checks a raw bearer token against the database.
// Returns the Session on success, or ErrInvalidToken / ErrExpiredToken.
func (v *Validator) Validate(ctx context.Context, rawToken string) (*Session, error) {
	hash := HashToken(rawToken)

	var session Session
	var expiresAt sql.NullTime

	err := v.db.DB.QueryRowContext(ctx,
		`SELECT id, user_id, role, created_at, expires_at
		 FROM sessions
		 WHERE token_hash = $1 AND revoked = false`,
		hash,
	).Scan(&session.ID, &session.UserID, &session.Role, &session.CreatedAt, &expiresAt)

	if err == sql.ErrNoRows {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("querying session: %w", err)
	}

	if expiresAt.Valid {
		if expiresAt.Time.Before(time.Now()) {
			return nil, ErrExpiredToken
		}
		session.ExpiresAt = &expiresAt.Time
	}

	return &session, nil
}

// Revoke marks a session token as revoked so it can no longer be used.
func (v *Validator) Revoke(ctx context.Context, rawToken string) error {
	hash := HashToken(rawToken)

	result, err := v.db.DB.ExecContext(ctx,
		`UPDATE sessions SET revoked = true WHERE token_hash = $1`,
		hash,
	)
	if err != nil {
		return fmt.Errorf("revoking session: %w", err)
	}

	rows, _ := result.RowsAffected()
	if rows == 0 {
		return ErrInvalidToken
	}

	v.logger.Info("session revoked")
	return nil
}

// HashToken returns the SHA-256 hex digest of a raw session token.
func HashToken(raw string) string {
	return fmt.Sprintf("%x", sha256.Sum256([]byte(raw)))
}
