package repository

import (
	"context"
	"database/sql"

	"github.com/tdapps/td-backend/internal/model"
)

// SessionRepo persists refresh sessions (one row per login, hashed token).
type SessionRepo struct{ DB *sql.DB }

func NewSessionRepo(db *sql.DB) *SessionRepo { return &SessionRepo{DB: db} }

// Create inserts a refresh session row.
func (r *SessionRepo) Create(ctx context.Context, s model.RefreshSession) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO refresh_sessions (id, user_id, token_hash, expires_at) VALUES (?,?,?,?)",
		s.ID, s.UserID, s.TokenHash, s.ExpiresAt)
	return err
}

// GetByHash fetches a session by token hash, revoked or not.  Callers
// inspect RevokedAt themselves: finding a revoked row is meaningful (token
// reuse), so it must not be filtered out here.
func (r *SessionRepo) GetByHash(ctx context.Context, tokenHash string) (model.RefreshSession, error) {
	var (
		s       model.RefreshSession
		revoked sql.NullTime
	)
	err := r.DB.QueryRowContext(ctx,
		"SELECT id, user_id, token_hash, expires_at, revoked_at, created_at FROM refresh_sessions WHERE token_hash=? LIMIT 1",
		tokenHash).Scan(&s.ID, &s.UserID, &s.TokenHash, &s.ExpiresAt, &revoked, &s.CreatedAt)
	if err != nil {
		return model.RefreshSession{}, err
	}
	if revoked.Valid {
		t := revoked.Time
		s.RevokedAt = &t
	}
	return s, nil
}

// Revoke marks one session as revoked.
func (r *SessionRepo) Revoke(ctx context.Context, sessionID string) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_sessions SET revoked_at=NOW() WHERE id=? AND revoked_at IS NULL",
		sessionID)
	return err
}

// RevokeAllForUser revokes every active session of a user.  Used on token
// reuse and when an admin deletes the account.
func (r *SessionRepo) RevokeAllForUser(ctx context.Context, userID uint64) error {
	_, err := r.DB.ExecContext(ctx,
		"UPDATE refresh_sessions SET revoked_at=NOW() WHERE user_id=? AND revoked_at IS NULL",
		userID)
	return err
}
