package model

import "time"

// RefreshSession models a row in the `refresh_sessions` table.  Each login
// creates a session so a user can stay signed in on several devices at
// once.  The plain refresh token is never stored; only its SHA-256 hash.
// A session is dead once revoked or expired, and presenting the token of a
// revoked session is treated as a reuse signal.
//
// Fields:
//
//	ID        – uuid primary key of the session.
//	UserID    – owner of the session.
//	TokenHash – SHA-256 hex digest of the refresh token value.
//	ExpiresAt – expiration timestamp.
//	RevokedAt – when the session was revoked (nil if still active).
//	CreatedAt – timestamp of creation.
type RefreshSession struct {
	ID        string     // refresh_sessions.id
	UserID    uint64     // refresh_sessions.user_id
	TokenHash string     // refresh_sessions.token_hash
	ExpiresAt time.Time  // refresh_sessions.expires_at
	RevokedAt *time.Time // refresh_sessions.revoked_at (nullable)
	CreatedAt time.Time  // refresh_sessions.created_at
}
