package handler // handler defines the HTTP handlers

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/tdapps/td-backend/internal/middleware"
	"github.com/tdapps/td-backend/internal/model"
	"github.com/tdapps/td-backend/internal/repository"
)

// Handlers depend on these narrow store interfaces rather than the
// concrete repositories so tests can substitute in-memory stubs.  The
// repository types satisfy them without adapters.

// UserStore is the user persistence surface used by auth and user handlers.
type UserStore interface {
	Create(ctx context.Context, name, username, password, role string, cost int) (uint64, error)
	GetByUsername(ctx context.Context, username string) (model.User, error)
	GetByID(ctx context.Context, id uint64) (model.User, error)
	List(ctx context.Context) ([]model.User, error)
	Update(ctx context.Context, id uint64, upd repository.UserUpdate) error
	Delete(ctx context.Context, id uint64) error
}

// SessionStore is the refresh-session persistence surface.
type SessionStore interface {
	Create(ctx context.Context, s model.RefreshSession) error
	GetByHash(ctx context.Context, tokenHash string) (model.RefreshSession, error)
	Revoke(ctx context.Context, sessionID string) error
	RevokeAllForUser(ctx context.Context, userID uint64) error
}

// PDUStore is the PDU persistence surface.
type PDUStore interface {
	Create(ctx context.Context, p *model.PDU) error
	CreateTx(ctx context.Context, tx *sql.Tx, p *model.PDU) error
	GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.PDU, error)
	ListByOwnerBetween(ctx context.Context, ownerID uint64, start, end time.Time) ([]model.PDU, error)
	ListAll(ctx context.Context) ([]model.PDU, error)
	Update(ctx context.Context, id, ownerID uint64, upd repository.PDUUpdate) error
	Delete(ctx context.Context, id, ownerID uint64) error
	OwnsFile(ctx context.Context, ownerID uint64, filename string) (bool, error)
}

// AcaraStore is the Acara persistence surface.
type AcaraStore interface {
	Create(ctx context.Context, a *model.Acara) error
	CreateTx(ctx context.Context, tx *sql.Tx, a *model.Acara) error
	GetByIDAndOwner(ctx context.Context, id, ownerID uint64) (model.Acara, error)
	ListByOwner(ctx context.Context, ownerID uint64) ([]model.Acara, error)
	ListAll(ctx context.Context) ([]model.Acara, error)
	Update(ctx context.Context, id, ownerID uint64, upd repository.AcaraUpdate) error
	Delete(ctx context.Context, id, ownerID uint64) error
	OwnsFile(ctx context.Context, ownerID uint64, filename string) (bool, error)
}

// txFunc runs fn inside a transaction.  Production handlers get a closure
// over database.WithTx; tests inject one that calls fn with a nil tx.
type txFunc func(ctx context.Context, fn func(tx *sql.Tx) error) error

// callerID extracts the authenticated user id stored by JWTAuth.
func callerID(c echo.Context) (uint64, error) {
	if v, ok := c.Get(middleware.CtxUserID).(uint64); ok && v > 0 {
		return v, nil
	}
	return 0, errors.New("no user_id in context")
}

// callerName returns the display-name claim, or "" when absent.
func callerName(c echo.Context) string {
	v, _ := c.Get(middleware.CtxName).(string)
	return v
}

// callerUsername returns the username claim, or "" when absent.
func callerUsername(c echo.Context) string {
	v, _ := c.Get(middleware.CtxUsername).(string)
	return v
}

// callerRole returns the role claim, or "" when absent.
func callerRole(c echo.Context) string {
	v, _ := c.Get(middleware.CtxRole).(string)
	return v
}
