package handler

import (
	"context"
	"database/sql"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tdapps/td-backend/internal/config"
	"github.com/tdapps/td-backend/internal/model"
	"github.com/tdapps/td-backend/internal/repository"
	"github.com/tdapps/td-backend/internal/utils"
)

// refreshCookieName is the httpOnly cookie carrying the refresh token.
const refreshCookieName = "refreshToken"

// AuthHandler bundles dependencies for the auth endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions SessionStore
	Log      *logrus.Entry
}

func NewAuthHandler(cfg config.Config, users UserStore, sessions SessionStore, log *logrus.Entry) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Sessions: sessions, Log: log}
}

// ----- DTOs -----

type registerReq struct {
	Name            string `json:"name"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	ConfirmPassword string `json:"confirmPassword"`
	Role            string `json:"role"`
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Register handles POST /register.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Username = strings.TrimSpace(req.Username)
	if req.Name == "" || req.Username == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Name, username and password are required"})
	}
	if req.Password != req.ConfirmPassword {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Password and confirm password do not match"})
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role == "" {
		role = model.RoleUser
	}
	if !model.ValidRole(role) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid role"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if _, err := h.Users.Create(ctx, req.Name, req.Username, req.Password, role, h.Cfg.BcryptCost); err != nil {
		if err == repository.ErrUsernameExists {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username already exists"})
		}
		h.Log.WithError(err).Error("register: create user failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Something went wrong"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "User has been registered"})
}

// Login handles POST /login: verifies credentials, opens a refresh session
// and returns a short-lived access token.  The refresh token travels only
// in an httpOnly cookie.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}
	if strings.TrimSpace(req.Username) == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username and password are required"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	u, err := h.Users.GetByUsername(ctx, req.Username)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "Username not found"})
		}
		h.Log.WithError(err).Error("login: query failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Wrong password"})
	}

	access, err := h.openSession(ctx, c, u)
	if err != nil {
		h.Log.WithError(err).Error("login: open session failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": access.Token})
}

// Refresh handles GET /token: exchanges a valid refresh cookie for a new
// access token and rotates the refresh session.  Presenting a token whose
// session was already revoked is treated as reuse of a stolen credential:
// every session of that user is revoked.
func (h *AuthHandler) Refresh(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No refresh token"})
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.GetByHash(ctx, utils.HashRefreshRaw(cookie.Value))
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Invalid refresh token"})
		}
		h.Log.WithError(err).Error("refresh: session lookup failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
	}
	if sess.RevokedAt != nil {
		// Rotation means a legitimate client never replays an old token.
		h.Log.WithField("user_id", sess.UserID).Warn("refresh: revoked token reused, revoking all sessions")
		_ = h.Sessions.RevokeAllForUser(ctx, sess.UserID)
		return c.JSON(http.StatusForbidden, echo.Map{"message": "Invalid refresh token"})
	}
	if time.Now().UTC().After(sess.ExpiresAt) {
		_ = h.Sessions.Revoke(ctx, sess.ID)
		return c.JSON(http.StatusForbidden, echo.Map{"message": "Invalid refresh token"})
	}

	u, err := h.Users.GetByID(ctx, sess.UserID)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusForbidden, echo.Map{"message": "Invalid refresh token"})
		}
		h.Log.WithError(err).Error("refresh: load user failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
	}

	// Rotate: retire the presented session before minting its successor.
	if err := h.Sessions.Revoke(ctx, sess.ID); err != nil {
		h.Log.WithError(err).Error("refresh: revoke failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
	}
	access, err := h.openSession(ctx, c, u)
	if err != nil {
		h.Log.WithError(err).Error("refresh: open session failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Internal server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{"accessToken": access.Token})
}

// Logout handles DELETE /logout.  Idempotent: a missing cookie or an
// unknown token still clears the cookie and reports success.
func (h *AuthHandler) Logout(c echo.Context) error {
	cookie, err := c.Cookie(refreshCookieName)
	if err != nil || cookie.Value == "" {
		return c.NoContent(http.StatusNoContent)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	sess, err := h.Sessions.GetByHash(ctx, utils.HashRefreshRaw(cookie.Value))
	if err != nil {
		h.clearRefreshCookie(c)
		return c.NoContent(http.StatusNoContent)
	}
	if err := h.Sessions.Revoke(ctx, sess.ID); err != nil {
		h.Log.WithError(err).Error("logout: revoke failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Logout failed"})
	}
	h.clearRefreshCookie(c)
	return c.JSON(http.StatusOK, echo.Map{"message": "Logout success"})
}

// openSession creates a refresh session for u, sets the cookie and returns
// a fresh access token.
func (h *AuthHandler) openSession(ctx context.Context, c echo.Context, u model.User) (utils.AccessToken, error) {
	identity := utils.Identity{UserID: u.ID, Name: u.Name, Username: u.Username, Role: u.Role}
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, identity, h.Cfg.AccessTTLMin)
	if err != nil {
		return utils.AccessToken{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTLDays)
	if err != nil {
		return utils.AccessToken{}, err
	}
	sess := model.RefreshSession{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		TokenHash: utils.HashRefreshRaw(refresh.Raw),
		ExpiresAt: refresh.Exp,
	}
	if err := h.Sessions.Create(ctx, sess); err != nil {
		return utils.AccessToken{}, err
	}
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    refresh.Raw,
		Path:     "/",
		HttpOnly: true,
		MaxAge:   h.Cfg.RefreshTTLDays * 24 * 60 * 60,
	})
	return access, nil
}

func (h *AuthHandler) clearRefreshCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     refreshCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}
