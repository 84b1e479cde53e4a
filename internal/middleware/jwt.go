package middleware // package middleware contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tdapps/td-backend/internal/utils"
)

// Context keys set by JWTAuth and read by handlers.
const (
	CtxUserID   = "user_id"
	CtxName     = "name"
	CtxUsername = "username"
	CtxRole     = "role"
)

// JWTAuth returns an Echo middleware that validates a Bearer access token
// and injects the caller's identity into the request context.  Failure
// responses follow a fixed taxonomy: a missing header or missing token is
// 401 (the caller never authenticated), while an expired or malformed
// token is 403 (the caller authenticated once but the credential is no
// longer acceptable).
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if auth == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "No token provided"})
			}
			// Only the Bearer scheme is accepted; a bare token or any
			// other scheme carries no usable access token.
			raw := ""
			if strings.HasPrefix(auth, "Bearer ") {
				raw = strings.TrimSpace(auth[len("Bearer "):])
			}
			if raw == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"message": "Access token missing"})
			}

			id, err := utils.ParseAccessToken(secret, raw)
			if err != nil {
				return c.JSON(http.StatusForbidden, echo.Map{"message": "Invalid or expired token"})
			}

			c.Set(CtxUserID, id.UserID)
			c.Set(CtxName, id.Name)
			c.Set(CtxUsername, id.Username)
			c.Set(CtxRole, id.Role)
			return next(c)
		}
	}
}
