package router

import (
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/tdapps/td-backend/internal/config"
	"github.com/tdapps/td-backend/internal/handler"
	"github.com/tdapps/td-backend/internal/middleware"
)

// RegisterAuth registers the authentication endpoints.  The paths match the
// original API exactly, including the unusual GET /token refresh and
// DELETE /logout verbs, because deployed clients call them as-is.  Only the
// credential endpoints are rate limited; refresh and logout are cheap and
// already bound to a cookie.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, rl config.RateLimitConfig, rdb *redis.Client) {
	limited := middleware.RateLimit(rl, rdb)
	e.POST("/register", a.Register, limited)
	e.POST("/login", a.Login, limited)
	e.GET("/token", a.Refresh)
	e.DELETE("/logout", a.Logout)
}
