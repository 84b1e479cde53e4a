package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/tdapps/td-backend/internal/handler"
)

// RegisterRoutes registers routes that require no authentication.
// Currently it exposes only a health check for load balancers and probes.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}
