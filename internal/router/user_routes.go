package router

import (
	"github.com/labstack/echo/v4"

	"github.com/tdapps/td-backend/internal/handler"
	"github.com/tdapps/td-backend/internal/middleware"
	"github.com/tdapps/td-backend/internal/model"
)

// RegisterUsers registers the user management endpoints under /users.
// Listing and detail are open to admin and staff; mutations are admin only.
func RegisterUsers(e *echo.Echo, h *handler.UserHandler, jwtSecret string) {
	g := e.Group("/users", middleware.JWTAuth(jwtSecret))
	g.GET("", h.GetUsers, middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	g.GET("/:id", h.GetUserByID, middleware.RequireRole(model.RoleAdmin, model.RoleStaff))
	g.PATCH("/:id", h.UpdateUser, middleware.RequireRole(model.RoleAdmin))
	g.DELETE("/:id", h.DeleteUser, middleware.RequireRole(model.RoleAdmin))
}
