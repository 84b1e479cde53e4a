package handler

import (
	"database/sql"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tdapps/td-backend/internal/config"
	"github.com/tdapps/td-backend/internal/model"
	"github.com/tdapps/td-backend/internal/repository"
	"github.com/tdapps/td-backend/internal/utils"
)

// UserHandler serves the admin/staff user management endpoints.
type UserHandler struct {
	Cfg      config.Config
	Users    UserStore
	Sessions SessionStore
	Log      *logrus.Entry
}

func NewUserHandler(cfg config.Config, users UserStore, sessions SessionStore, log *logrus.Entry) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Sessions: sessions, Log: log}
}

// userResp is the public projection of a user: credentials and timestamps
// stay out of listings.
type userResp struct {
	ID       uint64 `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Role     string `json:"role"`
}

func toUserResp(u model.User) userResp {
	return userResp{ID: u.ID, Name: u.Name, Username: u.Username, Role: u.Role}
}

// GetUsers handles GET /users (admin or staff).
func (h *UserHandler) GetUsers(c echo.Context) error {
	users, err := h.Users.List(c.Request().Context())
	if err != nil {
		h.Log.WithError(err).Error("list users failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	out := make([]userResp, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResp(u))
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "Users retrieved successfully",
		"data":    out,
		"count":   len(out),
	})
}

// GetUserByID handles GET /users/:id (admin or staff).
func (h *UserHandler) GetUserByID(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid id"})
	}
	u, err := h.Users.GetByID(c.Request().Context(), id)
	if err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
		}
		h.Log.WithError(err).Error("get user failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User retrieved successfully",
		"data":    toUserResp(u),
	})
}

type updateUserReq struct {
	Name     *string `json:"name"`
	Username *string `json:"username"`
	Password *string `json:"password"`
	Role     *string `json:"role"`
}

// UpdateUser handles PATCH /users/:id (admin only).
func (h *UserHandler) UpdateUser(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid id"})
	}
	var req updateUserReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid request body"})
	}

	upd := repository.UserUpdate{}
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Name cannot be empty"})
		}
		upd.Name = &name
	}
	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if username == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username cannot be empty"})
		}
		upd.Username = &username
	}
	if req.Role != nil {
		role := strings.ToLower(strings.TrimSpace(*req.Role))
		if !model.ValidRole(role) {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid role"})
		}
		upd.Role = &role
	}
	if req.Password != nil {
		if *req.Password == "" {
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Password cannot be empty"})
		}
		hash, err := utils.HashPassword(*req.Password, h.Cfg.BcryptCost)
		if err != nil {
			h.Log.WithError(err).Error("hash password failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
		}
		upd.PasswordHash = &hash
	}
	if upd.Name == nil && upd.Username == nil && upd.PasswordHash == nil && upd.Role == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "No data provided for update"})
	}

	ctx := c.Request().Context()
	if err := h.Users.Update(ctx, id, upd); err != nil {
		switch err {
		case sql.ErrNoRows:
			return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
		case repository.ErrUsernameExists:
			return c.JSON(http.StatusBadRequest, echo.Map{"message": "Username already exists"})
		}
		h.Log.WithError(err).Error("update user failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}

	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		h.Log.WithError(err).Error("reload user failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message": "User updated successfully",
		"data":    toUserResp(u),
	})
}

// DeleteUser handles DELETE /users/:id (admin only).  An admin can never
// delete their own account; active sessions of the deleted user are
// revoked so a stale refresh cookie cannot outlive the account.
func (h *UserHandler) DeleteUser(c echo.Context) error {
	adminID, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Invalid id"})
	}
	if id == adminID {
		return c.JSON(http.StatusBadRequest, echo.Map{"message": "Cannot delete your own account"})
	}

	ctx := c.Request().Context()
	_ = h.Sessions.RevokeAllForUser(ctx, id)
	if err := h.Users.Delete(ctx, id); err != nil {
		if err == sql.ErrNoRows {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "User not found"})
		}
		h.Log.WithError(err).Error("delete user failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":   "User deleted successfully",
		"deletedId": id,
	})
}
