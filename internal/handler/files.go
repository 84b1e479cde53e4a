package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/tdapps/td-backend/internal/model"
	"github.com/tdapps/td-backend/internal/storage"
)

// FileHandler serves uploaded evidence files through the API instead of a
// public static mount, so ownership is checked on every download.
type FileHandler struct {
	PDUs   PDUStore
	Acaras AcaraStore
	Files  storage.Store
	Log    *logrus.Entry
}

func NewFileHandler(pdus PDUStore, acaras AcaraStore, files storage.Store, log *logrus.Entry) *FileHandler {
	return &FileHandler{PDUs: pdus, Acaras: acaras, Files: files, Log: log}
}

// Get handles GET /uploads/:category/:filename.  Admin and staff can fetch
// any file; a regular user only files referenced by their own records.
// Unknown categories, bad filenames and files the caller does not own all
// collapse into the same 404.
func (h *FileHandler) Get(c echo.Context) error {
	uid, err := callerID(c)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{"message": "User not authenticated"})
	}

	cat, ok := storage.CategoryByDir(c.Param("category"))
	if !ok {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "File not found"})
	}
	filename, err := storage.CleanFilename(c.Param("filename"))
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "File not found"})
	}

	role := callerRole(c)
	if role != model.RoleAdmin && role != model.RoleStaff {
		ctx := c.Request().Context()
		owns, err := h.PDUs.OwnsFile(ctx, uid, filename)
		if err != nil {
			h.Log.WithError(err).Error("file ownership check failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
		}
		if !owns {
			owns, err = h.Acaras.OwnsFile(ctx, uid, filename)
			if err != nil {
				h.Log.WithError(err).Error("file ownership check failed")
				return c.JSON(http.StatusInternalServerError, echo.Map{"message": "Server error"})
			}
		}
		if !owns {
			return c.JSON(http.StatusNotFound, echo.Map{"message": "File not found"})
		}
	}

	path, err := h.Files.Path(cat, filename)
	if err != nil {
		return c.JSON(http.StatusNotFound, echo.Map{"message": "File not found"})
	}
	return c.File(path)
}
