package handler

import (
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/tdapps/td-backend/internal/storage"
)

// Upload failure modes surfaced to validation code.  errNoFile covers both
// an absent field and a non-multipart request.
var (
	errNoFile       = errors.New("no file in form")
	errFileType     = errors.New("file type not allowed")
	errFileTooLarge = errors.New("file too large")
)

// saveUpload pulls one file field out of the multipart form, checks its
// extension and size and persists it, returning the generated filename.
func saveUpload(c echo.Context, files storage.Store, field string, cat storage.Category, username string, maxBytes int64) (string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		return "", errNoFile
	}
	if !storage.AllowedExt(fh.Filename) {
		return "", errFileType
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		return "", errFileTooLarge
	}
	src, err := fh.Open()
	if err != nil {
		return "", err
	}
	defer src.Close()
	return files.Save(cat, username, fh.Filename, src)
}

// hasFormFile reports whether the multipart form carries the given file
// field, without consuming it.
func hasFormFile(c echo.Context, field string) bool {
	_, err := c.FormFile(field)
	return err == nil
}

// formField returns a form value and whether the field was present at all,
// so handlers can tell "not sent" apart from "sent empty" on updates.
func formField(c echo.Context, key string) (string, bool) {
	params, err := c.FormParams()
	if err != nil {
		return "", false
	}
	vals, ok := params[key]
	if !ok || len(vals) == 0 {
		return "", false
	}
	return vals[0], true
}

// parseKendala interprets the form encoding of the obstacle flag.
func parseKendala(s string) bool {
	return s == "true" || s == "1"
}
