package storage

import (
	"errors"
	"io"
	"path/filepath"
	"strings"
)

// Category names an upload destination.  Dir is the subdirectory under the
// upload root; Prefix is the first segment of generated filenames.  The
// original filenames on disk are client-visible, so both values are part of
// the API surface and must stay stable.
type Category struct {
	Dir    string
	Prefix string
}

// The three evidence categories used by PDU and Acara records.
var (
	CategorySurat   = Category{Dir: "bukti_surat", Prefix: "surat"}
	CategoryRondown = Category{Dir: "bukti_rondown", Prefix: "rondown"}
	CategoryDukung  = Category{Dir: "bukti_dukung", Prefix: "bukti_dukung"}
)

// CategoryByDir resolves a directory name from a download URL back to its
// category.  Unknown directories are rejected so the file proxy can never
// be pointed outside the upload tree.
func CategoryByDir(dir string) (Category, bool) {
	switch dir {
	case CategorySurat.Dir:
		return CategorySurat, true
	case CategoryRondown.Dir:
		return CategoryRondown, true
	case CategoryDukung.Dir:
		return CategoryDukung, true
	}
	return Category{}, false
}

// Store persists uploaded evidence files.  Save returns only the generated
// filename; records persist the filename, never a path.  Remove is
// best-effort: callers log failures and carry on, since a missing file must
// never block deleting the owning record.
type Store interface {
	Save(cat Category, username, originalName string, src io.Reader) (string, error)
	Remove(cat Category, filename string) error
	Path(cat Category, filename string) (string, error)
}

// ErrBadFilename is returned when a stored or requested filename contains
// path separators or other traversal attempts.
var ErrBadFilename = errors.New("invalid filename")

// CleanFilename validates that name is a bare filename with no traversal
// potential.  It is applied both when serving files and before unlinking.
func CleanFilename(name string) (string, error) {
	if name == "" || name == "." || name == ".." {
		return "", ErrBadFilename
	}
	if strings.ContainsAny(name, "/\\\x00") {
		return "", ErrBadFilename
	}
	if filepath.Base(name) != name {
		return "", ErrBadFilename
	}
	return name, nil
}

// allowedExts is the accepted set of upload extensions: the scanned letters
// and rundowns are PDFs, obstacle evidence is usually a photo.
var allowedExts = map[string]bool{
	".pdf":  true,
	".jpg":  true,
	".jpeg": true,
	".png":  true,
}

// AllowedExt reports whether the file's extension is accepted for upload.
func AllowedExt(name string) bool {
	return allowedExts[strings.ToLower(filepath.Ext(name))]
}
