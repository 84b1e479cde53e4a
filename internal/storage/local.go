package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// LocalStore writes uploads under a root directory on the local disk,
// one subdirectory per category.
type LocalStore struct {
	root string
	// now is swappable in tests so generated filenames are deterministic.
	now func() time.Time
}

// NewLocalStore returns a LocalStore rooted at dir.
func NewLocalStore(dir string) *LocalStore {
	return &LocalStore{root: dir, now: time.Now}
}

// Save streams src to disk under the category directory and returns the
// generated filename `{prefix}_{username}_{epochMillis}{ext}`.  The
// directory is created on demand.  A failure removes any partial file so a
// record is never created pointing at a truncated upload.
func (s *LocalStore) Save(cat Category, username, originalName string, src io.Reader) (string, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := fmt.Sprintf("%s_%s_%d%s", cat.Prefix, username, s.now().UnixMilli(), ext)

	dir := filepath.Join(s.root, cat.Dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	dst, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		return "", fmt.Errorf("create upload file: %w", err)
	}
	if _, err := io.Copy(dst, src); err != nil {
		_ = dst.Close()
		_ = os.Remove(filepath.Join(dir, name))
		return "", fmt.Errorf("write upload file: %w", err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(filepath.Join(dir, name))
		return "", fmt.Errorf("close upload file: %w", err)
	}
	return name, nil
}

// Remove unlinks a stored file.  A file that is already gone is not an
// error; anything else is reported so the caller can log it.
func (s *LocalStore) Remove(cat Category, filename string) error {
	p, err := s.Path(cat, filename)
	if err != nil {
		return err
	}
	if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// Path returns the on-disk location of a stored file after validating the
// filename against traversal.
func (s *LocalStore) Path(cat Category, filename string) (string, error) {
	name, err := CleanFilename(filename)
	if err != nil {
		return "", err
	}
	return filepath.Join(s.root, cat.Dir, name), nil
}
