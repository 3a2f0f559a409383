// Package spool owns the directory that uploaded documents are staged in
// while they are submitted to a printer.
package spool

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/lukeod/netprint/logger"
)

// ErrOutsideSpool is returned when a path does not belong to the staging directory.
var ErrOutsideSpool = errors.New("path is outside the staging directory")

// Manager handles staged upload files.
type Manager struct {
	dir string
}

// NewManager creates a Manager, creating dir if needed.
func NewManager(dir string) (*Manager, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving staging dir %s: %w", dir, err)
	}
	if err := os.MkdirAll(abs, 0755); err != nil {
		return nil, fmt.Errorf("creating staging dir %s: %w", abs, err)
	}
	return &Manager{dir: abs}, nil
}

// Dir returns the absolute staging directory.
func (m *Manager) Dir() string {
	return m.dir
}

// Stage copies r into a new file named <uuid>-<base of originalName> and returns its path.
func (m *Manager) Stage(r io.Reader, originalName string) (string, error) {
	name := uuid.NewString()
	if base := sanitize(originalName); base != "" {
		name += "-" + base
	}
	path := filepath.Join(m.dir, name)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0600)
	if err != nil {
		return "", fmt.Errorf("creating staging file: %w", err)
	}

	n, err := io.Copy(f, r)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("writing staging file: %w", err)
	}

	logger.Debug("Staged upload", "path", path, "bytes", n)
	return path, nil
}

// Remove deletes a staged file. A file that is already gone is not an error.
func (m *Manager) Remove(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("invalid path %s: %w", path, err)
	}

	// Ensure the path is within the staging dir to prevent directory traversal.
	rel, err := filepath.Rel(m.dir, abs)
	if err != nil || rel == "." || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%w: %s", ErrOutsideSpool, path)
	}

	if err := os.Remove(abs); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing staging file: %w", err)
	}
	logger.Debug("Removed staged upload", "path", abs)
	return nil
}

// sanitize reduces a client-supplied name to a safe base name.
func sanitize(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	base := filepath.Base(name)
	if base == "." || base == "/" || base == ".." {
		return ""
	}
	return base
}
