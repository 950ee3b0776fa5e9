package storage

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
)

// Local is a flat directory of transient files. Names are resolved
// relative to the root directory.
//
// biovault uses a Local store as its transient area. Files are flat (no
// subdirectories) and short-lived; [Local.Sweep] removes leftovers from a
// previous process.
type Local struct {
	root string
}

// NewLocal creates a Local store rooted at dir.
// The directory is created (with parents) if it does not already exist.
func NewLocal(dir string) (*Local, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, err
	}
	return &Local{root: abs}, nil
}

// Root returns the absolute root directory.
func (l *Local) Root() string {
	return l.root
}

// Path returns the absolute filesystem path for a storage path.
func (l *Local) Path(path string) string {
	return filepath.Join(l.root, filepath.FromSlash(path))
}

// Create creates a new file that must not already exist and returns it with
// its absolute path.
func (l *Local) Create(path string) (*os.File, string, error) {
	full := l.Path(path)
	f, err := os.OpenFile(full, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, "", err
	}
	return f, full, nil
}

// Delete removes the named file. A file that is already gone is not an
// error.
func (l *Local) Delete(name string) error {
	err := os.Remove(l.Path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// List returns the names of the regular files directly under the root.
func (l *Local) List() ([]string, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() {
			names = append(names, e.Name())
		}
	}
	return names, nil
}

// Sweep removes regular files under the root whose modification time is
// older than olderThan and returns how many were removed. A zero or
// negative olderThan removes every file.
func (l *Local) Sweep(olderThan time.Duration) (int, error) {
	entries, err := os.ReadDir(l.root)
	if err != nil {
		return 0, fmt.Errorf("storage: sweep %s: %w", l.root, err)
	}
	cutoff := time.Now().Add(-olderThan)
	var (
		removed int
		errs    []error
	)
	for _, e := range entries {
		if !e.Type().IsRegular() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if olderThan > 0 && info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(l.root, e.Name())); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
