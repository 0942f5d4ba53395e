// Package filestore provides the flat-directory store for downloaded media
// artifacts. It owns no lifecycle logic, just a namespace of files keyed by
// public filename; grants in the registry decide which of those files are
// servable.
package filestore

import (
	"errors"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/vidrelay/vidrelay/internal/domain"
)

// Store implements file persistence on the local filesystem.
// Files are named by their public filename to keep delivery lookups trivial.
type Store struct {
	root string
}

// New returns a store rooted at dir. The directory must already exist.
func New(root string) (*Store, error) {
	fi, err := os.Stat(root)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return nil, errors.New("file store root is not a directory")
	}
	return &Store{root: root}, nil
}

// Root returns the store directory.
func (s *Store) Root() string { return s.root }

// path constructs the full path for a validated public filename.
func (s *Store) path(name string) string { return filepath.Join(s.root, name) }

// Ingest moves the artifact at src into the store under name, replacing any
// existing file with that name (last write wins). A same-filesystem rename
// is attempted first; a copy+remove fallback covers scratch directories on a
// different device.
func (s *Store) Ingest(src, name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	dst := s.path(name)
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	// #nosec G304: src comes from the extraction scratch dir, dst from a fixed root plus a validated name.
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o600)
	if err != nil {
		return err
	}
	if _, err = io.Copy(out, in); err != nil {
		out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err = out.Sync(); err != nil {
		out.Close()
		return err
	}
	if err = out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}

// Open returns a reader over the stored file and its size.
func (s *Store) Open(name string) (io.ReadCloser, int64, error) {
	if err := validateName(name); err != nil {
		return nil, 0, fs.ErrNotExist
	}
	f, err := os.Open(s.path(name)) // #nosec G304 path constructed internally
	if err != nil {
		return nil, 0, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, err
	}
	return f, fi.Size(), nil
}

// Exists reports whether a regular file is present under name.
func (s *Store) Exists(name string) bool {
	if err := validateName(name); err != nil {
		return false
	}
	fi, err := os.Stat(s.path(name))
	return err == nil && fi.Mode().IsRegular()
}

// Remove deletes the stored file. Removal is idempotent: an already-absent
// file is success, not error, so reclamation never trips over files deleted
// by an external agent.
func (s *Store) Remove(name string) error {
	if err := validateName(name); err != nil {
		return err
	}
	if err := os.Remove(s.path(name)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// List returns the public filenames currently present.
func (s *Store) List() ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}

// validateName enforces the domain filename rules before any path is built,
// preventing traversal out of the store root.
func validateName(name string) error {
	if !domain.ValidFilename(name) {
		return domain.ErrInvalidFilename
	}
	return nil
}
