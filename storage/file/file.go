// Package file provides a filesystem-backed storage.Store.
package file

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/jmcleod/bequest/storage"
)

// Store implements storage.Store on the local filesystem. Names are paths,
// resolved relative to the root when one is set.
type Store struct {
	root string
}

var (
	_ storage.Store  = (*Store)(nil)
	_ storage.Lister = (*Store)(nil)
)

// NewStore returns a Store rooted at root. An empty root uses names as given.
func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) path(name string) string {
	if s.root == "" || filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(s.root, name)
}

func (s *Store) ReadBytes(name string) ([]byte, error) {
	if err := storage.ValidateName(name); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path(name))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", name, err)
	}
	return data, nil
}

// WriteBytes writes data to name, creating parent directories as needed. The
// file is replaced atomically via a temporary file in the same directory.
func (s *Store) WriteBytes(name string, data []byte) error {
	if err := storage.ValidateName(name); err != nil {
		return err
	}
	p := s.path(name)
	dir := filepath.Dir(p)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating directory %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(p)+".*")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", name, err)
	}
	if err := os.Chmod(tmp.Name(), 0o600); err != nil {
		return fmt.Errorf("setting permissions on %s: %w", name, err)
	}
	if err := os.Rename(tmp.Name(), p); err != nil {
		return fmt.Errorf("replacing %s: %w", name, err)
	}
	return nil
}

// List returns the slash-separated paths of all regular files below the root,
// skipping in-flight temporary files. It requires a root.
func (s *Store) List() ([]string, error) {
	if s.root == "" {
		return nil, errors.New("listing requires a root directory")
	}
	var names []string
	err := filepath.WalkDir(s.root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) && p == s.root {
				return fs.SkipAll
			}
			return err
		}
		if d.IsDir() || !d.Type().IsRegular() || d.Name()[0] == '.' {
			return nil
		}
		rel, err := filepath.Rel(s.root, p)
		if err != nil {
			return err
		}
		names = append(names, filepath.ToSlash(rel))
		return nil
	})
	return names, err
}
