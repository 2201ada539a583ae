// Package store provides the Record Store backends. Every backend persists
// the user-record collection as a single unit and implements records.Store;
// which one is used is purely a configuration choice.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/botkeeper/botkeeper/internal/common"
	"github.com/botkeeper/botkeeper/internal/server/records"
)

// FileStore keeps the collection in a single pretty-printed JSON array,
// matching the layout of the legacy users.json file.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load reads the full collection. A missing file is not an error: it is
// created holding an empty array and the empty collection is returned.
func (s *FileStore) Load(ctx context.Context) ([]records.User, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			if err := s.write([]byte("[]")); err != nil {
				return nil, err
			}
			return []records.User{}, nil
		}
		return nil, fmt.Errorf("%w: reading %s: %v", common.ErrStoreUnavailable, s.path, err)
	}

	var users []records.User
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", common.ErrCorruptStore, s.path, err)
	}
	if users == nil {
		users = []records.User{}
	}
	return users, nil
}

// Save overwrites the whole collection, formatted for human readability.
func (s *FileStore) Save(ctx context.Context, users []records.User) error {
	if users == nil {
		users = []records.User{}
	}
	data, err := json.MarshalIndent(users, "", "  ")
	if err != nil {
		return err
	}
	return s.write(data)
}

// write replaces the collection file atomically. Writing to a temp file and
// renaming it over the target means a concurrent Load never observes a
// half-written array.
func (s *FileStore) write(data []byte) error {
	dir := filepath.Dir(s.path)
	if dir != "." {
		if err := os.MkdirAll(dir, 0o770); err != nil {
			return fmt.Errorf("%w: mkdir %s: %v", common.ErrStoreUnavailable, dir, err)
		}
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: creating temp file in %s: %v", common.ErrStoreUnavailable, dir, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: writing %s: %v", common.ErrStoreUnavailable, tmp.Name(), err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("%w: chmod %s: %v", common.ErrStoreUnavailable, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("%w: closing %s: %v", common.ErrStoreUnavailable, tmp.Name(), err)
	}

	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("%w: replacing %s: %v", common.ErrStoreUnavailable, s.path, err)
	}
	return nil
}
