// Package session keeps the CLI's auth token between invocations.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/dmitrijs2005/taskmate/internal/filex"
)

// Store persists a single token.
type Store interface {
	Load() (string, error)
	Save(token string) error
	Clear() error
}

// FileStore keeps the token in a file readable only by the owner.
type FileStore struct {
	path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{path: path}
}

// Load returns "" when no token has been saved.
func (s *FileStore) Load() (string, error) {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("error reading token file: %w", err)
	}
	return strings.TrimSpace(string(raw)), nil
}

// Save replaces the stored token atomically.
func (s *FileStore) Save(token string) error {
	if err := filex.WriteAtomic(s.path, []byte(token+"\n"), 0o600, 0o700); err != nil {
		return fmt.Errorf("error writing token file: %w", err)
	}
	return nil
}

func (s *FileStore) Clear() error {
	if err := os.Remove(s.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("error removing token file: %w", err)
	}
	return nil
}
