package indexer

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Lock is an exclusive writer lock on an index directory, held as the file <dir>.lock.
type Lock struct {
	path  string
	token string
}

// LockPath returns the lock file path for an index directory.
func LockPath(dir string) string {
	return filepath.Clean(dir) + ".lock"
}

// AcquireLock creates the lock file. If another writer holds it, ErrLocked is returned.
func AcquireLock(dir string) (*Lock, error) {
	path := LockPath(dir)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index parent directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if errors.Is(err, fs.ErrExist) {
		return nil, fmt.Errorf("%w (remove %s if no ingest is running)", ErrLocked, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to create lock: %w", err)
	}
	token := uuid.NewString()
	_, werr := f.WriteString(token)
	if cerr := f.Close(); werr == nil {
		werr = cerr
	}
	if werr != nil {
		_ = os.Remove(path)
		return nil, fmt.Errorf("failed to write lock: %w", werr)
	}
	return &Lock{path: path, token: token}, nil
}

// Release removes the lock file if it still holds this lock's token.
func (l *Lock) Release() error {
	data, err := os.ReadFile(l.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return err
	}
	if strings.TrimSpace(string(data)) != l.token {
		return fmt.Errorf("lock %s is held by another writer", l.path)
	}
	return os.Remove(l.path)
}
