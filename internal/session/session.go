// Package session persists the "previously unlocked" flag for a browsing
// session. A session is identified by an opaque id; the flag survives
// process restarts that reuse the id.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/gofrs/flock"
	"github.com/google/uuid"
)

// ErrInvalidSessionID is returned for ids that cannot be used as file names.
var ErrInvalidSessionID = errors.New("invalid session id")

// NewID returns a fresh session id.
func NewID() string {
	return uuid.NewString()
}

// MemoryStore keeps the flag in process memory. It is what a session without
// a persistent store falls back to.
type MemoryStore struct {
	mu    sync.Mutex
	value bool
}

// NewMemoryStore creates an unset store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements autoplay.FlagStore.
func (m *MemoryStore) Get() (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.value, nil
}

// Set implements autoplay.FlagStore.
func (m *MemoryStore) Set(value bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.value = value
	return nil
}

// FileStore keeps the flag in a file named after the session. Several
// processes sharing a session coordinate through a lock file.
type FileStore struct {
	path string
	lock *flock.Flock
}

// NewFileStore creates a store for session id under dir.
func NewFileStore(dir, id string) (*FileStore, error) {
	if id == "" || strings.ContainsAny(id, `/\`) || id == "." || id == ".." {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSessionID, id)
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("create session directory: %w", err)
	}

	path := filepath.Join(dir, id+".unlocked")
	return &FileStore{
		path: path,
		lock: flock.New(path + ".lock"),
	}, nil
}

// Path returns the flag file location.
func (f *FileStore) Path() string {
	return f.path
}

// Get implements autoplay.FlagStore.
func (f *FileStore) Get() (bool, error) {
	if err := f.lock.RLock(); err != nil {
		return false, fmt.Errorf("lock session flag: %w", err)
	}
	defer f.lock.Unlock() //nolint:errcheck

	b, err := os.ReadFile(f.path)
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read session flag: %w", err)
	}
	return strings.TrimSpace(string(b)) == "true", nil
}

// Set implements autoplay.FlagStore.
func (f *FileStore) Set(value bool) error {
	if err := f.lock.Lock(); err != nil {
		return fmt.Errorf("lock session flag: %w", err)
	}
	defer f.lock.Unlock() //nolint:errcheck

	tmp := f.path + ".tmp"
	if err := os.WriteFile(tmp, []byte(fmt.Sprintf("%t\n", value)), 0o600); err != nil {
		return fmt.Errorf("write session flag: %w", err)
	}
	if err := os.Rename(tmp, f.path); err != nil {
		return fmt.Errorf("write session flag: %w", err)
	}
	return nil
}

// Clear removes the flag and its lock file.
func (f *FileStore) Clear() error {
	for _, p := range []string{f.path, f.path + ".lock"} {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("clear session flag: %w", err)
		}
	}
	return nil
}
