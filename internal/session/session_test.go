package session

import (
	"errors"
	"os"
	"sync"
	"testing"
)

func TestMemoryStore(t *testing.T) {
	s := NewMemoryStore()

	v, err := s.Get()
	if err != nil || v {
		t.Fatalf("Get() = %v, %v; want false, nil", v, err)
	}
	if err := s.Set(true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if v, _ := s.Get(); !v {
		t.Error("Get() should return true after Set(true)")
	}
}

func TestFileStore_RoundTripAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	id := NewID()

	s, err := NewFileStore(dir, id)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if v, err := s.Get(); err != nil || v {
		t.Fatalf("fresh store Get() = %v, %v", v, err)
	}
	if err := s.Set(true); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	// a reload in the same session sees the flag
	reloaded, err := NewFileStore(dir, id)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	if v, err := reloaded.Get(); err != nil || !v {
		t.Errorf("reloaded Get() = %v, %v; want true", v, err)
	}

	// another session does not
	other, _ := NewFileStore(dir, NewID())
	if v, _ := other.Get(); v {
		t.Error("flag leaked into another session")
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("flag file still exists after Clear: %v", err)
	}
	if v, _ := reloaded.Get(); v {
		t.Error("flag should read false after Clear")
	}
}

func TestFileStore_InvalidID(t *testing.T) {
	for _, id := range []string{"", "..", "a/b", `a\b`} {
		if _, err := NewFileStore(t.TempDir(), id); !errors.Is(err, ErrInvalidSessionID) {
			t.Errorf("NewFileStore(%q) error = %v, want ErrInvalidSessionID", id, err)
		}
	}
}

func TestFileStore_ConcurrentWriters(t *testing.T) {
	dir := t.TempDir()
	id := NewID()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s, err := NewFileStore(dir, id)
			if err != nil {
				t.Error(err)
				return
			}
			if err := s.Set(true); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	s, _ := NewFileStore(dir, id)
	if v, err := s.Get(); err != nil || !v {
		t.Errorf("Get() = %v, %v after concurrent writes", v, err)
	}
}

func TestNewID(t *testing.T) {
	if NewID() == NewID() {
		t.Error("NewID should not repeat")
	}
}
