package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"childhealth/internal/app/client/syncer"
)

// IdentityFile keeps the signed in worker and the bearer token on disk so
// that later invocations of the CLI stay authenticated.
type IdentityFile struct {
	path string

	mu      sync.RWMutex
	current *syncer.Identity
}

func NewIdentityFile(path string) (*IdentityFile, error) {
	f := &IdentityFile{path: path}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return f, nil
	case err != nil:
		return nil, fmt.Errorf("read identity: %w", err)
	}

	var id syncer.Identity
	if err := json.Unmarshal(data, &id); err != nil {
		// A corrupted file means signed out.
		_ = os.Remove(path)
		return f, nil
	}
	f.current = &id

	return f, nil
}

// Identity implements syncer.IdentityProvider.
func (f *IdentityFile) Identity() (syncer.Identity, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()

	if f.current == nil {
		return syncer.Identity{}, false
	}
	return *f.current, true
}

func (f *IdentityFile) Save(id syncer.Identity) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	data, err := json.MarshalIndent(id, "", "  ")
	if err != nil {
		return fmt.Errorf("encode identity: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(f.path), 0o700); err != nil {
		return fmt.Errorf("create identity dir: %w", err)
	}
	if err := os.WriteFile(f.path, data, 0o600); err != nil {
		return fmt.Errorf("write identity: %w", err)
	}

	f.current = &id
	return nil
}

func (f *IdentityFile) Clear() error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.current = nil
	if err := os.Remove(f.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove identity: %w", err)
	}
	return nil
}
