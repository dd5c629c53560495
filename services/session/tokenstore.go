package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/spf13/afero"

	"sentinel/models"
)

// ErrStorageDirRequired is returned when no storage directory is provided.
var ErrStorageDirRequired = errors.New("storage directory not provided")

const tokensFileName = "tokens.json"

// TokenStore persists the access/refresh token pair across console runs.
// It is the single source of truth for the current credentials: the gateway
// re-reads it on every request, so a refresh performed by one caller is
// visible to the next without extra coordination.
type TokenStore struct {
	mu   sync.RWMutex
	fs   afero.Fs
	path string
}

// NewTokenStore creates a token store backed by the given filesystem,
// writing tokens.json inside storageDir.
func NewTokenStore(fs afero.Fs, storageDir string) (*TokenStore, error) {
	if strings.TrimSpace(storageDir) == "" {
		return nil, ErrStorageDirRequired
	}
	if fs == nil {
		fs = afero.NewOsFs()
	}

	if err := fs.MkdirAll(storageDir, 0o755); err != nil {
		return nil, fmt.Errorf("create token storage dir: %w", err)
	}

	return &TokenStore{
		fs:   fs,
		path: filepath.Join(storageDir, tokensFileName),
	}, nil
}

// Load reads the persisted token pair. A missing file is not an error; it
// returns an empty pair.
func (s *TokenStore) Load() (models.TokenPair, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := afero.ReadFile(s.fs, s.path)
	if errors.Is(err, os.ErrNotExist) {
		return models.TokenPair{}, nil
	}
	if err != nil {
		return models.TokenPair{}, fmt.Errorf("read tokens file: %w", err)
	}

	var pair models.TokenPair
	if err := json.Unmarshal(data, &pair); err != nil {
		return models.TokenPair{}, fmt.Errorf("decode tokens: %w", err)
	}

	return pair, nil
}

// Save writes the token pair to disk via a temp file and rename so a crash
// mid-write never leaves a torn file.
func (s *TokenStore) Save(pair models.TokenPair) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(pair, "", "  ")
	if err != nil {
		return fmt.Errorf("encode tokens: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := afero.WriteFile(s.fs, tmp, data, 0o600); err != nil {
		return fmt.Errorf("write tokens temp file: %w", err)
	}

	if err := s.fs.Rename(tmp, s.path); err != nil {
		_ = s.fs.Remove(tmp)
		return fmt.Errorf("replace tokens file: %w", err)
	}

	return nil
}

// Clear deletes the persisted pair. Clearing an already-empty store is a
// no-op.
func (s *TokenStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := s.fs.Remove(s.path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove tokens file: %w", err)
	}
	return nil
}
