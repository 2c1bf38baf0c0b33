// Package config holds runtime settings: process-level values read from the
// environment at startup, and a small persistent key/value store for
// user-supplied configuration such as API keys.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"

	"github.com/fbconsulting/leadpilot/domain/repositories"
)

// FileStore implements ConfigStore on top of a single JSON file. Writes go
// through a temp file and rename so a crash never leaves a half-written
// store.
type FileStore struct {
	path   string
	mu     sync.Mutex
	values map[string]string
	logger *zap.Logger
}

var _ repositories.ConfigStore = (*FileStore)(nil)

// NewFileStore opens or creates the store at path. A missing file is an
// empty store, not an error.
func NewFileStore(path string, logger *zap.Logger) (*FileStore, error) {
	store := &FileStore{
		path:   path,
		values: make(map[string]string),
		logger: logger,
	}

	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		logger.Info("Config store starting empty", zap.String("path", path))
		return store, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config store: %w", err)
	}

	if err := json.Unmarshal(data, &store.values); err != nil {
		return nil, fmt.Errorf("failed to parse config store: %w", err)
	}

	logger.Info("Loaded config store",
		zap.String("path", path),
		zap.Int("keys", len(store.values)))
	return store, nil
}

// Get returns the stored value for key and whether it exists.
func (s *FileStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// Set stores a value and flushes to disk immediately.
func (s *FileStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
	return s.flushLocked()
}

// Clear removes every stored value and the backing file's contents.
func (s *FileStore) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values = make(map[string]string)
	return s.flushLocked()
}

func (s *FileStore) flushLocked() error {
	data, err := json.MarshalIndent(s.values, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config store: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config store: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace config store: %w", err)
	}
	return nil
}
