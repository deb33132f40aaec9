package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fitversal/onboardchat/internal/onboarding"
)

// JSONStore keeps one JSON file per profile key under a data directory.
type JSONStore struct {
	mu      sync.RWMutex
	dataDir string
}

func NewJSONStore(dataDir string) (*JSONStore, error) {
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	return &JSONStore{dataDir: dataDir}, nil
}

// Path returns the file backing key. Keys are hashed so any user id is a
// safe file name.
func (s *JSONStore) Path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(s.dataDir, hex.EncodeToString(sum[:])+".json")
}

func (s *JSONStore) Load(_ context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(s.Path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, onboarding.ErrProfileNotFound
		}
		return nil, err
	}
	return data, nil
}

// Save writes through a temp file and rename so readers never see a
// partial profile.
func (s *JSONStore) Save(_ context.Context, key string, data []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, data, "", "  "); err != nil {
		return fmt.Errorf("profile is not valid JSON: %w", err)
	}
	pretty.WriteByte('\n')

	target := s.Path(key)
	tempFile := target + ".tmp"
	if err := os.WriteFile(tempFile, pretty.Bytes(), 0o644); err != nil {
		os.Remove(tempFile)
		return err
	}
	return os.Rename(tempFile, target)
}

func (s *JSONStore) Exists(key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, err := os.Stat(s.Path(key))
	return err == nil
}
