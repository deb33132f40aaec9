package onboarding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/fitversal/onboardchat/internal/models"
)

var ErrProfileNotFound = errors.New("onboarding profile not found")

// Persister is the storage port behind a Store. Load returns
// ErrProfileNotFound when nothing has been saved under key.
type Persister interface {
	Load(ctx context.Context, key string) ([]byte, error)
	Save(ctx context.Context, key string, data []byte) error
}

// Patch is a partial profile keyed by JSON field name.
type Patch map[string]any

// Store holds one user's onboarding profile.
type Store struct {
	mu        sync.Mutex
	persister Persister
	key       string
	profile   models.Profile
}

// NewStore loads the profile saved under key, falling back to the default
// profile when nothing was saved or the saved copy cannot be decoded.
// A nil persister yields a read-only store whose merges are no-ops.
func NewStore(ctx context.Context, persister Persister, key string) (*Store, error) {
	store := &Store{
		persister: persister,
		key:       key,
		profile:   models.DefaultProfile(),
	}
	if persister == nil {
		return store, nil
	}

	data, err := persister.Load(ctx, key)
	if err != nil {
		if errors.Is(err, ErrProfileNotFound) {
			return store, nil
		}
		return nil, fmt.Errorf("load profile: %w", err)
	}

	profile, err := decodeProfile(data)
	if err != nil {
		log.Printf("onboarding profile key=%s decode failed, using defaults: %v", key, err)
		return store, nil
	}
	store.profile = profile
	return store, nil
}

func (s *Store) Key() string {
	return s.key
}

func (s *Store) Read() models.Profile {
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneProfile(s.profile)
}

// Merge shallow-merges patch into the profile and persists the result.
// Nothing is written when the merged profile serializes identically to the
// current one.
func (s *Store) Merge(ctx context.Context, patch Patch) (models.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.persister == nil || len(patch) == 0 {
		return cloneProfile(s.profile), nil
	}

	previous, err := json.Marshal(s.profile)
	if err != nil {
		return cloneProfile(s.profile), fmt.Errorf("encode profile: %w", err)
	}

	updated, err := applyPatch(previous, patch)
	if err != nil {
		return cloneProfile(s.profile), err
	}

	encoded, err := json.Marshal(updated)
	if err != nil {
		return cloneProfile(s.profile), fmt.Errorf("encode profile: %w", err)
	}
	if bytes.Equal(encoded, previous) {
		return cloneProfile(s.profile), nil
	}

	if err := s.persister.Save(ctx, s.key, encoded); err != nil {
		return cloneProfile(s.profile), fmt.Errorf("save profile: %w", err)
	}
	s.profile = updated
	return cloneProfile(s.profile), nil
}

func applyPatch(current []byte, patch Patch) (models.Profile, error) {
	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(current, &fields); err != nil {
		return models.Profile{}, fmt.Errorf("decode profile fields: %w", err)
	}

	for key, value := range patch {
		if _, known := fields[key]; !known {
			continue
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return models.Profile{}, fmt.Errorf("encode field %s: %w", key, err)
		}
		fields[key] = raw
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return models.Profile{}, fmt.Errorf("encode merged profile: %w", err)
	}
	profile, err := decodeProfile(merged)
	if err != nil {
		return models.Profile{}, fmt.Errorf("invalid profile update: %w", err)
	}
	return profile, nil
}

func decodeProfile(data []byte) (models.Profile, error) {
	profile := models.DefaultProfile()
	if err := json.Unmarshal(data, &profile); err != nil {
		return models.DefaultProfile(), err
	}
	if profile.Days == nil {
		profile.Days = models.StringSet{}
	}
	if profile.Equipment == nil {
		profile.Equipment = models.StringSet{}
	}
	if profile.ChatHistory == nil {
		profile.ChatHistory = []models.ChatMessage{}
	}
	return profile, nil
}

func cloneProfile(profile models.Profile) models.Profile {
	clone := profile
	clone.Days = append(models.StringSet{}, profile.Days...)
	clone.Equipment = append(models.StringSet{}, profile.Equipment...)
	clone.ChatHistory = append([]models.ChatMessage{}, profile.ChatHistory...)
	if profile.SameRoutine != nil {
		sameRoutine := *profile.SameRoutine
		clone.SameRoutine = &sameRoutine
	}
	return clone
}

// MemoryPersister keeps serialized profiles in process memory.
type MemoryPersister struct {
	mu     sync.Mutex
	data   map[string][]byte
	writes int
}

func NewMemoryPersister() *MemoryPersister {
	return &MemoryPersister{data: make(map[string][]byte)}
}

func (m *MemoryPersister) Load(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	data, ok := m.data[key]
	if !ok {
		return nil, ErrProfileNotFound
	}
	return append([]byte(nil), data...), nil
}

func (m *MemoryPersister) Save(_ context.Context, key string, data []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = append([]byte(nil), data...)
	m.writes++
	return nil
}

// Writes reports how many saves have been performed.
func (m *MemoryPersister) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
