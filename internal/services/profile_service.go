package services

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/fitversal/onboardchat/internal/models"
	"github.com/fitversal/onboardchat/internal/onboarding"
)

var ErrInvalidInput = errors.New("invalid input")

// StepResult is the outcome of submitting one onboarding step.
type StepResult struct {
	Profile models.Profile `json:"profile"`
	Next    string         `json:"next"`
}

// ProfileService keeps one profile store per user over a shared
// persistence port. Stores are loaded on first use and cached.
type ProfileService struct {
	persister onboarding.Persister
	now       func() time.Time

	mu     sync.Mutex
	stores map[string]*onboarding.Store
}

func NewProfileService(persister onboarding.Persister) *ProfileService {
	return &ProfileService{
		persister: persister,
		now:       time.Now,
		stores:    make(map[string]*onboarding.Store),
	}
}

func (s *ProfileService) Store(ctx context.Context, userID string) (*onboarding.Store, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidInput
	}

	s.mu.Lock()
	store, ok := s.stores[userID]
	s.mu.Unlock()
	if ok {
		return store, nil
	}

	// Load outside the lock; the first store cached for a user wins.
	loaded, err := onboarding.NewStore(ctx, s.persister, userID)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if store, ok := s.stores[userID]; ok {
		return store, nil
	}
	s.stores[userID] = loaded
	return loaded, nil
}

func (s *ProfileService) GetProfile(ctx context.Context, userID string) (models.Profile, error) {
	store, err := s.Store(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	return store.Read(), nil
}

// UpdateProfile merges a free-form patch. user_id is owned by the auth
// step and cannot be changed here.
func (s *ProfileService) UpdateProfile(ctx context.Context, userID string, patch onboarding.Patch) (models.Profile, error) {
	store, err := s.Store(ctx, userID)
	if err != nil {
		return models.Profile{}, err
	}
	delete(patch, "user_id")
	return store.Merge(ctx, patch)
}

func (s *ProfileService) SubmitAuth(ctx context.Context, identity onboarding.Identity) (StepResult, error) {
	patch, err := onboarding.AuthPatch(identity)
	if err != nil {
		return StepResult{}, err
	}
	return s.submit(ctx, identity.UID, onboarding.RouteAuth, patch)
}

func (s *ProfileService) SubmitCoachSelection(ctx context.Context, userID string, input onboarding.CoachSelectionInput) (StepResult, error) {
	patch, err := onboarding.CoachSelectionPatch(input)
	if err != nil {
		return StepResult{}, err
	}
	return s.submit(ctx, userID, onboarding.RouteCoachSelection, patch)
}

func (s *ProfileService) SubmitPersonalInfo(ctx context.Context, userID string, input onboarding.PersonalInfoInput) (StepResult, error) {
	patch, err := onboarding.PersonalInfoPatch(input, s.now())
	if err != nil {
		return StepResult{}, err
	}
	return s.submit(ctx, userID, onboarding.RoutePersonalInfo, patch)
}

func (s *ProfileService) SubmitPreferences(ctx context.Context, userID string, input onboarding.PreferencesInput) (StepResult, error) {
	patch, err := onboarding.PreferencesPatch(input)
	if err != nil {
		return StepResult{}, err
	}
	return s.submit(ctx, userID, onboarding.RoutePreferences, patch)
}

func (s *ProfileService) RecommendedCoaches(ctx context.Context, userID string) ([]models.CoachWithScore, error) {
	profile, err := s.GetProfile(ctx, userID)
	if err != nil {
		return nil, err
	}
	return onboarding.RecommendCoaches(profile), nil
}

func (s *ProfileService) submit(ctx context.Context, userID, route string, patch onboarding.Patch) (StepResult, error) {
	store, err := s.Store(ctx, userID)
	if err != nil {
		return StepResult{}, err
	}
	profile, err := store.Merge(ctx, patch)
	if err != nil {
		return StepResult{}, err
	}
	return StepResult{Profile: profile, Next: nextRoute(route)}, nil
}

func nextRoute(route string) string {
	for _, step := range onboarding.Steps() {
		if step.Route == route {
			return step.Next
		}
	}
	return ""
}
