package onboarding

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitversal/onboardchat/internal/models"
)

type failingPersister struct {
	loadErr error
	saveErr error
	data    []byte
}

func (f *failingPersister) Load(_ context.Context, _ string) ([]byte, error) {
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	return f.data, nil
}

func (f *failingPersister) Save(_ context.Context, _ string, _ []byte) error {
	return f.saveErr
}

func TestNewStoreDefaultsWhenNothingSaved(t *testing.T) {
	store, err := NewStore(context.Background(), NewMemoryPersister(), "u1")
	require.NoError(t, err)

	profile := store.Read()
	assert.Equal(t, "cm", profile.HeightUnit)
	assert.Equal(t, "kg", profile.WeightUnit)
	assert.Equal(t, "bodyweight", profile.Type)
	assert.Equal(t, models.FlexInt(45), profile.SessionDurationMinutes)
	assert.Equal(t, []models.ChatMessage{{Role: models.RoleSystem, Content: ""}}, profile.ChatHistory)
}

func TestNewStoreDefaultsWhenSavedCopyIsCorrupt(t *testing.T) {
	store, err := NewStore(context.Background(), &failingPersister{data: []byte("{not json")}, "u1")
	require.NoError(t, err)
	assert.Equal(t, models.DefaultProfile(), store.Read())
}

func TestNewStoreSurfacesStorageErrors(t *testing.T) {
	_, err := NewStore(context.Background(), &failingPersister{loadErr: errors.New("disk gone")}, "u1")
	require.Error(t, err)
}

func TestNewStoreReadsLegacyCommaJoinedSets(t *testing.T) {
	persister := NewMemoryPersister()
	require.NoError(t, persister.Save(context.Background(), "u1", []byte(`{"days":"Monday,Wednesday,Monday","equipment":"Dumbbells","age":"34"}`)))

	store, err := NewStore(context.Background(), persister, "u1")
	require.NoError(t, err)

	profile := store.Read()
	assert.Equal(t, models.StringSet{"Monday", "Wednesday"}, profile.Days)
	assert.Equal(t, models.StringSet{"Dumbbells"}, profile.Equipment)
	assert.Equal(t, models.FlexInt(34), profile.Age)
	assert.Equal(t, "cm", profile.HeightUnit)
}

func TestMergeAppliesShallowPatchAndPersists(t *testing.T) {
	persister := NewMemoryPersister()
	store, err := NewStore(context.Background(), persister, "u1")
	require.NoError(t, err)

	profile, err := store.Merge(context.Background(), Patch{"coach_id": "coach_kate", "gender": "Female"})
	require.NoError(t, err)
	assert.Equal(t, "coach_kate", profile.CoachID)
	assert.Equal(t, "Female", profile.Gender)
	assert.Equal(t, 1, persister.Writes())

	reloaded, err := NewStore(context.Background(), persister, "u1")
	require.NoError(t, err)
	assert.Equal(t, "coach_kate", reloaded.Read().CoachID)
}

func TestMergeWithoutNetChangeSkipsWrite(t *testing.T) {
	persister := NewMemoryPersister()
	store, err := NewStore(context.Background(), persister, "u1")
	require.NoError(t, err)

	_, err = store.Merge(context.Background(), Patch{"level": "Beginner", "days": []string{"Monday"}})
	require.NoError(t, err)
	require.Equal(t, 1, persister.Writes())

	patches := []Patch{
		{"level": "Beginner"},
		{"days": []string{"Monday"}},
		{"days": "Monday"},
		{"days": []string{"Monday", "Monday"}},
		{"height_unit": "cm", "weight_unit": "kg"},
		{"not_a_profile_field": "ignored"},
		{},
	}
	for _, patch := range patches {
		_, err := store.Merge(context.Background(), patch)
		require.NoError(t, err)
	}
	assert.Equal(t, 1, persister.Writes())
}

func TestMergeNeverProducesDuplicateSetEntries(t *testing.T) {
	store, err := NewStore(context.Background(), NewMemoryPersister(), "u1")
	require.NoError(t, err)

	profile, err := store.Merge(context.Background(), Patch{
		"days":      []string{"Monday", " Monday", "Friday", ""},
		"equipment": "Dumbbells,Barbells,Dumbbells",
	})
	require.NoError(t, err)
	assert.Equal(t, models.StringSet{"Monday", "Friday"}, profile.Days)
	assert.Equal(t, models.StringSet{"Dumbbells", "Barbells"}, profile.Equipment)
}

func TestMergeWithoutPersisterIsNoOp(t *testing.T) {
	store, err := NewStore(context.Background(), nil, "u1")
	require.NoError(t, err)

	profile, err := store.Merge(context.Background(), Patch{"coach_id": "coach_matt"})
	require.NoError(t, err)
	assert.Empty(t, profile.CoachID)
	assert.Empty(t, store.Read().CoachID)
}

func TestMergeKeepsPreviousProfileWhenSaveFails(t *testing.T) {
	persister := &failingPersister{loadErr: ErrProfileNotFound, saveErr: errors.New("quota exceeded")}
	store, err := NewStore(context.Background(), persister, "u1")
	require.NoError(t, err)

	_, err = store.Merge(context.Background(), Patch{"coach_id": "coach_matt"})
	require.Error(t, err)
	assert.Empty(t, store.Read().CoachID)
}

func TestMergeRejectsMistypedValues(t *testing.T) {
	store, err := NewStore(context.Background(), NewMemoryPersister(), "u1")
	require.NoError(t, err)

	_, err = store.Merge(context.Background(), Patch{"gender": 12})
	require.Error(t, err)
}

func TestReadReturnsIndependentCopy(t *testing.T) {
	store, err := NewStore(context.Background(), NewMemoryPersister(), "u1")
	require.NoError(t, err)
	_, err = store.Merge(context.Background(), Patch{"days": []string{"Monday"}})
	require.NoError(t, err)

	profile := store.Read()
	profile.Days[0] = "Sunday"
	profile.ChatHistory[0].Content = "mutated"

	assert.Equal(t, models.StringSet{"Monday"}, store.Read().Days)
	assert.Equal(t, "", store.Read().ChatHistory[0].Content)
}
