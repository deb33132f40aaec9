package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fitversal/onboardchat/internal/onboarding"
)

func TestJSONStoreMissingKey(t *testing.T) {
	store, err := NewJSONStore(filepath.Join(t.TempDir(), "profiles"))
	require.NoError(t, err)

	_, err = store.Load(context.Background(), "nobody")
	assert.True(t, errors.Is(err, onboarding.ErrProfileNotFound))
	assert.False(t, store.Exists("nobody"))
}

func TestJSONStoreRoundTrip(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	require.NoError(t, store.Save(context.Background(), "user/with:odd chars", []byte(`{"coach_id":"coach_rory"}`)))
	assert.True(t, store.Exists("user/with:odd chars"))

	data, err := store.Load(context.Background(), "user/with:odd chars")
	require.NoError(t, err)
	assert.JSONEq(t, `{"coach_id":"coach_rory"}`, string(data))

	_, err = os.Stat(store.Path("user/with:odd chars") + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestJSONStoreRejectsInvalidJSON(t *testing.T) {
	store, err := NewJSONStore(t.TempDir())
	require.NoError(t, err)

	assert.Error(t, store.Save(context.Background(), "u1", []byte(`{broken`)))
	assert.False(t, store.Exists("u1"))
}

func TestJSONStorePersistsProfileAcrossStores(t *testing.T) {
	dir := t.TempDir()
	first, err := NewJSONStore(dir)
	require.NoError(t, err)

	profileStore, err := onboarding.NewStore(context.Background(), first, "u1")
	require.NoError(t, err)
	_, err = profileStore.Merge(context.Background(), onboarding.Patch{"days": "Monday,Friday"})
	require.NoError(t, err)

	second, err := NewJSONStore(dir)
	require.NoError(t, err)
	reloaded, err := onboarding.NewStore(context.Background(), second, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Monday,Friday", reloaded.Read().Days.Join())
}
