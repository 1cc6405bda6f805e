package settings_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kkkkikiki/quizgift/internal/repository"
	"github.com/kkkkikiki/quizgift/internal/settings"
	"github.com/kkkkikiki/quizgift/internal/testutil"
)

func newStore(t *testing.T) *settings.Store {
	t.Helper()
	db := testutil.SetupDB(t)
	store, err := settings.NewStore(db.Conn, repository.NewOptionRepository(db.Tables))
	require.NoError(t, err)
	return store
}

func TestStore_DefaultsAndOverrides(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	v, err := store.Get(ctx, settings.PassScore)
	require.NoError(t, err)
	assert.Equal(t, "7", v)

	require.NoError(t, store.Set(ctx, settings.PassScore, "9"))
	n, err := store.Int(ctx, settings.PassScore)
	require.NoError(t, err)
	assert.Equal(t, 9, n)

	require.NoError(t, store.Reset(ctx, settings.PassScore))
	n, err = store.Int(ctx, settings.PassScore)
	require.NoError(t, err)
	assert.Equal(t, 7, n)
}

func TestStore_Bool(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	retake, err := store.Bool(ctx, settings.AllowRetake)
	require.NoError(t, err)
	assert.False(t, retake)

	require.NoError(t, store.Set(ctx, settings.AllowRetake, "yes"))
	retake, err = store.Bool(ctx, settings.AllowRetake)
	require.NoError(t, err)
	assert.True(t, retake)
}

func TestStore_IntFallsBackOnGarbage(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	require.NoError(t, store.Set(ctx, settings.ResultsPerPage, "lots"))
	n, err := store.Int(ctx, settings.ResultsPerPage)
	require.NoError(t, err)
	assert.Equal(t, 50, n)
}

func TestStore_UnknownKey(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)

	_, err := store.Get(ctx, "colour")
	assert.ErrorIs(t, err, settings.ErrUnknownSetting)
	assert.ErrorIs(t, store.Set(ctx, "colour", "red"), settings.ErrUnknownSetting)
}

func TestStore_All(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	require.NoError(t, store.Set(ctx, settings.QuestionsPerQuiz, "20"))

	all, err := store.All(ctx)
	require.NoError(t, err)
	require.Len(t, all, len(settings.Defaults))

	for _, s := range all {
		if s.Key == settings.QuestionsPerQuiz {
			assert.True(t, s.Overridden)
			assert.Equal(t, "20", s.Value)
			assert.Equal(t, "10", s.Default)
		} else {
			assert.False(t, s.Overridden, s.Key)
		}
	}
}

func TestProvinces(t *testing.T) {
	assert.Len(t, settings.Provinces, 63)
	assert.Equal(t, "Hồ Chí Minh", settings.ProvinceName("79"))
	assert.Equal(t, "XX", settings.ProvinceName("XX"))
}
