package service

import (
	"context"
	"io"
	"testing"

	"agenda/internal/database"
	"agenda/internal/models"
	"agenda/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationService(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	db, err := database.NewDB(":memory:", &logger)
	require.NoError(t, err)
	defer db.Close()

	svc := NewLocationService(db, &logger)

	require.NoError(t, svc.Seed(ctx, []string{"Bar do Zé", "Casa de Show XYZ"}))
	require.NoError(t, svc.Seed(ctx, []string{"Outro"}))

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)

	_, err = svc.Add(ctx, "  ")
	assert.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Add(ctx, "bar do zé")
	assert.ErrorIs(t, err, database.ErrLocationExists)

	added, err := svc.Add(ctx, " Teatro Municipal ")
	require.NoError(t, err)
	assert.Equal(t, "Teatro Municipal", added.Name)

	require.NoError(t, svc.Rename(ctx, added.ID, "Teatro"))
	assert.ErrorIs(t, svc.Rename(ctx, added.ID, ""), ErrInvalidInput)

	require.NoError(t, svc.Delete(ctx, added.ID))
	assert.ErrorIs(t, svc.Delete(ctx, added.ID), database.ErrLocationNotFound)
}

func TestArtistService(t *testing.T) {
	ctx := context.Background()
	logger := zerolog.New(io.Discard)
	store := repository.NewMemoryKVStore()
	svc := NewArtistService(store, &logger)

	info, err := svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultArtistName, info.Name)

	saved, err := svc.Update(ctx, models.ArtistInfo{Name: " Banda X ", Instagram: "@bandax"})
	require.NoError(t, err)
	assert.Equal(t, "Banda X", saved.Name)

	info, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, saved, info)

	saved, err = svc.Update(ctx, models.ArtistInfo{})
	require.NoError(t, err)
	assert.Equal(t, models.DefaultArtistName, saved.Name)

	require.NoError(t, store.Set(ctx, models.KeyArtistInfo, "{broken", 0))
	info, err = svc.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultArtistName, info.Name)
}
