package repository

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *mockStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}

func (m *mockStore) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func TestFailoverKVStore(t *testing.T) {
	primary := new(mockStore)
	fallback := NewMemoryKVStore()
	logger := zerolog.New(io.Discard)
	store := NewFailoverKVStore(primary, fallback, &logger)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary.On("Get", ctx, "a").Return("1", true, nil).Once()

		val, ok, err := store.Get(ctx, "a")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "1", val)
		primary.AssertExpectations(t)
	})

	t.Run("PrimaryFailFallback", func(t *testing.T) {
		primary.On("Set", ctx, "b", "2", time.Duration(0)).Return(errors.New("connection refused")).Once()

		require.NoError(t, store.Set(ctx, "b", "2", 0))
		assert.True(t, store.isDown.Load())

		// while down, primary is not consulted
		val, ok, err := store.Get(ctx, "b")
		require.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, "2", val)
		primary.AssertExpectations(t)
	})

	t.Run("Recovery", func(t *testing.T) {
		store.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("Get", ctx, "c").Return("3", true, nil).Once()

		val, _, err := store.Get(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, "3", val)
		assert.False(t, store.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("RecoveryFails", func(t *testing.T) {
		primary.On("Get", ctx, "d").Return("", false, errors.New("down")).Once()
		_, ok, err := store.Get(ctx, "d")
		require.NoError(t, err)
		assert.False(t, ok)
		assert.True(t, store.isDown.Load())

		store.lastCheck.Store(time.Now().Add(-2 * time.Minute).UnixNano())
		primary.On("Get", ctx, "d").Return("", false, errors.New("still down")).Once()
		_, _, err = store.Get(ctx, "d")
		require.NoError(t, err)
		assert.True(t, store.isDown.Load())
		primary.AssertExpectations(t)
	})

	t.Run("DeleteClearsBoth", func(t *testing.T) {
		store.isDown.Store(false)
		require.NoError(t, fallback.Set(ctx, "e", "x", 0))
		primary.On("Delete", ctx, "e").Return(nil).Once()

		require.NoError(t, store.Delete(ctx, "e"))
		_, ok, _ := fallback.Get(ctx, "e")
		assert.False(t, ok)
		primary.AssertExpectations(t)
	})
}
