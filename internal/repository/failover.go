package repository

import (
	"context"
	"sync/atomic"
	"time"

	"agenda/internal/domain"

	"github.com/rs/zerolog"
)

const recoveryInterval = time.Minute

// FailoverKVStore routes calls to primary and switches to fallback after an
// error. The primary is retried once per recoveryInterval.
type FailoverKVStore struct {
	primary   domain.KVStore
	fallback  domain.KVStore
	logger    *zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverKVStore(primary, fallback domain.KVStore, logger *zerolog.Logger) *FailoverKVStore {
	return &FailoverKVStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
}

func (r *FailoverKVStore) markDown(err error) {
	if !r.isDown.Swap(true) {
		r.logger.Error().Err(err).Msg("Primary key-value store failed, falling back to memory")
	}
	r.lastCheck.Store(time.Now().UnixNano())
}

// usePrimary reports whether the next call should go to the primary store.
func (r *FailoverKVStore) usePrimary() bool {
	if !r.isDown.Load() {
		return true
	}
	return time.Since(time.Unix(0, r.lastCheck.Load())) > recoveryInterval
}

func (r *FailoverKVStore) recovered() {
	if r.isDown.Swap(false) {
		r.logger.Info().Msg("Primary key-value store recovered")
	}
}

func (r *FailoverKVStore) Get(ctx context.Context, key string) (string, bool, error) {
	if r.usePrimary() {
		val, ok, err := r.primary.Get(ctx, key)
		if err == nil {
			r.recovered()
			return val, ok, nil
		}
		r.markDown(err)
	}
	return r.fallback.Get(ctx, key)
}

func (r *FailoverKVStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if r.usePrimary() {
		err := r.primary.Set(ctx, key, value, ttl)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return r.fallback.Set(ctx, key, value, ttl)
}

func (r *FailoverKVStore) Delete(ctx context.Context, key string) error {
	// both sides may hold the key after a failover
	fallbackErr := r.fallback.Delete(ctx, key)
	if r.usePrimary() {
		err := r.primary.Delete(ctx, key)
		if err == nil {
			r.recovered()
			return nil
		}
		r.markDown(err)
	}
	return fallbackErr
}
