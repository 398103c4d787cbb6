package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"candlestand-api/internal/cache"
	"candlestand-api/internal/model"

	"go.uber.org/zap"
)

// CachedStore caches stand lookups by serial number in front of another Store.
// Every stand update invalidates the cached record.
type CachedStore struct {
	Store
	cache cache.Cache
	ttl   time.Duration
	log   *zap.Logger
}

// NewCachedStore wraps store with a read-through stand cache.
func NewCachedStore(store Store, c cache.Cache, ttl time.Duration, log *zap.Logger) *CachedStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &CachedStore{Store: store, cache: c, ttl: ttl, log: log.Named("CachedStore")}
}

func standKey(serialNumber string) string {
	return "stand:serial:" + serialNumber
}

func sessionKey(sessionID string) string {
	return "stand:stid:" + sessionID
}

// FindStandBySerial serves the stand from cache, falling back to the store.
func (r *CachedStore) FindStandBySerial(ctx context.Context, serialNumber string) (*model.Stand, error) {
	data, err := r.cache.Get(ctx, standKey(serialNumber))
	if err == nil {
		var stand model.Stand
		if err := json.Unmarshal(data, &stand); err == nil {
			return &stand, nil
		}
		r.log.Warn("dropping undecodable entry", zap.String("serial", serialNumber))
		if delErr := r.cache.Delete(ctx, standKey(serialNumber)); delErr != nil {
			r.log.Warn("cache invalidation failed", zap.String("serial", serialNumber), zap.Error(delErr))
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		r.log.Warn("cache read failed", zap.String("serial", serialNumber), zap.Error(err))
	}

	stand, err := r.Store.FindStandBySerial(ctx, serialNumber)
	if err != nil {
		return nil, err
	}
	r.remember(ctx, stand)
	return stand, nil
}

// CreateStand inserts the stand and primes the cache with it.
func (r *CachedStore) CreateStand(ctx context.Context, stand *model.Stand) error {
	if err := r.Store.CreateStand(ctx, stand); err != nil {
		return err
	}
	r.remember(ctx, stand)
	return nil
}

// UpdateStand updates the stand and evicts its cached record.
func (r *CachedStore) UpdateStand(ctx context.Context, sessionID string, update model.StandUpdate) error {
	err := r.Store.UpdateStand(ctx, sessionID, update)

	serial, cacheErr := r.cache.Get(ctx, sessionKey(sessionID))
	if cacheErr == nil {
		if delErr := r.cache.Delete(ctx, standKey(string(serial))); delErr != nil {
			r.log.Warn("cache invalidation failed", zap.String("stid", sessionID), zap.Error(delErr))
		}
	}
	return err
}

// remember stores the stand first and the session mapping second so the
// mapping never expires before the record it points to.
func (r *CachedStore) remember(ctx context.Context, stand *model.Stand) {
	data, err := json.Marshal(stand)
	if err != nil {
		return
	}
	if err := r.cache.Set(ctx, standKey(stand.SerialNumber), data, r.ttl); err != nil {
		r.log.Warn("cache write failed", zap.String("serial", stand.SerialNumber), zap.Error(err))
		return
	}
	if err := r.cache.Set(ctx, sessionKey(stand.SessionID), []byte(stand.SerialNumber), r.ttl); err != nil {
		r.log.Warn("cache write failed", zap.String("stid", stand.SessionID), zap.Error(err))
	}
}

// GetStats adds cache information to the wrapped store's statistics.
func (r *CachedStore) GetStats(ctx context.Context) (map[string]interface{}, error) {
	stats, err := r.Store.GetStats(ctx)
	if err != nil {
		return nil, err
	}
	stats["cache_ttl"] = r.ttl.String()
	return stats, nil
}

// Close closes the wrapped store and the cache.
func (r *CachedStore) Close() error {
	cacheErr := r.cache.Close()
	if err := r.Store.Close(); err != nil {
		return err
	}
	return cacheErr
}

var _ Store = (*CachedStore)(nil)
