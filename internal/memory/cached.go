package memory

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

const phaseCacheKey = "current_phase"

// CachedStore wraps a Store and remembers the last phase actually read from
// or written to it. When a phase read fails, the remembered value is served
// instead so a transient store outage does not strand the session. This is an
// emergency fallback at read time only: the cache never substitutes for
// writes and never invents a phase that was not seen from the store.
type CachedStore struct {
	Store
	cache *gocache.Cache
	log   *zap.Logger
}

// NewCachedStore wraps inner with a last-known-phase cache.
func NewCachedStore(inner Store, log *zap.Logger) *CachedStore {
	return &CachedStore{
		Store: inner,
		cache: gocache.New(1*time.Hour, 10*time.Minute),
		log:   log,
	}
}

func (s *CachedStore) CurrentPhase(ctx context.Context) (string, error) {
	name, err := s.Store.CurrentPhase(ctx)
	if err == nil {
		s.cache.Set(phaseCacheKey, name, gocache.DefaultExpiration)
		return name, nil
	}

	if cached, found := s.cache.Get(phaseCacheKey); found {
		s.log.Warn("phase read failed, serving last-known phase",
			zap.String("phase", cached.(string)),
			zap.Error(err))
		return cached.(string), nil
	}
	return "", err
}

func (s *CachedStore) TransitionPhase(ctx context.Context, phaseName string) error {
	if err := s.Store.TransitionPhase(ctx, phaseName); err != nil {
		return err
	}
	s.cache.Set(phaseCacheKey, phaseName, gocache.DefaultExpiration)
	return nil
}
