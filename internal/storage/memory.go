package storage

import (
	"context"
	"sync"
	"time"

	"github.com/jellydator/ttlcache/v3"
)

// MemoryScope keeps values in process memory. A non-zero ttl makes entries
// expire on their own, which suits the short-lived token scope.
type MemoryScope struct {
	mu    sync.Mutex
	cache *ttlcache.Cache[string, string]
}

var _ Scope = (*MemoryScope)(nil)

func NewMemoryScope(ttl time.Duration) *MemoryScope {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, string](ttl),
		ttlcache.WithDisableTouchOnHit[string, string](),
	)
	return &MemoryScope{cache: cache}
}

func (s *MemoryScope) Get(_ context.Context, key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	item := s.cache.Get(key)
	if item == nil || item.IsExpired() {
		return "", false, nil
	}
	return item.Value(), true, nil
}

func (s *MemoryScope) Set(_ context.Context, values map[string]string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for k, v := range values {
		s.cache.Set(k, v, ttlcache.DefaultTTL)
	}
	return nil
}

func (s *MemoryScope) Delete(_ context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		s.cache.Delete(k)
	}
	return nil
}

// Len returns the number of live entries.
func (s *MemoryScope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cache.DeleteExpired()
	return s.cache.Len()
}
