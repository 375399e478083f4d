// README: In-process counter store; single-instance fallback for the limiter.
package ratelimit

import (
	"context"
	"sync"
	"time"
)

type localEntry struct {
	count     int64
	expiresAt time.Time
}

// LocalStore keeps counters in a mutex-guarded map. Eviction of stale
// windows is an explicit background task (Run), not ambient global state.
type LocalStore struct {
	mu      sync.Mutex
	entries map[string]*localEntry
	sweep   time.Duration
	now     func() time.Time
}

func NewLocalStore() *LocalStore {
	return &LocalStore{
		entries: make(map[string]*localEntry),
		sweep:   time.Minute,
		now:     time.Now,
	}
}

func (s *LocalStore) Incr(_ context.Context, key string, ttl time.Duration) (int64, error) {
	now := s.now()

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[key]
	if !ok || now.After(e.expiresAt) {
		e = &localEntry{expiresAt: now.Add(ttl + time.Second)}
		s.entries[key] = e
	}
	e.count++
	return e.count, nil
}

// Run sweeps expired windows until ctx is cancelled.
func (s *LocalStore) Run(ctx context.Context) {
	ticker := time.NewTicker(s.sweep)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.evict()
		}
	}
}

func (s *LocalStore) evict() {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	for key, e := range s.entries {
		if now.After(e.expiresAt) {
			delete(s.entries, key)
		}
	}
}
