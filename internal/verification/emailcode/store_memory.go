package emailcode

import (
	"context"
	"sync"
	"time"

	id "civic/pkg/domain"
	"civic/pkg/platform/sentinel"
	"civic/pkg/requestcontext"
)

type memoryEntry struct {
	rec       Record
	attempts  int
	expiresAt time.Time
}

// InMemory is the single-process Store used without REDIS_URL.
type InMemory struct {
	mu      sync.Mutex
	entries map[id.UserID]*memoryEntry
}

func NewInMemory() *InMemory {
	return &InMemory{entries: make(map[id.UserID]*memoryEntry)}
}

func (s *InMemory) Save(ctx context.Context, userID id.UserID, rec Record, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[userID] = &memoryEntry{rec: rec, expiresAt: requestcontext.Now(ctx).Add(ttl)}
	return nil
}

func (s *InMemory) Consume(ctx context.Context, userID id.UserID) (*Record, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[userID]
	if !ok {
		return nil, 0, sentinel.ErrNotFound
	}
	if !requestcontext.Now(ctx).Before(e.expiresAt) {
		delete(s.entries, userID)
		return nil, 0, sentinel.ErrNotFound
	}
	e.attempts++
	rec := e.rec
	return &rec, e.attempts, nil
}

func (s *InMemory) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, userID)
	return nil
}
