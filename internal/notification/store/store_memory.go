// Package store persists notifications, the source of truth for the inbox.
package store

import (
	"context"
	"sort"
	"sync"

	"civic/internal/notification/models"
	id "civic/pkg/domain"
	"civic/pkg/platform/sentinel"
)

// InMemory keeps notifications in process. Used without DATABASE_URL and in tests.
type InMemory struct {
	mu     sync.RWMutex
	byUser map[id.UserID][]*models.Notification
}

func NewInMemory() *InMemory {
	return &InMemory{byUser: make(map[id.UserID][]*models.Notification)}
}

func (s *InMemory) Create(_ context.Context, n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := clone(n)
	s.byUser[n.UserID] = append(s.byUser[n.UserID], cp)
	return nil
}

// ListByUser returns up to limit notifications, newest first.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID, limit int) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	src := s.byUser[userID]
	out := make([]*models.Notification, 0, len(src))
	for _, n := range src {
		out = append(out, clone(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkRead flags one of userID's notifications as read. It returns
// sentinel.ErrNotFound when the id does not belong to userID.
func (s *InMemory) MarkRead(_ context.Context, userID id.UserID, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.byUser[userID] {
		if n.ID == notificationID {
			n.IsRead = true
			return nil
		}
	}
	return sentinel.ErrNotFound
}

func clone(n *models.Notification) *models.Notification {
	cp := *n
	cp.Metadata = make(map[string]string, len(n.Metadata))
	for k, v := range n.Metadata {
		cp.Metadata[k] = v
	}
	return &cp
}
