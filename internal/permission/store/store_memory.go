// Package store persists the permission catalog and user grants.
package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"civic/internal/permission/models"
	id "civic/pkg/domain"
)

// InMemory keeps grants in process. Used without DATABASE_URL and in tests.
type InMemory struct {
	mu      sync.RWMutex
	catalog map[models.Name]*models.Permission
	grants  map[id.UserID]map[models.Name]*models.UserPermission
}

func NewInMemory() *InMemory {
	return &InMemory{
		catalog: make(map[models.Name]*models.Permission),
		grants:  make(map[id.UserID]map[models.Name]*models.UserPermission),
	}
}

// Grant upserts active grants for names. Already-active grants keep their
// original GrantedAt.
func (s *InMemory) Grant(_ context.Context, userID id.UserID, names []models.Name, now time.Time) ([]models.Name, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	userGrants, ok := s.grants[userID]
	if !ok {
		userGrants = make(map[models.Name]*models.UserPermission)
		s.grants[userID] = userGrants
	}
	var changed []models.Name
	for _, name := range names {
		perm := s.ensurePermission(name)
		existing, ok := userGrants[name]
		if ok && existing.IsGranted {
			continue
		}
		userGrants[name] = &models.UserPermission{
			UserID:       userID,
			PermissionID: perm.ID,
			Name:         name,
			IsGranted:    true,
			GrantedAt:    now,
		}
		changed = append(changed, name)
	}
	return changed, nil
}

func (s *InMemory) ensurePermission(name models.Name) *models.Permission {
	if p, ok := s.catalog[name]; ok {
		return p
	}
	p := &models.Permission{
		ID:          id.NewPermissionID(),
		Name:        name,
		Description: name.Description(),
		IsActive:    true,
	}
	s.catalog[name] = p
	return p
}

// Revoke deactivates a grant. It reports whether an active grant existed.
func (s *InMemory) Revoke(_ context.Context, userID id.UserID, name models.Name, now time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	g, ok := s.grants[userID][name]
	if !ok || !g.IsGranted {
		return false, nil
	}
	revokedAt := now
	g.IsGranted = false
	g.RevokedAt = &revokedAt
	return true, nil
}

// IsGranted reports an active grant of an active permission.
func (s *InMemory) IsGranted(_ context.Context, userID id.UserID, name models.Name) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.grants[userID][name]
	if !ok || !g.IsGranted {
		return false, nil
	}
	p, ok := s.catalog[name]
	return ok && p.IsActive, nil
}

// GrantedNames returns the set of active grants for userID.
func (s *InMemory) GrantedNames(_ context.Context, userID id.UserID) (models.Set, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	set := make(models.Set)
	for name, g := range s.grants[userID] {
		if g.IsGranted && s.catalog[name].IsActive {
			set[name] = true
		}
	}
	return set, nil
}

// ListByUser returns every grant row for userID, active or not, by name.
func (s *InMemory) ListByUser(_ context.Context, userID id.UserID) ([]models.UserPermission, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]models.UserPermission, 0, len(s.grants[userID]))
	for _, g := range s.grants[userID] {
		out = append(out, *g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// SetActive toggles a catalog entry. Deactivated permissions fail every check.
func (s *InMemory) SetActive(_ context.Context, name models.Name, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensurePermission(name).IsActive = active
	return nil
}
