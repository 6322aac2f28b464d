// Package store persists identity verifications.
package store

import (
	"context"
	"sort"
	"sync"

	"civic/internal/verification/models"
	id "civic/pkg/domain"
	"civic/pkg/platform/sentinel"
)

// InMemory keeps verifications in process. Used without DATABASE_URL and in tests.
type InMemory struct {
	mu      sync.Mutex
	records map[id.VerificationID]*models.Verification
	pending map[id.UserID]id.VerificationID
}

func NewInMemory() *InMemory {
	return &InMemory{
		records: make(map[id.VerificationID]*models.Verification),
		pending: make(map[id.UserID]id.VerificationID),
	}
}

// CreatePending stores v. It returns sentinel.ErrConflict when the user
// already has a pending record.
func (s *InMemory) CreatePending(_ context.Context, v *models.Verification) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.pending[v.UserID]; ok {
		return sentinel.ErrConflict
	}
	cp := *v
	s.records[v.ID] = &cp
	s.pending[v.UserID] = v.ID
	return nil
}

func (s *InMemory) FindByID(_ context.Context, vid id.VerificationID) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.records[vid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(v), nil
}

func (s *InMemory) FindPendingByUser(_ context.Context, userID id.UserID) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	vid, ok := s.pending[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(s.records[vid]), nil
}

// LatestDecided returns the user's most recently decided record.
func (s *InMemory) LatestDecided(_ context.Context, userID id.UserID) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *models.Verification
	for _, v := range s.records {
		if v.UserID != userID || v.DecidedAt == nil {
			continue
		}
		if latest == nil || v.DecidedAt.After(*latest.DecidedAt) {
			latest = v
		}
	}
	if latest == nil {
		return nil, sentinel.ErrNotFound
	}
	return clone(latest), nil
}

// Execute runs validate then mutate on the record under the store lock, so no
// other Execute can interleave between the check and the transition.
func (s *InMemory) Execute(_ context.Context, vid id.VerificationID, validate func(*models.Verification) error, mutate func(*models.Verification)) (*models.Verification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok := s.records[vid]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	working := clone(v)
	if err := validate(working); err != nil {
		return nil, err
	}
	mutate(working)

	s.records[vid] = working
	if working.State != models.StatePending {
		delete(s.pending, working.UserID)
	}
	return clone(working), nil
}

// List returns records oldest first, optionally filtered by state.
func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Verification, error) {
	filter = filter.Normalize()

	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*models.Verification, 0, len(s.records))
	for _, v := range s.records {
		if filter.State != "" && v.State != filter.State {
			continue
		}
		out = append(out, clone(v))
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func clone(v *models.Verification) *models.Verification {
	cp := *v
	if v.ReviewerID != nil {
		r := *v.ReviewerID
		cp.ReviewerID = &r
	}
	if v.DecidedAt != nil {
		d := *v.DecidedAt
		cp.DecidedAt = &d
	}
	return &cp
}
