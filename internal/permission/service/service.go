// Package service is the permission registry: it grants, revokes and checks
// named capabilities per user.
package service

import (
	"context"
	"log/slog"
	"time"

	"civic/internal/permission/metrics"
	"civic/internal/permission/models"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	"civic/pkg/platform/audit"
	"civic/pkg/requestcontext"
)

// Store persists grants. Implementations join a transaction carried by ctx.
type Store interface {
	// Grant returns the names that were not already active.
	Grant(ctx context.Context, userID id.UserID, names []models.Name, now time.Time) ([]models.Name, error)
	Revoke(ctx context.Context, userID id.UserID, name models.Name, now time.Time) (bool, error)
	IsGranted(ctx context.Context, userID id.UserID, name models.Name) (bool, error)
	GrantedNames(ctx context.Context, userID id.UserID) (models.Set, error)
	ListByUser(ctx context.Context, userID id.UserID) ([]models.UserPermission, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service implements the registry over a Store.
type Service struct {
	store          Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Grant activates name for userID. Granting an active permission is a no-op.
func (s *Service) Grant(ctx context.Context, userID id.UserID, name models.Name) error {
	return s.GrantBundle(ctx, userID, []models.Name{name})
}

// GrantBundle activates every name for userID in one store call. Run it with a
// transactional ctx to make the bundle atomic with surrounding work. Only names
// that were not already active are counted and audited.
func (s *Service) GrantBundle(ctx context.Context, userID id.UserID, names []models.Name) error {
	if userID.IsNil() {
		return dErrors.New(dErrors.CodeValidation, "user_id is required")
	}
	changed, err := s.store.Grant(ctx, userID, uniqueNames(names), requestcontext.Now(ctx))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeDependency, "failed to grant permissions")
	}
	for _, name := range changed {
		s.metrics.IncMutation(string(name), "grant")
		if err := s.emit(ctx, audit.ActionPermissionGranted, userID, name); err != nil {
			return err
		}
	}
	return nil
}

// uniqueNames drops repeats, keeping first-seen order.
func uniqueNames(names []models.Name) []models.Name {
	if len(names) < 2 {
		return names
	}
	seen := make(map[models.Name]struct{}, len(names))
	out := make([]models.Name, 0, len(names))
	for _, n := range names {
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Revoke deactivates name for userID. Revoking an absent grant is a no-op.
func (s *Service) Revoke(ctx context.Context, userID id.UserID, name models.Name) error {
	changed, err := s.store.Revoke(ctx, userID, name, requestcontext.Now(ctx))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeDependency, "failed to revoke permission")
	}
	if !changed {
		return nil
	}
	s.metrics.IncMutation(string(name), "revoke")
	return s.emit(ctx, audit.ActionPermissionRevoked, userID, name)
}

// Check reports whether userID holds an active grant of exactly name.
func (s *Service) Check(ctx context.Context, userID id.UserID, name models.Name) (bool, error) {
	ok, err := s.store.IsGranted(ctx, userID, name)
	if err != nil {
		s.metrics.IncCheck(string(name), "error")
		return false, dErrors.Wrap(err, dErrors.CodeDependency, "failed to check permission")
	}
	if ok {
		s.metrics.IncCheck(string(name), "allowed")
	} else {
		s.metrics.IncCheck(string(name), "denied")
	}
	return ok, nil
}

// Granted returns the active grants of userID.
func (s *Service) Granted(ctx context.Context, userID id.UserID) (models.Set, error) {
	set, err := s.store.GrantedNames(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to load permissions")
	}
	return set, nil
}

// List returns every grant row of userID, including revoked ones.
func (s *Service) List(ctx context.Context, userID id.UserID) ([]models.UserPermission, error) {
	list, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to list permissions")
	}
	return list, nil
}

func (s *Service) emit(ctx context.Context, action audit.Action, userID id.UserID, name models.Name) error {
	if s.auditPublisher == nil {
		return nil
	}
	actor := ""
	if u := requestcontext.UserID(ctx); !u.IsNil() {
		actor = u.String()
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:    action,
		ActorID:   actor,
		SubjectID: userID.String(),
		TargetID:  string(name),
	})
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeDependency, "failed to record permission change")
	}
	return nil
}
