// Package service is the notification dispatcher: it persists notifications
// for the in-app inbox and fans them out to the push publisher.
package service

import (
	"context"
	"errors"
	"log/slog"

	"civic/internal/notification/models"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	"civic/pkg/platform/sentinel"
	"civic/pkg/requestcontext"
)

const (
	defaultInboxLimit = 50
	maxInboxLimit     = 200
)

type Store interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID id.UserID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID string) error
}

// Publisher pushes a stored notification to an external channel.
type Publisher interface {
	Publish(ctx context.Context, n *models.Notification) error
}

type Service struct {
	store     Store
	publisher Publisher
	logger    *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// WithPublisher enables push fan-out. A nil publisher is ignored.
func WithPublisher(p Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func New(store Store, opts ...Option) *Service {
	s := &Service{store: store, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue stores a notification built from draft. Push delivery is
// best-effort: a publish failure is logged and the stored notification is
// still returned.
func (s *Service) Enqueue(ctx context.Context, draft models.Draft) (*models.Notification, error) {
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	n := draft.Build(requestcontext.Now(ctx))
	if err := s.store.Create(ctx, n); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to store notification")
	}

	if s.publisher != nil {
		if err := s.publisher.Publish(ctx, n); err != nil {
			s.logger.WarnContext(ctx, "notification publish failed",
				"notification_id", n.ID,
				"user_id", n.UserID.String(),
				"type", string(n.Type),
				"error", err,
			)
		}
	}
	return n, nil
}

// ListInbox returns userID's notifications newest first.
func (s *Service) ListInbox(ctx context.Context, userID id.UserID, limit int) ([]*models.Notification, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if limit <= 0 {
		limit = defaultInboxLimit
	}
	if limit > maxInboxLimit {
		limit = maxInboxLimit
	}
	list, err := s.store.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to list notifications")
	}
	if list == nil {
		list = []*models.Notification{}
	}
	return list, nil
}

// MarkRead flags a notification owned by userID as read.
func (s *Service) MarkRead(ctx context.Context, userID id.UserID, notificationID string) error {
	nid, err := models.ParseID(notificationID)
	if err != nil {
		return err
	}
	if err := s.store.MarkRead(ctx, userID, nid); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		return dErrors.Wrap(err, dErrors.CodeDependency, "failed to update notification")
	}
	return nil
}
