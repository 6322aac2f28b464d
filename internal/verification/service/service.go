// Package service implements the identity-verification workflow: intake,
// administrative adjudication, status reporting and email confirmation.
//
// Decisions run in one unit of work. The store's Execute holds the record
// lock (mutex or FOR UPDATE) across the pending check and the transition,
// and the permission bundle is granted inside the same transaction, so two
// concurrent approvals can never both grant. Notifications are enqueued
// after commit; their failures are logged and never undo a decision.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	notification "civic/internal/notification/models"
	permission "civic/internal/permission/models"
	"civic/internal/verification/metrics"
	"civic/internal/verification/models"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	"civic/pkg/email"
	"civic/pkg/platform/audit"
	"civic/pkg/platform/sentinel"
	"civic/pkg/platform/tx"
	"civic/pkg/requestcontext"
)

var tracer = otel.Tracer("civic/verification")

// Store persists verifications. Implementations join a transaction in ctx.
type Store interface {
	CreatePending(ctx context.Context, v *models.Verification) error
	FindByID(ctx context.Context, vid id.VerificationID) (*models.Verification, error)
	FindPendingByUser(ctx context.Context, userID id.UserID) (*models.Verification, error)
	LatestDecided(ctx context.Context, userID id.UserID) (*models.Verification, error)
	Execute(ctx context.Context, vid id.VerificationID, validate func(*models.Verification) error, mutate func(*models.Verification)) (*models.Verification, error)
	List(ctx context.Context, filter models.ListFilter) ([]*models.Verification, error)
}

// PermissionRegistry is the part of the permission service the workflow drives.
type PermissionRegistry interface {
	Grant(ctx context.Context, userID id.UserID, name permission.Name) error
	GrantBundle(ctx context.Context, userID id.UserID, names []permission.Name) error
	Granted(ctx context.Context, userID id.UserID) (permission.Set, error)
}

// Notifier enqueues user notifications.
type Notifier interface {
	Enqueue(ctx context.Context, draft notification.Draft) (*notification.Notification, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// EmailCodes issues and checks email verification codes.
type EmailCodes interface {
	Issue(ctx context.Context, userID id.UserID, addr string) (string, error)
	Verify(ctx context.Context, userID id.UserID, code string) (string, error)
	TTL() time.Duration
}

type Service struct {
	store          Store
	permissions    PermissionRegistry
	tx             tx.Runner
	notifier       Notifier
	auditPublisher AuditPublisher
	emailCodes     EmailCodes
	emailSender    email.Sender
	logger         *slog.Logger
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

func WithAuditPublisher(p AuditPublisher) Option {
	return func(s *Service) { s.auditPublisher = p }
}

// WithEmailCodes enables the email verification level.
func WithEmailCodes(codes EmailCodes, sender email.Sender) Option {
	return func(s *Service) {
		s.emailCodes = codes
		s.emailSender = sender
	}
}

// New builds the workflow. runner scopes each decision; pass tx.Passthrough
// with in-memory stores.
func New(store Store, permissions PermissionRegistry, runner tx.Runner, opts ...Option) *Service {
	s := &Service{
		store:       store,
		permissions: permissions,
		tx:          runner,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Submit opens a pending verification for userID. It is idempotent: an
// existing pending record is returned with created=false, as is the approved
// record of an already verified user. Concurrent submits collapse onto the
// record that won the insert.
func (s *Service) Submit(ctx context.Context, userID id.UserID, submittedEmail string, termsAgreed bool) (_ *models.Verification, created bool, err error) {
	ctx, span := tracer.Start(ctx, "verification.Submit", trace.WithAttributes(attribute.String("user.id", userID.String())))
	defer func() { endSpan(span, err) }()

	candidate, err := models.NewPending(id.NewVerificationID(), userID, submittedEmail, termsAgreed, requestcontext.Now(ctx))
	if err != nil {
		return nil, false, err
	}

	existing, err := s.store.FindPendingByUser(ctx, userID)
	if err == nil {
		s.metrics.IncSubmission("existing")
		return existing, false, nil
	}
	if !errors.Is(err, sentinel.ErrNotFound) {
		return nil, false, dErrors.Wrap(err, dErrors.CodeDependency, "failed to load verification")
	}

	latest, err := s.store.LatestDecided(ctx, userID)
	switch {
	case err == nil && latest.State == models.StateApproved:
		s.metrics.IncSubmission("approved")
		return latest, false, nil
	case err != nil && !errors.Is(err, sentinel.ErrNotFound):
		return nil, false, dErrors.Wrap(err, dErrors.CodeDependency, "failed to load verification")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.store.CreatePending(ctx, candidate); err != nil {
			return err
		}
		return s.emit(ctx, audit.Event{
			Action:    audit.ActionVerificationSubmitted,
			ActorID:   userID.String(),
			SubjectID: userID.String(),
			TargetID:  candidate.ID.String(),
		})
	})
	if errors.Is(err, sentinel.ErrConflict) {
		winner, findErr := s.store.FindPendingByUser(ctx, userID)
		if findErr != nil {
			return nil, false, dErrors.Wrap(findErr, dErrors.CodeDependency, "failed to load verification")
		}
		s.metrics.IncSubmission("existing")
		return winner, false, nil
	}
	if err != nil {
		return nil, false, asDomainErr(err, "failed to store verification")
	}

	s.metrics.IncSubmission("created")
	s.logger.InfoContext(ctx, "verification submitted",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", candidate.ID.String(),
		"user_id", userID.String(),
	)
	return candidate, true, nil
}

// Approve decides a pending verification in the user's favour and grants
// the verified permission bundle atomically with the transition.
func (s *Service) Approve(ctx context.Context, vid id.VerificationID, reviewerID id.UserID) (_ *models.Verification, err error) {
	ctx, span := tracer.Start(ctx, "verification.Approve", trace.WithAttributes(attribute.String("verification.id", vid.String())))
	defer func() { endSpan(span, err) }()

	if reviewerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reviewer is required")
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	var decided *models.Verification
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.store.Execute(ctx, vid,
			func(v *models.Verification) error { return v.CanDecide() },
			func(v *models.Verification) { v.ApplyApproval(reviewerID, now) },
		)
		if err != nil {
			return err
		}
		if err := s.permissions.GrantBundle(ctx, v.UserID, permission.VerifiedBundle()); err != nil {
			return err
		}
		if err := s.emit(ctx, audit.Event{
			Action:    audit.ActionVerificationApproved,
			ActorID:   reviewerID.String(),
			SubjectID: v.UserID.String(),
			TargetID:  v.ID.String(),
		}); err != nil {
			return err
		}
		decided = v
		return nil
	})
	s.metrics.ObserveDecision(start)
	if err != nil {
		return nil, s.decisionErr(err)
	}
	s.metrics.IncDecision("approved")

	s.logger.InfoContext(ctx, "verification approved",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", decided.ID.String(),
		"user_id", decided.UserID.String(),
		"reviewer_id", reviewerID.String(),
	)
	s.notify(ctx, notification.Draft{
		UserID:  decided.UserID,
		Type:    notification.TypeVerificationApproved,
		Title:   "Identity verification approved",
		Message: "Your identity has been verified and civic participation features are now unlocked.",
		Metadata: map[string]string{
			"verificationId": decided.ID.String(),
		},
	})
	return decided, nil
}

// Reject decides a pending verification against the user. reason is
// required and is included in the user's notification.
func (s *Service) Reject(ctx context.Context, vid id.VerificationID, reviewerID id.UserID, reason string) (_ *models.Verification, err error) {
	ctx, span := tracer.Start(ctx, "verification.Reject", trace.WithAttributes(attribute.String("verification.id", vid.String())))
	defer func() { endSpan(span, err) }()

	if reviewerID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "reviewer is required")
	}
	reason, err = models.NormalizeReason(reason)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	now := requestcontext.Now(ctx)
	var decided *models.Verification
	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		v, err := s.store.Execute(ctx, vid,
			func(v *models.Verification) error { return v.CanDecide() },
			func(v *models.Verification) { v.ApplyRejection(reviewerID, reason, now) },
		)
		if err != nil {
			return err
		}
		if err := s.emit(ctx, audit.Event{
			Action:    audit.ActionVerificationRejected,
			ActorID:   reviewerID.String(),
			SubjectID: v.UserID.String(),
			TargetID:  v.ID.String(),
			Detail:    reason,
		}); err != nil {
			return err
		}
		decided = v
		return nil
	})
	s.metrics.ObserveDecision(start)
	if err != nil {
		return nil, s.decisionErr(err)
	}
	s.metrics.IncDecision("rejected")

	s.logger.InfoContext(ctx, "verification rejected",
		"request_id", requestcontext.RequestID(ctx),
		"verification_id", decided.ID.String(),
		"user_id", decided.UserID.String(),
		"reviewer_id", reviewerID.String(),
	)
	s.notify(ctx, notification.Draft{
		UserID:  decided.UserID,
		Type:    notification.TypeVerificationRejected,
		Title:   "Identity verification rejected",
		Message: "Your identity verification was rejected. Reason: " + reason,
		Metadata: map[string]string{
			"verificationId": decided.ID.String(),
			"reason":         reason,
		},
	})
	return decided, nil
}

// Status reports userID's verification level and civic permissions. A user
// with no submissions gets the zero status, not an error.
func (s *Service) Status(ctx context.Context, userID id.UserID) (_ models.Status, err error) {
	ctx, span := tracer.Start(ctx, "verification.Status")
	defer func() { endSpan(span, err) }()

	latest, err := s.store.LatestDecided(ctx, userID)
	if errors.Is(err, sentinel.ErrNotFound) {
		latest, err = nil, nil
	}
	if err != nil {
		return models.Status{}, dErrors.Wrap(err, dErrors.CodeDependency, "failed to load verification")
	}
	granted, err := s.permissions.Granted(ctx, userID)
	if err != nil {
		return models.Status{}, err
	}
	return models.BuildStatus(latest, granted), nil
}

// Get returns one verification by id.
func (s *Service) Get(ctx context.Context, vid id.VerificationID) (*models.Verification, error) {
	v, err := s.store.FindByID(ctx, vid)
	if err != nil {
		return nil, asDomainErr(err, "failed to load verification")
	}
	return v, nil
}

// ListQueue returns verifications for review, oldest first.
func (s *Service) ListQueue(ctx context.Context, filter models.ListFilter) ([]*models.Verification, error) {
	list, err := s.store.List(ctx, filter.Normalize())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeDependency, "failed to list verifications")
	}
	if list == nil {
		list = []*models.Verification{}
	}
	return list, nil
}

func (s *Service) decisionErr(err error) error {
	if dErrors.HasCode(err, dErrors.CodeInvalidState) {
		s.metrics.IncDecision("invalid_state")
	}
	return asDomainErr(err, "failed to record decision")
}

// notify enqueues draft after commit. Failures are logged and swallowed.
func (s *Service) notify(ctx context.Context, draft notification.Draft) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.Enqueue(ctx, draft); err != nil {
		s.metrics.IncNotifyFailure()
		s.logger.WarnContext(ctx, "notification enqueue failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", draft.UserID.String(),
			"type", string(draft.Type),
			"error", err,
		)
	}
}

func (s *Service) emit(ctx context.Context, event audit.Event) error {
	if s.auditPublisher == nil {
		return nil
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		return dErrors.Wrap(err, dErrors.CodeDependency, "failed to record audit event")
	}
	return nil
}

// asDomainErr passes coded errors through and maps store sentinels.
func asDomainErr(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "verification not found")
	}
	return dErrors.Wrap(err, dErrors.CodeDependency, msg)
}

func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}
