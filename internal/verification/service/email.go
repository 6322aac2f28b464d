package service

import (
	"context"
	"errors"
	"time"

	notification "civic/internal/notification/models"
	permission "civic/internal/permission/models"
	"civic/internal/verification/emailcode"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	"civic/pkg/email"
	"civic/pkg/platform/audit"
	"civic/pkg/platform/sentinel"
	"civic/pkg/requestcontext"
)

// RequestEmailCode sends a one-time code to addr and returns how long it stays valid.
func (s *Service) RequestEmailCode(ctx context.Context, userID id.UserID, addr string) (time.Duration, error) {
	if s.emailCodes == nil || s.emailSender == nil {
		return 0, dErrors.New(dErrors.CodeDependency, "email verification is not configured")
	}
	normalized, err := email.Normalize(addr)
	if err != nil {
		return 0, err
	}

	code, err := s.emailCodes.Issue(ctx, userID, normalized)
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeDependency, "failed to issue email code")
	}
	if err := s.emailSender.Send(ctx, email.VerificationCodeMessage(normalized, code)); err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeDependency, "failed to send email code")
	}
	s.metrics.IncEmailCode("issued")

	if err := s.emit(ctx, audit.Event{
		Action:    audit.ActionEmailCodeIssued,
		ActorID:   userID.String(),
		SubjectID: userID.String(),
	}); err != nil {
		return 0, err
	}
	return s.emailCodes.TTL(), nil
}

// ConfirmEmailCode checks code and grants email_verified on success.
func (s *Service) ConfirmEmailCode(ctx context.Context, userID id.UserID, code string) error {
	if s.emailCodes == nil {
		return dErrors.New(dErrors.CodeDependency, "email verification is not configured")
	}
	if !validCodeFormat(code) {
		return dErrors.New(dErrors.CodeValidation, "code must be 6 digits")
	}

	addr, err := s.emailCodes.Verify(ctx, userID, code)
	switch {
	case errors.Is(err, emailcode.ErrMismatch):
		s.metrics.IncEmailCode("mismatch")
		return dErrors.New(dErrors.CodeValidation, "invalid verification code")
	case errors.Is(err, sentinel.ErrExpired):
		s.metrics.IncEmailCode("expired")
		return dErrors.New(dErrors.CodeValidation, "verification code expired or was never requested")
	case errors.Is(err, sentinel.ErrExhausted):
		s.metrics.IncEmailCode("exhausted")
		return dErrors.New(dErrors.CodeRateLimited, "too many attempts, request a new code")
	case err != nil:
		return dErrors.Wrap(err, dErrors.CodeDependency, "failed to check email code")
	}

	err = s.tx.RunInTx(ctx, func(ctx context.Context) error {
		if err := s.permissions.Grant(ctx, userID, permission.EmailVerified); err != nil {
			return err
		}
		return s.emit(ctx, audit.Event{
			Action:    audit.ActionEmailVerified,
			ActorID:   userID.String(),
			SubjectID: userID.String(),
			Detail:    addr,
		})
	})
	if err != nil {
		return asDomainErr(err, "failed to record email verification")
	}
	s.metrics.IncEmailCode("confirmed")

	s.logger.InfoContext(ctx, "email verified",
		"request_id", requestcontext.RequestID(ctx),
		"user_id", userID.String(),
	)
	s.notify(ctx, notification.Draft{
		UserID:   userID,
		Type:     notification.TypeEmailVerified,
		Title:    "Email address verified",
		Message:  "Your email address " + addr + " has been verified.",
		Metadata: map[string]string{"email": addr},
	})
	return nil
}

func validCodeFormat(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, r := range code {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
