package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civic/internal/notification/models"
	"civic/internal/notification/store"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	"civic/pkg/requestcontext"
)

type failingPublisher struct{ calls int }

func (p *failingPublisher) Publish(context.Context, *models.Notification) error {
	p.calls++
	return errors.New("broker unavailable")
}

type ServiceSuite struct {
	suite.Suite
	store     *store.InMemory
	publisher *failingPublisher
	logs      *bytes.Buffer
	svc       *Service
	ctx       context.Context
	user      id.UserID
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = store.NewInMemory()
	s.publisher = &failingPublisher{}
	s.logs = &bytes.Buffer{}
	logger := slog.New(slog.NewJSONHandler(s.logs, nil))
	s.svc = New(s.store, WithLogger(logger), WithPublisher(s.publisher))
	s.ctx = requestcontext.WithTime(context.Background(), time.Date(2026, 7, 1, 8, 0, 0, 0, time.UTC))
	s.user = id.UserID(uuid.New())
}

func (s *ServiceSuite) TestEnqueueStoresDespitePublishFailure() {
	n, err := s.svc.Enqueue(s.ctx, models.Draft{
		UserID: s.user,
		Type:   models.TypeVerificationApproved,
		Title:  "Identity verification approved",
	})
	s.Require().NoError(err)
	s.Equal(1, s.publisher.calls)
	s.Contains(s.logs.String(), "notification publish failed")

	inbox, err := s.svc.ListInbox(s.ctx, s.user, 0)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.Equal(n.ID, inbox[0].ID)
}

func (s *ServiceSuite) TestEnqueueRejectsInvalidDraft() {
	_, err := s.svc.Enqueue(s.ctx, models.Draft{UserID: s.user})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	s.Zero(s.publisher.calls)
}

func (s *ServiceSuite) TestEmptyInboxIsEmptySlice() {
	inbox, err := s.svc.ListInbox(s.ctx, s.user, 0)
	s.Require().NoError(err)
	s.NotNil(inbox)
	s.Empty(inbox)
}

func (s *ServiceSuite) TestMarkRead() {
	n, err := s.svc.Enqueue(s.ctx, models.Draft{UserID: s.user, Type: models.TypeEmailVerified, Title: "Email verified"})
	s.Require().NoError(err)

	s.Require().NoError(s.svc.MarkRead(s.ctx, s.user, n.ID))

	err = s.svc.MarkRead(s.ctx, id.UserID(uuid.New()), n.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))

	err = s.svc.MarkRead(s.ctx, s.user, "bogus")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}
