package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"civic/internal/notification/models"
	"civic/internal/notification/service"
	"civic/internal/notification/store"
	id "civic/pkg/domain"
	"civic/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	svc    *service.Service
	router chi.Router
	user   id.UserID
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.svc = service.New(store.NewInMemory())
	s.router = chi.NewRouter()
	New(s.svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
	s.user = id.UserID(uuid.New())
}

func (s *HandlerSuite) enqueue(title string) *models.Notification {
	n, err := s.svc.Enqueue(context.Background(), models.Draft{UserID: s.user, Type: models.TypeEmailVerified, Title: title})
	s.Require().NoError(err)
	time.Sleep(time.Millisecond)
	return n
}

func (s *HandlerSuite) TestListNewestFirst() {
	s.enqueue("first")
	s.enqueue("second")

	req := testutil.WithUserID(testutil.NewJSONRequest(s.T(), http.MethodGet, "/notifications", nil), s.user)
	rr := testutil.DoRequest(s.router, req)

	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	body := testutil.DecodeJSON[listResponse](s.T(), rr)
	s.Require().Len(body.Notifications, 2)
	s.Equal("second", body.Notifications[0].Title)
}

func (s *HandlerSuite) TestListBadLimit() {
	req := testutil.WithUserID(testutil.NewJSONRequest(s.T(), http.MethodGet, "/notifications?limit=-1", nil), s.user)
	testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, req), http.StatusBadRequest, "validation_error")
}

func (s *HandlerSuite) TestListWithoutUserIs401() {
	rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/notifications", nil))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, "unauthorized")
}

func (s *HandlerSuite) TestMarkRead() {
	n := s.enqueue("hello")

	req := testutil.WithUserID(testutil.NewJSONRequest(s.T(), http.MethodPost, "/notifications/"+n.ID+"/read", nil), s.user)
	testutil.AssertStatus(s.T(), testutil.DoRequest(s.router, req), http.StatusNoContent)

	other := testutil.WithUserID(testutil.NewJSONRequest(s.T(), http.MethodPost, "/notifications/"+n.ID+"/read", nil), id.UserID(uuid.New()))
	testutil.AssertStatusAndError(s.T(), testutil.DoRequest(s.router, other), http.StatusNotFound, "not_found")
}
