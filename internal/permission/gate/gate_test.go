package gate

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"civic/internal/permission/models"
	"civic/internal/permission/service"
	"civic/internal/permission/store"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	"civic/pkg/platform/audit"
	auditmemory "civic/pkg/platform/audit/store/memory"
	"civic/pkg/requestcontext"
	"civic/pkg/testutil"
)

type failingChecker struct{}

func (failingChecker) Check(context.Context, id.UserID, models.Name) (bool, error) {
	return false, dErrors.Wrap(errors.New("timeout"), dErrors.CodeDependency, "failed to check permission")
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequirePermission(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	registry := service.New(store.NewInMemory())
	audits := auditmemory.NewInMemoryStore()
	g := New(registry, logger, WithAuditPublisher(audit.NewPublisher(audits, nil)))
	h := g.RequirePermission(models.AdminIdentityReview)(okHandler())

	reviewer := id.UserID(uuid.New())
	citizen := id.UserID(uuid.New())
	require.NoError(t, registry.Grant(context.Background(), reviewer, models.AdminIdentityReview))

	t.Run("401 without authenticated user", func(t *testing.T) {
		rr := testutil.DoRequest(h, httptest.NewRequest(http.MethodGet, "/", nil))
		testutil.AssertStatusAndError(t, rr, http.StatusUnauthorized, "unauthorized")
	})

	t.Run("403 without grant", func(t *testing.T) {
		req := testutil.WithUserID(httptest.NewRequest(http.MethodGet, "/", nil), citizen)
		rr := testutil.DoRequest(h, req)
		testutil.AssertStatusAndError(t, rr, http.StatusForbidden, "forbidden")

		events, err := audits.ListBySubject(context.Background(), citizen.String(), 0)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, audit.ActionPermissionDenied, events[0].Action)
	})

	t.Run("200 with grant", func(t *testing.T) {
		req := testutil.WithUserID(httptest.NewRequest(http.MethodGet, "/", nil), reviewer)
		rr := testutil.DoRequest(h, req)
		testutil.AssertStatus(t, rr, http.StatusOK)
	})

	t.Run("revocation applies on the next request", func(t *testing.T) {
		ctx := requestcontext.WithUserID(context.Background(), reviewer)
		require.NoError(t, registry.Revoke(ctx, reviewer, models.AdminIdentityReview))

		req := testutil.WithUserID(httptest.NewRequest(http.MethodGet, "/", nil), reviewer)
		rr := testutil.DoRequest(h, req)
		testutil.AssertStatus(t, rr, http.StatusForbidden)
	})

	t.Run("500 when registry fails", func(t *testing.T) {
		broken := New(failingChecker{}, logger).RequirePermission(models.CanVote)(okHandler())
		req := testutil.WithUserID(httptest.NewRequest(http.MethodGet, "/", nil), citizen)
		rr := testutil.DoRequest(broken, req)
		testutil.AssertStatusAndError(t, rr, http.StatusInternalServerError, "dependency_error")
	})
}
