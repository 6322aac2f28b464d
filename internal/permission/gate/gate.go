// Package gate is the HTTP authorization middleware. It is the only place
// privileged routes are authorized, and it consults the registry on every
// request so grants and revocations apply immediately.
package gate

import (
	"context"
	"log/slog"
	"net/http"

	"civic/internal/permission/models"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	"civic/pkg/platform/audit"
	"civic/pkg/platform/httputil"
	"civic/pkg/requestcontext"
)

// Checker answers whether a user holds a permission.
type Checker interface {
	Check(ctx context.Context, userID id.UserID, name models.Name) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Gate struct {
	checker        Checker
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Gate)

func WithAuditPublisher(p AuditPublisher) Option {
	return func(g *Gate) { g.auditPublisher = p }
}

func New(checker Checker, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{checker: checker, logger: logger}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// RequirePermission passes the request through only when the authenticated
// user holds name: 401 without a user, 403 when not granted, 500 when the
// registry cannot answer.
func (g *Gate) RequirePermission(name models.Name) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			requestID := requestcontext.RequestID(ctx)

			userID := requestcontext.UserID(ctx)
			if userID.IsNil() {
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
				return
			}

			ok, err := g.checker.Check(ctx, userID, name)
			if err != nil {
				g.logger.ErrorContext(ctx, "permission check failed",
					"request_id", requestID,
					"user_id", userID.String(),
					"permission", string(name),
					"error", err,
				)
				httputil.WriteError(w, err)
				return
			}
			if !ok {
				g.logger.WarnContext(ctx, "permission denied",
					"request_id", requestID,
					"user_id", userID.String(),
					"permission", string(name),
				)
				g.recordDenial(ctx, userID, name)
				httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "missing permission: "+string(name)))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// recordDenial is best-effort; a denial must not turn into a 500.
func (g *Gate) recordDenial(ctx context.Context, userID id.UserID, name models.Name) {
	if g.auditPublisher == nil {
		return
	}
	if err := g.auditPublisher.Emit(ctx, audit.Event{
		Action:    audit.ActionPermissionDenied,
		ActorID:   userID.String(),
		SubjectID: userID.String(),
		TargetID:  string(name),
	}); err != nil {
		g.logger.WarnContext(ctx, "failed to audit permission denial", "error", err)
	}
}
