// Package httptransport assembles the public HTTP surface. It owns middleware
// ordering and route grouping; handlers stay thin and delegate to services.
package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"civic/internal/permission/gate"
	"civic/internal/permission/models"
	"civic/internal/platform/metrics"
	"civic/pkg/platform/httputil"
	"civic/pkg/platform/middleware/auth"
	"civic/pkg/platform/middleware/metadata"
	"civic/pkg/platform/middleware/ratelimit"
	"civic/pkg/platform/middleware/request"
	"civic/pkg/platform/middleware/requesttime"
)

// UserRoutes are mounted for any authenticated caller.
type UserRoutes interface {
	RegisterUser(r chi.Router)
}

// AdminRoutes are mounted behind a permission gate.
type AdminRoutes interface {
	RegisterAdmin(r chi.Router)
}

// Routes mounts a module's routes on r.
type Routes interface {
	Register(r chi.Router)
}

// ReadinessCheck reports whether a backing service is reachable.
type ReadinessCheck func(ctx context.Context) error

// Deps are the collaborators the router needs. Nil handlers are skipped.
type Deps struct {
	Logger    *slog.Logger
	Validator auth.JWTValidator
	Gate      *gate.Gate
	Limiter   *ratelimit.Limiter
	Metrics   *metrics.Metrics
	Readiness map[string]ReadinessCheck

	Verification interface {
		UserRoutes
		AdminRoutes
	}
	Permissions   Routes
	AuditTrail    Routes
	Notifications Routes
	TrustScores   Routes
}

// NewRouter wires the middleware stack and every module under /api.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(request.RequestID)
	r.Use(request.Recovery(d.Logger))
	r.Use(request.Logger(d.Logger))
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	if d.Metrics != nil {
		r.Use(d.Metrics.Middleware)
	}

	r.Get("/healthz", handleHealth)
	r.Get("/readyz", handleReady(d.Readiness, d.Logger))
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(auth.RequireAuth(d.Validator, d.Logger))

		if d.Verification != nil {
			r.Group(func(r chi.Router) {
				if d.Limiter != nil {
					r.Use(limitWrites(d.Limiter))
				}
				d.Verification.RegisterUser(r)
			})
			r.Group(func(r chi.Router) {
				r.Use(d.Gate.RequirePermission(models.AdminIdentityReview))
				d.Verification.RegisterAdmin(r)
			})
		}
		if d.Permissions != nil || d.AuditTrail != nil {
			r.Group(func(r chi.Router) {
				r.Use(d.Gate.RequirePermission(models.AdminPermissionsManage))
				if d.Permissions != nil {
					d.Permissions.Register(r)
				}
				if d.AuditTrail != nil {
					d.AuditTrail.Register(r)
				}
			})
		}
		if d.Notifications != nil {
			d.Notifications.Register(r)
		}
		if d.TrustScores != nil {
			d.TrustScores.Register(r)
		}
	})

	return r
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

const readinessTimeout = 2 * time.Second

// handleReady runs every check and answers 503 naming the ones that failed.
func handleReady(checks map[string]ReadinessCheck, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), readinessTimeout)
		defer cancel()

		failed := make(map[string]string)
		for name, check := range checks {
			if err := check(ctx); err != nil {
				logger.WarnContext(ctx, "readiness check failed", "check", name, "error", err)
				failed[name] = err.Error()
			}
		}
		if len(failed) > 0 {
			httputil.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"status": "unavailable",
				"failed": failed,
			})
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

// limitWrites rate limits state-changing requests and lets reads through.
func limitWrites(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		limited := l.Middleware(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}
			limited.ServeHTTP(w, r)
		})
	}
}
