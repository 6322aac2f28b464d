// Package handler exposes permission administration over HTTP. Routes are
// mounted behind the admin.permissions.manage gate by the router.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"civic/internal/permission/models"
	id "civic/pkg/domain"
	"civic/pkg/platform/httputil"
	"civic/pkg/requestcontext"
)

// Service is the registry surface the handler needs.
type Service interface {
	Grant(ctx context.Context, userID id.UserID, name models.Name) error
	Revoke(ctx context.Context, userID id.UserID, name models.Name) error
	List(ctx context.Context, userID id.UserID) ([]models.UserPermission, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the admin permission routes on r.
func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/users/{userID}/permissions", h.HandleList)
	r.Post("/admin/users/{userID}/permissions/{name}", h.HandleGrant)
	r.Delete("/admin/users/{userID}/permissions/{name}", h.HandleRevoke)
}

type grantResponse struct {
	UserID     id.UserID `json:"userId"`
	Permission string    `json:"permission"`
	Granted    bool      `json:"granted"`
}

type permissionResponse struct {
	Name      string     `json:"name"`
	IsGranted bool       `json:"isGranted"`
	GrantedAt time.Time  `json:"grantedAt"`
	RevokedAt *time.Time `json:"revokedAt,omitempty"`
}

type listResponse struct {
	UserID      id.UserID            `json:"userId"`
	Permissions []permissionResponse `json:"permissions"`
}

func (h *Handler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, true)
}

func (h *Handler) HandleRevoke(w http.ResponseWriter, r *http.Request) {
	h.mutate(w, r, false)
}

func (h *Handler) mutate(w http.ResponseWriter, r *http.Request, grant bool) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	name, err := models.Parse(chi.URLParam(r, "name"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	op, call := "revoke", h.service.Revoke
	if grant {
		op, call = "grant", h.service.Grant
	}
	if err := call(ctx, userID, name); err != nil {
		h.logger.ErrorContext(ctx, "permission "+op+" failed",
			"request_id", requestID,
			"user_id", userID.String(),
			"permission", string(name),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "permission "+op,
		"request_id", requestID,
		"actor_id", requestcontext.UserID(ctx).String(),
		"user_id", userID.String(),
		"permission", string(name),
	)
	httputil.WriteJSON(w, http.StatusOK, grantResponse{UserID: userID, Permission: string(name), Granted: grant})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	list, err := h.service.List(ctx, userID)
	if err != nil {
		h.logger.ErrorContext(ctx, "permission list failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	resp := listResponse{UserID: userID, Permissions: make([]permissionResponse, 0, len(list))}
	for _, up := range list {
		resp.Permissions = append(resp.Permissions, permissionResponse{
			Name:      string(up.Name),
			IsGranted: up.IsGranted,
			GrantedAt: up.GrantedAt,
			RevokedAt: up.RevokedAt,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}
