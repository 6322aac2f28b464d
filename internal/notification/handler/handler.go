// Package handler serves the authenticated user's notification inbox.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"civic/internal/notification/models"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	"civic/pkg/platform/httputil"
	"civic/pkg/requestcontext"
)

type Service interface {
	ListInbox(ctx context.Context, userID id.UserID, limit int) ([]*models.Notification, error)
	MarkRead(ctx context.Context, userID id.UserID, notificationID string) error
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/notifications", h.HandleList)
	r.Post("/notifications/{id}/read", h.HandleMarkRead)
}

type listResponse struct {
	Notifications []*models.Notification `json:"notifications"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		limit = n
	}

	list, err := h.service.ListInbox(ctx, requestcontext.UserID(ctx), limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "list notifications failed",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Notifications: list})
}

func (h *Handler) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	nid := chi.URLParam(r, "id")

	if err := h.service.MarkRead(ctx, requestcontext.UserID(ctx), nid); err != nil {
		if dErrors.IsServerSide(codeOf(err)) {
			h.logger.ErrorContext(ctx, "mark notification read failed",
				"request_id", requestcontext.RequestID(ctx),
				"notification_id", nid,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func codeOf(err error) dErrors.Code {
	if de, ok := dErrors.As(err); ok {
		return de.Code
	}
	return dErrors.CodeInternal
}
