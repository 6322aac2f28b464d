// Package handler exposes the audit trail of one user to administrators.
// The router mounts it behind the admin.permissions.manage gate.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	audit "civic/pkg/platform/audit"
	"civic/pkg/platform/httputil"
	"civic/pkg/requestcontext"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Reader lists events newest first.
type Reader interface {
	ListBySubject(ctx context.Context, subjectID string, limit int) ([]audit.Event, error)
}

type Handler struct {
	reader Reader
	logger *slog.Logger
}

func New(reader Reader, logger *slog.Logger) *Handler {
	return &Handler{reader: reader, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/admin/users/{userID}/audit-events", h.HandleList)
}

type eventResponse struct {
	Action     string    `json:"action"`
	Category   string    `json:"category"`
	ActorID    string    `json:"actorId"`
	TargetID   string    `json:"targetId,omitempty"`
	Detail     string    `json:"detail,omitempty"`
	RequestID  string    `json:"requestId,omitempty"`
	UserAgent  string    `json:"userAgent,omitempty"`
	OccurredAt time.Time `json:"occurredAt"`
}

type listResponse struct {
	UserID id.UserID       `json:"userId"`
	Events []eventResponse `json:"events"`
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	userID, err := id.ParseUserID(chi.URLParam(r, "userID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	events, err := h.reader.ListBySubject(ctx, userID.String(), limit)
	if err != nil {
		h.logger.ErrorContext(ctx, "audit list failed",
			"request_id", requestcontext.RequestID(ctx),
			"user_id", userID.String(),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeDependency, "failed to list audit events"))
		return
	}

	resp := listResponse{UserID: userID, Events: make([]eventResponse, 0, len(events))}
	for _, e := range events {
		resp.Events = append(resp.Events, eventResponse{
			Action:     string(e.Action),
			Category:   string(e.Action.Category()),
			ActorID:    e.ActorID,
			TargetID:   e.TargetID,
			Detail:     e.Detail,
			RequestID:  e.RequestID,
			UserAgent:  e.UserAgent,
			OccurredAt: e.Timestamp,
		})
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func parseLimit(raw string) (int, error) {
	if raw == "" {
		return defaultLimit, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer")
	}
	return min(n, maxLimit), nil
}
