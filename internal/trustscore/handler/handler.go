// Package handler serves computed trust scores.
package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"civic/internal/trustscore/service"
	id "civic/pkg/domain"
	"civic/pkg/platform/httputil"
	"civic/pkg/requestcontext"
)

type Service interface {
	ComputeTrustScore(ctx context.Context, politicianID id.PoliticianID) (*service.Result, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/politicians/{id}/trust-score", h.HandleGet)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	pid, err := id.ParsePoliticianID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	res, err := h.service.ComputeTrustScore(ctx, pid)
	if err != nil {
		h.logger.ErrorContext(ctx, "trust score failed",
			"request_id", requestcontext.RequestID(ctx),
			"politician_id", pid.String(),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}
