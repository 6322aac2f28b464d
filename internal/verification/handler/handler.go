// Package handler exposes the verification workflow over HTTP.
//
// User routes need only an authenticated caller. Admin routes are mounted by
// the router behind the admin.identity.review permission gate.
package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"civic/internal/verification/models"
	id "civic/pkg/domain"
	dErrors "civic/pkg/domain-errors"
	"civic/pkg/platform/httputil"
	"civic/pkg/requestcontext"
)

// Service is the workflow surface the handler needs.
type Service interface {
	Submit(ctx context.Context, userID id.UserID, email string, termsAgreed bool) (*models.Verification, bool, error)
	Status(ctx context.Context, userID id.UserID) (models.Status, error)
	RequestEmailCode(ctx context.Context, userID id.UserID, email string) (time.Duration, error)
	ConfirmEmailCode(ctx context.Context, userID id.UserID, code string) error
	Get(ctx context.Context, vid id.VerificationID) (*models.Verification, error)
	Approve(ctx context.Context, vid id.VerificationID, reviewerID id.UserID) (*models.Verification, error)
	Reject(ctx context.Context, vid id.VerificationID, reviewerID id.UserID, reason string) (*models.Verification, error)
	ListQueue(ctx context.Context, filter models.ListFilter) ([]*models.Verification, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterUser mounts the self-service routes.
func (h *Handler) RegisterUser(r chi.Router) {
	r.Post("/identity/submit", h.HandleSubmit)
	r.Get("/identity/status", h.HandleStatus)
	r.Post("/identity/email/request", h.HandleRequestEmailCode)
	r.Post("/identity/email/confirm", h.HandleConfirmEmailCode)
}

// RegisterAdmin mounts the review routes.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/identity-verifications", h.HandleList)
	r.Get("/admin/identity-verifications/{id}", h.HandleGet)
	r.Post("/admin/identity-verifications/{id}/approve", h.HandleApprove)
	r.Post("/admin/identity-verifications/{id}/reject", h.HandleReject)
}

type submitRequest struct {
	Email       string `json:"email"`
	TermsAgreed bool   `json:"termsAgreed"`
}

func (r *submitRequest) Validate() error {
	r.Email = strings.TrimSpace(r.Email)
	if r.Email == "" {
		return dErrors.New(dErrors.CodeValidation, "email is required")
	}
	return nil
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (r *rejectRequest) Validate() error {
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason == "" {
		return dErrors.New(dErrors.CodeValidation, "reason is required")
	}
	return nil
}

type emailCodeRequest struct {
	Email string `json:"email"`
}

type confirmCodeRequest struct {
	Code string `json:"code"`
}

func (r *confirmCodeRequest) Validate() error {
	r.Code = strings.TrimSpace(r.Code)
	if r.Code == "" {
		return dErrors.New(dErrors.CodeValidation, "code is required")
	}
	return nil
}

type verificationResponse struct {
	Verification *models.Verification `json:"verification"`
}

type listResponse struct {
	Verifications []*models.Verification `json:"verifications"`
}

type emailCodeResponse struct {
	ExpiresInSeconds int `json:"expiresInSeconds"`
}

type confirmCodeResponse struct {
	Verified bool `json:"verified"`
}

func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[submitRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	v, created, err := h.service.Submit(ctx, userID, req.Email, req.TermsAgreed)
	if err != nil {
		h.logFailure(ctx, "verification submit failed", err, "user_id", userID.String())
		httputil.WriteError(w, err)
		return
	}

	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	httputil.WriteJSON(w, status, verificationResponse{Verification: v})
}

func (h *Handler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	st, err := h.service.Status(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "verification status failed", err, "user_id", userID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, st)
}

func (h *Handler) HandleRequestEmailCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[emailCodeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	ttl, err := h.service.RequestEmailCode(ctx, userID, req.Email)
	if err != nil {
		h.logFailure(ctx, "email code request failed", err, "user_id", userID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusAccepted, emailCodeResponse{ExpiresInSeconds: int(ttl.Seconds())})
}

func (h *Handler) HandleConfirmEmailCode(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return
	}

	req, ok := httputil.DecodeAndPrepare[confirmCodeRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	if err := h.service.ConfirmEmailCode(ctx, userID, req.Code); err != nil {
		h.logFailure(ctx, "email code confirm failed", err, "user_id", userID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, confirmCodeResponse{Verified: true})
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()

	var filter models.ListFilter
	if raw := q.Get("state"); raw != "" {
		st, err := models.ParseState(raw)
		if err != nil {
			httputil.WriteError(w, err)
			return
		}
		filter.State = st
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			httputil.WriteError(w, dErrors.New(dErrors.CodeValidation, "limit must be a positive integer"))
			return
		}
		filter.Limit = n
	}

	list, err := h.service.ListQueue(ctx, filter)
	if err != nil {
		h.logFailure(ctx, "verification list failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, listResponse{Verifications: list})
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vid, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	v, err := h.service.Get(ctx, vid)
	if err != nil {
		h.logFailure(ctx, "verification get failed", err, "verification_id", vid.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verificationResponse{Verification: v})
}

func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vid, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	v, err := h.service.Approve(ctx, vid, requestcontext.UserID(ctx))
	if err != nil {
		h.logFailure(ctx, "verification approve failed", err, "verification_id", vid.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verificationResponse{Verification: v})
}

func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vid, err := id.ParseVerificationID(chi.URLParam(r, "id"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[rejectRequest](w, r, h.logger, ctx, requestcontext.RequestID(ctx))
	if !ok {
		return
	}

	v, err := h.service.Reject(ctx, vid, requestcontext.UserID(ctx), req.Reason)
	if err != nil {
		h.logFailure(ctx, "verification reject failed", err, "verification_id", vid.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, verificationResponse{Verification: v})
}

// logFailure logs server-side failures at error and client mistakes at info.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if de, ok := dErrors.As(err); ok && !dErrors.IsServerSide(de.Code) {
		h.logger.InfoContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
