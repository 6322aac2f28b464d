package auth

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"civic/pkg/requestcontext"
)

type stubValidator struct {
	claims *JWTClaims
	err    error
}

func (s stubValidator) ValidateToken(string) (*JWTClaims, error) { return s.claims, s.err }

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	userID := uuid.New()

	var seen string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = requestcontext.UserID(r.Context()).String()
		w.WriteHeader(http.StatusNoContent)
	})

	tests := []struct {
		name       string
		header     string
		validator  stubValidator
		wantStatus int
	}{
		{"missing header", "", stubValidator{}, http.StatusUnauthorized},
		{"wrong scheme", "Basic abc", stubValidator{}, http.StatusUnauthorized},
		{"empty token", "Bearer  ", stubValidator{}, http.StatusUnauthorized},
		{"invalid token", "Bearer abc", stubValidator{err: errors.New("bad signature")}, http.StatusUnauthorized},
		{"non-uuid subject", "Bearer abc", stubValidator{claims: &JWTClaims{UserID: "alice"}}, http.StatusUnauthorized},
		{"valid token", "Bearer abc", stubValidator{claims: &JWTClaims{UserID: userID.String()}}, http.StatusNoContent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = ""
			r := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				r.Header.Set("Authorization", tt.header)
			}
			w := httptest.NewRecorder()

			RequireAuth(tt.validator, logger)(next).ServeHTTP(w, r)

			assert.Equal(t, tt.wantStatus, w.Code)
			if tt.wantStatus == http.StatusNoContent {
				assert.Equal(t, userID.String(), seen)
			} else {
				assert.Empty(t, seen)
				assert.JSONEq(t, `{"error":"unauthorized","error_description":"`+errorDescription(tt.name)+`"}`, w.Body.String())
			}
		})
	}
}

func errorDescription(name string) string {
	switch name {
	case "missing header", "wrong scheme", "empty token":
		return "missing or invalid Authorization header"
	default:
		return "invalid or expired token"
	}
}
