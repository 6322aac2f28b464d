package testutil

import (
	"net/http"

	id "civic/pkg/domain"
	"civic/pkg/requestcontext"
)

// WithUserID marks req as authenticated for userID, as the auth middleware would.
func WithUserID(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}
