package httpx

import (
	"errors"
	"net/http"

	"github.com/stockroom/stockroom/internal/shared"
)

// StatusFor maps the error taxonomy onto HTTP status codes.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, shared.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, shared.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, shared.ErrUnauthorized), errors.Is(err, shared.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, shared.ErrForbidden),
		errors.Is(err, shared.ErrCSRFTokenMissing),
		errors.Is(err, shared.ErrCSRFTokenMismatch):
		return http.StatusForbidden
	case errors.Is(err, shared.ErrUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// RespondError writes the failure envelope for err. Internal errors are
// reported with a generic message; callers log the detail.
func RespondError(w http.ResponseWriter, err error) {
	status := StatusFor(err)
	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "5")
	}
	Fail(w, status, shared.UserSafeMessage(err))
}
