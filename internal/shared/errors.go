package shared

import (
	"errors"
	"strings"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument indicates malformed or rejected input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrUnauthorized indicates a missing or expired session.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrForbidden indicates the principal lacks the required rank.
	ErrForbidden = errors.New("forbidden")
	// ErrUnavailable indicates the persistence layer is unreachable or saturated.
	ErrUnavailable = errors.New("service busy")
	// ErrInvalidCredentials indicates login failure.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing occurs when CSRF token missing.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch occurs when CSRF tokens do not match.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)

// UserSafeMessage returns a message that may be shown to end users.
// Anything outside the known taxonomy collapses to a generic text.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidArgument):
		return strings.TrimSuffix(err.Error(), ": "+ErrInvalidArgument.Error())
	case errors.Is(err, ErrNotFound):
		return "The requested record does not exist"
	case errors.Is(err, ErrInvalidCredentials):
		return "Invalid username or password"
	case errors.Is(err, ErrUnauthorized):
		return "Please sign in to continue"
	case errors.Is(err, ErrForbidden):
		return "You do not have permission to perform this action"
	case errors.Is(err, ErrUnavailable):
		return "The service is busy, please try again shortly"
	default:
		return "Something went wrong, please try again"
	}
}
