package rbac

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/stockroom/stockroom/internal/platform/httpx"
	"github.com/stockroom/stockroom/internal/shared"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the principal in context.
func ContextWithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext returns the principal resolved by the middleware.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalContextKey{}).(Principal)
	return p, ok
}

// Mode selects how a rejected request is answered.
type Mode int

const (
	// ModeAPI answers with JSON status codes.
	ModeAPI Mode = iota
	// ModePage redirects anonymous visitors to the login page.
	ModePage
)

// LoginPath is where anonymous page visitors are sent.
const LoginPath = "/login"

// Middleware wires authentication and rank checks for HTTP handlers.
type Middleware struct {
	Logger *slog.Logger
}

// RequirePrincipal resolves the session principal or rejects the request:
// 401 JSON for ModeAPI, a redirect to /login for ModePage.
func (m Middleware) RequirePrincipal(mode Mode) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity := shared.IdentityFromContext(r.Context())
			if identity == nil {
				if mode == ModePage {
					http.Redirect(w, r, LoginPath, http.StatusSeeOther)
					return
				}
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			ctx := ContextWithPrincipal(r.Context(), PrincipalFromIdentity(*identity))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireElevated admits managers and admins only.
func (m Middleware) RequireElevated(mode Mode) func(http.Handler) http.Handler {
	return m.require(mode, HasElevatedAccess)
}

func (m Middleware) require(mode Mode, allowed func(Subject) bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := PrincipalFromContext(r.Context())
			if !ok {
				if mode == ModePage {
					http.Redirect(w, r, LoginPath, http.StatusSeeOther)
					return
				}
				httpx.RespondError(w, shared.ErrUnauthorized)
				return
			}
			if !allowed(p.Subject()) {
				if m.Logger != nil {
					m.Logger.Warn("rank check denied", slog.Int64("user_id", p.ID), slog.String("role", p.Role.String()), slog.String("path", r.URL.Path))
				}
				if mode == ModePage {
					http.Error(w, http.StatusText(http.StatusForbidden), http.StatusForbidden)
					return
				}
				httpx.RespondError(w, shared.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
