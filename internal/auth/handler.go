package auth

import (
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/stockroom/stockroom/internal/observability"
	"github.com/stockroom/stockroom/internal/platform/httpx"
	"github.com/stockroom/stockroom/internal/rbac"
	"github.com/stockroom/stockroom/internal/shared"
	"github.com/stockroom/stockroom/internal/view"
)

// HomePath is where a successful form login lands.
const HomePath = "/materials"

// Handler wires HTTP endpoints for authentication flows.
type Handler struct {
	logger         *slog.Logger
	service        *Service
	templates      *view.Engine
	sessionManager *shared.SessionManager
	csrfManager    *shared.CSRFManager
	metrics        *observability.Metrics
	validator      *validator.Validate
}

// NewHandler constructs a Handler instance. metrics may be nil.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, sessions *shared.SessionManager, csrf *shared.CSRFManager, metrics *observability.Metrics) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		logger:         logger,
		service:        service,
		templates:      templates,
		sessionManager: sessions,
		csrfManager:    csrf,
		metrics:        metrics,
		validator:      shared.NewValidator(),
	}
}

// MountRoutes registers the login and logout pages. loginLimit throttles
// POST /login and may be nil.
func (h *Handler) MountRoutes(r chi.Router, loginLimit func(http.Handler) http.Handler) {
	r.Get("/login", h.showLogin)
	if loginLimit != nil {
		r.With(loginLimit).Post("/login", h.handleLogin)
	} else {
		r.Post("/login", h.handleLogin)
	}
	r.Get("/logout", h.handleLogout)
	r.Post("/logout", h.handleLogout)
}

// MountAPI registers GET /api/session.
func (h *Handler) MountAPI(r chi.Router) {
	r.Get("/session", h.session)
}

type loginPageData struct {
	Username string
	Error    string
}

// sessionView is what script clients learn about their session.
type sessionView struct {
	Principal *rbac.Principal `json:"principal"`
	CSRFToken string          `json:"csrfToken"`
}

func (h *Handler) showLogin(w http.ResponseWriter, r *http.Request) {
	if shared.IdentityFromContext(r.Context()) != nil {
		http.Redirect(w, r, HomePath, http.StatusSeeOther)
		return
	}
	h.renderLogin(w, r, http.StatusOK, loginPageData{})
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	asJSON := isJSON(r)
	creds, err := h.readCredentials(w, r, asJSON)
	if err == nil {
		creds = creds.Normalize()
		err = shared.ValidateStruct(h.validator, creds)
	}
	if err != nil {
		h.loginFailed(w, r, asJSON, creds.Username, err)
		return
	}

	principal, err := h.service.Authenticate(r.Context(), creds.Username, creds.Password)
	if err != nil {
		if errors.Is(err, shared.ErrInvalidCredentials) {
			h.metrics.RecordLogin(observability.LoginFailure)
			h.logger.Info("login rejected", slog.String("username", creds.Username), slog.String("ip", r.RemoteAddr))
		} else {
			h.metrics.RecordLogin(observability.LoginError)
			h.logger.Error("login failed", slog.Any("error", err))
		}
		h.loginFailed(w, r, asJSON, creds.Username, err)
		return
	}

	sess := shared.SessionFromContext(r.Context())
	if sess == nil {
		h.logger.Error("session missing during login")
		h.loginFailed(w, r, asJSON, creds.Username, errors.New("session missing"))
		return
	}
	h.sessionManager.Authenticate(sess, principal.Identity())
	h.metrics.RecordLogin(observability.LoginSuccess)
	h.logger.Info("login", slog.Int64("user_id", principal.ID), slog.String("role", principal.Role.String()))

	expiresAt := h.sessionManager.ExpiresAt(sess)
	if err := h.service.RegisterSession(r.Context(), sess.ID, principal.ID, expiresAt, r.RemoteAddr, r.UserAgent()); err != nil {
		h.logger.Warn("register session", slog.Any("error", err))
	}

	if asJSON {
		token, err := h.csrfManager.EnsureToken(r.Context(), sess)
		if err != nil {
			h.logger.Error("issue csrf token", slog.Any("error", err))
		}
		httpx.OK(w, sessionView{Principal: &principal, CSRFToken: token})
		return
	}
	sess.AddFlash(shared.FlashMessage{Kind: "success", Message: "Welcome back, " + principal.FullName})
	http.Redirect(w, r, HomePath, http.StatusSeeOther)
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	if sess != nil {
		if identity := sess.Identity(); identity != nil {
			h.logger.Info("logout", slog.Int64("user_id", identity.UserID))
			if err := h.service.RemoveSession(r.Context(), sess.ID); err != nil {
				h.logger.Warn("remove session", slog.Any("error", err))
			}
		}
		h.sessionManager.Destroy(sess)
	}
	http.Redirect(w, r, rbac.LoginPath, http.StatusSeeOther)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	sess := shared.SessionFromContext(r.Context())
	token, err := h.csrfManager.EnsureToken(r.Context(), sess)
	if err != nil {
		h.logger.Error("issue csrf token", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := sessionView{CSRFToken: token}
	if identity := sess.Identity(); identity != nil {
		p := rbac.PrincipalFromIdentity(*identity)
		out.Principal = &p
	}
	httpx.OK(w, out)
}

func (h *Handler) readCredentials(w http.ResponseWriter, r *http.Request, asJSON bool) (Credentials, error) {
	var creds Credentials
	if asJSON {
		err := httpx.DecodeJSON(w, r, &creds)
		return creds, err
	}
	if err := r.ParseForm(); err != nil {
		return creds, fmt.Errorf("malformed form: %w", shared.ErrInvalidArgument)
	}
	creds.Username = r.PostFormValue("username")
	creds.Password = r.PostFormValue("password")
	return creds, nil
}

func (h *Handler) loginFailed(w http.ResponseWriter, r *http.Request, asJSON bool, username string, err error) {
	if asJSON {
		httpx.RespondError(w, err)
		return
	}
	h.renderLogin(w, r, httpx.StatusFor(err), loginPageData{Username: username, Error: shared.UserSafeMessage(err)})
}

func (h *Handler) renderLogin(w http.ResponseWriter, r *http.Request, status int, data loginPageData) {
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrfManager.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Sign in",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Data:        data,
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/login.html", viewData); err != nil {
		h.logger.Error("render login", slog.Any("error", err))
	}
}

func isJSON(r *http.Request) bool {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mt == "application/json"
}

