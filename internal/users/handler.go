package users

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/stockroom/stockroom/internal/platform/httpx"
	"github.com/stockroom/stockroom/internal/rbac"
	"github.com/stockroom/stockroom/internal/shared"
	"github.com/stockroom/stockroom/internal/view"
)

// Handler manages user management endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *view.Engine
	csrf      *shared.CSRFManager
	rbac      rbac.Middleware
}

// NewHandler builds Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *view.Engine, csrf *shared.CSRFManager, rbac rbac.Middleware) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, csrf: csrf, rbac: rbac}
}

// MountAPI registers the JSON routes under /api/users. Rank rules are
// applied by the Service so every route only needs a principal.
func (h *Handler) MountAPI(r chi.Router) {
	r.Use(h.rbac.RequirePrincipal(rbac.ModeAPI))
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/roles", h.roles)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// MountPages registers the user management page under /users.
func (h *Handler) MountPages(r chi.Router) {
	r.Use(h.rbac.RequirePrincipal(rbac.ModePage))
	r.Use(h.rbac.RequireElevated(rbac.ModePage))
	r.Get("/", h.page)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	users, err := h.service.List(r.Context(), actor.Subject())
	if err != nil {
		h.fail(w, r, "list users", err)
		return
	}
	httpx.OK(w, users)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.Get(r.Context(), actorFrom(r).Subject(), id)
	if err != nil {
		h.fail(w, r, "get user", err)
		return
	}
	httpx.OK(w, u)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	var req CreateRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	u, err := h.service.Create(r.Context(), actor.Subject(), req)
	if err != nil {
		h.fail(w, r, "create user", err)
		return
	}
	h.logger.Info("user created", slog.Int64("id", u.ID), slog.String("role", u.Role.String()), slog.String("by", actor.Username))
	httpx.Created(w, u.ID)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var req UpdateRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Update(r.Context(), actor.Subject(), id, req); err != nil {
		h.fail(w, r, "update user", err)
		return
	}
	h.logger.Info("user updated", slog.Int64("id", id), slog.String("by", actor.Username))
	httpx.Done(w, "User updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), actor.Subject(), id); err != nil {
		h.fail(w, r, "delete user", err)
		return
	}
	h.logger.Info("user deleted", slog.Int64("id", id), slog.String("by", actor.Username))
	httpx.Done(w, "User deleted")
}

func (h *Handler) roles(w http.ResponseWriter, r *http.Request) {
	httpx.OK(w, h.service.Roles(actorFrom(r).Subject()))
}

// row is one line of the users page with the actions the viewer may take.
type row struct {
	User      User
	CanEdit   bool
	CanDelete bool
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	actor := actorFrom(r)
	subject := actor.Subject()
	users, err := h.service.List(r.Context(), subject)
	rows := make([]row, 0, len(users))
	for _, u := range users {
		rows = append(rows, row{
			User:      u,
			CanEdit:   rbac.CanEdit(subject, u.Subject()),
			CanDelete: rbac.CanDelete(subject, u.Subject()),
		})
	}
	data := map[string]any{"Users": rows, "Roles": h.service.Roles(subject)}
	status := http.StatusOK
	if err != nil {
		h.logger.Error("list users page", slog.Any("error", err))
		data["Error"] = shared.UserSafeMessage(err)
		status = httpx.StatusFor(err)
	}

	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/users.html", view.TemplateData{
		Title:       "Users",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   actor,
		Data:        data,
	}); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := httpx.StatusFor(err)
	switch {
	case status >= http.StatusInternalServerError:
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	case status == http.StatusForbidden:
		actor := actorFrom(r)
		h.logger.Warn(op+" denied", slog.Int64("user_id", actor.ID), slog.String("role", actor.Role.String()))
	}
	httpx.RespondError(w, err)
}

func actorFrom(r *http.Request) rbac.Principal {
	p, _ := rbac.PrincipalFromContext(r.Context())
	return p
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid user id: %w", shared.ErrInvalidArgument)
	}
	return id, nil
}
