package materials

import (
	"bytes"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/stockroom/stockroom/internal/platform/httpx"
	"github.com/stockroom/stockroom/internal/rbac"
	"github.com/stockroom/stockroom/internal/shared"
	"github.com/stockroom/stockroom/internal/view"
)

// Handler exposes materials over JSON and the server-rendered page.
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

// MountAPI registers the JSON routes under /api/materials.
func (h *Handler) MountAPI(r chi.Router) {
	r.Use(h.rbac.RequirePrincipal(rbac.ModeAPI))
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Delete("/", h.deleteMany)
	r.Get("/summary", h.summary)
	r.Get("/export", h.export)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.update)
	r.Delete("/{id}", h.delete)
}

// MountPages registers the server-rendered listing under /materials.
func (h *Handler) MountPages(r chi.Router) {
	r.Use(h.rbac.RequirePrincipal(rbac.ModePage))
	r.Get("/", h.page)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	items, err := h.service.List(r.Context())
	if err != nil {
		h.fail(w, r, "list materials", err)
		return
	}
	httpx.OK(w, items)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, r, "get material", err)
		return
	}
	httpx.OK(w, m)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	var fields Fields
	if err := httpx.DecodeJSON(w, r, &fields); err != nil {
		httpx.RespondError(w, err)
		return
	}
	m, err := h.service.Create(r.Context(), fields, principal.Username)
	if err != nil {
		h.fail(w, r, "create material", err)
		return
	}
	h.logger.Info("material created", slog.Int64("id", m.ID), slog.String("by", principal.Username))
	httpx.Created(w, m.ID)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	var fields Fields
	if err := httpx.DecodeJSON(w, r, &fields); err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Update(r.Context(), id, fields, principal.Username); err != nil {
		h.fail(w, r, "update material", err)
		return
	}
	httpx.Done(w, "Material updated")
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if err := h.service.Delete(r.Context(), id); err != nil {
		h.fail(w, r, "delete material", err)
		return
	}
	httpx.Done(w, "Material deleted")
}

func (h *Handler) deleteMany(w http.ResponseWriter, r *http.Request) {
	var req DeleteManyRequest
	if err := httpx.DecodeJSON(w, r, &req); err != nil {
		httpx.RespondError(w, err)
		return
	}
	removed, err := h.service.DeleteMany(r.Context(), req.IDs)
	if err != nil {
		h.fail(w, r, "delete materials", err)
		return
	}
	httpx.Done(w, fmt.Sprintf("%d material(s) deleted", removed))
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.fail(w, r, "materials summary", err)
		return
	}
	httpx.OK(w, summary)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.Export(r.Context(), &buf); err != nil {
		h.fail(w, r, "export materials", err)
		return
	}
	filename := "materials-" + time.Now().Format("20060102") + ".xlsx"
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := buf.WriteTo(w); err != nil {
		h.logger.Warn("write materials workbook", slog.Any("error", err))
	}
}

func (h *Handler) page(w http.ResponseWriter, r *http.Request) {
	principal, _ := rbac.PrincipalFromContext(r.Context())
	items, err := h.service.List(r.Context())
	data := map[string]any{"Materials": items, "Principal": principal}
	status := http.StatusOK
	if err != nil {
		h.logger.Error("list materials page", slog.Any("error", err))
		data["Error"] = shared.UserSafeMessage(err)
		status = httpx.StatusFor(err)
	}
	sess := shared.SessionFromContext(r.Context())
	csrfToken, _ := h.csrf.EnsureToken(r.Context(), sess)
	var flash *shared.FlashMessage
	if sess != nil {
		flash = sess.PopFlash()
	}
	viewData := view.TemplateData{
		Title:       "Materials",
		CSRFToken:   csrfToken,
		Flash:       flash,
		CurrentPath: r.URL.Path,
		Principal:   principal,
		Data:        data,
	}
	w.WriteHeader(status)
	if err := h.templates.Render(w, "pages/materials.html", viewData); err != nil {
		h.logger.Error("render template", slog.Any("error", err))
	}
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if httpx.StatusFor(err) >= http.StatusInternalServerError {
		h.logger.Error(op, slog.Any("error", err), slog.String("path", r.URL.Path))
	}
	httpx.RespondError(w, err)
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid material id: %w", shared.ErrInvalidArgument)
	}
	return id, nil
}
