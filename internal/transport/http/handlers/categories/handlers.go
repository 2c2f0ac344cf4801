package categorieshandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/categories"
	"expenseflow/internal/transport/http/api"
	"expenseflow/internal/transport/http/middleware"
	"expenseflow/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context, actor auth.Actor, filter categories.ListFilter) ([]categories.Category, error)
	Get(ctx context.Context, actor auth.Actor, categoryID string) (categories.Category, error)
	Create(ctx context.Context, actor auth.Actor, in categories.Input) (categories.Category, error)
	Update(ctx context.Context, actor auth.Actor, categoryID string, patch categories.Patch) (categories.Category, error)
	Delete(ctx context.Context, actor auth.Actor, categoryID string) (categories.Category, error)
}

type Handler struct {
	Service Service
	Audit   shared.AuditRecorder
}

func NewHandler(service Service, auditLog shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: auditLog}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/categories", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermCreateCategory)).Post("/", h.handleCreate)
		r.Get("/{categoryID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermUpdateCategory)).Patch("/{categoryID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermDeleteCategory)).Delete("/{categoryID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	includeInactive, _ := strconv.ParseBool(r.URL.Query().Get("includeInactive"))
	items, err := h.Service.List(r.Context(), actor, categories.ListFilter{IncludeInactive: includeInactive})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if items == nil {
		items = []categories.Category{}
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	item, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "categoryID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload categories.Input
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("name", payload.Name, "is required")
	v.MaxLen("name", payload.Name, 100)
	v.MaxLen("description", payload.Description, 500)
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Create(r.Context(), actor, payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionCategoryCreate,
		EntityType: audit.EntityCategory,
		EntityID:   created.ID,
		After:      created,
	})
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	categoryID := chi.URLParam(r, "categoryID")

	var payload categories.Patch
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	if payload.Name != nil {
		v.Required("name", *payload.Name, "must not be empty")
		v.MaxLen("name", *payload.Name, 100)
	}
	if payload.Description != nil {
		v.MaxLen("description", *payload.Description, 500)
	}
	if v.Reject(w, reqID) {
		return
	}

	before, err := h.Service.Get(r.Context(), actor, categoryID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	updated, err := h.Service.Update(r.Context(), actor, categoryID, payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionCategoryUpdate,
		EntityType: audit.EntityCategory,
		EntityID:   updated.ID,
		Before:     before,
		After:      updated,
	})
	api.Success(w, updated, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	deactivated, err := h.Service.Delete(r.Context(), actor, chi.URLParam(r, "categoryID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionCategoryDelete,
		EntityType: audit.EntityCategory,
		EntityID:   deactivated.ID,
		After:      deactivated,
	})
	api.Success(w, deactivated, reqID)
}
