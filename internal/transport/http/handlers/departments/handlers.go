package departmentshandler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/departments"
	"expenseflow/internal/transport/http/api"
	"expenseflow/internal/transport/http/middleware"
	"expenseflow/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context, actor auth.Actor) ([]departments.Department, error)
	Get(ctx context.Context, actor auth.Actor, departmentID string) (departments.Department, error)
	Create(ctx context.Context, actor auth.Actor, in departments.Input) (departments.Department, error)
	Update(ctx context.Context, actor auth.Actor, departmentID string, patch departments.Patch) (departments.Department, error)
	Delete(ctx context.Context, actor auth.Actor, departmentID string) error
}

type Handler struct {
	Service Service
	Audit   shared.AuditRecorder
}

func NewHandler(service Service, auditLog shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: auditLog}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/departments", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermCreateDepartment)).Post("/", h.handleCreate)
		r.Get("/{departmentID}", h.handleGet)
		r.With(middleware.RequirePermission(auth.PermUpdateDepartment)).Patch("/{departmentID}", h.handleUpdate)
		r.With(middleware.RequirePermission(auth.PermDeleteDepartment)).Delete("/{departmentID}", h.handleDelete)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	items, err := h.Service.List(r.Context(), actor)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if items == nil {
		items = []departments.Department{}
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	item, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "departmentID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload departments.Input
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
		Action:     audit.ActionDepartmentCreate,
		EntityType: audit.EntityDepartment,
		EntityID:   created.ID,
		After:      created,
	})
	api.Created(w, created, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	departmentID := chi.URLParam(r, "departmentID")

	var payload departments.Patch
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

	before, err := h.Service.Get(r.Context(), actor, departmentID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	updated, err := h.Service.Update(r.Context(), actor, departmentID, payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionDepartmentUpdate,
		EntityType: audit.EntityDepartment,
		EntityID:   updated.ID,
		Before:     before,
		After:      updated,
	})
	api.Success(w, updated, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	departmentID := chi.URLParam(r, "departmentID")

	if err := h.Service.Delete(r.Context(), actor, departmentID); err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionDepartmentDelete,
		EntityType: audit.EntityDepartment,
		EntityID:   departmentID,
	})
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}
