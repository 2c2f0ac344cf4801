package budgetshandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/budget"
	"expenseflow/internal/transport/http/api"
	"expenseflow/internal/transport/http/middleware"
	"expenseflow/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context, actor auth.Actor, filter budget.Filter) ([]budget.Budget, error)
	Get(ctx context.Context, actor auth.Actor, budgetID string) (budget.Budget, error)
	Create(ctx context.Context, actor auth.Actor, in budget.Input) (budget.Budget, error)
}

type Handler struct {
	Service Service
	Audit   shared.AuditRecorder
}

func NewHandler(service Service, auditLog shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: auditLog}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/budgets", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermCreateBudget)).Post("/", h.handleCreate)
		r.Get("/{budgetID}", h.handleGet)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	filter := budget.Filter{
		DepartmentID: strings.TrimSpace(r.URL.Query().Get("departmentId")),
		Period:       strings.TrimSpace(r.URL.Query().Get("period")),
	}
	items, err := h.Service.List(r.Context(), actor, filter)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if items == nil {
		items = []budget.Budget{}
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	item, err := h.Service.Get(r.Context(), actor, chi.URLParam(r, "budgetID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, item, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload budget.Input
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("departmentId", payload.DepartmentID, "is required")
	v.Required("period", payload.Period, "is required")
	if v.Reject(w, reqID) {
		return
	}

	created, err := h.Service.Create(r.Context(), actor, payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionBudgetCreate,
		EntityType: audit.EntityBudget,
		EntityID:   created.ID,
		After:      created,
	})
	api.Created(w, created, reqID)
}
