package approvalshandler

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/expense"
	"expenseflow/internal/transport/http/api"
	"expenseflow/internal/transport/http/middleware"
	"expenseflow/internal/transport/http/shared"
)

type Engine interface {
	PendingForApprover(ctx context.Context, actor auth.Actor) ([]expense.PendingApproval, error)
	Decide(ctx context.Context, actor auth.Actor, recordID string, decision expense.Decision, comments string) (expense.DecideResult, error)
}

type Handler struct {
	Engine Engine
	Audit  shared.AuditRecorder
}

func NewHandler(engine Engine, auditLog shared.AuditRecorder) *Handler {
	return &Handler{Engine: engine, Audit: auditLog}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/approvals", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Get("/pending", h.handlePending)
		r.Post("/{approvalID}/decision", h.handleDecision)
	})
}

func (h *Handler) handlePending(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	items, err := h.Engine.PendingForApprover(r.Context(), actor)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if items == nil {
		items = []expense.PendingApproval{}
	}
	api.Success(w, items, reqID)
}

func (h *Handler) handleDecision(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload struct {
		Decision string `json:"decision"`
		Comments string `json:"comments"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("decision", payload.Decision, "is required")
	v.Enum("decision", payload.Decision, []string{string(expense.RecordApproved), string(expense.RecordRejected)}, "must be APPROVED or REJECTED")
	v.MaxLen("comments", payload.Comments, 2000)
	if v.Reject(w, reqID) {
		return
	}

	decision := expense.Decision(strings.ToUpper(strings.TrimSpace(payload.Decision)))
	result, err := h.Engine.Decide(r.Context(), actor, chi.URLParam(r, "approvalID"), decision, payload.Comments)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionApprovalDecide,
		EntityType: audit.EntityApproval,
		EntityID:   result.Record.ID,
		After:      result,
	})
	api.Success(w, result, reqID)
}
