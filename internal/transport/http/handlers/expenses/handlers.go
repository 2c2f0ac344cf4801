package expenseshandler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/expense"
	"expenseflow/internal/transport/http/api"
	"expenseflow/internal/transport/http/middleware"
	"expenseflow/internal/transport/http/shared"
)

// Engine is the part of the approval workflow this handler drives.
type Engine interface {
	List(ctx context.Context, actor auth.Actor, filter expense.ListFilter) (expense.ClaimPage, error)
	Create(ctx context.Context, actor auth.Actor, in expense.ClaimInput) (expense.SubmitResult, error)
	Get(ctx context.Context, actor auth.Actor, claimID string) (expense.Claim, error)
	Update(ctx context.Context, actor auth.Actor, claimID string, patch expense.ClaimPatch) (expense.Claim, error)
	Delete(ctx context.Context, actor auth.Actor, claimID string) error
	Submit(ctx context.Context, actor auth.Actor, claimID string) (expense.SubmitResult, error)
	MarkPaid(ctx context.Context, actor auth.Actor, claimID string) (expense.Claim, error)
	Approvals(ctx context.Context, actor auth.Actor, claimID string) ([]expense.ApprovalRecord, error)
	AssignApprover(ctx context.Context, actor auth.Actor, claimID, approverID string) (expense.ApprovalRecord, error)
}

type TrailExporter interface {
	ApprovalTrail(ctx context.Context, actor auth.Actor, claimID string, w io.Writer) error
}

type Handler struct {
	Engine      Engine
	Reports     TrailExporter
	Audit       shared.AuditRecorder
	Idempotency middleware.IdempotencyBackend
}

func NewHandler(engine Engine, reports TrailExporter, auditLog shared.AuditRecorder) *Handler {
	return &Handler{Engine: engine, Reports: reports, Audit: auditLog}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/expenses", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Get("/", h.handleList)
		r.With(middleware.Idempotent(h.Idempotency)).Post("/", h.handleCreate)
		r.Route("/{expenseID}", func(r chi.Router) {
			r.Get("/", h.handleGet)
			r.Put("/", h.handleUpdate)
			r.Delete("/", h.handleDelete)
			r.Post("/submit", h.handleSubmit)
			r.Post("/pay", h.handlePay)
			r.Get("/approvals", h.handleApprovals)
			r.Get("/approvals/export", h.handleExport)
			r.Post("/approvers", h.handleAssign)
		})
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 20, 100)
	filter := expense.ListFilter{
		Status:     expense.Status(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("status")))),
		CategoryID: strings.TrimSpace(r.URL.Query().Get("categoryId")),
		Limit:      page.Limit,
		Offset:     page.Offset,
	}
	result, err := h.Engine.List(r.Context(), actor, filter)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, result, reqID)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload expense.ClaimInput
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("title", payload.Title, "is required")
	v.MaxLen("title", payload.Title, 200)
	v.MaxLen("description", payload.Description, 2000)
	if v.Reject(w, reqID) {
		return
	}

	result, err := h.Engine.Create(r.Context(), actor, payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionExpenseCreate,
		EntityType: audit.EntityExpense,
		EntityID:   result.Claim.ID,
		After:      result.Claim,
	})
	if payload.SubmitOnCreate {
		shared.RecordAudit(r, h.Audit, actor, audit.Entry{
			Action:     audit.ActionExpenseSubmit,
			EntityType: audit.EntityExpense,
			EntityID:   result.Claim.ID,
			After:      result,
		})
	}
	api.Created(w, result, reqID)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	claim, err := h.Engine.Get(r.Context(), actor, chi.URLParam(r, "expenseID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, claim, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	claimID := chi.URLParam(r, "expenseID")

	var payload expense.ClaimPatch
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	if payload.Title != nil {
		v.Required("title", *payload.Title, "must not be empty")
		v.MaxLen("title", *payload.Title, 200)
	}
	if payload.Description != nil {
		v.MaxLen("description", *payload.Description, 2000)
	}
	if v.Reject(w, reqID) {
		return
	}

	before, err := h.Engine.Get(r.Context(), actor, claimID)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	claim, err := h.Engine.Update(r.Context(), actor, claimID, payload)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionExpenseUpdate,
		EntityType: audit.EntityExpense,
		EntityID:   claim.ID,
		Before:     before,
		After:      claim,
	})
	api.Success(w, claim, reqID)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	claimID := chi.URLParam(r, "expenseID")

	if err := h.Engine.Delete(r.Context(), actor, claimID); err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionExpenseDelete,
		EntityType: audit.EntityExpense,
		EntityID:   claimID,
	})
	api.Success(w, map[string]string{"status": "deleted"}, reqID)
}

func (h *Handler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	result, err := h.Engine.Submit(r.Context(), actor, chi.URLParam(r, "expenseID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionExpenseSubmit,
		EntityType: audit.EntityExpense,
		EntityID:   result.Claim.ID,
		After:      result,
	})
	api.Success(w, result, reqID)
}

func (h *Handler) handlePay(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	claim, err := h.Engine.MarkPaid(r.Context(), actor, chi.URLParam(r, "expenseID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionExpensePay,
		EntityType: audit.EntityExpense,
		EntityID:   claim.ID,
		After:      claim,
	})
	api.Success(w, claim, reqID)
}

func (h *Handler) handleApprovals(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	records, err := h.Engine.Approvals(r.Context(), actor, chi.URLParam(r, "expenseID"))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, records, reqID)
}

func (h *Handler) handleAssign(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	var payload struct {
		ApproverID string `json:"approverId"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	v := shared.NewValidator()
	v.Required("approverId", payload.ApproverID, "is required")
	if v.Reject(w, reqID) {
		return
	}

	record, err := h.Engine.AssignApprover(r.Context(), actor, chi.URLParam(r, "expenseID"), strings.TrimSpace(payload.ApproverID))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionApproverAssign,
		EntityType: audit.EntityApproval,
		EntityID:   record.ID,
		After:      record,
	})
	api.Created(w, record, reqID)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	claimID := chi.URLParam(r, "expenseID")

	if h.Reports == nil {
		api.Fail(w, http.StatusNotImplemented, "export_unavailable", "export is not configured", reqID)
		return
	}
	var buf bytes.Buffer
	if err := h.Reports.ApprovalTrail(r.Context(), actor, claimID, &buf); err != nil {
		api.FailError(w, err, reqID)
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=expense-"+claimID+"-approvals.pdf")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
