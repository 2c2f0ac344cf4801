package audithandler

import (
	"context"
	"encoding/csv"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/transport/http/api"
	"expenseflow/internal/transport/http/middleware"
	"expenseflow/internal/transport/http/shared"
)

type Service interface {
	Count(ctx context.Context, actor auth.Actor, filter audit.Filter) (int, error)
	List(ctx context.Context, actor auth.Actor, filter audit.Filter, includeDetails bool, limit, offset int) ([]audit.Event, error)
	ListExport(ctx context.Context, actor auth.Actor, filter audit.Filter) ([]audit.Event, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/audit", func(r chi.Router) {
		r.Use(middleware.RequirePermission(auth.PermViewAuditLogs))
		r.Get("/events", h.handleListEvents)
		r.With(middleware.RequirePermission(auth.PermExportData)).Get("/events/export", h.handleExportEvents)
	})
}

func filterFrom(r *http.Request) audit.Filter {
	q := r.URL.Query()
	return audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entityType"),
		EntityID:   q.Get("entityId"),
		ActorUser:  q.Get("actorUserId"),
	}
}

func (h *Handler) handleListEvents(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 100, 500)
	includeDetails := r.URL.Query().Get("includeDetails") == "true"
	filter := filterFrom(r)
	total, err := h.Service.Count(r.Context(), actor, filter)
	if err != nil {
		zap.L().Warn("audit count failed", zap.Error(err))
	}

	events, err := h.Service.List(r.Context(), actor, filter, includeDetails, page.Limit, page.Offset)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	if events == nil {
		events = []audit.Event{}
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(total))
	api.Success(w, events, reqID)
}

func (h *Handler) handleExportEvents(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	events, err := h.Service.ListExport(r.Context(), actor, filterFrom(r))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", "attachment; filename=audit-events.csv")
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{"id", "actor_user_id", "action", "entity_type", "entity_id", "request_id", "ip", "created_at"}); err != nil {
		zap.L().Warn("audit export header failed", zap.Error(err))
	}
	for _, evt := range events {
		row := []string{
			strconv.FormatInt(evt.ID, 10),
			evt.ActorID,
			evt.Action,
			evt.EntityType,
			evt.EntityID,
			evt.RequestID,
			evt.IP,
			evt.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			zap.L().Warn("audit export row failed", zap.Error(err))
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		zap.L().Warn("audit export flush failed", zap.Error(err))
	}
}
