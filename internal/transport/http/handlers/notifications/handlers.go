package notificationshandler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/notifications"
	"expenseflow/internal/transport/http/api"
	"expenseflow/internal/transport/http/middleware"
	"expenseflow/internal/transport/http/shared"
)

type Service interface {
	List(ctx context.Context, actor auth.Actor, filter notifications.ListFilter) (notifications.Page, error)
	MarkRead(ctx context.Context, actor auth.Actor, notificationID string) error
	MarkAllRead(ctx context.Context, actor auth.Actor) (int64, error)
}

type Handler struct {
	Service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{Service: service}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/notifications", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Get("/", h.handleList)
		r.Patch("/read-all", h.handleMarkAllRead)
		r.Patch("/{notificationID}/read", h.handleMarkRead)
	})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 20, 100)
	unreadOnly, _ := strconv.ParseBool(r.URL.Query().Get("unread"))
	result, err := h.Service.List(r.Context(), actor, notifications.ListFilter{
		UnreadOnly: unreadOnly,
		Limit:      page.Limit,
		Offset:     page.Offset,
	})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, result, reqID)
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	if err := h.Service.MarkRead(r.Context(), actor, chi.URLParam(r, "notificationID")); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]string{"status": "read"}, reqID)
}

func (h *Handler) handleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	updated, err := h.Service.MarkAllRead(r.Context(), actor)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, map[string]int64{"updated": updated}, reqID)
}
