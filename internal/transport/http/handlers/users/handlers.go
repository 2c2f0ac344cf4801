package usershandler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/users"
	"expenseflow/internal/transport/http/api"
	"expenseflow/internal/transport/http/middleware"
	"expenseflow/internal/transport/http/shared"
)

type Service interface {
	Me(ctx context.Context, actor auth.Actor) (users.User, error)
	List(ctx context.Context, actor auth.Actor, filter users.ListFilter) (users.Page, error)
	ChangeRole(ctx context.Context, actor auth.Actor, userID string, role auth.Role) (users.User, error)
	SetActive(ctx context.Context, actor auth.Actor, userID string, active bool) (users.User, error)
}

type Handler struct {
	Service Service
	Audit   shared.AuditRecorder
}

func NewHandler(service Service, auditLog shared.AuditRecorder) *Handler {
	return &Handler{Service: service, Audit: auditLog}
}

type permissionsView struct {
	Role         auth.Role         `json:"role"`
	Permissions  []auth.Permission `json:"permissions"`
	Capabilities auth.Capabilities `json:"capabilities"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/me", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.Get("/", h.handleMe)
		r.Get("/permissions", h.handlePermissions)
	})
	r.Route("/users", func(r chi.Router) {
		r.Use(middleware.RequireActor)
		r.With(middleware.RequirePermission(auth.PermViewAllUsers)).Get("/", h.handleList)
		r.With(middleware.RequirePermission(auth.PermUpdateUserRole)).Patch("/{userID}/role", h.handleChangeRole)
		r.With(middleware.RequirePermission(auth.PermUpdateUser)).Patch("/{userID}/active", h.handleSetActive)
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	user, err := h.Service.Me(r.Context(), actor)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, user, reqID)
}

func (h *Handler) handlePermissions(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	if err := auth.Require(actor); err != nil {
		api.FailError(w, err, reqID)
		return
	}
	api.Success(w, permissionsView{
		Role:         actor.Role,
		Permissions:  auth.PermissionsFor(actor.Role),
		Capabilities: auth.CapabilitiesFor(actor.Role),
	}, reqID)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())

	page := shared.ParsePagination(r, 50, 200)
	role := auth.Role(strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("role"))))
	if role != "" && !role.Valid() {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "role", Reason: "unknown role"}})
		return
	}
	result, err := h.Service.List(r.Context(), actor, users.ListFilter{Role: role, Limit: page.Limit, Offset: page.Offset})
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	w.Header().Set("X-Total-Count", strconv.Itoa(result.Total))
	api.Success(w, result, reqID)
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	userID := chi.URLParam(r, "userID")

	var payload struct {
		Role string `json:"role"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	roles := make([]string, 0, len(auth.AllRoles))
	for _, role := range auth.AllRoles {
		roles = append(roles, string(role))
	}
	v := shared.NewValidator()
	v.Required("role", payload.Role, "is required")
	v.Enum("role", payload.Role, roles, "unknown role")
	if v.Reject(w, reqID) {
		return
	}

	updated, err := h.Service.ChangeRole(r.Context(), actor, userID, auth.Role(strings.ToUpper(strings.TrimSpace(payload.Role))))
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionUserRoleChange,
		EntityType: audit.EntityUser,
		EntityID:   updated.ID,
		After:      map[string]any{"role": updated.Role},
	})
	api.Success(w, updated, reqID)
}

func (h *Handler) handleSetActive(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.GetActor(r.Context())
	reqID := middleware.GetRequestID(r.Context())
	userID := chi.URLParam(r, "userID")

	var payload struct {
		Active *bool `json:"isActive"`
	}
	if !shared.DecodeJSON(w, r, &payload, reqID) {
		return
	}
	if payload.Active == nil {
		shared.FailValidation(w, reqID, []shared.ValidationIssue{{Field: "isActive", Reason: "is required"}})
		return
	}

	updated, err := h.Service.SetActive(r.Context(), actor, userID, *payload.Active)
	if err != nil {
		api.FailError(w, err, reqID)
		return
	}

	shared.RecordAudit(r, h.Audit, actor, audit.Entry{
		Action:     audit.ActionUserStatusChange,
		EntityType: audit.EntityUser,
		EntityID:   updated.ID,
		After:      map[string]any{"isActive": updated.Active},
	})
	api.Success(w, updated, reqID)
}
