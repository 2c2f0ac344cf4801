package audit

import (
	"context"
	"encoding/json"
	"time"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/platform/querier"
)

const (
	ActionExpenseCreate    = "expense.create"
	ActionExpenseUpdate    = "expense.update"
	ActionExpenseDelete    = "expense.delete"
	ActionExpenseSubmit    = "expense.submit"
	ActionExpensePay       = "expense.pay"
	ActionApprovalDecide   = "approval.decide"
	ActionApproverAssign   = "approval.assign"
	ActionBudgetCreate     = "budget.create"
	ActionUserRoleChange   = "user.role.change"
	ActionUserStatusChange = "user.status.change"
	ActionDepartmentCreate = "department.create"
	ActionDepartmentUpdate = "department.update"
	ActionDepartmentDelete = "department.delete"
	ActionCategoryCreate   = "category.create"
	ActionCategoryUpdate   = "category.update"
	ActionCategoryDelete   = "category.delete"
)

const (
	EntityExpense    = "expense"
	EntityApproval   = "approval"
	EntityBudget     = "budget"
	EntityUser       = "user"
	EntityDepartment = "department"
	EntityCategory   = "category"
)

type Event struct {
	ID         int64           `json:"id"`
	ActorID    string          `json:"actorId"`
	Action     string          `json:"action"`
	EntityType string          `json:"entityType"`
	EntityID   string          `json:"entityId"`
	RequestID  string          `json:"requestId"`
	IP         string          `json:"ip"`
	CreatedAt  time.Time       `json:"createdAt"`
	Before     json.RawMessage `json:"before,omitempty"`
	After      json.RawMessage `json:"after,omitempty"`
}

// Entry is one event to record.
type Entry struct {
	ActorID    string
	Action     string
	EntityType string
	EntityID   string
	RequestID  string
	IP         string
	Before     any
	After      any
}

type Filter struct {
	Action     string
	EntityType string
	EntityID   string
	ActorUser  string
}

type Service struct {
	DB querier.Querier
}

func New(db querier.Querier) *Service {
	return &Service{DB: db}
}

func (s *Service) Record(ctx context.Context, e Entry) error {
	beforeJSON, err := marshalOptional(e.Before)
	if err != nil {
		return err
	}
	afterJSON, err := marshalOptional(e.After)
	if err != nil {
		return err
	}

	_, err = s.DB.Exec(ctx, `
    INSERT INTO audit_events (actor_user_id, action, entity_type, entity_id, before_json, after_json, request_id, ip)
    VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
  `, e.ActorID, e.Action, e.EntityType, e.EntityID, beforeJSON, afterJSON, e.RequestID, e.IP)
	return querier.MapError("record audit event", err, nil, nil)
}

func marshalOptional(value any) ([]byte, error) {
	if value == nil {
		return nil, nil
	}
	return json.Marshal(value)
}

func (s *Service) Count(ctx context.Context, actor auth.Actor, filter Filter) (int, error) {
	if err := auth.Authorize(actor, auth.PermViewAuditLogs); err != nil {
		return 0, err
	}
	query, args := buildBaseQuery("SELECT COUNT(1)", filter)
	var total int
	if err := s.DB.QueryRow(ctx, query, args...).Scan(&total); err != nil {
		return 0, querier.MapError("count audit events", err, nil, nil)
	}
	return total, nil
}

func (s *Service) List(ctx context.Context, actor auth.Actor, filter Filter, includeDetails bool, limit, offset int) ([]Event, error) {
	if err := auth.Authorize(actor, auth.PermViewAuditLogs); err != nil {
		return nil, err
	}
	selectCols := "id, actor_user_id, action, entity_type, entity_id, request_id, ip, created_at"
	if includeDetails {
		selectCols += ", before_json, after_json"
	}
	query, args := buildBaseQuery("SELECT "+selectCols, filter)
	bind := querier.Dollar(&args)
	query += " ORDER BY created_at DESC, id DESC LIMIT " + bind(limit) + " OFFSET " + bind(offset)
	return s.query(ctx, query, args, includeDetails)
}

// ListExport returns every matching event for CSV export.
func (s *Service) ListExport(ctx context.Context, actor auth.Actor, filter Filter) ([]Event, error) {
	if err := auth.Authorize(actor, auth.PermViewAuditLogs); err != nil {
		return nil, err
	}
	if err := auth.Authorize(actor, auth.PermExportData); err != nil {
		return nil, err
	}
	query, args := buildBaseQuery("SELECT id, actor_user_id, action, entity_type, entity_id, request_id, ip, created_at", filter)
	return s.query(ctx, query+" ORDER BY created_at DESC, id DESC", args, false)
}

func (s *Service) query(ctx context.Context, query string, args []any, includeDetails bool) ([]Event, error) {
	rows, err := s.DB.Query(ctx, query, args...)
	if err != nil {
		return nil, querier.MapError("list audit events", err, nil, nil)
	}
	defer rows.Close()

	out := []Event{}
	for rows.Next() {
		var evt Event
		dest := []any{&evt.ID, &evt.ActorID, &evt.Action, &evt.EntityType, &evt.EntityID, &evt.RequestID, &evt.IP, &evt.CreatedAt}
		if includeDetails {
			dest = append(dest, &evt.Before, &evt.After)
		}
		if err := rows.Scan(dest...); err != nil {
			return nil, querier.MapError("scan audit event", err, nil, nil)
		}
		out = append(out, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, querier.MapError("list audit events", err, nil, nil)
	}
	return out, nil
}

func buildBaseQuery(prefix string, filter Filter) (string, []any) {
	var args []any
	bind := querier.Dollar(&args)
	query := prefix + " FROM audit_events WHERE 1=1"
	if filter.Action != "" {
		query += " AND action = " + bind(filter.Action)
	}
	if filter.EntityType != "" {
		query += " AND entity_type = " + bind(filter.EntityType)
	}
	if filter.EntityID != "" {
		query += " AND entity_id = " + bind(filter.EntityID)
	}
	if filter.ActorUser != "" {
		query += " AND actor_user_id = " + bind(filter.ActorUser)
	}
	return query, args
}
