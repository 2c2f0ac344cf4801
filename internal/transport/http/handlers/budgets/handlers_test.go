package budgetshandler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/budget"
	apperrors "expenseflow/internal/errors"
	"expenseflow/internal/requestctx"
)

type fakeService struct {
	items   []budget.Budget
	filter  budget.Filter
	created budget.Input
	err     error
}

func (f *fakeService) List(_ context.Context, _ auth.Actor, filter budget.Filter) ([]budget.Budget, error) {
	f.filter = filter
	return f.items, f.err
}

func (f *fakeService) Get(_ context.Context, _ auth.Actor, budgetID string) (budget.Budget, error) {
	for _, b := range f.items {
		if b.ID == budgetID {
			return b, nil
		}
	}
	return budget.Budget{}, budget.ErrBudgetNotFound
}

func (f *fakeService) Create(_ context.Context, actor auth.Actor, in budget.Input) (budget.Budget, error) {
	if f.err != nil {
		return budget.Budget{}, f.err
	}
	f.created = in
	return budget.Budget{ID: "b-new", DepartmentID: in.DepartmentID, Period: in.Period, Amount: in.Amount, Currency: "USD", CreatedBy: actor.UserID}, nil
}

type recorder struct{ entries []audit.Entry }

func (r *recorder) Record(_ context.Context, e audit.Entry) error {
	r.entries = append(r.entries, e)
	return nil
}

func serve(t *testing.T, h *Handler, actor *auth.Actor, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	router := chi.NewRouter()
	h.RegisterRoutes(router)

	req := httptest.NewRequest(method, path, bytes.NewBufferString(body))
	if actor != nil {
		req = req.WithContext(requestctx.WithActor(req.Context(), *actor))
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

var (
	employee = auth.Actor{UserID: "u-emp", Role: auth.RoleEmployee, DepartmentID: "sales", Active: true}
	finance  = auth.Actor{UserID: "u-fin", Role: auth.RoleFinance, DepartmentID: "finance", Active: true}
)

func TestListPassesFilter(t *testing.T) {
	svc := &fakeService{items: []budget.Budget{{ID: "b-1", DepartmentID: "sales", Period: "2026-Q1"}}}
	rec := serve(t, NewHandler(svc, nil), &employee, http.MethodGet, "/budgets?departmentId=sales&period=2026-Q1", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, budget.Filter{DepartmentID: "sales", Period: "2026-Q1"}, svc.filter)

	var env struct {
		Data []budget.Budget `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	assert.Len(t, env.Data, 1)
}

func TestListEmptyIsArray(t *testing.T) {
	rec := serve(t, NewHandler(&fakeService{}, nil), &employee, http.MethodGet, "/budgets", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"data":[]`)
}

func TestCreateRequiresPermission(t *testing.T) {
	rec := serve(t, NewHandler(&fakeService{}, nil), &employee, http.MethodPost, "/budgets", `{"departmentId":"sales","period":"2026","amount":"100"}`)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestCreateRecordsAudit(t *testing.T) {
	svc := &fakeService{}
	log := &recorder{}
	rec := serve(t, NewHandler(svc, log), &finance, http.MethodPost, "/budgets", `{"departmentId":"sales","period":"2026-Q2","amount":"5000.00"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.True(t, svc.created.Amount.Equal(decimal.NewFromInt(5000)))
	require.Len(t, log.entries, 1)
	assert.Equal(t, audit.ActionBudgetCreate, log.entries[0].Action)
	assert.Equal(t, "b-new", log.entries[0].EntityID)
	assert.Equal(t, "u-fin", log.entries[0].ActorID)
}

func TestCreateValidation(t *testing.T) {
	rec := serve(t, NewHandler(&fakeService{}, nil), &finance, http.MethodPost, "/budgets", `{"amount":"5"}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "departmentId")
}

func TestCreateDuplicatePeriod(t *testing.T) {
	rec := serve(t, NewHandler(&fakeService{err: budget.ErrDuplicatePeriod}, nil), &finance, http.MethodPost, "/budgets", `{"departmentId":"sales","period":"2026","amount":"5"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestGetNotFound(t *testing.T) {
	rec := serve(t, NewHandler(&fakeService{}, nil), &finance, http.MethodGet, "/budgets/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.True(t, apperrors.IsCode(budget.ErrBudgetNotFound, apperrors.CodeNotFound))
}

func TestAnonymousRejected(t *testing.T) {
	rec := serve(t, NewHandler(&fakeService{}, nil), nil, http.MethodGet, "/budgets", "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
