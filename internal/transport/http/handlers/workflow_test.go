package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/expense"
	"expenseflow/internal/domain/expense/sqlite"
	"expenseflow/internal/domain/reports"
	apperrors "expenseflow/internal/errors"
	approvalshandler "expenseflow/internal/transport/http/handlers/approvals"
	expenseshandler "expenseflow/internal/transport/http/handlers/expenses"
	"expenseflow/internal/transport/http/middleware"
)

const secret = "workflow-secret"

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   *struct {
		Code     string            `json:"code"`
		Message  string            `json:"message"`
		Metadata map[string]string `json:"metadata"`
	} `json:"error"`
}

type directory map[string]auth.Actor

func (d directory) Actor(_ context.Context, userID string) (auth.Actor, error) {
	actor, ok := d[userID]
	if !ok {
		return auth.Actor{}, apperrors.ErrNotFound
	}
	return actor, nil
}

func (d directory) FindActiveUsersByRole(_ context.Context, role auth.Role) ([]expense.Candidate, error) {
	var out []expense.Candidate
	for _, a := range d {
		if a.Role == role && a.Active {
			out = append(out, expense.Candidate{ID: a.UserID, Role: a.Role, DepartmentID: a.DepartmentID})
		}
	}
	return out, nil
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, string, map[string]any) error { return nil }

type auditLog struct {
	mu      sync.Mutex
	entries []audit.Entry
}

func (a *auditLog) Record(_ context.Context, e audit.Entry) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.entries = append(a.entries, e)
	return nil
}

func (a *auditLog) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, 0, len(a.entries))
	for _, e := range a.entries {
		out = append(out, e.Action)
	}
	return out
}

var people = directory{
	"u-emp": {UserID: "u-emp", Role: auth.RoleEmployee, DepartmentID: "sales", Active: true},
	"u-mgr": {UserID: "u-mgr", Role: auth.RoleManager, DepartmentID: "sales", Active: true},
	"u-fin": {UserID: "u-fin", Role: auth.RoleFinance, DepartmentID: "finance", Active: true},
	"u-adm": {UserID: "u-adm", Role: auth.RoleAdmin, DepartmentID: "hq", Active: true},
}

type workflowServer struct {
	url   string
	audit *auditLog
}

func newWorkflowServer(t *testing.T) workflowServer {
	t.Helper()
	store, err := sqlite.Open(filepath.Join(t.TempDir(), "workflow.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine := expense.NewEngine(store, people, nopNotifier{}, expense.WithActorLookup(people))
	log := &auditLog{}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.Auth(secret, people))
	router.Route("/api/v1", func(r chi.Router) {
		expenseshandler.NewHandler(engine, reports.NewService(engine), log).RegisterRoutes(r)
		approvalshandler.NewHandler(engine, log).RegisterRoutes(r)
	})

	ts := httptest.NewServer(router)
	t.Cleanup(ts.Close)
	return workflowServer{url: ts.URL + "/api/v1", audit: log}
}

func (s workflowServer) call(t *testing.T, userID, method, path string, body any) (int, envelope) {
	t.Helper()
	return s.callWithHeaders(t, userID, method, path, body, nil)
}

func (s workflowServer) callWithHeaders(t *testing.T, userID, method, path string, body any, headers map[string]string) (int, envelope) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, s.url+path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	if userID != "" {
		token, err := auth.GenerateToken(secret, auth.Claims{UserID: userID}, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var env envelope
	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
	}
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out))
	return out
}

func TestHighValueClaimJourney(t *testing.T) {
	s := newWorkflowServer(t)

	status, env := s.call(t, "u-emp", http.MethodPost, "/expenses", map[string]any{
		"title":  "Conference travel",
		"amount": "2500.00",
		"submit": true,
	})
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	submitted := decodeData[expense.SubmitResult](t, env)
	assert.Equal(t, expense.StatusPending, submitted.Claim.Status)
	require.Len(t, submitted.Approvals, 2)

	status, env = s.call(t, "u-mgr", http.MethodGet, "/approvals/pending", nil)
	require.Equal(t, http.StatusOK, status)
	pending := decodeData[[]expense.PendingApproval](t, env)
	require.Len(t, pending, 1)
	assert.Equal(t, submitted.Claim.ID, pending[0].Claim.ID)

	status, env = s.call(t, "u-mgr", http.MethodPost, "/approvals/"+pending[0].Record.ID+"/decision", map[string]any{"decision": "approved"})
	require.Equal(t, http.StatusOK, status, "%+v", env.Error)
	first := decodeData[expense.DecideResult](t, env)
	assert.Equal(t, expense.StatusPending, first.ClaimStatus)
	assert.False(t, first.Finalized)

	status, env = s.call(t, "u-mgr", http.MethodPost, "/approvals/"+pending[0].Record.ID+"/decision", map[string]any{"decision": "APPROVED"})
	assert.Equal(t, http.StatusConflict, status)
	require.NotNil(t, env.Error)
	assert.Equal(t, "already_decided", env.Error.Metadata["reason"])

	status, env = s.call(t, "u-fin", http.MethodGet, "/approvals/pending", nil)
	require.Equal(t, http.StatusOK, status)
	finPending := decodeData[[]expense.PendingApproval](t, env)
	require.Len(t, finPending, 1)

	status, env = s.call(t, "u-fin", http.MethodPost, "/approvals/"+finPending[0].Record.ID+"/decision", map[string]any{"decision": "APPROVED", "comments": "ok"})
	require.Equal(t, http.StatusOK, status)
	final := decodeData[expense.DecideResult](t, env)
	assert.Equal(t, expense.StatusApproved, final.ClaimStatus)
	assert.True(t, final.Finalized)

	status, env = s.call(t, "u-fin", http.MethodPost, "/expenses/"+submitted.Claim.ID+"/pay", nil)
	require.Equal(t, http.StatusOK, status, "%+v", env.Error)
	assert.Equal(t, expense.StatusPaid, decodeData[expense.Claim](t, env).Status)

	status, env = s.call(t, "u-emp", http.MethodGet, "/expenses/"+submitted.Claim.ID+"/approvals", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Len(t, decodeData[[]expense.ApprovalRecord](t, env), 2)

	assert.Equal(t, []string{
		audit.ActionExpenseCreate,
		audit.ActionExpenseSubmit,
		audit.ActionApprovalDecide,
		audit.ActionApprovalDecide,
		audit.ActionExpensePay,
	}, s.audit.actions())
}

func TestRejectionNeedsComments(t *testing.T) {
	s := newWorkflowServer(t)

	_, env := s.call(t, "u-emp", http.MethodPost, "/expenses", map[string]any{"title": "Taxi", "amount": 40, "submit": true})
	submitted := decodeData[expense.SubmitResult](t, env)
	require.Len(t, submitted.Approvals, 1)
	recordID := submitted.Approvals[0].ID

	status, env := s.call(t, "u-mgr", http.MethodPost, "/approvals/"+recordID+"/decision", map[string]any{"decision": "REJECTED"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "validation_failed", env.Error.Code)

	status, env = s.call(t, "u-mgr", http.MethodPost, "/approvals/"+recordID+"/decision", map[string]any{"decision": "maybe"})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.call(t, "u-mgr", http.MethodPost, "/approvals/"+recordID+"/decision", map[string]any{"decision": "REJECTED", "comments": "no receipt"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, expense.StatusRejected, decodeData[expense.DecideResult](t, env).ClaimStatus)
}

func TestDecisionByWrongApproverForbidden(t *testing.T) {
	s := newWorkflowServer(t)

	_, env := s.call(t, "u-emp", http.MethodPost, "/expenses", map[string]any{"title": "Taxi", "amount": 40, "submit": true})
	submitted := decodeData[expense.SubmitResult](t, env)

	status, env := s.call(t, "u-fin", http.MethodPost, "/approvals/"+submitted.Approvals[0].ID+"/decision", map[string]any{"decision": "APPROVED"})
	assert.Equal(t, http.StatusForbidden, status)
	assert.Equal(t, "not_approver", env.Error.Metadata["reason"])
}

func TestExpenseRoutesNeedAuthentication(t *testing.T) {
	s := newWorkflowServer(t)

	status, env := s.call(t, "", http.MethodGet, "/expenses", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "unauthenticated", env.Error.Code)

	status, _ = s.call(t, "ghost", http.MethodGet, "/approvals/pending", nil)
	assert.Equal(t, http.StatusUnauthorized, status)
}

func TestListScopesAndDraftEdits(t *testing.T) {
	s := newWorkflowServer(t)

	status, env := s.call(t, "u-emp", http.MethodPost, "/expenses", map[string]any{"title": "Lunch", "amount": "12.50"})
	require.Equal(t, http.StatusCreated, status)
	draft := decodeData[expense.SubmitResult](t, env).Claim
	assert.Equal(t, expense.StatusDraft, draft.Status)
	assert.Equal(t, "sales", draft.DepartmentID)

	status, env = s.call(t, "u-emp", http.MethodPut, "/expenses/"+draft.ID, map[string]any{"title": "Team lunch"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Team lunch", decodeData[expense.Claim](t, env).Title)

	status, env = s.call(t, "u-mgr", http.MethodGet, "/expenses?status=draft", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, 1, decodeData[expense.ClaimPage](t, env).Total)

	status, env = s.call(t, "u-fin", http.MethodGet, "/expenses/"+draft.ID, nil)
	require.Equal(t, http.StatusOK, status)

	status, _ = s.call(t, "u-emp", http.MethodGet, "/expenses?status=bogus", nil)
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.call(t, "u-emp", http.MethodPost, "/expenses", map[string]any{"title": " ", "amount": 5})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.call(t, "u-emp", http.MethodPost, "/expenses", map[string]any{"title": "x", "amount": 5, "unknown": true})
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = s.call(t, "u-emp", http.MethodPost, "/expenses/"+draft.ID+"/submit", nil)
	require.Equal(t, http.StatusOK, status)
	status, env = s.call(t, "u-emp", http.MethodPost, "/expenses/"+draft.ID+"/submit", nil)
	assert.Equal(t, http.StatusConflict, status)
	assert.Equal(t, "not_draft", env.Error.Metadata["reason"])

	status, _ = s.call(t, "u-emp", http.MethodDelete, "/expenses/"+draft.ID, nil)
	require.Equal(t, http.StatusOK, status)
	status, _ = s.call(t, "u-emp", http.MethodGet, "/expenses/"+draft.ID, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestAssignApproverRecovery(t *testing.T) {
	s := newWorkflowServer(t)

	// Nobody manages the finance department, so the claim waits unassigned.
	_, env := s.call(t, "u-fin", http.MethodPost, "/expenses", map[string]any{"title": "Audit fees", "amount": 90, "submit": true})
	submitted := decodeData[expense.SubmitResult](t, env)
	require.True(t, submitted.Unassigned)
	assert.Equal(t, expense.StatusPending, submitted.Claim.Status)

	status, _ := s.call(t, "u-emp", http.MethodPost, "/expenses/"+submitted.Claim.ID+"/approvers", map[string]any{"approverId": "u-adm"})
	assert.Equal(t, http.StatusForbidden, status)

	status, _ = s.call(t, "u-adm", http.MethodPost, "/expenses/"+submitted.Claim.ID+"/approvers", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, status)

	status, env = s.call(t, "u-adm", http.MethodPost, "/expenses/"+submitted.Claim.ID+"/approvers", map[string]any{"approverId": "u-adm"})
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	record := decodeData[expense.ApprovalRecord](t, env)

	status, env = s.call(t, "u-adm", http.MethodPost, "/approvals/"+record.ID+"/decision", map[string]any{"decision": "APPROVED"})
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, expense.StatusApproved, decodeData[expense.DecideResult](t, env).ClaimStatus)
	assert.Contains(t, s.audit.actions(), audit.ActionApproverAssign)
}

func TestApprovalTrailExport(t *testing.T) {
	s := newWorkflowServer(t)

	_, env := s.call(t, "u-emp", http.MethodPost, "/expenses", map[string]any{"title": "Taxi", "amount": 40, "submit": true})
	claimID := decodeData[expense.SubmitResult](t, env).Claim.ID

	status, _ := s.call(t, "u-mgr", http.MethodGet, "/expenses/"+claimID+"/approvals/export", nil)
	assert.Equal(t, http.StatusForbidden, status)

	token, err := auth.GenerateToken(secret, auth.Claims{UserID: "u-fin"}, time.Hour)
	require.NoError(t, err)
	req, err := http.NewRequest(http.MethodGet, s.url+"/expenses/"+claimID+"/approvals/export", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/pdf", resp.Header.Get("Content-Type"))
	var buf bytes.Buffer
	_, err = buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF")))
}
