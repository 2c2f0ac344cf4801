package handlers_test

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"expenseflow/internal/app/server"
	"expenseflow/internal/domain/audit"
	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/expense"
	"expenseflow/internal/domain/notifications"
	"expenseflow/internal/platform/config"
	"expenseflow/internal/transport/http/middleware"
)

func TestExpenseApprovalJourney(t *testing.T) {
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}

	cfg := config.Config{
		DatabaseURL:        dbURL,
		JWTSecret:          secret,
		Environment:        "test",
		TokenTTL:           time.Hour,
		ApprovalThreshold:  decimal.NewFromInt(1000),
		AllowPendingEdits:  true,
		SeedAdminEmail:     "admin@test.local",
		EmailFrom:          "no-reply@test.local",
		RunMigrations:      true,
		RunSeed:            true,
		MaxBodyBytes:       1048576,
		RateLimitPerMinute: 1000,
		JobQueueSize:       16,
		MetricsEnabled:     true,
	}

	ctx := context.Background()
	app, err := server.New(ctx, cfg, zaptest.NewLogger(t))
	require.NoError(t, err)
	defer app.Close()

	ts := httptest.NewServer(app.Router)
	defer ts.Close()
	s := workflowServer{url: ts.URL + "/api/v1"}

	suffix := fmt.Sprint(time.Now().UnixNano())
	dept := "dept-" + suffix
	_, err = app.DB.Exec(ctx, "INSERT INTO departments (id, name) VALUES ($1, $2)", dept, "Journey "+suffix)
	require.NoError(t, err)

	addUser := func(role auth.Role, department any) string {
		id := uuid.NewString()
		_, err := app.DB.Exec(ctx, `
      INSERT INTO users (id, email, name, role, department_id, is_active)
      VALUES ($1, $2, $3, $4, $5, true)
    `, id, fmt.Sprintf("%s-%s@example.com", role, id), string(role), string(role), department)
		require.NoError(t, err)
		return id
	}
	employeeID := addUser(auth.RoleEmployee, dept)
	managerID := addUser(auth.RoleManager, dept)
	addUser(auth.RoleFinance, nil)

	var adminID string
	require.NoError(t, app.DB.QueryRow(ctx, "SELECT id FROM users WHERE email = $1", cfg.SeedAdminEmail).Scan(&adminID))

	key := "journey-" + suffix
	create := func() (int, envelope) {
		return s.callWithHeaders(t, employeeID, http.MethodPost, "/expenses", map[string]any{
			"title":  "Offsite venue",
			"amount": "2500.00",
			"submit": true,
		}, map[string]string{middleware.IdempotencyHeader: key})
	}
	status, env := create()
	require.Equal(t, http.StatusCreated, status, "%+v", env.Error)
	submitted := decodeData[expense.SubmitResult](t, env)
	require.Len(t, submitted.Approvals, 2)

	status, env = create()
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, submitted.Claim.ID, decodeData[expense.SubmitResult](t, env).Claim.ID, "retried create replays the first response")

	for _, rec := range submitted.Approvals {
		status, env = s.call(t, rec.ApproverID, http.MethodPost, "/approvals/"+rec.ID+"/decision", map[string]any{"decision": "APPROVED"})
		require.Equal(t, http.StatusOK, status, "%+v", env.Error)
	}
	assert.Contains(t, []string{submitted.Approvals[0].ApproverID, submitted.Approvals[1].ApproverID}, managerID)

	status, env = s.call(t, employeeID, http.MethodGet, "/expenses/"+submitted.Claim.ID, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, expense.StatusApproved, decodeData[expense.Claim](t, env).Status)

	require.Eventually(t, func() bool {
		_, env := s.call(t, employeeID, http.MethodGet, "/notifications", nil)
		page := decodeData[notifications.Page](t, env)
		for _, n := range page.Items {
			if n.Type == expense.KindExpenseApproved {
				return true
			}
		}
		return false
	}, 5*time.Second, 50*time.Millisecond)

	status, _ = s.call(t, adminID, http.MethodPost, "/expenses/"+submitted.Claim.ID+"/pay", nil)
	require.Equal(t, http.StatusOK, status)

	status, env = s.call(t, adminID, http.MethodGet, "/audit/events?entityId="+submitted.Claim.ID, nil)
	require.Equal(t, http.StatusOK, status)
	events := decodeData[[]audit.Event](t, env)
	actions := make([]string, 0, len(events))
	for _, evt := range events {
		actions = append(actions, evt.Action)
	}
	assert.Contains(t, actions, audit.ActionExpenseCreate)
	assert.Contains(t, actions, audit.ActionExpensePay)

	status, _ = s.call(t, managerID, http.MethodGet, "/audit/events", nil)
	assert.Equal(t, http.StatusForbidden, status)
}
