package email

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"expenseflow/internal/domain/expense"
	"expenseflow/internal/domain/notifications"
	"expenseflow/internal/platform/config"
)

func TestNewReturnsNoopWhenDisabled(t *testing.T) {
	mailer := New(config.Config{EmailEnabled: false, SMTPHost: "smtp.example.com"})
	assert.IsType(t, noopMailer{}, mailer)
	assert.NoError(t, mailer.Deliver(context.Background(), "a@example.com", "b@example.com", notifications.Notification{Title: "s"}))

	assert.IsType(t, noopMailer{}, New(config.Config{EmailEnabled: true}))
	assert.IsType(t, &smtpMailer{}, New(config.Config{EmailEnabled: true, SMTPHost: "smtp.example.com"}))
}

func TestComposeLabelsSubjectByKind(t *testing.T) {
	cases := map[string]string{
		expense.KindApprovalRequested: "[ExpenseFlow] Action required: New Expense Approval Required",
		expense.KindExpenseRejected:   "[ExpenseFlow] Rejected: New Expense Approval Required",
		"SOMETHING_ELSE":              "[ExpenseFlow] New Expense Approval Required",
	}
	for kind, want := range cases {
		subject, _ := Compose(notifications.Notification{Type: kind, Title: "New Expense Approval Required"}, "")
		assert.Equal(t, want, subject, kind)
	}

	subject, _ := Compose(notifications.Notification{Type: expense.KindExpensePaid}, "")
	assert.Equal(t, "[ExpenseFlow] Paid: Expense update", subject)
}

func TestComposeLinksToClaim(t *testing.T) {
	n := notifications.Notification{
		Type:  expense.KindExpenseApproved,
		Title: "Expense approved",
		Body:  "Your expense \"Taxi\" has been approved.",
		Link:  "/expenses/c-1",
	}
	_, body := Compose(n, "https://expenses.example.com/")
	assert.True(t, strings.HasPrefix(body, "Your expense \"Taxi\" has been approved.\n"))
	assert.Contains(t, body, "Open the expense: https://expenses.example.com/expenses/c-1\n")

	_, body = Compose(n, "")
	assert.Contains(t, body, "Open the expense: /expenses/c-1\n")

	n.Link = ""
	_, body = Compose(n, "https://expenses.example.com")
	assert.NotContains(t, body, "Open the expense")
}

func TestBuildMessageStripsHeaderInjection(t *testing.T) {
	msg := string(buildMessage("a@example.com", "b@example.com", "Expense approved\r\nBcc: x@example.com", "body"))
	assert.Contains(t, msg, "Subject: Expense approved  Bcc: x@example.com\r\n")
	assert.True(t, strings.HasSuffix(msg, "\r\n\r\nbody"))
	assert.Equal(t, 1, strings.Count(msg, "Bcc:"))
}

func TestBuildMessageUsesCRLFInBody(t *testing.T) {
	msg := string(buildMessage("a@example.com", "b@example.com", "s", "line one\nline two\r\n"))
	assert.True(t, strings.HasSuffix(msg, "line one\r\nline two\r\n"))
}

func TestDeliverSkipsEmptyRecipient(t *testing.T) {
	mailer := &smtpMailer{cfg: config.Config{SMTPHost: "127.0.0.1", SMTPPort: 1}}
	assert.NoError(t, mailer.Deliver(context.Background(), "a@example.com", " ", notifications.Notification{Title: "s"}))
}
