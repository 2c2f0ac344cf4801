// Package email delivers inbox notifications as plain-text mail.
package email

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"expenseflow/internal/domain/expense"
	"expenseflow/internal/domain/notifications"
	"expenseflow/internal/platform/config"
)

const (
	dialTimeout   = 10 * time.Second
	subjectPrefix = "[ExpenseFlow]"
)

// kindLabels prefixes the subject so recipients can filter workflow mail.
var kindLabels = map[string]string{
	expense.KindApprovalRequested: "Action required",
	expense.KindExpenseSubmitted:  "Submitted",
	expense.KindExpenseApproved:   "Approved",
	expense.KindExpenseRejected:   "Rejected",
	expense.KindExpensePaid:       "Paid",
}

type noopMailer struct{}

func (noopMailer) Deliver(context.Context, string, string, notifications.Notification) error {
	return nil
}

type smtpMailer struct {
	cfg config.Config
}

// New returns an SMTP mailer, or a no-op one when email is disabled.
func New(cfg config.Config) notifications.Mailer {
	if !cfg.EmailEnabled || cfg.SMTPHost == "" {
		return noopMailer{}
	}
	return &smtpMailer{cfg: cfg}
}

// Deliver composes the mail for n and sends it to a single recipient.
func (s *smtpMailer) Deliver(ctx context.Context, from, to string, n notifications.Notification) error {
	if strings.TrimSpace(to) == "" {
		return nil
	}
	if from == "" {
		from = s.cfg.EmailFrom
	}
	subject, body := Compose(n, s.cfg.AppBaseURL)
	return s.send(ctx, from, to, buildMessage(from, to, subject, body))
}

// Compose renders the subject and body of a notification. Links are made
// absolute against baseURL when one is configured.
func Compose(n notifications.Notification, baseURL string) (subject, body string) {
	title := strings.TrimSpace(n.Title)
	if title == "" {
		title = "Expense update"
	}
	subject = subjectPrefix + " " + title
	if label, ok := kindLabels[n.Type]; ok {
		subject = subjectPrefix + " " + label + ": " + title
	}

	var b strings.Builder
	if msg := strings.TrimSpace(n.Body); msg != "" {
		b.WriteString(msg)
		b.WriteString("\n")
	}
	if link := absoluteLink(baseURL, n.Link); link != "" {
		b.WriteString("\nOpen the expense: ")
		b.WriteString(link)
		b.WriteString("\n")
	}
	b.WriteString("\nYou receive this because you own or review this expense.\n")
	return subject, b.String()
}

func absoluteLink(baseURL, link string) string {
	link = strings.TrimSpace(link)
	if link == "" || baseURL == "" {
		return link
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(link, "/")
}

func (s *smtpMailer) send(ctx context.Context, from, to string, msg []byte) error {
	addr := net.JoinHostPort(s.cfg.SMTPHost, strconv.Itoa(s.cfg.SMTPPort))
	dialer := net.Dialer{Timeout: dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	defer conn.Close()

	client, err := smtp.NewClient(conn, s.cfg.SMTPHost)
	if err != nil {
		return err
	}
	defer client.Close()

	if s.cfg.SMTPUseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.cfg.SMTPHost}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.cfg.SMTPUser != "" {
		if err := client.Auth(smtp.PlainAuth("", s.cfg.SMTPUser, s.cfg.SMTPPassword, s.cfg.SMTPHost)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return err
	}
	if err := client.Rcpt(to); err != nil {
		return err
	}
	w, err := client.Data()
	if err != nil {
		return err
	}
	if _, err := w.Write(msg); err != nil {
		_ = w.Close()
		return err
	}
	if err := w.Close(); err != nil {
		return err
	}
	return client.Quit()
}

func buildMessage(from, to, subject, body string) []byte {
	headers := []string{
		"From: " + sanitizeHeader(from),
		"To: " + sanitizeHeader(to),
		"Subject: " + sanitizeHeader(subject),
		"MIME-Version: 1.0",
		"Content-Type: text/plain; charset=\"UTF-8\"",
		"",
	}
	body = strings.ReplaceAll(strings.ReplaceAll(body, "\r\n", "\n"), "\n", "\r\n")
	return []byte(strings.Join(headers, "\r\n") + "\r\n" + body)
}

func sanitizeHeader(value string) string {
	return strings.NewReplacer("\r", " ", "\n", " ").Replace(value)
}
