package notifications

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"expenseflow/internal/domain/auth"
	"expenseflow/internal/domain/expense"
	apperrors "expenseflow/internal/errors"
)

// Mailer delivers a notification by email. Rendering is up to the mailer.
type Mailer interface {
	Deliver(ctx context.Context, from, to string, n Notification) error
}

type Publisher interface {
	Publish(ctx context.Context, n Notification) error
}

// EmailLookup resolves the mailbox of a user.
type EmailLookup interface {
	Email(ctx context.Context, userID string) (string, error)
}

var ErrNotificationNotFound = apperrors.New(apperrors.CodeNotFound, "notification not found").With("entity", "notification")

const (
	defaultLimit = 20
	maxLimit     = 100
)

// Service persists the in-app inbox and fans each entry out to the optional
// publisher and mailer. Only the inbox write can fail a delivery.
type Service struct {
	store       StoreAPI
	Mailer      Mailer
	Publisher   Publisher
	Emails      EmailLookup
	DefaultFrom string
	logger      *zap.Logger
	now         func() time.Time
}

func New(store StoreAPI, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:       store,
		DefaultFrom: "no-reply@example.com",
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

var _ expense.Notifier = (*Service)(nil)

// Notify builds an inbox entry from a workflow payload. Recognised payload
// keys are title, message and link; expenseId yields a default link.
func (s *Service) Notify(ctx context.Context, userID, kind string, payload map[string]any) error {
	n := Notification{
		ID:        uuid.NewString(),
		UserID:    userID,
		Type:      kind,
		Title:     stringValue(payload, "title"),
		Body:      stringValue(payload, "message"),
		Link:      stringValue(payload, "link"),
		CreatedAt: s.now(),
	}
	if n.Title == "" {
		n.Title = strings.ReplaceAll(strings.ToLower(kind), "_", " ")
	}
	if n.Link == "" {
		if id := stringValue(payload, "expenseId"); id != "" {
			n.Link = "/expenses/" + id
		}
	}
	return s.Create(ctx, n)
}

func (s *Service) Create(ctx context.Context, n Notification) error {
	if n.UserID == "" {
		return apperrors.New(apperrors.CodeValidationFailed, "notification recipient is required").With("field", "userId")
	}
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.now()
	}
	if err := s.store.CreateNotification(ctx, n); err != nil {
		return err
	}

	if s.Publisher != nil {
		if err := s.Publisher.Publish(ctx, n); err != nil {
			s.logger.Warn("notification publish failed", zap.String("notificationId", n.ID), zap.Error(err))
		}
	}
	s.sendEmail(ctx, n)
	return nil
}

func (s *Service) sendEmail(ctx context.Context, n Notification) {
	if s.Mailer == nil || s.Emails == nil {
		return
	}
	email, err := s.Emails.Email(ctx, n.UserID)
	if err != nil {
		s.logger.Warn("notification email lookup failed", zap.String("userId", n.UserID), zap.Error(err))
		return
	}
	if email == "" {
		return
	}
	if err := s.Mailer.Deliver(ctx, s.DefaultFrom, email, n); err != nil {
		s.logger.Warn("notification email send failed", zap.String("userId", n.UserID), zap.Error(err))
	}
}

func (s *Service) List(ctx context.Context, actor auth.Actor, filter ListFilter) (Page, error) {
	if err := auth.Authorize(actor, auth.PermViewOwnNotifications); err != nil {
		return Page{}, err
	}
	if filter.Limit <= 0 {
		filter.Limit = defaultLimit
	}
	if filter.Limit > maxLimit {
		filter.Limit = maxLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}
	items, err := s.store.ListNotifications(ctx, actor.UserID, filter)
	if err != nil {
		return Page{}, err
	}
	total, err := s.store.CountNotifications(ctx, actor.UserID, filter.UnreadOnly)
	if err != nil {
		return Page{}, err
	}
	unread, err := s.store.CountNotifications(ctx, actor.UserID, true)
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Total: total, Unread: unread}, nil
}

func (s *Service) MarkRead(ctx context.Context, actor auth.Actor, notificationID string) error {
	if err := auth.Authorize(actor, auth.PermViewOwnNotifications); err != nil {
		return err
	}
	ok, err := s.store.MarkRead(ctx, actor.UserID, notificationID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotificationNotFound
	}
	return nil
}

func (s *Service) MarkAllRead(ctx context.Context, actor auth.Actor) (int64, error) {
	if err := auth.Authorize(actor, auth.PermViewOwnNotifications); err != nil {
		return 0, err
	}
	return s.store.MarkAllRead(ctx, actor.UserID)
}

func stringValue(payload map[string]any, key string) string {
	value, ok := payload[key]
	if !ok || value == nil {
		return ""
	}
	if s, ok := value.(string); ok {
		return s
	}
	return fmt.Sprint(value)
}
