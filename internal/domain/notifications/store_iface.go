package notifications

import "context"

type StoreAPI interface {
	CreateNotification(ctx context.Context, n Notification) error
	ListNotifications(ctx context.Context, userID string, filter ListFilter) ([]Notification, error)
	CountNotifications(ctx context.Context, userID string, unreadOnly bool) (int, error)
	MarkRead(ctx context.Context, userID, notificationID string) (bool, error)
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}
