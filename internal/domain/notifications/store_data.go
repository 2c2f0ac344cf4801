package notifications

import (
	"context"

	"expenseflow/internal/platform/querier"
)

func (s *Store) CreateNotification(ctx context.Context, n Notification) error {
	_, err := s.DB.Exec(ctx, `
    INSERT INTO notifications (id, user_id, type, title, body, link, created_at)
    VALUES ($1,$2,$3,$4,$5,$6,$7)
  `, n.ID, n.UserID, n.Type, n.Title, n.Body, n.Link, n.CreatedAt)
	return querier.MapError("create notification", err, nil, nil)
}

func (s *Store) ListNotifications(ctx context.Context, userID string, filter ListFilter) ([]Notification, error) {
	query := `
    SELECT id, user_id, type, title, body, link, read_at, created_at
    FROM notifications
    WHERE user_id = $1`
	if filter.UnreadOnly {
		query += " AND read_at IS NULL"
	}
	query += " ORDER BY created_at DESC, id LIMIT $2 OFFSET $3"

	rows, err := s.DB.Query(ctx, query, userID, filter.Limit, filter.Offset)
	if err != nil {
		return nil, querier.MapError("list notifications", err, nil, nil)
	}
	defer rows.Close()

	out := []Notification{}
	for rows.Next() {
		var n Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Type, &n.Title, &n.Body, &n.Link, &n.ReadAt, &n.CreatedAt); err != nil {
			return nil, querier.MapError("scan notification", err, nil, nil)
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, querier.MapError("list notifications", err, nil, nil)
	}
	return out, nil
}

func (s *Store) CountNotifications(ctx context.Context, userID string, unreadOnly bool) (int, error) {
	query := "SELECT COUNT(1) FROM notifications WHERE user_id = $1"
	if unreadOnly {
		query += " AND read_at IS NULL"
	}
	var total int
	if err := s.DB.QueryRow(ctx, query, userID).Scan(&total); err != nil {
		return 0, querier.MapError("count notifications", err, nil, nil)
	}
	return total, nil
}

func (s *Store) MarkRead(ctx context.Context, userID, notificationID string) (bool, error) {
	tag, err := s.DB.Exec(ctx, `
    UPDATE notifications SET read_at = COALESCE(read_at, now())
    WHERE user_id = $1 AND id = $2
  `, userID, notificationID)
	if err != nil {
		return false, querier.MapError("mark notification read", err, nil, nil)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) MarkAllRead(ctx context.Context, userID string) (int64, error) {
	tag, err := s.DB.Exec(ctx, "UPDATE notifications SET read_at = now() WHERE user_id = $1 AND read_at IS NULL", userID)
	if err != nil {
		return 0, querier.MapError("mark notifications read", err, nil, nil)
	}
	return tag.RowsAffected(), nil
}
