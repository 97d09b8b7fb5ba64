package memstore

import (
	"context"

	"timesheet/internal/domain/errs"
	"timesheet/internal/domain/notifications"
)

type NotificationsStore struct {
	db *DB
}

func (s *NotificationsStore) CreateNotification(_ context.Context, n notifications.Notification) (notifications.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	n.ID = newID()
	n.CreatedAt = s.db.now().UTC()
	s.db.notifications = append(s.db.notifications, n)
	return n, nil
}

func (s *NotificationsStore) UserEmail(_ context.Context, userID string) (string, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	emp, ok := s.db.employees[userID]
	if !ok {
		return "", errs.ErrNotFound
	}
	return emp.Email, nil
}

// ListNotifications returns newest first.
func (s *NotificationsStore) ListNotifications(_ context.Context, userID string, limit, offset int) ([]notifications.Notification, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	var out []notifications.Notification
	for i := len(s.db.notifications) - 1; i >= 0; i-- {
		if s.db.notifications[i].UserID == userID {
			out = append(out, s.db.notifications[i])
		}
	}
	return page(out, limit, offset), nil
}

func (s *NotificationsStore) CountNotifications(_ context.Context, userID string) (int, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	total := 0
	for _, n := range s.db.notifications {
		if n.UserID == userID {
			total++
		}
	}
	return total, nil
}

func (s *NotificationsStore) MarkRead(_ context.Context, userID, notificationID string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	for i := range s.db.notifications {
		n := &s.db.notifications[i]
		if n.ID == notificationID && n.UserID == userID {
			now := s.db.now().UTC()
			n.ReadAt = &now
			return nil
		}
	}
	return errs.ErrNotFound
}
