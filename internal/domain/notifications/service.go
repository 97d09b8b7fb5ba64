package notifications

import (
	"context"
	"log/slog"
	"strings"
)

type Mailer interface {
	Send(ctx context.Context, from, to, subject, body string) error
}

// Dispatcher delivers a message asynchronously; a nil error means accepted,
// not delivered.
type Dispatcher interface {
	Dispatch(ctx context.Context, msg Message) error
}

type Service struct {
	store       StoreAPI
	Dispatcher  Dispatcher
	DefaultFrom string
}

func New(store StoreAPI, dispatcher Dispatcher) *Service {
	return &Service{store: store, Dispatcher: dispatcher, DefaultFrom: "no-reply@example.com"}
}

// Notify stores an inbox entry for userID and queues an email. Only the
// inbox write can fail the call; delivery problems are logged.
func (s *Service) Notify(ctx context.Context, userID, ntype, title, body string) error {
	n, err := s.store.CreateNotification(ctx, Notification{UserID: userID, Type: ntype, Title: title, Body: body})
	if err != nil {
		return err
	}

	if s.Dispatcher == nil {
		return nil
	}

	email, err := s.store.UserEmail(ctx, userID)
	if err != nil {
		slog.Warn("notification email lookup failed", "userId", userID, "err", err)
		return nil
	}
	if strings.TrimSpace(email) == "" {
		return nil
	}
	msg := Message{
		NotificationID: n.ID,
		UserID:         userID,
		From:           s.DefaultFrom,
		To:             email,
		Subject:        title,
		Body:           body,
	}
	if err := s.Dispatcher.Dispatch(ctx, msg); err != nil {
		slog.Warn("notification dispatch failed", "notificationId", n.ID, "err", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, userID string, limit, offset int) ([]Notification, error) {
	return s.store.ListNotifications(ctx, userID, limit, offset)
}

func (s *Service) Count(ctx context.Context, userID string) (int, error) {
	return s.store.CountNotifications(ctx, userID)
}

func (s *Service) MarkRead(ctx context.Context, userID, notificationID string) error {
	return s.store.MarkRead(ctx, userID, notificationID)
}

// MailerDispatcher sends synchronously through a Mailer.
type MailerDispatcher struct {
	Mailer Mailer
}

func (d MailerDispatcher) Dispatch(ctx context.Context, msg Message) error {
	return d.Mailer.Send(ctx, msg.From, msg.To, msg.Subject, msg.Body)
}
