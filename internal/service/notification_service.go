package service

import (
	"context"

	"txguardian/internal/domain"
	"txguardian/internal/logger"

	"github.com/google/uuid"
)

// Pusher delivers a notification to any live connection for the user.
// Implemented by the websocket hub.
type Pusher interface {
	Push(userID int64, payload interface{})
}

// NotificationService appends per-user message records and pushes them to
// connected clients. Dispatch is best-effort by contract: a storage or push
// failure is logged and never fails the transition that triggered it.
type NotificationService struct {
	store  NotificationStore
	pusher Pusher
}

func NewNotificationService(store NotificationStore, pusher Pusher) *NotificationService {
	return &NotificationService{store: store, pusher: pusher}
}

// Dispatch records a notification for the user and pushes it to any live
// websocket connection.
func (s *NotificationService) Dispatch(ctx context.Context, userID int64, message string) {
	n := &domain.Notification{
		ID:      uuid.NewString(),
		UserID:  userID,
		Message: message,
	}

	if err := s.store.Create(ctx, n); err != nil {
		logger.Error("failed to store notification", "error", err, "user_id", userID)
		return
	}

	if s.pusher != nil {
		s.pusher.Push(userID, n)
	}
}

// ListByUser returns a user's notifications in insertion order
func (s *NotificationService) ListByUser(ctx context.Context, userID int64, limit int) ([]*domain.Notification, error) {
	return s.store.ListByUser(ctx, userID, limit)
}

// MarkRead flags one of the user's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, id string, userID int64) error {
	ok, err := s.store.MarkRead(ctx, id, userID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}
	return nil
}
