package service

import (
	"context"
	"log/slog"

	applog "walletwatch/internal/log"
	"walletwatch/internal/model"
	"walletwatch/internal/repository"
)

// Publisher fans recorded notifications out to other systems.
type Publisher interface {
	PublishNotification(ctx context.Context, n model.Notification) error
}

// NotificationService is the append-only audit log of dispatched messages.
type NotificationService struct {
	repo      *repository.NotificationRepository
	clock     Clock
	publisher Publisher
	logger    *slog.Logger
}

// NewNotificationService accepts a nil publisher when event fan-out is disabled.
func NewNotificationService(repo *repository.NotificationRepository, clock Clock, publisher Publisher, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:      repo,
		clock:     clock,
		publisher: publisher,
		logger:    applog.WithComponent(logger, applog.ComponentAMQP),
	}
}

// Record stores a notification stamped with the current time. A publish
// failure is logged and does not fail the call.
func (s *NotificationService) Record(ctx context.Context, userID uint, kind model.NotificationType, message string) (*model.Notification, error) {
	if !kind.Valid() {
		return nil, ErrInvalidType
	}
	n := model.Notification{
		UserID:  userID,
		Type:    kind,
		Message: message,
		SentAt:  s.clock.Now(),
	}
	if err := s.repo.Create(ctx, &n); err != nil {
		return nil, err
	}
	if s.publisher != nil {
		if err := s.publisher.PublishNotification(ctx, n); err != nil {
			s.logger.WarnContext(ctx, "Failed to publish notification event",
				applog.FieldUserID, userID,
				"notification_id", n.ID,
				applog.FieldError, err)
		}
	}
	return &n, nil
}

// List returns the user's notifications, optionally filtered by type.
func (s *NotificationService) List(ctx context.Context, userID uint, kind model.NotificationType) ([]model.Notification, error) {
	if kind != "" && !kind.Valid() {
		return nil, ErrInvalidType
	}
	return s.repo.ListByUser(ctx, userID, kind)
}
