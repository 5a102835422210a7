package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"walletwatch/internal/model"
)

// NotificationRepository stores the notification audit log. It has no
// update or delete path.
type NotificationRepository struct {
	db *gorm.DB
}

func NewNotificationRepository(db *gorm.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

func (r *NotificationRepository) Create(ctx context.Context, n *model.Notification) error {
	n.SentAt = n.SentAt.UTC()
	if err := r.db.WithContext(ctx).Create(n).Error; err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// ListByUser returns the owner's notifications newest first. An empty
// kind matches every type.
func (r *NotificationRepository) ListByUser(ctx context.Context, userID uint, kind model.NotificationType) ([]model.Notification, error) {
	var notifications []model.Notification
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if kind != "" {
		q = q.Where("type = ?", kind)
	}
	if err := q.Order("sent_at DESC, id DESC").Find(&notifications).Error; err != nil {
		return nil, err
	}
	return notifications, nil
}
