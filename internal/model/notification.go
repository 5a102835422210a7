package model

import "time"

type NotificationType string

const (
	NotificationOverspending NotificationType = "overspending"
	NotificationReminder     NotificationType = "reminder"
	NotificationReport       NotificationType = "report"
)

func (t NotificationType) Valid() bool {
	switch t {
	case NotificationOverspending, NotificationReminder, NotificationReport:
		return true
	}
	return false
}

// Notification is an append-only record of a message sent to a user.
type Notification struct {
	ID      uint             `gorm:"primaryKey" json:"id"`
	UserID  uint             `gorm:"not null;index:idx_notification_user_type" json:"-"`
	Type    NotificationType `gorm:"size:20;not null;index:idx_notification_user_type" json:"type"`
	Message string           `gorm:"not null" json:"message"`
	SentAt  time.Time        `gorm:"not null;index" json:"sentAt"`
}
