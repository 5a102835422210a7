package model

import "time"

// Session is a server-side login session addressed by an opaque cookie token.
type Session struct {
	Token        string    `gorm:"primaryKey;size:64"`
	UserID       uint      `gorm:"not null;index"`
	ExpiresAt    time.Time `gorm:"not null;index"`
	LastActivity time.Time
	CreatedAt    time.Time
}
