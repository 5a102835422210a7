package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// OAuthGoogle is the only external identity provider.
const OAuthGoogle = "google"

// User stores account data for local and Google-linked logins.
type User struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	Name           string          `gorm:"size:50" json:"name"`
	Email          string          `gorm:"size:255;not null;uniqueIndex" json:"email"`
	PasswordHash   *string         `gorm:"size:255" json:"-"`
	Income         decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"income"`
	OAuthProvider  string          `gorm:"column:oauth_provider;size:20;index:idx_user_oauth" json:"oauth,omitempty"`
	OAuthID        string          `gorm:"column:oauth_id;size:255;index:idx_user_oauth" json:"-"`
	TelegramChatID *int64          `gorm:"column:telegram_chat_id" json:"telegramChatId,omitempty"`
	CreatedAt      time.Time       `json:"createdAt"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}
