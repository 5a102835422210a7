package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Category is one of the fixed expense buckets.
type Category string

const (
	CategoryHousing       Category = "Housing & Utilities"
	CategoryTransport     Category = "Transportation"
	CategoryFood          Category = "Food & Dining"
	CategoryHealthcare    Category = "Healthcare"
	CategorySubscriptions Category = "Subscriptions & Bills"
	CategoryPersonal      Category = "Personal & Lifestyle"
	CategoryFinancial     Category = "Financial"
	CategoryEducation     Category = "Education"
	CategoryNecessities   Category = "Necessities"
	CategoryMisc          Category = "Miscellaneous"
)

// Categories lists every accepted category in display order.
var Categories = []Category{
	CategoryHousing,
	CategoryTransport,
	CategoryFood,
	CategoryHealthcare,
	CategorySubscriptions,
	CategoryPersonal,
	CategoryFinancial,
	CategoryEducation,
	CategoryNecessities,
	CategoryMisc,
}

// Valid reports whether c is one of Categories.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Expense is a single spend entry. SpentAt is the timestamp budgets aggregate on.
type Expense struct {
	ID          uint            `gorm:"primaryKey" json:"id"`
	UserID      uint            `gorm:"not null;index:idx_expense_user_spent" json:"-"`
	Amount      decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	Category    Category        `gorm:"size:40;not null;index" json:"category"`
	Description string          `gorm:"size:200" json:"description,omitempty"`
	SpentAt     time.Time       `gorm:"not null;index:idx_expense_user_spent" json:"spentAt"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
}

// CategoryTotal is one row of a per-category spend summary.
type CategoryTotal struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Count    int             `json:"count"`
}
