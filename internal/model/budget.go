package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type BudgetType string

const (
	BudgetMonthly BudgetType = "monthly"
	BudgetWeekly  BudgetType = "weekly"
)

// Budget caps spending over [StartDate, EndDate]. Spend is never stored,
// it is aggregated from expenses on demand.
type Budget struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	UserID    uint            `gorm:"not null;uniqueIndex:idx_budget_user_window,priority:1" json:"-"`
	Type      BudgetType      `gorm:"size:10;not null;default:monthly" json:"type"`
	Amount    decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"amount"`
	StartDate time.Time       `gorm:"not null;uniqueIndex:idx_budget_user_window,priority:2" json:"startDate"`
	EndDate   time.Time       `gorm:"not null;uniqueIndex:idx_budget_user_window,priority:3" json:"endDate"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}

// Contains reports whether t falls inside the budget window, bounds included.
func (b Budget) Contains(t time.Time) bool {
	return !t.Before(b.StartDate) && !t.After(b.EndDate)
}
