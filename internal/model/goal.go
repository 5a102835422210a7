package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type GoalStatus string

const (
	GoalActive   GoalStatus = "active"
	GoalAchieved GoalStatus = "achieved"
	GoalFailed   GoalStatus = "failed"
)

func (s GoalStatus) Valid() bool {
	switch s {
	case GoalActive, GoalAchieved, GoalFailed:
		return true
	}
	return false
}

// Goal is a savings target. Expiry is derived from Deadline on read and is
// never written back into Status.
type Goal struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	UserID        uint            `gorm:"not null;index" json:"-"`
	Title         string          `gorm:"size:120;not null" json:"title"`
	TargetAmount  decimal.Decimal `gorm:"type:decimal(14,2);not null" json:"targetAmount"`
	CurrentAmount decimal.Decimal `gorm:"type:decimal(14,2);not null;default:0" json:"currentAmount"`
	Deadline      time.Time       `gorm:"not null" json:"deadline"`
	Status        GoalStatus      `gorm:"size:10;not null;default:active" json:"status"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
}

// IsExpired reports whether now is past the deadline.
func (g Goal) IsExpired(now time.Time) bool {
	return now.After(g.Deadline)
}

// IsAchieved reports whether the saved amount reached the target.
func (g Goal) IsAchieved() bool {
	return g.CurrentAmount.GreaterThanOrEqual(g.TargetAmount)
}

// Progress returns saved/target as a percentage. A zero target yields zero.
func (g Goal) Progress() decimal.Decimal {
	if g.TargetAmount.IsZero() {
		return decimal.Zero
	}
	return g.CurrentAmount.Div(g.TargetAmount).Mul(decimal.NewFromInt(100)).Round(2)
}
