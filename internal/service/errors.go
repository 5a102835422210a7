package service

import (
	"errors"

	"gorm.io/gorm"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrMissingFields      = errors.New("missing required fields")
	ErrInvalidAmount      = errors.New("amount must be positive")
	ErrNegativeAmount     = errors.New("amount must not be negative")
	ErrInvalidWindow      = errors.New("start date must not be after end date")
	ErrBudgetConflict     = errors.New("a budget with this period already exists")
	ErrZeroBudgetAmount   = errors.New("budget amount is zero")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrInvalidBudgetType  = errors.New("budget type must be monthly or weekly")
	ErrDescriptionTooLong = errors.New("description must be at most 200 characters")
	ErrTitleRequired      = errors.New("title is required")
	ErrInvalidStatus      = errors.New("invalid goal status")
	ErrInvalidType        = errors.New("invalid notification type")
	ErrEmailTaken         = errors.New("email is already registered")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrWeakPassword       = errors.New("password must be 8-64 characters with a digit, an uppercase and a lowercase letter")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrInvalidState       = errors.New("invalid oauth state")
)

// notFound maps repository misses to ErrNotFound and leaves other errors alone.
func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
