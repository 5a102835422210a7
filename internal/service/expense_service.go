package service

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"

	"walletwatch/internal/model"
	"walletwatch/internal/repository"
)

const maxDescriptionLen = 200

// ExpenseInput represents writable expense fields. Nil fields are left
// unchanged on update; on create Amount and Category are required.
type ExpenseInput struct {
	Amount      *decimal.Decimal
	Category    *model.Category
	Description *string
	SpentAt     *time.Time
}

// MonthlySummary is the per-category spend of one calendar month.
type MonthlySummary struct {
	Month      string                `json:"month"`
	Total      decimal.Decimal       `json:"total"`
	Categories []model.CategoryTotal `json:"categories"`
}

// ExpenseService wraps expense-related business logic.
type ExpenseService struct {
	repo  *repository.ExpenseRepository
	clock Clock
}

func NewExpenseService(repo *repository.ExpenseRepository, clock Clock) *ExpenseService {
	return &ExpenseService{repo: repo, clock: clock}
}

func (s *ExpenseService) Create(ctx context.Context, userID uint, input ExpenseInput) (*model.Expense, error) {
	if input.Amount == nil || input.Category == nil {
		return nil, fmt.Errorf("amount and category: %w", ErrMissingFields)
	}
	expense := model.Expense{
		UserID:   userID,
		Amount:   *input.Amount,
		Category: *input.Category,
		SpentAt:  s.clock.Now(),
	}
	if input.Description != nil {
		expense.Description = strings.TrimSpace(*input.Description)
	}
	if input.SpentAt != nil {
		expense.SpentAt = *input.SpentAt
	}
	if err := validateExpense(expense); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &expense); err != nil {
		return nil, err
	}
	return &expense, nil
}

func (s *ExpenseService) List(ctx context.Context, userID uint) ([]model.Expense, error) {
	return s.repo.ListByUser(ctx, userID)
}

// ListByCategory returns expenses of one category within [start, end].
func (s *ExpenseService) ListByCategory(ctx context.Context, userID uint, category model.Category, start, end time.Time) ([]model.Expense, error) {
	if !category.Valid() {
		return nil, ErrInvalidCategory
	}
	return s.repo.ListByCategory(ctx, userID, category, start, end)
}

func (s *ExpenseService) Get(ctx context.Context, userID, expenseID uint) (*model.Expense, error) {
	expense, err := s.repo.FindByID(ctx, userID, expenseID)
	if err != nil {
		return nil, notFound(err)
	}
	return expense, nil
}

func (s *ExpenseService) Update(ctx context.Context, userID, expenseID uint, input ExpenseInput) (*model.Expense, error) {
	current, err := s.Get(ctx, userID, expenseID)
	if err != nil {
		return nil, err
	}

	merged := *current
	fields := map[string]interface{}{}
	if input.Amount != nil {
		merged.Amount = *input.Amount
		fields["amount"] = merged.Amount
	}
	if input.Category != nil {
		merged.Category = *input.Category
		fields["category"] = merged.Category
	}
	if input.Description != nil {
		merged.Description = strings.TrimSpace(*input.Description)
		fields["description"] = merged.Description
	}
	if input.SpentAt != nil {
		merged.SpentAt = *input.SpentAt
		fields["spent_at"] = merged.SpentAt
	}
	if err := validateExpense(merged); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return current, nil
	}

	updated, err := s.repo.Update(ctx, userID, expenseID, fields)
	if err != nil {
		return nil, notFound(err)
	}
	return updated, nil
}

func (s *ExpenseService) Delete(ctx context.Context, userID, expenseID uint) error {
	return notFound(s.repo.Delete(ctx, userID, expenseID))
}

// MonthlySummary groups the spend of the calendar month containing month.
func (s *ExpenseService) MonthlySummary(ctx context.Context, userID uint, month time.Time) (MonthlySummary, error) {
	start, end := monthBounds(month)
	categories, err := s.repo.SummaryByCategory(ctx, userID, start, end)
	if err != nil {
		return MonthlySummary{}, err
	}
	total := decimal.Zero
	for _, c := range categories {
		total = total.Add(c.Amount)
	}
	return MonthlySummary{
		Month:      start.Format("2006-01"),
		Total:      total,
		Categories: categories,
	}, nil
}

func validateExpense(e model.Expense) error {
	if e.Amount.IsNegative() {
		return ErrNegativeAmount
	}
	if !e.Category.Valid() {
		return ErrInvalidCategory
	}
	if utf8.RuneCountInString(e.Description) > maxDescriptionLen {
		return ErrDescriptionTooLong
	}
	return nil
}
