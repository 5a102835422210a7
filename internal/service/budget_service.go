package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"walletwatch/internal/model"
	"walletwatch/internal/repository"
)

var hundred = decimal.NewFromInt(100)

// BudgetInput carries the writable fields of a budget. Nil pointers on update
// leave the stored value untouched.
type BudgetInput struct {
	Type      *model.BudgetType
	Amount    *decimal.Decimal
	StartDate *time.Time
	EndDate   *time.Time
}

// Usage is the derived spend state of one budget.
type Usage struct {
	BudgetID   uint            `json:"budgetId"`
	Amount     decimal.Decimal `json:"amount"`
	Spent      decimal.Decimal `json:"spent"`
	Remaining  decimal.Decimal `json:"remaining"`
	Percentage decimal.Decimal `json:"percentage"`
	Overspent  bool            `json:"overspent"`
}

// BudgetService owns budget CRUD and spend aggregation. Aggregation never
// writes; spend is always recomputed from the expense ledger.
type BudgetService struct {
	budgetRepo  *repository.BudgetRepository
	expenseRepo *repository.ExpenseRepository
}

func NewBudgetService(budgetRepo *repository.BudgetRepository, expenseRepo *repository.ExpenseRepository) *BudgetService {
	return &BudgetService{budgetRepo: budgetRepo, expenseRepo: expenseRepo}
}

// CalculateSpent sums the owner's expenses inside the budget window. Non-nil
// start or end override the corresponding budget bound.
func (s *BudgetService) CalculateSpent(ctx context.Context, budget model.Budget, start, end *time.Time) (decimal.Decimal, error) {
	from, to := budget.StartDate, budget.EndDate
	if start != nil {
		from = *start
	}
	if end != nil {
		to = *end
	}
	return s.expenseRepo.SumInRange(ctx, budget.UserID, from, to)
}

// IsOverspent reports spent > amount. Spending exactly the amount is not overspending.
func (s *BudgetService) IsOverspent(ctx context.Context, budget model.Budget, start, end *time.Time) (bool, error) {
	spent, err := s.CalculateSpent(ctx, budget, start, end)
	if err != nil {
		return false, err
	}
	return spent.GreaterThan(budget.Amount), nil
}

// RemainingBudget may be negative.
func (s *BudgetService) RemainingBudget(ctx context.Context, budget model.Budget) (decimal.Decimal, error) {
	spent, err := s.CalculateSpent(ctx, budget, nil, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return budget.Amount.Sub(spent), nil
}

// UsagePercentage returns spent/amount*100 rounded to two places, or
// ErrZeroBudgetAmount for a budget without a positive amount.
func (s *BudgetService) UsagePercentage(ctx context.Context, budget model.Budget) (decimal.Decimal, error) {
	if !budget.Amount.IsPositive() {
		return decimal.Zero, ErrZeroBudgetAmount
	}
	spent, err := s.CalculateSpent(ctx, budget, nil, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return percentage(spent, budget.Amount), nil
}

// Usage computes every derived value from a single aggregation.
func (s *BudgetService) Usage(ctx context.Context, budget model.Budget) (Usage, error) {
	if !budget.Amount.IsPositive() {
		return Usage{}, ErrZeroBudgetAmount
	}
	spent, err := s.CalculateSpent(ctx, budget, nil, nil)
	if err != nil {
		return Usage{}, err
	}
	return Usage{
		BudgetID:   budget.ID,
		Amount:     budget.Amount,
		Spent:      spent,
		Remaining:  budget.Amount.Sub(spent),
		Percentage: percentage(spent, budget.Amount),
		Overspent:  spent.GreaterThan(budget.Amount),
	}, nil
}

func percentage(spent, amount decimal.Decimal) decimal.Decimal {
	return spent.Div(amount).Mul(hundred).Round(2)
}

func (s *BudgetService) Create(ctx context.Context, userID uint, input BudgetInput) (*model.Budget, error) {
	if input.Amount == nil || input.StartDate == nil || input.EndDate == nil {
		return nil, fmt.Errorf("amount, startDate and endDate: %w", ErrMissingFields)
	}
	budget := model.Budget{
		UserID:    userID,
		Type:      model.BudgetMonthly,
		Amount:    *input.Amount,
		StartDate: *input.StartDate,
		EndDate:   endOfDay(*input.EndDate),
	}
	if input.Type != nil {
		budget.Type = *input.Type
	}
	if err := validateBudget(budget); err != nil {
		return nil, err
	}
	if err := s.budgetRepo.Create(ctx, &budget); err != nil {
		return nil, conflict(err)
	}
	return &budget, nil
}

func (s *BudgetService) List(ctx context.Context, userID uint) ([]model.Budget, error) {
	return s.budgetRepo.ListByUser(ctx, userID)
}

// ListActive returns budgets whose window contains at.
func (s *BudgetService) ListActive(ctx context.Context, userID uint, at time.Time) ([]model.Budget, error) {
	return s.budgetRepo.ListActive(ctx, userID, at)
}

func (s *BudgetService) Get(ctx context.Context, userID, budgetID uint) (*model.Budget, error) {
	budget, err := s.budgetRepo.FindByID(ctx, userID, budgetID)
	if err != nil {
		return nil, notFound(err)
	}
	return budget, nil
}

// Update validates the merged budget before writing so a partial update can
// never leave an inverted window behind.
func (s *BudgetService) Update(ctx context.Context, userID, budgetID uint, input BudgetInput) (*model.Budget, error) {
	current, err := s.Get(ctx, userID, budgetID)
	if err != nil {
		return nil, err
	}

	merged := *current
	fields := map[string]interface{}{}
	if input.Type != nil {
		merged.Type = *input.Type
		fields["type"] = merged.Type
	}
	if input.Amount != nil {
		merged.Amount = *input.Amount
		fields["amount"] = merged.Amount
	}
	if input.StartDate != nil {
		merged.StartDate = *input.StartDate
		fields["start_date"] = merged.StartDate
	}
	if input.EndDate != nil {
		merged.EndDate = endOfDay(*input.EndDate)
		fields["end_date"] = merged.EndDate
	}
	if err := validateBudget(merged); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		return current, nil
	}

	updated, err := s.budgetRepo.Update(ctx, userID, budgetID, fields)
	if err != nil {
		return nil, conflict(notFound(err))
	}
	return updated, nil
}

func (s *BudgetService) Delete(ctx context.Context, userID, budgetID uint) error {
	return notFound(s.budgetRepo.Delete(ctx, userID, budgetID))
}

// BudgetUsage loads an owned budget and computes its usage.
func (s *BudgetService) BudgetUsage(ctx context.Context, userID, budgetID uint) (Usage, error) {
	budget, err := s.Get(ctx, userID, budgetID)
	if err != nil {
		return Usage{}, err
	}
	return s.Usage(ctx, *budget)
}

func validateBudget(b model.Budget) error {
	if !b.Amount.IsPositive() {
		return ErrInvalidAmount
	}
	if b.Type != model.BudgetMonthly && b.Type != model.BudgetWeekly {
		return ErrInvalidBudgetType
	}
	if b.StartDate.After(b.EndDate) {
		return ErrInvalidWindow
	}
	return nil
}

func conflict(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrBudgetConflict
	}
	return err
}
