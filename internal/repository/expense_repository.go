package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"walletwatch/internal/model"
)

// ExpenseRepository is the expense ledger. Every query is scoped by owner.
type ExpenseRepository struct {
	db *gorm.DB
}

func NewExpenseRepository(db *gorm.DB) *ExpenseRepository {
	return &ExpenseRepository{db: db}
}

func (r *ExpenseRepository) Create(ctx context.Context, expense *model.Expense) error {
	expense.SpentAt = expense.SpentAt.UTC()
	if err := r.db.WithContext(ctx).Create(expense).Error; err != nil {
		return fmt.Errorf("create expense: %w", err)
	}
	return nil
}

func (r *ExpenseRepository) ListByUser(ctx context.Context, userID uint) ([]model.Expense, error) {
	var expenses []model.Expense
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("spent_at DESC, id DESC").
		Find(&expenses).Error; err != nil {
		return nil, err
	}
	return expenses, nil
}

func (r *ExpenseRepository) FindByID(ctx context.Context, userID, expenseID uint) (*model.Expense, error) {
	var expense model.Expense
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, expenseID).First(&expense).Error; err != nil {
		return nil, err
	}
	return &expense, nil
}

// Update applies fields to the owner's expense and returns the stored row.
func (r *ExpenseRepository) Update(ctx context.Context, userID, expenseID uint, fields map[string]interface{}) (*model.Expense, error) {
	if spentAt, ok := fields["spent_at"].(time.Time); ok {
		fields["spent_at"] = spentAt.UTC()
	}
	res := r.db.WithContext(ctx).Model(&model.Expense{}).
		Where("user_id = ? AND id = ?", userID, expenseID).
		Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("update expense: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, userID, expenseID)
}

func (r *ExpenseRepository) Delete(ctx context.Context, userID, expenseID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, expenseID).Delete(&model.Expense{})
	if res.Error != nil {
		return fmt.Errorf("delete expense: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// ListInRange returns the owner's expenses with SpentAt in [start, end].
func (r *ExpenseRepository) ListInRange(ctx context.Context, userID uint, start, end time.Time) ([]model.Expense, error) {
	var expenses []model.Expense
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND spent_at >= ? AND spent_at <= ?", userID, start.UTC(), end.UTC()).
		Order("spent_at ASC").
		Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("list expenses in range: %w", err)
	}
	return expenses, nil
}

// ListByCategory returns the owner's expenses of one category with SpentAt in [start, end].
func (r *ExpenseRepository) ListByCategory(ctx context.Context, userID uint, category model.Category, start, end time.Time) ([]model.Expense, error) {
	var expenses []model.Expense
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND category = ? AND spent_at >= ? AND spent_at <= ?", userID, category, start.UTC(), end.UTC()).
		Order("spent_at ASC").
		Find(&expenses).Error; err != nil {
		return nil, fmt.Errorf("list expenses by category: %w", err)
	}
	return expenses, nil
}

// SumInRange totals amounts in [start, end]. Summing happens in decimal
// rather than SQL SUM so SQLite's float arithmetic never touches money.
func (r *ExpenseRepository) SumInRange(ctx context.Context, userID uint, start, end time.Time) (decimal.Decimal, error) {
	expenses, err := r.ListInRange(ctx, userID, start, end)
	if err != nil {
		return decimal.Zero, err
	}
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total, nil
}

// SummaryByCategory groups spend in [start, end] by category, largest first.
func (r *ExpenseRepository) SummaryByCategory(ctx context.Context, userID uint, start, end time.Time) ([]model.CategoryTotal, error) {
	expenses, err := r.ListInRange(ctx, userID, start, end)
	if err != nil {
		return nil, err
	}
	byCategory := make(map[model.Category]*model.CategoryTotal)
	for _, e := range expenses {
		row, ok := byCategory[e.Category]
		if !ok {
			row = &model.CategoryTotal{Category: e.Category, Amount: decimal.Zero}
			byCategory[e.Category] = row
		}
		row.Amount = row.Amount.Add(e.Amount)
		row.Count++
	}
	summary := make([]model.CategoryTotal, 0, len(byCategory))
	for _, row := range byCategory {
		summary = append(summary, *row)
	}
	sort.Slice(summary, func(i, j int) bool {
		if !summary[i].Amount.Equal(summary[j].Amount) {
			return summary[i].Amount.GreaterThan(summary[j].Amount)
		}
		return summary[i].Category < summary[j].Category
	})
	return summary, nil
}
