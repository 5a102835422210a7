package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"walletwatch/internal/model"
)

// BudgetRepository handles CRUD for budgets. The (user, start, end) unique
// index rejects duplicate windows with gorm.ErrDuplicatedKey.
type BudgetRepository struct {
	db *gorm.DB
}

func NewBudgetRepository(db *gorm.DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

func (r *BudgetRepository) Create(ctx context.Context, budget *model.Budget) error {
	budget.StartDate = budget.StartDate.UTC()
	budget.EndDate = budget.EndDate.UTC()
	if err := r.db.WithContext(ctx).Create(budget).Error; err != nil {
		return fmt.Errorf("create budget: %w", err)
	}
	return nil
}

func (r *BudgetRepository) ListByUser(ctx context.Context, userID uint) ([]model.Budget, error) {
	var budgets []model.Budget
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("start_date DESC").
		Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

// ListActive returns the owner's budgets whose window contains at.
func (r *BudgetRepository) ListActive(ctx context.Context, userID uint, at time.Time) ([]model.Budget, error) {
	var budgets []model.Budget
	at = at.UTC()
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND start_date <= ? AND end_date >= ?", userID, at, at).
		Order("start_date ASC").
		Find(&budgets).Error; err != nil {
		return nil, err
	}
	return budgets, nil
}

func (r *BudgetRepository) FindByID(ctx context.Context, userID, budgetID uint) (*model.Budget, error) {
	var budget model.Budget
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, budgetID).First(&budget).Error; err != nil {
		return nil, err
	}
	return &budget, nil
}

// Update applies fields to the owner's budget and returns the stored row.
func (r *BudgetRepository) Update(ctx context.Context, userID, budgetID uint, fields map[string]interface{}) (*model.Budget, error) {
	for _, key := range []string{"start_date", "end_date"} {
		if t, ok := fields[key].(time.Time); ok {
			fields[key] = t.UTC()
		}
	}
	res := r.db.WithContext(ctx).Model(&model.Budget{}).
		Where("user_id = ? AND id = ?", userID, budgetID).
		Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("update budget: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, userID, budgetID)
}

func (r *BudgetRepository) Delete(ctx context.Context, userID, budgetID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, budgetID).Delete(&model.Budget{})
	if res.Error != nil {
		return fmt.Errorf("delete budget: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
