package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"walletwatch/internal/model"
)

// GoalRepository handles CRUD for savings goals.
type GoalRepository struct {
	db *gorm.DB
}

func NewGoalRepository(db *gorm.DB) *GoalRepository {
	return &GoalRepository{db: db}
}

func (r *GoalRepository) Create(ctx context.Context, goal *model.Goal) error {
	goal.Deadline = goal.Deadline.UTC()
	if err := r.db.WithContext(ctx).Create(goal).Error; err != nil {
		return fmt.Errorf("create goal: %w", err)
	}
	return nil
}

func (r *GoalRepository) ListByUser(ctx context.Context, userID uint) ([]model.Goal, error) {
	var goals []model.Goal
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).
		Order("deadline ASC, id ASC").
		Find(&goals).Error; err != nil {
		return nil, err
	}
	return goals, nil
}

func (r *GoalRepository) FindByID(ctx context.Context, userID, goalID uint) (*model.Goal, error) {
	var goal model.Goal
	if err := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, goalID).First(&goal).Error; err != nil {
		return nil, err
	}
	return &goal, nil
}

func (r *GoalRepository) Update(ctx context.Context, userID, goalID uint, fields map[string]interface{}) (*model.Goal, error) {
	if deadline, ok := fields["deadline"].(time.Time); ok {
		fields["deadline"] = deadline.UTC()
	}
	res := r.db.WithContext(ctx).Model(&model.Goal{}).
		Where("user_id = ? AND id = ?", userID, goalID).
		Updates(fields)
	if res.Error != nil {
		return nil, fmt.Errorf("update goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, gorm.ErrRecordNotFound
	}
	return r.FindByID(ctx, userID, goalID)
}

func (r *GoalRepository) Delete(ctx context.Context, userID, goalID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND id = ?", userID, goalID).Delete(&model.Goal{})
	if res.Error != nil {
		return fmt.Errorf("delete goal: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
