package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"walletwatch/internal/model"
	"walletwatch/internal/repository"
)

// GoalInput represents writable goal fields.
type GoalInput struct {
	Title         *string
	TargetAmount  *decimal.Decimal
	CurrentAmount *decimal.Decimal
	Deadline      *time.Time
	Status        *model.GoalStatus
}

// GoalView decorates a stored goal with values derived at read time.
type GoalView struct {
	model.Goal
	Expired  bool            `json:"expired"`
	Achieved bool            `json:"achieved"`
	Progress decimal.Decimal `json:"progress"`
}

// GoalService wraps savings goal logic. Expiry uses the injected clock on
// every read and is never persisted.
type GoalService struct {
	repo  *repository.GoalRepository
	clock Clock
}

func NewGoalService(repo *repository.GoalRepository, clock Clock) *GoalService {
	return &GoalService{repo: repo, clock: clock}
}

func (s *GoalService) view(g model.Goal) GoalView {
	return GoalView{
		Goal:     g,
		Expired:  g.IsExpired(s.clock.Now()),
		Achieved: g.IsAchieved(),
		Progress: g.Progress(),
	}
}

func (s *GoalService) Create(ctx context.Context, userID uint, input GoalInput) (*GoalView, error) {
	if input.Title == nil || input.TargetAmount == nil || input.Deadline == nil {
		return nil, fmt.Errorf("title, targetAmount and deadline: %w", ErrMissingFields)
	}
	goal := model.Goal{
		UserID:        userID,
		Title:         strings.TrimSpace(*input.Title),
		TargetAmount:  *input.TargetAmount,
		CurrentAmount: decimal.Zero,
		Deadline:      endOfDay(*input.Deadline),
		Status:        model.GoalActive,
	}
	if input.CurrentAmount != nil {
		goal.CurrentAmount = *input.CurrentAmount
	}
	if input.Status != nil {
		goal.Status = *input.Status
	}
	if err := validateGoal(goal); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, &goal); err != nil {
		return nil, err
	}
	v := s.view(goal)
	return &v, nil
}

func (s *GoalService) List(ctx context.Context, userID uint) ([]GoalView, error) {
	goals, err := s.repo.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	views := make([]GoalView, 0, len(goals))
	for _, g := range goals {
		views = append(views, s.view(g))
	}
	return views, nil
}

func (s *GoalService) Get(ctx context.Context, userID, goalID uint) (*GoalView, error) {
	goal, err := s.repo.FindByID(ctx, userID, goalID)
	if err != nil {
		return nil, notFound(err)
	}
	v := s.view(*goal)
	return &v, nil
}

func (s *GoalService) Update(ctx context.Context, userID, goalID uint, input GoalInput) (*GoalView, error) {
	current, err := s.repo.FindByID(ctx, userID, goalID)
	if err != nil {
		return nil, notFound(err)
	}

	merged := *current
	fields := map[string]interface{}{}
	if input.Title != nil {
		merged.Title = strings.TrimSpace(*input.Title)
		fields["title"] = merged.Title
	}
	if input.TargetAmount != nil {
		merged.TargetAmount = *input.TargetAmount
		fields["target_amount"] = merged.TargetAmount
	}
	if input.CurrentAmount != nil {
		merged.CurrentAmount = *input.CurrentAmount
		fields["current_amount"] = merged.CurrentAmount
	}
	if input.Deadline != nil {
		merged.Deadline = endOfDay(*input.Deadline)
		fields["deadline"] = merged.Deadline
	}
	if input.Status != nil {
		merged.Status = *input.Status
		fields["status"] = merged.Status
	}
	if err := validateGoal(merged); err != nil {
		return nil, err
	}
	if len(fields) == 0 {
		v := s.view(*current)
		return &v, nil
	}

	updated, err := s.repo.Update(ctx, userID, goalID, fields)
	if err != nil {
		return nil, notFound(err)
	}
	v := s.view(*updated)
	return &v, nil
}

func (s *GoalService) Delete(ctx context.Context, userID, goalID uint) error {
	return notFound(s.repo.Delete(ctx, userID, goalID))
}

func validateGoal(g model.Goal) error {
	if g.Title == "" {
		return ErrTitleRequired
	}
	if !g.TargetAmount.IsPositive() {
		return ErrInvalidAmount
	}
	if g.CurrentAmount.IsNegative() {
		return ErrNegativeAmount
	}
	if !g.Status.Valid() {
		return ErrInvalidStatus
	}
	return nil
}
