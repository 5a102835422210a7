package repository

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"walletwatch/internal/model"
)

// SessionRepository persists login sessions.
type SessionRepository struct {
	db *gorm.DB
}

func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

func (r *SessionRepository) Create(ctx context.Context, session *model.Session) error {
	session.ExpiresAt = session.ExpiresAt.UTC()
	session.LastActivity = session.LastActivity.UTC()
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// FindValid returns the session for token if it has not expired at now.
func (r *SessionRepository) FindValid(ctx context.Context, token string, now time.Time) (*model.Session, error) {
	var session model.Session
	if err := r.db.WithContext(ctx).
		Where("token = ? AND expires_at > ?", token, now.UTC()).
		First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) Renew(ctx context.Context, token string, expiresAt, activity time.Time) error {
	updates := map[string]interface{}{
		"expires_at":    expiresAt.UTC(),
		"last_activity": activity.UTC(),
	}
	if err := r.db.WithContext(ctx).Model(&model.Session{}).Where("token = ?", token).Updates(updates).Error; err != nil {
		return fmt.Errorf("renew session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Delete(ctx context.Context, token string) error {
	if err := r.db.WithContext(ctx).Where("token = ?", token).Delete(&model.Session{}).Error; err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// DeleteExpired removes sessions that expired before now and reports how many.
func (r *SessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&model.Session{})
	if res.Error != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}
