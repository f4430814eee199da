package repository

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"teams-message-relay-go/internal/model"
)

// SessionRepository persists extraction sessions
type SessionRepository struct {
	db *gorm.DB
}

// NewSessionRepository creates a session repository
func NewSessionRepository(db *gorm.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Create inserts a new session row
func (r *SessionRepository) Create(ctx context.Context, session *model.ExtractionSession) error {
	if err := r.db.WithContext(ctx).Create(session).Error; err != nil {
		return fmt.Errorf("failed to create session: %w", err)
	}
	return nil
}

// Get returns the session with the given id
func (r *SessionRepository) Get(ctx context.Context, id string) (*model.ExtractionSession, error) {
	var session model.ExtractionSession
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&session).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return &session, nil
}

// List returns sessions matching the filter, newest first
func (r *SessionRepository) List(ctx context.Context, filter model.SessionFilter) ([]model.ExtractionSession, error) {
	query := r.db.WithContext(ctx).Model(&model.ExtractionSession{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	if filter.Offset > 0 {
		query = query.Offset(filter.Offset)
	}

	var sessions []model.ExtractionSession
	if err := query.Order("started_at desc").Limit(limit).Find(&sessions).Error; err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	return sessions, nil
}

// Save writes back a mutated session row
func (r *SessionRepository) Save(ctx context.Context, session *model.ExtractionSession) error {
	if err := r.db.WithContext(ctx).Save(session).Error; err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

// Delete removes a session row
func (r *SessionRepository) Delete(ctx context.Context, id string) error {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&model.ExtractionSession{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
