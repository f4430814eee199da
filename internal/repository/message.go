package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"teams-message-relay-go/internal/model"
)

// ErrNotFound is returned when a requested row does not exist
var ErrNotFound = errors.New("record not found")

// MessageRepository persists ingested messages
type MessageRepository struct {
	db *gorm.DB
}

// NewMessageRepository creates a message repository
func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// mutable message columns refreshed when an existing message_id is re-ingested
var messageUpdateColumns = []string{
	"channel", "channel_name", "content", "sender_id", "sender_name",
	"sender_email", "timestamp", "source_url", "type", "thread_id",
	"attachments", "reactions", "metadata", "extraction_id", "updated_at",
}

// UpsertBatch writes the batch in one transaction as a multi-row upsert
// keyed by message_id. On conflict the mutable columns are updated; the
// write is all-or-nothing.
func (r *MessageRepository) UpsertBatch(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "message_id"}},
			DoUpdates: clause.AssignmentColumns(messageUpdateColumns),
		}).Create(&messages).Error
	})
	if err != nil {
		return fmt.Errorf("failed to upsert message batch: %w", err)
	}
	return nil
}

// List returns messages matching the filter, newest first
func (r *MessageRepository) List(ctx context.Context, filter model.MessageFilter) ([]model.Message, error) {
	query := r.db.WithContext(ctx).Model(&model.Message{})
	if filter.Channel != "" {
		query = query.Where("channel = ? OR channel_name LIKE ?", filter.Channel, "%"+filter.Channel+"%")
	}
	if filter.Sender != "" {
		query = query.Where("sender_name LIKE ?", "%"+filter.Sender+"%")
	}
	if filter.Type != "" {
		query = query.Where("type = ?", filter.Type)
	}
	limit := filter.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}

	var messages []model.Message
	if err := query.Order("timestamp desc").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// GetByMessageID returns the message with the given external id
func (r *MessageRepository) GetByMessageID(ctx context.Context, messageID string) (*model.Message, error) {
	var message model.Message
	err := r.db.WithContext(ctx).Where("message_id = ?", messageID).First(&message).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	return &message, nil
}

// Delete removes a message row. Administrative only, never called by the
// ingestion path.
func (r *MessageRepository) Delete(ctx context.Context, messageID string) error {
	result := r.db.WithContext(ctx).Where("message_id = ?", messageID).Delete(&model.Message{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats computes the read-only aggregates for the stats endpoint
func (r *MessageRepository) Stats(ctx context.Context) (*model.Stats, error) {
	stats := &model.Stats{ByType: make(map[string]int64)}
	db := r.db.WithContext(ctx).Model(&model.Message{})

	if err := db.Count(&stats.TotalMessages).Error; err != nil {
		return nil, fmt.Errorf("failed to count messages: %w", err)
	}

	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("created_at >= ?", today).Count(&stats.Today).Error; err != nil {
		return nil, fmt.Errorf("failed to count today's messages: %w", err)
	}
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("created_at >= ?", now.AddDate(0, 0, -7)).Count(&stats.ThisWeek).Error; err != nil {
		return nil, fmt.Errorf("failed to count this week's messages: %w", err)
	}

	rows := []struct {
		Type  string
		Count int64
	}{}
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Select("type, count(*) as count").Group("type").Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count messages by type: %w", err)
	}
	for _, row := range rows {
		stats.ByType[row.Type] = row.Count
	}

	return stats, nil
}
