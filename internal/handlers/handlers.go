package handlers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"teams-message-relay-go/internal/ingest"
	"teams-message-relay-go/internal/metrics"
	"teams-message-relay-go/internal/model"
	"teams-message-relay-go/internal/notify"
)

// Ingestor processes message batches
type Ingestor interface {
	Ingest(ctx context.Context, records []model.IncomingMessage, extractionID string) (*ingest.Result, error)
}

// SessionManager drives the extraction-session lifecycle
type SessionManager interface {
	Trigger(ctx context.Context, metadata map[string]interface{}) (*model.ExtractionSession, error)
	Update(ctx context.Context, id, status string, messagesExtracted *int, metadata map[string]interface{}) (*model.ExtractionSession, error)
	Get(ctx context.Context, id string) (*model.ExtractionSession, error)
	List(ctx context.Context, filter model.SessionFilter) ([]model.ExtractionSession, error)
	Delete(ctx context.Context, id string) error
	GetActive(ctx context.Context) (*model.ExtractionSession, error)
}

// MessageReader serves the read-only message endpoints
type MessageReader interface {
	List(ctx context.Context, filter model.MessageFilter) ([]model.Message, error)
	GetByMessageID(ctx context.Context, messageID string) (*model.Message, error)
	Delete(ctx context.Context, messageID string) error
	Stats(ctx context.Context) (*model.Stats, error)
}

// StatsCache caches the stats aggregate between ingests
type StatsCache interface {
	Ping(ctx context.Context) error
	StatsSummary(ctx context.Context) ([]byte, error)
	SetStatsSummary(ctx context.Context, data []byte, ttl time.Duration) error
}

// Handlers contains all HTTP handlers
type Handlers struct {
	db       *gorm.DB
	ingestor Ingestor
	sessions SessionManager
	messages MessageReader
	cache    StatsCache
	hub      *notify.Hub
	metrics  *metrics.Metrics
}

// NewHandlers creates new HTTP handlers
func NewHandlers(db *gorm.DB, ingestor Ingestor, sessions SessionManager, messages MessageReader, cache StatsCache, hub *notify.Hub, m *metrics.Metrics) *Handlers {
	return &Handlers{
		db:       db,
		ingestor: ingestor,
		sessions: sessions,
		messages: messages,
		cache:    cache,
		hub:      hub,
		metrics:  m,
	}
}
