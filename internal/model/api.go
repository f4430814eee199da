package model

import (
	"encoding/json"
	"time"
)

// IncomingSender is the sender block of an incoming message
type IncomingSender struct {
	ID    string `json:"id"`
	Name  string `json:"name" binding:"required"`
	Email string `json:"email" binding:"omitempty,email"`
}

// IncomingMessage is one candidate message record in a batch
type IncomingMessage struct {
	MessageID   string                 `json:"messageId" binding:"required"`
	Channel     string                 `json:"channel"`
	ChannelName string                 `json:"channelName"`
	Content     string                 `json:"content" binding:"required"`
	Sender      IncomingSender         `json:"sender" binding:"required"`
	Timestamp   time.Time              `json:"timestamp" binding:"required"`
	SourceURL   string                 `json:"sourceUrl"`
	Type        string                 `json:"type" binding:"omitempty,oneof=message reply system"`
	ThreadID    string                 `json:"threadId"`
	Attachments []json.RawMessage      `json:"attachments"`
	Reactions   []json.RawMessage      `json:"reactions"`
	Metadata    map[string]interface{} `json:"metadata"`
}

// BatchIngestRequest is the body of POST /api/messages/batch
type BatchIngestRequest struct {
	Messages     []IncomingMessage      `json:"messages" binding:"required"`
	ExtractionID string                 `json:"extractionId" binding:"required"`
	Metadata     map[string]interface{} `json:"metadata"`
}

// BatchIngestResponse is the structured outcome of a batch ingest call.
// The counts always satisfy inserted + duplicates + errors == processed.
type BatchIngestResponse struct {
	Success        bool   `json:"success"`
	Processed      int    `json:"processed"`
	Inserted       int    `json:"inserted"`
	Duplicates     int    `json:"duplicates"`
	Errors         int    `json:"errors"`
	ProcessingTime int64  `json:"processingTime"`
	ExtractionID   string `json:"extractionId"`
}

// TriggerSessionRequest is the body of POST /api/extractions/trigger
type TriggerSessionRequest struct {
	Metadata map[string]interface{} `json:"metadata"`
}

// UpdateSessionRequest is the body of PUT /api/extractions/:id
type UpdateSessionRequest struct {
	Status            string                 `json:"status" binding:"required,oneof=in_progress completed failed"`
	MessagesExtracted *int                   `json:"messagesExtracted"`
	Metadata          map[string]interface{} `json:"metadata"`
}

// MessageFilter narrows message list queries
type MessageFilter struct {
	Channel string
	Sender  string
	Type    string
	Limit   int
}

// SessionFilter narrows session list queries
type SessionFilter struct {
	Status string
	Limit  int
	Offset int
}

// Stats is the read-only aggregation returned by GET /api/stats
type Stats struct {
	TotalMessages int64            `json:"total_messages"`
	Today         int64            `json:"today"`
	ThisWeek      int64            `json:"this_week"`
	ByType        map[string]int64 `json:"by_type"`
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Database  string            `json:"database"`
	Cache     string            `json:"cache"`
	Metrics   map[string]string `json:"metrics,omitempty"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Code    int               `json:"code"`
	Fields  map[string]string `json:"fields,omitempty"`
}
