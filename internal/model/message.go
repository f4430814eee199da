package model

import (
	"time"

	"gorm.io/datatypes"
)

// Message types accepted by the ingestion pipeline
const (
	MessageTypeMessage = "message"
	MessageTypeReply   = "reply"
	MessageTypeSystem  = "system"
)

// Message represents an ingested chat message. MessageID is the externally
// assigned idempotence key: re-ingesting the same id updates mutable fields
// and never creates a second row.
type Message struct {
	ID           uint              `json:"id" gorm:"primaryKey;autoIncrement"`
	MessageID    string            `json:"message_id" gorm:"type:varchar(255);not null;uniqueIndex"`
	Channel      string            `json:"channel" gorm:"type:varchar(255);index"`
	ChannelName  string            `json:"channel_name" gorm:"type:varchar(255)"`
	Content      string            `json:"content" gorm:"type:text;not null"`
	SenderID     string            `json:"sender_id" gorm:"type:varchar(255)"`
	SenderName   string            `json:"sender_name" gorm:"type:varchar(255);not null;index"`
	SenderEmail  string            `json:"sender_email" gorm:"type:varchar(255)"`
	Timestamp    time.Time         `json:"timestamp" gorm:"not null;index"`
	SourceURL    string            `json:"source_url" gorm:"type:varchar(2048)"`
	Type         string            `json:"type" gorm:"type:varchar(50);not null;default:message"`
	ThreadID     string            `json:"thread_id" gorm:"type:varchar(255);index"`
	Attachments  datatypes.JSON    `json:"attachments"`
	Reactions    datatypes.JSON    `json:"reactions"`
	Metadata     datatypes.JSONMap `json:"metadata"`
	ExtractionID string            `json:"extraction_id" gorm:"type:varchar(64);index"`
	CreatedAt    time.Time         `json:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at"`
}

// TableName specifies the table name for Message
func (Message) TableName() string {
	return "messages"
}

// ValidMessageType reports whether t is an accepted message type
func ValidMessageType(t string) bool {
	switch t {
	case MessageTypeMessage, MessageTypeReply, MessageTypeSystem:
		return true
	}
	return false
}
