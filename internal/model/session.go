package model

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Extraction session statuses. in_progress is the only initial state;
// completed and failed are terminal.
const (
	SessionStatusInProgress = "in_progress"
	SessionStatusCompleted  = "completed"
	SessionStatusFailed     = "failed"
)

// ExtractionSession tracks one client-reported extraction run. The
// messages_extracted count is caller-reported, not derived from ingested rows.
type ExtractionSession struct {
	ID                string            `json:"id" gorm:"type:varchar(64);primaryKey"`
	Status            string            `json:"status" gorm:"type:varchar(50);not null"`
	StartedAt         time.Time         `json:"started_at" gorm:"not null"`
	CompletedAt       *time.Time        `json:"completed_at,omitempty"`
	MessagesExtracted int               `json:"messages_extracted"`
	Metadata          datatypes.JSONMap `json:"metadata"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
	DeletedAt         gorm.DeletedAt    `json:"deleted_at,omitempty" gorm:"index"`
}

// TableName specifies the table name for ExtractionSession
func (ExtractionSession) TableName() string {
	return "extraction_sessions"
}

// ValidSessionStatus reports whether s is a known session status
func ValidSessionStatus(s string) bool {
	switch s {
	case SessionStatusInProgress, SessionStatusCompleted, SessionStatusFailed:
		return true
	}
	return false
}

// Terminal reports whether s is a terminal session status
func Terminal(s string) bool {
	return s == SessionStatusCompleted || s == SessionStatusFailed
}
