package models

import "time"

// Saga statuses.
const (
	SagaPending   = "pending"
	SagaCompleted = "completed"
	SagaFailed    = "failed"
	SagaAborted   = "aborted"
)

// SagaLog records the intent of a multi-entity cascade before it runs so an
// interrupted cascade can be replayed.
type SagaLog struct {
	ID        string    `gorm:"primaryKey;size:36" json:"id"`
	Kind      string    `gorm:"size:64;index;not null" json:"kind"`
	Payload   string    `gorm:"type:text;not null" json:"payload"`
	Status    string    `gorm:"size:16;index;not null" json:"status"`
	Attempts  int       `gorm:"not null;default:0" json:"attempts"`
	Steps     string    `gorm:"type:text" json:"steps"`
	Error     string    `gorm:"type:text" json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `gorm:"index" json:"updated_at"`
}
