package models

import "time"

// ReputationEvent is one applied ledger entry.
type ReputationEvent struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"index;not null" json:"user_id"`
	Delta     int       `gorm:"not null" json:"delta"`
	Reason    string    `gorm:"size:64;not null" json:"reason"`
	SagaID    string    `gorm:"size:36;index" json:"saga_id,omitempty"`
	CreatedAt time.Time `gorm:"index" json:"created_at"`
}
