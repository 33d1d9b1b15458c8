package models

import (
	"time"

	"gorm.io/gorm"
)

// User represents a forum member. Passwords are stored as bcrypt hashes only.
// Reputation may go negative and is only written through the reputation service.
type User struct {
	ID           uint       `gorm:"primaryKey" json:"id"`
	Username     string     `gorm:"size:64;not null;uniqueIndex" json:"username"`
	Email        string     `gorm:"size:255" json:"email"`
	PasswordHash string     `gorm:"size:255" json:"-"`
	Provider     string     `gorm:"size:32" json:"provider"`
	ProviderID   string     `gorm:"size:255" json:"provider_id"`
	AvatarURL    string     `gorm:"size:512" json:"avatar_url"`
	Reputation   int        `gorm:"not null;default:0" json:"reputation"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
	Questions    []Question `json:"-"`
	Answers      []Answer   `json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}

// BeforeUpdate ensures the UpdatedAt timestamp is refreshed.
func (u *User) BeforeUpdate(tx *gorm.DB) error {
	u.UpdatedAt = time.Now()
	return nil
}
