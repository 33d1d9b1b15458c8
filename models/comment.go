package models

import "time"

// Comment is attached to a question or an answer.
type Comment struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	UserID     uint       `gorm:"index;not null" json:"user_id"`
	ParentKind TargetKind `gorm:"size:16;not null;index:idx_comment_parent" json:"parent_type"`
	ParentID   uint       `gorm:"not null;index:idx_comment_parent" json:"parent_id"`
	Content    string     `gorm:"type:text;not null" json:"content"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
	User       User       `json:"author"`
}

// Parent returns the comment's parent as a Target.
func (c *Comment) Parent() Target {
	return Target{Kind: c.ParentKind, ID: c.ParentID}
}

// SetParent points the comment at t.
func (c *Comment) SetParent(t Target) {
	c.ParentKind = t.Kind
	c.ParentID = t.ID
}
