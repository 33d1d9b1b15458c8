package models

import "time"

// Question is a user-posted question. Upvotes/Downvotes mirror the rows in the
// votes table and are updated in the same transaction as those rows.
type Question struct {
	ID          uint          `gorm:"primaryKey" json:"id"`
	UserID      uint          `gorm:"index;not null" json:"user_id"`
	Title       string        `gorm:"size:255;not null" json:"title"`
	Description string        `gorm:"type:text;not null" json:"description"`
	Tried       string        `gorm:"type:text" json:"tried"`
	Upvotes     int           `gorm:"not null;default:0;index" json:"upvotes"`
	Downvotes   int           `gorm:"not null;default:0" json:"downvotes"`
	CreatedAt   time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	User        User          `json:"author"`
	Tags        []QuestionTag `json:"tags"`
	Answers     []Answer      `json:"answers,omitempty"`
}

// QuestionTag is one entry of a question's tag set.
type QuestionTag struct {
	ID         uint   `gorm:"primaryKey" json:"-"`
	QuestionID uint   `gorm:"uniqueIndex:idx_question_tag;not null" json:"-"`
	Tag        string `gorm:"uniqueIndex:idx_question_tag;index;size:64;not null" json:"tag"`
}

// TagNames flattens the tag set.
func (q *Question) TagNames() []string {
	out := make([]string, 0, len(q.Tags))
	for _, t := range q.Tags {
		out = append(out, t.Tag)
	}
	return out
}
