package models

import "time"

// VoteKind is either an upvote or a downvote.
type VoteKind string

const (
	Upvote   VoteKind = "upvote"
	Downvote VoteKind = "downvote"
)

// Valid reports whether k is a known vote kind.
func (k VoteKind) Valid() bool {
	return k == Upvote || k == Downvote
}

// Opposite returns the other vote kind.
func (k VoteKind) Opposite() VoteKind {
	if k == Upvote {
		return Downvote
	}
	return Upvote
}

// Vote is a single user's vote on a target. The unique index keeps a user in at
// most one of the upvote/downvote sets of any target.
type Vote struct {
	ID         uint       `gorm:"primaryKey" json:"id"`
	TargetKind TargetKind `gorm:"size:16;not null;uniqueIndex:idx_vote_target_user" json:"target_type"`
	TargetID   uint       `gorm:"not null;uniqueIndex:idx_vote_target_user" json:"target_id"`
	UserID     uint       `gorm:"not null;uniqueIndex:idx_vote_target_user;index" json:"user_id"`
	Kind       VoteKind   `gorm:"size:16;not null" json:"kind"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// Target returns what the vote was cast on.
func (v *Vote) Target() Target {
	return Target{Kind: v.TargetKind, ID: v.TargetID}
}
