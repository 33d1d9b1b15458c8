package models

import (
	"fmt"
	"strings"
)

// TargetKind tags what a Target points at.
type TargetKind string

const (
	TargetQuestion TargetKind = "question"
	TargetAnswer   TargetKind = "answer"
)

// Valid reports whether k is one of the known kinds.
func (k TargetKind) Valid() bool {
	return k == TargetQuestion || k == TargetAnswer
}

// ParseTargetKind accepts "question"/"answer" in any case.
func ParseTargetKind(s string) (TargetKind, bool) {
	k := TargetKind(strings.ToLower(strings.TrimSpace(s)))
	return k, k.Valid()
}

// Target references either a question or an answer. It is the parent of a
// comment and the subject of a vote.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   uint       `json:"id"`
}

// QuestionTarget builds a Target for a question.
func QuestionTarget(id uint) Target { return Target{Kind: TargetQuestion, ID: id} }

// AnswerTarget builds a Target for an answer.
func AnswerTarget(id uint) Target { return Target{Kind: TargetAnswer, ID: id} }

func (t Target) String() string {
	return fmt.Sprintf("%s:%d", t.Kind, t.ID)
}
