package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/qabbs/models"
)

// Suggester completes a partial question.
type Suggester interface {
	SuggestQuestion(ctx context.Context, header string) (string, error)
}

// Suggestions is the answer to a partially typed question.
type Suggestions struct {
	Similar []string `json:"similar"`
	AI      string   `json:"ai_suggestion,omitempty"`
}

// SuggestionService looks up existing questions similar to a header and asks
// the suggester for a well-formed version of it.
type SuggestionService struct {
	db        *gorm.DB
	suggester Suggester
	limit     int
	logger    *zap.Logger
}

// NewSuggestionService creates a SuggestionService. suggester may be nil.
func NewSuggestionService(db *gorm.DB, suggester Suggester, limit int, logger *zap.Logger) *SuggestionService {
	if limit <= 0 {
		limit = 5
	}
	return &SuggestionService{db: db, suggester: suggester, limit: limit, logger: logger.Named("suggestions")}
}

var likeEscaper = strings.NewReplacer(`!`, `!!`, `%`, `!%`, `_`, `!_`)

// ContainsPattern builds a case-folded LIKE pattern matching s anywhere. Use it
// with "LOWER(col) LIKE ? ESCAPE '!'".
func ContainsPattern(s string) string {
	return "%" + likeEscaper.Replace(strings.ToLower(s)) + "%"
}

// Suggest returns titles matching header and, when available, an AI completion.
// A failing suggester degrades to titles only.
func (s *SuggestionService) Suggest(ctx context.Context, header string) (Suggestions, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Suggestions{}, ErrEmptyContent
	}

	out := Suggestions{Similar: []string{}}
	if err := s.db.WithContext(ctx).Model(&models.Question{}).
		Where("LOWER(title) LIKE ? ESCAPE '!'", ContainsPattern(header)).
		Order("upvotes DESC, id DESC").
		Limit(s.limit).
		Pluck("title", &out.Similar).Error; err != nil {
		return Suggestions{}, fmt.Errorf("find similar questions: %w", err)
	}

	if s.suggester == nil {
		return out, nil
	}
	text, err := s.suggester.SuggestQuestion(ctx, header)
	if err != nil {
		s.logger.Warn("ai suggestion unavailable", zap.Error(err))
		return out, nil
	}
	out.AI = text
	return out, nil
}
