package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qabbs/models"
)

// Coordinator owns the lifecycle of questions, answers, comments and users and
// the reputation side effects of each transition.
type Coordinator struct {
	db     *gorm.DB
	rep    *ReputationService
	sagas  *SagaRunner
	logger *zap.Logger
}

// NewCoordinator creates a Coordinator and registers its cascades with sagas.
func NewCoordinator(db *gorm.DB, rep *ReputationService, sagas *SagaRunner, logger *zap.Logger) *Coordinator {
	c := &Coordinator{
		db:     db,
		rep:    rep,
		sagas:  sagas,
		logger: logger.Named("coordinator"),
	}
	sagas.Register(SagaDeleteAnswer, c.planDeleteAnswer)
	sagas.Register(SagaDeleteQuestion, c.planDeleteQuestion)
	sagas.Register(SagaDeleteUser, c.planDeleteUser)
	return c
}

func lockQuestion(tx *gorm.DB, id uint) (*models.Question, error) {
	var q models.Question
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&q, id).Error
	if err != nil {
		return nil, notFoundOr(err, ErrQuestionNotFound, "load question")
	}
	return &q, nil
}

func lockAnswer(tx *gorm.DB, id uint) (*models.Answer, error) {
	var a models.Answer
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&a, id).Error
	if err != nil {
		return nil, notFoundOr(err, ErrAnswerNotFound, "load answer")
	}
	return &a, nil
}

// deleteAnswerRows removes answers with their comments and vote rows.
func deleteAnswerRows(tx *gorm.DB, answerIDs []uint) error {
	if len(answerIDs) == 0 {
		return nil
	}
	if err := tx.Where("parent_kind = ? AND parent_id IN ?", models.TargetAnswer, answerIDs).
		Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("delete answer comments: %w", err)
	}
	if err := tx.Where("target_kind = ? AND target_id IN ?", models.TargetAnswer, answerIDs).
		Delete(&models.Vote{}).Error; err != nil {
		return fmt.Errorf("delete answer votes: %w", err)
	}
	if err := tx.Where("id IN ?", answerIDs).Delete(&models.Answer{}).Error; err != nil {
		return fmt.Errorf("delete answers: %w", err)
	}
	return nil
}

// deleteQuestionRows removes questions with their comments, vote rows and tags.
// Answers must already be gone.
func deleteQuestionRows(tx *gorm.DB, questionIDs []uint) error {
	if len(questionIDs) == 0 {
		return nil
	}
	if err := tx.Where("parent_kind = ? AND parent_id IN ?", models.TargetQuestion, questionIDs).
		Delete(&models.Comment{}).Error; err != nil {
		return fmt.Errorf("delete question comments: %w", err)
	}
	if err := tx.Where("target_kind = ? AND target_id IN ?", models.TargetQuestion, questionIDs).
		Delete(&models.Vote{}).Error; err != nil {
		return fmt.Errorf("delete question votes: %w", err)
	}
	if err := tx.Where("question_id IN ?", questionIDs).Delete(&models.QuestionTag{}).Error; err != nil {
		return fmt.Errorf("delete question tags: %w", err)
	}
	if err := tx.Where("id IN ?", questionIDs).Delete(&models.Question{}).Error; err != nil {
		return fmt.Errorf("delete questions: %w", err)
	}
	return nil
}

func (c *Coordinator) eventStep(userID uint, event Event) func(context.Context, *gorm.DB) error {
	return func(ctx context.Context, tx *gorm.DB) error {
		return c.rep.ApplyEvent(ctx, tx, userID, event)
	}
}
