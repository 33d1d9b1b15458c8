package services

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qabbs/models"
)

type deleteUserPayload struct {
	UserID uint `json:"user_id"`
}

// DeleteUser removes actorID's account together with everything it owns: its
// questions (with their answers), its answers, its comments and the votes it
// cast. Reputation other users earned from the removed content is kept.
func (c *Coordinator) DeleteUser(ctx context.Context, actorID uint) error {
	_, err := c.sagas.Start(ctx, SagaDeleteUser, deleteUserPayload{UserID: actorID})
	return err
}

func (c *Coordinator) planDeleteUser(_ context.Context, tx *gorm.DB, payload []byte) (*Plan, error) {
	var p deleteUserPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode delete user payload: %w", err)
	}

	var user models.User
	if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&user, p.UserID).Error; err != nil {
		return nil, notFoundOr(err, ErrUserNotFound, "load user")
	}

	var questionIDs []uint
	if err := tx.Model(&models.Question{}).Where("user_id = ?", user.ID).Pluck("id", &questionIDs).Error; err != nil {
		return nil, fmt.Errorf("load owned questions: %w", err)
	}

	var answerIDs []uint
	query := tx.Model(&models.Answer{}).Where("user_id = ?", user.ID)
	if len(questionIDs) > 0 {
		query = tx.Model(&models.Answer{}).Where("user_id = ? OR question_id IN ?", user.ID, questionIDs)
	}
	if err := query.Pluck("id", &answerIDs).Error; err != nil {
		return nil, fmt.Errorf("load owned answers: %w", err)
	}

	plan := &Plan{}
	plan.AddStep("delete_answers", func(_ context.Context, tx *gorm.DB) error {
		return deleteAnswerRows(tx, answerIDs)
	})
	plan.AddStep("delete_questions", func(_ context.Context, tx *gorm.DB) error {
		return deleteQuestionRows(tx, questionIDs)
	})
	plan.AddStep("delete_comments", func(_ context.Context, tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.Comment{}).Error; err != nil {
			return fmt.Errorf("delete comments: %w", err)
		}
		return nil
	})
	plan.AddStep("retract_votes", func(_ context.Context, tx *gorm.DB) error {
		return retractVotesBy(tx, user.ID)
	})
	plan.AddStep("delete_ledger", func(_ context.Context, tx *gorm.DB) error {
		if err := tx.Where("user_id = ?", user.ID).Delete(&models.ReputationEvent{}).Error; err != nil {
			return fmt.Errorf("delete reputation events: %w", err)
		}
		return nil
	})
	plan.AddStep("delete_user", func(_ context.Context, tx *gorm.DB) error {
		if err := tx.Delete(&models.User{}, user.ID).Error; err != nil {
			return fmt.Errorf("delete user: %w", err)
		}
		return nil
	})
	return plan, nil
}

// retractVotesBy removes the remaining votes cast by userID and takes them off
// the target counters. Reputation granted to the target owners stays.
func retractVotesBy(tx *gorm.DB, userID uint) error {
	var votes []models.Vote
	if err := tx.Where("user_id = ?", userID).Order("id ASC").Find(&votes).Error; err != nil {
		return fmt.Errorf("load cast votes: %w", err)
	}
	for i := range votes {
		if err := moveCounter(tx, votes[i].Target(), votes[i].Kind, -1); err != nil {
			return err
		}
	}
	if err := tx.Where("user_id = ?", userID).Delete(&models.Vote{}).Error; err != nil {
		return fmt.Errorf("delete cast votes: %w", err)
	}
	return nil
}
