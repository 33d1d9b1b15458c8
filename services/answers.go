package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qabbs/models"
)

// CreateAnswer posts actorID's answer to a question. The question owner gains
// newAnswer and the answering user gains answerAccepted.
func (c *Coordinator) CreateAnswer(ctx context.Context, actorID, questionID uint, content string) (*models.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" || questionID == 0 {
		return nil, ErrMissingFields
	}

	answer := models.Answer{
		QuestionID: questionID,
		UserID:     actorID,
		Content:    content,
	}
	err := transact(ctx, c.db, func(tx *gorm.DB) error {
		answer.ID = 0
		q, err := lockQuestion(tx, questionID)
		if err != nil {
			return err
		}
		if err := requireNotSelf(actorID, q.UserID, ErrSelfAnswerForbidden); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Create(&answer).Error; err != nil {
			return fmt.Errorf("create answer: %w", err)
		}
		if err := c.rep.ApplyEvent(ctx, tx, q.UserID, EventNewAnswer); err != nil {
			return err
		}
		return c.rep.ApplyEvent(ctx, tx, actorID, EventAnswerAccepted)
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("answer created",
		zap.Uint("answer_id", answer.ID),
		zap.Uint("question_id", questionID),
		zap.Uint("user_id", actorID))
	return &answer, nil
}

// EditAnswer replaces the content of actorID's answer.
func (c *Coordinator) EditAnswer(ctx context.Context, actorID, answerID uint, content string) (*models.Answer, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, ErrEmptyContent
	}

	var out *models.Answer
	err := transact(ctx, c.db, func(tx *gorm.DB) error {
		a, err := lockAnswer(tx, answerID)
		if err != nil {
			return err
		}
		if err := requireOwner(actorID, a.UserID, ErrNotOwner); err != nil {
			return err
		}
		if err := tx.Model(a).Update("content", content).Error; err != nil {
			return fmt.Errorf("update answer: %w", err)
		}
		a.Content = content
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptAnswer marks an answer as the accepted one of its question. Only the
// question owner may accept; any previously accepted answer is cleared.
func (c *Coordinator) AcceptAnswer(ctx context.Context, actorID, answerID uint) (*models.Answer, error) {
	var out *models.Answer
	err := transact(ctx, c.db, func(tx *gorm.DB) error {
		a, err := lockAnswer(tx, answerID)
		if err != nil {
			return err
		}
		q, err := lockQuestion(tx, a.QuestionID)
		if err != nil {
			return err
		}
		if err := requireOwner(actorID, q.UserID, ErrNotOwner); err != nil {
			return err
		}

		if err := tx.Model(&models.Answer{}).
			Where("question_id = ? AND id <> ? AND is_accepted = ?", q.ID, a.ID, true).
			UpdateColumn("is_accepted", false).Error; err != nil {
			return fmt.Errorf("clear accepted answer: %w", err)
		}
		if !a.IsAccepted {
			if err := tx.Model(a).UpdateColumn("is_accepted", true).Error; err != nil {
				return fmt.Errorf("accept answer: %w", err)
			}
			a.IsAccepted = true
		}
		out = a
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type deleteAnswerPayload struct {
	AnswerID uint `json:"answer_id"`
	ActorID  uint `json:"actor_id"`
}

// DeleteAnswer hard-deletes an answer with its comments and votes. The answer
// owner or the question owner may delete it.
func (c *Coordinator) DeleteAnswer(ctx context.Context, actorID, answerID uint) error {
	_, err := c.sagas.Start(ctx, SagaDeleteAnswer, deleteAnswerPayload{AnswerID: answerID, ActorID: actorID})
	return err
}

func (c *Coordinator) planDeleteAnswer(_ context.Context, tx *gorm.DB, payload []byte) (*Plan, error) {
	var p deleteAnswerPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode delete answer payload: %w", err)
	}

	a, err := lockAnswer(tx, p.AnswerID)
	if err != nil {
		return nil, err
	}
	q, err := lockQuestion(tx, a.QuestionID)
	if err != nil {
		return nil, err
	}
	if !IsOwner(p.ActorID, a.UserID) && !IsOwner(p.ActorID, q.UserID) {
		return nil, ErrUnauthorized
	}

	var upvoters []uint
	if err := tx.Model(&models.Vote{}).
		Where("target_kind = ? AND target_id = ? AND kind = ?", models.TargetAnswer, a.ID, models.Upvote).
		Order("id ASC").Pluck("user_id", &upvoters).Error; err != nil {
		return nil, fmt.Errorf("load upvoters: %w", err)
	}

	plan := &Plan{}
	plan.AddStep("answer_deleted", c.eventStep(a.UserID, EventAnswerDeleted))
	plan.AddStep("answer_removed_from_question", c.eventStep(q.UserID, EventAnswerRemovedFromQuestion))
	for _, uid := range upvoters {
		plan.AddStep(fmt.Sprintf("remove_upvote:%d", uid), c.eventStep(uid, EventRemoveUpvote))
	}
	plan.AddStep("delete_answer", func(_ context.Context, tx *gorm.DB) error {
		return deleteAnswerRows(tx, []uint{a.ID})
	})
	return plan, nil
}
