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

const maxTags = 5

// QuestionInput carries the editable fields of a question.
type QuestionInput struct {
	Title       string
	Description string
	Tried       string
	Tags        []string
}

func (in QuestionInput) normalize() (QuestionInput, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.Description = strings.TrimSpace(in.Description)
	in.Tried = strings.TrimSpace(in.Tried)
	if in.Title == "" || in.Description == "" {
		return in, ErrMissingTitle
	}
	in.Tags = normalizeTags(in.Tags)
	return in, nil
}

func normalizeTags(raw []string) []string {
	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func tagRows(questionID uint, tags []string) []models.QuestionTag {
	rows := make([]models.QuestionTag, 0, len(tags))
	for _, t := range tags {
		rows = append(rows, models.QuestionTag{QuestionID: questionID, Tag: t})
	}
	return rows
}

// CreateQuestion posts a question owned by actorID.
func (c *Coordinator) CreateQuestion(ctx context.Context, actorID uint, in QuestionInput) (*models.Question, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	q := models.Question{
		UserID:      actorID,
		Title:       in.Title,
		Description: in.Description,
		Tried:       in.Tried,
	}
	err = transact(ctx, c.db, func(tx *gorm.DB) error {
		q.ID = 0
		if err := c.rep.ApplyEvent(ctx, tx, actorID, EventNewQuestion); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&q).Error; err != nil {
			return fmt.Errorf("create question: %w", err)
		}
		if len(in.Tags) > 0 {
			tags := tagRows(q.ID, in.Tags)
			if err := tx.Create(&tags).Error; err != nil {
				return fmt.Errorf("create question tags: %w", err)
			}
			q.Tags = tags
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.Info("question created", zap.Uint("question_id", q.ID), zap.Uint("user_id", actorID))
	return &q, nil
}

// UpdateQuestion edits a question. Only the owner may edit; votes and answers are untouched.
func (c *Coordinator) UpdateQuestion(ctx context.Context, actorID, questionID uint, in QuestionInput) (*models.Question, error) {
	in, err := in.normalize()
	if err != nil {
		return nil, err
	}

	var out *models.Question
	err = transact(ctx, c.db, func(tx *gorm.DB) error {
		q, err := lockQuestion(tx, questionID)
		if err != nil {
			return err
		}
		if err := requireOwner(actorID, q.UserID, ErrNotOwner); err != nil {
			return err
		}

		if err := tx.Model(q).Updates(map[string]interface{}{
			"title":       in.Title,
			"description": in.Description,
			"tried":       in.Tried,
		}).Error; err != nil {
			return fmt.Errorf("update question: %w", err)
		}
		if err := tx.Where("question_id = ?", q.ID).Delete(&models.QuestionTag{}).Error; err != nil {
			return fmt.Errorf("replace question tags: %w", err)
		}
		q.Tags = nil
		if len(in.Tags) > 0 {
			tags := tagRows(q.ID, in.Tags)
			if err := tx.Create(&tags).Error; err != nil {
				return fmt.Errorf("replace question tags: %w", err)
			}
			q.Tags = tags
		}
		out = q
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

type deleteQuestionPayload struct {
	QuestionID uint `json:"question_id"`
	ActorID    uint `json:"actor_id"`
}

// DeleteQuestion hard-deletes a question with its answers, comments, votes and
// tags. Every answer owner loses what the answer earned; the deleting user
// loses a fixed amount.
func (c *Coordinator) DeleteQuestion(ctx context.Context, actorID, questionID uint) error {
	_, err := c.sagas.Start(ctx, SagaDeleteQuestion, deleteQuestionPayload{QuestionID: questionID, ActorID: actorID})
	return err
}

func (c *Coordinator) planDeleteQuestion(ctx context.Context, tx *gorm.DB, payload []byte) (*Plan, error) {
	var p deleteQuestionPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return nil, fmt.Errorf("decode delete question payload: %w", err)
	}

	q, err := lockQuestion(tx, p.QuestionID)
	if err != nil {
		return nil, err
	}
	if err := requireOwner(p.ActorID, q.UserID, ErrNotOwner); err != nil {
		return nil, err
	}

	var answers []models.Answer
	if err := tx.Select("id", "user_id", "upvotes", "is_accepted").
		Where("question_id = ?", q.ID).Order("id ASC").Find(&answers).Error; err != nil {
		return nil, fmt.Errorf("load answers: %w", err)
	}

	plan := &Plan{}
	answerIDs := make([]uint, 0, len(answers))
	for _, a := range answers {
		a := a
		answerIDs = append(answerIDs, a.ID)
		plan.AddStep(fmt.Sprintf("answer_loss:%d", a.ID), func(ctx context.Context, tx *gorm.DB) error {
			return c.rep.ApplyDelta(ctx, tx, a.UserID, AnswerLoss(a.Upvotes, a.IsAccepted), ReasonAnswerLoss)
		})
	}
	plan.AddStep("delete_answers", func(_ context.Context, tx *gorm.DB) error {
		return deleteAnswerRows(tx, answerIDs)
	})
	plan.AddStep("delete_question", func(_ context.Context, tx *gorm.DB) error {
		return deleteQuestionRows(tx, []uint{q.ID})
	})
	plan.AddStep("question_deleted", c.eventStep(p.ActorID, EventQuestionDeleted))
	return plan, nil
}
