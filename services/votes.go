package services

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/qabbs/models"
)

// Tally is the vote count of a target after a vote.
type Tally struct {
	Upvotes   int `json:"upvotes"`
	Downvotes int `json:"downvotes"`
}

// VoteService keeps each target's vote rows, its counters and its owner's
// reputation in step.
type VoteService struct {
	db     *gorm.DB
	rep    *ReputationService
	logger *zap.Logger
}

// NewVoteService creates a VoteService.
func NewVoteService(db *gorm.DB, rep *ReputationService, logger *zap.Logger) *VoteService {
	return &VoteService{db: db, rep: rep, logger: logger.Named("votes")}
}

// Vote casts voterID's vote of kind on target. A vote of the opposite kind is
// switched; repeating the same kind fails with ErrDuplicateVote.
func (s *VoteService) Vote(ctx context.Context, target models.Target, voterID uint, kind models.VoteKind) (Tally, error) {
	if !kind.Valid() {
		return Tally{}, ErrInvalidVoteType
	}
	if !target.Kind.Valid() {
		return Tally{}, ErrInvalidParent
	}

	var tally Tally
	err := transact(ctx, s.db, func(tx *gorm.DB) error {
		ownerID, err := lockTarget(tx, target)
		if err != nil {
			return err
		}
		if err := requireNotSelf(voterID, ownerID, ErrSelfVoteForbidden); err != nil {
			return err
		}

		var existing models.Vote
		res := tx.Where("target_kind = ? AND target_id = ? AND user_id = ?", target.Kind, target.ID, voterID).
			Limit(1).Find(&existing)
		if res.Error != nil {
			return fmt.Errorf("load vote: %w", res.Error)
		}

		if res.RowsAffected > 0 {
			if existing.Kind == kind {
				return ErrDuplicateVote
			}
			// Update writes the new kind back into existing.
			prev := existing.Kind
			if err := tx.Model(&existing).Update("kind", kind).Error; err != nil {
				return fmt.Errorf("switch vote: %w", err)
			}
			if err := moveCounter(tx, target, prev, -1); err != nil {
				return err
			}
		} else {
			vote := models.Vote{
				TargetKind: target.Kind,
				TargetID:   target.ID,
				UserID:     voterID,
				Kind:       kind,
			}
			if err := tx.Create(&vote).Error; err != nil {
				if isUniqueViolation(err) {
					return ErrDuplicateVote
				}
				return fmt.Errorf("create vote: %w", err)
			}
		}

		if err := moveCounter(tx, target, kind, 1); err != nil {
			return err
		}

		if err := s.rep.ApplyEvent(ctx, tx, ownerID, voteEvent(kind)); err != nil {
			return err
		}

		if err := tx.Model(targetModel(target.Kind)).Select("upvotes", "downvotes").
			Where("id = ?", target.ID).Scan(&tally).Error; err != nil {
			return fmt.Errorf("read tally: %w", err)
		}
		return nil
	})
	if err != nil {
		return Tally{}, err
	}

	s.logger.Debug("vote cast",
		zap.Stringer("target", target),
		zap.Uint("voter_id", voterID),
		zap.String("kind", string(kind)))
	return tally, nil
}

func voteEvent(kind models.VoteKind) Event {
	if kind == models.Upvote {
		return EventUpvote
	}
	return EventDownvote
}

func targetModel(kind models.TargetKind) interface{} {
	if kind == models.TargetAnswer {
		return &models.Answer{}
	}
	return &models.Question{}
}

func counterColumn(kind models.VoteKind) string {
	if kind == models.Upvote {
		return "upvotes"
	}
	return "downvotes"
}

func moveCounter(tx *gorm.DB, target models.Target, kind models.VoteKind, by int) error {
	col := counterColumn(kind)
	err := tx.Model(targetModel(target.Kind)).Where("id = ?", target.ID).
		UpdateColumn(col, gorm.Expr(col+" + ?", by)).Error
	if err != nil {
		return fmt.Errorf("update %s of %s: %w", col, target, err)
	}
	return nil
}

// lockTarget locks the question or answer row and returns its owner.
func lockTarget(tx *gorm.DB, target models.Target) (uint, error) {
	locked := tx.Clauses(clause.Locking{Strength: "UPDATE"})
	switch target.Kind {
	case models.TargetQuestion:
		var q models.Question
		if err := locked.Select("id", "user_id").First(&q, target.ID).Error; err != nil {
			return 0, notFoundOr(err, ErrQuestionNotFound, "load question")
		}
		return q.UserID, nil
	case models.TargetAnswer:
		var a models.Answer
		if err := locked.Select("id", "user_id").First(&a, target.ID).Error; err != nil {
			return 0, notFoundOr(err, ErrAnswerNotFound, "load answer")
		}
		return a.UserID, nil
	}
	return 0, ErrInvalidParent
}

func notFoundOr(err error, notFound *Error, op string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
