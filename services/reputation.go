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

// Event names a reputation-affecting lifecycle event.
type Event string

const (
	EventNewQuestion               Event = "newQuestion"
	EventNewAnswer                 Event = "newAnswer"
	EventAnswerAccepted            Event = "answerAccepted"
	EventUpvote                    Event = "upvote"
	EventRemoveUpvote              Event = "removeUpvote"
	EventDownvote                  Event = "downvote"
	EventQuestionDeleted           Event = "questionDeleted"
	EventAnswerDeleted             Event = "answerDeleted"
	EventAnswerRemovedFromQuestion Event = "answerRemovedFromQuestion"
)

// ReasonAnswerLoss tags the computed per-answer loss applied when a question is deleted.
const ReasonAnswerLoss = "answerLossOnQuestionDelete"

var deltas = map[Event]int{
	EventNewQuestion:               0,
	EventNewAnswer:                 1,
	EventAnswerAccepted:            15,
	EventUpvote:                    10,
	EventRemoveUpvote:              10,
	EventDownvote:                  -2,
	EventQuestionDeleted:           -2,
	EventAnswerDeleted:             -15,
	EventAnswerRemovedFromQuestion: -1,
}

// Delta returns the fixed reputation change for event.
func Delta(event Event) (int, error) {
	d, ok := deltas[event]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownReputationEvent, string(event))
	}
	return d, nil
}

// AnswerLoss is the reputation an answer owner loses when the question is deleted.
func AnswerLoss(upvotes int, accepted bool) int {
	loss := -10 * upvotes
	if accepted {
		loss -= 15
	}
	return loss
}

// ReputationService applies deltas to user totals. It always runs on the
// caller's transaction so a failed update rolls back the triggering change.
type ReputationService struct {
	logger *zap.Logger
}

// NewReputationService creates a ReputationService.
func NewReputationService(logger *zap.Logger) *ReputationService {
	return &ReputationService{logger: logger.Named("reputation")}
}

// ApplyEvent looks up the rule for event and applies it to userID.
func (s *ReputationService) ApplyEvent(ctx context.Context, tx *gorm.DB, userID uint, event Event) error {
	d, err := Delta(event)
	if err != nil {
		return err
	}
	return s.ApplyDelta(ctx, tx, userID, d, string(event))
}

// ApplyDelta adds delta to the user's reputation and records a ledger row.
func (s *ReputationService) ApplyDelta(ctx context.Context, tx *gorm.DB, userID uint, delta int, reason string) error {
	tx = tx.WithContext(ctx)

	var user models.User
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Select("id").First(&user, userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrUserNotFound
	}
	if err != nil {
		return fmt.Errorf("lock user %d: %w", userID, err)
	}

	if delta != 0 {
		if err := tx.Model(&models.User{}).Where("id = ?", userID).
			UpdateColumn("reputation", gorm.Expr("reputation + ?", delta)).Error; err != nil {
			return fmt.Errorf("update reputation of user %d: %w", userID, err)
		}
	}

	entry := models.ReputationEvent{
		UserID: userID,
		Delta:  delta,
		Reason: reason,
		SagaID: sagaIDFrom(ctx),
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("record reputation event: %w", err)
	}

	s.logger.Debug("reputation applied",
		zap.Uint("user_id", userID),
		zap.Int("delta", delta),
		zap.String("reason", reason))
	return nil
}
