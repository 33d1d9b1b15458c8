package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestDeltaTable(t *testing.T) {
	cases := []struct {
		event Event
		want  int
	}{
		{EventNewQuestion, 0},
		{EventNewAnswer, 1},
		{EventAnswerAccepted, 15},
		{EventUpvote, 10},
		{EventRemoveUpvote, 10},
		{EventDownvote, -2},
		{EventQuestionDeleted, -2},
		{EventAnswerDeleted, -15},
		{EventAnswerRemovedFromQuestion, -1},
	}
	for _, tc := range cases {
		got, err := Delta(tc.event)
		require.NoError(t, err, tc.event)
		assert.Equal(t, tc.want, got, tc.event)
	}
}

func TestDeltaUnknownEvent(t *testing.T) {
	_, err := Delta(Event("bounty"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnknownReputationEvent)
	assert.Equal(t, KindUnknownReputationEvent, KindOf(err))
}

func TestAnswerLoss(t *testing.T) {
	assert.Equal(t, 0, AnswerLoss(0, false))
	assert.Equal(t, -30, AnswerLoss(3, false))
	assert.Equal(t, -15, AnswerLoss(0, true))
	assert.Equal(t, -35, AnswerLoss(2, true))
}

func TestApplyDeltaAllowsNegativeTotals(t *testing.T) {
	env := newTestEnv(t)
	uid := env.createUser(t, "alice")

	err := env.db.Transaction(func(tx *gorm.DB) error {
		if err := env.rep.ApplyEvent(context.Background(), tx, uid, EventDownvote); err != nil {
			return err
		}
		return env.rep.ApplyEvent(context.Background(), tx, uid, EventAnswerDeleted)
	})
	require.NoError(t, err)

	assert.Equal(t, -17, env.reputation(t, uid))
	ledger := env.ledger(t, uid)
	require.Len(t, ledger, 2)
	assert.Equal(t, "downvote", ledger[0].Reason)
	assert.Equal(t, -15, ledger[1].Delta)
}

func TestApplyDeltaZeroStillChecksUser(t *testing.T) {
	env := newTestEnv(t)

	err := env.db.Transaction(func(tx *gorm.DB) error {
		return env.rep.ApplyEvent(context.Background(), tx, 999, EventNewQuestion)
	})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestApplyDeltaMissingUserRollsBackCaller(t *testing.T) {
	env := newTestEnv(t)
	uid := env.createUser(t, "bob")

	err := env.db.Transaction(func(tx *gorm.DB) error {
		if err := env.rep.ApplyEvent(context.Background(), tx, uid, EventUpvote); err != nil {
			return err
		}
		return env.rep.ApplyEvent(context.Background(), tx, 12345, EventUpvote)
	})
	require.ErrorIs(t, err, ErrUserNotFound)

	assert.Equal(t, 0, env.reputation(t, uid))
	assert.Empty(t, env.ledger(t, uid))
}
