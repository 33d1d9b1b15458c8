package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/qabbs/models"
)

func TestDeleteUserRemovesOwnedContent(t *testing.T) {
	env := newTestEnv(t)
	gone := env.createUser(t, "gone")
	peer := env.createUser(t, "peer")
	third := env.createUser(t, "third")

	own := env.postQuestion(t, gone, "Mine")
	peerAnswer := env.postAnswer(t, peer, own.ID)
	peerQ := env.postQuestion(t, peer, "Theirs")
	goneAnswer := env.postAnswer(t, gone, peerQ.ID)
	thirdAnswer := env.postAnswer(t, third, peerQ.ID)

	_, err := env.coord.CreateComment(context.Background(), gone, models.QuestionTarget(peerQ.ID), "comment by gone")
	require.NoError(t, err)
	_, err = env.votes.Vote(context.Background(), models.QuestionTarget(peerQ.ID), gone, models.Upvote)
	require.NoError(t, err)
	_, err = env.votes.Vote(context.Background(), models.AnswerTarget(thirdAnswer.ID), gone, models.Downvote)
	require.NoError(t, err)
	_, err = env.votes.Vote(context.Background(), models.AnswerTarget(peerAnswer.ID), third, models.Upvote)
	require.NoError(t, err)

	repPeer := env.reputation(t, peer)
	repThird := env.reputation(t, third)

	require.NoError(t, env.coord.DeleteUser(context.Background(), gone))

	assert.Zero(t, env.countRows(t, &models.User{}, "id = ?", gone))
	assert.Zero(t, env.countRows(t, &models.Question{}, "user_id = ?", gone))
	assert.Zero(t, env.countRows(t, &models.Answer{}, "id IN ?", []uint{peerAnswer.ID, goneAnswer.ID}))
	assert.Zero(t, env.countRows(t, &models.Comment{}, "user_id = ?", gone))
	assert.Zero(t, env.countRows(t, &models.Vote{}, "user_id = ?", gone))
	assert.Zero(t, env.countRows(t, &models.ReputationEvent{}, "user_id = ?", gone))
	assert.Zero(t, env.countRows(t, &models.Vote{}, "target_kind = ? AND target_id = ?", models.TargetAnswer, peerAnswer.ID))

	// Content of other users survives and counters drop the retracted votes.
	var q models.Question
	require.NoError(t, env.db.First(&q, peerQ.ID).Error)
	assert.Equal(t, 0, q.Upvotes)
	var a models.Answer
	require.NoError(t, env.db.First(&a, thirdAnswer.ID).Error)
	assert.Equal(t, 0, a.Downvotes)

	// No reputation rollback for cascaded content.
	assert.Equal(t, repPeer, env.reputation(t, peer))
	assert.Equal(t, repThird, env.reputation(t, third))
}

func TestDeleteUserMissing(t *testing.T) {
	env := newTestEnv(t)

	err := env.coord.DeleteUser(context.Background(), 31337)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
