package services

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/qabbs/models"
)

func TestCreateQuestionNormalizesTags(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner")

	q, err := env.coord.CreateQuestion(context.Background(), owner, QuestionInput{
		Title:       "  Goroutine leak  ",
		Description: "It grows",
		Tags:        []string{"Go", "go ", "", "concurrency"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Goroutine leak", q.Title)
	assert.Equal(t, []string{"go", "concurrency"}, q.TagNames())
	assert.Equal(t, int64(2), env.countRows(t, &models.QuestionTag{}, "question_id = ?", q.ID))

	ledger := env.ledger(t, owner)
	require.Len(t, ledger, 1)
	assert.Equal(t, "newQuestion", ledger[0].Reason)
	assert.Equal(t, 0, ledger[0].Delta)
}

func TestCreateQuestionValidation(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner")

	_, err := env.coord.CreateQuestion(context.Background(), owner, QuestionInput{Title: "only title"})
	assert.ErrorIs(t, err, ErrMissingTitle)

	_, err = env.coord.CreateQuestion(context.Background(), 404, QuestionInput{Title: "t", Description: "d"})
	assert.ErrorIs(t, err, ErrUserNotFound)
	assert.Zero(t, env.countRows(t, &models.Question{}, "1 = 1"))
}

func TestUpdateQuestionOwnerOnly(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "owner")
	other := env.createUser(t, "other")
	q, err := env.coord.CreateQuestion(context.Background(), owner, QuestionInput{
		Title: "Old", Description: "old", Tags: []string{"a"},
	})
	require.NoError(t, err)

	_, err = env.coord.UpdateQuestion(context.Background(), other, q.ID, QuestionInput{Title: "x", Description: "y"})
	assert.ErrorIs(t, err, ErrNotOwner)

	updated, err := env.coord.UpdateQuestion(context.Background(), owner, q.ID, QuestionInput{
		Title: "New", Description: "new", Tags: []string{"b", "c"},
	})
	require.NoError(t, err)
	assert.Equal(t, "New", updated.Title)
	assert.Equal(t, []string{"b", "c"}, updated.TagNames())

	var tags []string
	require.NoError(t, env.db.Model(&models.QuestionTag{}).Where("question_id = ?", q.ID).
		Order("tag ASC").Pluck("tag", &tags).Error)
	assert.Equal(t, []string{"b", "c"}, tags)
}

func TestDeleteQuestionCascade(t *testing.T) {
	env := newTestEnv(t)
	asker := env.createUser(t, "asker")
	b := env.createUser(t, "b")
	c := env.createUser(t, "c")
	d := env.createUser(t, "d")
	e := env.createUser(t, "e")

	q := env.postQuestion(t, asker, "Cascade")
	ab := env.postAnswer(t, b, q.ID) // two upvotes, accepted
	ac := env.postAnswer(t, c, q.ID) // one upvote
	ad := env.postAnswer(t, d, q.ID) // nothing

	for _, voter := range []uint{d, e} {
		_, err := env.votes.Vote(context.Background(), models.AnswerTarget(ab.ID), voter, models.Upvote)
		require.NoError(t, err)
	}
	_, err := env.votes.Vote(context.Background(), models.AnswerTarget(ac.ID), e, models.Upvote)
	require.NoError(t, err)
	_, err = env.votes.Vote(context.Background(), models.QuestionTarget(q.ID), e, models.Upvote)
	require.NoError(t, err)
	_, err = env.coord.AcceptAnswer(context.Background(), asker, ab.ID)
	require.NoError(t, err)
	_, err = env.coord.CreateComment(context.Background(), e, models.QuestionTarget(q.ID), "on question")
	require.NoError(t, err)
	_, err = env.coord.CreateComment(context.Background(), e, models.AnswerTarget(ad.ID), "on answer")
	require.NoError(t, err)

	repB, repC, repD := env.reputation(t, b), env.reputation(t, c), env.reputation(t, d)
	repAsker := env.reputation(t, asker)
	ledgerBefore := env.countRows(t, &models.ReputationEvent{}, "1 = 1")

	require.NoError(t, env.coord.DeleteQuestion(context.Background(), asker, q.ID))

	assert.Equal(t, repB-35, env.reputation(t, b))
	assert.Equal(t, repC-10, env.reputation(t, c))
	assert.Equal(t, repD, env.reputation(t, d))
	assert.Equal(t, repAsker-2, env.reputation(t, asker))

	// N answers give N loss deltas plus the deleter's.
	assert.Equal(t, ledgerBefore+4, env.countRows(t, &models.ReputationEvent{}, "1 = 1"))
	assert.Equal(t, int64(3), env.countRows(t, &models.ReputationEvent{}, "reason = ?", ReasonAnswerLoss))

	assert.Zero(t, env.countRows(t, &models.Question{}, "id = ?", q.ID))
	assert.Zero(t, env.countRows(t, &models.Answer{}, "question_id = ?", q.ID))
	assert.Zero(t, env.countRows(t, &models.Comment{}, "1 = 1"))
	assert.Zero(t, env.countRows(t, &models.Vote{}, "1 = 1"))
	assert.Zero(t, env.countRows(t, &models.QuestionTag{}, "question_id = ?", q.ID))

	var log models.SagaLog
	require.NoError(t, env.db.Where("kind = ?", SagaDeleteQuestion).First(&log).Error)
	assert.Equal(t, models.SagaCompleted, log.Status)
	assert.Equal(t, 1, log.Attempts)
	assert.Contains(t, log.Steps, "question_deleted")
}

func TestDeleteQuestionNotOwner(t *testing.T) {
	env := newTestEnv(t)
	asker := env.createUser(t, "asker")
	other := env.createUser(t, "other")
	q := env.postQuestion(t, asker, "Keep")
	env.postAnswer(t, other, q.ID)

	err := env.coord.DeleteQuestion(context.Background(), other, q.ID)
	assert.ErrorIs(t, err, ErrNotOwner)
	assert.Equal(t, int64(1), env.countRows(t, &models.Question{}, "id = ?", q.ID))
	assert.Equal(t, 15, env.reputation(t, other))
}

func TestDeleteQuestionMissing(t *testing.T) {
	env := newTestEnv(t)
	asker := env.createUser(t, "asker")

	err := env.coord.DeleteQuestion(context.Background(), asker, 5)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
	assert.Equal(t, 0, env.reputation(t, asker))
}
