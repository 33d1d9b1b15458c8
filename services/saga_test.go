package services

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/cppla/qabbs/models"
)

func insertStaleSaga(t *testing.T, env *testEnv, id, kind string, payload any) {
	t.Helper()
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	entry := models.SagaLog{ID: id, Kind: kind, Payload: string(body), Status: models.SagaPending}
	require.NoError(t, env.db.Create(&entry).Error)
	require.NoError(t, env.db.Model(&entry).UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)
}

func sagaStatus(t *testing.T, env *testEnv, id string) models.SagaLog {
	t.Helper()
	var entry models.SagaLog
	require.NoError(t, env.db.First(&entry, "id = ?", id).Error)
	return entry
}

func TestResumeReplaysInterruptedCascade(t *testing.T) {
	env := newTestEnv(t)
	asker := env.createUser(t, "asker")
	author := env.createUser(t, "author")
	q := env.postQuestion(t, asker, "Interrupted")
	ans := env.postAnswer(t, author, q.ID)

	// Intent recorded, process died before the cascade ran.
	insertStaleSaga(t, env, "saga-1", SagaDeleteAnswer, deleteAnswerPayload{AnswerID: ans.ID, ActorID: author})

	n, err := env.sagas.Resume(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	entry := sagaStatus(t, env, "saga-1")
	assert.Equal(t, models.SagaCompleted, entry.Status)
	assert.Zero(t, env.countRows(t, &models.Answer{}, "id = ?", ans.ID))
	assert.Equal(t, 0, env.reputation(t, author))
	assert.Equal(t, int64(2), env.countRows(t, &models.ReputationEvent{}, "saga_id = ?", "saga-1"))

	// A second pass finds nothing left to do.
	n, err = env.sagas.Resume(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestResumeAbortsWhenStateMovedOn(t *testing.T) {
	env := newTestEnv(t)
	asker := env.createUser(t, "asker")
	author := env.createUser(t, "author")
	q := env.postQuestion(t, asker, "Already gone")
	ans := env.postAnswer(t, author, q.ID)
	require.NoError(t, env.coord.DeleteAnswer(context.Background(), author, ans.ID))
	repAuthor := env.reputation(t, author)

	insertStaleSaga(t, env, "saga-2", SagaDeleteAnswer, deleteAnswerPayload{AnswerID: ans.ID, ActorID: author})

	n, err := env.sagas.Resume(context.Background(), time.Minute)
	require.NoError(t, err)
	assert.Zero(t, n)

	entry := sagaStatus(t, env, "saga-2")
	assert.Equal(t, models.SagaAborted, entry.Status)
	assert.Equal(t, repAuthor, env.reputation(t, author))
}

func TestResumeSkipsFreshSagas(t *testing.T) {
	env := newTestEnv(t)
	entry := models.SagaLog{ID: "fresh", Kind: SagaDeleteUser, Payload: `{"user_id":1}`, Status: models.SagaPending}
	require.NoError(t, env.db.Create(&entry).Error)

	n, err := env.sagas.Resume(context.Background(), time.Hour)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, models.SagaPending, sagaStatus(t, env, "fresh").Status)
}

func TestSagaStorageFailureIsRetriedUpToMaxAttempts(t *testing.T) {
	env := newTestEnv(t)
	calls := 0
	env.sagas.Register("flaky", func(_ context.Context, _ *gorm.DB, _ []byte) (*Plan, error) {
		calls++
		plan := &Plan{}
		plan.AddStep("boom", func(context.Context, *gorm.DB) error {
			return errors.New("disk on fire")
		})
		return plan, nil
	})

	id, err := env.sagas.Start(context.Background(), "flaky", map[string]int{"n": 1})
	require.Error(t, err)
	assert.Equal(t, KindInternal, KindOf(err))

	entry := sagaStatus(t, env, id)
	assert.Equal(t, models.SagaFailed, entry.Status)
	assert.Equal(t, 1, entry.Attempts)
	assert.Contains(t, entry.Error, "step boom")

	for i := 0; i < 5; i++ {
		require.NoError(t, env.db.Model(&models.SagaLog{}).Where("id = ?", id).
			UpdateColumn("updated_at", time.Now().Add(-time.Hour)).Error)
		_, err := env.sagas.Resume(context.Background(), time.Minute)
		require.NoError(t, err)
	}

	// The runner was created with three attempts.
	assert.Equal(t, 3, calls)
	assert.Equal(t, 3, sagaStatus(t, env, id).Attempts)
}

func TestSagaLateFailureKeepsCompletedStatus(t *testing.T) {
	env := newTestEnv(t)
	asker := env.createUser(t, "asker")
	author := env.createUser(t, "author")
	q := env.postQuestion(t, asker, "Raced")
	ans := env.postAnswer(t, author, q.ID)

	id, err := env.sagas.Start(context.Background(), SagaDeleteAnswer, deleteAnswerPayload{AnswerID: ans.ID, ActorID: author})
	require.NoError(t, err)
	require.Equal(t, models.SagaCompleted, sagaStatus(t, env, id).Status)

	// A replay that loaded the log before it completed finds the answer gone.
	stale := sagaStatus(t, env, id)
	stale.Status = models.SagaPending
	err = env.sagas.run(context.Background(), &stale)
	assert.ErrorIs(t, err, ErrAnswerNotFound)

	entry := sagaStatus(t, env, id)
	assert.Equal(t, models.SagaCompleted, entry.Status)
	assert.Empty(t, entry.Error)
	assert.Equal(t, 1, entry.Attempts)
}

func TestSagaStartUnknownKind(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.sagas.Start(context.Background(), "nope", nil)
	assert.ErrorIs(t, err, errUnknownSaga)
	assert.Zero(t, env.countRows(t, &models.SagaLog{}, "1 = 1"))
}

func TestPlanNames(t *testing.T) {
	p := &Plan{}
	p.AddStep("one", func(context.Context, *gorm.DB) error { return nil })
	p.AddStep("two", func(context.Context, *gorm.DB) error { return nil })
	assert.Equal(t, []string{"one", "two"}, p.Names())
}
