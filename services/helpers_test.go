package services

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/cppla/qabbs/models"
)

type testEnv struct {
	db    *gorm.DB
	rep   *ReputationService
	votes *VoteService
	sagas *SagaRunner
	coord *Coordinator
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.All()...))
	return db
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db := newTestDB(t)
	log := zaptest.NewLogger(t)
	rep := NewReputationService(log)
	sagas := NewSagaRunner(db, log, 3)
	return &testEnv{
		db:    db,
		rep:   rep,
		votes: NewVoteService(db, rep, log),
		sagas: sagas,
		coord: NewCoordinator(db, rep, sagas, log),
	}
}

func (e *testEnv) createUser(t *testing.T, name string) uint {
	t.Helper()
	u := models.User{Username: name}
	require.NoError(t, e.db.Create(&u).Error)
	return u.ID
}

func (e *testEnv) reputation(t *testing.T, userID uint) int {
	t.Helper()
	var u models.User
	require.NoError(t, e.db.Select("reputation").First(&u, userID).Error)
	return u.Reputation
}

func (e *testEnv) ledger(t *testing.T, userID uint) []models.ReputationEvent {
	t.Helper()
	var rows []models.ReputationEvent
	require.NoError(t, e.db.Where("user_id = ?", userID).Order("id ASC").Find(&rows).Error)
	return rows
}

func (e *testEnv) countRows(t *testing.T, model interface{}, query string, args ...interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, e.db.Model(model).Where(query, args...).Count(&n).Error)
	return n
}

func (e *testEnv) postQuestion(t *testing.T, ownerID uint, title string) *models.Question {
	t.Helper()
	q, err := e.coord.CreateQuestion(context.Background(), ownerID, QuestionInput{Title: title, Description: "details"})
	require.NoError(t, err)
	return q
}

func (e *testEnv) postAnswer(t *testing.T, ownerID, questionID uint) *models.Answer {
	t.Helper()
	a, err := e.coord.CreateAnswer(context.Background(), ownerID, questionID, "an answer")
	require.NoError(t, err)
	return a
}

func (e *testEnv) voteRows(t *testing.T, target models.Target) []models.Vote {
	t.Helper()
	var rows []models.Vote
	require.NoError(t, e.db.Where("target_kind = ? AND target_id = ?", target.Kind, target.ID).
		Order("id ASC").Find(&rows).Error)
	return rows
}
