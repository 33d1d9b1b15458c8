package services

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
)

func TestKindOfWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("step delete_answer: %w", ErrAnswerNotFound)
	assert.Equal(t, KindNotFound, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("driver: bad connection")))
	assert.Equal(t, KindInternal, KindOf(nil))

	de, ok := AsError(wrapped)
	assert.True(t, ok)
	assert.Equal(t, 40411, de.Code)
}

func TestKindHTTPStatus(t *testing.T) {
	assert.Equal(t, http.StatusBadRequest, KindValidation.HTTPStatus())
	assert.Equal(t, http.StatusNotFound, KindNotFound.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindForbidden.HTTPStatus())
	assert.Equal(t, http.StatusForbidden, KindSelfAction.HTTPStatus())
	assert.Equal(t, http.StatusConflict, KindDuplicateVote.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindUnknownReputationEvent.HTTPStatus())
	assert.Equal(t, http.StatusInternalServerError, KindInternal.HTTPStatus())
}

func TestGuardPredicates(t *testing.T) {
	assert.True(t, IsOwner(3, 3))
	assert.False(t, IsOwner(3, 4))
	assert.False(t, IsOwner(0, 0))
	assert.True(t, IsNotSelf(1, 2))
	assert.False(t, IsNotSelf(2, 2))

	assert.ErrorIs(t, requireOwner(1, 2, ErrNotOwner), ErrNotOwner)
	assert.NoError(t, requireNotSelf(1, 2, ErrSelfVoteForbidden))
}

func TestRetryClassification(t *testing.T) {
	assert.False(t, isRetryable(nil))
	assert.False(t, isRetryable(ErrDuplicateVote))
	assert.True(t, isRetryable(errors.New("write: broken pipe")))
	assert.True(t, isRetryable(fmt.Errorf("commit: %w", &mysql.MySQLError{Number: 1213})))
	assert.True(t, isRetryable(&mysql.MySQLError{Number: 1205}))
	assert.False(t, isRetryable(&mysql.MySQLError{Number: 1062}))
	assert.True(t, isUniqueViolation(&mysql.MySQLError{Number: 1062}))
	assert.True(t, isUniqueViolation(errors.New("constraint failed: UNIQUE constraint failed: votes.user_id (2067)")))
	assert.False(t, isUniqueViolation(errors.New("other")))
}
