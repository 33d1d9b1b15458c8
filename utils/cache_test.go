package utils

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheWithoutRedis(t *testing.T) {
	CacheSetBytes("k", []byte("v"), time.Minute)
	_, ok := CacheGetBytes("k")
	assert.False(t, ok)

	// Must not panic without a client.
	InvalidateQuestion(1)
	CacheDelete("k")
}

func TestCacheEnvelopeRoundTrip(t *testing.T) {
	useMiniredis(t)

	CacheSetEnvelope(QuestionDetailKey(7), map[string]int{"answers": 2}, time.Minute)

	b, ok := CacheGetBytes(QuestionDetailKey(7))
	require.True(t, ok)

	var got struct {
		Code    int            `json:"code"`
		Message string         `json:"message"`
		Data    map[string]int `json:"data"`
	}
	require.NoError(t, json.Unmarshal(b, &got))
	assert.Equal(t, 0, got.Code)
	assert.Equal(t, "success", got.Message)
	assert.Equal(t, 2, got.Data["answers"])
}

func TestCacheTTL(t *testing.T) {
	mr := useMiniredis(t)

	CacheSetBytes("short", []byte("v"), time.Second)
	mr.FastForward(2 * time.Second)

	_, ok := CacheGetBytes("short")
	assert.False(t, ok)
}

func TestInvalidateQuestionKeepsOtherDetails(t *testing.T) {
	mr := useMiniredis(t)

	CacheSetBytes(QuestionDetailKey(1), []byte("one"), time.Minute)
	CacheSetBytes(QuestionDetailKey(10), []byte("ten"), time.Minute)
	CacheSetBytes(CacheQuestionListPrefix+"sort=newest:page=1:size=10", []byte("list"), time.Minute)
	CacheSetBytes(CacheUserPrefix+"3", []byte("user"), time.Minute)
	CacheSetBytes(CacheTopUsersKey, []byte("top"), time.Minute)

	InvalidateQuestion(1)

	assert.False(t, mr.Exists(QuestionDetailKey(1)))
	assert.True(t, mr.Exists(QuestionDetailKey(10)))
	assert.False(t, mr.Exists(CacheQuestionListPrefix+"sort=newest:page=1:size=10"))
	assert.False(t, mr.Exists(CacheUserPrefix+"3"))
	assert.False(t, mr.Exists(CacheTopUsersKey))
}

func TestInvalidateByPrefix(t *testing.T) {
	mr := useMiniredis(t)

	for i := uint(1); i <= 25; i++ {
		CacheSetBytes(QuestionDetailKey(i), []byte("x"), time.Minute)
	}
	CacheSetBytes("other", []byte("x"), time.Minute)

	InvalidateByPrefix(CacheQuestionDetailPrefix)

	assert.Equal(t, []string{"other"}, mr.Keys())
}
