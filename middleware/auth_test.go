package middleware

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/qabbs/config"
	"github.com/cppla/qabbs/utils"
)

func TestMain(m *testing.M) {
	os.Setenv("JWT_SECRET", "middleware-test-secret")
	config.Reset()
	utils.SetRedis(nil)
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func newAuthRouter() *gin.Engine {
	r := gin.New()
	r.GET("/me", AuthRequired(), func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{
			"user_id":  CurrentUserID(ctx),
			"username": ctx.GetString(ContextUsernameKey),
			"has_exp":  ctx.GetTime(ContextTokenExpiryKey).After(time.Now()),
		})
	})
	return r
}

func call(t *testing.T, r http.Handler, authHeader string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestAuthRequiredRejects(t *testing.T) {
	r := newAuthRouter()

	revoked, err := utils.GenerateToken(9, "revoked", time.Hour)
	require.NoError(t, err)
	utils.BlacklistToken(revoked, time.Now().Add(time.Hour))

	tests := []struct {
		name   string
		header string
		code   float64
	}{
		{"missing header", "", 40101},
		{"wrong scheme", "Basic abc", 40102},
		{"empty token", "Bearer    ", 40103},
		{"revoked", "Bearer " + revoked, 40104},
		{"garbage", "Bearer not-a-token", 40105},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := call(t, r, tt.header)
			assert.Equal(t, http.StatusUnauthorized, status)
			assert.Equal(t, tt.code, body["code"])
		})
	}
}

func TestAuthRequiredAccepts(t *testing.T) {
	token, err := utils.GenerateToken(5, "alice", time.Hour)
	require.NoError(t, err)

	status, body := call(t, newAuthRouter(), "bearer "+token)
	require.Equal(t, http.StatusOK, status)

	data := body["data"].(map[string]interface{})
	assert.Equal(t, float64(5), data["user_id"])
	assert.Equal(t, "alice", data["username"])
	assert.Equal(t, true, data["has_exp"])
}

func TestCurrentUserIDAnonymous(t *testing.T) {
	ctx, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Equal(t, uint(0), CurrentUserID(ctx))
}
