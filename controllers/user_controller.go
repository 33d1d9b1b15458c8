package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/qabbs/middleware"
	"github.com/cppla/qabbs/models"
	"github.com/cppla/qabbs/services"
	"github.com/cppla/qabbs/utils"
)

const topUsersLimit = 10

// UserController serves profiles, the leaderboard, reputation history and account deletion.
type UserController struct {
	db    *gorm.DB
	coord *services.Coordinator
}

// NewUserController creates a UserController.
func NewUserController(db *gorm.DB, coord *services.Coordinator) *UserController {
	return &UserController{db: db, coord: coord}
}

// GetUser returns public user info by ID.
func (u *UserController) GetUser(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	cacheKey := utils.CacheUserPrefix + strconv.FormatUint(uint64(id), 10)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var user models.User
	if err := u.db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, services.ErrUserNotFound)
			return
		}
		utils.Fail(ctx, fmt.Errorf("load user: %w", err))
		return
	}

	var questionCount, answerCount int64
	u.db.Model(&models.Question{}).Where("user_id = ?", id).Count(&questionCount)
	u.db.Model(&models.Answer{}).Where("user_id = ?", id).Count(&answerCount)

	payload := gin.H{"user": user, "question_count": questionCount, "answer_count": answerCount}
	utils.CacheSetEnvelope(cacheKey, payload, time.Hour)
	utils.Success(ctx, payload)
}

// TopUsers returns the users with the highest reputation.
func (u *UserController) TopUsers(ctx *gin.Context) {
	if b, ok := utils.CacheGetBytes(utils.CacheTopUsersKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var users []models.User
	if err := u.db.Order("reputation DESC, id ASC").Limit(topUsersLimit).Find(&users).Error; err != nil {
		utils.Fail(ctx, fmt.Errorf("load top users: %w", err))
		return
	}

	payload := gin.H{"items": users}
	utils.CacheSetEnvelope(utils.CacheTopUsersKey, payload, 10*time.Minute)
	utils.Success(ctx, payload)
}

// ReputationHistory returns a user's ledger, newest first.
func (u *UserController) ReputationHistory(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	var user models.User
	if err := u.db.Select("id", "reputation").First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, services.ErrUserNotFound)
			return
		}
		utils.Fail(ctx, fmt.Errorf("load user: %w", err))
		return
	}

	query := u.db.Model(&models.ReputationEvent{}).Where("user_id = ?", id).Session(&gorm.Session{})
	var total int64
	if err := query.Count(&total).Error; err != nil {
		utils.Fail(ctx, fmt.Errorf("count reputation events: %w", err))
		return
	}
	events := []models.ReputationEvent{}
	if err := query.Order("id DESC").Offset((page - 1) * pageSize).Limit(pageSize).Find(&events).Error; err != nil {
		utils.Fail(ctx, fmt.Errorf("list reputation events: %w", err))
		return
	}

	payload := paged(events, page, pageSize, total)
	payload["reputation"] = user.Reputation
	utils.Success(ctx, payload)
}

// DeleteMe deletes the authenticated user's account and everything it owns.
func (u *UserController) DeleteMe(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}

	if err := u.coord.DeleteUser(ctx.Request.Context(), userID); err != nil {
		utils.Fail(ctx, err)
		return
	}

	if token := ctx.GetString(middleware.ContextTokenKey); token != "" {
		expiresAt := time.Now().Add(utils.SessionTTL())
		if v, ok := ctx.Get(middleware.ContextTokenExpiryKey); ok {
			if t, ok := v.(time.Time); ok {
				expiresAt = t
			}
		}
		utils.BlacklistToken(token, expiresAt)
	}

	// The cascade touches arbitrary questions (answers, comments, votes).
	utils.InvalidateByPrefix(utils.CacheQuestionDetailPrefix)
	utils.InvalidateByPrefix(utils.CacheQuestionListPrefix)
	utils.InvalidateByPrefix(utils.CacheUserPrefix)
	utils.CacheDelete(utils.CacheTopUsersKey)
	utils.Success(ctx, gin.H{"message": "account deleted"})
}
