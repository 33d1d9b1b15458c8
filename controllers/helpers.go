package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/qabbs/middleware"
	"github.com/cppla/qabbs/models"
	"github.com/cppla/qabbs/utils"
)

func parsePagination(pageStr, sizeStr string) (int, int) {
	page := 1
	pageSize := 10
	if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
		page = p
	}
	if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
		pageSize = s
	}
	return page, pageSize
}

func paged(items interface{}, page, pageSize int, total int64) gin.H {
	return gin.H{
		"items": items,
		"pagination": gin.H{
			"page":        page,
			"page_size":   pageSize,
			"total":       total,
			"total_pages": int((total + int64(pageSize) - 1) / int64(pageSize)),
		},
	}
}

// parseID reads a positive numeric path parameter. On failure it writes a 400
// response and returns false.
func parseID(ctx *gin.Context, name string) (uint, bool) {
	n, err := strconv.ParseUint(strings.TrimSpace(ctx.Param(name)), 10, 64)
	if err != nil || n == 0 {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid "+name)
		return 0, false
	}
	return uint(n), true
}

func getUserID(ctx *gin.Context) (uint, bool) {
	id := middleware.CurrentUserID(ctx)
	return id, id != 0
}

func requireUser(ctx *gin.Context) (uint, bool) {
	id, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40108, "unauthorized")
	}
	return id, ok
}

// questionOfAnswer resolves the question an answer belongs to, or 0 when it cannot.
// Lookup failures are logged, not returned.
func questionOfAnswer(db *gorm.DB, logger *zap.Logger, answerID uint) uint {
	var ids []uint
	if err := db.Model(&models.Answer{}).Where("id = ?", answerID).Pluck("question_id", &ids).Error; err != nil {
		logger.Warn("failed to resolve question of answer", zap.Uint("answer_id", answerID), zap.Error(err))
		return 0
	}
	if len(ids) == 0 {
		return 0
	}
	return ids[0]
}
