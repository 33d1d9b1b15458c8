package controllers

import (
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/cppla/qabbs/models"
	"github.com/cppla/qabbs/utils"
)

// StatsController provides forum statistics.
type StatsController struct {
	db *gorm.DB
}

// NewStatsController creates a new StatsController instance.
func NewStatsController(db *gorm.DB) *StatsController {
	return &StatsController{db: db}
}

// GetStats returns aggregate counts for the forum.
func (s *StatsController) GetStats(ctx *gin.Context) {
	counts := map[string]interface{}{
		"user_count":     &models.User{},
		"question_count": &models.Question{},
		"answer_count":   &models.Answer{},
		"comment_count":  &models.Comment{},
		"vote_count":     &models.Vote{},
	}

	out := gin.H{}
	for name, model := range counts {
		var n int64
		if err := s.db.Model(model).Count(&n).Error; err != nil {
			// Fallback to 0 instead of failing the whole endpoint
			n = 0
		}
		out[name] = n
	}

	var accepted int64
	if err := s.db.Model(&models.Answer{}).Where("is_accepted = ?", true).Count(&accepted).Error; err != nil {
		accepted = 0
	}
	out["accepted_answer_count"] = accepted

	utils.Success(ctx, out)
}
