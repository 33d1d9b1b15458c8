package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/qabbs/models"
	"github.com/cppla/qabbs/services"
	"github.com/cppla/qabbs/utils"
)

// CommentController serves comment creation.
type CommentController struct {
	db     *gorm.DB
	coord  *services.Coordinator
	logger *zap.Logger
}

// NewCommentController creates a CommentController.
func NewCommentController(db *gorm.DB, coord *services.Coordinator, logger *zap.Logger) *CommentController {
	return &CommentController{db: db, coord: coord, logger: logger.Named("comments")}
}

// CreateComment attaches a comment to a question or an answer.
func (c *CommentController) CreateComment(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Content    string `json:"content"`
		ParentType string `json:"parent_type"`
		ParentID   uint   `json:"parent_id"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	kind, _ := models.ParseTargetKind(req.ParentType)
	parent := models.Target{Kind: kind, ID: req.ParentID}
	comment, err := c.coord.CreateComment(ctx.Request.Context(), userID, parent, utils.Sanitize(req.Content))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	utils.InvalidateQuestion(c.questionOf(parent))
	utils.Success(ctx, gin.H{"comment": comment})
}

func (c *CommentController) questionOf(parent models.Target) uint {
	if parent.Kind == models.TargetQuestion {
		return parent.ID
	}
	return questionOfAnswer(c.db, c.logger, parent.ID)
}
