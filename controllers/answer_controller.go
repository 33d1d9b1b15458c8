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

// AnswerController serves answer writes and votes.
type AnswerController struct {
	db     *gorm.DB
	coord  *services.Coordinator
	votes  *services.VoteService
	logger *zap.Logger
}

// NewAnswerController creates an AnswerController.
func NewAnswerController(db *gorm.DB, coord *services.Coordinator, votes *services.VoteService, logger *zap.Logger) *AnswerController {
	return &AnswerController{db: db, coord: coord, votes: votes, logger: logger.Named("answers")}
}

// CreateAnswer posts an answer to a question.
func (a *AnswerController) CreateAnswer(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		QuestionID uint   `json:"question_id"`
		Content    string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	answer, err := a.coord.CreateAnswer(ctx.Request.Context(), userID, req.QuestionID, utils.Sanitize(req.Content))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateQuestion(answer.QuestionID)
	utils.Success(ctx, gin.H{"answer": answer})
}

// EditAnswer replaces an answer's content. Owner only.
func (a *AnswerController) EditAnswer(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req struct {
		Content string `json:"content"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	answer, err := a.coord.EditAnswer(ctx.Request.Context(), userID, id, utils.Sanitize(req.Content))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateQuestion(answer.QuestionID)
	utils.Success(ctx, gin.H{"answer": answer})
}

// DeleteAnswer removes an answer. Allowed for the answer owner and the question owner.
func (a *AnswerController) DeleteAnswer(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	// Looked up first so the question's cached views can be dropped afterwards.
	questionID := questionOfAnswer(a.db, a.logger, id)

	if err := a.coord.DeleteAnswer(ctx.Request.Context(), userID, id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateQuestion(questionID)
	utils.Success(ctx, gin.H{"message": "answer deleted"})
}

// VoteAnswer casts or switches the caller's vote on an answer.
func (a *AnswerController) VoteAnswer(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req voteRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	tally, err := a.votes.Vote(ctx.Request.Context(), models.AnswerTarget(id), userID, models.VoteKind(req.VoteType))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}

	utils.InvalidateQuestion(questionOfAnswer(a.db, a.logger, id))
	utils.Success(ctx, tally)
}

// AcceptAnswer marks an answer as the accepted one. Question owner only.
func (a *AnswerController) AcceptAnswer(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	answer, err := a.coord.AcceptAnswer(ctx.Request.Context(), userID, id)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateQuestion(answer.QuestionID)
	utils.Success(ctx, gin.H{"answer": answer})
}
