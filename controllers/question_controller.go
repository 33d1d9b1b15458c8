package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/qabbs/models"
	"github.com/cppla/qabbs/services"
	"github.com/cppla/qabbs/utils"
)

// QuestionController serves question writes, votes and reads.
type QuestionController struct {
	db          *gorm.DB
	coord       *services.Coordinator
	votes       *services.VoteService
	suggestions *services.SuggestionService
	logger      *zap.Logger
}

// NewQuestionController creates a QuestionController.
func NewQuestionController(db *gorm.DB, coord *services.Coordinator, votes *services.VoteService, suggestions *services.SuggestionService, logger *zap.Logger) *QuestionController {
	return &QuestionController{
		db:          db,
		coord:       coord,
		votes:       votes,
		suggestions: suggestions,
		logger:      logger.Named("questions"),
	}
}

type questionRequest struct {
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Tried       string   `json:"tried"`
	Tags        []string `json:"tags"`
}

func (r questionRequest) input() services.QuestionInput {
	return services.QuestionInput{
		Title:       utils.SanitizeText(r.Title),
		Description: utils.Sanitize(r.Description),
		Tried:       utils.Sanitize(r.Tried),
		Tags:        utils.SanitizeAll(r.Tags),
	}
}

type voteRequest struct {
	VoteType string `json:"vote_type" binding:"required"`
}

// CreateQuestion posts a new question for the authenticated user.
func (q *QuestionController) CreateQuestion(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req questionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	question, err := q.coord.CreateQuestion(ctx.Request.Context(), userID, req.input())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateQuestion(question.ID)
	utils.Success(ctx, gin.H{"question": question})
}

// UpdateQuestion edits title, description, tried and tags. Owner only.
func (q *QuestionController) UpdateQuestion(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	var req questionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	question, err := q.coord.UpdateQuestion(ctx.Request.Context(), userID, id, req.input())
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateQuestion(id)
	utils.Success(ctx, gin.H{"question": question})
}

// DeleteQuestion removes a question with its answers, comments and votes.
func (q *QuestionController) DeleteQuestion(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	if err := q.coord.DeleteQuestion(ctx.Request.Context(), userID, id); err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateQuestion(id)
	utils.Success(ctx, gin.H{"message": "question deleted"})
}

// VoteQuestion casts or switches the caller's vote on a question.
func (q *QuestionController) VoteQuestion(ctx *gin.Context) {
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

	tally, err := q.votes.Vote(ctx.Request.Context(), models.QuestionTarget(id), userID, models.VoteKind(req.VoteType))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.InvalidateQuestion(id)
	utils.Success(ctx, tally)
}

// ListQuestions returns a page of questions sorted by newest or top votes.
func (q *QuestionController) ListQuestions(ctx *gin.Context) {
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))
	order := "created_at DESC, id DESC"
	sortBy := strings.TrimSpace(ctx.DefaultQuery("sort_by", "newest"))
	switch sortBy {
	case "newest":
	case "top_vote":
		order = "upvotes DESC, id DESC"
	default:
		utils.Error(ctx, http.StatusBadRequest, 40021, "sort_by must be newest or top_vote")
		return
	}

	cacheKey := fmt.Sprintf("%ssort=%s:page=%d:size=%d", utils.CacheQuestionListPrefix, sortBy, page, pageSize)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	payload, err := q.page(q.db, order, page, pageSize)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.CacheSetEnvelope(cacheKey, payload, 10*time.Minute)
	utils.Success(ctx, payload)
}

// ListByTag returns questions carrying the tag.
func (q *QuestionController) ListByTag(ctx *gin.Context) {
	tag := strings.ToLower(strings.TrimSpace(ctx.Param("tag")))
	if tag == "" {
		utils.Error(ctx, http.StatusBadRequest, 40022, "missing tag")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := q.db.Where("id IN (?)", q.db.Model(&models.QuestionTag{}).Select("question_id").Where("tag = ?", tag))
	payload, err := q.page(query, "created_at DESC, id DESC", page, pageSize)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, payload)
}

// SearchQuestions finds questions whose title contains the query.
func (q *QuestionController) SearchQuestions(ctx *gin.Context) {
	title := strings.TrimSpace(ctx.Query("title"))
	if title == "" {
		utils.Error(ctx, http.StatusBadRequest, 40023, "missing title")
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	query := q.db.Where("LOWER(title) LIKE ? ESCAPE '!'", services.ContainsPattern(title))
	payload, err := q.page(query, "upvotes DESC, id DESC", page, pageSize)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, payload)
}

// ListUserQuestions returns the questions posted by a user.
func (q *QuestionController) ListUserQuestions(ctx *gin.Context) {
	userID, ok := parseID(ctx, "id")
	if !ok {
		return
	}
	page, pageSize := parsePagination(ctx.Query("page"), ctx.Query("page_size"))

	payload, err := q.page(q.db.Where("user_id = ?", userID), "created_at DESC, id DESC", page, pageSize)
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, payload)
}

func (q *QuestionController) page(query *gorm.DB, order string, page, pageSize int) (gin.H, error) {
	var total int64
	if err := query.Session(&gorm.Session{}).Model(&models.Question{}).Count(&total).Error; err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}

	var questions []models.Question
	if err := query.Session(&gorm.Session{}).
		Preload("User").
		Preload("Tags").
		Order(order).
		Offset((page - 1) * pageSize).
		Limit(pageSize).
		Find(&questions).Error; err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return paged(questions, page, pageSize, total), nil
}

// GetQuestion returns a question with its answers and all comments.
func (q *QuestionController) GetQuestion(ctx *gin.Context) {
	id, ok := parseID(ctx, "id")
	if !ok {
		return
	}

	cacheKey := utils.QuestionDetailKey(id)
	if b, ok := utils.CacheGetBytes(cacheKey); ok {
		ctx.Data(http.StatusOK, "application/json", b)
		return
	}

	var question models.Question
	err := q.db.
		Preload("User").
		Preload("Tags").
		Preload("Answers", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Answers.User").
		First(&question, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			utils.Fail(ctx, services.ErrQuestionNotFound)
			return
		}
		utils.Fail(ctx, fmt.Errorf("load question: %w", err))
		return
	}

	comments, err := q.loadComments(&question)
	if err != nil {
		// Comments are secondary; serve the question without them.
		q.logger.Warn("failed to load comments", zap.Uint("question_id", id), zap.Error(err))
		comments = []models.Comment{}
	}

	payload := gin.H{"question": question, "comments": comments}
	utils.CacheSetEnvelope(cacheKey, payload, time.Hour)
	utils.Success(ctx, payload)
}

// loadComments fetches comments on the question and its answers and attaches authors.
func (q *QuestionController) loadComments(question *models.Question) ([]models.Comment, error) {
	answerIDs := make([]uint, 0, len(question.Answers))
	for _, a := range question.Answers {
		answerIDs = append(answerIDs, a.ID)
	}

	query := q.db.Where("parent_kind = ? AND parent_id = ?", models.TargetQuestion, question.ID)
	if len(answerIDs) > 0 {
		query = query.Or("parent_kind = ? AND parent_id IN ?", models.TargetAnswer, answerIDs)
	}
	comments := []models.Comment{}
	if err := query.Order("id ASC").Find(&comments).Error; err != nil {
		return nil, err
	}
	if len(comments) == 0 {
		return comments, nil
	}

	userIDs := make([]uint, 0, len(comments))
	for _, c := range comments {
		userIDs = append(userIDs, c.UserID)
	}
	var users []models.User
	if err := q.db.Find(&users, utils.Unique(userIDs)).Error; err != nil {
		return nil, err
	}
	byID := make(map[uint]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}
	for i := range comments {
		comments[i].User = byID[comments[i].UserID]
	}
	return comments, nil
}

// Suggest returns similar titles and an AI-completed question for a partial header.
func (q *QuestionController) Suggest(ctx *gin.Context) {
	var req struct {
		Header string `json:"header"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40001, "invalid request payload")
		return
	}

	out, err := q.suggestions.Suggest(ctx.Request.Context(), utils.SanitizeText(req.Header))
	if err != nil {
		utils.Fail(ctx, err)
		return
	}
	utils.Success(ctx, out)
}
