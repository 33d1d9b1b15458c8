package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/cppla/qabbs/config"
	"github.com/cppla/qabbs/controllers"
	"github.com/cppla/qabbs/middleware"
	"github.com/cppla/qabbs/services"
	"github.com/cppla/qabbs/utils"
)

// Deps carries the services the HTTP layer is built on.
type Deps struct {
	DB          *gorm.DB
	Coordinator *services.Coordinator
	Votes       *services.VoteService
	Suggestions *services.SuggestionService
	Logger      *zap.Logger
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(d Deps) *gin.Engine {
	cfg := config.Get()
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	// Request log goes to its own rolling file.
	gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
	if err == nil {
		r.Use(utils.Ginzap(gl, time.RFC3339, true))
		r.Use(utils.RecoveryWithZap(gl, false))
	} else {
		r.Use(gin.Recovery())
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	authController := controllers.NewAuthController(d.DB, logger)
	questionController := controllers.NewQuestionController(d.DB, d.Coordinator, d.Votes, d.Suggestions, logger)
	answerController := controllers.NewAnswerController(d.DB, d.Coordinator, d.Votes, logger)
	commentController := controllers.NewCommentController(d.DB, d.Coordinator, logger)
	userController := controllers.NewUserController(d.DB, d.Coordinator)
	statsController := controllers.NewStatsController(d.DB)

	api := r.Group("/api/v1")

	authGroup := api.Group("/auth")
	authGroup.POST("/register", authController.Register)
	authGroup.POST("/login", authController.Login)
	authGroup.GET("/oauth/github/login", authController.OAuthRedirect)
	authGroup.GET("/oauth/github/callback", authController.OAuthCallback)
	authGroup.POST("/logout", middleware.AuthRequired(), authController.Logout)
	authGroup.GET("/me", middleware.AuthRequired(), authController.Me)

	api.GET("/stats", statsController.GetStats)

	api.GET("/questions", questionController.ListQuestions)
	api.GET("/questions/search", questionController.SearchQuestions)
	api.GET("/questions/tag/:tag", questionController.ListByTag)
	api.GET("/questions/:id", questionController.GetQuestion)
	api.POST("/questions/suggestions", questionController.Suggest)

	api.GET("/users/top", userController.TopUsers)
	api.GET("/users/:id", userController.GetUser)
	api.GET("/users/:id/questions", questionController.ListUserQuestions)
	api.GET("/users/:id/reputation", userController.ReputationHistory)

	protected := api.Group("")
	protected.Use(middleware.AuthRequired())

	protected.POST("/questions", questionController.CreateQuestion)
	protected.PUT("/questions/:id", questionController.UpdateQuestion)
	protected.DELETE("/questions/:id", questionController.DeleteQuestion)
	protected.PUT("/questions/:id/vote", questionController.VoteQuestion)

	protected.POST("/answers", answerController.CreateAnswer)
	protected.PUT("/answers/:id", answerController.EditAnswer)
	protected.DELETE("/answers/:id", answerController.DeleteAnswer)
	protected.PUT("/answers/:id/vote", answerController.VoteAnswer)
	protected.PUT("/answers/:id/accept", answerController.AcceptAnswer)

	protected.POST("/comments", commentController.CreateComment)

	protected.DELETE("/users/me", userController.DeleteMe)

	r.NoRoute(func(ctx *gin.Context) {
		if strings.HasPrefix(ctx.Request.URL.Path, "/api/") {
			utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
			return
		}
		utils.Error(ctx, http.StatusNotFound, 40400, "not found")
	})

	return r
}
