package main

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cppla/qabbs/ai"
	"github.com/cppla/qabbs/config"
	"github.com/cppla/qabbs/models"
	"github.com/cppla/qabbs/routes"
	"github.com/cppla/qabbs/services"
	"github.com/cppla/qabbs/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	db := config.InitDatabase(models.All()...)
	// Warm the Redis client; nil means in-memory fallbacks.
	utils.GetRedis()

	rep := services.NewReputationService(utils.Named("reputation"))
	votes := services.NewVoteService(db, rep, utils.Named("votes"))
	sagas := services.NewSagaRunner(db, utils.Named("saga"), cfg.SagaMaxAttempts)
	coord := services.NewCoordinator(db, rep, sagas, utils.Logger)

	var suggester services.Suggester
	client, err := ai.NewClient(cfg, utils.Logger)
	switch {
	case err == nil:
		suggester = client
	case errors.Is(err, ai.ErrDisabled):
		utils.Sugar.Info("ai suggestions disabled, serving similar titles only")
	default:
		utils.Sugar.Fatalf("ai client: %v", err)
	}
	suggestions := services.NewSuggestionService(db, suggester, cfg.AISimilarLimit, utils.Logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Replay cascades interrupted by a previous crash.
	sagas.StartRecovery(ctx,
		time.Duration(cfg.SagaRecoverIntervalSec)*time.Second,
		time.Duration(cfg.SagaStaleAfterSec)*time.Second)

	r := routes.SetupRouter(routes.Deps{
		DB:          db,
		Coordinator: coord,
		Votes:       votes,
		Suggestions: suggestions,
		Logger:      utils.Logger,
	})

	utils.Logger.Info("starting server", zap.String("port", cfg.AppPort))
	if err := utils.GraceServer(ctx, ":"+cfg.AppPort, r); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
}
