// Package main is the entry point of the LearnQuest gamification API.
//
// The architecture follows Clean Architecture and DDD:
// - Domain: pure business logic without external dependencies
// - Application: use case orchestration (Commands/Queries)
// - Infrastructure: repositories, cache, messaging, background jobs
// - Interface: REST API handlers
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/brimiq/LearnQuest-Backend/config"

	// Application layer
	"github.com/brimiq/LearnQuest-Backend/internal/application/command"
	"github.com/brimiq/LearnQuest-Backend/internal/application/query"

	// Domain layer
	"github.com/brimiq/LearnQuest-Backend/internal/domain/gamification"
	"github.com/brimiq/LearnQuest-Backend/internal/domain/stats"

	// Infrastructure layer
	"github.com/brimiq/LearnQuest-Backend/internal/infrastructure/messaging"
	"github.com/brimiq/LearnQuest-Backend/internal/infrastructure/persistence/postgres"
	"github.com/brimiq/LearnQuest-Backend/internal/infrastructure/persistence/redis"
	"github.com/brimiq/LearnQuest-Backend/internal/infrastructure/scheduler"

	// Interface layer
	httpserver "github.com/brimiq/LearnQuest-Backend/internal/interface/http"

	// Packages
	"github.com/brimiq/LearnQuest-Backend/pkg/logger"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "fatal error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	// ─────────────────────────────────────────────────────────────────────────
	// 1. CONFIGURATION
	// ─────────────────────────────────────────────────────────────────────────

	// .env is optional; real deployments configure through the environment.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := logger.New(logger.Options{
		Output:    os.Stdout,
		Level:     logger.ParseLevel(cfg.Observability.LogLevel),
		AddCaller: cfg.App.Debug,
	})
	log.Info("starting LearnQuest API",
		logger.String("env", string(cfg.App.Environment)),
		logger.String("version", cfg.App.Version),
		logger.String("timezone", cfg.App.Timezone),
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE (PostgreSQL)
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database")
	var dbConn *postgres.Connection
	if cfg.Database.URL != "" {
		dbConn, err = postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	} else {
		dbConn, err = postgres.NewConnection(ctx, postgres.DefaultConfig())
	}
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection")
		dbConn.Close()
	}()

	if err := dbConn.Ping(ctx); err != nil {
		return fmt.Errorf("database ping failed: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 4. MIGRATIONS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("running database migrations")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REDIS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to Redis")
	redisCfg := redis.DefaultConfig()
	redisCfg.Host = cfg.Redis.Host
	redisCfg.Port = cfg.Redis.Port
	redisCfg.Password = cfg.Redis.Password
	redisCfg.DB = cfg.Redis.DB
	redisCfg.PoolSize = cfg.Redis.PoolSize
	redisCfg.MinIdleConns = cfg.Redis.MinIdleConns
	redisCfg.DialTimeout = cfg.Redis.DialTimeout
	redisCfg.ReadTimeout = cfg.Redis.ReadTimeout
	redisCfg.WriteTimeout = cfg.Redis.WriteTimeout

	redisCache, err := redis.NewCache(ctx, redisCfg)
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	defer func() {
		log.Info("closing Redis connection")
		_ = redisCache.Close()
	}()

	leaderboardCache := redis.NewLeaderboardCache(redisCache).
		WithTTL(cfg.Leaderboard.SnapshotTTL)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	statsRepo := postgres.NewStatsRepository(dbConn)
	historyRepo := postgres.NewXPHistoryRepository(dbConn)
	statsTx := postgres.NewStatsTxRunner(dbConn)
	badgeRepo := postgres.NewBadgeAwardRepository(dbConn)
	accountRepo := postgres.NewAccountRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 7. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	eventBus := messaging.NewEventBus(messaging.EventBusConfig{Logger: log})
	defer func() {
		log.Info("closing event bus")
		eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 8. DOMAIN SERVICES
	// ─────────────────────────────────────────────────────────────────────────
	tracker := gamification.NewStreakTracker(cfg.App.Location)
	catalog := gamification.DefaultCatalog()

	// ─────────────────────────────────────────────────────────────────────────
	// 9. APPLICATION LAYER (Commands, Queries)
	// ─────────────────────────────────────────────────────────────────────────
	awardConfig := command.DefaultAwardXPHandlerConfig()
	awardConfig.BaseAmounts = map[stats.Reason]int{
		stats.ReasonResourceComplete: cfg.Gamification.ResourceCompleteXP,
		stats.ReasonModuleComplete:   cfg.Gamification.ModuleCompleteXP,
		stats.ReasonCommentPost:      cfg.Gamification.CommentPostXP,
		stats.ReasonQuizPass:         cfg.Gamification.QuizPassXP,
	}
	awardConfig.PointsAmounts = awardConfig.BaseAmounts
	awardConfig.MaxCASAttempts = cfg.Gamification.MaxCASAttempts

	awardCmd := command.NewAwardXPHandler(
		statsRepo, historyRepo, statsTx, badgeRepo, catalog, tracker, eventBus, log, awardConfig)
	registerCmd := command.NewRegisterAccountHandler(accountRepo, statsRepo, eventBus, log)
	refreshCmd := command.NewRefreshLeaderboardHandler(
		statsRepo, historyRepo, leaderboardCache, eventBus, log, cfg.App.Location)

	leaderboardQuery := query.NewGetLeaderboardHandler(leaderboardCache, refreshCmd)
	userRankQuery := query.NewGetUserRankHandler(leaderboardCache, statsRepo, refreshCmd)
	streakQuery := query.NewGetStreakStatusHandler(statsRepo, tracker, awardConfig.Milestones)
	badgesQuery := query.NewGetBadgesHandler(statsRepo, badgeRepo, catalog)
	periodStatsQuery := query.NewGetPeriodStatsHandler(statsRepo, historyRepo, cfg.App.Location)

	// ─────────────────────────────────────────────────────────────────────────
	// 10. SCHEDULER
	// ─────────────────────────────────────────────────────────────────────────
	var jobs *scheduler.Scheduler
	if cfg.Scheduler.Enabled {
		jobs = scheduler.NewScheduler(log)
		jobs.Every(cfg.Scheduler.RefreshLeaderboardInterval, scheduler.NewLeaderboardRefreshJob(refreshCmd))
		jobs.Start(ctx)
		defer jobs.Stop()
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 11. HTTP SERVER
	// ─────────────────────────────────────────────────────────────────────────
	httpConfig := httpserver.DefaultConfig()
	httpConfig.Host = cfg.HTTP.Host
	httpConfig.Port = cfg.HTTP.Port
	httpConfig.ReadTimeout = cfg.HTTP.ReadTimeout
	httpConfig.WriteTimeout = cfg.HTTP.WriteTimeout
	httpConfig.IdleTimeout = cfg.HTTP.IdleTimeout
	httpConfig.EnableCORS = cfg.HTTP.EnableCORS
	httpConfig.AllowedOrigins = cfg.HTTP.AllowedOrigins
	httpConfig.RateLimitPerMinute = cfg.HTTP.RateLimitPerMinute

	server := httpserver.NewServer(httpConfig, httpserver.Dependencies{
		AwardXPHandler:         awardCmd,
		RegisterAccountHandler: registerCmd,
		GetLeaderboardHandler:  leaderboardQuery,
		GetUserRankHandler:     userRankQuery,
		GetStreakStatusHandler: streakQuery,
		GetBadgesHandler:       badgesQuery,
		GetPeriodStatsHandler:  periodStatsQuery,
		Logger:                 log,
		Database:               dbConn,
		Cache:                  redisCache,
	})

	errCh := server.StartAsync()

	// ─────────────────────────────────────────────────────────────────────────
	// 12. GRACEFUL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("LearnQuest API is running", logger.String("address", server.Address()))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", logger.String("signal", sig.String()))
	case err := <-errCh:
		if err != nil {
			log.Error("server error", logger.Err(err))
			return err
		}
	case <-ctx.Done():
	}

	log.Info("starting graceful shutdown", logger.String("timeout", cfg.App.ShutdownTimeout.String()))

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.App.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("failed to stop HTTP server gracefully", logger.Err(err))
		return err
	}

	log.Info("shutdown completed")
	return nil
}
