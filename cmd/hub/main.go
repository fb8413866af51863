// Package main is the entry point for the TrailRoom Hub progress engine.
//
// The process wires the persistence layer, the in-process event bus and the
// command/query handlers, runs migrations, then serves until a shutdown
// signal arrives.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/trailroom/trailroom-hub/config"
	"github.com/trailroom/trailroom-hub/internal/application/authz"
	"github.com/trailroom/trailroom-hub/internal/application/command"
	"github.com/trailroom/trailroom-hub/internal/application/eventhandler"
	"github.com/trailroom/trailroom-hub/internal/application/query"
	"github.com/trailroom/trailroom-hub/internal/application/saga"
	"github.com/trailroom/trailroom-hub/internal/domain/progress"
	"github.com/trailroom/trailroom-hub/internal/domain/room"
	"github.com/trailroom/trailroom-hub/internal/infrastructure/messaging"
	"github.com/trailroom/trailroom-hub/internal/infrastructure/persistence/postgres"
	"github.com/trailroom/trailroom-hub/internal/infrastructure/persistence/redis"
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
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 2. LOGGING
	// ─────────────────────────────────────────────────────────────────────────
	log := setupLogger(cfg)
	log.Info("starting TrailRoom Hub",
		"env", cfg.App.Environment,
		"version", cfg.App.Version,
		"debug", cfg.App.Debug,
	)

	// ─────────────────────────────────────────────────────────────────────────
	// 3. DATABASE
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("connecting to database...")
	dbConn, err := postgres.NewConnectionFromURL(ctx, cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		log.Info("closing database connection...")
		dbConn.Close()
	}()

	log.Info("checking database migrations...")
	migrator := postgres.NewMigrator(dbConn)
	if err := migrator.Migrate(ctx); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}
	log.Info("database schema is up to date")

	// ─────────────────────────────────────────────────────────────────────────
	// 4. REDIS (optional read-side caches)
	// ─────────────────────────────────────────────────────────────────────────
	var pointsCache room.PointsCache
	var progressCache progress.Cache

	if !cfg.Redis.Disabled {
		log.Info("connecting to Redis...")
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

		redisCache, err := redis.NewCache(redisCfg)
		if err != nil {
			log.Warn("failed to connect to Redis, caching disabled", "error", err)
		} else {
			defer redisCache.Close()
			pointsCache = redis.NewRoomPointsCache(redisCache)
			progressCache = redis.NewProgressCache(redisCache)
			log.Info("Redis connection established")
		}
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 5. REPOSITORIES
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing repositories...")
	userRepo := postgres.NewUserRepository(dbConn)
	roomRepo := postgres.NewRoomRepository(dbConn)
	trackRepo := postgres.NewTrackRepository(dbConn)
	progressRepo := postgres.NewProgressRepository(dbConn)
	missionRepo := postgres.NewMissionRepository(dbConn)
	titleRepo := postgres.NewTitleRepository(dbConn)

	// ─────────────────────────────────────────────────────────────────────────
	// 6. EVENT BUS
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("initializing event bus...")
	busCfg := messaging.DefaultEventBusConfig()
	busCfg.Logger = log
	busCfg.AsyncMode = cfg.Engine.AsyncEvents
	busCfg.WorkerPoolSize = cfg.Engine.EventWorkers
	eventBus := messaging.NewInMemoryEventBus(busCfg)
	defer func() {
		log.Info("closing event bus...")
		_ = eventBus.Close()
	}()

	// ─────────────────────────────────────────────────────────────────────────
	// 7. APPLICATION LAYER
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("wiring application handlers...")
	policy := authz.NewPolicy(roomRepo)
	awardFlow := saga.NewTitleAwardFlow(titleRepo, userRepo, missionRepo, roomRepo, eventBus)

	commands := struct {
		CreateRoom      *command.CreateRoomHandler
		JoinRoom        *command.JoinRoomHandler
		CreateTrack     *command.CreateTrackHandler
		AddModule       *command.AddModuleHandler
		AddContent      *command.AddContentHandler
		RecordView      *command.RecordViewHandler
		SetCompletion   *command.SetCompletionHandler
		CreateMission   *command.CreateMissionHandler
		SubmitMission   *command.SubmitMissionHandler
		SubmitGrade     *command.SubmitGradeHandler
		RecomputePoints *command.RecomputeUserPointsHandler
		CreateTitle     *command.CreateTitleHandler
	}{
		CreateRoom:      command.NewCreateRoomHandler(roomRepo, dbConn),
		JoinRoom:        command.NewJoinRoomHandler(roomRepo),
		CreateTrack:     command.NewCreateTrackHandler(trackRepo, policy, dbConn),
		AddModule:       command.NewAddModuleHandler(trackRepo, policy),
		AddContent:      command.NewAddContentHandler(trackRepo, policy),
		RecordView:      command.NewRecordViewHandler(progressRepo, trackRepo, policy, eventBus),
		SetCompletion:   command.NewSetCompletionHandler(progressRepo, trackRepo, policy, progressCache, dbConn, eventBus),
		CreateMission:   command.NewCreateMissionHandler(missionRepo, policy),
		SubmitMission:   command.NewSubmitMissionHandler(missionRepo, policy, dbConn),
		SubmitGrade:     command.NewSubmitGradeHandler(missionRepo, userRepo, policy, dbConn, eventBus),
		RecomputePoints: command.NewRecomputeUserPointsHandler(missionRepo, userRepo, dbConn),
		CreateTitle:     command.NewCreateTitleHandler(titleRepo, policy, awardFlow, eventBus),
	}

	queries := struct {
		ModuleProgress *query.GetModuleProgressHandler
		TrackProgress  *query.GetTrackProgressHandler
		TrackAccess    *query.GetTrackAccessHandler
		RoomPoints     *query.GetStudentRoomPointsHandler
		Leaderboard    *query.GetRoomLeaderboardHandler
		Navigation     *query.GetContentNavigationHandler
		Outline        *query.GetTrackOutlineHandler
		UserTitles     *query.GetUserTitlesHandler
		TitleStats     *query.GetRoomTitleStatsHandler
	}{
		ModuleProgress: query.NewGetModuleProgressHandler(progressRepo, trackRepo),
		TrackProgress:  query.NewGetTrackProgressHandler(progressRepo, trackRepo, progressCache),
		TrackAccess:    query.NewGetTrackAccessHandler(trackRepo, progressRepo, userRepo),
		RoomPoints:     query.NewGetStudentRoomPointsHandler(missionRepo, roomRepo),
		Leaderboard:    query.NewGetRoomLeaderboardHandler(missionRepo, roomRepo, pointsCache),
		Navigation:     query.NewGetContentNavigationHandler(trackRepo),
		Outline:        query.NewGetTrackOutlineHandler(trackRepo),
		UserTitles:     query.NewGetUserTitlesHandler(titleRepo, roomRepo),
		TitleStats:     query.NewGetRoomTitleStatsHandler(titleRepo),
	}

	// The engine exposes its operations as handler structs; an outer
	// transport (HTTP, bot, CLI) binds to these.
	_ = commands
	_ = queries

	// ─────────────────────────────────────────────────────────────────────────
	// 8. EVENT SUBSCRIPTIONS
	// ─────────────────────────────────────────────────────────────────────────
	onGrade := eventhandler.NewOnGradeRecordedHandler(awardFlow, roomRepo, missionRepo, pointsCache, log)
	if err := eventBus.Subscribe(onGrade.EventType(), onGrade.Handle); err != nil {
		return fmt.Errorf("failed to subscribe grade handler: %w", err)
	}

	// ─────────────────────────────────────────────────────────────────────────
	// 9. RUN UNTIL SHUTDOWN
	// ─────────────────────────────────────────────────────────────────────────
	log.Info("TrailRoom Hub is running")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	select {
	case sig := <-sigCh:
		log.Info("received shutdown signal", "signal", sig.String())
	case <-ctx.Done():
		log.Info("context cancelled")
	}

	log.Info("starting graceful shutdown...", "timeout", cfg.App.ShutdownTimeout.String())
	log.Info("shutdown completed successfully")
	return nil
}

// setupLogger configures structured logging per environment.
func setupLogger(cfg *config.Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: slog.LevelInfo}
	if cfg.App.Debug || cfg.Observability.LogLevel == "debug" {
		opts.Level = slog.LevelDebug
	}

	var handler slog.Handler
	if cfg.Observability.LogFormat == "json" || cfg.IsProduction() {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}

	log := slog.New(handler)
	slog.SetDefault(log)
	return log
}
