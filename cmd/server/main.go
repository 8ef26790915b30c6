package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"fittrack/server/internal/api"
	"fittrack/server/internal/config"
	"fittrack/server/internal/llm"
	"fittrack/server/internal/logging"
	"fittrack/server/internal/ratelimit"
	"fittrack/server/internal/repository"
	"fittrack/server/internal/repository/memory"
	"fittrack/server/internal/repository/mongo"
	"fittrack/server/internal/service"
	"fittrack/server/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// @title FitTrack API
// @version 1.0
// @description API for logging workouts, building plans and generating workouts with AI.
// @BasePath /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" followed by a space and JWT token.
func main() {
	if err := run(); err != nil {
		logrus.WithError(err).Error("server stopped")
		os.Exit(1)
	}
}

// run wires the server and blocks until shutdown. Errors are returned rather
// than fatal so that deferred cleanup runs before the process exits.
func run() error {
	startedAt := time.Now()

	// --- Configuration ---
	cfg, err := config.LoadConfig(".")
	if err != nil {
		return fmt.Errorf("could not load config: %w", err)
	}
	log := logging.New(cfg.Log)
	log.WithFields(logrus.Fields{
		"address":  cfg.Server.Address,
		"driver":   cfg.Database.Driver,
		"database": cfg.Database.Name,
	}).Info("starting FitTrack server")

	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}

	// --- Repositories ---
	var (
		userRepo    repository.UserRepository
		workoutRepo repository.WorkoutRepository
		planRepo    repository.PlanRepository
	)
	switch cfg.Database.Driver {
	case config.DriverMemory:
		log.Warn("using the in-memory store, data is lost on exit")
		db := memory.New()
		userRepo, workoutRepo, planRepo = db.Users(), db.Workouts(), db.Plans()
	default:
		dbClient, err := mongo.ConnectDB(cfg.Database.URI)
		if err != nil {
			return fmt.Errorf("could not connect to MongoDB: %w", err)
		}
		defer func() {
			log.Info("disconnecting MongoDB")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.WithError(err).Error("failed to disconnect MongoDB")
			}
		}()
		appDB := dbClient.Database(cfg.Database.Name)

		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		err = mongo.EnsureIndexes(ctx, appDB)
		cancel()
		if err != nil {
			return fmt.Errorf("could not ensure MongoDB indexes: %w", err)
		}
		log.Info("database connection established, indexes ensured")

		userRepo = mongo.NewMongoUserRepository(appDB)
		workoutRepo = mongo.NewMongoWorkoutRepository(appDB)
		planRepo = mongo.NewMongoPlanRepository(appDB)
	}

	// --- Rate limiter ---
	var limiter ratelimit.Limiter
	if cfg.RateLimit.Enabled {
		rdb, err := ratelimit.NewRedisClient(context.Background(), cfg.RateLimit.RedisURL)
		if err != nil {
			return fmt.Errorf("could not connect to Redis: %w", err)
		}
		defer func() {
			if err := rdb.Close(); err != nil {
				log.WithError(err).Error("failed to close Redis client")
			}
		}()
		limiter = ratelimit.NewRedisLimiter(rdb, cfg.RateLimit.Limit, cfg.RateLimit.Window, cfg.RateLimit.Prefix)
		log.WithFields(logrus.Fields{
			"limit":  cfg.RateLimit.Limit,
			"window": cfg.RateLimit.Window.String(),
		}).Info("rate limiting enabled")
	} else {
		log.Warn("rate limiting disabled")
	}

	// --- AI completion and transcript archive ---
	var completer llm.Completer
	if cfg.AI.APIKey != "" {
		completer = llm.NewOpenAICompleter(llm.Options{
			APIKey:  cfg.AI.APIKey,
			BaseURL: cfg.AI.BaseURL,
			Model:   cfg.AI.Model,
		})
	} else {
		log.Warn("no AI API key configured, generated workouts use the fallback template")
	}

	var archive storage.ObjectStore
	if cfg.S3.BucketName != "" {
		archive, err = storage.NewS3Storage(context.Background(), cfg.S3, log)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
	}

	// --- Services ---
	authService := service.NewAuthService(userRepo, cfg.JWT.Secret, cfg.JWT.Expiration)
	workoutService := service.NewWorkoutService(workoutRepo)
	planService := service.NewPlanService(planRepo, workoutRepo)
	generator := service.NewWorkoutGenerator(workoutRepo, completer, archive, cfg.S3.Prefix, log)

	// --- Router ---
	router := api.NewRouter(api.Dependencies{
		AuthService:    authService,
		WorkoutService: workoutService,
		PlanService:    planService,
		Generator:      generator,
		Limiter:        limiter,
		AllowedOrigin:  cfg.Server.AllowedOrigin,
		Logger:         log,
		StartedAt:      startedAt,
	})

	// --- Start HTTP Server ---
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second, // AI generation can take a while
		IdleTimeout:  120 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.WithField("address", cfg.Server.Address).Info("server listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// --- Graceful Shutdown ---
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	var runErr error
	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("shutting down server")
	case runErr = <-serverErr:
		log.WithError(runErr).Error("server failed")
	}

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := server.Shutdown(ctxShutdown); err != nil {
		log.WithError(err).Error("server forced to shutdown")
	}

	log.Info("server exiting")
	return runErr
}
