package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"alcyxob/program-generator/internal/api"
	"alcyxob/program-generator/internal/config"
	"alcyxob/program-generator/internal/llm"
	"alcyxob/program-generator/internal/metrics"
	"alcyxob/program-generator/internal/repository"
	"alcyxob/program-generator/internal/repository/memory"
	"alcyxob/program-generator/internal/repository/mongo"
	"alcyxob/program-generator/internal/service"
	"alcyxob/program-generator/internal/storage"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	RunE: func(cmd *cobra.Command, args []string) error {
		return serve(cfg)
	},
}

// repositories is the storage backend chosen by database.driver.
type repositories struct {
	tx          repository.Transactor
	users       repository.UserRepository
	programs    repository.ProgramRepository
	plans       repository.WorkoutPlanRepository
	workouts    repository.WorkoutRepository
	exercises   repository.WorkoutExerciseRepository
	library     repository.ExerciseLibraryRepository
	logs        repository.GenerationLogRepository
	checkIns    repository.CheckInRepository
	workoutLogs repository.WorkoutLogRepository
	close       func()
}

func openRepositories(dc config.DatabaseConfig) (*repositories, error) {
	if dc.Driver == "memory" {
		log.Println("WARNING: Using in-memory storage; data is lost on exit.")
		store := memory.NewStore()
		return &repositories{
			tx:          store.Transactor(),
			users:       store.Users(),
			programs:    store.Programs(),
			plans:       store.WorkoutPlans(),
			workouts:    store.Workouts(),
			exercises:   store.WorkoutExercises(),
			library:     store.ExerciseLibrary(),
			logs:        store.GenerationLogs(),
			checkIns:    store.CheckIns(),
			workoutLogs: store.WorkoutLogs(),
			close:       func() {},
		}, nil
	}

	dbClient, err := mongo.ConnectDB(dc.URI)
	if err != nil {
		return nil, fmt.Errorf("could not connect to MongoDB: %w", err)
	}
	appDB := dbClient.Database(dc.Name)
	log.Println("Database connection established.")

	// --- Ensure Indexes ---
	log.Println("Ensuring database indexes...")
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()
		if err := mongo.EnsureIndexes(ctx, appDB); err != nil {
			log.Printf("ERROR: Index creation failed: %v", err)
			return
		}
		log.Println("Index creation process completed.")
	}()

	return &repositories{
		tx:          mongo.NewTransactor(dbClient, dc.Transactions),
		users:       mongo.NewMongoUserRepository(appDB),
		programs:    mongo.NewMongoProgramRepository(appDB),
		plans:       mongo.NewMongoWorkoutPlanRepository(appDB),
		workouts:    mongo.NewMongoWorkoutRepository(appDB),
		exercises:   mongo.NewMongoWorkoutExerciseRepository(appDB),
		library:     mongo.NewMongoExerciseLibraryRepository(appDB),
		logs:        mongo.NewMongoGenerationLogRepository(appDB),
		checkIns:    mongo.NewMongoCheckInRepository(appDB),
		workoutLogs: mongo.NewMongoWorkoutLogRepository(appDB),
		close: func() {
			log.Println("Disconnecting MongoDB...")
			if err := mongo.DisconnectDB(dbClient); err != nil {
				log.Printf("ERROR: Failed to disconnect MongoDB: %v", err)
			}
		},
	}, nil
}

func serve(cfg config.Config) error {
	log.Println("Starting Program Generator Server...")
	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	// --- Database ---
	repos, err := openRepositories(cfg.Database)
	if err != nil {
		return err
	}
	defer repos.close()

	// --- Initialize Storage ---
	var transcripts storage.ObjectStorage
	if cfg.S3.Enabled {
		log.Println("Initializing transcript storage...")
		transcripts, err = storage.NewS3Storage(context.Background(), cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
	}

	// --- Model Provider ---
	provider, err := llm.NewProvider(cfg.Generation, llm.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to initialize %s provider: %w", cfg.Generation.Provider, err)
	}

	// --- Metrics ---
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	appMetrics := metrics.New(registry)

	// --- Initialize Services ---
	log.Println("Initializing services...")
	credits := service.NewCreditService(repos.users, cfg.Credits, nil)
	converter := service.NewPhaseConverter(cfg.Ordering.CategoryPriority)
	generator := service.NewPhaseGenerator(provider, converter, cfg.Generation, logger)
	persistence := service.NewPersistenceService(repos.programs, repos.plans, repos.workouts, repos.exercises, repos.library)
	feedback := service.NewFeedbackService(repos.checkIns, repos.workoutLogs)
	usage := service.NewUsageRecorder(repos.logs, transcripts, logger)
	orchestrator := service.NewPhaseOrchestrator(
		repos.tx, credits, generator, persistence, repos.programs, repos.plans, cfg.Generation,
		service.WithLogger(logger),
		service.WithMetrics(appMetrics),
		service.WithUsageRecorder(usage),
		service.WithFeedback(feedback),
	)
	programs := service.NewProgramService(repos.programs, repos.plans, repos.workouts, repos.exercises, repos.library)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	limiter := api.NewRateLimiter(cfg.RateLimit)
	go limiter.RunCleanup(ctx, 10*time.Minute)

	// --- Initialize Gin Engine ---
	router := gin.Default()

	log.Println("Setting up API routes...")
	api.SetupRoutes(router, api.Services{
		Orchestrator: orchestrator,
		Programs:     programs,
		Credits:      credits,
		Usage:        usage,
	}, api.RouteOptions{
		JWTSecret:      cfg.JWT.Secret,
		AllowAnonymous: cfg.Server.AllowAnonymous,
		Limiter:        limiter,
		Gatherer:       registry,
		Logger:         logger,
	})

	// --- Start HTTP Server ---
	// The write deadline is the execution ceiling; generation.timeout is validated to be shorter.
	server := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.ExecutionCeiling,
		IdleTimeout:  120 * time.Second,
	}

	log.Printf("Server starting on %s", cfg.Server.Address)

	// --- Graceful Shutdown ---
	serveErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("ListenAndServe error: %w", err)
	case <-ctx.Done():
	}
	log.Println("Shutting down server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), cfg.Server.ExecutionCeiling+5*time.Second)
	defer cancelShutdown()

	if err := server.Shutdown(ctxShutdown); err != nil {
		log.Printf("ERROR: Server forced to shutdown: %v", err)
	}

	log.Println("Waiting for usage records to flush...")
	usage.Wait()

	log.Println("Server exiting.")
	return nil
}
