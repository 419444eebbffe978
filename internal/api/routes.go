package api

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"alcyxob/program-generator/internal/service"
)

// Services groups what the HTTP layer calls into.
type Services struct {
	Orchestrator service.PhaseOrchestrator
	Programs     service.ProgramService
	Credits      service.CreditService
	Usage        service.UsageRecorder
}

// RouteOptions carries HTTP-level settings.
type RouteOptions struct {
	JWTSecret      string
	AllowAnonymous bool
	Limiter        *RateLimiter
	Gatherer       prometheus.Gatherer // nil hides /metrics
	Logger         *slog.Logger
}

func SetupRoutes(router *gin.Engine, svc Services, opts RouteOptions) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	generationHandler := NewGenerationHandler(svc.Orchestrator, opts.AllowAnonymous, logger)
	programHandler := NewProgramHandler(svc.Programs, svc.Credits, svc.Usage, logger)

	router.Use(RequestIDMiddleware())

	router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	if opts.Gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})))
	}

	apiV1 := router.Group("/api/v1")

	// --- Generation ---
	// Anonymous callers may pass userId in the body when allowed.
	generate := apiV1.Group("/programs/generate")
	generate.Use(AuthMiddleware(opts.JWTSecret, opts.AllowAnonymous), RateLimitMiddleware(opts.Limiter))
	{
		// POST /api/v1/programs/generate/phase
		generate.POST("/phase", generationHandler.GeneratePhase)
	}

	protected := apiV1.Group("")
	protected.Use(AuthMiddleware(opts.JWTSecret, false))
	{
		// GET /api/v1/programs/{programId}
		protected.GET("/programs/:programId", programHandler.GetProgram)
		// GET /api/v1/credits
		protected.GET("/credits", programHandler.GetCredits)
		// GET /api/v1/generation-logs
		protected.GET("/generation-logs", programHandler.GetGenerationLogs)
	}
}
