package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
	"go.uber.org/zap"

	"github.com/careagent/medai/internal/adapter/ai/openai"
	"github.com/careagent/medai/internal/adapter/backend"
	"github.com/careagent/medai/internal/adapter/cache"
	"github.com/careagent/medai/internal/adapter/http/fiber/handlers"
	"github.com/careagent/medai/internal/adapter/http/fiber/middleware"
	"github.com/careagent/medai/internal/adapter/vault"
	"github.com/careagent/medai/internal/observability/telemetry"
	"github.com/careagent/medai/internal/ports"
	"github.com/careagent/medai/internal/service/chat"
	"github.com/careagent/medai/internal/service/extract"
	"github.com/careagent/medai/internal/service/health"
	"github.com/careagent/medai/internal/service/intent"
	"github.com/careagent/medai/internal/service/mode"
	"github.com/careagent/medai/internal/service/speech"
	"github.com/careagent/medai/pkg/config"
)

func main() {
	// 1. Initialize Logger
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to initialize logger:", err)
	}
	defer logger.Sync()

	// 2. Load Configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if cfg.App.Environment == "development" {
		devLogger, err := zap.NewDevelopment()
		if err == nil {
			logger = devLogger
		}
	}

	logger.Info("Starting MedAI orchestrator",
		zap.String("service", cfg.App.Name),
		zap.String("version", cfg.App.Version),
		zap.String("environment", cfg.App.Environment),
	)

	// 3. Initialize OpenTelemetry (Distributed Tracing)
	if cfg.OpenTelemetry.Enabled {
		tracerProvider, err := telemetry.InitTracer(cfg.App.Name, cfg.App.Version, cfg.OpenTelemetry.JaegerEndpoint)
		if err != nil {
			logger.Fatal("Failed to initialize tracer", zap.Error(err))
		}
		defer func() {
			if err := tracerProvider.Shutdown(context.Background()); err != nil {
				logger.Error("Error shutting down tracer provider", zap.Error(err))
			}
		}()
	}

	// 4. Resolve secrets. Vault wins over env when enabled; values are
	// opaque and never logged.
	if cfg.Vault.Enabled {
		secrets, err := vault.NewSecretManager(cfg.Vault.Address, cfg.Vault.Token)
		if err != nil {
			logger.Fatal("Failed to connect to Vault", zap.Error(err))
		}
		if key, err := secrets.AIProviderKey(); err == nil {
			cfg.OpenAI.APIKey = key
		} else {
			logger.Warn("AI provider key not in Vault, falling back to env", zap.Error(err))
		}
		if token, err := secrets.BackendToken(); err == nil {
			cfg.Backend.AccessToken = token
		} else {
			logger.Warn("Backend token not in Vault, falling back to env", zap.Error(err))
		}
	}

	// 5. Initialize Cache (Redis with in-memory fallback)
	var cacheStore ports.Cache
	if cfg.Redis.URL != "" {
		cacheStore, err = cache.NewRedisCache(cfg.Redis, logger)
		if err != nil {
			logger.Warn("Redis unavailable, using local cache", zap.Error(err))
			cacheStore = cache.NewLocalCache(time.Minute, logger)
		}
	} else {
		cacheStore = cache.NewLocalCache(time.Minute, logger)
	}
	defer cacheStore.Close()

	// 6. Initialize Capability Adapters
	aiClient := openai.NewClient(cfg.OpenAI, logger)
	backendClient := backend.NewClient(cfg.Backend, cacheStore, logger)

	// 7. Initialize Services (Business Logic Layer)
	speechService := speech.NewService(aiClient, aiClient, cfg.TTS, logger)
	extractService := extract.NewService(aiClient, cfg.LabRanges.Ranges, logger)
	classifier := intent.NewClassifier(aiClient, cfg.Intent.ConfidenceThreshold, logger)
	orchestrator := chat.NewOrchestrator(
		mode.NewResolver(logger),
		aiClient,
		aiClient,
		extractService,
		classifier,
		backendClient,
		chat.NewAssembler(speechService),
		logger,
	)

	healthService := health.NewService(&health.Config{
		Version: cfg.App.Version,
		Cache:   cacheStore,
		AI:      aiClient,
		Backend: backendClient,
	}, logger)

	// 8. Initialize Fiber HTTP Server
	app := fiber.New(fiber.Config{
		AppName:               cfg.App.Name,
		ServerHeader:          cfg.App.Name,
		DisableStartupMessage: true,
		ReadTimeout:           cfg.HTTP.ReadTimeout,
		WriteTimeout:          cfg.HTTP.WriteTimeout,
		BodyLimit:             cfg.HTTP.BodyLimit,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	// Global Middleware
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(middleware.NewCORS(cfg.CORS))
	if cfg.RateLimiting.Enabled {
		app.Use(limiter.New(limiter.Config{
			Max:        cfg.RateLimiting.MaxRequests,
			Expiration: cfg.RateLimiting.Window,
		}))
	}
	if cfg.CircuitBreaker.Enabled {
		app.Use(middleware.CircuitBreaker(cfg.CircuitBreaker, logger))
	}

	// Health Check Endpoints
	health.NewFiberHandler(healthService).RegisterRoutes(app)

	// Metrics endpoint for Prometheus
	if cfg.Prometheus.Enabled {
		app.Get(cfg.Prometheus.Path, func(c *fiber.Ctx) error {
			handler := fasthttpadaptor.NewFastHTTPHandler(promhttp.Handler())
			handler(c.Context())
			return nil
		})
	}

	// API v1 Routes
	v1 := app.Group("/api/v1")

	voiceHandler := handlers.NewVoiceHandler(speechService, logger)
	v1.Post("/voice/stt", voiceHandler.Transcribe)
	v1.Post("/voice/tts", voiceHandler.Synthesize)

	ocrHandler := handlers.NewOCRHandler(aiClient, logger)
	v1.Post("/ocr/extract", ocrHandler.Extract)

	extractHandler := handlers.NewExtractHandler(extractService, classifier, logger)
	v1.Post("/extract/prescription", extractHandler.Prescription)
	v1.Post("/extract/prescription-backend", extractHandler.PrescriptionBackend)
	v1.Post("/extract/voice-intent", extractHandler.VoiceIntent)
	v1.Post("/extract/lab-report", extractHandler.LabReport)

	chatHandler := handlers.NewChatHandler(orchestrator, logger)
	v1.Post("/ai/chat", chatHandler.Chat)

	// 9. Start HTTP Server
	go func() {
		logger.Info("Starting HTTP Server", zap.Int("port", cfg.HTTP.Port))
		if err := app.Listen(fmt.Sprintf(":%d", cfg.HTTP.Port)); err != nil {
			logger.Fatal("HTTP Server failed", zap.Error(err))
		}
	}()

	// 10. Graceful Shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(ctx); err != nil {
		logger.Fatal("Server forced to shutdown", zap.Error(err))
	}

	logger.Info("Server exited gracefully")
}
