package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/api"
	"github.com/saturnino-fabrica-de-software/ponto/internal/api/middleware"
	"github.com/saturnino-fabrica-de-software/ponto/internal/audit"
	"github.com/saturnino-fabrica-de-software/ponto/internal/config"
	"github.com/saturnino-fabrica-de-software/ponto/internal/database"
	"github.com/saturnino-fabrica-de-software/ponto/internal/dispatch"
	"github.com/saturnino-fabrica-de-software/ponto/internal/embedding"
	"github.com/saturnino-fabrica-de-software/ponto/internal/liveness"
	"github.com/saturnino-fabrica-de-software/ponto/internal/metrics"
	"github.com/saturnino-fabrica-de-software/ponto/internal/orchestrator"
	"github.com/saturnino-fabrica-de-software/ponto/internal/repository"
	"github.com/saturnino-fabrica-de-software/ponto/internal/service"
	"github.com/saturnino-fabrica-de-software/ponto/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment, cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("starting ponto attendance kiosk",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("signal_provider", cfg.SignalProvider),
		slog.String("model_provider", cfg.ModelProvider),
		slog.String("transport", cfg.Transport),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Storage
	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	identities := repository.NewIdentityRepository(pool)
	events := repository.NewAttendanceRepository(pool)

	// Providers
	kioskDetector, enrollDetector, err := newDetectors(ctx, cfg)
	if err != nil {
		return err
	}
	model, err := newModel(cfg)
	if err != nil {
		return err
	}
	extractor := embedding.NewExtractor(model, embedding.Config{
		InputSize:   cfg.ModelInputSize,
		Dimension:   cfg.EmbeddingDim,
		MarginRatio: cfg.FaceMargin,
	})

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	// Calibration
	calibration, err := config.NewCalibrationLoader(cfg.CalibrationFile, config.Calibration{
		Liveness:       liveness.DefaultThresholds(),
		MatchThreshold: cfg.MatchThreshold,
	}, logger)
	if err != nil {
		return fmt.Errorf("failed to load calibration: %w", err)
	}
	stopWatch, err := calibration.Watch()
	if err != nil {
		return fmt.Errorf("failed to watch calibration: %w", err)
	}
	defer stopWatch()

	// Pipeline
	auditLogger := audit.NewSlogLogger(logger)
	dispatcher := dispatch.NewDispatcher(publisher, events, logger, dispatch.WithTimeout(cfg.DeliveryTimeout))
	kiosk := orchestrator.New(kioskDetector, extractor, identities, dispatcher, auditLogger, calibration.Calibration(),
		orchestrator.Config{Cooldown: cfg.Cooldown, NoFaceResetFrames: cfg.NoFaceResetFrames}, logger)
	calibration.OnChange(kiosk.SetCalibration)

	hub := ws.NewHub()
	kiosk.OnUpdate(hub.StatusUpdated)

	resyncer := dispatch.NewResyncer(publisher, events, cfg.ResyncInterval, cfg.DeliveryTimeout, logger)
	aggregator := metrics.NewAggregator(logger, cfg.MetricsRefresh,
		metrics.PendingProbe(events),
		metrics.IdentityProbe(identities),
	)

	go hub.Run(ctx)
	go resyncer.Run(ctx)
	go aggregator.Start(ctx)
	go func() {
		_ = kiosk.Run(ctx)
	}()

	router := api.NewRouter(logger, &api.Dependencies{
		APIToken:   cfg.APIToken,
		Identities: service.NewEnrollmentService(identities, enrollDetector, extractor, auditLogger),
		Attendance: service.NewAttendanceService(events, resyncer, auditLogger),
		Kiosk:      kiosk,
		Hub:        hub,
		DB:         pool,
		RateLimit: middleware.RateLimiterConfig{
			Max:    cfg.RateLimitMax,
			Window: cfg.RateLimitWindow,
		},
	})
	router.Setup()

	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	shutdownErr := make(chan error, 1)
	go func() { shutdownErr <- router.Shutdown() }()

	select {
	case err := <-shutdownErr:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Warn("shutdown timed out")
	}

	logger.Info("server stopped")
	return nil
}
