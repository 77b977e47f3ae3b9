package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"envmon/config"
	"envmon/controllers"
	"envmon/importer"
	"envmon/jobs"
	"envmon/logger"
	"envmon/services"
	"envmon/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	zapLogger, err := logger.NewLogger(cfg.Log.Level, cfg.Log.Format, "envmon")
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() { _ = zapLogger.Sync() }()

	if err := run(cfg, zapLogger); err != nil {
		zapLogger.Fatal("Server exited with error", zap.Error(err))
	}
}

func run(cfg *config.Config, zapLogger *zap.Logger) error {
	ctx := context.Background()

	db, err := config.OpenDatabase(cfg.Database)
	if err != nil {
		return err
	}
	if err := config.Migrate(db); err != nil {
		return err
	}

	thresholds, err := utils.LoadThresholds(cfg.Sensors.ThresholdsFile)
	if err != nil {
		return err
	}
	validator := utils.NewValidator(zapLogger)
	hub := controllers.NewHub(zapLogger, cfg.AllowedOrigins)

	users := services.NewUserService(db, zapLogger)
	sensors := services.NewSensorService(db, zapLogger, cfg.Sensors.CalibrationInterval, cfg.Sensors.FirmwareUpdateDelay)
	maintenance := services.NewMaintenanceService(db, zapLogger)
	malfunctions := services.NewMalfunctionService(db, zapLogger)
	settings := services.NewSettingsService(db, zapLogger)
	env := services.NewEnvironmentalService(db, zapLogger, thresholds)
	alerts := services.NewAlertService(db, zapLogger)
	readings := services.NewReadingService(env, sensors, settings, alerts, thresholds, validator, hub, zapLogger)
	dashboard := services.NewDashboardService(users, sensors, malfunctions, maintenance, alerts, env)

	if err := settings.Init(ctx); err != nil {
		return err
	}
	if _, err := users.EnsureAdmin(ctx, cfg.Auth.AdminUsername, cfg.Auth.AdminPassword); err != nil {
		return err
	}
	if cfg.Import.SeedSensors {
		if _, err := importer.SeedSensors(ctx, sensors, zapLogger); err != nil {
			return err
		}
	}
	if cfg.Import.ImportOnStartup {
		results, err := importer.NewImporter(db, zapLogger, validator).ImportAll(ctx, cfg.Import.DataDir)
		if err != nil {
			return err
		}
		for _, r := range results {
			zapLogger.Info("Sample data import",
				zap.String("file", r.File),
				zap.Bool("skipped", r.Skipped),
				zap.Int("imported", r.Imported),
				zap.Int("failed", r.Failed),
			)
		}
	}

	scheduler, err := jobs.NewScheduler(
		jobs.New(sensors, alerts, settings, env, hub, zapLogger),
		zapLogger,
		cfg.Jobs.CalibrationCheckSpec,
		cfg.Jobs.RetentionPurgeSpec,
	)
	if err != nil {
		return err
	}
	scheduler.Start()

	gin.SetMode(gin.ReleaseMode)
	router := controllers.NewRouter(controllers.RouterConfig{
		Logger:         zapLogger,
		JWTSecret:      cfg.Auth.JWTSecret,
		TokenTTL:       cfg.Auth.TokenTTL,
		AllowedOrigins: cfg.AllowedOrigins,
		Users:          users,
		Sensors:        sensors,
		Maintenance:    maintenance,
		Malfunctions:   malfunctions,
		Settings:       settings,
		Environment:    env,
		Alerts:         alerts,
		Readings:       readings,
		Dashboard:      dashboard,
		Thresholds:     thresholds,
		Hub:            hub,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serverErr := make(chan error, 1)
	go func() {
		zapLogger.Info("Starting server", zap.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		if err != nil {
			return err
		}
	case sig := <-quit:
		zapLogger.Info("Shutting down", zap.String("signal", sig.String()))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("Server shutdown failed", zap.Error(err))
	}
	scheduler.Stop(shutdownCtx)
	zapLogger.Info("Server stopped")
	return nil
}
