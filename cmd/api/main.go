package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clientflow-hq/clientflow/internal/api"
	"github.com/clientflow-hq/clientflow/internal/domain/repositories"
	"github.com/clientflow-hq/clientflow/internal/domain/services"
	"github.com/clientflow-hq/clientflow/internal/pkg/config"
	"github.com/clientflow-hq/clientflow/internal/pkg/database"
	"github.com/clientflow-hq/clientflow/internal/pkg/logger"
	"github.com/clientflow-hq/clientflow/internal/pkg/queue"
	pkgredis "github.com/clientflow-hq/clientflow/internal/pkg/redis"
	"github.com/clientflow-hq/clientflow/internal/reminder"
	"github.com/rs/zerolog/log"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logger.Init(cfg.App.Environment, cfg.App.Debug)

	log.Info().
		Str("app", cfg.App.Name).
		Str("service", "api").
		Msg("Starting API service")

	db, err := database.NewGormDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	if err := database.AutoMigrate(db); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redisClient, err := pkgredis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	queueClient := queue.NewClient(&cfg.Redis)
	defer queueClient.Close()

	workflowRepo := repositories.NewWorkflowRepository(db)
	executionRepo := repositories.NewExecutionRepository(db)
	appointmentRepo := repositories.NewAppointmentRepository(db)
	reminderRepo := repositories.NewReminderRepository(db)

	workflowService := services.NewWorkflowService(workflowRepo, executionRepo, queueClient)
	scheduler := reminder.NewScheduler(appointmentRepo, reminderRepo)

	server := api.NewServer(cfg, workflowService, scheduler, redisClient, db)

	go func() {
		if err := server.Start(); err != nil {
			log.Fatal().Err(err).Msg("API server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to shut down cleanly")
	}

	log.Info().Msg("API service stopped")
}
