package main

import (
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/clientflow-hq/clientflow/internal/domain/repositories"
	"github.com/clientflow-hq/clientflow/internal/engine"
	"github.com/clientflow-hq/clientflow/internal/notify"
	"github.com/clientflow-hq/clientflow/internal/pkg/config"
	"github.com/clientflow-hq/clientflow/internal/pkg/database"
	"github.com/clientflow-hq/clientflow/internal/pkg/logger"
	"github.com/clientflow-hq/clientflow/internal/pkg/queue"
	"github.com/clientflow-hq/clientflow/internal/worker"
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
		Str("service", "worker").
		Int("concurrency", cfg.Worker.Concurrency).
		Msg("Starting worker service")

	db, err := database.NewGormDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	workflowRepo := repositories.NewWorkflowRepository(db)
	executionRepo := repositories.NewExecutionRepository(db)
	templateRepo := repositories.NewTemplateRepository(db)

	resolver := notify.NewTemplateResolver(templateRepo)
	emailChannel := notify.NewEmailChannel(&cfg.SMTP)
	smsChannel := notify.NewSMSChannel(&cfg.SMS)

	registry := engine.NewExecutorRegistry(
		engine.NewNotifyExecutor(emailChannel, resolver, cfg.Sweep.DeliveryTimeout),
		engine.NewNotifyExecutor(smsChannel, resolver, cfg.Sweep.DeliveryTimeout),
		engine.NewWebhookExecutor(30*time.Second),
		&engine.SetVariableExecutor{},
		engine.NewWaitExecutor(5*time.Minute),
	)

	eng := engine.New(workflowRepo, executionRepo, registry)

	server := queue.NewServer(&cfg.Redis, cfg.Worker.Concurrency)
	worker.New(eng).Register(server)

	if err := server.Start(); err != nil {
		log.Fatal().Err(err).Msg("Failed to start queue server")
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")
	server.Shutdown()
	log.Info().Msg("Worker service stopped")
}
