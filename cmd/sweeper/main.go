package main

import (
	"context"
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
	pkgredis "github.com/clientflow-hq/clientflow/internal/pkg/redis"
	"github.com/clientflow-hq/clientflow/internal/reminder"
	"github.com/robfig/cron/v3"
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
		Str("service", "sweeper").
		Str("interval", cfg.Sweep.Interval).
		Msg("Starting sweeper service")

	db, err := database.NewGormDB(&cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	redisClient, err := pkgredis.NewClient(&cfg.Redis)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}

	appointmentRepo := repositories.NewAppointmentRepository(db)
	reminderRepo := repositories.NewReminderRepository(db)
	logRepo := repositories.NewNotificationLogRepository(db)
	templateRepo := repositories.NewTemplateRepository(db)
	executionRepo := repositories.NewExecutionRepository(db)

	resolver := notify.NewTemplateResolver(templateRepo)
	channels := notify.NewRegistry(
		notify.NewEmailChannel(&cfg.SMTP),
		notify.NewSMSChannel(&cfg.SMS),
	)

	lease := reminder.NewRedisLease(redisClient, cfg.Sweep.LeaseTTL)

	sweeper := reminder.NewSweeper(reminderRepo, appointmentRepo, logRepo, resolver, channels, lease, reminder.SweeperConfig{
		BatchSize:       cfg.Sweep.BatchSize,
		DeliveryTimeout: cfg.Sweep.DeliveryTimeout,
		DeliveryRate:    cfg.Sweep.DeliveryRate,
	})

	c := cron.New()

	_, err = c.AddFunc(cfg.Sweep.Interval, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()

		if _, err := sweeper.ReleaseStale(ctx, cfg.Sweep.StaleClaim); err != nil {
			log.Error().Err(err).Msg("Stale claim release failed")
		}

		if _, err := sweeper.ProcessPending(ctx, time.Now()); err != nil {
			log.Error().Err(err).Msg("Sweep failed")
		}

		if _, err := engine.FailStaleExecutions(ctx, executionRepo, cfg.Sweep.StaleExecution); err != nil {
			log.Error().Err(err).Msg("Stale execution reap failed")
		}
	})
	if err != nil {
		log.Fatal().Err(err).Str("interval", cfg.Sweep.Interval).Msg("Invalid sweep interval")
	}

	c.Start()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Received shutdown signal")

	stopCtx := c.Stop()
	<-stopCtx.Done()

	log.Info().Msg("Sweeper service stopped")
}
