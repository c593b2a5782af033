package database

import (
	"fmt"

	"github.com/clientflow-hq/clientflow/internal/domain/models"
	"github.com/clientflow-hq/clientflow/internal/pkg/config"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func NewGormDB(cfg *config.DatabaseConfig) (*gorm.DB, error) {
	dsn := cfg.DSN()

	gormConfig := &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Warn),
		DisableForeignKeyConstraintWhenMigrating: true,
		PrepareStmt:                              true,
	}

	db, err := gorm.Open(postgres.Open(dsn), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)

	log.Info().Msg("Database connected successfully")

	return db, nil
}

func AutoMigrate(db *gorm.DB) error {
	log.Info().Msg("Running database migrations...")

	err := db.AutoMigrate(
		// Workflows
		&models.Workflow{},
		&models.Trigger{},
		&models.Action{},
		&models.Execution{},

		// Appointments & notifications
		&models.Appointment{},
		&models.AppointmentReminder{},
		&models.NotificationLog{},
		&models.MessageTemplate{},
	)
	if err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	log.Info().Msg("Database migrations completed")
	return nil
}
