// Package data owns database connectivity and migrations.
package data

import (
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	types "github.com/dealdesk/intake-backend/internal/domain"
	"github.com/dealdesk/intake-backend/internal/platform/config"
	"github.com/dealdesk/intake-backend/internal/platform/logger"
)

func NewPostgres(cfg config.DatabaseConfig, baseLog *logger.Logger) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}

	baseLog.Info("connected to postgres", "host", cfg.Host, "db", cfg.DBName)
	return db, nil
}

func AutoMigrateAll(db *gorm.DB) error {
	if err := db.Exec(`CREATE EXTENSION IF NOT EXISTS "uuid-ossp";`).Error; err != nil {
		return fmt.Errorf("ensure uuid extension: %w", err)
	}
	return db.AutoMigrate(
		&types.Deal{},
		&types.Party{},
		&types.Document{},
	)
}
