// Package database manages the storage backends: the sqlite row store the
// application always carries, and the optional ClickHouse columnar store.
package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"proplens/internal/cohorts"
	"proplens/internal/config"
	"proplens/internal/events"
	"proplens/internal/users"
	"proplens/internal/websites"
)

// DBManager owns the row-store connection and its migrations.
type DBManager struct {
	cfg    *config.Config
	logger *slog.Logger
	db     *gorm.DB
}

// NewDBManager creates a new row-store manager.
func NewDBManager(cfg *config.Config, logger *slog.Logger) *DBManager {
	return &DBManager{cfg: cfg, logger: logger}
}

// Init opens the sqlite database with WAL and a busy timeout, and applies
// the configured pool limits.
func (dm *DBManager) Init() error {
	if dir := filepath.Dir(dm.cfg.DatabaseName); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create storage directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_txlock=immediate", dm.cfg.DatabaseName)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql.DB: %w", err)
	}
	sqlDB.SetMaxOpenConns(dm.cfg.GetMaxOpenConns())
	sqlDB.SetMaxIdleConns(dm.cfg.GetMaxIdleConns())
	sqlDB.SetConnMaxLifetime(time.Hour)

	dm.db = db
	return nil
}

// GetConnection returns the shared gorm connection.
func (dm *DBManager) GetConnection() *gorm.DB {
	return dm.db
}

// MigrateDatabase runs the schema migrations for the row store.
func (dm *DBManager) MigrateDatabase() error {
	if dm.db == nil {
		return gorm.ErrInvalidDB
	}

	err := dm.db.Transaction(func(tx *gorm.DB) error {
		return tx.AutoMigrate(Models()...)
	})
	if err != nil {
		dm.logger.Error("Failed to auto-migrate database", slog.Any("error", err))
		return err
	}

	dm.logger.Info("Database migration completed successfully")
	return nil
}

// Models returns every row-store model, in migration order.
func Models() []any {
	return []any{
		&users.User{},
		&websites.Website{},
		&websites.WebsiteUser{},
		&cohorts.Cohort{},
		&cohorts.CohortMember{},
		&events.Event{},
		&events.EventData{},
	}
}
