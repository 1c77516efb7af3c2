package database

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/abimbolaoige/KFM-Counsel-Chat/models"
)

// Init opens the document store. "memory" or an empty DSN selects a shared
// in-memory SQLite database; anything else is a SQLite file path whose
// directory is created if missing.
func Init(dsn string, log *zap.Logger) (*gorm.DB, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("Database")

	gormLogger := logger.New(
		zap.NewStdLog(log),
		logger.Config{
			SlowThreshold:             200 * time.Millisecond, // gorm logger.Default threshold
			LogLevel:                  logger.Warn,
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	gormConfig := &gorm.Config{Logger: gormLogger}

	var (
		db  *gorm.DB
		err error
	)
	if dsn == "memory" || dsn == "" {
		log.Info("initializing in-memory SQLite database")
		db, err = gorm.Open(sqlite.Open("file::memory:?cache=shared"), gormConfig)
	} else {
		log.Info("initializing file-based SQLite database", zap.String("dsn", dsn))
		dbDir := filepath.Dir(dsn)
		if dbDir != "." && dbDir != "/" {
			if mkdirErr := os.MkdirAll(dbDir, 0o755); mkdirErr != nil {
				return nil, fmt.Errorf("failed to create database directory '%s': %w", dbDir, mkdirErr)
			}
		}
		db, err = gorm.Open(sqlite.Open(dsn), gormConfig)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database (DSN: '%s'): %w", dsn, err)
	}

	// SQLite allows one writer; a single connection also keeps the shared
	// in-memory database alive for the process lifetime.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}

	log.Info("database connection established")
	return db, nil
}

// Migrate creates or updates every table the server uses.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.TriageRecord{},
		&models.JournalEntry{},
		&models.PrayerRequest{},
		&models.Testimony{},
		&models.ChatMessage{},
		&models.EscalationRequest{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}
	return nil
}
