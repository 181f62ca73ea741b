package database

import (
	"fmt"
	"strings"
	"time"

	"storefront/internal/logger"
	"storefront/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type Database struct {
	DB *gorm.DB
}

// gormWriter sends gorm's log lines through the application logger.
type gormWriter struct {
	log   *logger.Logger
	debug bool
}

func (w gormWriter) Printf(format string, args ...interface{}) {
	if w.debug {
		w.log.Debug(format, args...)
		return
	}
	w.log.Warn(format, args...)
}

func newGormLogger(log *logger.Logger, debug bool) gormlogger.Interface {
	level := gormlogger.Warn
	if debug {
		level = gormlogger.Info
	}
	return gormlogger.New(gormWriter{log: log, debug: debug}, gormlogger.Config{
		SlowThreshold: 200 * time.Millisecond,
		LogLevel:      level,
		// lookups by payment ref and stock rows miss on the normal path
		IgnoreRecordNotFoundError: true,
	})
}

func New(databaseURL string, debug bool, log *logger.Logger) (*Database, error) {
	var db *gorm.DB
	var err error

	gormConfig := &gorm.Config{
		Logger:         newGormLogger(log, debug),
		TranslateError: true,
		// cart lines may outlive the variant they point at; pricing reports them as stale
		DisableForeignKeyConstraintWhenMigrating: true,
	}

	sqliteDB := strings.HasPrefix(databaseURL, "sqlite://")
	if sqliteDB {
		// SQLite for development and tests
		dbPath := strings.TrimPrefix(databaseURL, "sqlite://")
		db, err = gorm.Open(sqlite.Open(dbPath), gormConfig)
	} else {
		// PostgreSQL for production
		db, err = gorm.Open(postgres.Open(databaseURL), gormConfig)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if sqliteDB {
		// sqlite allows a single writer; one connection keeps transactions from colliding
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("failed to get sql handle: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return &Database{DB: db}, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
