package repository

import (
	"errors"
	"fmt"
	"strings"

	"github.com/glebarez/sqlite"
	"github.com/snupai/shortlink/internal/model"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ErrDuplicate is returned when an insert violates a unique index
var ErrDuplicate = errors.New("duplicate key")

// Options configures the database connection
type Options struct {
	Driver       string // mysql | postgres | sqlite
	DSN          string
	MaxIdleConns int
	MaxOpenConns int
	Debug        bool
}

// Open connects to the configured database and migrates all tables
func Open(opts Options) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch opts.Driver {
	case "mysql":
		dialector = mysql.Open(opts.DSN)
	case "postgres":
		dialector = postgres.Open(opts.DSN)
	case "sqlite":
		dialector = sqlite.Open(opts.DSN)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", opts.Driver)
	}

	logLevel := logger.Warn
	if opts.Debug {
		logLevel = logger.Info
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logLevel),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if opts.Driver == "sqlite" {
		// a single writer avoids SQLITE_BUSY under concurrent requests
		sqlDB.SetMaxOpenConns(1)
	} else {
		if opts.MaxIdleConns > 0 {
			sqlDB.SetMaxIdleConns(opts.MaxIdleConns)
		}
		if opts.MaxOpenConns > 0 {
			sqlDB.SetMaxOpenConns(opts.MaxOpenConns)
		}
	}

	// Auto-migrate tables
	migrator := db
	if suffix := tableOptions(opts.Driver); suffix != "" {
		migrator = db.Set("gorm:table_options", suffix)
	}
	if err := migrator.AutoMigrate(model.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return db, nil
}

// tableOptions returns the CREATE TABLE suffix for driver. Slugs are case
// sensitive, so MySQL tables use a binary collation instead of the
// server's case-insensitive default.
func tableOptions(driver string) string {
	if driver == "mysql" {
		return "ENGINE=InnoDB DEFAULT CHARSET=utf8mb4 COLLATE=utf8mb4_bin"
	}
	return ""
}

// Close closes the database connection
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// translateError maps unique-index violations to ErrDuplicate. TranslateError
// covers most drivers; the message checks catch the rest.
func translateError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return ErrDuplicate
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unique constraint failed"),
		strings.Contains(msg, "duplicate entry"),
		strings.Contains(msg, "duplicate key value"),
		strings.Contains(msg, "sqlstate 23505"):
		return ErrDuplicate
	}
	return err
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
