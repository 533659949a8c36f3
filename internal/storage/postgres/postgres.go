// Package postgres implements the storage.Backend interface on PostgreSQL. It
// wraps the GORM backend and owns the connection pool.
package postgres

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/portalview/internal/config"
	"github.com/OCAP2/portalview/internal/database"
	gormstorage "github.com/OCAP2/portalview/internal/storage/gorm"

	"gorm.io/gorm"
)

// MaxOpenConns bounds the connection pool.
const MaxOpenConns = 10

// Opener opens a connection for cfg. Tests swap it for a SQLite opener.
type Opener func(cfg config.DBConfig) (*gorm.DB, error)

// Backend wraps the GORM backend with a Postgres connection.
type Backend struct {
	*gormstorage.Backend
	db *gorm.DB
}

// New connects to Postgres and validates the connection.
func New(cfg config.DBConfig, logger *slog.Logger) (*Backend, error) {
	return NewWithOpener(cfg, logger, database.GetPostgresDB)
}

// NewWithOpener is New with a custom connection opener.
func NewWithOpener(cfg config.DBConfig, logger *slog.Logger, open Opener) (*Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}
	db, err := open(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to postgres: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to access sql interface: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to validate connection: %w", err)
	}
	sqlDB.SetMaxOpenConns(MaxOpenConns)
	logger.Info("Connected to database", "host", cfg.Host, "database", cfg.Database)

	return &Backend{
		Backend: gormstorage.New(gormstorage.Dependencies{DB: db, Logger: logger}),
		db:      db,
	}, nil
}

// Close flushes the embedded backend and closes the pool.
func (b *Backend) Close() error {
	if err := b.Backend.Close(); err != nil {
		return err
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
