package main

import (
	"fmt"
	"log/slog"

	"github.com/OCAP2/portalview/internal/config"
	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/internal/storage/memory"
	pgstorage "github.com/OCAP2/portalview/internal/storage/postgres"
	sqlitestorage "github.com/OCAP2/portalview/internal/storage/sqlite"
)

// createStorageBackend builds the configured backend. Postgres falls back to
// SQLite when the server cannot be reached.
func createStorageBackend(storageCfg config.StorageConfig, dbCfg config.DBConfig, logger *slog.Logger) (storage.Backend, error) {
	switch storageCfg.Type {
	case "postgres":
		backend, err := pgstorage.New(dbCfg, logger)
		if err == nil {
			logger.Info("Postgres storage backend initialized", "host", dbCfg.Host)
			return backend, nil
		}
		logger.Error("Failed to connect to Postgres, trying SQLite", "error", err)
		fallthrough

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "memory", "":
		logger.Info("Memory storage backend initialized", "snapshot", storageCfg.Memory.SnapshotPath)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type: %s", storageCfg.Type)
	}
}
