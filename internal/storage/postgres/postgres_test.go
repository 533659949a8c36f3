package postgres

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/OCAP2/portalview/internal/config"
	"github.com/OCAP2/portalview/internal/database"
	"github.com/OCAP2/portalview/internal/storage"
	"github.com/OCAP2/portalview/internal/storage/storagetest"
)

var (
	_ storage.Backend     = (*Backend)(nil)
	_ storage.CameraStore = (*Backend)(nil)
)

func sqliteOpener(t *testing.T) Opener {
	path := filepath.Join(t.TempDir(), "pg.db")
	return func(config.DBConfig) (*gorm.DB, error) {
		return database.GetSqliteDB(path)
	}
}

func TestBackend(t *testing.T) {
	b, err := NewWithOpener(config.DBConfig{Host: "local"}, nil, sqliteOpener(t))
	require.NoError(t, err)
	require.NoError(t, b.Init())
	t.Cleanup(func() { _ = b.Close() })

	storagetest.Run(t, b)
	storagetest.RunCameras(t, b, b.Flush)
}

func TestNew_OpenFailure(t *testing.T) {
	boom := errors.New("refused")
	_, err := NewWithOpener(config.DBConfig{}, nil, func(config.DBConfig) (*gorm.DB, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestNew_Unreachable(t *testing.T) {
	if testing.Short() {
		t.Skip("dials the network")
	}
	_, err := New(config.DBConfig{Host: "127.0.0.1", Port: "1", Username: "u", Password: "p", Database: "x"}, nil)
	assert.Error(t, err)
}
