package handlers

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ersonp/calcore/internal/domain/mocks"
	"github.com/ersonp/calcore/internal/domain/ports"
	"github.com/ersonp/calcore/internal/infrastructure/config"
)

func TestInitHandler_Handle(t *testing.T) {
	tmpDir := t.TempDir()

	var opened config.SQLiteConfig
	handler := NewInitHandler(func(cfg config.SQLiteConfig) (ports.EventStore, error) {
		opened = cfg
		return mocks.NewEventStore(), nil
	})

	result, err := handler.Handle(context.Background(), tmpDir, "")
	require.NoError(t, err)
	assert.Equal(t, config.ConfigFilePath(tmpDir), result.ConfigPath)
	assert.Equal(t, filepath.Join(tmpDir, ".calcore", "calcore.db"), result.DatabasePath)
	assert.Equal(t, result.DatabasePath, opened.Path)
	assert.True(t, config.Exists(tmpDir))

	_, err = handler.Handle(context.Background(), tmpDir, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already initialized")
}

func TestInitHandler_Handle_WithUser(t *testing.T) {
	tmpDir := t.TempDir()
	handler := NewInitHandler(func(config.SQLiteConfig) (ports.EventStore, error) {
		return mocks.NewEventStore(), nil
	})

	result, err := handler.Handle(context.Background(), tmpDir, "alice")
	require.NoError(t, err)
	assert.Equal(t, "alice", result.User)

	cfg, err := config.Load(tmpDir)
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.User)
	assert.Equal(t, config.DefaultCacheTTL, cfg.Cache.TTL)
}

func TestInitHandler_Handle_StoreError(t *testing.T) {
	handler := NewInitHandler(func(config.SQLiteConfig) (ports.EventStore, error) {
		return nil, errors.New("disk full")
	})

	_, err := handler.Handle(context.Background(), t.TempDir(), "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
