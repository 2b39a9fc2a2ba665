// Package handlers contains application use case handlers.
package handlers

import (
	"context"
	"fmt"

	"github.com/ersonp/calcore/internal/domain/ports"
	"github.com/ersonp/calcore/internal/infrastructure/config"
)

// StoreOpener opens the event store described by cfg.
type StoreOpener func(cfg config.SQLiteConfig) (ports.EventStore, error)

// InitHandler handles project initialization.
type InitHandler struct {
	openStore StoreOpener
}

// NewInitHandler creates a new init handler.
func NewInitHandler(openStore StoreOpener) *InitHandler {
	return &InitHandler{
		openStore: openStore,
	}
}

// InitResult contains the result of initialization.
type InitResult struct {
	ConfigPath   string `json:"config_path"`
	DatabasePath string `json:"database_path"`
	User         string `json:"user,omitempty"`
}

// Handle writes the default config under basePath and creates the store
// schema. A non-empty user is saved as the default principal.
func (h *InitHandler) Handle(ctx context.Context, basePath, user string) (*InitResult, error) {
	if config.Exists(basePath) {
		return nil, fmt.Errorf("calcore already initialized in %s", basePath)
	}

	if user == "" {
		if err := config.WriteDefault(basePath); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}
	} else {
		cfg := config.Default()
		cfg.User = user
		if err := config.Write(basePath, cfg); err != nil {
			return nil, fmt.Errorf("writing config: %w", err)
		}
	}

	cfg, err := config.Load(basePath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}

	store, err := h.openStore(cfg.SQLite)
	if err != nil {
		return nil, fmt.Errorf("opening event store: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return &InitResult{
		ConfigPath:   config.ConfigFilePath(basePath),
		DatabasePath: cfg.SQLite.Path,
		User:         cfg.User,
	}, nil
}
