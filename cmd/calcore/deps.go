package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/ersonp/calcore/internal/application/handlers"
	"github.com/ersonp/calcore/internal/domain/entities"
	apperrors "github.com/ersonp/calcore/internal/domain/errors"
	"github.com/ersonp/calcore/internal/domain/ports"
	"github.com/ersonp/calcore/internal/domain/services"
	"github.com/ersonp/calcore/internal/infrastructure/cache/memory"
	"github.com/ersonp/calcore/internal/infrastructure/config"
	"github.com/ersonp/calcore/internal/infrastructure/relationaldb/sqlite"
	"github.com/ersonp/calcore/internal/infrastructure/telemetry"
)

// Deps holds high-level dependencies for commands.
// Only handlers are exposed - services and repositories are internal.
type Deps struct {
	Config      *config.Config
	Principal   entities.Principal
	Events      *handlers.EventHandler
	Permissions *handlers.PermissionHandler
	History     *handlers.HistoryHandler
}

// withDeps loads config, opens the store and cache and builds the handlers,
// then calls fn. It handles cleanup automatically.
func withDeps(ctx context.Context, fn func(*Deps) error) error {
	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	cfg, err := config.Load(cwd)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	principal, err := resolvePrincipal(globalUser, cfg)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg.Log)

	store, err := sqlite.NewRepository(cfg.SQLite)
	if err != nil {
		return fmt.Errorf("creating sqlite repository: %w", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensuring sqlite schema: %w", err)
	}

	cache := memory.New(cfg.Cache)
	defer cache.Close()

	return fn(buildDeps(cfg, principal, store, cache, telemetry.NewRecorder(), logger))
}

// buildDeps wires services and handlers over the given collaborators.
func buildDeps(cfg *config.Config, principal entities.Principal, store ports.EventStore, cache ports.Cache, metrics ports.MetricsRecorder, logger *slog.Logger) *Deps {
	invalidator := services.NewCacheInvalidator(cache, cfg.Cache.TTL, logger)

	eventService := services.NewEventService(store, invalidator, metrics, logger)
	permissionService := services.NewPermissionService(store, invalidator, metrics, logger)
	historyService := services.NewHistoryService(store, eventService)

	return &Deps{
		Config:      cfg,
		Principal:   principal,
		Events:      handlers.NewEventHandler(eventService, permissionService),
		Permissions: handlers.NewPermissionHandler(permissionService),
		History:     handlers.NewHistoryHandler(historyService),
	}
}

// resolvePrincipal picks the acting user: the --as flag first, then the config.
func resolvePrincipal(flag string, cfg *config.Config) (entities.Principal, error) {
	user := strings.TrimSpace(flag)
	if user == "" {
		user = strings.TrimSpace(cfg.User)
	}
	if user == "" {
		return entities.Principal{}, apperrors.New(apperrors.CodeNotAuthorized,
			"no acting user (use --as, set user in the config or CALCORE_USER)")
	}
	return entities.Principal{ID: user}, nil
}
