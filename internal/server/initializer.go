package server

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/config"
	"github.com/noot-app/mealbasket-mcp-server/internal/dataset"
)

// Initializer prepares the catalog file and opens the catalog source for both transports
type Initializer struct {
	config      *config.Config
	log         *slog.Logger
	dataManager *dataset.Manager
}

// NewInitializer creates a new server initializer
func NewInitializer(cfg *config.Config, logger *slog.Logger) *Initializer {
	return &Initializer{
		config:      cfg,
		log:         logger,
		dataManager: dataset.NewManager(cfg, logger),
	}
}

// Initialize ensures the catalog file exists and returns a tested catalog source.
// The caller owns the source and must Close it.
func (si *Initializer) Initialize(ctx context.Context) (catalog.Source, error) {
	start := time.Now()
	si.log.Info("Initializing server...", "backend", si.config.Catalog.Backend)

	if _, err := si.dataManager.EnsureCatalog(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure catalog: %w", err)
	}

	source, err := catalog.NewSource(ctx, si.config.Catalog.Backend, si.dataManager.CatalogPath(), si.log)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}

	if err := source.TestConnection(ctx); err != nil {
		source.Close()
		return nil, fmt.Errorf("failed to test connection: %w", err)
	}

	si.log.Info("Server initialized successfully", "duration", time.Since(start))
	return source, nil
}

// RefreshCatalog re-checks the catalog file and reloads the source when it changed
func (si *Initializer) RefreshCatalog(ctx context.Context, source catalog.Source) error {
	updated, err := si.dataManager.EnsureCatalog(ctx)
	if err != nil {
		return err
	}
	if !updated {
		return nil
	}
	if err := source.Reload(ctx, si.dataManager.CatalogPath()); err != nil {
		return fmt.Errorf("failed to reload catalog: %w", err)
	}
	si.log.Info("Catalog reloaded", "path", si.dataManager.CatalogPath())
	return nil
}

// StartRefreshLoop refreshes the catalog on the configured interval until ctx is done.
// It does nothing when the interval is zero.
func (si *Initializer) StartRefreshLoop(ctx context.Context, source catalog.Source) {
	interval := si.config.RefreshInterval()
	if interval <= 0 {
		return
	}
	si.log.Info("Starting refresh loop", "interval", interval)

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				si.log.Info("Refresh loop stopping due to context cancellation")
				return
			case <-ticker.C:
				si.log.Info("Refresh tick: checking catalog")
				if err := si.RefreshCatalog(ctx, source); err != nil {
					si.log.Error("Refresh failed", "error", err)
				}
			}
		}
	}()
}

// FetchCatalog downloads or seeds the catalog file without opening it
func (si *Initializer) FetchCatalog(ctx context.Context) (*dataset.Metadata, error) {
	if _, err := si.dataManager.EnsureCatalog(ctx); err != nil {
		return nil, fmt.Errorf("failed to ensure catalog: %w", err)
	}
	return si.dataManager.LoadMetadata()
}
