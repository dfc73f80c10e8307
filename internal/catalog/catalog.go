// Package catalog provides product lookup by search term or category key
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/noot-app/mealbasket-mcp-server/internal/types"
)

// Backend names accepted by NewSource
const (
	BackendMemory = "memory"
	BackendDuckDB = "duckdb"
	BackendMock   = "mock"
)

var ErrProductNotFound = errors.New("product not found")

// Catalog is the read-only lookup consumed by the basket builder and the substitution engine.
// An unknown term yields an empty result; errors are reserved for backend failures.
type Catalog interface {
	Search(ctx context.Context, term string, limit int) ([]types.Product, error)
	ByCategory(ctx context.Context, category string) ([]types.Product, error)
	All(ctx context.Context) ([]types.Product, error)
}

// Source is a Catalog backed by a catalog file that can be reloaded in place
type Source interface {
	Catalog
	Categories(ctx context.Context) ([]string, error)
	TestConnection(ctx context.Context) error
	Reload(ctx context.Context, path string) error
	Close() error
}

// NewSource opens the catalog file with the named backend
func NewSource(ctx context.Context, backend, path string, logger *slog.Logger) (Source, error) {
	switch strings.ToLower(backend) {
	case "", BackendMemory:
		return LoadIndex(path, logger)
	case BackendDuckDB:
		return NewEngine(ctx, path, logger)
	case BackendMock:
		products, err := Seed()
		if err != nil {
			return nil, err
		}
		return NewMock(products), nil
	default:
		return nil, fmt.Errorf("unknown catalog backend %q", backend)
	}
}

// Find looks a product up by ID
func Find(ctx context.Context, c Catalog, id string) (*types.Product, error) {
	products, err := c.All(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list catalog: %w", err)
	}
	for i := range products {
		if products[i].ID == id {
			return &products[i], nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrProductNotFound, id)
}

func normalizeKey(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
