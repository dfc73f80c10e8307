package catalog

import (
	"context"
	"time"

	"github.com/noot-app/mealbasket-mcp-server/internal/types"
)

type timeoutCatalog struct {
	next    Catalog
	timeout time.Duration
}

// WithTimeout bounds every call on c; a non-positive duration returns c unchanged
func WithTimeout(c Catalog, d time.Duration) Catalog {
	if d <= 0 {
		return c
	}
	return &timeoutCatalog{next: c, timeout: d}
}

func (t *timeoutCatalog) Search(ctx context.Context, term string, limit int) ([]types.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.Search(ctx, term, limit)
}

func (t *timeoutCatalog) ByCategory(ctx context.Context, category string) ([]types.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.ByCategory(ctx, category)
}

func (t *timeoutCatalog) All(ctx context.Context) ([]types.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()
	return t.next.All(ctx)
}
