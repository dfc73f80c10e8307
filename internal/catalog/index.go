package catalog

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/noot-app/mealbasket-mcp-server/internal/types"
)

// Index is an in-memory catalog keyed by category in declaration order
type Index struct {
	mu         sync.RWMutex
	categories []string
	byCategory map[string][]types.Product
	all        []types.Product
	log        *slog.Logger
}

// Ensure Index implements Source
var _ Source = (*Index)(nil)

// NewIndex builds an index over already decoded products
func NewIndex(products []types.Product, logger *slog.Logger) *Index {
	idx := &Index{log: logger}
	idx.swap(products)
	return idx
}

// LoadIndex reads a JSON catalog file into a new index
func LoadIndex(path string, logger *slog.Logger) (*Index, error) {
	products, err := readFile(path)
	if err != nil {
		return nil, err
	}
	logger.Info("Catalog index loaded", "path", path, "products", len(products))
	return NewIndex(products, logger), nil
}

func readFile(path string) ([]types.Product, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open catalog: %w", err)
	}
	defer f.Close()
	return DecodeProducts(f)
}

func (idx *Index) swap(products []types.Product) {
	categories := make([]string, 0)
	byCategory := make(map[string][]types.Product)
	for _, p := range products {
		key := normalizeKey(p.Category)
		if _, seen := byCategory[key]; !seen {
			categories = append(categories, key)
		}
		byCategory[key] = append(byCategory[key], p)
	}

	all := make([]types.Product, 0, len(products))
	for _, key := range categories {
		all = append(all, byCategory[key]...)
	}

	idx.mu.Lock()
	idx.categories = categories
	idx.byCategory = byCategory
	idx.all = all
	idx.mu.Unlock()
}

// Search resolves a term to products: an exact category key returns that category,
// otherwise every category containing the term or contained in it contributes
func (idx *Index) Search(ctx context.Context, term string, limit int) ([]types.Product, error) {
	q := normalizeKey(term)
	if q == "" || limit <= 0 {
		return nil, nil
	}

	idx.mu.RLock()
	defer idx.mu.RUnlock()

	if exact, ok := idx.byCategory[q]; ok {
		return clip(exact, limit), nil
	}

	var results []types.Product
	for _, key := range idx.categories {
		if !strings.Contains(key, q) && !strings.Contains(q, key) {
			continue
		}
		for _, p := range idx.byCategory[key] {
			results = append(results, p)
			if len(results) >= limit {
				return results, nil
			}
		}
	}
	return results, nil
}

// ByCategory returns the products filed under an exact category key
func (idx *Index) ByCategory(ctx context.Context, category string) ([]types.Product, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return clip(idx.byCategory[normalizeKey(category)], -1), nil
}

// All lists every product grouped by category
func (idx *Index) All(ctx context.Context) ([]types.Product, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return clip(idx.all, -1), nil
}

// Categories lists the category keys in declaration order
func (idx *Index) Categories(ctx context.Context) ([]string, error) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return append([]string(nil), idx.categories...), nil
}

// TestConnection fails when the index holds no products
func (idx *Index) TestConnection(ctx context.Context) error {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	if len(idx.all) == 0 {
		return fmt.Errorf("catalog index is empty")
	}
	return nil
}

// Reload replaces the contents from a catalog file; in-flight searches finish on the old data
func (idx *Index) Reload(ctx context.Context, path string) error {
	start := time.Now()
	products, err := readFile(path)
	if err != nil {
		return err
	}
	idx.swap(products)
	idx.log.Info("Catalog index reloaded", "path", path, "products", len(products), "duration", time.Since(start))
	return nil
}

// Close is a no-op for the in-memory index
func (idx *Index) Close() error {
	return nil
}

// clip copies at most limit products; a negative limit copies all
func clip(products []types.Product, limit int) []types.Product {
	if limit >= 0 && len(products) > limit {
		products = products[:limit]
	}
	if len(products) == 0 {
		return nil
	}
	return append([]types.Product(nil), products...)
}
