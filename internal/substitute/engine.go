// Package substitute finds replacements for a product, singly or as combinations
package substitute

import (
	"context"
	"log/slog"
	"sort"
	"strings"

	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/diet"
	"github.com/noot-app/mealbasket-mcp-server/internal/nutrition"
	"github.com/noot-app/mealbasket-mcp-server/internal/taxonomy"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
)

// DefaultLimit applies when a query doesn't set one
const DefaultLimit = 5

// Query describes the product to replace and the constraints on its replacements
type Query struct {
	Product          types.Product
	Exclusions       diet.Exclusions
	Budget           *decimal.Decimal
	SameCategoryOnly bool
	Limit            int
}

// Alternative is a scored replacement candidate
type Alternative struct {
	Product types.Product        `json:"product"`
	Type    taxonomy.ProductType `json:"type"`
	Score   float64              `json:"score"`
}

// Engine ranks replacements drawn from a catalog
type Engine struct {
	catalog catalog.Catalog
	log     *slog.Logger
}

// NewEngine creates a substitution engine over the catalog
func NewEngine(c catalog.Catalog, logger *slog.Logger) *Engine {
	return &Engine{catalog: c, log: logger}
}

// FindAlternatives returns up to Limit same-type replacements ordered by descending similarity.
// No match yields an empty result; catalog failures are logged and treated as no candidates.
func (e *Engine) FindAlternatives(ctx context.Context, q Query) []Alternative {
	limit := q.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}

	original := q.Product
	origType := taxonomy.Classify(original)
	profile := nutrition.Of(original.Nutrition)

	// a product without a category can't be held to it
	ownCategory := q.SameCategoryOnly && strings.TrimSpace(original.Category) != ""
	pool := e.pool(ctx, original, origType, ownCategory)
	if !ownCategory && len(pool) < 2*limit && !profile.HighProtein {
		if all, err := e.catalog.All(ctx); err != nil {
			e.log.Warn("Catalog listing failed, keeping narrow pool", "error", err)
		} else {
			pool = all
		}
	}

	var candidates []types.Product
	for _, p := range pool {
		if !sameProduct(original, p) {
			candidates = append(candidates, p)
		}
	}
	candidates = diet.Apply(candidates, q.Exclusions)

	alternatives := make([]Alternative, 0, len(candidates))
	for _, p := range candidates {
		t := taxonomy.Classify(p)
		if !taxonomy.Compatible(origType, t) {
			continue
		}
		if q.Budget != nil {
			price, ok := p.MinPrice()
			if !ok || price.GreaterThan(*q.Budget) {
				continue
			}
		}
		alternatives = append(alternatives, Alternative{
			Product: p,
			Type:    t,
			Score:   SimilarityScore(original, p, profile),
		})
	}

	sort.SliceStable(alternatives, func(i, j int) bool {
		return alternatives[i].Score > alternatives[j].Score
	})
	if len(alternatives) > limit {
		alternatives = alternatives[:limit]
	}

	e.log.Debug("Alternatives ranked",
		"product", original.Name,
		"type", origType,
		"pool", len(pool),
		"returned", len(alternatives))
	return alternatives
}

// FindSubstitute returns the single best alternative, or nil
func (e *Engine) FindSubstitute(ctx context.Context, q Query) *Alternative {
	q.Limit = 1
	alternatives := e.FindAlternatives(ctx, q)
	if len(alternatives) == 0 {
		return nil
	}
	return &alternatives[0]
}

// pool gathers candidates from the product's own category or its type's related categories.
// Dairy also draws on categories no type claims.
func (e *Engine) pool(ctx context.Context, original types.Product, t taxonomy.ProductType, sameCategoryOnly bool) []types.Product {
	category := strings.ToLower(strings.TrimSpace(original.Category))
	if sameCategoryOnly {
		products, err := e.catalog.ByCategory(ctx, category)
		if err != nil {
			e.log.Warn("Catalog category lookup failed", "category", category, "error", err)
			return nil
		}
		return products
	}

	seen := make(map[string]bool)
	var pool []types.Product
	add := func(products []types.Product) {
		for _, p := range products {
			if seen[p.ID] {
				continue
			}
			seen[p.ID] = true
			pool = append(pool, p)
		}
	}

	for _, c := range taxonomy.RelatedCategories(t, category) {
		products, err := e.catalog.ByCategory(ctx, c)
		if err != nil {
			e.log.Warn("Catalog category lookup failed", "category", c, "error", err)
			continue
		}
		add(products)
	}

	if t == taxonomy.Dairy {
		all, err := e.catalog.All(ctx)
		if err != nil {
			e.log.Warn("Catalog listing failed", "error", err)
			return pool
		}
		var ungrouped []types.Product
		for _, p := range all {
			if !taxonomy.Grouped(strings.ToLower(p.Category)) {
				ungrouped = append(ungrouped, p)
			}
		}
		add(ungrouped)
	}
	return pool
}

func sameProduct(a, b types.Product) bool {
	if a.ID != "" && b.ID != "" {
		return a.ID == b.ID
	}
	return strings.EqualFold(a.Name, b.Name) && strings.EqualFold(a.Brand, b.Brand)
}
