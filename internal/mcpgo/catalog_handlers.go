package mcpgo

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/diet"
	"github.com/noot-app/mealbasket-mcp-server/internal/substitute"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
)

func (s *Server) handleSearchCatalog(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		s.log.Warn("handleSearchCatalog: missing 'query' parameter", "error", err)
		return toolError("Missing required parameter 'query': %v", err), nil
	}
	if strings.TrimSpace(query) == "" {
		return toolError("Parameter 'query' must be at least 1 character long"), nil
	}
	exclusions, err := exclusionsArg(request)
	if err != nil {
		return toolError("Invalid exclusions: %v", err), nil
	}
	limit := limitArg(request, DefaultSearchLimit, MaxSearchLimit)

	// exclusions filter after the search, so ask for more and trim
	fetch := limit
	if len(exclusions) > 0 {
		fetch = MaxSearchLimit
	}
	products, err := s.catalog.Search(ctx, query, fetch)
	if err != nil {
		s.log.Error("Catalog search failed", "query", query, "error", err)
		return toolError("Search failed: %v", err), nil
	}
	products = diet.Apply(products, exclusions)
	if len(products) > limit {
		products = products[:limit]
	}
	if products == nil {
		products = []types.Product{}
	}

	return s.structured("search_catalog", SearchCatalogResponse{
		Found:    len(products) > 0,
		Count:    len(products),
		Products: products,
	})
}

func (s *Server) handleListCategories(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	categories, err := s.source.Categories(ctx)
	if err != nil {
		s.log.Error("Listing categories failed", "error", err)
		return toolError("Listing categories failed: %v", err), nil
	}
	return s.structured("list_categories", CategoriesResponse{Count: len(categories), Categories: categories})
}

// replaceTarget is what a substitution tool replaces: a catalog product, or a basket line
// whose exclusions and budget carry over
type replaceTarget struct {
	product    types.Product
	exclusions diet.Exclusions
	budget     *decimal.Decimal
	grams      float64
	line       bool
}

func (s *Server) resolveTarget(ctx context.Context, request mcp.CallToolRequest) (*replaceTarget, error) {
	extra, err := stringSlice(request, "exclusions")
	if err != nil {
		return nil, err
	}
	budget, err := budgetArg(request)
	if err != nil {
		return nil, err
	}

	basketID := request.GetString("basket_id", "")
	if basketID != "" {
		lineID := request.GetString("line_id", "")
		if lineID == "" {
			return nil, fmt.Errorf("parameter 'line_id' is required with 'basket_id'")
		}
		b, err := s.baskets.Get(basketID)
		if err != nil {
			return nil, err
		}
		line, err := b.Line(lineID)
		if err != nil {
			return nil, err
		}
		exclusions, err := diet.Parse(append(b.Request.Exclusions.Strings(), extra...))
		if err != nil {
			return nil, err
		}
		return &replaceTarget{
			product:    line.Product,
			exclusions: exclusions,
			budget:     b.SubstituteBudget(budget),
			grams:      line.Grams(),
			line:       true,
		}, nil
	}

	productID := request.GetString("product_id", "")
	if productID == "" {
		return nil, fmt.Errorf("either 'product_id' or 'basket_id' with 'line_id' is required")
	}
	product, err := catalog.Find(ctx, s.catalog, productID)
	if err != nil {
		return nil, err
	}
	exclusions, err := diet.Parse(extra)
	if err != nil {
		return nil, err
	}
	return &replaceTarget{
		product:    *product,
		exclusions: exclusions,
		budget:     budget,
		grams:      product.PackageGrams(),
	}, nil
}

func (s *Server) handleFindAlternatives(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := s.resolveTarget(ctx, request)
	if err != nil {
		s.log.Warn("handleFindAlternatives: invalid target", "error", err)
		return toolError("%v", err), nil
	}

	def := DefaultAlternatives
	if t.line {
		def = LineAlternatives
	}
	alternatives := s.engine.FindAlternatives(ctx, substitute.Query{
		Product:          t.product,
		Exclusions:       t.exclusions,
		Budget:           t.budget,
		SameCategoryOnly: request.GetBool("same_category_only", false),
		Limit:            limitArg(request, def, MaxAlternatives),
	})

	resp := AlternativesResponse{
		Original:     t.product,
		Found:        len(alternatives) > 0,
		Count:        len(alternatives),
		Budget:       t.budget,
		Alternatives: alternatives,
	}
	if t.line {
		resp.Combined = s.engine.FindCombinedAlternatives(ctx, substitute.CombinedQuery{
			Product:     t.product,
			TargetGrams: t.grams,
			Exclusions:  t.exclusions,
			Budget:      t.budget,
			Limit:       LineCombined,
		})
	}
	return s.structured("find_alternatives", resp)
}

func (s *Server) handleFindSubstitute(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := s.resolveTarget(ctx, request)
	if err != nil {
		s.log.Warn("handleFindSubstitute: invalid target", "error", err)
		return toolError("%v", err), nil
	}

	best := s.engine.FindSubstitute(ctx, substitute.Query{
		Product:          t.product,
		Exclusions:       t.exclusions,
		Budget:           t.budget,
		SameCategoryOnly: request.GetBool("same_category_only", false),
	})
	return s.structured("find_substitute", SubstituteResponse{
		Original:   t.product,
		Found:      best != nil,
		Substitute: best,
	})
}

func (s *Server) handleFindCombined(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	t, err := s.resolveTarget(ctx, request)
	if err != nil {
		s.log.Warn("handleFindCombined: invalid target", "error", err)
		return toolError("%v", err), nil
	}

	grams := request.GetFloat("target_grams", t.grams)
	if grams <= 0 {
		return toolError("The product has no usable weight; pass 'target_grams'"), nil
	}

	combinations := s.engine.FindCombinedAlternatives(ctx, substitute.CombinedQuery{
		Product:     t.product,
		TargetGrams: grams,
		Exclusions:  t.exclusions,
		Budget:      t.budget,
		Limit:       limitArg(request, DefaultAlternatives, MaxAlternatives),
	})
	if combinations == nil {
		combinations = []substitute.Combination{}
	}
	return s.structured("find_combined_alternatives", CombinedResponse{
		Original:     t.product,
		TargetGrams:  grams,
		Count:        len(combinations),
		Combinations: combinations,
	})
}
