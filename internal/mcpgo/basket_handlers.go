package mcpgo

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/noot-app/mealbasket-mcp-server/internal/basket"
	"github.com/noot-app/mealbasket-mcp-server/internal/catalog"
	"github.com/noot-app/mealbasket-mcp-server/internal/diet"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
)

// FormatStore selects the store export in export_basket
const FormatStore = "store"

func (s *Server) handlePlanBasket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	exclusions, err := exclusionsArg(request)
	if err != nil {
		s.log.Warn("handlePlanBasket: invalid exclusions", "error", err)
		return toolError("Invalid exclusions: %v", err), nil
	}
	budget, err := budgetArg(request)
	if err != nil {
		return toolError("Invalid budget: %v", err), nil
	}
	days, err := wholeArg(request, "days", 7)
	if err != nil {
		return toolError("Invalid days: %v", err), nil
	}
	household, err := wholeArg(request, "household_size", 1)
	if err != nil {
		return toolError("Invalid household_size: %v", err), nil
	}

	def := basket.DefaultTarget()
	req := basket.Request{
		Days:          days,
		HouseholdSize: household,
		Target: basket.Target{
			Calories: request.GetFloat("calories", def.Calories),
			Protein:  request.GetFloat("protein", def.Protein),
			Carbs:    request.GetFloat("carbs", def.Carbs),
			Fat:      request.GetFloat("fat", def.Fat),
			Fiber:    request.GetFloat("fiber", def.Fiber),
		},
		Meals: basket.Meals{
			Breakfast: request.GetBool("breakfast", true),
			Lunch:     request.GetBool("lunch", true),
			Dinner:    request.GetBool("dinner", true),
			Snacks:    request.GetBool("snacks", true),
		},
		Exclusions: exclusions,
		Budget:     budget,
		Store:      request.GetString("store", s.opts.DefaultStore),
	}

	b, err := s.builder.Build(ctx, req)
	if err != nil {
		s.log.Warn("handlePlanBasket: planning failed", "error", err)
		return toolError("Planning failed: %v", err), nil
	}

	resp := basketResponse(b)
	stored := s.baskets.Put(b)
	s.metrics.SetBasketsStored(stored)
	s.metrics.BasketPlanned(resp.Report.Coverage.Calories)

	return s.structured("plan_basket", resp)
}

func (s *Server) handleGetBasket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("basket_id")
	if err != nil {
		return toolError("Missing required parameter 'basket_id': %v", err), nil
	}

	b, err := s.baskets.Get(id)
	if err != nil {
		s.log.Warn("handleGetBasket: lookup failed", "basket_id", id, "error", err)
		return toolError("%v", err), nil
	}
	return s.structured("get_basket", basketResponse(b))
}

// lineArgs reads the required basket_id and line_id
func lineArgs(request mcp.CallToolRequest) (basketID, lineID string, result *mcp.CallToolResult) {
	basketID, err := request.RequireString("basket_id")
	if err != nil {
		return "", "", toolError("Missing required parameter 'basket_id': %v", err)
	}
	lineID, err = request.RequireString("line_id")
	if err != nil {
		return "", "", toolError("Missing required parameter 'line_id': %v", err)
	}
	return basketID, lineID, nil
}

// findAllowed looks up a replacement and checks it against the basket's exclusions
func (s *Server) findAllowed(ctx context.Context, id string, exclusions diet.Exclusions) (*types.Product, error) {
	p, err := catalog.Find(ctx, s.catalog, id)
	if err != nil {
		return nil, err
	}
	if !exclusions.Allows(*p) {
		return nil, fmt.Errorf("%s violates the basket's exclusions (%s)", p.Name, strings.Join(exclusions.Strings(), ", "))
	}
	return p, nil
}

func (s *Server) basketExclusions(basketID string) (diet.Exclusions, error) {
	b, err := s.baskets.Get(basketID)
	if err != nil {
		return nil, err
	}
	return b.Request.Exclusions, nil
}

func (s *Server) handleSubstituteLine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	basketID, lineID, bad := lineArgs(request)
	if bad != nil {
		return bad, nil
	}
	productID, err := request.RequireString("product_id")
	if err != nil {
		return toolError("Missing required parameter 'product_id': %v", err), nil
	}

	exclusions, err := s.basketExclusions(basketID)
	if err != nil {
		return toolError("%v", err), nil
	}
	product, err := s.findAllowed(ctx, productID, exclusions)
	if err != nil {
		s.log.Warn("handleSubstituteLine: replacement rejected", "product_id", productID, "error", err)
		return toolError("Replacement rejected: %v", err), nil
	}

	var resp LineChangeResponse
	err = s.baskets.Update(basketID, func(b *basket.Basket) error {
		line, err := b.Substitute(lineID, *product)
		if err != nil {
			return err
		}
		resp = LineChangeResponse{
			BasketID: b.ID,
			Lines:    []LineView{lineView(b, line)},
			Report:   b.Report(),
		}
		return nil
	})
	if err != nil {
		s.log.Warn("handleSubstituteLine: substitution failed", "basket_id", basketID, "line_id", lineID, "error", err)
		return toolError("Substitution failed: %v", err), nil
	}

	s.log.Info("Line substituted", "basket_id", basketID, "line_id", lineID, "product", product.Name)
	return s.structured("substitute_line", resp)
}

func (s *Server) handleSubstituteLineCombined(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	basketID, lineID, bad := lineArgs(request)
	if bad != nil {
		return bad, nil
	}
	productIDs, err := stringSlice(request, "product_ids")
	if err != nil {
		return toolError("%v", err), nil
	}
	if len(productIDs) == 0 {
		return toolError("Parameter 'product_ids' must list at least one product"), nil
	}
	quantities, err := intSlice(request, "quantities")
	if err != nil {
		return toolError("%v", err), nil
	}
	if len(quantities) > 0 && len(quantities) != len(productIDs) {
		return toolError("Parameter 'quantities' must have one entry per product (got %d for %d products)", len(quantities), len(productIDs)), nil
	}

	exclusions, err := s.basketExclusions(basketID)
	if err != nil {
		return toolError("%v", err), nil
	}

	replacements := make([]basket.Replacement, 0, len(productIDs))
	for i, id := range productIDs {
		product, err := s.findAllowed(ctx, id, exclusions)
		if err != nil {
			s.log.Warn("handleSubstituteLineCombined: replacement rejected", "product_id", id, "error", err)
			return toolError("Replacement rejected: %v", err), nil
		}
		qty := 1
		if len(quantities) > 0 {
			qty = quantities[i]
		}
		replacements = append(replacements, basket.Replacement{Product: *product, Quantity: qty})
	}

	var resp LineChangeResponse
	err = s.baskets.Update(basketID, func(b *basket.Basket) error {
		lines, err := b.SubstituteCombined(lineID, replacements)
		if err != nil {
			return err
		}
		resp = LineChangeResponse{BasketID: b.ID, Report: b.Report()}
		for _, l := range lines {
			resp.Lines = append(resp.Lines, lineView(b, l))
		}
		return nil
	})
	if err != nil {
		s.log.Warn("handleSubstituteLineCombined: substitution failed", "basket_id", basketID, "line_id", lineID, "error", err)
		return toolError("Substitution failed: %v", err), nil
	}

	s.log.Info("Line substituted with combination", "basket_id", basketID, "line_id", lineID, "products", len(replacements))
	return s.structured("substitute_line_combined", resp)
}

func (s *Server) handleRevertLine(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	basketID, lineID, bad := lineArgs(request)
	if bad != nil {
		return bad, nil
	}

	var resp LineChangeResponse
	err := s.baskets.Update(basketID, func(b *basket.Basket) error {
		line, err := b.Revert(lineID)
		if err != nil {
			return err
		}
		resp = LineChangeResponse{
			BasketID: b.ID,
			Lines:    []LineView{lineView(b, line)},
			Report:   b.Report(),
		}
		return nil
	})
	if err != nil {
		s.log.Warn("handleRevertLine: revert failed", "basket_id", basketID, "line_id", lineID, "error", err)
		return toolError("Revert failed: %v", err), nil
	}
	return s.structured("revert_line", resp)
}

func (s *Server) handleExportBasket(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := request.RequireString("basket_id")
	if err != nil {
		return toolError("Missing required parameter 'basket_id': %v", err), nil
	}
	b, err := s.baskets.Get(id)
	if err != nil {
		return toolError("%v", err), nil
	}

	format := strings.ToLower(request.GetString("format", basket.FormatText))
	resp := ExportResponse{BasketID: b.ID, Format: format}

	if format == FormatStore {
		store := request.GetString("store", b.Store)
		if store == "" {
			store = s.opts.DefaultStore
		}
		if store == "" {
			return toolError("Parameter 'store' is required for the store format"), nil
		}
		export := b.ForStore(store)
		resp.Store = &export
		resp.Content = export.Clipboard
		return s.structured("export_basket", resp)
	}

	var buf bytes.Buffer
	if err := b.Export(&buf, format); err != nil {
		return toolError("Export failed: %v", err), nil
	}
	resp.Content = buf.String()
	return s.structured("export_basket", resp)
}

func (s *Server) handleGetDefaults(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return s.structured("get_defaults", DefaultsResponse{
		Target:            basket.DefaultTarget(),
		RecommendedIntake: basket.RecommendedIntake,
		MealShares:        basket.AllMeals().Shares(),
		Exclusions:        diet.Exclusions(diet.Vocabulary).Strings(),
		Allergens:         types.Allergens,
		Stores:            basket.Stores,
		DefaultStore:      s.opts.DefaultStore,
	})
}
