package mcpgo

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/noot-app/mealbasket-mcp-server/internal/basket"
	"github.com/noot-app/mealbasket-mcp-server/internal/diet"
	"github.com/shopspring/decimal"
)

// Search limits for search_catalog and the substitution tools
const (
	DefaultSearchLimit  = 10
	MaxSearchLimit      = 50
	DefaultAlternatives = 5
	LineAlternatives    = 8
	MaxAlternatives     = 20
	LineCombined        = 5
)

var errToolResult = errors.New("tool returned an error result")

var (
	stringItems = mcp.Items(map[string]any{"type": "string"})
	numberItems = mcp.Items(map[string]any{"type": "number"})
)

func exclusionsParam() mcp.ToolOption {
	return mcp.WithArray("exclusions",
		mcp.Description("Dietary exclusions: "+strings.Join(diet.Exclusions(diet.Vocabulary).Strings(), ", ")),
		stringItems,
	)
}

func budgetParam(desc string) mcp.ToolOption {
	return mcp.WithNumber("budget",
		mcp.Description(desc),
		mcp.Min(0),
	)
}

// productOrLineParams lets the substitution tools target a catalog product or a basket line
func productOrLineParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("product_id",
			mcp.Description("Catalog product ID to replace. Either product_id or basket_id with line_id is required."),
		),
		mcp.WithString("basket_id",
			mcp.Description("Basket holding the line to replace"),
		),
		mcp.WithString("line_id",
			mcp.Description("Basket line to replace; the basket's exclusions and budget apply"),
		),
	}
}

func (s *Server) addTools() {
	target := basket.DefaultTarget()

	planTool := mcp.NewTool("plan_basket",
		mcp.WithDescription("Build a shopping basket that covers the household's nutrition target for a number of days, "+
			"honouring dietary exclusions and an optional budget. Returns the basket ID, its lines and a coverage report."),
		mcp.WithNumber("days",
			mcp.Description("Number of days to plan for (1-31)"),
			mcp.DefaultNumber(7),
			mcp.Min(1),
			mcp.Max(31),
		),
		mcp.WithNumber("household_size",
			mcp.Description("Number of people (1-12)"),
			mcp.DefaultNumber(1),
			mcp.Min(1),
			mcp.Max(12),
		),
		exclusionsParam(),
		budgetParam("Maximum total cost in kr; omit for no budget"),
		mcp.WithString("store",
			mcp.Description("Store whose prices are used; the cheapest price is used when omitted or unlisted"),
		),
		mcp.WithBoolean("breakfast", mcp.Description("Include breakfast"), mcp.DefaultBool(true)),
		mcp.WithBoolean("lunch", mcp.Description("Include lunch"), mcp.DefaultBool(true)),
		mcp.WithBoolean("dinner", mcp.Description("Include dinner"), mcp.DefaultBool(true)),
		mcp.WithBoolean("snacks", mcp.Description("Include snacks"), mcp.DefaultBool(true)),
		mcp.WithNumber("calories", mcp.Description("Daily kcal per person"), mcp.DefaultNumber(target.Calories), mcp.Min(1)),
		mcp.WithNumber("protein", mcp.Description("Daily protein grams per person"), mcp.DefaultNumber(target.Protein), mcp.Min(0)),
		mcp.WithNumber("carbs", mcp.Description("Daily carbohydrate grams per person"), mcp.DefaultNumber(target.Carbs), mcp.Min(0)),
		mcp.WithNumber("fat", mcp.Description("Daily fat grams per person"), mcp.DefaultNumber(target.Fat), mcp.Min(0)),
		mcp.WithNumber("fiber", mcp.Description("Daily fiber grams per person"), mcp.DefaultNumber(target.Fiber), mcp.Min(0)),
	)
	s.mcpServer.AddTool(planTool, s.instrument("plan_basket", s.handlePlanBasket))

	getTool := mcp.NewTool("get_basket",
		mcp.WithDescription("Return a planned basket with its lines and coverage report"),
		mcp.WithString("basket_id", mcp.Required(), mcp.Description("Basket ID returned by plan_basket")),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(getTool, s.instrument("get_basket", s.handleGetBasket))

	searchTool := mcp.NewTool("search_catalog",
		mcp.WithDescription("Search the product catalog by keyword (name, brand or category)"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.MinLength(1),
			mcp.Description("Search term"),
		),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of results (default: %d, max: %d)", DefaultSearchLimit, MaxSearchLimit)),
			mcp.DefaultNumber(DefaultSearchLimit),
			mcp.Min(1),
			mcp.Max(MaxSearchLimit),
		),
		exclusionsParam(),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(searchTool, s.instrument("search_catalog", s.handleSearchCatalog))

	categoriesTool := mcp.NewTool("list_categories",
		mcp.WithDescription("List the catalog's category keys"),
		mcp.WithOutputSchema[CategoriesResponse](),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(categoriesTool, s.instrument("list_categories", s.handleListCategories))

	altOpts := []mcp.ToolOption{
		mcp.WithDescription("Rank same-type replacements for a product or basket line by nutritional similarity. " +
			"For basket lines, combined replacements for the line's weight are included."),
	}
	altOpts = append(altOpts, productOrLineParams()...)
	altOpts = append(altOpts,
		mcp.WithBoolean("same_category_only",
			mcp.Description("Only consider products from the original's category"),
			mcp.DefaultBool(false),
		),
		budgetParam("Maximum price of a single replacement"),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of alternatives (default: %d, %d for basket lines, max: %d)", DefaultAlternatives, LineAlternatives, MaxAlternatives)),
			mcp.Min(1),
			mcp.Max(MaxAlternatives),
		),
		exclusionsParam(),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(mcp.NewTool("find_alternatives", altOpts...), s.instrument("find_alternatives", s.handleFindAlternatives))

	subOpts := []mcp.ToolOption{
		mcp.WithDescription("Return the single most similar replacement for a product or basket line"),
	}
	subOpts = append(subOpts, productOrLineParams()...)
	subOpts = append(subOpts,
		mcp.WithBoolean("same_category_only",
			mcp.Description("Only consider products from the original's category"),
			mcp.DefaultBool(false),
		),
		budgetParam("Maximum price of the replacement"),
		exclusionsParam(),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(mcp.NewTool("find_substitute", subOpts...), s.instrument("find_substitute", s.handleFindSubstitute))

	combOpts := []mcp.ToolOption{
		mcp.WithDescription("Find one or two products that together match the protein of the original's weight"),
	}
	combOpts = append(combOpts, productOrLineParams()...)
	combOpts = append(combOpts,
		mcp.WithNumber("target_grams",
			mcp.Description("Weight of the original to replace; defaults to the line's total weight or one package"),
			mcp.Min(1),
		),
		budgetParam("Maximum total price of a combination"),
		mcp.WithNumber("limit",
			mcp.Description(fmt.Sprintf("Maximum number of combinations (default: %d)", DefaultAlternatives)),
			mcp.Min(1),
			mcp.Max(MaxAlternatives),
		),
		exclusionsParam(),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(mcp.NewTool("find_combined_alternatives", combOpts...), s.instrument("find_combined_alternatives", s.handleFindCombined))

	substituteLineTool := mcp.NewTool("substitute_line",
		mcp.WithDescription("Replace a basket line's product, keeping its quantity. The original can be restored with revert_line."),
		mcp.WithString("basket_id", mcp.Required(), mcp.Description("Basket ID")),
		mcp.WithString("line_id", mcp.Required(), mcp.Description("Line to replace")),
		mcp.WithString("product_id", mcp.Required(), mcp.Description("Catalog product ID of the replacement")),
	)
	s.mcpServer.AddTool(substituteLineTool, s.instrument("substitute_line", s.handleSubstituteLine))

	combinedLineTool := mcp.NewTool("substitute_line_combined",
		mcp.WithDescription("Replace a basket line with several products, e.g. a combination from find_combined_alternatives"),
		mcp.WithString("basket_id", mcp.Required(), mcp.Description("Basket ID")),
		mcp.WithString("line_id", mcp.Required(), mcp.Description("Line to replace")),
		mcp.WithArray("product_ids",
			mcp.Required(),
			mcp.Description("Catalog product IDs of the replacements; the first takes over the line"),
			stringItems,
		),
		mcp.WithArray("quantities",
			mcp.Description("Package count per product, in the same order (default 1 each)"),
			numberItems,
		),
	)
	s.mcpServer.AddTool(combinedLineTool, s.instrument("substitute_line_combined", s.handleSubstituteLineCombined))

	revertTool := mcp.NewTool("revert_line",
		mcp.WithDescription("Restore a substituted line's original product and quantity"),
		mcp.WithString("basket_id", mcp.Required(), mcp.Description("Basket ID")),
		mcp.WithString("line_id", mcp.Required(), mcp.Description("Substituted line")),
	)
	s.mcpServer.AddTool(revertTool, s.instrument("revert_line", s.handleRevertLine))

	exportTool := mcp.NewTool("export_basket",
		mcp.WithDescription("Export a basket as a text shopping list, CSV, or a store-specific list for pasting into an online shop"),
		mcp.WithString("basket_id", mcp.Required(), mcp.Description("Basket ID")),
		mcp.WithString("format",
			mcp.Description("Export format"),
			mcp.Enum(basket.FormatText, basket.FormatCSV, FormatStore),
			mcp.DefaultString(basket.FormatText),
		),
		mcp.WithString("store",
			mcp.Description("Store for the store format; defaults to the basket's store"),
		),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(exportTool, s.instrument("export_basket", s.handleExportBasket))

	defaultsTool := mcp.NewTool("get_defaults",
		mcp.WithDescription("Return the default nutrition target, recommended daily intakes, accepted exclusions and known stores"),
		mcp.WithIdempotentHintAnnotation(true),
	)
	s.mcpServer.AddTool(defaultsTool, s.instrument("get_defaults", s.handleGetDefaults))
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return mcp.NewToolResultError(fmt.Sprintf(format, args...))
}

// stringSlice reads an array argument, accepting []string or a decoded JSON []any
func stringSlice(request mcp.CallToolRequest, key string) ([]string, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	switch v := raw.(type) {
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("parameter '%s' must be an array of strings", key)
			}
			out = append(out, str)
		}
		return out, nil
	case string:
		return strings.Split(v, ","), nil
	default:
		return nil, fmt.Errorf("parameter '%s' must be an array of strings", key)
	}
}

// intSlice reads an array of whole numbers
func intSlice(request mcp.CallToolRequest, key string) ([]int, error) {
	raw, ok := request.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	var items []any
	switch v := raw.(type) {
	case []int:
		return v, nil
	case []float64:
		for _, f := range v {
			items = append(items, f)
		}
	case []any:
		items = v
	default:
		return nil, fmt.Errorf("parameter '%s' must be an array of numbers", key)
	}

	out := make([]int, 0, len(items))
	for _, item := range items {
		switch n := item.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil, fmt.Errorf("parameter '%s' must hold whole numbers, got %v", key, n)
			}
			out = append(out, int(n))
		case int:
			out = append(out, n)
		default:
			return nil, fmt.Errorf("parameter '%s' must be an array of numbers", key)
		}
	}
	return out, nil
}

func exclusionsArg(request mcp.CallToolRequest) (diet.Exclusions, error) {
	tokens, err := stringSlice(request, "exclusions")
	if err != nil {
		return nil, err
	}
	return diet.Parse(tokens)
}

// budgetArg returns nil when the budget is absent or zero
func budgetArg(request mcp.CallToolRequest) (*decimal.Decimal, error) {
	v := request.GetFloat("budget", 0)
	if v < 0 {
		return nil, fmt.Errorf("parameter 'budget' must not be negative")
	}
	if v == 0 {
		return nil, nil
	}
	d := decimal.NewFromFloat(v)
	return &d, nil
}

// wholeArg reads an integer parameter; JSON numbers arrive as float64, so fractions are rejected
func wholeArg(request mcp.CallToolRequest, key string, def int) (int, error) {
	v := request.GetFloat(key, float64(def))
	if v != math.Trunc(v) {
		return 0, fmt.Errorf("parameter '%s' must be a whole number, got %v", key, v)
	}
	return int(v), nil
}

func limitArg(request mcp.CallToolRequest, def, max int) int {
	limit := int(request.GetFloat("limit", float64(def)))
	if limit <= 0 {
		limit = def
	}
	if limit > max {
		limit = max
	}
	return limit
}
