package mcpgo

import (
	"github.com/noot-app/mealbasket-mcp-server/internal/basket"
	"github.com/noot-app/mealbasket-mcp-server/internal/substitute"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
)

// LineView is a basket line as returned to MCP clients
type LineView struct {
	ID          string          `json:"id"`
	ProductID   string          `json:"product_id"`
	Name        string          `json:"name"`
	Brand       string          `json:"brand,omitempty"`
	Weight      string          `json:"weight,omitempty"`
	Category    string          `json:"category"`
	Quantity    int             `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	Total       decimal.Decimal `json:"total"`
	Calories    float64         `json:"calories"`
	Protein     float64         `json:"protein"`
	Source      string          `json:"source"`
	Slot        string          `json:"slot,omitempty"`
	Substituted bool            `json:"substituted"`
	Original    string          `json:"original,omitempty"`
	Group       string          `json:"group,omitempty"`
}

func lineView(b *basket.Basket, l *basket.Line) LineView {
	v := LineView{
		ID:        l.ID,
		ProductID: l.Product.ID,
		Name:      l.Product.Name,
		Brand:     l.Product.Brand,
		Weight:    l.Product.Weight,
		Category:  l.Product.Category,
		Quantity:  l.Quantity,
		Price:     b.Price(l.Product),
		Total:     b.LineCost(l),
		Calories:  l.Contribution.Calories,
		Protein:   l.Contribution.Protein,
		Source:    l.Source,
		Slot:      l.Slot,
		Group:     l.Group,
	}
	if l.Original != nil {
		v.Substituted = true
		v.Original = l.Original.DisplayName()
	}
	return v
}

// BasketResponse is returned by plan_basket and get_basket
type BasketResponse struct {
	BasketID string         `json:"basket_id"`
	Store    string         `json:"store,omitempty"`
	Request  basket.Request `json:"request"`
	Lines    []LineView     `json:"lines"`
	Report   basket.Report  `json:"report"`
}

func basketResponse(b *basket.Basket) BasketResponse {
	lines := make([]LineView, 0, len(b.Lines))
	for i := range b.Lines {
		lines = append(lines, lineView(b, &b.Lines[i]))
	}
	return BasketResponse{
		BasketID: b.ID,
		Store:    b.Store,
		Request:  b.Request,
		Lines:    lines,
		Report:   b.Report(),
	}
}

// LineChangeResponse is returned by the line substitution and revert tools
type LineChangeResponse struct {
	BasketID string        `json:"basket_id"`
	Lines    []LineView    `json:"lines"`
	Report   basket.Report `json:"report"`
}

// SearchCatalogResponse is returned by search_catalog
type SearchCatalogResponse struct {
	Found    bool            `json:"found"`
	Count    int             `json:"count"`
	Products []types.Product `json:"products"`
}

// CategoriesResponse is returned by list_categories
type CategoriesResponse struct {
	Count      int      `json:"count"`
	Categories []string `json:"categories"`
}

// AlternativesResponse is returned by find_alternatives. Combined is only filled for basket lines.
type AlternativesResponse struct {
	Original     types.Product            `json:"original"`
	Found        bool                     `json:"found"`
	Count        int                      `json:"count"`
	Budget       *decimal.Decimal         `json:"budget,omitempty"`
	Alternatives []substitute.Alternative `json:"alternatives"`
	Combined     []substitute.Combination `json:"combined,omitempty"`
}

// SubstituteResponse is returned by find_substitute
type SubstituteResponse struct {
	Original   types.Product           `json:"original"`
	Found      bool                    `json:"found"`
	Substitute *substitute.Alternative `json:"substitute,omitempty"`
}

// CombinedResponse is returned by find_combined_alternatives
type CombinedResponse struct {
	Original     types.Product            `json:"original"`
	TargetGrams  float64                  `json:"target_grams"`
	Count        int                      `json:"count"`
	Combinations []substitute.Combination `json:"combinations"`
}

// ExportResponse is returned by export_basket; Store is set for the store format
type ExportResponse struct {
	BasketID string              `json:"basket_id"`
	Format   string              `json:"format"`
	Content  string              `json:"content"`
	Store    *basket.StoreExport `json:"store,omitempty"`
}

// DefaultsResponse is returned by get_defaults
type DefaultsResponse struct {
	Target            basket.Target            `json:"target"`
	RecommendedIntake map[string]basket.Intake `json:"recommended_intake"`
	MealShares        map[string]float64       `json:"meal_shares"`
	Exclusions        []string                 `json:"exclusions"`
	Allergens         []types.Allergen         `json:"allergens"`
	Stores            []string                 `json:"stores"`
	DefaultStore      string                   `json:"default_store,omitempty"`
}
