package catalog

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/noot-app/mealbasket-mcp-server/internal/types"
	"github.com/shopspring/decimal"
)

//go:embed seed_catalog.json
var seedCatalog []byte

// SeedJSON returns the embedded catalog file
func SeedJSON() []byte {
	return seedCatalog
}

// Seed decodes the embedded catalog
func Seed() ([]types.Product, error) {
	return DecodeProducts(bytes.NewReader(seedCatalog))
}

// record is the on-disk shape of one catalog entry. Prices may be null per store.
type record struct {
	Category  string              `json:"category"`
	Name      string              `json:"name"`
	Brand     string              `json:"brand"`
	Weight    string              `json:"weight"`
	Prices    map[string]*float64 `json:"prices"`
	Nutrition *types.Nutrition    `json:"nutrition"`
	Allergens []types.Allergen    `json:"allergens"`
}

func (r record) product() (types.Product, error) {
	if strings.TrimSpace(r.Name) == "" || strings.TrimSpace(r.Category) == "" {
		return types.Product{}, fmt.Errorf("catalog entry missing name or category: %+v", r)
	}

	p := types.Product{
		ID:        types.NewProductID(r.Category, r.Name, r.Brand),
		Name:      r.Name,
		Brand:     r.Brand,
		Weight:    r.Weight,
		Category:  normalizeKey(r.Category),
		Nutrition: r.Nutrition,
		Allergens: r.Allergens,
	}
	for store, price := range r.Prices {
		if price == nil {
			continue
		}
		if p.Prices == nil {
			p.Prices = make(map[string]decimal.Decimal, len(r.Prices))
		}
		p.Prices[store] = decimal.NewFromFloat(*price)
	}
	return p, nil
}

// DecodeProducts reads a JSON array of catalog entries, preserving declaration order
func DecodeProducts(r io.Reader) ([]types.Product, error) {
	var records []record
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	products := make([]types.Product, 0, len(records))
	for _, rec := range records {
		p, err := rec.product()
		if err != nil {
			return nil, err
		}
		products = append(products, p)
	}
	return products, nil
}
