package basket

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Export formats accepted by Export
const (
	FormatCSV  = "csv"
	FormatText = "text"
)

// StoreURLs are the online shops the store export points to
var StoreURLs = map[string]string{
	"ica":        "https://www.ica.se/handla/",
	"coop":       "https://www.coop.se/handla/",
	"willys":     "https://www.willys.se/",
	"hemköp":     "https://www.hemkop.se/",
	"hemkop":     "https://www.hemkop.se/",
	"lidl":       "https://www.lidl.se/",
	"city gross": "https://www.citygross.se/",
}

var csvHeader = []string{"Product", "Brand", "Weight", "Quantity", "Price", "Total", "Category"}

// Export renders the basket in the named format
func (b *Basket) Export(w io.Writer, format string) error {
	switch strings.ToLower(format) {
	case "", FormatText:
		_, err := io.WriteString(w, b.Text())
		return err
	case FormatCSV:
		return b.WriteCSV(w)
	default:
		return fmt.Errorf("unknown export format %q", format)
	}
}

// WriteCSV writes a ';'-separated list with a total row and, for households
// larger than one, a per-person row
func (b *Basket) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	cw.Comma = ';'

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("failed to write csv header: %w", err)
	}

	total := decimal.Zero
	for i := range b.Lines {
		l := &b.Lines[i]
		price, priced := l.Product.PriceAt(b.Store)
		lineTotal := price.Mul(decimal.NewFromInt(int64(l.Quantity)))
		total = total.Add(lineTotal)

		priceCell := ""
		if priced {
			priceCell = price.StringFixed(2)
		}
		row := []string{
			l.Product.Name,
			l.Product.Brand,
			l.Product.Weight,
			strconv.Itoa(l.Quantity),
			priceCell,
			lineTotal.StringFixed(2),
			l.Product.Category,
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write csv row: %w", err)
		}
	}

	rows := [][]string{
		{},
		{"TOTAL", "", "", "", "", total.StringFixed(2), ""},
	}
	if hh := b.Request.HouseholdSize; hh > 1 {
		perPerson := total.Div(decimal.NewFromInt(int64(hh)))
		rows = append(rows, []string{"Per person", "", "", "", "", perPerson.StringFixed(2), ""})
	}
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write csv totals: %w", err)
	}
	return nil
}

// Text renders the basket grouped by category, one checkbox line per product
func (b *Basket) Text() string {
	var sb strings.Builder
	sb.WriteString("Shopping list\n")
	if b.Store != "" {
		fmt.Fprintf(&sb, "Store: %s\n", b.Store)
	}
	sb.WriteString("\n")

	var order []string
	groups := make(map[string][]*Line)
	for i := range b.Lines {
		cat := b.Lines[i].Product.Category
		if cat == "" {
			cat = "other"
		}
		if _, ok := groups[cat]; !ok {
			order = append(order, cat)
		}
		groups[cat] = append(groups[cat], &b.Lines[i])
	}

	total := decimal.Zero
	for _, cat := range order {
		fmt.Fprintf(&sb, "-- %s --\n", strings.ToUpper(cat))
		for _, l := range groups[cat] {
			price, priced := l.Product.PriceAt(b.Store)
			total = total.Add(price.Mul(decimal.NewFromInt(int64(l.Quantity))))

			sb.WriteString("☐ " + l.Product.Name)
			if l.Quantity > 1 {
				fmt.Fprintf(&sb, " x%d", l.Quantity)
			}
			if priced {
				fmt.Fprintf(&sb, " (%s kr)", price.StringFixed(0))
			}
			sb.WriteString("\n")
		}
		sb.WriteString("\n")
	}

	fmt.Fprintf(&sb, "Total: %s kr\n", total.StringFixed(0))
	if hh := b.Request.HouseholdSize; hh > 1 {
		fmt.Fprintf(&sb, "Per person: %s kr\n", total.Div(decimal.NewFromInt(int64(hh))).StringFixed(0))
	}
	return sb.String()
}

// StoreItem is one basket line priced for a specific store
type StoreItem struct {
	Name     string          `json:"name"`
	Brand    string          `json:"brand,omitempty"`
	Weight   string          `json:"weight,omitempty"`
	Quantity int             `json:"quantity"`
	Price    decimal.Decimal `json:"price"`
	Total    decimal.Decimal `json:"total"`

	// AtStore is false when the store doesn't list the product and the cheapest price was used
	AtStore bool `json:"at_store"`
}

// StoreExport is the basket prepared for pasting into a store's online shop
type StoreExport struct {
	Store        string          `json:"store"`
	URL          string          `json:"store_url,omitempty"`
	Items        []StoreItem     `json:"items"`
	Total        decimal.Decimal `json:"total"`
	Clipboard    string          `json:"text_for_clipboard"`
	DetailedText string          `json:"detailed_text"`
}

// ForStore prices every line at the store, falling back to the cheapest price
func (b *Basket) ForStore(store string) StoreExport {
	out := StoreExport{
		Store: store,
		URL:   StoreURLs[strings.ToLower(store)],
		Items: make([]StoreItem, 0, len(b.Lines)),
		Total: decimal.Zero,
	}

	var clipboard []string
	detailed := []string{"Shopping list - " + strings.ToUpper(store), strings.Repeat("-", 30)}
	for i := range b.Lines {
		p := b.Lines[i].Product
		qty := b.Lines[i].Quantity

		price, atStore := storePrice(p.Prices, store)
		if !atStore {
			price, _ = p.MinPrice()
		}
		lineTotal := price.Mul(decimal.NewFromInt(int64(qty)))
		out.Total = out.Total.Add(lineTotal)
		out.Items = append(out.Items, StoreItem{
			Name:     p.Name,
			Brand:    p.Brand,
			Weight:   p.Weight,
			Quantity: qty,
			Price:    price,
			Total:    lineTotal,
			AtStore:  atStore,
		})

		suffix := ""
		if qty > 1 {
			suffix = fmt.Sprintf(" x%d", qty)
		}
		clipboard = append(clipboard, clipboardName(p.Name, p.Brand)+suffix)
		detailed = append(detailed, "• "+p.Name+suffix)
	}
	detailed = append(detailed, strings.Repeat("-", 30), fmt.Sprintf("Total: %s kr", out.Total.StringFixed(0)))

	out.Clipboard = strings.Join(clipboard, "\n")
	out.DetailedText = strings.Join(detailed, "\n")
	return out
}

func storePrice(prices map[string]decimal.Decimal, store string) (decimal.Decimal, bool) {
	for name, v := range prices {
		if strings.EqualFold(name, store) {
			return v, true
		}
	}
	return decimal.Zero, false
}

// clipboardName drops a trailing brand so store searches match ("Milk 3% Arla" -> "Milk 3%")
func clipboardName(name, brand string) string {
	if brand != "" && strings.HasSuffix(name, brand) {
		return strings.TrimSpace(strings.TrimSuffix(name, brand))
	}
	return name
}
