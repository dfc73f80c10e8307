package basket

import (
	"bytes"
	"encoding/csv"
	"strings"
	"testing"

	"github.com/noot-app/mealbasket-mcp-server/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func exportBasket(household int) *Basket {
	b := newBasket(Request{Days: 1, HouseholdSize: household, Target: DefaultTarget(), Meals: AllMeals()})

	milk := testutil.NewProduct("milk", "Whole Milk 3% Arla Ko").
		WithWeight("1.5l").WithPrice("ICA", 20.8).WithPrice("Willys", 19.9).Build()
	milk.Brand = "Arla Ko"
	bread := testutil.NewProduct("bread", "Rye Loaf").WithWeight("500g").Build()
	bread.Prices = map[string]decimal.Decimal{"Coop": decimal.RequireFromString("24.9")}

	b.add(Line{Product: milk, Quantity: 2, Source: SourceSlot}, false)
	b.add(Line{Product: bread, Quantity: 1, Source: SourceSlot}, false)
	return b
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, exportBasket(2).WriteCSV(&buf))

	r := csv.NewReader(&buf)
	r.Comma = ';'
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	require.NoError(t, err)

	// csv.Reader skips the blank separator row
	require.Len(t, rows, 5)
	assert.Equal(t, csvHeader, rows[0])
	assert.Equal(t, []string{"Whole Milk 3% Arla Ko", "Arla Ko", "1.5l", "2", "19.90", "39.80", "milk"}, rows[1])
	assert.Equal(t, []string{"Rye Loaf", "", "500g", "1", "24.90", "24.90", "bread"}, rows[2])
	assert.Equal(t, "TOTAL", rows[3][0])
	assert.Equal(t, "64.70", rows[3][5])
	assert.Equal(t, "Per person", rows[4][0])
	assert.Equal(t, "32.35", rows[4][5])
}

func TestWriteCSV_SinglePerson(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, exportBasket(1).WriteCSV(&buf))
	assert.NotContains(t, buf.String(), "Per person")
	assert.Contains(t, buf.String(), "\n\nTOTAL;")
}

func TestText(t *testing.T) {
	b := exportBasket(2)
	b.Store = "ICA"
	text := b.Text()

	assert.Contains(t, text, "Store: ICA")
	assert.Contains(t, text, "-- MILK --\n☐ Whole Milk 3% Arla Ko x2 (21 kr)")
	assert.Contains(t, text, "-- BREAD --\n☐ Rye Loaf (25 kr)")
	assert.Contains(t, text, "Total: 67 kr")
	assert.Contains(t, text, "Per person: 33 kr")
	assert.Less(t, strings.Index(text, "MILK"), strings.Index(text, "BREAD"))
}

func TestExport(t *testing.T) {
	b := exportBasket(1)

	var csvOut, textOut bytes.Buffer
	require.NoError(t, b.Export(&csvOut, "CSV"))
	require.NoError(t, b.Export(&textOut, ""))
	assert.True(t, strings.HasPrefix(csvOut.String(), "Product;Brand;"))
	assert.Equal(t, b.Text(), textOut.String())

	assert.Error(t, b.Export(&bytes.Buffer{}, "pdf"))
}

func TestForStore(t *testing.T) {
	out := exportBasket(1).ForStore("Willys")

	assert.Equal(t, "https://www.willys.se/", out.URL)
	require.Len(t, out.Items, 2)

	assert.True(t, out.Items[0].AtStore)
	assert.True(t, out.Items[0].Price.Equal(decimal.RequireFromString("19.9")))
	assert.True(t, out.Items[0].Total.Equal(decimal.RequireFromString("39.8")))

	assert.False(t, out.Items[1].AtStore)
	assert.True(t, out.Items[1].Price.Equal(decimal.RequireFromString("24.9")))
	assert.True(t, out.Total.Equal(decimal.RequireFromString("64.7")))

	assert.Equal(t, "Whole Milk 3% x2\nRye Loaf", out.Clipboard)
	assert.True(t, strings.HasPrefix(out.DetailedText, "Shopping list - WILLYS\n"))
	assert.Contains(t, out.DetailedText, "• Whole Milk 3% Arla Ko x2")
	assert.True(t, strings.HasSuffix(out.DetailedText, "Total: 65 kr"))

	assert.Empty(t, exportBasket(1).ForStore("Corner Shop").URL)
}
