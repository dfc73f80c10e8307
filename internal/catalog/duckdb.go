package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
	"github.com/noot-app/mealbasket-mcp-server/internal/types"
)

const productColumns = `p.category, p.name, p.brand, p.weight,
	to_json(p.prices)::VARCHAR, to_json(p.nutrition)::VARCHAR, to_json(p.allergens)::VARCHAR`

// Engine serves the catalog from a DuckDB table loaded from a JSON or Parquet file
type Engine struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
	log  *slog.Logger
}

// Ensure Engine implements Source
var _ Source = (*Engine)(nil)

// NewEngine opens an in-memory DuckDB database and loads the catalog file into it
func NewEngine(ctx context.Context, path string, logger *slog.Logger) (*Engine, error) {
	db, err := sql.Open("duckdb", "")
	if err != nil {
		return nil, fmt.Errorf("failed to open duckdb: %w", err)
	}

	e := &Engine{db: db, log: logger}
	if err := e.Reload(ctx, path); err != nil {
		db.Close()
		return nil, err
	}
	return e, nil
}

// Close closes the database connection
func (e *Engine) Close() error {
	return e.db.Close()
}

// loadStatement builds the table from the file. Table functions don't take bind
// parameters inside DDL, so the path is inlined as an escaped literal.
func loadStatement(path string) string {
	literal := "'" + strings.ReplaceAll(path, "'", "''") + "'"
	reader := fmt.Sprintf("read_json_auto(%s, format='array')", literal)
	if strings.EqualFold(filepath.Ext(path), ".parquet") {
		reader = fmt.Sprintf("read_parquet(%s)", literal)
	}
	return fmt.Sprintf(`CREATE OR REPLACE TABLE products AS
		SELECT row_number() OVER () AS pos, * FROM %s`, reader)
}

// Reload replaces the products table with the contents of the file
func (e *Engine) Reload(ctx context.Context, path string) error {
	start := time.Now()
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.db.ExecContext(ctx, loadStatement(path)); err != nil {
		e.log.Error("DuckDB catalog load failed", "path", path, "error", err, "duration", time.Since(start))
		return fmt.Errorf("failed to load catalog into duckdb: %w", err)
	}
	e.path = path
	e.log.Info("DuckDB catalog loaded", "path", path, "duration", time.Since(start))
	return nil
}

// Search mirrors Index.Search: exact category key first, else containment in either direction
func (e *Engine) Search(ctx context.Context, term string, limit int) ([]types.Product, error) {
	q := normalizeKey(term)
	if q == "" || limit <= 0 {
		return nil, nil
	}

	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()

	var exact int64
	if err := e.db.QueryRowContext(ctx,
		`SELECT count(*) FROM products WHERE lower(trim(category)) = ?`, q).Scan(&exact); err != nil {
		return nil, fmt.Errorf("category lookup failed: %w", err)
	}

	var query string
	var args []any
	if exact > 0 {
		query = `SELECT ` + productColumns + `
			FROM products p
			WHERE lower(trim(p.category)) = ?
			ORDER BY p.pos
			LIMIT ?`
		args = []any{q, limit}
	} else {
		query = `WITH cats AS (
				SELECT lower(trim(category)) AS key, min(pos) AS first_pos
				FROM products GROUP BY 1
			)
			SELECT ` + productColumns + `
			FROM products p JOIN cats c ON lower(trim(p.category)) = c.key
			WHERE strpos(c.key, ?) > 0 OR strpos(?, c.key) > 0
			ORDER BY c.first_pos, p.pos
			LIMIT ?`
		args = []any{q, q, limit}
	}

	results, err := e.query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	e.log.Debug("DuckDB search completed", "term", q, "exact", exact > 0, "count", len(results), "duration", time.Since(start))
	return results, nil
}

// ByCategory returns the products filed under an exact category key
func (e *Engine) ByCategory(ctx context.Context, category string) ([]types.Product, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.query(ctx, `SELECT `+productColumns+`
		FROM products p
		WHERE lower(trim(p.category)) = ?
		ORDER BY p.pos`, normalizeKey(category))
}

// All lists every product grouped by category in declaration order
func (e *Engine) All(ctx context.Context) ([]types.Product, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.query(ctx, `WITH cats AS (
			SELECT lower(trim(category)) AS key, min(pos) AS first_pos
			FROM products GROUP BY 1
		)
		SELECT `+productColumns+`
		FROM products p JOIN cats c ON lower(trim(p.category)) = c.key
		ORDER BY c.first_pos, p.pos`)
}

// Categories lists the category keys in declaration order
func (e *Engine) Categories(ctx context.Context) ([]string, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	rows, err := e.db.QueryContext(ctx,
		`SELECT lower(trim(category)) FROM products GROUP BY 1 ORDER BY min(pos)`)
	if err != nil {
		return nil, fmt.Errorf("categories query failed: %w", err)
	}
	defer rows.Close()

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

// TestConnection checks that the products table is readable and non-empty
func (e *Engine) TestConnection(ctx context.Context) error {
	start := time.Now()
	e.mu.RLock()
	defer e.mu.RUnlock()

	var count int64
	if err := e.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM products`).Scan(&count); err != nil {
		e.log.Error("Connection test failed", "error", err, "duration", time.Since(start))
		return fmt.Errorf("connection test failed: %w", err)
	}
	if count == 0 {
		return fmt.Errorf("connection test failed: catalog %s is empty", e.path)
	}

	e.log.Info("Connection test successful", "total_records", count, "duration", time.Since(start))
	return nil
}

func (e *Engine) query(ctx context.Context, query string, args ...any) ([]types.Product, error) {
	rows, err := e.db.QueryContext(ctx, query, args...)
	if err != nil {
		e.log.Error("DuckDB query failed", "error", err)
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	var results []types.Product
	for rows.Next() {
		var category, name string
		var brand, weight, prices, nutrition, allergens sql.NullString
		if err := rows.Scan(&category, &name, &brand, &weight, &prices, &nutrition, &allergens); err != nil {
			return nil, fmt.Errorf("scan failed: %w", err)
		}

		rec := record{Category: category, Name: name, Brand: brand.String, Weight: weight.String}
		if prices.Valid {
			if err := json.Unmarshal([]byte(prices.String), &rec.Prices); err != nil {
				e.log.Debug("Failed to parse prices JSON", "error", err, "name", name)
			}
		}
		if nutrition.Valid {
			var n types.Nutrition
			if err := json.Unmarshal([]byte(nutrition.String), &n); err != nil {
				e.log.Debug("Failed to parse nutrition JSON", "error", err, "name", name)
			} else {
				rec.Nutrition = &n
			}
		}
		if allergens.Valid {
			if err := json.Unmarshal([]byte(allergens.String), &rec.Allergens); err != nil {
				e.log.Debug("Failed to parse allergens JSON", "error", err, "name", name)
			}
		}

		p, err := rec.product()
		if err != nil {
			e.log.Warn("Skipping invalid catalog row", "error", err)
			continue
		}
		results = append(results, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}
	return results, nil
}
