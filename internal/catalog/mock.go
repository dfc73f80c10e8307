package catalog

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/noot-app/mealbasket-mcp-server/internal/types"
)

// Mock is a test double with the Index search semantics plus injectable failures
type Mock struct {
	index *Index

	mu    sync.Mutex
	err   error
	delay time.Duration
	calls int
}

// Ensure Mock implements Source
var _ Source = (*Mock)(nil)

// NewMock creates a mock serving the given products
func NewMock(products []types.Product) *Mock {
	return &Mock{index: NewIndex(products, slog.New(slog.NewTextHandler(io.Discard, nil)))}
}

// SetError makes every subsequent call fail with err
func (m *Mock) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes every subsequent call block for d or until the context ends
func (m *Mock) SetDelay(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = d
}

// SetProducts replaces the served products
func (m *Mock) SetProducts(products []types.Product) {
	m.index.swap(products)
}

// Calls returns how many catalog calls were made
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func (m *Mock) before(ctx context.Context) error {
	m.mu.Lock()
	m.calls++
	err, delay := m.err, m.delay
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return err
}

func (m *Mock) Search(ctx context.Context, term string, limit int) ([]types.Product, error) {
	if err := m.before(ctx); err != nil {
		return nil, err
	}
	return m.index.Search(ctx, term, limit)
}

func (m *Mock) ByCategory(ctx context.Context, category string) ([]types.Product, error) {
	if err := m.before(ctx); err != nil {
		return nil, err
	}
	return m.index.ByCategory(ctx, category)
}

func (m *Mock) All(ctx context.Context) ([]types.Product, error) {
	if err := m.before(ctx); err != nil {
		return nil, err
	}
	return m.index.All(ctx)
}

func (m *Mock) Categories(ctx context.Context) ([]string, error) {
	if err := m.before(ctx); err != nil {
		return nil, err
	}
	return m.index.Categories(ctx)
}

// TestConnection returns the injected error, if any
func (m *Mock) TestConnection(ctx context.Context) error {
	return m.before(ctx)
}

// Reload is a no-op for the mock
func (m *Mock) Reload(ctx context.Context, path string) error {
	return m.before(ctx)
}

// Close closes the mock (no-op)
func (m *Mock) Close() error {
	return nil
}
