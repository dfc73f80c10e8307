package mcpgo

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/noot-app/mealbasket-mcp-server/internal/basket"
)

var ErrBasketNotFound = errors.New("basket not found")

// DefaultMaxBaskets bounds the store when no limit is configured
const DefaultMaxBaskets = 100

type storedBasket struct {
	basket  *basket.Basket
	touched time.Time
}

// Store keeps planned baskets in memory. Every mutation runs under the store mutex;
// the least recently touched basket is evicted once max is reached.
type Store struct {
	mu      sync.Mutex
	baskets map[string]*storedBasket
	max     int
	now     func() time.Time
}

// NewStore creates a basket store holding at most max baskets
func NewStore(max int) *Store {
	if max <= 0 {
		max = DefaultMaxBaskets
	}
	return &Store{
		baskets: make(map[string]*storedBasket),
		max:     max,
		now:     time.Now,
	}
}

// Put stores the basket and returns how many baskets are held afterwards
func (s *Store) Put(b *basket.Basket) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.baskets[b.ID]; !ok && len(s.baskets) >= s.max {
		s.evictOldest()
	}
	s.baskets[b.ID] = &storedBasket{basket: b, touched: s.now()}
	return len(s.baskets)
}

func (s *Store) evictOldest() {
	var oldestID string
	var oldest time.Time
	for id, sb := range s.baskets {
		if oldestID == "" || sb.touched.Before(oldest) {
			oldestID, oldest = id, sb.touched
		}
	}
	delete(s.baskets, oldestID)
}

// Get returns a snapshot of the basket that is safe to read after the call
func (s *Store) Get(id string) (*basket.Basket, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sb, ok := s.baskets[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrBasketNotFound, id)
	}
	sb.touched = s.now()
	return snapshot(sb.basket), nil
}

// Update runs fn against the stored basket under the store lock. fn sees the live
// basket; anything it returns to the caller must be copied out.
func (s *Store) Update(id string, fn func(b *basket.Basket) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sb, ok := s.baskets[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrBasketNotFound, id)
	}
	sb.touched = s.now()
	return fn(sb.basket)
}

// Len returns the number of stored baskets
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.baskets)
}

func snapshot(b *basket.Basket) *basket.Basket {
	cp := *b
	cp.Lines = append([]basket.Line(nil), b.Lines...)
	cp.Skipped = append([]basket.SkippedSlot(nil), b.Skipped...)
	return &cp
}
