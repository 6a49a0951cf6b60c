package cart

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type memoryCart struct {
	mu        sync.Mutex
	lines     []domain.CartLine
	updatedAt time.Time
}

// MemoryStore keeps carts in process memory with one lock per user.
type MemoryStore struct {
	mu    sync.Mutex
	carts map[string]*memoryCart
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		carts: make(map[string]*memoryCart),
		now:   time.Now,
	}
}

func (s *MemoryStore) entry(userID string) *memoryCart {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.carts[userID]
	if !ok {
		c = &memoryCart{}
		s.carts[userID] = c
	}
	return c
}

func (s *MemoryStore) Get(_ context.Context, userID string) (*domain.Cart, error) {
	c := s.entry(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(userID), nil
}

func (s *MemoryStore) Update(ctx context.Context, userID string, fn UpdateFunc) (*domain.Cart, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := s.entry(userID)
	c.mu.Lock()
	defer c.mu.Unlock()

	lines, err := fn(slices.Clone(c.lines))
	if err != nil {
		return nil, err
	}
	c.lines = lines
	c.updatedAt = s.now()
	return c.snapshot(userID), nil
}

func (s *MemoryStore) Delete(_ context.Context, userID string) error {
	c := s.entry(userID)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lines = nil
	c.updatedAt = s.now()
	return nil
}

func (c *memoryCart) snapshot(userID string) *domain.Cart {
	cart := emptyCart(userID)
	cart.Lines = append(cart.Lines, c.lines...)
	cart.UpdatedAt = c.updatedAt
	return cart
}
