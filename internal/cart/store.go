package cart

import (
	"context"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

// UpdateFunc receives a copy of the current lines and returns the new ones.
// Returning an error aborts the update and leaves the cart untouched.
type UpdateFunc func(lines []domain.CartLine) ([]domain.CartLine, error)

// Store holds one cart per user. Update calls for the same user are
// serialized: no concurrent writer can lose another writer's change.
type Store interface {
	Get(ctx context.Context, userID string) (*domain.Cart, error)
	Update(ctx context.Context, userID string, fn UpdateFunc) (*domain.Cart, error)
	Delete(ctx context.Context, userID string) error
}

func emptyCart(userID string) *domain.Cart {
	return &domain.Cart{UserID: userID, Lines: []domain.CartLine{}}
}
