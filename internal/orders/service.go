package orders

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logging"
)

type Store interface {
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByOwner(ctx context.Context, ownerID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context, filter domain.OrderFilter) ([]*domain.Order, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, expected, next domain.OrderStatus) (*domain.Order, error)
	CountByStatus(ctx context.Context) (map[domain.OrderStatus]int, error)
}

// Directory resolves the products and users an order refers to.
type Directory interface {
	FindProduct(ctx context.Context, ref string) (*domain.Product, error)
	FindUser(ctx context.Context, id string) (*domain.User, error)
}

type Service struct {
	store Store
	dir   Directory
	sfg   singleflight.Group // dedupes concurrent lookups of the same product or user
	log   *slog.Logger
}

func NewService(store Store, dir Directory) *Service {
	return &Service{
		store: store,
		dir:   dir,
		log:   logging.New("orders"),
	}
}

// load fetches an order and hides orders the principal may not see.
func (s *Service) load(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Order, error) {
	order, err := s.store.GetOrderByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.IsUser() && order.OwnerUserID != p.ID {
		return nil, domain.ErrOrderNotFound
	}
	return order, nil
}
