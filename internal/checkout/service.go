package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logging"
	"github.com/fjod/go_cart/storefront/internal/metrics"
)

type OrderStore interface {
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
}

type ProductLookup interface {
	FindProduct(ctx context.Context, ref string) (*domain.Product, error)
}

type CartClearer interface {
	Clear(ctx context.Context, p domain.Principal) error
}

type IdempotencyStore interface {
	TryLock(ctx context.Context, scope, key string) (bool, error)
	Release(ctx context.Context, scope, key string) error
	Remember(ctx context.Context, scope, key, value string) error
	Recall(ctx context.Context, scope, key string) (string, bool, error)
}

type Request struct {
	Lines          []domain.CartLine
	ShippingInfo   domain.ShippingInfo
	IdempotencyKey string
}

type Service struct {
	orders   OrderStore
	products ProductLookup
	cart     CartClearer
	idem     IdempotencyStore
	now      func() time.Time
	log      *slog.Logger
}

// NewService wires checkout. idem may be nil, in which case Idempotency-Key
// is ignored.
func NewService(orders OrderStore, products ProductLookup, cart CartClearer, idem IdempotencyStore) *Service {
	return &Service{
		orders:   orders,
		products: products,
		cart:     cart,
		idem:     idem,
		now:      func() time.Time { return time.Now().UTC() },
		log:      logging.New("checkout"),
	}
}

// Checkout turns the requested lines into a placed order owned by p.
// The cart is cleared only after the order is stored.
func (s *Service) Checkout(ctx context.Context, p domain.Principal, req Request) (*domain.Order, error) {
	if err := domain.RequireKind(p, domain.KindUser); err != nil {
		return nil, err
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" || s.idem == nil {
		return s.place(ctx, p, req)
	}

	if prev, ok := s.replay(ctx, p, key); ok {
		return prev, nil
	}

	locked, err := s.idem.TryLock(ctx, p.ID, key)
	if err != nil {
		return nil, fmt.Errorf("%w: idempotency lock: %w", domain.ErrStoreUnavailable, err)
	}
	if !locked {
		return nil, fmt.Errorf("%w: checkout with this idempotency key is in progress", domain.ErrConflict)
	}

	order, err := s.place(ctx, p, req)
	if err != nil {
		if errRel := s.idem.Release(context.WithoutCancel(ctx), p.ID, key); errRel != nil {
			s.log.Warn("idempotency release failed", "user_id", p.ID, "err", errRel)
		}
		return nil, err
	}

	if err := s.idem.Remember(ctx, p.ID, key, order.ID.String()); err != nil {
		s.log.Warn("idempotency remember failed", "user_id", p.ID, "order_id", order.ID, "err", err)
	}
	return order, nil
}

func (s *Service) replay(ctx context.Context, p domain.Principal, key string) (*domain.Order, bool) {
	id, ok, err := s.idem.Recall(ctx, p.ID, key)
	if err != nil {
		s.log.Warn("idempotency recall failed", "user_id", p.ID, "err", err)
		return nil, false
	}
	if !ok {
		return nil, false
	}
	orderID, err := uuid.Parse(id)
	if err != nil {
		return nil, false
	}
	order, err := s.orders.GetOrderByID(ctx, orderID)
	if err != nil {
		s.log.Warn("idempotent replay lookup failed", "order_id", id, "err", err)
		return nil, false
	}
	logging.FromCtx(ctx).Info("duplicate checkout request", "idempotency_key", key, "order_id", order.ID)
	return order, true
}

func (s *Service) place(ctx context.Context, p domain.Principal, req Request) (*domain.Order, error) {
	lines, err := mergeLines(req.Lines)
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues("invalid_lines").Inc()
		return nil, err
	}

	shipping := req.ShippingInfo.Normalize()
	if err := shipping.Validate(); err != nil {
		metrics.CheckoutFailures.WithLabelValues("invalid_shipping").Inc()
		return nil, err
	}

	orderLines, err := s.snapshotPrices(ctx, lines)
	if err != nil {
		metrics.CheckoutFailures.WithLabelValues("catalog").Inc()
		return nil, err
	}

	order := domain.NewOrder(p.ID, orderLines, shipping, s.now())
	if err := s.orders.CreateOrder(ctx, order); err != nil {
		metrics.CheckoutFailures.WithLabelValues("store").Inc()
		return nil, fmt.Errorf("create order: %w", err)
	}
	metrics.OrdersPlaced.Inc()

	log := logging.FromCtx(ctx)
	log.Info("order placed", "order_id", order.ID, "user_id", p.ID, "total", order.TotalAmount.String())

	if err := s.cart.Clear(ctx, p); err != nil {
		log.Error("cart clear after checkout failed", "order_id", order.ID, "user_id", p.ID, "err", err)
	}
	return order, nil
}

func (s *Service) snapshotPrices(ctx context.Context, lines []domain.CartLine) ([]domain.OrderLine, error) {
	out := make([]domain.OrderLine, 0, len(lines))
	for _, l := range lines {
		product, err := s.products.FindProduct(ctx, l.ProductRef)
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, l.ProductRef)
		}
		if err != nil {
			return nil, err
		}
		out = append(out, domain.OrderLine{
			ProductRef:          l.ProductRef,
			Quantity:            l.Quantity,
			UnitPriceAtPurchase: product.Price.Round(domain.MoneyPlaces),
		})
	}
	return out, nil
}

// mergeLines rejects empty and malformed requests and folds repeated
// product refs into one line, keeping first-seen order.
func mergeLines(lines []domain.CartLine) ([]domain.CartLine, error) {
	if len(lines) == 0 {
		return nil, domain.ErrEmptyCart
	}
	merged := make([]domain.CartLine, 0, len(lines))
	index := make(map[string]int, len(lines))
	for i, l := range lines {
		ref := strings.TrimSpace(l.ProductRef)
		if ref == "" {
			return nil, fmt.Errorf("%w: line %d has no product reference", domain.ErrInvalidRequest, i)
		}
		if l.Quantity < 1 {
			return nil, fmt.Errorf("%w: line %d quantity must be at least 1", domain.ErrInvalidRequest, i)
		}
		if j, ok := index[ref]; ok {
			merged[j].Quantity += l.Quantity
			continue
		}
		index[ref] = len(merged)
		merged = append(merged, domain.CartLine{ProductRef: ref, Quantity: l.Quantity})
	}
	return merged, nil
}
