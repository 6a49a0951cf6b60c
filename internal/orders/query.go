package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

const (
	lookupConcurrency   = 8
	sharedLookupTimeout = 5 * time.Second
)

type LineView struct {
	ProductRef          string                `json:"product_ref"`
	Quantity            int                   `json:"quantity"`
	UnitPriceAtPurchase decimal.Decimal       `json:"unit_price_at_purchase"`
	Subtotal            decimal.Decimal       `json:"subtotal"`
	Product             domain.ProductSummary `json:"product"`
}

type OrderView struct {
	ID           uuid.UUID           `json:"id"`
	OwnerUserID  string              `json:"owner_user_id"`
	Owner        *domain.User        `json:"owner,omitempty"`
	Lines        []LineView          `json:"lines"`
	TotalAmount  decimal.Decimal     `json:"total_amount"`
	ShippingInfo domain.ShippingInfo `json:"shipping_info"`
	Status       domain.OrderStatus  `json:"status"`
	NextStatus   domain.OrderStatus  `json:"next_status,omitempty"`
	PlacedAt     time.Time           `json:"placed_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// ListForUser returns the caller's own orders, newest first.
func (s *Service) ListForUser(ctx context.Context, p domain.Principal) ([]OrderView, error) {
	if err := domain.RequireKind(p, domain.KindUser); err != nil {
		return nil, err
	}
	orders, err := s.store.ListOrdersByOwner(ctx, p.ID)
	if err != nil {
		return nil, err
	}
	return s.project(ctx, orders, false)
}

// ListAll returns every order for the admin console. Search matches, case
// insensitively, a substring of the order id or of the owner's username,
// email, first or last name.
func (s *Service) ListAll(ctx context.Context, p domain.Principal, filter domain.OrderFilter) ([]OrderView, error) {
	if err := domain.RequireKind(p, domain.KindAdmin); err != nil {
		return nil, err
	}
	if !p.Can(domain.PermOrdersReadAll) {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrForbidden, domain.PermOrdersReadAll)
	}
	if filter.Status != "" {
		if _, ok := domain.ParseOrderStatus(string(filter.Status)); !ok {
			return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, filter.Status)
		}
	}

	orders, err := s.store.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	views, err := s.project(ctx, orders, true)
	if err != nil {
		return nil, err
	}

	term := strings.ToLower(strings.TrimSpace(filter.Search))
	if term == "" {
		return views, nil
	}
	matched := views[:0]
	for _, v := range views {
		if matches(v, term) {
			matched = append(matched, v)
		}
	}
	return matched, nil
}

// Get returns one order. Users only see their own orders.
func (s *Service) Get(ctx context.Context, p domain.Principal, id uuid.UUID) (*OrderView, error) {
	if err := domain.RequireKind(p, domain.KindUser, domain.KindAdmin); err != nil {
		return nil, err
	}
	order, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	views, err := s.project(ctx, []*domain.Order{order}, p.IsAdmin())
	if err != nil {
		return nil, err
	}
	return &views[0], nil
}

// Stats counts orders per status, zero-filled.
func (s *Service) Stats(ctx context.Context, p domain.Principal) (map[domain.OrderStatus]int, error) {
	if err := domain.RequireKind(p, domain.KindAdmin); err != nil {
		return nil, err
	}
	if !p.Can(domain.PermOrdersStats) {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrForbidden, domain.PermOrdersStats)
	}
	return s.store.CountByStatus(ctx)
}

func matches(v OrderView, term string) bool {
	if strings.Contains(strings.ToLower(v.ID.String()), term) {
		return true
	}
	if v.Owner == nil {
		return false
	}
	for _, field := range []string{v.Owner.Username, v.Owner.Email, v.Owner.FirstName, v.Owner.LastName} {
		if field != "" && strings.Contains(strings.ToLower(field), term) {
			return true
		}
	}
	return false
}

// project resolves every distinct product (and owner, for admins) once and
// builds the views. Deleted products render as a placeholder, unknown users
// as an empty owner.
func (s *Service) project(ctx context.Context, orders []*domain.Order, withOwner bool) ([]OrderView, error) {
	var (
		mu       sync.Mutex
		products = make(map[string]domain.ProductSummary)
		users    = make(map[string]*domain.User)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(lookupConcurrency)

	for _, o := range orders {
		for _, l := range o.Lines {
			mu.Lock()
			_, seen := products[l.ProductRef]
			if !seen {
				products[l.ProductRef] = domain.ProductSummary{}
			}
			mu.Unlock()
			if seen {
				continue
			}
			ref := l.ProductRef
			g.Go(func() error {
				summary, err := s.productSummary(gctx, ref)
				if err != nil {
					return err
				}
				mu.Lock()
				products[ref] = summary
				mu.Unlock()
				return nil
			})
		}

		if !withOwner {
			continue
		}
		mu.Lock()
		_, seen := users[o.OwnerUserID]
		if !seen {
			users[o.OwnerUserID] = &domain.User{}
		}
		mu.Unlock()
		if seen {
			continue
		}
		owner := o.OwnerUserID
		g.Go(func() error {
			u, err := s.user(gctx, owner)
			if err != nil {
				return err
			}
			mu.Lock()
			users[owner] = u
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		v := OrderView{
			ID:           o.ID,
			OwnerUserID:  o.OwnerUserID,
			Lines:        make([]LineView, 0, len(o.Lines)),
			TotalAmount:  o.TotalAmount,
			ShippingInfo: o.ShippingInfo,
			Status:       o.Status,
			PlacedAt:     o.PlacedAt,
			UpdatedAt:    o.UpdatedAt,
		}
		if next, ok := domain.Next(o.Status); ok {
			v.NextStatus = next
		}
		if withOwner {
			v.Owner = users[o.OwnerUserID]
		}
		for _, l := range o.Lines {
			v.Lines = append(v.Lines, LineView{
				ProductRef:          l.ProductRef,
				Quantity:            l.Quantity,
				UnitPriceAtPurchase: l.UnitPriceAtPurchase,
				Subtotal:            l.Subtotal(),
				Product:             products[l.ProductRef],
			})
		}
		views = append(views, v)
	}
	return views, nil
}

// shared runs fn once per key across concurrent requests. fn is detached from
// the caller that started it, so one request going away does not fail the
// others waiting on the same key; each caller still stops at its own ctx.
func (s *Service) shared(ctx context.Context, key string, fn func(context.Context) (any, error)) (any, error) {
	ch := s.sfg.DoChan(key, func() (any, error) {
		lctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sharedLookupTimeout)
		defer cancel()
		return fn(lctx)
	})
	select {
	case res := <-ch:
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Service) productSummary(ctx context.Context, ref string) (domain.ProductSummary, error) {
	v, err := s.shared(ctx, "product:"+ref, func(ctx context.Context) (any, error) {
		p, err := s.dir.FindProduct(ctx, ref)
		if errors.Is(err, domain.ErrProductNotFound) {
			return domain.MissingProduct(ref), nil
		}
		if err != nil {
			return nil, err
		}
		return p.Summary(), nil
	})
	if err != nil {
		return domain.ProductSummary{}, err
	}
	return v.(domain.ProductSummary), nil
}

func (s *Service) user(ctx context.Context, id string) (*domain.User, error) {
	v, err := s.shared(ctx, "user:"+id, func(ctx context.Context) (any, error) {
		u, err := s.dir.FindUser(ctx, id)
		if err != nil {
			if errors.Is(err, domain.ErrStoreUnavailable) {
				return nil, err
			}
			s.log.Debug("order owner not found", "user_id", id, "err", err)
			return &domain.User{}, nil
		}
		return u, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*domain.User), nil
}
