package http

import (
	"context"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
)

var (
	testUser  = domain.NewUserPrincipal("u1")
	testAdmin = domain.NewAdminPrincipal("a1", domain.RoleAdmin)
)

func withPrincipal(r *http.Request, p domain.Principal) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), principalKey{}, p))
}

func withURLParams(r *http.Request, kv ...string) *http.Request {
	rctx := chi.NewRouteContext()
	for i := 0; i+1 < len(kv); i += 2 {
		rctx.URLParams.Add(kv[i], kv[i+1])
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

type mockCartService struct {
	m       sync.RWMutex
	cart    *domain.Cart
	err     error
	lastRef string
	lastQty int
	cleared bool
}

func (m *mockCartService) Get(_ context.Context, p domain.Principal) (*domain.Cart, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.cart == nil {
		return &domain.Cart{UserID: p.ID, Lines: []domain.CartLine{}}, nil
	}
	return m.cart, nil
}

func (m *mockCartService) Add(_ context.Context, p domain.Principal, ref string, quantity int) (*domain.Cart, error) {
	return m.record(p, ref, quantity)
}

func (m *mockCartService) SetQuantity(_ context.Context, p domain.Principal, ref string, quantity int) (*domain.Cart, error) {
	return m.record(p, ref, quantity)
}

func (m *mockCartService) Remove(_ context.Context, p domain.Principal, ref string) (*domain.Cart, error) {
	return m.record(p, ref, 0)
}

func (m *mockCartService) Clear(_ context.Context, _ domain.Principal) error {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return m.err
	}
	m.cleared = true
	return nil
}

func (m *mockCartService) record(p domain.Principal, ref string, quantity int) (*domain.Cart, error) {
	m.m.Lock()
	defer m.m.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	m.lastRef, m.lastQty = ref, quantity
	lines := []domain.CartLine{}
	if quantity > 0 {
		lines = append(lines, domain.CartLine{ProductRef: ref, Quantity: quantity})
	}
	return &domain.Cart{UserID: p.ID, Lines: lines}, nil
}

type mockCheckoutService struct {
	m    sync.Mutex
	last checkout.Request
	err  error
}

func (m *mockCheckoutService) Checkout(_ context.Context, p domain.Principal, req checkout.Request) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.last = req
	if m.err != nil {
		return nil, m.err
	}
	lines := make([]domain.OrderLine, 0, len(req.Lines))
	for _, l := range req.Lines {
		lines = append(lines, domain.OrderLine{ProductRef: l.ProductRef, Quantity: l.Quantity})
	}
	return domain.NewOrder(p.ID, lines, req.ShippingInfo, testTime), nil
}

func (m *mockCheckoutService) lastRequest() checkout.Request {
	m.m.Lock()
	defer m.m.Unlock()
	return m.last
}

type mockOrdersService struct {
	m      sync.RWMutex
	views  []orders.OrderView
	order  *domain.Order
	next   domain.OrderStatus
	stats  map[domain.OrderStatus]int
	filter domain.OrderFilter
	status string
	err    error
}

func (m *mockOrdersService) ListForUser(context.Context, domain.Principal) ([]orders.OrderView, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.views, m.err
}

func (m *mockOrdersService) Get(_ context.Context, _ domain.Principal, id uuid.UUID) (*orders.OrderView, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	for i := range m.views {
		if m.views[i].ID == id {
			return &m.views[i], nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *mockOrdersService) Cancel(context.Context, domain.Principal, uuid.UUID) (*domain.Order, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	if m.err != nil {
		return nil, m.err
	}
	o := *m.order
	o.Status = domain.OrderStatusCancelled
	return &o, nil
}

func (m *mockOrdersService) ListAll(_ context.Context, _ domain.Principal, f domain.OrderFilter) ([]orders.OrderView, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.filter = f
	return m.views, m.err
}

func (m *mockOrdersService) SetStatus(_ context.Context, _ domain.Principal, _ uuid.UUID, requested string) (*domain.Order, error) {
	m.m.Lock()
	defer m.m.Unlock()
	m.status = requested
	if m.err != nil {
		return nil, m.err
	}
	o := *m.order
	o.Status = domain.OrderStatus(requested)
	return &o, nil
}

func (m *mockOrdersService) NextStatus(context.Context, domain.Principal, uuid.UUID) (domain.OrderStatus, bool, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.next, m.next != "", m.err
}

func (m *mockOrdersService) Stats(context.Context, domain.Principal) (map[domain.OrderStatus]int, error) {
	m.m.RLock()
	defer m.m.RUnlock()
	return m.stats, m.err
}
