package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
)

type OrdersService interface {
	ListForUser(ctx context.Context, p domain.Principal) ([]orders.OrderView, error)
	Get(ctx context.Context, p domain.Principal, id uuid.UUID) (*orders.OrderView, error)
	Cancel(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Order, error)
}

type OrdersHandler struct {
	orders  OrdersService
	timeout time.Duration
}

func NewOrdersHandler(svc OrdersService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		orders:  svc,
		timeout: timeout,
	}
}

type OrderItemDTO struct {
	ProductRef          string `json:"product_ref"`
	Quantity            int    `json:"quantity"`
	UnitPriceAtPurchase string `json:"unit_price_at_purchase"`
}

type OrderResponseDTO struct {
	ID           string              `json:"id"`
	OwnerUserID  string              `json:"owner_user_id"`
	TotalAmount  string              `json:"total_amount"`
	Status       domain.OrderStatus  `json:"status"`
	Items        []OrderItemDTO      `json:"items"`
	ShippingInfo domain.ShippingInfo `json:"shipping_info"`
	PlacedAt     time.Time           `json:"placed_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// GET /api/v1/orders
func (h *OrdersHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	views, err := h.orders.ListForUser(ctx, p)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, views)
}

// GET /api/v1/orders/{order_id}
func (h *OrdersHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.orders.Get(ctx, p, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, view)
}

// PUT /api/v1/orders/{order_id}/cancel
func (h *OrdersHandler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	id, ok := orderIDParam(w, r)
	if !ok {
		return
	}

	order, err := h.orders.Cancel(ctx, p, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order))
}

// orderIDParam parses {order_id}. A malformed id cannot name any order, so it
// is reported as not found.
func orderIDParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := chi.URLParam(r, "order_id")
	if raw == "" {
		respondError(w, http.StatusBadRequest, "missing_order_id", "order_id is required")
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		respondError(w, http.StatusNotFound, "order_not_found", domain.ErrOrderNotFound.Error())
		return uuid.Nil, false
	}
	return id, true
}

func convertOrder(o *domain.Order) OrderResponseDTO {
	items := make([]OrderItemDTO, 0, len(o.Lines))
	for _, l := range o.Lines {
		items = append(items, OrderItemDTO{
			ProductRef:          l.ProductRef,
			Quantity:            l.Quantity,
			UnitPriceAtPurchase: money(l.UnitPriceAtPurchase),
		})
	}
	return OrderResponseDTO{
		ID:           o.ID.String(),
		OwnerUserID:  o.OwnerUserID,
		TotalAmount:  money(o.TotalAmount),
		Status:       o.Status,
		Items:        items,
		ShippingInfo: o.ShippingInfo,
		PlacedAt:     o.PlacedAt,
		UpdatedAt:    o.UpdatedAt,
	}
}
