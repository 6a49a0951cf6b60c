package http

import (
	"context"
	"net/http"
	"time"

	"github.com/fjod/go_cart/storefront/internal/checkout"
	"github.com/fjod/go_cart/storefront/internal/domain"
)

type CheckoutService interface {
	Checkout(ctx context.Context, p domain.Principal, req checkout.Request) (*domain.Order, error)
}

// CartReader supplies the cart snapshot when a checkout body carries no lines.
type CartReader interface {
	Get(ctx context.Context, p domain.Principal) (*domain.Cart, error)
}

type CheckoutHandler struct {
	checkout CheckoutService
	cart     CartReader
	timeout  time.Duration
}

func NewCheckoutHandler(svc CheckoutService, cart CartReader, timeout time.Duration) *CheckoutHandler {
	return &CheckoutHandler{
		checkout: svc,
		cart:     cart,
		timeout:  timeout,
	}
}

type CheckoutRequestDTO struct {
	Lines        []domain.CartLine   `json:"lines"`
	ShippingInfo domain.ShippingInfo `json:"shippingInfo"`
}

type CheckoutResponseDTO struct {
	Message string       `json:"message"`
	Order   OrderSummary `json:"order"`
}

type OrderSummary struct {
	ID          string             `json:"id"`
	Status      domain.OrderStatus `json:"status"`
	TotalAmount string             `json:"total_amount"`
	PlacedAt    time.Time          `json:"placed_at"`
}

// POST /api/v1/checkout
func (h *CheckoutHandler) Checkout(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	var req CheckoutRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}

	lines := req.Lines
	if lines == nil {
		c, err := h.cart.Get(ctx, p)
		if err != nil {
			handleError(w, r, err)
			return
		}
		lines = c.Lines
	}

	order, err := h.checkout.Checkout(ctx, p, checkout.Request{
		Lines:          lines,
		ShippingInfo:   req.ShippingInfo,
		IdempotencyKey: r.Header.Get("Idempotency-Key"),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}

	respondJSON(w, http.StatusCreated, CheckoutResponseDTO{
		Message: "Order placed successfully",
		Order: OrderSummary{
			ID:          order.ID.String(),
			Status:      order.Status,
			TotalAmount: money(order.TotalAmount),
			PlacedAt:    order.PlacedAt,
		},
	})
}
