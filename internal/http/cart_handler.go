package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type CartService interface {
	Get(ctx context.Context, p domain.Principal) (*domain.Cart, error)
	Add(ctx context.Context, p domain.Principal, ref string, quantity int) (*domain.Cart, error)
	SetQuantity(ctx context.Context, p domain.Principal, ref string, quantity int) (*domain.Cart, error)
	Remove(ctx context.Context, p domain.Principal, ref string) (*domain.Cart, error)
	Clear(ctx context.Context, p domain.Principal) error
}

type CartHandler struct {
	cart    CartService
	timeout time.Duration
}

func NewCartHandler(cart CartService, timeout time.Duration) *CartHandler {
	return &CartHandler{
		cart:    cart,
		timeout: timeout,
	}
}

type AddItemRequestDTO struct {
	ProductRef string      `json:"product_ref"`
	Quantity   json.Number `json:"quantity"`
}

type UpdateQuantityRequestDTO struct {
	Quantity *json.Number `json:"quantity"`
}

// parseQuantity accepts whole numbers only; 1.5 or 1e2 are quantity errors,
// not malformed bodies.
func parseQuantity(n json.Number) (int, error) {
	q, err := strconv.Atoi(n.String())
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a whole number", domain.ErrInvalidQuantity, n.String())
	}
	return q, nil
}

// GET /api/v1/cart
func (h *CartHandler) GetCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	c, err := h.cart.Get(ctx, p)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// POST /api/v1/cart/items
func (h *CartHandler) AddItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	var req AddItemRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	quantity, err := parseQuantity(req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}

	c, err := h.cart.Add(ctx, p, req.ProductRef, quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusCreated, c)
}

// PUT /api/v1/cart/items/{product_ref}
func (h *CartHandler) UpdateQuantity(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	var req UpdateQuantityRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Quantity == nil {
		respondError(w, http.StatusBadRequest, "invalid_quantity", "quantity is required")
		return
	}
	quantity, err := parseQuantity(*req.Quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}

	c, err := h.cart.SetQuantity(ctx, p, chi.URLParam(r, "product_ref"), quantity)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DELETE /api/v1/cart/items/{product_ref}
func (h *CartHandler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	c, err := h.cart.Remove(ctx, p, chi.URLParam(r, "product_ref"))
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

// DELETE /api/v1/cart
func (h *CartHandler) ClearCart(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	if err := h.cart.Clear(ctx, p); err != nil {
		handleError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
