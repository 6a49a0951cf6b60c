package http

import (
	"context"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/orders"
)

type AdminOrdersService interface {
	ListAll(ctx context.Context, p domain.Principal, filter domain.OrderFilter) ([]orders.OrderView, error)
	SetStatus(ctx context.Context, p domain.Principal, id uuid.UUID, requested string) (*domain.Order, error)
	NextStatus(ctx context.Context, p domain.Principal, id uuid.UUID) (domain.OrderStatus, bool, error)
	Stats(ctx context.Context, p domain.Principal) (map[domain.OrderStatus]int, error)
}

type AdminHandler struct {
	orders  AdminOrdersService
	timeout time.Duration
}

func NewAdminHandler(svc AdminOrdersService, timeout time.Duration) *AdminHandler {
	return &AdminHandler{
		orders:  svc,
		timeout: timeout,
	}
}

type UpdateStatusRequestDTO struct {
	Status string `json:"status"`
}

type NextStatusResponseDTO struct {
	OrderID    string             `json:"order_id"`
	NextStatus domain.OrderStatus `json:"next_status,omitempty"`
	HasNext    bool               `json:"has_next"`
}

type StatsResponseDTO struct {
	Total    int                        `json:"total"`
	ByStatus map[domain.OrderStatus]int `json:"by_status"`
}

// GET /api/v1/admin/orders?status=&search=
func (h *AdminHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	q := r.URL.Query()
	views, err := h.orders.ListAll(ctx, p, domain.OrderFilter{
		Status: domain.OrderStatus(q.Get("status")),
		Search: q.Get("search"),
	})
	if err != nil {
		handleError(w, r, err)
		return
	}
	if views == nil {
		views = []orders.OrderView{}
	}
	respondJSON(w, http.StatusOK, views)
}

// PUT /api/v1/admin/orders/{order_id}/status
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
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

	var req UpdateStatusRequestDTO
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Status == "" {
		respondError(w, http.StatusBadRequest, "invalid_request", "status is required")
		return
	}

	order, err := h.orders.SetStatus(ctx, p, id, req.Status)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, convertOrder(order))
}

// GET /api/v1/admin/orders/{order_id}/next
func (h *AdminHandler) NextStatus(w http.ResponseWriter, r *http.Request) {
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

	next, hasNext, err := h.orders.NextStatus(ctx, p, id)
	if err != nil {
		handleError(w, r, err)
		return
	}
	respondJSON(w, http.StatusOK, NextStatusResponseDTO{
		OrderID:    id.String(),
		NextStatus: next,
		HasNext:    hasNext,
	})
}

// GET /api/v1/admin/orders/stats
func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	p, ok := principalFrom(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "unauthenticated", "missing authentication")
		return
	}

	counts, err := h.orders.Stats(ctx, p)
	if err != nil {
		handleError(w, r, err)
		return
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	respondJSON(w, http.StatusOK, StatsResponseDTO{Total: total, ByStatus: counts})
}
