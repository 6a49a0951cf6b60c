package orders

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logging"
	"github.com/fjod/go_cart/storefront/internal/metrics"
)

// Cancel lets the owner cancel an order that has not shipped yet.
func (s *Service) Cancel(ctx context.Context, p domain.Principal, id uuid.UUID) (*domain.Order, error) {
	if err := domain.RequireKind(p, domain.KindUser); err != nil {
		return nil, err
	}
	return s.transition(ctx, p, id, domain.OrderStatusCancelled)
}

// SetStatus moves an order to requested on behalf of an admin. Asking for
// the status the order already has succeeds without writing.
func (s *Service) SetStatus(ctx context.Context, p domain.Principal, id uuid.UUID, requested string) (*domain.Order, error) {
	if err := domain.RequireKind(p, domain.KindAdmin); err != nil {
		return nil, err
	}
	if !p.Can(domain.PermOrdersStatusWrite) {
		return nil, fmt.Errorf("%w: missing %s", domain.ErrForbidden, domain.PermOrdersStatusWrite)
	}
	status, ok := domain.ParseOrderStatus(requested)
	if !ok {
		return nil, fmt.Errorf("%w: unknown status %q", domain.ErrInvalidRequest, requested)
	}
	return s.transition(ctx, p, id, status)
}

// NextStatus suggests the next happy-path status for the admin console.
func (s *Service) NextStatus(ctx context.Context, p domain.Principal, id uuid.UUID) (domain.OrderStatus, bool, error) {
	if err := domain.RequireKind(p, domain.KindAdmin); err != nil {
		return "", false, err
	}
	order, err := s.load(ctx, p, id)
	if err != nil {
		return "", false, err
	}
	next, ok := domain.Next(order.Status)
	return next, ok, nil
}

func (s *Service) transition(ctx context.Context, p domain.Principal, id uuid.UUID, requested domain.OrderStatus) (*domain.Order, error) {
	order, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}

	next, err := domain.Transition(order.Status, requested, p.Kind)
	if err != nil {
		return nil, err
	}
	if next == order.Status {
		return order, nil
	}

	updated, err := s.store.UpdateStatus(ctx, order.ID, order.Status, next)
	if err != nil {
		return nil, err
	}

	metrics.StatusTransitions.WithLabelValues(string(order.Status), string(next), string(p.Kind)).Inc()
	logging.FromCtx(ctx).Info("order status changed",
		"order_id", order.ID,
		"from", order.Status,
		"to", next,
		"actor_kind", p.Kind,
		"actor_id", p.ID,
	)
	return updated, nil
}
