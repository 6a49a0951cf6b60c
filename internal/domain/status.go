package domain

import "fmt"

// statusFlow is the linear happy path used by Next.
var statusFlow = []OrderStatus{
	OrderStatusPlaced,
	OrderStatusShipped,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
}

// adminTransitions is the full transition table. Owners may only use the
// order_placed -> cancelled edge, checked separately in Transition.
var adminTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPlaced:         {OrderStatusShipped, OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusShipped:        {OrderStatusOutForDelivery, OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusOutForDelivery: {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:      nil,
	OrderStatusCancelled:      nil,
}

func CanTransitionTo(from, to OrderStatus) bool {
	for _, allowed := range adminTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// Transition decides the status an order moves to when actor requests
// requested while the order is in current.
//
// Admins may jump to any later status; asking for the current non-terminal
// status is accepted as a no-op. Users may only cancel, and only from
// order_placed.
func Transition(current, requested OrderStatus, actor PrincipalKind) (OrderStatus, error) {
	if _, ok := adminTransitions[requested]; !ok {
		return current, fmt.Errorf("%w: unknown status %q", ErrInvalidRequest, requested)
	}
	if _, ok := adminTransitions[current]; !ok {
		return current, fmt.Errorf("%w: order has unknown status %q", ErrInvalidTransition, current)
	}

	switch actor {
	case KindUser:
		if requested != OrderStatusCancelled {
			return current, fmt.Errorf("%w: users may only cancel orders", ErrForbidden)
		}
		if current.IsTerminal() {
			return current, fmt.Errorf("%w: %w: order is %s", ErrOrderNotCancellable, ErrOrderTerminal, current)
		}
		if current != OrderStatusPlaced {
			return current, fmt.Errorf("%w: order is %s", ErrOrderNotCancellable, current)
		}
		return OrderStatusCancelled, nil

	case KindAdmin:
		if current.IsTerminal() {
			return current, fmt.Errorf("%w: order is %s", ErrOrderTerminal, current)
		}
		if requested == current {
			return current, nil
		}
		if !CanTransitionTo(current, requested) {
			return current, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current, requested)
		}
		return requested, nil

	default:
		return current, fmt.Errorf("%w: unknown actor %q", ErrForbidden, actor)
	}
}

// Next returns the next status on the happy path, or false when the status is
// terminal or unknown. It is a hint for the admin console, not a rule.
func Next(status OrderStatus) (OrderStatus, bool) {
	if status.IsTerminal() {
		return "", false
	}
	for i, s := range statusFlow {
		if s == status && i+1 < len(statusFlow) {
			return statusFlow[i+1], true
		}
	}
	return "", false
}
