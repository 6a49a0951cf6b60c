package domain

import "errors"

// Error kinds shared by every layer. Callers classify with errors.Is; messages
// are extended with fmt.Errorf("%w: ...") where a field or status needs naming.
var (
	ErrUnauthenticated     = errors.New("unauthenticated")
	ErrForbidden           = errors.New("forbidden")
	ErrInvalidRequest      = errors.New("invalid request")
	ErrInvalidShipping     = errors.New("invalid shipping info")
	ErrInvalidQuantity     = errors.New("quantity must be a positive integer")
	ErrEmptyCart           = errors.New("cart is empty, nothing to checkout")
	ErrProductNotFound     = errors.New("product not found")
	ErrOrderNotFound       = errors.New("order not found")
	ErrOrderTerminal       = errors.New("order is in a terminal status")
	ErrOrderNotCancellable = errors.New("order cannot be cancelled")
	ErrInvalidTransition   = errors.New("illegal transition of order status")
	ErrConflict            = errors.New("order was modified concurrently")
	ErrStoreUnavailable    = errors.New("store unavailable")
)
