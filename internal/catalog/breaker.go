package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"github.com/fjod/go_cart/storefront/internal/logging"
)

type Lookup interface {
	FindProduct(ctx context.Context, ref string) (*domain.Product, error)
	FindUser(ctx context.Context, id string) (*domain.User, error)
}

type BreakerSettings struct {
	Timeout      time.Duration // per lookup
	MaxRequests  uint32        // allowed while half-open
	OpenTimeout  time.Duration // how long the breaker stays open
	FailureTrips uint32        // consecutive failures that open it
}

// Guarded wraps a Lookup with a per-call timeout and a circuit breaker per
// collection. Not-found answers and cancelled callers count as successes. While a breaker is open
// lookups fail fast with domain.ErrStoreUnavailable.
type Guarded struct {
	next     Lookup
	timeout  time.Duration
	products *gobreaker.CircuitBreaker[*domain.Product]
	users    *gobreaker.CircuitBreaker[*domain.User]
}

func NewGuarded(next Lookup, s BreakerSettings) *Guarded {
	return &Guarded{
		next:     next,
		timeout:  s.Timeout,
		products: gobreaker.NewCircuitBreaker[*domain.Product](settings("catalog-products", s)),
		users:    gobreaker.NewCircuitBreaker[*domain.User](settings("catalog-users", s)),
	}
}

func settings(name string, s BreakerSettings) gobreaker.Settings {
	trips := s.FailureTrips
	if trips == 0 {
		trips = 5
	}
	log := logging.New("catalog")
	return gobreaker.Settings{
		Name:        name,
		MaxRequests: s.MaxRequests,
		Timeout:     s.OpenTimeout,
		ReadyToTrip: func(c gobreaker.Counts) bool {
			return c.ConsecutiveFailures >= trips
		},
		// A caller that gave up says nothing about catalog health.
		IsSuccessful: func(err error) bool {
			return err == nil || isNotFound(err) || errors.Is(err, context.Canceled)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn("circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	}
}

func (g *Guarded) FindProduct(ctx context.Context, ref string) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	p, err := g.products.Execute(func() (*domain.Product, error) {
		ctx, cancel := g.withTimeout(ctx)
		defer cancel()
		return g.next.FindProduct(ctx, ref)
	})
	return p, classify(err)
}

func (g *Guarded) FindUser(ctx context.Context, id string) (*domain.User, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	u, err := g.users.Execute(func() (*domain.User, error) {
		ctx, cancel := g.withTimeout(ctx)
		defer cancel()
		return g.next.FindUser(ctx, id)
	})
	return u, classify(err)
}

func (g *Guarded) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if g.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, g.timeout)
}

func isNotFound(err error) bool {
	return errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, ErrUserNotFound)
}

func classify(err error) error {
	switch {
	case err == nil, isNotFound(err), errors.Is(err, context.Canceled):
		return err
	case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
		return fmt.Errorf("%w: catalog: %w", domain.ErrStoreUnavailable, err)
	default:
		return fmt.Errorf("%w: catalog lookup failed: %w", domain.ErrStoreUnavailable, err)
	}
}
