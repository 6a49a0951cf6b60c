package auth

import (
	"fmt"
	"strings"

	"github.com/fjod/go_cart/storefront/internal/domain"
)

type TokenVerifier interface {
	Verify(raw string) (*Claims, error)
}

// Resolver turns a bearer credential into a Principal. It keeps no state
// between calls.
type Resolver struct {
	verifier TokenVerifier
}

func NewResolver(v TokenVerifier) *Resolver {
	return &Resolver{verifier: v}
}

func (r *Resolver) Resolve(token string) (domain.Principal, error) {
	claims, err := r.verifier.Verify(token)
	if err != nil {
		return domain.Principal{}, err
	}
	return principalFromClaims(claims)
}

// ResolveHeader accepts an Authorization header value ("Bearer <token>").
func (r *Resolver) ResolveHeader(header string) (domain.Principal, error) {
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return domain.Principal{}, fmt.Errorf("%w: missing bearer token", domain.ErrUnauthenticated)
	}
	return r.Resolve(strings.TrimSpace(token))
}

func principalFromClaims(c *Claims) (domain.Principal, error) {
	if c.IsAdmin() {
		if c.AdminID == "" {
			return domain.Principal{}, fmt.Errorf("%w: admin token without adminId", domain.ErrUnauthenticated)
		}
		switch c.Role {
		case "", domain.RoleAdmin, domain.RoleSuperAdmin:
		default:
			return domain.Principal{}, fmt.Errorf("%w: unknown admin role %q", domain.ErrUnauthenticated, c.Role)
		}
		return domain.NewAdminPrincipal(c.AdminID, c.Role), nil
	}

	if c.UserID == "" {
		return domain.Principal{}, fmt.Errorf("%w: token without userId", domain.ErrUnauthenticated)
	}
	return domain.NewUserPrincipal(c.UserID), nil
}
