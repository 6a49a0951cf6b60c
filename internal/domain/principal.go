package domain

import (
	"fmt"
	"slices"
)

type PrincipalKind string

const (
	KindUser  PrincipalKind = "user"
	KindAdmin PrincipalKind = "admin"
)

const (
	RoleAdmin      = "admin"
	RoleSuperAdmin = "super_admin"
)

const (
	PermCartWrite         = "cart:write"
	PermCheckout          = "checkout"
	PermOrdersReadOwn     = "orders:read:own"
	PermOrdersCancelOwn   = "orders:cancel:own"
	PermOrdersReadAll     = "orders:read:all"
	PermOrdersStatusWrite = "orders:status:write"
	PermOrdersStats       = "orders:stats"
)

// Principal is the authenticated actor of a request. It is derived from a
// verified credential and never stored.
type Principal struct {
	Kind        PrincipalKind
	ID          string
	Role        string
	Permissions []string
}

func NewUserPrincipal(id string) Principal {
	return Principal{
		Kind:        KindUser,
		ID:          id,
		Permissions: []string{PermCartWrite, PermCheckout, PermOrdersReadOwn, PermOrdersCancelOwn},
	}
}

func NewAdminPrincipal(id, role string) Principal {
	if role == "" {
		role = RoleAdmin
	}
	perms := []string{PermOrdersReadAll, PermOrdersStatusWrite}
	if role == RoleSuperAdmin {
		perms = append(perms, PermOrdersStats)
	}
	return Principal{
		Kind:        KindAdmin,
		ID:          id,
		Role:        role,
		Permissions: perms,
	}
}

func (p Principal) IsUser() bool  { return p.Kind == KindUser }
func (p Principal) IsAdmin() bool { return p.Kind == KindAdmin }

func (p Principal) Can(perm string) bool {
	return slices.Contains(p.Permissions, perm)
}

// RequireKind fails with ErrForbidden unless the principal is one of kinds.
func RequireKind(p Principal, kinds ...PrincipalKind) error {
	if slices.Contains(kinds, p.Kind) {
		return nil
	}
	return fmt.Errorf("%w: %s principal not accepted here", ErrForbidden, p.Kind)
}
