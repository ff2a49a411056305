package authz

import (
	"context"
	"fmt"
)

// Membership binds a principal to exactly one organization with a role.
type Membership struct {
	OrganizationID string
	Role           string
}

// MembershipLookup resolves the calling principal's organization membership.
// found=false means the principal belongs to no organization.
type MembershipLookup interface {
	MembershipFor(ctx context.Context, userID string) (m Membership, found bool, err error)
}

// Guard is the single choke point every sensitive operation passes through
// before touching tenant data. It is safe for concurrent use and idempotent:
// calling Require twice in one request yields the same Context.
type Guard struct {
	memberships MembershipLookup
}

// NewGuard constructs a Guard over the given membership lookup.
func NewGuard(m MembershipLookup) (*Guard, error) {
	if m == nil {
		return nil, fmt.Errorf("authz: membership lookup is required")
	}
	return &Guard{memberships: m}, nil
}

// Require resolves the session principal, their membership, and the role's
// permission set, in that order; each step short-circuits the request.
// Lookup failures (including context timeouts) fail closed.
func (g *Guard) Require(ctx context.Context, perm Permission) (Context, error) {
	principal, ok := PrincipalFromContext(ctx)
	if !ok {
		return Context{}, ErrAuthRequired
	}

	m, found, err := g.memberships.MembershipFor(ctx, principal.UserID)
	if err != nil {
		return Context{}, fmt.Errorf("membership lookup: %w", ErrOrgNotFound)
	}
	if !found || m.OrganizationID == "" {
		return Context{}, ErrOrgNotFound
	}

	role := ParseRole(m.Role)
	if !HasPermission(role, perm) {
		return Context{}, ErrForbidden
	}

	return Context{
		OrgID:  m.OrganizationID,
		Role:   role,
		UserID: principal.UserID,
	}, nil
}

// RequireAdmin is Require for operations reserved to owner and admin roles
// regardless of individual permission grants, failing with ADMIN_REQUIRED.
func (g *Guard) RequireAdmin(ctx context.Context, perm Permission) (Context, error) {
	ac, err := g.Require(ctx, perm)
	if err != nil {
		return Context{}, err
	}
	if ac.Role != RoleOwner && ac.Role != RoleAdmin {
		return Context{}, ErrAdminRequired
	}
	return ac, nil
}
