package authz

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

type stubMemberships struct {
	byUser map[string]Membership
	err    error
}

func (s *stubMemberships) MembershipFor(_ context.Context, userID string) (Membership, bool, error) {
	if s.err != nil {
		return Membership{}, false, s.err
	}
	m, ok := s.byUser[userID]
	return m, ok, nil
}

func newGuard(t *testing.T, memberships *stubMemberships) *Guard {
	t.Helper()
	g, err := NewGuard(memberships)
	if err != nil {
		t.Fatalf("NewGuard: %v", err)
	}
	return g
}

func TestRequireWithoutSession(t *testing.T) {
	g := newGuard(t, &stubMemberships{byUser: map[string]Membership{
		"user-1": {OrganizationID: "org-1", Role: "owner"},
	}})

	for _, perm := range Permissions {
		_, err := g.Require(context.Background(), perm)
		if !errors.Is(err, ErrAuthRequired) {
			t.Fatalf("permission %q: expected AUTH_REQUIRED, got %v", perm, err)
		}
	}
}

func TestRequireWithoutMembership(t *testing.T) {
	g := newGuard(t, &stubMemberships{byUser: map[string]Membership{}})
	ctx := ContextWithPrincipal(context.Background(), Principal{UserID: "user-1", Email: "u@example.com"})

	for _, perm := range Permissions {
		_, err := g.Require(ctx, perm)
		if !errors.Is(err, ErrOrgNotFound) {
			t.Fatalf("permission %q: expected ORG_NOT_FOUND, got %v", perm, err)
		}
	}
}

func TestRequireLookupErrorFailsClosed(t *testing.T) {
	g := newGuard(t, &stubMemberships{err: context.DeadlineExceeded})
	ctx := ContextWithPrincipal(context.Background(), Principal{UserID: "user-1"})

	_, err := g.Require(ctx, PermEvidenceUpload)
	if err == nil {
		t.Fatal("expected failure when membership lookup errors")
	}
	if !errors.Is(err, ErrOrgNotFound) {
		t.Fatalf("lookup failure must fail closed, got %v", err)
	}
}

func TestRequireUnknownRoleDenied(t *testing.T) {
	g := newGuard(t, &stubMemberships{byUser: map[string]Membership{
		"user-1": {OrganizationID: "org-1", Role: "superadmin"},
	}})
	ctx := ContextWithPrincipal(context.Background(), Principal{UserID: "user-1"})

	for _, perm := range Permissions {
		_, err := g.Require(ctx, perm)
		if !errors.Is(err, ErrForbidden) {
			t.Fatalf("permission %q: expected FORBIDDEN for unknown role, got %v", perm, err)
		}
	}
}

func TestRequireInsufficientRole(t *testing.T) {
	g := newGuard(t, &stubMemberships{byUser: map[string]Membership{
		"user-1": {OrganizationID: "org-1", Role: "viewer"},
	}})
	ctx := ContextWithPrincipal(context.Background(), Principal{UserID: "user-1"})

	_, err := g.Require(ctx, PermEvidenceApprove)
	if !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected FORBIDDEN, got %v", err)
	}
}

func TestRequireSuccessAndIdempotence(t *testing.T) {
	g := newGuard(t, &stubMemberships{byUser: map[string]Membership{
		"user-1": {OrganizationID: "org-1", Role: "admin"},
	}})
	ctx := ContextWithPrincipal(context.Background(), Principal{UserID: "user-1", Email: "a@example.com"})

	first, err := g.Require(ctx, PermTaskAssign)
	if err != nil {
		t.Fatalf("Require: %v", err)
	}
	second, err := g.Require(ctx, PermTaskAssign)
	if err != nil {
		t.Fatalf("second Require: %v", err)
	}
	if first != second {
		t.Fatalf("guard not idempotent: %+v vs %+v", first, second)
	}
	if first.OrgID != "org-1" || first.Role != RoleAdmin || first.UserID != "user-1" {
		t.Fatalf("unexpected context: %+v", first)
	}
}

func TestRequireAdmin(t *testing.T) {
	g := newGuard(t, &stubMemberships{byUser: map[string]Membership{
		"mgr": {OrganizationID: "org-1", Role: "manager"},
		"own": {OrganizationID: "org-1", Role: "owner"},
	}})

	mgrCtx := ContextWithPrincipal(context.Background(), Principal{UserID: "mgr"})
	_, err := g.RequireAdmin(mgrCtx, PermTeamInviteMembers)
	if !errors.Is(err, ErrAdminRequired) {
		t.Fatalf("expected ADMIN_REQUIRED, got %v", err)
	}

	ownCtx := ContextWithPrincipal(context.Background(), Principal{UserID: "own"})
	ac, err := g.RequireAdmin(ownCtx, PermTeamInviteMembers)
	if err != nil {
		t.Fatalf("RequireAdmin: %v", err)
	}
	if ac.Role != RoleOwner {
		t.Fatalf("unexpected role: %v", ac.Role)
	}
}

func TestErrorCodes(t *testing.T) {
	if code := CodeOf(ErrAuthRequired); code != "AUTH_REQUIRED" {
		t.Fatalf("unexpected code: %s", code)
	}
	wrapped := fmt.Errorf("scoped fetch: %w", ErrOrgMismatch)
	if code := CodeOf(wrapped); code != "ORG_MISMATCH" {
		t.Fatalf("wrapped code lost: %s", code)
	}
	if !errors.Is(wrapped, ErrOrgMismatch) {
		t.Fatal("errors.Is should match wrapped coded error")
	}
	if code := CodeOf(errors.New("plain")); code != "" {
		t.Fatalf("expected empty code for plain error, got %s", code)
	}
}
