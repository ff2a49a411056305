package tenant

import (
	"errors"
	"testing"

	"formaos.io/internal/authz"
)

func TestVerifyScope(t *testing.T) {
	ac := authz.Context{OrgID: "org-1", Role: authz.RoleOwner, UserID: "owner-1"}

	if err := VerifyScope(ac, Policy{ID: "policy-1", OrganizationID: "org-1"}); err != nil {
		t.Fatalf("same-org scope rejected: %v", err)
	}

	err := VerifyScope(ac, Policy{ID: "policy-2", OrganizationID: "org-2"})
	if !errors.Is(err, authz.ErrOrgMismatch) {
		t.Fatalf("expected ORG_MISMATCH, got %v", err)
	}
}

func TestVerifyScopeEmptyOrg(t *testing.T) {
	// Missing organization on either side must never pass.
	if err := VerifyScope(authz.Context{}, Evidence{OrganizationID: ""}); !errors.Is(err, authz.ErrOrgMismatch) {
		t.Fatalf("expected ORG_MISMATCH for empty scopes, got %v", err)
	}
	ac := authz.Context{OrgID: "org-1"}
	if err := VerifyScope(ac, Evidence{OrganizationID: ""}); !errors.Is(err, authz.ErrOrgMismatch) {
		t.Fatalf("expected ORG_MISMATCH for entity without org, got %v", err)
	}
}
