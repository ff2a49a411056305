package tenant

import (
	"context"
	"errors"
	"testing"
	"time"
)

func seedTwoOrgs(t *testing.T, store *InMemory) (orgA, orgB string) {
	t.Helper()
	ctx := context.Background()

	a := &Organization{Name: "Org A", PlanTier: "scale"}
	if err := store.Organizations().Create(ctx, a); err != nil {
		t.Fatalf("create org A: %v", err)
	}
	b := &Organization{Name: "Org B", PlanTier: "starter"}
	if err := store.Organizations().Create(ctx, b); err != nil {
		t.Fatalf("create org B: %v", err)
	}
	return a.ID, b.ID
}

func TestPolicyLookupIsOrgScoped(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	orgA, orgB := seedTwoOrgs(t, store)

	p := &Policy{OrganizationID: orgB, Title: "Data Retention", CreatedBy: "user-b"}
	if err := store.Policies().Create(ctx, p); err != nil {
		t.Fatalf("create policy: %v", err)
	}

	// Fetching B's policy through A's scope must behave as not-found.
	if _, err := store.Policies().Find(ctx, orgA, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound across tenants, got %v", err)
	}
	// And the same id resolves normally within its own organization.
	got, err := store.Policies().Find(ctx, orgB, p.ID)
	if err != nil {
		t.Fatalf("find policy: %v", err)
	}
	if got.Title != "Data Retention" {
		t.Fatalf("unexpected policy: %+v", got)
	}
}

func TestPolicyUpdateAcrossTenantsMutatesNothing(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	orgA, orgB := seedTwoOrgs(t, store)

	p := &Policy{OrganizationID: orgB, Title: "Access Control", CreatedBy: "user-b"}
	if err := store.Policies().Create(ctx, p); err != nil {
		t.Fatalf("create policy: %v", err)
	}

	title := "Hijacked"
	if _, err := store.Policies().Update(ctx, orgA, p.ID, PolicyUpdate{Title: &title}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	got, err := store.Policies().Find(ctx, orgB, p.ID)
	if err != nil {
		t.Fatalf("find policy: %v", err)
	}
	if got.Title != "Access Control" || got.Version != 1 {
		t.Fatalf("cross-tenant update leaked: %+v", got)
	}
}

func TestMembershipForUnknownUser(t *testing.T) {
	store := NewInMemory()
	_, found, err := store.Memberships().MembershipFor(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("MembershipFor: %v", err)
	}
	if found {
		t.Fatal("expected no membership for unknown user")
	}
}

func TestMembershipSingleOrg(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	orgA, _ := seedTwoOrgs(t, store)

	m := &Membership{UserID: "user-1", OrganizationID: orgA, Email: "u1@example.com", Role: "member"}
	if err := store.Memberships().Create(ctx, m); err != nil {
		t.Fatalf("create membership: %v", err)
	}
	if err := store.Memberships().Create(ctx, &Membership{UserID: "user-1", OrganizationID: orgA, Role: "admin"}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict for duplicate membership, got %v", err)
	}

	resolved, found, err := store.Memberships().MembershipFor(ctx, "user-1")
	if err != nil || !found {
		t.Fatalf("MembershipFor: found=%v err=%v", found, err)
	}
	if resolved.OrganizationID != orgA || resolved.Role != "member" {
		t.Fatalf("unexpected membership: %+v", resolved)
	}
}

func TestEvidenceVerificationLifecycle(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	orgA, _ := seedTwoOrgs(t, store)

	e := &Evidence{OrganizationID: orgA, FileName: "policy.pdf", FilePath: orgA + "/t/policy.pdf", FileSize: 1024, UploadedBy: "user-1"}
	if err := store.Evidence().Create(ctx, e); err != nil {
		t.Fatalf("create evidence: %v", err)
	}
	if e.VerificationStatus != EvidencePending {
		t.Fatalf("expected pending status, got %s", e.VerificationStatus)
	}

	at := time.Now().UTC()
	got, err := store.Evidence().SetVerification(ctx, orgA, e.ID, EvidenceVerified, "user-2", at)
	if err != nil {
		t.Fatalf("SetVerification: %v", err)
	}
	if got.VerificationStatus != EvidenceVerified || got.VerifiedBy != "user-2" || got.VerifiedAt == nil {
		t.Fatalf("unexpected evidence: %+v", got)
	}
}

func TestComplianceBlockResolve(t *testing.T) {
	store := NewInMemory()
	ctx := context.Background()
	orgA, orgB := seedTwoOrgs(t, store)

	for _, org := range []string{orgA, orgA, orgB} {
		b := &ComplianceBlock{OrganizationID: org, GateKey: GateAuditExport, CreatedBy: "sys"}
		if err := store.ComplianceBlocks().Create(ctx, b); err != nil {
			t.Fatalf("create block: %v", err)
		}
	}

	blocks, err := store.ComplianceBlocks().ListUnresolved(ctx, orgA, GateAuditExport)
	if err != nil {
		t.Fatalf("ListUnresolved: %v", err)
	}
	if len(blocks) != 2 {
		t.Fatalf("expected 2 unresolved blocks, got %d", len(blocks))
	}

	n, err := store.ComplianceBlocks().Resolve(ctx, orgA, GateAuditExport, "user-9", time.Now().UTC())
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 rows resolved, got %d", n)
	}

	// Org B's block is untouched.
	remaining, err := store.ComplianceBlocks().ListUnresolved(ctx, orgB, GateAuditExport)
	if err != nil {
		t.Fatalf("ListUnresolved: %v", err)
	}
	if len(remaining) != 1 {
		t.Fatalf("resolution leaked across tenants: %d", len(remaining))
	}
}
