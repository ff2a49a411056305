package tenant

import (
	"context"
	"time"

	"formaos.io/internal/authz"
)

// Store describes persistence operations required by the tenant layer.
// Every read or write of a tenant-scoped entity takes the organization id as
// an explicit argument; there is no way to fetch a row by primary key alone.
type Store interface {
	Organizations() OrganizationStore
	Memberships() MembershipStore
	Policies() PolicyStore
	Tasks() TaskStore
	Evidence() EvidenceStore
	Credentials() CredentialStore
	Incidents() IncidentStore
	ComplianceBlocks() ComplianceBlockStore
}

// OrganizationStore manages tenants themselves.
type OrganizationStore interface {
	Create(ctx context.Context, org *Organization) error
	Find(ctx context.Context, id string) (*Organization, error)
	UpdateSettings(ctx context.Context, id, name, planTier string) (*Organization, error)
}

// MembershipStore manages org membership rows. Its MembershipFor method
// satisfies authz.MembershipLookup so the store can back the guard directly.
type MembershipStore interface {
	MembershipFor(ctx context.Context, userID string) (authz.Membership, bool, error)
	Create(ctx context.Context, m *Membership) error
	Find(ctx context.Context, orgID, userID string) (*Membership, error)
	ListByOrg(ctx context.Context, orgID string) ([]Membership, error)
	UpdateRole(ctx context.Context, orgID, userID, role string) (*Membership, error)
	Remove(ctx context.Context, orgID, userID string) error
}

// PolicyStore manages governance policies.
type PolicyStore interface {
	Create(ctx context.Context, p *Policy) error
	Find(ctx context.Context, orgID, id string) (*Policy, error)
	ListByOrg(ctx context.Context, orgID string) ([]Policy, error)
	Update(ctx context.Context, orgID, id string, upd PolicyUpdate) (*Policy, error)
	Delete(ctx context.Context, orgID, id string) error
}

// PolicyUpdate carries optional field updates; nil means leave unchanged.
type PolicyUpdate struct {
	Title  *string
	Body   *string
	Status *string
}

// TaskStore manages compliance tasks.
type TaskStore interface {
	Create(ctx context.Context, t *Task) error
	Find(ctx context.Context, orgID, id string) (*Task, error)
	ListByOrg(ctx context.Context, orgID string) ([]Task, error)
	Assign(ctx context.Context, orgID, id, assigneeID string) (*Task, error)
	Complete(ctx context.Context, orgID, id string, at time.Time) (*Task, error)
}

// EvidenceStore manages evidence artifacts attached to tasks.
type EvidenceStore interface {
	Create(ctx context.Context, e *Evidence) error
	Find(ctx context.Context, orgID, id string) (*Evidence, error)
	ListByOrg(ctx context.Context, orgID string) ([]Evidence, error)
	SetVerification(ctx context.Context, orgID, id, status, verifiedBy string, at time.Time) (*Evidence, error)
}

// CredentialStore manages staff credentials and licences.
type CredentialStore interface {
	Create(ctx context.Context, c *Credential) error
	Find(ctx context.Context, orgID, id string) (*Credential, error)
	ListByOrg(ctx context.Context, orgID string) ([]Credential, error)
	SetStatus(ctx context.Context, orgID, id, status string) (*Credential, error)
	Delete(ctx context.Context, orgID, id string) error
}

// IncidentStore manages incident reports.
type IncidentStore interface {
	Create(ctx context.Context, i *Incident) error
	Find(ctx context.Context, orgID, id string) (*Incident, error)
	ListByOrg(ctx context.Context, orgID string) ([]Incident, error)
	SetStatus(ctx context.Context, orgID, id, status, actorID string, at time.Time) (*Incident, error)
}

// ComplianceBlockStore manages enforcement gates.
type ComplianceBlockStore interface {
	Create(ctx context.Context, b *ComplianceBlock) error
	ListUnresolved(ctx context.Context, orgID, gateKey string) ([]ComplianceBlock, error)
	Resolve(ctx context.Context, orgID, gateKey, resolvedBy string, at time.Time) (int, error)
}
