package tenant

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"formaos.io/internal/authz"
	"formaos.io/internal/ids"
)

// InMemory implements Store with in-process concurrency safety. Used by
// tests and local development; production runs the Postgres store.
type InMemory struct {
	mu          sync.RWMutex
	orgs        map[string]*Organization
	memberships map[string]*Membership // userID -> membership
	policies    map[string]*Policy
	tasks       map[string]*Task
	evidence    map[string]*Evidence
	credentials map[string]*Credential
	incidents   map[string]*Incident
	blocks      map[string]*ComplianceBlock
}

// NewInMemory creates an empty in-memory store.
func NewInMemory() *InMemory {
	return &InMemory{
		orgs:        make(map[string]*Organization),
		memberships: make(map[string]*Membership),
		policies:    make(map[string]*Policy),
		tasks:       make(map[string]*Task),
		evidence:    make(map[string]*Evidence),
		credentials: make(map[string]*Credential),
		incidents:   make(map[string]*Incident),
		blocks:      make(map[string]*ComplianceBlock),
	}
}

func (s *InMemory) Organizations() OrganizationStore       { return (*memOrgs)(s) }
func (s *InMemory) Memberships() MembershipStore           { return (*memMembers)(s) }
func (s *InMemory) Policies() PolicyStore                  { return (*memPolicies)(s) }
func (s *InMemory) Tasks() TaskStore                       { return (*memTasks)(s) }
func (s *InMemory) Evidence() EvidenceStore                { return (*memEvidence)(s) }
func (s *InMemory) Credentials() CredentialStore           { return (*memCredentials)(s) }
func (s *InMemory) Incidents() IncidentStore               { return (*memIncidents)(s) }
func (s *InMemory) ComplianceBlocks() ComplianceBlockStore { return (*memBlocks)(s) }

var _ Store = (*InMemory)(nil)

// Organization store -------------------------------------------------------

type memOrgs InMemory

func (s *memOrgs) Create(_ context.Context, org *Organization) error {
	if strings.TrimSpace(org.Name) == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if org.ID == "" {
		org.ID = ids.New()
	}
	if _, exists := s.orgs[org.ID]; exists {
		return ErrConflict
	}
	now := time.Now().UTC()
	org.CreatedAt = now
	org.UpdatedAt = now
	cp := *org
	s.orgs[org.ID] = &cp
	return nil
}

func (s *memOrgs) Find(_ context.Context, id string) (*Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *org
	return &cp, nil
}

func (s *memOrgs) UpdateSettings(_ context.Context, id, name, planTier string) (*Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	org, ok := s.orgs[id]
	if !ok {
		return nil, ErrNotFound
	}
	if name != "" {
		org.Name = name
	}
	if planTier != "" {
		org.PlanTier = planTier
	}
	org.UpdatedAt = time.Now().UTC()
	cp := *org
	return &cp, nil
}

// Membership store ---------------------------------------------------------

type memMembers InMemory

func (s *memMembers) MembershipFor(_ context.Context, userID string) (authz.Membership, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[userID]
	if !ok {
		return authz.Membership{}, false, nil
	}
	return authz.Membership{OrganizationID: m.OrganizationID, Role: m.Role}, true, nil
}

func (s *memMembers) Create(_ context.Context, m *Membership) error {
	if m.UserID == "" || m.OrganizationID == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.memberships[m.UserID]; exists {
		return ErrConflict
	}
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	cp := *m
	s.memberships[m.UserID] = &cp
	return nil
}

func (s *memMembers) Find(_ context.Context, orgID, userID string) (*Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	m, ok := s.memberships[userID]
	if !ok || m.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (s *memMembers) ListByOrg(_ context.Context, orgID string) ([]Membership, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Membership
	for _, m := range s.memberships {
		if m.OrganizationID == orgID {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *memMembers) UpdateRole(_ context.Context, orgID, userID, role string) (*Membership, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[userID]
	if !ok || m.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	m.Role = role
	m.UpdatedAt = time.Now().UTC()
	cp := *m
	return &cp, nil
}

func (s *memMembers) Remove(_ context.Context, orgID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.memberships[userID]
	if !ok || m.OrganizationID != orgID {
		return ErrNotFound
	}
	delete(s.memberships, userID)
	return nil
}

// Policy store -------------------------------------------------------------

type memPolicies InMemory

func (s *memPolicies) Create(_ context.Context, p *Policy) error {
	if p.OrganizationID == "" || strings.TrimSpace(p.Title) == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.Status == "" {
		p.Status = PolicyDraft
	}
	if p.Version == 0 {
		p.Version = 1
	}
	now := time.Now().UTC()
	p.CreatedAt = now
	p.UpdatedAt = now
	cp := *p
	s.policies[p.ID] = &cp
	return nil
}

func (s *memPolicies) Find(_ context.Context, orgID, id string) (*Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.policies[id]
	if !ok || p.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

func (s *memPolicies) ListByOrg(_ context.Context, orgID string) ([]Policy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Policy
	for _, p := range s.policies {
		if p.OrganizationID == orgID {
			out = append(out, *p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memPolicies) Update(_ context.Context, orgID, id string, upd PolicyUpdate) (*Policy, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok || p.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	if upd.Title != nil {
		p.Title = *upd.Title
	}
	if upd.Body != nil {
		p.Body = *upd.Body
	}
	if upd.Status != nil {
		p.Status = *upd.Status
	}
	p.Version++
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	return &cp, nil
}

func (s *memPolicies) Delete(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.policies[id]
	if !ok || p.OrganizationID != orgID {
		return ErrNotFound
	}
	delete(s.policies, id)
	return nil
}

// Task store ---------------------------------------------------------------

type memTasks InMemory

func (s *memTasks) Create(_ context.Context, t *Task) error {
	if t.OrganizationID == "" || strings.TrimSpace(t.Title) == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if t.ID == "" {
		t.ID = ids.New()
	}
	if t.Status == "" {
		t.Status = TaskOpen
	}
	now := time.Now().UTC()
	t.CreatedAt = now
	t.UpdatedAt = now
	cp := *t
	s.tasks[t.ID] = &cp
	return nil
}

func (s *memTasks) Find(_ context.Context, orgID, id string) (*Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	t, ok := s.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	cp := *t
	return &cp, nil
}

func (s *memTasks) ListByOrg(_ context.Context, orgID string) ([]Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Task
	for _, t := range s.tasks {
		if t.OrganizationID == orgID {
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memTasks) Assign(_ context.Context, orgID, id, assigneeID string) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	t.AssigneeID = assigneeID
	if t.Status == TaskOpen {
		t.Status = TaskInProgress
	}
	t.UpdatedAt = time.Now().UTC()
	cp := *t
	return &cp, nil
}

func (s *memTasks) Complete(_ context.Context, orgID, id string, at time.Time) (*Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tasks[id]
	if !ok || t.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	t.Status = TaskCompleted
	t.CompletedAt = &at
	t.UpdatedAt = at
	cp := *t
	return &cp, nil
}

// Evidence store -----------------------------------------------------------

type memEvidence InMemory

func (s *memEvidence) Create(_ context.Context, e *Evidence) error {
	if e.OrganizationID == "" || strings.TrimSpace(e.FileName) == "" || e.UploadedBy == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.VerificationStatus == "" {
		e.VerificationStatus = EvidencePending
	}
	e.CreatedAt = time.Now().UTC()
	cp := *e
	s.evidence[e.ID] = &cp
	return nil
}

func (s *memEvidence) Find(_ context.Context, orgID, id string) (*Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.evidence[id]
	if !ok || e.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	cp := *e
	return &cp, nil
}

func (s *memEvidence) ListByOrg(_ context.Context, orgID string) ([]Evidence, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Evidence
	for _, e := range s.evidence {
		if e.OrganizationID == orgID {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memEvidence) SetVerification(_ context.Context, orgID, id, status, verifiedBy string, at time.Time) (*Evidence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.evidence[id]
	if !ok || e.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	e.VerificationStatus = status
	e.VerifiedBy = verifiedBy
	e.VerifiedAt = &at
	cp := *e
	return &cp, nil
}

// Credential store ---------------------------------------------------------

type memCredentials InMemory

func (s *memCredentials) Create(_ context.Context, c *Credential) error {
	if c.OrganizationID == "" || c.UserID == "" || strings.TrimSpace(c.Name) == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == "" {
		c.ID = ids.New()
	}
	if c.Status == "" {
		c.Status = CredentialActive
	}
	now := time.Now().UTC()
	c.CreatedAt = now
	c.UpdatedAt = now
	cp := *c
	s.credentials[c.ID] = &cp
	return nil
}

func (s *memCredentials) Find(_ context.Context, orgID, id string) (*Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.credentials[id]
	if !ok || c.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	cp := *c
	return &cp, nil
}

func (s *memCredentials) ListByOrg(_ context.Context, orgID string) ([]Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Credential
	for _, c := range s.credentials {
		if c.OrganizationID == orgID {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *memCredentials) SetStatus(_ context.Context, orgID, id, status string) (*Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok || c.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	c.Status = status
	c.UpdatedAt = time.Now().UTC()
	cp := *c
	return &cp, nil
}

func (s *memCredentials) Delete(_ context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.credentials[id]
	if !ok || c.OrganizationID != orgID {
		return ErrNotFound
	}
	delete(s.credentials, id)
	return nil
}

// Incident store -----------------------------------------------------------

type memIncidents InMemory

func (s *memIncidents) Create(_ context.Context, i *Incident) error {
	if i.OrganizationID == "" || strings.TrimSpace(i.Title) == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i.ID == "" {
		i.ID = ids.New()
	}
	if i.Status == "" {
		i.Status = IncidentOpen
	}
	now := time.Now().UTC()
	i.CreatedAt = now
	i.UpdatedAt = now
	cp := *i
	s.incidents[i.ID] = &cp
	return nil
}

func (s *memIncidents) Find(_ context.Context, orgID, id string) (*Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.incidents[id]
	if !ok || i.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	cp := *i
	return &cp, nil
}

func (s *memIncidents) ListByOrg(_ context.Context, orgID string) ([]Incident, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Incident
	for _, i := range s.incidents {
		if i.OrganizationID == orgID {
			out = append(out, *i)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a].CreatedAt.Before(out[b].CreatedAt) })
	return out, nil
}

func (s *memIncidents) SetStatus(_ context.Context, orgID, id, status, actorID string, at time.Time) (*Incident, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.incidents[id]
	if !ok || i.OrganizationID != orgID {
		return nil, ErrNotFound
	}
	i.Status = status
	if status == IncidentResolved {
		i.ResolvedBy = actorID
		i.ResolvedAt = &at
	}
	i.UpdatedAt = at
	cp := *i
	return &cp, nil
}

// Compliance block store ---------------------------------------------------

type memBlocks InMemory

func (s *memBlocks) Create(_ context.Context, b *ComplianceBlock) error {
	if b.OrganizationID == "" || b.GateKey == "" {
		return ErrInvalidInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if b.ID == "" {
		b.ID = ids.New()
	}
	b.CreatedAt = time.Now().UTC()
	cp := *b
	s.blocks[b.ID] = &cp
	return nil
}

func (s *memBlocks) ListUnresolved(_ context.Context, orgID, gateKey string) ([]ComplianceBlock, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []ComplianceBlock
	for _, b := range s.blocks {
		if b.OrganizationID != orgID || b.ResolvedAt != nil {
			continue
		}
		if gateKey != "" && b.GateKey != gateKey {
			continue
		}
		out = append(out, *b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *memBlocks) Resolve(_ context.Context, orgID, gateKey, resolvedBy string, at time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.blocks {
		if b.OrganizationID == orgID && b.GateKey == gateKey && b.ResolvedAt == nil {
			resolved := at
			b.ResolvedAt = &resolved
			b.ResolvedBy = resolvedBy
			n++
		}
	}
	return n, nil
}
