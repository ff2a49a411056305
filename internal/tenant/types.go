package tenant

import (
	"errors"
	"time"
)

var (
	ErrNotFound     = errors.New("tenant: not found")
	ErrConflict     = errors.New("tenant: already exists")
	ErrInvalidInput = errors.New("tenant: invalid input")
)

// Organization is the tenant boundary. Every business entity hangs off its ID.
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	PlanTier  string    `json:"plan_tier"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Membership binds one user to one organization with a role. A user without
// a membership row is unauthorized for every tenant-scoped action.
type Membership struct {
	UserID         string    `json:"user_id"`
	OrganizationID string    `json:"organization_id"`
	Email          string    `json:"email"`
	Role           string    `json:"role"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Policy statuses.
const (
	PolicyDraft     = "draft"
	PolicyPublished = "published"
	PolicyArchived  = "archived"
)

type Policy struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organization_id"`
	Title          string    `json:"title"`
	Body           string    `json:"body,omitempty"`
	Status         string    `json:"status"`
	Version        int       `json:"version"`
	CreatedBy      string    `json:"created_by"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Task statuses.
const (
	TaskOpen       = "open"
	TaskInProgress = "in_progress"
	TaskCompleted  = "completed"
)

type Task struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Title          string     `json:"title"`
	Description    string     `json:"description,omitempty"`
	Status         string     `json:"status"`
	AssigneeID     string     `json:"assignee_id,omitempty"`
	CreatedBy      string     `json:"created_by"`
	DueAt          *time.Time `json:"due_at,omitempty"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Evidence verification statuses.
const (
	EvidencePending  = "pending"
	EvidenceVerified = "verified"
	EvidenceRejected = "rejected"
)

type Evidence struct {
	ID                 string     `json:"id"`
	OrganizationID     string     `json:"organization_id"`
	TaskID             string     `json:"task_id,omitempty"`
	FileName           string     `json:"file_name"`
	FilePath           string     `json:"file_path"`
	FileType           string     `json:"file_type,omitempty"`
	FileSize           int64      `json:"file_size"`
	UploadedBy         string     `json:"uploaded_by"`
	VerificationStatus string     `json:"verification_status"`
	VerifiedBy         string     `json:"verified_by,omitempty"`
	VerifiedAt         *time.Time `json:"verified_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// Credential statuses.
const (
	CredentialActive  = "active"
	CredentialExpired = "expired"
	CredentialRevoked = "revoked"
)

// Credential is a staff certificate or licence tracked for compliance. The
// secret hash covers credentials that double as API access material.
type Credential struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	UserID         string     `json:"user_id"`
	Name           string     `json:"name"`
	IssuedBy       string     `json:"issued_by,omitempty"`
	SecretHash     string     `json:"-"`
	Status         string     `json:"status"`
	ExpiresAt      *time.Time `json:"expires_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// Incident statuses.
const (
	IncidentOpen          = "open"
	IncidentInvestigating = "investigating"
	IncidentResolved      = "resolved"
)

type Incident struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	Title          string     `json:"title"`
	Severity       string     `json:"severity"`
	Status         string     `json:"status"`
	ReportedBy     string     `json:"reported_by"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// ComplianceBlock gates an action (export, report generation) until resolved.
type ComplianceBlock struct {
	ID             string     `json:"id"`
	OrganizationID string     `json:"organization_id"`
	GateKey        string     `json:"gate_key"`
	Reason         string     `json:"reason,omitempty"`
	CreatedBy      string     `json:"created_by,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	ResolvedAt     *time.Time `json:"resolved_at,omitempty"`
	ResolvedBy     string     `json:"resolved_by,omitempty"`
}

// Compliance gate keys.
const (
	GateAuditExport = "AUDIT_EXPORT"
	GateCertReport  = "CERT_REPORT"
)

func (p Policy) Scope() string          { return p.OrganizationID }
func (t Task) Scope() string            { return t.OrganizationID }
func (e Evidence) Scope() string        { return e.OrganizationID }
func (c Credential) Scope() string      { return c.OrganizationID }
func (i Incident) Scope() string        { return i.OrganizationID }
func (b ComplianceBlock) Scope() string { return b.OrganizationID }
func (m Membership) Scope() string      { return m.OrganizationID }
