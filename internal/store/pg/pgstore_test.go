package pg

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"

	"formaos.io/internal/audit"
	"formaos.io/internal/tenant"
)

func newMock(t *testing.T) (*Store, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	return NewStore(db), mock, func() { _ = db.Close() }
}

func TestMembershipForResolvesRole(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("select organization_id, role.*from org_members").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"organization_id", "role"}).AddRow("org-1", "manager"))

	m, found, err := store.Memberships().MembershipFor(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("MembershipFor: %v", err)
	}
	if !found || m.OrganizationID != "org-1" || m.Role != "manager" {
		t.Fatalf("unexpected membership: %+v found=%v", m, found)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestMembershipForAbsenceIsNotAnError(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("select organization_id, role.*from org_members").
		WithArgs("ghost").
		WillReturnError(sql.ErrNoRows)

	_, found, err := store.Memberships().MembershipFor(context.Background(), "ghost")
	if err != nil {
		t.Fatalf("absence must not surface as an error, got %v", err)
	}
	if found {
		t.Fatal("expected found=false")
	}
}

func TestPolicyFindCarriesOrgPredicate(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("from org_policies.*where id = \\$1 and organization_id = \\$2").
		WithArgs("pol-1", "org-1").
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "title", "body", "status", "version", "created_by", "created_at", "updated_at",
		}).AddRow("pol-1", "org-1", "Access Control", "...", "published", 2, "user-1", now, now))

	p, err := store.Policies().Find(context.Background(), "org-1", "pol-1")
	if err != nil {
		t.Fatalf("Find: %v", err)
	}
	if p.Version != 2 || p.Status != tenant.PolicyPublished {
		t.Fatalf("unexpected policy: %+v", p)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestPolicyFindCrossTenantLooksMissing(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("from org_policies").
		WithArgs("pol-1", "org-other").
		WillReturnError(sql.ErrNoRows)

	if _, err := store.Policies().Find(context.Background(), "org-other", "pol-1"); !errors.Is(err, tenant.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMembershipCreateMapsUniqueViolation(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	mock.ExpectQuery("insert into org_members").
		WithArgs("user-1", "org-1", "u@example.com", "member").
		WillReturnError(&pgconn.PgError{Code: pgErrUniqueViolation})

	err := store.Memberships().Create(context.Background(), &tenant.Membership{
		UserID: "user-1", OrganizationID: "org-1", Email: "u@example.com", Role: "member",
	})
	if !errors.Is(err, tenant.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestEvidenceSetVerificationScoped(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	now := time.Now().UTC()
	mock.ExpectQuery("update org_evidence.*where id = \\$1 and organization_id = \\$2").
		WithArgs("ev-1", "org-1", "verified", "user-9", now).
		WillReturnRows(sqlmock.NewRows([]string{
			"id", "organization_id", "task_id", "file_name", "file_path", "file_type", "file_size",
			"uploaded_by", "verification_status", "verified_by", "verified_at", "created_at",
		}).AddRow("ev-1", "org-1", "", "soc2.pdf", "/blobs/ev-1", "application/pdf", int64(1024),
			"user-1", "verified", "user-9", now, now))

	e, err := store.Evidence().SetVerification(context.Background(), "org-1", "ev-1", "verified", "user-9", now)
	if err != nil {
		t.Fatalf("SetVerification: %v", err)
	}
	if e.VerificationStatus != tenant.EvidenceVerified || e.VerifiedBy != "user-9" {
		t.Fatalf("unexpected evidence: %+v", e)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestBlockResolveCountsRows(t *testing.T) {
	store, mock, done := newMock(t)
	defer done()

	at := time.Now().UTC()
	mock.ExpectExec("update org_compliance_blocks").
		WithArgs("org-1", tenant.GateAuditExport, "user-2", at).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := store.ComplianceBlocks().Resolve(context.Background(), "org-1", tenant.GateAuditExport, "user-2", at)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 resolved blocks, got %d", n)
	}
}

func TestAuditSinkAppend(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	sink := NewAuditSink(db)
	rec := audit.Record{
		ID:             "evt-1",
		OrganizationID: "org-1",
		ActorUserID:    "user-1",
		ActorRole:      "admin",
		EntityType:     "evidence",
		EntityID:       "ev-1",
		ActionType:     "evidence.verify",
		After:          []byte(`{"verification_status":"verified"}`),
		CreatedAt:      time.Now().UTC(),
	}

	mock.ExpectExec("insert into org_audit_events").
		WithArgs(rec.ID, rec.OrganizationID, rec.ActorUserID, rec.ActorRole, rec.EntityType, rec.EntityID,
			rec.ActionType, nil, []byte(rec.After), rec.Reason, rec.RequestID, rec.CreatedAt).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := sink.Append(context.Background(), rec); err != nil {
		t.Fatalf("Append: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}
