// Package pg backs the tenant store with PostgreSQL. Every scoped query
// carries a compound predicate on id and organization_id so a row from
// another tenant is indistinguishable from a missing row.
package pg

import (
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"

	"formaos.io/internal/tenant"
)

const (
	pgErrUniqueViolation     = "23505"
	pgErrForeignKeyViolation = "23503"
)

type Store struct {
	db *sql.DB
}

var _ tenant.Store = (*Store)(nil)

func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing handle. Tests pass a sqlmock connection.
func NewStore(db *sql.DB) *Store { return &Store{db: db} }

func (s *Store) Close() error { return s.db.Close() }

func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Organizations() tenant.OrganizationStore { return (*pgOrganizations)(s) }

func (s *Store) Memberships() tenant.MembershipStore { return (*pgMemberships)(s) }

func (s *Store) Policies() tenant.PolicyStore { return (*pgPolicies)(s) }

func (s *Store) Tasks() tenant.TaskStore { return (*pgTasks)(s) }

func (s *Store) Evidence() tenant.EvidenceStore { return (*pgEvidence)(s) }

func (s *Store) Credentials() tenant.CredentialStore { return (*pgCredentials)(s) }

func (s *Store) Incidents() tenant.IncidentStore { return (*pgIncidents)(s) }

func (s *Store) ComplianceBlocks() tenant.ComplianceBlockStore { return (*pgBlocks)(s) }

// --- helpers ---

func mapPgError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return tenant.ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgErrUniqueViolation:
			return tenant.ErrConflict
		case pgErrForeignKeyViolation:
			return tenant.ErrNotFound
		}
	}
	return err
}

func nullIfEmpty(s string) sql.NullString {
	s = strings.TrimSpace(s)
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func nullIfZero(t *time.Time) sql.NullTime {
	if t == nil || t.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func strOrEmpty(ns sql.NullString) string {
	if ns.Valid {
		return ns.String
	}
	return ""
}

func timeOrNil(nt sql.NullTime) *time.Time {
	if nt.Valid {
		t := nt.Time
		return &t
	}
	return nil
}
