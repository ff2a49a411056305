package pg

import (
	"context"
	"database/sql"
	"errors"

	"formaos.io/internal/authz"
	"formaos.io/internal/ids"
	"formaos.io/internal/tenant"
)

// Organization store ---------------------------------------------------------

type pgOrganizations Store

func (s *pgOrganizations) Create(ctx context.Context, org *tenant.Organization) error {
	if org.ID == "" {
		org.ID = ids.New()
	}
	if org.PlanTier == "" {
		org.PlanTier = "starter"
	}
	row := s.db.QueryRowContext(ctx, `
		insert into organizations (id, name, plan_tier)
		values ($1, $2, $3)
		returning created_at, updated_at
	`, org.ID, org.Name, org.PlanTier)
	if err := row.Scan(&org.CreatedAt, &org.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *pgOrganizations) Find(ctx context.Context, id string) (*tenant.Organization, error) {
	var org tenant.Organization
	err := s.db.QueryRowContext(ctx, `
		select id, name, plan_tier, created_at, updated_at
		from organizations
		where id = $1
	`, id).Scan(&org.ID, &org.Name, &org.PlanTier, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &org, nil
}

func (s *pgOrganizations) UpdateSettings(ctx context.Context, id, name, planTier string) (*tenant.Organization, error) {
	var org tenant.Organization
	err := s.db.QueryRowContext(ctx, `
		update organizations
		set name = coalesce(nullif($2, ''), name),
		    plan_tier = coalesce(nullif($3, ''), plan_tier),
		    updated_at = now()
		where id = $1
		returning id, name, plan_tier, created_at, updated_at
	`, id, name, planTier).Scan(&org.ID, &org.Name, &org.PlanTier, &org.CreatedAt, &org.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &org, nil
}

// Membership store -----------------------------------------------------------

type pgMemberships Store

var _ authz.MembershipLookup = (*pgMemberships)(nil)

// MembershipFor resolves a user's single org membership. Absence is not
// an error: the guard turns (zero, false, nil) into its own denial.
func (s *pgMemberships) MembershipFor(ctx context.Context, userID string) (authz.Membership, bool, error) {
	var m authz.Membership
	err := s.db.QueryRowContext(ctx, `
		select organization_id, role
		from org_members
		where user_id = $1
	`, userID).Scan(&m.OrganizationID, &m.Role)
	if errors.Is(err, sql.ErrNoRows) {
		return authz.Membership{}, false, nil
	}
	if err != nil {
		return authz.Membership{}, false, err
	}
	return m, true, nil
}

func (s *pgMemberships) Create(ctx context.Context, m *tenant.Membership) error {
	row := s.db.QueryRowContext(ctx, `
		insert into org_members (user_id, organization_id, email, role)
		values ($1, $2, $3, $4)
		returning created_at, updated_at
	`, m.UserID, m.OrganizationID, m.Email, m.Role)
	if err := row.Scan(&m.CreatedAt, &m.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *pgMemberships) Find(ctx context.Context, orgID, userID string) (*tenant.Membership, error) {
	var m tenant.Membership
	err := s.db.QueryRowContext(ctx, `
		select user_id, organization_id, email, role, created_at, updated_at
		from org_members
		where user_id = $1 and organization_id = $2
	`, userID, orgID).Scan(&m.UserID, &m.OrganizationID, &m.Email, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &m, nil
}

func (s *pgMemberships) ListByOrg(ctx context.Context, orgID string) ([]tenant.Membership, error) {
	rows, err := s.db.QueryContext(ctx, `
		select user_id, organization_id, email, role, created_at, updated_at
		from org_members
		where organization_id = $1
		order by created_at asc
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenant.Membership
	for rows.Next() {
		var m tenant.Membership
		if err := rows.Scan(&m.UserID, &m.OrganizationID, &m.Email, &m.Role, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

func (s *pgMemberships) UpdateRole(ctx context.Context, orgID, userID, role string) (*tenant.Membership, error) {
	var m tenant.Membership
	err := s.db.QueryRowContext(ctx, `
		update org_members
		set role = $3, updated_at = now()
		where user_id = $1 and organization_id = $2
		returning user_id, organization_id, email, role, created_at, updated_at
	`, userID, orgID, role).Scan(&m.UserID, &m.OrganizationID, &m.Email, &m.Role, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &m, nil
}

func (s *pgMemberships) Remove(ctx context.Context, orgID, userID string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from org_members
		where user_id = $1 and organization_id = $2
	`, userID, orgID)
	if err != nil {
		return mapPgError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return tenant.ErrNotFound
	}
	return nil
}
