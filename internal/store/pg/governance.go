package pg

import (
	"context"
	"database/sql"
	"time"

	"formaos.io/internal/ids"
	"formaos.io/internal/tenant"
)

// Policy store ---------------------------------------------------------------

type pgPolicies Store

func (s *pgPolicies) Create(ctx context.Context, p *tenant.Policy) error {
	if p.ID == "" {
		p.ID = ids.New()
	}
	if p.Status == "" {
		p.Status = tenant.PolicyDraft
	}
	if p.Version == 0 {
		p.Version = 1
	}
	row := s.db.QueryRowContext(ctx, `
		insert into org_policies (id, organization_id, title, body, status, version, created_by)
		values ($1, $2, $3, $4, $5, $6, $7)
		returning created_at, updated_at
	`, p.ID, p.OrganizationID, p.Title, p.Body, p.Status, p.Version, p.CreatedBy)
	if err := row.Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *pgPolicies) Find(ctx context.Context, orgID, id string) (*tenant.Policy, error) {
	var p tenant.Policy
	err := s.db.QueryRowContext(ctx, `
		select id, organization_id, title, body, status, version, created_by, created_at, updated_at
		from org_policies
		where id = $1 and organization_id = $2
	`, id, orgID).Scan(&p.ID, &p.OrganizationID, &p.Title, &p.Body, &p.Status, &p.Version,
		&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func (s *pgPolicies) ListByOrg(ctx context.Context, orgID string) ([]tenant.Policy, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, title, body, status, version, created_by, created_at, updated_at
		from org_policies
		where organization_id = $1
		order by created_at desc
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenant.Policy
	for rows.Next() {
		var p tenant.Policy
		if err := rows.Scan(&p.ID, &p.OrganizationID, &p.Title, &p.Body, &p.Status, &p.Version,
			&p.CreatedBy, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// Update bumps the version whenever the body changes.
func (s *pgPolicies) Update(ctx context.Context, orgID, id string, upd tenant.PolicyUpdate) (*tenant.Policy, error) {
	var p tenant.Policy
	err := s.db.QueryRowContext(ctx, `
		update org_policies
		set title = coalesce($3, title),
		    body = coalesce($4, body),
		    status = coalesce($5, status),
		    version = version + case when $4 is not null then 1 else 0 end,
		    updated_at = now()
		where id = $1 and organization_id = $2
		returning id, organization_id, title, body, status, version, created_by, created_at, updated_at
	`, id, orgID, upd.Title, upd.Body, upd.Status).Scan(&p.ID, &p.OrganizationID, &p.Title, &p.Body,
		&p.Status, &p.Version, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	return &p, nil
}

func (s *pgPolicies) Delete(ctx context.Context, orgID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from org_policies
		where id = $1 and organization_id = $2
	`, id, orgID)
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

// Task store -----------------------------------------------------------------

type pgTasks Store

func (s *pgTasks) Create(ctx context.Context, t *tenant.Task) error {
	if t.ID == "" {
		t.ID = ids.New()
	}
	if t.Status == "" {
		t.Status = tenant.TaskOpen
	}
	row := s.db.QueryRowContext(ctx, `
		insert into org_tasks (id, organization_id, title, description, status, assignee_id, created_by, due_at)
		values ($1, $2, $3, $4, $5, nullif($6, ''), $7, $8)
		returning created_at, updated_at
	`, t.ID, t.OrganizationID, t.Title, t.Description, t.Status, t.AssigneeID, t.CreatedBy, nullIfZero(t.DueAt))
	if err := row.Scan(&t.CreatedAt, &t.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *pgTasks) Find(ctx context.Context, orgID, id string) (*tenant.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx, `
		select id, organization_id, title, description, status,
		       coalesce(assignee_id, ''), created_by, due_at, completed_at, created_at, updated_at
		from org_tasks
		where id = $1 and organization_id = $2
	`, id, orgID))
}

func (s *pgTasks) ListByOrg(ctx context.Context, orgID string) ([]tenant.Task, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, title, description, status,
		       coalesce(assignee_id, ''), created_by, due_at, completed_at, created_at, updated_at
		from org_tasks
		where organization_id = $1
		order by created_at desc
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenant.Task
	for rows.Next() {
		var t tenant.Task
		var due, completed sql.NullTime
		if err := rows.Scan(&t.ID, &t.OrganizationID, &t.Title, &t.Description, &t.Status,
			&t.AssigneeID, &t.CreatedBy, &due, &completed, &t.CreatedAt, &t.UpdatedAt); err != nil {
			return nil, err
		}
		t.DueAt = timeOrNil(due)
		t.CompletedAt = timeOrNil(completed)
		result = append(result, t)
	}
	return result, rows.Err()
}

func (s *pgTasks) Assign(ctx context.Context, orgID, id, assigneeID string) (*tenant.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx, `
		update org_tasks
		set assignee_id = nullif($3, ''), status = $4, updated_at = now()
		where id = $1 and organization_id = $2
		returning id, organization_id, title, description, status,
		          coalesce(assignee_id, ''), created_by, due_at, completed_at, created_at, updated_at
	`, id, orgID, assigneeID, tenant.TaskInProgress))
}

func (s *pgTasks) Complete(ctx context.Context, orgID, id string, at time.Time) (*tenant.Task, error) {
	return scanTask(s.db.QueryRowContext(ctx, `
		update org_tasks
		set status = $3, completed_at = $4, updated_at = now()
		where id = $1 and organization_id = $2
		returning id, organization_id, title, description, status,
		          coalesce(assignee_id, ''), created_by, due_at, completed_at, created_at, updated_at
	`, id, orgID, tenant.TaskCompleted, at))
}

func scanTask(row *sql.Row) (*tenant.Task, error) {
	var t tenant.Task
	var due, completed sql.NullTime
	err := row.Scan(&t.ID, &t.OrganizationID, &t.Title, &t.Description, &t.Status,
		&t.AssigneeID, &t.CreatedBy, &due, &completed, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	t.DueAt = timeOrNil(due)
	t.CompletedAt = timeOrNil(completed)
	return &t, nil
}
