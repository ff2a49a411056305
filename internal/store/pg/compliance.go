package pg

import (
	"context"
	"database/sql"
	"time"

	"formaos.io/internal/ids"
	"formaos.io/internal/tenant"
)

// Evidence store -------------------------------------------------------------

type pgEvidence Store

func (s *pgEvidence) Create(ctx context.Context, e *tenant.Evidence) error {
	if e.ID == "" {
		e.ID = ids.New()
	}
	if e.VerificationStatus == "" {
		e.VerificationStatus = tenant.EvidencePending
	}
	row := s.db.QueryRowContext(ctx, `
		insert into org_evidence (id, organization_id, task_id, file_name, file_path, file_type, file_size, uploaded_by, verification_status)
		values ($1, $2, nullif($3, ''), $4, $5, $6, $7, $8, $9)
		returning created_at
	`, e.ID, e.OrganizationID, e.TaskID, e.FileName, e.FilePath, e.FileType, e.FileSize, e.UploadedBy, e.VerificationStatus)
	if err := row.Scan(&e.CreatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *pgEvidence) Find(ctx context.Context, orgID, id string) (*tenant.Evidence, error) {
	return scanEvidence(s.db.QueryRowContext(ctx, `
		select id, organization_id, coalesce(task_id, ''), file_name, file_path, file_type, file_size,
		       uploaded_by, verification_status, coalesce(verified_by, ''), verified_at, created_at
		from org_evidence
		where id = $1 and organization_id = $2
	`, id, orgID))
}

func (s *pgEvidence) ListByOrg(ctx context.Context, orgID string) ([]tenant.Evidence, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, coalesce(task_id, ''), file_name, file_path, file_type, file_size,
		       uploaded_by, verification_status, coalesce(verified_by, ''), verified_at, created_at
		from org_evidence
		where organization_id = $1
		order by created_at desc
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenant.Evidence
	for rows.Next() {
		var e tenant.Evidence
		var verifiedAt sql.NullTime
		if err := rows.Scan(&e.ID, &e.OrganizationID, &e.TaskID, &e.FileName, &e.FilePath, &e.FileType,
			&e.FileSize, &e.UploadedBy, &e.VerificationStatus, &e.VerifiedBy, &verifiedAt, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.VerifiedAt = timeOrNil(verifiedAt)
		result = append(result, e)
	}
	return result, rows.Err()
}

func (s *pgEvidence) SetVerification(ctx context.Context, orgID, id, status, verifiedBy string, at time.Time) (*tenant.Evidence, error) {
	return scanEvidence(s.db.QueryRowContext(ctx, `
		update org_evidence
		set verification_status = $3, verified_by = nullif($4, ''), verified_at = $5
		where id = $1 and organization_id = $2
		returning id, organization_id, coalesce(task_id, ''), file_name, file_path, file_type, file_size,
		          uploaded_by, verification_status, coalesce(verified_by, ''), verified_at, created_at
	`, id, orgID, status, verifiedBy, at))
}

func scanEvidence(row *sql.Row) (*tenant.Evidence, error) {
	var e tenant.Evidence
	var verifiedAt sql.NullTime
	err := row.Scan(&e.ID, &e.OrganizationID, &e.TaskID, &e.FileName, &e.FilePath, &e.FileType,
		&e.FileSize, &e.UploadedBy, &e.VerificationStatus, &e.VerifiedBy, &verifiedAt, &e.CreatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	e.VerifiedAt = timeOrNil(verifiedAt)
	return &e, nil
}

// Credential store -----------------------------------------------------------

type pgCredentials Store

func (s *pgCredentials) Create(ctx context.Context, c *tenant.Credential) error {
	if c.ID == "" {
		c.ID = ids.New()
	}
	if c.Status == "" {
		c.Status = tenant.CredentialActive
	}
	row := s.db.QueryRowContext(ctx, `
		insert into org_credentials (id, organization_id, user_id, name, issued_by, secret_hash, status, expires_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8)
		returning created_at, updated_at
	`, c.ID, c.OrganizationID, c.UserID, c.Name, c.IssuedBy, c.SecretHash, c.Status, nullIfZero(c.ExpiresAt))
	if err := row.Scan(&c.CreatedAt, &c.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *pgCredentials) Find(ctx context.Context, orgID, id string) (*tenant.Credential, error) {
	return scanCredential(s.db.QueryRowContext(ctx, `
		select id, organization_id, user_id, name, issued_by, secret_hash, status, expires_at, created_at, updated_at
		from org_credentials
		where id = $1 and organization_id = $2
	`, id, orgID))
}

func (s *pgCredentials) ListByOrg(ctx context.Context, orgID string) ([]tenant.Credential, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, user_id, name, issued_by, secret_hash, status, expires_at, created_at, updated_at
		from org_credentials
		where organization_id = $1
		order by created_at desc
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenant.Credential
	for rows.Next() {
		var c tenant.Credential
		var expires sql.NullTime
		if err := rows.Scan(&c.ID, &c.OrganizationID, &c.UserID, &c.Name, &c.IssuedBy, &c.SecretHash,
			&c.Status, &expires, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.ExpiresAt = timeOrNil(expires)
		result = append(result, c)
	}
	return result, rows.Err()
}

func (s *pgCredentials) SetStatus(ctx context.Context, orgID, id, status string) (*tenant.Credential, error) {
	return scanCredential(s.db.QueryRowContext(ctx, `
		update org_credentials
		set status = $3, updated_at = now()
		where id = $1 and organization_id = $2
		returning id, organization_id, user_id, name, issued_by, secret_hash, status, expires_at, created_at, updated_at
	`, id, orgID, status))
}

func (s *pgCredentials) Delete(ctx context.Context, orgID, id string) error {
	res, err := s.db.ExecContext(ctx, `
		delete from org_credentials
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

func scanCredential(row *sql.Row) (*tenant.Credential, error) {
	var c tenant.Credential
	var expires sql.NullTime
	err := row.Scan(&c.ID, &c.OrganizationID, &c.UserID, &c.Name, &c.IssuedBy, &c.SecretHash,
		&c.Status, &expires, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	c.ExpiresAt = timeOrNil(expires)
	return &c, nil
}

// Incident store -------------------------------------------------------------

type pgIncidents Store

func (s *pgIncidents) Create(ctx context.Context, i *tenant.Incident) error {
	if i.ID == "" {
		i.ID = ids.New()
	}
	if i.Status == "" {
		i.Status = tenant.IncidentOpen
	}
	row := s.db.QueryRowContext(ctx, `
		insert into org_incidents (id, organization_id, title, severity, status, reported_by)
		values ($1, $2, $3, $4, $5, $6)
		returning created_at, updated_at
	`, i.ID, i.OrganizationID, i.Title, i.Severity, i.Status, i.ReportedBy)
	if err := row.Scan(&i.CreatedAt, &i.UpdatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *pgIncidents) Find(ctx context.Context, orgID, id string) (*tenant.Incident, error) {
	return scanIncident(s.db.QueryRowContext(ctx, `
		select id, organization_id, title, severity, status, reported_by,
		       coalesce(resolved_by, ''), resolved_at, created_at, updated_at
		from org_incidents
		where id = $1 and organization_id = $2
	`, id, orgID))
}

func (s *pgIncidents) ListByOrg(ctx context.Context, orgID string) ([]tenant.Incident, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, title, severity, status, reported_by,
		       coalesce(resolved_by, ''), resolved_at, created_at, updated_at
		from org_incidents
		where organization_id = $1
		order by created_at desc
	`, orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenant.Incident
	for rows.Next() {
		var i tenant.Incident
		var resolvedAt sql.NullTime
		if err := rows.Scan(&i.ID, &i.OrganizationID, &i.Title, &i.Severity, &i.Status, &i.ReportedBy,
			&i.ResolvedBy, &resolvedAt, &i.CreatedAt, &i.UpdatedAt); err != nil {
			return nil, err
		}
		i.ResolvedAt = timeOrNil(resolvedAt)
		result = append(result, i)
	}
	return result, rows.Err()
}

func (s *pgIncidents) SetStatus(ctx context.Context, orgID, id, status, actorID string, at time.Time) (*tenant.Incident, error) {
	return scanIncident(s.db.QueryRowContext(ctx, `
		update org_incidents
		set status = $3,
		    resolved_by = case when $3 = 'resolved' then nullif($4, '') else resolved_by end,
		    resolved_at = case when $3 = 'resolved' then $5 else resolved_at end,
		    updated_at = now()
		where id = $1 and organization_id = $2
		returning id, organization_id, title, severity, status, reported_by,
		          coalesce(resolved_by, ''), resolved_at, created_at, updated_at
	`, id, orgID, status, actorID, at))
}

func scanIncident(row *sql.Row) (*tenant.Incident, error) {
	var i tenant.Incident
	var resolvedAt sql.NullTime
	err := row.Scan(&i.ID, &i.OrganizationID, &i.Title, &i.Severity, &i.Status, &i.ReportedBy,
		&i.ResolvedBy, &resolvedAt, &i.CreatedAt, &i.UpdatedAt)
	if err != nil {
		return nil, mapPgError(err)
	}
	i.ResolvedAt = timeOrNil(resolvedAt)
	return &i, nil
}

// Compliance block store -----------------------------------------------------

type pgBlocks Store

func (s *pgBlocks) Create(ctx context.Context, b *tenant.ComplianceBlock) error {
	if b.ID == "" {
		b.ID = ids.New()
	}
	row := s.db.QueryRowContext(ctx, `
		insert into org_compliance_blocks (id, organization_id, gate_key, reason, created_by)
		values ($1, $2, $3, $4, nullif($5, ''))
		returning created_at
	`, b.ID, b.OrganizationID, b.GateKey, b.Reason, b.CreatedBy)
	if err := row.Scan(&b.CreatedAt); err != nil {
		return mapPgError(err)
	}
	return nil
}

func (s *pgBlocks) ListUnresolved(ctx context.Context, orgID, gateKey string) ([]tenant.ComplianceBlock, error) {
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, gate_key, reason, coalesce(created_by, ''),
		       created_at, resolved_at, coalesce(resolved_by, '')
		from org_compliance_blocks
		where organization_id = $1
		  and resolved_at is null
		  and ($2 = '' or gate_key = $2)
		order by created_at asc
	`, orgID, gateKey)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []tenant.ComplianceBlock
	for rows.Next() {
		var b tenant.ComplianceBlock
		var resolvedAt sql.NullTime
		if err := rows.Scan(&b.ID, &b.OrganizationID, &b.GateKey, &b.Reason, &b.CreatedBy,
			&b.CreatedAt, &resolvedAt, &b.ResolvedBy); err != nil {
			return nil, err
		}
		b.ResolvedAt = timeOrNil(resolvedAt)
		result = append(result, b)
	}
	return result, rows.Err()
}

// Resolve closes every open block for the gate and reports how many it closed.
func (s *pgBlocks) Resolve(ctx context.Context, orgID, gateKey, resolvedBy string, at time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx, `
		update org_compliance_blocks
		set resolved_at = $4, resolved_by = nullif($3, '')
		where organization_id = $1 and gate_key = $2 and resolved_at is null
	`, orgID, gateKey, resolvedBy, at)
	if err != nil {
		return 0, mapPgError(err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}
