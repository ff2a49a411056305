package pg

import (
	"context"
	"database/sql"

	"formaos.io/internal/audit"
)

// AuditSink persists audit records in org_audit_events. The table has no
// update or delete path; history only grows.
type AuditSink struct {
	db *sql.DB
}

var (
	_ audit.Sink   = (*AuditSink)(nil)
	_ audit.Reader = (*AuditSink)(nil)
)

func NewAuditSink(db *sql.DB) *AuditSink { return &AuditSink{db: db} }

func (s *AuditSink) Append(ctx context.Context, rec audit.Record) error {
	_, err := s.db.ExecContext(ctx, `
		insert into org_audit_events
			(id, organization_id, actor_user_id, actor_role, entity_type, entity_id,
			 action_type, before_state, after_state, reason, request_id, created_at)
		values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, rec.ID, rec.OrganizationID, rec.ActorUserID, rec.ActorRole, rec.EntityType, rec.EntityID,
		rec.ActionType, nullIfEmptyJSON(rec.Before), nullIfEmptyJSON(rec.After),
		rec.Reason, rec.RequestID, rec.CreatedAt)
	return mapPgError(err)
}

func (s *AuditSink) List(ctx context.Context, orgID string, limit int) ([]audit.Record, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx, `
		select id, organization_id, actor_user_id, actor_role, entity_type, entity_id,
		       action_type, coalesce(before_state, 'null'), coalesce(after_state, 'null'),
		       reason, request_id, created_at
		from org_audit_events
		where organization_id = $1
		order by created_at desc
		limit $2
	`, orgID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []audit.Record
	for rows.Next() {
		var rec audit.Record
		var before, after []byte
		if err := rows.Scan(&rec.ID, &rec.OrganizationID, &rec.ActorUserID, &rec.ActorRole,
			&rec.EntityType, &rec.EntityID, &rec.ActionType, &before, &after,
			&rec.Reason, &rec.RequestID, &rec.CreatedAt); err != nil {
			return nil, err
		}
		if string(before) != "null" {
			rec.Before = before
		}
		if string(after) != "null" {
			rec.After = after
		}
		result = append(result, rec)
	}
	return result, rows.Err()
}

func nullIfEmptyJSON(raw []byte) any {
	if len(raw) == 0 {
		return nil
	}
	return raw
}
