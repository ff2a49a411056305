package audit

import (
	"encoding/json"
	"strings"
	"time"
)

// Record is one append-only audit event. Before and After hold JSON
// snapshots of the touched entity; either may be empty.
type Record struct {
	ID             string          `json:"id"`
	OrganizationID string          `json:"organization_id"`
	ActorUserID    string          `json:"actor_user_id"`
	ActorRole      string          `json:"actor_role"`
	EntityType     string          `json:"entity_type"`
	EntityID       string          `json:"entity_id"`
	ActionType     string          `json:"action_type"`
	Before         json.RawMessage `json:"before_state,omitempty"`
	After          json.RawMessage `json:"after_state,omitempty"`
	Reason         string          `json:"reason,omitempty"`
	RequestID      string          `json:"request_id,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// Validate checks the fields a record cannot do without.
func (r Record) Validate() error {
	if strings.TrimSpace(r.OrganizationID) == "" {
		return errMissingField("organization_id")
	}
	if strings.TrimSpace(r.ActorUserID) == "" {
		return errMissingField("actor_user_id")
	}
	if strings.TrimSpace(r.EntityType) == "" {
		return errMissingField("entity_type")
	}
	if strings.TrimSpace(r.ActionType) == "" {
		return errMissingField("action_type")
	}
	return nil
}

type errMissingField string

func (e errMissingField) Error() string { return "audit record missing " + string(e) }

// Snapshot marshals an entity state for the Before/After fields. A nil
// value yields an empty snapshot rather than the JSON literal null.
func Snapshot(v any) json.RawMessage {
	if v == nil {
		return nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return data
}
