package audit

import (
	"context"
	"encoding/json"
	"time"

	"formaos.io/internal/ids"
	"formaos.io/internal/obs"
)

// Sink persists audit records. Implementations never update or delete.
type Sink interface {
	Append(ctx context.Context, rec Record) error
}

// Reader lists audit records for one organization, newest first.
type Reader interface {
	List(ctx context.Context, orgID string, limit int) ([]Record, error)
}

// Recorder writes audit records on a best-effort basis. A failed append
// must not fail the mutation it describes, so Record never returns an
// error; failures are counted, logged, and handed to OnFailure when set.
type Recorder struct {
	sink      Sink
	onFailure func(Record, error)
}

// NewRecorder wraps a sink. The failure hook may be nil.
func NewRecorder(sink Sink, onFailure func(Record, error)) *Recorder {
	return &Recorder{sink: sink, onFailure: onFailure}
}

// Record fills in the identifier and timestamp, then appends. Invalid
// records and sink errors surface through metrics and the failure hook.
func (r *Recorder) Record(ctx context.Context, rec Record) {
	if r == nil || r.sink == nil {
		return
	}
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rid := requestIDFromContext(ctx); rid != "" && rec.RequestID == "" {
		rec.RequestID = rid
	}

	err := rec.Validate()
	if err == nil {
		err = r.sink.Append(ctx, rec)
	}
	if err == nil {
		return
	}

	obs.IncAuditWriteFailure()
	entry := map[string]any{
		"ts":     time.Now().UTC().Format(time.RFC3339Nano),
		"type":   "audit_failure",
		"error":  err.Error(),
		"org_id": rec.OrganizationID,
		"action": rec.ActionType,
		"entity": rec.EntityType,
	}
	if data, merr := json.Marshal(entry); merr == nil {
		obs.Logger().Println(string(data))
	}
	if r.onFailure != nil {
		r.onFailure(rec, err)
	}
}
