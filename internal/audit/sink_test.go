package audit

import (
	"context"
	"errors"
	"testing"
)

type failingSink struct{ err error }

func (s failingSink) Append(context.Context, Record) error { return s.err }

func TestRecorderBestEffort(t *testing.T) {
	var hookRec Record
	var hookErr error
	rec := NewRecorder(failingSink{err: errors.New("disk full")}, func(r Record, err error) {
		hookRec = r
		hookErr = err
	})

	rec.Record(context.Background(), Record{
		OrganizationID: "org-1",
		ActorUserID:    "user-1",
		ActorRole:      "admin",
		EntityType:     "evidence",
		EntityID:       "ev-1",
		ActionType:     "evidence.verify",
	})

	if hookErr == nil {
		t.Fatal("expected failure hook to fire")
	}
	if hookRec.ActionType != "evidence.verify" {
		t.Fatalf("hook received wrong record: %+v", hookRec)
	}
	if hookRec.ID == "" || hookRec.CreatedAt.IsZero() {
		t.Fatal("recorder should assign id and timestamp before appending")
	}
}

func TestRecorderRejectsIncompleteRecords(t *testing.T) {
	sink := NewMemorySink()
	var failed bool
	rec := NewRecorder(sink, func(Record, error) { failed = true })

	rec.Record(context.Background(), Record{
		OrganizationID: "org-1",
		EntityType:     "policy",
		ActionType:     "policy.update",
	})

	if !failed {
		t.Fatal("record without actor should be rejected")
	}
	if sink.Len() != 0 {
		t.Fatalf("incomplete record must not be persisted, got %d", sink.Len())
	}
}

func TestRecorderAppendsAndScopesByOrg(t *testing.T) {
	sink := NewMemorySink()
	rec := NewRecorder(sink, nil)
	ctx := WithRequestID(context.Background(), "req-9")

	for i, org := range []string{"org-a", "org-b", "org-a"} {
		rec.Record(ctx, Record{
			OrganizationID: org,
			ActorUserID:    "user-1",
			ActorRole:      "owner",
			EntityType:     "task",
			EntityID:       "t-0",
			ActionType:     "task.update",
			Reason:         string(rune('a' + i)),
		})
	}

	got, err := sink.List(context.Background(), "org-a", 10)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 records for org-a, got %d", len(got))
	}
	if got[0].Reason != "c" || got[1].Reason != "a" {
		t.Fatalf("expected newest-first ordering, got %q then %q", got[0].Reason, got[1].Reason)
	}
	if got[0].RequestID != "req-9" {
		t.Fatalf("expected request id propagation, got %q", got[0].RequestID)
	}
}
