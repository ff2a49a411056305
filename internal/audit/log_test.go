package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"formaos.io/internal/authz"
	"formaos.io/internal/obs"
)

func TestLogEvent(t *testing.T) {
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	defer logger.SetOutput(original)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = authz.ContextWithPrincipal(ctx, authz.Principal{UserID: "user-42", Email: "u@example.com"})

	if err := LogEvent(ctx, "evidence.uploaded", map[string]any{"evidence_id": "ev-1"}); err != nil {
		t.Fatalf("LogEvent failed: %v", err)
	}

	line := buf.String()
	if line == "" {
		t.Fatal("expected log output")
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		t.Fatalf("log not valid JSON: %v", err)
	}
	if entry["type"] != "activity" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "evidence.uploaded" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["user_id"] != "user-42" {
		t.Fatalf("unexpected user id: %v", entry["user_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["evidence_id"] != "ev-1" {
		t.Fatalf("unexpected fields: %v", entry["fields"])
	}

	if err := LogEvent(ctx, "  ", nil); err == nil {
		t.Fatal("blank event name should fail")
	}
}
