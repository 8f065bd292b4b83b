package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"rentroll.org/internal/auth"
	"rentroll.org/internal/obs"
	"rentroll.org/internal/store"
)

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	logger := obs.Logger()
	original := logger.Writer()
	logger.SetFlags(0)
	var buf bytes.Buffer
	logger.SetOutput(&buf)
	t.Cleanup(func() { logger.SetOutput(original) })
	return &buf
}

func TestLogEvent(t *testing.T) {
	buf := captureLog(t)

	ctx := context.Background()
	ctx = WithRequestID(ctx, "req-123")
	ctx = auth.ContextWithUser(ctx, "user-42", "owner@example.com")

	if err := LogEvent(ctx, "audit.test", map[string]any{"foo": "bar"}); err != nil {
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
	if entry["type"] != "audit" {
		t.Fatalf("unexpected type: %v", entry["type"])
	}
	if entry["event"] != "audit.test" {
		t.Fatalf("unexpected event: %v", entry["event"])
	}
	if entry["request_id"] != "req-123" {
		t.Fatalf("unexpected request id: %v", entry["request_id"])
	}
	if entry["user_id"] != "user-42" {
		t.Fatalf("unexpected user id: %v", entry["user_id"])
	}
	fields, ok := entry["fields"].(map[string]any)
	if !ok || fields["foo"] != "bar" {
		t.Fatalf("fields missing or incorrect: %v", entry["fields"])
	}
}

func TestLogEventRequiresName(t *testing.T) {
	if err := LogEvent(context.Background(), "  ", nil); err == nil {
		t.Fatal("blank event name accepted")
	}
}

func TestRecorderAppendsActivity(t *testing.T) {
	captureLog(t)

	ctx := context.Background()
	mem := store.NewMemory()
	rec := NewRecorder(mem.Activity())

	rec.Record(ctx, "shop.create", "shop G-01 added", map[string]any{"shop_id": "s1"})

	entries, err := mem.Activity().Recent(ctx, 10)
	if err != nil {
		t.Fatalf("recent: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("entries = %d, want 1", len(entries))
	}
	if entries[0].Message != "shop G-01 added" {
		t.Fatalf("message = %q", entries[0].Message)
	}
	if entries[0].OccurredAt.IsZero() {
		t.Fatal("occurred_at not set")
	}
}

func TestNilRecorderIsSafe(t *testing.T) {
	captureLog(t)
	var rec *Recorder
	rec.Record(context.Background(), "noop", "noop", nil)
}
