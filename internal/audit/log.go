// Package audit records operator actions twice: as structured JSON log lines
// for operations, and as human-readable entries in the store's append-only
// activity feed for the in-app report.
package audit

import (
	"context"
	"errors"
	"strings"
	"time"

	"rentroll.org/internal/auth"
	"rentroll.org/internal/obs"
	"rentroll.org/internal/store"
)

type ctxKey string

const requestIDKey ctxKey = "audit_request_id"

// WithRequestID attaches the request identifier to the context for audit logging.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, requestID)
}

func requestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(requestIDKey).(string); ok {
		return v
	}
	return ""
}

// LogEvent writes an audit log entry enriched with request and user context.
func LogEvent(ctx context.Context, event string, fields map[string]any) error {
	event = strings.TrimSpace(event)
	if event == "" {
		return errors.New("event name is required")
	}
	entry := map[string]any{
		"type":  "audit",
		"event": event,
	}
	if rid := requestIDFromContext(ctx); rid != "" {
		entry["request_id"] = rid
	}
	if userID, ok := auth.UserIDFromContext(ctx); ok {
		entry["user_id"] = userID
	}
	if len(fields) > 0 {
		copyFields := make(map[string]any, len(fields))
		for k, v := range fields {
			copyFields[k] = v
		}
		entry["fields"] = copyFields
	} else {
		entry["fields"] = map[string]any{}
	}

	obs.Emit("info", entry)
	return nil
}

// Recorder couples audit log lines with the persisted activity feed.
type Recorder struct {
	activity store.ActivityStore
}

// NewRecorder creates a recorder appending to the given activity store.
func NewRecorder(activity store.ActivityStore) *Recorder {
	return &Recorder{activity: activity}
}

// Record emits the structured audit line and appends the human-readable
// message to the activity feed. Feed append failures are logged, not
// propagated: losing one feed line must not fail the business write that
// already committed.
func (r *Recorder) Record(ctx context.Context, event, message string, fields map[string]any) {
	_ = LogEvent(ctx, event, fields)
	if r == nil || r.activity == nil {
		return
	}
	err := r.activity.Append(ctx, &store.ActivityEntry{
		Message:    message,
		OccurredAt: time.Now().UTC(),
	})
	if err != nil {
		_ = LogEvent(ctx, "audit.activity_append_failed", map[string]any{"error": err.Error()})
	}
}
