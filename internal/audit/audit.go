package audit

import (
	"context"
	"errors"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
)

// EventType defines the type of auditable event
type EventType string

const (
	EventAttemptRecognized    EventType = "ATTEMPT_RECOGNIZED"
	EventAttemptNotRecognized EventType = "ATTEMPT_NOT_RECOGNIZED"
	EventAttemptFailed        EventType = "ATTEMPT_FAILED"
	EventIdentityEnrolled     EventType = "IDENTITY_ENROLLED"
	EventIdentityDeleted      EventType = "IDENTITY_DELETED"
	EventAttendanceResynced   EventType = "ATTENDANCE_RESYNCED"
)

var ErrMissingEventType = errors.New("audit event without type")

// Event is one entry of the biometric audit trail. Evidence images never
// enter the trail, only ids and scores.
type Event struct {
	ID           uuid.UUID         `json:"id"`
	Timestamp    time.Time         `json:"timestamp"`
	EventType    EventType         `json:"event_type"`
	Status       string            `json:"status,omitempty"`
	IdentityID   string            `json:"identity_id,omitempty"`
	AttendanceID string            `json:"attendance_id,omitempty"`
	Score        float64           `json:"score,omitempty"`
	Success      bool              `json:"success"`
	Error        string            `json:"error,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	RemoteAddr   string            `json:"remote_addr,omitempty"`
}

type Logger interface {
	Log(ctx context.Context, event Event) error
}

// SlogLogger writes each event as one structured "audit_event" record.
// Unsuccessful outcomes are logged at warn level.
type SlogLogger struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewSlogLogger(logger *slog.Logger) *SlogLogger {
	return &SlogLogger{
		logger: logger.With("component", "audit"),
		now:    time.Now,
	}
}

func (l *SlogLogger) Log(ctx context.Context, event Event) error {
	if event.EventType == "" {
		return ErrMissingEventType
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = l.now()
	}

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}

	l.logger.LogAttrs(ctx, level, "audit_event", event.attrs()...)
	return nil
}

func (e Event) attrs() []slog.Attr {
	attrs := []slog.Attr{
		slog.String("event_id", e.ID.String()),
		slog.String("event_type", string(e.EventType)),
		slog.Time("at", e.Timestamp.UTC()),
		slog.Bool("success", e.Success),
	}

	optional := []struct{ key, value string }{
		{"status", e.Status},
		{"identity_id", e.IdentityID},
		{"attendance_id", e.AttendanceID},
		{"error", e.Error},
		{"remote_addr", e.RemoteAddr},
	}
	for _, o := range optional {
		if o.value != "" {
			attrs = append(attrs, slog.String(o.key, o.value))
		}
	}
	if e.Score != 0 {
		attrs = append(attrs, slog.Float64("score", e.Score))
	}

	if len(e.Metadata) > 0 {
		keys := make([]string, 0, len(e.Metadata))
		for k := range e.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		meta := make([]any, 0, len(keys))
		for _, k := range keys {
			meta = append(meta, slog.String(k, e.Metadata[k]))
		}
		attrs = append(attrs, slog.Group("metadata", meta...))
	}

	return attrs
}

// NoOpLogger discards events
type NoOpLogger struct{}

func (l *NoOpLogger) Log(_ context.Context, _ Event) error {
	return nil
}
