package audit

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAuditLogger(buf *bytes.Buffer) *SlogLogger {
	return NewSlogLogger(slog.New(slog.NewJSONHandler(buf, nil)))
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 1)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(lines[0]), &entry))
	return entry
}

func TestSlogLogger_Log(t *testing.T) {
	attendanceID := uuid.NewString()

	tests := []struct {
		name      string
		event     Event
		wantLevel string
		want      map[string]interface{}
		absent    []string
	}{
		{
			name: "recognized attempt",
			event: Event{
				EventType:    EventAttemptRecognized,
				Status:       "recognized",
				IdentityID:   "E001",
				AttendanceID: attendanceID,
				Score:        0.91,
				Success:      true,
			},
			wantLevel: "INFO",
			want: map[string]interface{}{
				"status":        "recognized",
				"identity_id":   "E001",
				"attendance_id": attendanceID,
				"score":         0.91,
				"success":       true,
			},
			absent: []string{"error", "remote_addr", "metadata"},
		},
		{
			name: "failed attempt",
			event: Event{
				EventType: EventAttemptFailed,
				Status:    "extraction_failed",
				Error:     "degenerate embedding",
			},
			wantLevel: "WARN",
			want: map[string]interface{}{
				"error":   "degenerate embedding",
				"success": false,
			},
			absent: []string{"identity_id", "attendance_id", "score"},
		},
		{
			name: "enrollment with metadata",
			event: Event{
				EventType:  EventIdentityEnrolled,
				IdentityID: "E002",
				Success:    true,
				Metadata:   map[string]string{"display_name": "Maria"},
				RemoteAddr: "10.0.0.7",
			},
			wantLevel: "INFO",
			want: map[string]interface{}{
				"identity_id": "E002",
				"remote_addr": "10.0.0.7",
				"metadata":    map[string]interface{}{"display_name": "Maria"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, newTestAuditLogger(&buf).Log(context.Background(), tt.event))

			entry := decodeLine(t, &buf)
			assert.Equal(t, "audit_event", entry["msg"])
			assert.Equal(t, "audit", entry["component"])
			assert.Equal(t, tt.wantLevel, entry["level"])
			assert.Equal(t, string(tt.event.EventType), entry["event_type"])
			for k, v := range tt.want {
				assert.Equal(t, v, entry[k], k)
			}
			for _, k := range tt.absent {
				assert.NotContains(t, entry, k)
			}
		})
	}
}

func TestSlogLogger_Log_GeneratesIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	auditLogger := newTestAuditLogger(&buf)
	auditLogger.now = func() time.Time { return time.Date(2024, 3, 1, 11, 4, 9, 0, time.FixedZone("BRT", -3*3600)) }

	require.NoError(t, auditLogger.Log(context.Background(), Event{EventType: EventAttemptNotRecognized}))

	entry := decodeLine(t, &buf)
	eventID, ok := entry["event_id"].(string)
	require.True(t, ok)
	_, err := uuid.Parse(eventID)
	assert.NoError(t, err)
	assert.Equal(t, "2024-03-01T14:04:09Z", entry["at"])
}

func TestSlogLogger_Log_UsesProvidedIDAndTimestamp(t *testing.T) {
	var buf bytes.Buffer
	expectedID := uuid.New()

	err := newTestAuditLogger(&buf).Log(context.Background(), Event{
		ID:        expectedID,
		Timestamp: time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC),
		EventType: EventIdentityDeleted,
		Success:   true,
	})
	require.NoError(t, err)

	entry := decodeLine(t, &buf)
	assert.Equal(t, expectedID.String(), entry["event_id"])
	assert.Equal(t, "2024-01-15T10:30:00Z", entry["at"])
}

func TestSlogLogger_Log_RequiresType(t *testing.T) {
	var buf bytes.Buffer

	err := newTestAuditLogger(&buf).Log(context.Background(), Event{Success: true})

	assert.ErrorIs(t, err, ErrMissingEventType)
	assert.Empty(t, buf.String())
}

func TestNoOpLogger_Log(t *testing.T) {
	logger := &NoOpLogger{}
	assert.NoError(t, logger.Log(context.Background(), Event{EventType: EventAttendanceResynced}))
}

func TestLoggerInterface_Compliance(t *testing.T) {
	var _ Logger = (*SlogLogger)(nil)
	var _ Logger = (*NoOpLogger)(nil)
}
