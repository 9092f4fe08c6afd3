package dispatch

import (
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// TimestampLayout is the wire format of Payload.Timestamp (always UTC)
const TimestampLayout = "2006-01-02 15:04:05"

// Payload is the JSON document published for each attendance event.
// Field names are fixed by the consumers of the attendance topic.
type Payload struct {
	EmployeeID   string `json:"employeeId"`
	EmployeeName string `json:"employeeName"`
	Timestamp    string `json:"timestamp"`
	FaceBase64   string `json:"faceBase64"`
}

// NewPayload maps an event to its wire representation
func NewPayload(event *domain.AttendanceEvent) Payload {
	return Payload{
		EmployeeID:   event.IdentityID,
		EmployeeName: event.DisplayName,
		Timestamp:    FormatTimestamp(event.Timestamp),
		FaceBase64:   base64.StdEncoding.EncodeToString(event.EvidenceImage),
	}
}

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Encode returns the JSON bytes for event
func Encode(event *domain.AttendanceEvent) ([]byte, error) {
	return json.Marshal(NewPayload(event))
}
