package webhook

// Ack is the optional acknowledgement body returned by the receiver
type Ack struct {
	Accepted *bool  `json:"accepted"`
	Reason   string `json:"reason,omitempty"`
}

const (
	HeaderSignature = "X-Ponto-Signature"
	HeaderEvent     = "X-Ponto-Event"
	EventAttendance = "attendance.recorded"
)
