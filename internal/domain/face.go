package domain

import (
	"image"
	"time"

	"github.com/google/uuid"
)

// BoundingBox is the face area in pixel coordinates of the analyzed frame
type BoundingBox struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Rect returns the box as an image.Rectangle
func (b BoundingBox) Rect() image.Rectangle {
	return image.Rect(b.X, b.Y, b.X+b.Width, b.Y+b.Height)
}

// FaceSignal holds the per-frame classification of a single detected face.
// Nil probabilities mean the detector could not classify that attribute.
type FaceSignal struct {
	BoundingBox      BoundingBox `json:"bounding_box"`
	SmileProbability *float64    `json:"smile_probability,omitempty"`
	LeftEyeOpen      *float64    `json:"left_eye_open,omitempty"`
	RightEyeOpen     *float64    `json:"right_eye_open,omitempty"`
}

// Frame is one analyzed camera frame
type Frame struct {
	Image image.Image
	// Encoded holds the original JPEG/PNG bytes when the frame arrived encoded
	Encoded         []byte
	RotationDegrees int
	CapturedAt      time.Time
}

// Embedding is an L2-normalized face feature vector
type Embedding []float32

// EnrolledIdentity representa uma pessoa cadastrada no registro
type EnrolledIdentity struct {
	ID          string    `json:"id"`
	DisplayName string    `json:"display_name"`
	Embedding   Embedding `json:"-"`
	EnrolledAt  time.Time `json:"enrolled_at"`
}

// AttendanceEvent is the append-only record emitted after a positive identification
type AttendanceEvent struct {
	ID            uuid.UUID  `json:"id"`
	IdentityID    string     `json:"identity_id"`
	DisplayName   string     `json:"display_name"`
	Timestamp     time.Time  `json:"timestamp"`
	Score         float64    `json:"score"`
	EvidenceImage []byte     `json:"-"`
	Delivered     bool       `json:"delivered"`
	DeliveredAt   *time.Time `json:"delivered_at,omitempty"`
}
