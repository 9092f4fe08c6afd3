package provider

import (
	"context"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// SignalDetector define a interface para detectores de face por frame
type SignalDetector interface {
	// Detect retorna um FaceSignal por face encontrada no frame.
	// Bounding boxes are in pixel coordinates of frame.Image before rotation.
	Detect(ctx context.Context, frame domain.Frame) ([]domain.FaceSignal, error)
}

// InferenceModel runs the face embedding network
type InferenceModel interface {
	// Embed receives a normalized HWC RGB tensor and returns the raw, un-normalized output vector
	Embed(ctx context.Context, input []float32) ([]float32, error)
}
