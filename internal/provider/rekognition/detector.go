package rekognition

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/aws/aws-sdk-go-v2/service/rekognition"
	"github.com/aws/aws-sdk-go-v2/service/rekognition/types"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

const (
	// maxImageSize is the maximum image size supported by AWS Rekognition (5MB)
	maxImageSize = 5 * 1024 * 1024
)

// Detector implements provider.SignalDetector with the DetectFaces API.
// Smile and EyesOpen come back as a boolean plus a confidence, which is
// turned into a probability of the attribute being present.
type Detector struct {
	api    API
	config Config
}

// Ensure Detector implements provider.SignalDetector interface at compile time
var _ provider.SignalDetector = (*Detector)(nil)

// NewDetector creates a detector backed by a real Rekognition client
func NewDetector(ctx context.Context, cfg Config) (*Detector, error) {
	api, err := NewAPI(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create rekognition client: %w", err)
	}
	return NewDetectorWithAPI(api, cfg), nil
}

func NewDetectorWithAPI(api API, cfg Config) *Detector {
	if cfg.JPEGQuality <= 0 {
		cfg.JPEGQuality = DefaultConfig().JPEGQuality
	}
	return &Detector{api: api, config: cfg}
}

// Detect returns one signal per face with pixel bounding boxes
func (d *Detector) Detect(ctx context.Context, frame domain.Frame) ([]domain.FaceSignal, error) {
	if frame.Image == nil {
		return nil, ErrInvalidImage
	}

	data, err := d.encode(frame)
	if err != nil {
		return nil, err
	}

	output, err := d.api.DetectFaces(ctx, &rekognition.DetectFacesInput{
		Image:      &types.Image{Bytes: data},
		Attributes: []types.Attribute{types.AttributeAll},
	})
	if err != nil {
		return nil, fmt.Errorf("detect faces: %w", classifyError(err))
	}

	bounds := frame.Image.Bounds()
	signals := make([]domain.FaceSignal, 0, len(output.FaceDetails))
	for _, detail := range output.FaceDetails {
		if detail.BoundingBox == nil {
			continue
		}
		if detail.Confidence != nil && *detail.Confidence < d.config.MinConfidence {
			continue
		}

		signal := domain.FaceSignal{
			BoundingBox: toPixels(detail.BoundingBox, bounds),
		}
		if detail.Smile != nil {
			signal.SmileProbability = probability(detail.Smile.Value, detail.Smile.Confidence)
		}
		if detail.EyesOpen != nil {
			// Rekognition reports both eyes together
			p := probability(detail.EyesOpen.Value, detail.EyesOpen.Confidence)
			if p != nil {
				left, right := *p, *p
				signal.LeftEyeOpen = &left
				signal.RightEyeOpen = &right
			}
		}
		signals = append(signals, signal)
	}

	return signals, nil
}

func (d *Detector) encode(frame domain.Frame) ([]byte, error) {
	if len(frame.Encoded) > 0 && len(frame.Encoded) <= maxImageSize {
		return frame.Encoded, nil
	}

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, frame.Image, &jpeg.Options{Quality: d.config.JPEGQuality}); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidImage, err)
	}
	if buf.Len() > maxImageSize {
		return nil, fmt.Errorf("%w: image too large (%d bytes, maximum %d)", ErrInvalidImage, buf.Len(), maxImageSize)
	}
	return buf.Bytes(), nil
}

// probability converts a (present, confidence%) pair into P(present)
func probability(present bool, confidence *float32) *float64 {
	if confidence == nil {
		return nil
	}
	c := float64(*confidence) / 100
	if !present {
		c = 1 - c
	}
	c = math.Max(0, math.Min(1, c))
	return &c
}

// toPixels converts a ratio-based box into pixel coordinates of bounds
func toPixels(box *types.BoundingBox, bounds image.Rectangle) domain.BoundingBox {
	w, h := float64(bounds.Dx()), float64(bounds.Dy())
	ratio := func(v *float32) float64 {
		if v == nil {
			return 0
		}
		return float64(*v)
	}

	return domain.BoundingBox{
		X:      bounds.Min.X + int(math.Round(ratio(box.Left)*w)),
		Y:      bounds.Min.Y + int(math.Round(ratio(box.Top)*h)),
		Width:  int(math.Round(ratio(box.Width) * w)),
		Height: int(math.Round(ratio(box.Height) * h)),
	}
}
