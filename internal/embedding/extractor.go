package embedding

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/jpeg"
	"math"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

const (
	// minNorm below which an output vector is treated as all zeros
	minNorm = 1e-12

	evidenceQuality = 80
)

// Config controls preprocessing and output validation
type Config struct {
	InputSize   int
	Dimension   int
	MarginRatio float64
}

// DefaultConfig matches the 112x112 input and 192-d output of the bundled model
func DefaultConfig() Config {
	return Config{
		InputSize:   112,
		Dimension:   192,
		MarginRatio: 0.3,
	}
}

// Result of a successful extraction
type Result struct {
	Embedding domain.Embedding
	// Face is the cropped and rotated region that was fed to the model
	Face image.Image
}

// Extractor turns a face region into a unit-length embedding
type Extractor struct {
	model  provider.InferenceModel
	config Config
}

// NewExtractor creates an extractor. Zero fields in cfg fall back to DefaultConfig.
func NewExtractor(model provider.InferenceModel, cfg Config) *Extractor {
	def := DefaultConfig()
	if cfg.InputSize <= 0 {
		cfg.InputSize = def.InputSize
	}
	if cfg.Dimension <= 0 {
		cfg.Dimension = def.Dimension
	}
	if cfg.MarginRatio < 0 {
		cfg.MarginRatio = def.MarginRatio
	}
	return &Extractor{model: model, config: cfg}
}

// Dimension returns the embedding length produced by Extract
func (e *Extractor) Dimension() int {
	return e.config.Dimension
}

// Extract crops box out of img, rotates it upright, runs the model and
// normalizes the output. Identical input always yields the same embedding.
func (e *Extractor) Extract(ctx context.Context, img image.Image, box domain.BoundingBox, rotationDegrees int) (*Result, error) {
	if img == nil {
		return nil, domain.ErrInvalidImage
	}

	face, ok := CropFace(img, box.Rect(), e.config.MarginRatio)
	if !ok {
		return nil, domain.ErrNoFaceDetected.WithError(fmt.Errorf("bounding box %v outside image %v", box.Rect(), img.Bounds()))
	}
	face = Rotate(face, rotationDegrees)

	input := Tensor(Resize(face, e.config.InputSize))

	raw, err := e.model.Embed(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("embed face: %w", err)
	}

	if len(raw) != e.config.Dimension {
		return nil, domain.ErrDimensionMismatch.WithError(fmt.Errorf("model returned %d values, want %d", len(raw), e.config.Dimension))
	}

	emb, err := Normalize(raw)
	if err != nil {
		return nil, err
	}

	return &Result{Embedding: emb, Face: face}, nil
}

// Normalize scales v to unit length. Vectors with (near) zero norm or
// non-finite components are rejected with ErrDegenerateEmbedding.
func Normalize(v []float32) (domain.Embedding, error) {
	var sum float64
	for _, x := range v {
		f := float64(x)
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, domain.ErrDegenerateEmbedding.WithError(fmt.Errorf("non-finite component %v", x))
		}
		sum += f * f
	}

	norm := math.Sqrt(sum)
	if norm <= minNorm {
		return nil, domain.ErrDegenerateEmbedding
	}

	out := make(domain.Embedding, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}

// EncodeEvidence serializes a face crop as JPEG for attendance records
func EncodeEvidence(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: evidenceQuality}); err != nil {
		return nil, fmt.Errorf("encode evidence: %w", err)
	}
	return buf.Bytes(), nil
}
