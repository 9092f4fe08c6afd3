package mock

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"math"
	"sync"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

const defaultDimension = 192

// Detector replays a fixed script of detections, one entry per call, and
// starts over when the script ends. Boxes in the script are ignored when
// centered is set; a box covering the middle half of the frame is used instead.
type Detector struct {
	mu       sync.Mutex
	script   [][]domain.FaceSignal
	next     int
	centered bool
}

// NewDetector cria um detector que repete o roteiro informado
func NewDetector(script ...[]domain.FaceSignal) *Detector {
	return &Detector{script: script}
}

// NewLivenessDetector returns a detector that plays open-face, smile, blink
// forever, so a kiosk in development mode passes liveness every three frames
func NewLivenessDetector() *Detector {
	p := func(v float64) *float64 { return &v }
	return &Detector{
		centered: true,
		script: [][]domain.FaceSignal{
			{{SmileProbability: p(0.1), LeftEyeOpen: p(0.9), RightEyeOpen: p(0.9)}},
			{{SmileProbability: p(0.9), LeftEyeOpen: p(0.9), RightEyeOpen: p(0.9)}},
			{{SmileProbability: p(0.9), LeftEyeOpen: p(0.05), RightEyeOpen: p(0.05)}},
		},
	}
}

// Detect devolve a próxima entrada do roteiro
func (d *Detector) Detect(ctx context.Context, frame domain.Frame) ([]domain.FaceSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if frame.Image == nil {
		return nil, domain.ErrInvalidImage
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if len(d.script) == 0 {
		return nil, nil
	}
	step := d.script[d.next%len(d.script)]
	d.next++

	out := make([]domain.FaceSignal, len(step))
	copy(out, step)
	if d.centered {
		b := frame.Image.Bounds()
		for i := range out {
			out[i].BoundingBox = domain.BoundingBox{
				X:      b.Min.X + b.Dx()/4,
				Y:      b.Min.Y + b.Dy()/4,
				Width:  b.Dx() / 2,
				Height: b.Dy() / 2,
			}
		}
	}
	return out, nil
}

// Calls returns how many detections were served
func (d *Detector) Calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.next
}

// Model gera embeddings determinísticos a partir do hash da entrada
type Model struct {
	dimension int
}

func NewModel(dimension int) *Model {
	if dimension <= 0 {
		dimension = defaultDimension
	}
	return &Model{dimension: dimension}
}

// Embed hashes input into a vector in [-1, 1]. The output is not normalized.
func (m *Model) Embed(ctx context.Context, input []float32) ([]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(input) == 0 {
		return nil, domain.ErrInvalidImage
	}

	h := sha256.New()
	buf := make([]byte, 4)
	for _, v := range input {
		binary.LittleEndian.PutUint32(buf, math.Float32bits(v))
		h.Write(buf)
	}
	sum := h.Sum(nil)

	out := make([]float32, m.dimension)
	for i := range out {
		out[i] = float32(sum[i%len(sum)])/255*2 - 1
		// fold the index in so vectors longer than the hash are not periodic
		out[i] += float32(math.Sin(float64(i)*float64(sum[(i+1)%len(sum)]))) * 0.01
	}
	return out, nil
}

var (
	_ provider.SignalDetector = (*Detector)(nil)
	_ provider.InferenceModel = (*Model)(nil)
)
