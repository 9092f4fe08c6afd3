package match

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// DefaultThreshold is the minimum similarity (exclusive) for a positive identification.
// Enrollment duplicate checks and recognition share it.
const DefaultThreshold = 0.7

// Engine compares a probe embedding against the enrolled registry with an exact linear scan.
// It is stateless apart from its threshold and safe for concurrent use.
type Engine struct {
	threshold float64
}

func NewEngine(threshold float64) *Engine {
	return &Engine{threshold: threshold}
}

// Threshold returns the acceptance threshold
func (e *Engine) Threshold() float64 {
	return e.threshold
}

// WithThreshold returns an engine using a different threshold
func (e *Engine) WithThreshold(threshold float64) *Engine {
	return &Engine{threshold: threshold}
}

// Similarity is the dot product of two unit vectors, accumulated in float64
func Similarity(a, b domain.Embedding) (float64, error) {
	if len(a) != len(b) {
		return 0, domain.ErrDimensionMismatch.WithError(fmt.Errorf("len %d vs %d", len(a), len(b)))
	}

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot, nil
}

// FindBestMatch returns the registry entry most similar to probe. The first
// entry wins ties. A nil identity with a nil error means nobody scored above
// the threshold (or the registry is empty); the returned score is still the
// best one seen. Neither probe nor registry is modified.
func (e *Engine) FindBestMatch(probe domain.Embedding, registry []domain.EnrolledIdentity) (*domain.EnrolledIdentity, float64, error) {
	if len(registry) == 0 {
		return nil, 0, nil
	}

	best := -1
	var bestScore float64
	for i := range registry {
		score, err := Similarity(probe, registry[i].Embedding)
		if err != nil {
			return nil, 0, fmt.Errorf("identity %s: %w", registry[i].ID, err)
		}
		if best < 0 || score > bestScore {
			best = i
			bestScore = score
		}
	}

	if bestScore > e.threshold {
		identity := registry[best]
		return &identity, bestScore, nil
	}
	return nil, bestScore, nil
}

// Matches reports whether a and b belong to the same person
func (e *Engine) Matches(a, b domain.Embedding) (bool, error) {
	score, err := Similarity(a, b)
	if err != nil {
		return false, err
	}
	return score > e.threshold, nil
}
