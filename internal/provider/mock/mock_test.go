package mock

import (
	"context"
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

func frame() domain.Frame {
	return domain.Frame{Image: image.NewRGBA(image.Rect(0, 0, 400, 200))}
}

func TestDetector_ReplaysScript(t *testing.T) {
	one := []domain.FaceSignal{{BoundingBox: domain.BoundingBox{X: 1, Width: 10, Height: 10}}}
	two := []domain.FaceSignal{{}, {}}
	d := NewDetector(one, nil, two)
	ctx := context.Background()

	want := []int{1, 0, 2, 1}
	for i, n := range want {
		got, err := d.Detect(ctx, frame())
		require.NoError(t, err)
		assert.Len(t, got, n, "call %d", i)
	}
	assert.Equal(t, 4, d.Calls())
}

func TestDetector_EmptyScript(t *testing.T) {
	got, err := NewDetector().Detect(context.Background(), frame())
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestDetector_RejectsMissingImage(t *testing.T) {
	_, err := NewLivenessDetector().Detect(context.Background(), domain.Frame{})
	assert.ErrorIs(t, err, domain.ErrInvalidImage)
}

func TestLivenessDetector_CentersBox(t *testing.T) {
	d := NewLivenessDetector()

	got, err := d.Detect(context.Background(), frame())
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, domain.BoundingBox{X: 100, Y: 50, Width: 200, Height: 100}, got[0].BoundingBox)
	assert.InDelta(t, 0.1, *got[0].SmileProbability, 1e-9)
}

func TestModel_Deterministic(t *testing.T) {
	m := NewModel(0)
	ctx := context.Background()
	input := []float32{0.1, -0.5, 1}

	a, err := m.Embed(ctx, input)
	require.NoError(t, err)
	b, err := m.Embed(ctx, input)
	require.NoError(t, err)

	assert.Len(t, a, defaultDimension)
	assert.Equal(t, a, b)

	c, err := m.Embed(ctx, []float32{0.1, -0.5, 0.9})
	require.NoError(t, err)
	assert.NotEqual(t, a, c)
}

func TestModel_Errors(t *testing.T) {
	m := NewModel(8)

	_, err := m.Embed(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidImage)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = m.Embed(ctx, []float32{1})
	assert.ErrorIs(t, err, context.Canceled)
}
