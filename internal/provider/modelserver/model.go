package modelserver

import (
	"context"
	"errors"
	"fmt"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/provider"
)

var _ provider.InferenceModel = (*Model)(nil)

// Model implements provider.InferenceModel on top of a model server
type Model struct {
	client *Client
}

func NewModel(config Config) *Model {
	return &Model{client: NewClient(config)}
}

// NewModelWithClient is used by tests to inject a preconfigured client
func NewModelWithClient(client *Client) *Model {
	return &Model{client: client}
}

// Embed runs the face tensor through the model and returns the raw output vector.
// Exhausted retries surface as domain.ErrInferenceUnavailable.
func (m *Model) Embed(ctx context.Context, input []float32) ([]float32, error) {
	resp, err := m.client.Predict(ctx, [][]float32{input})
	if err != nil {
		if errors.Is(err, ErrUnavailable) {
			return nil, domain.ErrInferenceUnavailable.WithError(err)
		}
		return nil, fmt.Errorf("predict: %w", err)
	}

	if len(resp.Predictions) == 0 || len(resp.Predictions[0]) == 0 {
		return nil, ErrEmptyPrediction
	}
	return resp.Predictions[0], nil
}
