package modelserver

// PredictRequest for POST /v1/models/{model}:predict. Each instance is
// either a flat vector or nested to the model's input shape.
type PredictRequest struct {
	Instances []any `json:"instances"`
}

// PredictResponse carries one output vector per instance
type PredictResponse struct {
	Predictions [][]float32 `json:"predictions"`
}
