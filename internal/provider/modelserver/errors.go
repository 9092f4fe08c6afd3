package modelserver

import "errors"

var (
	ErrUnavailable     = errors.New("model server unavailable")
	ErrInvalidResponse = errors.New("invalid response from model server")
	ErrEmptyPrediction = errors.New("model server returned no predictions")
	ErrShapeMismatch   = errors.New("input does not fit the model input shape")
)
