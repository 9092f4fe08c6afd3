package domain

import (
	"errors"
	"fmt"
)

type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Err        error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is matches on Code so that copies produced by WithError still satisfy
// errors.Is against the predefined value.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

func (e *AppError) WithError(err error) *AppError {
	return &AppError{
		Code:       e.Code,
		Message:    e.Message,
		StatusCode: e.StatusCode,
		Err:        err,
	}
}

// Pre-defined errors
var (
	ErrInternal = &AppError{
		Code:       "INTERNAL_ERROR",
		Message:    "An unexpected error occurred",
		StatusCode: 500,
	}

	ErrBadRequest = &AppError{
		Code:       "BAD_REQUEST",
		Message:    "Invalid request",
		StatusCode: 400,
	}

	ErrUnauthorized = &AppError{
		Code:       "UNAUTHORIZED",
		Message:    "Invalid or missing API token",
		StatusCode: 401,
	}

	ErrNotFound = &AppError{
		Code:       "NOT_FOUND",
		Message:    "Resource not found",
		StatusCode: 404,
	}

	ErrValidationFailed = &AppError{
		Code:       "VALIDATION_FAILED",
		Message:    "Request validation failed",
		StatusCode: 422,
	}

	ErrRateLimitExceeded = &AppError{
		Code:       "RATE_LIMIT_EXCEEDED",
		Message:    "Too many requests",
		StatusCode: 429,
	}

	// Frame and face errors

	ErrInvalidImage = &AppError{
		Code:       "INVALID_IMAGE",
		Message:    "Invalid image format or corrupted file",
		StatusCode: 422,
	}

	ErrNoFaceDetected = &AppError{
		Code:       "NO_FACE_DETECTED",
		Message:    "No face detected in the image",
		StatusCode: 422,
	}

	ErrMultipleFaces = &AppError{
		Code:       "MULTIPLE_FACES",
		Message:    "Multiple faces detected, please provide image with single face",
		StatusCode: 422,
	}

	ErrFrameDropped = &AppError{
		Code:       "FRAME_DROPPED",
		Message:    "Another frame is being processed",
		StatusCode: 429,
	}

	// Embedding and matching errors

	ErrDegenerateEmbedding = &AppError{
		Code:       "DEGENERATE_EMBEDDING",
		Message:    "Embedding has zero norm and cannot be normalized",
		StatusCode: 422,
	}

	ErrDimensionMismatch = &AppError{
		Code:       "EMBEDDING_DIMENSION_MISMATCH",
		Message:    "Embedding dimension does not match",
		StatusCode: 500,
	}

	ErrInferenceUnavailable = &AppError{
		Code:       "INFERENCE_UNAVAILABLE",
		Message:    "Embedding model is unavailable",
		StatusCode: 503,
	}

	// Registry errors

	ErrIdentityNotFound = &AppError{
		Code:       "IDENTITY_NOT_FOUND",
		Message:    "Identity not found",
		StatusCode: 404,
	}

	ErrInvalidIdentity = &AppError{
		Code:       "INVALID_IDENTITY",
		Message:    "Identity id and display name are required",
		StatusCode: 422,
	}

	// Attendance errors

	ErrAttendanceNotFound = &AppError{
		Code:       "ATTENDANCE_NOT_FOUND",
		Message:    "Attendance event not found",
		StatusCode: 404,
	}

	ErrDeliveryDeferred = &AppError{
		Code:       "DELIVERY_DEFERRED",
		Message:    "Attendance recorded locally, remote delivery deferred",
		StatusCode: 202,
	}

	ErrMalformedAck = &AppError{
		Code:       "MALFORMED_ACK",
		Message:    "Remote sink returned a malformed acknowledgement",
		StatusCode: 502,
	}
)
