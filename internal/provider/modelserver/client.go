package modelserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Config holds the configuration for the model server client
type Config struct {
	BaseURL    string
	Model      string
	Timeout    time.Duration
	RetryCount int
	// BackoffBase is the wait before the first retry; it doubles per attempt
	BackoffBase time.Duration
	// InputShape nests each flat instance before sending, e.g. [112 112 3]
	// for a signature input of [-1,112,112,3]. Empty sends flat vectors.
	InputShape []int
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:8501",
		Model:       "mobilefacenet",
		Timeout:     5 * time.Second,
		RetryCount:  2,
		BackoffBase: 200 * time.Millisecond,
		InputShape:  []int{112, 112, 3},
	}
}

// Client is the HTTP client for a TensorFlow-Serving style REST endpoint
type Client struct {
	httpClient *http.Client
	config     Config
}

func NewClient(config Config) *Client {
	if config.BackoffBase <= 0 {
		config.BackoffBase = DefaultConfig().BackoffBase
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		config: config,
	}
}

// Predict calls POST /v1/models/{model}:predict
func (c *Client) Predict(ctx context.Context, instances [][]float32) (*PredictResponse, error) {
	req := PredictRequest{Instances: make([]any, len(instances))}
	for i, in := range instances {
		if len(c.config.InputShape) == 0 {
			req.Instances[i] = in
			continue
		}
		nested, err := reshape(in, c.config.InputShape)
		if err != nil {
			return nil, err
		}
		req.Instances[i] = nested
	}
	path := "/v1/models/" + c.config.Model + ":predict"

	var resp PredictResponse
	if err := c.doRequestWithRetry(ctx, http.MethodPost, path, req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// reshape nests v row-major into shape. The innermost dimension stays a
// []float32 slice of v.
func reshape(v []float32, shape []int) (any, error) {
	n := 1
	for _, d := range shape {
		if d <= 0 {
			return nil, fmt.Errorf("%w: invalid shape %v", ErrShapeMismatch, shape)
		}
		n *= d
	}
	if n != len(v) {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrShapeMismatch, len(v), shape)
	}
	return nest(v, shape), nil
}

func nest(v []float32, shape []int) any {
	if len(shape) == 1 {
		return v
	}
	step := len(v) / shape[0]
	out := make([]any, shape[0])
	for i := range out {
		out[i] = nest(v[i*step:(i+1)*step], shape[1:])
	}
	return out
}

// maxBackoff caps the wait between retries
const maxBackoff = 5 * time.Second

// calculateBackoff returns base, 2*base, 4*base... up to maxBackoff
func calculateBackoff(base time.Duration, attempt int) time.Duration {
	if attempt <= 1 {
		return base
	}
	d := base
	for i := 1; i < attempt && d < maxBackoff; i++ {
		d *= 2
	}
	return min(d, maxBackoff)
}

// statusError is a non-2xx response from the server
type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("model server returned status %d: %s", e.code, e.body)
}

func isClientError(err error) bool {
	var se *statusError
	return errors.As(err, &se) && se.code >= 400 && se.code < 500
}

func (c *Client) doRequestWithRetry(ctx context.Context, method, path string, body, result any) error {
	var lastErr error

	for attempt := 0; attempt <= c.config.RetryCount; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(calculateBackoff(c.config.BackoffBase, attempt)):
			}
		}

		lastErr = c.doRequest(ctx, method, path, body, result)
		if lastErr == nil {
			return nil
		}

		if ctx.Err() != nil {
			return ctx.Err()
		}

		// 4xx means the request itself is wrong, retrying won't help
		if isClientError(lastErr) {
			return lastErr
		}
	}

	return fmt.Errorf("%w: %v", ErrUnavailable, lastErr)
}

func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyBytes, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		bodyReader = bytes.NewReader(bodyBytes)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + path
	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &statusError{code: resp.StatusCode, body: string(respBody)}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidResponse, err)
		}
	}
	return nil
}
