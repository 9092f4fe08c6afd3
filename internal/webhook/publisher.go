package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
)

// maxAckSize bounds how much of the response body is read
const maxAckSize = 64 << 10

// Publisher delivers attendance payloads to a single HTTP endpoint.
// A delivery only counts when the receiver answers 2xx and, if it sends a
// body, that body is an Ack with accepted=true.
type Publisher struct {
	url    string
	secret string
	client *http.Client
	now    func() time.Time
}

func NewPublisher(url, secret string, timeout time.Duration) *Publisher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Publisher{
		url:    url,
		secret: secret,
		client: &http.Client{
			Timeout: timeout,
		},
		now: time.Now,
	}
}

func (p *Publisher) Publish(ctx context.Context, payload []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderEvent, EventAttendance)
	req.Header.Set("User-Agent", "Ponto-Webhook/1.0")
	if p.secret != "" {
		req.Header.Set(HeaderSignature, Sign(p.secret, p.now(), payload))
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAckSize))
	if err != nil {
		return fmt.Errorf("read ack: %w", err)
	}
	return checkAck(body)
}

func checkAck(body []byte) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}

	var ack Ack
	if err := json.Unmarshal(body, &ack); err != nil {
		return domain.ErrMalformedAck.WithError(err)
	}
	if ack.Accepted == nil {
		return domain.ErrMalformedAck.WithError(fmt.Errorf("ack without accepted field"))
	}
	if !*ack.Accepted {
		return domain.ErrMalformedAck.WithError(fmt.Errorf("receiver rejected event: %s", ack.Reason))
	}
	return nil
}
