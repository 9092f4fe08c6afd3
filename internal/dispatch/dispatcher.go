package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/ponto/internal/domain"
	"github.com/saturnino-fabrica-de-software/ponto/internal/metrics"
)

// Publisher delivers one encoded payload to the attendance endpoint.
// A nil error means the broker or endpoint acknowledged the message.
type Publisher interface {
	Publish(ctx context.Context, payload []byte) error
}

// Queue is the durable local store of attendance events. Append keeps the
// Delivered flag as given, so delivered events are archived and undelivered
// ones become pending. ListUndelivered returns pending events oldest first.
type Queue interface {
	Append(ctx context.Context, event *domain.AttendanceEvent) error
	ListUndelivered(ctx context.Context) ([]*domain.AttendanceEvent, error)
	MarkDelivered(ctx context.Context, id uuid.UUID) error
}

// Dispatcher turns a positive identification into an attendance event
type Dispatcher struct {
	publisher Publisher
	queue     Queue
	timeout   time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Dispatcher
type Option func(*Dispatcher)

// WithTimeout bounds a single publish attempt
func WithTimeout(d time.Duration) Option {
	return func(disp *Dispatcher) {
		disp.timeout = d
	}
}

// WithClock replaces time.Now, used by tests
func WithClock(now func() time.Time) Option {
	return func(disp *Dispatcher) {
		disp.now = now
	}
}

func NewDispatcher(publisher Publisher, queue Queue, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		publisher: publisher,
		queue:     queue,
		timeout:   10 * time.Second,
		logger:    logger.With("component", "dispatcher"),
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// RecordAttendance builds the event and tries to publish it exactly once.
// On success the event is archived as delivered. On failure it is queued as
// pending and the returned error wraps domain.ErrDeliveryDeferred; the event
// is still returned and will be sent by the Resyncer. Only a queue failure
// loses the event.
func (d *Dispatcher) RecordAttendance(ctx context.Context, identity *domain.EnrolledIdentity, score float64, evidence []byte) (*domain.AttendanceEvent, error) {
	event := &domain.AttendanceEvent{
		ID:            uuid.New(),
		IdentityID:    identity.ID,
		DisplayName:   identity.DisplayName,
		Timestamp:     d.now().UTC(),
		Score:         score,
		EvidenceImage: evidence,
	}

	// the event must reach the queue even when the attempt is cancelled mid-publish
	store := context.WithoutCancel(ctx)

	pubErr := send(ctx, d.publisher, d.timeout, event)
	if pubErr == nil {
		metrics.Deliveries.WithLabelValues("live", "delivered").Inc()
		deliveredAt := event.Timestamp
		event.Delivered = true
		event.DeliveredAt = &deliveredAt

		if err := d.queue.Append(store, event); err != nil {
			// Already delivered, the local archive is best effort
			d.logger.Error("failed to archive delivered attendance", "event_id", event.ID, "error", err)
		}
		d.logger.Info("attendance delivered", "event_id", event.ID, "identity_id", event.IdentityID)
		return event, nil
	}

	metrics.Deliveries.WithLabelValues("live", "failed").Inc()
	if err := d.queue.Append(store, event); err != nil {
		return nil, fmt.Errorf("queue attendance %s: %w", event.ID, err)
	}

	d.logger.Warn("attendance queued for resync",
		"event_id", event.ID,
		"identity_id", event.IdentityID,
		"error", pubErr,
	)
	return event, domain.ErrDeliveryDeferred.WithError(pubErr)
}

// send makes one delivery attempt bounded by timeout
func send(ctx context.Context, publisher Publisher, timeout time.Duration, event *domain.AttendanceEvent) error {
	payload, err := Encode(event)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return publisher.Publish(ctx, payload)
}
