package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/saturnino-fabrica-de-software/ponto/internal/metrics"
)

// Resyncer drains the local queue in FIFO order. A pass stops at the first
// event that cannot be published so later events never overtake earlier ones.
type Resyncer struct {
	publisher Publisher
	queue     Queue
	interval  time.Duration
	timeout   time.Duration
	logger    *slog.Logger

	mu     sync.Mutex
	stopCh chan struct{}
	once   sync.Once
}

func NewResyncer(publisher Publisher, queue Queue, interval, timeout time.Duration, logger *slog.Logger) *Resyncer {
	if interval <= 0 {
		interval = 30 * time.Second
	}
	return &Resyncer{
		publisher: publisher,
		queue:     queue,
		interval:  interval,
		timeout:   timeout,
		logger:    logger.With("component", "resync"),
		stopCh:    make(chan struct{}),
	}
}

func (r *Resyncer) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.Info("resync worker started", "interval", r.interval)

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("resync worker stopped")
			return
		case <-r.stopCh:
			r.logger.Info("resync worker stopped")
			return
		case <-ticker.C:
			if _, err := r.SyncOnce(ctx); err != nil {
				r.logger.Warn("resync pass interrupted", "error", err)
			}
		}
	}
}

func (r *Resyncer) Stop() {
	r.once.Do(func() { close(r.stopCh) })
}

// SyncOnce publishes pending events oldest first and marks each one delivered.
// It returns how many events were delivered before the pass ended.
func (r *Resyncer) SyncOnce(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pending, err := r.queue.ListUndelivered(ctx)
	if err != nil {
		return 0, fmt.Errorf("list undelivered: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	delivered := 0
	for _, event := range pending {
		if err := send(ctx, r.publisher, r.timeout, event); err != nil {
			metrics.Deliveries.WithLabelValues("resync", "failed").Inc()
			return delivered, fmt.Errorf("publish %s: %w", event.ID, err)
		}
		metrics.Deliveries.WithLabelValues("resync", "delivered").Inc()

		if err := r.queue.MarkDelivered(ctx, event.ID); err != nil {
			// Published but still pending; it will be sent again next pass
			return delivered, fmt.Errorf("mark delivered %s: %w", event.ID, err)
		}
		delivered++
	}

	r.logger.Info("resync pass completed", "delivered", delivered)
	return delivered, nil
}
