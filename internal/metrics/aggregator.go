package metrics

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Probe samples one gauge from storage
type Probe struct {
	Name   string
	Gauge  prometheus.Gauge
	Sample func(ctx context.Context) (int64, error)
}

type PendingCounter interface {
	CountUndelivered(ctx context.Context) (int64, error)
}

type IdentityCounter interface {
	CountIdentities(ctx context.Context) (int64, error)
}

// PendingProbe feeds PendingEvents from the attendance queue
func PendingProbe(source PendingCounter) Probe {
	return Probe{Name: "attendance_pending", Gauge: PendingEvents, Sample: source.CountUndelivered}
}

// IdentityProbe feeds EnrolledIdentities from the registry
func IdentityProbe(source IdentityCounter) Probe {
	return Probe{Name: "identities_enrolled", Gauge: EnrolledIdentities, Sample: source.CountIdentities}
}

// Aggregator refreshes storage-backed gauges on an interval. A failed probe
// keeps its last value.
type Aggregator struct {
	probes   []Probe
	logger   *slog.Logger
	interval time.Duration
	done     chan struct{}
	once     sync.Once
}

func NewAggregator(logger *slog.Logger, interval time.Duration, probes ...Probe) *Aggregator {
	if interval <= 0 {
		interval = time.Minute
	}

	return &Aggregator{
		probes:   probes,
		logger:   logger.With("component", "metrics"),
		interval: interval,
		done:     make(chan struct{}),
	}
}

// Start samples immediately and then on every tick until ctx is done or Stop is called
func (a *Aggregator) Start(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.sample(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-a.done:
			return
		case <-ticker.C:
			a.sample(ctx)
		}
	}
}

func (a *Aggregator) Stop() {
	a.once.Do(func() { close(a.done) })
}

func (a *Aggregator) sample(ctx context.Context) {
	for _, p := range a.probes {
		n, err := p.Sample(ctx)
		if err != nil {
			a.logger.Warn("metrics probe failed", "probe", p.Name, "error", err)
			continue
		}
		p.Gauge.Set(float64(n))
	}
}
