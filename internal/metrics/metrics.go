package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	FramesReceived = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ponto_frames_received_total",
		Help: "Total number of frames offered to the orchestrator.",
	})

	FramesDropped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "ponto_frames_dropped_total",
		Help: "Total number of frames rejected because another frame was in flight.",
	})

	Attempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ponto_identification_attempts_total",
		Help: "Total number of finished identification attempts, labelled by outcome status.",
	}, []string{"status"})

	MatchScore = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ponto_match_score",
		Help:    "Best similarity score of each identification attempt.",
		Buckets: []float64{0.1, 0.2, 0.3, 0.4, 0.5, 0.6, 0.65, 0.7, 0.75, 0.8, 0.9, 1},
	})

	Deliveries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "ponto_attendance_deliveries_total",
		Help: "Total number of attendance publish attempts, labelled by source and result.",
	}, []string{"source", "result"})

	PendingEvents = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ponto_attendance_pending",
		Help: "Attendance events waiting in the local queue for resync.",
	})

	EnrolledIdentities = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "ponto_identities_enrolled",
		Help: "Identities currently in the registry.",
	})

	InferenceDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "ponto_inference_duration_ms",
		Help:    "Embedding extraction latency in milliseconds, preprocessing included.",
		Buckets: []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500},
	})
)
