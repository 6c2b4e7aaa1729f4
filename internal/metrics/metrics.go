package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Throughput metrics - Track delivery volume
var (
	LedgersProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstream_ledgers_processed_total",
			Help: "Total number of ledgers processed by source",
		},
		[]string{"source"},
	)

	EventsDelivered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstream_events_delivered_total",
			Help: "Total number of events delivered by type",
		},
		[]string{"event_type"},
	)

	DuplicatesSuppressed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventstream_duplicates_suppressed_total",
		Help: "Total number of already seen events dropped by the dedup buffer",
	})

	PagesFetched = promauto.NewCounter(prometheus.CounterOpts{
		Name: "eventstream_pages_fetched_total",
		Help: "Total number of event pages requested from the live source",
	})

	EventsSaved = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstream_events_saved_total",
			Help: "Total number of events written by sink",
		},
		[]string{"sink"},
	)
)

// Performance metrics - Track processing speed and latency
var (
	LedgerProcessingDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventstream_ledger_processing_duration_seconds",
			Help:    "Time taken to fetch and deliver a single ledger",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	SinkWriteDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "eventstream_sink_write_duration_seconds",
			Help:    "Time taken by a sink to accept one event",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"sink"},
	)
)

// State metrics - Track current state, one series per streamer
var (
	CurrentLedger = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventstream_current_ledger",
			Help: "Current ledger sequence being processed",
		},
		[]string{"streamer"},
	)

	LatestLedger = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventstream_latest_ledger",
			Help: "Latest ledger reported by the live source",
		},
		[]string{"streamer"},
	)

	StreamerMode = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "eventstream_streamer_mode",
			Help: "Streamer mode: 0=idle, 1=live, 2=archive, 3=auto",
		},
		[]string{"streamer"},
	)
)

// Error metrics - Track failures
var (
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "eventstream_errors_total",
			Help: "Total number of errors by component",
		},
		[]string{"component"},
	)
)
