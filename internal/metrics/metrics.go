package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Vote pipeline metrics
var (
	// VotesTotal tracks vote and cancel operations by type and status
	VotesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "votes_total",
			Help: "Total vote operations by vote type and status",
		},
		[]string{"type", "status"},
	)

	// VoteCompensationsTotal tracks cache compensations by failure reason
	VoteCompensationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vote_compensations_total",
			Help: "Total cache compensations by failure reason",
		},
		[]string{"reason"},
	)

	// OutcomesDroppedTotal tracks outcome signals dropped because the
	// dispatcher queue was saturated
	OutcomesDroppedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "vote_outcomes_dropped_total",
			Help: "Total outcome signals dropped due to dispatcher backpressure",
		},
	)
)

// Cache store metrics
var (
	// CacheOpsTotal tracks cache operations by operation and status
	CacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vote_cache_operations_total",
			Help: "Total vote cache operations by operation and status",
		},
		[]string{"operation", "status"},
	)

	// CacheOpDuration tracks cache operation latency in seconds
	CacheOpDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vote_cache_operation_duration_seconds",
			Help:    "Vote cache operation duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"operation"},
	)

	// CacheCircuitState tracks the cache circuit breaker state
	// (0=closed, 1=half-open, 2=open)
	CacheCircuitState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "vote_cache_circuit_state",
			Help: "Current vote cache circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
	)
)

// Broadcast metrics
var (
	// BroadcastSignalsTotal tracks coalescer signals by status
	BroadcastSignalsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "broadcast_signals_total",
			Help: "Total broadcast trigger signals by status (accepted/dropped)",
		},
		[]string{"status"},
	)

	// BroadcastPublishesTotal tracks snapshot publishes
	BroadcastPublishesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "broadcast_publishes_total",
			Help: "Total snapshot publishes to the pub/sub bus",
		},
	)

	// BroadcastCoalescedSignals tracks how many signals each publish collapsed
	BroadcastCoalescedSignals = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "broadcast_coalesced_signals",
			Help:    "Number of signals collapsed into a single snapshot publish",
			Buckets: []float64{1, 2, 5, 10, 25, 50, 100, 250},
		},
	)

	// WebSocketConnectedClients tracks connected push-transport clients
	WebSocketConnectedClients = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "websocket_connected_clients",
			Help: "Number of connected WebSocket clients",
		},
	)

	// WebSocketSlowClientsEvicted tracks clients dropped for slow reads
	WebSocketSlowClientsEvicted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "websocket_slow_clients_evicted_total",
			Help: "Total WebSocket clients evicted because their send buffer was full",
		},
	)
)

// Warmup metrics
var (
	// WarmupDuration tracks how long the cache warmup took
	WarmupDuration = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_warmup_duration_seconds",
			Help: "Duration of the last cache warmup in seconds",
		},
	)

	// WarmupVotesLoaded tracks how many votes the warmup replayed
	WarmupVotesLoaded = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "cache_warmup_votes_loaded",
			Help: "Number of vote rows replayed into the cache during warmup",
		},
	)
)
