package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Messaging-API Metrics
var (
	RequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campus",
			Subsystem: "messaging_api",
			Name:      "requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "endpoint", "status"},
	)

	RequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campus",
			Subsystem: "messaging_api",
			Name:      "request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"method", "endpoint", "status"},
	)

	ConversationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campus",
			Subsystem: "messaging_api",
			Name:      "conversations_total",
			Help:      "Conversation create calls by outcome (created or reused)",
		},
		[]string{"outcome"},
	)

	ConversationsDeletedTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campus",
			Subsystem: "messaging_api",
			Name:      "conversations_deleted_total",
			Help:      "Total conversations deleted",
		},
	)

	MessagesSentTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campus",
			Subsystem: "messaging_api",
			Name:      "messages_sent_total",
			Help:      "Total messages appended to conversations",
		},
	)

	MessagesReadTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "campus",
			Subsystem: "messaging_api",
			Name:      "messages_read_total",
			Help:      "Total messages flipped to read",
		},
	)

	CollaboratorRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campus",
			Subsystem: "messaging_api",
			Name:      "collaborator_requests_total",
			Help:      "Calls to the identity and listings services by outcome",
		},
		[]string{"collaborator", "outcome"},
	)

	CollaboratorLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "campus",
			Subsystem: "messaging_api",
			Name:      "collaborator_latency_seconds",
			Help:      "Latency of calls to the identity and listings services",
			Buckets:   []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		},
		[]string{"collaborator"},
	)

	PrincipalCacheTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "campus",
			Subsystem: "messaging_api",
			Name:      "principal_cache_total",
			Help:      "Principal cache lookups by result (hit or miss)",
		},
		[]string{"result"},
	)
)

// RecordRequest records an HTTP request
func RecordRequest(method, endpoint, status string, durationSec float64) {
	RequestsTotal.WithLabelValues(method, endpoint, status).Inc()
	RequestDuration.WithLabelValues(method, endpoint, status).Observe(durationSec)
}

// RecordCollaboratorRequest records the outcome and latency of a collaborator call
func RecordCollaboratorRequest(collaborator, outcome string, durationSec float64) {
	if outcome == "" {
		outcome = "unknown"
	}
	CollaboratorRequestsTotal.WithLabelValues(collaborator, outcome).Inc()
	CollaboratorLatency.WithLabelValues(collaborator).Observe(durationSec)
}

// RecordPrincipalCache records a principal cache lookup
func RecordPrincipalCache(hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	PrincipalCacheTotal.WithLabelValues(result).Inc()
}

// DomainRecorder feeds messaging service events into the Prometheus counters.
type DomainRecorder struct{}

// NewDomainRecorder returns the recorder handed to the messaging service.
func NewDomainRecorder() *DomainRecorder {
	return &DomainRecorder{}
}

func (DomainRecorder) ConversationCreated(reused bool) {
	outcome := "created"
	if reused {
		outcome = "reused"
	}
	ConversationsTotal.WithLabelValues(outcome).Inc()
}

func (DomainRecorder) MessageSent() {
	MessagesSentTotal.Inc()
}

func (DomainRecorder) MessagesRead(count int64) {
	MessagesReadTotal.Add(float64(count))
}

func (DomainRecorder) ConversationDeleted() {
	ConversationsDeletedTotal.Inc()
}
