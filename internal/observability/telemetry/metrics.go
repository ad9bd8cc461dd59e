package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Business metrics
	ChatRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medai_chat_requests_total",
		Help: "Total chat requests by input mode and outcome",
	}, []string{"mode", "status"})

	IntentsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medai_intents_total",
		Help: "Total classified intents",
	}, []string{"intent"})

	ExtractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medai_extractions_total",
		Help: "Total structured extractions by schema and outcome",
	}, []string{"schema", "status"})

	// Infrastructure metrics
	CapabilityLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "medai_capability_latency_seconds",
		Help:    "Latency of external capability calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"capability"})

	BackendReadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "medai_backend_reads_total",
		Help: "Total read-only backend queries",
	}, []string{"status"})
)
