package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PollTicks counts poll ticks by outcome (changed, unchanged, error, stale).
	PollTicks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socio_poll_ticks_total",
		Help: "Total number of chat poll ticks by outcome",
	}, []string{"outcome"})

	// RemoteCallErrors counts backend call failures by operation.
	RemoteCallErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socio_remote_call_errors_total",
		Help: "Total number of backend call failures by operation",
	}, []string{"operation"})

	// EnrichmentLatency records enrichment batch latency by kind.
	EnrichmentLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "socio_enrichment_latency_seconds",
		Help:    "Enrichment batch latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	// AssetCacheEntries is the gauge of live converted-asset entries.
	AssetCacheEntries = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "socio_asset_cache_entries",
		Help: "Number of live entries in the asset conversion cache",
	})

	// AssetCacheHits counts conversions served from an existing entry.
	AssetCacheHits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "socio_asset_cache_hits_total",
		Help: "Total asset conversions deduplicated by content hash",
	})

	// MessagesSent counts outgoing messages by result.
	MessagesSent = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "socio_messages_sent_total",
		Help: "Total number of messages sent by result",
	}, []string{"result"})
)

// TrackEnrichment returns a function that records batch latency when called
// (e.g. defer).
func TrackEnrichment(kind string) func() {
	start := time.Now()
	return func() {
		EnrichmentLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
	}
}
