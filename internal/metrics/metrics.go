// Package metrics holds Prometheus collectors for ingestion and the read API.
package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// M holds all Prometheus collectors for the archiver. Collectors are usable
// as soon as the package loads; Register attaches them to the default registry.
var M = struct {
	VideosDownloaded  *prometheus.CounterVec
	CommentsPersisted prometheus.Counter
	RepliesPersisted  prometheus.Counter
	ItemsEvicted      *prometheus.CounterVec
	ExtractorFailures prometheus.Counter
	RequestDuration   *prometheus.HistogramVec
}{
	VideosDownloaded: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidvault_videos_downloaded_total",
			Help: "Media files downloaded and verified, by channel.",
		},
		[]string{"channel"},
	),
	CommentsPersisted: prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidvault_comments_persisted_total",
			Help: "Top-level comment records written to disk.",
		},
	),
	RepliesPersisted: prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidvault_replies_persisted_total",
			Help: "Reply records written to disk.",
		},
	),
	ItemsEvicted: prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "vidvault_items_evicted_total",
			Help: "Items removed by the eviction manager, by channel.",
		},
		[]string{"channel"},
	),
	ExtractorFailures: prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "vidvault_extractor_failures_total",
			Help: "Failed extractor invocations, before retry.",
		},
	),
	RequestDuration: prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "vidvault_api_request_duration_seconds",
			Help:    "HTTP request duration in seconds, by endpoint, method and status.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"endpoint", "method", "status"},
	),
}

var registerOnce sync.Once

// Register attaches all collectors to the default registry. Call once at startup.
func Register() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			M.VideosDownloaded,
			M.CommentsPersisted,
			M.RepliesPersisted,
			M.ItemsEvicted,
			M.ExtractorFailures,
			M.RequestDuration,
		)
	})
}
