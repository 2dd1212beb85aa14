package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/liamchampton/write-my-performance-review/internal/domain"
)

var (
	documentSavedGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activity_tracker",
		Subsystem: "store",
		Name:      "last_document_saved_timestamp_seconds",
		Help:      "Unix timestamp of the most recent successful document save.",
	})
	storedActivitiesGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "activity_tracker",
		Subsystem: "store",
		Name:      "activities",
		Help:      "Number of activities in the most recently saved document.",
	})

	httpRequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_tracker",
		Subsystem: "http",
		Name:      "requests_total",
		Help:      "HTTP requests handled, labeled by route, method and status code.",
	}, []string{"route", "method", "status"})
	httpDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "activity_tracker",
		Subsystem: "http",
		Name:      "request_duration_seconds",
		Help:      "Time spent serving HTTP requests.",
		Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14),
	}, []string{"route"})

	aiRequestsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_tracker",
		Subsystem: "ai",
		Name:      "requests_total",
		Help:      "Summary generation attempts, labeled by operation and outcome.",
	}, []string{"operation", "outcome"})
	aiCacheHitsCounter = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "activity_tracker",
		Subsystem: "ai",
		Name:      "cache_hits_total",
		Help:      "Summaries served from the local cache, labeled by operation.",
	}, []string{"operation"})
)

func init() {
	prometheus.MustRegister(documentSavedGauge, storedActivitiesGauge, httpRequestsCounter, httpDuration, aiRequestsCounter, aiCacheHitsCounter)
}

// RecordDocumentSaved updates the save watermark and the stored activity count.
func RecordDocumentSaved(doc *domain.Document) {
	documentSavedGauge.Set(float64(time.Now().Unix()))
	if doc != nil {
		storedActivitiesGauge.Set(float64(len(doc.Activities)))
	}
}

// RecordHTTPRequest counts a served request and observes its latency.
func RecordHTTPRequest(route, method string, status int, elapsed time.Duration) {
	httpRequestsCounter.WithLabelValues(route, method, strconv.Itoa(status)).Inc()
	httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// RecordAIRequest counts a collaborator call outcome ("success", "error", "unavailable").
func RecordAIRequest(operation, outcome string) {
	aiRequestsCounter.WithLabelValues(operation, outcome).Inc()
}

// RecordAICacheHit counts a summary answered from cache.
func RecordAICacheHit(operation string) {
	aiCacheHitsCounter.WithLabelValues(operation).Inc()
}
