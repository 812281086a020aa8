// Package metrics exposes the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"time"

	"github.com/MrSnakeDoc/encore/internal/media"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "encore"

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	RequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	MediaActions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "media_actions_total",
			Help:      "Media library actions by outcome",
		},
		[]string{"action", "outcome"},
	)

	MediaActionDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "media_action_duration_seconds",
			Help:      "Media library action duration in seconds",
			Buckets:   []float64{.01, .05, .1, .5, 1, 5, 15, 60},
		},
		[]string{"action"},
	)

	CatalogRecords = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "media_catalog_records",
			Help:      "Media records in the catalog by status",
		},
		[]string{"status"},
	)

	UploadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "upload_bytes_total",
			Help:      "Bytes accepted by the upload endpoints",
		},
	)
)

func init() {
	prometheus.MustRegister(
		RequestsTotal,
		RequestDuration,
		MediaActions,
		MediaActionDuration,
		CatalogRecords,
		UploadBytes,
	)
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// RecordRequest records one served HTTP request.
func RecordRequest(method, route, status string, d time.Duration) {
	RequestsTotal.WithLabelValues(method, route, status).Inc()
	RequestDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// RecordAction records one media action run.
func RecordAction(action string, err error, d time.Duration) {
	outcome := "success"
	if err != nil {
		outcome = "error"
	}
	MediaActions.WithLabelValues(action, outcome).Inc()
	MediaActionDuration.WithLabelValues(action).Observe(d.Seconds())
}

// RecordCatalog publishes catalog counts.
func RecordCatalog(counts map[media.Status]int) {
	for status, n := range counts {
		CatalogRecords.WithLabelValues(status.String()).Set(float64(n))
	}
}
