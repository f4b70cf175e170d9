package metrics

import (
	"sync"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	registerOnce         sync.Once
	httpRequestsTotal    *prometheus.CounterVec
	httpLatencySeconds   *prometheus.HistogramVec
	storeOperationsTotal *prometheus.CounterVec
	storeLatencySeconds  *prometheus.HistogramVec
	uploadedPhotosTotal  prometheus.Counter
)

// Register initialises the Prometheus collectors used by the portal.
func Register() {
	registerOnce.Do(func() {
		httpRequestsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homework_http_requests_total",
			Help: "Total number of HTTP requests served.",
		}, []string{"method", "route", "status"})

		httpLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homework_http_latency_seconds",
			Help:    "Latency distribution for HTTP requests.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method", "route"})

		storeOperationsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "homework_store_operations_total",
			Help: "Document store loads and saves by backend and result.",
		}, []string{"backend", "operation", "result"})

		storeLatencySeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "homework_store_latency_seconds",
			Help:    "Latency distribution for document store operations.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
		}, []string{"backend", "operation"})

		uploadedPhotosTotal = prometheus.NewCounter(prometheus.CounterOpts{
			Name: "homework_uploaded_photos_total",
			Help: "Photos forwarded to the homework chat.",
		})

		prometheus.MustRegister(httpRequestsTotal, httpLatencySeconds, storeOperationsTotal, storeLatencySeconds, uploadedPhotosTotal)
	})
}

// HTTPRequests exposes the request counter.
func HTTPRequests() *prometheus.CounterVec {
	Register()
	return httpRequestsTotal
}

// HTTPLatency exposes the request latency histogram.
func HTTPLatency() *prometheus.HistogramVec {
	Register()
	return httpLatencySeconds
}

// StoreOperations exposes the store operation counter.
func StoreOperations() *prometheus.CounterVec {
	Register()
	return storeOperationsTotal
}

// StoreLatency exposes the store latency histogram.
func StoreLatency() *prometheus.HistogramVec {
	Register()
	return storeLatencySeconds
}

// UploadedPhotos exposes the uploaded photo counter.
func UploadedPhotos() prometheus.Counter {
	Register()
	return uploadedPhotosTotal
}

// Handler exposes the Prometheus scrape endpoint via Fiber.
func Handler() fiber.Handler {
	Register()
	return adaptor.HTTPHandler(promhttp.Handler())
}
