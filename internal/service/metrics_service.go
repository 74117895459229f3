package service

import (
	"net/http"
	"runtime"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsService encapsulates Prometheus instrumentation for the API.
type MetricsService struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	verdictTotal    *prometheus.CounterVec
	finalizeTotal   *prometheus.CounterVec
}

// NewMetricsService registers core Prometheus collectors.
func NewMetricsService() *MetricsService {
	registry := prometheus.NewRegistry()

	requestDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_request_duration_seconds",
		Help:    "Duration of HTTP requests in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path", "status"})

	requestTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "http_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	verdictTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_validation_verdicts_total",
		Help: "Eligibility verdicts grouped by the deciding check",
	}, []string{"check", "outcome"})

	finalizeTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "enrollment_finalize_total",
		Help: "Finalize attempts grouped by outcome",
	}, []string{"outcome"})

	goroutines := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "goroutines_total",
		Help: "Total number of goroutines",
	}, func() float64 {
		return float64(runtime.NumGoroutine())
	})

	registry.MustRegister(requestDuration, requestTotal, verdictTotal, finalizeTotal, goroutines)

	return &MetricsService{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestDuration: requestDuration,
		requestTotal:    requestTotal,
		verdictTotal:    verdictTotal,
		finalizeTotal:   finalizeTotal,
	}
}

// Handler exposes the Prometheus scrape endpoint.
func (s *MetricsService) Handler() http.Handler {
	return s.handler
}

// ObserveHTTPRequest records one served request.
func (s *MetricsService) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	labels := []string{method, path, strconv.Itoa(status)}
	s.requestDuration.WithLabelValues(labels...).Observe(duration.Seconds())
	s.requestTotal.WithLabelValues(labels...).Inc()
}

// ObserveVerdict records one eligibility decision.
func (s *MetricsService) ObserveVerdict(check string, accepted bool) {
	outcome := "rejected"
	if accepted {
		outcome = "accepted"
	}
	s.verdictTotal.WithLabelValues(check, outcome).Inc()
}

// ObserveFinalize records one finalize attempt.
func (s *MetricsService) ObserveFinalize(outcome string) {
	s.finalizeTotal.WithLabelValues(outcome).Inc()
}
