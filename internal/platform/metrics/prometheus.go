package metrics

import (
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// MetricsManager holds the service's Prometheus collectors on a private registry.
type MetricsManager struct {
	Registry            *prometheus.Registry
	NewsOperationsTotal *prometheus.CounterVec
	ImageOperations     *prometheus.CounterVec
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestLatency  *prometheus.HistogramVec
}

func NewMetricsManager(namespace string) *MetricsManager {
	registry := prometheus.NewRegistry()

	newsOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "news_operations_total",
		Help:      "News use case invocations by operation and outcome.",
	}, []string{"operation", "outcome"})

	imageOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "image_operations_total",
		Help:      "Image store calls by action (upload, delete, compensate) and outcome.",
	}, []string{"action", "outcome"})

	httpTotal := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "http_requests_total",
		Help:      "HTTP requests by method, route and status code.",
	}, []string{"method", "route", "status"})

	httpLatency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request latency by method and route.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"method", "route"})

	registry.MustRegister(
		newsOps,
		imageOps,
		httpTotal,
		httpLatency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return &MetricsManager{
		Registry:            registry,
		NewsOperationsTotal: newsOps,
		ImageOperations:     imageOps,
		HTTPRequestsTotal:   httpTotal,
		HTTPRequestLatency:  httpLatency,
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeSuccess
}

// ObserveOperation counts one use case call. Safe on a nil manager.
func (m *MetricsManager) ObserveOperation(operation string, err error) {
	if m == nil {
		return
	}
	m.NewsOperationsTotal.WithLabelValues(operation, outcome(err)).Inc()
}

// ObserveImage counts one image store call. Safe on a nil manager.
func (m *MetricsManager) ObserveImage(action string, err error) {
	if m == nil {
		return
	}
	m.ImageOperations.WithLabelValues(action, outcome(err)).Inc()
}

// StartMetricsServer serves /metrics in the background. It returns nil when no
// port is configured.
func StartMetricsServer(port string, logger *zap.Logger, registry *prometheus.Registry) *http.Server {
	if port == "" {
		logger.Info("Prometheus metrics server port not configured, server will not start.")
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))

	server := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("Prometheus metrics server starting", zap.String("port", port), zap.String("path", "/metrics"))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Prometheus metrics server failed", zap.Error(err))
		}
	}()
	return server
}
