// Package observability owns the Prometheus registry and the metrics
// handler. Sentry error telemetry lives in the telemetry package.
package observability

import (
	"fmt"
	"net/http"

	"github.com/gridsight/thermalwatch/internal/logger"
	"github.com/gridsight/thermalwatch/internal/observability/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all the metric collectors for the application.
type Metrics struct {
	registry     *prometheus.Registry
	Annotation   *metrics.AnnotationMetrics
	Detection    *metrics.DetectionMetrics
	MQTT         *metrics.MQTTMetrics
	Notification *metrics.NotificationMetrics
	HTTP         *metrics.HTTPMetrics
}

// NewMetrics creates a registry with every collector registered, plus the
// Go runtime and process collectors.
func NewMetrics() (*Metrics, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	annotationMetrics, err := metrics.NewAnnotationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create annotation metrics: %w", err)
	}

	detectionMetrics, err := metrics.NewDetectionMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create detection metrics: %w", err)
	}

	mqttMetrics, err := metrics.NewMQTTMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create MQTT metrics: %w", err)
	}

	notificationMetrics, err := metrics.NewNotificationMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create notification metrics: %w", err)
	}

	httpMetrics, err := metrics.NewHTTPMetrics(registry)
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP metrics: %w", err)
	}

	return &Metrics{
		registry:     registry,
		Annotation:   annotationMetrics,
		Detection:    detectionMetrics,
		MQTT:         mqttMetrics,
		Notification: notificationMetrics,
		HTTP:         httpMetrics,
	}, nil
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promErrorLogger{log: logger.Global().Module("metrics")},
		ErrorHandling: promhttp.HTTPErrorOnError,
	})
}

// promErrorLogger adapts the module logger to promhttp.Logger.
type promErrorLogger struct {
	log logger.Logger
}

func (l promErrorLogger) Println(v ...any) {
	l.log.Error("metrics handler error", logger.String("detail", fmt.Sprint(v...)))
}
