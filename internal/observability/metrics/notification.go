package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// NotificationMetrics tracks alert deliveries. A nil *NotificationMetrics
// records nothing.
type NotificationMetrics struct {
	DeliveriesTotal  *prometheus.CounterVec // by service and status
	DeliveryDuration prometheus.Histogram
}

// NewNotificationMetrics creates and registers notification metrics.
func NewNotificationMetrics(registry prometheus.Registerer) (*NotificationMetrics, error) {
	m := &NotificationMetrics{
		DeliveriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notification_deliveries_total",
			Help: "Total alert deliveries by service and status",
		}, []string{"service", "status"}),
		DeliveryDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "notification_delivery_duration_seconds",
			Help:    "Time to deliver one alert to all services",
			Buckets: prometheus.ExponentialBuckets(BucketStart1ms*10, BucketFactor2, BucketCount12),
		}),
	}
	if err := registry.Register(m); err != nil {
		return nil, fmt.Errorf("failed to register notification metrics: %w", err)
	}
	return m, nil
}

// ObserveDelivery records one delivery attempt.
func (m *NotificationMetrics) ObserveDelivery(service, status string) {
	if m == nil {
		return
	}
	m.DeliveriesTotal.WithLabelValues(service, status).Inc()
}

// ObserveDuration records the latency of one send.
func (m *NotificationMetrics) ObserveDuration(d time.Duration) {
	if m == nil {
		return
	}
	m.DeliveryDuration.Observe(d.Seconds())
}

// Describe implements prometheus.Collector.
func (m *NotificationMetrics) Describe(ch chan<- *prometheus.Desc) {
	m.DeliveriesTotal.Describe(ch)
	ch <- m.DeliveryDuration.Desc()
}

// Collect implements prometheus.Collector.
func (m *NotificationMetrics) Collect(ch chan<- prometheus.Metric) {
	m.DeliveriesTotal.Collect(ch)
	ch <- m.DeliveryDuration
}
