package metrics

import "github.com/prometheus/client_golang/prometheus"

// PortalMetrics counts calls made to the hospital API.
type PortalMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewPortalMetrics(reg prometheus.Registerer) *PortalMetrics {
	m := &PortalMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "opbook",
			Subsystem: "portal",
			Name:      "requests_total",
			Help:      "Total calls to the hospital API by operation and outcome",
		}, []string{"operation", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "opbook",
			Subsystem: "portal",
			Name:      "request_seconds",
			Help:      "Latency of hospital API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// ObserveRequest records one finished call. status is the HTTP status code
// as text, or "error" when no response arrived.
func (m *PortalMetrics) ObserveRequest(operation, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(operation, status).Inc()
	m.requestDuration.WithLabelValues(operation).Observe(seconds)
}
