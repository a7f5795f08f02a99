package metrics

import "github.com/prometheus/client_golang/prometheus"

// UpstreamMetrics exposes counters/histograms for calls to the identity and
// salon APIs.
type UpstreamMetrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
}

func NewUpstreamMetrics(reg prometheus.Registerer) *UpstreamMetrics {
	m := &UpstreamMetrics{
		requestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "upstream",
			Name:      "requests_total",
			Help:      "Total calls to the identity and salon APIs",
		}, []string{"target", "method", "status"}),
		requestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "salon",
			Subsystem: "upstream",
			Name:      "request_duration_seconds",
			Help:      "Latency of identity and salon API calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"target", "method"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.requestsTotal, m.requestDuration)
	return m
}

// ObserveRequest records one upstream call. status is the HTTP status code
// as text, or "error" when no response arrived.
func (m *UpstreamMetrics) ObserveRequest(target, method, status string, seconds float64) {
	if m == nil {
		return
	}
	m.requestsTotal.WithLabelValues(target, method, status).Inc()
	m.requestDuration.WithLabelValues(target, method).Observe(seconds)
}

// BookingMetrics counts wizard submissions and schedule suggestions.
type BookingMetrics struct {
	submissionsTotal *prometheus.CounterVec
	suggestionsTotal *prometheus.CounterVec
	walkInsTotal     *prometheus.CounterVec
}

func NewBookingMetrics(reg prometheus.Registerer) *BookingMetrics {
	m := &BookingMetrics{
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "submissions_total",
			Help:      "Booking wizard submissions by outcome",
		}, []string{"outcome"}),
		suggestionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "suggestions_total",
			Help:      "Schedule suggestion requests by outcome",
		}, []string{"outcome"}),
		walkInsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "salon",
			Subsystem: "booking",
			Name:      "walk_in_orders_total",
			Help:      "Walk-in orders by customer resolution",
		}, []string{"resolution"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.submissionsTotal, m.suggestionsTotal, m.walkInsTotal)
	return m
}

func (m *BookingMetrics) ObserveSubmission(outcome string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveSuggestion(outcome string) {
	if m == nil {
		return
	}
	m.suggestionsTotal.WithLabelValues(outcome).Inc()
}

func (m *BookingMetrics) ObserveWalkIn(resolution string) {
	if m == nil {
		return
	}
	m.walkInsTotal.WithLabelValues(resolution).Inc()
}
