package conversation

import "github.com/prometheus/client_golang/prometheus"

// TurnMetrics exposes counters for the conversation engine. A nil receiver
// disables collection, so callers never need to guard.
type TurnMetrics struct {
	turnsTotal      *prometheus.CounterVec
	policyFallbacks prometheus.Counter
	bookingsTotal   *prometheus.CounterVec
	calendarErrors  prometheus.Counter
}

func NewTurnMetrics(reg prometheus.Registerer) *TurnMetrics {
	m := &TurnMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raas",
			Subsystem: "conversation",
			Name:      "turns_total",
			Help:      "Total processed conversation turns",
		}, []string{"action", "source"}),
		policyFallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raas",
			Subsystem: "conversation",
			Name:      "policy_fallbacks_total",
			Help:      "Turns where the remote policy failed and rules decided",
		}),
		bookingsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "raas",
			Subsystem: "conversation",
			Name:      "bookings_total",
			Help:      "Booking attempts by resulting status",
		}, []string{"status"}),
		calendarErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "raas",
			Subsystem: "conversation",
			Name:      "calendar_errors_total",
			Help:      "Calendar collaborator failures during dispatch",
		}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.policyFallbacks, m.bookingsTotal, m.calendarErrors)
	return m
}

func (m *TurnMetrics) ObserveTurn(action, source string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(action, source).Inc()
}

func (m *TurnMetrics) ObservePolicyFallback() {
	if m == nil {
		return
	}
	m.policyFallbacks.Inc()
}

func (m *TurnMetrics) ObserveBooking(status string) {
	if m == nil {
		return
	}
	m.bookingsTotal.WithLabelValues(status).Inc()
}

func (m *TurnMetrics) ObserveCalendarError() {
	if m == nil {
		return
	}
	m.calendarErrors.Inc()
}
