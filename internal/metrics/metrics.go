// Package metrics exposes the connection's observable counters and
// gauges as Prometheus collectors: frames sent/received, resend and
// gap-fill events, heartbeat timeouts, and the current sequence numbers,
// so an operator can track a connection's health the same way a
// dashboard tracks any other long-lived session.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Label values for the frame direction a counter applies to.
const (
	DirectionSent     = "sent"
	DirectionReceived = "received"
)

// Metrics holds the collectors for one connection. A nil *Metrics is
// valid and every method is a no-op on it, so callers can wire Metrics
// unconditionally whether or not a registry was configured.
type Metrics struct {
	framesTotal      *prometheus.CounterVec
	resendTotal      prometheus.Counter
	gapFillTotal     prometheus.Counter
	heartbeatTimeout prometheus.Counter
	nextSeqNum       *prometheus.GaugeVec
	sessionState     prometheus.Gauge

	registered bool
}

// New creates the connection's collectors. If registry is nil the
// collectors are created but never registered, useful in tests.
func New(registry prometheus.Registerer) *Metrics {
	m := &Metrics{
		framesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fix44",
				Subsystem: "session",
				Name:      "frames_total",
				Help:      "Total number of FIX frames exchanged, by direction.",
			},
			[]string{"direction"},
		),
		resendTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fix44",
				Subsystem: "session",
				Name:      "resend_requests_total",
				Help:      "Total number of ResendRequest messages sent or answered.",
			},
		),
		gapFillTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fix44",
				Subsystem: "session",
				Name:      "gap_fill_total",
				Help:      "Total number of SequenceReset gap-fill messages sent.",
			},
		),
		heartbeatTimeout: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "fix44",
				Subsystem: "session",
				Name:      "heartbeat_timeouts_total",
				Help:      "Total number of TestRequest timeouts observed.",
			},
		),
		nextSeqNum: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fix44",
				Subsystem: "session",
				Name:      "next_seq_num",
				Help:      "Next expected sequence number, by direction.",
			},
			[]string{"direction"},
		),
		sessionState: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "fix44",
				Subsystem: "session",
				Name:      "state",
				Help:      "Current session.State as an ordinal value.",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.framesTotal,
			m.resendTotal,
			m.gapFillTotal,
			m.heartbeatTimeout,
			m.nextSeqNum,
			m.sessionState,
		)
		m.registered = true
	}

	return m
}

// ObserveFrame records one frame crossing the wire in direction.
func (m *Metrics) ObserveFrame(direction string) {
	if m == nil {
		return
	}
	m.framesTotal.WithLabelValues(direction).Inc()
}

// ObserveResendRequest records a ResendRequest being sent or answered.
func (m *Metrics) ObserveResendRequest() {
	if m == nil {
		return
	}
	m.resendTotal.Inc()
}

// ObserveGapFill records a SequenceReset gap-fill being sent.
func (m *Metrics) ObserveGapFill() {
	if m == nil {
		return
	}
	m.gapFillTotal.Inc()
}

// ObserveHeartbeatTimeout records a TestRequest that went unanswered.
func (m *Metrics) ObserveHeartbeatTimeout() {
	if m == nil {
		return
	}
	m.heartbeatTimeout.Inc()
}

// SetNextSeqNum updates the gauge tracking the next sequence number in
// direction.
func (m *Metrics) SetNextSeqNum(direction string, n int) {
	if m == nil {
		return
	}
	m.nextSeqNum.WithLabelValues(direction).Set(float64(n))
}

// SetSessionState updates the session-state gauge to state, an ordinal
// matching session.State's iota order.
func (m *Metrics) SetSessionState(state int) {
	if m == nil {
		return
	}
	m.sessionState.Set(float64(state))
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	if m == nil || !m.registered {
		return
	}
	m.framesTotal.Describe(ch)
	ch <- m.resendTotal.Desc()
	ch <- m.gapFillTotal.Desc()
	ch <- m.heartbeatTimeout.Desc()
	m.nextSeqNum.Describe(ch)
	ch <- m.sessionState.Desc()
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	if m == nil || !m.registered {
		return
	}
	m.framesTotal.Collect(ch)
	ch <- m.resendTotal
	ch <- m.gapFillTotal
	ch <- m.heartbeatTimeout
	m.nextSeqNum.Collect(ch)
	ch <- m.sessionState
}
