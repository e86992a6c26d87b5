package csrf

import "github.com/prometheus/client_golang/prometheus"

// Outcome labels recorded by Metrics.
const (
	outcomeSkipped   = "skipped"
	outcomePassed    = "passed"
	outcomeMissing   = "missing"
	outcomeComposite = "composite"
	outcomeMismatch  = "mismatch"
	outcomeOrigin    = "origin"
	outcomeError     = "error"
)

// Metrics counts Guard decisions.
type Metrics struct {
	Requests *prometheus.CounterVec
}

// NewMetrics creates the Guard collectors and registers them with reg. A nil
// reg leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "csrf",
				Name:      "requests_total",
				Help:      "Requests seen by the CSRF guard, by outcome",
			},
			[]string{"outcome"},
		),
	}
	if reg != nil {
		reg.MustRegister(m.Requests)
	}
	return m
}

func (m *Metrics) observe(outcome string) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(outcome).Inc()
}
