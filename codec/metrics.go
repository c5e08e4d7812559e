package codec

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/wippyai/wirecodec/errors"
)

// Metrics holds the prometheus collectors a compiler reports to.
type Metrics struct {
	compiles *prometheus.CounterVec
	failures *prometheus.CounterVec
	bytes    *prometheus.CounterVec
}

// NewMetrics registers the codec collectors with the default registerer.
func NewMetrics() *Metrics {
	return NewMetricsWithRegistry(prometheus.DefaultRegisterer)
}

// NewMetricsWithRegistry registers the codec collectors with reg.
func NewMetricsWithRegistry(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		compiles: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wirecodec",
				Name:      "plan_compiles_total",
				Help:      "Plan lookups by result (hit, miss, error).",
			},
			[]string{"result"},
		),
		failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wirecodec",
				Name:      "errors_total",
				Help:      "Decode and encode failures by phase and kind.",
			},
			[]string{"phase", "kind"},
		),
		bytes: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wirecodec",
				Name:      "bytes_total",
				Help:      "Bytes decoded or encoded.",
			},
			[]string{"direction"},
		),
	}
}

func (m *Metrics) compiled(result string) {
	if m == nil {
		return
	}
	m.compiles.WithLabelValues(result).Inc()
}

func (m *Metrics) failed(err error) {
	if m == nil || err == nil {
		return
	}
	phase, kind := "unknown", string(errors.KindOf(err))
	if e, ok := errors.AsError(err); ok {
		phase = string(e.Phase)
	}
	if kind == "" {
		kind = "unknown"
	}
	m.failures.WithLabelValues(phase, kind).Inc()
}

func (m *Metrics) transferred(direction string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytes.WithLabelValues(direction).Add(float64(n))
}
