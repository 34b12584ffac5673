package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for grouping generation.
type Metrics struct {
	// Engine run latency, including roster and history loading
	GenerateLatency prometheus.Histogram

	// Repeat-pair score of each generated draft
	RepeatScore prometheus.Histogram

	// Drafts that reached a terminal state, by outcome
	DraftOutcome *prometheus.CounterVec
}

// New registers grouping metrics with reg, or the default registry when reg
// is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		GenerateLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aroundtable_grouping_generate_duration_seconds",
			Help:    "Duration of grouping generation including roster and history loading",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),

		RepeatScore: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "aroundtable_grouping_repeat_score",
			Help:    "Sum of past co-occurrences across pairs placed together in a generated draft",
			Buckets: []float64{0, 1, 2, 5, 10, 20, 50},
		}),

		DraftOutcome: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "aroundtable_grouping_drafts_total",
			Help: "Drafts by outcome",
		}, []string{"outcome"}), // outcome: "generated", "saved"
	}
}

func (m *Metrics) ObserveGenerate(d time.Duration, repeatScore int) {
	if m == nil {
		return
	}
	m.GenerateLatency.Observe(d.Seconds())
	m.RepeatScore.Observe(float64(repeatScore))
	m.DraftOutcome.WithLabelValues("generated").Inc()
}

func (m *Metrics) IncrementSaved() {
	if m != nil {
		m.DraftOutcome.WithLabelValues("saved").Inc()
	}
}
