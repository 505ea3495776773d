package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	// OutcomeSuccess labels successful operations.
	OutcomeSuccess = "success"
	// OutcomeError labels failed operations (input or dependency issues).
	OutcomeError = "error"
)

var (
	computesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veto_engine",
			Name:      "computes_total",
			Help:      "Total number of veto computations handled, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	computeDurationSeconds = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: "veto_engine",
			Name:      "compute_seconds",
			Help:      "Veto computation latency in seconds.",
			Buckets:   []float64{0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		},
	)

	reloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "veto_engine",
			Name:      "corpus_reloads_total",
			Help:      "Total number of corpus reloads, partitioned by outcome.",
		},
		[]string{"outcome"},
	)

	flagsLoaded = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "veto_engine",
			Name:      "flags_loaded",
			Help:      "Number of categorised flags in the active corpus, per instrument.",
		},
		[]string{"instrument"},
	)
)

// Register attaches veto-engine collectors to the supplied Prometheus registerer.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		computesTotal,
		computeDurationSeconds,
		reloadsTotal,
		flagsLoaded,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); ok {
				continue
			}
			return err
		}
	}
	return nil
}

// ObserveCompute records a computation duration and outcome label.
func ObserveCompute(duration time.Duration, outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	computesTotal.WithLabelValues(label).Inc()
	if duration < 0 {
		duration = 0
	}
	computeDurationSeconds.Observe(duration.Seconds())
}

// ObserveReload records one corpus reload attempt.
func ObserveReload(outcome string) {
	label := outcome
	if label != OutcomeError {
		label = OutcomeSuccess
	}
	reloadsTotal.WithLabelValues(label).Inc()
}

// SetFlagsLoaded publishes the flag count for one instrument.
func SetFlagsLoaded(instrument string, count int) {
	flagsLoaded.WithLabelValues(instrument).Set(float64(count))
}

// ResetFlagsLoaded clears every instrument series, typically right
// before a corpus swap republishes the current set.
func ResetFlagsLoaded() {
	flagsLoaded.Reset()
}
