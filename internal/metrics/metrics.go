package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const namespace = "invest"

// Outcome labels for per-investment accrual results.
const (
	OutcomeProcessed   = "processed"
	OutcomeSkipped     = "skipped"
	OutcomeFailed      = "failed"
	OutcomeCompleted   = "completed"
	OutcomeInterrupted = "interrupted"
)

type Metrics struct {
	registry *prometheus.Registry

	runs         *prometheus.CounterVec
	records      *prometheus.CounterVec
	credited     prometheus.Counter
	runDuration  prometheus.Histogram
	verified     prometheus.Counter
	lastRunStart prometheus.Gauge
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accrual",
			Name:      "runs_total",
			Help:      "Accrual runs by trigger.",
		}, []string{"trigger"}),
		records: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accrual",
			Name:      "records_total",
			Help:      "Active investments examined by accrual runs, by outcome.",
		}, []string{"outcome"}),
		credited: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "accrual",
			Name:      "credited_amount_total",
			Help:      "Sum of earnings credited to accounts.",
		}),
		runDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "accrual",
			Name:      "run_duration_seconds",
			Help:      "Wall time of accrual runs.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		verified: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "investments",
			Name:      "verified_total",
			Help:      "Investments moved from pending to active.",
		}),
		lastRunStart: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "accrual",
			Name:      "last_run_start_timestamp_seconds",
			Help:      "Unix time the most recent accrual run started.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.runs, m.records, m.credited, m.runDuration, m.verified, m.lastRunStart,
	)
	return m
}

// RunFinished records one accrual run and its per-record outcome counts.
func (m *Metrics) RunFinished(trigger string, startedAt time.Time, duration time.Duration, counts map[string]int, credited decimal.Decimal) {
	m.runs.WithLabelValues(trigger).Inc()
	for outcome, n := range counts {
		m.records.WithLabelValues(outcome).Add(float64(n))
	}
	m.credited.Add(credited.InexactFloat64())
	m.runDuration.Observe(duration.Seconds())
	m.lastRunStart.Set(float64(startedAt.Unix()))
}

func (m *Metrics) InvestmentVerified() {
	m.verified.Inc()
}

func (m *Metrics) Handler(logger zerolog.Logger) http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		ErrorLog:      promLogger{logger: logger},
		ErrorHandling: promhttp.ContinueOnError,
	})
}

type promLogger struct {
	logger zerolog.Logger
}

func (l promLogger) Println(v ...interface{}) {
	l.logger.Error().Msg(fmt.Sprint(v...))
}
