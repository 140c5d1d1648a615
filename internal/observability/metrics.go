package observability

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/signalsfoundry/isd-drivers/kernel"
)

// Outcome label values.
const (
	OutcomeOK      = "ok"
	OutcomeMissing = "missing"
	OutcomeError   = "error"
)

// Collector bundles the Prometheus metrics for kernel pool queries,
// metakernel scans and ISD exports. It satisfies kernel.QueryRecorder,
// metakernel.ScanRecorder and driver.ExportRecorder.
type Collector struct {
	gatherer prometheus.Gatherer

	PoolQueries     *prometheus.CounterVec
	MetakernelScans *prometheus.CounterVec
	Exports         *prometheus.CounterVec
	ExportDurations *prometheus.HistogramVec
}

// NewCollector registers the metrics against the provided registerer,
// defaulting to the global Prometheus registry when nil.
func NewCollector(reg prometheus.Registerer) (*Collector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	queries, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "kernel_pool_queries_total",
		Help: "Kernel pool queries, labeled by variable field and outcome.",
	}, []string{"field", "outcome"}), "kernel_pool_queries_total")
	if err != nil {
		return nil, err
	}

	scans, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "metakernel_scans_total",
		Help: "Metakernel directory scans, labeled by outcome.",
	}, []string{"outcome"}), "metakernel_scans_total")
	if err != nil {
		return nil, err
	}

	exports, err := registerCounterVec(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "isd_exports_total",
		Help: "ISD exports, labeled by driver and outcome.",
	}, []string{"driver", "outcome"}), "isd_exports_total")
	if err != nil {
		return nil, err
	}

	durations, err := registerHistogramVec(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "isd_export_duration_seconds",
		Help:    "ISD export latency in seconds.",
		Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
	}, []string{"driver"}), "isd_export_duration_seconds")
	if err != nil {
		return nil, err
	}

	return &Collector{
		gatherer:        gatherer,
		PoolQueries:     queries,
		MetakernelScans: scans,
		Exports:         exports,
		ExportDurations: durations,
	}, nil
}

// RecordPoolQuery counts a kernel pool query. Missing keys are counted apart
// from other failures.
func (c *Collector) RecordPoolQuery(field string, err error) {
	if c == nil || c.PoolQueries == nil {
		return
	}
	if field == "" {
		field = "unknown"
	}
	c.PoolQueries.WithLabelValues(field, outcome(err)).Inc()
}

// RecordMetakernelScan counts a metakernel directory scan.
func (c *Collector) RecordMetakernelScan(err error) {
	if c == nil || c.MetakernelScans == nil {
		return
	}
	c.MetakernelScans.WithLabelValues(outcome(err)).Inc()
}

// RecordExport counts an export and observes its latency.
func (c *Collector) RecordExport(driver string, elapsed time.Duration, err error) {
	if c == nil {
		return
	}
	if c.Exports != nil {
		c.Exports.WithLabelValues(driver, outcome(err)).Inc()
	}
	if c.ExportDurations != nil {
		c.ExportDurations.WithLabelValues(driver).Observe(elapsed.Seconds())
	}
}

// Handler exposes a ready-to-use /metrics handler.
func (c *Collector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case errors.Is(err, kernel.ErrMissingKey):
		return OutcomeMissing
	default:
		return OutcomeError
	}
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogramVec(reg prometheus.Registerer, vec *prometheus.HistogramVec, name string) (*prometheus.HistogramVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.HistogramVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}
