// Package exporter assembles a ready to use ISD exporter from a configuration
// file: logger, tracing, metrics, an instrumented kernel pool and the
// registered drivers.
package exporter

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/signalsfoundry/isd-drivers/driver"
	"github.com/signalsfoundry/isd-drivers/internal/config"
	"github.com/signalsfoundry/isd-drivers/internal/logging"
	"github.com/signalsfoundry/isd-drivers/internal/observability"
	"github.com/signalsfoundry/isd-drivers/kernel"
	"github.com/signalsfoundry/isd-drivers/label"
	"github.com/signalsfoundry/isd-drivers/metakernel"
	"github.com/signalsfoundry/isd-drivers/model"
)

// Exporter turns labels into ISDs against one shared kernel pool.
type Exporter struct {
	log       logging.Logger
	pool      *kernel.MemoryPool
	query     kernel.Pool
	collector *observability.Collector
	opts      []driver.Option
	shutdown  func(context.Context) error
}

type settings struct {
	reg       prometheus.Registerer
	logOutput io.Writer
	s3        *metakernel.S3Lister
}

// Option customises New.
type Option func(*settings)

// WithRegisterer registers metrics somewhere other than the global registry.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(s *settings) { s.reg = reg }
}

// WithLogOutput redirects log output, stderr by default.
func WithLogOutput(w io.Writer) Option {
	return func(s *settings) { s.logOutput = w }
}

// WithS3Lister supplies the lister for s3:// metakernel directories instead of
// building one from the configured region.
func WithS3Lister(l *metakernel.S3Lister) Option {
	return func(s *settings) { s.s3 = l }
}

// New loads configPath (missing files fall back to defaults), applies
// environment overrides and wires the exporter.
func New(ctx context.Context, configPath string, opts ...Option) (*Exporter, error) {
	var s settings
	for _, opt := range opts {
		opt(&s)
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}

	logCfg := cfg.LoggingConfig()
	logCfg.Output = s.logOutput
	log := logging.New(logCfg)

	shutdown, err := observability.InitTracing(ctx, cfg.TracingConfig(), log)
	if err != nil {
		return nil, fmt.Errorf("init tracing: %w", err)
	}

	collector, err := observability.NewCollector(s.reg)
	if err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}

	s3l := s.s3
	if s3l == nil {
		if s3l, err = cfg.S3Lister(); err != nil {
			return nil, err
		}
	}

	pool := kernel.NewMemoryPool(log)
	e := &Exporter{
		log:       log,
		pool:      pool,
		query:     kernel.Instrument(pool, collector),
		collector: collector,
		shutdown:  shutdown,
	}
	e.opts = append(cfg.DriverOptions(s3l),
		driver.WithScanRecorder(collector),
		driver.WithExportRecorder(collector),
	)

	log.Info(ctx, "isd exporter ready",
		logging.String("mdis_metakernels", cfg.Kernels.MDIS),
		logging.String("dawn_metakernels", cfg.Kernels.Dawn),
	)
	return e, nil
}

// Pool is the kernel pool shared by every export. Furnish pool documents
// (leapseconds, clock and instrument kernels) before exporting.
func (e *Exporter) Pool() *kernel.MemoryPool { return e.pool }

// Export picks a driver for l and returns its ISD.
func (e *Exporter) Export(ctx context.Context, l *label.Label) (*model.ISD, error) {
	return driver.Load(ctx, l, e.query, e.log, e.opts...)
}

// ExportFile decodes the label document at path and exports it.
func (e *Exporter) ExportFile(ctx context.Context, path string) (*model.ISD, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open label: %w", err)
	}
	defer f.Close()

	l, err := label.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode label %s: %w", path, err)
	}
	return e.Export(ctx, l)
}

// MetricsHandler serves the Prometheus metrics of this exporter.
func (e *Exporter) MetricsHandler() http.Handler { return e.collector.Handler() }

// Close flushes pending spans.
func (e *Exporter) Close(ctx context.Context) {
	observability.ShutdownWithTimeout(ctx, e.shutdown, e.log)
}
