package driver

import (
	"context"
	"fmt"
	"math"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/signalsfoundry/isd-drivers/internal/logging"
	"github.com/signalsfoundry/isd-drivers/kernel"
	"github.com/signalsfoundry/isd-drivers/model"
)

const tracerName = "github.com/signalsfoundry/isd-drivers/driver"

// maxClockDrift bounds the disagreement, in seconds, between clock-derived
// and UTC-derived start times before a warning is logged.
const maxClockDrift = 1.0

// ExportRecorder observes export outcomes and latency.
type ExportRecorder interface {
	RecordExport(driver string, elapsed time.Duration, err error)
}

// instrumented is satisfied by every type embedding *Driver.
type instrumented interface {
	logger() logging.Logger
	exportRecorder() ExportRecorder
	Pool() kernel.Pool
}

// Export evaluates every accessor of s and assembles the ISD. The first
// failing accessor aborts the export; no partial record is returned.
func Export(ctx context.Context, s Sensor) (*model.ISD, error) {
	ctx, span := startSpan(ctx, "driver.Export", attribute.String("driver", s.Name()))
	defer span.End()

	var (
		log  = logging.Noop()
		rec  ExportRecorder
		pool kernel.Pool
	)
	if in, ok := s.(instrumented); ok {
		log = logging.LoggerFromContext(ctx, in.logger())
		rec = in.exportRecorder()
		pool = in.Pool()
	}

	began := time.Now()
	isd, err := buildISD(s)
	if err == nil && pool != nil {
		utcStart(ctx, log, pool, s, isd)
	}
	if rec != nil {
		rec.RecordExport(s.Name(), time.Since(began), err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "export failed")
		log.Warn(ctx, "isd export failed", logging.Err(err))
		return nil, fmt.Errorf("export %s: %w", s.Name(), err)
	}
	span.SetAttributes(
		attribute.String("instrument_id", isd.InstrumentID),
		attribute.Int("ikid", isd.IKID),
	)
	log.Info(ctx, "isd exported",
		logging.String("instrument_id", isd.InstrumentID),
		logging.Float("starting_ephemeris_time", isd.StartingEphemerisTime),
	)
	return isd, nil
}

func buildISD(s Sensor) (*model.ISD, error) {
	isd := &model.ISD{
		Name:   s.Kind().SensorModelName(),
		Driver: s.Name(),
	}

	var firstErr error
	step := func(field string, fn func() error) {
		if firstErr != nil {
			return
		}
		if err := fn(); err != nil {
			firstErr = fmt.Errorf("%s: %w", field, err)
		}
	}

	var (
		start    time.Time
		exposure float64
	)
	step("instrument_id", func() (err error) { isd.InstrumentID, err = s.InstrumentID(); return })
	step("ikid", func() (err error) { isd.IKID, err = s.IKID(); return })
	step("fikid", func() (err error) { isd.FIKID, err = s.FIKID(); return })
	step("spacecraft_name", func() (err error) { isd.SpacecraftName, err = s.SpacecraftName(); return })
	step("target_name", func() (err error) { isd.TargetName, err = s.TargetName(); return })
	step("start_time", func() (err error) { start, err = s.StartTime(); return })
	step("metakernel", func() (err error) { isd.Metakernel, err = s.Metakernel(); return })
	step("focal_length", func() (err error) { isd.FocalLengthModel.FocalLength, err = s.FocalLength(); return })
	step("detector_center_sample", func() (err error) { isd.DetectorCenter.Sample, err = s.DetectorCenterSample(); return })
	step("detector_center_line", func() (err error) { isd.DetectorCenter.Line, err = s.DetectorCenterLine(); return })
	step("starting_detector_sample", func() (err error) { isd.StartingDetectorSample, err = s.StartingDetectorSample(); return })
	step("starting_detector_line", func() (err error) { isd.StartingDetectorLine, err = s.StartingDetectorLine(); return })
	step("focal2pixel_samples", func() (err error) { isd.Focal2PixelSamples, err = s.Focal2PixelSamples(); return })
	step("focal2pixel_lines", func() (err error) { isd.Focal2PixelLines, err = s.Focal2PixelLines(); return })
	if dist, ok := s.(Distorted); ok {
		step("optical_distortion", func() (err error) { isd.OpticalDistortion, err = dist.OpticalDistortion(); return })
	}
	step("starting_ephemeris_time", func() (err error) { isd.StartingEphemerisTime, err = s.EphemerisStartTime(); return })
	step("exposure_duration", func() (err error) { exposure, err = s.ExposureDuration(); return })
	if firstErr != nil {
		return nil, firstErr
	}

	isd.StartTime = start.UTC().Format(time.RFC3339Nano)
	isd.StopEphemerisTime = isd.StartingEphemerisTime + exposure
	isd.CenterEphemerisTime = isd.StartingEphemerisTime + exposure/2
	return isd, nil
}

// utcStart records the UTC-derived start time when the pool holds
// leapseconds and warns when it disagrees with the clock-derived one.
func utcStart(ctx context.Context, log logging.Logger, pool kernel.Pool, s Sensor, isd *model.ISD) {
	start, err := s.StartTime()
	if err != nil {
		return
	}
	et, err := kernel.UTCToEphemeris(pool, start)
	if err != nil {
		log.Debug(ctx, "utc start time unavailable", logging.Err(err))
		return
	}
	isd.UTCEphemerisTime = &et
	if drift := et - isd.StartingEphemerisTime; math.Abs(drift) > maxClockDrift {
		log.Warn(ctx, "clock and utc start times disagree",
			logging.Float("clock_ephemeris_time", isd.StartingEphemerisTime),
			logging.Float("utc_ephemeris_time", et),
			logging.Float("drift_seconds", drift),
		)
	}
}

// startSpan starts a child span tagged with the session id when present.
func startSpan(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	if id := logging.SessionIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("session_id", id))
	}
	return otel.Tracer(tracerName).Start(ctx, name, trace.WithAttributes(attrs...))
}
