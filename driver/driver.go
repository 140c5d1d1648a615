package driver

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/signalsfoundry/isd-drivers/internal/logging"
	"github.com/signalsfoundry/isd-drivers/kernel"
	"github.com/signalsfoundry/isd-drivers/label"
	"github.com/signalsfoundry/isd-drivers/metakernel"
	"github.com/signalsfoundry/isd-drivers/model"
)

// Mission keys used to pick a metakernel directory.
const (
	MissionMDIS = "mdis"
	MissionDawn = "dawn"
)

// Distortion coefficient counts read by the generic defaults.
const (
	transverseCoefficients = 10
	radialCoefficients     = 3
)

// ikidSource yields the instrument kernel id before memoization.
type ikidSource func(d *Driver) (int, error)

// Driver holds the state shared by every instrument driver: the label view,
// the kernel pool, the sensor kind and the strategies that differ between
// instruments. It is not safe for concurrent use.
type Driver struct {
	name    string
	mission string
	kind    model.SensorKind

	fields label.Fields
	pool   kernel.Pool

	ident          Identifier
	ikidFrom       ikidSource
	spacecraftName func(label.Fields) (string, error)

	mk      *metakernel.Ref
	mkDirs  map[string]string
	lister  metakernel.Lister
	scanRec metakernel.ScanRecorder

	exportRec ExportRecorder
	log       logging.Logger

	ikid     *int
	ephStart *float64
}

// Option customises a Driver.
type Option func(*Driver)

// WithMetakernelDir sets the candidate metakernel directory for a mission.
// Local paths and s3:// URLs are accepted; see WithLister.
func WithMetakernelDir(mission, dir string) Option {
	return func(d *Driver) {
		d.mkDirs[mission] = dir
	}
}

// WithLister sets the lister used to enumerate metakernel candidates. The
// local filesystem is used by default.
func WithLister(l metakernel.Lister) Option {
	return func(d *Driver) {
		d.lister = l
	}
}

// WithMetakernelRef shares an already built reference instead of creating one
// from the configured directory.
func WithMetakernelRef(ref *metakernel.Ref) Option {
	return func(d *Driver) {
		d.mk = ref
	}
}

// WithScanRecorder reports metakernel directory scans.
func WithScanRecorder(rec metakernel.ScanRecorder) Option {
	return func(d *Driver) {
		d.scanRec = rec
	}
}

// WithExportRecorder reports export outcomes and latency.
func WithExportRecorder(rec ExportRecorder) Option {
	return func(d *Driver) {
		d.exportRec = rec
	}
}

// WithIdentifier replaces the instrument identity strategy.
func WithIdentifier(id Identifier) Option {
	return func(d *Driver) {
		if id != nil {
			d.ident = id
		}
	}
}

func newDriver(name, mission string, kind model.SensorKind, fields label.Fields, pool kernel.Pool, log logging.Logger, opts []Option) *Driver {
	if log == nil {
		log = logging.Noop()
	}
	d := &Driver{
		name:           name,
		mission:        mission,
		kind:           kind,
		fields:         fields,
		pool:           pool,
		ikidFrom:       ikidFromPool,
		spacecraftName: label.Fields.SpacecraftName,
		mkDirs:         make(map[string]string),
		log:            log.With(logging.String("driver", name), logging.String("schema", fields.Schema())),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.mk == nil {
		if dir, ok := d.mkDirs[mission]; ok && dir != "" {
			d.mk = metakernel.NewRef(dir, d.lister,
				metakernel.WithScanRecorder(d.scanRec),
				metakernel.WithLogger(d.log),
			)
		}
	}
	return d
}

// Name identifies the driver in logs, metrics and exported records.
func (d *Driver) Name() string { return d.name }

// Kind is the sensor kind fixed at construction.
func (d *Driver) Kind() model.SensorKind { return d.kind }

// Fields exposes the label view the driver reads.
func (d *Driver) Fields() label.Fields { return d.fields }

// Pool returns the kernel pool the driver queries.
func (d *Driver) Pool() kernel.Pool { return d.pool }

func (d *Driver) logger() logging.Logger         { return d.log }
func (d *Driver) exportRecorder() ExportRecorder { return d.exportRec }

// InstrumentID returns the pool instrument name.
func (d *Driver) InstrumentID() (string, error) {
	if d.ident == nil {
		return "", fmt.Errorf("%s: no instrument identifier configured", d.name)
	}
	return d.ident.Identify(d.fields)
}

// IKID returns the instrument kernel id. The first successful resolution is
// kept for the driver's lifetime.
func (d *Driver) IKID() (int, error) {
	if d.ikid != nil {
		return *d.ikid, nil
	}
	id, err := d.ikidFrom(d)
	if err != nil {
		return 0, err
	}
	d.ikid = &id
	return id, nil
}

func ikidFromPool(d *Driver) (int, error) {
	name, err := d.InstrumentID()
	if err != nil {
		return 0, err
	}
	id, err := d.pool.NameToID(name)
	if err != nil {
		if errors.Is(err, kernel.ErrIDResolution) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %q: %w", kernel.ErrIDResolution, name, err)
	}
	return id, nil
}

// FIKID is the filter-specific kernel id: the ikid minus the filter number
// for framers, the ikid itself otherwise or when the filter is "N/A".
func (d *Driver) FIKID() (int, error) {
	ikid, err := d.IKID()
	if err != nil {
		return 0, err
	}
	if !d.kind.CapturesFrames() {
		return ikid, nil
	}
	raw, err := d.fields.FilterNumber()
	if err != nil {
		return 0, err
	}
	raw = strings.TrimSpace(raw)
	if raw == label.NotApplicable {
		return ikid, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: filter number %q is not an integer", label.ErrInvalidValue, raw)
	}
	return ikid - n, nil
}

// SpacecraftName returns the spacecraft name as the pool knows it.
func (d *Driver) SpacecraftName() (string, error) { return d.spacecraftName(d.fields) }

// SpacecraftID resolves the spacecraft name to its NAIF id.
func (d *Driver) SpacecraftID() (int, error) {
	name, err := d.SpacecraftName()
	if err != nil {
		return 0, err
	}
	id, err := d.pool.NameToID(name)
	if err != nil {
		return 0, fmt.Errorf("%w: spacecraft %q: %w", kernel.ErrIDResolution, name, err)
	}
	return id, nil
}

func (d *Driver) TargetName() (string, error)        { return d.fields.TargetName() }
func (d *Driver) StartTime() (time.Time, error)      { return d.fields.StartTime() }
func (d *Driver) ExposureDuration() (float64, error) { return d.fields.ExposureDuration() }

// Metakernel returns the metakernel for the observation's start year,
// scanning the candidate directory at most until the first success.
func (d *Driver) Metakernel() (string, error) {
	if d.mk == nil {
		return "", fmt.Errorf("%w: no %s metakernel directory configured", metakernel.ErrNotFound, d.mission)
	}
	start, err := d.StartTime()
	if err != nil {
		return "", err
	}
	return d.mk.Get(start)
}

// FocalLength reads INS<ikid>_FOCAL_LENGTH.
func (d *Driver) FocalLength() (float64, error) {
	ikid, err := d.IKID()
	if err != nil {
		return 0, err
	}
	return kernel.GetOne(d.pool, kernel.InsKey(ikid, "FOCAL_LENGTH"))
}

// DetectorCenterSample reads INS<ikid>_CCD_CENTER[0].
func (d *Driver) DetectorCenterSample() (float64, error) { return d.insIndex("CCD_CENTER", 2, 0) }

// DetectorCenterLine reads INS<ikid>_CCD_CENTER[1].
func (d *Driver) DetectorCenterLine() (float64, error) { return d.insIndex("CCD_CENTER", 2, 1) }

// StartingDetectorSample is zero unless the instrument reads it from kernels.
func (d *Driver) StartingDetectorSample() (int, error) { return 0, nil }

// StartingDetectorLine is zero unless the instrument reads it from kernels.
func (d *Driver) StartingDetectorLine() (int, error) { return 0, nil }

// Focal2PixelSamples reads the INS<ikid>_ITRANSS affine coefficients.
func (d *Driver) Focal2PixelSamples() ([]float64, error) { return d.insExactly("ITRANSS", 3) }

// Focal2PixelLines reads the INS<ikid>_ITRANSL affine coefficients.
func (d *Driver) Focal2PixelLines() ([]float64, error) { return d.insExactly("ITRANSL", 3) }

// Odtx returns the transverse distortion x coefficients INS<ikid>_OD_T_X.
func (d *Driver) Odtx() ([]float64, error) { return d.insValues("OD_T_X", transverseCoefficients) }

// Odty returns the transverse distortion y coefficients INS<ikid>_OD_T_Y.
func (d *Driver) Odty() ([]float64, error) { return d.insValues("OD_T_Y", transverseCoefficients) }

// Odtk returns the radial distortion coefficients INS<ikid>_OD_K.
func (d *Driver) Odtk() ([]float64, error) { return d.insValues("OD_K", radialCoefficients) }

// EphemerisStartTime converts the label's spacecraft clock start count with
// the pool. The result is memoized.
func (d *Driver) EphemerisStartTime() (float64, error) {
	if d.ephStart != nil {
		return *d.ephStart, nil
	}
	name, err := d.SpacecraftName()
	if err != nil {
		return 0, err
	}
	scID, err := d.pool.NameToID(name)
	if err != nil {
		return 0, fmt.Errorf("%w: spacecraft %q: %w", kernel.ErrClockConversion, name, err)
	}
	clock, err := d.fields.SpacecraftClockStartCount()
	if err != nil {
		return 0, err
	}
	et, err := d.pool.ClockToEphemeris(scID, clock)
	if err != nil {
		if errors.Is(err, kernel.ErrClockConversion) {
			return 0, err
		}
		return 0, fmt.Errorf("%w: %w", kernel.ErrClockConversion, err)
	}
	d.ephStart = &et
	return et, nil
}

func (d *Driver) insValues(field string, count int) ([]float64, error) {
	ikid, err := d.IKID()
	if err != nil {
		return nil, err
	}
	return d.pool.Get(kernel.InsKey(ikid, field), 0, count)
}

func (d *Driver) insExactly(field string, count int) ([]float64, error) {
	ikid, err := d.IKID()
	if err != nil {
		return nil, err
	}
	return kernel.GetExactly(d.pool, kernel.InsKey(ikid, field), count)
}

func (d *Driver) insIndex(field string, count, idx int) (float64, error) {
	vals, err := d.insExactly(field, count)
	if err != nil {
		return 0, err
	}
	return vals[idx], nil
}
