// Package driver derives image support data from planetary camera labels and
// kernel pool constants. Each instrument driver embeds Driver, which supplies
// the generic defaults, and overrides only what its instrument does
// differently.
package driver

import (
	"time"

	"github.com/signalsfoundry/isd-drivers/instrument"
	"github.com/signalsfoundry/isd-drivers/label"
	"github.com/signalsfoundry/isd-drivers/model"
)

// Sensor is the accessor set an ISD export reads. Accessors that hit the
// kernel pool re-query it on every call unless documented as memoized.
type Sensor interface {
	Name() string
	Kind() model.SensorKind

	InstrumentID() (string, error)
	IKID() (int, error)
	FIKID() (int, error)
	SpacecraftName() (string, error)
	TargetName() (string, error)
	StartTime() (time.Time, error)
	ExposureDuration() (float64, error)
	Metakernel() (string, error)

	FocalLength() (float64, error)
	DetectorCenterSample() (float64, error)
	DetectorCenterLine() (float64, error)
	StartingDetectorSample() (int, error)
	StartingDetectorLine() (int, error)
	Focal2PixelSamples() ([]float64, error)
	Focal2PixelLines() ([]float64, error)

	EphemerisStartTime() (float64, error)
}

// Distorted is implemented by sensors that export an optical distortion model.
type Distorted interface {
	OpticalDistortion() (*model.OpticalDistortion, error)
}

// Identifier derives the instrument name used as the pool lookup key.
type Identifier interface {
	Identify(f label.Fields) (string, error)
}

// IdentifierFunc adapts a function to Identifier.
type IdentifierFunc func(f label.Fields) (string, error)

func (fn IdentifierFunc) Identify(f label.Fields) (string, error) { return fn(f) }

// TableIdentifier resolves the label instrument name through r.
func TableIdentifier(r *instrument.Resolver) Identifier {
	return IdentifierFunc(func(f label.Fields) (string, error) {
		raw, err := f.InstrumentID()
		if err != nil {
			return "", err
		}
		code, err := r.Resolve(raw)
		if err != nil {
			return "", err
		}
		return code.String(), nil
	})
}
