package driver

import (
	"fmt"
	"strings"

	"github.com/signalsfoundry/isd-drivers/internal/logging"
	"github.com/signalsfoundry/isd-drivers/kernel"
	"github.com/signalsfoundry/isd-drivers/label"
	"github.com/signalsfoundry/isd-drivers/model"
)

// dawnClearTime is the CCD clearing interval between the clock start count
// and the actual start of exposure.
const dawnClearTime = 0.193

// DawnFc reads Dawn Framing Camera PDS3 labels.
type DawnFc struct {
	*Driver
}

// NewDawnFc builds a driver over a Dawn FC PDS3 label.
func NewDawnFc(l *label.Label, pool kernel.Pool, log logging.Logger, opts ...Option) *DawnFc {
	opts = append([]Option{WithIdentifier(IdentifierFunc(dawnInstrumentID))}, opts...)
	d := newDriver("dawn_fc_pds3", MissionDawn, model.Framer, label.NewPds3(l), pool, log, opts)
	d.spacecraftName = label.Fields.InstrumentHostName
	return &DawnFc{d}
}

// dawnInstrumentID builds DAWN_<INSTRUMENT_ID>_FILTER_<FILTER_NUMBER>, one
// NAIF instrument per filter.
func dawnInstrumentID(f label.Fields) (string, error) {
	inst, err := f.InstrumentID()
	if err != nil {
		return "", err
	}
	filter, err := f.FilterNumber()
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("DAWN_%s_FILTER_%s", inst, filter), nil
}

// TargetName drops catalog number prefixes such as "4 VESTA".
func (d *DawnFc) TargetName() (string, error) {
	raw, err := d.Driver.TargetName()
	if err != nil {
		return "", err
	}
	words := strings.Fields(raw)
	if len(words) == 0 {
		return "", fmt.Errorf("%w: empty target name", label.ErrInvalidValue)
	}
	return words[len(words)-1], nil
}

// EphemerisStartTime adds the CCD clearing interval to the clock start.
func (d *DawnFc) EphemerisStartTime() (float64, error) {
	et, err := d.Driver.EphemerisStartTime()
	if err != nil {
		return 0, err
	}
	return et + dawnClearTime, nil
}

// Odtk reads the single INS<ikid>_RAD_DIST_COEFF coefficient.
func (d *DawnFc) Odtk() ([]float64, error) { return d.insValues("RAD_DIST_COEFF", 1) }

// OpticalDistortion returns the dawnfc radial model.
func (d *DawnFc) OpticalDistortion() (*model.OpticalDistortion, error) {
	k, err := d.Odtk()
	if err != nil {
		return nil, err
	}
	return &model.OpticalDistortion{
		DawnFC: &model.RadialDistortion{Coefficients: k},
	}, nil
}

// Focal2PixelSamples is [0, 1/p, 0] for the pixel size p in millimetres.
func (d *DawnFc) Focal2PixelSamples() ([]float64, error) {
	scale, err := d.pixelsPerMillimetre()
	if err != nil {
		return nil, err
	}
	return []float64{0, scale, 0}, nil
}

// Focal2PixelLines is [0, 0, 1/p] for the pixel size p in millimetres.
func (d *DawnFc) Focal2PixelLines() ([]float64, error) {
	scale, err := d.pixelsPerMillimetre()
	if err != nil {
		return nil, err
	}
	return []float64{0, 0, scale}, nil
}

// pixelsPerMillimetre converts INS<ikid>_PIXEL_SIZE from microns.
func (d *DawnFc) pixelsPerMillimetre() (float64, error) {
	ikid, err := d.IKID()
	if err != nil {
		return 0, err
	}
	microns, err := kernel.GetOne(d.pool, kernel.InsKey(ikid, "PIXEL_SIZE"))
	if err != nil {
		return 0, err
	}
	if microns == 0 {
		return 0, fmt.Errorf("%w: %s is zero", kernel.ErrInvalidValue, kernel.InsKey(ikid, "PIXEL_SIZE"))
	}
	return 1 / (microns * 0.001), nil
}

var (
	_ Sensor    = (*DawnFc)(nil)
	_ Distorted = (*DawnFc)(nil)
)
