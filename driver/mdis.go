package driver

import (
	"fmt"

	"github.com/signalsfoundry/isd-drivers/focal"
	"github.com/signalsfoundry/isd-drivers/instrument"
	"github.com/signalsfoundry/isd-drivers/internal/logging"
	"github.com/signalsfoundry/isd-drivers/kernel"
	"github.com/signalsfoundry/isd-drivers/label"
	"github.com/signalsfoundry/isd-drivers/model"
)

// mdis carries what both MESSENGER MDIS drivers share: the temperature
// dependent focal length and detector geometry from the instrument kernel.
type mdis struct {
	*Driver
}

// FocalLength evaluates INS<fikid>_FL_TEMP_COEFFS at the focal plane
// temperature.
func (m mdis) FocalLength() (float64, error) {
	fikid, err := m.FIKID()
	if err != nil {
		return 0, err
	}
	temp, err := m.fields.FocalPlaneTemperature()
	if err != nil {
		return 0, err
	}
	return focal.Length(m.pool, fikid, temp)
}

// StartingDetectorSample reads INS<ikid>_FPUBIN_START_SAMPLE.
func (m mdis) StartingDetectorSample() (int, error) { return m.fpuBinStart("FPUBIN_START_SAMPLE") }

// StartingDetectorLine reads INS<ikid>_FPUBIN_START_LINE.
func (m mdis) StartingDetectorLine() (int, error) { return m.fpuBinStart("FPUBIN_START_LINE") }

// DetectorCenterSample reads INS<ikid>_BORESIGHT[0].
func (m mdis) DetectorCenterSample() (float64, error) { return m.insIndex("BORESIGHT", 3, 0) }

// DetectorCenterLine reads INS<ikid>_BORESIGHT[1].
func (m mdis) DetectorCenterLine() (float64, error) { return m.insIndex("BORESIGHT", 3, 1) }

// Screen rejects labels whose instrument is not an MDIS camera.
func (m mdis) Screen() error {
	raw, err := m.fields.InstrumentID()
	if err != nil {
		return err
	}
	if !instrument.MDIS.Known(raw) {
		return fmt.Errorf("%w: %q is not an MDIS camera", instrument.ErrUnknownInstrument, raw)
	}
	return nil
}

func (m mdis) fpuBinStart(field string) (int, error) {
	ikid, err := m.IKID()
	if err != nil {
		return 0, err
	}
	v, err := kernel.GetOne(m.pool, kernel.InsKey(ikid, field))
	if err != nil {
		return 0, err
	}
	return int(v), nil
}

// MdisPds3 reads raw MDIS PDS3 labels. The ikid comes from the pool by
// instrument name.
type MdisPds3 struct {
	mdis
}

// NewMdisPds3 builds a driver over a PDS3 label.
func NewMdisPds3(l *label.Label, pool kernel.Pool, log logging.Logger, opts ...Option) *MdisPds3 {
	opts = append([]Option{WithIdentifier(TableIdentifier(instrument.MDIS))}, opts...)
	d := newDriver("mdis_pds3", MissionMDIS, model.Framer, label.NewPds3(l), pool, log, opts)
	return &MdisPds3{mdis{d}}
}

// MdisIsis reads MDIS labels ingested into ISIS cubes. The ikid is the
// NaifIkCode recorded at ingestion.
type MdisIsis struct {
	mdis
}

// NewMdisIsis builds a driver over an ISIS cube label.
func NewMdisIsis(l *label.Label, pool kernel.Pool, log logging.Logger, opts ...Option) *MdisIsis {
	fields := label.NewIsis(l)
	opts = append([]Option{WithIdentifier(TableIdentifier(instrument.MDIS))}, opts...)
	d := newDriver("mdis_isis", MissionMDIS, model.Framer, fields, pool, log, opts)
	d.ikidFrom = func(*Driver) (int, error) {
		code, err := fields.NaifIkCode()
		if err != nil {
			return 0, fmt.Errorf("%w: NaifIkCode: %w", kernel.ErrIDResolution, err)
		}
		return code, nil
	}
	return &MdisIsis{mdis{d}}
}

// OpticalDistortion returns the transverse model built from OD_T_X/OD_T_Y.
func (m *MdisIsis) OpticalDistortion() (*model.OpticalDistortion, error) {
	x, err := m.Odtx()
	if err != nil {
		return nil, err
	}
	y, err := m.Odty()
	if err != nil {
		return nil, err
	}
	return &model.OpticalDistortion{
		Transverse: &model.TransverseDistortion{X: x, Y: y},
	}, nil
}

var (
	_ Sensor    = (*MdisPds3)(nil)
	_ Sensor    = (*MdisIsis)(nil)
	_ Distorted = (*MdisIsis)(nil)
	_ Screener  = (*MdisPds3)(nil)
	_ Screener  = (*MdisIsis)(nil)
)
