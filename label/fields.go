package label

import (
	"fmt"
	"strings"
	"time"
)

// Fields names the logical label fields drivers consume. Each label schema
// addresses them explicitly; there is no schema inference.
type Fields interface {
	Schema() string

	InstrumentID() (string, error)
	FilterNumber() (string, error)
	FocalPlaneTemperature() (float64, error)
	StartTime() (time.Time, error)
	SpacecraftClockStartCount() (string, error)
	SpacecraftName() (string, error)
	InstrumentHostName() (string, error)
	TargetName() (string, error)
	// ExposureDuration is in seconds.
	ExposureDuration() (float64, error)
}

// Pds3 addresses raw PDS3 labels, which keep every keyword at the top level.
type Pds3 struct {
	l *Label
}

// NewPds3 wraps a PDS3 label.
func NewPds3(l *Label) *Pds3 { return &Pds3{l: l} }

func (p *Pds3) Schema() string { return "pds3" }

func (p *Pds3) InstrumentID() (string, error) { return p.l.Text("INSTRUMENT_ID") }
func (p *Pds3) FilterNumber() (string, error) { return p.l.Text("FILTER_NUMBER") }

func (p *Pds3) FocalPlaneTemperature() (float64, error) {
	return p.l.Float("FOCAL_PLANE_TEMPERATURE")
}

func (p *Pds3) StartTime() (time.Time, error) { return p.l.Time("START_TIME") }

func (p *Pds3) SpacecraftClockStartCount() (string, error) {
	return p.l.Text("SPACECRAFT_CLOCK_START_COUNT")
}

func (p *Pds3) SpacecraftName() (string, error)     { return p.l.Text("MISSION_NAME") }
func (p *Pds3) InstrumentHostName() (string, error) { return p.l.Text("INSTRUMENT_HOST_NAME") }
func (p *Pds3) TargetName() (string, error)         { return p.l.Text("TARGET_NAME") }

func (p *Pds3) ExposureDuration() (float64, error) {
	return exposureSeconds(p.l, "EXPOSURE_DURATION")
}

// Isis addresses labels ingested into ISIS cubes, where PDS keywords have been
// renamed into the IsisCube/{Instrument,Archive,BandBin,Kernels} groups.
type Isis struct {
	l *Label
}

// NewIsis wraps an ISIS cube label.
func NewIsis(l *Label) *Isis { return &Isis{l: l} }

func (i *Isis) Schema() string { return "isis" }

func (i *Isis) InstrumentID() (string, error) {
	return i.l.Text("IsisCube", "Instrument", "InstrumentId")
}

func (i *Isis) FilterNumber() (string, error) {
	return i.l.Text("IsisCube", "BandBin", "Number")
}

func (i *Isis) FocalPlaneTemperature() (float64, error) {
	return i.l.Float("IsisCube", "Instrument", "FocalPlaneTemperature")
}

func (i *Isis) StartTime() (time.Time, error) {
	return i.l.Time("IsisCube", "Instrument", "StartTime")
}

func (i *Isis) SpacecraftClockStartCount() (string, error) {
	return i.l.Text("IsisCube", "Archive", "SpacecraftClockStartCount")
}

func (i *Isis) SpacecraftName() (string, error) {
	return i.l.Text("IsisCube", "Instrument", "SpacecraftName")
}

// InstrumentHostName falls back to the spacecraft name; ISIS does not keep a
// separate host keyword.
func (i *Isis) InstrumentHostName() (string, error) {
	if i.l.Has("IsisCube", "Instrument", "InstrumentHostName") {
		return i.l.Text("IsisCube", "Instrument", "InstrumentHostName")
	}
	return i.SpacecraftName()
}

func (i *Isis) TargetName() (string, error) {
	return i.l.Text("IsisCube", "Instrument", "TargetName")
}

func (i *Isis) ExposureDuration() (float64, error) {
	return exposureSeconds(i.l, "IsisCube", "Instrument", "ExposureDuration")
}

// NaifIkCode is the instrument kernel id resolved at ingestion time.
func (i *Isis) NaifIkCode() (int, error) {
	return i.l.Int("IsisCube", "Kernels", "NaifIkCode")
}

// exposureSeconds reads an exposure duration. Unitless values are milliseconds.
func exposureSeconds(l *Label, path ...string) (float64, error) {
	q, err := l.Quantity(path...)
	if err != nil {
		return 0, err
	}
	switch strings.ToUpper(strings.TrimSpace(q.Units)) {
	case "", "MS", "MSEC", "MILLISECONDS":
		return q.Value / 1000.0, nil
	case "S", "SEC", "SECONDS":
		return q.Value, nil
	default:
		return 0, fmt.Errorf("%w: %s has unsupported units %q", ErrInvalidValue, strings.Join(path, "/"), q.Units)
	}
}
