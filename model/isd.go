package model

import (
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"
)

// TransverseDistortion holds the x/y polynomial coefficients of a transverse
// optical distortion model.
type TransverseDistortion struct {
	X []float64 `json:"x"`
	Y []float64 `json:"y"`
}

// RadialDistortion holds radial distortion coefficients.
type RadialDistortion struct {
	Coefficients []float64 `json:"coefficients"`
}

// OpticalDistortion is a tagged union: exactly one member is set, and its JSON
// key names the distortion model.
type OpticalDistortion struct {
	Transverse *TransverseDistortion `json:"transverse,omitempty"`
	Radial     *RadialDistortion     `json:"radial,omitempty"`
	DawnFC     *RadialDistortion     `json:"dawnfc,omitempty"`
}

// ModelName returns the key of the populated distortion model.
func (d OpticalDistortion) ModelName() string {
	switch {
	case d.Transverse != nil:
		return "transverse"
	case d.Radial != nil:
		return "radial"
	case d.DawnFC != nil:
		return "dawnfc"
	default:
		return ""
	}
}

// DetectorCenter is the boresight location on the detector in pixels.
type DetectorCenter struct {
	Line   float64 `json:"line"`
	Sample float64 `json:"sample"`
}

// FocalLengthModel carries the focal length evaluated from instrument kernel
// constants.
type FocalLengthModel struct {
	FocalLength float64 `json:"focal_length"`
}

// ISD is the image support data record consumed by downstream camera models.
type ISD struct {
	Name                   string             `json:"name_model"`
	Driver                 string             `json:"driver"`
	InstrumentID           string             `json:"instrument_id"`
	IKID                   int                `json:"ikid"`
	FIKID                  int                `json:"fikid"`
	SpacecraftName         string             `json:"spacecraft_name"`
	TargetName             string             `json:"target_name"`
	StartTime              string             `json:"utc_start_time"`
	Metakernel             string             `json:"metakernel"`
	FocalLengthModel       FocalLengthModel   `json:"focal_length_model"`
	DetectorCenter         DetectorCenter     `json:"detector_center"`
	StartingDetectorLine   int                `json:"starting_detector_line"`
	StartingDetectorSample int                `json:"starting_detector_sample"`
	Focal2PixelLines       []float64          `json:"focal2pixel_lines"`
	Focal2PixelSamples     []float64          `json:"focal2pixel_samples"`
	OpticalDistortion      *OpticalDistortion `json:"optical_distortion,omitempty"`
	StartingEphemerisTime  float64            `json:"starting_ephemeris_time"`
	CenterEphemerisTime    float64            `json:"center_ephemeris_time"`
	StopEphemerisTime      float64            `json:"stop_ephemeris_time"`
	UTCEphemerisTime       *float64           `json:"utc_starting_ephemeris_time,omitempty"`
}

// ToMap renders the record as nested maps keyed the same way as its JSON form.
func (isd *ISD) ToMap() map[string]any {
	m := map[string]any{
		"name_model":      isd.Name,
		"driver":          isd.Driver,
		"instrument_id":   isd.InstrumentID,
		"ikid":            isd.IKID,
		"fikid":           isd.FIKID,
		"spacecraft_name": isd.SpacecraftName,
		"target_name":     isd.TargetName,
		"utc_start_time":  isd.StartTime,
		"metakernel":      isd.Metakernel,
		"focal_length_model": map[string]any{
			"focal_length": isd.FocalLengthModel.FocalLength,
		},
		"detector_center": map[string]any{
			"line":   isd.DetectorCenter.Line,
			"sample": isd.DetectorCenter.Sample,
		},
		"starting_detector_line":   isd.StartingDetectorLine,
		"starting_detector_sample": isd.StartingDetectorSample,
		"focal2pixel_lines":        floatsToAny(isd.Focal2PixelLines),
		"focal2pixel_samples":      floatsToAny(isd.Focal2PixelSamples),
		"starting_ephemeris_time":  isd.StartingEphemerisTime,
		"center_ephemeris_time":    isd.CenterEphemerisTime,
		"stop_ephemeris_time":      isd.StopEphemerisTime,
	}
	if isd.UTCEphemerisTime != nil {
		m["utc_starting_ephemeris_time"] = *isd.UTCEphemerisTime
	}

	if d := isd.OpticalDistortion; d != nil {
		dist := map[string]any{}
		switch {
		case d.Transverse != nil:
			dist["transverse"] = map[string]any{
				"x": floatsToAny(d.Transverse.X),
				"y": floatsToAny(d.Transverse.Y),
			}
		case d.Radial != nil:
			dist["radial"] = map[string]any{"coefficients": floatsToAny(d.Radial.Coefficients)}
		case d.DawnFC != nil:
			dist["dawnfc"] = map[string]any{"coefficients": floatsToAny(d.DawnFC.Coefficients)}
		}
		m["optical_distortion"] = dist
	}
	return m
}

// ToStruct converts the record into a protobuf Struct so it can travel inside
// any proto message that carries free-form ISD payloads.
func (isd *ISD) ToStruct() (*structpb.Struct, error) {
	s, err := structpb.NewStruct(isd.ToMap())
	if err != nil {
		return nil, fmt.Errorf("isd to struct: %w", err)
	}
	return s, nil
}

func floatsToAny(vals []float64) []any {
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v
	}
	return out
}
