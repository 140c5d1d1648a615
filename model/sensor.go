package model

// SensorKind describes how an instrument acquires an image. It is fixed when a
// driver is constructed and decides which label fields feed the filter kernel id.
type SensorKind int

const (
	SensorUnknown SensorKind = iota
	Framer                   // full 2-D frame per exposure
	LineScanner              // push-broom, one line per exposure
	PushFrame                // framelets stitched along track
)

// String returns the sensor kind name.
func (k SensorKind) String() string {
	switch k {
	case Framer:
		return "framer"
	case LineScanner:
		return "line_scanner"
	case PushFrame:
		return "push_frame"
	default:
		return "unknown"
	}
}

// CapturesFrames reports whether a multi-filter wheel can key per-filter
// kernel ids for this sensor kind.
func (k SensorKind) CapturesFrames() bool {
	return k == Framer
}

// SensorModelName returns the downstream camera model the ISD is built for.
func (k SensorKind) SensorModelName() string {
	switch k {
	case Framer:
		return "USGS_ASTRO_FRAME_SENSOR_MODEL"
	case LineScanner:
		return "USGS_ASTRO_LINE_SCANNER_SENSOR_MODEL"
	case PushFrame:
		return "USGS_ASTRO_PUSH_FRAME_SENSOR_MODEL"
	default:
		return ""
	}
}
