// Package kernel defines the kernel pool query contract drivers consume and an
// in-memory pool implementation with spacecraft clock and time conversion.
package kernel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

var (
	// ErrMissingKey is returned when a pool variable is absent or the
	// requested range lies outside it.
	ErrMissingKey = errors.New("kernel pool variable not found")
	// ErrInvalidValue is returned when a pool variable holds a value its
	// consumer cannot use, such as a zero pixel size.
	ErrInvalidValue = errors.New("invalid kernel pool value")
	// ErrIDResolution is returned when a name cannot be mapped to a NAIF id.
	ErrIDResolution = errors.New("cannot resolve NAIF id")
	// ErrClockConversion is returned for malformed spacecraft clock strings or
	// clocks that cannot be converted with the loaded kernels.
	ErrClockConversion = errors.New("spacecraft clock conversion failed")
)

// Pool is the kernel pool query service.
type Pool interface {
	// Get returns up to count values of a numeric pool variable starting at
	// index start.
	Get(name string, start, count int) ([]float64, error)
	// NameToID maps a body or instrument name to its NAIF integer id.
	NameToID(name string) (int, error)
	// ClockToEphemeris converts a spacecraft clock string to ephemeris
	// seconds past J2000 (TDB).
	ClockToEphemeris(spacecraftID int, clock string) (float64, error)
}

// Furnisher is implemented by pools that can load and unload kernel files.
type Furnisher interface {
	Furnish(path string) error
	Unload(path string) error
}

// InsKey builds the pool variable name for an instrument parameter, e.g.
// InsKey(-236820, "BORESIGHT") is "INS-236820_BORESIGHT".
func InsKey(ikid int, field string) string {
	return "INS" + strconv.Itoa(ikid) + "_" + field
}

// FieldOf returns the parameter part of an instrument variable name
// ("INS-236820_BORESIGHT" gives "BORESIGHT"). Other names are returned
// unchanged.
func FieldOf(name string) string {
	name = strings.TrimSpace(name)
	if !strings.HasPrefix(name, "INS") {
		return name
	}
	rest := strings.TrimPrefix(name, "INS")
	idx := strings.Index(rest, "_")
	if idx <= 0 {
		return name
	}
	if _, err := strconv.Atoi(rest[:idx]); err != nil {
		return name
	}
	return rest[idx+1:]
}

// GetOne fetches the first value of a pool variable.
func GetOne(p Pool, name string) (float64, error) {
	vals, err := p.Get(name, 0, 1)
	if err != nil {
		return 0, err
	}
	if len(vals) == 0 {
		return 0, fmt.Errorf("%w: %s is empty", ErrMissingKey, name)
	}
	return vals[0], nil
}

// GetExactly fetches count values and fails when fewer are available.
func GetExactly(p Pool, name string, count int) ([]float64, error) {
	vals, err := p.Get(name, 0, count)
	if err != nil {
		return nil, err
	}
	if len(vals) < count {
		return nil, fmt.Errorf("%w: %s has %d values, need %d", ErrMissingKey, name, len(vals), count)
	}
	return vals, nil
}
