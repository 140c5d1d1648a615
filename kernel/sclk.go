package kernel

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// maxValues bounds whole-variable reads.
const maxValues = 1 << 20

// Parallel time systems of a type 1 clock.
const (
	timeSystemTDB = 1
	timeSystemTDT = 2
)

type getter func(name string, start, count int) ([]float64, error)

func getAll(get getter, name string) ([]float64, error) {
	return get(name, 0, maxValues)
}

// sclkKey builds a clock variable name; clock kernels index by the negated
// spacecraft id.
func sclkKey(base string, spacecraftID int) string {
	return base + "_" + strconv.Itoa(-spacecraftID)
}

// ClockToEphemeris converts a type 1 spacecraft clock string such as
// "1/0024934993:798000" to ephemeris seconds past J2000 using the
// SCLK01_* and SCLK_PARTITION_* variables in the pool.
func (p *MemoryPool) ClockToEphemeris(spacecraftID int, clock string) (float64, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	et, err := clockToEphemeris(p.getLocked, spacecraftID, clock)
	if err != nil {
		return 0, fmt.Errorf("%w: spacecraft %d clock %q: %w", ErrClockConversion, spacecraftID, clock, err)
	}
	return et, nil
}

func clockToEphemeris(get getter, spacecraftID int, clock string) (float64, error) {
	ticks, ticksPerCount, err := encodeClock(get, spacecraftID, clock)
	if err != nil {
		return 0, err
	}

	coeffs, err := getAll(get, sclkKey("SCLK01_COEFFICIENTS", spacecraftID))
	if err != nil {
		return 0, err
	}
	if len(coeffs) < 3 || len(coeffs)%3 != 0 {
		return 0, fmt.Errorf("coefficient table has %d values, want a positive multiple of 3", len(coeffs))
	}

	rec := 0
	for i := 0; i < len(coeffs); i += 3 {
		if coeffs[i] > ticks {
			break
		}
		rec = i
	}
	enc, par, rate := coeffs[rec], coeffs[rec+1], coeffs[rec+2]
	parallel := par + (ticks-enc)*rate/ticksPerCount

	system := timeSystemTDB
	if vals, err := get(sclkKey("SCLK01_TIME_SYSTEM", spacecraftID), 0, 1); err == nil {
		system = int(vals[0])
	} else if !errors.Is(err, ErrMissingKey) {
		return 0, err
	}

	switch system {
	case timeSystemTDB:
		return parallel, nil
	case timeSystemTDT:
		return tdtToTDB(get, parallel)
	default:
		return 0, fmt.Errorf("unsupported parallel time system %d", system)
	}
}

// encodeClock turns a clock string into continuous ticks since the start of
// the first partition. It also returns the number of ticks per count of the
// most significant field.
func encodeClock(get getter, spacecraftID int, clock string) (float64, float64, error) {
	moduli, err := getAll(get, sclkKey("SCLK01_MODULI", spacecraftID))
	if err != nil {
		return 0, 0, err
	}
	offsets, err := getAll(get, sclkKey("SCLK01_OFFSETS", spacecraftID))
	if err != nil {
		return 0, 0, err
	}
	if len(offsets) != len(moduli) {
		return 0, 0, fmt.Errorf("clock has %d moduli but %d offsets", len(moduli), len(offsets))
	}

	partition, fields, err := parseClock(clock, len(moduli))
	if err != nil {
		return 0, 0, err
	}

	weights := make([]float64, len(moduli))
	weights[len(weights)-1] = 1
	for i := len(weights) - 2; i >= 0; i-- {
		weights[i] = weights[i+1] * moduli[i+1]
	}

	var raw float64
	for i, f := range fields {
		v := f - offsets[i]
		if v < 0 || v >= moduli[i] {
			return 0, 0, fmt.Errorf("field %d value %.0f outside [%.0f, %.0f)", i+1, f, offsets[i], offsets[i]+moduli[i])
		}
		raw += v * weights[i]
	}

	starts, err := getAll(get, "SCLK_PARTITION_START_"+strconv.Itoa(-spacecraftID))
	if err != nil {
		return 0, 0, err
	}
	ends, err := getAll(get, "SCLK_PARTITION_END_"+strconv.Itoa(-spacecraftID))
	if err != nil {
		return 0, 0, err
	}
	if len(starts) != len(ends) {
		return 0, 0, fmt.Errorf("clock has %d partition starts but %d ends", len(starts), len(ends))
	}

	if partition == 0 {
		for i := range starts {
			if raw >= starts[i] && raw <= ends[i] {
				partition = i + 1
				break
			}
		}
		if partition == 0 {
			return 0, 0, fmt.Errorf("count %.0f is not in any partition", raw)
		}
	}
	if partition > len(starts) {
		return 0, 0, fmt.Errorf("partition %d out of range, clock has %d", partition, len(starts))
	}
	idx := partition - 1
	if raw < starts[idx] || raw > ends[idx] {
		return 0, 0, fmt.Errorf("count %.0f is outside partition %d", raw, partition)
	}

	var ticks float64
	for i := 0; i < idx; i++ {
		ticks += ends[i] - starts[i]
	}
	ticks += raw - starts[idx]
	return ticks, weights[0], nil
}

// parseClock splits "[p/]f1:f2..." into a partition number (0 when absent)
// and field values. Fields may be separated by any of ": . , -" or spaces;
// omitted trailing fields are zero.
func parseClock(clock string, nFields int) (int, []float64, error) {
	s := strings.TrimSpace(clock)
	partition := 0
	if i := strings.Index(s, "/"); i >= 0 {
		p, err := strconv.Atoi(strings.TrimSpace(s[:i]))
		if err != nil || p < 1 {
			return 0, nil, fmt.Errorf("invalid partition %q", s[:i])
		}
		partition = p
		s = s[i+1:]
	}

	tokens := strings.FieldsFunc(s, func(r rune) bool {
		return strings.ContainsRune(":.,- \t", r)
	})
	if len(tokens) == 0 {
		return 0, nil, errors.New("no clock fields")
	}
	if len(tokens) > nFields {
		return 0, nil, fmt.Errorf("%d fields given, clock has %d", len(tokens), nFields)
	}

	fields := make([]float64, nFields)
	for i, tok := range tokens {
		v, err := strconv.ParseInt(tok, 10, 64)
		if err != nil {
			return 0, nil, fmt.Errorf("invalid field %q", tok)
		}
		fields[i] = float64(v)
	}
	return partition, fields, nil
}
