package kernel

import (
	"errors"
	"math"
	"testing"
	"time"
)

const leapsecondsDoc = `
variables:
  DELTET/DELTA_T_A: 32.184
  DELTET/K: 1.657e-3
  DELTET/EB: 1.671e-2
  DELTET/M: [6.239996, 1.99096871e-7]
  DELTET/DELTA_AT: [32, -31579200, 33, 189345600, 34, 284040000, 35, 394372800, 36, 488980800, 37, 536500800]
`

const clockDoc = `
variables:
  SCLK01_MODULI_236: [4294967296, 1000000]
  SCLK01_OFFSETS_236: [0, 0]
  SCLK_PARTITION_START_236: [0]
  SCLK_PARTITION_END_236: [4.294967296e15]
  SCLK01_COEFFICIENTS_236: [0, 0, 1, 2.0e13, 2.0e7, 1]
  SCLK01_MODULI_99: [1000000000, 100]
  SCLK01_OFFSETS_99: [0, 0]
  SCLK_PARTITION_START_99: [0, 1000]
  SCLK_PARTITION_END_99: [500, 5000]
  SCLK01_COEFFICIENTS_99: [0, 100, 1]
`

func TestClockToEphemeris(t *testing.T) {
	p := loadPool(t, clockDoc)

	et, err := p.ClockToEphemeris(-236, "1/0024934993:798000")
	if err != nil {
		t.Fatalf("ClockToEphemeris error: %v", err)
	}
	if want := 24934993.798; math.Abs(et-want) > 1e-6 {
		t.Fatalf("ClockToEphemeris = %.9f, want %.9f", et, want)
	}

	// Trailing fields default to zero and alternative delimiters are accepted.
	et, err = p.ClockToEphemeris(-236, "1/24934993")
	if err != nil {
		t.Fatalf("ClockToEphemeris error: %v", err)
	}
	if want := 24934993.0; math.Abs(et-want) > 1e-6 {
		t.Fatalf("ClockToEphemeris = %.9f, want %.9f", et, want)
	}
	if et2, err := p.ClockToEphemeris(-236, "24934993.000000"); err != nil || et2 != et {
		t.Fatalf("ClockToEphemeris(dot) = %v, %v; want %v", et2, err, et)
	}
}

func TestClockPartitions(t *testing.T) {
	p := loadPool(t, clockDoc)

	cases := map[string]float64{
		"1/3:00":  103,
		"2/15:00": 110,
		"15:00":   110,
	}
	for clock, want := range cases {
		got, err := p.ClockToEphemeris(-99, clock)
		if err != nil {
			t.Fatalf("ClockToEphemeris(%q) error: %v", clock, err)
		}
		if math.Abs(got-want) > 1e-9 {
			t.Fatalf("ClockToEphemeris(%q) = %v, want %v", clock, got, want)
		}
	}
}

func TestClockErrors(t *testing.T) {
	p := loadPool(t, clockDoc)

	for _, clock := range []string{"", "1/", "x/1:00", "garbage", "1/15:00", "3/1:00", "1:200", "1:2:3", "60:00"} {
		if _, err := p.ClockToEphemeris(-99, clock); !errors.Is(err, ErrClockConversion) {
			t.Fatalf("ClockToEphemeris(%q) error = %v, want ErrClockConversion", clock, err)
		}
	}

	_, err := p.ClockToEphemeris(-1, "1/1:00")
	if !errors.Is(err, ErrClockConversion) || !errors.Is(err, ErrMissingKey) {
		t.Fatalf("unknown clock error = %v, want ErrClockConversion wrapping ErrMissingKey", err)
	}
}

func TestClockTDTParallelTime(t *testing.T) {
	p := loadPool(t, clockDoc)
	d := loadPool(t, leapsecondsDoc)
	for _, name := range []string{"DELTET/K", "DELTET/EB", "DELTET/M"} {
		vals, _ := d.Get(name, 0, 2)
		p.SetNumeric(name, vals...)
	}
	p.SetNumeric("SCLK01_TIME_SYSTEM_99", 2)

	got, err := p.ClockToEphemeris(-99, "1/3:00")
	if err != nil {
		t.Fatalf("ClockToEphemeris error: %v", err)
	}
	m := 6.239996 + 1.99096871e-7*103
	want := 103 + 1.657e-3*math.Sin(m+1.671e-2*math.Sin(m))
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("ClockToEphemeris = %.12f, want %.12f", got, want)
	}

	p.SetNumeric("SCLK01_TIME_SYSTEM_99", 7)
	if _, err := p.ClockToEphemeris(-99, "1/3:00"); !errors.Is(err, ErrClockConversion) {
		t.Fatalf("unsupported time system error = %v", err)
	}
}

func TestUTCToEphemeris(t *testing.T) {
	p := loadPool(t, leapsecondsDoc)

	cases := []struct {
		utc  time.Time
		want float64
	}{
		{time.Date(2000, 1, 1, 12, 0, 0, 0, time.UTC), 64.18392728473108},
		{time.Date(2005, 5, 18, 20, 24, 10, 515023000, time.UTC), 169719914.7002092},
		{time.Date(2011, 4, 3, 14, 27, 56, 179000000, time.UTC), 355112942.3646569},
	}
	for _, tc := range cases {
		got, err := UTCToEphemeris(p, tc.utc)
		if err != nil {
			t.Fatalf("UTCToEphemeris(%v) error: %v", tc.utc, err)
		}
		if math.Abs(got-tc.want) > 1e-5 {
			t.Fatalf("UTCToEphemeris(%v) = %.7f, want %.7f", tc.utc, got, tc.want)
		}
	}

	if _, err := UTCToEphemeris(NewMemoryPool(nil), time.Now()); !errors.Is(err, ErrMissingKey) {
		t.Fatalf("UTCToEphemeris without leapseconds error = %v, want ErrMissingKey", err)
	}
}
