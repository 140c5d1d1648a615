package kernel

import (
	"fmt"
	"math"
	"time"

	satellite "github.com/joshuaferrara/go-satellite"
)

const (
	j2000JD       = 2451545.0
	secondsPerDay = 86400.0
)

// UTCToEphemeris converts a UTC instant to ephemeris seconds past J2000 using
// the leapseconds variables (DELTET/*) in the pool.
func UTCToEphemeris(p Pool, t time.Time) (float64, error) {
	t = t.UTC()
	year, month, day := t.Date()
	hour, minute, sec := t.Clock()

	// Midnight Julian dates are exact halves, so the day count carries no
	// rounding error.
	jd := satellite.JDay(year, int(month), day, 0, 0, 0)
	utc := (jd-j2000JD)*secondsPerDay +
		float64(hour*3600+minute*60+sec) +
		float64(t.Nanosecond())/1e9

	leaps, err := getAll(p.Get, "DELTET/DELTA_AT")
	if err != nil {
		return 0, fmt.Errorf("utc to ephemeris: %w", err)
	}
	if len(leaps) < 2 || len(leaps)%2 != 0 {
		return 0, fmt.Errorf("utc to ephemeris: DELTET/DELTA_AT has %d values, want pairs", len(leaps))
	}
	deltaAT := leaps[0]
	for i := 0; i+1 < len(leaps); i += 2 {
		if utc >= leaps[i+1] {
			deltaAT = leaps[i]
		}
	}

	deltaTA, err := GetOne(p, "DELTET/DELTA_T_A")
	if err != nil {
		return 0, fmt.Errorf("utc to ephemeris: %w", err)
	}

	et, err := tdtToTDB(p.Get, utc+deltaAT+deltaTA)
	if err != nil {
		return 0, fmt.Errorf("utc to ephemeris: %w", err)
	}
	return et, nil
}

// tdtToTDB applies the periodic TDB-TDT term K*sin(E) where
// E = M + EB*sin(M) and M = M0 + M1*tdt.
func tdtToTDB(get getter, tdt float64) (float64, error) {
	k, err := get("DELTET/K", 0, 1)
	if err != nil {
		return 0, err
	}
	eb, err := get("DELTET/EB", 0, 1)
	if err != nil {
		return 0, err
	}
	m, err := get("DELTET/M", 0, 2)
	if err != nil {
		return 0, err
	}
	if len(m) < 2 {
		return 0, fmt.Errorf("%w: DELTET/M has %d values, need 2", ErrMissingKey, len(m))
	}

	anomaly := m[0] + m[1]*tdt
	e := anomaly + eb[0]*math.Sin(anomaly)
	return tdt + k[0]*math.Sin(e), nil
}
