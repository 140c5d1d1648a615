// Package label models parsed PDS3 and ISIS image labels as an immutable,
// path-addressable tree, and maps the logical fields drivers need onto each
// label schema.
package label

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

var (
	// ErrMissingKey is returned when a label path does not resolve.
	ErrMissingKey = errors.New("label key not found")
	// ErrInvalidValue is returned when a label value cannot be converted to the requested type.
	ErrInvalidValue = errors.New("invalid label value")
)

// NotApplicable is the PDS sentinel for fields that carry no value.
const NotApplicable = "N/A"

// Quantity is a numeric label value with physical units, e.g. -35.94 <DEGC>.
type Quantity struct {
	Value float64
	Units string
}

// Group holds keyed label entries. Values are Group, Quantity, string, bool,
// int, int64, float64, time.Time or []any of those.
type Group map[string]any

// Label is a parsed image label. It is read-only once constructed.
type Label struct {
	root Group
}

// New wraps root as a Label. The caller must not modify root afterwards.
func New(root Group) *Label {
	if root == nil {
		root = Group{}
	}
	return &Label{root: root}
}

// Lookup resolves path from the root. Keys match exactly first and then
// case-insensitively, as PVL keywords are not case sensitive.
func (l *Label) Lookup(path ...string) (any, error) {
	if len(path) == 0 {
		return nil, fmt.Errorf("%w: empty path", ErrMissingKey)
	}
	var cur any = l.root
	for i, key := range path {
		g, ok := cur.(Group)
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a group", ErrMissingKey, strings.Join(path[:i], "/"))
		}
		v, ok := g.get(key)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingKey, strings.Join(path[:i+1], "/"))
		}
		cur = v
	}
	return cur, nil
}

// Has reports whether path resolves.
func (l *Label) Has(path ...string) bool {
	_, err := l.Lookup(path...)
	return err == nil
}

// Text renders a scalar value as a string. Quoted strings are returned as-is
// and numbers are formatted without units.
func (l *Label) Text(path ...string) (string, error) {
	v, err := l.Lookup(path...)
	if err != nil {
		return "", err
	}
	switch x := v.(type) {
	case string:
		return x, nil
	case int:
		return strconv.Itoa(x), nil
	case int64:
		return strconv.FormatInt(x, 10), nil
	case uint64:
		return strconv.FormatUint(x, 10), nil
	case float64:
		return strconv.FormatFloat(x, 'g', -1, 64), nil
	case bool:
		return strconv.FormatBool(x), nil
	case Quantity:
		return strconv.FormatFloat(x.Value, 'g', -1, 64), nil
	case time.Time:
		return x.Format(time.RFC3339Nano), nil
	default:
		return "", invalid(path, v, "text")
	}
}

// Quantity returns a numeric value together with its units. Plain numbers
// come back with empty units.
func (l *Label) Quantity(path ...string) (Quantity, error) {
	v, err := l.Lookup(path...)
	if err != nil {
		return Quantity{}, err
	}
	if q, ok := v.(Quantity); ok {
		return q, nil
	}
	f, ok := toFloat(v)
	if !ok {
		return Quantity{}, invalid(path, v, "number")
	}
	return Quantity{Value: f}, nil
}

// Float returns a numeric value with any units dropped.
func (l *Label) Float(path ...string) (float64, error) {
	q, err := l.Quantity(path...)
	if err != nil {
		return 0, err
	}
	return q.Value, nil
}

// Int returns an integral value. Floats with a fractional part are rejected.
func (l *Label) Int(path ...string) (int, error) {
	f, err := l.Float(path...)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) {
		return 0, fmt.Errorf("%w: %s = %v is not an integer", ErrInvalidValue, strings.Join(path, "/"), f)
	}
	return int(f), nil
}

// timeLayouts lists the PDS/ISIS time formats in the order they are tried.
// Zone-less times are UTC.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-002T15:04:05.999999999",
	"2006-002T15:04:05",
	"2006-01-02",
}

// Time returns a timestamp value.
func (l *Label) Time(path ...string) (time.Time, error) {
	v, err := l.Lookup(path...)
	if err != nil {
		return time.Time{}, err
	}
	switch x := v.(type) {
	case time.Time:
		return x.UTC(), nil
	case string:
		return ParseTime(x)
	default:
		return time.Time{}, invalid(path, v, "time")
	}
}

// ParseTime parses a PDS/ISIS time string.
func ParseTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range timeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("%w: unrecognised time %q", ErrInvalidValue, s)
}

func (g Group) get(key string) (any, bool) {
	if v, ok := g[key]; ok {
		return v, true
	}
	match, found := "", false
	for k := range g {
		if strings.EqualFold(k, key) && (!found || k < match) {
			match, found = k, true
		}
	}
	if !found {
		return nil, false
	}
	return g[match], true
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint64:
		return float64(x), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func invalid(path []string, v any, want string) error {
	return fmt.Errorf("%w: %s = %v (%T) is not a %s", ErrInvalidValue, strings.Join(path, "/"), v, v, want)
}
