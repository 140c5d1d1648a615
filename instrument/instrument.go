// Package instrument maps catalog instrument names found in labels to the
// NAIF instrument codes used as kernel pool keys.
package instrument

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownInstrument is returned for catalog names missing from a table.
var ErrUnknownInstrument = errors.New("unknown instrument")

// Code is a NAIF instrument name.
type Code string

const (
	MdisWAC Code = "MSGR_MDIS_WAC"
	MdisNAC Code = "MSGR_MDIS_NAC"
)

func (c Code) String() string { return string(c) }

// Resolver is an immutable catalog name lookup table. Matching is exact.
type Resolver struct {
	name  string
	table map[string]Code
}

// NewResolver copies table into a new resolver.
func NewResolver(name string, table map[string]Code) *Resolver {
	t := make(map[string]Code, len(table))
	for k, v := range table {
		t[k] = v
	}
	return &Resolver{name: name, table: t}
}

// MDIS is the table shared by every MESSENGER MDIS driver.
var MDIS = NewResolver("mdis", map[string]Code{
	"MDIS-WAC": MdisWAC,
	"MDIS-NAC": MdisNAC,
	"MERCURY DUAL IMAGING SYSTEM NARROW ANGLE CAMERA": MdisNAC,
	"MERCURY DUAL IMAGING SYSTEM WIDE ANGLE CAMERA":   MdisWAC,
})

// Resolve maps a raw label instrument name to its code.
func (r *Resolver) Resolve(raw string) (Code, error) {
	if c, ok := r.table[raw]; ok {
		return c, nil
	}
	return "", fmt.Errorf("%w: %q is not in the %s table", ErrUnknownInstrument, raw, r.name)
}

// Known reports whether raw resolves, ignoring surrounding whitespace. The
// MDIS drivers screen labels with it before opening a kernel session;
// Resolve stays exact.
func (r *Resolver) Known(raw string) bool {
	_, ok := r.table[strings.TrimSpace(raw)]
	return ok
}
