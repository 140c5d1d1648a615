// Package focal evaluates temperature-dependent focal length models stored as
// polynomial coefficients in the kernel pool.
package focal

import (
	"fmt"

	"github.com/signalsfoundry/isd-drivers/kernel"
)

// CoefficientCount is the number of INS<fikid>_FL_TEMP_COEFFS values.
const CoefficientCount = 6

// Polynomial holds coefficients highest order first.
type Polynomial []float64

// FromLowOrder builds a Polynomial from coefficients stored lowest order
// first, as instrument kernels keep them.
func FromLowOrder(coeffs []float64) Polynomial {
	p := make(Polynomial, len(coeffs))
	for i, c := range coeffs {
		p[len(coeffs)-1-i] = c
	}
	return p
}

// Eval evaluates the polynomial at x with Horner's scheme. The empty
// polynomial is zero.
func (p Polynomial) Eval(x float64) float64 {
	var acc float64
	for _, c := range p {
		acc = acc*x + c
	}
	return acc
}

// TemperatureModel fetches the focal length coefficients of a filter.
func TemperatureModel(pool kernel.Pool, fikid int) (Polynomial, error) {
	name := kernel.InsKey(fikid, "FL_TEMP_COEFFS")
	coeffs, err := kernel.GetExactly(pool, name, CoefficientCount)
	if err != nil {
		return nil, fmt.Errorf("focal length model: %w", err)
	}
	return FromLowOrder(coeffs), nil
}

// Length evaluates the filter's focal length at the focal plane temperature,
// using the temperature as stored in the label.
func Length(pool kernel.Pool, fikid int, temperature float64) (float64, error) {
	poly, err := TemperatureModel(pool, fikid)
	if err != nil {
		return 0, err
	}
	return poly.Eval(temperature), nil
}
