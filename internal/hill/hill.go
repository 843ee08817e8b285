// Package hill evaluates activating and repressing Hill transfer curves,
// the switch-like promoter/enzyme responses every simulation stage is
// built from.
package hill

import (
	"math"

	"github.com/XY3070/glufire/internal/sim"
)

// Mode selects the direction of the response.
type Mode string

const (
	Activating Mode = "activating"
	Repressing Mode = "repressing"
)

// Params is one fitted Hill response curve. Produced by offline
// calibration and treated as read-only input.
type Params struct {
	Mode      Mode    `mapstructure:"mode"`
	MaxOutput float64 `mapstructure:"max_output"`
	HalfPoint float64 `mapstructure:"half_point"`
	HillCoeff float64 `mapstructure:"hill_coefficient"`
	Leak      float64 `mapstructure:"baseline_leak"`
}

// Validate checks the parameter invariants shared by both modes.
func (p Params) Validate() error {
	switch p.Mode {
	case Activating, Repressing:
	default:
		return &sim.ConfigurationError{Field: "mode", Reason: "must be activating or repressing"}
	}
	if p.MaxOutput < 0 {
		return &sim.DomainError{Field: "max_output", Value: p.MaxOutput, Reason: "must be >= 0"}
	}
	if p.HalfPoint <= 0 {
		return &sim.DomainError{Field: "half_point", Value: p.HalfPoint, Reason: "must be > 0"}
	}
	if p.HillCoeff <= 0 {
		return &sim.DomainError{Field: "hill_coefficient", Value: p.HillCoeff, Reason: "must be > 0"}
	}
	if p.Leak < 0 {
		return &sim.DomainError{Field: "baseline_leak", Value: p.Leak, Reason: "must be >= 0"}
	}
	return nil
}

// Evaluate computes the response at input x.
//
// Activating: leak + max*x^n/(K^n+x^n), so x=0 gives the leak and large x
// saturates at leak+max. Repressing is the mirror image.
func Evaluate(x float64, p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	if x < 0 || math.IsNaN(x) {
		return 0, &sim.DomainError{Field: "x", Value: x, Reason: "input must be >= 0"}
	}
	xn := math.Pow(x, p.HillCoeff)
	kn := math.Pow(p.HalfPoint, p.HillCoeff)
	if p.Mode == Activating {
		if math.IsInf(xn, 1) {
			return p.Leak + p.MaxOutput, nil
		}
		return p.Leak + p.MaxOutput*xn/(kn+xn), nil
	}
	if math.IsInf(xn, 1) {
		return p.Leak, nil
	}
	return p.Leak + p.MaxOutput*kn/(kn+xn), nil
}

// Switch is the dimensionless gate x^n/(K^n+x^n) used for enzyme
// induction and kill terms. It is exactly 0 at x=0. Parameters are
// assumed validated by the owning stage.
func Switch(x, halfPoint, n float64) float64 {
	if x <= 0 {
		return 0
	}
	xn := math.Pow(x, n)
	kn := math.Pow(halfPoint, n)
	if math.IsInf(xn, 1) {
		return 1
	}
	return xn / (kn + xn)
}
