// Package gate models the split-polymerase AND gate: two environmental
// Hill responses (oxygen, temperature) combined into one regulatory
// activity. Low oxygen plus high temperature switches the gate on; either
// input alone leaves it near the leak level.
package gate

import (
	"math"

	"github.com/XY3070/glufire/internal/hill"
	"github.com/XY3070/glufire/internal/ode"
	"github.com/XY3070/glufire/internal/sim"
)

// Mode selects between the instantaneous algebraic gate and the
// assembly/disassembly kinetics ODE.
type Mode string

const (
	Algebraic Mode = "algebraic"
	Kinetic   Mode = "kinetic"
)

// Combiner selects how the two channel outputs approximate AND logic in
// algebraic mode.
type Combiner string

const (
	// ProductSaturation: leak + alpha*A*B/(Kd+A*B), the two-fragment
	// assembly saturation form.
	ProductSaturation Combiner = "product"
	// AdditiveFloor: S = max(0, A+B-floor); leak + alpha*S/(Kd+S).
	AdditiveFloor Combiner = "additive"
)

// Environment is the per-run environmental input.
type Environment struct {
	OxygenFraction float64 `mapstructure:"oxygen_fraction"` // 0..1
	TemperatureC   float64 `mapstructure:"temperature_celsius"`
}

// Params configures the gate stage. Oxygen is sensed by a repressing
// promoter with its half-point in percent O2; temperature by an
// activating promoter with its half-point in degrees C.
type Params struct {
	Mode     Mode     `mapstructure:"mode"`
	Combiner Combiner `mapstructure:"combiner"`

	Oxygen      hill.Params `mapstructure:"oxygen"`
	Temperature hill.Params `mapstructure:"temperature"`

	Alpha float64 `mapstructure:"alpha"` // max assembled activity (AU)
	Kd    float64 `mapstructure:"kd"`    // half-saturation of the combiner
	Leak  float64 `mapstructure:"leak"`  // basal activity (AU)
	Floor float64 `mapstructure:"floor"` // additive combiner threshold

	// Kinetic mode only.
	KAssembly    float64 `mapstructure:"k_assembly"`
	KDisassembly float64 `mapstructure:"k_disassembly"`
	KDeg         float64 `mapstructure:"k_deg"`
	AlphaKinetic float64 `mapstructure:"alpha_kinetic"` // activity per unit complex
}

// Defaults returns the reference parameterization: a low-oxygen-induced
// repressing promoter (half-point 5% O2) and a sharply heat-activated
// promoter (half-point 41 C, thermoswitch-grade cooperativity), combined
// by product saturation. All rate constants are configurable; these
// values only pin the qualitative therapy/control separation.
func Defaults() Params {
	return Params{
		Mode:     Algebraic,
		Combiner: ProductSaturation,
		Oxygen: hill.Params{
			Mode: hill.Repressing, MaxOutput: 1200, HalfPoint: 5, HillCoeff: 2, Leak: 50,
		},
		Temperature: hill.Params{
			Mode: hill.Activating, MaxOutput: 1500, HalfPoint: 41, HillCoeff: 20, Leak: 80,
		},
		Alpha: 3000,
		Kd:    4e5,
		Leak:  50,
		Floor: 1500,

		KAssembly:    1e-6,
		KDisassembly: 1e-3,
		KDeg:         0.05,
		AlphaKinetic: 100,
	}
}

// Validate rejects bad selections and parameters before any work is done.
func (p Params) Validate() error {
	switch p.Mode {
	case Algebraic, Kinetic:
	default:
		return &sim.ConfigurationError{Field: "gate.mode", Reason: "unknown mode " + string(p.Mode)}
	}
	switch p.Combiner {
	case ProductSaturation, AdditiveFloor:
	default:
		return &sim.ConfigurationError{Field: "gate.combiner", Reason: "unknown combiner " + string(p.Combiner)}
	}
	if err := p.Oxygen.Validate(); err != nil {
		return err
	}
	if err := p.Temperature.Validate(); err != nil {
		return err
	}
	if p.Alpha < 0 {
		return &sim.DomainError{Field: "gate.alpha", Value: p.Alpha, Reason: "must be >= 0"}
	}
	if p.Kd <= 0 {
		return &sim.DomainError{Field: "gate.kd", Value: p.Kd, Reason: "must be > 0"}
	}
	if p.Leak < 0 {
		return &sim.DomainError{Field: "gate.leak", Value: p.Leak, Reason: "must be >= 0"}
	}
	if p.Mode == Kinetic {
		for _, f := range []struct {
			name  string
			value float64
		}{
			{"gate.k_assembly", p.KAssembly},
			{"gate.k_disassembly", p.KDisassembly},
			{"gate.k_deg", p.KDeg},
			{"gate.alpha_kinetic", p.AlphaKinetic},
		} {
			if f.value < 0 {
				return &sim.DomainError{Field: f.name, Value: f.value, Reason: "must be >= 0"}
			}
		}
	}
	return nil
}

func validateEnv(env Environment) error {
	if env.OxygenFraction < 0 || env.OxygenFraction > 1 {
		return &sim.DomainError{Field: "oxygen_fraction", Value: env.OxygenFraction, Reason: "must be in [0,1]"}
	}
	if math.IsNaN(env.TemperatureC) {
		return &sim.DomainError{Field: "temperature_celsius", Value: env.TemperatureC, Reason: "must be finite"}
	}
	return nil
}

// ChannelOutputs evaluates the two promoter responses for env.
func ChannelOutputs(env Environment, p Params) (a, b float64, err error) {
	if err := validateEnv(env); err != nil {
		return 0, 0, err
	}
	a, err = hill.Evaluate(env.OxygenFraction*100, p.Oxygen)
	if err != nil {
		return 0, 0, err
	}
	// Promoter curves are fitted over the physiological range; below 0 C
	// is outside the model's domain.
	tempInput := env.TemperatureC
	if tempInput < 0 {
		return 0, 0, &sim.DomainError{Field: "temperature_celsius", Value: tempInput, Reason: "must be >= 0"}
	}
	b, err = hill.Evaluate(tempInput, p.Temperature)
	if err != nil {
		return 0, 0, err
	}
	return a, b, nil
}

func combine(a, b float64, p Params) float64 {
	switch p.Combiner {
	case AdditiveFloor:
		s := a + b - p.Floor
		if s < 0 {
			s = 0
		}
		return p.Leak + p.Alpha*s/(p.Kd+s)
	default: // ProductSaturation
		prod := a * b
		return p.Leak + p.Alpha*prod/(p.Kd+prod)
	}
}

// Activity returns the instantaneous regulatory activity for env in
// algebraic mode. In kinetic mode it reports the steady-state activity of
// the assembly ODE, which is what the complex concentration relaxes to
// under constant inputs.
func Activity(env Environment, p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	a, b, err := ChannelOutputs(env, p)
	if err != nil {
		return 0, err
	}
	if p.Mode == Kinetic {
		loss := p.KDisassembly + p.KDeg
		if loss <= 0 {
			return p.Leak, nil
		}
		cSS := p.KAssembly * a * b / loss
		act := p.Leak + p.AlphaKinetic*cSS
		if act < 0 {
			act = 0
		}
		return act, nil
	}
	return combine(a, b, p), nil
}

// Result is the gate trajectory handed to downstream stages.
type Result struct {
	Table         *sim.Table
	Activity      []float64 // AU, aligned with Table.Time
	FinalActivity float64
	ClampEvents   []sim.ClampEvent
}

// Simulate produces the regulatory-activity trajectory over the horizon.
// Algebraic mode is constant in time for a constant environment; kinetic
// mode integrates complex assembly from zero.
func Simulate(env Environment, p Params, horizonH, dtH float64) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if horizonH <= 0 || dtH <= 0 {
		return nil, &sim.DomainError{Field: "horizon/dt", Value: horizonH, Reason: "horizon and dt must be > 0"}
	}
	a, b, err := ChannelOutputs(env, p)
	if err != nil {
		return nil, err
	}

	grid := sim.TimeGrid(horizonH, dtH)
	res := &Result{
		Table: sim.NewTable("gate",
			[]string{"regulatory_activity", "complex"},
			[]string{"AU", "AU"}),
	}

	if p.Mode == Algebraic {
		act := combine(a, b, p)
		for _, t := range grid {
			res.Table.AddRow(t, act, 0)
			res.Activity = append(res.Activity, act)
		}
		res.FinalActivity = act
		return res, nil
	}

	rhs := func(t float64, y, dydt []float64) {
		dydt[0] = p.KAssembly*a*b - p.KDisassembly*y[0] - p.KDeg*y[0]
	}
	opt := ode.Options{Stage: "gate", NonNegative: true,
		OnClamp: func(i, step int, t, v float64) {
			res.ClampEvents = append(res.ClampEvents, sim.ClampEvent{
				Stage: "gate", Variable: "complex", Step: step, Time: t, Value: v,
			})
		}}
	states, err := ode.Solve(rhs, []float64{0}, grid, opt)
	if err != nil {
		return nil, err
	}
	for i, t := range grid {
		c := states[i][0]
		act := p.Leak + p.AlphaKinetic*c
		if act < 0 {
			act = 0
		}
		res.Table.AddRow(t, act, c)
		res.Activity = append(res.Activity, act)
	}
	res.FinalActivity = res.Activity[len(res.Activity)-1]
	return res, nil
}
