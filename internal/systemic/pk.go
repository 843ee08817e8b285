// Package systemic tracks the secreted metabolite after it leaves the
// tumor site: a small compartment network (tumor interstitium, plasma,
// brain) exchanging by first-order transfer, with per-compartment
// clearance and an external secretion input. The brain compartment exists
// because the metabolite is an excitotoxin; the risk report summarizes
// exposure against caution and danger thresholds.
package systemic

import (
	"fmt"

	"github.com/XY3070/glufire/internal/ode"
	"github.com/XY3070/glufire/internal/sim"
)

// Threshold concentrations for the exposure report, in uM.
const (
	CautionThresholdUM = 100
	DangerThresholdUM  = 1000
)

// Compartment is one well-mixed pool.
type Compartment struct {
	Name      string  `mapstructure:"name"`
	VolumeL   float64 `mapstructure:"volume_l"`
	ClearRate float64 `mapstructure:"clear_rate"` // 1/h first-order elimination
	InitialUM float64 `mapstructure:"initial_um"` // baseline concentration at t=0
}

// Params configures the compartment network. Exchange[i][j] is the
// transfer coefficient between compartments i and j in 1/h; it must be
// symmetric so that with all clearances zero the total amount is
// conserved.
type Params struct {
	Compartments []Compartment `mapstructure:"compartments"`
	Exchange     [][]float64   `mapstructure:"exchange"`
	InputInto    string        `mapstructure:"input_into"` // compartment receiving secretion
}

// Defaults builds the reference three-pool network: secretion enters the
// tumor interstitium, exchanges with plasma, and a slow blood-brain
// transfer leaks into the brain pool.
func Defaults() Params {
	return Params{
		Compartments: []Compartment{
			{Name: "tumor", VolumeL: 0.05, ClearRate: 0.1},
			{Name: "plasma", VolumeL: 3.0, ClearRate: 0.5, InitialUM: 50}, // physiological baseline
			{Name: "brain", VolumeL: 1.2, ClearRate: 0.05},
		},
		Exchange: [][]float64{
			{0, 2.0, 0},
			{2.0, 0, 0.02},
			{0, 0.02, 0},
		},
		InputInto: "tumor",
	}
}

// Validate checks network shape, symmetry and parameter signs.
func (p Params) Validate() error {
	n := len(p.Compartments)
	if n == 0 {
		return &sim.ConfigurationError{Field: "systemic.compartments", Reason: "at least one compartment required"}
	}
	if len(p.Exchange) != n {
		return &sim.ConfigurationError{Field: "systemic.exchange", Reason: "matrix rows must match compartment count"}
	}
	for i, c := range p.Compartments {
		if c.Name == "" {
			return &sim.ConfigurationError{Field: "systemic.compartments", Reason: fmt.Sprintf("compartment %d has no name", i)}
		}
		if c.VolumeL <= 0 {
			return &sim.DomainError{Field: "systemic." + c.Name + ".volume_l", Value: c.VolumeL, Reason: "must be > 0"}
		}
		if c.ClearRate < 0 {
			return &sim.DomainError{Field: "systemic." + c.Name + ".clear_rate", Value: c.ClearRate, Reason: "must be >= 0"}
		}
		if c.InitialUM < 0 {
			return &sim.DomainError{Field: "systemic." + c.Name + ".initial_um", Value: c.InitialUM, Reason: "must be >= 0"}
		}
		if len(p.Exchange[i]) != n {
			return &sim.ConfigurationError{Field: "systemic.exchange", Reason: "matrix must be square"}
		}
	}
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if p.Exchange[i][j] < 0 {
				return &sim.DomainError{
					Field: fmt.Sprintf("systemic.exchange[%d][%d]", i, j),
					Value: p.Exchange[i][j], Reason: "must be >= 0",
				}
			}
			if p.Exchange[i][j] != p.Exchange[j][i] {
				return &sim.ConfigurationError{
					Field:  fmt.Sprintf("systemic.exchange[%d][%d]", i, j),
					Reason: "exchange matrix must be symmetric",
				}
			}
		}
	}
	if p.inputIndex() < 0 {
		return &sim.ConfigurationError{Field: "systemic.input_into", Reason: "unknown compartment " + p.InputInto}
	}
	return nil
}

func (p Params) inputIndex() int {
	for i, c := range p.Compartments {
		if c.Name == p.InputInto {
			return i
		}
	}
	return -1
}

// Exposure summarizes one compartment's trajectory against the toxicity
// thresholds. Times above threshold are trapezoid integrals of the
// indicator over the output grid.
type Exposure struct {
	Compartment       string
	PeakUM            float64
	TimeOfPeakH       float64
	TimeAboveCautionH float64
	TimeAboveDangerH  float64
	CautionUM         float64
	DangerUM          float64
}

// Result carries the concentration trajectories (uM) and the per-
// compartment exposure report.
type Result struct {
	Table       *sim.Table
	Exposure    []Exposure
	FinalUM     []float64
	ClampEvents []sim.ClampEvent
}

// Simulate integrates the network from the per-compartment baselines
// under the secretion forcing (umol/h, linearly interpolated, clipped at
// zero) entering the configured compartment. Concentrations are uM; the
// zero-clearance network conserves total amount exactly up to solver
// tolerance.
func Simulate(p Params, forcingTimes, secretionUmolH []float64, horizonH, dtH float64) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if horizonH <= 0 || dtH <= 0 {
		return nil, &sim.DomainError{Field: "horizon/dt", Value: horizonH, Reason: "horizon and dt must be > 0"}
	}
	if len(forcingTimes) == 0 || len(forcingTimes) != len(secretionUmolH) {
		return nil, &sim.ConfigurationError{Field: "systemic.secretion", Reason: "forcing trajectory missing or misaligned"}
	}

	n := len(p.Compartments)
	in := p.inputIndex()
	names := make([]string, n)
	units := make([]string, n)
	for i, c := range p.Compartments {
		names[i] = c.Name
		units[i] = "uM"
	}

	rhs := func(t float64, y, dydt []float64) {
		s := sim.Lerp(t, forcingTimes, secretionUmolH)
		if s < 0 {
			s = 0
		}
		for i := 0; i < n; i++ {
			vi := p.Compartments[i].VolumeL
			acc := -p.Compartments[i].ClearRate * y[i]
			for j := 0; j < n; j++ {
				if i == j {
					continue
				}
				k := p.Exchange[i][j]
				if k == 0 {
					continue
				}
				// Amount transfer k*(A_j - A_i) expressed per volume.
				acc += k * (y[j]*p.Compartments[j].VolumeL - y[i]*vi) / vi
			}
			if i == in {
				acc += s / vi // umol/h over L -> uM/h
			}
			dydt[i] = acc
		}
	}

	res := &Result{Table: sim.NewTable("systemic", names, units)}
	grid := sim.TimeGrid(horizonH, dtH)
	opt := ode.Options{Stage: "systemic", NonNegative: true,
		OnClamp: func(i, step int, t, v float64) {
			res.ClampEvents = append(res.ClampEvents, sim.ClampEvent{
				Stage: "systemic", Variable: names[i], Step: step, Time: t, Value: v,
			})
		}}
	y0 := make([]float64, n)
	for i, c := range p.Compartments {
		y0[i] = c.InitialUM
	}
	states, err := ode.Solve(rhs, y0, grid, opt)
	if err != nil {
		return nil, err
	}
	for i, t := range grid {
		res.Table.AddRow(t, states[i]...)
	}
	res.FinalUM = append([]float64(nil), states[len(states)-1]...)

	for j := 0; j < n; j++ {
		res.Exposure = append(res.Exposure, exposure(names[j], grid, res.Table.Series[j]))
	}
	return res, nil
}

func exposure(name string, t, c []float64) Exposure {
	e := Exposure{Compartment: name, CautionUM: CautionThresholdUM, DangerUM: DangerThresholdUM}
	for i := range t {
		if c[i] > e.PeakUM {
			e.PeakUM = c[i]
			e.TimeOfPeakH = t[i]
		}
	}
	e.TimeAboveCautionH = timeAbove(t, c, CautionThresholdUM)
	e.TimeAboveDangerH = timeAbove(t, c, DangerThresholdUM)
	return e
}

// timeAbove integrates the above-threshold indicator by trapezoid.
func timeAbove(t, c []float64, thr float64) float64 {
	ind := make([]float64, len(c))
	for i, v := range c {
		if v > thr {
			ind[i] = 1
		}
	}
	return sim.Trapz(t, ind)
}
