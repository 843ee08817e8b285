// Package diffusion solves the 1-D spherically symmetric
// reaction-diffusion equation for metabolite spreading through a
// spheroid:
//
//	dC/dt = D*(d2C/dr2 + (2/r)*dC/dr) - k_deg*C + source(r)
//
// on r in [0,R] with a symmetric center and a selectable outer boundary:
// a Dirichlet sink (C(R)=0) or a Robin exchange condition two-way coupled
// to a lumped one-compartment plasma ODE. Both an explicit scheme (with
// the stability bound enforced) and a backward-Euler implicit scheme are
// available.
package diffusion

import (
	"fmt"
	"math"

	"github.com/XY3070/glufire/internal/sim"
)

// Boundary selects the outer boundary condition.
type Boundary string

const (
	// Dirichlet pins C(R,t)=0: a pure sink, the legacy behavior.
	Dirichlet Boundary = "dirichlet"
	// Robin expresses boundary flux as h*(C(R)-C_plasma) and feeds the
	// same flux into the plasma compartment.
	Robin Boundary = "robin"
)

// Scheme selects the time-stepping method.
type Scheme string

const (
	Explicit Scheme = "explicit"
	Implicit Scheme = "implicit"
)

// Params configures one diffusion run. Lengths in mm, time in hours,
// concentration in mM.
type Params struct {
	Boundary Boundary `mapstructure:"boundary"`
	Scheme   Scheme   `mapstructure:"scheme"`

	Diffusivity float64 `mapstructure:"diffusivity"` // D, mm^2/h
	KDeg        float64 `mapstructure:"k_deg"`       // 1/h
	Radius      float64 `mapstructure:"radius"`      // R, mm
	GridPoints  int     `mapstructure:"grid_points"` // N intervals (N+1 nodes)

	// Source density: producer cells concentrated in a core fraction of
	// the radius, sparser in the outer shell. source(r) = q*rho(r).
	SourceStrength float64 `mapstructure:"source_strength"` // q, mM/h per density unit
	CoreFraction   float64 `mapstructure:"core_fraction"`   // of R, in (0,1]
	CoreDensity    float64 `mapstructure:"core_density"`
	ShellDensity   float64 `mapstructure:"shell_density"`

	// Robin exchange and plasma compartment.
	ExchangeCoeff   float64 `mapstructure:"exchange_coeff"` // h_x, mm/h
	PlasmaVolume    float64 `mapstructure:"plasma_volume"`  // V_d, mm^3
	PlasmaHalfLifeH float64 `mapstructure:"plasma_half_life_h"`

	// AutoSubstep lets the explicit scheme integrate internally at a
	// stable sub-step when the requested dt violates the stability
	// bound, instead of rejecting the configuration.
	AutoSubstep bool `mapstructure:"auto_substep"`
}

// Defaults uses the reference spheroid: 0.5 mm radius, producer core at
// 40% of the radius, diffusivity converted from 5e-6 mm^2/s.
func Defaults() Params {
	return Params{
		Boundary:        Dirichlet,
		Scheme:          Explicit,
		Diffusivity:     0.018, // 5e-6 mm^2/s * 3600
		KDeg:            0.0,
		Radius:          0.5,
		GridPoints:      100,
		SourceStrength:  0.36, // 1e-7 mM/s * 3600, per density unit
		CoreFraction:    0.4,
		CoreDensity:     1.0,
		ShellDensity:    0.2,
		ExchangeCoeff:   0.05,
		PlasmaVolume:    2000, // 2 mL in mm^3
		PlasmaHalfLifeH: 1.4,
		AutoSubstep:     true,
	}
}

// Validate checks selections and parameters at entry.
func (p Params) Validate() error {
	switch p.Boundary {
	case Dirichlet, Robin:
	default:
		return &sim.ConfigurationError{Field: "diffusion.boundary", Reason: "unknown boundary " + string(p.Boundary)}
	}
	switch p.Scheme {
	case Explicit, Implicit:
	default:
		return &sim.ConfigurationError{Field: "diffusion.scheme", Reason: "unknown scheme " + string(p.Scheme)}
	}
	if p.Diffusivity <= 0 {
		return &sim.DomainError{Field: "diffusion.diffusivity", Value: p.Diffusivity, Reason: "must be > 0"}
	}
	if p.KDeg < 0 {
		return &sim.DomainError{Field: "diffusion.k_deg", Value: p.KDeg, Reason: "must be >= 0"}
	}
	if p.Radius <= 0 {
		return &sim.DomainError{Field: "diffusion.radius", Value: p.Radius, Reason: "must be > 0"}
	}
	if p.GridPoints < 3 {
		return &sim.DomainError{Field: "diffusion.grid_points", Value: float64(p.GridPoints), Reason: "need at least 3 intervals"}
	}
	if p.SourceStrength < 0 {
		return &sim.DomainError{Field: "diffusion.source_strength", Value: p.SourceStrength, Reason: "must be >= 0"}
	}
	if p.CoreFraction <= 0 || p.CoreFraction > 1 {
		return &sim.DomainError{Field: "diffusion.core_fraction", Value: p.CoreFraction, Reason: "must be in (0,1]"}
	}
	if p.CoreDensity < 0 || p.ShellDensity < 0 {
		return &sim.DomainError{Field: "diffusion.density", Value: math.Min(p.CoreDensity, p.ShellDensity), Reason: "must be >= 0"}
	}
	if p.Boundary == Robin {
		if p.ExchangeCoeff <= 0 {
			return &sim.DomainError{Field: "diffusion.exchange_coeff", Value: p.ExchangeCoeff, Reason: "must be > 0 for robin boundary"}
		}
		if p.PlasmaVolume <= 0 {
			return &sim.DomainError{Field: "diffusion.plasma_volume", Value: p.PlasmaVolume, Reason: "must be > 0"}
		}
		if p.PlasmaHalfLifeH <= 0 {
			return &sim.DomainError{Field: "diffusion.plasma_half_life_h", Value: p.PlasmaHalfLifeH, Reason: "must be > 0"}
		}
	}
	return nil
}

// Biot reports the dimensionless boundary-exchange-to-diffusion ratio
// h*R/D. Bi << 1 means exchange-limited transfer; Bi >> 1 makes the
// Robin boundary behave like a Dirichlet sink.
func (p Params) Biot() float64 {
	return p.ExchangeCoeff * p.Radius / p.Diffusivity
}

// StableStep is the explicit-scheme bound dt <= dr^2/(2D).
func (p Params) StableStep() float64 {
	dr := p.Radius / float64(p.GridPoints)
	return dr * dr / (2 * p.Diffusivity)
}

func (p Params) density(r float64) float64 {
	if r <= p.CoreFraction*p.Radius {
		return p.CoreDensity
	}
	return p.ShellDensity
}

// Snapshot is the radial profile at one output time.
type Snapshot struct {
	TimeH   float64
	Profile []float64 // mM per node
	Plasma  float64   // mM; zero unless Robin coupling is active
}

// Result carries the spatial trajectory and mass diagnostics.
type Result struct {
	Radii     []float64 // mm, node positions
	Snapshots []Snapshot
	Table     *sim.Table // time series of domain-integrated diagnostics

	Biot            float64
	TotalEffluxUmol float64 // cumulative mass through the outer boundary
	FinalTissueMass float64 // umol
	FinalPlasmaConc float64 // mM
	ClampEvents     []sim.ClampEvent
}

// tissueMass integrates C over the spherical domain by shell trapezoid,
// returning umol when C is mM and r is mm (mM*mm^3 = 1e-6 mmol = nmol;
// factor 1e-3 converts nmol to umol).
func tissueMass(r, c []float64) float64 {
	var acc float64
	for i := 1; i < len(r); i++ {
		f0 := 4 * math.Pi * r[i-1] * r[i-1] * c[i-1]
		f1 := 4 * math.Pi * r[i] * r[i] * c[i]
		acc += 0.5 * (f0 + f1) * (r[i] - r[i-1])
	}
	return acc * 1e-3
}

// Simulate runs the PDE over horizonH hours with output step dtH,
// starting from the given radial concentration field (nil starts from a
// zero field). The Robin variant co-evolves the plasma compartment; the
// same per-step boundary flux that leaves the tissue is the plasma
// inflow.
func Simulate(p Params, init []float64, horizonH, dtH float64) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if horizonH <= 0 || dtH <= 0 {
		return nil, &sim.DomainError{Field: "horizon/dt", Value: horizonH, Reason: "horizon and dt must be > 0"}
	}

	n := p.GridPoints
	if init != nil {
		if len(init) != n+1 {
			return nil, &sim.ConfigurationError{
				Field:  "diffusion.init",
				Reason: fmt.Sprintf("initial field has %d nodes, grid needs %d", len(init), n+1),
			}
		}
		for i, v := range init {
			if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, &sim.DomainError{
					Field: fmt.Sprintf("diffusion.init[%d]", i), Value: v,
					Reason: "initial concentration must be finite and >= 0",
				}
			}
		}
	}
	dr := p.Radius / float64(n)
	stepH := dtH
	subSteps := 1
	if p.Scheme == Explicit {
		bound := p.StableStep()
		if dtH > bound {
			if !p.AutoSubstep {
				return nil, &sim.NumericalInstabilityError{
					Stage: "diffusion", Step: 0, Time: 0,
					Reason: "explicit step violates stability bound dt <= dr^2/(2D); enable auto_substep or use the implicit scheme",
				}
			}
			subSteps = int(math.Ceil(dtH / (0.5 * bound)))
			stepH = dtH / float64(subSteps)
		}
	}

	radii := make([]float64, n+1)
	for i := range radii {
		radii[i] = float64(i) * dr
	}
	src := make([]float64, n+1)
	for i := range src {
		src[i] = p.SourceStrength * p.density(radii[i])
	}

	res := &Result{
		Radii: radii,
		Biot:  p.Biot(),
		Table: sim.NewTable("diffusion",
			[]string{"tissue_mass", "boundary_efflux_cum", "plasma_conc", "center_conc", "boundary_conc"},
			[]string{"umol", "umol", "mM", "mM", "mM"}),
	}

	c := make([]float64, n+1)
	copy(c, init)
	cNew := make([]float64, n+1)
	plasma := 0.0
	kPlasma := 0.0
	if p.Boundary == Robin {
		kPlasma = math.Ln2 / p.PlasmaHalfLifeH
	}
	area := 4 * math.Pi * p.Radius * p.Radius // mm^2
	effluxCum := 0.0

	outSteps := int(horizonH/dtH + 0.5)
	if outSteps < 1 {
		outSteps = 1
	}
	record := func(t float64) {
		res.Snapshots = append(res.Snapshots, Snapshot{
			TimeH:   t,
			Profile: append([]float64(nil), c...),
			Plasma:  plasma,
		})
		res.Table.AddRow(t, tissueMass(radii, c), effluxCum, plasma, c[0], c[n])
	}
	record(0)

	step := 0
	for out := 1; out <= outSteps; out++ {
		for s := 0; s < subSteps; s++ {
			step++
			var flux float64 // mM*mm/h out of the tissue per unit area
			var err error
			if p.Scheme == Explicit {
				flux, err = p.stepExplicit(c, cNew, radii, src, dr, stepH, plasma)
			} else {
				flux, err = p.stepImplicit(c, cNew, radii, src, dr, stepH, plasma)
			}
			if err != nil {
				if nie, ok := err.(*sim.NumericalInstabilityError); ok {
					nie.Step = step
					nie.Time = float64(out-1) * dtH
				}
				return nil, err
			}

			// The flux that left the tissue enters the plasma box.
			if p.Boundary == Robin {
				rateUmolPerH := area * flux * 1e-3 // mM*mm^3/h -> umol/h
				effluxCum += rateUmolPerH * stepH
				// Backward-Euler clearance keeps the box stable at
				// large steps.
				plasma = (plasma + stepH*rateUmolPerH*1e3/p.PlasmaVolume) / (1 + stepH*kPlasma)
			} else {
				// Dirichlet: efflux is diffusive flow into the sink.
				grad := (c[n] - c[n-1]) / dr // pre-step one-sided gradient; c[n]=0
				rateUmolPerH := -area * p.Diffusivity * grad * 1e-3
				if rateUmolPerH > 0 {
					effluxCum += rateUmolPerH * stepH
				}
			}

			c, cNew = cNew, c
			for i := range c {
				if math.IsNaN(c[i]) || math.IsInf(c[i], 0) {
					return nil, &sim.NumericalInstabilityError{
						Stage: "diffusion", Step: step, Time: float64(out-1) * dtH,
						Reason: "non-finite concentration",
					}
				}
				if c[i] < 0 {
					// Truncation undershoot is clamped and recorded; a
					// genuinely negative field means the scheme diverged.
					if c[i] < -1e-6 {
						return nil, &sim.NumericalInstabilityError{
							Stage: "diffusion", Step: step, Time: float64(out-1) * dtH,
							Reason: fmt.Sprintf("concentration %g below clamp tolerance at node %d", c[i], i),
						}
					}
					res.ClampEvents = append(res.ClampEvents, sim.ClampEvent{
						Stage: "diffusion", Variable: "concentration",
						Step: step, Time: float64(out-1) * dtH, Value: c[i],
					})
					c[i] = 0
				}
			}
		}
		record(float64(out) * dtH)
	}

	res.TotalEffluxUmol = effluxCum
	res.FinalTissueMass = tissueMass(radii, c)
	res.FinalPlasmaConc = plasma
	return res, nil
}

// stepExplicit advances one explicit step, returning the outward boundary
// flux per unit area (mM*mm/h) for Robin coupling.
func (p Params) stepExplicit(c, cNew, radii, src []float64, dr, dt, plasma float64) (float64, error) {
	n := len(c) - 1
	d := p.Diffusivity

	// Center node: symmetry limit of the spherical Laplacian.
	lap0 := 6 * (c[1] - c[0]) / (dr * dr)
	cNew[0] = c[0] + dt*(d*lap0-p.KDeg*c[0]+src[0])

	for i := 1; i < n; i++ {
		d2 := (c[i+1] - 2*c[i] + c[i-1]) / (dr * dr)
		d1 := (c[i+1] - c[i-1]) / (2 * dr)
		lap := d2 + (2/radii[i])*d1
		cNew[i] = c[i] + dt*(d*lap-p.KDeg*c[i]+src[i])
	}

	switch p.Boundary {
	case Dirichlet:
		cNew[n] = 0
		return 0, nil
	default: // Robin, via ghost-node elimination
		h := p.ExchangeCoeff
		flux := h * (c[n] - plasma) // outward per unit area
		ghost := c[n-1] - 2*dr*flux/d
		d2 := (ghost - 2*c[n] + c[n-1]) / (dr * dr)
		d1 := (ghost - c[n-1]) / (2 * dr)
		lap := d2 + (2/p.Radius)*d1
		cNew[n] = c[n] + dt*(d*lap-p.KDeg*c[n]+src[n])
		return flux, nil
	}
}

// stepImplicit advances one backward-Euler step by solving the
// tridiagonal system with the Thomas algorithm.
func (p Params) stepImplicit(c, cNew, radii, src []float64, dr, dt, plasma float64) (float64, error) {
	n := len(c) - 1
	d := p.Diffusivity
	lambda := d * dt / (dr * dr)

	lower := make([]float64, n+1)
	diag := make([]float64, n+1)
	upper := make([]float64, n+1)
	rhs := make([]float64, n+1)

	// Center node.
	diag[0] = 1 + 6*lambda + dt*p.KDeg
	upper[0] = -6 * lambda
	rhs[0] = c[0] + dt*src[0]

	for i := 1; i < n; i++ {
		adv := d * dt / (radii[i] * dr)
		lower[i] = -(lambda - adv)
		diag[i] = 1 + 2*lambda + dt*p.KDeg
		upper[i] = -(lambda + adv)
		rhs[i] = c[i] + dt*src[i]
	}

	switch p.Boundary {
	case Dirichlet:
		lower[n] = 0
		diag[n] = 1
		rhs[n] = 0
	default: // Robin with ghost elimination; plasma held at the old value
		h := p.ExchangeCoeff
		robin := dt * h * (2/dr + 2/p.Radius)
		lower[n] = -2 * lambda
		diag[n] = 1 + 2*lambda + robin + dt*p.KDeg
		rhs[n] = c[n] + dt*src[n] + robin*plasma
	}

	// Thomas sweep.
	for i := 1; i <= n; i++ {
		if diag[i-1] == 0 {
			return 0, &sim.NumericalInstabilityError{Stage: "diffusion", Reason: "singular tridiagonal system"}
		}
		m := lower[i] / diag[i-1]
		diag[i] -= m * upper[i-1]
		rhs[i] -= m * rhs[i-1]
	}
	cNew[n] = rhs[n] / diag[n]
	for i := n - 1; i >= 0; i-- {
		cNew[i] = (rhs[i] - upper[i]*cNew[i+1]) / diag[i]
	}

	if p.Boundary == Robin {
		return p.ExchangeCoeff * (cNew[n] - plasma), nil
	}
	return 0, nil
}
