// Package ode integrates the stage ODE systems with an adaptive-step
// embedded Runge-Kutta method (Cash-Karp 4(5)). Step size is controlled
// by the embedded error estimate, which keeps the stiff enzyme-relaxation
// regimes (tau much smaller than the horizon) stable without a fixed tiny
// step everywhere.
package ode

import (
	"math"

	"github.com/XY3070/glufire/internal/sim"
)

// RHS evaluates dy/dt at (t, y) into dydt.
type RHS func(t float64, y, dydt []float64)

// Options tunes the integrator.
type Options struct {
	RelTol   float64
	AbsTol   float64
	InitStep float64
	MinStep  float64
	MaxStep  float64
	MaxSteps int

	// NonNegative applies the negative-value safety clamp after every
	// accepted step. Excursions below zero caused by truncation error are
	// set to zero and reported through OnClamp with the attempted-step
	// count at the time of the clamp.
	NonNegative bool
	OnClamp     func(index, step int, t, value float64)

	// Stage names the caller in NumericalInstabilityError reports.
	Stage string
}

func (o *Options) fill(horizon float64) {
	if o.RelTol <= 0 {
		o.RelTol = 1e-6
	}
	if o.AbsTol <= 0 {
		o.AbsTol = 1e-9
	}
	if o.MaxStep <= 0 {
		o.MaxStep = horizon
	}
	if o.InitStep <= 0 {
		o.InitStep = horizon / 1000
	}
	if o.MinStep <= 0 {
		o.MinStep = horizon * 1e-12
	}
	if o.MaxSteps <= 0 {
		o.MaxSteps = 10_000_000
	}
	if o.Stage == "" {
		o.Stage = "ode"
	}
}

// Cash-Karp tableau.
var (
	ckB = [6][5]float64{
		{},
		{1.0 / 5},
		{3.0 / 40, 9.0 / 40},
		{3.0 / 10, -9.0 / 10, 6.0 / 5},
		{-11.0 / 54, 5.0 / 2, -70.0 / 27, 35.0 / 27},
		{1631.0 / 55296, 175.0 / 512, 575.0 / 13824, 44275.0 / 110592, 253.0 / 4096},
	}
	ckC  = [6]float64{37.0 / 378, 0, 250.0 / 621, 125.0 / 594, 0, 512.0 / 1771}
	ckDC = [6]float64{
		37.0/378 - 2825.0/27648,
		0,
		250.0/621 - 18575.0/48384,
		125.0/594 - 13525.0/55296,
		-277.0 / 14336,
		512.0/1771 - 1.0/4,
	}
)

// Solve integrates y' = rhs(t, y) from grid[0] to grid[len-1] and samples
// the state at every grid point. The returned matrix has one row per grid
// point; row 0 is a copy of y0.
func Solve(rhs RHS, y0 []float64, grid []float64, opt Options) ([][]float64, error) {
	n := len(y0)
	horizon := grid[len(grid)-1] - grid[0]
	opt.fill(horizon)

	out := make([][]float64, len(grid))
	out[0] = append([]float64(nil), y0...)

	y := append([]float64(nil), y0...)
	ytmp := make([]float64, n)
	ynew := make([]float64, n)
	yerr := make([]float64, n)
	var k [6][]float64
	for i := range k {
		k[i] = make([]float64, n)
	}

	t := grid[0]
	h := opt.InitStep
	steps := 0

	for gi := 1; gi < len(grid); gi++ {
		target := grid[gi]
		for t < target {
			if steps++; steps > opt.MaxSteps {
				return nil, &sim.NumericalInstabilityError{
					Stage: opt.Stage, Step: steps, Time: t,
					Reason: "step budget exhausted (system too stiff for tolerances)",
				}
			}
			hTry := h
			truncated := false
			if t+hTry > target {
				hTry = target - t
				truncated = true
			}

			rhs(t, y, k[0])
			for s := 1; s < 6; s++ {
				for i := 0; i < n; i++ {
					acc := y[i]
					for j := 0; j < s; j++ {
						acc += hTry * ckB[s][j] * k[j][i]
					}
					ytmp[i] = acc
				}
				cs := [6]float64{0, 1.0 / 5, 3.0 / 10, 3.0 / 5, 1, 7.0 / 8}
				rhs(t+cs[s]*hTry, ytmp, k[s])
			}

			errMax := 0.0
			for i := 0; i < n; i++ {
				var dy, de float64
				for s := 0; s < 6; s++ {
					dy += ckC[s] * k[s][i]
					de += ckDC[s] * k[s][i]
				}
				ynew[i] = y[i] + hTry*dy
				yerr[i] = hTry * de
				scale := opt.AbsTol + opt.RelTol*math.Max(math.Abs(y[i]), math.Abs(ynew[i]))
				e := math.Abs(yerr[i]) / scale
				if e > errMax {
					errMax = e
				}
			}

			for i := 0; i < n; i++ {
				if math.IsNaN(ynew[i]) || math.IsInf(ynew[i], 0) {
					return nil, &sim.NumericalInstabilityError{
						Stage: opt.Stage, Step: steps, Time: t,
						Reason: "non-finite state component",
					}
				}
			}

			if errMax <= 1 {
				t += hTry
				copy(y, ynew)
				if opt.NonNegative {
					for i := 0; i < n; i++ {
						if y[i] < 0 {
							if opt.OnClamp != nil {
								opt.OnClamp(i, steps, t, y[i])
							}
							y[i] = 0
						}
					}
				}
				if !truncated {
					grow := 5.0
					if errMax > 1e-10 {
						grow = 0.9 * math.Pow(errMax, -0.2)
						if grow > 5 {
							grow = 5
						}
					}
					h = hTry * grow
					if h > opt.MaxStep {
						h = opt.MaxStep
					}
				}
			} else {
				shrink := 0.9 * math.Pow(errMax, -0.25)
				if shrink < 0.1 {
					shrink = 0.1
				}
				h = hTry * shrink
				if h < opt.MinStep {
					return nil, &sim.NumericalInstabilityError{
						Stage: opt.Stage, Step: steps, Time: t,
						Reason: "step size underflow",
					}
				}
			}
		}
		out[gi] = append([]float64(nil), y...)
	}
	return out, nil
}
