package ode

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XY3070/glufire/internal/sim"
)

func TestSolveExponentialDecay(t *testing.T) {
	rhs := func(tt float64, y, dydt []float64) { dydt[0] = -y[0] }
	grid := sim.TimeGrid(5, 0.5)

	states, err := Solve(rhs, []float64{1}, grid, Options{})
	require.NoError(t, err)
	require.Len(t, states, len(grid))
	assert.Equal(t, 1.0, states[0][0], "row 0 is the initial condition")
	for i, tt := range grid {
		assert.InDelta(t, math.Exp(-tt), states[i][0], 1e-4, "t=%g", tt)
	}
}

func TestSolveCoupledOscillator(t *testing.T) {
	// y'' = -y as a first-order system; energy should be conserved to
	// solver tolerance.
	rhs := func(tt float64, y, dydt []float64) {
		dydt[0] = y[1]
		dydt[1] = -y[0]
	}
	grid := sim.TimeGrid(2*math.Pi, 0.1)
	states, err := Solve(rhs, []float64{1, 0}, grid, Options{RelTol: 1e-8, AbsTol: 1e-10})
	require.NoError(t, err)

	last := states[len(states)-1]
	assert.InDelta(t, 1.0, last[0], 1e-5, "full period returns to start")
	assert.InDelta(t, 0.0, last[1], 1e-5)
}

func TestSolveNonNegativeClamp(t *testing.T) {
	// Constant decay drives the state below zero mid-run.
	rhs := func(tt float64, y, dydt []float64) { dydt[0] = -1 }
	grid := sim.TimeGrid(2, 0.1)

	var clamps int
	opt := Options{NonNegative: true, OnClamp: func(i, step int, tt, v float64) {
		clamps++
		assert.Negative(t, v)
		assert.Positive(t, step, "clamp reports which step tripped it")
	}}
	states, err := Solve(rhs, []float64{0.5}, grid, opt)
	require.NoError(t, err)
	assert.Positive(t, clamps, "clamp must be reported, not silent")
	for _, s := range states {
		assert.GreaterOrEqual(t, s[0], 0.0)
	}
	assert.Equal(t, 0.0, states[len(states)-1][0])
}

func TestSolveStepBudget(t *testing.T) {
	// A very stiff decay cannot be resolved in a handful of explicit
	// steps; the solver must fail loudly instead of looping forever.
	rhs := func(tt float64, y, dydt []float64) { dydt[0] = -1e8 * y[0] }
	grid := sim.TimeGrid(1, 0.5)

	_, err := Solve(rhs, []float64{1}, grid, Options{MaxSteps: 50, Stage: "stress"})
	var nie *sim.NumericalInstabilityError
	require.ErrorAs(t, err, &nie)
	assert.Equal(t, "stress", nie.Stage)
}

func TestSolveNonFiniteState(t *testing.T) {
	rhs := func(tt float64, y, dydt []float64) { dydt[0] = y[0] * y[0] } // finite-time blowup
	grid := sim.TimeGrid(5, 0.5)

	_, err := Solve(rhs, []float64{1}, grid, Options{Stage: "blowup"})
	var nie *sim.NumericalInstabilityError
	require.ErrorAs(t, err, &nie)
}
