package gate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XY3070/glufire/internal/sim"
)

var (
	therapyEnv = Environment{OxygenFraction: 0.01, TemperatureC: 42}
	controlEnv = Environment{OxygenFraction: 0.21, TemperatureC: 37}
)

func TestChannelOutputs(t *testing.T) {
	p := Defaults()

	aT, bT, err := ChannelOutputs(therapyEnv, p)
	require.NoError(t, err)
	aC, bC, err := ChannelOutputs(controlEnv, p)
	require.NoError(t, err)

	assert.Greater(t, aT, aC, "hypoxia must raise the oxygen channel")
	assert.Greater(t, bT, bC, "heat must raise the temperature channel")
	assert.InDelta(t, 1203.85, aT, 0.1)
	assert.InDelta(t, 114.38, aC, 0.1)
}

func TestActivityAndLogic(t *testing.T) {
	p := Defaults()

	both, err := Activity(therapyEnv, p)
	require.NoError(t, err)
	none, err := Activity(controlEnv, p)
	require.NoError(t, err)
	hypoxiaOnly, err := Activity(Environment{OxygenFraction: 0.01, TemperatureC: 37}, p)
	require.NoError(t, err)
	heatOnly, err := Activity(Environment{OxygenFraction: 0.21, TemperatureC: 42}, p)
	require.NoError(t, err)

	assert.Greater(t, both, hypoxiaOnly)
	assert.Greater(t, both, heatOnly)
	assert.Greater(t, hypoxiaOnly, none)
	assert.Greater(t, heatOnly, none)
	assert.Greater(t, both/none, 5.0, "therapy vs control separation")
}

func TestActivityAdditiveFloor(t *testing.T) {
	p := Defaults()
	p.Combiner = AdditiveFloor

	both, err := Activity(therapyEnv, p)
	require.NoError(t, err)
	none, err := Activity(controlEnv, p)
	require.NoError(t, err)

	// Control channel sum sits below the floor, so only the leak remains.
	assert.InDelta(t, p.Leak, none, 1e-9)
	assert.Greater(t, both, none)
}

func TestActivityKineticSteadyState(t *testing.T) {
	p := Defaults()
	p.Mode = Kinetic

	ss, err := Activity(therapyEnv, p)
	require.NoError(t, err)

	a, b, err := ChannelOutputs(therapyEnv, p)
	require.NoError(t, err)
	want := p.Leak + p.AlphaKinetic*p.KAssembly*a*b/(p.KDisassembly+p.KDeg)
	assert.InDelta(t, want, ss, 1e-9)
}

func TestSimulateAlgebraicConstant(t *testing.T) {
	res, err := Simulate(therapyEnv, Defaults(), 12, 0.5)
	require.NoError(t, err)
	require.Equal(t, 25, res.Table.Len())
	for _, v := range res.Activity {
		assert.Equal(t, res.FinalActivity, v, "algebraic gate is constant in time")
	}
}

func TestSimulateKineticRelaxation(t *testing.T) {
	p := Defaults()
	p.Mode = Kinetic

	res, err := Simulate(therapyEnv, p, 24, 0.5)
	require.NoError(t, err)

	ss, err := Activity(therapyEnv, p)
	require.NoError(t, err)

	prev := -1.0
	for _, v := range res.Activity {
		assert.GreaterOrEqual(t, v, prev, "assembly under constant inputs is monotone")
		prev = v
	}
	assert.Equal(t, p.Leak, res.Activity[0], "complex starts at zero")
	assert.Less(t, res.FinalActivity, ss, "still relaxing toward steady state")
	assert.Greater(t, res.FinalActivity, 0.5*ss, "most of the way there after 24 h")
}

func TestValidationErrors(t *testing.T) {
	p := Defaults()
	p.Mode = "quantum"
	_, err := Activity(therapyEnv, p)
	var ce *sim.ConfigurationError
	require.ErrorAs(t, err, &ce)

	p = Defaults()
	p.Combiner = "xor"
	_, err = Activity(therapyEnv, p)
	require.ErrorAs(t, err, &ce)

	var de *sim.DomainError
	_, err = Activity(Environment{OxygenFraction: 1.5, TemperatureC: 37}, Defaults())
	require.ErrorAs(t, err, &de)

	_, err = Activity(Environment{OxygenFraction: 0.1, TemperatureC: -5}, Defaults())
	require.ErrorAs(t, err, &de)
}
