package metabolism

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XY3070/glufire/internal/sim"
)

// constantForcing builds a two-point trajectory holding one activity
// level over the horizon.
func constantForcing(activity, horizonH float64) (times, values []float64) {
	return []float64{0, horizonH}, []float64{activity, activity}
}

func TestSimulateZeroActivityStaysDark(t *testing.T) {
	times, act := constantForcing(0, 24)
	res, err := Simulate(State{}, Defaults(), times, act, 24, 0.5)
	require.NoError(t, err)

	// The induction switch is exactly zero at zero activity, so nothing
	// is ever produced.
	for j := range res.Table.Columns {
		for _, v := range res.Table.Series[j] {
			assert.Equal(t, 0.0, v)
		}
	}
	for _, f := range res.SecretionFlux {
		assert.Equal(t, 0.0, f)
	}
}

func TestSimulateHighActivityProduces(t *testing.T) {
	p := Defaults()
	times, act := constantForcing(2300, 24)
	res, err := Simulate(State{}, p, times, act, 24, 0.5)
	require.NoError(t, err)

	final := res.Extracellular[len(res.Extracellular)-1]
	assert.Greater(t, final, 1.0, "induced cells accumulate extracellular product (mM)")

	icd, ok := res.Table.Column("enzyme_icd")
	require.True(t, ok)
	assert.Greater(t, icd[len(icd)-1], 0.8*p.EnzMaxICD, "enzymes near their induction ceiling")

	// Fluxes are reported for the spatial stage and never negative.
	require.Len(t, res.SecretionFlux, res.Table.Len())
	for _, f := range res.SecretionFlux {
		assert.GreaterOrEqual(t, f, 0.0)
	}
}

func TestSimulateActivitySeparation(t *testing.T) {
	times, hot := constantForcing(2300, 24)
	_, cold := constantForcing(250, 24)

	on, err := Simulate(State{}, Defaults(), times, hot, 24, 0.5)
	require.NoError(t, err)
	off, err := Simulate(State{}, Defaults(), times, cold, 24, 0.5)
	require.NoError(t, err)

	high := on.Extracellular[len(on.Extracellular)-1]
	low := off.Extracellular[len(off.Extracellular)-1]
	require.Positive(t, high)
	if low == 0 {
		return // perfectly dark is better than the required separation
	}
	assert.Greater(t, high/low, 100.0, "two orders of magnitude between on and off")
}

func TestSimulateValidation(t *testing.T) {
	times, act := constantForcing(100, 1)

	p := Defaults()
	p.KmAKG = 0
	_, err := Simulate(State{}, p, times, act, 1, 0.1)
	var de *sim.DomainError
	require.ErrorAs(t, err, &de)

	_, err = Simulate(State{AKG: -1}, Defaults(), times, act, 1, 0.1)
	require.ErrorAs(t, err, &de)

	_, err = Simulate(State{}, Defaults(), nil, nil, 1, 0.1)
	var ce *sim.ConfigurationError
	require.ErrorAs(t, err, &ce)

	_, err = Simulate(State{}, Defaults(), times, act[:1], 1, 0.1)
	require.ErrorAs(t, err, &ce)
}
