package systemic

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XY3070/glufire/internal/sim"
)

func constantSecretion(umolPerH, horizonH float64) (times, flux []float64) {
	return []float64{0, horizonH}, []float64{umolPerH, umolPerH}
}

func TestSimulateMassConservationWithoutClearance(t *testing.T) {
	p := Defaults()
	for i := range p.Compartments {
		p.Compartments[i].ClearRate = 0
	}
	times, flux := constantSecretion(1.0, 10)

	res, err := Simulate(p, times, flux, 10, 0.1)
	require.NoError(t, err)

	// 1 umol/h for 10 h with no elimination: 10 umol on top of the
	// baseline amounts, spread over the network.
	var initial, total float64
	for i, c := range p.Compartments {
		initial += c.InitialUM * c.VolumeL
		total += res.FinalUM[i] * c.VolumeL
	}
	assert.InEpsilon(t, initial+10.0, total, 1e-4)
}

func TestBaselineDecaysUnderClearance(t *testing.T) {
	p := Defaults()
	times, flux := constantSecretion(0, 24)

	res, err := Simulate(p, times, flux, 24, 0.1)
	require.NoError(t, err)

	plasma, ok := res.Table.Column("plasma")
	require.True(t, ok)
	assert.InDelta(t, 50.0, plasma[0], 1e-12, "run starts from the plasma baseline")
	for i := 1; i < len(plasma); i++ {
		assert.Less(t, plasma[i], plasma[i-1],
			"with no secretion the baseline pool only drains")
	}
	assert.Less(t, plasma[len(plasma)-1], 1.0,
		"clearance pulls the baseline toward its zero-input equilibrium")

	// Whatever left the plasma pool was cleared or handed to the other
	// compartments, never created.
	var total float64
	for i, c := range p.Compartments {
		total += res.FinalUM[i] * c.VolumeL
	}
	assert.Less(t, total, 50.0*p.Compartments[1].VolumeL)
}

func TestSimulateSecretionReachesAllCompartments(t *testing.T) {
	times, flux := constantSecretion(5.0, 24)

	res, err := Simulate(Defaults(), times, flux, 24, 0.1)
	require.NoError(t, err)

	tumor, ok := res.Table.Column("tumor")
	require.True(t, ok)
	brain, ok := res.Table.Column("brain")
	require.True(t, ok)
	assert.Positive(t, tumor[len(tumor)-1])
	assert.Positive(t, brain[len(brain)-1], "slow blood-brain transfer still leaks through")
	assert.Greater(t, tumor[len(tumor)-1], brain[len(brain)-1],
		"concentration falls along the transfer chain")
}

func TestExposureReport(t *testing.T) {
	times, flux := constantSecretion(50.0, 24)

	res, err := Simulate(Defaults(), times, flux, 24, 0.1)
	require.NoError(t, err)
	require.Len(t, res.Exposure, len(Defaults().Compartments))

	var tumor Exposure
	for _, e := range res.Exposure {
		if e.Compartment == "tumor" {
			tumor = e
		}
	}
	require.NotEmpty(t, tumor.Compartment)

	conc, _ := res.Table.Column("tumor")
	peak := 0.0
	for _, v := range conc {
		if v > peak {
			peak = v
		}
	}
	assert.Equal(t, peak, tumor.PeakUM)
	assert.Greater(t, tumor.PeakUM, CautionThresholdUM+0.0,
		"heavy secretion into a 50 mL pool crosses the caution line")
	assert.Positive(t, tumor.TimeAboveCautionH)
	assert.GreaterOrEqual(t, tumor.TimeAboveCautionH, tumor.TimeAboveDangerH)
}

func TestValidateRejectsAsymmetricExchange(t *testing.T) {
	p := Defaults()
	p.Exchange[0][1] = 3.0 // no longer matches [1][0]

	times, flux := constantSecretion(1, 1)
	_, err := Simulate(p, times, flux, 1, 0.1)
	var ce *sim.ConfigurationError
	require.ErrorAs(t, err, &ce)
}

func TestValidateRejectsUnknownInput(t *testing.T) {
	p := Defaults()
	p.InputInto = "liver"

	times, flux := constantSecretion(1, 1)
	_, err := Simulate(p, times, flux, 1, 0.1)
	var ce *sim.ConfigurationError
	require.ErrorAs(t, err, &ce)
}

func TestValidateRejectsBadVolume(t *testing.T) {
	p := Defaults()
	p.Compartments[1].VolumeL = 0

	times, flux := constantSecretion(1, 1)
	_, err := Simulate(p, times, flux, 1, 0.1)
	var de *sim.DomainError
	require.ErrorAs(t, err, &de)
}
