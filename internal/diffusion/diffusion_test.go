package diffusion

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/XY3070/glufire/internal/sim"
)

// smallGrid keeps test runtimes short while staying fine enough for the
// qualitative checks.
func smallGrid() Params {
	p := Defaults()
	p.GridPoints = 40
	return p
}

func TestStableStepAndBiot(t *testing.T) {
	p := Defaults()
	dr := p.Radius / float64(p.GridPoints)
	assert.InDelta(t, dr*dr/(2*p.Diffusivity), p.StableStep(), 1e-15)
	assert.InDelta(t, p.ExchangeCoeff*p.Radius/p.Diffusivity, p.Biot(), 1e-12)
}

func TestExplicitRejectsUnstableStep(t *testing.T) {
	p := smallGrid()
	p.AutoSubstep = false

	_, err := Simulate(p, nil, 1, 0.1) // far above the stability bound
	var nie *sim.NumericalInstabilityError
	require.ErrorAs(t, err, &nie)
	assert.Equal(t, "diffusion", nie.Stage)
}

func TestExplicitAutoSubstepMatchesImplicit(t *testing.T) {
	exp := smallGrid()
	exp.AutoSubstep = true

	imp := smallGrid()
	imp.Scheme = Implicit

	re, err := Simulate(exp, nil, 4, 0.1)
	require.NoError(t, err)
	ri, err := Simulate(imp, nil, 4, 0.1)
	require.NoError(t, err)

	// Both schemes solve the same PDE; center concentrations agree to a
	// few percent at this resolution.
	assert.InEpsilon(t, re.FinalTissueMass, ri.FinalTissueMass, 0.05)
	ce := re.Snapshots[len(re.Snapshots)-1].Profile[0]
	ci := ri.Snapshots[len(ri.Snapshots)-1].Profile[0]
	assert.InEpsilon(t, ce, ci, 0.05)
}

func TestDirichletProfileShape(t *testing.T) {
	p := smallGrid()

	res, err := Simulate(p, nil, 6, 0.1)
	require.NoError(t, err)

	last := res.Snapshots[len(res.Snapshots)-1]
	assert.Equal(t, 0.0, last.Profile[len(last.Profile)-1], "sink pins the boundary at zero")
	for i := 1; i < len(last.Profile); i++ {
		assert.LessOrEqual(t, last.Profile[i], last.Profile[i-1]*(1+1e-9),
			"core source decays monotonically toward the sink")
	}
	assert.Positive(t, res.FinalTissueMass)
	assert.Positive(t, res.TotalEffluxUmol)
}

func TestRobinPlasmaBookkeeping(t *testing.T) {
	p := smallGrid()
	p.Boundary = Robin
	p.Scheme = Implicit
	p.KDeg = 0
	p.PlasmaHalfLifeH = 1e12 // effectively no clearance

	res, err := Simulate(p, nil, 6, 0.05)
	require.NoError(t, err)

	// Everything that crossed the boundary sits in the plasma box.
	plasmaUmol := res.FinalPlasmaConc * p.PlasmaVolume * 1e-3
	assert.InEpsilon(t, res.TotalEffluxUmol, plasmaUmol, 1e-6)
	assert.Positive(t, res.FinalPlasmaConc)
}

func TestRobinApproachesDirichletAtHighBiot(t *testing.T) {
	dirichlet := smallGrid()
	dirichlet.Scheme = Implicit

	robin := smallGrid()
	robin.Scheme = Implicit
	robin.Boundary = Robin
	robin.ExchangeCoeff = 1000 // Biot >> 1
	robin.PlasmaVolume = 1e9   // plasma stays near zero

	rd, err := Simulate(dirichlet, nil, 4, 0.05)
	require.NoError(t, err)
	rr, err := Simulate(robin, nil, 4, 0.05)
	require.NoError(t, err)

	assert.Greater(t, rr.Biot, 100.0)
	assert.InEpsilon(t, rd.FinalTissueMass, rr.FinalTissueMass, 0.1,
		"fast exchange into an empty sink behaves like a Dirichlet boundary")
}

func TestLoadedFieldMassDecay(t *testing.T) {
	// No source, no degradation: a loaded field can only lose mass
	// through the sink, and the lost mass is the boundary efflux.
	p := smallGrid()
	p.SourceStrength = 0
	p.KDeg = 0

	init := make([]float64, p.GridPoints+1)
	dr := p.Radius / float64(p.GridPoints)
	for i := range init {
		r := float64(i) * dr
		init[i] = 1 - (r/p.Radius)*(r/p.Radius) // zero at the sink
	}

	res, err := Simulate(p, init, 2, 0.05)
	require.NoError(t, err)

	mass, ok := res.Table.Column("tissue_mass")
	require.True(t, ok)
	assert.Positive(t, mass[0])
	for i := 1; i < len(mass); i++ {
		assert.LessOrEqual(t, mass[i], mass[i-1]*(1+1e-12), "sample %d", i)
	}

	lost := mass[0] - res.FinalTissueMass
	assert.Positive(t, lost)
	assert.InEpsilon(t, lost, res.TotalEffluxUmol, 0.1,
		"mass lost from the tissue leaves through the boundary")
}

func TestInitialFieldValidation(t *testing.T) {
	p := smallGrid()

	_, err := Simulate(p, []float64{1, 2, 3}, 1, 0.01)
	var ce *sim.ConfigurationError
	require.ErrorAs(t, err, &ce)

	bad := make([]float64, p.GridPoints+1)
	bad[3] = -0.5
	_, err = Simulate(p, bad, 1, 0.01)
	var de *sim.DomainError
	require.ErrorAs(t, err, &de)
}

func TestSourceLinearity(t *testing.T) {
	p := smallGrid()
	p.Scheme = Implicit

	r1, err := Simulate(p, nil, 4, 0.1)
	require.NoError(t, err)

	p.SourceStrength *= 3
	r3, err := Simulate(p, nil, 4, 0.1)
	require.NoError(t, err)

	assert.InEpsilon(t, 3*r1.TotalEffluxUmol, r3.TotalEffluxUmol, 1e-9,
		"the PDE is linear in the source term")
	assert.InEpsilon(t, 3*r1.FinalTissueMass, r3.FinalTissueMass, 1e-9)
}

func TestValidation(t *testing.T) {
	p := Defaults()
	p.Boundary = "periodic"
	_, err := Simulate(p, nil, 1, 0.01)
	var ce *sim.ConfigurationError
	require.ErrorAs(t, err, &ce)

	p = Defaults()
	p.Scheme = "spectral"
	_, err = Simulate(p, nil, 1, 0.01)
	require.ErrorAs(t, err, &ce)

	p = Defaults()
	p.Diffusivity = 0
	_, err = Simulate(p, nil, 1, 0.01)
	var de *sim.DomainError
	require.ErrorAs(t, err, &de)

	p = Defaults()
	p.Boundary = Robin
	p.ExchangeCoeff = 0
	_, err = Simulate(p, nil, 1, 0.01)
	require.ErrorAs(t, err, &de)
}
