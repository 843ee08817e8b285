// Package metabolism turns the gate's regulatory activity into
// intracellular and extracellular metabolite trajectories. Activity
// induces two enzymes (isocitrate dehydrogenase feeding the alpha-KG
// pool, glutamate dehydrogenase draining it into product), and a
// saturable transporter exports the product to the extracellular
// compartment where it accumulates net of first-order clearance.
package metabolism

import (
	"github.com/XY3070/glufire/internal/hill"
	"github.com/XY3070/glufire/internal/ode"
	"github.com/XY3070/glufire/internal/sim"
)

// State vector layout.
const (
	iEnzICD = iota
	iEnzGDH
	iAKG
	iGluIn
	iGluEx
	nState
)

// Params configures the metabolic ODE system. Rates are per hour,
// concentrations in mM, enzyme levels in arbitrary fold units.
type Params struct {
	KActivity     float64 `mapstructure:"k_activity"`     // activity half-point for induction (AU)
	HillN         float64 `mapstructure:"hill_n"`         // induction cooperativity
	EnzMaxICD     float64 `mapstructure:"enz_max_icd"`    // induction ceiling
	EnzMaxGDH     float64 `mapstructure:"enz_max_gdh"`    // induction ceiling
	TauEnzymeH    float64 `mapstructure:"tau_enzyme_h"`   // relaxation time constant (h)
	KcatICD       float64 `mapstructure:"kcat_icd"`       // mM/h per enzyme unit
	SubstratePool float64 `mapstructure:"substrate_pool"` // upstream isocitrate pool (mM, held)
	KmSubstrate   float64 `mapstructure:"km_substrate"`   // mM
	KcatGDH       float64 `mapstructure:"kcat_gdh"`       // mM/h per enzyme unit
	KmAKG         float64 `mapstructure:"km_akg"`         // mM
	KExportMax    float64 `mapstructure:"k_export_max"`   // mM/h
	KExport       float64 `mapstructure:"k_export"`       // transporter half-point (mM)
	ExportN       float64 `mapstructure:"export_n"`       // transporter cooperativity
	KDilution     float64 `mapstructure:"k_dilution"`     // 1/h
	VolumeRatio   float64 `mapstructure:"volume_ratio"`   // V_intra / V_extra
	KClearExt     float64 `mapstructure:"k_clear_ext"`    // 1/h extracellular clearance
	VExtraL       float64 `mapstructure:"v_extra_l"`      // extracellular volume (L), for flux export
}

// Defaults follows the reference parameterization; tau_enzyme_h well
// below the simulation horizon makes the induction arm stiff.
func Defaults() Params {
	return Params{
		KActivity:     1600,
		HillN:         6,
		EnzMaxICD:     40,
		EnzMaxGDH:     60,
		TauEnzymeH:    0.05,
		KcatICD:       2.5,
		SubstratePool: 1.0,
		KmSubstrate:   0.5,
		KcatGDH:       3.0,
		KmAKG:         0.64,
		KExportMax:    100,
		KExport:       5,
		ExportN:       1,
		KDilution:     0.15,
		VolumeRatio:   0.01,
		KClearExt:     0.05,
		VExtraL:       0.01,
	}
}

// Validate checks every rate constant before integration starts.
func (p Params) Validate() error {
	checks := []struct {
		name     string
		value    float64
		positive bool // must be strictly > 0 (denominator or time constant)
	}{
		{"metabolism.k_activity", p.KActivity, true},
		{"metabolism.hill_n", p.HillN, true},
		{"metabolism.enz_max_icd", p.EnzMaxICD, false},
		{"metabolism.enz_max_gdh", p.EnzMaxGDH, false},
		{"metabolism.tau_enzyme_h", p.TauEnzymeH, true},
		{"metabolism.kcat_icd", p.KcatICD, false},
		{"metabolism.substrate_pool", p.SubstratePool, false},
		{"metabolism.km_substrate", p.KmSubstrate, true},
		{"metabolism.kcat_gdh", p.KcatGDH, false},
		{"metabolism.km_akg", p.KmAKG, true},
		{"metabolism.k_export_max", p.KExportMax, false},
		{"metabolism.k_export", p.KExport, true},
		{"metabolism.export_n", p.ExportN, true},
		{"metabolism.k_dilution", p.KDilution, false},
		{"metabolism.volume_ratio", p.VolumeRatio, true},
		{"metabolism.k_clear_ext", p.KClearExt, false},
		{"metabolism.v_extra_l", p.VExtraL, true},
	}
	for _, c := range checks {
		if c.value < 0 || (c.positive && c.value == 0) {
			reason := "must be >= 0"
			if c.positive {
				reason = "must be > 0"
			}
			return &sim.DomainError{Field: c.name, Value: c.value, Reason: reason}
		}
	}
	return nil
}

// State is the initial condition; the zero value starts an uninduced
// cell with empty pools.
type State struct {
	EnzICD   float64
	EnzGDH   float64
	AKG      float64
	GluIntra float64
	GluExtra float64
}

// Result carries the full trajectory plus the series downstream stages
// consume.
type Result struct {
	Table         *sim.Table
	Extracellular []float64 // mM, aligned with Table.Time
	SecretionFlux []float64 // umol/h into the tumor compartment
	ClampEvents   []sim.ClampEvent
}

var varNames = [nState]string{"enzyme_icd", "enzyme_gdh", "akg", "glu_intra", "glu_extra"}

// Simulate integrates the metabolic system under the given regulatory
// activity trajectory (linearly interpolated between samples). The
// activity series must be aligned with activityTimes.
func Simulate(init State, p Params, activityTimes, activity []float64, horizonH, dtH float64) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if horizonH <= 0 || dtH <= 0 {
		return nil, &sim.DomainError{Field: "horizon/dt", Value: horizonH, Reason: "horizon and dt must be > 0"}
	}
	if len(activityTimes) == 0 || len(activityTimes) != len(activity) {
		return nil, &sim.ConfigurationError{Field: "metabolism.activity", Reason: "forcing trajectory missing or misaligned"}
	}
	for i, v := range []float64{init.EnzICD, init.EnzGDH, init.AKG, init.GluIntra, init.GluExtra} {
		if v < 0 {
			return nil, &sim.DomainError{Field: varNames[i], Value: v, Reason: "initial state must be >= 0"}
		}
	}

	rhs := func(t float64, y, dydt []float64) {
		act := sim.Lerp(t, activityTimes, activity)
		sig := hill.Switch(act, p.KActivity, p.HillN)

		vICD := p.KcatICD * y[iEnzICD] * p.SubstratePool / (p.KmSubstrate + p.SubstratePool)
		vGDH := p.KcatGDH * y[iEnzGDH] * y[iAKG] / (p.KmAKG + y[iAKG])
		vExp := p.KExportMax * hill.Switch(y[iGluIn], p.KExport, p.ExportN)

		dydt[iEnzICD] = (p.EnzMaxICD*sig - y[iEnzICD]) / p.TauEnzymeH
		dydt[iEnzGDH] = (p.EnzMaxGDH*sig - y[iEnzGDH]) / p.TauEnzymeH
		dydt[iAKG] = vICD - vGDH - p.KDilution*y[iAKG]
		dydt[iGluIn] = vGDH - vExp - p.KDilution*y[iGluIn]
		dydt[iGluEx] = vExp*p.VolumeRatio - p.KClearExt*y[iGluEx]
	}

	res := &Result{
		Table: sim.NewTable("metabolism",
			[]string{"enzyme_icd", "enzyme_gdh", "akg", "glu_intra", "glu_extra"},
			[]string{"AU", "AU", "mM", "mM", "mM"}),
	}
	grid := sim.TimeGrid(horizonH, dtH)
	opt := ode.Options{Stage: "metabolism", NonNegative: true,
		OnClamp: func(i, step int, t, v float64) {
			res.ClampEvents = append(res.ClampEvents, sim.ClampEvent{
				Stage: "metabolism", Variable: varNames[i], Step: step, Time: t, Value: v,
			})
		}}
	y0 := []float64{init.EnzICD, init.EnzGDH, init.AKG, init.GluIntra, init.GluExtra}
	states, err := ode.Solve(rhs, y0, grid, opt)
	if err != nil {
		return nil, err
	}
	for i, t := range grid {
		s := states[i]
		res.Table.AddRow(t, s[iEnzICD], s[iEnzGDH], s[iAKG], s[iGluIn], s[iGluEx])
		res.Extracellular = append(res.Extracellular, s[iGluEx])
	}
	res.SecretionFlux = secretionFlux(grid, res.Extracellular, p.VExtraL)
	return res, nil
}

// secretionFlux converts the extracellular concentration series into a
// tumor-compartment secretion flux in umol/h: d/dt(C*V_ext)*1000, with
// net reuptake (negative flux) clipped to zero.
func secretionFlux(t, concMM []float64, vExtL float64) []float64 {
	flux := make([]float64, len(t))
	for i := range t {
		var dcdt float64
		switch {
		case len(t) < 2:
			dcdt = 0
		case i == 0:
			dcdt = (concMM[1] - concMM[0]) / (t[1] - t[0])
		case i == len(t)-1:
			dcdt = (concMM[i] - concMM[i-1]) / (t[i] - t[i-1])
		default:
			dcdt = (concMM[i+1] - concMM[i-1]) / (t[i+1] - t[i-1])
		}
		f := 1000 * vExtL * dcdt // mM*L/h -> umol/h
		if f < 0 {
			f = 0
		}
		flux[i] = f
	}
	return flux
}
