// Package pipeline runs the full simulation chain for one environmental
// scenario: gate activity, metabolic production, population dynamics,
// spatial spreading (optionally after source calibration), and systemic
// distribution. Stages run in order because each consumes the previous
// stage's trajectory; a failure stops the chain but the bundle keeps
// every result produced up to that point.
package pipeline

import (
	"log"

	"github.com/XY3070/glufire/internal/config"
	"github.com/XY3070/glufire/internal/diffusion"
	"github.com/XY3070/glufire/internal/gate"
	"github.com/XY3070/glufire/internal/metabolism"
	"github.com/XY3070/glufire/internal/population"
	"github.com/XY3070/glufire/internal/sim"
	"github.com/XY3070/glufire/internal/systemic"
)

// Bundle collects per-stage results. Fields are nil for stages that did
// not run or failed.
type Bundle struct {
	Gate        *gate.Result
	Metabolism  *metabolism.Result
	Population  *population.Result
	Calibration *diffusion.CalibrationResult
	Diffusion   *diffusion.Result
	Systemic    *systemic.Result

	// FailedStage names the stage whose error aborted the chain; empty on
	// a complete run.
	FailedStage string
}

// ClampEvents flattens the safety-clamp records of every completed stage.
func (b *Bundle) ClampEvents() []sim.ClampEvent {
	var out []sim.ClampEvent
	if b.Gate != nil {
		out = append(out, b.Gate.ClampEvents...)
	}
	if b.Metabolism != nil {
		out = append(out, b.Metabolism.ClampEvents...)
	}
	if b.Population != nil {
		out = append(out, b.Population.ClampEvents...)
	}
	if b.Diffusion != nil {
		out = append(out, b.Diffusion.ClampEvents...)
	}
	if b.Systemic != nil {
		out = append(out, b.Systemic.ClampEvents...)
	}
	return out
}

// Tables lists every stage table that was produced, in pipeline order.
func (b *Bundle) Tables() []*sim.Table {
	var out []*sim.Table
	if b.Gate != nil {
		out = append(out, b.Gate.Table)
	}
	if b.Metabolism != nil {
		out = append(out, b.Metabolism.Table)
	}
	if b.Population != nil {
		out = append(out, b.Population.Table)
	}
	if b.Diffusion != nil {
		out = append(out, b.Diffusion.Table)
	}
	if b.Systemic != nil {
		out = append(out, b.Systemic.Table)
	}
	return out
}

// Run executes the chain for cfg. The returned bundle always carries the
// partial results; err is the first stage error, with Bundle.FailedStage
// naming where the chain stopped.
func Run(cfg config.Config) (*Bundle, error) {
	b := &Bundle{}
	if err := cfg.Validate(); err != nil {
		b.FailedStage = "config"
		return b, err
	}
	horizon, dt := cfg.Run.HorizonH, cfg.Run.DtH

	gr, err := gate.Simulate(cfg.Environment, cfg.Gate, horizon, dt)
	if err != nil {
		b.FailedStage = "gate"
		return b, err
	}
	b.Gate = gr
	log.Printf("gate: activity %.1f AU (O2 %.0f%%, T %.1f C)",
		gr.FinalActivity, cfg.Environment.OxygenFraction*100, cfg.Environment.TemperatureC)

	mr, err := metabolism.Simulate(metabolism.State{}, cfg.Metabolism,
		gr.Table.Time, gr.Activity, horizon, dt)
	if err != nil {
		b.FailedStage = "metabolism"
		return b, err
	}
	b.Metabolism = mr
	log.Printf("metabolism: extracellular %.3f mM at t=%g h",
		mr.Extracellular[len(mr.Extracellular)-1], horizon)

	pr, err := population.Simulate(cfg.Seed, cfg.Population,
		mr.Table.Time, mr.Extracellular, gr.Activity, horizon, dt)
	if err != nil {
		b.FailedStage = "population"
		return b, err
	}
	b.Population = pr
	log.Printf("population: live %.3g, dead %.3g", pr.FinalLive, pr.FinalDead)

	diff := cfg.Diffusion
	if cfg.Run.Calibrate {
		cal, err := diffusion.Calibrate(diff, cfg.Calibration)
		if err != nil {
			b.FailedStage = "calibration"
			return b, err
		}
		b.Calibration = cal
		diff.SourceStrength = cal.SourceStrength
		log.Printf("calibration: source %.4g after %d evaluations (residual %.2g)",
			cal.SourceStrength, cal.Iterations, cal.Residual)
	}

	dr, err := diffusion.Simulate(diff, nil, horizon, cfg.Calibration.DtH)
	if err != nil {
		b.FailedStage = "diffusion"
		return b, err
	}
	b.Diffusion = dr
	log.Printf("diffusion: efflux %.4g umol, Biot %.3g", dr.TotalEffluxUmol, dr.Biot)

	sr, err := systemic.Simulate(cfg.Systemic, mr.Table.Time, mr.SecretionFlux, horizon, dt)
	if err != nil {
		b.FailedStage = "systemic"
		return b, err
	}
	b.Systemic = sr
	for _, e := range sr.Exposure {
		if e.TimeAboveDangerH > 0 {
			log.Printf("systemic: %s above danger threshold for %.2f h (peak %.1f uM)",
				e.Compartment, e.TimeAboveDangerH, e.PeakUM)
		}
	}

	if n := len(b.ClampEvents()); n > 0 {
		log.Printf("safety clamp applied %d times across stages", n)
	}
	return b, nil
}
