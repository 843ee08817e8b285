// Package population couples target-cell, effector-cell and dead-cell
// populations: logistic growth against a shared carrying capacity, a
// metabolite-gated ferroptosis kill term moving live targets into the
// dead pool, and effector growth gated by the upstream regulatory
// activity.
package population

import (
	"github.com/XY3070/glufire/internal/hill"
	"github.com/XY3070/glufire/internal/ode"
	"github.com/XY3070/glufire/internal/sim"
)

const (
	iLiveTarget = iota
	iDeadTarget
	iLiveEffector
	nState
)

// Params configures the population ODE system. Rates per hour, cell
// numbers raw counts, metabolite in mM.
type Params struct {
	GrowthRate       float64 `mapstructure:"growth_rate"`        // r, 1/h
	CarryingCapacity float64 `mapstructure:"carrying_capacity"`  // K, cells
	KillMax          float64 `mapstructure:"kill_max"`           // 1/h
	KillHalfPoint    float64 `mapstructure:"kill_half_point"`    // Kh, mM
	KillHillN        float64 `mapstructure:"kill_hill_n"`        // n
	EffectorGrowth   float64 `mapstructure:"effector_growth"`    // r_eff, 1/h
	EffectorDilution float64 `mapstructure:"effector_dilution"`  // 1/h
	ActivationHalf   float64 `mapstructure:"activation_half"`    // gate half-point (AU)
	ActivationHillN  float64 `mapstructure:"activation_hill_n"`  // gate cooperativity
}

// Defaults mirrors the reference therapy scenario: slow tumor growth on
// the treatment timescale, a sharp kill switch around 0.5 mM.
func Defaults() Params {
	return Params{
		GrowthRate:       0.01,
		CarryingCapacity: 1e9,
		KillMax:          15,
		KillHalfPoint:    0.5,
		KillHillN:        5,
		EffectorGrowth:   0.2,
		EffectorDilution: 0.15,
		ActivationHalf:   1600,
		ActivationHillN:  4,
	}
}

// Validate checks the parameter invariants before integration.
func (p Params) Validate() error {
	checks := []struct {
		name     string
		value    float64
		positive bool
	}{
		{"population.growth_rate", p.GrowthRate, false},
		{"population.carrying_capacity", p.CarryingCapacity, true},
		{"population.kill_max", p.KillMax, false},
		{"population.kill_half_point", p.KillHalfPoint, true},
		{"population.kill_hill_n", p.KillHillN, true},
		{"population.effector_growth", p.EffectorGrowth, false},
		{"population.effector_dilution", p.EffectorDilution, false},
		{"population.activation_half", p.ActivationHalf, true},
		{"population.activation_hill_n", p.ActivationHillN, true},
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

// State is the initial cell census.
type State struct {
	LiveTarget   float64 `mapstructure:"live_target"`
	DeadTarget   float64 `mapstructure:"dead_target"`
	LiveEffector float64 `mapstructure:"live_effector"`
}

// KillRate evaluates the ferroptosis switch at metabolite concentration
// c; it is exactly zero at c=0.
func KillRate(c float64, p Params) float64 {
	return p.KillMax * hill.Switch(c, p.KillHalfPoint, p.KillHillN)
}

// Result carries the population trajectory and summary metrics.
type Result struct {
	Table         *sim.Table
	FinalLive     float64
	FinalDead     float64
	FinalEffector float64
	ClampEvents   []sim.ClampEvent
}

var varNames = [nState]string{"live_target", "dead_target", "live_effector"}

// Simulate integrates the population system under interpolated metabolite
// and regulatory-activity forcings sampled on forcingTimes.
func Simulate(init State, p Params, forcingTimes, metabolite, activity []float64, horizonH, dtH float64) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if horizonH <= 0 || dtH <= 0 {
		return nil, &sim.DomainError{Field: "horizon/dt", Value: horizonH, Reason: "horizon and dt must be > 0"}
	}
	if len(forcingTimes) == 0 || len(forcingTimes) != len(metabolite) || len(forcingTimes) != len(activity) {
		return nil, &sim.ConfigurationError{Field: "population.forcing", Reason: "metabolite/activity trajectories missing or misaligned"}
	}
	for i, v := range []float64{init.LiveTarget, init.DeadTarget, init.LiveEffector} {
		if v < 0 {
			return nil, &sim.DomainError{Field: varNames[i], Value: v, Reason: "initial population must be >= 0"}
		}
	}

	rhs := func(t float64, y, dydt []float64) {
		c := sim.Lerp(t, forcingTimes, metabolite)
		if c < 0 {
			c = 0
		}
		act := sim.Lerp(t, forcingTimes, activity)
		kill := KillRate(c, p)
		crowding := 1 - (y[iLiveTarget]+y[iLiveEffector])/p.CarryingCapacity
		gateTerm := hill.Switch(act, p.ActivationHalf, p.ActivationHillN)

		dydt[iLiveTarget] = p.GrowthRate*y[iLiveTarget]*crowding - kill*y[iLiveTarget]
		dydt[iDeadTarget] = kill * y[iLiveTarget]
		dydt[iLiveEffector] = p.EffectorGrowth*y[iLiveEffector]*crowding*gateTerm -
			p.EffectorDilution*y[iLiveEffector]
	}

	res := &Result{
		Table: sim.NewTable("population",
			[]string{"live_target", "dead_target", "live_effector"},
			[]string{"cells", "cells", "cells"}),
	}
	grid := sim.TimeGrid(horizonH, dtH)
	opt := ode.Options{Stage: "population", NonNegative: true,
		OnClamp: func(i, step int, t, v float64) {
			res.ClampEvents = append(res.ClampEvents, sim.ClampEvent{
				Stage: "population", Variable: varNames[i], Step: step, Time: t, Value: v,
			})
		}}
	y0 := []float64{init.LiveTarget, init.DeadTarget, init.LiveEffector}
	states, err := ode.Solve(rhs, y0, grid, opt)
	if err != nil {
		return nil, err
	}
	for i, t := range grid {
		s := states[i]
		res.Table.AddRow(t, s[iLiveTarget], s[iDeadTarget], s[iLiveEffector])
	}
	last := states[len(states)-1]
	res.FinalLive, res.FinalDead, res.FinalEffector = last[iLiveTarget], last[iDeadTarget], last[iLiveEffector]
	return res, nil
}
