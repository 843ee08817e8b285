// Package config assembles run configuration in three layers: built-in
// stage defaults, an optional JSON/YAML file, and explicit programmatic
// overrides. Later layers win per key; unset keys fall through.
package config

import (
	"fmt"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/viper"

	"github.com/XY3070/glufire/internal/diffusion"
	"github.com/XY3070/glufire/internal/gate"
	"github.com/XY3070/glufire/internal/metabolism"
	"github.com/XY3070/glufire/internal/population"
	"github.com/XY3070/glufire/internal/sim"
	"github.com/XY3070/glufire/internal/systemic"
)

// Run holds the shared execution controls.
type Run struct {
	HorizonH  float64 `mapstructure:"horizon_h"`
	DtH       float64 `mapstructure:"dt_h"`
	OutputDir string  `mapstructure:"output_dir"`
	Calibrate bool    `mapstructure:"calibrate"` // fit diffusion source before the spatial run
}

// Config is the full pipeline configuration.
type Config struct {
	Run         Run                         `mapstructure:"run"`
	Environment gate.Environment            `mapstructure:"environment"`
	Gate        gate.Params                 `mapstructure:"gate"`
	Metabolism  metabolism.Params           `mapstructure:"metabolism"`
	Population  population.Params           `mapstructure:"population"`
	Diffusion   diffusion.Params            `mapstructure:"diffusion"`
	Calibration diffusion.CalibrationTarget `mapstructure:"calibration"`
	Systemic    systemic.Params             `mapstructure:"systemic"`
	Seed        population.State            `mapstructure:"seed"`
}

// Default is the reference therapy configuration: tumor environment
// (1% O2, 42 C heat pulse held for the horizon) with every stage at its
// published parameterization.
func Default() Config {
	return Config{
		Run: Run{
			HorizonH:  24,
			DtH:       0.05,
			OutputDir: "out",
		},
		Environment: gate.Environment{OxygenFraction: 0.01, TemperatureC: 42},
		Gate:        gate.Defaults(),
		Metabolism:  metabolism.Defaults(),
		Population:  population.Defaults(),
		Diffusion:   diffusion.Defaults(),
		Calibration: diffusion.DefaultCalibration(),
		Systemic:    systemic.Defaults(),
		Seed:        population.State{LiveTarget: 5e8, LiveEffector: 1e6},
	}
}

// Control returns the default configuration flipped to the normoxic
// body-temperature control arm.
func Control() Config {
	cfg := Default()
	cfg.Environment = gate.Environment{OxygenFraction: 0.21, TemperatureC: 37}
	return cfg
}

// Load layers an optional config file and explicit overrides on top of
// the defaults. path may be empty; overrides use dotted viper keys
// ("gate.alpha", "run.horizon_h") and win over the file.
func Load(path string, overrides map[string]any) (Config, error) {
	cfg := Default()

	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return cfg, &sim.ConfigurationError{Field: "config_file", Reason: err.Error()}
		}
	}
	for key, val := range overrides {
		v.Set(key, val)
	}
	if path == "" && len(overrides) == 0 {
		return cfg, nil
	}

	weak := func(dc *mapstructure.DecoderConfig) { dc.WeaklyTypedInput = true }
	if err := v.Unmarshal(&cfg, weak); err != nil {
		return cfg, &sim.ConfigurationError{Field: "config_file", Reason: fmt.Sprintf("decode: %v", err)}
	}
	return cfg, nil
}

// Validate runs every stage's own validation so a bad file fails before
// any simulation work.
func (c Config) Validate() error {
	if c.Run.HorizonH <= 0 {
		return &sim.DomainError{Field: "run.horizon_h", Value: c.Run.HorizonH, Reason: "must be > 0"}
	}
	if c.Run.DtH <= 0 || c.Run.DtH > c.Run.HorizonH {
		return &sim.DomainError{Field: "run.dt_h", Value: c.Run.DtH, Reason: "must be > 0 and <= horizon"}
	}
	if err := c.Gate.Validate(); err != nil {
		return err
	}
	if err := c.Metabolism.Validate(); err != nil {
		return err
	}
	if err := c.Population.Validate(); err != nil {
		return err
	}
	if err := c.Diffusion.Validate(); err != nil {
		return err
	}
	return c.Systemic.Validate()
}
