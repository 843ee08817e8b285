// Command glufire runs the engineered-strain therapy simulation pipeline:
// environment-gated activation, metabolite production, tumor kill
// dynamics, spatial spreading and systemic exposure. Results land in a
// timestamped folder as CSV tables, charts and a profile animation.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/XY3070/glufire/internal/config"
	"github.com/XY3070/glufire/internal/export"
	"github.com/XY3070/glufire/internal/pipeline"
)

var (
	flag_config    = flag.String("config", "", "Path to a JSON/YAML config file (optional)")
	flag_scenario  = flag.String("scenario", "therapy", "Scenario: therapy, control, or both")
	flag_outDir    = flag.String("out", "out", "Base output directory")
	flag_horizon   = flag.Float64("horizon", 0, "Override simulation horizon in hours (0 = from config)")
	flag_dt        = flag.Float64("dt", 0, "Override output step in hours (0 = from config)")
	flag_oxygen    = flag.Float64("oxygen", -1, "Override oxygen fraction 0..1 (-1 = from config)")
	flag_tempC     = flag.Float64("temp", -1, "Override temperature in C (-1 = from config)")
	flag_gateMode  = flag.String("gateMode", "", "Gate mode: algebraic or kinetic (empty = from config)")
	flag_boundary  = flag.String("boundary", "", "Diffusion boundary: dirichlet or robin (empty = from config)")
	flag_scheme    = flag.String("scheme", "", "Diffusion scheme: explicit or implicit (empty = from config)")
	flag_calibrate = flag.Bool("calibrate", false, "Fit the diffusion source strength before the spatial run")
	flag_calTarget = flag.Float64("calTarget", 0, "Calibration target: cumulative boundary efflux in umol (0 = from config)")
	flag_video     = flag.Bool("video", true, "Render the radial profile animation")
)

func main() {
	flag.Parse()

	overrides := map[string]any{}
	if *flag_horizon > 0 {
		overrides["run.horizon_h"] = *flag_horizon
	}
	if *flag_dt > 0 {
		overrides["run.dt_h"] = *flag_dt
	}
	if *flag_oxygen >= 0 {
		overrides["environment.oxygen_fraction"] = *flag_oxygen
	}
	if *flag_tempC >= 0 {
		overrides["environment.temperature_celsius"] = *flag_tempC
	}
	if *flag_gateMode != "" {
		overrides["gate.mode"] = *flag_gateMode
	}
	if *flag_boundary != "" {
		overrides["diffusion.boundary"] = *flag_boundary
	}
	if *flag_scheme != "" {
		overrides["diffusion.scheme"] = *flag_scheme
	}
	if *flag_calibrate {
		overrides["run.calibrate"] = true
	}
	if *flag_calTarget > 0 {
		overrides["calibration.target_efflux_umol"] = *flag_calTarget
	}

	var scenarios []string
	switch strings.ToLower(*flag_scenario) {
	case "therapy", "control":
		scenarios = []string{strings.ToLower(*flag_scenario)}
	case "both":
		scenarios = []string{"therapy", "control"}
	default:
		log.Fatalf("Unknown scenario %q: want therapy, control, or both", *flag_scenario)
	}

	timestamp := time.Now().Format("20060102_150405")
	for _, sc := range scenarios {
		cfg, err := config.Load(*flag_config, overrides)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		if sc == "control" && *flag_oxygen < 0 && *flag_tempC < 0 {
			cfg.Environment = config.Control().Environment
		}

		outputFolder := filepath.Join(*flag_outDir, fmt.Sprintf("%s_%s", sc, timestamp))
		if err := os.MkdirAll(outputFolder, os.ModePerm); err != nil {
			log.Fatalf("Failed to create folder: %v", err)
		}
		log.Printf("Running %s scenario, output in %s", sc, outputFolder)

		bundle, err := pipeline.Run(cfg)
		if err != nil {
			// Write whatever completed before the failing stage, then die.
			if werr := export.WriteTables(outputFolder, bundle.Tables()); werr != nil {
				log.Printf("Failed to write partial results: %v", werr)
			}
			log.Fatalf("Pipeline failed at stage %s: %v", bundle.FailedStage, err)
		}

		if err := export.WriteTables(outputFolder, bundle.Tables()); err != nil {
			log.Fatalf("Failed to write CSV tables: %v", err)
		}
		if err := export.Charts(outputFolder, bundle.Tables()); err != nil {
			log.Fatalf("Failed to render charts: %v", err)
		}
		if err := export.WriteProfiles(outputFolder, bundle.Diffusion); err != nil {
			log.Fatalf("Failed to write profiles: %v", err)
		}
		if err := export.RadialProfilePNG(outputFolder, bundle.Diffusion, 6); err != nil {
			log.Fatalf("Failed to render profile plot: %v", err)
		}
		if err := export.WriteExposure(outputFolder, bundle.Systemic.Exposure); err != nil {
			log.Fatalf("Failed to write exposure report: %v", err)
		}
		if events := bundle.ClampEvents(); len(events) > 0 {
			if err := export.WriteClampLog(outputFolder, events); err != nil {
				log.Fatalf("Failed to write clamp log: %v", err)
			}
		}
		if *flag_video {
			if err := export.ProfileVideo(outputFolder, bundle.Diffusion); err != nil {
				log.Fatalf("Failed to render profile video: %v", err)
			}
		}
		log.Printf("Scenario %s finished: live %.3g cells, efflux %.4g umol",
			sc, bundle.Population.FinalLive, bundle.Diffusion.TotalEffluxUmol)
	}
}
