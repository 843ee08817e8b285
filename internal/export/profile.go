package export

import (
	"fmt"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/XY3070/glufire/internal/diffusion"
)

// RadialProfilePNG plots the concentration-vs-radius curves for a handful
// of output times, saved as <dir>/profiles.png. At most maxCurves
// snapshots are drawn, spread evenly over the run.
func RadialProfilePNG(dir string, res *diffusion.Result, maxCurves int) error {
	if len(res.Snapshots) == 0 {
		return fmt.Errorf("radial profile plot: no snapshots")
	}
	if maxCurves < 2 {
		maxCurves = 2
	}

	p := plot.New()
	p.Title.Text = "Metabolite Concentration Profile"
	p.X.Label.Text = "r (mm)"
	p.Y.Label.Text = "C (mM)"

	stride := (len(res.Snapshots) + maxCurves - 1) / maxCurves
	if stride < 1 {
		stride = 1
	}
	var args []interface{}
	for i := 0; i < len(res.Snapshots); i += stride {
		s := res.Snapshots[i]
		pts := make(plotter.XYs, len(res.Radii))
		for j := range pts {
			pts[j].X = res.Radii[j]
			pts[j].Y = s.Profile[j]
		}
		args = append(args, fmt.Sprintf("t=%.1f h", s.TimeH), pts)
	}
	// Always include the final profile.
	last := res.Snapshots[len(res.Snapshots)-1]
	pts := make(plotter.XYs, len(res.Radii))
	for j := range pts {
		pts[j].X = res.Radii[j]
		pts[j].Y = last.Profile[j]
	}
	args = append(args, fmt.Sprintf("t=%.1f h", last.TimeH), pts)

	if err := plotutil.AddLines(p, args...); err != nil {
		return fmt.Errorf("add profile curves: %w", err)
	}
	if err := p.Save(8*vg.Inch, 4*vg.Inch, filepath.Join(dir, "profiles.png")); err != nil {
		return fmt.Errorf("save profile plot: %w", err)
	}
	return nil
}
