// Package export writes simulation results to flat files and figures:
// CSV trajectories, PNG time-series charts, radial profile plots, and an
// MJPEG animation of the spreading front.
package export

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/XY3070/glufire/internal/diffusion"
	"github.com/XY3070/glufire/internal/sim"
	"github.com/XY3070/glufire/internal/systemic"
)

// WriteTable writes one stage table as <dir>/<name>.csv with a time_h
// column followed by "column (unit)" headers.
func WriteTable(dir string, tb *sim.Table) error {
	f, err := os.Create(filepath.Join(dir, tb.Name+".csv"))
	if err != nil {
		return fmt.Errorf("create csv for %s: %w", tb.Name, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"time_h"}
	for j, c := range tb.Columns {
		headers = append(headers, fmt.Sprintf("%s (%s)", c, tb.Units[j]))
	}
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write headers for %s: %w", tb.Name, err)
	}
	for i, t := range tb.Time {
		row := []string{strconv.FormatFloat(t, 'g', -1, 64)}
		for j := range tb.Columns {
			row = append(row, strconv.FormatFloat(tb.Series[j][i], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row for %s: %w", tb.Name, err)
		}
	}
	return nil
}

// WriteTables writes every table into dir.
func WriteTables(dir string, tables []*sim.Table) error {
	for _, tb := range tables {
		if err := WriteTable(dir, tb); err != nil {
			return err
		}
	}
	return nil
}

// WriteProfiles writes the radial concentration snapshots as
// profiles.csv: one row per node, one column per output time.
func WriteProfiles(dir string, res *diffusion.Result) error {
	f, err := os.Create(filepath.Join(dir, "profiles.csv"))
	if err != nil {
		return fmt.Errorf("create profiles csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	headers := []string{"r_mm"}
	for _, s := range res.Snapshots {
		headers = append(headers, fmt.Sprintf("t=%gh (mM)", s.TimeH))
	}
	if err := w.Write(headers); err != nil {
		return fmt.Errorf("write profile headers: %w", err)
	}
	for i, r := range res.Radii {
		row := []string{strconv.FormatFloat(r, 'g', -1, 64)}
		for _, s := range res.Snapshots {
			row = append(row, strconv.FormatFloat(s.Profile[i], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write profile row: %w", err)
		}
	}
	return nil
}

// WriteExposure writes the systemic risk report as exposure.csv.
func WriteExposure(dir string, exposures []systemic.Exposure) error {
	f, err := os.Create(filepath.Join(dir, "exposure.csv"))
	if err != nil {
		return fmt.Errorf("create exposure csv: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"compartment", "peak_uM", "time_of_peak_h",
		"time_above_caution_h", "time_above_danger_h",
		"caution_uM", "danger_uM",
	}); err != nil {
		return fmt.Errorf("write exposure headers: %w", err)
	}
	for _, e := range exposures {
		if err := w.Write([]string{
			e.Compartment,
			strconv.FormatFloat(e.PeakUM, 'g', -1, 64),
			strconv.FormatFloat(e.TimeOfPeakH, 'g', -1, 64),
			strconv.FormatFloat(e.TimeAboveCautionH, 'g', -1, 64),
			strconv.FormatFloat(e.TimeAboveDangerH, 'g', -1, 64),
			strconv.FormatFloat(e.CautionUM, 'g', -1, 64),
			strconv.FormatFloat(e.DangerUM, 'g', -1, 64),
		}); err != nil {
			return fmt.Errorf("write exposure row: %w", err)
		}
	}
	return nil
}

// WriteClampLog writes the safety-clamp audit trail as clamps.csv.
func WriteClampLog(dir string, events []sim.ClampEvent) error {
	f, err := os.Create(filepath.Join(dir, "clamps.csv"))
	if err != nil {
		return fmt.Errorf("create clamp log: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{"stage", "variable", "step", "time_h", "value"}); err != nil {
		return fmt.Errorf("write clamp headers: %w", err)
	}
	for _, e := range events {
		if err := w.Write([]string{
			e.Stage, e.Variable,
			strconv.Itoa(e.Step),
			strconv.FormatFloat(e.Time, 'g', -1, 64),
			strconv.FormatFloat(e.Value, 'g', -1, 64),
		}); err != nil {
			return fmt.Errorf("write clamp row: %w", err)
		}
	}
	return nil
}
