package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/XY3070/glufire/internal/sim"
)

var seriesColors = []drawing.Color{
	chart.ColorRed,
	chart.ColorGreen,
	chart.ColorBlue,
	{R: 255, G: 165, B: 0, A: 255}, // deep orange
	{R: 128, G: 0, B: 128, A: 255}, // purple
}

// TimeSeriesPNG renders every column of the table as one chart saved to
// <dir>/<name>.png.
func TimeSeriesPNG(dir string, tb *sim.Table) error {
	if tb.Len() < 2 {
		return fmt.Errorf("chart %s: need at least 2 samples, have %d", tb.Name, tb.Len())
	}

	var series []chart.Series
	for j, name := range tb.Columns {
		series = append(series, chart.ContinuousSeries{
			Name:    fmt.Sprintf("%s (%s)", name, tb.Units[j]),
			XValues: tb.Time,
			YValues: tb.Series[j],
			Style: chart.Style{
				StrokeColor: seriesColors[j%len(seriesColors)],
				StrokeWidth: 2.0,
			},
		})
	}

	graph := chart.Chart{
		Title:  tb.Name,
		Width:  900,
		Height: 500,
		XAxis: chart.XAxis{
			Name: "time (h)",
			Style: chart.Style{
				FontSize: 10.0,
			},
		},
		YAxis: chart.YAxis{
			Style: chart.Style{
				FontSize: 10.0,
			},
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	f, err := os.Create(filepath.Join(dir, tb.Name+".png"))
	if err != nil {
		return fmt.Errorf("create chart for %s: %w", tb.Name, err)
	}
	defer f.Close()
	if err := graph.Render(chart.PNG, f); err != nil {
		return fmt.Errorf("render chart for %s: %w", tb.Name, err)
	}
	return nil
}

// Charts renders one PNG per table into dir.
func Charts(dir string, tables []*sim.Table) error {
	for _, tb := range tables {
		if err := TimeSeriesPNG(dir, tb); err != nil {
			return err
		}
	}
	return nil
}
