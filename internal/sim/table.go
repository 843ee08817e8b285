package sim

import "fmt"

// Table is the tabular view of one stage's trajectory: a shared time grid
// in hours plus one column per state variable. Column order is fixed at
// construction and documented per stage.
type Table struct {
	Name    string
	Columns []string
	Units   []string
	Time    []float64
	Series  [][]float64 // Series[j] is column j, aligned with Time
}

// NewTable allocates an empty table with the given column layout.
func NewTable(name string, columns, units []string) *Table {
	if len(units) != len(columns) {
		panic(fmt.Sprintf("table %s: %d columns but %d units", name, len(columns), len(units)))
	}
	series := make([][]float64, len(columns))
	return &Table{Name: name, Columns: columns, Units: units, Series: series}
}

// AddRow appends one sample; values must match the column count.
func (tb *Table) AddRow(t float64, values ...float64) {
	if len(values) != len(tb.Columns) {
		panic(fmt.Sprintf("table %s: row has %d values, want %d", tb.Name, len(values), len(tb.Columns)))
	}
	tb.Time = append(tb.Time, t)
	for j, v := range values {
		tb.Series[j] = append(tb.Series[j], v)
	}
}

// Column returns the series for the named column.
func (tb *Table) Column(name string) ([]float64, bool) {
	for j, c := range tb.Columns {
		if c == name {
			return tb.Series[j], true
		}
	}
	return nil, false
}

// Len reports the number of samples.
func (tb *Table) Len() int { return len(tb.Time) }

// ClampEvent records one application of the negative-value safety clamp.
// Clamping is a designed stabilization, not error suppression, so every
// occurrence is reported alongside the trajectory instead of being
// swallowed.
type ClampEvent struct {
	Stage    string
	Variable string
	Step     int
	Time     float64
	Value    float64 // the negative excursion that was clamped to zero
}

// Lerp linearly interpolates a sampled forcing series at time t. Times
// must be ascending; queries outside the grid take the boundary value.
func Lerp(t float64, times, values []float64) float64 {
	n := len(times)
	if n == 0 {
		return 0
	}
	if t <= times[0] {
		return values[0]
	}
	if t >= times[n-1] {
		return values[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if times[mid] <= t {
			lo = mid
		} else {
			hi = mid
		}
	}
	span := times[hi] - times[lo]
	if span <= 0 {
		return values[lo]
	}
	w := (t - times[lo]) / span
	return values[lo]*(1-w) + values[hi]*w
}

// Trapz integrates y over t by the trapezoid rule.
func Trapz(t, y []float64) float64 {
	var sum float64
	for i := 1; i < len(t); i++ {
		sum += 0.5 * (y[i] + y[i-1]) * (t[i] - t[i-1])
	}
	return sum
}

// TimeGrid builds an inclusive uniform grid from 0 to horizon with the
// given step. The final point always lands on the horizon.
func TimeGrid(horizon, dt float64) []float64 {
	n := int(horizon/dt + 0.5)
	if n < 1 {
		n = 1
	}
	grid := make([]float64, n+1)
	for i := 0; i <= n; i++ {
		grid[i] = float64(i) * horizon / float64(n)
	}
	return grid
}
