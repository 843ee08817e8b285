package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableRowsAndColumns(t *testing.T) {
	tb := NewTable("t", []string{"x", "y"}, []string{"mM", "AU"})
	tb.AddRow(0, 1, 2)
	tb.AddRow(1, 3, 4)

	require.Equal(t, 2, tb.Len())
	x, ok := tb.Column("x")
	require.True(t, ok)
	assert.Equal(t, []float64{1, 3}, x)
	_, ok = tb.Column("z")
	assert.False(t, ok)
}

func TestTablePanicsOnShapeMismatch(t *testing.T) {
	assert.Panics(t, func() { NewTable("t", []string{"x"}, nil) })
	tb := NewTable("t", []string{"x"}, []string{"mM"})
	assert.Panics(t, func() { tb.AddRow(0, 1, 2) })
}

func TestLerp(t *testing.T) {
	times := []float64{0, 1, 3}
	values := []float64{10, 20, 40}

	assert.Equal(t, 10.0, Lerp(-1, times, values), "clamped below")
	assert.Equal(t, 40.0, Lerp(5, times, values), "clamped above")
	assert.Equal(t, 15.0, Lerp(0.5, times, values))
	assert.Equal(t, 30.0, Lerp(2, times, values))
	assert.Equal(t, 20.0, Lerp(1, times, values), "exact sample")
}

func TestTrapz(t *testing.T) {
	times := []float64{0, 1, 2}
	assert.Equal(t, 2.0, Trapz(times, []float64{1, 1, 1}))
	assert.Equal(t, 2.0, Trapz(times, []float64{0, 1, 2}), "triangle area")
	assert.Equal(t, 0.0, Trapz(times[:1], []float64{7}))
}

func TestTimeGrid(t *testing.T) {
	grid := TimeGrid(10, 0.5)
	require.Len(t, grid, 21)
	assert.Equal(t, 0.0, grid[0])
	assert.Equal(t, 10.0, grid[len(grid)-1], "last point lands exactly on the horizon")

	// A dt that does not divide the horizon still produces an inclusive
	// uniform grid ending at the horizon.
	grid = TimeGrid(1, 0.3)
	assert.Equal(t, 1.0, grid[len(grid)-1])
}
