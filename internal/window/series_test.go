package window

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDiffShift(t *testing.T) {
	xs := []float64{1, 4, 9, 16, 25}

	d := Diff(xs, 1)
	assert.True(t, math.IsNaN(d[0]))
	assert.Equal(t, []float64{3, 5, 7, 9}, d[1:])

	s := Shift(xs, 4)
	assert.True(t, math.IsNaN(s[3]))
	assert.Equal(t, 1.0, s[4])
}

func TestMinMax(t *testing.T) {
	lo, hi := MinMax([]float64{math.NaN(), 3, -2, 8})
	assert.Equal(t, -2.0, lo)
	assert.Equal(t, 8.0, hi)

	lo, hi = MinMax([]float64{math.NaN()})
	assert.True(t, math.IsNaN(lo))
	assert.True(t, math.IsNaN(hi))
}

func TestRankPct_MinTies(t *testing.T) {
	got := RankPct([]float64{math.NaN(), 5, 2, 5, 1})

	assert.True(t, math.IsNaN(got[0]))
	assert.InDelta(t, 3.0/4.0, got[1], 1e-12)
	assert.InDelta(t, 2.0/4.0, got[2], 1e-12)
	assert.InDelta(t, 3.0/4.0, got[3], 1e-12, "ties share the lowest rank")
	assert.InDelta(t, 1.0/4.0, got[4], 1e-12)
}

func TestPositionAll(t *testing.T) {
	tests := []struct {
		name      string
		x, lo, hi float64
		want      float64
		wantNaN   bool
	}{
		{name: "inside", x: 5, lo: 0, hi: 10, want: 0.5},
		{name: "at max", x: 10, lo: 0, hi: 10, want: 1},
		{name: "flat present", x: 3, lo: 3, hi: 3, want: 0.5},
		{name: "missing", x: math.NaN(), lo: 0, hi: 10, wantNaN: true},
		{name: "flat missing", x: math.NaN(), lo: 3, hi: 3, wantNaN: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := PositionAll(tt.x, tt.lo, tt.hi)
			if tt.wantNaN {
				assert.True(t, math.IsNaN(got))
				return
			}
			assert.InDelta(t, tt.want, got, 1e-12)
		})
	}
}

func TestPositionWindow(t *testing.T) {
	assert.True(t, math.IsNaN(PositionWindow(1, math.NaN(), 2)), "immature window")
	assert.Equal(t, 0.5, PositionWindow(4, 4, 4))
	assert.True(t, math.IsNaN(PositionWindow(math.NaN(), 4, 4)))
	assert.InDelta(t, 0.25, PositionWindow(1, 0, 4), 1e-12)
}

func TestOpposite(t *testing.T) {
	assert.True(t, Opposite(2, -3))
	assert.False(t, Opposite(2, 3))
	assert.False(t, Opposite(0, -3))
	assert.False(t, Opposite(math.NaN(), -3))
}
