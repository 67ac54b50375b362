package analysis

import (
	"fmt"

	"github.com/san-kum/xpbd/internal/sim"
)

// SweepPoint holds the distinct local maxima of a component for one
// parameter value.
type SweepPoint struct {
	Param  float64
	Values []float64
}

// Sweep runs a fresh scene for every value of a parameter, lets it settle
// for transient seconds, then records the distinct local maxima of one
// component of one body for record seconds. For a dropped ball swept over
// restitution this gives the rebound heights.
func Sweep(
	params []float64,
	build func(param float64) (*sim.Simulator, error),
	body int,
	c Component,
	transient, record float64,
) ([]SweepPoint, error) {
	results := make([]SweepPoint, 0, len(params))

	for _, param := range params {
		s, err := build(param)
		if err != nil {
			return nil, fmt.Errorf("param %g: %w", param, err)
		}

		for s.Time() < transient {
			if err := s.Step(); err != nil {
				return nil, fmt.Errorf("param %g: %w", param, err)
			}
		}

		values := make([]float64, 0)
		seen := make(map[int]bool)
		var window [3]float64
		n := 0

		for s.Time() < transient+record {
			if err := s.Step(); err != nil {
				return nil, fmt.Errorf("param %g: %w", param, err)
			}
			x := sim.Snapshot(s.World())
			if body >= x.Bodies() {
				continue
			}
			window[0], window[1], window[2] = window[1], window[2], x[body*sim.StrideBody+int(c)]
			n++
			if n < 3 || !(window[1] > window[0] && window[1] >= window[2]) {
				continue
			}
			// quantize to find distinct values
			key := int(window[1] * 1000)
			if !seen[key] {
				seen[key] = true
				values = append(values, window[1])
			}
		}

		results = append(results, SweepPoint{Param: param, Values: values})
	}

	return results, nil
}

// Linspace returns n evenly spaced values from lo to hi inclusive.
func Linspace(lo, hi float64, n int) []float64 {
	if n <= 1 {
		return []float64{lo}
	}
	out := make([]float64, n)
	step := (hi - lo) / float64(n-1)
	for i := range out {
		out[i] = lo + float64(i)*step
	}
	return out
}

// SweepToASCII plots every recorded value against its parameter column.
func SweepToASCII(data []SweepPoint, width, height int) string {
	pts := make([]Point, 0)
	for _, p := range data {
		for _, v := range p.Values {
			pts = append(pts, Point{X: p.Param, Y: v})
		}
	}
	if len(pts) == 0 || width <= 1 || height <= 1 {
		return ""
	}

	b := paddedBounds(pts)
	grid := newGrid(width, height)
	for _, p := range pts {
		row, col := b.cell(p, width, height)
		if row >= 0 && row < height && col >= 0 && col < width {
			grid[row][col] = '·'
		}
	}
	return render(grid)
}
