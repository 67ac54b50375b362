package analysis

import (
	"fmt"

	"github.com/san-kum/xpbd/internal/sim"
)

// Component selects one of the four per-body values in a snapshot.
type Component int

const (
	X Component = iota
	Y
	VX
	VY
)

var componentNames = [...]string{X: "x", Y: "y", VX: "vx", VY: "vy"}

func (c Component) String() string {
	if c < 0 || int(c) >= len(componentNames) {
		return fmt.Sprintf("component(%d)", int(c))
	}
	return componentNames[c]
}

func ParseComponent(s string) (Component, error) {
	for i, name := range componentNames {
		if name == s {
			return Component(i), nil
		}
	}
	return 0, fmt.Errorf("unknown component %q (want x, y, vx or vy)", s)
}

// Series extracts one component of one body. Snapshots that do not contain
// the body are skipped, so the returned times may be sparse.
func Series(states []sim.State, times []float64, body int, c Component) ([]float64, []float64) {
	ts := make([]float64, 0, len(states))
	vs := make([]float64, 0, len(states))
	for i, x := range states {
		if body < 0 || body >= x.Bodies() {
			continue
		}
		ts = append(ts, times[i])
		vs = append(vs, x[body*sim.StrideBody+int(c)])
	}
	return ts, vs
}
