package sim

import (
	"fmt"
	"math"

	"github.com/san-kum/xpbd/internal/world"
	"github.com/san-kum/xpbd/internal/xpbd"
)

// State is a flattened snapshot of every dynamic body in id order:
// x, y, vx, vy per body.
type State []float64

const StrideBody = 4

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// Bodies returns how many bodies the snapshot holds.
func (s State) Bodies() int { return len(s) / StrideBody }

// Body returns the position and velocity of the i-th body in the snapshot.
func (s State) Body(i int) (x, y, vx, vy float64) {
	o := i * StrideBody
	return s[o], s[o+1], s[o+2], s[o+3]
}

// Snapshot reads the current state of every dynamic body.
func Snapshot(w *world.World) State {
	bodies := w.Dynamics()
	x := make(State, 0, len(bodies)*StrideBody)
	for _, e := range bodies {
		pos, _ := w.Pos.Get(e)
		vel, _ := w.Vel.Get(e)
		x = append(x, pos.X(), pos.Y(), vel.X(), vel.Y())
	}
	return x
}

// Metric accumulates a scalar over the ticks of a run.
type Metric interface {
	Name() string
	Observe(w *world.World, s *xpbd.Solver, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(w *world.World, t float64)
}

// Hook runs before every tick, outside the solver's exclusive section, so it
// may spawn and despawn bodies.
type Hook interface {
	BeforeStep(w *world.World, t float64) error
}

type HookFunc func(w *world.World, t float64) error

func (f HookFunc) BeforeStep(w *world.World, t float64) error { return f(w, t) }

type Config struct {
	Duration      float64
	Seed          int64
	ValidateState bool

	// RecordEvery keeps one snapshot every n ticks. Zero or one keeps all.
	RecordEvery int
}

func DefaultConfig() Config {
	return Config{
		Duration:      10.0,
		ValidateState: true,
		RecordEvery:   1,
	}
}

type Result struct {
	States     []State
	Times      []float64
	Metrics    map[string]float64
	StepsTaken int
	Errors     []error
}

// SimError reports a tick that could not complete.
type SimError struct {
	Time    float64
	Step    int
	Message string
	Err     error
}

func (e SimError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("step %d (t=%.4f): %s: %v", e.Step, e.Time, e.Message, e.Err)
	}
	return fmt.Sprintf("step %d (t=%.4f): %s", e.Step, e.Time, e.Message)
}

func (e SimError) Unwrap() error { return e.Err }
