package metrics

import (
	"math"

	"github.com/san-kum/xpbd/internal/world"
	"github.com/san-kum/xpbd/internal/xpbd"
)

// MaxSpeed is the fastest any dynamic body moved during the run.
type MaxSpeed struct {
	name  string
	speed float64
}

func NewMaxSpeed() *MaxSpeed {
	return &MaxSpeed{name: "max_speed"}
}

func (m *MaxSpeed) Name() string { return m.name }

func (m *MaxSpeed) Observe(w *world.World, s *xpbd.Solver, t float64) {
	for _, e := range w.Dynamics() {
		vel, _ := w.Vel.Get(e)
		m.speed = math.Max(m.speed, vel.Len())
	}
}

func (m *MaxSpeed) Value() float64 { return m.speed }

func (m *MaxSpeed) Reset() { m.speed = 0 }

// Stability is the fraction of ticks on which every dynamic body stayed below
// the speed threshold. A settled scene approaches 1.
type Stability struct {
	name       string
	threshold  float64
	violations int
	samples    int
}

func NewStability(threshold float64) *Stability {
	return &Stability{
		name:      "stability",
		threshold: threshold,
	}
}

func (s *Stability) Name() string {
	return s.name
}

func (s *Stability) Observe(w *world.World, solver *xpbd.Solver, t float64) {
	s.samples++
	for _, e := range w.Dynamics() {
		vel, _ := w.Vel.Get(e)
		if vel.Len() > s.threshold {
			s.violations++
			break
		}
	}
}

func (s *Stability) Value() float64 {
	if s.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(s.violations)/float64(s.samples)
}

func (s *Stability) Reset() {
	s.violations = 0
	s.samples = 0
}
