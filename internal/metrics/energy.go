package metrics

import (
	"math"

	"github.com/san-kum/xpbd/internal/world"
	"github.com/san-kum/xpbd/internal/xpbd"
)

// kinetic returns Σ½mv² over the dynamic bodies.
func kinetic(w *world.World) float64 {
	total := 0.0
	for _, e := range w.Dynamics() {
		vel, _ := w.Vel.Get(e)
		mass, _ := w.Mass.Get(e)
		total += 0.5 * mass * vel.Dot(vel)
	}
	return total
}

// potential returns Σ -m·g·p, zero at the origin.
func potential(w *world.World, s *xpbd.Solver) float64 {
	g := s.Config().Gravity
	total := 0.0
	for _, e := range w.Dynamics() {
		pos, _ := w.Pos.Get(e)
		mass, _ := w.Mass.Get(e)
		total -= mass * g.Dot(pos)
	}
	return total
}

// KineticEnergy is the mean total kinetic energy per tick.
type KineticEnergy struct {
	name    string
	samples int
	total   float64
}

func NewKineticEnergy() *KineticEnergy {
	return &KineticEnergy{name: "kinetic_energy"}
}

func (k *KineticEnergy) Name() string { return k.name }

func (k *KineticEnergy) Observe(w *world.World, s *xpbd.Solver, t float64) {
	k.total += kinetic(w)
	k.samples++
}

func (k *KineticEnergy) Value() float64 {
	if k.samples == 0 {
		return 0
	}
	return k.total / float64(k.samples)
}

func (k *KineticEnergy) Reset() {
	k.total = 0
	k.samples = 0
}

// EnergyDrift is the largest relative change of kinetic plus gravitational
// energy against the first observed tick. Collisions dissipate energy, so in
// most scenes this measures loss rather than integration error.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
}

func NewEnergyDrift() *EnergyDrift {
	return &EnergyDrift{name: "energy_drift"}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(w *world.World, s *xpbd.Solver, t float64) {
	energy := kinetic(w) + potential(w, s)

	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}
