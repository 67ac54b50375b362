package metrics

import (
	"fmt"
	"sort"

	"github.com/san-kum/xpbd/internal/sim"
)

// DefaultStabilitySpeed is the speed under which a body counts as settled.
const DefaultStabilitySpeed = 0.5

var constructors = map[string]func() sim.Metric{
	"kinetic_energy":  func() sim.Metric { return NewKineticEnergy() },
	"energy_drift":    func() sim.Metric { return NewEnergyDrift() },
	"contacts":        func() sim.Metric { return NewContacts() },
	"max_penetration": func() sim.Metric { return NewMaxPenetration() },
	"max_speed":       func() sim.Metric { return NewMaxSpeed() },
	"stability":       func() sim.Metric { return NewStability(DefaultStabilitySpeed) },
}

// Names lists the registered metrics in sorted order.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New returns fresh metrics by name.
func New(names ...string) ([]sim.Metric, error) {
	out := make([]sim.Metric, 0, len(names))
	for _, name := range names {
		ctor, ok := constructors[name]
		if !ok {
			return nil, fmt.Errorf("unknown metric: %s", name)
		}
		out = append(out, ctor())
	}
	return out, nil
}

// All returns one fresh instance of every registered metric.
func All() []sim.Metric {
	m, _ := New(Names()...)
	return m
}
