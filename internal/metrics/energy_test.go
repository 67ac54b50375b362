package metrics

import (
	"context"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/xpbd/internal/sim"
	"github.com/san-kum/xpbd/internal/world"
	"github.com/san-kum/xpbd/internal/xpbd"
)

func newSolver(t *testing.T, gravity mgl64.Vec2) *xpbd.Solver {
	t.Helper()
	cfg := xpbd.DefaultConfig()
	cfg.Gravity = gravity
	s, err := xpbd.New(cfg)
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func spawn(t *testing.T, w *world.World, pos, vel mgl64.Vec2, mass float64) {
	t.Helper()
	p := world.NewParticle(pos, vel)
	p.Mass = mass
	if _, err := w.SpawnParticle(p); err != nil {
		t.Fatal(err)
	}
}

func TestKineticEnergy(t *testing.T) {
	w := world.New()
	spawn(t, w, mgl64.Vec2{0, 0}, mgl64.Vec2{3, 4}, 2)
	spawn(t, w, mgl64.Vec2{5, 0}, mgl64.Vec2{1, 0}, 1)

	m := NewKineticEnergy()
	m.Observe(w, newSolver(t, mgl64.Vec2{}), 0)

	expected := 0.5*2*25 + 0.5*1*1
	if math.Abs(m.Value()-expected) > 1e-12 {
		t.Errorf("expected energy %f, got %f", expected, m.Value())
	}

	m.Reset()
	if m.Value() != 0 {
		t.Error("expected zero energy after reset")
	}
}

func TestEnergyDriftFreeFall(t *testing.T) {
	w := world.New()
	spawn(t, w, mgl64.Vec2{0, 10}, mgl64.Vec2{}, 1)
	s := newSolver(t, xpbd.DefaultGravity)

	simulator := sim.New(w, s)
	simulator.AddMetric(NewEnergyDrift())
	result, err := simulator.Run(context.Background(), sim.Config{Duration: 1})
	if err != nil {
		t.Fatal(err)
	}

	// symplectic Euler keeps free-fall energy within O(dt)
	if drift := result.Metrics["energy_drift"]; drift > 0.05 {
		t.Errorf("free fall drifted by %f", drift)
	}
}

func TestContactsAndPenetration(t *testing.T) {
	w := world.New()
	if _, err := w.SpawnStaticBox(world.StaticBox{Pos: mgl64.Vec2{0, -3}, Size: mgl64.Vec2{10, 2}}); err != nil {
		t.Fatal(err)
	}
	// a short column leaves residual overlap between the balls
	for i := 0; i < 3; i++ {
		spawn(t, w, mgl64.Vec2{0, -1.5 + float64(i)*0.9}, mgl64.Vec2{}, 1)
	}
	s := newSolver(t, xpbd.DefaultGravity)

	contacts := NewContacts()
	penetration := NewMaxPenetration()
	if err := s.Step(w); err != nil {
		t.Fatal(err)
	}
	contacts.Observe(w, s, 0)
	penetration.Observe(w, s, 0)

	if contacts.Value() < 3 {
		t.Errorf("expected at least 3 contacts, got %f", contacts.Value())
	}
	if penetration.Value() <= 0 || penetration.Value() > 0.2 {
		t.Errorf("expected small positive residual overlap, got %f", penetration.Value())
	}

	contacts.Reset()
	penetration.Reset()
	if contacts.Value() != 0 || penetration.Value() != 0 {
		t.Error("expected zero after reset")
	}
}

func TestStabilityAndMaxSpeed(t *testing.T) {
	w := world.New()
	spawn(t, w, mgl64.Vec2{}, mgl64.Vec2{0, 2}, 1)
	s := newSolver(t, mgl64.Vec2{})

	stability := NewStability(1)
	speed := NewMaxSpeed()
	stability.Observe(w, s, 0)
	speed.Observe(w, s, 0)

	if stability.Value() != 0 {
		t.Errorf("expected no stable ticks, got %f", stability.Value())
	}
	if speed.Value() != 2 {
		t.Errorf("expected max speed 2, got %f", speed.Value())
	}

	stability.Reset()
	if stability.Value() != 1 {
		t.Error("expected stability 1 with no samples")
	}
}

func TestRegistry(t *testing.T) {
	if len(All()) != len(Names()) {
		t.Errorf("expected one metric per name")
	}
	for _, m := range All() {
		if _, err := New(m.Name()); err != nil {
			t.Errorf("metric %q not constructible by its own name", m.Name())
		}
	}
	if _, err := New("nope"); err == nil {
		t.Error("expected error for unknown metric")
	}
}
