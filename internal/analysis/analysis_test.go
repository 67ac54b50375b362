package analysis

import (
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/xpbd/internal/sim"
	"github.com/san-kum/xpbd/internal/world"
	"github.com/san-kum/xpbd/internal/xpbd"
)

func TestPowerSpectrum_Sine(t *testing.T) {
	const (
		n    = 600
		dt   = 1.0 / 60
		freq = 2.5
	)
	data := make([]float64, n)
	for i := range data {
		data[i] = 3 + math.Sin(2*math.Pi*freq*float64(i)*dt)
	}

	ps := PowerSpectrum(data)
	if len(ps) != n/2 {
		t.Fatalf("expected %d bins, got %d", n/2, len(ps))
	}

	f, power := DominantFrequency(data, dt)
	if math.Abs(f-freq) > 0.1 {
		t.Errorf("expected dominant frequency %.2f, got %.2f", freq, f)
	}
	if power <= ps[0] {
		t.Errorf("expected mean removed, DC bin %f not below peak %f", ps[0], power)
	}
}

func TestPowerSpectrum_Short(t *testing.T) {
	if PowerSpectrum([]float64{1}) != nil {
		t.Error("expected nil spectrum for a single sample")
	}
	if f, _ := DominantFrequency(nil, 0.1); f != 0 {
		t.Errorf("expected zero frequency, got %f", f)
	}
}

func sampleStates() ([]sim.State, []float64) {
	return []sim.State{
			{0, 1, 0, -1},
			{0, 0.5, 0, -2, 5, 5, 0, 0},
			{0, 0.6, 0, 1, 5, 5, 0, 0},
			{0, 0.65, 0, 0.5},
		}, []float64{
			0, 0.1, 0.2, 0.3,
		}
}

func TestSeries(t *testing.T) {
	states, times := sampleStates()

	ts, ys := Series(states, times, 0, Y)
	if len(ys) != 4 || ys[1] != 0.5 {
		t.Errorf("unexpected series %v", ys)
	}

	ts, xs := Series(states, times, 1, X)
	if len(xs) != 2 || ts[0] != 0.1 || xs[0] != 5 {
		t.Errorf("expected sparse series for late body, got %v at %v", xs, ts)
	}

	if _, err := ParseComponent("vy"); err != nil {
		t.Error(err)
	}
	if _, err := ParseComponent("z"); err == nil {
		t.Error("expected error for unknown component")
	}
}

func TestPhasePortraitAndSection(t *testing.T) {
	states, _ := sampleStates()

	portrait := GeneratePhasePortrait(states, 0, Y, VY)
	if len(portrait.Points) != 4 {
		t.Fatalf("expected 4 points, got %d", len(portrait.Points))
	}
	art := PhasePortraitToASCII(portrait, 20, 10)
	if strings.Count(art, "\n") != 10 || !strings.Contains(art, "•") {
		t.Errorf("unexpected plot:\n%s", art)
	}

	section := GenerateSection(states, 0, VY, 0, X, Y)
	if len(section.Points) != 1 || section.Points[0].Y != 0.6 {
		t.Errorf("expected one bounce at y=0.6, got %v", section.Points)
	}
	if SectionToASCII(&Section{}, 10, 5) != "No crossings detected" {
		t.Error("expected placeholder for empty section")
	}
}

func dropScene(restitution, restingSpeed float64) (*sim.Simulator, error) {
	w := world.New()
	if _, err := w.SpawnStaticBox(world.StaticBox{Pos: mgl64.Vec2{0, -3}, Size: mgl64.Vec2{10, 2}}); err != nil {
		return nil, err
	}
	p := world.NewParticle(mgl64.Vec2{0, 1}, mgl64.Vec2{})
	p.Restitution = restitution
	if _, err := w.SpawnParticle(p); err != nil {
		return nil, err
	}
	cfg := xpbd.DefaultConfig()
	cfg.RestingSpeed = restingSpeed
	s, err := xpbd.New(cfg)
	if err != nil {
		return nil, err
	}
	return sim.New(w, s), nil
}

func TestDivergence_FreeFallDoesNotGrow(t *testing.T) {
	build := func() (*sim.Simulator, error) {
		w := world.New()
		if _, err := w.SpawnParticle(world.NewParticle(mgl64.Vec2{}, mgl64.Vec2{1, 0})); err != nil {
			return nil, err
		}
		s, err := xpbd.New(xpbd.DefaultConfig())
		if err != nil {
			return nil, err
		}
		return sim.New(w, s), nil
	}

	lambda, err := Divergence(build, 0, 1e-6, 1)
	if err != nil {
		t.Fatal(err)
	}
	if math.Abs(lambda) > 1e-3 {
		t.Errorf("expected zero growth for free flight, got %f", lambda)
	}

	if _, err := Divergence(build, 3, 1e-6, 1); err == nil {
		t.Error("expected error for missing body")
	}
}

func TestDivergence_StepCount(t *testing.T) {
	tests := []struct {
		duration float64
		want     int
	}{
		{1, 60},
		{0.1, 6},
		{2.5, 150},
		{7.0 / 60, 7},
	}

	for _, tt := range tests {
		var built []*sim.Simulator
		build := func() (*sim.Simulator, error) {
			s, err := dropScene(0.3, 0)
			built = append(built, s)
			return s, err
		}

		if _, err := Divergence(build, 0, 1e-6, tt.duration); err != nil {
			t.Fatal(err)
		}
		for _, s := range built {
			if got := s.Solver().Steps(); got != tt.want {
				t.Errorf("duration %v: expected %d steps, got %d", tt.duration, tt.want, got)
			}
		}
	}
}

func TestSweep_ReboundGrowsWithRestitution(t *testing.T) {
	build := func(e float64) (*sim.Simulator, error) { return dropScene(e, 0) }

	points, err := Sweep([]float64{0.2, 0.8}, build, 0, Y, 0.5, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(points) != 2 {
		t.Fatalf("expected 2 sweep points, got %d", len(points))
	}

	highest := func(p SweepPoint) float64 {
		h := math.Inf(-1)
		for _, v := range p.Values {
			h = math.Max(h, v)
		}
		return h
	}
	if len(points[1].Values) == 0 || highest(points[1]) <= highest(points[0]) {
		t.Errorf("expected higher rebounds for e=0.8: %v vs %v", points[1].Values, points[0].Values)
	}
	if SweepToASCII(points, 30, 10) == "" {
		t.Error("expected a plot")
	}

	if got := Linspace(0, 1, 5); len(got) != 5 || got[4] != 1 || got[2] != 0.5 {
		t.Errorf("unexpected linspace %v", got)
	}
}
