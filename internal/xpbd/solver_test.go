package xpbd

import (
	"errors"
	"math"
	"math/rand"
	"reflect"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/xpbd/internal/world"
)

func zeroGravity() Config {
	cfg := DefaultConfig()
	cfg.Gravity = mgl64.Vec2{}
	return cfg
}

func mustSolver(t testing.TB, cfg Config) *Solver {
	t.Helper()
	s, err := New(cfg)
	if err != nil {
		t.Fatalf("new solver: %v", err)
	}
	return s
}

func mustParticle(t testing.TB, w *world.World, pos, vel mgl64.Vec2, mass float64) world.Entity {
	t.Helper()
	p := world.NewParticle(pos, vel)
	p.Mass = mass
	e, err := w.SpawnParticle(p)
	if err != nil {
		t.Fatalf("spawn particle: %v", err)
	}
	return e
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(c *Config)
		valid  bool
	}{
		{"default", func(c *Config) {}, true},
		{"zero dt", func(c *Config) { c.Dt = 0 }, false},
		{"negative dt", func(c *Config) { c.Dt = -0.1 }, false},
		{"margin below one", func(c *Config) { c.SafetyMargin = 0.5 }, false},
		{"margin of exactly one", func(c *Config) { c.SafetyMargin = 1 }, false},
		{"margin just above one", func(c *Config) { c.SafetyMargin = 1.01 }, true},
		{"negative resting speed", func(c *Config) { c.RestingSpeed = -1 }, false},
		{"NaN gravity", func(c *Config) { c.Gravity = mgl64.Vec2{math.NaN(), 0} }, false},
		{"negative workers", func(c *Config) { c.Workers = -2 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.valid && err != nil {
				t.Errorf("expected valid, got %v", err)
			}
			if !tt.valid && !errors.Is(err, ErrInvalidConfig) {
				t.Errorf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestStageOrder(t *testing.T) {
	want := []Stage{
		CollectCollisionPairs, Integrate, ClearContacts, SolvePositions,
		UpdateVelocities, SolveVelocities, SyncTransforms,
	}
	if got := Stages(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if Integrate.String() != "integrate" {
		t.Errorf("unexpected stage name %q", Integrate.String())
	}
	if Stage(42).String() != "stage(42)" {
		t.Errorf("unexpected fallback name %q", Stage(42).String())
	}
}

func TestCollectCollisionPairs_Margin(t *testing.T) {
	tests := []struct {
		name string
		velA mgl64.Vec2
		want int
	}{
		{"resting bodies outside bare radii", mgl64.Vec2{}, 0},
		{"fast body within velocity margin", mgl64.Vec2{6, 0}, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := world.New()
			mustParticle(t, w, mgl64.Vec2{0, 0}, tt.velA, 1)
			mustParticle(t, w, mgl64.Vec2{1.1, 0}, mgl64.Vec2{}, 1)

			s := mustSolver(t, zeroGravity())
			if err := s.RunStage(w, CollectCollisionPairs); err != nil {
				t.Fatal(err)
			}
			if len(s.CollisionPairs()) != tt.want {
				t.Errorf("expected %d pairs, got %d", tt.want, len(s.CollisionPairs()))
			}
		})
	}
}

func TestCollectCollisionPairs_IgnoresStatics(t *testing.T) {
	w := world.New()
	mustParticle(t, w, mgl64.Vec2{0, 0}, mgl64.Vec2{}, 1)
	if _, err := w.SpawnStaticCircle(world.StaticCircle{Pos: mgl64.Vec2{0.5, 0}, Radius: 1}); err != nil {
		t.Fatal(err)
	}

	s := mustSolver(t, zeroGravity())
	if err := s.RunStage(w, CollectCollisionPairs); err != nil {
		t.Fatal(err)
	}
	if len(s.CollisionPairs()) != 0 {
		t.Errorf("static body leaked into pairs: %v", s.CollisionPairs())
	}
}

func TestStep_StaticCircleContact(t *testing.T) {
	tests := []struct {
		name       string
		pos, vel   mgl64.Vec2
		wantPos    mgl64.Vec2
		wantVel    mgl64.Vec2
		wantNormal mgl64.Vec2
	}{
		// integrates to x=0.05+1/60, then is pushed back to touching distance
		// and bounces off with its incoming speed
		{"elastic head-on", mgl64.Vec2{0.05, 0}, mgl64.Vec2{1, 0}, mgl64.Vec2{0, 0}, mgl64.Vec2{-1, 0}, mgl64.Vec2{1, 0}},
		// concentric: pushed straight down by the combined radius
		{"coincident centres", mgl64.Vec2{1, 0}, mgl64.Vec2{}, mgl64.Vec2{1, -1}, mgl64.Vec2{}, mgl64.Vec2{0, 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := world.New()
			static, err := w.SpawnStaticCircle(world.StaticCircle{Pos: mgl64.Vec2{1, 0}, Radius: 0.5, Restitution: 1})
			if err != nil {
				t.Fatal(err)
			}
			p := world.NewParticle(tt.pos, tt.vel)
			p.Restitution = 1
			ball, err := w.SpawnParticle(p)
			if err != nil {
				t.Fatal(err)
			}

			s := mustSolver(t, zeroGravity())
			if err := s.Step(w); err != nil {
				t.Fatal(err)
			}

			contacts := s.StaticContacts()
			if len(contacts) != 1 {
				t.Fatalf("expected 1 static contact, got %v", contacts)
			}
			c := contacts[0]
			if c.A != ball || c.B != static {
				t.Errorf("expected contact (%d,%d), got (%d,%d)", ball, static, c.A, c.B)
			}
			if !c.Normal.ApproxEqualThreshold(tt.wantNormal, 1e-9) {
				t.Errorf("expected normal %v, got %v", tt.wantNormal, c.Normal)
			}
			if len(s.Contacts()) != 0 {
				t.Errorf("expected no dynamic contacts, got %v", s.Contacts())
			}

			pos, _ := w.Pos.Get(ball)
			vel, _ := w.Vel.Get(ball)
			if !pos.ApproxEqualThreshold(tt.wantPos, 1e-9) {
				t.Errorf("expected position %v, got %v", tt.wantPos, pos)
			}
			if !vel.ApproxEqualThreshold(tt.wantVel, 1e-6) {
				t.Errorf("expected velocity %v, got %v", tt.wantVel, vel)
			}
			if got, _ := w.Pos.Get(static); got != (mgl64.Vec2{1, 0}) {
				t.Errorf("static circle moved to %v", got)
			}
		})
	}
}

func TestCollectCollisionPairs_ParallelMatchesSerial(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	w := world.New()
	for i := 0; i < 300; i++ {
		pos := mgl64.Vec2{rng.Float64() * 12, rng.Float64() * 12}
		vel := mgl64.Vec2{rng.Float64() - 0.5, rng.Float64() - 0.5}
		mustParticle(t, w, pos, vel, 1)
	}

	serialCfg := zeroGravity()
	serialCfg.Workers = 1
	parallelCfg := zeroGravity()
	parallelCfg.Workers = 4

	serial := mustSolver(t, serialCfg)
	parallel := mustSolver(t, parallelCfg)
	if err := serial.RunStage(w, CollectCollisionPairs); err != nil {
		t.Fatal(err)
	}
	if err := parallel.RunStage(w, CollectCollisionPairs); err != nil {
		t.Fatal(err)
	}

	if len(serial.CollisionPairs()) == 0 {
		t.Fatal("expected some pairs in a dense cloud")
	}
	if !reflect.DeepEqual(serial.CollisionPairs(), parallel.CollisionPairs()) {
		t.Error("parallel broad phase produced a different pair list")
	}
}

func TestSolvePositions_InverseMassSplit(t *testing.T) {
	w := world.New()
	light := mustParticle(t, w, mgl64.Vec2{0, 0}, mgl64.Vec2{}, 1)
	heavy := mustParticle(t, w, mgl64.Vec2{0.8, 0}, mgl64.Vec2{}, 3)

	s := mustSolver(t, zeroGravity())
	s.pairs = []Pair{{A: light, B: heavy}}
	if err := s.RunStage(w, SolvePositions); err != nil {
		t.Fatal(err)
	}

	posLight, _ := w.Pos.Get(light)
	posHeavy, _ := w.Pos.Get(heavy)
	if math.Abs(posLight.X()-(-0.15)) > 1e-12 {
		t.Errorf("expected light body at -0.15, got %f", posLight.X())
	}
	if math.Abs(posHeavy.X()-0.85) > 1e-12 {
		t.Errorf("expected heavy body at 0.85, got %f", posHeavy.X())
	}

	contacts := s.Contacts()
	if len(contacts) != 1 || contacts[0].Normal != (mgl64.Vec2{1, 0}) {
		t.Errorf("expected one contact along +X, got %v", contacts)
	}
}

func TestSolvePositions_CoincidentCenters(t *testing.T) {
	w := world.New()
	a := mustParticle(t, w, mgl64.Vec2{1, 1}, mgl64.Vec2{}, 1)
	b := mustParticle(t, w, mgl64.Vec2{1, 1}, mgl64.Vec2{}, 1)

	s := mustSolver(t, zeroGravity())
	s.pairs = []Pair{{A: b, B: a}}
	if err := s.RunStage(w, SolvePositions); err != nil {
		t.Fatal(err)
	}

	posA, _ := w.Pos.Get(a)
	posB, _ := w.Pos.Get(b)
	for _, c := range append(posA[:], posB[:]...) {
		if math.IsNaN(c) {
			t.Fatal("coincident centres produced NaN")
		}
	}
	if d := posA.Sub(posB).Len(); math.Abs(d-1) > 1e-12 {
		t.Errorf("expected bodies 1 apart, got %f", d)
	}
}

func TestSolvePositions_SelfPairAborts(t *testing.T) {
	w := world.New()
	a := mustParticle(t, w, mgl64.Vec2{}, mgl64.Vec2{}, 1)

	s := mustSolver(t, zeroGravity())
	s.pairs = []Pair{{A: a, B: a}}
	err := s.RunStage(w, SolvePositions)

	if !errors.Is(err, ErrSelfPair) {
		t.Fatalf("expected ErrSelfPair, got %v", err)
	}
	var se *StepError
	if !errors.As(err, &se) {
		t.Fatalf("expected *StepError, got %T", err)
	}
	if se.Stage != SolvePositions || se.A != a {
		t.Errorf("unexpected error context: %+v", se)
	}
}

func TestSolveVelocities_SelfContactAborts(t *testing.T) {
	w := world.New()
	a := mustParticle(t, w, mgl64.Vec2{}, mgl64.Vec2{}, 1)

	s := mustSolver(t, zeroGravity())
	s.contacts = []Contact{{A: a, B: a, Normal: mgl64.Vec2{1, 0}}}
	if err := s.RunStage(w, SolveVelocities); !errors.Is(err, ErrSelfPair) {
		t.Errorf("expected ErrSelfPair, got %v", err)
	}
}

func TestSolvePositions_StaleEntityAborts(t *testing.T) {
	w := world.New()
	a := mustParticle(t, w, mgl64.Vec2{0, 0}, mgl64.Vec2{}, 1)
	b := mustParticle(t, w, mgl64.Vec2{0.5, 0}, mgl64.Vec2{}, 1)

	s := mustSolver(t, zeroGravity())
	if err := s.RunStage(w, CollectCollisionPairs); err != nil {
		t.Fatal(err)
	}
	w.Despawn(a)

	err := s.RunStage(w, SolvePositions)
	if !errors.Is(err, ErrStaleEntity) {
		t.Fatalf("expected ErrStaleEntity, got %v", err)
	}
	if posB, _ := w.Pos.Get(b); posB != (mgl64.Vec2{0.5, 0}) {
		t.Errorf("aborted pass moved surviving body to %v", posB)
	}
}

func TestStep_BuffersDoNotLeakAcrossSteps(t *testing.T) {
	w := world.New()
	a := mustParticle(t, w, mgl64.Vec2{0, 0}, mgl64.Vec2{}, 1)
	mustParticle(t, w, mgl64.Vec2{0.9, 0}, mgl64.Vec2{}, 1)

	s := mustSolver(t, zeroGravity())
	if err := s.Step(w); err != nil {
		t.Fatal(err)
	}
	if len(s.Contacts()) != 1 {
		t.Fatalf("expected 1 contact, got %d", len(s.Contacts()))
	}

	w.Despawn(a)
	if err := s.Step(w); err != nil {
		t.Fatalf("step after despawn: %v", err)
	}
	if len(s.CollisionPairs()) != 0 || len(s.Contacts()) != 0 {
		t.Errorf("stale buffers survived: pairs=%v contacts=%v", s.CollisionPairs(), s.Contacts())
	}
	if s.Steps() != 2 {
		t.Errorf("expected 2 steps, got %d", s.Steps())
	}
}

func TestCircleBoxContact(t *testing.T) {
	half := mgl64.Vec2{1, 1}
	diag := 1 / math.Sqrt2

	tests := []struct {
		name   string
		center mgl64.Vec2
		hit    bool
		normal mgl64.Vec2
		depth  float64
	}{
		{"above top edge", mgl64.Vec2{0.2, 1.4}, true, mgl64.Vec2{0, -1}, 0.1},
		{"right of right edge", mgl64.Vec2{1.3, -0.5}, true, mgl64.Vec2{-1, 0}, 0.2},
		{"left of left edge", mgl64.Vec2{-1.3, 0}, true, mgl64.Vec2{1, 0}, 0.2},
		{"below bottom edge", mgl64.Vec2{0, -1.45}, true, mgl64.Vec2{0, 1}, 0.05},
		{"clear of box", mgl64.Vec2{0, 2}, false, mgl64.Vec2{}, 0},
		{"near corner but outside radius", mgl64.Vec2{1.4, 1.4}, false, mgl64.Vec2{}, 0},
		{"corner diagonal", mgl64.Vec2{1 + 0.2, 1 + 0.2}, true, mgl64.Vec2{-diag, -diag}, 0.5 - 0.2*math.Sqrt2},
		{"centre inside at origin pushes down", mgl64.Vec2{0, 0}, true, mgl64.Vec2{0, -1}, 1.5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, depth, hit := CircleBoxContact(tt.center, 0.5, mgl64.Vec2{}, half)
			if hit != tt.hit {
				t.Fatalf("hit = %v, want %v", hit, tt.hit)
			}
			if !hit {
				return
			}
			if !n.ApproxEqualThreshold(tt.normal, 1e-9) {
				t.Errorf("normal = %v, want %v", n, tt.normal)
			}
			if math.Abs(depth-tt.depth) > 1e-9 {
				t.Errorf("depth = %f, want %f", depth, tt.depth)
			}
		})
	}
}

func TestRestitutionVelocity(t *testing.T) {
	tests := []struct {
		name         string
		restingSpeed float64
		restitution  float64
		preNormal    float64
		want         float64
	}{
		{"closing contact bounces", 0, 0.5, 4, -2},
		{"separating contact adds nothing", 0, 0.5, -4, 0},
		{"inelastic", 0, 0, 4, 0},
		{"resting contact suppressed", 1, 0.5, 0.8, 0},
		{"above resting threshold", 1, 0.5, 1.2, -0.6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.RestingSpeed = tt.restingSpeed
			s := mustSolver(t, cfg)
			if got := s.restitutionVelocity(tt.restitution, tt.preNormal); math.Abs(got-tt.want) > 1e-12 {
				t.Errorf("got %f, want %f", got, tt.want)
			}
		})
	}
}

func TestSyncTransforms(t *testing.T) {
	w := world.New()
	e := mustParticle(t, w, mgl64.Vec2{0, 0}, mgl64.Vec2{}, 1)
	w.Pos.Set(e, mgl64.Vec2{2, -3})

	s := mustSolver(t, zeroGravity())
	if err := s.RunStage(w, SyncTransforms); err != nil {
		t.Fatal(err)
	}
	tr, _ := w.Transforms.Get(e)
	if tr.Translation != (mgl64.Vec3{2, -3, 0}) {
		t.Errorf("expected (2,-3,0), got %v", tr.Translation)
	}
}

func TestRunStageUnknown(t *testing.T) {
	s := mustSolver(t, DefaultConfig())
	if err := s.RunStage(world.New(), Stage(99)); err == nil {
		t.Error("expected error for unknown stage")
	}
}

func TestSetGravity(t *testing.T) {
	w := world.New()
	e := mustParticle(t, w, mgl64.Vec2{}, mgl64.Vec2{}, 2)

	s := mustSolver(t, zeroGravity())
	s.SetGravity(mgl64.Vec2{6, 0})
	if err := s.Step(w); err != nil {
		t.Fatal(err)
	}
	vel, _ := w.Vel.Get(e)
	if math.Abs(vel.X()-6*DefaultDt) > 1e-12 {
		t.Errorf("expected vx %f, got %f", 6*DefaultDt, vel.X())
	}
}
