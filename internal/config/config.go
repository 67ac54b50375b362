package config

import (
	"errors"
	"fmt"
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/xpbd/internal/world"
	"github.com/san-kum/xpbd/internal/xpbd"
)

const (
	DefaultDuration = 10.0
	DefaultScene    = "simple"
)

var ErrInvalidScene = errors.New("invalid scene")

// Vec is a 2D vector in scene files, written as {x: 1, y: 2}.
type Vec struct {
	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`
}

func (v Vec) Vec2() mgl64.Vec2 { return mgl64.Vec2{v.X, v.Y} }

func VecOf(v mgl64.Vec2) Vec { return Vec{X: v.X(), Y: v.Y()} }

// Config describes one scene: solver settings plus the bodies to spawn.
type Config struct {
	Scene        string  `yaml:"scene"`
	Dt           float64 `yaml:"dt"`
	Duration     float64 `yaml:"duration"`
	Seed         int64   `yaml:"seed"`
	Gravity      Vec     `yaml:"gravity,flow"`
	SafetyMargin float64 `yaml:"safety_margin"`
	RestingSpeed float64 `yaml:"resting_speed,omitempty"`
	Workers      int     `yaml:"workers,omitempty"`

	Bodies  []BodyConfig   `yaml:"bodies,omitempty"`
	Stacks  []StackConfig  `yaml:"stacks,omitempty"`
	Emitter *EmitterConfig `yaml:"emitter,omitempty"`
}

// BodyConfig is a single body. Kind is "circle" or "box"; boxes are always
// static. Zero radius, mass and missing restitution take the particle
// defaults.
type BodyConfig struct {
	Kind        string   `yaml:"kind"`
	Static      bool     `yaml:"static,omitempty"`
	Pos         Vec      `yaml:"pos,flow"`
	Vel         Vec      `yaml:"vel,flow,omitempty"`
	Radius      float64  `yaml:"radius,omitempty"`
	Size        Vec      `yaml:"size,flow,omitempty"`
	Mass        float64  `yaml:"mass,omitempty"`
	Restitution *float64 `yaml:"restitution,omitempty"`
}

// StackConfig lays out a grid of equal particles. Column j of row i sits at
// origin + ((j - cols/2)·column_spacing, i·row_spacing).
type StackConfig struct {
	Origin        Vec      `yaml:"origin,flow"`
	Rows          int      `yaml:"rows"`
	Cols          int      `yaml:"cols"`
	Radius        float64  `yaml:"radius"`
	ColumnSpacing float64  `yaml:"column_spacing"`
	RowSpacing    float64  `yaml:"row_spacing"`
	Restitution   *float64 `yaml:"restitution,omitempty"`
}

// EmitterConfig spawns particles at a fixed rate with uniform jitter of the
// given full width around pos and vel, and despawns bodies below kill_height.
type EmitterConfig struct {
	Rate        float64  `yaml:"rate"`
	Pos         Vec      `yaml:"pos,flow"`
	PosJitter   Vec      `yaml:"pos_jitter,flow"`
	Vel         Vec      `yaml:"vel,flow,omitempty"`
	VelJitter   Vec      `yaml:"vel_jitter,flow"`
	Radius      float64  `yaml:"radius"`
	Mass        float64  `yaml:"mass,omitempty"`
	Restitution *float64 `yaml:"restitution,omitempty"`
	KillHeight  float64  `yaml:"kill_height"`
	Max         int      `yaml:"max,omitempty"`
}

func DefaultConfig() *Config {
	return &Config{
		Scene:        DefaultScene,
		Dt:           xpbd.DefaultDt,
		Duration:     DefaultDuration,
		Gravity:      VecOf(xpbd.DefaultGravity),
		SafetyMargin: xpbd.DefaultSafetyMargin,
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Clone returns a deep copy, so presets can be tweaked without aliasing.
func (c *Config) Clone() *Config {
	out := *c
	out.Bodies = append([]BodyConfig(nil), c.Bodies...)
	out.Stacks = append([]StackConfig(nil), c.Stacks...)
	if c.Emitter != nil {
		e := *c.Emitter
		out.Emitter = &e
	}
	return &out
}

// Solver returns the solver settings of the scene.
func (c *Config) Solver() xpbd.Config {
	return xpbd.Config{
		Dt:           c.Dt,
		Gravity:      c.Gravity.Vec2(),
		SafetyMargin: c.SafetyMargin,
		RestingSpeed: c.RestingSpeed,
		Workers:      c.Workers,
	}
}

func (c *Config) Validate() error {
	if !(c.Dt > 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidScene, c.Dt)
	}
	if !(c.Duration > 0) {
		return fmt.Errorf("%w: duration must be positive, got %f", ErrInvalidScene, c.Duration)
	}
	if err := c.Solver().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidScene, err)
	}
	for i, b := range c.Bodies {
		if err := b.validate(); err != nil {
			return fmt.Errorf("%w: body %d: %v", ErrInvalidScene, i, err)
		}
	}
	for i, s := range c.Stacks {
		if s.Rows < 0 || s.Cols < 0 {
			return fmt.Errorf("%w: stack %d: negative grid %dx%d", ErrInvalidScene, i, s.Rows, s.Cols)
		}
		if err := s.particle(0, 0).Validate(); err != nil {
			return fmt.Errorf("%w: stack %d: %v", ErrInvalidScene, i, err)
		}
	}
	if e := c.Emitter; e != nil {
		if !(e.Rate > 0) || math.IsInf(e.Rate, 0) {
			return fmt.Errorf("%w: emitter rate must be positive, got %f", ErrInvalidScene, e.Rate)
		}
		if e.Max < 0 {
			return fmt.Errorf("%w: emitter max must be non-negative, got %d", ErrInvalidScene, e.Max)
		}
		if err := e.Particle(e.Pos.Vec2(), e.Vel.Vec2()).Validate(); err != nil {
			return fmt.Errorf("%w: emitter: %v", ErrInvalidScene, err)
		}
	}
	return nil
}

func (b BodyConfig) validate() error {
	switch {
	case b.Kind == "box":
		_, err := b.box()
		return err
	case b.Kind == "circle" && b.Static:
		return b.staticCircle().Validate()
	case b.Kind == "circle":
		return b.particle().Validate()
	default:
		return fmt.Errorf("unknown body kind %q", b.Kind)
	}
}

func (b BodyConfig) particle() world.Particle {
	p := world.NewParticle(b.Pos.Vec2(), b.Vel.Vec2())
	if b.Radius != 0 {
		p.Radius = b.Radius
	}
	if b.Mass != 0 {
		p.Mass = b.Mass
	}
	if b.Restitution != nil {
		p.Restitution = *b.Restitution
	}
	return p
}

func (b BodyConfig) staticCircle() world.StaticCircle {
	c := world.StaticCircle{Pos: b.Pos.Vec2(), Radius: world.DefaultRadius, Restitution: world.DefaultRestitution}
	if b.Radius != 0 {
		c.Radius = b.Radius
	}
	if b.Restitution != nil {
		c.Restitution = *b.Restitution
	}
	return c
}

func (b BodyConfig) box() (world.StaticBox, error) {
	if !b.Static {
		return world.StaticBox{}, errors.New("boxes must be static")
	}
	box := world.StaticBox{Pos: b.Pos.Vec2(), Size: b.Size.Vec2(), Restitution: world.DefaultRestitution}
	if b.Restitution != nil {
		box.Restitution = *b.Restitution
	}
	return box, box.Validate()
}

func (s StackConfig) particle(i, j int) world.Particle {
	pos := s.Origin.Vec2().Add(mgl64.Vec2{
		float64(j-s.Cols/2) * s.ColumnSpacing,
		float64(i) * s.RowSpacing,
	})
	p := world.NewParticle(pos, mgl64.Vec2{})
	p.Radius = s.Radius
	if s.Restitution != nil {
		p.Restitution = *s.Restitution
	}
	return p
}

// Particle builds an emitted particle at pos with velocity vel.
func (e EmitterConfig) Particle(pos, vel mgl64.Vec2) world.Particle {
	p := world.NewParticle(pos, vel)
	if e.Radius != 0 {
		p.Radius = e.Radius
	}
	if e.Mass != 0 {
		p.Mass = e.Mass
	}
	if e.Restitution != nil {
		p.Restitution = *e.Restitution
	}
	return p
}

// Build spawns the scene's fixed bodies into w. Stacks are spawned row by
// row, so entity order follows height. The emitter is not started here.
func (c *Config) Build(w *world.World) error {
	if err := c.Validate(); err != nil {
		return err
	}

	for i, b := range c.Bodies {
		var err error
		switch {
		case b.Kind == "box":
			box, _ := b.box()
			_, err = w.SpawnStaticBox(box)
		case b.Static:
			_, err = w.SpawnStaticCircle(b.staticCircle())
		default:
			_, err = w.SpawnParticle(b.particle())
		}
		if err != nil {
			return fmt.Errorf("body %d: %w", i, err)
		}
	}

	for n, s := range c.Stacks {
		for i := 0; i < s.Rows; i++ {
			for j := 0; j < s.Cols; j++ {
				if _, err := w.SpawnParticle(s.particle(i, j)); err != nil {
					return fmt.Errorf("stack %d (%d,%d): %w", n, i, j, err)
				}
			}
		}
	}
	return nil
}
