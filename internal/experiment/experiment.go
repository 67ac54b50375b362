// Package experiment assembles a runnable simulator from a scene config.
package experiment

import (
	"context"
	"fmt"

	"github.com/san-kum/xpbd/internal/config"
	"github.com/san-kum/xpbd/internal/metrics"
	"github.com/san-kum/xpbd/internal/sim"
	"github.com/san-kum/xpbd/internal/spawn"
	"github.com/san-kum/xpbd/internal/world"
	"github.com/san-kum/xpbd/internal/xpbd"
)

type Experiment struct {
	cfg       *config.Config
	simulator *sim.Simulator
	emitter   *spawn.Emitter
}

// New spawns the scene, creates its solver and attaches the named metrics.
// A configured emitter runs as a pre-step hook seeded with cfg.Seed.
func New(cfg *config.Config, metricNames ...string) (*Experiment, error) {
	w := world.New()
	if err := cfg.Build(w); err != nil {
		return nil, fmt.Errorf("build scene %q: %w", cfg.Scene, err)
	}
	solver, err := xpbd.New(cfg.Solver())
	if err != nil {
		return nil, err
	}
	ms, err := metrics.New(metricNames...)
	if err != nil {
		return nil, err
	}

	e := &Experiment{cfg: cfg.Clone(), simulator: sim.New(w, solver)}
	if cfg.Emitter != nil {
		e.emitter = spawn.NewEmitter(*cfg.Emitter, cfg.Seed)
		e.simulator.AddHook(e.emitter)
	}
	for _, m := range ms {
		e.simulator.AddMetric(m)
	}
	return e, nil
}

// Run simulates the configured duration, keeping every recordEvery-th state.
func (e *Experiment) Run(ctx context.Context, recordEvery int) (*sim.Result, error) {
	cfg := sim.DefaultConfig()
	cfg.Duration = e.cfg.Duration
	cfg.Seed = e.cfg.Seed
	if recordEvery > 0 {
		cfg.RecordEvery = recordEvery
	}
	return e.simulator.Run(ctx, cfg)
}

func (e *Experiment) Simulator() *sim.Simulator { return e.simulator }

// Emitter returns the scene's emitter, or nil when the scene has none.
func (e *Experiment) Emitter() *spawn.Emitter { return e.emitter }

func (e *Experiment) Config() *config.Config { return e.cfg }

// Factory builds simulators of cfg for an ensemble. Each run gets its own
// copy of the config with the run's seed.
func Factory(cfg *config.Config) sim.Factory {
	return func(seed int64) (*sim.Simulator, error) {
		c := cfg.Clone()
		c.Seed = seed
		e, err := New(c)
		if err != nil {
			return nil, err
		}
		return e.Simulator(), nil
	}
}
