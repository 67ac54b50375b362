// Package spawn adds and removes bodies between solver ticks.
package spawn

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/xpbd/internal/config"
	"github.com/san-kum/xpbd/internal/world"
)

// Emitter spawns particles at a fixed rate with jittered position and velocity
// and culls every dynamic body that falls below the kill height.
type Emitter struct {
	cfg      config.EmitterConfig
	interval float64
	rng      *rand.Rand

	nextSpawn float64
	emitted   int
	culled    int
}

// NewEmitter creates an emitter whose jitter is reproducible for a given seed.
func NewEmitter(cfg config.EmitterConfig, seed int64) *Emitter {
	return &Emitter{
		cfg:      cfg,
		interval: 1 / cfg.Rate,
		rng:      rand.New(rand.NewSource(seed)),
	}
}

// BeforeStep spawns every particle due by time t, then culls fallen bodies.
func (e *Emitter) BeforeStep(w *world.World, t float64) error {
	for t >= e.nextSpawn && (e.cfg.Max == 0 || e.emitted < e.cfg.Max) {
		if _, err := w.SpawnParticle(e.next()); err != nil {
			return err
		}
		e.emitted++
		e.nextSpawn += e.interval
	}
	e.culled += Cull(w, e.cfg.KillHeight)
	return nil
}

// Emitted returns how many particles have been spawned so far.
func (e *Emitter) Emitted() int { return e.emitted }

// Culled returns how many bodies have been removed below the kill height.
func (e *Emitter) Culled() int { return e.culled }

func (e *Emitter) next() world.Particle {
	pos := e.cfg.Pos.Vec2().Add(e.jitter(e.cfg.PosJitter.Vec2()))
	vel := e.cfg.Vel.Vec2().Add(e.jitter(e.cfg.VelJitter.Vec2()))
	return e.cfg.Particle(pos, vel)
}

// jitter draws uniformly from a box of the given full width centred on zero.
func (e *Emitter) jitter(width mgl64.Vec2) mgl64.Vec2 {
	return mgl64.Vec2{
		(e.rng.Float64() - 0.5) * width.X(),
		(e.rng.Float64() - 0.5) * width.Y(),
	}
}

// Cull despawns every dynamic body whose centre is below height and returns
// how many were removed. Static bodies are never culled.
func Cull(w *world.World, height float64) int {
	removed := 0
	for _, e := range w.Dynamics() {
		pos, ok := w.Pos.Get(e)
		if ok && pos.Y() < height {
			w.Despawn(e)
			removed++
		}
	}
	return removed
}
