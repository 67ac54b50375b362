package xpbd

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/xpbd/internal/world"
)

// below this many bodies the scan stays on one goroutine
const broadPhaseMinChunk = 64

type probe struct {
	e      world.Entity
	pos    mgl64.Vec2
	velSqr float64
	radius float64
}

// collectCollisionPairs finds every pair of dynamic circles that may touch
// during this step. The radius sum is padded by k·dt·sqrt(|vA|²+|vB|²) so fast
// approaching bodies are not missed.
func (s *Solver) collectCollisionPairs(w *world.World) error {
	s.pairs = s.pairs[:0]

	bodies := w.Query().With(w.Pos).With(w.Vel).With(w.Circles).With(w.Mass).Execute()
	n := len(bodies)
	if cap(s.probes) < n {
		s.probes = make([]probe, n)
	}
	probes := s.probes[:n]

	for i, e := range bodies {
		pos, ok := w.Pos.Get(e)
		if !ok {
			return stale(e, e, "position")
		}
		vel, ok := w.Vel.Get(e)
		if !ok {
			return stale(e, e, "velocity")
		}
		circle, ok := w.Circles.Get(e)
		if !ok {
			return stale(e, e, "circle collider")
		}
		probes[i] = probe{e: e, pos: pos, velSqr: vel.Dot(vel), radius: circle.Radius}
	}

	marginFactor := s.cfg.SafetyMargin * s.cfg.Dt
	marginFactorSqr := marginFactor * marginFactor

	if cap(s.buckets) < n {
		s.buckets = make([][]Pair, n)
	}
	buckets := s.buckets[:n]

	// probes are sorted by entity, so j < i gives A > B
	parallelFor(n, broadPhaseMinChunk, s.cfg.workers(), func(start, end int) {
		for i := start; i < end; i++ {
			a := probes[i]
			bucket := buckets[i][:0]
			for j := 0; j < i; j++ {
				b := probes[j]
				ab := b.pos.Sub(a.pos)
				marginSqr := marginFactorSqr * (a.velSqr + b.velSqr)
				combined := a.radius + b.radius + math.Sqrt(marginSqr)
				if ab.Dot(ab) < combined*combined {
					bucket = append(bucket, Pair{A: a.e, B: b.e})
				}
			}
			buckets[i] = bucket
		}
	})

	for _, bucket := range buckets {
		s.pairs = append(s.pairs, bucket...)
	}
	return nil
}
