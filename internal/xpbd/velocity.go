package xpbd

import (
	"math"

	"github.com/san-kum/xpbd/internal/world"
)

// updateVelocities replaces each dynamic body's velocity with the one implied
// by its realised displacement over the step.
func (s *Solver) updateVelocities(w *world.World) error {
	dt := s.cfg.Dt
	bodies := w.Query().With(w.Pos).With(w.PrevPos).With(w.Vel).With(w.Mass).Execute()

	for _, e := range bodies {
		pos, okPos := w.Pos.Get(e)
		prev, okPrev := w.PrevPos.Get(e)
		if !okPos || !okPrev {
			return stale(e, e, "position")
		}
		w.Vel.Set(e, pos.Sub(prev).Mul(1/dt))
	}
	return nil
}

// restitutionVelocity is the separating speed to add back along the normal.
// It never adds closing velocity.
func (s *Solver) restitutionVelocity(restitution, preSolveNormalVel float64) float64 {
	if math.Abs(preSolveNormalVel) <= s.cfg.RestingSpeed {
		restitution = 0
	}
	return math.Min(0, -restitution*preSolveNormalVel)
}

// solveVelocities applies restitution impulses to dynamic-dynamic contacts.
func (s *Solver) solveVelocities(w *world.World) error {
	for _, c := range s.contacts {
		a, b, n := c.A, c.B, c.Normal
		if a == b {
			return selfPair(a)
		}

		velA, okA := w.Vel.Get(a)
		velB, okB := w.Vel.Get(b)
		if !okA || !okB {
			return stale(a, b, "velocity")
		}
		preA, okA := w.PreSolveVel.Get(a)
		preB, okB := w.PreSolveVel.Get(b)
		if !okA || !okB {
			return stale(a, b, "pre-solve velocity")
		}
		massA, okA := w.Mass.Get(a)
		massB, okB := w.Mass.Get(b)
		if !okA || !okB {
			return stale(a, b, "mass")
		}
		restA, okA := w.Restitution.Get(a)
		restB, okB := w.Restitution.Get(b)
		if !okA || !okB {
			return stale(a, b, "restitution")
		}

		preSolveNormalVel := preA.Sub(preB).Dot(n)
		normalVel := velA.Sub(velB).Dot(n)
		restitution := (restA + restB) / 2

		wA := 1 / massA
		wB := 1 / massB
		wSum := wA + wB

		rv := s.restitutionVelocity(restitution, preSolveNormalVel)
		impulse := n.Mul((-normalVel + rv) / wSum)

		w.Vel.Set(a, velA.Add(impulse.Mul(wA)))
		w.Vel.Set(b, velB.Sub(impulse.Mul(wB)))
	}
	return nil
}

// solveVelocitiesStatics applies restitution to dynamic-static contacts. Only
// the dynamic body changes.
func (s *Solver) solveVelocitiesStatics(w *world.World) error {
	for _, c := range s.staticContacts {
		a, b, n := c.A, c.B, c.Normal
		if a == b {
			return selfPair(a)
		}

		velA, okVel := w.Vel.Get(a)
		preA, okPre := w.PreSolveVel.Get(a)
		restA, okRest := w.Restitution.Get(a)
		if !okVel || !okPre || !okRest {
			return stale(a, b, "dynamic body state")
		}
		restB, ok := w.Restitution.Get(b)
		if !ok {
			return stale(a, b, "static restitution")
		}

		preSolveNormalVel := preA.Dot(n)
		normalVel := velA.Dot(n)
		restitution := (restA + restB) / 2

		rv := s.restitutionVelocity(restitution, preSolveNormalVel)
		w.Vel.Set(a, velA.Add(n.Mul(-normalVel+rv)))
	}
	return nil
}
