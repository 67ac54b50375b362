package xpbd

import "github.com/san-kum/xpbd/internal/world"

// integrate advances dynamic bodies with semi-implicit Euler and snapshots
// the pre-solve velocity. Static bodies are never visited.
func (s *Solver) integrate(w *world.World) error {
	dt := s.cfg.Dt
	bodies := w.Query().With(w.Pos).With(w.Vel).With(w.Mass).Execute()

	for _, e := range bodies {
		pos, okPos := w.Pos.Get(e)
		vel, okVel := w.Vel.Get(e)
		mass, okMass := w.Mass.Get(e)
		if !okPos || !okVel || !okMass {
			return stale(e, e, "integration state")
		}

		w.PrevPos.Set(e, pos)

		gravitationForce := s.cfg.Gravity.Mul(mass)
		externalForces := gravitationForce
		vel = vel.Add(externalForces.Mul(dt / mass))
		pos = pos.Add(vel.Mul(dt))

		w.Pos.Set(e, pos)
		w.Vel.Set(e, vel)
		w.PreSolveVel.Set(e, vel)
	}
	return nil
}
