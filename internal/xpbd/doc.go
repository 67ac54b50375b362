// Package xpbd is a substep-free 2D extended position-based dynamics solver
// for circular dynamic bodies colliding with each other and with static
// circles and axis-aligned boxes.
//
// One call to [Solver.Step] runs the fixed pipeline:
//
//   - [CollectCollisionPairs]: brute-force broad phase with a velocity margin
//   - [Integrate]: semi-implicit Euler under gravity
//   - [ClearContacts]: reset step-scoped contact buffers
//   - [SolvePositions]: push overlapping bodies apart
//   - [UpdateVelocities]: velocity from realised displacement
//   - [SolveVelocities]: restitution from pre-solve normal velocity
//   - [SyncTransforms]: copy positions to render transforms
//
// # Example
//
//	w := world.New()
//	w.SpawnParticle(world.NewParticle(mgl64.Vec2{0, 2}, mgl64.Vec2{}))
//	solver, _ := xpbd.New(xpbd.DefaultConfig())
//	for i := 0; i < 60; i++ {
//	    if err := solver.Step(w); err != nil {
//	        return err
//	    }
//	}
//
// # Thread Safety
//
// A Solver is not safe for concurrent use. Step holds the world exclusively
// for the whole tick; the broad phase fans out read-only work internally.
package xpbd
