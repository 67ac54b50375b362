package xpbd

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/xpbd/internal/world"
)

// Stage labels one step of the pipeline.
type Stage int

const (
	CollectCollisionPairs Stage = iota
	Integrate
	ClearContacts
	SolvePositions
	UpdateVelocities
	SolveVelocities
	SyncTransforms
)

var stageNames = [...]string{
	CollectCollisionPairs: "collect_collision_pairs",
	Integrate:             "integrate",
	ClearContacts:         "clear_contacts",
	SolvePositions:        "solve_positions",
	UpdateVelocities:      "update_velocities",
	SolveVelocities:       "solve_velocities",
	SyncTransforms:        "sync_transforms",
}

func (s Stage) String() string {
	if s < 0 || int(s) >= len(stageNames) {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// Pair is a broad-phase candidate. A is always greater than B.
type Pair struct {
	A, B world.Entity
}

// Contact is a confirmed overlap and the normal it was resolved along.
//
// For dynamic pairs the normal points from A to B. For static contacts A is
// the dynamic body and the normal is the direction the dynamic body was moved
// against (pos_A -= Normal·depth).
type Contact struct {
	A, B   world.Entity
	Normal mgl64.Vec2
}

type pass func(s *Solver, w *world.World) error

// pipeline is the fixed stage order. Sub-passes inside a stage run in the
// listed order.
var pipeline = []struct {
	stage  Stage
	passes []pass
}{
	{CollectCollisionPairs, []pass{(*Solver).collectCollisionPairs}},
	{Integrate, []pass{(*Solver).integrate}},
	{ClearContacts, []pass{(*Solver).clearContacts}},
	{SolvePositions, []pass{(*Solver).solvePositions, (*Solver).solvePositionsStatics, (*Solver).solvePositionsStaticBoxes}},
	{UpdateVelocities, []pass{(*Solver).updateVelocities}},
	{SolveVelocities, []pass{(*Solver).solveVelocities, (*Solver).solveVelocitiesStatics}},
	{SyncTransforms, []pass{(*Solver).syncTransforms}},
}

// Solver owns the step-scoped buffers and runs the pipeline against a world.
type Solver struct {
	cfg   Config
	steps int

	pairs          []Pair
	contacts       []Contact
	staticContacts []Contact

	// scratch for the broad phase, reused across steps
	probes  []probe
	buckets [][]Pair
}

func New(cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Solver{cfg: cfg}, nil
}

func (s *Solver) Config() Config { return s.cfg }

// SetGravity replaces the gravity used by subsequent steps.
func (s *Solver) SetGravity(g mgl64.Vec2) { s.cfg.Gravity = g }

// Steps returns the number of completed steps.
func (s *Solver) Steps() int { return s.steps }

// CollisionPairs returns the candidates from the latest broad phase. The slice
// is reused by the next step.
func (s *Solver) CollisionPairs() []Pair { return s.pairs }

func (s *Solver) Contacts() []Contact { return s.contacts }

func (s *Solver) StaticContacts() []Contact { return s.staticContacts }

// Stages lists the pipeline in execution order.
func Stages() []Stage {
	out := make([]Stage, len(pipeline))
	for i, p := range pipeline {
		out[i] = p.stage
	}
	return out
}

// Step advances w by one fixed timestep. Any error aborts the rest of the
// step and is returned as a *StepError.
func (s *Solver) Step(w *world.World) error {
	err := w.Exclusive(func() error {
		for _, st := range pipeline {
			if err := s.run(w, st.stage, st.passes); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.steps++
	return nil
}

// RunStage runs a single stage by label. Callers are responsible for ordering.
func (s *Solver) RunStage(w *world.World, stage Stage) error {
	for _, st := range pipeline {
		if st.stage == stage {
			return w.Exclusive(func() error {
				return s.run(w, st.stage, st.passes)
			})
		}
	}
	return fmt.Errorf("unknown stage: %s", stage)
}

func (s *Solver) run(w *world.World, stage Stage, passes []pass) error {
	for _, p := range passes {
		if err := p(s, w); err != nil {
			var se *StepError
			if !errors.As(err, &se) {
				se = &StepError{Wrapped: err}
			}
			se.Stage = stage
			se.Step = s.steps
			return se
		}
	}
	return nil
}

func (s *Solver) clearContacts(_ *world.World) error {
	s.contacts = s.contacts[:0]
	s.staticContacts = s.staticContacts[:0]
	return nil
}
