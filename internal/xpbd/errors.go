package xpbd

import (
	"errors"
	"fmt"

	"github.com/san-kum/xpbd/internal/world"
)

var (
	// ErrSelfPair indicates a pair or contact whose two entities are the same
	// body. This is a logic bug upstream of the pass that found it.
	ErrSelfPair = errors.New("xpbd: body paired with itself")

	// ErrStaleEntity indicates a buffered entity lost a component it needs,
	// typically because it was despawned mid-tick.
	ErrStaleEntity = errors.New("xpbd: stale entity reference")

	// ErrInvalidConfig indicates an unusable solver configuration.
	ErrInvalidConfig = errors.New("xpbd: invalid configuration")
)

// StepError aborts a step and records where it happened.
type StepError struct {
	Stage   Stage
	Step    int
	A, B    world.Entity
	Wrapped error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %d, %s (bodies %d/%d): %v", e.Step, e.Stage, e.A, e.B, e.Wrapped)
}

func (e *StepError) Unwrap() error {
	return e.Wrapped
}

func selfPair(a world.Entity) error {
	return &StepError{A: a, B: a, Wrapped: ErrSelfPair}
}

func stale(a, b world.Entity, what string) error {
	return &StepError{A: a, B: b, Wrapped: fmt.Errorf("%w: missing %s", ErrStaleEntity, what)}
}
