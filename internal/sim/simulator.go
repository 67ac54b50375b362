package sim

import (
	"context"
	"fmt"
	"math"

	"github.com/san-kum/xpbd/internal/world"
	"github.com/san-kum/xpbd/internal/xpbd"
)

// Simulator drives one world with one solver at the solver's fixed dt.
type Simulator struct {
	world     *world.World
	solver    *xpbd.Solver
	hooks     []Hook
	metrics   []Metric
	observers []Observer

	time float64
}

func New(w *world.World, solver *xpbd.Solver) *Simulator {
	return &Simulator{
		world:     w,
		solver:    solver,
		hooks:     make([]Hook, 0),
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddHook(h Hook)         { s.hooks = append(s.hooks, h) }
func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

func (s *Simulator) World() *world.World  { return s.world }
func (s *Simulator) Solver() *xpbd.Solver { return s.solver }
func (s *Simulator) Time() float64        { return s.time }

// Step runs the hooks and then one solver tick.
func (s *Simulator) Step() error {
	for _, h := range s.hooks {
		if err := h.BeforeStep(s.world, s.time); err != nil {
			return SimError{Time: s.time, Step: s.solver.Steps(), Message: "hook failed", Err: err}
		}
	}
	if err := s.solver.Step(s.world); err != nil {
		return SimError{Time: s.time, Step: s.solver.Steps(), Message: "solver step failed", Err: err}
	}
	s.time += s.solver.Config().Dt
	return nil
}

func (s *Simulator) Run(ctx context.Context, cfg Config) (*Result, error) {
	if err := s.validateConfig(cfg); err != nil {
		return nil, err
	}

	steps := s.stepsFor(cfg.Duration)
	every := cfg.RecordEvery
	if every < 1 {
		every = 1
	}

	result := &Result{
		States:  make([]State, 0, steps/every+1),
		Times:   make([]float64, 0, steps/every+1),
		Metrics: make(map[string]float64),
		Errors:  make([]error, 0),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	result.States = append(result.States, Snapshot(s.world))
	result.Times = append(result.Times, s.time)

	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := s.Step(); err != nil {
			result.Errors = append(result.Errors, err)
			s.collectMetrics(result)
			return result, err
		}
		result.StepsTaken++

		x := Snapshot(s.world)
		if cfg.ValidateState && !x.IsValid() {
			err := SimError{Time: s.time, Step: i, Message: "invalid state (NaN/Inf)"}
			result.Errors = append(result.Errors, err)
			break
		}

		for _, m := range s.metrics {
			m.Observe(s.world, s.solver, s.time)
		}
		for _, obs := range s.observers {
			obs.OnStep(s.world, s.time)
		}

		if (i+1)%every == 0 {
			result.States = append(result.States, x)
			result.Times = append(result.Times, s.time)
		}
	}

	s.collectMetrics(result)
	return result, nil
}

// RunWithCallback streams ticks to fn until it returns false, the duration
// elapses or ctx is cancelled. A zero duration runs until fn stops it.
func (s *Simulator) RunWithCallback(ctx context.Context, duration float64, fn func(w *world.World, t float64) bool) error {
	if duration < 0 {
		return fmt.Errorf("duration must be non-negative, got %f", duration)
	}

	end := s.time + duration
	for duration == 0 || s.time < end {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !fn(s.world, s.time) {
			return nil
		}
		if err := s.Step(); err != nil {
			return err
		}
	}
	return nil
}

func (s *Simulator) collectMetrics(result *Result) {
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

// stepsFor rounds so that durations which are whole multiples of dt are not
// cut short by floating point division.
func (s *Simulator) stepsFor(duration float64) int {
	return int(math.Round(duration / s.solver.Config().Dt))
}

func (s *Simulator) validateConfig(cfg Config) error {
	if !(cfg.Duration > 0) {
		return fmt.Errorf("duration must be positive, got %f", cfg.Duration)
	}
	if cfg.RecordEvery < 0 {
		return fmt.Errorf("record interval must be non-negative, got %d", cfg.RecordEvery)
	}
	return nil
}
