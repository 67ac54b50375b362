package xpbd

import (
	"fmt"
	"math"
	"runtime"

	"github.com/go-gl/mathgl/mgl64"
)

const (
	DefaultDt = 1.0 / 60.0

	// DefaultSafetyMargin scales the broad-phase velocity margin. Must be > 1.
	DefaultSafetyMargin = 2.0
)

// DefaultGravity points down at standard gravity.
var DefaultGravity = mgl64.Vec2{0, -9.81}

type Config struct {
	Dt           float64
	Gravity      mgl64.Vec2
	SafetyMargin float64

	// RestingSpeed disables restitution for contacts whose pre-solve normal
	// speed is at or below it. Zero keeps restitution for every contact, so a
	// body resting under gravity holds its position but not a zero velocity.
	RestingSpeed float64

	// Workers bounds broad-phase fan-out. Zero means GOMAXPROCS.
	Workers int
}

func DefaultConfig() Config {
	return Config{
		Dt:           DefaultDt,
		Gravity:      DefaultGravity,
		SafetyMargin: DefaultSafetyMargin,
	}
}

// RestingSpeedFor returns the usual resting threshold 2·|g|·dt.
func RestingSpeedFor(gravity mgl64.Vec2, dt float64) float64 {
	return 2 * gravity.Len() * dt
}

func (c Config) Validate() error {
	if !(c.Dt > 0) || math.IsInf(c.Dt, 0) {
		return fmt.Errorf("%w: dt must be positive, got %f", ErrInvalidConfig, c.Dt)
	}
	if !(c.SafetyMargin > 1) {
		return fmt.Errorf("%w: safety margin must be > 1, got %f", ErrInvalidConfig, c.SafetyMargin)
	}
	if c.RestingSpeed < 0 {
		return fmt.Errorf("%w: resting speed must be non-negative, got %f", ErrInvalidConfig, c.RestingSpeed)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be non-negative, got %d", ErrInvalidConfig, c.Workers)
	}
	for _, g := range c.Gravity {
		if math.IsNaN(g) || math.IsInf(g, 0) {
			return fmt.Errorf("%w: gravity must be finite, got %v", ErrInvalidConfig, c.Gravity)
		}
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.GOMAXPROCS(0)
}
