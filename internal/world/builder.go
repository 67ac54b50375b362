package world

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrInvalidBody is returned when spawn parameters violate a body invariant.
var ErrInvalidBody = errors.New("world: invalid body parameters")

const (
	DefaultRadius      = 0.5
	DefaultMass        = 1.0
	DefaultRestitution = 0.3
)

// Particle describes a dynamic circular body.
type Particle struct {
	Pos         mgl64.Vec2
	Vel         mgl64.Vec2
	Radius      float64
	Mass        float64
	Restitution float64
}

// NewParticle returns a particle with default radius, mass and restitution.
func NewParticle(pos, vel mgl64.Vec2) Particle {
	return Particle{
		Pos:         pos,
		Vel:         vel,
		Radius:      DefaultRadius,
		Mass:        DefaultMass,
		Restitution: DefaultRestitution,
	}
}

// StaticCircle describes an immovable circular body.
type StaticCircle struct {
	Pos         mgl64.Vec2
	Radius      float64
	Restitution float64
}

// StaticBox describes an immovable axis-aligned box.
type StaticBox struct {
	Pos         mgl64.Vec2
	Size        mgl64.Vec2
	Restitution float64
}

func (p Particle) Validate() error {
	if !finiteVec(p.Pos) || !finiteVec(p.Vel) {
		return fmt.Errorf("%w: non-finite position or velocity", ErrInvalidBody)
	}
	if !(p.Radius > 0) {
		return fmt.Errorf("%w: radius must be positive, got %f", ErrInvalidBody, p.Radius)
	}
	if !(p.Mass > 0) || math.IsInf(p.Mass, 0) {
		return fmt.Errorf("%w: mass must be positive and finite, got %f", ErrInvalidBody, p.Mass)
	}
	return validRestitution(p.Restitution)
}

func (c StaticCircle) Validate() error {
	if !finiteVec(c.Pos) {
		return fmt.Errorf("%w: non-finite position", ErrInvalidBody)
	}
	if !(c.Radius > 0) {
		return fmt.Errorf("%w: radius must be positive, got %f", ErrInvalidBody, c.Radius)
	}
	return validRestitution(c.Restitution)
}

func (b StaticBox) Validate() error {
	if !finiteVec(b.Pos) {
		return fmt.Errorf("%w: non-finite position", ErrInvalidBody)
	}
	if !(b.Size.X() > 0) || !(b.Size.Y() > 0) {
		return fmt.Errorf("%w: box size must be positive, got %v", ErrInvalidBody, b.Size)
	}
	return validRestitution(b.Restitution)
}

// SpawnParticle creates a dynamic circle.
func (w *World) SpawnParticle(p Particle) (Entity, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	e := w.Create()
	w.Pos.Set(e, p.Pos)
	w.PrevPos.Set(e, p.Pos)
	w.Vel.Set(e, p.Vel)
	w.PreSolveVel.Set(e, p.Vel)
	w.Mass.Set(e, p.Mass)
	w.Restitution.Set(e, p.Restitution)
	w.Circles.Set(e, Circle{Radius: p.Radius})
	w.Transforms.Set(e, Transform{Translation: p.Pos.Vec3(0)})
	return e, nil
}

// SpawnStaticCircle creates an immovable circle.
func (w *World) SpawnStaticCircle(c StaticCircle) (Entity, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	e := w.Create()
	w.Pos.Set(e, c.Pos)
	w.Restitution.Set(e, c.Restitution)
	w.Circles.Set(e, Circle{Radius: c.Radius})
	w.Transforms.Set(e, Transform{Translation: c.Pos.Vec3(0)})
	return e, nil
}

// SpawnStaticBox creates an immovable box.
func (w *World) SpawnStaticBox(b StaticBox) (Entity, error) {
	if err := b.Validate(); err != nil {
		return 0, err
	}
	e := w.Create()
	w.Pos.Set(e, b.Pos)
	w.Restitution.Set(e, b.Restitution)
	w.Boxes.Set(e, Box{Size: b.Size})
	w.Transforms.Set(e, Transform{Translation: b.Pos.Vec3(0)})
	return e, nil
}

func validRestitution(r float64) error {
	if !(r >= 0 && r <= 1) {
		return fmt.Errorf("%w: restitution must be in [0,1], got %f", ErrInvalidBody, r)
	}
	return nil
}

func finiteVec(v mgl64.Vec2) bool {
	for _, c := range v {
		if math.IsNaN(c) || math.IsInf(c, 0) {
			return false
		}
	}
	return true
}
