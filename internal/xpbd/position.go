package xpbd

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/san-kum/xpbd/internal/world"
)

// fallbackNormal is used when two centres coincide and the direction between
// them is undefined.
var fallbackNormal = mgl64.Vec2{0, 1}

// solvePositions separates overlapping dynamic circles from the broad-phase
// pairs, splitting the correction by inverse mass, and records each contact.
func (s *Solver) solvePositions(w *world.World) error {
	for _, pair := range s.pairs {
		a, b := pair.A, pair.B
		if a == b {
			return selfPair(a)
		}

		posA, okA := w.Pos.Get(a)
		posB, okB := w.Pos.Get(b)
		if !okA || !okB {
			return stale(a, b, "position")
		}
		circleA, okA := w.Circles.Get(a)
		circleB, okB := w.Circles.Get(b)
		if !okA || !okB {
			return stale(a, b, "circle collider")
		}
		massA, okA := w.Mass.Get(a)
		massB, okB := w.Mass.Get(b)
		if !okA || !okB {
			return stale(a, b, "mass")
		}

		ab := posB.Sub(posA)
		combinedRadius := circleA.Radius + circleB.Radius
		abSqrLen := ab.Dot(ab)
		if abSqrLen >= combinedRadius*combinedRadius {
			continue
		}

		abLength := math.Sqrt(abSqrLen)
		penetrationDepth := combinedRadius - abLength
		n := fallbackNormal
		if abLength > 0 {
			n = ab.Mul(1 / abLength)
		}

		wA := 1 / massA
		wB := 1 / massB
		wSum := wA + wB

		w.Pos.Set(a, posA.Sub(n.Mul(penetrationDepth*wA/wSum)))
		w.Pos.Set(b, posB.Add(n.Mul(penetrationDepth*wB/wSum)))
		s.contacts = append(s.contacts, Contact{A: a, B: b, Normal: n})
	}
	return nil
}

// solvePositionsStatics pushes dynamic circles fully out of static circles.
func (s *Solver) solvePositionsStatics(w *world.World) error {
	dynamics := w.Query().With(w.Pos).With(w.Circles).With(w.Mass).Execute()
	statics := w.Query().With(w.Pos).With(w.Circles).Without(w.Mass).Execute()
	if len(statics) == 0 {
		return nil
	}

	for _, a := range dynamics {
		posA, _ := w.Pos.Get(a)
		circleA, _ := w.Circles.Get(a)
		moved := false

		for _, b := range statics {
			if a == b {
				return selfPair(a)
			}
			posB, okPos := w.Pos.Get(b)
			circleB, okCircle := w.Circles.Get(b)
			if !okPos || !okCircle {
				return stale(a, b, "static circle")
			}

			ab := posB.Sub(posA)
			combinedRadius := circleA.Radius + circleB.Radius
			abSqrLen := ab.Dot(ab)
			if abSqrLen >= combinedRadius*combinedRadius {
				continue
			}

			abLength := math.Sqrt(abSqrLen)
			penetrationDepth := combinedRadius - abLength
			n := fallbackNormal
			if abLength > 0 {
				n = ab.Mul(1 / abLength)
			}
			posA = posA.Sub(n.Mul(penetrationDepth))
			moved = true
			s.staticContacts = append(s.staticContacts, Contact{A: a, B: b, Normal: n})
		}

		if moved {
			w.Pos.Set(a, posA)
		}
	}
	return nil
}

// solvePositionsStaticBoxes pushes dynamic circles out of static
// axis-aligned boxes, treating corners as points.
func (s *Solver) solvePositionsStaticBoxes(w *world.World) error {
	dynamics := w.Query().With(w.Pos).With(w.Circles).With(w.Mass).Execute()
	boxes := w.Query().With(w.Pos).With(w.Boxes).Without(w.Mass).Execute()
	if len(boxes) == 0 {
		return nil
	}

	for _, a := range dynamics {
		posA, _ := w.Pos.Get(a)
		circleA, _ := w.Circles.Get(a)
		moved := false

		for _, b := range boxes {
			if a == b {
				return selfPair(a)
			}
			posB, okPos := w.Pos.Get(b)
			box, okBox := w.Boxes.Get(b)
			if !okPos || !okBox {
				return stale(a, b, "static box")
			}

			n, penetrationDepth, hit := CircleBoxContact(posA, circleA.Radius, posB, box.HalfExtents())
			if !hit {
				continue
			}
			posA = posA.Sub(n.Mul(penetrationDepth))
			moved = true
			s.staticContacts = append(s.staticContacts, Contact{A: a, B: b, Normal: n})
		}

		if moved {
			w.Pos.Set(a, posA)
		}
	}
	return nil
}

// CircleBoxContact returns the normal and depth of a circle overlapping an
// axis-aligned box. The normal points from the circle into the box, so the
// circle is resolved by moving it along -normal·depth. Corners are treated as
// points.
func CircleBoxContact(center mgl64.Vec2, r float64, boxCenter, halfExtents mgl64.Vec2) (mgl64.Vec2, float64, bool) {
	boxToCircle := center.Sub(boxCenter)
	cornerToCenter := mgl64.Vec2{
		math.Abs(boxToCircle.X()) - halfExtents.X(),
		math.Abs(boxToCircle.Y()) - halfExtents.Y(),
	}
	if cornerToCenter.X() > r || cornerToCenter.Y() > r {
		return mgl64.Vec2{}, 0, false
	}

	sx := math.Copysign(1, boxToCircle.X())
	sy := math.Copysign(1, boxToCircle.Y())

	switch {
	case cornerToCenter.X() > 0 && cornerToCenter.Y() > 0:
		cornerSqr := cornerToCenter.Dot(cornerToCenter)
		if cornerSqr > r*r {
			return mgl64.Vec2{}, 0, false
		}
		cornerDist := math.Sqrt(cornerSqr)
		n := mgl64.Vec2{
			-sx * cornerToCenter.X() / cornerDist,
			-sy * cornerToCenter.Y() / cornerDist,
		}
		return n, r - cornerDist, true
	case cornerToCenter.X() > cornerToCenter.Y():
		// closer to a vertical edge
		return mgl64.Vec2{-sx, 0}, r - cornerToCenter.X(), true
	default:
		return mgl64.Vec2{0, -sy}, r - cornerToCenter.Y(), true
	}
}
