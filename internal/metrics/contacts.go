package metrics

import (
	"math"

	"github.com/san-kum/xpbd/internal/world"
	"github.com/san-kum/xpbd/internal/xpbd"
)

// Contacts is the mean number of resolved contacts per tick, dynamic and
// static together.
type Contacts struct {
	name    string
	sum     int
	samples int
}

func NewContacts() *Contacts {
	return &Contacts{name: "contacts"}
}

func (c *Contacts) Name() string { return c.name }

func (c *Contacts) Observe(w *world.World, s *xpbd.Solver, t float64) {
	c.sum += len(s.Contacts()) + len(s.StaticContacts())
	c.samples++
}

func (c *Contacts) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return float64(c.sum) / float64(c.samples)
}

func (c *Contacts) Reset() {
	c.sum = 0
	c.samples = 0
}

// MaxPenetration is the deepest overlap left after a tick, over every contact
// the tick resolved. A single position iteration per tick leaves residual
// overlap in stacks.
type MaxPenetration struct {
	name  string
	depth float64
}

func NewMaxPenetration() *MaxPenetration {
	return &MaxPenetration{name: "max_penetration"}
}

func (m *MaxPenetration) Name() string { return m.name }

func (m *MaxPenetration) Observe(w *world.World, s *xpbd.Solver, t float64) {
	for _, c := range s.Contacts() {
		m.depth = math.Max(m.depth, circleOverlap(w, c.A, c.B))
	}
	for _, c := range s.StaticContacts() {
		if box, ok := w.Boxes.Get(c.B); ok {
			posA, _ := w.Pos.Get(c.A)
			posB, _ := w.Pos.Get(c.B)
			circle, _ := w.Circles.Get(c.A)
			if _, depth, hit := xpbd.CircleBoxContact(posA, circle.Radius, posB, box.HalfExtents()); hit {
				m.depth = math.Max(m.depth, depth)
			}
			continue
		}
		m.depth = math.Max(m.depth, circleOverlap(w, c.A, c.B))
	}
}

func (m *MaxPenetration) Value() float64 { return m.depth }

func (m *MaxPenetration) Reset() { m.depth = 0 }

func circleOverlap(w *world.World, a, b world.Entity) float64 {
	posA, okA := w.Pos.Get(a)
	posB, okB := w.Pos.Get(b)
	circleA, okCA := w.Circles.Get(a)
	circleB, okCB := w.Circles.Get(b)
	if !okA || !okB || !okCA || !okCB {
		return 0
	}
	return circleA.Radius + circleB.Radius - posB.Sub(posA).Len()
}
