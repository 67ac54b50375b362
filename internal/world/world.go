// Package world is the body state store the solver runs against.
//
// Each component kind lives in its own [Store]. A body is dynamic when it has
// a Mass component and static otherwise. The solver reads and writes
// components by entity key and never creates or destroys bodies itself.
package world

import (
	"sync"

	"github.com/go-gl/mathgl/mgl64"
)

// Entity is an opaque body identifier. Ids are never reused.
type Entity uint64

// Circle is a circular collider.
type Circle struct {
	Radius float64
}

// Box is an axis-aligned box collider centred on the body position.
type Box struct {
	Size mgl64.Vec2
}

// HalfExtents returns half the box size.
func (b Box) HalfExtents() mgl64.Vec2 { return b.Size.Mul(0.5) }

// Transform is the render-facing placement of a body.
type Transform struct {
	Translation mgl64.Vec3
}

type World struct {
	mu    sync.Mutex
	next  Entity
	alive map[Entity]struct{}

	Pos         *Store[mgl64.Vec2]
	PrevPos     *Store[mgl64.Vec2]
	Vel         *Store[mgl64.Vec2]
	PreSolveVel *Store[mgl64.Vec2]
	Mass        *Store[float64]
	Restitution *Store[float64]
	Circles     *Store[Circle]
	Boxes       *Store[Box]
	Transforms  *Store[Transform]

	stores []AnyStore
}

func New() *World {
	w := &World{
		next:        1,
		alive:       make(map[Entity]struct{}),
		Pos:         NewStore[mgl64.Vec2](),
		PrevPos:     NewStore[mgl64.Vec2](),
		Vel:         NewStore[mgl64.Vec2](),
		PreSolveVel: NewStore[mgl64.Vec2](),
		Mass:        NewStore[float64](),
		Restitution: NewStore[float64](),
		Circles:     NewStore[Circle](),
		Boxes:       NewStore[Box](),
		Transforms:  NewStore[Transform](),
	}
	w.stores = []AnyStore{
		w.Pos, w.PrevPos, w.Vel, w.PreSolveVel, w.Mass,
		w.Restitution, w.Circles, w.Boxes, w.Transforms,
	}
	return w
}

// Create allocates a new entity with no components.
func (w *World) Create() Entity {
	w.mu.Lock()
	defer w.mu.Unlock()

	id := w.next
	w.next++
	w.alive[id] = struct{}{}
	return id
}

// Despawn removes e and all its components. Blocks while a tick holds the world.
func (w *World) Despawn(e Entity) {
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, s := range w.stores {
		s.Remove(e)
	}
	delete(w.alive, e)
}

func (w *World) Alive(e Entity) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.alive[e]
	return ok
}

// Len returns the number of live entities.
func (w *World) Len() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.alive)
}

// Exclusive runs fn while holding the world's lifecycle lock, so no entity can
// be created or despawned until fn returns.
func (w *World) Exclusive(fn func() error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return fn()
}

// IsDynamic reports whether e carries a Mass component.
func (w *World) IsDynamic(e Entity) bool { return w.Mass.Has(e) }

// Dynamics returns all bodies with a Mass component, in id order.
func (w *World) Dynamics() []Entity {
	return w.Query().With(w.Pos).With(w.Mass).Execute()
}
