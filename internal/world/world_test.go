package world

import (
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestStoreSetGetRemove(t *testing.T) {
	s := NewStore[float64]()

	s.Set(1, 2.5)
	s.Set(2, 3.5)
	s.Set(1, 4.5)

	if s.Count() != 2 {
		t.Fatalf("expected 2 entities, got %d", s.Count())
	}
	if v, ok := s.Get(1); !ok || v != 4.5 {
		t.Errorf("expected 4.5, got %v (ok=%v)", v, ok)
	}

	s.Remove(1)
	if s.Has(1) {
		t.Error("entity 1 should be removed")
	}
	if all := s.All(); len(all) != 1 || all[0] != 2 {
		t.Errorf("expected [2], got %v", all)
	}

	s.Remove(99)
	if s.Count() != 1 {
		t.Errorf("removing a missing entity changed count to %d", s.Count())
	}
}

func TestStoreUpdate(t *testing.T) {
	s := NewStore[mgl64.Vec2]()
	s.Set(7, mgl64.Vec2{1, 2})

	ok := s.Update(7, func(v *mgl64.Vec2) { *v = v.Add(mgl64.Vec2{1, 1}) })
	if !ok {
		t.Fatal("update reported missing component")
	}
	if v, _ := s.Get(7); v != (mgl64.Vec2{2, 3}) {
		t.Errorf("expected (2,3), got %v", v)
	}
	if s.Update(8, func(*mgl64.Vec2) {}) {
		t.Error("update on missing entity should return false")
	}
}

func TestQueryWithWithout(t *testing.T) {
	w := New()

	dyn1, _ := w.SpawnParticle(NewParticle(mgl64.Vec2{0, 0}, mgl64.Vec2{}))
	box, _ := w.SpawnStaticBox(StaticBox{Pos: mgl64.Vec2{0, -4}, Size: mgl64.Vec2{20, 2}, Restitution: 0.3})
	dyn2, _ := w.SpawnParticle(NewParticle(mgl64.Vec2{1, 0}, mgl64.Vec2{}))
	circle, _ := w.SpawnStaticCircle(StaticCircle{Pos: mgl64.Vec2{3, 0}, Radius: 1, Restitution: 0.3})

	dynamics := w.Dynamics()
	if len(dynamics) != 2 || dynamics[0] != dyn1 || dynamics[1] != dyn2 {
		t.Errorf("expected [%d %d], got %v", dyn1, dyn2, dynamics)
	}

	statics := w.Query().With(w.Pos).With(w.Circles).Without(w.Mass).Execute()
	if len(statics) != 1 || statics[0] != circle {
		t.Errorf("expected [%d], got %v", circle, statics)
	}

	boxes := w.Query().With(w.Boxes).Execute()
	if len(boxes) != 1 || boxes[0] != box {
		t.Errorf("expected [%d], got %v", box, boxes)
	}

	if got := w.Query().Execute(); len(got) != 0 {
		t.Errorf("empty query should return nothing, got %v", got)
	}
}

func TestQueryResultsSorted(t *testing.T) {
	w := New()
	var ids []Entity
	for i := 0; i < 5; i++ {
		e, err := w.SpawnParticle(NewParticle(mgl64.Vec2{float64(i), 0}, mgl64.Vec2{}))
		if err != nil {
			t.Fatal(err)
		}
		ids = append(ids, e)
	}
	// removal swaps the tail into the hole, scrambling insertion order
	w.Despawn(ids[1])

	got := w.Dynamics()
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("results not sorted: %v", got)
		}
	}
}

func TestQueryPanicsAfterExecute(t *testing.T) {
	w := New()
	q := w.Query().With(w.Pos)
	q.Execute()

	defer func() {
		if recover() == nil {
			t.Error("expected panic when modifying executed query")
		}
	}()
	q.With(w.Mass)
}

func TestDespawnRemovesAllComponents(t *testing.T) {
	w := New()
	e, err := w.SpawnParticle(NewParticle(mgl64.Vec2{}, mgl64.Vec2{1, 0}))
	if err != nil {
		t.Fatal(err)
	}

	w.Despawn(e)

	if w.Alive(e) {
		t.Error("entity still alive")
	}
	for _, s := range w.stores {
		if s.Has(e) {
			t.Errorf("component survived despawn: %T", s)
		}
	}
	if w.Len() != 0 {
		t.Errorf("expected 0 entities, got %d", w.Len())
	}
}

func TestSpawnValidation(t *testing.T) {
	tests := []struct {
		name  string
		spawn func(w *World) error
	}{
		{"zero radius", func(w *World) error {
			p := NewParticle(mgl64.Vec2{}, mgl64.Vec2{})
			p.Radius = 0
			_, err := w.SpawnParticle(p)
			return err
		}},
		{"negative mass", func(w *World) error {
			p := NewParticle(mgl64.Vec2{}, mgl64.Vec2{})
			p.Mass = -1
			_, err := w.SpawnParticle(p)
			return err
		}},
		{"restitution above one", func(w *World) error {
			p := NewParticle(mgl64.Vec2{}, mgl64.Vec2{})
			p.Restitution = 1.5
			_, err := w.SpawnParticle(p)
			return err
		}},
		{"flat box", func(w *World) error {
			_, err := w.SpawnStaticBox(StaticBox{Size: mgl64.Vec2{1, 0}})
			return err
		}},
		{"static circle without radius", func(w *World) error {
			_, err := w.SpawnStaticCircle(StaticCircle{Restitution: 0.5})
			return err
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := New()
			err := tt.spawn(w)
			if !errors.Is(err, ErrInvalidBody) {
				t.Errorf("expected ErrInvalidBody, got %v", err)
			}
			if w.Len() != 0 {
				t.Errorf("invalid spawn created %d entities", w.Len())
			}
		})
	}
}

func TestSpawnParticleComponents(t *testing.T) {
	w := New()
	p := NewParticle(mgl64.Vec2{1, 2}, mgl64.Vec2{3, 4})
	e, err := w.SpawnParticle(p)
	if err != nil {
		t.Fatal(err)
	}

	if !w.IsDynamic(e) {
		t.Error("particle should be dynamic")
	}
	if prev, _ := w.PrevPos.Get(e); prev != p.Pos {
		t.Errorf("expected prev pos %v, got %v", p.Pos, prev)
	}
	if tr, _ := w.Transforms.Get(e); tr.Translation != (mgl64.Vec3{1, 2, 0}) {
		t.Errorf("unexpected transform %v", tr.Translation)
	}
	if c, _ := w.Circles.Get(e); c.Radius != DefaultRadius {
		t.Errorf("expected radius %f, got %f", DefaultRadius, c.Radius)
	}
}
