package xpbd

import "github.com/san-kum/xpbd/internal/world"

// syncTransforms copies simulated positions into render transforms.
func (s *Solver) syncTransforms(w *world.World) error {
	for _, e := range w.Query().With(w.Pos).With(w.Transforms).Execute() {
		pos, _ := w.Pos.Get(e)
		w.Transforms.Update(e, func(t *world.Transform) {
			t.Translation = pos.Vec3(0)
		})
	}
	return nil
}
