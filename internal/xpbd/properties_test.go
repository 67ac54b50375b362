package xpbd_test

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl64"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/xpbd/internal/world"
	"github.com/san-kum/xpbd/internal/xpbd"
)

func spawn(w *world.World, pos, vel mgl64.Vec2, restitution float64) world.Entity {
	p := world.NewParticle(pos, vel)
	p.Restitution = restitution
	e, err := w.SpawnParticle(p)
	Expect(err).NotTo(HaveOccurred())
	return e
}

func stepN(s *xpbd.Solver, w *world.World, n int) {
	for i := 0; i < n; i++ {
		Expect(s.Step(w)).To(Succeed())
	}
}

var _ = Describe("Solver", func() {
	var (
		w   *world.World
		cfg xpbd.Config
	)

	BeforeEach(func() {
		w = world.New()
		cfg = xpbd.DefaultConfig()
	})

	newSolver := func() *xpbd.Solver {
		s, err := xpbd.New(cfg)
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	Describe("static bodies", func() {
		It("never move", func() {
			a, err := w.SpawnStaticCircle(world.StaticCircle{Pos: mgl64.Vec2{0, 0}, Radius: 1})
			Expect(err).NotTo(HaveOccurred())
			b, err := w.SpawnStaticCircle(world.StaticCircle{Pos: mgl64.Vec2{0.5, 0}, Radius: 1})
			Expect(err).NotTo(HaveOccurred())
			box, err := w.SpawnStaticBox(world.StaticBox{Pos: mgl64.Vec2{0, -3}, Size: mgl64.Vec2{10, 2}})
			Expect(err).NotTo(HaveOccurred())

			stepN(newSolver(), w, 10)

			for e, want := range map[world.Entity]mgl64.Vec2{a: {0, 0}, b: {0.5, 0}, box: {0, -3}} {
				pos, ok := w.Pos.Get(e)
				Expect(ok).To(BeTrue())
				Expect(pos).To(Equal(want))
			}
		})
	})

	Describe("a single free body", func() {
		It("falls by one semi-implicit Euler step", func() {
			e := spawn(w, mgl64.Vec2{}, mgl64.Vec2{}, 0.3)
			stepN(newSolver(), w, 1)

			g := xpbd.DefaultGravity.Y()
			dt := xpbd.DefaultDt
			vel, _ := w.Vel.Get(e)
			pos, _ := w.Pos.Get(e)
			Expect(vel.X()).To(BeNumerically("~", 0, 1e-12))
			Expect(vel.Y()).To(BeNumerically("~", dt*g, 1e-12))
			Expect(pos.Y()).To(BeNumerically("~", dt*dt*g, 1e-12))
		})

		It("mirrors its position into the transform", func() {
			e := spawn(w, mgl64.Vec2{1, 2}, mgl64.Vec2{3, 0}, 0.3)
			stepN(newSolver(), w, 1)

			pos, _ := w.Pos.Get(e)
			tr, _ := w.Transforms.Get(e)
			Expect(tr.Translation).To(Equal(pos.Vec3(0)))
		})
	})

	Describe("head-on collision of equal masses", func() {
		BeforeEach(func() {
			cfg.Gravity = mgl64.Vec2{}
		})

		run := func(restitution float64) (mgl64.Vec2, mgl64.Vec2) {
			left := spawn(w, mgl64.Vec2{-0.45, 0}, mgl64.Vec2{1, 0}, restitution)
			right := spawn(w, mgl64.Vec2{0.45, 0}, mgl64.Vec2{-1, 0}, restitution)
			s := newSolver()
			stepN(s, w, 1)
			Expect(s.Contacts()).To(HaveLen(1))

			vl, _ := w.Vel.Get(left)
			vr, _ := w.Vel.Get(right)
			return vl, vr
		}

		It("exchanges velocities when perfectly elastic", func() {
			vl, vr := run(1)
			Expect(vl.X()).To(BeNumerically("~", -1, 1e-9))
			Expect(vr.X()).To(BeNumerically("~", 1, 1e-9))
		})

		It("leaves equal normal velocities when perfectly inelastic", func() {
			vl, vr := run(0)
			Expect(vl.X()).To(BeNumerically("~", vr.X(), 1e-9))
			Expect(vl.X()).To(BeNumerically("~", 0, 1e-9))
		})

		It("separates the bodies to touching distance", func() {
			left := spawn(w, mgl64.Vec2{-0.45, 0}, mgl64.Vec2{1, 0}, 1)
			right := spawn(w, mgl64.Vec2{0.45, 0}, mgl64.Vec2{-1, 0}, 1)
			stepN(newSolver(), w, 1)

			pl, _ := w.Pos.Get(left)
			pr, _ := w.Pos.Get(right)
			Expect(pr.Sub(pl).Len()).To(BeNumerically("~", 1, 1e-9))
		})
	})

	Describe("resting on a box", func() {
		var ball world.Entity

		BeforeEach(func() {
			_, err := w.SpawnStaticBox(world.StaticBox{Pos: mgl64.Vec2{0, -3}, Size: mgl64.Vec2{10, 2}})
			Expect(err).NotTo(HaveOccurred())
		})

		expectResting := func() {
			pos, _ := w.Pos.Get(ball)
			vel, _ := w.Vel.Get(ball)
			Expect(pos.Y()).To(BeNumerically("~", -1.5, 1e-6))
			Expect(math.Abs(vel.Y())).To(BeNumerically("<", 1e-6))
		}

		It("holds an inelastic ball on the surface", func() {
			ball = spawn(w, mgl64.Vec2{0, -1.5}, mgl64.Vec2{}, 0)
			s := newSolver()
			stepN(s, w, 120)
			expectResting()
			Expect(s.StaticContacts()).To(HaveLen(1))
			Expect(s.StaticContacts()[0].Normal).To(Equal(mgl64.Vec2{0, -1}))
		})

		It("settles a dropped bouncy ball under a resting threshold", func() {
			cfg.RestingSpeed = xpbd.RestingSpeedFor(cfg.Gravity, cfg.Dt)
			ball = spawn(w, mgl64.Vec2{0, 0}, mgl64.Vec2{}, 0.3)
			stepN(newSolver(), w, 600)
			expectResting()
		})

		It("holds position but keeps a small rebound speed without a threshold", func() {
			ball = spawn(w, mgl64.Vec2{0, 0}, mgl64.Vec2{}, 0.3)
			s := newSolver()
			stepN(s, w, 1100)

			// restitution re-adds a fraction of the gravity step every tick
			maxSpeed := 0.0
			for i := 0; i < 100; i++ {
				Expect(s.Step(w)).To(Succeed())
				pos, _ := w.Pos.Get(ball)
				vel, _ := w.Vel.Get(ball)
				Expect(pos.Y()).To(BeNumerically("~", -1.5, 1e-6))
				maxSpeed = math.Max(maxSpeed, math.Abs(vel.Y()))
			}
			Expect(maxSpeed).To(BeNumerically(">", 0.01))
			Expect(maxSpeed).To(BeNumerically("<", 0.05))
		})
	})

	Describe("a circle touching a box corner", func() {
		It("resolves along the 45° diagonal", func() {
			cfg.Gravity = mgl64.Vec2{}
			_, err := w.SpawnStaticBox(world.StaticBox{Pos: mgl64.Vec2{}, Size: mgl64.Vec2{2, 2}})
			Expect(err).NotTo(HaveOccurred())

			diag := mgl64.Vec2{1 / math.Sqrt2, 1 / math.Sqrt2}
			corner := mgl64.Vec2{1, 1}
			ball := spawn(w, corner.Add(diag.Mul(0.4)), mgl64.Vec2{}, 0)

			s := newSolver()
			stepN(s, w, 1)

			Expect(s.StaticContacts()).To(HaveLen(1))
			n := s.StaticContacts()[0].Normal
			Expect(n.X()).To(BeNumerically("~", -diag.X(), 1e-9))
			Expect(n.Y()).To(BeNumerically("~", -diag.Y(), 1e-9))

			pos, _ := w.Pos.Get(ball)
			want := corner.Add(diag.Mul(0.5))
			Expect(pos.X()).To(BeNumerically("~", want.X(), 1e-9))
			Expect(pos.Y()).To(BeNumerically("~", want.Y(), 1e-9))
		})
	})

	Describe("broad phase", func() {
		It("emits each overlapping pair exactly once with A > B", func() {
			cfg.Gravity = mgl64.Vec2{}
			rng := rand.New(rand.NewSource(42))
			var bodies []world.Entity
			for i := 0; i < 40; i++ {
				pos := mgl64.Vec2{rng.Float64() * 4, rng.Float64() * 4}
				bodies = append(bodies, spawn(w, pos, mgl64.Vec2{}, 0.3))
			}

			s := newSolver()
			Expect(s.RunStage(w, xpbd.CollectCollisionPairs)).To(Succeed())

			seen := make(map[xpbd.Pair]int)
			for _, p := range s.CollisionPairs() {
				Expect(p.A).To(BeNumerically(">", p.B))
				seen[p]++
			}
			for _, n := range seen {
				Expect(n).To(Equal(1))
			}

			// every resting overlap is present
			for i, a := range bodies {
				for _, b := range bodies[:i] {
					pa, _ := w.Pos.Get(a)
					pb, _ := w.Pos.Get(b)
					if pa.Sub(pb).Len() < 1 {
						Expect(seen).To(HaveKey(xpbd.Pair{A: a, B: b}))
					}
				}
			}
		})
	})

	Describe("a world at rest", func() {
		It("is unchanged by further steps", func() {
			cfg.Gravity = mgl64.Vec2{}
			bodies := []world.Entity{
				spawn(w, mgl64.Vec2{-3, 0}, mgl64.Vec2{}, 0.3),
				spawn(w, mgl64.Vec2{0, 0}, mgl64.Vec2{}, 0.3),
				spawn(w, mgl64.Vec2{3, 0}, mgl64.Vec2{}, 0.3),
			}
			before := make([]mgl64.Vec2, len(bodies))
			for i, e := range bodies {
				before[i], _ = w.Pos.Get(e)
			}

			stepN(newSolver(), w, 10)

			for i, e := range bodies {
				pos, _ := w.Pos.Get(e)
				vel, _ := w.Vel.Get(e)
				Expect(pos).To(Equal(before[i]))
				Expect(vel).To(Equal(mgl64.Vec2{}))
			}
		})
	})

	Describe("momentum", func() {
		It("is conserved by a dynamic-dynamic collision", func() {
			cfg.Gravity = mgl64.Vec2{}
			p := world.NewParticle(mgl64.Vec2{-0.4, 0.1}, mgl64.Vec2{2, 0})
			p.Mass = 2
			a, err := w.SpawnParticle(p)
			Expect(err).NotTo(HaveOccurred())
			b := spawn(w, mgl64.Vec2{0.4, -0.1}, mgl64.Vec2{-1, 0.5}, 0.6)

			momentum := func() mgl64.Vec2 {
				va, _ := w.Vel.Get(a)
				vb, _ := w.Vel.Get(b)
				return va.Mul(2).Add(vb)
			}
			before := momentum()
			stepN(newSolver(), w, 5)
			after := momentum()

			Expect(after.X()).To(BeNumerically("~", before.X(), 1e-9))
			Expect(after.Y()).To(BeNumerically("~", before.Y(), 1e-9))
		})
	})
})
