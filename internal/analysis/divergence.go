package analysis

import (
	"errors"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/xpbd/internal/sim"
	"github.com/san-kum/xpbd/internal/world"
)

// Builder returns a fresh simulator for the same scene. Two calls must
// produce worlds with identical entity ids.
type Builder func() (*sim.Simulator, error)

// Divergence estimates the growth rate of a perturbation using the trajectory
// separation method: the x position of the given dynamic body is offset by
// perturbation in a second copy of the scene, both copies are stepped in
// lockstep, and
//
//	λ ≈ mean over ticks of ln(|δ(t)|/δ0) / dt
//
// with the separation renormalised back to δ0 whenever it exceeds 1 so that
// λ keeps measuring the local rate. A positive value indicates chaos.
func Divergence(build Builder, body int, perturbation, duration float64) (float64, error) {
	if perturbation <= 0 {
		return 0, errors.New("perturbation must be positive")
	}

	ref, err := build()
	if err != nil {
		return 0, err
	}
	pert, err := build()
	if err != nil {
		return 0, err
	}

	bodies := pert.World().Dynamics()
	if body < 0 || body >= len(bodies) {
		return 0, errors.New("body index out of range")
	}
	target := bodies[body]
	pert.World().Pos.Update(target, func(p *mgl64.Vec2) { p[0] += perturbation })

	dt := ref.Solver().Config().Dt
	d0 := perturbation
	sumLog := 0.0
	count := 0

	steps := int(math.Round(duration / dt))
	for i := 0; i < steps; i++ {
		if err := ref.Step(); err != nil {
			return 0, err
		}
		if err := pert.Step(); err != nil {
			return 0, err
		}

		sep := separation(ref.World(), pert.World())
		if sep > 0 {
			sumLog += math.Log(sep / d0)
			count++
		}

		// renormalize to keep measuring the local rate
		if sep > 1.0 {
			rescale(ref.World(), pert.World(), d0/sep)
		}
	}

	if count == 0 {
		return 0, nil
	}
	return sumLog / (float64(count) * dt), nil
}

// separation is the Euclidean distance between the two worlds' dynamic
// states, over the bodies both contain.
func separation(a, b *world.World) float64 {
	sum := 0.0
	for _, e := range a.Dynamics() {
		pa, _ := a.Pos.Get(e)
		va, _ := a.Vel.Get(e)
		pb, okP := b.Pos.Get(e)
		vb, okV := b.Vel.Get(e)
		if !okP || !okV {
			continue
		}
		dp, dv := pb.Sub(pa), vb.Sub(va)
		sum += dp.Dot(dp) + dv.Dot(dv)
	}
	return math.Sqrt(sum)
}

// rescale pulls every body of b towards its twin in a.
func rescale(a, b *world.World, scale float64) {
	for _, e := range a.Dynamics() {
		pa, _ := a.Pos.Get(e)
		va, _ := a.Vel.Get(e)
		b.Pos.Update(e, func(p *mgl64.Vec2) { *p = pa.Add(p.Sub(pa).Mul(scale)) })
		b.Vel.Update(e, func(v *mgl64.Vec2) { *v = va.Add(v.Sub(va).Mul(scale)) })
	}
}
