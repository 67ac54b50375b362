package viz

import (
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/xpbd/internal/sim"
	"github.com/san-kum/xpbd/internal/world"
)

// Viewport maps world coordinates to canvas sub-pixels. World y points up,
// canvas y points down.
type Viewport struct {
	Center mgl64.Vec2
	Scale  float64 // sub-pixels per world unit
}

const (
	minScale = 2.0
	maxScale = 200.0
)

// FitViewport returns a viewport that shows the half extents around center on
// a canvas of the given cell size.
func FitViewport(center, halfExtents mgl64.Vec2, cols, rows int) Viewport {
	sx := float64(cols*2) / (2 * halfExtents.X())
	sy := float64(rows*4) / (2 * halfExtents.Y())
	return Viewport{Center: center, Scale: min(sx, sy)}
}

func (v Viewport) Project(c *Canvas, p mgl64.Vec2) (int, int) {
	d := p.Sub(v.Center).Mul(v.Scale)
	return c.Width + round(d.X()), c.Height*2 - round(d.Y())
}

func (v Viewport) Zoom(factor float64) Viewport {
	v.Scale = min(maxScale, max(minScale, v.Scale*factor))
	return v
}

func (v Viewport) Pan(d mgl64.Vec2) Viewport {
	v.Center = v.Center.Add(d.Mul(1 / v.Scale))
	return v
}

// Frame is what the renderer needs of one tick: static geometry is taken from
// the world, dynamic circles from the snapshot so old frames can be replayed.
type Frame struct {
	Time   float64
	State  sim.State
	Radii  []float64
	Energy float64
}

// Capture records the dynamic bodies of w.
func Capture(w *world.World, t float64) Frame {
	bodies := w.Dynamics()
	f := Frame{Time: t, State: sim.Snapshot(w), Radii: make([]float64, len(bodies))}
	for i, e := range bodies {
		circle, _ := w.Circles.Get(e)
		mass, _ := w.Mass.Get(e)
		vel, _ := w.Vel.Get(e)
		f.Radii[i] = circle.Radius
		f.Energy += 0.5 * mass * vel.Dot(vel)
	}
	return f
}

// DrawStatics outlines every static circle and box of w.
func DrawStatics(c *Canvas, w *world.World, v Viewport) {
	for _, e := range w.Query().With(w.Pos).With(w.Boxes).Without(w.Mass).Execute() {
		pos, _ := w.Pos.Get(e)
		box, _ := w.Boxes.Get(e)
		h := box.HalfExtents()
		x0, y0 := v.Project(c, pos.Sub(h))
		x1, y1 := v.Project(c, pos.Add(h))
		c.DrawRect(x0, y0, x1, y1)
	}
	for _, e := range w.Query().With(w.Pos).With(w.Circles).Without(w.Mass).Execute() {
		pos, _ := w.Pos.Get(e)
		circle, _ := w.Circles.Get(e)
		x, y := v.Project(c, pos)
		c.DrawCircle(x, y, round(circle.Radius*v.Scale))
	}
}

// DrawFrame draws the dynamic circles of a captured frame.
func DrawFrame(c *Canvas, f Frame, v Viewport) {
	for i := 0; i < f.State.Bodies() && i < len(f.Radii); i++ {
		px, py, _, _ := f.State.Body(i)
		x, y := v.Project(c, mgl64.Vec2{px, py})
		c.DrawCircle(x, y, round(f.Radii[i]*v.Scale))
	}
}

// Bounds returns the centre and half extents of everything in w, padded by
// 10%. An empty world yields a 10x10 box around the origin.
func Bounds(w *world.World) (center, half mgl64.Vec2) {
	lo := mgl64.Vec2{math.Inf(1), math.Inf(1)}
	hi := mgl64.Vec2{math.Inf(-1), math.Inf(-1)}
	grow := func(p, h mgl64.Vec2) {
		lo = mgl64.Vec2{min(lo.X(), p.X()-h.X()), min(lo.Y(), p.Y()-h.Y())}
		hi = mgl64.Vec2{max(hi.X(), p.X()+h.X()), max(hi.Y(), p.Y()+h.Y())}
	}
	for _, e := range w.Query().With(w.Pos).With(w.Circles).Execute() {
		pos, _ := w.Pos.Get(e)
		circle, _ := w.Circles.Get(e)
		grow(pos, mgl64.Vec2{circle.Radius, circle.Radius})
	}
	for _, e := range w.Query().With(w.Pos).With(w.Boxes).Execute() {
		pos, _ := w.Pos.Get(e)
		box, _ := w.Boxes.Get(e)
		grow(pos, box.HalfExtents())
	}
	if math.IsInf(lo.X(), 1) {
		return mgl64.Vec2{}, mgl64.Vec2{5, 5}
	}
	center = lo.Add(hi).Mul(0.5)
	half = hi.Sub(lo).Mul(0.55)
	half = mgl64.Vec2{max(half.X(), 1), max(half.Y(), 1)}
	return center, half
}

// Compose overlays bodies on statics cell by cell, styling runs of cells
// by which layer they came from.
func Compose(bodies, statics *Canvas, st Styles) string {
	var b strings.Builder
	for row := 0; row < bodies.Height; row++ {
		var run []rune
		var runStyle *lipgloss.Style
		flush := func() {
			if len(run) == 0 {
				return
			}
			if runStyle == nil {
				b.WriteString(string(run))
			} else {
				b.WriteString(runStyle.Render(string(run)))
			}
			run = run[:0]
		}
		for col := 0; col < bodies.Width; col++ {
			r, style := bodies.Grid[row][col], &st.Bodies
			if r == brailleEmpty {
				r, style = statics.Grid[row][col], &st.Statics
			}
			if r == brailleEmpty {
				style = nil
			}
			if style != runStyle {
				flush()
				runStyle = style
			}
			run = append(run, r)
		}
		flush()
		b.WriteByte('\n')
	}
	return b.String()
}
