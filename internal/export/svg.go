// Package export renders runs and scenes as SVG.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/xpbd/internal/sim"
	"github.com/san-kum/xpbd/internal/viz"
	"github.com/san-kum/xpbd/internal/world"
)

const background = "#0a0a0a"

var palette = []string{"#00ffff", "#ff00ff", "#ffff00", "#00ff88", "#ff8800", "#8888ff"}

// frame maps world coordinates into a width x height image with y up.
type frame struct {
	minX, minY, scale float64
	height            int
}

func newFrame(lo, hi mgl64.Vec2, width, height int) frame {
	span := hi.Sub(lo)
	sx := float64(width) / math.Max(span.X(), 1e-9)
	sy := float64(height) / math.Max(span.Y(), 1e-9)
	return frame{minX: lo.X(), minY: lo.Y(), scale: math.Min(sx, sy), height: height}
}

func (f frame) point(p mgl64.Vec2) (float64, float64) {
	return (p.X() - f.minX) * f.scale, float64(f.height) - (p.Y()-f.minY)*f.scale
}

func header(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="%s"/>
`, width, height, width, height, background)
}

// TrajectoriesToSVG draws the path of every body index across a run, one
// colour per body.
func TrajectoriesToSVG(states []sim.State, width, height int) string {
	lo := mgl64.Vec2{math.Inf(1), math.Inf(1)}
	hi := mgl64.Vec2{math.Inf(-1), math.Inf(-1)}
	bodies := 0
	for _, x := range states {
		bodies = max(bodies, x.Bodies())
		for b := 0; b < x.Bodies(); b++ {
			px, py, _, _ := x.Body(b)
			lo = mgl64.Vec2{math.Min(lo.X(), px), math.Min(lo.Y(), py)}
			hi = mgl64.Vec2{math.Max(hi.X(), px), math.Max(hi.Y(), py)}
		}
	}
	if bodies == 0 {
		return ""
	}

	// pad by 10%, at least one unit
	pad := hi.Sub(lo).Mul(0.1)
	pad = mgl64.Vec2{math.Max(pad.X(), 1), math.Max(pad.Y(), 1)}
	f := newFrame(lo.Sub(pad), hi.Add(pad), width, height)

	var sb strings.Builder
	header(&sb, width, height)
	for b := 0; b < bodies; b++ {
		var path strings.Builder
		for _, x := range states {
			if b >= x.Bodies() {
				continue
			}
			px, py, _, _ := x.Body(b)
			sx, sy := f.point(mgl64.Vec2{px, py})
			if path.Len() == 0 {
				fmt.Fprintf(&path, "M%.1f,%.1f", sx, sy)
			} else {
				fmt.Fprintf(&path, " L%.1f,%.1f", sx, sy)
			}
		}
		fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="%s"/>
`, palette[b%len(palette)], path.String())
	}
	sb.WriteString("</svg>")
	return sb.String()
}

// SceneToSVG draws the current bodies of w: dynamic circles filled, static
// circles and boxes outlined.
func SceneToSVG(w *world.World, width, height int) string {
	center, half := viz.Bounds(w)
	f := newFrame(center.Sub(half), center.Add(half), width, height)

	var sb strings.Builder
	header(&sb, width, height)

	sb.WriteString(`<g fill="none" stroke="#ff00ff" stroke-width="1.5">` + "\n")
	for _, e := range w.Query().With(w.Pos).With(w.Boxes).Without(w.Mass).Execute() {
		pos, _ := w.Pos.Get(e)
		box, _ := w.Boxes.Get(e)
		h := box.HalfExtents()
		x, y := f.point(mgl64.Vec2{pos.X() - h.X(), pos.Y() + h.Y()})
		fmt.Fprintf(&sb, `<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f"/>
`, x, y, box.Size.X()*f.scale, box.Size.Y()*f.scale)
	}
	for _, e := range w.Query().With(w.Pos).With(w.Circles).Without(w.Mass).Execute() {
		pos, _ := w.Pos.Get(e)
		circle, _ := w.Circles.Get(e)
		x, y := f.point(pos)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, x, y, circle.Radius*f.scale)
	}
	sb.WriteString("</g>\n")

	sb.WriteString(`<g fill="#00ffff">` + "\n")
	for _, e := range w.Dynamics() {
		pos, _ := w.Pos.Get(e)
		circle, _ := w.Circles.Get(e)
		x, y := f.point(pos)
		fmt.Fprintf(&sb, `<circle cx="%.1f" cy="%.1f" r="%.1f"/>
`, x, y, circle.Radius*f.scale)
	}
	sb.WriteString("</g>\n</svg>")
	return sb.String()
}
