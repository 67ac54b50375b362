package analysis

import (
	"strings"

	"github.com/san-kum/xpbd/internal/sim"
)

type Point struct{ X, Y float64 }

// PhasePortrait2D holds one body's trajectory in two chosen components.
type PhasePortrait2D struct {
	XComponent, YComponent Component
	Points                 []Point
}

// GeneratePhasePortrait pairs two components of a body over a recorded run.
func GeneratePhasePortrait(states []sim.State, body int, xc, yc Component) *PhasePortrait2D {
	portrait := &PhasePortrait2D{
		XComponent: xc,
		YComponent: yc,
		Points:     make([]Point, 0, len(states)),
	}
	for _, x := range states {
		if body < 0 || body >= x.Bodies() {
			continue
		}
		o := body * sim.StrideBody
		portrait.Points = append(portrait.Points, Point{X: x[o+int(xc)], Y: x[o+int(yc)]})
	}
	return portrait
}

// Section records points when a component crosses a threshold upward.
type Section struct {
	Points []Point
}

// GenerateSection records (recordX, recordY) of a body every time the cross
// component passes threshold from below. With cross=VY and threshold 0 this
// marks every bounce.
func GenerateSection(states []sim.State, body int, cross Component, threshold float64, recordX, recordY Component) *Section {
	section := &Section{Points: make([]Point, 0)}

	prev, havePrev := 0.0, false
	for _, x := range states {
		if body < 0 || body >= x.Bodies() {
			havePrev = false
			continue
		}
		o := body * sim.StrideBody
		curr := x[o+int(cross)]
		if havePrev && prev < threshold && curr >= threshold {
			section.Points = append(section.Points, Point{X: x[o+int(recordX)], Y: x[o+int(recordY)]})
		}
		prev, havePrev = curr, true
	}
	return section
}

// PhasePortraitToASCII plots a portrait with axes where they are visible.
func PhasePortraitToASCII(portrait *PhasePortrait2D, width, height int) string {
	if portrait == nil || len(portrait.Points) == 0 {
		return ""
	}
	return plotPoints(portrait.Points, width, height)
}

func SectionToASCII(section *Section, width, height int) string {
	if section == nil || len(section.Points) == 0 {
		return "No crossings detected"
	}
	return plotPoints(section.Points, width, height)
}

type bounds struct{ minX, maxX, minY, maxY float64 }

// paddedBounds returns the extent of pts grown by 10% on each side.
func paddedBounds(pts []Point) bounds {
	b := bounds{pts[0].X, pts[0].X, pts[0].Y, pts[0].Y}
	for _, p := range pts {
		b.minX, b.maxX = min(b.minX, p.X), max(b.maxX, p.X)
		b.minY, b.maxY = min(b.minY, p.Y), max(b.maxY, p.Y)
	}
	rx, ry := b.maxX-b.minX, b.maxY-b.minY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	return bounds{b.minX - rx*0.1, b.maxX + rx*0.1, b.minY - ry*0.1, b.maxY + ry*0.1}
}

func (b bounds) cell(p Point, width, height int) (int, int) {
	col := int((p.X - b.minX) / (b.maxX - b.minX) * float64(width-1))
	row := height - 1 - int((p.Y-b.minY)/(b.maxY-b.minY)*float64(height-1))
	return row, col
}

func newGrid(width, height int) [][]rune {
	grid := make([][]rune, height)
	for i := range grid {
		grid[i] = []rune(strings.Repeat(" ", width))
	}
	return grid
}

func plotPoints(pts []Point, width, height int) string {
	if width <= 1 || height <= 1 {
		return ""
	}
	b := paddedBounds(pts)
	grid := newGrid(width, height)

	for _, p := range pts {
		row, col := b.cell(p, width, height)
		if row >= 0 && row < height && col >= 0 && col < width {
			grid[row][col] = '•'
		}
	}

	axisRow, axisCol := b.cell(Point{}, width, height)
	if b.minX <= 0 && b.maxX >= 0 {
		for row := 0; row < height; row++ {
			if grid[row][axisCol] == ' ' {
				grid[row][axisCol] = '│'
			}
		}
	}
	if b.minY <= 0 && b.maxY >= 0 {
		for col := 0; col < width; col++ {
			if grid[axisRow][col] == ' ' {
				grid[axisRow][col] = '─'
			}
		}
	}

	return render(grid)
}

func render(grid [][]rune) string {
	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteRune('\n')
	}
	return sb.String()
}
