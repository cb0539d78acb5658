// Package export renders solved structures to standalone files.
package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/tenseg/internal/structure"
	"github.com/san-kum/tenseg/internal/viz"
)

const (
	svgPad        = 40.0
	svgNodeRadius = 4.0
)

// StructureToSVG draws the structure as vector art: dashed red strings,
// solid blue bars, stroke width scaled by member force magnitude, node
// circles and cross markers on pinned nodes.
func StructureToSVG(t *structure.Tensegrity, width, height int) string {
	dim := t.Dim()

	project := func(pos []float64) (float64, float64) {
		return viz.Project(viz.Lift(pos, dim, t.Surface), dim)
	}

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	maxForce := 0.0
	for _, n := range t.Nodes() {
		x, y := project(n.Position)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minY, maxY = math.Min(minY, y), math.Max(maxY, y)
	}
	for _, c := range t.Connections {
		if f := math.Abs(c.Force); f > maxForce {
			maxForce = f
		}
	}

	spanX := maxX - minX
	spanY := maxY - minY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}
	scale := math.Min(
		(float64(width)-2*svgPad)/spanX,
		(float64(height)-2*svgPad)/spanY)

	toScreen := func(pos []float64) (float64, float64) {
		x, y := project(pos)
		sx := (x-minX)*scale + svgPad
		sy := float64(height) - ((y-minY)*scale + svgPad)
		return sx, sy
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height))

	for _, c := range t.Connections {
		stroke := "#5599ff"
		dash := ""
		if c.Kind == structure.KindString {
			stroke = "#ff5566"
			dash = ` stroke-dasharray="6,4"`
			if c.Force == 0 {
				stroke = "#556677"
				dash = ` stroke-dasharray="2,4"`
			}
		}
		w := 1.5
		if maxForce > 0 {
			w = 1.0 + 2.5*math.Abs(c.Force)/maxForce
		}

		for i := 0; i+1 < len(c.Nodes); i++ {
			a, b := c.Nodes[i], c.Nodes[i+1]
			if t.Surface != nil && t.Surface.Linked(a.Name, b.Name) {
				continue
			}
			x1, y1 := toScreen(a.Position)
			x2, y2 := toScreen(b.Position)
			sb.WriteString(fmt.Sprintf(
				`<line x1="%.1f" y1="%.1f" x2="%.1f" y2="%.1f" stroke="%s" stroke-width="%.1f"%s/>`+"\n",
				x1, y1, x2, y2, stroke, w, dash))
		}
	}

	for _, n := range t.Nodes() {
		x, y := toScreen(n.Position)
		sb.WriteString(fmt.Sprintf(
			`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="#eeeeee"/>`+"\n",
			x, y, svgNodeRadius))
		if t.Pinned(n.Name, 0) || t.Pinned(n.Name, 1) {
			r := svgNodeRadius * 2
			sb.WriteString(fmt.Sprintf(
				`<path d="M%.1f,%.1f L%.1f,%.1f M%.1f,%.1f L%.1f,%.1f" stroke="#ffcc00" stroke-width="1.5"/>`+"\n",
				x-r, y-r, x+r, y+r, x-r, y+r, x+r, y-r))
		}
		sb.WriteString(fmt.Sprintf(
			`<text x="%.1f" y="%.1f" fill="#888899" font-size="11" font-family="monospace">%s</text>`+"\n",
			x+6, y-6, n.Name))
	}

	sb.WriteString("</svg>\n")
	return sb.String()
}
