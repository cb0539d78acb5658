package viz

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/tenseg/internal/structure"
)

// curveSamples is the number of segments used when a seam-wrapped
// string is rendered as an arc on its cylinder.
const curveSamples = 32

type Options struct {
	Width, Height int
	ShowForces    bool
}

func DefaultOptions() Options {
	return Options{Width: 72, Height: 20}
}

// Point3 is a position lifted into render space.
type Point3 struct {
	X, Y, Z float64
}

// Lift maps a node's coordinates into 3D render space. Planar
// structures sit in the XY plane. Wrapped structures bend the unrolled
// x axis around the cylinder: (x, y) lands at angle x/r and height y.
func Lift(pos []float64, dim structure.Dim, surf *structure.Surface) Point3 {
	if dim == structure.Dim25 && surf != nil && surf.Type == structure.SurfaceCylinder {
		r := surf.Radius()
		if r > 0 {
			theta := pos[0] / r
			return Point3{X: r * math.Cos(theta), Y: r * math.Sin(theta), Z: pos[1]}
		}
	}
	p := Point3{X: pos[0], Y: pos[1]}
	if len(pos) > 2 {
		p.Z = pos[2]
	}
	return p
}

// Project flattens render space onto the screen plane with an oblique
// projection: depth shifts points up and to the right.
func Project(p Point3, dim structure.Dim) (float64, float64) {
	switch dim {
	case structure.Dim2:
		return p.X, p.Y
	case structure.Dim25:
		// X is toward the viewer after the lift; it becomes depth.
		return p.Y + 0.35*p.X, p.Z + 0.2*p.X
	default:
		return p.X + 0.35*p.Y, p.Z + 0.2*p.Y
	}
}

// Render draws the structure to a braille canvas and returns it with
// an optional force table appended. Strings draw dashed, bars solid,
// slack strings dotted, and pinned nodes get a cross marker.
func Render(t *structure.Tensegrity, opts Options) string {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts = DefaultOptions()
	}

	segs, points := collectSegments(t)
	fit := fitView(points, opts)

	canvas := NewCanvas(opts.Width, opts.Height)
	for _, s := range segs {
		for i := 0; i+1 < len(s.path); i++ {
			x0, y0 := fit.toDots(s.path[i])
			x1, y1 := fit.toDots(s.path[i+1])
			canvas.DrawLine(x0, y0, x1, y1, s.style)
		}
	}

	dim := t.Dim()
	for _, n := range t.Nodes() {
		px, py := Project(Lift(n.Position, dim, t.Surface), dim)
		x, y := fit.toDots([2]float64{px, py})
		if t.Pinned(n.Name, 0) || t.Pinned(n.Name, 1) {
			canvas.Cross(x, y)
		} else {
			canvas.Set(x, y)
		}
	}

	out := canvas.String()
	if opts.ShowForces {
		out += "\n" + ForceSummary(t)
	}
	return out
}

type segment struct {
	path  [][2]float64
	style LineStyle
}

// collectSegments turns every connection segment into a projected
// polyline. Seam-linked segments are skipped outright; on a wrapped
// structure the remaining segments are sampled so they follow the
// cylinder instead of cutting through it.
func collectSegments(t *structure.Tensegrity) ([]segment, [][2]float64) {
	dim := t.Dim()
	wrapped := dim == structure.Dim25 && t.Surface != nil

	var segs []segment
	var points [][2]float64

	for _, c := range t.Connections {
		style := connectionStyle(c)
		for i := 0; i+1 < len(c.Nodes); i++ {
			a, b := c.Nodes[i], c.Nodes[i+1]
			if t.Surface != nil && t.Surface.Linked(a.Name, b.Name) {
				continue
			}

			samples := 1
			if wrapped {
				samples = curveSamples
			}
			path := make([][2]float64, 0, samples+1)
			for k := 0; k <= samples; k++ {
				f := float64(k) / float64(samples)
				pos := lerp(a.Position, b.Position, f)
				px, py := Project(Lift(pos, dim, t.Surface), dim)
				path = append(path, [2]float64{px, py})
			}
			segs = append(segs, segment{path: path, style: style})
			points = append(points, path...)
		}
	}

	for _, n := range t.Nodes() {
		px, py := Project(Lift(n.Position, dim, t.Surface), dim)
		points = append(points, [2]float64{px, py})
	}
	return segs, points
}

func connectionStyle(c *structure.Connection) LineStyle {
	if c.Kind == structure.KindBar {
		return LineSolid
	}
	if c.Force == 0 {
		return LineDotted
	}
	return LineDashed
}

func lerp(a, b []float64, f float64) []float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		out[i] = a[i] + f*(b[i]-a[i])
	}
	return out
}

// view maps projected coordinates onto the dot grid, preserving aspect
// and flipping y so larger values render higher.
type view struct {
	minX, minY float64
	scale      float64
	offX, offY float64
	dotH       int
}

func fitView(points [][2]float64, opts Options) view {
	dotW := opts.Width*2 - 3
	dotH := opts.Height*4 - 3

	minX, minY := math.Inf(1), math.Inf(1)
	maxX, maxY := math.Inf(-1), math.Inf(-1)
	for _, p := range points {
		minX = math.Min(minX, p[0])
		maxX = math.Max(maxX, p[0])
		minY = math.Min(minY, p[1])
		maxY = math.Max(maxY, p[1])
	}
	if len(points) == 0 {
		minX, minY, maxX, maxY = 0, 0, 1, 1
	}

	spanX := maxX - minX
	spanY := maxY - minY
	if spanX == 0 {
		spanX = 1
	}
	if spanY == 0 {
		spanY = 1
	}
	scale := math.Min(float64(dotW)/spanX, float64(dotH)/spanY)

	return view{
		minX:  minX,
		minY:  minY,
		scale: scale,
		offX:  (float64(dotW) - spanX*scale) / 2,
		offY:  (float64(dotH) - spanY*scale) / 2,
		dotH:  dotH,
	}
}

func (v view) toDots(p [2]float64) (int, int) {
	x := int(math.Round((p[0]-v.minX)*v.scale+v.offX)) + 1
	y := v.dotH - int(math.Round((p[1]-v.minY)*v.scale+v.offY)) + 1
	return x, y
}

// ForceSummary renders one line per connection with its current
// length, rest length and force, colored by sign.
func ForceSummary(t *structure.Tensegrity) string {
	var b strings.Builder
	b.WriteString(TitleStyle.Render("forces"))
	b.WriteByte('\n')
	for i, c := range t.Connections {
		name := c.Name
		if name == "" {
			name = fmt.Sprintf("%s#%d", c.Kind, i)
		}
		line := fmt.Sprintf("  %-12s %-6s L=%7.4f L0=%7.4f F=%8.3f",
			name, c.Kind, c.CurrentLength(t.Surface), c.RestLength, c.Force)
		b.WriteString(forceStyle(c).Render(line))
		b.WriteByte('\n')
	}
	return b.String()
}

func forceStyle(c *structure.Connection) lipgloss.Style {
	switch {
	case c.Force > 0:
		return TensionStyle
	case c.Force < 0:
		return CompressionStyle
	}
	return SlackStyle
}
