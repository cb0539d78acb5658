package viz

import "strings"

// Braille cells pack 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
//
// Unicode offset 0x2800.
var dotMask = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// LineStyle selects the dot pattern of a drawn line.
type LineStyle int

const (
	LineSolid LineStyle = iota
	// LineDashed draws three dots and skips two.
	LineDashed
	// LineDotted draws one dot and skips two.
	LineDotted
)

// Canvas is a braille-dot drawing surface. Width and Height are in
// terminal cells; the dot resolution is (Width*2) x (Height*4).
type Canvas struct {
	Width, Height int
	grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, grid: make([][]rune, h)}
	for i := range c.grid {
		c.grid[i] = make([]rune, w)
		for j := range c.grid[i] {
			c.grid[i][j] = 0x2800
		}
	}
	return c
}

// Set lights the dot at (x, y) in dot coordinates.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.grid[row][col] |= dotMask[y%4][x%2]
}

// Cross lights a small plus-shaped marker centered on (x, y).
func (c *Canvas) Cross(x, y int) {
	c.Set(x, y)
	c.Set(x-1, y)
	c.Set(x+1, y)
	c.Set(x, y-1)
	c.Set(x, y+1)
}

// DrawLine draws a Bresenham line between two dot coordinates. Dashed
// and dotted styles skip dots on a fixed cadence along the walk.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int, style LineStyle) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	e := dx - dy

	step := 0
	for {
		if styleDraws(style, step) {
			c.Set(x0, y0)
		}
		step++
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 > -dy {
			e -= dy
			x0 += sx
		}
		if e2 < dx {
			e += dx
			y0 += sy
		}
	}
}

func styleDraws(style LineStyle, step int) bool {
	switch style {
	case LineDashed:
		return step%5 < 3
	case LineDotted:
		return step%3 == 0
	}
	return true
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
