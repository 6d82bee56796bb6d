package topology

import "math"

// VizMode selects the coordinate transform applied for visualization.
type VizMode string

const (
	VizCartesian  VizMode = "cartesian"
	VizNormalized VizMode = "normalized"
	VizScreen     VizMode = "screen"
)

// VizPoint is a 2-D visualization coordinate.
type VizPoint struct {
	X, Y float64
}

// VizCoord projects a node's grid coordinate into visualization space.
//
// Rectangular grids project as-is; hexagonal grids offset every other row
// so hexagons tile correctly:
//
//	x = col*sqrt(3) + (row mod 2)*sqrt(3)/2
//	y = row*1.5
func (g *Grid) VizCoord(i int, mode VizMode) VizPoint {
	c := g.Coords(i)
	var p VizPoint
	if g.Shape == Hexagonal {
		rowOffset := 0.0
		if c.Y%2 != 0 {
			rowOffset = math.Sqrt(3) / 2
		}
		p = VizPoint{
			X: float64(c.X)*math.Sqrt(3) + rowOffset,
			Y: float64(c.Y) * 1.5,
		}
	} else {
		p = VizPoint{X: float64(c.X), Y: float64(c.Y)}
	}

	switch mode {
	case VizNormalized:
		if g.Width > 0 {
			p.X /= float64(g.Width)
		}
		if g.Height > 0 {
			p.Y /= float64(g.Height)
		}
	case VizScreen:
		p.Y = float64(g.Height) - p.Y
	}
	return p
}
