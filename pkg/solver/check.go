package solver

import (
	"math"

	"github.com/matzehuels/stemplan/pkg/layout"
)

// Satisfaction tolerances.
const (
	// DistanceTolerance is the relative slack on distance targets.
	DistanceTolerance = 0.25
	// MinTolerance is the absolute slack used for alignment, fixed
	// positions and small distance targets.
	MinTolerance = 5.0
)

// Satisfied returns the constraints in cs that hold for pos.
func Satisfied(cs []layout.Constraint, pos layout.Positions) []layout.Constraint {
	var out []layout.Constraint
	for _, c := range cs {
		if Check(c, pos) {
			out = append(out, c)
		}
	}
	return out
}

// Check reports whether c holds for pos. A constraint with an object missing
// from pos never holds. Types without a geometric test hold when every
// object is placed.
func Check(c layout.Constraint, pos layout.Positions) bool {
	pts := make([]layout.Point, 0, len(c.Objects))
	for _, id := range c.Objects {
		p, ok := pos[id]
		if !ok {
			return false
		}
		pts = append(pts, p)
	}
	if len(pts) == 0 {
		return false
	}

	switch c.Type {
	case layout.TypeBounds:
		x0 := c.Float(layout.ParamXMin, math.Inf(-1))
		y0 := c.Float(layout.ParamYMin, math.Inf(-1))
		x1 := c.Float(layout.ParamXMax, math.Inf(1))
		y1 := c.Float(layout.ParamYMax, math.Inf(1))
		for _, p := range pts {
			if p.X < x0-1e-6 || p.X > x1+1e-6 || p.Y < y0-1e-6 || p.Y > y1+1e-6 {
				return false
			}
		}
		return true

	case layout.TypeNoOverlap:
		margin := c.Float(layout.ParamMinMargin, 0)
		for i := range pts {
			for j := i + 1; j < len(pts); j++ {
				if pts[i].Dist(pts[j]) < margin {
					return false
				}
			}
		}
		return true

	case layout.TypeDistance:
		if len(pts) < 2 {
			return true
		}
		target := c.Float(layout.ParamTarget, 0)
		tol := max(target*DistanceTolerance, MinTolerance)
		return math.Abs(pts[0].Dist(pts[1])-target) <= tol

	case layout.TypeMinDistance:
		minD := c.Float(layout.ParamMin, 0)
		return pairwise(pts, func(d float64) bool { return d >= minD-1e-6 })

	case layout.TypeMaxDistance:
		maxD := c.Float(layout.ParamMax, math.Inf(1))
		return pairwise(pts, func(d float64) bool { return d <= maxD+1e-6 })

	case layout.TypeAlignment:
		vertical := c.Text(layout.ParamAxis, layout.AxisHorizontal) == layout.AxisVertical
		for _, p := range pts[1:] {
			if vertical && math.Abs(p.X-pts[0].X) > MinTolerance {
				return false
			}
			if !vertical && math.Abs(p.Y-pts[0].Y) > MinTolerance {
				return false
			}
		}
		return true

	case layout.TypeFixedPosition:
		x := c.Float(layout.ParamX, pts[0].X)
		y := c.Float(layout.ParamY, pts[0].Y)
		return math.Abs(pts[0].X-x) <= MinTolerance && math.Abs(pts[0].Y-y) <= MinTolerance

	case layout.TypeEqualSpacing:
		if len(pts) < 3 {
			return true
		}
		gap := pts[0].Dist(pts[1])
		for i := 2; i < len(pts); i++ {
			if math.Abs(pts[i-1].Dist(pts[i])-gap) > max(gap*DistanceTolerance, MinTolerance) {
				return false
			}
		}
		return true
	}
	return true
}

// pairwise reports whether ok holds for the distance of every pair.
func pairwise(pts []layout.Point, ok func(d float64) bool) bool {
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			if !ok(pts[i].Dist(pts[j])) {
				return false
			}
		}
	}
	return true
}
