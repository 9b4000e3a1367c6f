package solver

import (
	"context"
	"math"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
)

// Heuristic spreads entities over a balanced grid that fills the canvas,
// then snaps alignment groups onto a shared row or column and pins fixed
// positions. It does not search.
type Heuristic struct{}

// NewHeuristic creates the heuristic back-end.
func NewHeuristic() *Heuristic { return &Heuristic{} }

// Kind implements Backend.
func (*Heuristic) Kind() Kind { return KindHeuristic }

// Available implements Backend.
func (*Heuristic) Available() bool { return true }

// TrySolve implements Backend.
func (*Heuristic) TrySolve(ctx context.Context, p Problem) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}
	if len(p.Entities) == 0 {
		return Solution{}, errors.New(errors.ErrCodeNoPositions, "heuristic: no entities")
	}
	pos := balancedGrid(p.Entities, p.Canvas)
	snapAlignments(pos, p.Constraints, p.Canvas)
	pinFixed(pos, p.Constraints)
	return newSolution(p, pos, false), nil
}

// balancedGrid places entities at the centres of a near-square grid of
// cells covering the inner canvas.
func balancedGrid(entities []string, canvas layout.Canvas) layout.Positions {
	canvas = canvas.WithDefaults()
	x0, y0, x1, y1 := canvas.Inner()
	n := len(entities)
	cols := max(1, int(math.Ceil(math.Sqrt(float64(n)))))
	rows := max(1, (n+cols-1)/cols)
	cw, ch := (x1-x0)/float64(cols), (y1-y0)/float64(rows)

	pos := make(layout.Positions, n)
	for i, id := range entities {
		col, row := i%cols, i/cols
		pos[id] = layout.Point{
			X: x0 + cw*(float64(col)+0.5),
			Y: y0 + ch*(float64(row)+0.5),
		}
	}
	return pos
}

// snapAlignments moves the members of each alignment constraint onto the
// first member's row (or column) and spreads them evenly along it.
func snapAlignments(pos layout.Positions, cs []layout.Constraint, canvas layout.Canvas) {
	canvas = canvas.WithDefaults()
	x0, y0, x1, y1 := canvas.Inner()
	for _, c := range cs {
		if c.Type != layout.TypeAlignment || len(c.Objects) < 2 {
			continue
		}
		anchor, ok := pos[c.Objects[0]]
		if !ok {
			continue
		}
		vertical := c.Text(layout.ParamAxis, layout.AxisHorizontal) == layout.AxisVertical
		k := float64(len(c.Objects))
		for i, id := range c.Objects {
			if _, ok := pos[id]; !ok {
				continue
			}
			if vertical {
				pos[id] = layout.Point{X: anchor.X, Y: y0 + (y1-y0)*(float64(i)+0.5)/k}
			} else {
				pos[id] = layout.Point{X: x0 + (x1-x0)*(float64(i)+0.5)/k, Y: anchor.Y}
			}
		}
	}
}

// pinFixed applies fixed_position constraints.
func pinFixed(pos layout.Positions, cs []layout.Constraint) {
	for _, c := range cs {
		if c.Type != layout.TypeFixedPosition || len(c.Objects) == 0 {
			continue
		}
		id := c.Objects[0]
		cur, ok := pos[id]
		if !ok {
			continue
		}
		pos[id] = layout.Point{X: c.Float(layout.ParamX, cur.X), Y: c.Float(layout.ParamY, cur.Y)}
	}
}
