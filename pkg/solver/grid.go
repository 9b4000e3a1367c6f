package solver

import (
	"context"
	"math"

	"github.com/matzehuels/stemplan/pkg/layout"
)

// GridSpacing is the fixed cell pitch of [Grid].
const GridSpacing = 100.0

// Grid places entities row-major at a fixed pitch starting from the canvas
// margin. Rows wrap at the canvas width. It is deterministic and never fails.
func Grid(entities []string, canvas layout.Canvas) layout.Positions {
	canvas = canvas.WithDefaults()
	x0, y0, x1, _ := canvas.Inner()
	cols := max(1, int(math.Floor((x1-x0)/GridSpacing)))
	pos := make(layout.Positions, len(entities))
	for i, id := range entities {
		col, row := i%cols, i/cols
		pos[id] = layout.Point{
			X: x0 + GridSpacing/2 + float64(col)*GridSpacing,
			Y: y0 + GridSpacing/2 + float64(row)*GridSpacing,
		}
	}
	return pos
}

// Fallback is the terminal back-end. It lays entities out with [Grid] and
// always succeeds.
type Fallback struct{}

// NewFallback creates the fallback back-end.
func NewFallback() *Fallback { return &Fallback{} }

// Kind implements Backend.
func (*Fallback) Kind() Kind { return KindFallback }

// Available implements Backend.
func (*Fallback) Available() bool { return true }

// TrySolve implements Backend. It ignores ctx cancellation so the chain
// always terminates with positions.
func (*Fallback) TrySolve(_ context.Context, p Problem) (Solution, error) {
	return newSolution(p, Grid(p.Entities, p.Canvas), false), nil
}
