package solver

import (
	"context"
	"math"

	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
)

// Symbolic limits and weights.
const (
	// SymbolicMaxEntities bounds the problem size of the minimizer.
	SymbolicMaxEntities = 60
	// symbolicIterations caps L-BFGS major iterations.
	symbolicIterations = 200
	// minSeparation keeps entities apart even without a no_overlap margin.
	minSeparation = 40.0
)

var priorityWeight = map[layout.Priority]float64{
	layout.PriorityRequired: 100,
	layout.PriorityHigh:     10,
	layout.PriorityMedium:   3,
	layout.PriorityLow:      1,
}

// Symbolic treats each constraint as a residual equation over entity
// coordinates and minimizes the priority-weighted sum of squared residuals
// with L-BFGS.
type Symbolic struct{}

// NewSymbolic creates the minimizer back-end.
func NewSymbolic() *Symbolic { return &Symbolic{} }

// Kind implements Backend.
func (*Symbolic) Kind() Kind { return KindSymbolic }

// Available implements Backend. gonum is pure Go and always present.
func (*Symbolic) Available() bool { return true }

// TrySolve implements Backend, starting from the balanced heuristic grid.
func (s *Symbolic) TrySolve(ctx context.Context, p Problem) (Solution, error) {
	if len(p.Entities) == 0 {
		return Solution{}, errors.New(errors.ErrCodeNoPositions, "symbolic: no entities")
	}
	return s.refine(ctx, p, balancedGrid(p.Entities, p.Canvas))
}

// refine minimizes the residuals starting from start.
func (s *Symbolic) refine(ctx context.Context, p Problem, start layout.Positions) (Solution, error) {
	if err := ctx.Err(); err != nil {
		return Solution{}, err
	}
	n := len(p.Entities)
	if n > SymbolicMaxEntities {
		return Solution{}, errors.New(errors.ErrCodeSolverFailed, "symbolic: %d entities exceeds limit %d", n, SymbolicMaxEntities)
	}

	index := make(map[string]int, n)
	x0 := make([]float64, 2*n)
	for i, id := range p.Entities {
		index[id] = i
		pt := start[id]
		x0[2*i], x0[2*i+1] = pt.X, pt.Y
	}

	obj := residuals{index: index, constraints: p.Constraints}
	prob := optimize.Problem{
		Func: obj.value,
		Grad: func(grad, x []float64) {
			fd.Gradient(grad, obj.value, x, nil)
		},
	}
	settings := &optimize.Settings{MajorIterations: symbolicIterations}

	res, err := optimize.Minimize(prob, x0, settings, &optimize.LBFGS{})
	if res == nil {
		return Solution{}, errors.Wrap(errors.ErrCodeSolverFailed, err, "symbolic: minimize")
	}
	for _, v := range res.X {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Solution{}, errors.New(errors.ErrCodeSolverFailed, "symbolic: diverged (%v)", res.Status)
		}
	}

	canvas := p.Canvas.WithDefaults()
	cx0, cy0, cx1, cy1 := canvas.Inner()
	pos := make(layout.Positions, n)
	for i, id := range p.Entities {
		pos[id] = layout.Point{
			X: clamp(res.X[2*i], cx0, cx1),
			Y: clamp(res.X[2*i+1], cy0, cy1),
		}
	}
	return newSolution(p, pos, true), nil
}

// residuals evaluates the weighted penalty of a flat coordinate vector.
type residuals struct {
	index       map[string]int
	constraints []layout.Constraint
}

func (r residuals) point(x []float64, id string) (layout.Point, bool) {
	i, ok := r.index[id]
	if !ok {
		return layout.Point{}, false
	}
	return layout.Point{X: x[2*i], Y: x[2*i+1]}, true
}

func (r residuals) value(x []float64) float64 {
	total := 0.0

	// Keep every pair of entities apart.
	for i := 0; i < len(x)/2; i++ {
		for j := i + 1; j < len(x)/2; j++ {
			d := math.Hypot(x[2*i]-x[2*j], x[2*i+1]-x[2*j+1])
			total += sq(math.Max(0, minSeparation-d))
		}
	}

	for _, c := range r.constraints {
		w := priorityWeight[c.Priority]
		if w == 0 {
			w = priorityWeight[layout.PriorityMedium]
		}
		var pts []layout.Point
		for _, id := range c.Objects {
			if p, ok := r.point(x, id); ok {
				pts = append(pts, p)
			}
		}
		if len(pts) == 0 {
			continue
		}
		total += w * r.penalty(c, pts)
	}
	return total
}

func (r residuals) penalty(c layout.Constraint, pts []layout.Point) float64 {
	sum := 0.0
	switch c.Type {
	case layout.TypeBounds:
		x0 := c.Float(layout.ParamXMin, math.Inf(-1))
		y0 := c.Float(layout.ParamYMin, math.Inf(-1))
		x1 := c.Float(layout.ParamXMax, math.Inf(1))
		y1 := c.Float(layout.ParamYMax, math.Inf(1))
		for _, p := range pts {
			sum += sq(math.Max(0, x0-p.X)) + sq(math.Max(0, p.X-x1)) +
				sq(math.Max(0, y0-p.Y)) + sq(math.Max(0, p.Y-y1))
		}

	case layout.TypeNoOverlap:
		m := c.Float(layout.ParamMinMargin, 0)
		forPairs(pts, func(d float64) { sum += sq(math.Max(0, m-d)) })

	case layout.TypeDistance:
		if len(pts) >= 2 {
			sum += sq(pts[0].Dist(pts[1]) - c.Float(layout.ParamTarget, 0))
		}

	case layout.TypeMinDistance:
		m := c.Float(layout.ParamMin, 0)
		forPairs(pts, func(d float64) { sum += sq(math.Max(0, m-d)) })

	case layout.TypeMaxDistance:
		m := c.Float(layout.ParamMax, math.Inf(1))
		forPairs(pts, func(d float64) { sum += sq(math.Max(0, d-m)) })

	case layout.TypeAlignment:
		vertical := c.Text(layout.ParamAxis, layout.AxisHorizontal) == layout.AxisVertical
		for _, p := range pts[1:] {
			if vertical {
				sum += sq(p.X - pts[0].X)
			} else {
				sum += sq(p.Y - pts[0].Y)
			}
		}

	case layout.TypeFixedPosition:
		p := pts[0]
		sum += sq(p.X-c.Float(layout.ParamX, p.X)) + sq(p.Y-c.Float(layout.ParamY, p.Y))

	case layout.TypeEqualSpacing:
		if len(pts) >= 3 {
			gap := pts[0].Dist(pts[1])
			for i := 2; i < len(pts); i++ {
				sum += sq(pts[i-1].Dist(pts[i]) - gap)
			}
		}
	}
	return sum
}

func forPairs(pts []layout.Point, f func(d float64)) {
	for i := range pts {
		for j := i + 1; j < len(pts); j++ {
			f(pts[i].Dist(pts[j]))
		}
	}
}

func sq(v float64) float64 { return v * v }

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
