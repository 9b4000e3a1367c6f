package solver

import (
	"context"
	"math"
	"time"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
)

// SMT limits.
const (
	// SMTMaxEntities bounds the problem size the SAT encoding accepts.
	SMTMaxEntities = 40
	// smtMaxCells bounds the number of grid cells.
	smtMaxCells = 96
	// smtPollInterval is how often a running solve checks for cancellation.
	smtPollInterval = 5 * time.Millisecond
)

// relaxable lists soft priorities from most to least important. REQUIRED
// constraints are never relaxed.
var relaxable = []layout.Priority{layout.PriorityHigh, layout.PriorityMedium, layout.PriorityLow}

// SMT places entities on grid cells by encoding the layout as a SAT
// problem: each entity occupies exactly one cell, each cell holds at most
// one entity, and constraints restrict which cell pairs are compatible.
// Soft constraints are guarded by per-priority selector literals and
// dropped lowest-first until the instance is satisfiable.
type SMT struct{}

// NewSMT creates the SAT-backed back-end.
func NewSMT() *SMT { return &SMT{} }

// Kind implements Backend.
func (*SMT) Kind() Kind { return KindSMT }

// Available implements Backend. The solver is pure Go and always present.
func (*SMT) Available() bool { return true }

// TrySolve implements Backend.
func (s *SMT) TrySolve(ctx context.Context, p Problem) (Solution, error) {
	n := len(p.Entities)
	if n == 0 {
		return Solution{}, errors.New(errors.ErrCodeNoPositions, "smt: no entities")
	}
	if n > SMTMaxEntities {
		return Solution{}, errors.New(errors.ErrCodeSolverFailed, "smt: %d entities exceeds limit %d", n, SMTMaxEntities)
	}

	enc := newEncoding(p)
	enc.encode()

	// Check the REQUIRED layer before assuming any selector.
	res, err := enc.solve(ctx)
	if err != nil {
		return Solution{}, err
	}
	if res != 1 {
		return Solution{}, errors.New(errors.ErrCodeSolverFailed, "smt: required constraints are unsatisfiable on a %dx%d grid", enc.cols, enc.rows)
	}

	active := relaxable
	for len(active) > 0 {
		assumptions := make([]z.Lit, 0, len(active))
		for _, pr := range active {
			assumptions = append(assumptions, enc.selector(pr))
		}
		enc.g.Assume(assumptions...)
		res, err := enc.solve(ctx)
		if err != nil {
			return Solution{}, err
		}
		if res == 1 {
			return newSolution(p, enc.positions(), true), nil
		}
		active = active[:len(active)-1]
	}

	// Every soft level dropped.
	if res, err = enc.solve(ctx); err != nil {
		return Solution{}, err
	}
	if res != 1 {
		return Solution{}, errors.New(errors.ErrCodeSolverFailed, "smt: no model after relaxing every soft priority")
	}
	return newSolution(p, enc.positions(), true), nil
}

// cellEncoding holds the SAT instance for one problem.
type cellEncoding struct {
	p     Problem
	g     *gini.Gini
	index map[string]int
	cells []layout.Point
	cols  int
	rows  int
	cw    float64
	ch    float64
}

func newEncoding(p Problem) *cellEncoding {
	canvas := p.Canvas.WithDefaults()
	x0, y0, x1, y1 := canvas.Inner()
	w, h := math.Max(x1-x0, 1), math.Max(y1-y0, 1)
	n := len(p.Entities)

	target := min(max(2*n, 9), smtMaxCells)
	cols := max(1, int(math.Ceil(math.Sqrt(float64(target)*w/h))))
	rows := max(1, (target+cols-1)/cols)
	for cols*rows < n {
		rows++
	}

	e := &cellEncoding{
		p:     p,
		g:     gini.New(),
		index: make(map[string]int, n),
		cols:  cols,
		rows:  rows,
		cw:    w / float64(cols),
		ch:    h / float64(rows),
	}
	for i, id := range p.Entities {
		e.index[id] = i
	}
	for r := 0; r < rows; r++ {
		for c := 0; c < cols; c++ {
			e.cells = append(e.cells, layout.Point{
				X: x0 + e.cw*(float64(c)+0.5),
				Y: y0 + e.ch*(float64(r)+0.5),
			})
		}
	}
	return e
}

// solve runs the SAT search in the background and stops it when ctx ends.
// The result is 1 for sat and -1 for unsat.
func (e *cellEncoding) solve(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, errors.Wrap(errors.ErrCodeSolverFailed, err, "smt: canceled")
	}
	s := e.g.GoSolve()
	tick := time.NewTicker(smtPollInterval)
	defer tick.Stop()
	for {
		if res, done := s.Test(); done {
			return res, nil
		}
		select {
		case <-ctx.Done():
			s.Stop()
			return 0, errors.Wrap(errors.ErrCodeSolverFailed, ctx.Err(), "smt: canceled")
		case <-tick.C:
		}
	}
}

// at is the literal "entity i occupies cell k".
func (e *cellEncoding) at(i, k int) z.Lit {
	return z.Var(1 + i*len(e.cells) + k).Pos()
}

// selector is the activation literal of a soft priority level.
func (e *cellEncoding) selector(pr layout.Priority) z.Lit {
	return z.Var(1 + len(e.p.Entities)*len(e.cells) + int(pr)).Pos()
}

// clause adds a clause, guarded by the priority's selector when soft.
func (e *cellEncoding) clause(pr layout.Priority, lits ...z.Lit) {
	if pr != layout.PriorityRequired {
		e.g.Add(e.selector(pr).Not())
	}
	for _, m := range lits {
		e.g.Add(m)
	}
	e.g.Add(z.LitNull)
}

func (e *cellEncoding) encode() {
	n, k := len(e.p.Entities), len(e.cells)

	// Selectors must occur in a clause before they can be assumed.
	guard := z.Var(2 + n*k + int(layout.PriorityRequired)).Pos()
	e.g.Add(guard)
	e.g.Add(z.LitNull)
	for _, pr := range relaxable {
		e.clause(pr, guard)
	}

	for i := 0; i < n; i++ {
		lits := make([]z.Lit, k)
		for c := 0; c < k; c++ {
			lits[c] = e.at(i, c)
		}
		e.clause(layout.PriorityRequired, lits...)
		for a := 0; a < k; a++ {
			for b := a + 1; b < k; b++ {
				e.clause(layout.PriorityRequired, e.at(i, a).Not(), e.at(i, b).Not())
			}
		}
	}
	for c := 0; c < k; c++ {
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				e.clause(layout.PriorityRequired, e.at(i, c).Not(), e.at(j, c).Not())
			}
		}
	}

	for _, c := range e.p.Constraints {
		e.encodeConstraint(c)
	}
}

func (e *cellEncoding) encodeConstraint(c layout.Constraint) {
	ids := e.known(c.Objects)
	if len(ids) == 0 {
		return
	}
	pr := c.Priority
	if pr == 0 {
		pr = layout.PriorityMedium
	}
	slack := math.Hypot(e.cw, e.ch) / 2

	switch c.Type {
	case layout.TypeBounds:
		x0 := c.Float(layout.ParamXMin, math.Inf(-1))
		y0 := c.Float(layout.ParamYMin, math.Inf(-1))
		x1 := c.Float(layout.ParamXMax, math.Inf(1))
		y1 := c.Float(layout.ParamYMax, math.Inf(1))
		for _, i := range ids {
			for k, cell := range e.cells {
				if cell.X < x0 || cell.X > x1 || cell.Y < y0 || cell.Y > y1 {
					e.clause(pr, e.at(i, k).Not())
				}
			}
		}

	case layout.TypeNoOverlap:
		margin := c.Float(layout.ParamMinMargin, 0)
		if margin <= math.Min(e.cw, e.ch) {
			return
		}
		e.pairExclude(ids, pr, func(d float64) bool { return d < margin })

	case layout.TypeDistance:
		if len(ids) < 2 {
			return
		}
		t := c.Float(layout.ParamTarget, 0)
		tol := max(t*DistanceTolerance, slack)
		e.pairRequire(ids[0], ids[1], pr, func(d float64) bool { return math.Abs(d-t) <= tol })

	case layout.TypeMinDistance:
		minD := c.Float(layout.ParamMin, 0)
		e.pairExclude(ids, pr, func(d float64) bool { return d < minD })

	case layout.TypeMaxDistance:
		maxD := c.Float(layout.ParamMax, math.Inf(1))
		e.pairExclude(ids, pr, func(d float64) bool { return d > maxD })

	case layout.TypeAlignment:
		vertical := c.Text(layout.ParamAxis, layout.AxisHorizontal) == layout.AxisVertical
		for _, j := range ids[1:] {
			e.pairRequireCells(ids[0], j, pr, func(a, b int) bool {
				if vertical {
					return a%e.cols == b%e.cols
				}
				return a/e.cols == b/e.cols
			})
		}

	case layout.TypeFixedPosition:
		want := layout.Point{X: c.Float(layout.ParamX, math.NaN()), Y: c.Float(layout.ParamY, math.NaN())}
		if math.IsNaN(want.X) || math.IsNaN(want.Y) {
			return
		}
		best := e.nearest(want)
		e.clause(pr, e.at(ids[0], best))
	}
}

// pairRequire forces every placement of a to have b in a cell whose centre
// distance satisfies ok.
func (e *cellEncoding) pairRequire(a, b int, pr layout.Priority, ok func(d float64) bool) {
	e.pairRequireCells(a, b, pr, func(x, y int) bool { return ok(e.cells[x].Dist(e.cells[y])) })
}

func (e *cellEncoding) pairRequireCells(a, b int, pr layout.Priority, ok func(x, y int) bool) {
	for x := range e.cells {
		lits := []z.Lit{e.at(a, x).Not()}
		for y := range e.cells {
			if x != y && ok(x, y) {
				lits = append(lits, e.at(b, y))
			}
		}
		e.clause(pr, lits...)
	}
}

// pairExclude forbids every pair of ids from occupying cells whose centre
// distance satisfies bad.
func (e *cellEncoding) pairExclude(ids []int, pr layout.Priority, bad func(d float64) bool) {
	for i := 0; i < len(ids); i++ {
		for j := i + 1; j < len(ids); j++ {
			for x := range e.cells {
				for y := range e.cells {
					if x != y && bad(e.cells[x].Dist(e.cells[y])) {
						e.clause(pr, e.at(ids[i], x).Not(), e.at(ids[j], y).Not())
					}
				}
			}
		}
	}
}

func (e *cellEncoding) known(objects []string) []int {
	var out []int
	for _, id := range objects {
		if i, ok := e.index[id]; ok {
			out = append(out, i)
		}
	}
	return out
}

func (e *cellEncoding) nearest(p layout.Point) int {
	best, bestD := 0, math.Inf(1)
	for k, c := range e.cells {
		if d := c.Dist(p); d < bestD {
			best, bestD = k, d
		}
	}
	return best
}

// positions reads the model after a satisfiable Solve.
func (e *cellEncoding) positions() layout.Positions {
	pos := make(layout.Positions, len(e.p.Entities))
	for i, id := range e.p.Entities {
		for k := range e.cells {
			if e.g.Value(e.at(i, k)) {
				pos[id] = e.cells[k]
				break
			}
		}
	}
	return pos
}
