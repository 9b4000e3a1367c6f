package graphplan

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/solver"
)

// Dispatch thresholds on the entity count.
const (
	HeuristicMaxEntities = 5
	SMTMaxEntities       = 15
)

// GridBackend names the dispatch grid in the backend layout hint.
const GridBackend = "grid"

// ChooseBackend picks the layout back-end for n entities under cs:
// at most five entities and no hard constraint use the heuristic, at most
// fifteen or any hard constraint use SMT, anything larger the symbolic
// minimizer.
func ChooseBackend(n int, cs []layout.Constraint) solver.Kind {
	hard := layout.CountHard(cs) > 0
	switch {
	case n <= HeuristicMaxEntities && !hard:
		return solver.KindHeuristic
	case n <= SMTMaxEntities || hard:
		return solver.KindSMT
	default:
		return solver.KindSymbolic
	}
}

// dispatchResult records what produced the positions.
type dispatchResult struct {
	chosen    solver.Kind
	backend   string
	positions layout.Positions
	satisfied int
	grid      bool
	err       error
}

// dispatch runs the chosen back-end and falls back to the row-major grid
// when it is unavailable, fails or places nothing.
func dispatch(ctx context.Context, reg *solver.Registry, p solver.Problem, logger *log.Logger) dispatchResult {
	res := dispatchResult{chosen: ChooseBackend(len(p.Entities), p.Constraints)}

	if b, ok := reg.Get(res.chosen); ok && reg.Available(res.chosen) {
		sol, err := b.TrySolve(ctx, p)
		if err == nil && len(sol.Positions) == len(p.Entities) && len(p.Entities) > 0 {
			res.backend = string(res.chosen)
			res.positions = sol.Positions
			res.satisfied = len(sol.Satisfied)
			return res
		}
		res.err = err
		logger.Warn("layout back-end failed, using grid", "backend", res.chosen, "err", err)
	} else {
		logger.Debug("layout back-end unavailable, using grid", "backend", res.chosen)
	}

	res.backend = GridBackend
	res.grid = true
	res.positions = solver.Grid(p.Entities, p.Canvas)
	res.satisfied = len(solver.Satisfied(p.Constraints, res.positions))
	return res
}
