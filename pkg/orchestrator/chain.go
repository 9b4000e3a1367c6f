package orchestrator

import (
	"slices"

	"github.com/matzehuels/stemplan/pkg/solver"
)

// chains maps a primary back-end to its fallback order.
var chains = map[solver.Kind][]solver.Kind{
	solver.KindHybrid:    {solver.KindHybrid, solver.KindSMT, solver.KindGeometry, solver.KindHeuristic, solver.KindFallback},
	solver.KindSMT:       {solver.KindSMT, solver.KindHeuristic, solver.KindFallback},
	solver.KindSymbolic:  {solver.KindSymbolic, solver.KindHeuristic, solver.KindFallback},
	solver.KindGeometry:  {solver.KindGeometry, solver.KindHeuristic, solver.KindFallback},
	solver.KindHeuristic: {solver.KindHeuristic, solver.KindFallback},
	solver.KindFallback:  {solver.KindFallback},
}

// Chain returns the fixed fallback chain for primary. Unknown kinds get
// the heuristic chain.
func Chain(primary solver.Kind) []solver.Kind {
	if c, ok := chains[primary]; ok {
		return slices.Clone(c)
	}
	return slices.Clone(chains[solver.KindHeuristic])
}

// symbolicDomains prefer the symbolic back-end for medium complexity.
var symbolicDomains = map[string]bool{
	"mechanics":      true,
	"electrostatics": true,
}

// SelectPrimary picks the primary back-end for a plan of the given
// complexity and domain:
//
//   - simple: heuristic
//   - medium: symbolic for mechanics and electrostatics, else SMT, else
//     heuristic, each only if available
//   - complex: hybrid if any advanced back-end is available, else SMT if
//     available, else heuristic
func (o *Orchestrator) SelectPrimary(complexity float64, domain string) solver.Kind {
	switch {
	case complexity < o.cfg.SimpleThreshold:
		return solver.KindHeuristic
	case complexity < o.cfg.ComplexThreshold:
		if symbolicDomains[domain] && o.registry.Available(solver.KindSymbolic) {
			return solver.KindSymbolic
		}
		if o.registry.Available(solver.KindSMT) {
			return solver.KindSMT
		}
		return solver.KindHeuristic
	default:
		if o.registry.AnyAdvanced() {
			return solver.KindHybrid
		}
		if o.registry.Available(solver.KindSMT) {
			return solver.KindSMT
		}
		return solver.KindHeuristic
	}
}
