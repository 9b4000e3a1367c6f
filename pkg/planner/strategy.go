package planner

import (
	"fmt"

	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/problem"
)

// Strategy selection thresholds.
const (
	HeuristicThreshold = 0.15
	HybridThreshold    = 0.60

	// symbolicMaxObjects bounds the object count for SYMBOLIC_PHYSICS.
	symbolicMaxObjects = 10
)

// symbolicDomains are the domains with a physics formulation.
var symbolicDomains = map[string]bool{
	"mechanics":      true,
	"electrostatics": true,
}

// Select returns the planning strategy for spec at the given complexity.
// Rules are evaluated in order and the first match wins:
//
//  1. ≥3 explicit constraints, or ≥1 with ≥3 objects: solver-based
//  2. complexity < 0.15: HEURISTIC
//  3. complexity < 0.60: solver-based
//  4. otherwise: HYBRID
//
// "Solver-based" is SYMBOLIC_PHYSICS for mechanics and electrostatics with
// fewer than 10 objects, CONSTRAINT_BASED otherwise.
func Select(spec *problem.Spec, complexity float64) plan.Strategy {
	s, _ := decide(spec, complexity)
	return s
}

// Explain returns the justification for the strategy [Select] returns for
// the same arguments.
func Explain(spec *problem.Spec, complexity float64) string {
	_, why := decide(spec, complexity)
	return why
}

// decide is the single decision table behind Select and Explain.
func decide(spec *problem.Spec, complexity float64) (plan.Strategy, string) {
	nObjects := len(spec.Objects)
	nExplicit := len(spec.Constraints)
	domain := spec.NormalizedDomain()

	if nExplicit >= 3 || (nExplicit >= 1 && nObjects >= 3) {
		s, why := solverBased(domain, nObjects)
		return s, fmt.Sprintf("%s: %d explicit constraints over %d objects make solver-based layout worthwhile; %s",
			s, nExplicit, nObjects, why)
	}
	if complexity < HeuristicThreshold {
		return plan.StrategyHeuristic, fmt.Sprintf("%s: complexity %.2f is below %.2f",
			plan.StrategyHeuristic, complexity, HeuristicThreshold)
	}
	if complexity < HybridThreshold {
		s, why := solverBased(domain, nObjects)
		return s, fmt.Sprintf("%s: complexity %.2f is in [%.2f, %.2f); %s",
			s, complexity, HeuristicThreshold, HybridThreshold, why)
	}
	return plan.StrategyHybrid, fmt.Sprintf("%s: complexity %.2f is at least %.2f",
		plan.StrategyHybrid, complexity, HybridThreshold)
}

func solverBased(domain string, nObjects int) (plan.Strategy, string) {
	if symbolicDomains[domain] && nObjects < symbolicMaxObjects {
		return plan.StrategySymbolicPhysics, fmt.Sprintf("domain %q has a physics formulation and %d < %d objects",
			domain, nObjects, symbolicMaxObjects)
	}
	if !symbolicDomains[domain] {
		return plan.StrategyConstraintBased, fmt.Sprintf("domain %q has no physics formulation", domain)
	}
	return plan.StrategyConstraintBased, fmt.Sprintf("%d objects is too many for symbolic solving", nObjects)
}
