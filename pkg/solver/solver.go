package solver

import (
	"context"

	"github.com/matzehuels/stemplan/pkg/layout"
)

// Kind tags a back-end.
type Kind string

// Back-end kinds.
const (
	KindHeuristic Kind = "heuristic"
	KindSMT       Kind = "smt"
	KindSymbolic  Kind = "symbolic"
	KindGeometry  Kind = "geometry"
	KindHybrid    Kind = "hybrid"
	KindFallback  Kind = "fallback"
)

// Kinds lists every back-end kind in registry order.
var Kinds = []Kind{KindHeuristic, KindSMT, KindSymbolic, KindGeometry, KindHybrid, KindFallback}

// Advanced reports whether k is one of the solver-library back-ends.
func (k Kind) Advanced() bool {
	switch k {
	case KindSMT, KindSymbolic, KindGeometry, KindHybrid:
		return true
	}
	return false
}

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	for _, v := range Kinds {
		if v == k {
			return true
		}
	}
	return false
}

// Problem is the input to a back-end.
type Problem struct {
	Entities    []string
	Constraints []layout.Constraint
	Canvas      layout.Canvas
}

// Solution is a back-end's output.
type Solution struct {
	Positions layout.Positions    `json:"positions" yaml:"positions" bson:"positions"`
	Satisfied []layout.Constraint `json:"satisfied,omitempty" yaml:"satisfied,omitempty" bson:"satisfied,omitempty"`
	Advanced  bool                `json:"advanced" yaml:"advanced" bson:"advanced"`
}

// Backend is a layout solver.
type Backend interface {
	// Kind returns the back-end tag.
	Kind() Kind
	// Available reports whether the back-end can run in this process.
	Available() bool
	// TrySolve computes positions for every entity or returns an error.
	TrySolve(ctx context.Context, p Problem) (Solution, error)
}

// newSolution returns a solution for pos with its satisfied constraints.
func newSolution(p Problem, pos layout.Positions, advanced bool) Solution {
	return Solution{
		Positions: pos,
		Satisfied: Satisfied(p.Constraints, pos),
		Advanced:  advanced,
	}
}
