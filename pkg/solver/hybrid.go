package solver

import (
	"context"

	"github.com/matzehuels/stemplan/pkg/errors"
)

// Hybrid combines the discrete and continuous back-ends: the SMT placement
// seeds the symbolic minimizer, which smooths it towards exact distance
// targets. When SMT fails the minimizer starts from the heuristic grid.
type Hybrid struct {
	SMT      *SMT
	Symbolic *Symbolic
}

// NewHybrid creates the hybrid back-end over the given parts. Either part
// may be nil.
func NewHybrid(smt *SMT, sym *Symbolic) *Hybrid {
	return &Hybrid{SMT: smt, Symbolic: sym}
}

// Kind implements Backend.
func (*Hybrid) Kind() Kind { return KindHybrid }

// Available implements Backend. Hybrid runs when either part can.
func (h *Hybrid) Available() bool {
	return (h.SMT != nil && h.SMT.Available()) || (h.Symbolic != nil && h.Symbolic.Available())
}

// TrySolve implements Backend.
func (h *Hybrid) TrySolve(ctx context.Context, p Problem) (Solution, error) {
	if !h.Available() {
		return Solution{}, errors.New(errors.ErrCodeSolverUnavailable, "hybrid: no advanced part available")
	}
	if len(p.Entities) == 0 {
		return Solution{}, errors.New(errors.ErrCodeNoPositions, "hybrid: no entities")
	}

	var (
		seed   Solution
		smtErr error
	)
	if h.SMT != nil && h.SMT.Available() {
		seed, smtErr = h.SMT.TrySolve(ctx, p)
	} else {
		smtErr = errors.New(errors.ErrCodeSolverUnavailable, "hybrid: smt part unavailable")
	}

	if h.Symbolic == nil || !h.Symbolic.Available() {
		if smtErr != nil {
			return Solution{}, smtErr
		}
		return seed, nil
	}

	start := seed.Positions
	if smtErr != nil {
		start = balancedGrid(p.Entities, p.Canvas)
	}
	refined, err := h.Symbolic.refine(ctx, p, start)
	if err != nil {
		if smtErr == nil {
			return seed, nil
		}
		return Solution{}, err
	}
	if smtErr == nil && len(seed.Satisfied) > len(refined.Satisfied) {
		return seed, nil
	}
	return refined, nil
}
