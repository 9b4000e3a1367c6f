package planner

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/problem"
)

// Planning log step names.
const (
	StepValidate      = "validate"
	StepComplexity    = "complexity"
	StepDecomposition = "decomposition"
	StepStrategy      = "strategy"
	StepConstraints   = "constraints"
	StepStyles        = "styles"
)

// Planner builds plans from problem specs on a fixed canvas.
type Planner struct {
	Canvas layout.Canvas
	Logger *log.Logger
}

// New creates a planner. A zero canvas uses the defaults and a nil logger
// discards output.
func New(canvas layout.Canvas, logger *log.Logger) *Planner {
	if logger == nil {
		logger = discardLogger
	}
	return &Planner{Canvas: canvas.WithDefaults(), Logger: logger}
}

// Build assesses, decomposes, selects a strategy for and formulates spec,
// recording each decision in the returned plan's log.
//
// A spec with zero objects is rejected with ErrCodeEmptySpec; a spec with
// invalid or duplicate object ids with ErrCodeInvalidSpec.
func (p *Planner) Build(ctx context.Context, spec *problem.Spec) (*plan.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if spec == nil || len(spec.Objects) == 0 {
		return nil, errors.New(errors.ErrCodeEmptySpec, "spec has no objects")
	}
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	domain := spec.NormalizedDomain()
	pl := plan.New(domain, p.Canvas)
	pl.Entities = spec.ObjectIDs()
	pl.Step(StepValidate, map[string]any{
		"objects":       len(spec.Objects),
		"relationships": len(spec.Relationships),
		"constraints":   len(spec.Constraints),
	})

	pl.Complexity = Assess(spec)
	pl.Step(StepComplexity, map[string]any{
		"score":    pl.Complexity,
		"domain":   DomainScore(domain),
		"geometry": ShapeScore(spec.Shape()),
	})

	subs, dstats := decompose(spec, p.Logger)
	pl.Subproblems = subs
	pl.Step(StepDecomposition, map[string]any{
		"subproblems":           len(subs),
		"external":              dstats.external,
		"dropped_relationships": dstats.droppedRelationships,
		"dropped_constraints":   dstats.droppedConstraints,
	})

	pl.Strategy = Select(spec, pl.Complexity)
	pl.Step(StepStrategy, map[string]any{
		"strategy":    string(pl.Strategy),
		"explanation": Explain(spec, pl.Complexity),
	})

	cs, fstats := formulate(spec, pl.Strategy, p.Canvas, p.Logger)
	pl.Constraints = cs
	pl.Step(StepConstraints, map[string]any{
		"count":                 len(cs),
		"hard":                  layout.CountHard(cs),
		"dropped_relationships": fstats.droppedRelationships,
		"dropped_constraints":   fstats.droppedConstraints,
	})

	for _, o := range spec.Objects {
		pl.StyleHints[o.ID] = plan.StyleFor(domain, o.Type)
	}
	if shape := spec.Shape(); shape != "" {
		pl.LayoutHints[plan.HintShape] = shape
	}
	pl.Step(StepStyles, map[string]any{"styled": len(pl.StyleHints)})

	p.Logger.Debug("built plan",
		"id", pl.ID,
		"complexity", pl.Complexity,
		"strategy", pl.Strategy,
		"subproblems", len(subs),
		"constraints", len(cs))

	return pl, nil
}
