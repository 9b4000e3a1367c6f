package graphplan

import (
	"context"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/graph"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/planner"
	"github.com/matzehuels/stemplan/pkg/problem"
	"github.com/matzehuels/stemplan/pkg/solver"
)

// Planning log step names, in stage order.
const (
	StepFilter      = "entity_filtering"
	StepRelations   = "relation_mapping"
	StepConstraints = "constraint_generation"
	StepDispatch    = "layout_dispatch"
	StepStyles      = "style_assignment"
	StepComplexity  = "complexity"
)

// Stages lists the five stage step names in execution order.
var Stages = []string{StepFilter, StepRelations, StepConstraints, StepDispatch, StepStyles}

// Options configures a graph planner.
type Options struct {
	Canvas   layout.Canvas
	Registry *solver.Registry // nil probes the standard back-ends
	Inferer  RelationInferer  // nil adds no relations
	Logger   *log.Logger
}

// Planner runs the five-stage pipeline.
type Planner struct {
	canvas   layout.Canvas
	registry *solver.Registry
	inferer  RelationInferer
	logger   *log.Logger
}

// New creates a graph planner.
func New(opts Options) *Planner {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	reg := opts.Registry
	if reg == nil {
		reg = solver.NewRegistry(context.Background(), solver.Options{Logger: logger})
	}
	var inf RelationInferer = NoInference{}
	if opts.Inferer != nil {
		inf = opts.Inferer
	}
	return &Planner{
		canvas:   opts.Canvas.WithDefaults(),
		registry: reg,
		inferer:  inf,
		logger:   logger,
	}
}

// Plan runs the pipeline over g and returns a plan with positions and
// styles applied.
//
// A graph without nodes is rejected with ErrCodeEmptySpec and a
// structurally invalid one with ErrCodeInvalidGraph. Filtering every node
// out is not an error; the plan then has no entities.
func (p *Planner) Plan(ctx context.Context, g *graph.Graph) (*plan.Plan, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g == nil || len(g.Nodes) == 0 {
		return nil, errors.New(errors.ErrCodeEmptySpec, "graph has no nodes")
	}
	if err := g.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidGraph, err, "invalid graph")
	}

	domain := g.NormalizedDomain()
	pl := plan.New(domain, p.canvas)

	// 1. Entity filtering
	entities, fstats := FilterEntities(g)
	for _, n := range entities {
		pl.Entities = append(pl.Entities, n.ID)
	}
	pl.Step(StepFilter, map[string]any{
		"nodes":    len(g.Nodes),
		"kept":     fstats.Kept,
		"dropped":  fstats.Dropped,
		"entities": pl.Entities,
	})

	// 2. Relation mapping
	rels, rstats := MapRelations(g, entities)
	for _, r := range p.inferer.Infer(ctx, domain, entities, rels) {
		r.Inferred = true
		rels = append(rels, r)
		rstats.Inferred++
		rstats.ByKind[r.Kind]++
	}
	pl.Step(StepRelations, map[string]any{
		"mapped":   rstats.Mapped,
		"dropped":  rstats.Dropped,
		"inferred": rstats.Inferred,
		"by_kind":  rstats.ByKind,
	})
	p.logger.Debug("mapped relations", "mapped", rstats.Mapped, "dropped", rstats.Dropped)

	// 3. Constraint generation
	pl.Constraints = GenerateConstraints(domain, entities, rels, p.canvas)
	pl.Step(StepConstraints, map[string]any{
		"count":       len(pl.Constraints),
		"hard":        layout.CountHard(pl.Constraints),
		"closed_loop": pl.HasConstraint(layout.TypeClosedLoop),
	})

	// 4. Layout-solver dispatch
	res := dispatch(ctx, p.registry, solver.Problem{
		Entities:    pl.Entities,
		Constraints: pl.Constraints,
		Canvas:      p.canvas,
	}, p.logger)
	pl.Positions = res.positions
	pl.LayoutHints[plan.HintBackend] = res.backend
	pl.LayoutHints[plan.HintGridFallback] = res.grid
	payload := map[string]any{
		"chosen":    string(res.chosen),
		"backend":   res.backend,
		"grid":      res.grid,
		"placed":    len(res.positions),
		"satisfied": res.satisfied,
	}
	if res.err != nil {
		payload["error"] = res.err.Error()
	}
	pl.Step(StepDispatch, payload)

	// 5. Style assignment
	for _, n := range entities {
		pl.StyleHints[n.ID] = plan.StyleFor(domain, styleKey(n))
	}
	pl.Step(StepStyles, map[string]any{"styled": len(pl.StyleHints)})

	pl.Complexity = Complexity(len(entities), len(rels), pl.Constraints)
	spec := ToSpec(domain, entities, rels)
	pl.Strategy = planner.Select(&spec, pl.Complexity)
	if len(entities) > 0 {
		pl.Subproblems = planner.Decompose(&spec)
	}
	pl.Step(StepComplexity, map[string]any{
		"score":       pl.Complexity,
		"strategy":    string(pl.Strategy),
		"subproblems": len(pl.Subproblems),
	})

	p.logger.Debug("planned graph",
		"id", pl.ID,
		"entities", len(entities),
		"relations", len(rels),
		"backend", res.backend,
		"complexity", pl.Complexity)
	return pl, nil
}

// styleKey joins type and label so overrides match either.
func styleKey(n graph.Node) string {
	return strings.TrimSpace(n.Type + " " + n.DisplayLabel())
}

// ToSpec views the filtered entities and their relations as a problem
// spec, so the flat planner's strategy and decomposition rules apply.
func ToSpec(domain string, entities []graph.Node, rels []Relation) problem.Spec {
	spec := problem.Spec{Domain: domain}
	for _, n := range entities {
		spec.Objects = append(spec.Objects, problem.Object{
			ID:         n.ID,
			Type:       n.Type,
			Label:      n.Label,
			Properties: n.Props,
		})
	}
	for _, r := range rels {
		spec.Relationships = append(spec.Relationships, problem.Relationship{
			Subject: r.From,
			Type:    string(r.Kind),
			Target:  r.To,
		})
	}
	return spec
}
