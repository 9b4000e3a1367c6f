package planner

import (
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stemplan/pkg/graph"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/problem"
)

// MainSubproblemID is the id of the single subproblem returned when a spec
// does not split into two or more components.
const MainSubproblemID = "main"

// Decompose splits spec into independent subproblems.
//
// Externally supplied SubSpecs are wrapped verbatim with recomputed
// complexity. Otherwise the connected components of the relationship graph
// over object ids each become one subproblem; fewer than two components yield
// a single subproblem with id "main" covering the whole spec.
func Decompose(spec *problem.Spec) []plan.Subproblem {
	subs, _ := decompose(spec, discardLogger)
	return subs
}

// decomposeStats counts what decomposition dropped.
type decomposeStats struct {
	droppedRelationships int
	droppedConstraints   int
	external             bool
}

func decompose(spec *problem.Spec, logger *log.Logger) ([]plan.Subproblem, decomposeStats) {
	var stats decomposeStats

	if len(spec.SubSpecs) > 0 {
		stats.external = true
		subs := make([]plan.Subproblem, len(spec.SubSpecs))
		for i := range spec.SubSpecs {
			sub := spec.SubSpecs[i]
			desc := sub.Description
			if desc == "" {
				desc = fmt.Sprintf("external sub-problem %d of %d", i+1, len(spec.SubSpecs))
			}
			subs[i] = plan.Subproblem{
				ID:          fmt.Sprintf("sub_%d", i),
				Description: desc,
				Spec:        sub,
				Complexity:  Assess(&sub),
			}
		}
		return subs, stats
	}

	adj := graph.NewAdjacency(spec.ObjectIDs())
	for _, r := range spec.Relationships {
		if !adj.Link(r.Subject, r.Target) {
			stats.droppedRelationships++
			logger.Debug("dropping relationship with unknown object",
				"subject", r.Subject, "type", r.Type, "target", r.Target)
		}
	}

	comps := adj.Components()
	if len(comps) < 2 {
		return []plan.Subproblem{{
			ID:          MainSubproblemID,
			Description: "whole problem",
			Spec:        *spec,
			Complexity:  Assess(spec),
		}}, stats
	}

	owner := make(map[string]int, len(spec.Objects))
	for i, comp := range comps {
		for _, id := range comp {
			owner[id] = i
		}
	}

	parts := make([]problem.Spec, len(comps))
	for i := range parts {
		parts[i] = problem.Spec{
			Domain:      spec.Domain,
			Description: spec.Description,
			Geometry:    spec.Geometry,
		}
	}
	for _, o := range spec.Objects {
		i := owner[o.ID]
		parts[i].Objects = append(parts[i].Objects, o)
	}
	for _, r := range spec.Relationships {
		i, ok := owner[r.Subject]
		if !ok || !adj.Has(r.Target) {
			continue
		}
		parts[i].Relationships = append(parts[i].Relationships, r)
	}
	for _, c := range spec.Constraints {
		i, ok := firstOwner(c.Objects, owner)
		if !ok {
			stats.droppedConstraints++
			logger.Debug("constraint references no known object", "type", c.Type, "objects", c.Objects)
			continue
		}
		parts[i].Constraints = append(parts[i].Constraints, c)
	}

	subs := make([]plan.Subproblem, len(comps))
	for i := range comps {
		subs[i] = plan.Subproblem{
			ID:          fmt.Sprintf("component_%d", i),
			Description: fmt.Sprintf("connected component %d of %d (%d objects)", i+1, len(comps), len(parts[i].Objects)),
			Spec:        parts[i],
			Complexity:  Assess(&parts[i]),
		}
	}
	return subs, stats
}

// firstOwner returns the component of the first id in ids that has one.
func firstOwner(ids []string, owner map[string]int) (int, bool) {
	for _, id := range ids {
		if i, ok := owner[id]; ok {
			return i, true
		}
	}
	return 0, false
}

var discardLogger = log.New(io.Discard)
