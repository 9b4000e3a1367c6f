package graphplan

import (
	"github.com/matzehuels/stemplan/pkg/graph"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/planner"
)

// Constraint sources.
const (
	SourceRelation = "relation"
	SourceLoop     = "loop"
	SourceCanvas   = planner.SourceCanvas
)

// Relation distances.
const (
	WireDistance       = planner.ConnectDistance
	AttachmentDistance = 80.0
	ForceDistance      = planner.ForceDistance
	SpatialDistance    = 150.0
)

// loopMinRelations is the relation count from which an electrical
// relation graph can close a loop.
const loopMinRelations = 3

// verticalWords put a spatial relation on a vertical axis.
var verticalWords = []string{"above", "below", "under", "over", "on_top"}

// GenerateConstraints derives layout constraints from the surviving
// entities and their relations.
//
// Every relation adds a distance and, depending on its kind, an alignment.
// In an electrical domain with at least three relations and a node of
// degree two or more, one REQUIRED closed loop spans every entity that
// takes part in a relation. Every entity gets a REQUIRED bounds
// constraint, and two or more entities get one REQUIRED no-overlap.
func GenerateConstraints(domain string, entities []graph.Node, rels []Relation, canvas layout.Canvas) []layout.Constraint {
	canvas = canvas.WithDefaults()
	var out []layout.Constraint

	for _, r := range rels {
		out = append(out, relationConstraints(r)...)
	}

	if loop, ok := closedLoop(domain, entities, rels); ok {
		out = append(out, loop)
	}

	ids := make([]string, len(entities))
	for i, n := range entities {
		ids[i] = n.ID
	}
	if len(ids) >= 2 {
		out = append(out, layout.Constraint{
			Type:     layout.TypeNoOverlap,
			Objects:  ids,
			Params:   map[string]any{layout.ParamMinMargin: planner.NoOverlapMargin},
			Priority: layout.PriorityRequired,
			Source:   SourceCanvas,
		})
	}
	x0, y0, x1, y1 := canvas.Inner()
	for _, id := range ids {
		out = append(out, layout.Constraint{
			Type:     layout.TypeBounds,
			Objects:  []string{id},
			Params:   map[string]any{layout.ParamXMin: x0, layout.ParamYMin: y0, layout.ParamXMax: x1, layout.ParamYMax: y1},
			Priority: layout.PriorityRequired,
			Source:   SourceCanvas,
		})
	}
	return layout.Filter(out)
}

func relationConstraints(r Relation) []layout.Constraint {
	a, b := r.From, r.To
	switch r.Kind {
	case RelationWire, RelationGeneric:
		return []layout.Constraint{distance(a, b, WireDistance, layout.PriorityHigh)}
	case RelationSeries:
		return []layout.Constraint{
			distance(a, b, WireDistance, layout.PriorityHigh),
			align(a, b, layout.AxisHorizontal, layout.PriorityMedium),
		}
	case RelationParallel:
		return []layout.Constraint{
			distance(a, b, WireDistance, layout.PriorityHigh),
			align(a, b, layout.AxisVertical, layout.PriorityMedium),
		}
	case RelationAttachment:
		return []layout.Constraint{
			distance(a, b, AttachmentDistance, layout.PriorityHigh),
			align(a, b, layout.AxisVertical, layout.PriorityMedium),
		}
	case RelationForce:
		return []layout.Constraint{distance(a, b, ForceDistance, layout.PriorityHigh)}
	case RelationSpatial:
		axis := layout.AxisHorizontal
		if containsWord(normalizeText(r.Label), verticalWords) {
			axis = layout.AxisVertical
		}
		return []layout.Constraint{
			distance(a, b, SpatialDistance, layout.PriorityMedium),
			align(a, b, axis, layout.PriorityLow),
		}
	}
	return nil
}

// closedLoop returns the REQUIRED closed-loop constraint when the
// relation graph of an electrical domain forms a loop.
func closedLoop(domain string, entities []graph.Node, rels []Relation) (layout.Constraint, bool) {
	if !plan.IsElectricalDomain(domain) || len(rels) < loopMinRelations {
		return layout.Constraint{}, false
	}
	ids := make([]string, len(entities))
	for i, n := range entities {
		ids[i] = n.ID
	}
	adj := graph.NewAdjacency(ids)
	for _, r := range rels {
		adj.Link(r.From, r.To)
	}
	if adj.MaxDegree() < 2 {
		return layout.Constraint{}, false
	}
	var members []string
	for _, id := range ids {
		if adj.Degree(id) > 0 {
			members = append(members, id)
		}
	}
	return layout.Constraint{
		Type:     layout.TypeClosedLoop,
		Objects:  members,
		Priority: layout.PriorityRequired,
		Source:   SourceLoop,
	}, true
}

func distance(a, b string, target float64, pr layout.Priority) layout.Constraint {
	return layout.Constraint{
		Type:     layout.TypeDistance,
		Objects:  []string{a, b},
		Params:   map[string]any{layout.ParamTarget: target},
		Priority: pr,
		Source:   SourceRelation,
	}
}

func align(a, b string, axis string, pr layout.Priority) layout.Constraint {
	return layout.Constraint{
		Type:     layout.TypeAlignment,
		Objects:  []string{a, b},
		Params:   map[string]any{layout.ParamAxis: axis},
		Priority: pr,
		Source:   SourceRelation,
	}
}
