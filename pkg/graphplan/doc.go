// Package graphplan plans layouts directly from an extracted property graph.
//
// [Planner.Plan] runs five strictly ordered stages over a [graph.Graph],
// each appending one step to the plan log:
//
//  1. Entity filtering ([FilterEntities]): keep nodes that name drawable
//     physical or geometric things; drop abstract types, bare spatial
//     descriptors, unit-valued tokens, Greek symbols and function words
//  2. Relation mapping ([MapRelations]): classify surviving edges into
//     wire, series, parallel, attachment, force, spatial or generic
//     relations; a [RelationInferer] may add implicit ones
//  3. Constraint generation ([GenerateConstraints]): distance and alignment
//     per relation, a REQUIRED closed loop for looped circuits, and
//     no-overlap plus bounds for every entity
//  4. Layout-solver dispatch: heuristic, SMT or symbolic by size and
//     hardness, falling back to a deterministic grid
//  5. Style assignment with electrical and mechanical overrides
//
// The plan's final complexity is recomputed from the entity, relation and
// constraint counts and the fraction of hard constraints ([Complexity]).
//
// # Extension
//
// The relation stage is the only extension point. The default inferer adds
// nothing:
//
//	p := graphplan.New(graphplan.Options{Inferer: myInferer})
//	pl, err := p.Plan(ctx, g)
package graphplan
