package graphplan

import "github.com/matzehuels/stemplan/pkg/layout"

// Contribution weights and saturation counts of the final score.
const (
	entityWeight         = 0.35
	entitySaturation     = 20.0
	relationWeight       = 0.25
	relationSaturation   = 15.0
	constraintWeight     = 0.20
	constraintSaturation = 40.0
	hardWeight           = 0.20
)

// Complexity scores a graph plan in [0,1] from its entity, relation and
// constraint counts and the fraction of hard constraints.
func Complexity(entities, relations int, cs []layout.Constraint) float64 {
	hardFraction := 0.0
	if len(cs) > 0 {
		hardFraction = float64(layout.CountHard(cs)) / float64(len(cs))
	}
	score := capped(entities, entitySaturation)*entityWeight +
		capped(relations, relationSaturation)*relationWeight +
		capped(len(cs), constraintSaturation)*constraintWeight +
		hardFraction*hardWeight
	return min(score, 1.0)
}

func capped(n int, saturation float64) float64 {
	return min(float64(n)/saturation, 1.0)
}
