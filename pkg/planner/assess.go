package planner

import (
	"strings"

	"github.com/matzehuels/stemplan/pkg/problem"
)

// Contribution weights and saturation counts of the complexity score.
const (
	objectWeight       = 0.30
	objectSaturation   = 20.0
	relationWeight     = 0.20
	relationSaturation = 15.0
	explicitWeight     = 0.20
	explicitSaturation = 10.0

	defaultDomainScore = 0.05

	complexShapeScore = 0.10
	simpleShapeScore  = 0.03
	otherShapeScore   = 0.05
)

// DomainScores is the fixed per-domain complexity contribution.
var DomainScores = map[string]float64{
	"mechanics":           0.15,
	"kinematics":          0.12,
	"electrostatics":      0.15,
	"current_electricity": 0.12,
	"magnetism":           0.18,
	"optics":              0.15,
	"waves":               0.15,
	"thermodynamics":      0.10,
	"geometry":            0.10,
	"chemistry":           0.12,
	"biology":             0.10,
	"quantum":             0.20,
}

var simpleShapes = map[string]bool{
	"square":    true,
	"rectangle": true,
	"circle":    true,
	"triangle":  true,
	"linear":    true,
	"line":      true,
	"grid":      true,
}

var complexShapeWords = []string{"complex", "3d", "irregular"}

// Assess returns the complexity score of spec in [0,1]. It never fails.
func Assess(spec *problem.Spec) float64 {
	score := capped(len(spec.Objects), objectSaturation)*objectWeight +
		capped(len(spec.Relationships), relationSaturation)*relationWeight +
		capped(len(spec.Constraints), explicitSaturation)*explicitWeight +
		DomainScore(spec.NormalizedDomain()) +
		ShapeScore(spec.Shape())
	return min(score, 1.0)
}

// DomainScore returns the domain contribution, defaulting to 0.05.
func DomainScore(domain string) float64 {
	if s, ok := DomainScores[domain]; ok {
		return s
	}
	return defaultDomainScore
}

// ShapeScore returns the geometry contribution for a lower-cased shape.
// An empty shape means no geometry hint and scores 0.
func ShapeScore(shape string) float64 {
	if shape == "" {
		return 0
	}
	for _, w := range complexShapeWords {
		if strings.Contains(shape, w) {
			return complexShapeScore
		}
	}
	if simpleShapes[shape] {
		return simpleShapeScore
	}
	return otherShapeScore
}

// capped returns min(n/saturation, 1).
func capped(n int, saturation float64) float64 {
	return min(float64(n)/saturation, 1.0)
}
