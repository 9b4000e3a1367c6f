package planner

import (
	"maps"
	"math"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/problem"
)

// Formulation defaults.
const (
	NoOverlapMargin     = 10.0
	ConnectDistance     = 100.0
	ForceDistance       = 60.0
	ChargeMinSeparation = 80.0
)

// Constraint sources.
const (
	SourceCanvas       = "canvas"
	SourceRelationship = "relationship"
	SourceGeometry     = "geometry"
	SourceExplicit     = "explicit"
	SourceDomain       = "domain"
)

// connectWords marks relationship types that imply proximity.
var connectWords = []string{"connect", "adjacent", "attach", "link", "wire", "join", "touch", "next_to"}

// bodyWords marks object types a force can act on.
var bodyWords = []string{"body", "mass", "block", "box", "ball", "cart", "car", "object", "particle", "sphere", "pendulum", "bob"}

var chargeDomains = map[string]bool{
	"electrostatics":      true,
	"current_electricity": true,
}

// IsConnectRelation reports whether a relationship type implies proximity.
func IsConnectRelation(relType string) bool {
	return containsAny(normalizeTag(relType), connectWords)
}

// Formulate derives layout constraints for spec on the given canvas.
//
// Every object gets a REQUIRED bounds constraint, and two or more objects get
// one REQUIRED no-overlap constraint. Connect-type relationships, geometry
// hints, recognized explicit constraints and domain rules add the rest. The
// strategy does not change the emitted set today.
func Formulate(spec *problem.Spec, strategy plan.Strategy, canvas layout.Canvas) []layout.Constraint {
	cs, _ := formulate(spec, strategy, canvas, discardLogger)
	return cs
}

// formulateStats counts what formulation dropped.
type formulateStats struct {
	droppedRelationships int
	droppedConstraints   int
}

func formulate(spec *problem.Spec, _ plan.Strategy, canvas layout.Canvas, logger *log.Logger) ([]layout.Constraint, formulateStats) {
	var (
		stats formulateStats
		out   []layout.Constraint
	)
	canvas = canvas.WithDefaults()
	ids := spec.ObjectIDs()
	known := make(map[string]problem.Object, len(spec.Objects))
	for _, o := range spec.Objects {
		known[o.ID] = o
	}

	x0, y0, x1, y1 := canvas.Inner()
	boundsAt := make(map[string]int, len(ids))
	for _, id := range ids {
		boundsAt[id] = len(out)
		out = append(out, layout.Constraint{
			Type:     layout.TypeBounds,
			Objects:  []string{id},
			Params:   map[string]any{layout.ParamXMin: x0, layout.ParamYMin: y0, layout.ParamXMax: x1, layout.ParamYMax: y1},
			Priority: layout.PriorityRequired,
			Source:   SourceCanvas,
		})
	}
	noOverlapAt := -1
	if len(ids) >= 2 {
		noOverlapAt = len(out)
		out = append(out, layout.Constraint{
			Type:     layout.TypeNoOverlap,
			Objects:  append([]string(nil), ids...),
			Params:   map[string]any{layout.ParamMinMargin: NoOverlapMargin},
			Priority: layout.PriorityRequired,
			Source:   SourceCanvas,
		})
	}

	for _, r := range spec.Relationships {
		if !IsConnectRelation(r.Type) {
			continue
		}
		_, okS := known[r.Subject]
		_, okT := known[r.Target]
		if !okS || !okT {
			stats.droppedRelationships++
			logger.Debug("dropping connect relationship with unknown object", "subject", r.Subject, "target", r.Target)
			continue
		}
		out = append(out, distance(r.Subject, r.Target, ConnectDistance, SourceRelationship))
	}

	switch spec.Shape() {
	case "square":
		if len(ids) == 4 {
			out = append(out, alignment(ids[:2]))
		}
	case "linear":
		if len(ids) >= 2 {
			out = append(out, alignment(ids))
		}
	}

	for _, c := range spec.Constraints {
		lc, ok := convertExplicit(c, known)
		if !ok {
			stats.droppedConstraints++
			logger.Debug("dropping explicit constraint", "type", c.Type, "objects", c.Objects)
			continue
		}
		// Each object keeps exactly one bounds constraint and the plan one
		// no_overlap: explicit ones tighten the canvas-derived constraints.
		switch lc.Type {
		case layout.TypeBounds:
			for _, id := range lc.Objects {
				tightenBounds(out[boundsAt[id]], lc)
			}
			continue
		case layout.TypeNoOverlap:
			if noOverlapAt >= 0 {
				no := out[noOverlapAt]
				no.Params[layout.ParamMinMargin] = math.Max(no.Float(layout.ParamMinMargin, 0), lc.Float(layout.ParamMinMargin, 0))
			}
			continue
		}
		out = append(out, lc)
	}

	domain := spec.NormalizedDomain()
	if domain == "mechanics" {
		out = append(out, forceConstraints(spec, known)...)
	}
	if chargeDomains[domain] {
		out = append(out, chargeConstraints(spec)...)
	}

	return layout.Filter(out), stats
}

// tightenBounds narrows the canvas bounds b to the explicit limits of e.
func tightenBounds(b, e layout.Constraint) {
	for _, k := range []string{layout.ParamXMin, layout.ParamYMin} {
		if v := e.Float(k, math.Inf(-1)); v > b.Float(k, math.Inf(-1)) {
			b.Params[k] = v
		}
	}
	for _, k := range []string{layout.ParamXMax, layout.ParamYMax} {
		if v := e.Float(k, math.Inf(1)); v < b.Float(k, math.Inf(1)) {
			b.Params[k] = v
		}
	}
}

func distance(a, b string, target float64, source string) layout.Constraint {
	return layout.Constraint{
		Type:     layout.TypeDistance,
		Objects:  []string{a, b},
		Params:   map[string]any{layout.ParamTarget: target},
		Priority: layout.PriorityHigh,
		Source:   source,
	}
}

func alignment(ids []string) layout.Constraint {
	return layout.Constraint{
		Type:     layout.TypeAlignment,
		Objects:  append([]string(nil), ids...),
		Params:   map[string]any{layout.ParamAxis: layout.AxisHorizontal},
		Priority: layout.PriorityHigh,
		Source:   SourceGeometry,
	}
}

// convertExplicit maps a recognized explicit constraint to a MEDIUM layout
// constraint over its known objects.
func convertExplicit(c problem.Constraint, known map[string]problem.Object) (layout.Constraint, bool) {
	t := layout.Type(normalizeTag(c.Type))
	if !layout.Recognized[t] {
		return layout.Constraint{}, false
	}
	var objs []string
	for _, id := range c.Objects {
		if _, ok := known[id]; ok {
			objs = append(objs, id)
		}
	}
	if len(objs) == 0 {
		return layout.Constraint{}, false
	}
	return layout.Constraint{
		Type:     t,
		Objects:  objs,
		Params:   maps.Clone(c.Params),
		Priority: layout.PriorityMedium,
		Source:   SourceExplicit,
	}, true
}

// forceConstraints ties each force object to the body it acts on.
func forceConstraints(spec *problem.Spec, known map[string]problem.Object) []layout.Constraint {
	var out []layout.Constraint
	seen := map[[2]string]bool{}
	for _, r := range spec.Relationships {
		force, body, ok := forceBodyPair(r, known)
		if !ok || seen[[2]string{force, body}] {
			continue
		}
		seen[[2]string{force, body}] = true
		out = append(out, distance(force, body, ForceDistance, SourceDomain))
	}
	return out
}

func forceBodyPair(r problem.Relationship, known map[string]problem.Object) (force, body string, ok bool) {
	s, okS := known[r.Subject]
	t, okT := known[r.Target]
	if !okS || !okT {
		return "", "", false
	}
	switch {
	case isForce(s) && isBody(t):
		return s.ID, t.ID, true
	case isForce(t) && isBody(s):
		return t.ID, s.ID, true
	}
	return "", "", false
}

// chargeConstraints keeps every pair of charges at a minimum separation.
func chargeConstraints(spec *problem.Spec) []layout.Constraint {
	var charges []string
	for _, o := range spec.Objects {
		if strings.Contains(normalizeTag(o.Type), "charge") {
			charges = append(charges, o.ID)
		}
	}
	var out []layout.Constraint
	for i := 0; i < len(charges); i++ {
		for j := i + 1; j < len(charges); j++ {
			out = append(out, layout.Constraint{
				Type:     layout.TypeMinDistance,
				Objects:  []string{charges[i], charges[j]},
				Params:   map[string]any{layout.ParamMin: ChargeMinSeparation},
				Priority: layout.PriorityHigh,
				Source:   SourceDomain,
			})
		}
	}
	return out
}

func isForce(o problem.Object) bool {
	return strings.Contains(normalizeTag(o.Type), "force")
}

func isBody(o problem.Object) bool {
	return !isForce(o) && containsAny(normalizeTag(o.Type), bodyWords)
}

func normalizeTag(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "-", "_")
	return strings.ReplaceAll(s, " ", "_")
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
