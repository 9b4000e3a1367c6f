// Package plan defines the layout plan handed from the planners to the
// orchestrator and on to a renderer.
//
// A [Plan] is built incrementally by the planning stages and is treated as
// immutable once returned. Every decision is recorded as a [Step] in the
// append-only planning log so a run can be audited after the fact.
//
// # Serialization
//
// Plans carry json, yaml and bson tags so the same value can be written to
// files, returned by the HTTP API, cached and archived without conversion.
package plan

import (
	"maps"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/problem"
)

// Strategy labels the class of solver a plan prefers.
type Strategy string

// Planning strategies.
const (
	StrategyHeuristic       Strategy = "HEURISTIC"
	StrategyConstraintBased Strategy = "CONSTRAINT_BASED"
	StrategySymbolicPhysics Strategy = "SYMBOLIC_PHYSICS"
	StrategyHybrid          Strategy = "HYBRID"
)

// Valid reports whether s is one of the four strategies.
func (s Strategy) Valid() bool {
	switch s {
	case StrategyHeuristic, StrategyConstraintBased, StrategySymbolicPhysics, StrategyHybrid:
		return true
	}
	return false
}

// Layout hint keys.
const (
	HintBackend      = "backend"       // back-end that produced positions
	HintGridFallback = "grid_fallback" // positions came from the dispatch grid
	HintShape        = "shape"
)

// Subproblem is an independent slice of a problem.
type Subproblem struct {
	ID          string       `json:"id" yaml:"id" bson:"id"`
	Description string       `json:"description,omitempty" yaml:"description,omitempty" bson:"description,omitempty"`
	Spec        problem.Spec `json:"spec" yaml:"spec" bson:"spec"`
	Complexity  float64      `json:"complexity" yaml:"complexity" bson:"complexity"`
}

// ObjectIDs returns the ids of the objects covered by the subproblem.
func (s Subproblem) ObjectIDs() []string { return s.Spec.ObjectIDs() }

// Style is the per-entity style record consumed by a renderer.
type Style struct {
	Color       string  `json:"color" yaml:"color" bson:"color"`
	Size        float64 `json:"size" yaml:"size" bson:"size"`
	Shape       string  `json:"shape" yaml:"shape" bson:"shape"`
	StrokeWidth float64 `json:"stroke_width" yaml:"stroke_width" bson:"stroke_width"`
	Font        string  `json:"font" yaml:"font" bson:"font"`
	Symbol      string  `json:"symbol,omitempty" yaml:"symbol,omitempty" bson:"symbol,omitempty"`
}

// Step is one planning log entry.
type Step struct {
	Name    string         `json:"name" yaml:"name" bson:"name"`
	Payload map[string]any `json:"payload,omitempty" yaml:"payload,omitempty" bson:"payload,omitempty"`
	Time    time.Time      `json:"time" yaml:"time" bson:"time"`
}

// Plan is a complete layout plan.
type Plan struct {
	ID          string              `json:"id" yaml:"id" bson:"_id"`
	Domain      string              `json:"domain,omitempty" yaml:"domain,omitempty" bson:"domain,omitempty"`
	Complexity  float64             `json:"complexity" yaml:"complexity" bson:"complexity"`
	Strategy    Strategy            `json:"strategy" yaml:"strategy" bson:"strategy"`
	Canvas      layout.Canvas       `json:"canvas" yaml:"canvas" bson:"canvas"`
	Entities    []string            `json:"entities" yaml:"entities" bson:"entities"`
	Subproblems []Subproblem        `json:"subproblems,omitempty" yaml:"subproblems,omitempty" bson:"subproblems,omitempty"`
	Constraints []layout.Constraint `json:"constraints" yaml:"constraints" bson:"constraints"`
	LayoutHints map[string]any      `json:"layout_hints,omitempty" yaml:"layout_hints,omitempty" bson:"layout_hints,omitempty"`
	StyleHints  map[string]Style    `json:"style_hints,omitempty" yaml:"style_hints,omitempty" bson:"style_hints,omitempty"`
	Positions   layout.Positions    `json:"positions,omitempty" yaml:"positions,omitempty" bson:"positions,omitempty"`
	Log         []Step              `json:"log" yaml:"log" bson:"log"`
	CreatedAt   time.Time           `json:"created_at" yaml:"created_at" bson:"created_at"`
}

// New returns an empty plan with a fresh ID on the given canvas.
func New(domain string, canvas layout.Canvas) *Plan {
	return &Plan{
		ID:          uuid.NewString(),
		Domain:      domain,
		Canvas:      canvas,
		LayoutHints: map[string]any{},
		StyleHints:  map[string]Style{},
		CreatedAt:   time.Now().UTC(),
	}
}

// Step appends a named entry to the planning log.
func (p *Plan) Step(name string, payload map[string]any) {
	p.Log = append(p.Log, Step{Name: name, Payload: payload, Time: time.Now().UTC()})
}

// StepNames returns the log step names in order.
func (p *Plan) StepNames() []string {
	names := make([]string, len(p.Log))
	for i, s := range p.Log {
		names[i] = s.Name
	}
	return names
}

// LastStep returns the most recent log entry with the given name.
func (p *Plan) LastStep(name string) (Step, bool) {
	for i := len(p.Log) - 1; i >= 0; i-- {
		if p.Log[i].Name == name {
			return p.Log[i], true
		}
	}
	return Step{}, false
}

// HasConstraint reports whether the plan carries a constraint of type t.
func (p *Plan) HasConstraint(t layout.Type) bool {
	return slices.ContainsFunc(p.Constraints, func(c layout.Constraint) bool { return c.Type == t })
}

// Clone returns a copy whose slices and maps can be modified independently.
// Constraint params, step payloads and subproblem specs are shared.
func (p *Plan) Clone() *Plan {
	out := *p
	out.Entities = slices.Clone(p.Entities)
	out.Subproblems = slices.Clone(p.Subproblems)
	out.Constraints = slices.Clone(p.Constraints)
	out.LayoutHints = maps.Clone(p.LayoutHints)
	out.StyleHints = maps.Clone(p.StyleHints)
	out.Positions = maps.Clone(p.Positions)
	out.Log = slices.Clone(p.Log)
	return &out
}

// WithPositions returns a copy of the plan with resolved positions applied
// and the producing back-end recorded as a layout hint. The receiver is not
// modified.
func (p *Plan) WithPositions(pos layout.Positions, backend string) *Plan {
	out := p.Clone()
	out.Positions = maps.Clone(pos)
	if out.LayoutHints == nil {
		out.LayoutHints = map[string]any{}
	}
	out.LayoutHints[HintBackend] = backend
	return out
}
