// Package layout defines the geometric vocabulary shared by the planner, the
// graph-driven pipeline and the solver back-ends: layout constraints with
// priorities, canvas dimensions and resolved positions.
//
// A [Constraint] always references at least one object; [Valid] is the single
// check used everywhere a constraint is produced, so that constraints with an
// empty object list never leave this package's callers.
package layout

import (
	"fmt"
	"math"
)

// =============================================================================
// Priority
// =============================================================================

// Priority orders constraints. Higher values are more important.
type Priority int

// Constraint priorities, REQUIRED > HIGH > MEDIUM > LOW.
const (
	PriorityLow Priority = iota + 1
	PriorityMedium
	PriorityHigh
	PriorityRequired
)

var priorityNames = map[Priority]string{
	PriorityLow:      "LOW",
	PriorityMedium:   "MEDIUM",
	PriorityHigh:     "HIGH",
	PriorityRequired: "REQUIRED",
}

// String returns the upper-case priority name.
func (p Priority) String() string {
	if s, ok := priorityNames[p]; ok {
		return s
	}
	return fmt.Sprintf("Priority(%d)", int(p))
}

// MarshalText encodes the priority by name.
func (p Priority) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a priority name. Unknown names decode to MEDIUM.
func (p *Priority) UnmarshalText(b []byte) error {
	*p = ParsePriority(string(b))
	return nil
}

// ParsePriority converts a name to a Priority, defaulting to MEDIUM.
func ParsePriority(s string) Priority {
	for p, name := range priorityNames {
		if name == s {
			return p
		}
	}
	switch s {
	case "required", "Required":
		return PriorityRequired
	case "high", "High":
		return PriorityHigh
	case "low", "Low":
		return PriorityLow
	}
	return PriorityMedium
}

// =============================================================================
// Constraint Types
// =============================================================================

// Type names a kind of layout constraint.
type Type string

// Constraint types understood by the planner and the solver back-ends.
const (
	TypeBounds        Type = "bounds"
	TypeNoOverlap     Type = "no_overlap"
	TypeDistance      Type = "distance"
	TypeMinDistance   Type = "min_distance"
	TypeMaxDistance   Type = "max_distance"
	TypeAlignment     Type = "alignment"
	TypeClosedLoop    Type = "closed_loop"
	TypeDirectional   Type = "directional"
	TypeSymmetry      Type = "symmetry"
	TypeContainment   Type = "containment"
	TypeFixedPosition Type = "fixed_position"
	TypeParallel      Type = "parallel"
	TypePerpendicular Type = "perpendicular"
	TypeEqualSpacing  Type = "equal_spacing"
)

// Recognized is the set of explicit constraint types that convert 1:1 into
// layout constraints. Anything else is dropped by the formulator.
var Recognized = map[Type]bool{
	TypeBounds:        true,
	TypeNoOverlap:     true,
	TypeDistance:      true,
	TypeMinDistance:   true,
	TypeMaxDistance:   true,
	TypeAlignment:     true,
	TypeClosedLoop:    true,
	TypeDirectional:   true,
	TypeSymmetry:      true,
	TypeContainment:   true,
	TypeFixedPosition: true,
	TypeParallel:      true,
	TypePerpendicular: true,
	TypeEqualSpacing:  true,
}

// Hard lists constraint types the heuristic grid cannot honour. Their
// presence pushes dispatch towards the SMT back-end.
var Hard = map[Type]bool{
	TypeClosedLoop:    true,
	TypeSymmetry:      true,
	TypeContainment:   true,
	TypeFixedPosition: true,
	TypeParallel:      true,
	TypePerpendicular: true,
}

// Parameter keys used in Constraint.Params.
const (
	ParamXMin      = "x_min"
	ParamYMin      = "y_min"
	ParamXMax      = "x_max"
	ParamYMax      = "y_max"
	ParamMinMargin = "min_margin"
	ParamTarget    = "target"
	ParamMin       = "min"
	ParamMax       = "max"
	ParamAxis      = "axis"
	ParamDirection = "direction"
	ParamX         = "x"
	ParamY         = "y"
)

// Alignment axes.
const (
	AxisHorizontal = "horizontal"
	AxisVertical   = "vertical"
)

// =============================================================================
// Constraint
// =============================================================================

// Constraint is a layout constraint over one or more objects.
type Constraint struct {
	Type     Type           `json:"type" yaml:"type" bson:"type"`
	Objects  []string       `json:"objects" yaml:"objects" bson:"objects"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty" bson:"params,omitempty"`
	Priority Priority       `json:"priority" yaml:"priority" bson:"priority"`
	Source   string         `json:"source,omitempty" yaml:"source,omitempty" bson:"source,omitempty"` // what produced it
}

// Valid reports whether the constraint references at least one object.
func (c Constraint) Valid() bool {
	return len(c.Objects) > 0
}

// Float returns a numeric parameter, or def when absent or not numeric.
func (c Constraint) Float(key string, def float64) float64 {
	if c.Params == nil {
		return def
	}
	switch v := c.Params[key].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	case int:
		return float64(v)
	case int64:
		return float64(v)
	case int32:
		return float64(v)
	}
	return def
}

// Text returns a string parameter, or def when absent.
func (c Constraint) Text(key, def string) string {
	if c.Params == nil {
		return def
	}
	if s, ok := c.Params[key].(string); ok && s != "" {
		return s
	}
	return def
}

// IsHard reports whether the constraint type is in [Hard].
func (c Constraint) IsHard() bool { return Hard[c.Type] }

// Filter returns the valid constraints in cs, preserving order.
func Filter(cs []Constraint) []Constraint {
	out := cs[:0:0]
	for _, c := range cs {
		if c.Valid() {
			out = append(out, c)
		}
	}
	return out
}

// CountHard returns how many constraints in cs are of a hard type.
func CountHard(cs []Constraint) int {
	n := 0
	for _, c := range cs {
		if c.IsHard() {
			n++
		}
	}
	return n
}

// =============================================================================
// Canvas & Positions
// =============================================================================

// Canvas describes the drawable frame.
type Canvas struct {
	Width  float64 `json:"width" yaml:"width" bson:"width"`
	Height float64 `json:"height" yaml:"height" bson:"height"`
	Margin float64 `json:"margin" yaml:"margin" bson:"margin"`
}

// Canvas defaults.
const (
	DefaultWidth  = 800.0
	DefaultHeight = 600.0
	DefaultMargin = 50.0
)

// DefaultCanvas returns the 800x600 canvas with 50 unit margins.
func DefaultCanvas() Canvas {
	return Canvas{Width: DefaultWidth, Height: DefaultHeight, Margin: DefaultMargin}
}

// WithDefaults fills zero or negative fields from DefaultCanvas. A defaulted
// margin is capped at a quarter of the shorter side so small canvases keep
// a usable inner rectangle.
func (c Canvas) WithDefaults() Canvas {
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if c.Height <= 0 {
		c.Height = DefaultHeight
	}
	if c.Margin <= 0 {
		c.Margin = min(DefaultMargin, min(c.Width, c.Height)/4)
	}
	return c
}

// Inner returns the usable rectangle (x0, y0, x1, y1) inside the margins.
func (c Canvas) Inner() (x0, y0, x1, y1 float64) {
	return c.Margin, c.Margin, c.Width - c.Margin, c.Height - c.Margin
}

// Point is a resolved position.
type Point struct {
	X float64 `json:"x" yaml:"x" bson:"x"`
	Y float64 `json:"y" yaml:"y" bson:"y"`
}

// Dist returns the Euclidean distance between p and q.
func (p Point) Dist(q Point) float64 {
	return math.Hypot(p.X-q.X, p.Y-q.Y)
}

// Positions maps entity ids to resolved points.
type Positions map[string]Point
