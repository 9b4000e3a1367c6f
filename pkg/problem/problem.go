// Package problem defines the structured description of a STEM diagram
// problem: the objects to draw, the relationships between them, explicit
// constraints and optional geometry hints.
//
// A [Spec] is produced upstream (by an extractor, a file or the HTTP API) and
// consumed read-only by the planner. [Spec.Validate] enforces the structural
// rules every consumer relies on: non-empty, unique object ids.
package problem

import (
	"fmt"
	"strings"

	"github.com/matzehuels/stemplan/pkg/errors"
)

// Spec is a structured problem description.
type Spec struct {
	Domain        string         `json:"domain,omitempty" yaml:"domain,omitempty" toml:"domain,omitempty" bson:"domain,omitempty"`
	Description   string         `json:"description,omitempty" yaml:"description,omitempty" toml:"description,omitempty" bson:"description,omitempty"`
	Objects       []Object       `json:"objects" yaml:"objects" toml:"objects" bson:"objects"`
	Relationships []Relationship `json:"relationships,omitempty" yaml:"relationships,omitempty" toml:"relationships,omitempty" bson:"relationships,omitempty"`
	Constraints   []Constraint   `json:"constraints,omitempty" yaml:"constraints,omitempty" toml:"constraints,omitempty" bson:"constraints,omitempty"`
	Geometry      *Geometry      `json:"geometry,omitempty" yaml:"geometry,omitempty" toml:"geometry,omitempty" bson:"geometry,omitempty"`

	// SubSpecs are externally supplied sub-problems. When present the
	// decomposer uses them verbatim instead of computing components.
	SubSpecs []Spec `json:"sub_specs,omitempty" yaml:"sub_specs,omitempty" toml:"sub_specs,omitempty" bson:"sub_specs,omitempty"`
}

// Object is a thing to be drawn.
type Object struct {
	ID         string         `json:"id" yaml:"id" toml:"id" bson:"id"`
	Type       string         `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty" bson:"type,omitempty"`
	Label      string         `json:"label,omitempty" yaml:"label,omitempty" toml:"label,omitempty" bson:"label,omitempty"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty" toml:"properties,omitempty" bson:"properties,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (o Object) DisplayLabel() string {
	if o.Label != "" {
		return o.Label
	}
	return o.ID
}

// Relationship links a subject object to a target object.
type Relationship struct {
	Subject    string         `json:"subject" yaml:"subject" toml:"subject" bson:"subject"`
	Type       string         `json:"type" yaml:"type" toml:"type" bson:"type"`
	Target     string         `json:"target" yaml:"target" toml:"target" bson:"target"`
	Properties map[string]any `json:"properties,omitempty" yaml:"properties,omitempty" toml:"properties,omitempty" bson:"properties,omitempty"`
}

// Constraint is an explicit, user-supplied constraint. Priority is free
// text and is not interpreted by the formulator.
type Constraint struct {
	Type     string         `json:"type" yaml:"type" toml:"type" bson:"type"`
	Objects  []string       `json:"objects,omitempty" yaml:"objects,omitempty" toml:"objects,omitempty" bson:"objects,omitempty"`
	Params   map[string]any `json:"params,omitempty" yaml:"params,omitempty" toml:"params,omitempty" bson:"params,omitempty"`
	Priority string         `json:"priority,omitempty" yaml:"priority,omitempty" toml:"priority,omitempty" bson:"priority,omitempty"`
}

// Geometry carries an optional shape hint.
type Geometry struct {
	Shape string `json:"shape,omitempty" yaml:"shape,omitempty" toml:"shape,omitempty" bson:"shape,omitempty"`
}

// NormalizedDomain returns the lower-cased domain with spaces as underscores.
func (s *Spec) NormalizedDomain() string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s.Domain)), " ", "_")
}

// Shape returns the lower-cased geometry shape, or "" when absent.
func (s *Spec) Shape() string {
	if s.Geometry == nil {
		return ""
	}
	return strings.ToLower(strings.TrimSpace(s.Geometry.Shape))
}

// ObjectIDs returns object ids in declaration order.
func (s *Spec) ObjectIDs() []string {
	ids := make([]string, len(s.Objects))
	for i, o := range s.Objects {
		ids[i] = o.ID
	}
	return ids
}

// Object returns the object with the given ID.
func (s *Spec) Object(id string) (Object, bool) {
	for _, o := range s.Objects {
		if o.ID == id {
			return o, true
		}
	}
	return Object{}, false
}

// Validate checks that the spec's object ids are valid and unique and that
// the domain tag is well-formed. It does not reject dangling relationships
// or constraints; consumers drop those.
func (s *Spec) Validate() error {
	if err := errors.ValidateDomain(s.NormalizedDomain()); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidSpec, err, "domain")
	}
	seen := make(map[string]bool, len(s.Objects))
	for i, o := range s.Objects {
		if err := errors.ValidateID(o.ID); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidSpec, err, "object %d", i)
		}
		if seen[o.ID] {
			return errors.New(errors.ErrCodeInvalidSpec, "duplicate object id: %s", o.ID)
		}
		seen[o.ID] = true
	}
	for i := range s.SubSpecs {
		if err := s.SubSpecs[i].Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidSpec, err, "sub-spec %d", i)
		}
	}
	return nil
}

// String returns a short summary used in log lines.
func (s *Spec) String() string {
	return fmt.Sprintf("spec(domain=%q objects=%d relationships=%d constraints=%d)",
		s.Domain, len(s.Objects), len(s.Relationships), len(s.Constraints))
}
