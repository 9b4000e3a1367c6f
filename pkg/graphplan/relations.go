package graphplan

import (
	"cmp"
	"context"
	"strings"

	"github.com/matzehuels/stemplan/pkg/graph"
	"github.com/matzehuels/stemplan/pkg/plan"
)

// RelationKind is the visual vocabulary a graph edge is mapped into.
type RelationKind string

// Visual relation kinds.
const (
	RelationWire       RelationKind = "wire"
	RelationSeries     RelationKind = "series"
	RelationParallel   RelationKind = "parallel"
	RelationAttachment RelationKind = "attachment"
	RelationForce      RelationKind = "force"
	RelationSpatial    RelationKind = "spatial"
	RelationGeneric    RelationKind = "generic"
)

// Relation is a classified edge between two surviving entities.
type Relation struct {
	From       string       `json:"from"`
	To         string       `json:"to"`
	Kind       RelationKind `json:"kind"`
	Label      string       `json:"label,omitempty"`
	Confidence float64      `json:"confidence,omitempty"`
	Inferred   bool         `json:"inferred,omitempty"`
}

// relationRule maps edge keywords to a kind. Rules are tried in order.
type relationRule struct {
	kind  RelationKind
	words []string
}

var relationRules = []relationRule{
	{RelationSeries, []string{"series"}},
	{RelationParallel, []string{"parallel"}},
	{RelationWire, []string{"wire", "wired", "circuit", "conduct", "current"}},
	{RelationForce, []string{"force", "push", "pull", "exert", "acts_on", "act_on", "tension", "gravity", "weight"}},
	{RelationAttachment, []string{"attach", "hang", "suspend", "mount", "tie", "tied", "fix", "hold", "support", "rest", "rests_on"}},
	{RelationSpatial, []string{"left", "right", "above", "below", "under", "over", "beside", "behind", "front", "inside", "near", "between", "on_top"}},
}

// connectWords become wires in circuit domains and generic links elsewhere.
var connectWords = []string{"connect", "link", "join", "adjacent", "touch"}

// ClassifyEdge maps an edge's type and label to a relation kind.
func ClassifyEdge(domain string, e graph.Edge) RelationKind {
	text := normalizeText(e.Type + " " + e.Label)
	for _, r := range relationRules {
		if containsWord(text, r.words) {
			return r.kind
		}
	}
	if containsWord(text, connectWords) && plan.IsElectricalDomain(domain) {
		return RelationWire
	}
	return RelationGeneric
}

// normalizeText lower-cases s and turns dashes and spaces into underscores
// so both "acts on" and "ACTS_ON" read the same.
func normalizeText(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer("-", "_", " ", "_").Replace(s)
}

// containsWord reports whether one of ws occurs in text on an underscore
// boundary or as a prefix of a word.
func containsWord(text string, ws []string) bool {
	for _, part := range strings.Split(text, "_") {
		for _, w := range ws {
			if strings.Contains(w, "_") {
				if strings.Contains(text, w) {
					return true
				}
				continue
			}
			if strings.HasPrefix(part, w) {
				return true
			}
		}
	}
	return false
}

// RelationStats counts mapped and dropped edges.
type RelationStats struct {
	Mapped   int                  `json:"mapped"`
	Dropped  int                  `json:"dropped"`
	Inferred int                  `json:"inferred"`
	ByKind   map[RelationKind]int `json:"by_kind,omitempty"`
}

// MapRelations classifies the edges of g whose endpoints are both in
// entities. Self-loops and edges touching filtered nodes are dropped.
func MapRelations(g *graph.Graph, entities []graph.Node) ([]Relation, RelationStats) {
	keep := make(map[string]bool, len(entities))
	for _, n := range entities {
		keep[n.ID] = true
	}
	domain := g.NormalizedDomain()
	stats := RelationStats{ByKind: map[RelationKind]int{}}
	var out []Relation
	for _, e := range g.Edges {
		if !keep[e.From] || !keep[e.To] || e.From == e.To {
			stats.Dropped++
			continue
		}
		r := Relation{
			From:       e.From,
			To:         e.To,
			Kind:       ClassifyEdge(domain, e),
			Label:      cmp.Or(e.Label, e.Type),
			Confidence: e.Confidence,
		}
		stats.ByKind[r.Kind]++
		out = append(out, r)
	}
	stats.Mapped = len(out)
	return out, stats
}

// RelationInferer adds implicit relations the graph does not state, such
// as the return wire that closes a drawn circuit.
type RelationInferer interface {
	Infer(ctx context.Context, domain string, entities []graph.Node, rels []Relation) []Relation
}

// NoInference is the default inferer. It adds nothing.
type NoInference struct{}

// Infer implements RelationInferer.
func (NoInference) Infer(context.Context, string, []graph.Node, []Relation) []Relation { return nil }
