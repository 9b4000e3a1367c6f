package graph

import (
	"errors"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [Graph.Validate] when a node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [Graph.Validate] when two nodes share an ID.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownEdgeEndpoint is returned by [Graph.Validate] when an edge
	// references a node that does not exist.
	ErrUnknownEdgeEndpoint = errors.New("unknown edge endpoint")
)

// =============================================================================
// Graph - Property Graph
// =============================================================================

// Graph is a typed property graph of diagram entities and their relations.
//
// The format is human-readable and designed for round-trip fidelity:
// import → plan → export → re-import produces identical results.
type Graph struct {
	Domain string `json:"domain,omitempty" yaml:"domain,omitempty" bson:"domain,omitempty"`
	Nodes  []Node `json:"nodes" yaml:"nodes" bson:"nodes"`
	Edges  []Edge `json:"edges" yaml:"edges" bson:"edges"`
}

// Node is an entity of the property graph.
type Node struct {
	ID    string         `json:"id" yaml:"id" bson:"id"`
	Type  string         `json:"type,omitempty" yaml:"type,omitempty" bson:"type,omitempty"`
	Label string         `json:"label,omitempty" yaml:"label,omitempty" bson:"label,omitempty"` // Display label (defaults to ID)
	Props map[string]any `json:"props,omitempty" yaml:"props,omitempty" bson:"props,omitempty"`
}

// DisplayLabel returns the label if set, otherwise the ID.
func (n *Node) DisplayLabel() string {
	if n.Label != "" {
		return n.Label
	}
	return n.ID
}

// Edge is a typed relation between two entities. Direction is kept for
// display; structural analysis treats edges as undirected.
type Edge struct {
	From       string  `json:"from" yaml:"from" bson:"from"`
	To         string  `json:"to" yaml:"to" bson:"to"`
	Type       string  `json:"type,omitempty" yaml:"type,omitempty" bson:"type,omitempty"`
	Label      string  `json:"label,omitempty" yaml:"label,omitempty" bson:"label,omitempty"`
	Confidence float64 `json:"confidence,omitempty" yaml:"confidence,omitempty" bson:"confidence,omitempty"`
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int { return len(g.Nodes) }

// EdgeCount returns the number of edges.
func (g *Graph) EdgeCount() int { return len(g.Edges) }

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (*Node, bool) {
	for i := range g.Nodes {
		if g.Nodes[i].ID == id {
			return &g.Nodes[i], true
		}
	}
	return nil, false
}

// IDs returns node IDs in graph order.
func (g *Graph) IDs() []string {
	ids := make([]string, len(g.Nodes))
	for i, n := range g.Nodes {
		ids[i] = n.ID
	}
	return ids
}

// NormalizedDomain returns the lower-cased domain with spaces as underscores.
func (g *Graph) NormalizedDomain() string {
	return NormalizeDomain(g.Domain)
}

// NormalizeDomain lower-cases a domain tag and joins words with underscores.
func NormalizeDomain(d string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(d)), " ", "_")
}

// Validate checks that node IDs are non-empty and unique and that every
// edge references existing nodes.
func (g *Graph) Validate() error {
	seen := make(map[string]bool, len(g.Nodes))
	for _, n := range g.Nodes {
		if n.ID == "" {
			return ErrInvalidNodeID
		}
		if seen[n.ID] {
			return ErrDuplicateNodeID
		}
		seen[n.ID] = true
	}
	for _, e := range g.Edges {
		if !seen[e.From] || !seen[e.To] {
			return ErrUnknownEdgeEndpoint
		}
	}
	return nil
}

// Clone returns a deep copy of the graph structure. Property maps are
// shallow-copied.
func (g Graph) Clone() Graph {
	out := Graph{
		Domain: g.Domain,
		Nodes:  make([]Node, len(g.Nodes)),
		Edges:  slices.Clone(g.Edges),
	}
	for i, n := range g.Nodes {
		n.Props = copyProps(n.Props)
		out.Nodes[i] = n
	}
	return out
}

// copyProps creates a shallow copy of properties to avoid mutation.
func copyProps(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	result := make(map[string]any, len(m))
	for k, v := range m {
		result[k] = v
	}
	return result
}

// =============================================================================
// Adjacency - Undirected Structure
// =============================================================================

// Adjacency is an undirected adjacency over an ordered set of ids.
// Links to ids outside the set are rejected.
type Adjacency struct {
	ids  []string
	set  map[string]bool
	nbrs map[string][]string
}

// NewAdjacency creates an adjacency over ids. Duplicates are ignored.
func NewAdjacency(ids []string) *Adjacency {
	a := &Adjacency{
		set:  make(map[string]bool, len(ids)),
		nbrs: make(map[string][]string, len(ids)),
	}
	for _, id := range ids {
		if a.set[id] {
			continue
		}
		a.set[id] = true
		a.ids = append(a.ids, id)
	}
	return a
}

// FromGraph builds the undirected adjacency of g, ignoring dangling edges.
func FromGraph(g *Graph) *Adjacency {
	a := NewAdjacency(g.IDs())
	for _, e := range g.Edges {
		a.Link(e.From, e.To)
	}
	return a
}

// Has reports whether id is part of the adjacency.
func (a *Adjacency) Has(id string) bool { return a.set[id] }

// Link adds an undirected edge. It reports false, leaving the adjacency
// unchanged, when either endpoint is unknown.
func (a *Adjacency) Link(x, y string) bool {
	if !a.set[x] || !a.set[y] {
		return false
	}
	a.nbrs[x] = append(a.nbrs[x], y)
	if x != y {
		a.nbrs[y] = append(a.nbrs[y], x)
	}
	return true
}

// Neighbors returns the neighbours of id in link order.
func (a *Adjacency) Neighbors(id string) []string { return a.nbrs[id] }

// Degree returns the number of incident links of id.
func (a *Adjacency) Degree(id string) int { return len(a.nbrs[id]) }

// MaxDegree returns the largest degree over all ids.
func (a *Adjacency) MaxDegree() int {
	maxDeg := 0
	for _, id := range a.ids {
		maxDeg = max(maxDeg, a.Degree(id))
	}
	return maxDeg
}

// Components returns the connected components. Ids are visited in insertion
// order; each component lists its ids in discovery order. Isolated ids form
// singleton components.
func (a *Adjacency) Components() [][]string {
	visited := make(map[string]bool, len(a.ids))
	var comps [][]string
	for _, start := range a.ids {
		if visited[start] {
			continue
		}
		var comp []string
		stack := []string{start}
		visited[start] = true
		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, cur)
			for _, nb := range a.nbrs[cur] {
				if !visited[nb] {
					visited[nb] = true
					stack = append(stack, nb)
				}
			}
		}
		comps = append(comps, comp)
	}
	return comps
}
