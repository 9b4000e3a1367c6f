// Package graph provides the property graph consumed by the graph-driven
// planning pipeline, plus the undirected adjacency used for component and
// degree analysis by both planners.
//
// # Core Types
//
//   - [Graph]: Node-link property graph as produced by an upstream extractor
//   - [Node], [Edge]: Typed entities and typed relations with confidence
//   - [Adjacency]: Undirected adjacency over a fixed, ordered id set
//
// # Graph Serialization
//
// Graphs use a simple node-link JSON format:
//
//	{
//	  "domain": "current_electricity",
//	  "nodes": [{"id": "bat", "type": "battery"}, {"id": "r1", "type": "resistor"}],
//	  "edges": [{"from": "bat", "to": "r1", "type": "connected_to"}]
//	}
//
// Common operations:
//
//	g, _ := graph.ReadGraphFile("circuit.json")
//	graph.WriteGraphFile(g, "out.json")
//	if err := g.Validate(); err != nil { ... }
//
// # Connected Components
//
// [Adjacency.Components] walks ids in insertion order with an explicit stack,
// so components are reported deterministically and deep chains never grow the
// goroutine stack.
//
// # Concurrency
//
// All functions are safe for concurrent reads but not concurrent writes.
package graph
