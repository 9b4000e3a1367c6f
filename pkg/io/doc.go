// Package io reads and writes the documents stemplan exchanges with the
// outside world: problem specs, property graphs, plans and orchestration
// results.
//
// # Formats
//
// Three encodings are supported and picked by file extension:
//
//   - .json: the canonical format, also used by the HTTP API
//   - .yaml, .yml: hand-written specs
//   - .toml: hand-written specs
//
// Plans and results are written as JSON or YAML. TOML has no null and no
// heterogeneous arrays, so it is accepted for input only.
//
// # Problem Spec
//
//	{
//	  "domain": "mechanics",
//	  "objects": [
//	    {"id": "block", "type": "mass"},
//	    {"id": "ramp", "type": "incline"}
//	  ],
//	  "relationships": [
//	    {"subject": "block", "type": "on", "target": "ramp"}
//	  ],
//	  "constraints": [
//	    {"type": "above", "objects": ["block", "ramp"], "priority": "HIGH"}
//	  ],
//	  "geometry": {"shape": "triangle"}
//	}
//
// The same spec in YAML:
//
//	domain: mechanics
//	objects:
//	  - {id: block, type: mass}
//	  - {id: ramp, type: incline}
//	relationships:
//	  - {subject: block, type: "on", target: ramp}
//
// # Property Graph
//
// Graphs use the format of [github.com/matzehuels/stemplan/pkg/graph]:
// "nodes" with id, type, label and props, and "edges" with from, to, type,
// label and confidence.
//
// # Validation
//
// Readers validate what they decode. A spec with duplicate or empty object
// ids fails with INVALID_SPEC; a graph with unknown edge endpoints fails
// with INVALID_GRAPH. Malformed documents fail with INVALID_FORMAT.
package io
