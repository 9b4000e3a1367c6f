// Package pkg provides the core libraries for stemplan layout planning.
//
// # Overview
//
// stemplan turns a structured STEM diagram problem, or a property graph
// extracted from one, into a layout plan: a complexity score, a
// decomposition, a strategy, layout constraints, style hints and, once a
// solver back-end has run, a position for every object.
//
// # Architecture
//
// The typical data flow:
//
//	problem.Spec                     graph.Graph
//	     ↓                                ↓
//	[planner] assess → decompose   [graphplan] filter → map → constrain
//	     → select → formulate           → dispatch → style
//	     ↓                                ↓
//	            plan.Plan (with planning log)
//	                     ↓
//	[orchestrator] primary selection → fallback chain over [solver] back-ends
//	                     ↓
//	            orchestrator.Result → JSON / YAML / Markdown / HTML
//
// # Quick Start
//
//	import (
//	    "context"
//	    "github.com/matzehuels/stemplan/pkg/layout"
//	    "github.com/matzehuels/stemplan/pkg/orchestrator"
//	    "github.com/matzehuels/stemplan/pkg/planner"
//	)
//
//	ctx := context.Background()
//	pl, err := planner.New(layout.DefaultCanvas(), nil).Build(ctx, spec)
//	if err != nil {
//	    return err
//	}
//	orch, err := orchestrator.New(ctx, orchestrator.Options{})
//	if err != nil {
//	    return err
//	}
//	res, err := orch.Orchestrate(ctx, spec, pl)
//
// # Main Packages
//
// ## Planning
//
// [problem] - The structured problem description and its validation.
//
// [planner] - Complexity assessment, decomposition into connected
// sub-problems, strategy selection and constraint formulation.
//
// [graphplan] - The five-stage planner for property graphs.
//
// [plan] and [layout] - The plan document, constraints, canvas and positions.
//
// ## Solving
//
// [solver] - The heuristic, SMT, symbolic, geometry, hybrid and fallback
// back-ends behind one interface, with availability probed once.
//
// [orchestrator] - Primary selection, fallback chains, attempt budget and
// per-back-end performance records.
//
// ## Infrastructure
//
// [pipeline] - The cached load → plan → solve → render runner shared by the
// CLI and the HTTP API.
//
// [cache] - File (flock) and Redis caches for plans and results.
//
// [store/sqlstore] and [store/mongostore] - Attempt history (SQLite or
// PostgreSQL) and the MongoDB result archive.
//
// [notify/mqtt] - Result notifications over MQTT.
//
// [server] - The chi HTTP API with Prometheus metrics.
//
// [config], [errors], [observability], [io], [report] and [buildinfo] -
// Configuration, structured errors, hooks, document formats, reports and
// version information.
package pkg
