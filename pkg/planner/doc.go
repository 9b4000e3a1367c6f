// Package planner turns a [problem.Spec] into a [plan.Plan].
//
// The planner is four pure steps and one orchestrating entry point:
//
//  1. [Assess]: complexity score in [0,1] from object, relationship and
//     constraint counts plus domain and geometry lookups
//  2. [Decompose]: connected components of the relationship graph, one
//     [plan.Subproblem] each (or a single "main" subproblem)
//  3. [Select] / [Explain]: rule-ordered strategy choice and its
//     human-readable justification, derived from one decision table
//  4. [Formulate]: canvas, relationship, geometry, explicit and domain
//     layout constraints
//
// [Planner.Build] runs all four, records each decision in the plan log and
// assigns per-object style hints.
//
// # Silent Drops
//
// Relationships that reference unknown objects and explicit constraints that
// are unrecognized or reference no known object are dropped. Each drop is
// logged at debug level and counted in the plan log; none is an error.
//
// # Concurrency
//
// All package functions are pure. A [Planner] holds no per-call state and is
// safe for concurrent use.
package planner
