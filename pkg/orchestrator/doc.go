// Package orchestrator runs a plan through the solver back-ends.
//
// An [Orchestrator] owns the back-end [solver.Registry], whose availability
// is probed once, and a [State] holding one [PerformanceRecord] per
// back-end. For each plan it:
//
//  1. picks a primary back-end from the plan's complexity bucket
//     ([Orchestrator.SelectPrimary])
//  2. expands it to a fixed fallback chain ([Chain])
//  3. walks the chain, skipping unavailable back-ends, within an attempt
//     budget, timing and recording every attempt
//  4. stops at the first success and returns a [Result] whose plan carries
//     the resolved positions
//
// The terminal fallback back-end never fails, so a Result is successful
// unless the context was cancelled before any back-end ran.
//
// # Concurrency
//
// An Orchestrator may be shared by concurrent callers. Performance records
// are guarded by a mutex; plans and results are owned by the caller.
// The context is passed to each back-end but the orchestrator never
// cancels an attempt on its own.
package orchestrator
