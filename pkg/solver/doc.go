// Package solver provides the layout back-ends the orchestrator dispatches
// to, behind a single [Backend] interface.
//
// # Back-ends
//
//   - [Heuristic]: balanced grid with alignment and fixed-position snapping
//   - [SMT]: grid-cell placement encoded as SAT and solved with gini, relaxing
//     lower priorities until satisfiable
//   - [Symbolic]: constraint residuals minimized with gonum's L-BFGS
//   - [Geometry]: Graphviz neato spring layout fitted to the canvas
//   - [Hybrid]: SMT placement refined by the symbolic minimizer
//   - [Fallback]: deterministic row-major grid that never fails
//
// # Availability
//
// Each back-end reports whether it can run via [Backend.Available]. A
// [Registry] probes every back-end once at construction and caches the
// answer; callers skip unavailable back-ends instead of calling them.
//
// # Errors
//
// TrySolve failures carry ErrCodeSolverFailed, ErrCodeSolverUnavailable or
// ErrCodeNoPositions from pkg/errors. No back-end panics on bad input.
package solver
