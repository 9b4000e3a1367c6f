// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard dependencies
// on specific observability backends. Consumers can register hooks at startup
// to receive events about planning, solver attempts, cache operations, and
// API requests.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// [PrometheusHooks] implements every interface and is what the CLI
// registers for `stemplan serve`.
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    h := observability.NewPrometheusHooks(prometheus.DefaultRegisterer)
//	    observability.SetAll(h)
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Planning().OnPlanStart(ctx, "spec")
//	// ... plan ...
//	observability.Planning().OnPlanComplete(ctx, "spec", strategy, duration, err)
package observability

import (
	"context"
	"sync"
	"time"
)

// =============================================================================
// Planning Hooks
// =============================================================================

// PlanningHooks receives events from the spec and graph planners.
type PlanningHooks interface {
	// OnPlanStart records the start of a planning run. Source is "spec" or
	// "graph".
	OnPlanStart(ctx context.Context, source string)

	// OnPlanComplete records a finished planning run and its strategy.
	OnPlanComplete(ctx context.Context, source, strategy string, duration time.Duration, err error)
}

// =============================================================================
// Solver Hooks
// =============================================================================

// SolverHooks receives events from the orchestrator's fallback chain.
type SolverHooks interface {
	// OnAttempt records one back-end invocation.
	OnAttempt(ctx context.Context, backend string, success bool, duration time.Duration)

	// OnResult records the outcome of a whole orchestration.
	OnResult(ctx context.Context, backend string, fallbackUsed bool, duration time.Duration)
}

// =============================================================================
// Cache Hooks
// =============================================================================

// CacheHooks receives events from cache operations.
type CacheHooks interface {
	// OnCacheHit records a cache hit.
	OnCacheHit(ctx context.Context, keyType string)

	// OnCacheMiss records a cache miss.
	OnCacheMiss(ctx context.Context, keyType string)

	// OnCacheSet records a cache write.
	OnCacheSet(ctx context.Context, keyType string, size int)
}

// =============================================================================
// Server Hooks
// =============================================================================

// ServerHooks receives events from the HTTP API.
type ServerHooks interface {
	// OnRequest records an incoming request on a route pattern.
	OnRequest(ctx context.Context, method, route string)

	// OnResponse records the response status and latency.
	OnResponse(ctx context.Context, method, route string, statusCode int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopPlanningHooks is a no-op implementation of PlanningHooks.
type NoopPlanningHooks struct{}

func (NoopPlanningHooks) OnPlanStart(context.Context, string) {}
func (NoopPlanningHooks) OnPlanComplete(context.Context, string, string, time.Duration, error) {
}

// NoopSolverHooks is a no-op implementation of SolverHooks.
type NoopSolverHooks struct{}

func (NoopSolverHooks) OnAttempt(context.Context, string, bool, time.Duration) {}
func (NoopSolverHooks) OnResult(context.Context, string, bool, time.Duration)  {}

// NoopCacheHooks is a no-op implementation of CacheHooks.
type NoopCacheHooks struct{}

func (NoopCacheHooks) OnCacheHit(context.Context, string)      {}
func (NoopCacheHooks) OnCacheMiss(context.Context, string)     {}
func (NoopCacheHooks) OnCacheSet(context.Context, string, int) {}

// NoopServerHooks is a no-op implementation of ServerHooks.
type NoopServerHooks struct{}

func (NoopServerHooks) OnRequest(context.Context, string, string)                      {}
func (NoopServerHooks) OnResponse(context.Context, string, string, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	planningHooks PlanningHooks = NoopPlanningHooks{}
	solverHooks   SolverHooks   = NoopSolverHooks{}
	cacheHooks    CacheHooks    = NoopCacheHooks{}
	serverHooks   ServerHooks   = NoopServerHooks{}
	hooksMu       sync.RWMutex
)

// SetPlanningHooks registers custom planning hooks.
// This should be called once at application startup before any planning.
func SetPlanningHooks(h PlanningHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		planningHooks = h
	}
}

// SetSolverHooks registers custom solver hooks.
func SetSolverHooks(h SolverHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		solverHooks = h
	}
}

// SetCacheHooks registers custom cache hooks.
// This should be called once at application startup before any cache operations.
func SetCacheHooks(h CacheHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		cacheHooks = h
	}
}

// SetServerHooks registers custom server hooks.
func SetServerHooks(h ServerHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		serverHooks = h
	}
}

// AllHooks implements every hook interface.
type AllHooks interface {
	PlanningHooks
	SolverHooks
	CacheHooks
	ServerHooks
}

// SetAll registers h for every event category.
func SetAll(h AllHooks) {
	SetPlanningHooks(h)
	SetSolverHooks(h)
	SetCacheHooks(h)
	SetServerHooks(h)
}

// Planning returns the registered planning hooks.
func Planning() PlanningHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return planningHooks
}

// Solver returns the registered solver hooks.
func Solver() SolverHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return solverHooks
}

// Cache returns the registered cache hooks.
func Cache() CacheHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return cacheHooks
}

// Server returns the registered server hooks.
func Server() ServerHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return serverHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	planningHooks = NoopPlanningHooks{}
	solverHooks = NoopSolverHooks{}
	cacheHooks = NoopCacheHooks{}
	serverHooks = NoopServerHooks{}
}
