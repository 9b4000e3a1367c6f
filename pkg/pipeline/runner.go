package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stemplan/pkg/cache"
	"github.com/matzehuels/stemplan/pkg/graphplan"
	"github.com/matzehuels/stemplan/pkg/observability"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/planner"
	"github.com/matzehuels/stemplan/pkg/solver"
)

// Runner encapsulates pipeline execution with caching.
// Both CLI and API use it to avoid duplicating caching logic.
//
// The Runner is stateless except for its collaborators. Multiple
// goroutines can safely use the same Runner with different options.
type Runner struct {
	Cache        cache.Cache
	Keyer        cache.Keyer
	Orchestrator *orchestrator.Orchestrator
	Inferer      graphplan.RelationInferer // nil adds no relations to graphs
	Sinks        []Sink
	PlanTTL      time.Duration
	ResultTTL    time.Duration
	Logger       *log.Logger
}

// NewRunner creates a runner with the given cache, keyer and orchestrator.
// If keyer is nil, a DefaultKeyer is used.
// If cache is nil, a NullCache is used (caching disabled).
func NewRunner(c cache.Cache, keyer cache.Keyer, orch *orchestrator.Orchestrator, logger *log.Logger) *Runner {
	if keyer == nil {
		keyer = cache.NewDefaultKeyer()
	}
	if c == nil {
		c = cache.NewNullCache()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		Cache:        c,
		Keyer:        keyer,
		Orchestrator: orch,
		PlanTTL:      cache.TTLPlan,
		ResultTTL:    cache.TTLResult,
		Logger:       logger,
	}
}

// Execute runs the complete load → plan → solve → render pipeline.
func (r *Runner) Execute(ctx context.Context, opts Options) (*Result, error) {
	r.applyLogger(&opts)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	result := &Result{Artifacts: make(map[string][]byte)}

	// Stage 1: Load
	loadStart := time.Now()
	in, err := Load(opts)
	if err != nil {
		return nil, err
	}
	result.Stats.LoadTime = time.Since(loadStart)

	// Stage 2: Plan
	planStart := time.Now()
	pl, planHit, err := r.PlanWithCacheInfo(ctx, in, opts)
	if err != nil {
		return nil, err
	}
	result.Plan = pl
	result.InputHash, _ = in.Hash()
	result.Stats.PlanTime = time.Since(planStart)
	result.Stats.Entities = len(pl.Entities)
	result.Stats.Constraints = len(pl.Constraints)
	result.CacheInfo.PlanHit = planHit

	r.Logger.Info("built plan",
		"source", in.Source(),
		"domain", pl.Domain,
		"strategy", pl.Strategy,
		"entities", len(pl.Entities),
		"constraints", len(pl.Constraints),
		"cached", planHit,
		"duration", result.Stats.PlanTime)

	// Stage 3: Solve
	if !opts.NoSolve {
		solveStart := time.Now()
		run, resultHit, err := r.SolveWithCacheInfo(ctx, pl, opts)
		if err != nil {
			return nil, err
		}
		result.Run = run
		result.Stats.SolveTime = time.Since(solveStart)
		result.Stats.Attempts = len(run.Attempts)
		result.CacheInfo.ResultHit = resultHit

		r.Logger.Info("orchestrated plan",
			"backend", run.Backend,
			"success", run.Success,
			"fallback_used", run.FallbackUsed,
			"attempts", len(run.Attempts),
			"cached", resultHit,
			"duration", result.Stats.SolveTime)
	}

	// Stage 4: Render
	renderStart := time.Now()
	artifacts, err := Render(pl, result.Run, opts.Formats)
	if err != nil {
		return nil, fmt.Errorf("render: %w", err)
	}
	result.Artifacts = artifacts
	result.Stats.RenderTime = time.Since(renderStart)

	r.Logger.Debug("rendered outputs",
		"formats", opts.Formats,
		"duration", result.Stats.RenderTime)

	return result, nil
}

// PlanWithCacheInfo builds a plan for in with caching and returns cache
// hit info. opts must be validated.
func (r *Runner) PlanWithCacheInfo(ctx context.Context, in Input, opts Options) (*plan.Plan, bool, error) {
	hash, err := in.Hash()
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.PlanKey(hash, opts.PlanKeyOpts())

	// Try cache first (unless refresh requested)
	if !opts.Refresh {
		var cached plan.Plan
		if r.get(ctx, cacheKey, &cached) {
			return &cached, true, nil
		}
	}

	pl, err := r.Plan(ctx, in, opts)
	if err != nil {
		return nil, false, err
	}
	r.set(ctx, cacheKey, pl, r.PlanTTL)
	return pl, false, nil
}

// Plan builds a plan for in without caching.
func (r *Runner) Plan(ctx context.Context, in Input, opts Options) (*plan.Plan, error) {
	source := in.Source()
	hooks := observability.Planning()
	hooks.OnPlanStart(ctx, source)
	start := time.Now()

	var pl *plan.Plan
	var err error
	if in.Graph != nil {
		gp := graphplan.New(graphplan.Options{
			Canvas:   opts.Canvas,
			Registry: r.registry(),
			Inferer:  r.Inferer,
			Logger:   opts.Logger,
		})
		pl, err = gp.Plan(ctx, in.Graph)
	} else {
		pl, err = planner.New(opts.Canvas, opts.Logger).Build(ctx, in.Spec)
	}

	strategy := ""
	if pl != nil {
		strategy = string(pl.Strategy)
	}
	hooks.OnPlanComplete(ctx, source, strategy, time.Since(start), err)
	return pl, err
}

// SolveWithCacheInfo orchestrates pl with caching and returns cache hit
// info. Fresh results are delivered to every sink.
func (r *Runner) SolveWithCacheInfo(ctx context.Context, pl *plan.Plan, opts Options) (*orchestrator.Result, bool, error) {
	if r.Orchestrator == nil {
		return nil, false, fmt.Errorf("solve: runner has no orchestrator")
	}
	planHash, err := cache.HashJSON(pl)
	if err != nil {
		return nil, false, err
	}
	cacheKey := r.Keyer.ResultKey(planHash, r.resultKeyOpts(opts))

	if !opts.Refresh {
		var cached orchestrator.Result
		if r.get(ctx, cacheKey, &cached) {
			return &cached, true, nil
		}
	}

	var run *orchestrator.Result
	if opts.Primary != "" {
		run = r.Orchestrator.Execute(ctx, pl, solver.Kind(opts.Primary))
	} else {
		run, err = r.Orchestrator.Orchestrate(ctx, nil, pl)
		if err != nil {
			return nil, false, err
		}
	}

	// Failed runs are not cached so a later run can retry.
	if run.Success {
		r.set(ctx, cacheKey, run, r.ResultTTL)
	}
	r.deliver(ctx, run)
	return run, false, nil
}

// Close releases resources held by the runner (primarily the cache).
func (r *Runner) Close() error {
	if r.Cache != nil {
		return r.Cache.Close()
	}
	return nil
}

// deliver hands run to every sink. Sink failures are logged, not returned.
func (r *Runner) deliver(ctx context.Context, run *orchestrator.Result) {
	for _, s := range r.Sinks {
		if err := s.Accept(ctx, run); err != nil {
			r.Logger.Warn("result sink failed", "sink", s.Name(), "result", run.ID, "err", err)
			continue
		}
		r.Logger.Debug("delivered result", "sink", s.Name(), "result", run.ID)
	}
}

// get decodes a cached entry into v and reports whether it was usable.
func (r *Runner) get(ctx context.Context, key string, v any) bool {
	keyType := cache.KeyType(key)
	data, hit, err := r.Cache.Get(ctx, key)
	if err != nil {
		r.Logger.Warn("cache read failed", "type", keyType, "err", err)
	}
	if err != nil || !hit {
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false
	}
	if err := json.Unmarshal(data, v); err != nil {
		// Undecodable entries are recomputed and overwritten.
		r.Logger.Debug("discarding corrupt cache entry", "type", keyType, "err", err)
		observability.Cache().OnCacheMiss(ctx, keyType)
		return false
	}
	observability.Cache().OnCacheHit(ctx, keyType)
	return true
}

func (r *Runner) set(ctx context.Context, key string, v any, ttl time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := r.Cache.Set(ctx, key, data, ttl); err != nil {
		r.Logger.Warn("cache write failed", "type", cache.KeyType(key), "err", err)
		return
	}
	observability.Cache().OnCacheSet(ctx, cache.KeyType(key), len(data))
}

func (r *Runner) registry() *solver.Registry {
	if r.Orchestrator != nil {
		return r.Orchestrator.Registry()
	}
	return nil
}

func (r *Runner) resultKeyOpts(opts Options) cache.ResultKeyOpts {
	cfg := r.Orchestrator.Config()
	disabled := make([]string, len(cfg.Disabled))
	for i, k := range cfg.Disabled {
		disabled[i] = string(k)
	}
	return cache.ResultKeyOpts{
		Primary:          opts.Primary,
		SimpleThreshold:  cfg.SimpleThreshold,
		ComplexThreshold: cfg.ComplexThreshold,
		MaxAttempts:      cfg.MaxAttempts,
		Disabled:         disabled,
	}
}

// applyLogger sets the runner's logger on options if not already set.
func (r *Runner) applyLogger(opts *Options) {
	if opts.Logger == nil {
		opts.Logger = r.Logger
	}
}
