package orchestrator

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/observability"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/planner"
	"github.com/matzehuels/stemplan/pkg/problem"
	"github.com/matzehuels/stemplan/pkg/solver"
)

// Metadata keys of a Result.
const (
	MetaPrimary    = "primary"
	MetaComplexity = "complexity"
	MetaStrategy   = "strategy"
	MetaChain      = "chain"
)

// Attempt is one back-end invocation.
type Attempt struct {
	Backend   solver.Kind   `json:"backend" yaml:"backend" bson:"backend"`
	Success   bool          `json:"success" yaml:"success" bson:"success"`
	Elapsed   time.Duration `json:"elapsed" yaml:"elapsed" bson:"elapsed"`
	Error     string        `json:"error,omitempty" yaml:"error,omitempty" bson:"error,omitempty"`
	Satisfied int           `json:"satisfied" yaml:"satisfied" bson:"satisfied"`
}

// Result is the outcome of one orchestration.
type Result struct {
	ID           string          `json:"id" yaml:"id" bson:"_id"`
	Success      bool            `json:"success" yaml:"success" bson:"success"`
	Backend      solver.Kind     `json:"backend" yaml:"backend" bson:"backend"`
	Elapsed      time.Duration   `json:"elapsed" yaml:"elapsed" bson:"elapsed"`
	Solution     solver.Solution `json:"solution" yaml:"solution" bson:"solution"`
	FallbackUsed bool            `json:"fallback_used" yaml:"fallback_used" bson:"fallback_used"`
	Attempts     []Attempt       `json:"attempts" yaml:"attempts" bson:"attempts"`
	Metadata     map[string]any  `json:"metadata" yaml:"metadata" bson:"metadata"`
	Plan         *plan.Plan      `json:"plan,omitempty" yaml:"plan,omitempty" bson:"plan,omitempty"`
	CreatedAt    time.Time       `json:"created_at" yaml:"created_at" bson:"created_at"`
}

// Primary returns the primary back-end recorded in the metadata.
func (r *Result) Primary() solver.Kind {
	s, _ := r.Metadata[MetaPrimary].(string)
	return solver.Kind(s)
}

// Recorder persists attempts, for example to an attempt-history store.
type Recorder interface {
	RecordAttempt(ctx context.Context, resultID, domain string, a Attempt) error
}

// Options configures an Orchestrator.
type Options struct {
	Config   Config
	Registry *solver.Registry // nil probes the standard back-ends
	Planner  *planner.Planner // nil uses a default planner
	Recorder Recorder         // nil records nothing
	Logger   *log.Logger
	Tracer   trace.Tracer // nil uses the global provider
}

// Orchestrator selects, chains and runs solver back-ends for plans.
type Orchestrator struct {
	cfg      Config
	registry *solver.Registry
	planner  *planner.Planner
	state    *State
	recorder Recorder
	logger   *log.Logger
	tracer   trace.Tracer
}

// New creates an orchestrator. Availability is probed once here, and one
// performance record is created per back-end.
func New(ctx context.Context, opts Options) (*Orchestrator, error) {
	cfg := opts.Config.WithDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.New(io.Discard)
	}
	reg := opts.Registry
	if reg == nil {
		reg = solver.NewRegistry(ctx, solver.Options{Disabled: cfg.Disabled, Logger: logger})
	}
	pl := opts.Planner
	if pl == nil {
		pl = planner.New(layout.Canvas{}, logger)
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = otel.Tracer("github.com/matzehuels/stemplan/pkg/orchestrator")
	}
	return &Orchestrator{
		cfg:      cfg,
		registry: reg,
		planner:  pl,
		state:    NewState(),
		recorder: opts.Recorder,
		logger:   logger,
		tracer:   tracer,
	}, nil
}

// Config returns the effective configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Registry returns the back-end registry.
func (o *Orchestrator) Registry() *solver.Registry { return o.registry }

// Planner returns the planner used when no plan is supplied.
func (o *Orchestrator) Planner() *planner.Planner { return o.planner }

// Performance returns a snapshot of every performance record.
func (o *Orchestrator) Performance() map[solver.Kind]PerformanceRecord {
	return o.state.Snapshot()
}

// Reset zeroes every performance record.
func (o *Orchestrator) Reset() { o.state.Reset() }

// Restore adds persisted records, such as those loaded from an attempt
// history store, to the current ones.
func (o *Orchestrator) Restore(records map[solver.Kind]PerformanceRecord) {
	o.state.Restore(records)
}

// Orchestrate builds a plan for spec when pl is nil, selects the primary
// back-end from its complexity and walks the fallback chain.
//
// Planning errors are returned as is. Solver failures never are; they are
// recorded as failed attempts in the Result.
func (o *Orchestrator) Orchestrate(ctx context.Context, spec *problem.Spec, pl *plan.Plan) (*Result, error) {
	if pl == nil {
		built, err := o.planner.Build(ctx, spec)
		if err != nil {
			return nil, err
		}
		pl = built
	}
	return o.Execute(ctx, pl, o.SelectPrimary(pl.Complexity, pl.Domain)), nil
}

// Execute walks the fallback chain of primary for pl. The plan is not
// modified; the result carries a copy with positions applied.
func (o *Orchestrator) Execute(ctx context.Context, pl *plan.Plan, primary solver.Kind) *Result {
	start := time.Now()
	chain := Chain(primary)
	names := make([]string, len(chain))
	for i, k := range chain {
		names[i] = string(k)
	}

	res := &Result{
		ID:      uuid.NewString(),
		Backend: solver.KindFallback,
		Metadata: map[string]any{
			MetaPrimary:    string(primary),
			MetaComplexity: pl.Complexity,
			MetaStrategy:   string(pl.Strategy),
			MetaChain:      names,
		},
		CreatedAt: start.UTC(),
	}

	ctx, span := o.tracer.Start(ctx, "orchestrator.Execute",
		trace.WithAttributes(
			attribute.String("plan.id", pl.ID),
			attribute.String("primary", string(primary)),
			attribute.Float64("complexity", pl.Complexity),
			attribute.Int("entities", len(pl.Entities)),
		),
	)
	defer span.End()

	p := solver.Problem{Entities: pl.Entities, Constraints: pl.Constraints, Canvas: pl.Canvas}
	budget := o.cfg.MaxAttempts
	for _, k := range chain {
		if !o.registry.Available(k) {
			o.logger.Debug("skipping unavailable back-end", "backend", k)
			continue
		}
		if k != solver.KindFallback && budget == 0 {
			o.logger.Debug("attempt budget spent, skipping", "backend", k)
			continue
		}
		b, _ := o.registry.Get(k)
		sol, att := o.attempt(ctx, b, p, res.ID, pl.Domain)
		res.Attempts = append(res.Attempts, att)
		if k != solver.KindFallback {
			budget--
		}
		if att.Success {
			res.Success = true
			res.Backend = k
			res.Solution = sol
			res.Plan = pl.WithPositions(sol.Positions, string(k))
			break
		}
	}

	res.FallbackUsed = res.Success && res.Backend != primary
	res.Elapsed = time.Since(start)

	span.SetAttributes(
		attribute.String("backend", string(res.Backend)),
		attribute.Bool("fallback_used", res.FallbackUsed),
		attribute.Int("attempts", len(res.Attempts)),
	)
	if !res.Success {
		span.SetStatus(codes.Error, "fallback chain exhausted")
		o.logger.Warn("fallback chain exhausted", "primary", primary, "attempts", len(res.Attempts))
	} else {
		o.logger.Debug("orchestrated plan",
			"plan", pl.ID,
			"primary", primary,
			"backend", res.Backend,
			"fallback_used", res.FallbackUsed,
			"elapsed", res.Elapsed)
	}
	observability.Solver().OnResult(ctx, string(res.Backend), res.FallbackUsed, res.Elapsed)
	return res
}

// attempt runs one back-end, times it and records the outcome.
func (o *Orchestrator) attempt(ctx context.Context, b solver.Backend, p solver.Problem, resultID, domain string) (solver.Solution, Attempt) {
	k := b.Kind()
	ctx, span := o.tracer.Start(ctx, "orchestrator.attempt",
		trace.WithAttributes(attribute.String("backend", string(k))))
	defer span.End()

	t0 := time.Now()
	sol, err := b.TrySolve(ctx, p)
	if err == nil && len(sol.Positions) < len(p.Entities) {
		err = errors.New(errors.ErrCodeNoPositions, "%s placed %d of %d entities", k, len(sol.Positions), len(p.Entities))
	}
	elapsed := time.Since(t0)

	att := Attempt{Backend: k, Success: err == nil, Elapsed: elapsed}
	if err != nil {
		att.Error = err.Error()
		span.RecordError(err)
		span.SetStatus(codes.Error, "attempt failed")
		o.logger.Warn("solver attempt failed", "backend", k, "elapsed", elapsed, "err", err)
	} else {
		att.Satisfied = len(sol.Satisfied)
		span.SetAttributes(attribute.Int("satisfied", att.Satisfied))
	}

	o.state.Record(k, att.Success, elapsed)
	observability.Solver().OnAttempt(ctx, string(k), att.Success, elapsed)
	if o.recorder != nil {
		if rerr := o.recorder.RecordAttempt(ctx, resultID, domain, att); rerr != nil {
			o.logger.Warn("failed to record attempt", "backend", k, "err", rerr)
		}
	}
	return sol, att
}
