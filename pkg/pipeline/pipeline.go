// Package pipeline runs the load → plan → solve → render pipeline shared
// by the CLI and the HTTP API.
//
// # Stages
//
//  1. Load: read a problem spec or property graph from a file, or take one
//     supplied in the options
//  2. Plan: build a plan with the spec planner or the graph planner
//  3. Solve: run the orchestrator's fallback chain over the plan
//  4. Render: encode the plan and result as JSON, YAML, Markdown or HTML
//
// Planning and solving are cached by content hash. Fresh results are
// handed to every configured [Sink], such as the MongoDB archive or the
// MQTT publisher.
//
// # Usage
//
//	runner := pipeline.NewRunner(c, nil, orch, logger)
//	res, err := runner.Execute(ctx, pipeline.Options{
//	    Path:    "incline.yaml",
//	    Formats: []string{pipeline.FormatMarkdown},
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	os.Stdout.Write(res.Artifacts[pipeline.FormatMarkdown])
package pipeline

import (
	"context"
	"io"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stemplan/pkg/cache"
	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/graph"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
	"github.com/matzehuels/stemplan/pkg/plan"
	"github.com/matzehuels/stemplan/pkg/problem"
	"github.com/matzehuels/stemplan/pkg/solver"
)

// Input sources.
const (
	SourceSpec  = "spec"
	SourceGraph = "graph"
)

// Output formats.
const (
	FormatJSON     = "json"
	FormatYAML     = "yaml"
	FormatMarkdown = "md"
	FormatHTML     = "html"
)

// DefaultFormat is rendered when no format is requested.
const DefaultFormat = FormatJSON

// ValidFormats is the set of supported output formats.
var ValidFormats = map[string]bool{
	FormatJSON:     true,
	FormatYAML:     true,
	FormatMarkdown: true,
	FormatHTML:     true,
}

// Sink receives every freshly computed orchestration result.
type Sink interface {
	Name() string
	Accept(ctx context.Context, res *orchestrator.Result) error
}

// =============================================================================
// Options
// =============================================================================

// Options configures one pipeline run. It decodes from API request bodies.
type Options struct {
	// Input: exactly one of Spec, Graph and Path.
	Spec   *problem.Spec `json:"spec,omitempty"`
	Graph  *graph.Graph  `json:"graph,omitempty"`
	Path   string        `json:"-"`
	Source string        `json:"source,omitempty"` // how to read Path: "spec" (default) or "graph"

	Canvas  layout.Canvas `json:"canvas,omitempty"`
	Primary string        `json:"primary,omitempty"` // forces the primary back-end
	Formats []string      `json:"formats,omitempty"`
	Refresh bool          `json:"refresh,omitempty"` // bypass cache reads
	NoSolve bool          `json:"no_solve,omitempty"`

	Logger *log.Logger `json:"-"`
}

// Validate checks the input selection, back-end and formats, and applies
// defaults.
func (o *Options) Validate() error {
	n := 0
	for _, set := range []bool{o.Spec != nil, o.Graph != nil, o.Path != ""} {
		if set {
			n++
		}
	}
	if n != 1 {
		return errors.New(errors.ErrCodeInvalidInput, "exactly one of spec, graph or path is required")
	}
	switch {
	case o.Spec != nil:
		o.Source = SourceSpec
	case o.Graph != nil:
		o.Source = SourceGraph
	case o.Source == "":
		o.Source = SourceSpec
	case o.Source != SourceSpec && o.Source != SourceGraph:
		return errors.New(errors.ErrCodeInvalidInput, "invalid source %q (must be spec or graph)", o.Source)
	}
	if o.Path != "" {
		if err := errors.ValidateSpecPath(o.Path); err != nil {
			return err
		}
	}
	if o.Primary != "" && !solver.Kind(o.Primary).Valid() {
		return errors.New(errors.ErrCodeInvalidInput, "unknown solver back-end %q", o.Primary)
	}
	if len(o.Formats) == 0 {
		o.Formats = []string{DefaultFormat}
	}
	if err := ValidateFormats(o.Formats); err != nil {
		return err
	}
	o.Canvas = o.Canvas.WithDefaults()
	if o.Logger == nil {
		o.Logger = log.New(io.Discard)
	}
	return nil
}

// PlanKeyOpts returns cache key options for planning.
func (o *Options) PlanKeyOpts() cache.PlanKeyOpts {
	return cache.PlanKeyOpts{
		Source: o.Source,
		Width:  o.Canvas.Width,
		Height: o.Canvas.Height,
		Margin: o.Canvas.Margin,
	}
}

// ValidateFormat checks that a format is valid.
func ValidateFormat(format string) error {
	if !ValidFormats[format] {
		return errors.New(errors.ErrCodeInvalidFormat, "invalid format: %q (must be one of: %s)",
			format, strings.Join(formatNames(), ", "))
	}
	return nil
}

// ValidateFormats checks that all formats are valid.
func ValidateFormats(formats []string) error {
	for _, f := range formats {
		if err := ValidateFormat(f); err != nil {
			return err
		}
	}
	return nil
}

func formatNames() []string {
	names := make([]string, 0, len(ValidFormats))
	for f := range ValidFormats {
		names = append(names, f)
	}
	slices.Sort(names)
	return names
}

// =============================================================================
// Results
// =============================================================================

// Result contains the outputs of a pipeline run.
type Result struct {
	// Plan is the built plan, without positions.
	Plan *plan.Plan

	// Run is the orchestration result. Nil when solving was skipped.
	Run *orchestrator.Result

	// InputHash is the content hash of the loaded spec or graph.
	InputHash string

	// Artifacts contains rendered outputs keyed by format.
	Artifacts map[string][]byte

	// Stats contains timing and size information.
	Stats Stats

	// CacheInfo tracks which stages hit the cache.
	CacheInfo CacheInfo
}

// Stats contains pipeline execution statistics.
type Stats struct {
	Entities    int
	Constraints int
	Attempts    int
	LoadTime    time.Duration
	PlanTime    time.Duration
	SolveTime   time.Duration
	RenderTime  time.Duration
}

// CacheInfo tracks cache hits for each pipeline stage.
type CacheInfo struct {
	PlanHit   bool // Whether the plan came from cache
	ResultHit bool // Whether the orchestration result came from cache
}
