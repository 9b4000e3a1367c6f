package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/stemplan/pkg/cache"
	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/graph"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
	"github.com/matzehuels/stemplan/pkg/problem"
	"github.com/matzehuels/stemplan/pkg/solver"
)

func TestValidateFormat(t *testing.T) {
	tests := []struct {
		format  string
		wantErr bool
	}{
		{"json", false},
		{"yaml", false},
		{"md", false},
		{"html", false},
		{"svg", true},
		{"JSON", true}, // case-sensitive
		{"", true},
	}

	for _, tt := range tests {
		err := ValidateFormat(tt.format)
		if (err != nil) != tt.wantErr {
			t.Errorf("ValidateFormat(%q) error = %v, wantErr %v", tt.format, err, tt.wantErr)
		}
		if err != nil && !errors.Is(err, errors.ErrCodeInvalidFormat) {
			t.Errorf("ValidateFormat(%q) code = %s, want INVALID_FORMAT", tt.format, errors.GetCode(err))
		}
	}

	if err := ValidateFormats(nil); err != nil {
		t.Errorf("empty formats should pass: %v", err)
	}
}

func TestOptionsValidate(t *testing.T) {
	spec := testSpec()
	tests := []struct {
		name string
		opts Options
		code errors.Code
	}{
		{"no input", Options{}, errors.ErrCodeInvalidInput},
		{"two inputs", Options{Spec: spec, Path: "a.json"}, errors.ErrCodeInvalidInput},
		{"bad source", Options{Path: "a.json", Source: "csv"}, errors.ErrCodeInvalidInput},
		{"bad extension", Options{Path: "a.txt"}, errors.ErrCodeInvalidFormat},
		{"bad primary", Options{Spec: spec, Primary: "quantum"}, errors.ErrCodeInvalidInput},
		{"bad format", Options{Spec: spec, Formats: []string{"png"}}, errors.ErrCodeInvalidFormat},
		{"spec", Options{Spec: spec}, ""},
		{"path", Options{Path: "a.yaml", Source: SourceGraph}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.Validate()
			if tt.code == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.code) {
				t.Errorf("Validate() = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestOptionsDefaults(t *testing.T) {
	opts := Options{Spec: testSpec()}
	if err := opts.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if opts.Source != SourceSpec {
		t.Errorf("Source = %q, want spec", opts.Source)
	}
	if len(opts.Formats) != 1 || opts.Formats[0] != DefaultFormat {
		t.Errorf("Formats = %v, want [%s]", opts.Formats, DefaultFormat)
	}
	if opts.Canvas != layout.DefaultCanvas() {
		t.Errorf("Canvas = %+v, want default", opts.Canvas)
	}
	if opts.Logger == nil {
		t.Error("Logger should default to a discard logger")
	}

	g := Options{Graph: testGraph()}
	if err := g.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if g.Source != SourceGraph {
		t.Errorf("Source = %q, want graph", g.Source)
	}
}

func TestExecuteSpec(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t)

	opts := Options{Spec: testSpec(), Formats: []string{FormatJSON, FormatMarkdown, FormatHTML}}
	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CacheInfo.PlanHit || res.CacheInfo.ResultHit {
		t.Errorf("first run CacheInfo = %+v, want misses", res.CacheInfo)
	}
	if res.Run == nil || !res.Run.Success {
		t.Fatalf("Run = %+v, want success", res.Run)
	}
	if res.Run.Backend != solver.KindHeuristic {
		t.Errorf("Backend = %s, want heuristic", res.Run.Backend)
	}
	if len(res.Run.Plan.Positions) != 3 {
		t.Errorf("positions = %d, want 3", len(res.Run.Plan.Positions))
	}
	if res.Stats.Entities != 3 || res.Stats.Attempts != 1 {
		t.Errorf("Stats = %+v", res.Stats)
	}
	if res.InputHash == "" {
		t.Error("InputHash should be set")
	}

	var doc orchestrator.Result
	if err := json.Unmarshal(res.Artifacts[FormatJSON], &doc); err != nil {
		t.Fatalf("json artifact: %v", err)
	}
	if doc.ID != res.Run.ID {
		t.Errorf("json artifact id = %q, want %q", doc.ID, res.Run.ID)
	}
	if !bytes.Contains(res.Artifacts[FormatMarkdown], []byte("## Orchestration")) {
		t.Errorf("markdown artifact lacks the orchestration section:\n%s", res.Artifacts[FormatMarkdown])
	}
	if !bytes.Contains(res.Artifacts[FormatHTML], []byte("<title>Layout plan: mechanics</title>")) {
		t.Errorf("html artifact lacks its title:\n%s", res.Artifacts[FormatHTML])
	}

	// Same input: both stages come from cache.
	again, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !again.CacheInfo.PlanHit || !again.CacheInfo.ResultHit {
		t.Errorf("second run CacheInfo = %+v, want hits", again.CacheInfo)
	}
	if again.Plan.ID != res.Plan.ID || again.Run.ID != res.Run.ID {
		t.Error("cached run should return the stored plan and result")
	}

	// Refresh bypasses reads.
	opts.Refresh = true
	fresh, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if fresh.CacheInfo.PlanHit || fresh.CacheInfo.ResultHit {
		t.Errorf("refresh CacheInfo = %+v, want misses", fresh.CacheInfo)
	}
	if fresh.Plan.ID == res.Plan.ID {
		t.Error("refresh should build a new plan")
	}
}

func TestExecuteGraph(t *testing.T) {
	r := newRunner(t)
	res, err := r.Execute(context.Background(), Options{Graph: testGraph(), NoSolve: true})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got := strings.Join(res.Plan.Entities, ","); got != "b,r,s" {
		t.Errorf("entities = %s, want b,r,s", got)
	}
	if !res.Plan.HasConstraint(layout.TypeClosedLoop) {
		t.Error("looped circuit should get a closed-loop constraint")
	}
	if res.Run != nil {
		t.Error("NoSolve should skip orchestration")
	}
	if !bytes.Contains(res.Artifacts[FormatJSON], []byte(`"strategy"`)) {
		t.Error("json artifact should carry the plan when solving is skipped")
	}
}

func TestExecutePath(t *testing.T) {
	dir := t.TempDir()
	specPath := filepath.Join(dir, "incline.yaml")
	spec := `domain: mechanics
objects:
  - id: block
    type: mass
  - id: ramp
    type: incline
relationships:
  - subject: block
    type: on
    target: ramp
`
	if err := os.WriteFile(specPath, []byte(spec), 0o644); err != nil {
		t.Fatal(err)
	}

	r := newRunner(t)
	res, err := r.Execute(context.Background(), Options{Path: specPath, Formats: []string{FormatYAML}})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Plan.Domain != "mechanics" || len(res.Plan.Entities) != 2 {
		t.Errorf("plan = %s %v", res.Plan.Domain, res.Plan.Entities)
	}
	if !bytes.Contains(res.Artifacts[FormatYAML], []byte("backend: heuristic")) {
		t.Errorf("yaml artifact:\n%s", res.Artifacts[FormatYAML])
	}

	_, err = r.Execute(context.Background(), Options{Path: filepath.Join(dir, "missing.json")})
	if !errors.Is(err, errors.ErrCodeFileNotFound) {
		t.Errorf("missing file error = %v, want FILE_NOT_FOUND", err)
	}
}

func TestExecuteErrors(t *testing.T) {
	r := newRunner(t)
	ctx := context.Background()

	_, err := r.Execute(ctx, Options{Spec: &problem.Spec{Domain: "optics"}})
	if !errors.Is(err, errors.ErrCodeEmptySpec) {
		t.Errorf("empty spec error = %v, want EMPTY_SPEC", err)
	}

	_, err = r.Execute(ctx, Options{Graph: &graph.Graph{}})
	if !errors.Is(err, errors.ErrCodeEmptySpec) {
		t.Errorf("empty graph error = %v, want EMPTY_SPEC", err)
	}

	noOrch := NewRunner(nil, nil, nil, discard())
	if _, err := noOrch.Execute(ctx, Options{Spec: testSpec()}); err == nil {
		t.Error("solving without an orchestrator should fail")
	}
}

func TestPrimaryOverride(t *testing.T) {
	r := newRunner(t)
	res, err := r.Execute(context.Background(), Options{Spec: testSpec(), Primary: string(solver.KindFallback)})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.Run.Backend != solver.KindFallback || res.Run.FallbackUsed {
		t.Errorf("Backend = %s FallbackUsed = %v, want fallback false", res.Run.Backend, res.Run.FallbackUsed)
	}
	if res.Run.Primary() != solver.KindFallback {
		t.Errorf("Primary = %s, want fallback", res.Run.Primary())
	}
}

type recordingSink struct {
	name string
	err  error

	mu  sync.Mutex
	ids []string
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Accept(_ context.Context, res *orchestrator.Result) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ids = append(s.ids, res.ID)
	return s.err
}

func TestSinks(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t)
	ok := &recordingSink{name: "ok"}
	broken := &recordingSink{name: "broken", err: fmt.Errorf("broker down")}
	r.Sinks = []Sink{broken, ok}

	opts := Options{Spec: testSpec()}
	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("a failing sink must not fail the run: %v", err)
	}
	if len(ok.ids) != 1 || ok.ids[0] != res.Run.ID {
		t.Errorf("ok sink got %v, want [%s]", ok.ids, res.Run.ID)
	}
	if len(broken.ids) != 1 {
		t.Errorf("broken sink got %d results, want 1", len(broken.ids))
	}

	// Cached results are not delivered again.
	if _, err := r.Execute(ctx, opts); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(ok.ids) != 1 {
		t.Errorf("ok sink got %d results after a cache hit, want 1", len(ok.ids))
	}
}

func TestCorruptCacheEntry(t *testing.T) {
	ctx := context.Background()
	r := newRunner(t)
	opts := Options{Spec: testSpec(), NoSolve: true}
	if err := opts.Validate(); err != nil {
		t.Fatal(err)
	}
	in, _ := Load(opts)
	hash, _ := in.Hash()
	key := r.Keyer.PlanKey(hash, opts.PlanKeyOpts())
	if err := r.Cache.Set(ctx, key, []byte("{not json"), 0); err != nil {
		t.Fatal(err)
	}

	res, err := r.Execute(ctx, opts)
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if res.CacheInfo.PlanHit {
		t.Error("corrupt entry should count as a miss")
	}
}

func TestRender(t *testing.T) {
	if _, err := Render(nil, nil, []string{FormatJSON}); err == nil {
		t.Error("rendering nothing should fail")
	}

	r := newRunner(t)
	res, err := r.Execute(context.Background(), Options{Spec: testSpec(), NoSolve: true})
	if err != nil {
		t.Fatal(err)
	}
	out, err := Render(res.Plan, nil, []string{FormatMarkdown, FormatYAML})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if len(out) != 2 {
		t.Errorf("Render returned %d artifacts, want 2", len(out))
	}
	if bytes.Contains(out[FormatMarkdown], []byte("## Orchestration")) {
		t.Error("plan-only report should not have an orchestration section")
	}
}

// =============================================================================
// Helpers
// =============================================================================

func newRunner(t *testing.T) *Runner {
	t.Helper()
	fc, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	orch, err := orchestrator.New(context.Background(), orchestrator.Options{
		Registry: solver.NewRegistryWith(solver.Options{}),
	})
	if err != nil {
		t.Fatalf("orchestrator.New: %v", err)
	}
	r := NewRunner(fc, nil, orch, discard())
	t.Cleanup(func() { r.Close() })
	return r
}

func testSpec() *problem.Spec {
	return &problem.Spec{
		Domain: "mechanics",
		Objects: []problem.Object{
			{ID: "block", Type: "mass"},
			{ID: "ramp", Type: "incline"},
			{ID: "pulley", Type: "pulley"},
		},
		Relationships: []problem.Relationship{
			{Subject: "block", Type: "on", Target: "ramp"},
		},
	}
}

func testGraph() *graph.Graph {
	return &graph.Graph{
		Domain: "current electricity",
		Nodes: []graph.Node{
			{ID: "b", Label: "battery"},
			{ID: "r", Label: "resistor"},
			{ID: "s", Label: "switch"},
		},
		Edges: []graph.Edge{
			{From: "b", To: "r", Type: "wire"},
			{From: "r", To: "s", Type: "wire"},
			{From: "s", To: "b", Type: "wire"},
		},
	}
}

func discard() *log.Logger { return log.New(io.Discard) }
