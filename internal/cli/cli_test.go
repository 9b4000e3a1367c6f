package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/matzehuels/stemplan/pkg/cache"
	"github.com/matzehuels/stemplan/pkg/errors"
	stio "github.com/matzehuels/stemplan/pkg/io"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
	"github.com/matzehuels/stemplan/pkg/pipeline"
)

const inclineSpec = `domain: mechanics
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

const circuitGraph = `{
  "domain": "current electricity",
  "nodes": [
    {"id": "b", "label": "battery"},
    {"id": "r", "label": "resistor"},
    {"id": "s", "label": "switch"}
  ],
  "edges": [
    {"from": "b", "to": "r", "type": "wire"},
    {"from": "r", "to": "s", "type": "wire"},
    {"from": "s", "to": "b", "type": "wire"}
  ]
}`

// isolate points configuration and cache at temporary directories.
func isolate(t *testing.T) (dir, cacheDir string) {
	t.Helper()
	dir = t.TempDir()
	cacheDir = filepath.Join(dir, "cache")
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("STEMPLAN_CACHE_DIR", cacheDir)
	t.Setenv("STEMPLAN_CACHE_BACKEND", cache.BackendFile)
	t.Setenv("STEMPLAN_CACHE_PREFIX", "")
	t.Setenv("STEMPLAN_STORE_DSN", "")
	t.Setenv("STEMPLAN_ARCHIVE_MONGO_URI", "")
	t.Setenv("STEMPLAN_NOTIFY_MQTT_URL", "")
	return dir, cacheDir
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

// execute runs the root command and returns what it wrote to its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	c := New(io.Discard, LogInfo)
	root := c.RootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestPlanCommand(t *testing.T) {
	dir, _ := isolate(t)
	spec := writeFile(t, dir, "incline.yaml", inclineSpec)

	if _, err := execute(t, "plan", spec, "-f", "json,md"); err != nil {
		t.Fatalf("plan: %v", err)
	}

	pl, err := stio.LoadPlan(filepath.Join(dir, "incline.plan.json"))
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if pl.Domain != "mechanics" || len(pl.Entities) != 2 {
		t.Errorf("plan = %s %v, want mechanics with 2 entities", pl.Domain, pl.Entities)
	}
	if len(pl.Positions) != 0 {
		t.Errorf("plan command should not solve, got positions %v", pl.Positions)
	}
	md, err := os.ReadFile(filepath.Join(dir, "incline.plan.md"))
	if err != nil {
		t.Fatalf("markdown artifact: %v", err)
	}
	if !bytes.Contains(md, []byte("mechanics")) {
		t.Errorf("markdown does not mention the domain:\n%s", md)
	}
}

func TestPlanCommandCanvasFlags(t *testing.T) {
	dir, _ := isolate(t)
	spec := writeFile(t, dir, "incline.yaml", inclineSpec)
	out := filepath.Join(dir, "custom.json")

	if _, err := execute(t, "plan", spec, "--width", "1024", "--height", "768", "-o", out, "--no-cache"); err != nil {
		t.Fatalf("plan: %v", err)
	}
	pl, err := stio.LoadPlan(out)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if pl.Canvas.Width != 1024 || pl.Canvas.Height != 768 {
		t.Errorf("canvas = %+v, want 1024x768", pl.Canvas)
	}
}

func TestRunCommand(t *testing.T) {
	dir, cacheDir := isolate(t)
	spec := writeFile(t, dir, "incline.yaml", inclineSpec)
	out := filepath.Join(dir, "result.json")

	if _, err := execute(t, "run", spec, "--primary", "fallback", "-o", out); err != nil {
		t.Fatalf("run: %v", err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	var res orchestrator.Result
	if err := json.Unmarshal(data, &res); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if !res.Success || res.Backend != "fallback" {
		t.Errorf("result = %v on %s, want success on fallback", res.Success, res.Backend)
	}
	if res.Plan == nil || len(res.Plan.Positions) != 2 {
		t.Errorf("result plan should carry 2 positions")
	}

	fc, err := cache.NewFileCache(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	defer fc.Close()
	info, err := fc.Info()
	if err != nil {
		t.Fatal(err)
	}
	if info.Entries != 2 {
		t.Errorf("cache entries = %d, want plan and result", info.Entries)
	}
}

func TestServicesCachePrefix(t *testing.T) {
	tests := []struct {
		name   string
		prefix string
	}{
		{"unscoped", ""},
		{"scoped", "team-a:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			isolate(t)
			t.Setenv("STEMPLAN_CACHE_PREFIX", tt.prefix)
			svc, err := New(io.Discard, LogInfo).newServices(context.Background(), serviceOpts{})
			if err != nil {
				t.Fatalf("newServices: %v", err)
			}
			defer svc.Close()

			key := svc.runner.Keyer.ResultKey("abc", cache.ResultKeyOpts{})
			if got := strings.HasPrefix(key, "team-a:"); got != (tt.prefix != "") {
				t.Errorf("result key %q, prefix %q", key, tt.prefix)
			}
		})
	}
}

func TestGraphCommand(t *testing.T) {
	dir, _ := isolate(t)
	g := writeFile(t, dir, "circuit.json", circuitGraph)

	if _, err := execute(t, "graph", g, "-f", "yaml", "--no-cache"); err != nil {
		t.Fatalf("graph: %v", err)
	}
	pl, err := stio.LoadPlan(filepath.Join(dir, "circuit.plan.yaml"))
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if !slices.Equal(pl.Entities, []string{"b", "r", "s"}) {
		t.Errorf("entities = %v", pl.Entities)
	}
	if !pl.HasConstraint(layout.TypeClosedLoop) {
		t.Error("graph plan missing closed_loop")
	}
}

func TestCommandErrors(t *testing.T) {
	dir, _ := isolate(t)
	spec := writeFile(t, dir, "incline.yaml", inclineSpec)

	tests := []struct {
		name string
		args []string
		code errors.Code
	}{
		{"missing file", []string{"plan", filepath.Join(dir, "nope.json")}, errors.ErrCodeFileNotFound},
		{"bad extension", []string{"plan", filepath.Join(dir, "spec.txt")}, errors.ErrCodeInvalidFormat},
		{"bad format", []string{"plan", spec, "-f", "svg"}, errors.ErrCodeInvalidFormat},
		{"bad primary", []string{"run", spec, "--primary", "quantum"}, errors.ErrCodeInvalidInput},
		{"missing config", []string{"plan", spec, "--config", filepath.Join(dir, "none.toml")}, errors.ErrCodeFileNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := execute(t, tt.args...)
			if !errors.Is(err, tt.code) {
				t.Errorf("err = %v, want %s", err, tt.code)
			}
		})
	}
}

func TestInspectPlain(t *testing.T) {
	dir, _ := isolate(t)
	spec := writeFile(t, dir, "incline.yaml", inclineSpec)

	// A spec is planned on the fly.
	out, err := execute(t, "inspect", spec, "--plain")
	if err != nil {
		t.Fatalf("inspect spec: %v", err)
	}
	if !strings.Contains(out, "Planning log: mechanics") {
		t.Errorf("output missing title:\n%s", out)
	}

	if _, err := execute(t, "plan", spec); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "inspect", filepath.Join(dir, "incline.plan.json"), "--plain")
	if err != nil {
		t.Fatalf("inspect plan: %v", err)
	}
	if !strings.Contains(out, "complexity") {
		t.Errorf("output missing plan summary:\n%s", out)
	}
}

func TestStatsWithHistory(t *testing.T) {
	dir, _ := isolate(t)
	t.Setenv("STEMPLAN_STORE_DSN", "sqlite://"+filepath.Join(dir, "history.db"))
	spec := writeFile(t, dir, "incline.yaml", inclineSpec)

	if _, err := execute(t, "run", spec, "--primary", "heuristic", "--no-cache"); err != nil {
		t.Fatalf("run: %v", err)
	}
	if _, err := execute(t, "stats"); err != nil {
		t.Fatalf("stats: %v", err)
	}
	if _, err := execute(t, "stats", "--reset"); err != nil {
		t.Fatalf("stats --reset: %v", err)
	}
}

func TestCacheCommands(t *testing.T) {
	dir, cacheDir := isolate(t)
	spec := writeFile(t, dir, "incline.yaml", inclineSpec)

	out, err := execute(t, "cache", "path")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != cacheDir {
		t.Errorf("cache path = %q, want %q", out, cacheDir)
	}

	if _, err := execute(t, "plan", spec); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "cache", "info"); err != nil {
		t.Fatalf("cache info: %v", err)
	}
	if _, err := execute(t, "cache", "clear"); err != nil {
		t.Fatalf("cache clear: %v", err)
	}

	fc, err := cache.NewFileCache(cacheDir)
	if err != nil {
		t.Fatal(err)
	}
	defer fc.Close()
	if info, _ := fc.Info(); info.Entries != 0 {
		t.Errorf("entries after clear = %d", info.Entries)
	}
}

func TestConfigCommands(t *testing.T) {
	isolate(t)
	t.Setenv("STEMPLAN_SERVER_ADDR", ":9999")

	out, err := execute(t, "config", "show")
	if err != nil {
		t.Fatalf("config show: %v", err)
	}
	if !strings.Contains(out, `addr = ":9999"`) {
		t.Errorf("config show does not reflect the environment:\n%s", out)
	}

	out, err = execute(t, "config", "env")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "STEMPLAN_CACHE_TTL") {
		t.Errorf("config env missing STEMPLAN_CACHE_TTL:\n%s", out)
	}

	t.Setenv("STEMPLAN_CACHE_BACKEND", "memcached")
	if _, err := execute(t, "config", "check"); !errors.Is(err, errors.ErrCodeInvalidConfig) {
		t.Errorf("check with bad backend = %v, want INVALID_CONFIG", err)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "version:") {
		t.Errorf("version output = %q", out)
	}
}

func TestWriteArtifacts(t *testing.T) {
	artifacts := map[string][]byte{
		pipeline.FormatJSON:     []byte("{}"),
		pipeline.FormatMarkdown: []byte("# plan"),
	}

	tests := []struct {
		name      string
		artifacts map[string][]byte
		output    func(dir string) string
		want      func(dir string) []string
	}{
		{
			name:      "next to input",
			artifacts: artifacts,
			output:    func(string) string { return "" },
			want: func(dir string) []string {
				return []string{filepath.Join(dir, "spec.plan.json"), filepath.Join(dir, "spec.plan.md")}
			},
		},
		{
			name:      "into directory",
			artifacts: artifacts,
			output:    func(dir string) string { return filepath.Join(dir, "out") + string(os.PathSeparator) },
			want: func(dir string) []string {
				return []string{filepath.Join(dir, "out", "spec.plan.json"), filepath.Join(dir, "out", "spec.plan.md")}
			},
		},
		{
			name:      "single file",
			artifacts: map[string][]byte{pipeline.FormatJSON: []byte("{}")},
			output:    func(dir string) string { return filepath.Join(dir, "result.json") },
			want:      func(dir string) []string { return []string{filepath.Join(dir, "result.json")} },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			got, err := writeArtifacts(tt.artifacts, filepath.Join(dir, "spec.yaml"), tt.output(dir))
			if err != nil {
				t.Fatalf("writeArtifacts: %v", err)
			}
			if want := tt.want(dir); !slices.Equal(got, want) {
				t.Errorf("paths = %v, want %v", got, want)
			}
			for _, p := range got {
				if _, err := os.Stat(p); err != nil {
					t.Errorf("missing %s", p)
				}
			}
		})
	}
}

func TestParseFormats(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"", []string{"json"}},
		{"yaml", []string{"yaml"}},
		{"json, md ,html", []string{"json", "md", "html"}},
	}
	for _, tt := range tests {
		if got := parseFormats(tt.in); !slices.Equal(got, tt.want) {
			t.Errorf("parseFormats(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
