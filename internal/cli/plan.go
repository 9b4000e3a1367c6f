package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/matzehuels/stemplan/pkg/errors"
	"github.com/matzehuels/stemplan/pkg/layout"
	"github.com/matzehuels/stemplan/pkg/pipeline"
	"github.com/matzehuels/stemplan/pkg/solver"
)

// planFlags holds the flags shared by plan, run and graph.
type planFlags struct {
	formats string
	output  string
	noCache bool
	refresh bool
	width   float64
	height  float64
	margin  float64
}

func (f *planFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.formats, "format", "f", "", "output formats: json, yaml, md, html (comma-separated)")
	cmd.Flags().StringVarP(&f.output, "output", "o", "", "output file (single format) or directory")
	cmd.Flags().BoolVar(&f.noCache, "no-cache", false, "disable the plan and result cache")
	cmd.Flags().BoolVar(&f.refresh, "refresh", false, "ignore cached entries and recompute")
	cmd.Flags().Float64Var(&f.width, "width", 0, "canvas width (default from config)")
	cmd.Flags().Float64Var(&f.height, "height", 0, "canvas height (default from config)")
	cmd.Flags().Float64Var(&f.margin, "margin", 0, "canvas margin (default from config)")
}

// canvas overlays the flag values on the configured canvas.
func (f *planFlags) canvas(base layout.Canvas) layout.Canvas {
	if f.width > 0 {
		base.Width = f.width
	}
	if f.height > 0 {
		base.Height = f.height
	}
	if f.margin > 0 {
		base.Margin = f.margin
	}
	return base
}

// planCommand builds a plan from a spec file without solving it.
func (c *CLI) planCommand() *cobra.Command {
	var flags planFlags
	cmd := &cobra.Command{
		Use:   "plan <spec>",
		Short: "Build a layout plan from a problem spec",
		Long: `Build a layout plan from a problem spec (JSON, YAML or TOML).

The plan carries the complexity score, the decomposition strategy, the
layout constraints, style hints and the planning log. No solver runs.`,
		Example: `  stemplan plan circuit.yaml
  stemplan plan incline.json -f json,md -o out/`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPipeline(cmd.Context(), args[0], pipeline.SourceSpec, true, "", &flags)
		},
	}
	flags.register(cmd)
	return cmd
}

// runCommand plans a spec and orchestrates the solver back-ends.
func (c *CLI) runCommand() *cobra.Command {
	var (
		flags   planFlags
		primary string
	)
	cmd := &cobra.Command{
		Use:   "run <spec>",
		Short: "Plan a spec and solve it with fallbacks",
		Long: `Plan a problem spec, then place every object through the solver
back-ends. The primary back-end is chosen from the complexity score and the
domain unless --primary is given; failures fall through the chain to the
deterministic fallback.`,
		Example: `  stemplan run pulley.yaml
  stemplan run pulley.yaml --primary geometry -f json,html`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPipeline(cmd.Context(), args[0], pipeline.SourceSpec, false, primary, &flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&primary, "primary", "", "force the primary back-end ("+kindList()+")")
	return cmd
}

// graphCommand plans a property graph.
func (c *CLI) graphCommand() *cobra.Command {
	var (
		flags planFlags
		solve bool
	)
	cmd := &cobra.Command{
		Use:   "graph <graph>",
		Short: "Plan a property graph",
		Long: `Plan a property graph (nodes and typed edges). Connectivity rules such
as closed_loop and series/parallel are derived from the edges and positions
are dispatched to a solver back-end. With --solve the plan is orchestrated
afterwards as well.`,
		Example: `  stemplan graph circuit.graph.json
  stemplan graph circuit.graph.json --solve -f md`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runPipeline(cmd.Context(), args[0], pipeline.SourceGraph, !solve, "", &flags)
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&solve, "solve", false, "orchestrate the plan after building it")
	return cmd
}

// runPipeline executes the pipeline for one input file and writes the artifacts.
func (c *CLI) runPipeline(ctx context.Context, path, source string, noSolve bool, primary string, flags *planFlags) error {
	cfg, err := c.config()
	if err != nil {
		return err
	}
	if err := errors.ValidateSpecPath(path); err != nil {
		return err
	}

	svc, err := c.newServices(ctx, serviceOpts{noCache: flags.noCache, sinks: !noSolve})
	if err != nil {
		return err
	}
	defer svc.Close()

	opts := pipeline.Options{
		Path:    path,
		Source:  source,
		Canvas:  flags.canvas(cfg.Canvas.Layout()),
		Primary: primary,
		Formats: parseFormats(flags.formats),
		Refresh: flags.refresh,
		NoSolve: noSolve,
	}

	verb := "Planning"
	if !noSolve {
		verb = "Solving"
	}
	spinner := newSpinner(ctx, os.Stderr, fmt.Sprintf("%s %s...", verb, filepath.Base(path)))
	spinner.Start()
	prog := newProgress(c.Logger)
	res, err := svc.runner.Execute(ctx, opts)
	if err != nil {
		spinner.StopWithError(errors.UserMessage(err))
		return err
	}
	spinner.Stop()
	prog.done(fmt.Sprintf("Planned %d entities", res.Stats.Entities))

	paths, err := writeArtifacts(res.Artifacts, path, flags.output)
	if err != nil {
		return err
	}

	switch {
	case res.Run == nil:
		printSuccess("Plan %s (%s, complexity %.1f)", StyleHighlight.Render(shortID(res.Plan.ID)), res.Plan.Strategy, res.Plan.Complexity)
		fmt.Println(statsLine(res.Stats.Entities, res.Stats.Constraints, 0, res.CacheInfo.PlanHit))
	case res.Run.Success:
		printSuccess("Solved with %s%s", StyleHighlight.Render(string(res.Run.Backend)), fallbackNote(res.Run.FallbackUsed))
		fmt.Println(statsLine(res.Stats.Entities, res.Stats.Constraints, res.Stats.Attempts, res.CacheInfo.ResultHit))
	default:
		printWarning("No back-end placed every object")
		fmt.Println(statsLine(res.Stats.Entities, res.Stats.Constraints, res.Stats.Attempts, res.CacheInfo.ResultHit))
		fmt.Println(attemptsTable(res.Run))
	}
	for _, p := range paths {
		printFile(p)
	}

	if res.Run == nil && source == pipeline.SourceSpec {
		printNewline()
		printNextStep("Solve it", "stemplan run "+path)
	}
	return nil
}

func fallbackNote(used bool) string {
	if used {
		return StyleDim.Render(" (fallback)")
	}
	return ""
}

// writeArtifacts writes each rendered format and returns the paths in
// format order. With one format, output may name the file directly; with
// several it names a directory. Without output, files go next to the input
// as <name>.plan.<ext>.
func writeArtifacts(artifacts map[string][]byte, input, output string) ([]string, error) {
	formats := make([]string, 0, len(artifacts))
	for f := range artifacts {
		formats = append(formats, f)
	}
	sort.Strings(formats)

	single := len(formats) == 1 && output != "" && !isDir(output)
	var paths []string
	for _, format := range formats {
		var dst string
		if single {
			dst = output
		} else {
			dst = artifactPath(input, output, format)
		}
		if dir := filepath.Dir(dst); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return paths, fmt.Errorf("create output dir: %w", err)
			}
		}
		if err := os.WriteFile(dst, artifacts[format], 0o644); err != nil {
			return paths, fmt.Errorf("write %s: %w", dst, err)
		}
		paths = append(paths, dst)
	}
	return paths, nil
}

// artifactPath returns <dir>/<input stem>.plan.<format>.
func artifactPath(input, dir, format string) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	if dir == "" {
		dir = filepath.Dir(input)
	}
	return filepath.Join(dir, stem+".plan."+format)
}

func isDir(path string) bool {
	if strings.HasSuffix(path, string(os.PathSeparator)) {
		return true
	}
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func kindList() string {
	names := make([]string, len(solver.Kinds))
	for i, k := range solver.Kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
