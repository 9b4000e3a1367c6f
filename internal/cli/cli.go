// Package cli implements the stemplan command-line interface.
//
// # Commands
//
//   - plan: build a layout plan from a problem spec
//   - run: plan a spec and orchestrate the solver back-ends
//   - graph: plan a property graph
//   - inspect: browse a plan's planning log interactively
//   - stats: show per-back-end performance from the attempt history
//   - serve: run the HTTP API
//   - cache: inspect or clear the plan cache
//   - config: validate and print the effective configuration
//   - version, completion
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging via
// charmbracelet/log. Configuration comes from --config or
// $XDG_CONFIG_HOME/stemplan/config.toml with STEMPLAN_* overrides.
package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stemplan/pkg/buildinfo"
	"github.com/matzehuels/stemplan/pkg/cache"
	"github.com/matzehuels/stemplan/pkg/config"
	"github.com/matzehuels/stemplan/pkg/notify/mqtt"
	"github.com/matzehuels/stemplan/pkg/orchestrator"
	"github.com/matzehuels/stemplan/pkg/pipeline"
	"github.com/matzehuels/stemplan/pkg/store/mongostore"
	"github.com/matzehuels/stemplan/pkg/store/sqlstore"
)

// =============================================================================
// Constants
// =============================================================================

// appName is the application name used for display.
const appName = "stemplan"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger     *log.Logger
	ConfigPath string

	cfg *config.Config
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   appName,
		Short: "Stemplan plans layouts for STEM diagrams",
		Long: `Stemplan turns structured STEM problem descriptions into layout plans:
it assesses complexity, decomposes the problem, formulates layout constraints
and places every object through a chain of solver back-ends with fallbacks.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().StringVar(&c.ConfigPath, "config", "", "config file (default "+config.Path()+")")

	// Register all subcommands
	root.AddCommand(c.planCommand())
	root.AddCommand(c.runCommand())
	root.AddCommand(c.graphCommand())
	root.AddCommand(c.inspectCommand())
	root.AddCommand(c.statsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.cacheCommand())
	root.AddCommand(c.configCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// versionCommand prints build information.
func (c *CLI) versionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), buildinfo.String())
		},
	}
}

// =============================================================================
// Configuration
// =============================================================================

// config loads the configuration once per process.
func (c *CLI) config() (*config.Config, error) {
	if c.cfg != nil {
		return c.cfg, nil
	}
	cfg, err := config.Load(c.ConfigPath)
	if err != nil {
		return nil, err
	}
	c.Logger.Debug("loaded config", "path", orDefault(c.ConfigPath, config.Path()))
	c.cfg = cfg
	return cfg, nil
}

// =============================================================================
// Runner Factory
// =============================================================================

// services bundles the collaborators a command needs and closes them.
type services struct {
	runner  *pipeline.Runner
	history *sqlstore.Store // nil without store.dsn
	closers []io.Closer
}

func (s *services) Close() error {
	var first error
	for i := len(s.closers) - 1; i >= 0; i-- {
		if err := s.closers[i].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// serviceOpts selects optional services.
type serviceOpts struct {
	noCache bool
	sinks   bool // connect the archive and MQTT sinks
}

// newServices wires cache, attempt history, orchestrator and sinks from
// the configuration. Unreachable optional services are logged and skipped.
func (c *CLI) newServices(ctx context.Context, so serviceOpts) (*services, error) {
	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	svc := &services{}

	cacheOpts := cfg.Cache.Options()
	if so.noCache {
		cacheOpts.Backend = cache.BackendNone
	}
	ch, err := cache.Open(ctx, cacheOpts)
	if err != nil {
		c.Logger.Warn("cache unavailable, continuing without", "backend", cacheOpts.Backend, "err", err)
		ch = cache.NewNullCache()
	}

	var recorder orchestrator.Recorder
	if cfg.Store.DSN != "" {
		st, err := sqlstore.Open(ctx, cfg.Store.DSN)
		if err != nil {
			ch.Close()
			return nil, err
		}
		svc.history = st
		svc.closers = append(svc.closers, st)
		recorder = st
	}

	orch, err := orchestrator.New(ctx, orchestrator.Options{
		Config:   cfg.Orchestrator,
		Recorder: recorder,
		Logger:   c.Logger,
	})
	if err != nil {
		svc.Close()
		ch.Close()
		return nil, err
	}
	if svc.history != nil {
		records, err := svc.history.Performance(ctx)
		if err != nil {
			c.Logger.Warn("could not restore performance history", "err", err)
		} else {
			orch.Restore(records)
		}
	}

	runner := pipeline.NewRunner(ch, cfg.Cache.Keyer(), orch, c.Logger)
	runner.PlanTTL = cfg.Cache.TTL.Duration
	svc.runner = runner
	svc.closers = append(svc.closers, runner)

	if so.sinks {
		c.connectSinks(ctx, cfg, svc)
	}
	return svc, nil
}

// connectSinks attaches the archive and MQTT sinks that are configured.
func (c *CLI) connectSinks(ctx context.Context, cfg *config.Config, svc *services) {
	if cfg.Archive.MongoURI != "" {
		a, err := mongostore.Connect(ctx, cfg.Archive.MongoURI, cfg.Archive.Database)
		if err != nil {
			c.Logger.Warn("result archive unavailable", "err", err)
		} else {
			svc.runner.Sinks = append(svc.runner.Sinks, a)
			svc.closers = append(svc.closers, a)
		}
	}
	if cfg.Notify.MQTTURL != "" {
		p, err := mqtt.Connect(mqtt.Options{
			BrokerURL: cfg.Notify.MQTTURL,
			ClientID:  cfg.Notify.ClientID,
			Topic:     cfg.Notify.Topic,
		})
		if err != nil {
			c.Logger.Warn("mqtt notifications unavailable", "err", err)
		} else {
			svc.runner.Sinks = append(svc.runner.Sinks, p)
			svc.closers = append(svc.closers, p)
		}
	}
}

// =============================================================================
// Helpers
// =============================================================================

// parseFormats parses a comma-separated format string into a slice.
func parseFormats(s string) []string {
	if s == "" {
		return []string{pipeline.FormatJSON}
	}
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
