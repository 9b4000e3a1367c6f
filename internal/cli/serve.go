package cli

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stemplan/pkg/observability"
	"github.com/matzehuels/stemplan/pkg/server"
)

// serveCommand runs the HTTP API until interrupted.
func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr    string
		noCache bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Run the planning HTTP API with Prometheus metrics on /metrics.

Results of successful runs are delivered to the configured archive and
MQTT sinks. Performance records persist in the attempt history when
store.dsn is set.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg, err := c.config()
			if err != nil {
				return err
			}

			svc, err := c.newServices(ctx, serviceOpts{noCache: noCache, sinks: true})
			if err != nil {
				return err
			}
			defer svc.Close()

			observability.SetAll(observability.NewPrometheusHooks(prometheus.DefaultRegisterer))
			defer observability.Reset()

			opts := server.Options{
				Addr:   orDefault(addr, cfg.Server.Addr),
				Runner: svc.runner,
				Logger: c.Logger,
			}
			if svc.history != nil {
				opts.History = svc.history
			}
			srv := server.New(opts)

			printInfo("Listening on %s", StyleHighlight.Render(srv.Addr()))
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "disable the plan and result cache")
	return cmd
}
