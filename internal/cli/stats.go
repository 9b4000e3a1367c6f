package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// statsCommand shows per-back-end performance from the attempt history.
func (c *CLI) statsCommand() *cobra.Command {
	var reset bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show solver back-end performance",
		Long: `Show success rate and average solve time per back-end.

Records come from the attempt history database (store.dsn). Without one
configured there is nothing persisted between runs and every record is zero.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			svc, err := c.newServices(ctx, serviceOpts{noCache: true})
			if err != nil {
				return err
			}
			defer svc.Close()

			orch := svc.runner.Orchestrator
			if svc.history == nil {
				printInfo("No attempt history configured (set store.dsn or STEMPLAN_STORE_DSN)")
			}

			if reset {
				orch.Reset()
				var deleted int64
				if svc.history != nil {
					if deleted, err = svc.history.Reset(ctx); err != nil {
						return err
					}
				}
				printSuccess("Reset performance records")
				printDetail("%d attempts deleted", deleted)
				return nil
			}

			fmt.Println(performanceTable(orch.Performance(), orch.Registry().Availability()))
			return nil
		},
	}
	cmd.Flags().BoolVar(&reset, "reset", false, "zero all records and delete the attempt history")
	return cmd
}
