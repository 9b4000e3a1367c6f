package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/stemplan/pkg/errors"
	stio "github.com/matzehuels/stemplan/pkg/io"
	"github.com/matzehuels/stemplan/pkg/pipeline"
	"github.com/matzehuels/stemplan/pkg/plan"
)

// inspectCommand browses the planning log of a plan file.
func (c *CLI) inspectCommand() *cobra.Command {
	var plain bool
	cmd := &cobra.Command{
		Use:   "inspect <plan|spec>",
		Short: "Browse a plan's planning log",
		Long: `Browse the planning log of a plan file interactively.

If the file is a problem spec rather than a plan, it is planned first.
With --plain, or when stdout is not a terminal, the log is printed as a
table instead.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pl, err := c.loadOrPlan(cmd, args[0])
			if err != nil {
				return err
			}
			m := NewStepListModel(pl)
			if plain || !isTerminal(os.Stdout) {
				m.Height = max(len(pl.Log), 1)
				m.Detail = false
				fmt.Fprintln(cmd.OutOrStdout(), m.View())
				return nil
			}
			_, err = tea.NewProgram(m, tea.WithContext(cmd.Context())).Run()
			return err
		},
	}
	cmd.Flags().BoolVar(&plain, "plain", false, "print the log without the interactive browser")
	return cmd
}

// loadOrPlan reads path as a plan, planning it as a spec when it has no log.
func (c *CLI) loadOrPlan(cmd *cobra.Command, path string) (*plan.Plan, error) {
	if err := errors.ValidateSpecPath(path); err != nil {
		return nil, err
	}
	pl, err := stio.LoadPlan(path)
	if err == nil && len(pl.Log) > 0 {
		return pl, nil
	}
	if errors.Is(err, errors.ErrCodeFileNotFound) {
		return nil, err
	}
	c.Logger.Debug("not a plan, planning as spec", "path", path)

	cfg, err := c.config()
	if err != nil {
		return nil, err
	}
	svc, err := c.newServices(cmd.Context(), serviceOpts{})
	if err != nil {
		return nil, err
	}
	defer svc.Close()
	res, err := svc.runner.Execute(cmd.Context(), pipeline.Options{
		Path:    path,
		Canvas:  cfg.Canvas.Layout(),
		NoSolve: true,
	})
	if err != nil {
		return nil, err
	}
	return res.Plan, nil
}
