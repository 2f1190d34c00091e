package cli

import (
	"fmt"
	"time"

	"github.com/money-god/mgl-governance/internal/cli/render"
	"github.com/spf13/cobra"
)

// NewChainCmd creates the chain command group
func NewChainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chain",
		Short: "Inspect and advance the simulated chain",
		Long: `The engine runs on a simulated chain with two clocks: the block number
drives voting windows and the timestamp drives timelock etas.`,
	}

	cmd.AddCommand(newChainStatusCmd(), newChainAdvanceCmd())

	return cmd
}

func newChainStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the chain head",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			head := app.Clock.Head()
			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), head)
			}
			return render.RenderHead(cmd.OutOrStdout(), head)
		},
	}
}

func newChainAdvanceCmd() *cobra.Command {
	var blocks uint64
	var elapsed time.Duration

	cmd := &cobra.Command{
		Use:   "advance",
		Short: "Mine blocks and move time forward",
		Example: `  # Close a voting period
  mgl chain advance --blocks 17280

  # Pass the timelock delay
  mgl chain advance --blocks 1 --time 48h`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			if blocks == 0 && elapsed == 0 {
				return fmt.Errorf("nothing to advance: set --blocks or --time")
			}

			head, err := app.Clock.Advance(blocks, elapsed)
			if err != nil {
				return err
			}
			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), head)
			}
			return render.RenderHead(cmd.OutOrStdout(), head)
		},
	}

	cmd.Flags().Uint64Var(&blocks, "blocks", 0, "Blocks to mine")
	cmd.Flags().DurationVar(&elapsed, "time", 0, "Time to pass")

	return cmd
}
