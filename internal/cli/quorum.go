package cli

import (
	"fmt"
	"strconv"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/cli/render"
	"github.com/spf13/cobra"
)

// NewQuorumCmd creates the quorum command
func NewQuorumCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "quorum",
		Short: "Show the governed quorum",
		Long: `Show the quorum fraction, in thousandths of circulating supply, and the
participation it currently requires.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			pct, err := app.Governor.QuorumPercentage(cmd.Context())
			if err != nil {
				return err
			}
			quorum, err := app.Governor.Quorum(cmd.Context())
			if err != nil {
				return err
			}
			lower, upper := app.Governor.QuorumBounds()

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{
					"percentage": pct,
					"min":        lower,
					"max":        upper,
					"quorum":     quorum,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Quorum %d/1000 of circulating supply (bounds %d – %d)\n", pct, lower, upper)
			fmt.Fprintf(cmd.OutOrStdout(), "Requires %s votes for or abstaining\n", render.FormatAmount(quorum))
			return nil
		},
	}

	cmd.AddCommand(newQuorumSetCmd())

	return cmd
}

func newQuorumSetCmd() *cobra.Command {
	var target string
	var description string

	cmd := &cobra.Command{
		Use:   "set <thousandths>",
		Short: "Propose a new quorum fraction",
		Long: `Create a proposal that calls setQuorumPercentage on the quorum target. The
value only changes once the proposal passes, is queued and executed.`,
		Example: `  mgl quorum set 60 --from alice`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			proposer, err := caller(cmd, app)
			if err != nil {
				return err
			}

			pct, err := strconv.ParseUint(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quorum percentage %q: %w", args[0], err)
			}
			lower, upper := app.Governor.QuorumBounds()
			if pct < lower || pct > upper {
				return fmt.Errorf("quorum percentage %d outside %d – %d", pct, lower, upper)
			}

			addr, payload, err := resolveAction(app, ActionSpec{
				Target: target,
				Call:   "setQuorumPercentage",
				Args:   []string{args[0]},
			})
			if err != nil {
				return err
			}
			if description == "" {
				description = fmt.Sprintf("Set quorum to %d/1000", pct)
			}

			proposal, err := app.Governor.Propose(cmd.Context(), proposer,
				[]common.Address{addr}, []hexutil.Bytes{payload}, description)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), proposal)
			}
			return render.NewProposalsRenderer(cmd.OutOrStdout(), describer(app)).RenderCreated(proposal)
		},
	}

	cmd.Flags().StringVar(&target, "target", "quorum", "Target the quorum logic is installed at")
	cmd.Flags().StringVarP(&description, "description", "d", "", "Proposal description")

	return cmd
}
