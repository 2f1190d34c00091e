package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/app"
	"github.com/money-god/mgl-governance/internal/cli/render"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/spf13/cobra"
)

// NewVetoCmd creates the veto command
func NewVetoCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "veto [proposal-id]",
		Short: "Veto queued actions",
		Long: `Abandon every action of a queued batch when enough stake backs the veto.

In identity mode stakeholders delegate to the batch identity (see
"mgl identity"); in caller mode the caller's own votes count and only
single-action batches can be vetoed. Support is read a configured number of
blocks in the past, so delegations must land before the veto.

The batch is taken from a queued proposal, or from --batch/--target with --eta.`,
		Example: `  mgl veto 0x3f2a --from alice
  mgl veto --batch actions.yaml --eta 1700172800`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(cmd, app)
			if err != nil {
				return err
			}
			targets, payloads, eta, err := vetoBatch(cmd, app, args)
			if err != nil {
				return err
			}

			result, err := app.Veto.VetoProposal(cmd.Context(), from, targets, payloads, eta)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), result)
			}
			return render.NewTimelockRenderer(cmd.OutOrStdout(), describer(app)).RenderVeto(result)
		},
	}

	addBatchFlags(cmd)
	cmd.Flags().Uint64("eta", 0, "Eta the batch was scheduled under")

	return cmd
}

// NewIdentityCmd creates the identity command
func NewIdentityCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "identity [proposal-id]",
		Short: "Print the veto identity of a queued batch",
		Long: `Print the address stakeholders delegate to in order to back a veto of a
batch. The identity is derived from the ordered targets, payloads and eta.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			targets, payloads, eta, err := vetoBatch(cmd, app, args)
			if err != nil {
				return err
			}

			identity, err := app.Veto.ProposalIdentity(targets, payloads, eta)
			if err != nil {
				return err
			}
			threshold, err := app.Veto.VetoThreshold(cmd.Context())
			if err != nil {
				return err
			}
			votes, err := app.Stake.CurrentVotes(cmd.Context(), identity)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{
					"identity":  identity,
					"eta":       eta,
					"votes":     votes,
					"threshold": threshold,
					"mode":      app.Veto.Mode(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), identity.Hex())
			if app.Veto.Mode() == config.VetoModeCaller {
				fmt.Fprintln(cmd.OutOrStdout(), render.FormatWarning("veto mode is caller; delegations to this identity are not counted"))
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Delegated %s of %s required\n", render.FormatAmount(votes), render.FormatAmount(threshold))
			return nil
		},
	}

	addBatchFlags(cmd)
	cmd.Flags().Uint64("eta", 0, "Eta the batch was scheduled under")

	return cmd
}

// vetoBatch reads the batch of a queued proposal, or one given by flags
func vetoBatch(cmd *cobra.Command, a *app.App, args []string) ([]common.Address, []hexutil.Bytes, uint64, error) {
	batchPath, _ := cmd.Flags().GetString("batch")
	target, _ := cmd.Flags().GetString("target")
	if batchPath != "" || target != "" {
		batch, err := batchWithETA(cmd, a)
		if err != nil {
			return nil, nil, 0, err
		}
		return batch.Targets, batch.Payloads, batch.ETA, nil
	}

	proposal, err := resolveProposal(cmd.Context(), a, firstArg(args), models.ProposalStatusQueued)
	if err != nil {
		return nil, nil, 0, err
	}
	if proposal.ETA == 0 {
		return nil, nil, 0, fmt.Errorf("proposal %s is not queued", render.ShortHash(proposal.ID))
	}
	return proposal.Targets, proposal.Payloads, proposal.ETA, nil
}
