package cli

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/cli/render"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/money-god/mgl-governance/internal/usecase"
	"github.com/spf13/cobra"
)

// NewProposeCmd creates the propose command
func NewProposeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "propose",
		Short: "Create a governance proposal",
		Long: `Create a proposal from a single action or a YAML batch file.

The proposer needs votes at or above the proposal threshold at the previous
block. Voting opens after the voting delay and lasts the voting period.

Batch file format:
  description: Raise quorum
  actions:
    - target: quorum
      call: setQuorumPercentage
      args: ["60"]
    - target: 0x1234...
      payload: 0xdeadbeef`,
		Example: `  # Propose a single call on an installed target
  mgl propose --target parameters --call setParameter --arg fee --arg 30 --description "Set fee"

  # Propose a batch
  mgl propose --batch actions.yaml --from alice`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			proposer, err := caller(cmd, app)
			if err != nil {
				return err
			}
			batch, err := batchFromFlags(cmd, app)
			if err != nil {
				return err
			}

			proposal, err := app.Governor.Propose(cmd.Context(), proposer, batch.Targets, batch.Payloads, batch.Description)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), proposal)
			}
			return render.NewProposalsRenderer(cmd.OutOrStdout(), describer(app)).RenderCreated(proposal)
		},
	}

	addBatchFlags(cmd)
	cmd.Flags().StringP("description", "d", "", "Proposal description")

	return cmd
}

// NewVoteCmd creates the vote command
func NewVoteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vote [proposal-id] <for|against|abstain>",
		Short: "Cast a vote on an active proposal",
		Long: `Cast a vote weighted by the votes delegated to the voter at the proposal
snapshot. Each account votes once per proposal.`,
		Example: `  mgl vote 0x3f2a for --from alice
  mgl vote against`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			voter, err := caller(cmd, app)
			if err != nil {
				return err
			}

			ref, choice := "", args[0]
			if len(args) == 2 {
				ref, choice = args[0], args[1]
			}
			support, err := models.ParseVoteType(choice)
			if err != nil {
				return err
			}

			proposal, err := resolveProposal(cmd.Context(), app, ref, models.ProposalStatusActive)
			if err != nil {
				return err
			}
			weight, err := app.Governor.CastVote(cmd.Context(), voter, proposal.ID, support)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{
					"proposal": proposal.ID,
					"voter":    voter,
					"support":  support.String(),
					"weight":   weight,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Voted %s on %s with weight %s",
				support, render.ShortHash(proposal.ID), render.FormatAmount(weight))))
			return nil
		},
	}

	return cmd
}

// NewQueueCmd creates the queue command
func NewQueueCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "queue [proposal-id]",
		Short: "Queue a succeeded proposal in the timelock",
		Long: `Schedule every action of a succeeded proposal in the timelock under one
eta, the current time plus the timelock delay. Anyone may queue.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			proposal, err := resolveProposal(cmd.Context(), app, firstArg(args), models.ProposalStatusSucceeded)
			if err != nil {
				return err
			}
			eta, err := app.Governor.Queue(cmd.Context(), proposal.Descriptor())
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{
					"proposal": proposal.ID,
					"eta":      eta,
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Queued proposal %s, executable at %s",
				render.ShortHash(proposal.ID), render.FormatTimestamp(eta))))
			return nil
		},
	}

	return cmd
}

// NewExecuteCmd creates the execute command
func NewExecuteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "execute [proposal-id]",
		Short: "Execute a queued proposal",
		Long: `Run every action of a queued proposal through the timelock once its eta
has passed. Actions that fail are reported; the proposal is marked executed
either way.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			executor, err := caller(cmd, app)
			if err != nil {
				return err
			}

			proposal, err := resolveProposal(cmd.Context(), app, firstArg(args), models.ProposalStatusQueued)
			if err != nil {
				return err
			}
			report, err := app.Governor.Execute(cmd.Context(), executor, proposal.Descriptor())
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), reportJSON(report))
			}
			return render.NewProposalsRenderer(cmd.OutOrStdout(), describer(app)).RenderReport(report)
		},
	}

	return cmd
}

// NewCancelCmd creates the cancel command
func NewCancelCmd() *cobra.Command {
	var skipConfirm bool

	cmd := &cobra.Command{
		Use:   "cancel [proposal-id]",
		Short: "Cancel a proposal",
		Long: `Cancel a proposal that has not reached a final state. Actions already in
the timelock are abandoned.

Depending on the cancel policy in governance.toml either only the proposer may
cancel (policy "proposer"), or anyone may cancel before voting starts
(policy "pending").`,
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

			proposal, err := resolveProposal(cmd.Context(), app, firstArg(args),
				models.ProposalStatusPending, models.ProposalStatusActive,
				models.ProposalStatusSucceeded, models.ProposalStatusQueued)
			if err != nil {
				return err
			}

			if !skipConfirm && !app.Config.JSON {
				ok, err := app.Selector.Confirm(cmd.Context(), fmt.Sprintf("Cancel proposal %s", render.ShortHash(proposal.ID)))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Cancel aborted")
					return nil
				}
			}

			if err := app.Governor.Cancel(cmd.Context(), from, proposal.Descriptor()); err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{"proposal": proposal.ID, "canceled": true})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Canceled proposal %s", render.ShortHash(proposal.ID))))
			return nil
		},
	}

	cmd.Flags().BoolVarP(&skipConfirm, "yes", "y", false, "Skip confirmation")

	return cmd
}

// NewShowCmd creates the show command
func NewShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [proposal-id]",
		Short: "Show a proposal with its state and votes",
		Long: `Show a proposal in detail. The id may be given in full or as a unique
prefix; without one the proposal is picked interactively.`,
		Example: `  mgl show 0x3f2a
  mgl show`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			proposal, err := resolveProposal(cmd.Context(), app, firstArg(args))
			if err != nil {
				return err
			}
			view, err := app.Governor.Show(cmd.Context(), proposal.ID)
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{
					"proposal": view.Proposal,
					"state":    view.State,
					"votes":    view.Votes,
					"quorum":   view.Quorum,
				})
			}
			return render.NewProposalsRenderer(cmd.OutOrStdout(), describer(app)).RenderProposal(view, render.FormatAmount(view.Quorum))
		},
	}

	return cmd
}

// NewListCmd creates the list command
func NewListCmd() *cobra.Command {
	var state string

	cmd := &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List proposals",
		Long:    `List all proposals, newest first, with their derived state and vote totals.`,
		Example: `  # List all proposals
  mgl list

  # List proposals waiting in the timelock
  mgl list --state queued`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			views, err := app.Governor.ListProposals(cmd.Context())
			if err != nil {
				return err
			}
			if state != "" {
				filtered := views[:0]
				for _, v := range views {
					if string(v.State) == state {
						filtered = append(filtered, v)
					}
				}
				views = filtered
			}

			if app.Config.JSON {
				type row struct {
					ID    string                `json:"id"`
					State models.ProposalStatus `json:"state"`
					Votes *models.ProposalVotes `json:"votes"`
				}
				rows := make([]row, len(views))
				for i, v := range views {
					rows[i] = row{ID: v.Proposal.ID.Hex(), State: v.State, Votes: v.Votes}
				}
				return render.JSON(cmd.OutOrStdout(), rows)
			}
			return render.NewProposalsRenderer(cmd.OutOrStdout(), describer(app)).RenderList(views)
		},
	}

	cmd.Flags().StringVar(&state, "state", "", "Filter by state (pending, active, succeeded, queued, executed, ...)")

	return cmd
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}

type outcomeJSON struct {
	Target  string `json:"target"`
	Payload string `json:"payload"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
}

func reportJSON(report *usecase.ExecutionReport) map[string]interface{} {
	outcomes := make([]outcomeJSON, len(report.Outcomes))
	for i, o := range report.Outcomes {
		outcomes[i] = outcomeJSON{
			Target:  o.Action.Target.Hex(),
			Payload: o.Action.Payload.String(),
		}
		if o.Err != nil {
			outcomes[i].Error = o.Err.Error()
		} else if len(o.Output) > 0 {
			outcomes[i].Output = hexutil.Encode(o.Output)
		}
	}
	return map[string]interface{}{
		"proposal":   report.ProposalID,
		"executedAt": report.ExecutedAt,
		"succeeded":  report.Succeeded(),
		"outcomes":   outcomes,
	}
}
