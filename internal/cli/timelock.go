package cli

import (
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/app"
	"github.com/money-god/mgl-governance/internal/cli/render"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/money-god/mgl-governance/internal/usecase"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
)

// NewTimelockCmd creates the timelock command group
func NewTimelockCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "timelock",
		Aliases: []string{"tl"},
		Short:   "Inspect and operate the timelock queue",
		Long: `Inspect and operate the timelock queue directly.

Scheduling and abandoning need the corresponding grant; the governor holds both
and the veto authority may abandon. Anyone may execute a due action.`,
	}

	cmd.AddCommand(
		newTimelockListCmd(),
		newTimelockScheduleCmd(),
		newTimelockExecuteCmd(),
		newTimelockAbandonCmd(),
		newTimelockSetDelayCmd(),
	)

	return cmd
}

func newTimelockListCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "list",
		Aliases: []string{"ls"},
		Short:   "List scheduled actions",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			entries, err := app.Timelock.Entries(cmd.Context())
			if err != nil {
				return err
			}
			delay, err := app.Timelock.Delay(cmd.Context())
			if err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{
					"delay":   delay,
					"now":     app.Clock.Timestamp(),
					"entries": entries,
				})
			}
			summary := render.QueueSummary{Delay: delay, Params: app.Timelock.Params(), Now: app.Clock.Timestamp()}
			return render.NewTimelockRenderer(cmd.OutOrStdout(), describer(app)).RenderQueue(summary, entries)
		},
	}
}

func newTimelockScheduleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "schedule",
		Short: "Schedule actions directly",
		Long: `Schedule one action or a batch under a single eta. Without --eta the
actions are scheduled at the current time plus the current delay.`,
		Example: `  mgl timelock schedule --from governor --target parameters --call setParameter --arg fee --arg 30`,
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(cmd, app)
			if err != nil {
				return err
			}
			batch, err := batchFromFlags(cmd, app)
			if err != nil {
				return err
			}
			if batch.ETA == 0 {
				delay, err := app.Timelock.Delay(cmd.Context())
				if err != nil {
					return err
				}
				batch.ETA = app.Clock.Timestamp() + delay
			}

			var scheduled []*models.ScheduledAction
			for i, target := range batch.Targets {
				record, err := app.Timelock.Schedule(cmd.Context(), from, &models.ScheduledAction{
					Target:  target,
					Payload: batch.Payloads[i],
					ETA:     batch.ETA,
				})
				if err != nil {
					return fmt.Errorf("action %d: %w", i, err)
				}
				scheduled = append(scheduled, record)
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), scheduled)
			}
			describe := describer(app)
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Scheduled %d actions for %s",
				len(scheduled), render.FormatTimestamp(batch.ETA))))
			for _, a := range scheduled {
				fmt.Fprintf(cmd.OutOrStdout(), "  - %s %s\n", render.ShortHash(a.Key()), describe(a.Target, a.Payload))
			}
			return nil
		},
	}

	addBatchFlags(cmd)
	cmd.Flags().Uint64("eta", 0, "Unix timestamp the actions become executable at")

	return cmd
}

func newTimelockExecuteCmd() *cobra.Command {
	var ready bool

	cmd := &cobra.Command{
		Use:   "execute",
		Short: "Execute due actions",
		Long: `Execute one action or a batch scheduled under --eta. Execution stops at
the first action that fails; actions already run stay executed.

With --ready every action inside its execution window is run. Without any
action flags the due actions are picked interactively.`,
		Example: `  mgl timelock execute --ready
  mgl timelock execute --batch actions.yaml --eta 1700172800`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(cmd, app)
			if err != nil {
				return err
			}

			actions, err := actionsToExecute(cmd, app, ready)
			if err != nil {
				return err
			}

			outputs := make([]hexutil.Bytes, 0, len(actions))
			for i, action := range actions {
				output, err := app.Timelock.Execute(cmd.Context(), from, action)
				if err != nil {
					return fmt.Errorf("action %d: %w", i, err)
				}
				outputs = append(outputs, output)
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{"outputs": outputs})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Executed %d actions", len(outputs))))
			return nil
		},
	}

	addBatchFlags(cmd)
	cmd.Flags().Uint64("eta", 0, "Eta the actions were scheduled under")
	cmd.Flags().BoolVar(&ready, "ready", false, "Execute every action that is due")

	return cmd
}

// actionsToExecute reads the actions from flags, or from the ready entries of the queue
func actionsToExecute(cmd *cobra.Command, a *app.App, ready bool) ([]*models.ScheduledAction, error) {
	batchPath, _ := cmd.Flags().GetString("batch")
	target, _ := cmd.Flags().GetString("target")
	if batchPath != "" || target != "" {
		batch, err := batchWithETA(cmd, a)
		if err != nil {
			return nil, err
		}
		actions := make([]*models.ScheduledAction, len(batch.Targets))
		for i, t := range batch.Targets {
			actions[i] = &models.ScheduledAction{Target: t, Payload: batch.Payloads[i], ETA: batch.ETA}
		}
		return actions, nil
	}

	entries, err := a.Timelock.Entries(cmd.Context())
	if err != nil {
		return nil, err
	}
	entries = lo.Filter(entries, func(e usecase.QueueEntry, _ int) bool {
		return e.Status == models.ActionStatusReady
	})
	if len(entries) == 0 {
		return nil, fmt.Errorf("no actions are ready to execute")
	}

	if !ready {
		if a.Config.NonInteractive || a.Config.JSON {
			return nil, fmt.Errorf("--ready, --batch or --target is required in non-interactive mode")
		}
		if entries, err = SelectEntries(entries, describer(a), "Select actions to execute"); err != nil {
			return nil, err
		}
	}
	return lo.Map(entries, func(e usecase.QueueEntry, _ int) *models.ScheduledAction { return e.Action }), nil
}

func newTimelockAbandonCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "abandon",
		Short: "Remove scheduled actions without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(cmd, app)
			if err != nil {
				return err
			}
			batch, err := batchWithETA(cmd, app)
			if err != nil {
				return err
			}

			for i, target := range batch.Targets {
				err := app.Timelock.Abandon(cmd.Context(), from, &models.ScheduledAction{
					Target:  target,
					Payload: batch.Payloads[i],
					ETA:     batch.ETA,
				})
				if err != nil {
					return fmt.Errorf("action %d: %w", i, err)
				}
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{"abandoned": len(batch.Targets)})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Abandoned %d actions", len(batch.Targets))))
			return nil
		},
	}

	addBatchFlags(cmd)
	cmd.Flags().Uint64("eta", 0, "Eta the actions were scheduled under")

	return cmd
}

func newTimelockSetDelayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-delay <duration>",
		Short: "Set the timelock delay",
		Long: `Set the minimum lead time of newly scheduled actions. Only the executor and
the admin hold this grant; governance changes the delay through a proposal
calling setDelay on the timelock-delay target.`,
		Example: `  mgl timelock set-delay 72h --from admin`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(cmd, app)
			if err != nil {
				return err
			}
			d, err := time.ParseDuration(args[0])
			if err != nil {
				return fmt.Errorf("invalid duration %q: %w", args[0], err)
			}
			if d < 0 {
				return fmt.Errorf("delay cannot be negative")
			}

			seconds := uint64(d / time.Second)
			if err := app.Timelock.SetDelay(cmd.Context(), from, seconds); err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), map[string]interface{}{"delay": seconds})
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Delay set to %s", render.FormatDuration(seconds))))
			return nil
		},
	}
}

// batchWithETA reads a batch that must carry an eta
func batchWithETA(cmd *cobra.Command, a *app.App) (*Batch, error) {
	batch, err := batchFromFlags(cmd, a)
	if err != nil {
		return nil, err
	}
	if batch.ETA == 0 {
		return nil, fmt.Errorf("--eta is required")
	}
	return batch, nil
}
