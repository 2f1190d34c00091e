package cli

import (
	"context"
	"fmt"

	"github.com/money-god/mgl-governance/internal/adapters/progress"
	"github.com/money-god/mgl-governance/internal/app"
	"github.com/money-god/mgl-governance/internal/config"
	"github.com/money-god/mgl-governance/internal/usecase"
	"github.com/spf13/cobra"
)

// contextKey is the type for context keys
type contextKey string

const (
	// appKey is the context key for the app instance
	appKey contextKey = "app"
)

// NewRootCmd creates the root command
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "mgl",
		Short: "Governance-gated timelock engine",
		Long: `mgl runs the governance flow of a stake-weighted protocol: proposals are
voted on, queued in a timelock, and executed through an isolated executor.
Stakeholders may veto queued actions before they run.

State is kept in the .mgl directory of the project; governance.toml holds
the timelock bounds, voting parameters, quorum and veto settings.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Skip for help/version commands
			if cmd.Name() == "version" || cmd.Name() == "help" || cmd.Name() == "completion" {
				return nil
			}

			// Find project root
			projectRoot, err := config.FindProjectRoot()
			if err != nil {
				return err
			}

			// Set up viper
			v := config.SetupViper(projectRoot, cmd)

			// Spinner only where someone is watching
			var sink usecase.ProgressSink = progress.NewSpinnerSink()
			if nonInteractive, _ := cmd.Flags().GetBool("non-interactive"); nonInteractive {
				sink = progress.NewNopSink()
			}
			if jsonOut, _ := cmd.Flags().GetBool("json"); jsonOut {
				sink = progress.NewNopSink()
			}

			// Initialize app with DI
			appInstance, err := app.InitApp(v, sink)
			if err != nil {
				return fmt.Errorf("failed to initialize app: %w", err)
			}

			// Store app in context
			ctx := context.WithValue(cmd.Context(), appKey, appInstance)

			// Add timeout if configured
			if appInstance.Config.Timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, appInstance.Config.Timeout)
				// Store cancel func to be called on command completion
				cmd.PostRun = func(cmd *cobra.Command, args []string) {
					cancel()
				}
			}

			cmd.SetContext(ctx)

			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().Bool("debug", false, "Enable debug output")
	rootCmd.PersistentFlags().Bool("non-interactive", false, "Disable interactive prompts")
	rootCmd.PersistentFlags().Bool("json", false, "Output in JSON format")
	rootCmd.PersistentFlags().StringP("namespace", "s", "", "governance.toml profile (defaults to 'default')")
	rootCmd.PersistentFlags().String("from", "admin", "Account to act as (alias from governance.toml or address)")

	// Add command groups
	rootCmd.AddGroup(&cobra.Group{
		ID:    "governance",
		Title: "Governance Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "timelock",
		Title: "Timelock Commands",
	})
	rootCmd.AddGroup(&cobra.Group{
		ID:    "simulation",
		Title: "Simulation Commands",
	})

	for _, cmd := range []*cobra.Command{
		NewProposeCmd(),
		NewVoteCmd(),
		NewQueueCmd(),
		NewExecuteCmd(),
		NewCancelCmd(),
		NewShowCmd(),
		NewListCmd(),
		NewQuorumCmd(),
	} {
		cmd.GroupID = "governance"
		rootCmd.AddCommand(cmd)
	}

	for _, cmd := range []*cobra.Command{
		NewTimelockCmd(),
		NewVetoCmd(),
		NewIdentityCmd(),
	} {
		cmd.GroupID = "timelock"
		rootCmd.AddCommand(cmd)
	}

	for _, cmd := range []*cobra.Command{
		NewStakeCmd(),
		NewChainCmd(),
	} {
		cmd.GroupID = "simulation"
		rootCmd.AddCommand(cmd)
	}

	// Management commands
	rootCmd.AddCommand(NewConfigCmd())
	rootCmd.AddCommand(NewResetCmd())
	rootCmd.AddCommand(NewVersionCmd())

	return rootCmd
}

// getApp retrieves the app instance from the command context
func getApp(cmd *cobra.Command) (*app.App, error) {
	appInstance := cmd.Context().Value(appKey)
	if appInstance == nil {
		return nil, fmt.Errorf("app not initialized")
	}

	app, ok := appInstance.(*app.App)
	if !ok {
		return nil, fmt.Errorf("invalid app instance")
	}

	return app, nil
}
