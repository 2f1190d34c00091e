package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/money-god/mgl-governance/internal/adapters/chain"
	"github.com/money-god/mgl-governance/internal/adapters/proxy"
	"github.com/money-god/mgl-governance/internal/adapters/repository/governance"
	"github.com/money-god/mgl-governance/internal/adapters/repository/timelock"
	"github.com/money-god/mgl-governance/internal/adapters/stake"
	"github.com/money-god/mgl-governance/internal/adapters/tally"
	"github.com/spf13/cobra"
)

// stateFiles are the files under the data directory holding engine state
var stateFiles = []string{
	chain.ChainFile,
	stake.LedgerFile,
	tally.TallyFile,
	governance.GovernanceFile,
	timelock.TimelockFile,
	proxy.ProxyFile,
}

// NewResetCmd creates the reset command
func NewResetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Reset the simulated chain and all governance state",
		Long: `Delete the chain head, stake ledger, proposals, votes, timelock queue and
executor storage from the data directory. Configuration is kept.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			var present []string
			for _, name := range stateFiles {
				path := filepath.Join(app.Config.DataDir, name)
				if _, err := os.Stat(path); err == nil {
					present = append(present, path)
				}
			}
			if len(present) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to reset. No state found in "+app.Config.DataDir)
				return nil
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Found %d state files in %s\n", len(present), app.Config.DataDir)
			ok, err := app.Selector.Confirm(cmd.Context(), "Reset all governance state? This cannot be undone")
			if err != nil {
				return err
			}
			if !ok {
				fmt.Fprintln(cmd.OutOrStdout(), "Reset cancelled.")
				return nil
			}

			for _, path := range present {
				if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
					return fmt.Errorf("failed to remove %s: %w", path, err)
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Successfully reset %d state files.\n", len(present))
			return nil
		},
	}

	return cmd
}
