package cli

import (
	"fmt"
	"math/big"

	"github.com/money-god/mgl-governance/internal/cli/render"
	"github.com/spf13/cobra"
)

// NewStakeCmd creates the stake command group
func NewStakeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stake",
		Short: "Manage the simulated stake token",
		Long: `Manage balances and delegations of the stake token that weighs votes and
vetoes. Vote weight follows delegation, and each change is checkpointed at the
current block.`,
	}

	cmd.AddCommand(
		newStakeMintCmd(),
		newStakeTransferCmd(),
		newStakeDelegateCmd(),
		newStakeBalanceCmd(),
	)

	return cmd
}

func newStakeMintCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "mint <account> <amount>",
		Short:   "Mint stake to an account",
		Example: `  mgl stake mint alice 1000000 --from admin`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(cmd, app)
			if err != nil {
				return err
			}
			to, err := app.Account(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			if err := app.Stake.Mint(cmd.Context(), from, to, amount); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Minted %s to %s", render.FormatAmount(amount), to.Hex())))
			return nil
		},
	}
}

func newStakeTransferCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "transfer <to> <amount>",
		Short:   "Transfer stake from --from",
		Example: `  mgl stake transfer bob 250 --from alice`,
		Args:    cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(cmd, app)
			if err != nil {
				return err
			}
			to, err := app.Account(args[0])
			if err != nil {
				return err
			}
			amount, err := parseAmount(args[1])
			if err != nil {
				return err
			}

			if err := app.Stake.Transfer(cmd.Context(), from, to, amount); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("Transferred %s to %s", render.FormatAmount(amount), to.Hex())))
			return nil
		},
	}
}

func newStakeDelegateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delegate <delegatee>",
		Short: "Delegate the votes of --from",
		Long: `Delegate all votes of --from to another account. Delegate to a veto
identity (see "mgl identity") to back a veto.`,
		Example: `  mgl stake delegate alice --from alice
  mgl stake delegate 0x5c1f... --from bob`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			from, err := caller(cmd, app)
			if err != nil {
				return err
			}
			to, err := app.Account(args[0])
			if err != nil {
				return err
			}

			if err := app.Stake.Delegate(cmd.Context(), from, to); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), render.FormatSuccess(fmt.Sprintf("%s now delegates to %s at block %d",
				from.Hex(), to.Hex(), app.Clock.BlockNumber())))
			return nil
		},
	}
}

func newStakeBalanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "balance [account]",
		Short: "Show the stake position of an account",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}
			account, err := caller(cmd, app)
			if err != nil {
				return err
			}
			if len(args) == 1 {
				if account, err = app.Account(args[0]); err != nil {
					return err
				}
			}

			ctx := cmd.Context()
			summary := render.AccountSummary{Account: account, Threshold: app.Governor.ProposalThreshold()}
			if summary.Balance, err = app.Stake.BalanceOf(ctx, account); err != nil {
				return err
			}
			if summary.Delegate, err = app.Stake.Delegates(ctx, account); err != nil {
				return err
			}
			if summary.Votes, err = app.Stake.CurrentVotes(ctx, account); err != nil {
				return err
			}
			if summary.Supply, err = app.Stake.TotalSupply(ctx); err != nil {
				return err
			}

			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), summary)
			}
			return render.RenderAccount(cmd.OutOrStdout(), summary)
		},
	}
}

func parseAmount(s string) (*big.Int, error) {
	amount, ok := new(big.Int).SetString(s, 10)
	if !ok || amount.Sign() <= 0 {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return amount, nil
}
