package cli

import (
	"github.com/money-god/mgl-governance/internal/cli/render"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/spf13/cobra"
)

// NewConfigCmd creates the config command
func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the resolved governance configuration",
		Long: `Show the configuration the engine runs with: the active profile of
governance.toml merged over the defaults, the installed targets with their
code fingerprints and the holders of each grant.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := getApp(cmd)
			if err != nil {
				return err
			}

			grants := make(map[domain.Operation][]string)
			for _, op := range []domain.Operation{domain.OpSchedule, domain.OpAbandon, domain.OpSetDelay, domain.OpMint, domain.OpSetTarget} {
				for _, holder := range app.Authority.Holders(op) {
					grants[op] = append(grants[op], holder.Hex())
				}
			}

			view := render.ConfigView{
				Config:  app.Config,
				Targets: app.Targets.Entries(),
				Grants:  grants,
			}
			if app.Config.JSON {
				return render.JSON(cmd.OutOrStdout(), view.JSON())
			}
			return render.RenderConfig(cmd.OutOrStdout(), view)
		},
	}

	return cmd
}
