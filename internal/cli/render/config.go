package render

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/money-god/mgl-governance/internal/adapters/targets"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
)

// ConfigView is the resolved configuration with what it installed
type ConfigView struct {
	Config  *config.RuntimeConfig
	Targets []targets.Installed
	Grants  map[domain.Operation][]string
}

// JSON flattens the view for machine output
func (v ConfigView) JSON() map[string]interface{} {
	installed := make([]map[string]string, len(v.Targets))
	for i, t := range v.Targets {
		installed[i] = map[string]string{
			"name":        t.Name,
			"address":     t.Address.Hex(),
			"logic":       t.Logic.Name(),
			"version":     fmt.Sprint(t.Logic.Version()),
			"fingerprint": t.Fingerprint.Hex(),
		}
	}
	return map[string]interface{}{
		"source":     v.Config.ConfigSource,
		"namespace":  v.Config.Namespace,
		"dataDir":    v.Config.DataDir,
		"governance": v.Config.Governance,
		"targets":    installed,
		"grants":     v.Grants,
	}
}

// getRelativePath returns the relative path from current directory
func getRelativePath(path string) string {
	cwd, err := os.Getwd()
	if err != nil {
		return path
	}

	relPath, err := filepath.Rel(cwd, path)
	if err != nil {
		return path
	}

	return relPath
}

// RenderConfig renders the resolved configuration
func RenderConfig(out io.Writer, v ConfigView) error {
	cfg := v.Config
	gov := cfg.Governance

	fmt.Fprintf(out, "📦 Config source: %s (profile %s)\n", cfg.ConfigSource, cfg.Namespace)
	fmt.Fprintf(out, "📁 Data directory: %s\n\n", getRelativePath(cfg.DataDir))

	sectionHeaderStyle.Fprintln(out, "Components")
	field(out, "Admin", addressStyle.Sprint(gov.Addresses.Admin.Hex()))
	field(out, "Governor", addressStyle.Sprint(gov.Addresses.Governor.Hex()))
	field(out, "Timelock", addressStyle.Sprint(gov.Addresses.Timelock.Hex()))
	field(out, "Executor", addressStyle.Sprint(gov.Addresses.Executor.Hex()))
	field(out, "Veto", addressStyle.Sprint(gov.Addresses.Veto.Hex()))

	fmt.Fprintln(out)
	sectionHeaderStyle.Fprintln(out, "Timelock")
	field(out, "Delay", gov.Timelock.Delay.String())
	field(out, "Bounds", fmt.Sprintf("%s – %s", gov.Timelock.MinDelay, gov.Timelock.MaxDelay))
	field(out, "Window", gov.Timelock.ExecutionWindow.String())
	field(out, "Capacity", fmt.Sprint(gov.Timelock.MaxScheduled))

	fmt.Fprintln(out)
	sectionHeaderStyle.Fprintln(out, "Voting")
	field(out, "Delay", fmt.Sprintf("%d blocks", gov.Voting.VotingDelay))
	field(out, "Period", fmt.Sprintf("%d blocks", gov.Voting.VotingPeriod))
	field(out, "Threshold", FormatAmount(gov.Voting.ProposalThreshold))
	field(out, "Cancel", string(gov.Voting.CancelPolicy))
	field(out, "Quorum", fmt.Sprintf("%d/1000 (bounds %d – %d)", gov.Quorum.Percentage, gov.Quorum.Min, gov.Quorum.Max))

	fmt.Fprintln(out)
	sectionHeaderStyle.Fprintln(out, "Veto")
	field(out, "Mode", string(gov.Veto.Mode))
	field(out, "Threshold", fmt.Sprintf("%d/1000 of supply", gov.Veto.SupplyPercentage))
	field(out, "Lag", fmt.Sprintf("%d blocks", gov.Veto.Lag))

	if len(v.Targets) > 0 {
		fmt.Fprintln(out)
		sectionHeaderStyle.Fprintln(out, "Targets")
		for _, t := range v.Targets {
			fmt.Fprintf(out, "  %-16s %s %s\n", t.Name, addressStyle.Sprint(t.Address.Hex()),
				labelStyle.Sprintf("%s@%d %s", t.Logic.Name(), t.Logic.Version(), ShortHash(t.Fingerprint)))
		}
	}

	if len(v.Grants) > 0 {
		fmt.Fprintln(out)
		sectionHeaderStyle.Fprintln(out, "Grants")
		ops := make([]string, 0, len(v.Grants))
		for op := range v.Grants {
			ops = append(ops, string(op))
		}
		sort.Strings(ops)
		for _, op := range ops {
			for _, holder := range v.Grants[domain.Operation(op)] {
				fmt.Fprintf(out, "  %-16s %s\n", op, addressStyle.Sprint(holder))
			}
		}
	}

	return nil
}
