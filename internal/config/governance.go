package config

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/BurntSushi/toml"
	"github.com/money-god/mgl-governance/internal/domain/config"
)

// GovernanceFile is the per-project engine configuration
const GovernanceFile = "governance.toml"

type rawGovernanceFile struct {
	Profile map[string]toml.Primitive `toml:"profile"`
}

// loadGovernanceConfig resolves the named profile of governance.toml.
// The built-in defaults are overlaid by [profile.default], then by
// [profile.<name>]. Returns the defaults when governance.toml does not exist.
func loadGovernanceConfig(projectRoot, profile string) (*config.GovernanceConfig, string, error) {
	cfg := config.DefaultGovernanceConfig()

	path := filepath.Join(projectRoot, GovernanceFile)
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, "defaults", nil
	}
	if err != nil {
		return nil, "", err
	}

	// ${VAR} references resolve against the environment, .env included
	expanded := os.ExpandEnv(string(data))

	var raw rawGovernanceFile
	md, err := toml.Decode(expanded, &raw)
	if err != nil {
		return nil, "", fmt.Errorf("failed to parse %s: %w", GovernanceFile, err)
	}

	layers := []string{"default"}
	if profile != "" && profile != "default" {
		if _, ok := raw.Profile[profile]; !ok {
			return nil, "", fmt.Errorf("profile %q not found in %s", profile, GovernanceFile)
		}
		layers = append(layers, profile)
	}

	for _, name := range layers {
		prim, ok := raw.Profile[name]
		if !ok {
			continue
		}
		// A profile listing targets replaces the inherited list
		if md.IsDefined("profile", name, "targets") {
			cfg.Targets = nil
		}
		if err := md.PrimitiveDecode(prim, cfg); err != nil {
			return nil, "", fmt.Errorf("failed to decode profile %s: %w", name, err)
		}
	}

	// Profiles other than the active ones stay undecoded
	var unknown []string
	for _, key := range md.Undecoded() {
		if len(key) > 1 && key[0] == "profile" && slices.Contains(layers, key[1]) {
			unknown = append(unknown, key.String())
		}
	}
	if len(unknown) > 0 {
		return nil, "", fmt.Errorf("unknown keys in %s: %v", GovernanceFile, unknown)
	}

	if err := validateGovernanceConfig(cfg); err != nil {
		return nil, "", fmt.Errorf("invalid %s: %w", GovernanceFile, err)
	}
	return cfg, GovernanceFile, nil
}

// validateGovernanceConfig checks the bounds the engine relies on
func validateGovernanceConfig(cfg *config.GovernanceConfig) error {
	tl := cfg.Timelock
	if tl.MinDelay > tl.MaxDelay {
		return fmt.Errorf("timelock min_delay %s exceeds max_delay %s", tl.MinDelay, tl.MaxDelay)
	}
	if tl.Delay < tl.MinDelay || tl.Delay > tl.MaxDelay {
		return fmt.Errorf("timelock delay %s outside [%s, %s]", tl.Delay, tl.MinDelay, tl.MaxDelay)
	}
	if tl.ExecutionWindow <= 0 {
		return fmt.Errorf("timelock execution_window must be positive")
	}
	if tl.MaxScheduled == 0 {
		return fmt.Errorf("timelock max_scheduled must be positive")
	}

	q := cfg.Quorum
	if q.Min > q.Max || q.Max > 1000 {
		return fmt.Errorf("quorum bounds [%d, %d] are invalid", q.Min, q.Max)
	}
	if q.Percentage < q.Min || q.Percentage > q.Max {
		return fmt.Errorf("quorum percentage %d outside [%d, %d]", q.Percentage, q.Min, q.Max)
	}

	if cfg.Veto.SupplyPercentage > 1000 {
		return fmt.Errorf("veto supply_percentage %d exceeds 1000", cfg.Veto.SupplyPercentage)
	}
	// support at the current block is not final and could be flash-delegated
	if cfg.Veto.Lag == 0 {
		return fmt.Errorf("veto lag must be at least 1 block")
	}
	switch cfg.Veto.Mode {
	case config.VetoModeIdentity, config.VetoModeCaller:
	default:
		return fmt.Errorf("unknown veto mode %q", cfg.Veto.Mode)
	}
	switch cfg.Voting.CancelPolicy {
	case config.CancelPolicyProposer, config.CancelPolicyPending:
	default:
		return fmt.Errorf("unknown cancel policy %q", cfg.Voting.CancelPolicy)
	}
	if cfg.Voting.VotingPeriod == 0 {
		return fmt.Errorf("voting_period must be positive")
	}

	seen := make(map[string]bool, len(cfg.Targets))
	for _, t := range cfg.Targets {
		if t.Name == "" {
			return fmt.Errorf("target without a name")
		}
		if seen[t.Name] {
			return fmt.Errorf("duplicate target %q", t.Name)
		}
		seen[t.Name] = true
	}
	return nil
}
