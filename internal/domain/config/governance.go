package config

import (
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// GovernanceFileConfig represents the full governance.toml configuration file
type GovernanceFileConfig struct {
	Profile map[string]GovernanceConfig `toml:"profile"`
}

// GovernanceConfig represents a [profile.<name>] section in governance.toml.
// Sections other than default are decoded on top of the default one.
type GovernanceConfig struct {
	Addresses Addresses                 `toml:"addresses"`
	Timelock  TimelockConfig            `toml:"timelock"`
	Voting    VotingConfig              `toml:"voting"`
	Quorum    QuorumConfig              `toml:"quorum"`
	Veto      VetoConfig                `toml:"veto"`
	Accounts  map[string]common.Address `toml:"accounts"`
	Targets   []TargetConfig            `toml:"targets"`
}

// Addresses names the components of the engine
type Addresses struct {
	Admin    common.Address `toml:"admin"`
	Governor common.Address `toml:"governor"`
	Timelock common.Address `toml:"timelock"`
	Executor common.Address `toml:"executor"`
	Veto     common.Address `toml:"veto"`
}

// TimelockConfig bounds the timelock queue
type TimelockConfig struct {
	Delay           time.Duration `toml:"delay"`
	MinDelay        time.Duration `toml:"min_delay"`
	MaxDelay        time.Duration `toml:"max_delay"`
	ExecutionWindow time.Duration `toml:"execution_window"`
	MaxScheduled    uint64        `toml:"max_scheduled"`
}

// CancelPolicy selects who may cancel a proposal and when
type CancelPolicy string

const (
	// CancelPolicyProposer lets only the proposer cancel, in any non-final state
	CancelPolicyProposer CancelPolicy = "proposer"
	// CancelPolicyPending lets anyone cancel, but only before voting starts
	CancelPolicyPending CancelPolicy = "pending"
)

// VotingConfig holds the vote clock parameters, in blocks
type VotingConfig struct {
	VotingDelay       uint64       `toml:"voting_delay"`
	VotingPeriod      uint64       `toml:"voting_period"`
	ProposalThreshold *big.Int     `toml:"proposal_threshold"`
	CancelPolicy      CancelPolicy `toml:"cancel_policy"`
}

// QuorumConfig holds the governed quorum fraction, in thousandths of circulating supply
type QuorumConfig struct {
	Percentage uint64 `toml:"percentage"`
	Min        uint64 `toml:"min"`
	Max        uint64 `toml:"max"`
	// ExcludedHolder's balance is not circulating
	ExcludedHolder common.Address `toml:"excluded_holder"`
}

// VetoMode selects how veto support is measured
type VetoMode string

const (
	// VetoModeIdentity reads votes delegated to the derived proposal identity
	VetoModeIdentity VetoMode = "identity"
	// VetoModeCaller reads the caller's own votes and accepts single-target batches only
	VetoModeCaller VetoMode = "caller"
)

// VetoConfig holds the veto authority parameters
type VetoConfig struct {
	// SupplyPercentage is in thousandths of total supply
	SupplyPercentage uint64   `toml:"supply_percentage"`
	Lag              uint64   `toml:"lag"`
	Mode             VetoMode `toml:"mode"`
}

// TargetConfig installs a built-in logic module at an address
type TargetConfig struct {
	Name    string         `toml:"name"`
	Address common.Address `toml:"address"`
	Logic   string         `toml:"logic"`
	Version uint64         `toml:"version"`
}

// ComponentAddress derives a stable default address for a named component
func ComponentAddress(name string) common.Address {
	return common.BytesToAddress(crypto.Keccak256([]byte("mgl-governance." + name))[12:])
}

// DefaultGovernanceConfig returns the built-in profile
func DefaultGovernanceConfig() *GovernanceConfig {
	return &GovernanceConfig{
		Addresses: Addresses{
			Admin:    ComponentAddress("admin"),
			Governor: ComponentAddress("governor"),
			Timelock: ComponentAddress("timelock"),
			Executor: ComponentAddress("executor"),
			Veto:     ComponentAddress("veto"),
		},
		Timelock: TimelockConfig{
			Delay:           2 * 24 * time.Hour,
			MinDelay:        2 * 24 * time.Hour,
			MaxDelay:        30 * 24 * time.Hour,
			ExecutionWindow: 14 * 24 * time.Hour,
			MaxScheduled:    64,
		},
		Voting: VotingConfig{
			VotingDelay:       1,
			VotingPeriod:      17280,
			ProposalThreshold: new(big.Int).Mul(big.NewInt(10_000), big.NewInt(1e18)),
			CancelPolicy:      CancelPolicyProposer,
		},
		Quorum: QuorumConfig{
			Percentage: 40,
			Min:        30,
			Max:        50,
		},
		Veto: VetoConfig{
			SupplyPercentage: 800,
			Lag:              1,
			Mode:             VetoModeIdentity,
		},
		Accounts: map[string]common.Address{},
		Targets: []TargetConfig{
			{Name: "parameters", Logic: "parameters", Version: 1},
			{Name: "quorum", Logic: "quorum", Version: 1},
			{Name: "timelock-delay", Logic: "timelock-delay", Version: 1},
		},
	}
}

// Seconds converts a configured duration to whole seconds
func Seconds(d time.Duration) uint64 {
	if d <= 0 {
		return 0
	}
	return uint64(d / time.Second)
}
