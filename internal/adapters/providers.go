package adapters

import (
	"github.com/google/wire"
	"github.com/money-god/mgl-governance/internal/adapters/auth"
	"github.com/money-god/mgl-governance/internal/adapters/chain"
	"github.com/money-god/mgl-governance/internal/adapters/interactive"
	"github.com/money-god/mgl-governance/internal/adapters/proxy"
	"github.com/money-god/mgl-governance/internal/adapters/repository/governance"
	"github.com/money-god/mgl-governance/internal/adapters/repository/timelock"
	"github.com/money-god/mgl-governance/internal/adapters/stake"
	"github.com/money-god/mgl-governance/internal/adapters/tally"
	"github.com/money-god/mgl-governance/internal/adapters/targets"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/usecase"
)

// InstalledTargets is the logic installed from the active profile
type InstalledTargets []targets.Installed

// ProvideInstalledTargets installs the configured targets once the governor
// and the queue they drive exist
func ProvideInstalledTargets(
	cfg *config.RuntimeConfig,
	registry *targets.Registry,
	governor *usecase.Governor,
	queue *usecase.TimelockQueue,
) (InstalledTargets, error) {
	return targets.InstallConfigured(cfg, registry, governor, queue)
}

// RepositorySet provides the file-backed stores
var RepositorySet = wire.NewSet(
	timelock.NewFileRepositoryFromConfig,
	wire.Bind(new(usecase.TimelockStore), new(*timelock.FileRepository)),

	governance.NewFileRepositoryFromConfig,
	wire.Bind(new(usecase.GovernanceStore), new(*governance.FileRepository)),

	tally.NewCountingFromConfig,
	wire.Bind(new(usecase.VoteTally), new(*tally.Counting)),
)

// ChainSet provides the clock, the authorizer and the stake ledger
var ChainSet = wire.NewSet(
	chain.NewClockFromConfig,
	wire.Bind(new(usecase.Clock), new(*chain.Clock)),

	auth.NewAuthorityFromConfig,
	wire.Bind(new(usecase.Authorizer), new(*auth.Authority)),

	stake.NewLedgerFromConfig,
	wire.Bind(new(usecase.StakeOracle), new(*stake.Ledger)),
	wire.Bind(new(usecase.StakeLedger), new(*stake.Ledger)),
)

// ExecutionSet provides target logic and the executor proxy
var ExecutionSet = wire.NewSet(
	targets.NewRegistry,
	wire.Bind(new(usecase.CodeRegistry), new(*targets.Registry)),

	proxy.NewProxyFromConfig,
	wire.Bind(new(usecase.Executor), new(*proxy.Proxy)),

	ProvideInstalledTargets,
)

// InteractiveSet provides interactive implementations
var InteractiveSet = wire.NewSet(
	interactive.NewSelectorAdapter,
	wire.Bind(new(usecase.ProposalSelector), new(*interactive.SelectorAdapter)),
)

// AllAdapters includes all adapter sets
var AllAdapters = wire.NewSet(
	RepositorySet,
	ChainSet,
	ExecutionSet,
	InteractiveSet,
)
