package app

import (
	"fmt"
	"log/slog"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/adapters"
	"github.com/money-god/mgl-governance/internal/adapters/auth"
	"github.com/money-god/mgl-governance/internal/adapters/chain"
	"github.com/money-god/mgl-governance/internal/adapters/proxy"
	"github.com/money-god/mgl-governance/internal/adapters/stake"
	"github.com/money-god/mgl-governance/internal/adapters/targets"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/usecase"
)

// App is the main application container that holds all use cases
type App struct {
	// Configuration
	Config *config.RuntimeConfig
	Log    *slog.Logger

	// Shared dependencies
	Selector usecase.ProposalSelector
	Progress usecase.ProgressSink

	// Use cases
	Governor *usecase.Governor
	Timelock *usecase.TimelockQueue
	Veto     *usecase.VetoAuthority

	// Adapters exposed to the simulation commands
	Clock     *chain.Clock
	Stake     *stake.Ledger
	Authority *auth.Authority
	Targets   *targets.Registry
	Executor  *proxy.Proxy
	Installed adapters.InstalledTargets
}

// NewApp creates a new application instance with all use cases
func NewApp(
	cfg *config.RuntimeConfig,
	log *slog.Logger,
	selector usecase.ProposalSelector,
	sink usecase.ProgressSink,
	governor *usecase.Governor,
	timelock *usecase.TimelockQueue,
	veto *usecase.VetoAuthority,
	clock *chain.Clock,
	ledger *stake.Ledger,
	authority *auth.Authority,
	registry *targets.Registry,
	executor *proxy.Proxy,
	installed adapters.InstalledTargets,
) (*App, error) {
	return &App{
		Config:    cfg,
		Log:       log,
		Selector:  selector,
		Progress:  sink,
		Governor:  governor,
		Timelock:  timelock,
		Veto:      veto,
		Clock:     clock,
		Stake:     ledger,
		Authority: authority,
		Targets:   registry,
		Executor:  executor,
		Installed: installed,
	}, nil
}

// Account resolves a configured account alias or a hex address
func (a *App) Account(nameOrAddress string) (common.Address, error) {
	if addr, ok := a.Config.Governance.Accounts[nameOrAddress]; ok {
		return addr, nil
	}
	switch nameOrAddress {
	case "admin":
		return a.Config.Governance.Addresses.Admin, nil
	case "governor":
		return a.Config.Governance.Addresses.Governor, nil
	case "timelock":
		return a.Config.Governance.Addresses.Timelock, nil
	case "executor":
		return a.Config.Governance.Addresses.Executor, nil
	case "veto":
		return a.Config.Governance.Addresses.Veto, nil
	}
	if !common.IsHexAddress(nameOrAddress) {
		return common.Address{}, fmt.Errorf("account %q: %w", nameOrAddress, domain.ErrInvalidAddress)
	}
	return common.HexToAddress(nameOrAddress), nil
}
