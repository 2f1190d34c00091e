package usecase_test

import (
	"context"
	"io"
	"log/slog"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/adapters/auth"
	"github.com/money-god/mgl-governance/internal/adapters/chain"
	"github.com/money-god/mgl-governance/internal/adapters/proxy"
	"github.com/money-god/mgl-governance/internal/adapters/repository/governance"
	"github.com/money-god/mgl-governance/internal/adapters/repository/timelock"
	"github.com/money-god/mgl-governance/internal/adapters/stake"
	"github.com/money-god/mgl-governance/internal/adapters/tally"
	"github.com/money-god/mgl-governance/internal/adapters/targets"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/money-god/mgl-governance/internal/usecase"
	"github.com/stretchr/testify/require"
)

var (
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol = common.HexToAddress("0x00000000000000000000000000000000000ca201")
)

// engine is a fully wired in-memory governance stack
type engine struct {
	cfg       *config.RuntimeConfig
	addrs     config.Addresses
	clock     *chain.Clock
	ledger    *stake.Ledger
	authority *auth.Authority
	registry  *targets.Registry
	executor  *proxy.Proxy
	queue     *usecase.TimelockQueue
	governor  *usecase.Governor
	veto      *usecase.VetoAuthority
}

// newEngine builds the stack with short test windows. mutate may adjust the
// profile before anything is constructed.
func newEngine(t *testing.T, mutate ...func(*config.GovernanceConfig)) *engine {
	t.Helper()
	return newEngineWithSink(t, usecase.NopProgress{}, mutate...)
}

func newEngineWithSink(t *testing.T, sink usecase.ProgressSink, mutate ...func(*config.GovernanceConfig)) *engine {
	t.Helper()

	gov := config.DefaultGovernanceConfig()
	gov.Timelock = config.TimelockConfig{
		Delay:           time.Hour,
		MinDelay:        time.Hour,
		MaxDelay:        24 * time.Hour,
		ExecutionWindow: 12 * time.Hour,
		MaxScheduled:    4,
	}
	gov.Voting.VotingPeriod = 5
	gov.Voting.ProposalThreshold = big.NewInt(100)
	gov.Targets = append(gov.Targets, config.TargetConfig{Name: "storage", Logic: targets.LogicStorage, Version: 1})
	for _, m := range mutate {
		m(gov)
	}

	cfg := &config.RuntimeConfig{Namespace: "default", Governance: gov}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))

	e := &engine{
		cfg:       cfg,
		addrs:     gov.Addresses,
		clock:     chain.NewMemoryClock(1, chain.GenesisTimestamp),
		authority: auth.NewAuthorityFromConfig(cfg),
	}
	e.registry = targets.NewRegistry(e.authority)
	e.ledger = stake.NewMemoryLedger(e.authority, e.clock)

	var err error
	e.executor, err = proxy.NewProxyFromConfig(cfg, e.registry, log)
	require.NoError(t, err)

	e.queue = usecase.NewTimelockQueue(cfg, timelock.NewMemoryRepository(), e.authority, e.registry, e.executor, e.clock, log)
	e.governor = usecase.NewGovernor(cfg, governance.NewMemoryRepository(), tally.NewMemoryCounting(), e.ledger, e.queue, e.clock, sink, log)
	e.veto = usecase.NewVetoAuthority(cfg, e.ledger, e.queue, e.clock, log)

	_, err = targets.InstallConfigured(cfg, e.registry, e.governor, e.queue)
	require.NoError(t, err)
	return e
}

// target resolves an installed target by alias
func (e *engine) target(t *testing.T, name string) common.Address {
	t.Helper()
	addr, err := e.registry.Resolve(name)
	require.NoError(t, err)
	return addr
}

// call encodes a call against the logic installed at name
func (e *engine) call(t *testing.T, name, method string, args ...string) (common.Address, hexutil.Bytes) {
	t.Helper()
	addr := e.target(t, name)
	logic, ok := e.registry.Logic(addr)
	require.True(t, ok)
	payload, err := targets.EncodeCall(logic.ABI(), method, args)
	require.NoError(t, err)
	return addr, payload
}

// fund mints stake to account and self-delegates it
func (e *engine) fund(t *testing.T, account common.Address, amount int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, e.ledger.Mint(ctx, e.addrs.Admin, account, big.NewInt(amount)))
	require.NoError(t, e.ledger.Delegate(ctx, account, account))
}

func (e *engine) mine(t *testing.T, blocks uint64) {
	t.Helper()
	_, err := e.clock.Advance(blocks, 0)
	require.NoError(t, err)
}

func (e *engine) warp(t *testing.T, d time.Duration) {
	t.Helper()
	_, err := e.clock.Advance(0, d)
	require.NoError(t, err)
}

// action builds an unscheduled action at now + lead
func (e *engine) action(target common.Address, payload hexutil.Bytes, lead time.Duration) *models.ScheduledAction {
	return &models.ScheduledAction{
		Target:  target,
		Payload: payload,
		ETA:     e.clock.Timestamp() + uint64(lead/time.Second),
	}
}

// passProposal takes a proposal by alice from creation through a successful vote
func (e *engine) passProposal(t *testing.T, to []common.Address, payloads []hexutil.Bytes, description string) *models.Proposal {
	t.Helper()
	ctx := context.Background()

	proposal, err := e.governor.Propose(ctx, alice, to, payloads, description)
	require.NoError(t, err)

	e.mine(t, e.cfg.Governance.Voting.VotingDelay+1)
	_, err = e.governor.CastVote(ctx, alice, proposal.ID, models.VoteFor)
	require.NoError(t, err)
	e.mine(t, e.cfg.Governance.Voting.VotingPeriod)

	state, err := e.governor.State(ctx, proposal.ID)
	require.NoError(t, err)
	require.Equal(t, models.ProposalStatusSucceeded, state)
	return proposal
}
