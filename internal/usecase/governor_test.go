package usecase_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/adapters/targets"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/money-god/mgl-governance/internal/usecase"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// funded returns an engine where alice holds 1000 votes at a final block
func funded(t *testing.T, mutate ...func(*config.GovernanceConfig)) *engine {
	t.Helper()
	e := newEngine(t, mutate...)
	e.fund(t, alice, 1000)
	e.mine(t, 1)
	return e
}

func assertState(t *testing.T, e *engine, id common.Hash, want models.ProposalStatus) {
	t.Helper()
	state, err := e.governor.State(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, want, state)
}

func assertReason(t *testing.T, err error, reason string) {
	t.Helper()
	var invalid domain.InvalidStateError
	require.ErrorAs(t, err, &invalid)
	assert.Equal(t, reason, invalid.Reason)
}

type recordingSink struct {
	usecase.NopProgress
	events []usecase.ProgressEvent
}

func (s *recordingSink) OnProgress(ctx context.Context, event usecase.ProgressEvent) {
	s.events = append(s.events, event)
}

func TestGovernor_Lifecycle(t *testing.T) {
	ctx := context.Background()
	sink := &recordingSink{}
	e := newEngineWithSink(t, sink)
	e.fund(t, alice, 1000)
	e.mine(t, 1)

	target, payload := e.call(t, "parameters", "setParameter", "fee", "30")
	proposal, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "Set fee")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), proposal.Snapshot)
	assert.Equal(t, uint64(8), proposal.Deadline)
	assert.Equal(t, models.HashDescription("Set fee"), proposal.DescriptionHash)
	assert.Equal(t, proposal.Descriptor().ID(), proposal.ID)
	assertState(t, e, proposal.ID, models.ProposalStatusPending)

	e.mine(t, 1)
	assertState(t, e, proposal.ID, models.ProposalStatusPending)
	e.mine(t, 1)
	assertState(t, e, proposal.ID, models.ProposalStatusActive)

	weight, err := e.governor.CastVote(ctx, alice, proposal.ID, models.VoteFor)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), weight)

	e.mine(t, 4)
	assertState(t, e, proposal.ID, models.ProposalStatusActive)
	e.mine(t, 1)
	assertState(t, e, proposal.ID, models.ProposalStatusSucceeded)

	eta, err := e.governor.Queue(ctx, proposal.Descriptor())
	require.NoError(t, err)
	assert.Equal(t, e.clock.Timestamp()+3600, eta)
	assertState(t, e, proposal.ID, models.ProposalStatusQueued)

	count, err := e.queue.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), count)

	_, err = e.governor.Execute(ctx, carol, proposal.Descriptor())
	assert.ErrorIs(t, err, domain.ErrPrematureExecution)

	e.warp(t, time.Hour)
	report, err := e.governor.Execute(ctx, carol, proposal.Descriptor())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded())
	assert.Empty(t, report.Failed())
	assertState(t, e, proposal.ID, models.ProposalStatusExecuted)
	assert.Equal(t, common.BigToHash(big.NewInt(30)), e.executor.Load(targets.ParameterSlot("fee")))

	require.Len(t, sink.events, 2)
	assert.Equal(t, usecase.StageExecuting, sink.events[0].Stage)
	assert.Equal(t, 1, sink.events[0].Current)
	assert.Equal(t, 1, sink.events[0].Total)

	t.Run("final states are final", func(t *testing.T) {
		_, err := e.governor.Execute(ctx, carol, proposal.Descriptor())
		assertReason(t, err, domain.ReasonTerminal)

		err = e.governor.Cancel(ctx, alice, proposal.Descriptor())
		assertReason(t, err, domain.ReasonTerminal)

		_, err = e.governor.Queue(ctx, proposal.Descriptor())
		assertReason(t, err, domain.ReasonTerminal)
		assertState(t, e, proposal.ID, models.ProposalStatusExecuted)
	})
}

func TestGovernor_Propose(t *testing.T) {
	ctx := context.Background()

	t.Run("below threshold", func(t *testing.T) {
		e := newEngine(t)
		e.fund(t, alice, 50)
		e.mine(t, 1)

		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		_, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "")
		assert.ErrorIs(t, err, domain.ErrProposerBelowThreshold)
	})

	t.Run("stake from the current block does not count", func(t *testing.T) {
		e := newEngine(t)
		e.fund(t, alice, 1000)

		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		_, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "")
		assert.ErrorIs(t, err, domain.ErrProposerBelowThreshold)
	})

	t.Run("length mismatch", func(t *testing.T) {
		e := funded(t)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		_, err := e.governor.Propose(ctx, alice, []common.Address{target, target}, []hexutil.Bytes{payload}, "")
		assert.ErrorIs(t, err, domain.ErrLengthMismatch)
	})

	t.Run("empty", func(t *testing.T) {
		e := funded(t)
		_, err := e.governor.Propose(ctx, alice, nil, nil, "")
		assert.ErrorIs(t, err, domain.ErrEmptyProposal)
	})

	t.Run("duplicate", func(t *testing.T) {
		e := funded(t)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		_, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "once")
		require.NoError(t, err)
		_, err = e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "once")
		assert.ErrorIs(t, err, domain.ErrAlreadyExists)

		_, err = e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "twice")
		assert.NoError(t, err, "a new description is a new proposal")
	})
}

func TestGovernor_CastVote(t *testing.T) {
	ctx := context.Background()
	e := funded(t)
	e.fund(t, bob, 2000)

	target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
	proposal, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "")
	require.NoError(t, err)

	t.Run("not before the snapshot", func(t *testing.T) {
		_, err := e.governor.CastVote(ctx, alice, proposal.ID, models.VoteFor)
		assertReason(t, err, domain.ReasonNotActive)
	})

	e.mine(t, 2)

	t.Run("weight is read at the snapshot", func(t *testing.T) {
		require.NoError(t, e.ledger.Transfer(ctx, alice, carol, big.NewInt(500)))

		weight, err := e.governor.CastVote(ctx, alice, proposal.ID, models.VoteFor)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(1000), weight)
	})

	t.Run("one vote per voter", func(t *testing.T) {
		_, err := e.governor.CastVote(ctx, alice, proposal.ID, models.VoteAgainst)
		assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	})

	t.Run("against outweighs for", func(t *testing.T) {
		_, err := e.governor.CastVote(ctx, bob, proposal.ID, models.VoteAgainst)
		require.NoError(t, err)

		votes, err := e.governor.Votes(ctx, proposal.ID)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(1000), votes.For)
		assert.Equal(t, big.NewInt(2000), votes.Against)

		e.mine(t, 5)
		assertState(t, e, proposal.ID, models.ProposalStatusDefeated)

		_, err = e.governor.CastVote(ctx, carol, proposal.ID, models.VoteFor)
		assertReason(t, err, domain.ReasonTerminal)

		_, err = e.governor.Queue(ctx, proposal.Descriptor())
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	})
}

func TestGovernor_Quorum(t *testing.T) {
	ctx := context.Background()

	t.Run("unmet quorum defeats", func(t *testing.T) {
		e := funded(t)
		e.fund(t, bob, 100_000)
		e.mine(t, 1)

		quorum, err := e.governor.Quorum(ctx)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(4040), quorum)

		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "")
		require.NoError(t, err)
		e.mine(t, 2)
		_, err = e.governor.CastVote(ctx, alice, proposal.ID, models.VoteFor)
		require.NoError(t, err)
		e.mine(t, 5)
		assertState(t, e, proposal.ID, models.ProposalStatusDefeated)
	})

	t.Run("excluded holder is not circulating", func(t *testing.T) {
		e := funded(t, func(g *config.GovernanceConfig) { g.Quorum.ExcludedHolder = carol })
		require.NoError(t, e.ledger.Mint(ctx, e.addrs.Admin, carol, big.NewInt(99_000)))
		e.mine(t, 1)

		quorum, err := e.governor.Quorum(ctx)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(40), quorum)

		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		e.passProposal(t, []common.Address{target}, []hexutil.Bytes{payload}, "")
	})

	t.Run("later minting does not reopen a decided proposal", func(t *testing.T) {
		e := funded(t)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal := e.passProposal(t, []common.Address{target}, []hexutil.Bytes{payload}, "")
		_, err := e.governor.Queue(ctx, proposal.Descriptor())
		require.NoError(t, err)

		require.NoError(t, e.ledger.Mint(ctx, e.addrs.Admin, bob, big.NewInt(1_000_000)))
		e.mine(t, 1)
		assertState(t, e, proposal.ID, models.ProposalStatusQueued)

		view, err := e.governor.Show(ctx, proposal.ID)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(40), view.Quorum, "quorum is measured at the snapshot")

		e.warp(t, time.Hour)
		report, err := e.governor.Execute(ctx, carol, proposal.Descriptor())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Succeeded())
		assertState(t, e, proposal.ID, models.ProposalStatusExecuted)

		count, err := e.queue.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})

	t.Run("later percentage change does not revive a defeated proposal", func(t *testing.T) {
		e := funded(t)
		require.NoError(t, e.ledger.Mint(ctx, e.addrs.Admin, bob, big.NewInt(30_000)))
		e.mine(t, 1)

		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "")
		require.NoError(t, err)
		assert.Equal(t, uint64(40), proposal.QuorumPercentage)
		e.mine(t, 2)
		_, err = e.governor.CastVote(ctx, alice, proposal.ID, models.VoteFor)
		require.NoError(t, err)
		e.mine(t, 5)
		assertState(t, e, proposal.ID, models.ProposalStatusDefeated)

		// 30 would make 1000 of 31000 enough
		require.NoError(t, e.governor.SetQuorumPercentage(ctx, e.addrs.Executor, 30))
		e.mine(t, 1)
		assertState(t, e, proposal.ID, models.ProposalStatusDefeated)

		view, err := e.governor.Show(ctx, proposal.ID)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(1240), view.Quorum)
	})

	t.Run("only the executor sets the percentage", func(t *testing.T) {
		e := newEngine(t)

		err := e.governor.SetQuorumPercentage(ctx, e.addrs.Governor, 45)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
		err = e.governor.SetQuorumPercentage(ctx, e.addrs.Admin, 45)
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		assert.ErrorIs(t, e.governor.SetQuorumPercentage(ctx, e.addrs.Executor, 29), domain.ErrQuorumOutOfRange)
		assert.ErrorIs(t, e.governor.SetQuorumPercentage(ctx, e.addrs.Executor, 51), domain.ErrQuorumOutOfRange)

		for _, pct := range []uint64{30, 50, 45} {
			require.NoError(t, e.governor.SetQuorumPercentage(ctx, e.addrs.Executor, pct))
		}
		pct, err := e.governor.QuorumPercentage(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(45), pct)
	})

	t.Run("changed through a proposal", func(t *testing.T) {
		e := funded(t)
		target, payload := e.call(t, "quorum", "setQuorumPercentage", "45")
		proposal := e.passProposal(t, []common.Address{target}, []hexutil.Bytes{payload}, "")

		_, err := e.governor.Queue(ctx, proposal.Descriptor())
		require.NoError(t, err)
		e.warp(t, time.Hour)
		report, err := e.governor.Execute(ctx, carol, proposal.Descriptor())
		require.NoError(t, err)
		assert.Equal(t, 1, report.Succeeded())

		pct, err := e.governor.QuorumPercentage(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(45), pct)
	})

	t.Run("out of range proposal fails at execution", func(t *testing.T) {
		e := funded(t)
		target, payload := e.call(t, "quorum", "setQuorumPercentage", "60")
		proposal := e.passProposal(t, []common.Address{target}, []hexutil.Bytes{payload}, "")

		_, err := e.governor.Queue(ctx, proposal.Descriptor())
		require.NoError(t, err)
		e.warp(t, time.Hour)
		report, err := e.governor.Execute(ctx, carol, proposal.Descriptor())
		require.NoError(t, err)

		require.Len(t, report.Failed(), 1)
		assert.ErrorIs(t, report.Failed()[0].Err, domain.ErrQuorumOutOfRange)
		assertState(t, e, proposal.ID, models.ProposalStatusExecuted)

		pct, err := e.governor.QuorumPercentage(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(40), pct)
	})
}

func TestGovernor_Queue(t *testing.T) {
	ctx := context.Background()

	t.Run("not before voting ends", func(t *testing.T) {
		e := funded(t)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "")
		require.NoError(t, err)

		_, err = e.governor.Queue(ctx, proposal.Descriptor())
		assertReason(t, err, domain.ReasonNotSuccessful)
	})

	t.Run("unwinds a partial schedule", func(t *testing.T) {
		e := funded(t, func(g *config.GovernanceConfig) { g.Timelock.MaxScheduled = 1 })
		params, fee := e.call(t, "parameters", "setParameter", "fee", "1")
		_, rate := e.call(t, "parameters", "setParameter", "rate", "2")
		proposal := e.passProposal(t, []common.Address{params, params}, []hexutil.Bytes{fee, rate}, "")

		_, err := e.governor.Queue(ctx, proposal.Descriptor())
		assert.ErrorIs(t, err, domain.ErrCapacityExceeded)

		count, err := e.queue.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
		assertState(t, e, proposal.ID, models.ProposalStatusSucceeded)
	})

	t.Run("rejects content already pending", func(t *testing.T) {
		e := funded(t)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal := e.passProposal(t, []common.Address{target}, []hexutil.Bytes{payload}, "")

		_, err := e.queue.Schedule(ctx, e.addrs.Governor, e.action(target, payload, 2*time.Hour))
		require.NoError(t, err)

		_, err = e.governor.Queue(ctx, proposal.Descriptor())
		assert.ErrorIs(t, err, domain.ErrDuplicateContent)
	})
}

func TestGovernor_Execute(t *testing.T) {
	ctx := context.Background()

	t.Run("not yet queued", func(t *testing.T) {
		e := funded(t)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal := e.passProposal(t, []common.Address{target}, []hexutil.Bytes{payload}, "")

		_, err := e.governor.Execute(ctx, carol, proposal.Descriptor())
		assertReason(t, err, domain.ReasonNotYetQueued)
	})

	t.Run("tolerates actions executed elsewhere", func(t *testing.T) {
		e := funded(t)
		params, fee := e.call(t, "parameters", "setParameter", "fee", "1")
		_, rate := e.call(t, "parameters", "setParameter", "rate", "2")
		proposal := e.passProposal(t, []common.Address{params, params}, []hexutil.Bytes{fee, rate}, "")

		_, err := e.governor.Queue(ctx, proposal.Descriptor())
		require.NoError(t, err)
		e.warp(t, time.Hour)

		queued, err := e.governor.Proposal(ctx, proposal.ID)
		require.NoError(t, err)
		_, err = e.queue.Execute(ctx, carol, queued.Actions()[0])
		require.NoError(t, err)

		report, err := e.governor.Execute(ctx, carol, proposal.Descriptor())
		require.NoError(t, err)
		require.Len(t, report.Outcomes, 2)
		assert.ErrorIs(t, report.Outcomes[0].Err, domain.ErrNotScheduled)
		assert.NoError(t, report.Outcomes[1].Err)
		assertState(t, e, proposal.ID, models.ProposalStatusExecuted)
	})

	t.Run("expires after the window", func(t *testing.T) {
		e := funded(t)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal := e.passProposal(t, []common.Address{target}, []hexutil.Bytes{payload}, "")

		_, err := e.governor.Queue(ctx, proposal.Descriptor())
		require.NoError(t, err)
		e.warp(t, 13*time.Hour)
		assertState(t, e, proposal.ID, models.ProposalStatusExpired)

		_, err = e.governor.Execute(ctx, carol, proposal.Descriptor())
		assertReason(t, err, domain.ReasonTerminal)
	})
}

func TestGovernor_Cancel(t *testing.T) {
	ctx := context.Background()

	t.Run("proposer cancels a queued proposal", func(t *testing.T) {
		e := funded(t)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal := e.passProposal(t, []common.Address{target}, []hexutil.Bytes{payload}, "")
		_, err := e.governor.Queue(ctx, proposal.Descriptor())
		require.NoError(t, err)

		err = e.governor.Cancel(ctx, bob, proposal.Descriptor())
		assert.ErrorIs(t, err, domain.ErrUnauthorized)

		require.NoError(t, e.governor.Cancel(ctx, alice, proposal.Descriptor()))
		assertState(t, e, proposal.ID, models.ProposalStatusCanceled)

		count, err := e.queue.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count, "queued actions are abandoned")

		err = e.governor.Cancel(ctx, alice, proposal.Descriptor())
		assertReason(t, err, domain.ReasonTerminal)
	})

	t.Run("pending policy lets anyone cancel before voting", func(t *testing.T) {
		e := funded(t, func(g *config.GovernanceConfig) { g.Voting.CancelPolicy = config.CancelPolicyPending })
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")

		early, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "early")
		require.NoError(t, err)
		require.NoError(t, e.governor.Cancel(ctx, bob, early.Descriptor()))
		assertState(t, e, early.ID, models.ProposalStatusCanceled)

		_, err = e.governor.CastVote(ctx, alice, early.ID, models.VoteFor)
		assert.ErrorIs(t, err, domain.ErrInvalidState)

		late, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "late")
		require.NoError(t, err)
		e.mine(t, 2)
		err = e.governor.Cancel(ctx, alice, late.Descriptor())
		assertReason(t, err, domain.ReasonNotPending)
	})
}

func TestGovernor_ListProposals(t *testing.T) {
	ctx := context.Background()
	e := funded(t)
	target, payload := e.call(t, "parameters", "setParameter", "fee", "1")

	first, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "first")
	require.NoError(t, err)
	e.mine(t, 1)
	second, err := e.governor.Propose(ctx, alice, []common.Address{target}, []hexutil.Bytes{payload}, "second")
	require.NoError(t, err)

	views, err := e.governor.ListProposals(ctx)
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, second.ID, views[0].Proposal.ID)
	assert.Equal(t, first.ID, views[1].Proposal.ID)
	assert.Equal(t, models.ProposalStatusPending, views[0].State)
	assert.NotNil(t, views[0].Votes)
}
