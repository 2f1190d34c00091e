package usecase_test

import (
	"context"
	"fmt"
	"math/big"
	"math/rand"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/money-god/mgl-governance/internal/adapters/targets"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// vetoEngine spreads a supply of one million: alice holds 40k self-delegated
// votes, enough to pass proposals alone; bob holds bobStake undelegated and
// carol the rest
func vetoEngine(t *testing.T, bobStake int64, mutate ...func(*config.GovernanceConfig)) *engine {
	t.Helper()
	ctx := context.Background()

	e := newEngine(t, mutate...)
	e.fund(t, alice, 40_000)
	require.NoError(t, e.ledger.Mint(ctx, e.addrs.Admin, bob, big.NewInt(bobStake)))
	require.NoError(t, e.ledger.Mint(ctx, e.addrs.Admin, carol, big.NewInt(960_000-bobStake)))
	e.mine(t, 1)
	return e
}

// queueProposal passes and queues a proposal, returning the stored record
func queueProposal(t *testing.T, e *engine, to []common.Address, payloads []hexutil.Bytes) *models.Proposal {
	t.Helper()
	ctx := context.Background()

	proposal := e.passProposal(t, to, payloads, "")
	_, err := e.governor.Queue(ctx, proposal.Descriptor())
	require.NoError(t, err)

	queued, err := e.governor.Proposal(ctx, proposal.ID)
	require.NoError(t, err)
	return queued
}

func TestVetoAuthority_Threshold(t *testing.T) {
	ctx := context.Background()

	t.Run("exactly the threshold vetoes after the lag", func(t *testing.T) {
		e := vetoEngine(t, 800_000)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal := queueProposal(t, e, []common.Address{target}, []hexutil.Bytes{payload})

		threshold, err := e.veto.VetoThreshold(ctx)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(800_000), threshold)

		identity, err := e.veto.ProposalIdentity(proposal.Targets, proposal.Payloads, proposal.ETA)
		require.NoError(t, err)
		require.NoError(t, e.ledger.Delegate(ctx, bob, identity))

		_, err = e.veto.VetoProposal(ctx, bob, proposal.Targets, proposal.Payloads, proposal.ETA)
		assert.ErrorIs(t, err, domain.ErrInsufficientSupport, "delegation in the current block is not counted")

		e.mine(t, 1)
		result, err := e.veto.VetoProposal(ctx, carol, proposal.Targets, proposal.Payloads, proposal.ETA)
		require.NoError(t, err)
		assert.Equal(t, identity, result.Identity)
		assert.Equal(t, big.NewInt(800_000), result.Votes)
		assert.Len(t, result.Abandoned, 1)

		count, err := e.queue.Count(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)

		e.warp(t, time.Hour)
		report, err := e.governor.Execute(ctx, carol, proposal.Descriptor())
		require.NoError(t, err)
		assert.Zero(t, report.Succeeded())
		assert.ErrorIs(t, report.Outcomes[0].Err, domain.ErrNotScheduled)
	})

	t.Run("one short of the threshold", func(t *testing.T) {
		e := vetoEngine(t, 799_999)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal := queueProposal(t, e, []common.Address{target}, []hexutil.Bytes{payload})

		identity, err := e.veto.ProposalIdentity(proposal.Targets, proposal.Payloads, proposal.ETA)
		require.NoError(t, err)
		require.NoError(t, e.ledger.Delegate(ctx, bob, identity))
		e.mine(t, 1)

		_, err = e.veto.VetoProposal(ctx, bob, proposal.Targets, proposal.Payloads, proposal.ETA)
		var insufficient domain.InsufficientSupportError
		require.ErrorAs(t, err, &insufficient)
		assert.Equal(t, "799999", insufficient.Votes)
		assert.Equal(t, "800000", insufficient.Threshold)

		count, err := e.queue.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), count)
	})

	t.Run("support for another eta does not count", func(t *testing.T) {
		e := vetoEngine(t, 800_000)
		target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
		proposal := queueProposal(t, e, []common.Address{target}, []hexutil.Bytes{payload})

		other, err := e.veto.ProposalIdentity(proposal.Targets, proposal.Payloads, proposal.ETA+1)
		require.NoError(t, err)
		require.NoError(t, e.ledger.Delegate(ctx, bob, other))
		e.mine(t, 1)

		_, err = e.veto.VetoProposal(ctx, bob, proposal.Targets, proposal.Payloads, proposal.ETA)
		assert.ErrorIs(t, err, domain.ErrInsufficientSupport)
	})
}

func TestVetoAuthority_AllOrNothing(t *testing.T) {
	ctx := context.Background()
	e := vetoEngine(t, 800_000)
	params, fee := e.call(t, "parameters", "setParameter", "fee", "1")
	_, rate := e.call(t, "parameters", "setParameter", "rate", "2")
	proposal := queueProposal(t, e, []common.Address{params, params}, []hexutil.Bytes{fee, rate})

	identity, err := e.veto.ProposalIdentity(proposal.Targets, proposal.Payloads, proposal.ETA)
	require.NoError(t, err)
	require.NoError(t, e.ledger.Delegate(ctx, bob, identity))
	e.mine(t, 1)

	e.warp(t, time.Hour)
	_, err = e.queue.Execute(ctx, carol, proposal.Actions()[0])
	require.NoError(t, err)

	_, err = e.veto.VetoProposal(ctx, bob, proposal.Targets, proposal.Payloads, proposal.ETA)
	assert.ErrorIs(t, err, domain.ErrNotScheduled)

	scheduled, err := e.queue.IsScheduled(ctx, proposal.Actions()[1])
	require.NoError(t, err)
	assert.True(t, scheduled, "remaining action must survive a failed veto")
}

func TestVetoAuthority_ReplacedLogic(t *testing.T) {
	ctx := context.Background()
	e := vetoEngine(t, 800_000)
	target, payload := e.call(t, "parameters", "setParameter", "fee", "1")
	proposal := queueProposal(t, e, []common.Address{target}, []hexutil.Bytes{payload})

	identity, err := e.veto.ProposalIdentity(proposal.Targets, proposal.Payloads, proposal.ETA)
	require.NoError(t, err)
	require.NoError(t, e.ledger.Delegate(ctx, bob, identity))
	e.mine(t, 1)

	upgraded, err := targets.NewParameters(2)
	require.NoError(t, err)
	e.registry.Install("parameters", target, upgraded)

	result, err := e.veto.VetoProposal(ctx, bob, proposal.Targets, proposal.Payloads, proposal.ETA)
	require.NoError(t, err)
	require.Len(t, result.Abandoned, 1)
	assert.Equal(t, proposal.CodeHashes[0], result.Abandoned[0].CodeHash)

	count, err := e.queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count, "the vetoed action no longer holds capacity")
}

func TestVetoAuthority_CallerMode(t *testing.T) {
	ctx := context.Background()
	e := vetoEngine(t, 800_000, func(g *config.GovernanceConfig) { g.Veto.Mode = config.VetoModeCaller })
	require.NoError(t, e.ledger.Delegate(ctx, bob, bob))
	e.mine(t, 1)

	params, fee := e.call(t, "parameters", "setParameter", "fee", "1")
	_, rate := e.call(t, "parameters", "setParameter", "rate", "2")

	t.Run("single target only", func(t *testing.T) {
		proposal := queueProposal(t, e, []common.Address{params, params}, []hexutil.Bytes{fee, rate})
		_, err := e.veto.VetoProposal(ctx, bob, proposal.Targets, proposal.Payloads, proposal.ETA)
		assert.ErrorIs(t, err, domain.ErrSingleTargetOnly)
	})

	t.Run("caller votes are measured", func(t *testing.T) {
		_, other := e.call(t, "parameters", "setParameter", "other", "3")
		proposal := queueProposal(t, e, []common.Address{params}, []hexutil.Bytes{other})

		_, err := e.veto.VetoProposal(ctx, carol, proposal.Targets, proposal.Payloads, proposal.ETA)
		assert.ErrorIs(t, err, domain.ErrInsufficientSupport)

		result, err := e.veto.VetoProposal(ctx, bob, proposal.Targets, proposal.Payloads, proposal.ETA)
		require.NoError(t, err)
		assert.Equal(t, bob, result.Identity)
	})
}

func TestVetoAuthority_ProposalIdentity(t *testing.T) {
	e := newEngine(t)
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	p1 := hexutil.Bytes{0x01}
	p2 := hexutil.Bytes{0x02}

	base, err := e.veto.ProposalIdentity([]common.Address{a, b}, []hexutil.Bytes{p1, p2}, 100)
	require.NoError(t, err)

	again, err := e.veto.ProposalIdentity([]common.Address{a, b}, []hexutil.Bytes{p1, p2}, 100)
	require.NoError(t, err)
	assert.Equal(t, base, again, "identity is deterministic")

	variants := map[string]struct {
		targets  []common.Address
		payloads []hexutil.Bytes
		eta      uint64
	}{
		"eta":              {[]common.Address{a, b}, []hexutil.Bytes{p1, p2}, 101},
		"order":            {[]common.Address{b, a}, []hexutil.Bytes{p2, p1}, 100},
		"payload":          {[]common.Address{a, b}, []hexutil.Bytes{p1, p1}, 100},
		"payload boundary": {[]common.Address{a, b}, []hexutil.Bytes{{0x01, 0x02}, {}}, 100},
		"subset":           {[]common.Address{a}, []hexutil.Bytes{p1}, 100},
	}
	for name, v := range variants {
		t.Run(name, func(t *testing.T) {
			identity, err := e.veto.ProposalIdentity(v.targets, v.payloads, v.eta)
			require.NoError(t, err)
			assert.NotEqual(t, base, identity)
		})
	}

	t.Run("length mismatch", func(t *testing.T) {
		_, err := e.veto.ProposalIdentity([]common.Address{a, b}, []hexutil.Bytes{p1}, 100)
		assert.ErrorIs(t, err, domain.ErrLengthMismatch)
	})
}

func TestVetoAuthority_ProposalIdentityUnique(t *testing.T) {
	const samples = 10_000
	e := newEngine(t)
	rng := rand.New(rand.NewSource(7))

	// a small pool makes batches share targets often
	pool := make([]common.Address, 8)
	for i := range pool {
		pool[i] = common.BigToAddress(big.NewInt(int64(i + 1)))
	}

	triples := make(map[string]struct{}, samples)
	identities := make(map[common.Address]string, samples)
	for len(triples) < samples {
		n := 1 + rng.Intn(4)
		to := make([]common.Address, n)
		payloads := make([]hexutil.Bytes, n)
		for i := range to {
			to[i] = pool[rng.Intn(len(pool))]
			payloads[i] = make(hexutil.Bytes, rng.Intn(6))
			rng.Read(payloads[i])
		}
		eta := uint64(rng.Intn(64))

		triple := fmt.Sprint(to, payloads, eta)
		if _, seen := triples[triple]; seen {
			continue
		}
		triples[triple] = struct{}{}

		identity, err := e.veto.ProposalIdentity(to, payloads, eta)
		require.NoError(t, err)
		if other, clash := identities[identity]; clash {
			t.Fatalf("%s and %s share identity %s", other, triple, identity.Hex())
		}
		identities[identity] = triple
	}
	assert.Len(t, identities, samples)
}
