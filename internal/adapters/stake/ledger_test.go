package stake_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/adapters/auth"
	"github.com/money-god/mgl-governance/internal/adapters/chain"
	"github.com/money-god/mgl-governance/internal/adapters/stake"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	admin = common.HexToAddress("0x000000000000000000000000000000000000ad31")
	alice = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob   = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
)

func newLedger(t *testing.T, dataDir string) (*stake.Ledger, *chain.Clock) {
	t.Helper()
	authority := auth.NewAuthority(admin)
	require.NoError(t, authority.Grant(context.Background(), admin, admin, domain.OpMint))

	clock := chain.NewMemoryClock(1, chain.GenesisTimestamp)
	ledger, err := stake.NewLedger(dataDir, authority, clock)
	require.NoError(t, err)
	return ledger, clock
}

func advance(t *testing.T, clock *chain.Clock, blocks uint64) {
	t.Helper()
	_, err := clock.Advance(blocks, 0)
	require.NoError(t, err)
}

func TestLedger_Mint(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newLedger(t, "")

	t.Run("requires the mint grant", func(t *testing.T) {
		err := ledger.Mint(ctx, alice, alice, big.NewInt(1))
		assert.ErrorIs(t, err, domain.ErrUnauthorized)
	})

	t.Run("rejects zero address and amounts", func(t *testing.T) {
		assert.ErrorIs(t, ledger.Mint(ctx, admin, common.Address{}, big.NewInt(1)), domain.ErrInvalidAddress)
		assert.ErrorIs(t, ledger.Mint(ctx, admin, alice, big.NewInt(0)), stake.ErrInvalidAmount)
		assert.ErrorIs(t, ledger.Mint(ctx, admin, alice, nil), stake.ErrInvalidAmount)
	})

	t.Run("increases balance and supply", func(t *testing.T) {
		require.NoError(t, ledger.Mint(ctx, admin, alice, big.NewInt(700)))
		require.NoError(t, ledger.Mint(ctx, admin, bob, big.NewInt(300)))

		balance, err := ledger.BalanceOf(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(700), balance)

		supply, err := ledger.TotalSupply(ctx)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(1000), supply)

		votes, err := ledger.CurrentVotes(ctx, alice)
		require.NoError(t, err)
		assert.Zero(t, votes.Sign(), "undelegated stake carries no votes")
	})
}

func TestLedger_Delegation(t *testing.T) {
	ctx := context.Background()
	ledger, clock := newLedger(t, "")

	require.NoError(t, ledger.Mint(ctx, admin, alice, big.NewInt(1000)))
	require.NoError(t, ledger.Delegate(ctx, alice, alice))

	// block 1: alice 1000
	advance(t, clock, 1)
	require.NoError(t, ledger.Delegate(ctx, alice, bob))

	// block 2: bob 1000; a second write in the same block updates the checkpoint
	require.NoError(t, ledger.Mint(ctx, admin, alice, big.NewInt(500)))
	advance(t, clock, 1)

	t.Run("prior votes follow checkpoints", func(t *testing.T) {
		tests := []struct {
			account common.Address
			block   uint64
			want    int64
		}{
			{alice, 0, 0},
			{alice, 1, 1000},
			{alice, 2, 0},
			{bob, 1, 0},
			{bob, 2, 1500},
		}
		for _, tt := range tests {
			votes, err := ledger.PriorVotes(ctx, tt.account, tt.block)
			require.NoError(t, err)
			assert.Equal(t, big.NewInt(tt.want).String(), votes.String(), "%s at %d", tt.account.Hex(), tt.block)
		}

		cps, err := ledger.Checkpoints(ctx, bob)
		require.NoError(t, err)
		require.Len(t, cps, 1)
		assert.Equal(t, uint64(2), cps[0].FromBlock)
	})

	t.Run("current block is not final", func(t *testing.T) {
		_, err := ledger.PriorVotes(ctx, bob, clock.BlockNumber())
		assert.ErrorIs(t, err, stake.ErrBlockNotFinal)
	})

	t.Run("transfer moves votes between delegatees", func(t *testing.T) {
		require.NoError(t, ledger.Delegate(ctx, bob, bob))
		require.NoError(t, ledger.Transfer(ctx, alice, bob, big.NewInt(400)))

		bobVotes, err := ledger.CurrentVotes(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(1500), bobVotes, "both balances are delegated to bob")

		delegatee, err := ledger.Delegates(ctx, alice)
		require.NoError(t, err)
		assert.Equal(t, bob, delegatee)
	})

	t.Run("undelegating removes votes", func(t *testing.T) {
		require.NoError(t, ledger.Delegate(ctx, alice, common.Address{}))

		votes, err := ledger.CurrentVotes(ctx, bob)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(400), votes)
	})

	t.Run("insufficient balance", func(t *testing.T) {
		err := ledger.Transfer(ctx, bob, alice, big.NewInt(10_000))
		assert.ErrorIs(t, err, stake.ErrInsufficientBalance)
	})
}

func TestLedger_History(t *testing.T) {
	ctx := context.Background()
	ledger, clock := newLedger(t, "")

	require.NoError(t, ledger.Mint(ctx, admin, alice, big.NewInt(1000)))
	advance(t, clock, 1)
	require.NoError(t, ledger.Mint(ctx, admin, bob, big.NewInt(500)))
	require.NoError(t, ledger.Transfer(ctx, alice, bob, big.NewInt(200)))
	advance(t, clock, 1)
	require.NoError(t, ledger.Mint(ctx, admin, alice, big.NewInt(9000)))

	supplies := []struct {
		block uint64
		want  int64
	}{
		{0, 0},
		{1, 1000},
		{2, 1500},
	}
	for _, tt := range supplies {
		supply, err := ledger.PastTotalSupply(ctx, tt.block)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(tt.want).String(), supply.String(), "supply at %d", tt.block)
	}

	balances := []struct {
		account common.Address
		block   uint64
		want    int64
	}{
		{alice, 1, 1000},
		{alice, 2, 800},
		{bob, 1, 0},
		{bob, 2, 700},
	}
	for _, tt := range balances {
		balance, err := ledger.PriorBalance(ctx, tt.account, tt.block)
		require.NoError(t, err)
		assert.Equal(t, big.NewInt(tt.want).String(), balance.String(), "%s at %d", tt.account.Hex(), tt.block)
	}

	_, err := ledger.PastTotalSupply(ctx, clock.BlockNumber())
	assert.ErrorIs(t, err, stake.ErrBlockNotFinal)
	_, err = ledger.PriorBalance(ctx, alice, clock.BlockNumber())
	assert.ErrorIs(t, err, stake.ErrBlockNotFinal)

	supply, err := ledger.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(10_500), supply)
}

func TestLedger_PersistenceAcrossInstances(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	ledger1, clock := newLedger(t, tmpDir)
	require.NoError(t, ledger1.Mint(ctx, admin, alice, big.NewInt(1000)))
	require.NoError(t, ledger1.Delegate(ctx, alice, alice))
	advance(t, clock, 1)

	ledger2, err := stake.NewLedger(tmpDir, auth.NewAuthority(admin), clock)
	require.NoError(t, err)

	votes, err := ledger2.PriorVotes(ctx, alice, 1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), votes)

	supply, err := ledger2.TotalSupply(ctx)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), supply)

	past, err := ledger2.PastTotalSupply(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(1000), past)
}
