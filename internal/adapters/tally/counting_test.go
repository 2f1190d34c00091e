package tally_test

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/adapters/tally"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	proposalID = common.HexToHash("0x01")
	alice      = common.HexToAddress("0x00000000000000000000000000000000000a11ce")
	bob        = common.HexToAddress("0x0000000000000000000000000000000000000b0b")
	carol      = common.HexToAddress("0x00000000000000000000000000000000000ca201")
)

func TestCounting_BaseState(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name   string
		votes  map[common.Address]models.VoteType
		block  uint64
		quorum int64
		want   models.ProposalStatus
	}{
		{name: "before snapshot", block: 5, want: models.ProposalStatusPending},
		{name: "at snapshot", block: 10, want: models.ProposalStatusPending},
		{name: "first voting block", block: 11, want: models.ProposalStatusActive},
		{name: "at deadline", block: 20, want: models.ProposalStatusActive},
		{name: "no votes", block: 21, quorum: 1, want: models.ProposalStatusDefeated},
		{
			name:   "for wins with quorum",
			votes:  map[common.Address]models.VoteType{alice: models.VoteFor},
			block:  21,
			quorum: 100,
			want:   models.ProposalStatusSucceeded,
		},
		{
			name:   "abstain counts towards quorum",
			votes:  map[common.Address]models.VoteType{alice: models.VoteFor, bob: models.VoteAbstain},
			block:  21,
			quorum: 150,
			want:   models.ProposalStatusSucceeded,
		},
		{
			name:   "against excluded from quorum",
			votes:  map[common.Address]models.VoteType{alice: models.VoteFor, bob: models.VoteFor, carol: models.VoteAgainst},
			block:  21,
			quorum: 250,
			want:   models.ProposalStatusDefeated,
		},
		{
			name:   "tie is defeated",
			votes:  map[common.Address]models.VoteType{alice: models.VoteFor, bob: models.VoteAgainst},
			block:  21,
			quorum: 0,
			want:   models.ProposalStatusDefeated,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := tally.NewMemoryCounting()
			require.NoError(t, c.Register(ctx, proposalID, 10, 20))
			for voter, support := range tt.votes {
				require.NoError(t, c.CastVote(ctx, proposalID, voter, support, big.NewInt(100)))
			}

			state, err := c.BaseState(ctx, proposalID, tt.block, big.NewInt(tt.quorum))
			require.NoError(t, err)
			assert.Equal(t, tt.want, state)
		})
	}
}

func TestCounting(t *testing.T) {
	ctx := context.Background()

	t.Run("one vote per voter", func(t *testing.T) {
		c := tally.NewMemoryCounting()
		require.NoError(t, c.Register(ctx, proposalID, 10, 20))
		require.NoError(t, c.CastVote(ctx, proposalID, alice, models.VoteFor, big.NewInt(1)))

		err := c.CastVote(ctx, proposalID, alice, models.VoteAgainst, big.NewInt(1))
		assert.ErrorIs(t, err, domain.ErrAlreadyVoted)

		votes, err := c.Votes(ctx, proposalID)
		require.NoError(t, err)
		assert.Equal(t, "1", votes.For.String())
		assert.Zero(t, votes.Against.Sign())
		assert.Equal(t, models.VoteFor, votes.Voters[alice])
	})

	t.Run("register twice", func(t *testing.T) {
		c := tally.NewMemoryCounting()
		require.NoError(t, c.Register(ctx, proposalID, 10, 20))
		assert.ErrorIs(t, c.Register(ctx, proposalID, 10, 20), domain.ErrAlreadyExists)
	})

	t.Run("unknown proposal", func(t *testing.T) {
		c := tally.NewMemoryCounting()
		_, err := c.BaseState(ctx, proposalID, 1, big.NewInt(0))
		assert.ErrorIs(t, err, domain.ErrNotFound)
	})

	t.Run("canceled overrides the window", func(t *testing.T) {
		c := tally.NewMemoryCounting()
		require.NoError(t, c.Register(ctx, proposalID, 10, 20))
		require.NoError(t, c.Cancel(ctx, proposalID))

		state, err := c.BaseState(ctx, proposalID, 15, big.NewInt(0))
		require.NoError(t, err)
		assert.Equal(t, models.ProposalStatusCanceled, state)
	})

	t.Run("persists across instances", func(t *testing.T) {
		tmpDir := t.TempDir()
		c1, err := tally.NewCounting(tmpDir)
		require.NoError(t, err)
		require.NoError(t, c1.Register(ctx, proposalID, 10, 20))
		require.NoError(t, c1.CastVote(ctx, proposalID, bob, models.VoteAbstain, big.NewInt(42)))

		c2, err := tally.NewCounting(tmpDir)
		require.NoError(t, err)
		votes, err := c2.Votes(ctx, proposalID)
		require.NoError(t, err)
		assert.Equal(t, "42", votes.Abstain.String())

		err = c2.CastVote(ctx, proposalID, bob, models.VoteFor, big.NewInt(1))
		assert.ErrorIs(t, err, domain.ErrAlreadyVoted)
	})
}
