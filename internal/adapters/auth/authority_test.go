package auth

import (
	"context"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuthorityFromConfig(t *testing.T) {
	ctx := context.Background()
	gov := config.DefaultGovernanceConfig()
	a := NewAuthorityFromConfig(&config.RuntimeConfig{Governance: gov})
	addrs := gov.Addresses

	tests := []struct {
		name   string
		caller common.Address
		op     domain.Operation
		want   bool
	}{
		{"governor schedules", addrs.Governor, domain.OpSchedule, true},
		{"governor abandons", addrs.Governor, domain.OpAbandon, true},
		{"governor cannot set delay", addrs.Governor, domain.OpSetDelay, false},
		{"veto abandons", addrs.Veto, domain.OpAbandon, true},
		{"veto cannot schedule", addrs.Veto, domain.OpSchedule, false},
		{"executor sets delay", addrs.Executor, domain.OpSetDelay, true},
		{"executor cannot schedule", addrs.Executor, domain.OpSchedule, false},
		{"admin mints", addrs.Admin, domain.OpMint, true},
		{"admin sets delay", addrs.Admin, domain.OpSetDelay, true},
		{"admin cannot schedule", addrs.Admin, domain.OpSchedule, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, a.IsAuthorized(ctx, tt.caller, tt.op))
		})
	}

	assert.Equal(t, sortedPair(addrs.Governor, addrs.Veto), a.Holders(domain.OpAbandon), "holders are sorted")
}

func sortedPair(a, b common.Address) []common.Address {
	if a.Hex() < b.Hex() {
		return []common.Address{a, b}
	}
	return []common.Address{b, a}
}

func TestAuthority_GrantRevoke(t *testing.T) {
	ctx := context.Background()
	owner := common.HexToAddress("0x01")
	alice := common.HexToAddress("0x0a11ce")
	a := NewAuthority(owner)

	assert.ErrorIs(t, a.Grant(ctx, alice, alice, domain.OpSchedule), domain.ErrUnauthorized)
	assert.False(t, a.IsAuthorized(ctx, alice, domain.OpSchedule))

	require.NoError(t, a.Grant(ctx, owner, alice, domain.OpSchedule))
	assert.True(t, a.IsAuthorized(ctx, alice, domain.OpSchedule))
	assert.False(t, a.IsAuthorized(ctx, alice, domain.OpAbandon), "grants are per operation")

	assert.ErrorIs(t, a.Revoke(ctx, alice, alice, domain.OpSchedule), domain.ErrUnauthorized)
	require.NoError(t, a.Revoke(ctx, owner, alice, domain.OpSchedule))
	assert.False(t, a.IsAuthorized(ctx, alice, domain.OpSchedule))
	assert.Empty(t, a.Holders(domain.OpSchedule))
}
