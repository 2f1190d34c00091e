package auth

import (
	"context"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/usecase"
)

// Authority grants operations to accounts. The owner may grant further
// operations; grants are rebuilt from configuration at startup.
type Authority struct {
	owner common.Address

	mu     sync.RWMutex
	grants map[domain.Operation]map[common.Address]bool
}

// NewAuthority returns an authority owned by owner with no grants
func NewAuthority(owner common.Address) *Authority {
	return &Authority{
		owner:  owner,
		grants: make(map[domain.Operation]map[common.Address]bool),
	}
}

// NewAuthorityFromConfig wires the standard grants between components:
// the governor schedules and abandons, the veto authority abandons, the
// executor retunes the delay, and the admin mints stake and tunes the delay.
func NewAuthorityFromConfig(cfg *config.RuntimeConfig) *Authority {
	addrs := cfg.Governance.Addresses
	a := NewAuthority(addrs.Admin)

	a.grant(addrs.Governor, domain.OpSchedule)
	a.grant(addrs.Governor, domain.OpAbandon)
	a.grant(addrs.Veto, domain.OpAbandon)
	a.grant(addrs.Executor, domain.OpSetDelay)
	a.grant(addrs.Admin, domain.OpSetDelay)
	a.grant(addrs.Admin, domain.OpMint)
	return a
}

// Owner returns the account allowed to grant
func (a *Authority) Owner() common.Address {
	return a.owner
}

// IsAuthorized reports whether caller holds op
func (a *Authority) IsAuthorized(ctx context.Context, caller common.Address, op domain.Operation) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.grants[op][caller]
}

// Grant gives op to account. Only the owner may grant.
func (a *Authority) Grant(ctx context.Context, caller, account common.Address, op domain.Operation) error {
	if caller != a.owner {
		return domain.AuthorizationError{Caller: caller, Operation: domain.OpGrant}
	}
	a.grant(account, op)
	return nil
}

// Revoke removes op from account. Only the owner may revoke.
func (a *Authority) Revoke(ctx context.Context, caller, account common.Address, op domain.Operation) error {
	if caller != a.owner {
		return domain.AuthorizationError{Caller: caller, Operation: domain.OpGrant}
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.grants[op], account)
	return nil
}

// Holders lists the accounts holding op
func (a *Authority) Holders(op domain.Operation) []common.Address {
	a.mu.RLock()
	defer a.mu.RUnlock()

	holders := make([]common.Address, 0, len(a.grants[op]))
	for account := range a.grants[op] {
		holders = append(holders, account)
	}
	sort.Slice(holders, func(i, j int) bool { return holders[i].Hex() < holders[j].Hex() })
	return holders
}

func (a *Authority) grant(account common.Address, op domain.Operation) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.grants[op] == nil {
		a.grants[op] = make(map[common.Address]bool)
	}
	a.grants[op][account] = true
}

var _ usecase.Authorizer = (*Authority)(nil)
