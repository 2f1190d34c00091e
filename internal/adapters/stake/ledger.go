package stake

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/adapters/repository"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/usecase"
)

const LedgerFile = "stake.json"

var (
	// ErrBlockNotFinal is returned when prior votes are requested for the current or a future block
	ErrBlockNotFinal = errors.New("block not yet final")
	// ErrInsufficientBalance is returned when a transfer exceeds the sender's balance
	ErrInsufficientBalance = errors.New("insufficient balance")
	// ErrInvalidAmount is returned for non-positive amounts
	ErrInvalidAmount = errors.New("amount must be positive")
)

// Checkpoint records a value from a block onward. Vote, balance and supply
// histories share the shape.
type Checkpoint struct {
	FromBlock uint64   `json:"fromBlock"`
	Value     *big.Int `json:"value"`
}

type ledgerState struct {
	TotalSupply *big.Int                          `json:"totalSupply"`
	Balances    map[common.Address]*big.Int       `json:"balances"`
	Delegates   map[common.Address]common.Address `json:"delegates"`
	Checkpoints map[common.Address][]Checkpoint   `json:"checkpoints"`

	SupplyCheckpoints  []Checkpoint                    `json:"supplyCheckpoints"`
	BalanceCheckpoints map[common.Address][]Checkpoint `json:"balanceCheckpoints"`
}

// Ledger is a stake token with delegation and per-block checkpoints of votes,
// balances and supply. Balances only count as votes once delegated,
// self-delegation included.
//
// Transfer and Delegate act for whichever account they are given. The ledger
// is a local reference oracle; it does not authenticate holders.
type Ledger struct {
	file  *repository.JSONFile
	auth  usecase.Authorizer
	clock usecase.Clock

	mu    sync.RWMutex
	state ledgerState
}

// NewLedger loads the ledger from dataDir
func NewLedger(dataDir string, auth usecase.Authorizer, clock usecase.Clock) (*Ledger, error) {
	l := &Ledger{
		file:  repository.NewJSONFile(dataDir, LedgerFile),
		auth:  auth,
		clock: clock,
	}
	if err := l.file.Load(&l.state); err != nil {
		return nil, fmt.Errorf("failed to load stake ledger: %w", err)
	}
	if l.state.TotalSupply == nil {
		l.state.TotalSupply = new(big.Int)
	}
	if l.state.Balances == nil {
		l.state.Balances = make(map[common.Address]*big.Int)
	}
	if l.state.Delegates == nil {
		l.state.Delegates = make(map[common.Address]common.Address)
	}
	if l.state.Checkpoints == nil {
		l.state.Checkpoints = make(map[common.Address][]Checkpoint)
	}
	if l.state.BalanceCheckpoints == nil {
		l.state.BalanceCheckpoints = make(map[common.Address][]Checkpoint)
	}
	return l, nil
}

// NewLedgerFromConfig loads the ledger from the configured data directory
func NewLedgerFromConfig(cfg *config.RuntimeConfig, auth usecase.Authorizer, clock usecase.Clock) (*Ledger, error) {
	return NewLedger(cfg.DataDir, auth, clock)
}

// NewMemoryLedger returns a ledger that keeps nothing on disk
func NewMemoryLedger(auth usecase.Authorizer, clock usecase.Clock) *Ledger {
	l, _ := NewLedger("", auth, clock)
	return l
}

// BalanceOf returns the account's balance at the chain head
func (l *Ledger) BalanceOf(ctx context.Context, account common.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.balance(account), nil
}

// TotalSupply returns the supply at the chain head
func (l *Ledger) TotalSupply(ctx context.Context) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return new(big.Int).Set(l.state.TotalSupply), nil
}

// Delegates returns the account's delegatee, zero if it never delegated
func (l *Ledger) Delegates(ctx context.Context, account common.Address) (common.Address, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state.Delegates[account], nil
}

// CurrentVotes returns the votes delegated to account at the chain head
func (l *Ledger) CurrentVotes(ctx context.Context, account common.Address) (*big.Int, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cps := l.state.Checkpoints[account]
	if len(cps) == 0 {
		return new(big.Int), nil
	}
	return new(big.Int).Set(cps[len(cps)-1].Value), nil
}

// PriorVotes returns the votes delegated to account at the end of block
func (l *Ledger) PriorVotes(ctx context.Context, account common.Address, block uint64) (*big.Int, error) {
	if err := l.final(block); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return valueAt(l.state.Checkpoints[account], block), nil
}

// PriorBalance returns the account's balance at the end of block
func (l *Ledger) PriorBalance(ctx context.Context, account common.Address, block uint64) (*big.Int, error) {
	if err := l.final(block); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return valueAt(l.state.BalanceCheckpoints[account], block), nil
}

// PastTotalSupply returns the supply at the end of block
func (l *Ledger) PastTotalSupply(ctx context.Context, block uint64) (*big.Int, error) {
	if err := l.final(block); err != nil {
		return nil, err
	}

	l.mu.RLock()
	defer l.mu.RUnlock()
	return valueAt(l.state.SupplyCheckpoints, block), nil
}

// Mint creates stake. Only callers granted the mint operation may call it.
func (l *Ledger) Mint(ctx context.Context, caller, to common.Address, amount *big.Int) error {
	if !l.auth.IsAuthorized(ctx, caller, domain.OpMint) {
		return domain.AuthorizationError{Caller: caller, Operation: domain.OpMint}
	}
	if to == (common.Address{}) {
		return fmt.Errorf("mint to zero address: %w", domain.ErrInvalidAddress)
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	l.state.TotalSupply.Add(l.state.TotalSupply, amount)
	l.state.SupplyCheckpoints = l.checkpoint(l.state.SupplyCheckpoints, func(v *big.Int) { v.Add(v, amount) })
	l.setBalance(to, new(big.Int).Add(l.balance(to), amount))
	l.moveVotes(common.Address{}, l.state.Delegates[to], amount)
	return l.save()
}

// Transfer moves stake and the votes attached to it
func (l *Ledger) Transfer(ctx context.Context, from, to common.Address, amount *big.Int) error {
	if to == (common.Address{}) {
		return fmt.Errorf("transfer to zero address: %w", domain.ErrInvalidAddress)
	}
	if amount == nil || amount.Sign() <= 0 {
		return ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	balance := l.balance(from)
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("%s holds %s, needs %s: %w", from.Hex(), balance, amount, ErrInsufficientBalance)
	}
	l.setBalance(from, balance.Sub(balance, amount))
	l.setBalance(to, new(big.Int).Add(l.balance(to), amount))
	l.moveVotes(l.state.Delegates[from], l.state.Delegates[to], amount)
	return l.save()
}

// Delegate points the delegator's whole balance at delegatee
func (l *Ledger) Delegate(ctx context.Context, delegator, delegatee common.Address) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	previous := l.state.Delegates[delegator]
	if delegatee == (common.Address{}) {
		delete(l.state.Delegates, delegator)
	} else {
		l.state.Delegates[delegator] = delegatee
	}
	l.moveVotes(previous, delegatee, l.balance(delegator))
	return l.save()
}

// Checkpoints returns the vote history of an account
func (l *Ledger) Checkpoints(ctx context.Context, account common.Address) ([]Checkpoint, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	cps := l.state.Checkpoints[account]
	out := make([]Checkpoint, len(cps))
	for i, cp := range cps {
		out[i] = Checkpoint{FromBlock: cp.FromBlock, Value: new(big.Int).Set(cp.Value)}
	}
	return out, nil
}

func (l *Ledger) balance(account common.Address) *big.Int {
	if b, ok := l.state.Balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

func (l *Ledger) setBalance(account common.Address, balance *big.Int) {
	l.state.Balances[account] = balance
	l.state.BalanceCheckpoints[account] = l.checkpoint(l.state.BalanceCheckpoints[account], func(v *big.Int) { v.Set(balance) })
}

// final rejects the current and future blocks, whose values may still change
func (l *Ledger) final(block uint64) error {
	if current := l.clock.BlockNumber(); block >= current {
		return fmt.Errorf("block %d at head %d: %w", block, current, ErrBlockNotFinal)
	}
	return nil
}

// valueAt reads a checkpoint list at the end of block
func valueAt(cps []Checkpoint, block uint64) *big.Int {
	// first checkpoint strictly after block
	i := sort.Search(len(cps), func(i int) bool { return cps[i].FromBlock > block })
	if i == 0 {
		return new(big.Int)
	}
	return new(big.Int).Set(cps[i-1].Value)
}

// moveVotes shifts amount between two delegatees. The zero address holds no votes.
func (l *Ledger) moveVotes(from, to common.Address, amount *big.Int) {
	if from == to || amount.Sign() == 0 {
		return
	}
	if from != (common.Address{}) {
		l.state.Checkpoints[from] = l.checkpoint(l.state.Checkpoints[from], func(v *big.Int) { v.Sub(v, amount) })
	}
	if to != (common.Address{}) {
		l.state.Checkpoints[to] = l.checkpoint(l.state.Checkpoints[to], func(v *big.Int) { v.Add(v, amount) })
	}
}

// checkpoint applies update to the latest value and records it at the head
// block, overwriting an entry already written in the same block
func (l *Ledger) checkpoint(cps []Checkpoint, update func(*big.Int)) []Checkpoint {
	block := l.clock.BlockNumber()

	value := new(big.Int)
	if len(cps) > 0 {
		value.Set(cps[len(cps)-1].Value)
	}
	update(value)

	if len(cps) > 0 && cps[len(cps)-1].FromBlock == block {
		cps[len(cps)-1].Value = value
	} else {
		cps = append(cps, Checkpoint{FromBlock: block, Value: value})
	}
	return cps
}

func (l *Ledger) save() error {
	if err := l.file.Save(&l.state); err != nil {
		return fmt.Errorf("failed to save stake ledger: %w", err)
	}
	return nil
}

var _ usecase.StakeLedger = (*Ledger)(nil)
