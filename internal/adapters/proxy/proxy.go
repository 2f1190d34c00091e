package proxy

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/adapters/repository"
	"github.com/money-god/mgl-governance/internal/adapters/targets"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/usecase"
)

const ProxyFile = "executor.json"

// ErrNoLogic is returned when a payload targets an address without logic
var ErrNoLogic = errors.New("no logic at target")

// LogicResolver finds the logic installed at a target
type LogicResolver interface {
	Logic(address common.Address) (targets.Logic, bool)
}

// Proxy is the execution context for scheduled actions. Target logic runs
// against the proxy's storage with the proxy as identity; only the owner may
// ask it to run.
type Proxy struct {
	address  common.Address
	resolver LogicResolver
	file     *repository.JSONFile
	log      *slog.Logger

	mu      sync.Mutex
	storage map[common.Hash]common.Hash
	// undo holds the previous value of every slot the last successful run
	// wrote; a nil entry means the slot was empty
	undo map[common.Hash]*common.Hash
}

// NewProxy loads the proxy storage from dataDir. A fresh proxy is owned by owner.
func NewProxy(dataDir string, address, owner common.Address, resolver LogicResolver, log *slog.Logger) (*Proxy, error) {
	p := &Proxy{
		address:  address,
		resolver: resolver,
		file:     repository.NewJSONFile(dataDir, ProxyFile),
		log:      log.With("component", "executor"),
		storage:  make(map[common.Hash]common.Hash),
	}
	if err := p.file.Load(&p.storage); err != nil {
		return nil, fmt.Errorf("failed to load executor storage: %w", err)
	}
	if p.storage == nil {
		p.storage = make(map[common.Hash]common.Hash)
	}
	if _, ok := p.storage[targets.OwnerSlot]; !ok {
		p.storage[targets.OwnerSlot] = common.BytesToHash(owner.Bytes())
		if err := p.save(); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// NewProxyFromConfig creates the executor owned by the timelock queue
func NewProxyFromConfig(cfg *config.RuntimeConfig, registry *targets.Registry, log *slog.Logger) (*Proxy, error) {
	addrs := cfg.Governance.Addresses
	return NewProxy(cfg.DataDir, addrs.Executor, addrs.Timelock, registry, log)
}

func (p *Proxy) Address() common.Address {
	return p.address
}

// Owner reads the owner slot
func (p *Proxy) Owner(ctx context.Context) (common.Address, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return common.BytesToAddress(p.storage[targets.OwnerSlot].Bytes()), nil
}

// Load reads a storage slot
func (p *Proxy) Load(slot common.Hash) common.Hash {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.storage[slot]
}

// Run executes payload against the logic at target. Storage writes are
// committed only when the logic returns without error.
func (p *Proxy) Run(ctx context.Context, caller, target common.Address, payload []byte) ([]byte, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	owner := common.BytesToAddress(p.storage[targets.OwnerSlot].Bytes())
	if caller != owner {
		return nil, domain.AuthorizationError{Caller: caller, Operation: domain.OpRun}
	}

	logic, ok := p.resolver.Logic(target)
	if !ok {
		return nil, domain.CallFailedError{Target: target, Err: ErrNoLogic}
	}

	j := newJournal(p.storage)
	output, err := logic.Call(ctx, targets.Env{
		Self:    p.address,
		Target:  target,
		Caller:  caller,
		Storage: j,
	}, payload)
	if err != nil {
		p.log.Debug("call reverted", "target", target.Hex(), "logic", logic.Name(), "error", err)
		return nil, domain.CallFailedError{Target: target, Err: err}
	}

	p.undo = j.commit(p.storage)
	if err := p.save(); err != nil {
		p.rollback()
		return nil, err
	}
	return output, nil
}

// Revert undoes the writes of the most recent successful run
func (p *Proxy) Revert(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.undo == nil {
		return nil
	}
	p.rollback()
	return p.save()
}

func (p *Proxy) rollback() {
	for slot, prev := range p.undo {
		if prev == nil {
			delete(p.storage, slot)
		} else {
			p.storage[slot] = *prev
		}
	}
	p.undo = nil
}

func (p *Proxy) save() error {
	if err := p.file.Save(p.storage); err != nil {
		return fmt.Errorf("failed to save executor storage: %w", err)
	}
	return nil
}

// journal buffers writes over a base storage map
type journal struct {
	base  map[common.Hash]common.Hash
	dirty map[common.Hash]common.Hash
}

func newJournal(base map[common.Hash]common.Hash) *journal {
	return &journal{base: base, dirty: make(map[common.Hash]common.Hash)}
}

func (j *journal) Get(slot common.Hash) common.Hash {
	if v, ok := j.dirty[slot]; ok {
		return v
	}
	return j.base[slot]
}

func (j *journal) Set(slot, value common.Hash) {
	j.dirty[slot] = value
}

// commit applies the writes and returns what they replaced
func (j *journal) commit(storage map[common.Hash]common.Hash) map[common.Hash]*common.Hash {
	undo := make(map[common.Hash]*common.Hash, len(j.dirty))
	for slot, value := range j.dirty {
		if prev, ok := storage[slot]; ok {
			undo[slot] = &prev
		} else {
			undo[slot] = nil
		}
		storage[slot] = value
	}
	return undo
}

var _ usecase.Executor = (*Proxy)(nil)
