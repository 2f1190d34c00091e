package targets

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/money-god/mgl-governance/internal/domain"
	"github.com/money-god/mgl-governance/internal/domain/config"
	"github.com/money-god/mgl-governance/internal/usecase"
)

// Installed describes logic bound to an address
type Installed struct {
	Name        string
	Address     common.Address
	Logic       Logic
	Fingerprint common.Hash
}

// Registry maps target addresses to the logic installed there
type Registry struct {
	auth usecase.Authorizer

	mu      sync.RWMutex
	byAddr  map[common.Address]Installed
	aliases map[string]common.Address
}

// NewRegistry creates an empty registry
func NewRegistry(auth usecase.Authorizer) *Registry {
	return &Registry{
		auth:    auth,
		byAddr:  make(map[common.Address]Installed),
		aliases: make(map[string]common.Address),
	}
}

// Install binds logic to address under an alias, replacing whatever was there
func (r *Registry) Install(name string, address common.Address, logic Logic) Installed {
	r.mu.Lock()
	defer r.mu.Unlock()

	installed := Installed{
		Name:        name,
		Address:     address,
		Logic:       logic,
		Fingerprint: Fingerprint(logic),
	}
	r.byAddr[address] = installed
	if name != "" {
		r.aliases[name] = address
	}
	return installed
}

// SetTarget replaces the logic at an installed address. Callers need the
// setTarget grant.
func (r *Registry) SetTarget(ctx context.Context, caller, address common.Address, logic Logic) error {
	if !r.auth.IsAuthorized(ctx, caller, domain.OpSetTarget) {
		return domain.AuthorizationError{Caller: caller, Operation: domain.OpSetTarget}
	}

	r.mu.RLock()
	current, ok := r.byAddr[address]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("target %s: %w", address.Hex(), domain.ErrNotFound)
	}
	r.Install(current.Name, address, logic)
	return nil
}

// Logic returns the logic installed at address
func (r *Registry) Logic(address common.Address) (Logic, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	installed, ok := r.byAddr[address]
	return installed.Logic, ok
}

// CodeHash returns the fingerprint of the logic at target, zero when empty
func (r *Registry) CodeHash(ctx context.Context, target common.Address) (common.Hash, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.byAddr[target].Fingerprint, nil
}

// Resolve accepts either an alias or a hex address
func (r *Registry) Resolve(nameOrAddress string) (common.Address, error) {
	r.mu.RLock()
	addr, ok := r.aliases[nameOrAddress]
	r.mu.RUnlock()
	if ok {
		return addr, nil
	}
	if common.IsHexAddress(nameOrAddress) {
		return common.HexToAddress(nameOrAddress), nil
	}
	return common.Address{}, fmt.Errorf("target %q: %w", nameOrAddress, domain.ErrNotFound)
}

// Entries lists installed targets ordered by alias
func (r *Registry) Entries() []Installed {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Installed, 0, len(r.byAddr))
	for _, installed := range r.byAddr {
		entries = append(entries, installed)
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Name != entries[j].Name {
			return entries[i].Name < entries[j].Name
		}
		return entries[i].Address.Hex() < entries[j].Address.Hex()
	})
	return entries
}

// Build instantiates a built-in logic module by name
func Build(name string, version uint64, governor QuorumSetter, timelock DelaySetter) (Logic, error) {
	switch name {
	case LogicParameters:
		return NewParameters(version)
	case LogicQuorum:
		return NewQuorum(version, governor)
	case LogicTimelockDelay:
		return NewTimelockDelay(version, timelock)
	case LogicStorage:
		return NewStorage(version)
	}
	return nil, fmt.Errorf("%q: %w", name, ErrUnknownLogic)
}

// InstallConfigured installs every target of the active profile. A target
// without an address gets one derived from its name.
func InstallConfigured(cfg *config.RuntimeConfig, r *Registry, governor QuorumSetter, timelock DelaySetter) ([]Installed, error) {
	installed := make([]Installed, 0, len(cfg.Governance.Targets))
	for _, t := range cfg.Governance.Targets {
		logic, err := Build(t.Logic, t.Version, governor, timelock)
		if err != nil {
			return nil, fmt.Errorf("target %s: %w", t.Name, err)
		}
		address := t.Address
		if address == (common.Address{}) {
			address = config.ComponentAddress("target." + t.Name)
		}
		installed = append(installed, r.Install(t.Name, address, logic))
	}
	return installed, nil
}

var _ usecase.CodeRegistry = (*Registry)(nil)
