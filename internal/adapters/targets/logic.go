package targets

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// OwnerSlot is the storage slot holding the executor's owner. Logic running
// inside the executor can reach it like any other slot.
var OwnerSlot = crypto.Keccak256Hash([]byte("mgl-governance.executor.owner"))

var (
	// ErrUnknownMethod is returned for payloads whose selector the logic does not expose
	ErrUnknownMethod = errors.New("unknown method")
	// ErrUnknownLogic is returned when a configured logic name has no implementation
	ErrUnknownLogic = errors.New("unknown logic")
)

// Storage is the word-addressed storage a logic module runs against
type Storage interface {
	Get(slot common.Hash) common.Hash
	Set(slot, value common.Hash)
}

// Env is the execution context handed to a logic module
type Env struct {
	// Self is the executor whose storage and identity the logic runs with
	Self common.Address
	// Target is the address the logic is installed at
	Target common.Address
	// Caller is whoever asked the executor to run
	Caller  common.Address
	Storage Storage
}

// Logic is code installed at a target address
type Logic interface {
	Name() string
	Version() uint64
	// Code is the deployed representation the fingerprint is taken over
	Code() []byte
	ABI() abi.ABI
	Call(ctx context.Context, env Env, payload []byte) ([]byte, error)
}

// Fingerprint is the code identity of a logic module
func Fingerprint(logic Logic) common.Hash {
	return crypto.Keccak256Hash(logic.Code())
}

// handler runs one decoded method
type handler func(ctx context.Context, env Env, args []interface{}) ([]byte, error)

// module is the shared implementation of the built-in logic modules
type module struct {
	name     string
	version  uint64
	abiJSON  string
	abi      abi.ABI
	handlers map[string]handler
}

func newModule(name string, version uint64, abiJSON string) (*module, error) {
	parsed, err := abi.JSON(strings.NewReader(abiJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s abi: %w", name, err)
	}
	return &module{
		name:     name,
		version:  version,
		abiJSON:  abiJSON,
		abi:      parsed,
		handlers: make(map[string]handler),
	}, nil
}

func (m *module) handle(method string, h handler) {
	m.handlers[method] = h
}

func (m *module) Name() string    { return m.name }
func (m *module) Version() uint64 { return m.version }
func (m *module) ABI() abi.ABI    { return m.abi }

func (m *module) Code() []byte {
	return []byte(fmt.Sprintf("%s@%d:%s", m.name, m.version, m.abiJSON))
}

func (m *module) Call(ctx context.Context, env Env, payload []byte) ([]byte, error) {
	method, args, err := DecodeCall(m.abi, payload)
	if err != nil {
		return nil, err
	}
	h, ok := m.handlers[method.Name]
	if !ok {
		return nil, fmt.Errorf("%s: %w", method.Name, ErrUnknownMethod)
	}
	return h(ctx, env, args)
}

// slotFor derives a namespaced storage slot
func slotFor(namespace, key string) common.Hash {
	return crypto.Keccak256Hash([]byte(namespace), []byte(key))
}
