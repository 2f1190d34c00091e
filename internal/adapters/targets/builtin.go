package targets

import (
	"context"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

// Built-in logic names accepted in governance.toml
const (
	LogicParameters    = "parameters"
	LogicQuorum        = "quorum"
	LogicTimelockDelay = "timelock-delay"
	LogicStorage       = "storage"
)

const parametersABI = `[
	{"type":"function","name":"setParameter","stateMutability":"nonpayable",
	 "inputs":[{"name":"name","type":"string"},{"name":"value","type":"uint256"}],"outputs":[]},
	{"type":"function","name":"getParameter","stateMutability":"view",
	 "inputs":[{"name":"name","type":"string"}],"outputs":[{"name":"value","type":"uint256"}]}
]`

const quorumABI = `[
	{"type":"function","name":"setQuorumPercentage","stateMutability":"nonpayable",
	 "inputs":[{"name":"percentage","type":"uint256"}],"outputs":[]}
]`

const timelockDelayABI = `[
	{"type":"function","name":"setDelay","stateMutability":"nonpayable",
	 "inputs":[{"name":"delay","type":"uint256"}],"outputs":[]}
]`

const storageABI = `[
	{"type":"function","name":"store","stateMutability":"nonpayable",
	 "inputs":[{"name":"slot","type":"bytes32"},{"name":"value","type":"bytes32"}],"outputs":[]},
	{"type":"function","name":"load","stateMutability":"view",
	 "inputs":[{"name":"slot","type":"bytes32"}],"outputs":[{"name":"value","type":"bytes32"}]}
]`

var uint256Args = abi.Arguments{{Type: mustType("uint256")}}
var bytes32Args = abi.Arguments{{Type: mustType("bytes32")}}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// QuorumSetter is the governor surface the quorum logic drives
type QuorumSetter interface {
	SetQuorumPercentage(ctx context.Context, caller common.Address, pct uint64) error
}

// DelaySetter is the timelock surface the delay logic drives
type DelaySetter interface {
	SetDelay(ctx context.Context, caller common.Address, delay uint64) error
}

// ParameterSlot is where the parameters logic keeps name
func ParameterSlot(name string) common.Hash {
	return slotFor(LogicParameters, name)
}

// NewParameters returns a named uint256 parameter store
func NewParameters(version uint64) (Logic, error) {
	m, err := newModule(LogicParameters, version, parametersABI)
	if err != nil {
		return nil, err
	}
	m.handle("setParameter", func(ctx context.Context, env Env, args []interface{}) ([]byte, error) {
		name := args[0].(string)
		value := args[1].(*big.Int)
		env.Storage.Set(ParameterSlot(name), common.BigToHash(value))
		return nil, nil
	})
	m.handle("getParameter", func(ctx context.Context, env Env, args []interface{}) ([]byte, error) {
		value := env.Storage.Get(ParameterSlot(args[0].(string))).Big()
		return uint256Args.Pack(value)
	})
	return m, nil
}

// NewQuorum returns logic that retunes the governor's quorum fraction
// with the executor as caller
func NewQuorum(version uint64, governor QuorumSetter) (Logic, error) {
	m, err := newModule(LogicQuorum, version, quorumABI)
	if err != nil {
		return nil, err
	}
	m.handle("setQuorumPercentage", func(ctx context.Context, env Env, args []interface{}) ([]byte, error) {
		pct, err := uint64Arg(args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		return nil, governor.SetQuorumPercentage(ctx, env.Self, pct)
	})
	return m, nil
}

// NewTimelockDelay returns logic that retunes the timelock delay with the
// executor as caller
func NewTimelockDelay(version uint64, timelock DelaySetter) (Logic, error) {
	m, err := newModule(LogicTimelockDelay, version, timelockDelayABI)
	if err != nil {
		return nil, err
	}
	m.handle("setDelay", func(ctx context.Context, env Env, args []interface{}) ([]byte, error) {
		delay, err := uint64Arg(args[0].(*big.Int))
		if err != nil {
			return nil, err
		}
		return nil, timelock.SetDelay(ctx, env.Self, delay)
	})
	return m, nil
}

// NewStorage returns raw slot access to the executor's storage
func NewStorage(version uint64) (Logic, error) {
	m, err := newModule(LogicStorage, version, storageABI)
	if err != nil {
		return nil, err
	}
	m.handle("store", func(ctx context.Context, env Env, args []interface{}) ([]byte, error) {
		env.Storage.Set(common.Hash(args[0].([32]byte)), common.Hash(args[1].([32]byte)))
		return nil, nil
	})
	m.handle("load", func(ctx context.Context, env Env, args []interface{}) ([]byte, error) {
		return bytes32Args.Pack(env.Storage.Get(common.Hash(args[0].([32]byte))))
	})
	return m, nil
}

func uint64Arg(v *big.Int) (uint64, error) {
	if !v.IsUint64() {
		return 0, fmt.Errorf("%s does not fit in 64 bits", v)
	}
	return v.Uint64(), nil
}
