package models

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/samber/lo"
)

var (
	addressTy      = mustType("address")
	addressSliceTy = mustType("address[]")
	bytes32Ty      = mustType("bytes32")
	bytesTy        = mustType("bytes")
	bytesSliceTy   = mustType("bytes[]")
	uint256Ty      = mustType("uint256")

	actionKeyArgs  = abi.Arguments{{Type: addressTy}, {Type: bytes32Ty}, {Type: bytesTy}, {Type: uint256Ty}}
	contentKeyArgs = abi.Arguments{{Type: addressTy}, {Type: bytes32Ty}, {Type: bytesTy}}
	proposalIDArgs = abi.Arguments{{Type: addressSliceTy}, {Type: bytesSliceTy}, {Type: bytes32Ty}}
	batchIdentArgs = abi.Arguments{{Type: addressSliceTy}, {Type: bytesSliceTy}, {Type: uint256Ty}}
)

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

// hashPacked abi-encodes values and returns their keccak256 digest.
// The argument lists above are static and the inputs typed, so Pack cannot fail.
func hashPacked(args abi.Arguments, values ...any) common.Hash {
	data, err := args.Pack(values...)
	if err != nil {
		panic(err)
	}
	return crypto.Keccak256Hash(data)
}

func rawPayloads(payloads []hexutil.Bytes) [][]byte {
	return lo.Map(payloads, func(p hexutil.Bytes, _ int) []byte {
		if p == nil {
			return []byte{}
		}
		return []byte(p)
	})
}

func u256(v uint64) *big.Int {
	return new(big.Int).SetUint64(v)
}

// HashDescription returns the keccak256 digest of a proposal description
func HashDescription(description string) common.Hash {
	return crypto.Keccak256Hash([]byte(description))
}

// HashProposal derives a proposal id from its ordered targets, payloads and description hash
func HashProposal(targets []common.Address, payloads []hexutil.Bytes, descriptionHash common.Hash) common.Hash {
	return hashPacked(proposalIDArgs, targets, rawPayloads(payloads), [32]byte(descriptionHash))
}

// ProposalIdentity maps an ordered batch and its eta into the address space.
//
// The identity is never executed; it only names the batch so stake can be
// delegated to it before the batch is scheduled. Callers check lengths.
func ProposalIdentity(targets []common.Address, payloads []hexutil.Bytes, eta uint64) common.Address {
	digest := hashPacked(batchIdentArgs, targets, rawPayloads(payloads), u256(eta))
	return common.BytesToAddress(digest.Bytes()[12:])
}
