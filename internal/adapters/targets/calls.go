package targets

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

// EncodeCall packs a method call from command-line arguments
func EncodeCall(contractABI abi.ABI, method string, args []string) (hexutil.Bytes, error) {
	m, ok := contractABI.Methods[method]
	if !ok {
		return nil, fmt.Errorf("%s: %w", method, ErrUnknownMethod)
	}
	if len(args) != len(m.Inputs) {
		return nil, fmt.Errorf("%s takes %d arguments, got %d", m.Sig, len(m.Inputs), len(args))
	}

	values := make([]interface{}, len(args))
	for i, input := range m.Inputs {
		v, err := ParseArg(input.Type, args[i])
		if err != nil {
			return nil, fmt.Errorf("argument %d (%s) of %s: %w", i, input.Name, m.Sig, err)
		}
		values[i] = v
	}

	data, err := contractABI.Pack(method, values...)
	if err != nil {
		return nil, fmt.Errorf("failed to encode %s: %w", m.Sig, err)
	}
	return data, nil
}

// DecodeCall resolves the method a payload selects and unpacks its arguments
func DecodeCall(contractABI abi.ABI, payload []byte) (*abi.Method, []interface{}, error) {
	if len(payload) < 4 {
		return nil, nil, fmt.Errorf("payload of %d bytes has no selector: %w", len(payload), ErrUnknownMethod)
	}
	method, err := contractABI.MethodById(payload[:4])
	if err != nil {
		return nil, nil, fmt.Errorf("selector %s: %w", hexutil.Encode(payload[:4]), ErrUnknownMethod)
	}
	args, err := method.Inputs.Unpack(payload[4:])
	if err != nil {
		return nil, nil, fmt.Errorf("failed to decode %s: %w", method.Sig, err)
	}
	return method, args, nil
}

// DescribeCall renders a payload as name(arg, ...) when the abi knows it
func DescribeCall(contractABI abi.ABI, payload []byte) string {
	method, args, err := DecodeCall(contractABI, payload)
	if err != nil {
		return hexutil.Encode(payload)
	}
	parts := make([]string, len(args))
	for i, arg := range args {
		switch v := arg.(type) {
		case [32]byte:
			parts[i] = common.Hash(v).Hex()
		case common.Address:
			parts[i] = v.Hex()
		case []byte:
			parts[i] = hexutil.Encode(v)
		case string:
			parts[i] = strconv.Quote(v)
		default:
			parts[i] = fmt.Sprint(v)
		}
	}
	return fmt.Sprintf("%s(%s)", method.Name, strings.Join(parts, ", "))
}

// ParseArg converts a command-line string into the Go value abi packing expects
func ParseArg(t abi.Type, s string) (interface{}, error) {
	switch t.T {
	case abi.StringTy:
		return s, nil
	case abi.BoolTy:
		return strconv.ParseBool(s)
	case abi.AddressTy:
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("%q is not an address", s)
		}
		return common.HexToAddress(s), nil
	case abi.UintTy, abi.IntTy:
		n, ok := new(big.Int).SetString(s, 0)
		if !ok {
			return nil, fmt.Errorf("%q is not an integer", s)
		}
		if t.T == abi.UintTy && n.Sign() < 0 {
			return nil, fmt.Errorf("%q is negative", s)
		}
		if t.Size > 64 {
			return n, nil
		}
		return smallInt(t, n)
	case abi.FixedBytesTy:
		if t.Size != 32 {
			return nil, fmt.Errorf("unsupported type %s", t.String())
		}
		b, err := hexutil.Decode(s)
		if err != nil {
			return nil, err
		}
		if len(b) > 32 {
			return nil, fmt.Errorf("%q is longer than 32 bytes", s)
		}
		return common.BytesToHash(b), nil
	case abi.BytesTy:
		return hexutil.Decode(s)
	}
	return nil, fmt.Errorf("unsupported type %s", t.String())
}

// smallInt narrows integers of 64 bits or less to the fixed-size Go type abi expects
func smallInt(t abi.Type, n *big.Int) (interface{}, error) {
	if t.T == abi.UintTy {
		if !n.IsUint64() || n.BitLen() > t.Size {
			return nil, fmt.Errorf("%s overflows %s", n, t.String())
		}
		v := n.Uint64()
		switch t.Size {
		case 8:
			return uint8(v), nil
		case 16:
			return uint16(v), nil
		case 32:
			return uint32(v), nil
		default:
			return v, nil
		}
	}
	if !n.IsInt64() || n.BitLen() >= t.Size {
		return nil, fmt.Errorf("%s overflows %s", n, t.String())
	}
	v := n.Int64()
	switch t.Size {
	case 8:
		return int8(v), nil
	case 16:
		return int16(v), nil
	case 32:
		return int32(v), nil
	default:
		return v, nil
	}
}
