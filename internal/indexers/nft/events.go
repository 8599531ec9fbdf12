package nft

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const (
	transferTopicsCount             = 4 // signature + from + to + tokenId, all indexed
	transferSingleTopicsCount       = 4 // signature + operator + from + to
	transferSingleDataSize          = 64
	ownershipTransferredTopicsCount = 3 // signature + previousOwner + newOwner
	uriTopicsCount                  = 2 // signature + tokenId
)

// stringArgs decodes a single ABI-encoded string from event data.
var stringArgs = func() abi.Arguments {
	stringType, err := abi.NewType("string", "", nil)
	if err != nil {
		panic(err)
	}
	return abi.Arguments{{Type: stringType}}
}()

// transferEvent is a decoded transfer-type event, normalized across the two
// standards. Quantity is always 1 for the single-token standard.
type transferEvent struct {
	From     common.Address
	To       common.Address
	TokenID  *big.Int
	Quantity uint64
}

// decodeTransfer decodes Transfer(address indexed, address indexed, uint256 indexed).
func decodeTransfer(log *types.Log) (*transferEvent, error) {
	if len(log.Topics) != transferTopicsCount {
		return nil, fmt.Errorf("invalid Transfer event: expected %d topics, got %d",
			transferTopicsCount, len(log.Topics))
	}

	return &transferEvent{
		From:     common.BytesToAddress(log.Topics[1].Bytes()),
		To:       common.BytesToAddress(log.Topics[2].Bytes()),
		TokenID:  new(big.Int).SetBytes(log.Topics[3].Bytes()),
		Quantity: 1,
	}, nil
}

// decodeTransferSingle decodes
// TransferSingle(address indexed operator, address indexed from, address indexed to, uint256 id, uint256 value).
func decodeTransferSingle(log *types.Log) (*transferEvent, error) {
	if len(log.Topics) != transferSingleTopicsCount {
		return nil, fmt.Errorf("invalid TransferSingle event: expected %d topics, got %d",
			transferSingleTopicsCount, len(log.Topics))
	}

	if len(log.Data) != transferSingleDataSize {
		return nil, fmt.Errorf("invalid TransferSingle event: expected %d bytes of data, got %d",
			transferSingleDataSize, len(log.Data))
	}

	id := new(big.Int).SetBytes(log.Data[:32])
	value := new(big.Int).SetBytes(log.Data[32:])

	if !value.IsUint64() {
		return nil, fmt.Errorf("invalid TransferSingle event: quantity %s out of range", value)
	}

	return &transferEvent{
		From:     common.BytesToAddress(log.Topics[2].Bytes()),
		To:       common.BytesToAddress(log.Topics[3].Bytes()),
		TokenID:  id,
		Quantity: value.Uint64(),
	}, nil
}

// ownershipTransferEvent is a decoded OwnershipTransferred event.
type ownershipTransferEvent struct {
	PreviousOwner common.Address
	NewOwner      common.Address
}

// decodeOwnershipTransferred decodes
// OwnershipTransferred(address indexed previousOwner, address indexed newOwner).
func decodeOwnershipTransferred(log *types.Log) (*ownershipTransferEvent, error) {
	if len(log.Topics) != ownershipTransferredTopicsCount {
		return nil, fmt.Errorf("invalid OwnershipTransferred event: expected %d topics, got %d",
			ownershipTransferredTopicsCount, len(log.Topics))
	}

	return &ownershipTransferEvent{
		PreviousOwner: common.BytesToAddress(log.Topics[1].Bytes()),
		NewOwner:      common.BytesToAddress(log.Topics[2].Bytes()),
	}, nil
}

// decodeBaseURIChanged decodes BaseURIChanged(string baseURI).
func decodeBaseURIChanged(log *types.Log) (string, error) {
	values, err := stringArgs.Unpack(log.Data)
	if err != nil {
		return "", fmt.Errorf("invalid BaseURIChanged event: %w", err)
	}

	uri, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("invalid BaseURIChanged event: unexpected payload type %T", values[0])
	}

	return uri, nil
}

// decodeURI decodes URI(string value, uint256 indexed id).
func decodeURI(log *types.Log) (string, error) {
	if len(log.Topics) != uriTopicsCount {
		return "", fmt.Errorf("invalid URI event: expected %d topics, got %d",
			uriTopicsCount, len(log.Topics))
	}

	values, err := stringArgs.Unpack(log.Data)
	if err != nil {
		return "", fmt.Errorf("invalid URI event: %w", err)
	}

	uri, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("invalid URI event: unexpected payload type %T", values[0])
	}

	return uri, nil
}
