package nft

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/goran-ethernal/NFTIndexor/pkg/config"
)

// tokenStandard describes the capabilities of one NFT contract variant.
// The shared reconciliation and ownership routines are parameterized by it,
// which keeps the differences between the two standards explicit.
type tokenStandard struct {
	// name is the standard identifier used in config and diagnostics
	name string

	// tracksSupply reports whether fresh mints bump the contract's
	// cumulative minted-supply counter
	tracksSupply bool

	// validatesPreviousOwner reports whether ownership-transfer events are
	// checked against the recorded contract owner before being applied
	validatesPreviousOwner bool

	// topics are the event signatures emitted by contracts of this standard
	topics []common.Hash
}

var (
	standardNFT721 = tokenStandard{
		name:                   config.StandardNFT721,
		tracksSupply:           false,
		validatesPreviousOwner: true,
		topics: []common.Hash{
			transferTopic,
			ownershipTransferredTopic,
			baseURIChangedTopic,
			revealedTopic,
		},
	}

	standardNFT1155 = tokenStandard{
		name:                   config.StandardNFT1155,
		tracksSupply:           true,
		validatesPreviousOwner: true,
		topics: []common.Hash{
			transferSingleTopic,
			ownershipTransferredTopic,
			uriTopic,
		},
	}
)

// standardByName resolves a configured standard string to its descriptor.
func standardByName(name string) (tokenStandard, error) {
	switch name {
	case config.StandardNFT721:
		return standardNFT721, nil
	case config.StandardNFT1155:
		return standardNFT1155, nil
	default:
		return tokenStandard{}, fmt.Errorf("unknown token standard: %s", name)
	}
}

// Event signature hashes for both standards.
var (
	transferTopic             = crypto.Keccak256Hash([]byte("Transfer(address,address,uint256)"))
	transferSingleTopic       = crypto.Keccak256Hash([]byte("TransferSingle(address,address,address,uint256,uint256)"))
	ownershipTransferredTopic = crypto.Keccak256Hash([]byte("OwnershipTransferred(address,address)"))
	baseURIChangedTopic       = crypto.Keccak256Hash([]byte("BaseURIChanged(string)"))
	revealedTopic             = crypto.Keccak256Hash([]byte("Revealed(address)"))
	uriTopic                  = crypto.Keccak256Hash([]byte("URI(string,uint256)"))
)

// eventNames maps event signature hashes to display names used in
// diagnostics and transaction records.
var eventNames = map[common.Hash]string{
	transferTopic:             "Transfer",
	transferSingleTopic:       "TransferSingle",
	ownershipTransferredTopic: "OwnershipTransferred",
	baseURIChangedTopic:       "BaseURIChanged",
	revealedTopic:             "Revealed",
	uriTopic:                  "URI",
}
