package nft

import (
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/NFTIndexor/internal/common"
)

// Token is the derived entity for a single (contract, token id) pair.
// Owners is append-only: index 0 is the minter, the last element is the
// current holder. Minter and TokenID never change after creation.
type Token struct {
	ID          int64          `meddler:"id,pk" json:"-"`
	Key         string         `meddler:"token_key" json:"id"`
	Contract    common.Address `meddler:"contract_address,address" json:"contract"`
	Minter      common.Address `meddler:"minter,address" json:"minter"`
	Owners      []string       `meddler:"owners,json" json:"owners"`
	TokenID     string         `meddler:"token_id" json:"token_id"`
	BlockNumber uint64         `meddler:"block_number" json:"block_number"`
	TxID        string         `meddler:"tx_id" json:"transaction"`
}

// CurrentOwner returns the last element of the ownership history.
func (t *Token) CurrentOwner() string {
	if len(t.Owners) == 0 {
		return ""
	}
	return t.Owners[len(t.Owners)-1]
}

// Contract is the derived entity for a deployed NFT contract.
// Rows are seeded at indexer startup; event handlers load and mutate them
// but never create new ones.
type Contract struct {
	ID             int64          `meddler:"id,pk" json:"-"`
	Address        common.Address `meddler:"address,address" json:"id"`
	Standard       string         `meddler:"standard" json:"standard"`
	Owner          common.Address `meddler:"owner,address" json:"owner"`
	BaseURI        string         `meddler:"base_uri" json:"base_uri"`
	IsRevealed     bool           `meddler:"is_revealed" json:"is_revealed"`
	RevealURL      string         `meddler:"reveal_url" json:"reveal_url"`
	MaxSupply      uint64         `meddler:"max_supply" json:"max_supply"`
	IsOwnerChanged bool           `meddler:"is_owner_changed" json:"is_owner_changed"`
	BlockNumber    uint64         `meddler:"block_number" json:"block_number"`
	TxID           string         `meddler:"tx_id" json:"transaction"`
}

// Minter is the per-(minter, contract) mint aggregate.
// Updated only on fresh mints, never on transfers.
type Minter struct {
	ID            int64          `meddler:"id,pk" json:"-"`
	Key           string         `meddler:"minter_key" json:"id"`
	Address       common.Address `meddler:"minter,address" json:"minter"`
	Contract      common.Address `meddler:"contract_address,address" json:"contract"`
	MintCount     uint64         `meddler:"mint_count" json:"mint_count"`
	TokenIDs      []string       `meddler:"token_ids,json" json:"token_ids"`
	LastMintBlock uint64         `meddler:"last_mint_block" json:"last_mint_block"`
}

// Transaction records one processed event. Its key stamps provenance on the
// entities the event mutated.
type Transaction struct {
	ID          int64          `meddler:"id,pk" json:"-"`
	Key         string         `meddler:"tx_key" json:"id"`
	BlockNumber uint64         `meddler:"block_number" json:"block_number"`
	Contract    common.Address `meddler:"contract_address,address" json:"contract"`
	Topic       string         `meddler:"topic" json:"topic"`
	EventName   string         `meddler:"event_name" json:"event_name"`
}

// tokenKey builds the composite token key: lowercase contract address
// joined with the decimal token id.
func tokenKey(contract common.Address, tokenID string) string {
	return fmt.Sprintf("%s_%s", icommon.ToLowerWithTrim(contract.Hex()), tokenID)
}

// minterKey builds the composite minter aggregate key.
func minterKey(minter, contract common.Address) string {
	return fmt.Sprintf("%s_%s",
		icommon.ToLowerWithTrim(minter.Hex()),
		icommon.ToLowerWithTrim(contract.Hex()))
}

// transactionKey builds the per-event transaction key from the emitting
// transaction hash and the log index within the block.
func transactionKey(txHash common.Hash, logIndex uint) string {
	return fmt.Sprintf("%s_%d", txHash.Hex(), logIndex)
}
