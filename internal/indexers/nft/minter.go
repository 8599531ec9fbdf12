package nft

import (
	"github.com/ethereum/go-ethereum/common"
)

// recordMint creates or increments the per-(minter, contract) aggregate and
// associates the minted token id with it. Only the fresh-mint branch of the
// reconciler calls this, which makes the update at-most-once per token id.
func (n *NFTIndexer) recordMint(
	s *entityStore,
	minterAddr, contractAddr common.Address,
	tokenID string,
	quantity uint64,
	blockNumber uint64,
) error {
	key := minterKey(minterAddr, contractAddr)

	minter, err := s.loadMinter(key)
	if err != nil {
		return err
	}

	if minter == nil {
		minter = &Minter{
			Key:      key,
			Address:  minterAddr,
			Contract: contractAddr,
			TokenIDs: make([]string, 0, 1),
		}
	}

	minter.MintCount += quantity
	minter.TokenIDs = append(minter.TokenIDs, tokenID)
	minter.LastMintBlock = blockNumber

	return s.saveMinter(minter)
}
