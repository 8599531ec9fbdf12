package nft

import (
	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/NFTIndexor/internal/common"
	"github.com/goran-ethernal/NFTIndexor/internal/metrics"
)

// reconcileTransfer is the central state machine for transfer-type events.
// Whether the event is a mint or a subsequent transfer is decided by token
// entity absence, not by inspecting the sender address: the first
// transfer-type event ever observed for a (contract, token id) pair is the
// mint. A token id can therefore never be minted twice.
//
// On a fresh mint the minter aggregate is updated, the contract's
// minted-supply counter is bumped when the standard tracks one, and the
// token is created with the recipient as both minter and sole owner. On a
// transfer the recipient is appended to the ownership history. In both
// cases the token is stamped with the current event's provenance.
func (n *NFTIndexer) reconcileTransfer(
	s *entityStore,
	std tokenStandard,
	contractAddr common.Address,
	event *transferEvent,
	txn *Transaction,
) error {
	tokenID := event.TokenID.String()
	key := tokenKey(contractAddr, tokenID)

	token, err := s.loadToken(key)
	if err != nil {
		return err
	}

	if token == nil {
		// Fresh mint.
		if err := n.recordMint(s, event.To, contractAddr, tokenID, event.Quantity, txn.BlockNumber); err != nil {
			return err
		}

		if std.tracksSupply {
			if err := n.bumpMintedSupply(s, contractAddr, event.Quantity, txn); err != nil {
				return err
			}
		}

		token = &Token{
			Key:      key,
			Contract: contractAddr,
			Minter:   event.To,
			Owners:   []string{icommon.ToLowerWithTrim(event.To.Hex())},
			TokenID:  tokenID,
		}

		metrics.TokensMintedInc(n.Name())
		n.log.Debugf("minted token %s to %s", key, event.To.Hex())
	} else {
		token.Owners = append(token.Owners, icommon.ToLowerWithTrim(event.To.Hex()))

		metrics.TokenTransfersInc(n.Name())
		n.log.Debugf("transferred token %s to %s (owner #%d)", key, event.To.Hex(), len(token.Owners))
	}

	token.BlockNumber = txn.BlockNumber
	token.TxID = txn.Key

	return s.saveToken(token)
}

// bumpMintedSupply increments the contract's cumulative minted counter.
// A missing contract row is a logged skip: the counter update is dropped
// but the caller's token mutation still proceeds.
func (n *NFTIndexer) bumpMintedSupply(
	s *entityStore,
	contractAddr common.Address,
	quantity uint64,
	txn *Transaction,
) error {
	contract, err := s.loadContract(contractAddr)
	if err != nil {
		return err
	}

	if contract == nil {
		n.log.Warnf("skipping supply update for %s event: contract %s not found",
			txn.EventName, contractAddr.Hex())
		metrics.MissingEntitySkipInc(n.Name(), txn.EventName)
		return nil
	}

	contract.MaxSupply += quantity
	contract.BlockNumber = txn.BlockNumber
	contract.TxID = txn.Key

	return s.saveContract(contract)
}
