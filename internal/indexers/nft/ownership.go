package nft

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/NFTIndexor/internal/metrics"
)

// ownershipMatches reports whether the claimed previous owner equals the
// contract's recorded current owner. Kept as a pure predicate so the
// accept/reject decision is testable apart from the persistence side effect.
func ownershipMatches(contract *Contract, previousOwner common.Address) bool {
	return contract.Owner == previousOwner
}

// applyOwnershipTransfer validates an OwnershipTransferred event against the
// recorded contract state and applies it when it matches. A mismatch or a
// missing contract rejects the event without any mutation; rejection never
// propagates an error, the event stream continues.
//
// Accepting the event sets the sticky is_owner_changed flag, which never
// reverts even if ownership later returns to the original address.
func (n *NFTIndexer) applyOwnershipTransfer(
	s *entityStore,
	std tokenStandard,
	contractAddr common.Address,
	event *ownershipTransferEvent,
	txn *Transaction,
) error {
	contract, err := s.loadContract(contractAddr)
	if err != nil {
		return err
	}

	if contract == nil {
		n.log.Warnf("rejecting %s event: contract %s not found",
			txn.EventName, contractAddr.Hex())
		metrics.MissingEntitySkipInc(n.Name(), txn.EventName)
		return nil
	}

	if std.validatesPreviousOwner && !ownershipMatches(contract, event.PreviousOwner) {
		n.log.Warnf("rejecting %s event for %s: claimed previous owner %s does not match recorded owner %s",
			txn.EventName, contractAddr.Hex(), event.PreviousOwner.Hex(), contract.Owner.Hex())
		metrics.OwnershipTransferRejectedInc(n.Name())
		return nil
	}

	contract.Owner = event.NewOwner
	contract.IsOwnerChanged = true
	contract.BlockNumber = txn.BlockNumber
	contract.TxID = txn.Key

	if err := s.saveContract(contract); err != nil {
		return err
	}

	metrics.OwnershipTransferAcceptedInc(n.Name())
	n.log.Infof("contract %s ownership transferred to %s", contractAddr.Hex(), event.NewOwner.Hex())

	return nil
}
