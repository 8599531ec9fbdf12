package nft

import (
	"github.com/ethereum/go-ethereum/core/types"
)

// recordTransaction creates the transaction record for one processed event.
// It is called once per event, before the event's handler runs; the returned
// record supplies the provenance stamp for every entity the handler mutates.
func (n *NFTIndexer) recordTransaction(s *entityStore, log *types.Log, std tokenStandard, eventName string) (*Transaction, error) {
	txn := &Transaction{
		Key:         transactionKey(log.TxHash, log.Index),
		BlockNumber: log.BlockNumber,
		Contract:    log.Address,
		Topic:       std.name,
		EventName:   eventName,
	}

	if err := s.insertTransaction(txn); err != nil {
		return nil, err
	}

	return txn, nil
}
