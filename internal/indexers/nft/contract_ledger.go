package nft

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/goran-ethernal/NFTIndexor/internal/metrics"
)

// updateContract is the shared template for metadata-only contract
// mutations: load, stamp provenance, apply the field-specific mutation,
// persist. A missing contract emits a diagnostic and no-ops; it never
// fails the batch.
func (n *NFTIndexer) updateContract(
	s *entityStore,
	contractAddr common.Address,
	txn *Transaction,
	mutate func(*Contract),
) error {
	contract, err := s.loadContract(contractAddr)
	if err != nil {
		return err
	}

	if contract == nil {
		n.log.Warnf("skipping %s event: contract %s not found", txn.EventName, contractAddr.Hex())
		metrics.MissingEntitySkipInc(n.Name(), txn.EventName)
		return nil
	}

	contract.BlockNumber = txn.BlockNumber
	contract.TxID = txn.Key
	mutate(contract)

	return s.saveContract(contract)
}

// setBaseURI records a BaseURIChanged event.
func setBaseURI(uri string) func(*Contract) {
	return func(c *Contract) {
		c.BaseURI = uri
	}
}

// setRevealed records a Revealed event (single-token standard): the reveal
// flag flips, nothing else changes.
func setRevealed() func(*Contract) {
	return func(c *Contract) {
		c.IsRevealed = true
	}
}

// setRevealedURL records a URI event (multi-token standard): the two
// standards expose reveal semantics through different event shapes but
// converge on the same fields.
func setRevealedURL(url string) func(*Contract) {
	return func(c *Contract) {
		c.IsRevealed = true
		c.RevealURL = url
	}
}
