package indexer

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// IndexerCoordinator manages multiple indexers and routes logs to them based
// on the (contract address, event topic) pairs they declared interest in.
type IndexerCoordinator struct {
	mu sync.RWMutex

	// indexers holds all registered indexers in registration order
	indexers []Indexer

	// byName allows API lookups by configured indexer name
	byName map[string]Indexer

	// interests caches each indexer's EventsToIndex result
	interests map[Indexer]map[common.Address]map[common.Hash]struct{}
}

// NewIndexerCoordinator creates a new IndexerCoordinator.
func NewIndexerCoordinator() *IndexerCoordinator {
	return &IndexerCoordinator{
		indexers:  make([]Indexer, 0),
		byName:    make(map[string]Indexer),
		interests: make(map[Indexer]map[common.Address]map[common.Hash]struct{}),
	}
}

// RegisterIndexer registers a new indexer. The indexer will receive logs that
// match any of the (address, topic) pairs it reports from EventsToIndex.
func (ic *IndexerCoordinator) RegisterIndexer(indexer Indexer) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	ic.indexers = append(ic.indexers, indexer)
	ic.byName[indexer.Name()] = indexer
	ic.interests[indexer] = indexer.EventsToIndex()
}

// GetByName returns the indexer registered under the given configured name,
// or nil if there is none.
func (ic *IndexerCoordinator) GetByName(name string) Indexer {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	return ic.byName[name]
}

// ListAll returns all registered indexers in registration order.
func (ic *IndexerCoordinator) ListAll() []Indexer {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	out := make([]Indexer, len(ic.indexers))
	copy(out, ic.indexers)

	return out
}

// IndexerStartBlocks returns the start block of every registered indexer.
func (ic *IndexerCoordinator) IndexerStartBlocks() map[string]uint64 {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	blocks := make(map[string]uint64, len(ic.indexers))
	for _, idx := range ic.indexers {
		blocks[idx.Name()] = idx.StartBlock()
	}

	return blocks
}

// HandleLogs routes a batch of logs to the appropriate indexers.
// Each indexer receives the subset of logs matching its declared interests,
// in the original batch order.
func (ic *IndexerCoordinator) HandleLogs(logs []types.Log) error {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	indexerLogs := make(map[Indexer][]types.Log)

	for _, log := range logs {
		if len(log.Topics) == 0 {
			continue
		}

		eventTopic := log.Topics[0]

		for _, idx := range ic.indexers {
			topicSet, ok := ic.interests[idx][log.Address]
			if !ok {
				continue
			}
			if _, ok := topicSet[eventTopic]; ok {
				indexerLogs[idx] = append(indexerLogs[idx], log)
			}
		}
	}

	// Iterate registration order so failures are deterministic.
	for _, idx := range ic.indexers {
		relevantLogs, ok := indexerLogs[idx]
		if !ok {
			continue
		}

		if err := idx.HandleLogs(relevantLogs); err != nil {
			return fmt.Errorf("indexer %s failed to handle logs: %w", idx.Name(), err)
		}
	}

	return nil
}

// Close closes all registered indexers, returning the first error encountered.
func (ic *IndexerCoordinator) Close() error {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	var firstErr error
	for _, idx := range ic.indexers {
		if err := idx.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}
