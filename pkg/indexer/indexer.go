package indexer

import (
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// Indexer defines the interface that all indexers must implement.
// Indexers receive decoded logs from the downloader and derive entities from them.
type Indexer interface {
	// Name returns the unique name of this indexer instance, as configured.
	Name() string

	// Type returns the indexer type (the name it was registered under).
	Type() string

	// EventsToIndex returns a map of contract addresses to their event topic hashes.
	// This is used by the coordinator to determine which logs should be sent to this indexer.
	// The inner map is a set (using struct{} as values) of topic hashes for each address.
	EventsToIndex() map[common.Address]map[common.Hash]struct{}

	// HandleLogs processes a batch of logs received from the downloader.
	// Logs arrive in chain order (ascending block number, then log index) and the
	// whole batch is applied atomically.
	HandleLogs(logs []types.Log) error

	// StartBlock returns the block number from which this indexer wants to start processing logs.
	// The downloader will use the minimum StartBlock across all registered indexers to determine
	// the earliest block to fetch.
	StartBlock() uint64

	// Close releases any resources held by the indexer.
	Close() error
}

// Queryable is implemented by indexers that expose their derived entities
// over the REST API.
type Queryable interface {
	Indexer

	// EntityKinds returns the entity kinds this indexer can serve (e.g. "tokens").
	EntityKinds() []string

	// QueryEntities returns a page of entities of the given kind.
	QueryEntities(kind string, params *QueryParams) (*QueryResult, error)

	// GetEntity returns a single entity by its business key, or nil if absent.
	GetEntity(kind, key string) (any, error)

	// Stats returns aggregate information about the derived entities.
	Stats() (*StatsResponse, error)
}
