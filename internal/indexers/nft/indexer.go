package nft

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/NFTIndexor/internal/db"
	"github.com/goran-ethernal/NFTIndexor/internal/indexers/nft/migrations"
	"github.com/goran-ethernal/NFTIndexor/internal/logger"
	"github.com/goran-ethernal/NFTIndexor/internal/metrics"
	"github.com/goran-ethernal/NFTIndexor/pkg/config"
	"github.com/goran-ethernal/NFTIndexor/pkg/indexer"
)

// IndexerType is the registry key for this indexer implementation.
const IndexerType = "nft"

// Compile-time check to ensure NFTIndexer implements indexer.Queryable interface.
var _ indexer.Queryable = (*NFTIndexer)(nil)

func init() {
	indexer.Register(IndexerType, func(cfg config.IndexerConfig, log *logger.Logger) (indexer.Indexer, error) {
		return New(cfg, log)
	})
}

// NFTIndexer derives token ownership, contract metadata, and minter
// statistics from NFT contract events. It handles two contract variants:
// the single-token standard (one token per id) and the quantity-bearing
// multi-token standard.
type NFTIndexer struct {
	cfg config.IndexerConfig
	db  *sql.DB
	log *logger.Logger

	// standards maps each configured contract address to its descriptor
	standards map[common.Address]tokenStandard

	// eventsToIndex is the filter advertised to the downloader
	eventsToIndex map[common.Address]map[common.Hash]struct{}
}

// New creates an NFT indexer from configuration: it migrates and opens the
// entity database, resolves each contract's standard descriptor, and seeds
// the contract rows.
func New(cfg config.IndexerConfig, log *logger.Logger) (*NFTIndexer, error) {
	if len(cfg.Contracts) == 0 {
		return nil, errors.New("at least one contract is required")
	}

	if err := migrations.RunMigrations(cfg.DB.Path); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.NewSQLiteDBFromConfig(cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("failed to create database: %w", err)
	}

	standards := make(map[common.Address]tokenStandard, len(cfg.Contracts))
	eventsToIndex := make(map[common.Address]map[common.Hash]struct{}, len(cfg.Contracts))

	for _, contract := range cfg.Contracts {
		std, err := standardByName(contract.Standard)
		if err != nil {
			database.Close()
			return nil, fmt.Errorf("contract %s: %w", contract.Address, err)
		}

		address := common.HexToAddress(contract.Address)
		standards[address] = std

		topics := make(map[common.Hash]struct{}, len(std.topics))
		for _, topic := range std.topics {
			topics[topic] = struct{}{}
		}
		eventsToIndex[address] = topics
	}

	n := &NFTIndexer{
		cfg:           cfg,
		db:            database,
		log:           log,
		standards:     standards,
		eventsToIndex: eventsToIndex,
	}

	if err := n.seedContracts(); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to seed contracts: %w", err)
	}

	return n, nil
}

// seedContracts creates a contract row for every configured contract that
// does not have one yet. The event handlers load contract rows but never
// create them; seeding stands in for the deployment-time registration that
// happens outside this indexer.
func (n *NFTIndexer) seedContracts() error {
	tx, err := n.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			n.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	s := newEntityStore(tx)

	for _, contractCfg := range n.cfg.Contracts {
		address := common.HexToAddress(contractCfg.Address)

		existing, err := s.loadContract(address)
		if err != nil {
			return err
		}
		if existing != nil {
			continue
		}

		contract := &Contract{
			Address:  address,
			Standard: contractCfg.Standard,
			Owner:    common.HexToAddress(contractCfg.Owner),
		}

		if err := s.saveContract(contract); err != nil {
			return err
		}

		n.log.Infof("seeded contract %s (%s)", address.Hex(), contractCfg.Standard)
	}

	return tx.Commit()
}

// Name returns the configured name of this indexer instance.
func (n *NFTIndexer) Name() string {
	return n.cfg.Name
}

// Type returns the indexer type.
func (n *NFTIndexer) Type() string {
	return IndexerType
}

// EventsToIndex returns the map of contract addresses to event topic hashes.
func (n *NFTIndexer) EventsToIndex() map[common.Address]map[common.Hash]struct{} {
	return n.eventsToIndex
}

// StartBlock returns the block number from which this indexer should start.
func (n *NFTIndexer) StartBlock() uint64 {
	return n.cfg.StartBlock
}

// Close closes the database connection.
func (n *NFTIndexer) Close() error {
	return n.db.Close()
}

// HandleLogs processes a batch of logs in one database transaction. Events
// are handled strictly in batch order; a handler's writes are visible to
// every later handler in the same batch. Recoverable conditions (unknown
// payloads, missing entities, rejected ownership transfers) are absorbed as
// diagnostics; only infrastructure failures abort the batch.
func (n *NFTIndexer) HandleLogs(logs []types.Log) error {
	if len(logs) == 0 {
		return nil
	}

	start := time.Now()

	tx, err := n.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			n.log.Errorf("failed to rollback transaction: %v", err)
		}
	}()

	s := newEntityStore(tx)

	processed := 0
	for i := range logs {
		handled, err := n.handleLog(s, &logs[i])
		if err != nil {
			return err
		}
		if handled {
			processed++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	metrics.BatchProcessingTimeLog(n.Name(), time.Since(start))
	n.log.Infof("processed %d of %d logs in batch [%d, %d]",
		processed, len(logs), logs[0].BlockNumber, logs[len(logs)-1].BlockNumber)

	return nil
}

// handleLog routes one log to its handler. The boolean result reports
// whether the event was recognized and processed.
func (n *NFTIndexer) handleLog(s *entityStore, log *types.Log) (bool, error) {
	if len(log.Topics) == 0 {
		return false, nil
	}

	std, ok := n.standards[log.Address]
	if !ok {
		// Not one of ours; the downloader filter should not let this through.
		return false, nil
	}

	topic := log.Topics[0]

	eventName, ok := eventNames[topic]
	if !ok {
		return false, nil
	}

	txn, err := n.recordTransaction(s, log, std, eventName)
	if err != nil {
		return false, err
	}

	switch topic {
	case transferTopic:
		if std.name != config.StandardNFT721 {
			return n.skipMismatched(log, eventName, std)
		}

		event, err := decodeTransfer(log)
		if err != nil {
			return n.skipMalformed(log, err)
		}

		return true, n.reconcileTransfer(s, std, log.Address, event, txn)

	case transferSingleTopic:
		if std.name != config.StandardNFT1155 {
			return n.skipMismatched(log, eventName, std)
		}

		event, err := decodeTransferSingle(log)
		if err != nil {
			return n.skipMalformed(log, err)
		}

		return true, n.reconcileTransfer(s, std, log.Address, event, txn)

	case ownershipTransferredTopic:
		event, err := decodeOwnershipTransferred(log)
		if err != nil {
			return n.skipMalformed(log, err)
		}

		return true, n.applyOwnershipTransfer(s, std, log.Address, event, txn)

	case baseURIChangedTopic:
		if std.name != config.StandardNFT721 {
			return n.skipMismatched(log, eventName, std)
		}

		uri, err := decodeBaseURIChanged(log)
		if err != nil {
			return n.skipMalformed(log, err)
		}

		return true, n.updateContract(s, log.Address, txn, setBaseURI(uri))

	case revealedTopic:
		if std.name != config.StandardNFT721 {
			return n.skipMismatched(log, eventName, std)
		}

		// The payload only names the revealed contract, which the log
		// address already carries.
		return true, n.updateContract(s, log.Address, txn, setRevealed())

	case uriTopic:
		if std.name != config.StandardNFT1155 {
			return n.skipMismatched(log, eventName, std)
		}

		url, err := decodeURI(log)
		if err != nil {
			return n.skipMalformed(log, err)
		}

		return true, n.updateContract(s, log.Address, txn, setRevealedURL(url))
	}

	return false, nil
}

func (n *NFTIndexer) skipMalformed(log *types.Log, err error) (bool, error) {
	n.log.Warnf("skipping event at block %d, tx %s: %v", log.BlockNumber, log.TxHash.Hex(), err)
	metrics.MalformedEventSkipInc(n.Name())
	return false, nil
}

func (n *NFTIndexer) skipMismatched(log *types.Log, eventName string, std tokenStandard) (bool, error) {
	n.log.Warnf("skipping %s event from %s: not expected for %s contracts",
		eventName, log.Address.Hex(), std.name)
	metrics.MalformedEventSkipInc(n.Name())
	return false, nil
}
