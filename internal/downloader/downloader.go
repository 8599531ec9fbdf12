package downloader

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	icommon "github.com/goran-ethernal/NFTIndexor/internal/common"
	"github.com/goran-ethernal/NFTIndexor/internal/fetcher"
	"github.com/goran-ethernal/NFTIndexor/internal/logger"
	"github.com/goran-ethernal/NFTIndexor/internal/metrics"
	"github.com/goran-ethernal/NFTIndexor/internal/types"
	"github.com/goran-ethernal/NFTIndexor/pkg/config"
	pkgdownloader "github.com/goran-ethernal/NFTIndexor/pkg/downloader"
	pkgfetcher "github.com/goran-ethernal/NFTIndexor/pkg/fetcher"
	idx "github.com/goran-ethernal/NFTIndexor/pkg/indexer"
	"github.com/goran-ethernal/NFTIndexor/pkg/rpc"
)

// Compile-time check to ensure Downloader implements pkgdownloader.Downloader interface.
var _ pkgdownloader.Downloader = (*Downloader)(nil)

// Downloader orchestrates the log downloading process.
// It coordinates LogFetcher, SyncManager, and IndexerCoordinator to stream
// blockchain logs to registered indexers.
type Downloader struct {
	cfg         config.DownloaderConfig
	rpc         rpc.EthClient
	syncManager pkgdownloader.SyncManager
	log         *logger.Logger
	coordinator *idx.IndexerCoordinator
	logFetcher  pkgfetcher.LogFetcher

	// Filter configuration built from registered indexers
	mu        sync.RWMutex
	addresses []common.Address
	topics    []common.Hash
	topicSet  map[common.Hash]struct{}
}

// New creates a new Downloader instance.
func New(
	cfg config.DownloaderConfig,
	rpcClient rpc.EthClient,
	syncManager pkgdownloader.SyncManager,
	coordinator *idx.IndexerCoordinator,
	log *logger.Logger,
) (*Downloader, error) {
	if rpcClient == nil {
		return nil, errors.New("RPC client is required")
	}
	if syncManager == nil {
		return nil, errors.New("SyncManager is required")
	}
	if coordinator == nil {
		return nil, errors.New("IndexerCoordinator is required")
	}
	if log == nil {
		return nil, errors.New("Logger is required")
	}

	d := &Downloader{
		cfg:         cfg,
		rpc:         rpcClient,
		syncManager: syncManager,
		log:         log.WithComponent("downloader"),
		coordinator: coordinator,
		addresses:   make([]common.Address, 0),
		topics:      make([]common.Hash, 0),
		topicSet:    make(map[common.Hash]struct{}),
	}

	d.log.Info("downloader initialized")

	return d, nil
}

// RegisterIndexer registers an indexer to receive logs.
// The downloader will use the indexer's EventsToIndex method to determine
// which logs to fetch and forward.
func (d *Downloader) RegisterIndexer(indexer idx.Indexer) {
	eventsToIndex := indexer.EventsToIndex()

	d.mu.Lock()

	for addr, topicSet := range eventsToIndex {
		if !d.containsAddressLocked(addr) {
			d.addresses = append(d.addresses, addr)
		}

		for topic := range topicSet {
			if _, exists := d.topicSet[topic]; !exists {
				d.topicSet[topic] = struct{}{}
				d.topics = append(d.topics, topic)
			}
		}
	}

	totalAddresses := len(d.addresses)
	totalTopics := len(d.topics)

	d.mu.Unlock()

	// Register with coordinator (outside of lock to avoid potential deadlock)
	d.coordinator.RegisterIndexer(indexer)

	d.log.Infow("indexer registered",
		"indexer", indexer.Name(),
		"type", indexer.Type(),
		"start_block", indexer.StartBlock(),
		"total_addresses", totalAddresses,
		"total_topics", totalTopics,
	)
}

func (d *Downloader) getDownloaderStartBlock() uint64 {
	// Determine the minimum start block from all registered indexers
	minStartBlock := uint64(0)
	indexerStartBlocks := d.coordinator.IndexerStartBlocks()
	if len(indexerStartBlocks) > 0 {
		minStartBlock = ^uint64(0) // Max uint64
		for _, startBlock := range indexerStartBlocks {
			if startBlock < minStartBlock {
				minStartBlock = startBlock
			}
		}
	}

	return minStartBlock
}

// Download starts the download process, streaming logs to registered indexers.
// It continues until the context is cancelled or an error occurs.
func (d *Downloader) Download(ctx context.Context) error {
	d.log.Info("starting download process")

	metrics.ComponentHealthSet(icommon.ComponentDownloader, true)
	defer metrics.ComponentHealthSet(icommon.ComponentDownloader, false)

	// Parse finality from config string
	finality, err := types.ParseBlockFinality(d.cfg.Finality)
	if err != nil {
		return fmt.Errorf("invalid finality configuration: %w", err)
	}

	d.mu.RLock()

	addresses := make([]common.Address, len(d.addresses))
	copy(addresses, d.addresses)
	topics := make([]common.Hash, len(d.topics))
	copy(topics, d.topics)

	d.mu.RUnlock()

	d.logFetcher = fetcher.NewLogFetcher(fetcher.LogFetcherConfig{
		ChunkSize:    d.cfg.ChunkSize,
		Finality:     finality,
		FinalizedLag: d.cfg.FinalizedLag,
		PollInterval: d.cfg.PollInterval.Duration,
		Addresses:    addresses,
		Topics:       topics,
	}, d.log, d.rpc)

	// Get current sync state
	state, err := d.syncManager.GetState()
	if err != nil {
		return fmt.Errorf("failed to get sync state: %w", err)
	}

	// Initialize from saved state or start from the earliest indexer start block
	lastIndexedBlock := state.LastIndexedBlock
	if lastIndexedBlock == 0 {
		startBlock := d.getDownloaderStartBlock()
		if startBlock > 0 {
			lastIndexedBlock = startBlock - 1
		}
		d.log.Infow("starting fresh download", "start_block", lastIndexedBlock+1)
	} else {
		d.log.Infow("resuming download", "last_indexed_block", lastIndexedBlock)
	}

	d.logFetcher.SetMode(pkgfetcher.ModeBackfill) // Always start in backfill mode

	// Main download loop
	for {
		select {
		case <-ctx.Done():
			d.log.Info("download cancelled")
			return ctx.Err()
		default:
		}

		result, err := d.logFetcher.FetchNext(ctx, lastIndexedBlock)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				d.log.Info("download cancelled")
				return err
			}

			d.log.Errorw("failed to fetch logs", "error", err, "last_block", lastIndexedBlock)
			return fmt.Errorf("failed to fetch logs: %w", err)
		}

		// No new blocks available yet, poll again.
		if result.Waited {
			continue
		}

		// Route logs to indexers
		if len(result.Logs) > 0 {
			d.log.Debugw("processing logs",
				"count", len(result.Logs),
				"from_block", result.FromBlock,
				"to_block", result.ToBlock,
			)

			if err := d.coordinator.HandleLogs(result.Logs); err != nil {
				return fmt.Errorf("failed to handle logs: %w", err)
			}

			metrics.LogsProcessedAdd(float64(len(result.Logs)))
		}

		// Save checkpoint with the last block's hash
		blockHash := result.Head.Hash()
		if err := d.syncManager.SaveCheckpoint(
			result.ToBlock,
			blockHash,
			d.logFetcher.GetMode(),
		); err != nil {
			return fmt.Errorf("failed to save checkpoint: %w", err)
		}

		lastIndexedBlock = result.ToBlock
		metrics.LastIndexedBlockSet(float64(lastIndexedBlock))

		d.log.Infow("checkpoint saved",
			"block", lastIndexedBlock,
			"block_hash", blockHash.Hex(),
			"mode", d.logFetcher.GetMode(),
			"logs_processed", len(result.Logs),
		)
	}
}

// Close closes the downloader and releases resources.
func (d *Downloader) Close() error {
	d.log.Info("closing downloader")

	if err := d.coordinator.Close(); err != nil {
		d.log.Errorw("failed to close indexers", "error", err)
	}

	if d.syncManager != nil {
		if err := d.syncManager.Close(); err != nil {
			d.log.Errorw("failed to close sync manager", "error", err)
			return err
		}
	}

	return nil
}

// containsAddressLocked reports whether addr is already part of the filter.
// Must be called with d.mu held (either read or write lock).
func (d *Downloader) containsAddressLocked(addr common.Address) bool {
	for _, a := range d.addresses {
		if a == addr {
			return true
		}
	}
	return false
}
