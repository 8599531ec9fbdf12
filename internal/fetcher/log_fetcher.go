package fetcher

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/goran-ethernal/NFTIndexor/internal/logger"
	irpc "github.com/goran-ethernal/NFTIndexor/internal/rpc"
	itypes "github.com/goran-ethernal/NFTIndexor/internal/types"
	"github.com/goran-ethernal/NFTIndexor/pkg/fetcher"
	"github.com/goran-ethernal/NFTIndexor/pkg/rpc"
)

// Compile-time check to ensure LogFetcher implements fetcher.LogFetcher interface.
var _ fetcher.LogFetcher = (*LogFetcher)(nil)

// LogFetcherConfig contains configuration for the LogFetcher.
type LogFetcherConfig struct {
	// ChunkSize is the number of blocks to fetch per request
	ChunkSize uint64

	// Finality specifies the finality mode
	Finality itypes.BlockFinality

	// FinalizedLag is blocks behind head to consider finalized (only for "latest" mode)
	FinalizedLag uint64

	// PollInterval is how long to wait for new blocks in live mode
	PollInterval time.Duration

	// Addresses are the contract addresses to filter
	Addresses []ethcommon.Address

	// Topics are the event signature hashes to filter (matched against topic position 0)
	Topics []ethcommon.Hash
}

// LogFetcher fetches logs in chunks up to the configured finality bound.
// It starts in backfill mode and switches to live tailing once it reaches
// the chain head.
type LogFetcher struct {
	cfg  LogFetcherConfig
	rpc  rpc.EthClient
	log  *logger.Logger
	mode fetcher.FetchMode
}

// NewLogFetcher creates a new LogFetcher instance.
func NewLogFetcher(cfg LogFetcherConfig, log *logger.Logger, rpcClient rpc.EthClient) *LogFetcher {
	return &LogFetcher{
		cfg:  cfg,
		rpc:  rpcClient,
		log:  log,
		mode: fetcher.ModeBackfill,
	}
}

// SetMode changes the fetcher's operating mode.
func (lf *LogFetcher) SetMode(mode fetcher.FetchMode) {
	if lf.mode != mode {
		lf.log.Infof("switching fetch mode from %v to %v", lf.mode, mode)
	}
	lf.mode = mode
}

// GetMode returns the current operating mode.
func (lf *LogFetcher) GetMode() fetcher.FetchMode {
	return lf.mode
}

// FetchNext fetches the next chunk of logs after lastIndexedBlock.
// When the fetcher has caught up with the finality bound it switches to
// live mode and waits one poll interval before reporting an empty result.
func (lf *LogFetcher) FetchNext(ctx context.Context, lastIndexedBlock uint64) (*fetcher.FetchResult, error) {
	upperBound, err := lf.upperBound(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upper bound: %w", err)
	}

	fromBlock := lastIndexedBlock + 1
	if fromBlock > upperBound {
		// Caught up. Tail the chain.
		lf.SetMode(fetcher.ModeLive)

		select {
		case <-time.After(lf.cfg.PollInterval):
		case <-ctx.Done():
			return nil, ctx.Err()
		}

		return &fetcher.FetchResult{Waited: true, FromBlock: fromBlock, ToBlock: lastIndexedBlock}, nil
	}

	toBlock := min(fromBlock+lf.cfg.ChunkSize-1, upperBound)

	logs, toBlock, err := lf.getLogs(ctx, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}

	head, err := lf.rpc.GetBlockHeader(ctx, toBlock)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch header for block %d: %w", toBlock, err)
	}

	if toBlock == upperBound {
		lf.SetMode(fetcher.ModeLive)
	}

	lf.log.Debugf("fetched %d logs in range [%d, %d] (mode %v)", len(logs), fromBlock, toBlock, lf.mode)

	return &fetcher.FetchResult{
		Logs:      logs,
		Head:      head,
		FromBlock: fromBlock,
		ToBlock:   toBlock,
	}, nil
}

// getLogs runs eth_getLogs for the range, shrinking the range when the
// provider rejects it as returning too many results. The effective toBlock
// is returned so the caller can checkpoint the actual covered range.
func (lf *LogFetcher) getLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, uint64, error) {
	for {
		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(toBlock),
			Addresses: lf.cfg.Addresses,
			Topics:    [][]ethcommon.Hash{lf.cfg.Topics},
		}

		logs, err := lf.rpc.GetLogs(ctx, query)
		if err == nil {
			return logs, toBlock, nil
		}

		tooMany, details := irpc.IsTooManyResultsError(err)
		if !tooMany {
			return nil, 0, fmt.Errorf("failed to fetch logs for range [%d, %d]: %w", fromBlock, toBlock, err)
		}

		// Prefer the provider's suggested range, otherwise halve ours.
		if _, suggestedTo, ok := irpc.ParseSuggestedBlockRange(details); ok &&
			suggestedTo >= fromBlock && suggestedTo < toBlock {
			toBlock = suggestedTo
		} else {
			if toBlock == fromBlock {
				return nil, 0, fmt.Errorf("too many results in a single block %d: %w", fromBlock, err)
			}
			toBlock = fromBlock + (toBlock-fromBlock)/2
		}

		lf.log.Warnf("too many results, retrying with range [%d, %d]", fromBlock, toBlock)
	}
}

// upperBound resolves the highest block the fetcher is allowed to index,
// according to the configured finality mode.
func (lf *LogFetcher) upperBound(ctx context.Context) (uint64, error) {
	var (
		header *types.Header
		err    error
	)

	switch lf.cfg.Finality {
	case itypes.FinalitySafe:
		header, err = lf.rpc.GetSafeBlockHeader(ctx)
	case itypes.FinalityLatest:
		header, err = lf.rpc.GetLatestBlockHeader(ctx)
	default:
		header, err = lf.rpc.GetFinalizedBlockHeader(ctx)
	}
	if err != nil {
		return 0, err
	}

	bound := header.Number.Uint64()
	if lf.cfg.Finality == itypes.FinalityLatest && lf.cfg.FinalizedLag > 0 {
		if bound <= lf.cfg.FinalizedLag {
			return 0, nil
		}
		bound -= lf.cfg.FinalizedLag
	}

	return bound, nil
}
