package downloader

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/big"
	"slices"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/rpc"
	itypes "github.com/BuidlGuidl/ethereum-bazaar/internal/types"
	pkgrpc "github.com/BuidlGuidl/ethereum-bazaar/pkg/rpc"
	"github.com/ethereum/go-ethereum"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

const defaultPollInterval = 12 * time.Second

// LogFetcherConfig contains configuration for the LogFetcher.
type LogFetcherConfig struct {
	// ChunkSize is the maximum number of blocks per eth_getLogs request
	ChunkSize uint64

	// Finality picks the head tag and the lag held back from it
	Finality itypes.Finality

	// PollInterval is the wait between head checks once caught up
	PollInterval time.Duration

	Addresses []ethcommon.Address

	// Topics filters on the event signature. Empty means every event of Addresses.
	Topics []ethcommon.Hash
}

// LogFetcher fetches logs range by range and the headers needed to timestamp them.
type LogFetcher struct {
	cfg  LogFetcherConfig
	rpc  pkgrpc.EthClient
	log  *logger.Logger
	mode FetchMode
}

func NewLogFetcher(cfg LogFetcherConfig, client pkgrpc.EthClient, log *logger.Logger) *LogFetcher {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 1
	}

	return &LogFetcher{
		cfg:  cfg,
		rpc:  client,
		log:  log.WithComponent(common.ComponentLogFetcher),
		mode: ModeBackfill,
	}
}

func (lf *LogFetcher) SetMode(mode FetchMode) {
	if lf.mode != mode {
		lf.log.Infow("switching fetch mode", "from", lf.mode, "to", mode)
	}
	lf.mode = mode
}

func (lf *LogFetcher) GetMode() FetchMode {
	return lf.mode
}

// FetchNext fetches the next chunk starting at fromBlock. The fetcher switches to live mode
// once a range reaches the finalized head; when fromBlock is past the head it waits for
// the head to advance, polling every PollInterval.
func (lf *LogFetcher) FetchNext(ctx context.Context, fromBlock uint64) (*FetchResult, error) {
	for {
		finalized, err := lf.getFinalizedBlock(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to get finalized block: %w", err)
		}

		if fromBlock <= finalized {
			toBlock := min(fromBlock+lf.cfg.ChunkSize-1, finalized)
			res, err := lf.FetchRange(ctx, fromBlock, toBlock)
			if err == nil && res.ToBlock == finalized {
				lf.caughtUp(finalized)
			}
			return res, err
		}

		lf.caughtUp(finalized)

		lf.log.Debugw("waiting for new blocks", "next_block", fromBlock, "finalized", finalized)
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(lf.cfg.PollInterval):
		}
	}
}

func (lf *LogFetcher) caughtUp(finalized uint64) {
	if lf.mode == ModeBackfill {
		lf.log.Infow("backfill complete", "finalized", finalized)
		lf.SetMode(ModeLive)
	}
}

// FetchRange fetches the logs of [fromBlock, toBlock]. When the node refuses the range as
// too large the result covers a shorter prefix of it; callers continue from ToBlock+1.
func (lf *LogFetcher) FetchRange(ctx context.Context, fromBlock, toBlock uint64) (*FetchResult, error) {
	logs, toBlock, err := lf.getLogs(ctx, fromBlock, toBlock)
	if err != nil {
		return nil, err
	}

	// Only blocks that carry a log need a timestamp; toBlock is added for the checkpoint hash.
	wanted := map[uint64]struct{}{toBlock: {}}
	for _, l := range logs {
		wanted[l.BlockNumber] = struct{}{}
	}
	blockNums := slices.Sorted(maps.Keys(wanted))

	headers, err := lf.rpc.BatchGetBlockHeaders(ctx, blockNums)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch headers: %w", err)
	}

	result := &FetchResult{
		FromBlock:       fromBlock,
		ToBlock:         toBlock,
		Logs:            logs,
		BlockTimestamps: make(map[uint64]uint64, len(headers)),
	}
	for _, h := range headers {
		if h == nil {
			continue
		}
		num := h.Number.Uint64()
		result.BlockTimestamps[num] = h.Time
		if num == toBlock {
			result.ToBlockHash = h.Hash()
		}
	}
	for _, num := range blockNums {
		if _, ok := result.BlockTimestamps[num]; !ok {
			return nil, fmt.Errorf("missing header for block %d", num)
		}
	}

	lf.log.Debugw("fetched range",
		"from_block", fromBlock,
		"to_block", toBlock,
		"logs_count", len(logs),
		"headers", len(headers),
		"mode", lf.mode,
	)

	return result, nil
}

// getLogs shrinks the range until the node accepts it and returns the end actually covered.
func (lf *LogFetcher) getLogs(ctx context.Context, fromBlock, toBlock uint64) ([]types.Log, uint64, error) {
	for {
		query := ethereum.FilterQuery{
			FromBlock: new(big.Int).SetUint64(fromBlock),
			ToBlock:   new(big.Int).SetUint64(toBlock),
			Addresses: lf.cfg.Addresses,
		}
		if len(lf.cfg.Topics) > 0 {
			query.Topics = [][]ethcommon.Hash{lf.cfg.Topics}
		}

		logs, err := lf.rpc.GetLogs(ctx, query)
		if err == nil {
			return logs, toBlock, nil
		}

		tooMany, data := rpc.IsTooManyResultsError(err)
		if !tooMany || fromBlock == toBlock {
			return nil, 0, fmt.Errorf("failed to fetch logs %d-%d: %w", fromBlock, toBlock, err)
		}

		next := fromBlock + (toBlock-fromBlock)/2
		if sFrom, sTo, ok := rpc.ParseSuggestedBlockRange(data); ok && sFrom == fromBlock && sTo < toBlock {
			next = sTo
		}
		lf.log.Infow("range too large, shrinking", "from_block", fromBlock, "to_block", toBlock, "new_to_block", next)
		toBlock = next
	}
}

// getFinalizedBlock returns the newest block that may be indexed under the finality mode.
func (lf *LogFetcher) getFinalizedBlock(ctx context.Context) (uint64, error) {
	var (
		header *types.Header
		err    error
	)

	switch lf.cfg.Finality.Mode {
	case itypes.FinalityFinalized:
		header, err = lf.rpc.GetFinalizedBlockHeader(ctx)
	case itypes.FinalitySafe:
		header, err = lf.rpc.GetSafeBlockHeader(ctx)
	case itypes.FinalityLatest:
		header, err = lf.rpc.GetLatestBlockHeader(ctx)
	default:
		return 0, fmt.Errorf("invalid finality mode: %s", lf.cfg.Finality.Mode)
	}
	if err != nil {
		return 0, err
	}
	if header == nil {
		return 0, errors.New("node returned no header")
	}

	return lf.cfg.Finality.Head(header.Number.Uint64()), nil
}
