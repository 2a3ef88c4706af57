package downloader

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/indexer"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/metrics"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/types"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	pkgdownloader "github.com/BuidlGuidl/ethereum-bazaar/pkg/downloader"
	idx "github.com/BuidlGuidl/ethereum-bazaar/pkg/indexer"
	pkgrpc "github.com/BuidlGuidl/ethereum-bazaar/pkg/rpc"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

var _ pkgdownloader.Downloader = (*Downloader)(nil)

// Downloader pulls the logs of every registered indexer's contracts, block range by
// block range, and checkpoints each range once all indexers have handled it.
// Chain reorganizations are not handled: ranges are only fetched once final
// under the configured finality mode.
type Downloader struct {
	cfg         config.DownloaderConfig
	rpc         pkgrpc.EthClient
	syncManager *SyncManager
	coordinator *indexer.IndexerCoordinator
	log         *logger.Logger

	mu     sync.RWMutex
	topics map[ethcommon.Address]map[ethcommon.Hash]struct{}
}

func New(
	cfg config.DownloaderConfig,
	client pkgrpc.EthClient,
	syncManager *SyncManager,
	log *logger.Logger,
) (*Downloader, error) {
	if client == nil {
		return nil, errors.New("RPC client is required")
	}
	if syncManager == nil {
		return nil, errors.New("sync manager is required")
	}
	if log == nil {
		return nil, errors.New("logger is required")
	}

	return &Downloader{
		cfg:         cfg,
		rpc:         client,
		syncManager: syncManager,
		coordinator: indexer.NewIndexerCoordinator(),
		log:         log.WithComponent(common.ComponentDownloader),
		topics:      make(map[ethcommon.Address]map[ethcommon.Hash]struct{}),
	}, nil
}

// RegisterIndexer adds an indexer's contracts and events to the log filter.
func (d *Downloader) RegisterIndexer(i idx.Indexer) {
	d.mu.Lock()
	for addr, topics := range i.EventsToIndex() {
		existing, seen := d.topics[addr]
		switch {
		case !seen:
			existing = make(map[ethcommon.Hash]struct{}, len(topics))
			d.topics[addr] = existing
		case len(existing) == 0:
			// already following every event of addr
			continue
		}
		if len(topics) == 0 {
			d.topics[addr] = map[ethcommon.Hash]struct{}{}
			continue
		}
		for topic := range topics {
			existing[topic] = struct{}{}
		}
	}
	d.mu.Unlock()

	d.coordinator.RegisterIndexer(i)

	d.log.Infow("indexer registered",
		"indexer", i.GetName(),
		"type", i.GetType(),
		"start_block", i.StartBlock(),
	)
}

// filter returns the addresses to follow and the union of their topics. The topic list
// is empty when any address is followed for every event.
func (d *Downloader) filter() ([]ethcommon.Address, []ethcommon.Hash) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	addresses := make([]ethcommon.Address, 0, len(d.topics))
	union := make(map[ethcommon.Hash]struct{})
	allTopics := false
	for addr, topics := range d.topics {
		addresses = append(addresses, addr)
		if len(topics) == 0 {
			allTopics = true
		}
		for t := range topics {
			union[t] = struct{}{}
		}
	}
	slices.SortFunc(addresses, func(a, b ethcommon.Address) int { return a.Cmp(b) })

	if allTopics {
		return addresses, nil
	}
	topics := make([]ethcommon.Hash, 0, len(union))
	for t := range union {
		topics = append(topics, t)
	}
	slices.SortFunc(topics, func(a, b ethcommon.Hash) int { return a.Cmp(b) })
	return addresses, topics
}

func (d *Downloader) startBlock() uint64 {
	starts := d.coordinator.IndexerStartBlocks()
	if len(starts) == 0 {
		return 0
	}
	return slices.Min(starts)
}

// Download runs the fetch, index, checkpoint loop until ctx is cancelled or a step fails.
func (d *Downloader) Download(ctx context.Context) error {
	if len(d.coordinator.Indexers()) == 0 {
		return errors.New("no indexers registered")
	}

	finality, err := types.NewFinality(d.cfg.Finality, d.cfg.FinalizedLag)
	if err != nil {
		return fmt.Errorf("invalid finality configuration: %w", err)
	}

	addresses, topics := d.filter()
	fetcher := NewLogFetcher(LogFetcherConfig{
		ChunkSize:    d.cfg.ChunkSize,
		Finality:     finality,
		PollInterval: d.cfg.PollInterval.Duration,
		Addresses:    addresses,
		Topics:       topics,
	}, d.rpc, d.log)

	state, err := d.syncManager.GetState()
	if err != nil {
		return err
	}

	next := d.startBlock()
	if state.Fresh() {
		d.log.Infow("starting fresh download", "start_block", next, "addresses", len(addresses), "finality", finality.String())
	} else {
		next = max(next, state.LastIndexedBlock+1)
		d.log.Infow("resuming download", "last_indexed_block", state.LastIndexedBlock, "next_block", next)
	}

	metrics.ComponentHealthSet(common.ComponentDownloader, true)
	defer metrics.ComponentHealthSet(common.ComponentDownloader, false)

	for {
		select {
		case <-ctx.Done():
			d.log.Info("download cancelled")
			return ctx.Err()
		default:
		}

		result, err := fetcher.FetchNext(ctx, next)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			metrics.ErrorsInc(common.ComponentDownloader, "error")
			return fmt.Errorf("failed to fetch logs from block %d: %w", next, err)
		}

		if err := d.coordinator.HandleLogs(ctx, result.Logs, result.FromBlock, result.ToBlock, result.BlockTimestamps); err != nil {
			metrics.ErrorsInc(common.ComponentDownloader, "error")
			return fmt.Errorf("failed to handle logs: %w", err)
		}

		if err := d.syncManager.SaveCheckpoint(result.ToBlock, result.ToBlockHash, fetcher.GetMode()); err != nil {
			return err
		}
		next = result.ToBlock + 1

		d.log.Infow("range indexed",
			"from_block", result.FromBlock,
			"to_block", result.ToBlock,
			"logs", len(result.Logs),
			"mode", fetcher.GetMode(),
		)
	}
}

// Close closes the checkpoint database and the registered indexers.
func (d *Downloader) Close() error {
	d.log.Info("closing downloader")

	var errs []error
	for _, i := range d.coordinator.Indexers() {
		if err := i.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close indexer %s: %w", i.GetName(), err))
		}
	}
	if err := d.syncManager.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close sync manager: %w", err))
	}

	return errors.Join(errs...)
}
