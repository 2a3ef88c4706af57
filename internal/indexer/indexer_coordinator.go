package indexer

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/metrics"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/indexer"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"golang.org/x/sync/errgroup"
)

// IndexerCoordinator routes fetched logs to the indexers that asked for them.
type IndexerCoordinator struct {
	mu sync.RWMutex

	// addressTopics maps address -> topic -> indexers for specific topic filters
	addressTopics map[common.Address]map[common.Hash][]indexer.Indexer

	// addressAllTopics maps address -> indexers that want every topic of that address
	addressAllTopics map[common.Address][]indexer.Indexer

	indexers    []indexer.Indexer
	startBlocks map[indexer.Indexer]uint64
}

// NewIndexerCoordinator creates an empty coordinator.
func NewIndexerCoordinator() *IndexerCoordinator {
	return &IndexerCoordinator{
		addressTopics:    make(map[common.Address]map[common.Hash][]indexer.Indexer),
		addressAllTopics: make(map[common.Address][]indexer.Indexer),
		startBlocks:      make(map[indexer.Indexer]uint64),
	}
}

// RegisterIndexer adds an indexer to the routing tables.
func (ic *IndexerCoordinator) RegisterIndexer(idx indexer.Indexer) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	ic.startBlocks[idx] = idx.StartBlock()

	for addr, topics := range idx.EventsToIndex() {
		if len(topics) == 0 {
			ic.addressAllTopics[addr] = append(ic.addressAllTopics[addr], idx)
			continue
		}
		if _, exists := ic.addressTopics[addr]; !exists {
			ic.addressTopics[addr] = make(map[common.Hash][]indexer.Indexer)
		}
		for topic := range topics {
			ic.addressTopics[addr][topic] = append(ic.addressTopics[addr][topic], idx)
		}
	}

	ic.indexers = append(ic.indexers, idx)
}

// HandleLogs splits the logs of [from, to] per interested indexer and hands each indexer
// its batch. Indexers run concurrently; every indexer is called, even with an empty batch,
// so its progress metrics follow the checkpoint. The first error cancels the others.
func (ic *IndexerCoordinator) HandleLogs(
	ctx context.Context,
	logs []types.Log,
	from, to uint64,
	timestamps map[uint64]uint64,
) error {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	routed := make(map[indexer.Indexer][]types.Log, len(ic.indexers))
	for _, l := range logs {
		for idx := range ic.interested(l) {
			if l.BlockNumber >= ic.startBlocks[idx] {
				routed[idx] = append(routed[idx], l)
			}
		}
	}

	g, ctx := errgroup.WithContext(ctx)
	for _, idx := range ic.indexers {
		startBlock := ic.startBlocks[idx]
		if to < startBlock {
			continue
		}

		batch := indexer.Batch{
			FromBlock:       max(from, startBlock),
			ToBlock:         to,
			Logs:            routed[idx],
			BlockTimestamps: timestamps,
		}

		g.Go(func() error {
			name := idx.GetName()
			start := time.Now()

			if len(batch.Logs) > 0 {
				if err := idx.HandleLogs(ctx, batch); err != nil {
					return fmt.Errorf("indexer %s failed to handle blocks %d-%d: %w",
						name, batch.FromBlock, batch.ToBlock, err)
				}
			}

			metrics.RecordBatch(name, batch.FromBlock, batch.ToBlock, len(batch.Logs), time.Since(start))
			return nil
		})
	}

	return g.Wait()
}

// interested returns the indexers subscribed to a log's address and event topic.
func (ic *IndexerCoordinator) interested(l types.Log) map[indexer.Indexer]struct{} {
	out := make(map[indexer.Indexer]struct{})
	for _, idx := range ic.addressAllTopics[l.Address] {
		out[idx] = struct{}{}
	}
	if len(l.Topics) == 0 {
		return out
	}
	for _, idx := range ic.addressTopics[l.Address][l.Topics[0]] {
		out[idx] = struct{}{}
	}
	return out
}

// IndexerStartBlocks returns the start block of every registered indexer.
func (ic *IndexerCoordinator) IndexerStartBlocks() []uint64 {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	startBlocks := make([]uint64, 0, len(ic.indexers))
	for _, idx := range ic.indexers {
		startBlocks = append(startBlocks, ic.startBlocks[idx])
	}
	return startBlocks
}

// Indexers returns the registered indexers in registration order.
func (ic *IndexerCoordinator) Indexers() []indexer.Indexer {
	ic.mu.RLock()
	defer ic.mu.RUnlock()

	return append([]indexer.Indexer(nil), ic.indexers...)
}
