package indexer

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// Indexer consumes the logs of the contracts it declares and builds its own read model.
type Indexer interface {
	// GetName returns the configured instance name.
	GetName() string

	// GetType returns the registered indexer type.
	GetType() string

	// EventsToIndex returns the contract addresses this indexer follows and, per address,
	// the set of event topics it wants. The downloader builds its log filter from the
	// union over all indexers.
	EventsToIndex() map[common.Address]map[common.Hash]struct{}

	// HandleLogs processes one contiguous block range. Logs are in chain order and only
	// contain the addresses and topics from EventsToIndex at or after StartBlock.
	// Returning an error stops the pipeline before the range is checkpointed.
	HandleLogs(ctx context.Context, batch Batch) error

	// StartBlock is the first block this indexer wants logs for.
	StartBlock() uint64

	// Close releases the indexer's resources.
	Close() error
}
