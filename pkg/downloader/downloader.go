package downloader

import (
	"context"
	"database/sql"

	"github.com/BuidlGuidl/ethereum-bazaar/pkg/indexer"
	"github.com/ethereum/go-ethereum/common"
)

// FetchMode is the operating mode of the log fetcher.
type FetchMode string

const (
	// ModeBackfill fetches historical ranges in chunks up to the finalized head.
	ModeBackfill FetchMode = "backfill"

	// ModeLive polls for new finalized blocks.
	ModeLive FetchMode = "live"
)

func (m FetchMode) String() string {
	return string(m)
}

// Downloader streams chain logs to registered indexers.
type Downloader interface {
	// RegisterIndexer adds an indexer. Its EventsToIndex contributes to the log filter.
	RegisterIndexer(indexer indexer.Indexer)

	// Download runs until the context is cancelled or a range fails to be indexed.
	Download(ctx context.Context) error

	// Close releases the downloader's resources.
	Close() error
}

// SyncManager persists the download checkpoint.
type SyncManager interface {
	GetLastIndexedBlock() (uint64, error)
	GetState() (*SyncState, error)
	SaveCheckpoint(blockNum uint64, blockHash common.Hash, mode FetchMode) error
	SetMode(mode FetchMode) error

	// Reset moves the checkpoint back to startBlock so the range after it is downloaded again.
	Reset(startBlock uint64) error

	Close() error
	DB() *sql.DB
}

// SyncState is the single checkpoint row.
type SyncState struct {
	ID                   int         `meddler:"id,pk" json:"-"`
	LastIndexedBlock     uint64      `meddler:"last_indexed_block" json:"last_indexed_block"`
	LastIndexedBlockHash common.Hash `meddler:"last_indexed_block_hash,hash" json:"last_indexed_block_hash"`
	LastIndexedTimestamp int64       `meddler:"last_indexed_timestamp" json:"last_indexed_timestamp"`
	Mode                 string      `meddler:"mode" json:"mode"`
}

// GetMode returns Mode as a FetchMode.
func (s *SyncState) GetMode() FetchMode {
	return FetchMode(s.Mode)
}

// Fresh reports whether nothing has been checkpointed yet.
func (s *SyncState) Fresh() bool {
	return s.LastIndexedBlock == 0 && s.LastIndexedBlockHash == (common.Hash{})
}
