package downloader

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/db"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	pkgdownloader "github.com/BuidlGuidl/ethereum-bazaar/pkg/downloader"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/russross/meddler"
)

var _ pkgdownloader.SyncManager = (*SyncManager)(nil)

type SyncState = pkgdownloader.SyncState

// SyncManager keeps the download checkpoint in the sync_state table.
type SyncManager struct {
	db          *sql.DB
	log         *logger.Logger
	maintenance db.Maintenance
}

// NewSyncManager wraps a migrated downloader database. maintenance may be nil.
func NewSyncManager(database *sql.DB, log *logger.Logger, maintenance db.Maintenance) *SyncManager {
	if maintenance == nil {
		maintenance = &db.NoOpMaintenance{}
	}

	return &SyncManager{
		db:          database,
		log:         log.WithComponent(common.ComponentSyncManager),
		maintenance: maintenance,
	}
}

// GetLastIndexedBlock returns the last checkpointed block number.
func (sm *SyncManager) GetLastIndexedBlock() (uint64, error) {
	state, err := sm.GetState()
	if err != nil {
		return 0, err
	}
	return state.LastIndexedBlock, nil
}

func (sm *SyncManager) GetState() (*SyncState, error) {
	unlock := sm.maintenance.AcquireOperationLock()
	defer unlock()

	return sm.getState()
}

func (sm *SyncManager) getState() (*SyncState, error) {
	var state SyncState
	if err := meddler.QueryRow(sm.db, &state, `SELECT * FROM sync_state WHERE id = 1`); err != nil {
		return nil, fmt.Errorf("failed to get sync state: %w", err)
	}
	return &state, nil
}

// SaveCheckpoint records blockNum as fully indexed.
func (sm *SyncManager) SaveCheckpoint(blockNum uint64, blockHash ethcommon.Hash, mode FetchMode) error {
	unlock := sm.maintenance.AcquireOperationLock()
	defer unlock()

	state := SyncState{
		ID:                   1,
		LastIndexedBlock:     blockNum,
		LastIndexedBlockHash: blockHash,
		LastIndexedTimestamp: time.Now().Unix(),
		Mode:                 mode.String(),
	}
	if err := meddler.Update(sm.db, "sync_state", &state); err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	sm.log.Debugw("checkpoint saved", "block", blockNum, "block_hash", blockHash.Hex(), "mode", mode)
	return nil
}

func (sm *SyncManager) SetMode(mode FetchMode) error {
	unlock := sm.maintenance.AcquireOperationLock()
	defer unlock()

	state, err := sm.getState()
	if err != nil {
		return err
	}
	if state.GetMode() == mode {
		return nil
	}

	state.Mode = mode.String()
	if err := meddler.Update(sm.db, "sync_state", state); err != nil {
		return fmt.Errorf("failed to set mode: %w", err)
	}

	sm.log.Infow("sync mode updated", "mode", mode)
	return nil
}

// Reset moves the checkpoint back to startBlock in backfill mode.
func (sm *SyncManager) Reset(startBlock uint64) error {
	unlock := sm.maintenance.AcquireOperationLock()
	defer unlock()

	state := SyncState{
		ID:                   1,
		LastIndexedBlock:     startBlock,
		LastIndexedTimestamp: time.Now().Unix(),
		Mode:                 ModeBackfill.String(),
	}
	if err := meddler.Update(sm.db, "sync_state", &state); err != nil {
		return fmt.Errorf("failed to reset sync state: %w", err)
	}

	sm.log.Warnw("sync state reset", "start_block", startBlock)
	return nil
}

// Close stops maintenance of the checkpoint database and closes it.
func (sm *SyncManager) Close() error {
	return errors.Join(sm.maintenance.Stop(), sm.db.Close())
}

func (sm *SyncManager) DB() *sql.DB {
	return sm.db
}
