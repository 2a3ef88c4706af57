package downloader

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/indexer"
	ethcommon "github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

// recordingIndexer keeps every batch it is handed.
type recordingIndexer struct {
	start  uint64
	events map[ethcommon.Address]map[ethcommon.Hash]struct{}

	mu      sync.Mutex
	batches []indexer.Batch
	closed  bool
}

func (r *recordingIndexer) GetName() string    { return "recorder" }
func (r *recordingIndexer) GetType() string    { return "test" }
func (r *recordingIndexer) StartBlock() uint64 { return r.start }
func (r *recordingIndexer) EventsToIndex() map[ethcommon.Address]map[ethcommon.Hash]struct{} {
	return r.events
}

func (r *recordingIndexer) HandleLogs(_ context.Context, b indexer.Batch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.batches = append(r.batches, b)
	return nil
}

func (r *recordingIndexer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = true
	return nil
}

// logs returns the handled logs and the timestamps they were delivered with.
func (r *recordingIndexer) logs() ([]types.Log, map[uint64]uint64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []types.Log
	times := make(map[uint64]uint64)
	for _, b := range r.batches {
		for _, l := range b.Logs {
			out = append(out, l)
			times[l.BlockNumber] = b.Timestamp(l.BlockNumber)
		}
	}
	return out, times
}

func newTestDownloader(t *testing.T, client *fakeEthClient) (*Downloader, *SyncManager) {
	t.Helper()

	sm := NewSyncManager(setupTestDB(t), logger.NewNopLogger(), nil)
	d, err := New(config.DownloaderConfig{
		ChunkSize:    10,
		Finality:     "latest",
		PollInterval: common.NewDuration(5 * time.Millisecond),
	}, client, sm, logger.NewNopLogger())
	require.NoError(t, err)

	return d, sm
}

// runUntil runs Download until the checkpoint reaches block, then cancels it.
func runUntil(t *testing.T, d *Downloader, sm *SyncManager, block uint64) {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- d.Download(ctx) }()

	require.Eventually(t, func() bool {
		last, err := sm.GetLastIndexedBlock()
		return err == nil && last >= block
	}, 5*time.Second, 5*time.Millisecond)

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestDownloader_IndexesAllRangesAndCheckpoints(t *testing.T) {
	t.Parallel()

	client := &fakeEthClient{
		head: 25,
		logs: []types.Log{
			testLog(marketAddr, createdTopic, 3, 0),
			testLog(marketAddr, createdTopic, 12, 0),
			testLog(marketAddr, otherTopic, 15, 0),
			testLog(marketAddr, createdTopic, 21, 2),
		},
	}
	d, sm := newTestDownloader(t, client)

	rec := &recordingIndexer{
		start:  1,
		events: map[ethcommon.Address]map[ethcommon.Hash]struct{}{marketAddr: {createdTopic: {}}},
	}
	d.RegisterIndexer(rec)

	runUntil(t, d, sm, 25)

	logs, times := rec.logs()
	require.Len(t, logs, 3)
	require.Equal(t, []uint64{3, 12, 21}, []uint64{logs[0].BlockNumber, logs[1].BlockNumber, logs[2].BlockNumber})
	require.Equal(t, map[uint64]uint64{
		3:  genesisTime + 3*12,
		12: genesisTime + 12*12,
		21: genesisTime + 21*12,
	}, times)

	state, err := sm.GetState()
	require.NoError(t, err)
	require.Equal(t, uint64(25), state.LastIndexedBlock)
	require.Equal(t, fakeHeader(25).Hash(), state.LastIndexedBlockHash)
	require.Equal(t, ModeLive, state.GetMode())

	require.NoError(t, d.Close())
	require.True(t, rec.closed)
}

func TestDownloader_ResumesAfterCheckpoint(t *testing.T) {
	t.Parallel()

	client := &fakeEthClient{
		head: 30,
		logs: []types.Log{
			testLog(marketAddr, createdTopic, 5, 0),
			testLog(marketAddr, createdTopic, 22, 0),
		},
	}
	d, sm := newTestDownloader(t, client)
	require.NoError(t, sm.SaveCheckpoint(15, fakeHeader(15).Hash(), ModeBackfill))

	rec := &recordingIndexer{
		events: map[ethcommon.Address]map[ethcommon.Hash]struct{}{marketAddr: {createdTopic: {}}},
	}
	d.RegisterIndexer(rec)

	runUntil(t, d, sm, 30)

	logs, _ := rec.logs()
	require.Len(t, logs, 1)
	require.Equal(t, uint64(22), logs[0].BlockNumber)
	require.Equal(t, [2]uint64{16, 25}, client.getLogsRanges[0])
}

func TestDownloader_Filter(t *testing.T) {
	t.Parallel()

	d, _ := newTestDownloader(t, &fakeEthClient{})
	easAddr := ethcommon.HexToAddress("0xbb")

	d.RegisterIndexer(&recordingIndexer{events: map[ethcommon.Address]map[ethcommon.Hash]struct{}{
		marketAddr: {createdTopic: {}},
	}})
	addresses, topics := d.filter()
	require.Equal(t, []ethcommon.Address{marketAddr}, addresses)
	require.Equal(t, []ethcommon.Hash{createdTopic}, topics)

	d.RegisterIndexer(&recordingIndexer{events: map[ethcommon.Address]map[ethcommon.Hash]struct{}{
		marketAddr: {otherTopic: {}},
		easAddr:    {},
	}})
	addresses, topics = d.filter()
	require.ElementsMatch(t, []ethcommon.Address{marketAddr, easAddr}, addresses)
	require.Empty(t, topics, "an address followed for every event disables the topic filter")
}

func TestDownloader_RequiresIndexers(t *testing.T) {
	t.Parallel()

	d, _ := newTestDownloader(t, &fakeEthClient{head: 10})
	require.ErrorContains(t, d.Download(context.Background()), "no indexers registered")
}
