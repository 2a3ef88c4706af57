// Package bazaar is the marketplace indexer: it decodes Marketplace, SimpleListings and
// EAS logs and reconciles them into the listings read model.
package bazaar

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/chain"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/content"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/events"
	baseindexer "github.com/BuidlGuidl/ethereum-bazaar/internal/indexer"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/reconciler"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/indexer"
	ethcommon "github.com/ethereum/go-ethereum/common"
)

// IndexerType is the registered type name of the marketplace indexer.
const IndexerType = config.DefaultIndexerType

const cachePingTimeout = 3 * time.Second

var _ indexer.Indexer = (*Indexer)(nil)

func init() {
	indexer.Register(IndexerType, Factory)
}

// Indexer feeds decoded marketplace events to the reconciler, one batch at a time.
type Indexer struct {
	*baseindexer.BaseIndexer

	log        *logger.Logger
	decoder    *events.Decoder
	reconciler *reconciler.Reconciler
	store      *store.Store
	cache      *content.RedisCache
}

// Factory builds the indexer for the indexer registry.
func Factory(cfg config.IndexerConfig, deps indexer.Deps, log *logger.Logger) (indexer.Indexer, error) {
	if deps.Config == nil {
		return nil, errors.New("bazaar indexer requires the process configuration")
	}
	if deps.Caller == nil {
		return nil, errors.New("bazaar indexer requires a contract caller")
	}

	var cache content.Cache
	var redisCache *content.RedisCache
	if deps.Config.Cache != nil && deps.Config.Cache.Enabled {
		redisCache = openCache(deps.Config.Cache, log)
		if redisCache != nil {
			cache = redisCache
		}
	}

	resolver := content.NewResolver(deps.Config.IPFS, cache, log.WithComponent(common.ComponentContentResolver))
	reader := chain.NewReader(deps.Caller, deps.Config.ChainReader, log.WithComponent(common.ComponentChainReader))

	idx, err := New(cfg, reader, resolver, reconciler.Config{ReviewSchema: deps.Config.Reviews.Schema()}, log)
	if err != nil {
		if redisCache != nil {
			_ = redisCache.Close()
		}
		return nil, err
	}
	idx.cache = redisCache

	return idx, nil
}

// openCache connects to Redis. The indexer runs uncached when Redis is unreachable.
func openCache(cfg *config.CacheConfig, log *logger.Logger) *content.RedisCache {
	cache, err := content.NewRedisCache(cfg)
	if err != nil {
		log.Warnw("content cache disabled", "error", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), cachePingTimeout)
	defer cancel()
	if err := cache.Ping(ctx); err != nil {
		log.Warnw("content cache unreachable, continuing without it", "error", err)
		_ = cache.Close()
		return nil
	}
	return cache
}

// New opens the indexer database and wires the reconciler with the given collaborators.
func New(
	cfg config.IndexerConfig,
	chainReader reconciler.ChainReader,
	resolver reconciler.ContentResolver,
	rcfg reconciler.Config,
	log *logger.Logger,
) (*Indexer, error) {
	idxLog := log.WithComponent(common.ComponentIndexer).WithFields("indexer", cfg.Name)

	decoder := events.NewDecoder()
	for _, c := range cfg.Contracts {
		if !ethcommon.IsHexAddress(c.Address) {
			return nil, fmt.Errorf("contract %s: invalid address %q", c.Name, c.Address)
		}
		if err := decoder.RegisterContract(c.Name, ethcommon.HexToAddress(c.Address), c.Events); err != nil {
			return nil, fmt.Errorf("register contract %s: %w", c.Name, err)
		}
	}

	st, err := store.Open(cfg.DB, log.WithComponent(common.ComponentStore).WithFields("indexer", cfg.Name))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	idx := &Indexer{
		BaseIndexer: baseindexer.NewBaseIndexer(st.DB(), log, cfg),
		log:         idxLog,
		decoder:     decoder,
		reconciler:  reconciler.New(st, chainReader, resolver, rcfg, log.WithFields("indexer", cfg.Name)),
		store:       st,
	}

	if err := idx.StartMaintenance(context.Background()); err != nil {
		_ = idx.BaseIndexer.Close()
		return nil, err
	}

	idxLog.Infow("indexer ready", "contracts", len(cfg.Contracts), "start_block", cfg.StartBlock)
	return idx, nil
}

// EventsToIndex returns the registered contract addresses and their event topics.
func (i *Indexer) EventsToIndex() map[ethcommon.Address]map[ethcommon.Hash]struct{} {
	return i.decoder.Subscriptions()
}

// HandleLogs decodes and applies the batch in chain order. A redelivered strict-insert
// event is logged and skipped; any other handler error aborts the batch.
func (i *Indexer) HandleLogs(ctx context.Context, batch indexer.Batch) error {
	unlock := i.OperationLock()
	defer unlock()

	var applied, skipped int
	for _, l := range batch.Logs {
		ev, err := i.decoder.Decode(l, batch.Timestamp(l.BlockNumber))
		if errors.Is(err, events.ErrUnknownEvent) {
			continue
		}
		if err != nil {
			i.log.Warnw("skipping undecodable log",
				"block", l.BlockNumber, "tx", l.TxHash.Hex(), "log_index", l.Index, "error", err)
			skipped++
			continue
		}

		if err := i.reconciler.Handle(ctx, ev); err != nil {
			if errors.Is(err, store.ErrDuplicate) {
				i.log.Warnw("event already applied", "event", ev.Key(), "error", err)
				skipped++
				continue
			}
			return err
		}
		applied++
	}

	i.log.Infow("batch indexed",
		"from_block", batch.FromBlock,
		"to_block", batch.ToBlock,
		"applied", applied,
		"skipped", skipped,
	)
	return nil
}

// Store exposes the read model to the query API.
func (i *Indexer) Store() *store.Store {
	return i.store
}

// Close stops maintenance and closes the database and the content cache.
func (i *Indexer) Close() error {
	err := i.BaseIndexer.Close()
	if i.cache != nil {
		err = errors.Join(err, i.cache.Close())
	}
	return err
}
