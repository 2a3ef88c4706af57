package indexer

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/db"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
)

// BaseIndexer carries what every indexer instance owns: its configuration entry, its
// database and the maintenance coordinator of that database. Embed it to get GetName,
// GetType, StartBlock and Close.
type BaseIndexer struct {
	log         *logger.Logger
	cfg         config.IndexerConfig
	maintenance db.Maintenance

	DB *sql.DB
}

// NewBaseIndexer wraps an open indexer database. Maintenance runs only when
// cfg.Maintenance is set.
func NewBaseIndexer(database *sql.DB, log *logger.Logger, cfg config.IndexerConfig) *BaseIndexer {
	return &BaseIndexer{
		DB:          database,
		log:         log,
		cfg:         cfg,
		maintenance: db.NewMaintenanceCoordinator(cfg.Name, cfg.DB.Path, database, cfg.Maintenance, log),
	}
}

// StartMaintenance launches background maintenance of the indexer database.
func (b *BaseIndexer) StartMaintenance(ctx context.Context) error {
	if err := b.maintenance.Start(ctx); err != nil {
		return fmt.Errorf("start maintenance of %s: %w", b.cfg.Name, err)
	}
	return nil
}

// OperationLock holds off maintenance until the returned func is called.
func (b *BaseIndexer) OperationLock() func() {
	return b.maintenance.AcquireOperationLock()
}

// GetType returns the type identifier of the indexer.
func (b *BaseIndexer) GetType() string {
	return b.cfg.Type
}

// GetName returns the configured name of the indexer instance.
func (b *BaseIndexer) GetName() string {
	return b.cfg.Name
}

// StartBlock returns the block number from which this indexer should start.
func (b *BaseIndexer) StartBlock() uint64 {
	return b.cfg.StartBlock
}

// Config returns the configuration entry the indexer was created from.
func (b *BaseIndexer) Config() config.IndexerConfig {
	return b.cfg
}

// Close stops maintenance and closes the database connection.
func (b *BaseIndexer) Close() error {
	var errs []error
	if err := b.maintenance.Stop(); err != nil {
		errs = append(errs, err)
	}
	if b.DB != nil {
		if err := b.DB.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
