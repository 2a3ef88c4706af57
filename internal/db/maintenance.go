package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
)

// Maintenance serialises periodic housekeeping of a SQLite database with the writes of its owner.
type Maintenance interface {
	// Start begins background maintenance if enabled.
	Start(ctx context.Context) error
	// Stop stops background maintenance and waits for the worker to exit.
	Stop() error
	// AcquireOperationLock takes a shared lock for a database operation.
	// The returned function releases it.
	AcquireOperationLock() func()
	// GetMetrics returns the maintenance counters.
	GetMetrics() MaintenanceMetrics
	// RunMaintenance checkpoints the WAL and vacuums the database.
	RunMaintenance(ctx context.Context) error
}

// NoOpMaintenance is used when maintenance is not configured.
type NoOpMaintenance struct{}

func (*NoOpMaintenance) Start(context.Context) error          { return nil }
func (*NoOpMaintenance) Stop() error                          { return nil }
func (*NoOpMaintenance) RunMaintenance(context.Context) error { return nil }
func (*NoOpMaintenance) AcquireOperationLock() func()         { return func() {} }
func (*NoOpMaintenance) GetMetrics() MaintenanceMetrics       { return MaintenanceMetrics{} }

// MaintenanceMetrics provides visibility into maintenance runs.
type MaintenanceMetrics struct {
	LastMaintenanceTime  time.Time
	MaintenanceCount     uint64
	LastMaintenanceError error
}

// MaintenanceCoordinator runs maintenance for one database.
// Operations hold the read side of opLock, maintenance holds the write side,
// so a run waits for in-flight writes and blocks new ones until it is done.
type MaintenanceCoordinator struct {
	name   string
	db     *sql.DB
	dbPath string
	config config.MaintenanceConfig
	log    *logger.Logger

	opLock sync.RWMutex

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	lastRun  time.Time
	runCount uint64
	lastErr  error
}

// NewMaintenanceCoordinator returns a coordinator for the database called name,
// or a NoOpMaintenance when cfg is nil.
func NewMaintenanceCoordinator(
	name string,
	dbPath string,
	db *sql.DB,
	cfg *config.MaintenanceConfig,
	log *logger.Logger,
) Maintenance {
	if cfg == nil {
		return &NoOpMaintenance{}
	}

	return newMaintenanceCoordinator(name, dbPath, db, *cfg, log)
}

func newMaintenanceCoordinator(
	name string,
	dbPath string,
	db *sql.DB,
	cfg config.MaintenanceConfig,
	log *logger.Logger,
) *MaintenanceCoordinator {
	return &MaintenanceCoordinator{
		name:   name,
		db:     db,
		dbPath: dbPath,
		config: cfg,
		log:    log.WithComponent(common.ComponentMaintenance).WithFields("db", name),
	}
}

// Start launches the background worker. It is a no-op when maintenance is disabled.
func (m *MaintenanceCoordinator) Start(ctx context.Context) error {
	if !m.config.Enabled {
		m.log.Info("background maintenance is disabled")
		return nil
	}
	if m.config.CheckInterval.Duration <= 0 {
		return fmt.Errorf("maintenance check_interval must be positive")
	}

	ctx, m.cancel = context.WithCancel(ctx)

	if m.config.VacuumOnStartup {
		if err := m.RunMaintenance(ctx); err != nil {
			m.log.Warnf("startup maintenance failed: %v", err)
		}
	}

	m.wg.Add(1)
	go m.worker(ctx, m.config.CheckInterval.Duration)

	m.log.Infof("background maintenance started, interval %v, checkpoint mode %s",
		m.config.CheckInterval.Duration, m.config.WALCheckpointMode)

	return nil
}

// Stop cancels the worker and waits for it.
func (m *MaintenanceCoordinator) Stop() error {
	if m.cancel == nil {
		return nil
	}

	m.cancel()
	m.wg.Wait()
	m.log.Info("background maintenance stopped")

	return nil
}

func (m *MaintenanceCoordinator) worker(ctx context.Context, interval time.Duration) {
	defer m.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := m.RunMaintenance(ctx); err != nil && !errors.Is(err, context.Canceled) {
				m.log.Warnf("periodic maintenance failed: %v", err)
			}
		}
	}
}

// RunMaintenance takes the exclusive lock, checkpoints the WAL and runs VACUUM.
func (m *MaintenanceCoordinator) RunMaintenance(ctx context.Context) error {
	start := time.Now()

	m.opLock.Lock()
	defer m.opLock.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	before, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnf("failed to measure database: %v", err)
	}

	var runErr error
	if err := m.walCheckpoint(); err != nil {
		runErr = fmt.Errorf("wal checkpoint: %w", err)
	}
	if err := Vacuum(m.db); err != nil {
		if strings.Contains(err.Error(), "database is locked") {
			m.log.Warn("vacuum skipped, database is locked")
		} else {
			runErr = errors.Join(runErr, err)
		}
	}

	after, err := DBTotalSize(m.dbPath)
	if err != nil {
		m.log.Warnf("failed to measure database: %v", err)
	}

	took := time.Since(start)

	m.mu.Lock()
	m.lastRun = time.Now().UTC()
	m.runCount++
	m.lastErr = runErr
	m.mu.Unlock()

	maintenanceFinished(m.name, took)
	maintenanceOutcome(m.name, runErr)
	sizeLog(m.name, after)

	if runErr != nil {
		m.log.Warnf("maintenance finished with errors in %v: %v", took, runErr)
		return runErr
	}

	if before > after {
		reclaimed := uint64(before - after)
		spaceReclaimed(m.name, reclaimed)
		m.log.Infof("maintenance finished in %v, reclaimed %d MB", took, common.BytesToMB(reclaimed))
	} else {
		m.log.Debugf("maintenance finished in %v", took)
	}

	return nil
}

func (m *MaintenanceCoordinator) walCheckpoint() error {
	var mode string
	if err := m.db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		return fmt.Errorf("failed to read journal mode: %w", err)
	}
	if !strings.EqualFold(mode, "wal") {
		return nil
	}

	var busy, logFrames, checkpointed int
	query := fmt.Sprintf("PRAGMA wal_checkpoint(%s)", m.config.WALCheckpointMode)
	if err := m.db.QueryRow(query).Scan(&busy, &logFrames, &checkpointed); err != nil {
		return err
	}

	walCheckpointInc(m.name, strings.ToLower(m.config.WALCheckpointMode))
	if busy > 0 {
		m.log.Warnf("wal checkpoint left %d busy pages", busy)
	}
	m.log.Debugf("wal checkpoint %s: %d/%d frames", m.config.WALCheckpointMode, checkpointed, logFrames)

	return nil
}

// AcquireOperationLock takes the shared side of the maintenance lock.
func (m *MaintenanceCoordinator) AcquireOperationLock() func() {
	m.opLock.RLock()
	return m.opLock.RUnlock
}

// GetMetrics returns the maintenance counters.
func (m *MaintenanceCoordinator) GetMetrics() MaintenanceMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()

	return MaintenanceMetrics{
		LastMaintenanceTime:  m.lastRun,
		MaintenanceCount:     m.runCount,
		LastMaintenanceError: m.lastErr,
	}
}
