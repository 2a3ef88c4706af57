package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/db"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/metrics"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store/migrations"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"github.com/ethereum/go-ethereum/common"
	"github.com/mattn/go-sqlite3"
	"github.com/russross/meddler"
)

var (
	// ErrDuplicate is returned by strict inserts when the primary key already exists.
	ErrDuplicate = errors.New("duplicate record")

	// ErrNotFound is returned when no record matches.
	ErrNotFound = errors.New("record not found")
)

const (
	metricsDB = "bazaar"

	defaultLimit = 50
	maxLimit     = 500
)

// Store is the SQLite backed marketplace read model.
type Store struct {
	db  *sql.DB
	log *logger.Logger
}

// New wraps an already migrated database.
func New(database *sql.DB, log *logger.Logger) *Store {
	return &Store{db: database, log: log}
}

// Open opens the database described by cfg and applies the schema migrations.
func Open(cfg config.DatabaseConfig, log *logger.Logger) (*Store, error) {
	database, err := db.NewSQLiteDBFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	if err := migrations.RunMigrations(log, database); err != nil {
		database.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}
	return New(database, log), nil
}

// DB returns the underlying database handle.
func (s *Store) DB() *sql.DB {
	return s.db
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) observe(operation string, start time.Time, err error) {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrDuplicate) {
		err = nil
	}
	metrics.DBQueryObserve(metricsDB, operation, start, err)
}

// meddler does not expose the driver error through errors.As, so the message is checked too.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// insert performs a strict insert.
func (s *Store) insert(ctx context.Context, table string, record any) (err error) {
	start := time.Now()
	defer func() { s.observe("insert_"+table, start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err = meddler.Insert(s.db, table, record); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%s: %w", table, ErrDuplicate)
		}
		return fmt.Errorf("failed to insert into %s: %w", table, err)
	}
	return nil
}

func (s *Store) updateWhere(ctx context.Context, table string, where Predicate, patch Patch) (_ int64, err error) {
	start := time.Now()
	defer func() { s.observe("update_"+table, start, err) }()

	setClause, setArgs, err := patch.set(table)
	if err != nil {
		return 0, err
	}
	whereClause, whereArgs, err := where.where(table)
	if err != nil {
		return 0, err
	}

	query := fmt.Sprintf("UPDATE %s SET %s WHERE %s", table, setClause, whereClause)
	res, err := s.db.ExecContext(ctx, query, append(setArgs, whereArgs...)...)
	if err != nil {
		return 0, fmt.Errorf("failed to update %s: %w", table, err)
	}
	return res.RowsAffected()
}

func (s *Store) findOne(ctx context.Context, table string, where Predicate, dst any) (err error) {
	start := time.Now()
	defer func() { s.observe("find_"+table, start, err) }()

	whereClause, args, err := where.where(table)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	query := fmt.Sprintf("SELECT * FROM %s WHERE %s LIMIT 1", table, whereClause)
	if err = meddler.QueryRow(s.db, dst, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("%s: %w", table, ErrNotFound)
		}
		return fmt.Errorf("failed to query %s: %w", table, err)
	}
	return nil
}

func (s *Store) queryAll(ctx context.Context, operation string, dst any, query string, args ...any) (err error) {
	start := time.Now()
	defer func() { s.observe(operation, start, err) }()

	if err := ctx.Err(); err != nil {
		return err
	}
	if err = meddler.QueryAll(s.db, dst, query, args...); err != nil {
		return fmt.Errorf("failed to %s: %w", strings.ReplaceAll(operation, "_", " "), err)
	}
	return nil
}

func pageArgs(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// InsertListing strictly inserts a listing.
func (s *Store) InsertListing(ctx context.Context, l *Listing) error {
	return s.insert(ctx, TableListings, l)
}

// UpdateListingsWhere patches every listing matching where.
func (s *Store) UpdateListingsWhere(ctx context.Context, where Predicate, patch Patch) (int64, error) {
	return s.updateWhere(ctx, TableListings, where, patch)
}

// FindListing returns the first listing matching where.
func (s *Store) FindListing(ctx context.Context, where Predicate) (*Listing, error) {
	var l Listing
	if err := s.findOne(ctx, TableListings, where, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

// GetListing returns the listing with the given registry id.
func (s *Store) GetListing(ctx context.Context, id string) (*Listing, error) {
	return s.FindListing(ctx, Predicate{"id": id})
}

// ListListings returns listings matching filter, newest first.
func (s *Store) ListListings(ctx context.Context, filter ListingFilter) ([]*Listing, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.LocationID != nil {
		clauses = append(clauses, "location_id = ?")
		args = append(args, *filter.LocationID)
	}
	if filter.Active != nil {
		clauses = append(clauses, "active = ?")
		args = append(args, *filter.Active)
	}
	if filter.Creator != nil {
		clauses = append(clauses, "creator = ?")
		args = append(args, sqlValue(filter.Creator))
	}
	if filter.Buyer != nil {
		clauses = append(clauses, "buyer = ?")
		args = append(args, sqlValue(filter.Buyer))
	}

	query := "SELECT * FROM listings"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit, offset := pageArgs(filter.Limit, filter.Offset)
	query += " ORDER BY created_block_number DESC, CAST(id AS INTEGER) DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var out []*Listing
	if err := s.queryAll(ctx, "list_listings", &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertAction strictly inserts a listing action.
func (s *Store) InsertAction(ctx context.Context, a *Action) error {
	return s.insert(ctx, TableActions, a)
}

// UpdateActionsWhere patches every action matching where.
func (s *Store) UpdateActionsWhere(ctx context.Context, where Predicate, patch Patch) (int64, error) {
	return s.updateWhere(ctx, TableActions, where, patch)
}

// FindAction returns the first action matching where.
func (s *Store) FindAction(ctx context.Context, where Predicate) (*Action, error) {
	var a Action
	if err := s.findOne(ctx, TableActions, where, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

// ListActions returns the actions of a listing in chain order.
func (s *Store) ListActions(ctx context.Context, listingID string, limit, offset int) ([]*Action, error) {
	limit, offset = pageArgs(limit, offset)

	const query = `
		SELECT * FROM listing_actions
		WHERE listing_id = ?
		ORDER BY block_number ASC, log_index ASC
		LIMIT ? OFFSET ?
	`
	var out []*Action
	if err := s.queryAll(ctx, "list_actions", &out, query, listingID, limit, offset); err != nil {
		return nil, err
	}
	return out, nil
}

const upsertBufferQuery = `
	INSERT INTO listing_buffer (
		listing_type, listing_inner_id, creator, payment_token, price_wei, cid,
		token_name, token_symbol, token_decimals, metadata,
		block_number, block_timestamp, tx_hash, consumed_by
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (listing_type, listing_inner_id) DO UPDATE SET
		creator = excluded.creator,
		payment_token = excluded.payment_token,
		price_wei = excluded.price_wei,
		cid = excluded.cid,
		token_name = excluded.token_name,
		token_symbol = excluded.token_symbol,
		token_decimals = excluded.token_decimals,
		metadata = excluded.metadata,
		block_number = excluded.block_number,
		block_timestamp = excluded.block_timestamp,
		tx_hash = excluded.tx_hash,
		consumed_by = excluded.consumed_by
`

// UpsertBuffer writes a buffer entry. The last write for a (listing_type, listing_inner_id) wins.
func (s *Store) UpsertBuffer(ctx context.Context, b *BufferEntry) (err error) {
	start := time.Now()
	defer func() { s.observe("upsert_"+TableBuffer, start, err) }()

	_, err = s.db.ExecContext(ctx, upsertBufferQuery,
		sqlValue(b.ListingType), sqlValue(b.ListingInnerID), sqlValue(b.Creator),
		sqlValue(b.PaymentToken), sqlValue(b.PriceWei), sqlValue(b.CID),
		sqlValue(b.TokenName), sqlValue(b.TokenSymbol), sqlValue(b.TokenDecimals), sqlValue(b.Metadata),
		b.BlockNumber, b.BlockTimestamp, sqlValue(b.TxHash), sqlValue(b.ConsumedBy),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert %s: %w", TableBuffer, err)
	}
	return nil
}

// FindBuffer returns the first buffer entry matching where.
func (s *Store) FindBuffer(ctx context.Context, where Predicate) (*BufferEntry, error) {
	var b BufferEntry
	if err := s.findOne(ctx, TableBuffer, where, &b); err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateBufferWhere patches every buffer entry matching where.
func (s *Store) UpdateBufferWhere(ctx context.Context, where Predicate, patch Patch) (int64, error) {
	return s.updateWhere(ctx, TableBuffer, where, patch)
}

// InsertSale strictly inserts a sale record.
func (s *Store) InsertSale(ctx context.Context, sale *Sale) error {
	return s.insert(ctx, TableSales, sale)
}

// ListSales returns the sales recorded for a listing in chain order.
func (s *Store) ListSales(ctx context.Context, listingID string) ([]*Sale, error) {
	const query = `SELECT * FROM listing_sales WHERE listing_id = ? ORDER BY block_number ASC, log_index ASC`
	var out []*Sale
	if err := s.queryAll(ctx, "list_sales", &out, query, listingID); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertStatusChange strictly inserts a status change record.
func (s *Store) InsertStatusChange(ctx context.Context, c *StatusChange) error {
	return s.insert(ctx, TableStatusChanges, c)
}

// ListStatusChanges returns the status changes recorded for a listing in chain order.
func (s *Store) ListStatusChanges(ctx context.Context, listingID string) ([]*StatusChange, error) {
	const query = `SELECT * FROM listing_status_changes WHERE listing_id = ? ORDER BY block_number ASC, log_index ASC`
	var out []*StatusChange
	if err := s.queryAll(ctx, "list_status_changes", &out, query, listingID); err != nil {
		return nil, err
	}
	return out, nil
}

// InsertReviewIfAbsent inserts r unless a review with the same uid exists.
// It reports whether a row was written.
func (s *Store) InsertReviewIfAbsent(ctx context.Context, r *Review) (inserted bool, err error) {
	start := time.Now()
	defer func() { s.observe("insert_if_absent_"+TableReviews, start, err) }()

	const query = `
		INSERT INTO reviews (uid, listing_id, reviewer, reviewee, rating, comment_cid, schema_uid, block_number, time, tx_hash)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (uid) DO NOTHING
	`
	res, err := s.db.ExecContext(ctx, query,
		sqlValue(r.UID), r.ListingID, sqlValue(r.Reviewer), sqlValue(r.Reviewee), r.Rating,
		sqlValue(r.CommentCID), sqlValue(r.SchemaUID), r.BlockNumber, r.Time, sqlValue(r.TxHash),
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert review: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// FindReview returns the first review matching where.
func (s *Store) FindReview(ctx context.Context, where Predicate) (*Review, error) {
	var r Review
	if err := s.findOne(ctx, TableReviews, where, &r); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListReviews returns reviews matching filter, newest first.
func (s *Store) ListReviews(ctx context.Context, filter ReviewFilter) ([]*Review, error) {
	var (
		clauses []string
		args    []any
	)
	if filter.Reviewee != nil {
		clauses = append(clauses, "reviewee = ?")
		args = append(args, sqlValue(filter.Reviewee))
	}
	if filter.Reviewer != nil {
		clauses = append(clauses, "reviewer = ?")
		args = append(args, sqlValue(filter.Reviewer))
	}
	if filter.ListingID != nil {
		clauses = append(clauses, "listing_id = ?")
		args = append(args, *filter.ListingID)
	}

	query := "SELECT * FROM reviews"
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	limit, offset := pageArgs(filter.Limit, filter.Offset)
	query += " ORDER BY block_number DESC, time DESC LIMIT ? OFFSET ?"
	args = append(args, limit, offset)

	var out []*Review
	if err := s.queryAll(ctx, "list_reviews", &out, query, args...); err != nil {
		return nil, err
	}
	return out, nil
}

// ReviewSummary returns the review count and average rating received by reviewee.
func (s *Store) ReviewSummary(ctx context.Context, reviewee common.Address) (_ ReviewSummary, err error) {
	start := time.Now()
	defer func() { s.observe("review_summary", start, err) }()

	const query = `
		SELECT COUNT(*) AS review_count, COALESCE(AVG(rating), 0) AS average_rating
		FROM reviews WHERE reviewee = ?
	`
	var summary ReviewSummary
	if err = meddler.QueryRow(s.db, &summary, query, sqlValue(reviewee)); err != nil {
		return ReviewSummary{}, fmt.Errorf("failed to summarize reviews: %w", err)
	}
	return summary, nil
}
