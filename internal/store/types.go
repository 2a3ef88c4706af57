package store

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Table names.
const (
	TableListings      = "listings"
	TableActions       = "listing_actions"
	TableBuffer        = "listing_buffer"
	TableSales         = "listing_sales"
	TableStatusChanges = "listing_status_changes"
	TableReviews       = "reviews"
)

// Status change kinds.
const (
	StatusActivationChanged = "activation_changed"
	StatusClosed            = "closed"
)

// Listing is the marketplace read model of a listing.
type Listing struct {
	ID                    string          `meddler:"id"`
	Creator               common.Address  `meddler:"creator,address"`
	ListingType           common.Address  `meddler:"listing_type,address"`
	ListingInnerID        *big.Int        `meddler:"listing_inner_id,bigint"`
	CID                   *string         `meddler:"cid"`
	Active                bool            `meddler:"active"`
	Buyer                 *common.Address `meddler:"buyer,address"`
	PaymentToken          *common.Address `meddler:"payment_token,address"`
	PriceWei              *big.Int        `meddler:"price_wei,bigint"`
	TokenName             *string         `meddler:"token_name"`
	TokenSymbol           *string         `meddler:"token_symbol"`
	TokenDecimals         *uint8          `meddler:"token_decimals"`
	InitialQuantity       *big.Int        `meddler:"initial_quantity,bigint"`
	RemainingQuantity     *big.Int        `meddler:"remaining_quantity,bigint"`
	Unlimited             *bool           `meddler:"unlimited"`
	Title                 *string         `meddler:"title"`
	Description           *string         `meddler:"description"`
	Category              *string         `meddler:"category"`
	Image                 *string         `meddler:"image"`
	Contact               *string         `meddler:"contact"`
	Tags                  *string         `meddler:"tags"`
	Price                 *string         `meddler:"price"`
	Currency              *string         `meddler:"currency"`
	LocationID            *string         `meddler:"location_id"`
	Metadata              *string         `meddler:"metadata"`
	BuyerReviewed         bool            `meddler:"buyer_reviewed"`
	SellerReviewed        bool            `meddler:"seller_reviewed"`
	CreatedBlockNumber    uint64          `meddler:"created_block_number"`
	CreatedBlockTimestamp uint64          `meddler:"created_block_timestamp"`
	CreatedTxHash         common.Hash     `meddler:"created_tx_hash,hash"`
}

// Action is one ListingAction event. Quantity is filled in later for buys.
type Action struct {
	TxHash         common.Hash    `meddler:"tx_hash,hash"`
	LogIndex       uint           `meddler:"log_index"`
	ListingID      string         `meddler:"listing_id"`
	Selector       string         `meddler:"selector"`
	ActionName     *string        `meddler:"action_name"`
	Caller         common.Address `meddler:"caller,address"`
	Quantity       *big.Int       `meddler:"quantity,bigint"`
	BlockNumber    uint64         `meddler:"block_number"`
	BlockTimestamp uint64         `meddler:"block_timestamp"`
}

// BufferEntry holds satellite listing data seen before the registry listing it belongs to.
type BufferEntry struct {
	ListingType    common.Address  `meddler:"listing_type,address"`
	ListingInnerID *big.Int        `meddler:"listing_inner_id,bigint"`
	Creator        *common.Address `meddler:"creator,address"`
	PaymentToken   *common.Address `meddler:"payment_token,address"`
	PriceWei       *big.Int        `meddler:"price_wei,bigint"`
	CID            *string         `meddler:"cid"`
	TokenName      *string         `meddler:"token_name"`
	TokenSymbol    *string         `meddler:"token_symbol"`
	TokenDecimals  *uint8          `meddler:"token_decimals"`
	Metadata       *string         `meddler:"metadata"`
	BlockNumber    uint64          `meddler:"block_number"`
	BlockTimestamp uint64          `meddler:"block_timestamp"`
	TxHash         common.Hash     `meddler:"tx_hash,hash"`
	ConsumedBy     *string         `meddler:"consumed_by"`
}

// Sale is a direct sale recorded by a listing type contract.
type Sale struct {
	TxHash         common.Hash     `meddler:"tx_hash,hash"`
	LogIndex       uint            `meddler:"log_index"`
	ListingID      *string         `meddler:"listing_id"`
	ListingType    common.Address  `meddler:"listing_type,address"`
	ListingInnerID *big.Int        `meddler:"listing_inner_id,bigint"`
	Buyer          common.Address  `meddler:"buyer,address"`
	PriceWei       *big.Int        `meddler:"price_wei,bigint"`
	PaymentToken   *common.Address `meddler:"payment_token,address"`
	BlockNumber    uint64          `meddler:"block_number"`
	BlockTimestamp uint64          `meddler:"block_timestamp"`
}

// StatusChange records an activation change or a close.
type StatusChange struct {
	TxHash         common.Hash     `meddler:"tx_hash,hash"`
	LogIndex       uint            `meddler:"log_index"`
	Kind           string          `meddler:"kind"`
	ListingID      *string         `meddler:"listing_id"`
	ListingType    *common.Address `meddler:"listing_type,address"`
	ListingInnerID *big.Int        `meddler:"listing_inner_id,bigint"`
	Active         bool            `meddler:"active"`
	Caller         *common.Address `meddler:"caller,address"`
	BlockNumber    uint64          `meddler:"block_number"`
	BlockTimestamp uint64          `meddler:"block_timestamp"`
}

// Review is a marketplace review attestation.
type Review struct {
	UID         common.Hash    `meddler:"uid,hash"`
	ListingID   string         `meddler:"listing_id"`
	Reviewer    common.Address `meddler:"reviewer,address"`
	Reviewee    common.Address `meddler:"reviewee,address"`
	Rating      uint8          `meddler:"rating"`
	CommentCID  *string        `meddler:"comment_cid"`
	SchemaUID   common.Hash    `meddler:"schema_uid,hash"`
	BlockNumber uint64         `meddler:"block_number"`
	Time        uint64         `meddler:"time"`
	TxHash      common.Hash    `meddler:"tx_hash,hash"`
}

// ReviewSummary aggregates the reviews received by one address.
type ReviewSummary struct {
	Count         int64   `meddler:"review_count"`
	AverageRating float64 `meddler:"average_rating"`
}

// ListingFilter selects listings for the query surface. Zero fields do not filter.
type ListingFilter struct {
	LocationID *string
	Active     *bool
	Creator    *common.Address
	Buyer      *common.Address
	Limit      int
	Offset     int
}

// ReviewFilter selects reviews. Zero fields do not filter.
type ReviewFilter struct {
	Reviewee  *common.Address
	Reviewer  *common.Address
	ListingID *string
	Limit     int
	Offset    int
}
