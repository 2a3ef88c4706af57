package api

import (
	"math/big"
	"strings"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/store"
	"github.com/ethereum/go-ethereum/common"
)

// PaginationResult contains pagination metadata.
type PaginationResult struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"has_more"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code"`
}

// HealthResponse represents a health check response.
type HealthResponse struct {
	Status    string      `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Sync      *SyncStatus `json:"sync,omitempty"`
}

// SyncStatus is the download checkpoint.
type SyncStatus struct {
	LastIndexedBlock     uint64 `json:"last_indexed_block"`
	LastIndexedBlockHash string `json:"last_indexed_block_hash,omitempty"`
	Mode                 string `json:"mode"`
}

// ListingResponse is one listing with its denormalized display fields.
type ListingResponse struct {
	ID                    string  `json:"id"`
	Creator               string  `json:"creator"`
	ListingType           string  `json:"listing_type"`
	ListingInnerID        *string `json:"listing_inner_id,omitempty"`
	CID                   *string `json:"cid,omitempty"`
	Active                bool    `json:"active"`
	Buyer                 *string `json:"buyer,omitempty"`
	PaymentToken          *string `json:"payment_token,omitempty"`
	PriceWei              *string `json:"price_wei,omitempty"`
	TokenName             *string `json:"token_name,omitempty"`
	TokenSymbol           *string `json:"token_symbol,omitempty"`
	TokenDecimals         *uint8  `json:"token_decimals,omitempty"`
	InitialQuantity       *string `json:"initial_quantity,omitempty"`
	RemainingQuantity     *string `json:"remaining_quantity,omitempty"`
	Unlimited             *bool   `json:"unlimited,omitempty"`
	Title                 *string `json:"title,omitempty"`
	Description           *string `json:"description,omitempty"`
	Category              *string `json:"category,omitempty"`
	Image                 *string `json:"image,omitempty"`
	Contact               *string `json:"contact,omitempty"`
	Tags                  *string `json:"tags,omitempty"`
	Price                 *string `json:"price,omitempty"`
	Currency              *string `json:"currency,omitempty"`
	LocationID            *string `json:"location_id,omitempty"`
	Metadata              *string `json:"metadata,omitempty"`
	SellerReviewed        bool    `json:"seller_reviewed"`
	BuyerReviewed         bool    `json:"buyer_reviewed"`
	CreatedBlockNumber    uint64  `json:"created_block_number"`
	CreatedBlockTimestamp uint64  `json:"created_block_timestamp"`
	CreatedTxHash         string  `json:"created_tx_hash"`
}

// ListingsResponse is a page of listings.
type ListingsResponse struct {
	Listings   []ListingResponse `json:"listings"`
	Pagination PaginationResult  `json:"pagination"`
}

// ListingDetailResponse is a listing together with its sales and status history.
type ListingDetailResponse struct {
	ListingResponse
	Sales         []SaleResponse         `json:"sales"`
	StatusChanges []StatusChangeResponse `json:"status_changes"`
}

// ActionResponse is one ListingAction.
type ActionResponse struct {
	TxHash         string  `json:"tx_hash"`
	LogIndex       uint    `json:"log_index"`
	Selector       string  `json:"selector"`
	Action         *string `json:"action,omitempty"`
	Caller         string  `json:"caller"`
	Quantity       *string `json:"quantity,omitempty"`
	BlockNumber    uint64  `json:"block_number"`
	BlockTimestamp uint64  `json:"block_timestamp"`
}

// ActionsResponse is a page of listing actions.
type ActionsResponse struct {
	Actions    []ActionResponse `json:"actions"`
	Pagination PaginationResult `json:"pagination"`
}

// SaleResponse is a direct sale of a listing.
type SaleResponse struct {
	TxHash         string  `json:"tx_hash"`
	LogIndex       uint    `json:"log_index"`
	Buyer          string  `json:"buyer"`
	PriceWei       *string `json:"price_wei,omitempty"`
	PaymentToken   *string `json:"payment_token,omitempty"`
	BlockNumber    uint64  `json:"block_number"`
	BlockTimestamp uint64  `json:"block_timestamp"`
}

// StatusChangeResponse is an activation change or a close.
type StatusChangeResponse struct {
	TxHash         string  `json:"tx_hash"`
	LogIndex       uint    `json:"log_index"`
	Kind           string  `json:"kind"`
	Active         bool    `json:"active"`
	Caller         *string `json:"caller,omitempty"`
	BlockNumber    uint64  `json:"block_number"`
	BlockTimestamp uint64  `json:"block_timestamp"`
}

// ReviewResponse is one review attestation.
type ReviewResponse struct {
	UID         string  `json:"uid"`
	ListingID   string  `json:"listing_id"`
	Reviewer    string  `json:"reviewer"`
	Reviewee    string  `json:"reviewee"`
	Rating      uint8   `json:"rating"`
	CommentCID  *string `json:"comment_cid,omitempty"`
	BlockNumber uint64  `json:"block_number"`
	Time        uint64  `json:"time"`
	TxHash      string  `json:"tx_hash"`
}

// ReviewsResponse is a page of reviews.
type ReviewsResponse struct {
	Reviews    []ReviewResponse `json:"reviews"`
	Pagination PaginationResult `json:"pagination"`
}

// UserReviewsResponse is the reviews an address received, with their summary.
type UserReviewsResponse struct {
	Address       string           `json:"address"`
	ReviewCount   int64            `json:"review_count"`
	AverageRating float64          `json:"average_rating"`
	Reviews       []ReviewResponse `json:"reviews"`
	Pagination    PaginationResult `json:"pagination"`
}

func newListingResponse(l *store.Listing) ListingResponse {
	return ListingResponse{
		ID:                    l.ID,
		Creator:               hexAddress(l.Creator),
		ListingType:           hexAddress(l.ListingType),
		ListingInnerID:        bigString(l.ListingInnerID),
		CID:                   l.CID,
		Active:                l.Active,
		Buyer:                 optAddress(l.Buyer),
		PaymentToken:          optAddress(l.PaymentToken),
		PriceWei:              bigString(l.PriceWei),
		TokenName:             l.TokenName,
		TokenSymbol:           l.TokenSymbol,
		TokenDecimals:         l.TokenDecimals,
		InitialQuantity:       bigString(l.InitialQuantity),
		RemainingQuantity:     bigString(l.RemainingQuantity),
		Unlimited:             l.Unlimited,
		Title:                 l.Title,
		Description:           l.Description,
		Category:              l.Category,
		Image:                 l.Image,
		Contact:               l.Contact,
		Tags:                  l.Tags,
		Price:                 l.Price,
		Currency:              l.Currency,
		LocationID:            l.LocationID,
		Metadata:              l.Metadata,
		SellerReviewed:        l.SellerReviewed,
		BuyerReviewed:         l.BuyerReviewed,
		CreatedBlockNumber:    l.CreatedBlockNumber,
		CreatedBlockTimestamp: l.CreatedBlockTimestamp,
		CreatedTxHash:         l.CreatedTxHash.Hex(),
	}
}

func newActionResponse(a *store.Action) ActionResponse {
	return ActionResponse{
		TxHash:         a.TxHash.Hex(),
		LogIndex:       a.LogIndex,
		Selector:       a.Selector,
		Action:         a.ActionName,
		Caller:         hexAddress(a.Caller),
		Quantity:       bigString(a.Quantity),
		BlockNumber:    a.BlockNumber,
		BlockTimestamp: a.BlockTimestamp,
	}
}

func newSaleResponse(s *store.Sale) SaleResponse {
	return SaleResponse{
		TxHash:         s.TxHash.Hex(),
		LogIndex:       s.LogIndex,
		Buyer:          hexAddress(s.Buyer),
		PriceWei:       bigString(s.PriceWei),
		PaymentToken:   optAddress(s.PaymentToken),
		BlockNumber:    s.BlockNumber,
		BlockTimestamp: s.BlockTimestamp,
	}
}

func newStatusChangeResponse(c *store.StatusChange) StatusChangeResponse {
	return StatusChangeResponse{
		TxHash:         c.TxHash.Hex(),
		LogIndex:       c.LogIndex,
		Kind:           c.Kind,
		Active:         c.Active,
		Caller:         optAddress(c.Caller),
		BlockNumber:    c.BlockNumber,
		BlockTimestamp: c.BlockTimestamp,
	}
}

func newReviewResponse(r *store.Review) ReviewResponse {
	return ReviewResponse{
		UID:         r.UID.Hex(),
		ListingID:   r.ListingID,
		Reviewer:    hexAddress(r.Reviewer),
		Reviewee:    hexAddress(r.Reviewee),
		Rating:      r.Rating,
		CommentCID:  r.CommentCID,
		BlockNumber: r.BlockNumber,
		Time:        r.Time,
		TxHash:      r.TxHash.Hex(),
	}
}

func mapSlice[S, D any](in []S, fn func(S) D) []D {
	out := make([]D, 0, len(in))
	for _, v := range in {
		out = append(out, fn(v))
	}
	return out
}

// Addresses are served lowercase, the way they are stored.
func hexAddress(a common.Address) string {
	return strings.ToLower(a.Hex())
}

func optAddress(a *common.Address) *string {
	if a == nil {
		return nil
	}
	s := hexAddress(*a)
	return &s
}

func bigString(v *big.Int) *string {
	if v == nil {
		return nil
	}
	s := v.String()
	return &s
}
