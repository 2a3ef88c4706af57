package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store"
	pkgdownloader "github.com/BuidlGuidl/ethereum-bazaar/pkg/downloader"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Reader is the read side of the listings store.
type Reader interface {
	ListListings(ctx context.Context, filter store.ListingFilter) ([]*store.Listing, error)
	GetListing(ctx context.Context, id string) (*store.Listing, error)
	ListActions(ctx context.Context, listingID string, limit, offset int) ([]*store.Action, error)
	ListSales(ctx context.Context, listingID string) ([]*store.Sale, error)
	ListStatusChanges(ctx context.Context, listingID string) ([]*store.StatusChange, error)
	ListReviews(ctx context.Context, filter store.ReviewFilter) ([]*store.Review, error)
	FindReview(ctx context.Context, where store.Predicate) (*store.Review, error)
	ReviewSummary(ctx context.Context, reviewee common.Address) (store.ReviewSummary, error)
}

// SyncStatusProvider exposes the download checkpoint.
type SyncStatusProvider interface {
	GetState() (*pkgdownloader.SyncState, error)
}

// Handler handles HTTP requests for the API.
type Handler struct {
	reader Reader
	sync   SyncStatusProvider
	log    *logger.Logger
}

// NewHandler creates a new API handler. sync may be nil.
func NewHandler(reader Reader, sync SyncStatusProvider, log *logger.Logger) *Handler {
	return &Handler{
		reader: reader,
		sync:   sync,
		log:    log,
	}
}

// ListListings returns listings, newest first.
// @Summary List listings
// @Description List indexed listings with optional filters, newest first
// @Tags Listings
// @Produce json
// @Param location_id query string false "Filter by location id"
// @Param active query boolean false "Filter by active flag"
// @Param creator query string false "Filter by creator address"
// @Param buyer query string false "Filter by buyer address"
// @Param limit query int false "Maximum number of listings to return" default(50)
// @Param offset query int false "Number of listings to skip" default(0)
// @Success 200 {object} ListingsResponse "Listings with pagination info"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /listings [get]
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListingFilter(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	listings, err := h.reader.ListListings(r.Context(), filter)
	if err != nil {
		h.log.Errorw("failed to list listings", "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list listings")
		return
	}

	respondJSON(w, http.StatusOK, ListingsResponse{
		Listings:   mapSlice(listings, newListingResponse),
		Pagination: pagination(filter.Limit, filter.Offset, len(listings)),
	})
}

// GetListing returns one listing with its sales and status history.
// @Summary Get a listing
// @Description Get a listing by its registry id, including sales and status changes
// @Tags Listings
// @Produce json
// @Param id path string true "Listing id"
// @Success 200 {object} ListingDetailResponse "Listing"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Listing not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /listings/{id} [get]
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	listing, ok := h.lookupListing(w, r)
	if !ok {
		return
	}

	sales, err := h.reader.ListSales(r.Context(), listing.ID)
	if err != nil {
		h.log.Errorw("failed to list sales", "listing", listing.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get listing")
		return
	}
	changes, err := h.reader.ListStatusChanges(r.Context(), listing.ID)
	if err != nil {
		h.log.Errorw("failed to list status changes", "listing", listing.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get listing")
		return
	}

	respondJSON(w, http.StatusOK, ListingDetailResponse{
		ListingResponse: newListingResponse(listing),
		Sales:           mapSlice(sales, newSaleResponse),
		StatusChanges:   mapSlice(changes, newStatusChangeResponse),
	})
}

// GetListingActions returns the actions taken on a listing in chain order.
// @Summary Get listing actions
// @Description Get the ListingAction history of a listing in chain order
// @Tags Listings
// @Produce json
// @Param id path string true "Listing id"
// @Param limit query int false "Maximum number of actions to return" default(50)
// @Param offset query int false "Number of actions to skip" default(0)
// @Success 200 {object} ActionsResponse "Actions with pagination info"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Listing not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /listings/{id}/actions [get]
func (h *Handler) GetListingActions(w http.ResponseWriter, r *http.Request) {
	limit, offset, err := parsePage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	listing, ok := h.lookupListing(w, r)
	if !ok {
		return
	}

	actions, err := h.reader.ListActions(r.Context(), listing.ID, limit, offset)
	if err != nil {
		h.log.Errorw("failed to list actions", "listing", listing.ID, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list actions")
		return
	}

	respondJSON(w, http.StatusOK, ActionsResponse{
		Actions:    mapSlice(actions, newActionResponse),
		Pagination: pagination(limit, offset, len(actions)),
	})
}

// GetListingReviews returns the reviews attached to a listing.
// @Summary Get listing reviews
// @Description Get the review attestations that reference a listing, newest first
// @Tags Reviews
// @Produce json
// @Param id path string true "Listing id"
// @Param limit query int false "Maximum number of reviews to return" default(50)
// @Param offset query int false "Number of reviews to skip" default(0)
// @Success 200 {object} ReviewsResponse "Reviews with pagination info"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /listings/{id}/reviews [get]
func (h *Handler) GetListingReviews(w http.ResponseWriter, r *http.Request) {
	id, err := parseListingID(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	reviews, err := h.reader.ListReviews(r.Context(), store.ReviewFilter{ListingID: &id, Limit: limit, Offset: offset})
	if err != nil {
		h.log.Errorw("failed to list reviews", "listing", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to list reviews")
		return
	}

	respondJSON(w, http.StatusOK, ReviewsResponse{
		Reviews:    mapSlice(reviews, newReviewResponse),
		Pagination: pagination(limit, offset, len(reviews)),
	})
}

// GetUserReviews returns the reviews an address received and their summary.
// @Summary Get reviews of a user
// @Description Get the reviews received by an address together with the count and average rating
// @Tags Reviews
// @Produce json
// @Param address path string true "Reviewee address"
// @Param limit query int false "Maximum number of reviews to return" default(50)
// @Param offset query int false "Number of reviews to skip" default(0)
// @Success 200 {object} UserReviewsResponse "Reviews and rating summary"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /users/{address}/reviews [get]
func (h *Handler) GetUserReviews(w http.ResponseWriter, r *http.Request) {
	address, err := parseAddress(r.PathValue("address"))
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid address: %v", err))
		return
	}
	limit, offset, err := parsePage(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid query parameters: %v", err))
		return
	}

	summary, err := h.reader.ReviewSummary(r.Context(), address)
	if err != nil {
		h.log.Errorw("failed to summarize reviews", "address", address.Hex(), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get reviews")
		return
	}
	reviews, err := h.reader.ListReviews(r.Context(), store.ReviewFilter{Reviewee: &address, Limit: limit, Offset: offset})
	if err != nil {
		h.log.Errorw("failed to list reviews", "address", address.Hex(), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get reviews")
		return
	}

	respondJSON(w, http.StatusOK, UserReviewsResponse{
		Address:       hexAddress(address),
		ReviewCount:   summary.Count,
		AverageRating: summary.AverageRating,
		Reviews:       mapSlice(reviews, newReviewResponse),
		Pagination:    pagination(limit, offset, len(reviews)),
	})
}

// GetReview returns one review by attestation uid.
// @Summary Get a review
// @Description Get a review by its EAS attestation uid
// @Tags Reviews
// @Produce json
// @Param uid path string true "Attestation uid (0x-prefixed, 32 bytes)"
// @Success 200 {object} ReviewResponse "Review"
// @Failure 400 {object} ErrorResponse "Invalid parameters"
// @Failure 404 {object} ErrorResponse "Review not found"
// @Failure 500 {object} ErrorResponse "Internal server error"
// @Router /reviews/{uid} [get]
func (h *Handler) GetReview(w http.ResponseWriter, r *http.Request) {
	uid, err := parseHash(r.PathValue("uid"))
	if err != nil {
		respondError(w, http.StatusBadRequest, fmt.Sprintf("invalid uid: %v", err))
		return
	}

	review, err := h.reader.FindReview(r.Context(), store.Predicate{"uid": uid})
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("review '%s' not found", uid.Hex()))
		return
	}
	if err != nil {
		h.log.Errorw("failed to get review", "uid", uid.Hex(), "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get review")
		return
	}

	respondJSON(w, http.StatusOK, newReviewResponse(review))
}

// Health returns the health status of the API and the download checkpoint.
// @Summary Health check
// @Description Check the health of the API and report the last indexed block
// @Tags Health
// @Produce json
// @Success 200 {object} HealthResponse "API and sync status"
// @Failure 503 {object} HealthResponse "Sync state unavailable"
// @Router /health [get]
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "ok",
		Timestamp: time.Now(),
	}

	if h.sync != nil {
		state, err := h.sync.GetState()
		if err != nil {
			h.log.Warnw("failed to read sync state", "error", err)
			response.Status = "degraded"
			respondJSON(w, http.StatusServiceUnavailable, response)
			return
		}
		status := &SyncStatus{
			LastIndexedBlock: state.LastIndexedBlock,
			Mode:             state.Mode,
		}
		if !state.Fresh() {
			status.LastIndexedBlockHash = state.LastIndexedBlockHash.Hex()
		}
		response.Sync = status
	}

	respondJSON(w, http.StatusOK, response)
}

// lookupListing loads the listing named by the {id} path value, responding on failure.
func (h *Handler) lookupListing(w http.ResponseWriter, r *http.Request) (*store.Listing, bool) {
	id, err := parseListingID(r.PathValue("id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return nil, false
	}

	listing, err := h.reader.GetListing(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		respondError(w, http.StatusNotFound, fmt.Sprintf("listing '%s' not found", id))
		return nil, false
	}
	if err != nil {
		h.log.Errorw("failed to get listing", "listing", id, "error", err)
		respondError(w, http.StatusInternalServerError, "failed to get listing")
		return nil, false
	}
	return listing, true
}

// parseListingFilter parses the listing query parameters.
func parseListingFilter(r *http.Request) (store.ListingFilter, error) {
	var filter store.ListingFilter

	limit, offset, err := parsePage(r)
	if err != nil {
		return filter, err
	}
	filter.Limit, filter.Offset = limit, offset

	q := r.URL.Query()
	if locationID := q.Get("location_id"); locationID != "" {
		filter.LocationID = &locationID
	}

	if activeStr := q.Get("active"); activeStr != "" {
		active, err := strconv.ParseBool(activeStr)
		if err != nil {
			return filter, fmt.Errorf("invalid active: must be true or false")
		}
		filter.Active = &active
	}

	if creatorStr := q.Get("creator"); creatorStr != "" {
		creator, err := parseAddress(creatorStr)
		if err != nil {
			return filter, fmt.Errorf("invalid creator: %w", err)
		}
		filter.Creator = &creator
	}

	if buyerStr := q.Get("buyer"); buyerStr != "" {
		buyer, err := parseAddress(buyerStr)
		if err != nil {
			return filter, fmt.Errorf("invalid buyer: %w", err)
		}
		filter.Buyer = &buyer
	}

	return filter, nil
}

// parsePage parses limit and offset.
func parsePage(r *http.Request) (int, int, error) {
	limit, offset := defaultLimit, 0

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		l, err := strconv.Atoi(limitStr)
		if err != nil || l < 1 || l > maxLimit {
			return 0, 0, fmt.Errorf("invalid limit: must be between 1 and %d", maxLimit)
		}
		limit = l
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		o, err := strconv.Atoi(offsetStr)
		if err != nil || o < 0 {
			return 0, 0, fmt.Errorf("invalid offset: must be non-negative")
		}
		offset = o
	}

	return limit, offset, nil
}

// parseListingID accepts the decimal registry id.
func parseListingID(s string) (string, error) {
	if s == "" {
		return "", errors.New("listing id is required")
	}
	if _, err := strconv.ParseUint(s, 10, 64); err != nil {
		return "", fmt.Errorf("invalid listing id '%s': must be a decimal number", s)
	}
	return s, nil
}

func parseAddress(s string) (common.Address, error) {
	if !common.IsHexAddress(s) {
		return common.Address{}, fmt.Errorf("'%s' is not a hex address", s)
	}
	return common.HexToAddress(s), nil
}

func parseHash(s string) (common.Hash, error) {
	b, err := hexutil.Decode(s)
	if err != nil {
		return common.Hash{}, err
	}
	if len(b) != common.HashLength {
		return common.Hash{}, fmt.Errorf("expected %d bytes, got %d", common.HashLength, len(b))
	}
	return common.BytesToHash(b), nil
}

// pagination reports has_more when a full page came back.
func pagination(limit, offset, n int) PaginationResult {
	return PaginationResult{
		Limit:   limit,
		Offset:  offset,
		HasMore: n == limit,
	}
}

// respondJSON sends a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")

	// Encode first so a failure can still change the status.
	encoded, err := json.Marshal(data)
	if err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}

	w.WriteHeader(status)

	// Headers are already sent, nothing left to report to the client.
	_, _ = w.Write(encoded)
}

// respondError sends an error response.
func respondError(w http.ResponseWriter, status int, message string) {
	response := ErrorResponse{
		Error:   http.StatusText(status),
		Message: message,
		Code:    status,
	}
	respondJSON(w, status, response)
}
