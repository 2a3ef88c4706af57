package reconciler

import (
	"context"
	"errors"
	"fmt"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/chain"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/events"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store"
	"github.com/ethereum/go-ethereum/common"
)

func (r *Reconciler) onAttested(ctx context.Context, ev events.Event, args events.Attested) error {
	if r.cfg.ReviewSchema == (common.Hash{}) || args.SchemaUID != r.cfg.ReviewSchema {
		return nil
	}

	subject := "attestation " + args.UID.Hex()
	att, err := r.chain.ReadAttestation(ctx, ev.Log.Address, args.UID)
	if err != nil {
		r.report(ev, &EnrichmentError{Step: StepAttestation, Subject: subject, Err: err})
		return nil
	}
	data, err := chain.DecodeReviewData(att.Data)
	if err != nil {
		r.report(ev, &EnrichmentError{Step: StepAttestation, Subject: subject, Err: fmt.Errorf("decode review data: %w", err)})
		return nil
	}

	review := &store.Review{
		UID:         args.UID,
		ListingID:   data.ListingID.String(),
		Reviewer:    args.Attester,
		Reviewee:    args.Recipient,
		Rating:      data.Rating,
		SchemaUID:   args.SchemaUID,
		BlockNumber: ev.Block.Number,
		Time:        ev.Block.Timestamp,
		TxHash:      ev.Tx.Hash,
	}
	if data.CommentCID != "" {
		review.CommentCID = &data.CommentCID
	}

	inserted, err := r.store.InsertReviewIfAbsent(ctx, review)
	if err != nil {
		return err
	}
	if !inserted {
		r.log.Debugw("review already indexed", "uid", args.UID.Hex())
	}

	// Flags only ever flip to true, so re-applying them on redelivery is harmless.
	return r.flagReviewed(ctx, review)
}

// flagReviewed marks the side of the listing the reviewer belongs to as reviewed.
func (r *Reconciler) flagReviewed(ctx context.Context, review *store.Review) error {
	listing, err := r.store.GetListing(ctx, review.ListingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	var column string
	switch {
	case review.Reviewer == listing.Creator:
		column = "seller_reviewed"
	case listing.Buyer != nil && review.Reviewer == *listing.Buyer:
		column = "buyer_reviewed"
	default:
		return nil
	}

	_, err = r.store.UpdateListingsWhere(ctx, store.Predicate{"id": listing.ID}, store.Patch{column: true})
	return err
}
