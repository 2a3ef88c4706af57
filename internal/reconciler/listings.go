package reconciler

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"math/big"
	"strings"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/chain"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/content"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/events"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store"
	"github.com/ethereum/go-ethereum/common"
)

// bufferColumns are the enrichment columns a buffer entry can hold.
var bufferColumns = []string{"token_name", "token_symbol", "token_decimals", "metadata"}

// patcher writes an enrichment patch to whichever row it targets.
type patcher func(ctx context.Context, patch store.Patch) error

func (r *Reconciler) listingPatcher(where store.Predicate) patcher {
	return func(ctx context.Context, patch store.Patch) error {
		_, err := r.store.UpdateListingsWhere(ctx, where, patch)
		return err
	}
}

func (r *Reconciler) bufferPatcher(where store.Predicate) patcher {
	return func(ctx context.Context, patch store.Patch) error {
		p := store.Patch{}
		for _, col := range bufferColumns {
			if v, ok := patch[col]; ok {
				p[col] = v
			}
		}
		if len(p) == 0 {
			return nil
		}
		_, err := r.store.UpdateBufferWhere(ctx, where, p)
		return err
	}
}

func (r *Reconciler) onListingCreated(ctx context.Context, ev events.Event, args events.ListingCreated) error {
	id := args.ID.String()
	listing := &store.Listing{
		ID:                    id,
		Creator:               args.Creator,
		ListingType:           args.ListingType,
		ListingInnerID:        args.ListingID,
		CID:                   &args.Contenthash,
		Active:                true,
		CreatedBlockNumber:    ev.Block.Number,
		CreatedBlockTimestamp: ev.Block.Timestamp,
		CreatedTxHash:         ev.Tx.Hash,
	}
	if err := r.store.InsertListing(ctx, listing); err != nil {
		return err
	}

	subject := "listing " + id
	toListing := r.listingPatcher(store.Predicate{"id": id})

	// (a) on-chain terms
	var resolvedToken *common.Address
	r.enrich(ev, StepListingState, subject, func() error {
		state, err := r.chain.ReadListingState(ctx, ev.Log.Address, args.ID)
		if err != nil {
			return err
		}
		terms, ok := chain.DecodeListingData(state.ListingData)
		if !ok {
			r.log.Debugw("listing data matches no known layout", "listing", id, "size", len(state.ListingData))
			return nil
		}
		resolvedToken = &terms.PaymentToken
		return toListing(ctx, termsPatch(terms))
	})

	// (b) payment token display metadata
	if resolvedToken != nil {
		r.enrich(ev, StepTokenMetadata, subject, func() error {
			return r.applyTokenMetadata(ctx, *resolvedToken, toListing)
		})
	}

	// (c) satellite data that arrived first
	cid := args.Contenthash
	haveDocument := false
	if args.ListingID != nil {
		r.enrich(ev, StepBufferMerge, subject, func() error {
			buf, err := r.store.FindBuffer(ctx, bufferKey(args.ListingType, args.ListingID))
			if errors.Is(err, store.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}
			if haveDocument, err = r.mergeBuffer(ctx, id, buf, toListing); err != nil {
				return err
			}
			if buf.CID != nil {
				cid = *buf.CID
			}
			if buf.PaymentToken != nil && !tokenMetadataComplete(buf) &&
				(resolvedToken == nil || *resolvedToken != *buf.PaymentToken) {
				r.enrich(ev, StepTokenMetadata, subject, func() error {
					return r.applyTokenMetadata(ctx, *buf.PaymentToken, toListing)
				})
			}
			return nil
		})
	}

	// (d) metadata document
	if !haveDocument {
		r.enrich(ev, StepContent, subject, func() error {
			return r.applyContent(ctx, cid, toListing)
		})
	}

	return nil
}

// mergeBuffer copies a buffer entry into the listing and marks it consumed. It reports
// whether the entry carried a metadata document.
func (r *Reconciler) mergeBuffer(ctx context.Context, id string, buf *store.BufferEntry, apply patcher) (bool, error) {
	patch := store.Patch{}
	setIfPresent(patch, "payment_token", buf.PaymentToken)
	setIfPresent(patch, "price_wei", buf.PriceWei)
	setIfPresent(patch, "cid", buf.CID)
	setIfPresent(patch, "token_name", buf.TokenName)
	setIfPresent(patch, "token_symbol", buf.TokenSymbol)
	setIfPresent(patch, "token_decimals", buf.TokenDecimals)

	haveDocument := false
	if buf.Metadata != nil {
		doc, err := content.ParseDocument([]byte(*buf.Metadata))
		if err == nil {
			maps.Copy(patch, displayPatch(doc))
			haveDocument = true
		}
	}

	if len(patch) > 0 {
		if err := apply(ctx, patch); err != nil {
			return false, err
		}
	}

	key := bufferKey(buf.ListingType, buf.ListingInnerID)
	if _, err := r.store.UpdateBufferWhere(ctx, key, store.Patch{"consumed_by": id}); err != nil {
		return haveDocument, fmt.Errorf("failed to mark buffer consumed: %w", err)
	}
	return haveDocument, nil
}

func (r *Reconciler) onSimpleListingCreated(ctx context.Context, ev events.Event, args events.SimpleListingCreated) error {
	key := bufferKey(ev.Log.Address, args.ListingID)
	cid := &args.IpfsHash

	n, err := r.store.UpdateListingsWhere(ctx, key, store.Patch{
		"payment_token": args.PaymentToken,
		"price_wei":     args.Price,
		"cid":           cid,
		"active":        true,
	})
	if err != nil {
		return err
	}

	apply := r.listingPatcher(key)
	if n == 0 {
		entry := &store.BufferEntry{
			ListingType:    ev.Log.Address,
			ListingInnerID: args.ListingID,
			Creator:        &args.Creator,
			PaymentToken:   &args.PaymentToken,
			PriceWei:       args.Price,
			CID:            cid,
			BlockNumber:    ev.Block.Number,
			BlockTimestamp: ev.Block.Timestamp,
			TxHash:         ev.Tx.Hash,
		}
		if err := r.store.UpsertBuffer(ctx, entry); err != nil {
			return err
		}
		apply = r.bufferPatcher(key)
	}

	subject := "listing " + innerRef(ev.Log.Address, args.ListingID)
	r.enrich(ev, StepTokenMetadata, subject, func() error {
		return r.applyTokenMetadata(ctx, args.PaymentToken, apply)
	})
	r.enrich(ev, StepContent, subject, func() error {
		return r.applyContent(ctx, args.IpfsHash, apply)
	})

	return nil
}

func (r *Reconciler) applyTokenMetadata(ctx context.Context, token common.Address, apply patcher) error {
	meta := r.chain.ReadERC20Metadata(ctx, token)

	patch := store.Patch{}
	setIfPresent(patch, "token_name", meta.Name)
	setIfPresent(patch, "token_symbol", meta.Symbol)
	setIfPresent(patch, "token_decimals", meta.Decimals)
	if len(patch) > 0 {
		if err := apply(ctx, patch); err != nil {
			return errors.Join(meta.Err, err)
		}
	}
	return meta.Err
}

func (r *Reconciler) applyContent(ctx context.Context, cid string, apply patcher) error {
	if strings.TrimSpace(cid) == "" {
		return nil
	}
	doc, err := r.content.FetchJSON(ctx, cid)
	if err != nil {
		return err
	}
	return apply(ctx, displayPatch(doc))
}

func termsPatch(terms chain.ListingTerms) store.Patch {
	patch := store.Patch{
		"payment_token": terms.PaymentToken,
		"price_wei":     terms.Price,
	}
	if terms.HasQuantity() {
		patch["initial_quantity"] = terms.InitialQuantity
		patch["remaining_quantity"] = terms.RemainingQuantity
		patch["unlimited"] = terms.Unlimited()
		if soldOut(terms.InitialQuantity, terms.RemainingQuantity) {
			patch["active"] = false
		}
	}
	return patch
}

// displayPatch maps a metadata document to the denormalized listing columns.
// Absent or unusable fields are written as NULL.
func displayPatch(doc content.Document) store.Patch {
	f := doc.DisplayFields()
	raw := string(doc.Raw)
	return store.Patch{
		"title":       f.Title,
		"description": f.Description,
		"category":    f.Category,
		"image":       f.Image,
		"contact":     f.Contact,
		"tags":        f.Tags,
		"price":       f.Price,
		"currency":    f.Currency,
		"location_id": f.LocationID,
		"metadata":    &raw,
	}
}

// soldOut reports whether a limited listing has no stock left.
func soldOut(initial, remaining *big.Int) bool {
	return initial != nil && remaining != nil && initial.Sign() > 0 && remaining.Sign() == 0
}

func tokenMetadataComplete(buf *store.BufferEntry) bool {
	return buf.TokenName != nil && buf.TokenSymbol != nil && buf.TokenDecimals != nil
}

func bufferKey(listingType common.Address, innerID *big.Int) store.Predicate {
	return store.Predicate{"listing_type": listingType, "listing_inner_id": innerID}
}

func innerRef(listingType common.Address, innerID *big.Int) string {
	return strings.ToLower(listingType.Hex()) + "#" + innerID.String()
}

func setIfPresent[T any](patch store.Patch, column string, v *T) {
	if v != nil {
		patch[column] = v
	}
}
