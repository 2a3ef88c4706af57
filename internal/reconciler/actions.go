package reconciler

import (
	"context"
	"errors"
	"math/big"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/chain"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/events"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store"
)

func (r *Reconciler) onListingAction(ctx context.Context, ev events.Event, args events.ListingAction) error {
	id := args.ID.String()
	selector := args.Selector()

	action := &store.Action{
		TxHash:         ev.Tx.Hash,
		LogIndex:       ev.Log.Index,
		ListingID:      id,
		Selector:       selector,
		Caller:         args.Caller,
		BlockNumber:    ev.Block.Number,
		BlockTimestamp: ev.Block.Timestamp,
	}
	name, known := events.ActionName(selector)
	if known {
		action.ActionName = &name
	}
	if err := r.record(ev, func() error { return r.store.InsertAction(ctx, action) }); err != nil {
		return err
	}

	if name != events.ActionBuy {
		return nil
	}

	if _, err := r.store.UpdateListingsWhere(ctx, store.Predicate{"id": id}, store.Patch{"buyer": args.Caller}); err != nil {
		return err
	}

	r.enrich(ev, StepBuyQuantity, "listing "+id, func() error {
		return r.applyPurchase(ctx, ev, args.ID, action)
	})
	return nil
}

// applyPurchase re-reads the listing terms after a buy, updates the stock columns and
// backfills the purchased quantity on the action.
func (r *Reconciler) applyPurchase(ctx context.Context, ev events.Event, listingID *big.Int, action *store.Action) error {
	state, err := r.chain.ReadListingState(ctx, ev.Log.Address, listingID)
	if err != nil {
		return err
	}
	terms, ok := chain.DecodeListingData(state.ListingData)
	if !ok || !terms.HasQuantity() {
		return nil
	}

	existing, err := r.store.GetListing(ctx, action.ListingID)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	remaining := terms.RemainingQuantity
	if prev := existing.RemainingQuantity; prev != nil && remaining.Cmp(prev) > 0 {
		r.log.Warnw("ignoring remaining quantity increase",
			"listing", existing.ID, "previous", prev.String(), "reported", remaining.String())
		remaining = prev
	}

	patch := store.Patch{
		"initial_quantity":   terms.InitialQuantity,
		"remaining_quantity": remaining,
		"unlimited":          terms.Unlimited(),
	}
	if soldOut(terms.InitialQuantity, remaining) {
		patch["active"] = false
	}
	if _, err := r.store.UpdateListingsWhere(ctx, store.Predicate{"id": existing.ID}, patch); err != nil {
		return err
	}

	qty := purchasedQuantity(existing.RemainingQuantity, remaining)
	if qty == nil || *terms.Unlimited() {
		return nil
	}
	_, err = r.store.UpdateActionsWhere(ctx,
		store.Predicate{"tx_hash": action.TxHash, "log_index": action.LogIndex, "quantity": nil},
		store.Patch{"quantity": qty},
	)
	return err
}

// purchasedQuantity is previous - current when both are known and the difference is positive.
func purchasedQuantity(previous, current *big.Int) *big.Int {
	if previous == nil || current == nil {
		return nil
	}
	delta := new(big.Int).Sub(previous, current)
	if delta.Sign() <= 0 {
		return nil
	}
	return delta
}

func (r *Reconciler) onActivationChanged(ctx context.Context, ev events.Event, args events.ListingActivationChanged) error {
	id := args.ListingID.String()
	change := &store.StatusChange{
		TxHash:         ev.Tx.Hash,
		LogIndex:       ev.Log.Index,
		Kind:           store.StatusActivationChanged,
		ListingID:      &id,
		Active:         args.Active,
		BlockNumber:    ev.Block.Number,
		BlockTimestamp: ev.Block.Timestamp,
	}
	if err := r.record(ev, func() error { return r.store.InsertStatusChange(ctx, change) }); err != nil {
		return err
	}
	_, err := r.store.UpdateListingsWhere(ctx, store.Predicate{"id": id}, store.Patch{"active": args.Active})
	return err
}

func (r *Reconciler) onSimpleListingSold(ctx context.Context, ev events.Event, args events.SimpleListingSold) error {
	key := bufferKey(ev.Log.Address, args.ListingID)
	sale := &store.Sale{
		TxHash:         ev.Tx.Hash,
		LogIndex:       ev.Log.Index,
		ListingType:    ev.Log.Address,
		ListingInnerID: args.ListingID,
		Buyer:          args.Buyer,
		PriceWei:       args.Price,
		PaymentToken:   &args.PaymentToken,
		BlockNumber:    ev.Block.Number,
		BlockTimestamp: ev.Block.Timestamp,
	}
	listing, err := r.store.FindListing(ctx, key)
	switch {
	case err == nil:
		sale.ListingID = &listing.ID
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	if err := r.record(ev, func() error { return r.store.InsertSale(ctx, sale) }); err != nil {
		return err
	}
	_, err = r.store.UpdateListingsWhere(ctx, key, store.Patch{"buyer": args.Buyer, "active": false})
	return err
}

func (r *Reconciler) onSimpleListingClosed(ctx context.Context, ev events.Event, args events.SimpleListingClosed) error {
	key := bufferKey(ev.Log.Address, args.ListingID)
	listingType := ev.Log.Address
	change := &store.StatusChange{
		TxHash:         ev.Tx.Hash,
		LogIndex:       ev.Log.Index,
		Kind:           store.StatusClosed,
		ListingType:    &listingType,
		ListingInnerID: args.ListingID,
		Active:         false,
		Caller:         &args.Caller,
		BlockNumber:    ev.Block.Number,
		BlockTimestamp: ev.Block.Timestamp,
	}
	listing, err := r.store.FindListing(ctx, key)
	switch {
	case err == nil:
		change.ListingID = &listing.ID
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	if err := r.record(ev, func() error { return r.store.InsertStatusChange(ctx, change) }); err != nil {
		return err
	}
	_, err = r.store.UpdateListingsWhere(ctx, key, store.Patch{"active": false})
	return err
}
