package reconciler

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/chain"
	bcommon "github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/content"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/events"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store"
	"github.com/ethereum/go-ethereum/common"
)

// Enrichment steps, used as log fields and metric labels.
const (
	StepListingState  = "listing_state"
	StepTokenMetadata = "token_metadata"
	StepBufferMerge   = "buffer_merge"
	StepContent       = "content"
	StepBuyQuantity   = "buy_quantity"
	StepAttestation   = "attestation"
)

// ChainReader is the read-only view of the contracts the reconciler needs.
type ChainReader interface {
	ReadListingState(ctx context.Context, marketplace common.Address, id *big.Int) (chain.ListingState, error)
	ReadERC20Metadata(ctx context.Context, token common.Address) chain.TokenMetadata
	ReadAttestation(ctx context.Context, eas common.Address, uid common.Hash) (chain.Attestation, error)
}

// ContentResolver fetches metadata documents.
type ContentResolver interface {
	FetchJSON(ctx context.Context, identifier string) (content.Document, error)
}

// Config holds the deployment specific settings of the reconciler.
type Config struct {
	// ReviewSchema is the EAS schema uid of marketplace reviews. Attestations are
	// ignored when it is zero.
	ReviewSchema common.Hash
}

// EnrichmentError is a failed best-effort step. It is reported, never returned.
type EnrichmentError struct {
	Step    string
	Subject string // "listing 12", "attestation 0x.."
	Err     error
}

func (e *EnrichmentError) Error() string {
	return fmt.Sprintf("%s enrichment of %s: %v", e.Step, e.Subject, e.Err)
}

func (e *EnrichmentError) Unwrap() error {
	return e.Err
}

type handlerFunc func(ctx context.Context, ev events.Event) error

// Reconciler applies decoded marketplace events to the record store.
type Reconciler struct {
	store    *store.Store
	chain    ChainReader
	content  ContentResolver
	cfg      Config
	log      *logger.Logger
	handlers map[string]handlerFunc
}

// New creates a reconciler. The chain reader and content resolver are only used for
// best-effort enrichment.
func New(st *store.Store, chainReader ChainReader, resolver ContentResolver, cfg Config, log *logger.Logger) *Reconciler {
	r := &Reconciler{
		store:   st,
		chain:   chainReader,
		content: resolver,
		cfg:     cfg,
		log:     log.WithComponent(bcommon.ComponentReconciler),
	}

	r.handlers = map[string]handlerFunc{
		events.Key(bcommon.ContractMarketplace, events.EventListingCreated):           typed(r.onListingCreated),
		events.Key(bcommon.ContractMarketplace, events.EventListingAction):            typed(r.onListingAction),
		events.Key(bcommon.ContractMarketplace, events.EventListingActivationChanged): typed(r.onActivationChanged),
		events.Key(bcommon.ContractSimpleListings, events.EventSimpleListingCreated):  typed(r.onSimpleListingCreated),
		events.Key(bcommon.ContractSimpleListings, events.EventSimpleListingSold):     typed(r.onSimpleListingSold),
		events.Key(bcommon.ContractSimpleListings, events.EventSimpleListingClosed):   typed(r.onSimpleListingClosed),
		events.Key(bcommon.ContractEAS, events.EventAttested):                         typed(r.onAttested),
	}

	if cfg.ReviewSchema == (common.Hash{}) {
		r.log.Warn("no review schema uid configured, EAS attestations will be skipped")
	}

	return r
}

// typed adapts a handler for one payload type to the dispatch table.
func typed[A events.Args](fn func(ctx context.Context, ev events.Event, args A) error) handlerFunc {
	return func(ctx context.Context, ev events.Event) error {
		args, ok := ev.Args.(A)
		if !ok {
			return fmt.Errorf("%s: unexpected payload %T", ev.Key(), ev.Args)
		}
		return fn(ctx, ev, args)
	}
}

// Handles reports whether an event has a handler.
func (r *Reconciler) Handles(contract, event string) bool {
	_, ok := r.handlers[events.Key(contract, event)]
	return ok
}

// Handle applies one event. Unknown events are ignored. The returned error is only
// about the primary state transition; enrichment failures are logged and counted.
func (r *Reconciler) Handle(ctx context.Context, ev events.Event) error {
	h, ok := r.handlers[ev.Key()]
	if !ok {
		eventsHandled.WithLabelValues(ev.ContractName, ev.EventName, outcomeIgnored).Inc()
		return nil
	}

	if err := h(ctx, ev); err != nil {
		eventsHandled.WithLabelValues(ev.ContractName, ev.EventName, outcomeError).Inc()
		return fmt.Errorf("handler %s (tx %s, log %d): %w", ev.Key(), ev.Tx.Hash.Hex(), ev.Log.Index, err)
	}

	eventsHandled.WithLabelValues(ev.ContractName, ev.EventName, outcomeOK).Inc()
	return nil
}

// record writes an append-only log row. A row left by an earlier delivery of the same
// log is accepted so the listing transition after it is still applied.
func (r *Reconciler) record(ev events.Event, insert func() error) error {
	err := insert()
	if errors.Is(err, store.ErrDuplicate) {
		r.log.Debugw("log already recorded, reapplying listing update",
			"event", ev.Key(), "tx", ev.Tx.Hash.Hex(), "log_index", ev.Log.Index)
		return nil
	}
	return err
}

// enrich runs one best-effort step and reports its failure.
func (r *Reconciler) enrich(ev events.Event, step, subject string, fn func() error) {
	if err := fn(); err != nil {
		r.report(ev, &EnrichmentError{Step: step, Subject: subject, Err: err})
	}
}

// report is the single place enrichment failures are surfaced.
func (r *Reconciler) report(ev events.Event, err *EnrichmentError) {
	enrichmentFailures.WithLabelValues(err.Step).Inc()
	r.log.Warnw("enrichment step failed",
		"step", err.Step,
		"subject", err.Subject,
		"event", ev.Key(),
		"block", ev.Block.Number,
		"tx", ev.Tx.Hash.Hex(),
		"error", err.Err,
	)
}
