package events

import (
	"errors"
	"fmt"
	"math/big"
	"slices"

	bcommon "github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

// ErrUnknownEvent is returned for logs whose address or signature was never registered.
var ErrUnknownEvent = errors.New("unknown event")

type argsBuilder func(values map[string]any) (Args, error)

var builders = map[string]argsBuilder{
	Key(bcommon.ContractMarketplace, EventListingCreated):           buildListingCreated,
	Key(bcommon.ContractMarketplace, EventListingAction):            buildListingAction,
	Key(bcommon.ContractMarketplace, EventListingActivationChanged): buildListingActivationChanged,
	Key(bcommon.ContractSimpleListings, EventSimpleListingCreated):  buildSimpleListingCreated,
	Key(bcommon.ContractSimpleListings, EventSimpleListingSold):     buildSimpleListingSold,
	Key(bcommon.ContractSimpleListings, EventSimpleListingClosed):   buildSimpleListingClosed,
	Key(bcommon.ContractEAS, EventAttested):                         buildAttested,
}

type registeredContract struct {
	name   string
	events map[common.Hash]abi.Event
}

// Decoder turns raw logs of registered contracts into typed events.
// It is not safe for concurrent registration; decode calls may run concurrently once set up.
type Decoder struct {
	contracts map[common.Address]*registeredContract
	sigs      map[common.Hash]struct{}
}

// NewDecoder creates an empty decoder.
func NewDecoder() *Decoder {
	return &Decoder{
		contracts: make(map[common.Address]*registeredContract),
		sigs:      make(map[common.Hash]struct{}),
	}
}

// RegisterContract registers a known contract deployed at address.
// When eventNames is empty every event the contract emits is registered.
func (d *Decoder) RegisterContract(name string, address common.Address, eventNames []string) error {
	canonical, ok := CanonicalContract(name)
	if !ok {
		return fmt.Errorf("unknown contract %q", name)
	}
	name = canonical
	parsed, _ := ContractABI(name)

	if len(eventNames) == 0 {
		for evName := range parsed.Events {
			eventNames = append(eventNames, evName)
		}
	}

	rc := &registeredContract{name: name, events: make(map[common.Hash]abi.Event, len(eventNames))}
	for _, evName := range eventNames {
		ev, ok := parsed.Events[evName]
		if !ok {
			return fmt.Errorf("contract %s has no event %q", name, evName)
		}
		if _, ok := builders[Key(name, evName)]; !ok {
			return fmt.Errorf("no decoder for %s", Key(name, evName))
		}
		rc.events[ev.ID] = ev
		d.sigs[ev.ID] = struct{}{}
	}

	d.contracts[address] = rc
	return nil
}

// Addresses returns the registered contract addresses.
func (d *Decoder) Addresses() []common.Address {
	out := make([]common.Address, 0, len(d.contracts))
	for addr := range d.contracts {
		out = append(out, addr)
	}
	slices.SortFunc(out, func(a, b common.Address) int { return a.Cmp(b) })
	return out
}

// EventSignatures returns the topic0 of every registered event.
func (d *Decoder) EventSignatures() []common.Hash {
	out := make([]common.Hash, 0, len(d.sigs))
	for sig := range d.sigs {
		out = append(out, sig)
	}
	slices.SortFunc(out, func(a, b common.Hash) int { return a.Cmp(b) })
	return out
}

// Subscriptions returns, per registered address, the topic0 set of its registered events.
func (d *Decoder) Subscriptions() map[common.Address]map[common.Hash]struct{} {
	out := make(map[common.Address]map[common.Hash]struct{}, len(d.contracts))
	for addr, rc := range d.contracts {
		topics := make(map[common.Hash]struct{}, len(rc.events))
		for id := range rc.events {
			topics[id] = struct{}{}
		}
		out[addr] = topics
	}
	return out
}

// CanDecode reports whether the log comes from a registered contract event.
func (d *Decoder) CanDecode(log types.Log) bool {
	_, _, ok := d.lookup(log)
	return ok
}

func (d *Decoder) lookup(log types.Log) (*registeredContract, abi.Event, bool) {
	if len(log.Topics) == 0 {
		return nil, abi.Event{}, false
	}
	rc, ok := d.contracts[log.Address]
	if !ok {
		return nil, abi.Event{}, false
	}
	ev, ok := rc.events[log.Topics[0]]
	return rc, ev, ok
}

// Decode decodes log into a typed event. blockTimestamp is the timestamp of the
// block that contains the log.
func (d *Decoder) Decode(log types.Log, blockTimestamp uint64) (Event, error) {
	rc, ev, ok := d.lookup(log)
	if !ok {
		return Event{}, ErrUnknownEvent
	}

	values := make(map[string]any, len(ev.Inputs))
	var indexed abi.Arguments
	for _, input := range ev.Inputs {
		if input.Indexed {
			indexed = append(indexed, input)
		}
	}
	if err := abi.ParseTopicsIntoMap(values, indexed, log.Topics[1:]); err != nil {
		return Event{}, fmt.Errorf("parsing %s topics: %w", ev.Name, err)
	}
	if len(log.Data) > 0 {
		if err := ev.Inputs.NonIndexed().UnpackIntoMap(values, log.Data); err != nil {
			return Event{}, fmt.Errorf("unpacking %s data: %w", ev.Name, err)
		}
	}

	key := Key(rc.name, ev.Name)
	args, err := builders[key](values)
	if err != nil {
		return Event{}, fmt.Errorf("decoding %s: %w", key, err)
	}

	return Event{
		ContractName: rc.name,
		EventName:    ev.Name,
		Args:         args,
		Block:        Block{Number: log.BlockNumber, Timestamp: blockTimestamp},
		Tx:           Tx{Hash: log.TxHash},
		Log:          LogRef{Index: log.Index, Address: log.Address},
	}, nil
}

func buildListingCreated(v map[string]any) (Args, error) {
	var (
		a   ListingCreated
		err error
	)
	if a.ID, err = field[*big.Int](v, "id"); err != nil {
		return nil, err
	}
	if a.Creator, err = field[common.Address](v, "creator"); err != nil {
		return nil, err
	}
	if a.ListingType, err = field[common.Address](v, "listingType"); err != nil {
		return nil, err
	}
	if a.ListingID, err = field[*big.Int](v, "listingId"); err != nil {
		return nil, err
	}
	if a.Contenthash, err = field[string](v, "contenthash"); err != nil {
		return nil, err
	}
	return a, nil
}

func buildListingAction(v map[string]any) (Args, error) {
	var (
		a   ListingAction
		err error
	)
	if a.ID, err = field[*big.Int](v, "id"); err != nil {
		return nil, err
	}
	if a.Caller, err = field[common.Address](v, "caller"); err != nil {
		return nil, err
	}
	if a.Action, err = field[[32]byte](v, "action"); err != nil {
		return nil, err
	}
	return a, nil
}

func buildListingActivationChanged(v map[string]any) (Args, error) {
	var (
		a   ListingActivationChanged
		err error
	)
	if a.ListingID, err = field[*big.Int](v, "listingId"); err != nil {
		return nil, err
	}
	if a.Active, err = field[bool](v, "active"); err != nil {
		return nil, err
	}
	return a, nil
}

func buildSimpleListingCreated(v map[string]any) (Args, error) {
	var (
		a   SimpleListingCreated
		err error
	)
	if a.ListingID, err = field[*big.Int](v, "listingId"); err != nil {
		return nil, err
	}
	if a.Creator, err = field[common.Address](v, "creator"); err != nil {
		return nil, err
	}
	if a.PaymentToken, err = field[common.Address](v, "paymentToken"); err != nil {
		return nil, err
	}
	if a.Price, err = field[*big.Int](v, "price"); err != nil {
		return nil, err
	}
	if a.IpfsHash, err = field[string](v, "ipfsHash"); err != nil {
		return nil, err
	}
	return a, nil
}

func buildSimpleListingSold(v map[string]any) (Args, error) {
	var (
		a   SimpleListingSold
		err error
	)
	if a.ListingID, err = field[*big.Int](v, "listingId"); err != nil {
		return nil, err
	}
	if a.Buyer, err = field[common.Address](v, "buyer"); err != nil {
		return nil, err
	}
	if a.Price, err = field[*big.Int](v, "price"); err != nil {
		return nil, err
	}
	if a.PaymentToken, err = field[common.Address](v, "paymentToken"); err != nil {
		return nil, err
	}
	return a, nil
}

func buildSimpleListingClosed(v map[string]any) (Args, error) {
	var (
		a   SimpleListingClosed
		err error
	)
	if a.ListingID, err = field[*big.Int](v, "listingId"); err != nil {
		return nil, err
	}
	if a.Caller, err = field[common.Address](v, "caller"); err != nil {
		return nil, err
	}
	return a, nil
}

func buildAttested(v map[string]any) (Args, error) {
	var (
		a   Attested
		err error
	)
	if a.Recipient, err = field[common.Address](v, "recipient"); err != nil {
		return nil, err
	}
	if a.Attester, err = field[common.Address](v, "attester"); err != nil {
		return nil, err
	}
	uid, err := field[[32]byte](v, "uid")
	if err != nil {
		return nil, err
	}
	schema, err := field[[32]byte](v, "schemaUID")
	if err != nil {
		return nil, err
	}
	a.UID, a.SchemaUID = uid, schema
	return a, nil
}

// field extracts a typed value decoded by the abi package.
func field[T any](values map[string]any, name string) (T, error) {
	var zero T
	raw, ok := values[name]
	if !ok {
		return zero, fmt.Errorf("missing field %q", name)
	}
	if h, ok := raw.(common.Hash); ok {
		// indexed fixed bytes may come back as a hash
		raw = [32]byte(h)
	}
	v, ok := raw.(T)
	if !ok {
		return zero, fmt.Errorf("field %q has type %T", name, raw)
	}
	return v, nil
}
