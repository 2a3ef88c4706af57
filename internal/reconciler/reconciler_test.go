package reconciler

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"sync"
	"testing"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/chain"
	bcommon "github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/content"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/db"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/events"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store/migrations"
	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

var (
	marketplace    = common.HexToAddress("0x1000000000000000000000000000000000000001")
	simpleListings = common.HexToAddress("0x2222222222222222222222222222222222222222")
	easAddress     = common.HexToAddress("0x4200000000000000000000000000000000000021")

	seller   = common.HexToAddress("0xAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaaAAAAaaaa")
	buyer    = common.HexToAddress("0xBbBBbbbBBBbbbBbbBbbbbBBbBbbbbBbBbbBBbBbB")
	stranger = common.HexToAddress("0xCCccCCccCCccCCccCCccCCccCCccCCccCCccCCcc")
	usdc     = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")

	reviewSchema = common.HexToHash("0x5eb2a3e6b2e5c8e1a2b1cd6f5f1ed0a4a9f4d3e2c1b0a9f8e7d6c5b4a3928170")
)

var errReverted = errors.New("execution reverted")

type fakeChain struct {
	mu           sync.Mutex
	listings     map[string]chain.ListingState
	tokens       map[common.Address]chain.TokenMetadata
	attestations map[common.Hash]chain.Attestation
	attestReads  int
}

func newFakeChain() *fakeChain {
	return &fakeChain{
		listings:     map[string]chain.ListingState{},
		tokens:       map[common.Address]chain.TokenMetadata{},
		attestations: map[common.Hash]chain.Attestation{},
	}
}

func (f *fakeChain) ReadListingState(_ context.Context, _ common.Address, id *big.Int) (chain.ListingState, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	state, ok := f.listings[id.String()]
	if !ok {
		return chain.ListingState{}, errReverted
	}
	return state, nil
}

func (f *fakeChain) ReadERC20Metadata(_ context.Context, token common.Address) chain.TokenMetadata {
	f.mu.Lock()
	defer f.mu.Unlock()
	meta, ok := f.tokens[token]
	if !ok {
		return chain.TokenMetadata{Err: errReverted}
	}
	return meta
}

func (f *fakeChain) ReadAttestation(_ context.Context, _ common.Address, uid common.Hash) (chain.Attestation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.attestReads++
	att, ok := f.attestations[uid]
	if !ok {
		return chain.Attestation{}, errReverted
	}
	return att, nil
}

func (f *fakeChain) setQuantityListing(t *testing.T, id int64, initial, remaining int64) {
	t.Helper()
	data, err := chain.EncodeQuantityListingData(usdc, big.NewInt(1_000_000), big.NewInt(initial), big.NewInt(remaining))
	require.NoError(t, err)
	f.setListingData(id, data)
}

func (f *fakeChain) setListingData(id int64, data []byte) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.listings[big.NewInt(id).String()] = chain.ListingState{Creator: seller, Active: true, ListingData: data}
}

type fakeContent struct {
	docs map[string]string
}

func (f *fakeContent) FetchJSON(_ context.Context, identifier string) (content.Document, error) {
	raw, ok := f.docs[identifier]
	if !ok {
		return content.Document{}, fmt.Errorf("%w: %s", content.ErrUnavailable, identifier)
	}
	return content.ParseDocument([]byte(raw))
}

type harness struct {
	r       *Reconciler
	store   *store.Store
	chain   *fakeChain
	content *fakeContent
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	database, err := db.NewSQLiteDB(filepath.Join(t.TempDir(), "bazaar.sqlite"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	require.NoError(t, migrations.RunMigrations(logger.NewNopLogger(), database))

	h := &harness{
		store:   store.New(database, logger.NewNopLogger()),
		chain:   newFakeChain(),
		content: &fakeContent{docs: map[string]string{}},
	}
	h.chain.tokens[usdc] = chain.TokenMetadata{Name: ptr("USD Coin"), Symbol: ptr("USDC"), Decimals: ptr(uint8(6))}
	h.r = New(h.store, h.chain, h.content, Config{ReviewSchema: reviewSchema}, logger.NewNopLogger())
	return h
}

func (h *harness) handle(t *testing.T, ev events.Event) {
	t.Helper()
	require.NoError(t, h.r.Handle(context.Background(), ev))
}

func (h *harness) listing(t *testing.T, id string) *store.Listing {
	t.Helper()
	l, err := h.store.GetListing(context.Background(), id)
	require.NoError(t, err)
	return l
}

func ptr[T any](v T) *T { return &v }

func txHash(n uint64) common.Hash {
	return common.BigToHash(new(big.Int).SetUint64(n))
}

func listingCreated(id, innerID int64, cid string, block uint64) events.Event {
	return events.Event{
		ContractName: bcommon.ContractMarketplace,
		EventName:    events.EventListingCreated,
		Args: events.ListingCreated{
			ID:          big.NewInt(id),
			Creator:     seller,
			ListingType: simpleListings,
			ListingID:   big.NewInt(innerID),
			Contenthash: cid,
		},
		Block: events.Block{Number: block, Timestamp: 1_700_000_000 + block},
		Tx:    events.Tx{Hash: txHash(block)},
		Log:   events.LogRef{Index: 0, Address: marketplace},
	}
}

func listingAction(t *testing.T, id int64, action string, caller common.Address, block uint64) events.Event {
	t.Helper()
	selector, ok := events.ActionSelector(action)
	require.True(t, ok)

	var payload [32]byte
	copy(payload[:], common.FromHex(selector))

	return events.Event{
		ContractName: bcommon.ContractMarketplace,
		EventName:    events.EventListingAction,
		Args:         events.ListingAction{ID: big.NewInt(id), Caller: caller, Action: payload},
		Block:        events.Block{Number: block, Timestamp: 1_700_000_000 + block},
		Tx:           events.Tx{Hash: txHash(block)},
		Log:          events.LogRef{Index: 1, Address: marketplace},
	}
}

func simpleListingCreated(innerID int64, cid string, block uint64) events.Event {
	return events.Event{
		ContractName: bcommon.ContractSimpleListings,
		EventName:    events.EventSimpleListingCreated,
		Args: events.SimpleListingCreated{
			ListingID:    big.NewInt(innerID),
			Creator:      seller,
			PaymentToken: usdc,
			Price:        big.NewInt(5_000_000),
			IpfsHash:     cid,
		},
		Block: events.Block{Number: block, Timestamp: 1_700_000_000 + block},
		Tx:    events.Tx{Hash: txHash(block)},
		Log:   events.LogRef{Index: 0, Address: simpleListings},
	}
}

func attested(t *testing.T, f *fakeChain, uid common.Hash, attester common.Address, listingID int64, block uint64) events.Event {
	t.Helper()
	data, err := chain.EncodeReviewData(chain.ReviewData{ListingID: big.NewInt(listingID), Rating: 5, CommentCID: "bafycomment"})
	require.NoError(t, err)

	f.mu.Lock()
	f.attestations[uid] = chain.Attestation{UID: uid, Schema: reviewSchema, Attester: attester, Recipient: stranger, Data: data}
	f.mu.Unlock()

	return events.Event{
		ContractName: bcommon.ContractEAS,
		EventName:    events.EventAttested,
		Args:         events.Attested{Recipient: stranger, Attester: attester, UID: uid, SchemaUID: reviewSchema},
		Block:        events.Block{Number: block, Timestamp: 1_700_000_000 + block},
		Tx:           events.Tx{Hash: txHash(block)},
		Log:          events.LogRef{Index: 2, Address: easAddress},
	}
}

func TestHandle_UnknownEventIgnored(t *testing.T) {
	h := newHarness(t)

	ev := events.Event{ContractName: bcommon.ContractMarketplace, EventName: "ListingUpgraded"}
	require.NoError(t, h.r.Handle(context.Background(), ev))
	require.False(t, h.r.Handles(bcommon.ContractMarketplace, "ListingUpgraded"))
	require.True(t, h.r.Handles(bcommon.ContractEAS, events.EventAttested))
}

func TestHandle_MismatchedPayload(t *testing.T) {
	h := newHarness(t)

	ev := listingCreated(1, 1, "bafy", 10)
	ev.Args = events.SimpleListingClosed{ListingID: big.NewInt(1)}
	require.ErrorContains(t, h.r.Handle(context.Background(), ev), "unexpected payload")
}

func TestHandle_IdempotentRedelivery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	ev := listingCreated(1, 1, "bafy1", 10)
	h.handle(t, ev)

	err := h.r.Handle(ctx, ev)
	require.ErrorIs(t, err, store.ErrDuplicate)

	all, err := h.store.ListListings(ctx, store.ListingFilter{})
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.True(t, all[0].Active)
}

func TestHandle_ListingCreated_Terms(t *testing.T) {
	simple, err := chain.EncodeSimpleListingData(usdc, big.NewInt(42))
	require.NoError(t, err)
	quantity, err := chain.EncodeQuantityListingData(usdc, big.NewInt(42), big.NewInt(3), big.NewInt(3))
	require.NoError(t, err)

	tests := []struct {
		name          string
		data          []byte
		wantPrice     *big.Int
		wantInitial   *big.Int
		wantUnlimited *bool
	}{
		{name: "garbage payload", data: []byte{0xde, 0xad, 0xbe, 0xef}},
		{name: "empty payload", data: nil},
		{name: "simple layout", data: simple, wantPrice: big.NewInt(42)},
		{name: "quantity layout", data: quantity, wantPrice: big.NewInt(42), wantInitial: big.NewInt(3), wantUnlimited: ptr(false)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.chain.setListingData(7, tt.data)

			h.handle(t, listingCreated(7, 3, "bafy7", 10))

			l := h.listing(t, "7")
			require.Equal(t, seller, l.Creator)
			require.Equal(t, simpleListings, l.ListingType)
			require.True(t, l.Active)
			require.Equal(t, tt.wantUnlimited, l.Unlimited)
			if tt.wantInitial == nil {
				require.Nil(t, l.InitialQuantity)
			} else {
				require.Equal(t, 0, tt.wantInitial.Cmp(l.InitialQuantity))
			}

			if tt.wantPrice == nil {
				require.Nil(t, l.PriceWei)
				require.Nil(t, l.PaymentToken)
				require.Nil(t, l.RemainingQuantity)
				require.Nil(t, l.TokenSymbol)
				return
			}
			require.Equal(t, 0, tt.wantPrice.Cmp(l.PriceWei))
			require.Equal(t, usdc, *l.PaymentToken)
			require.Equal(t, "USD Coin", *l.TokenName)
			require.Equal(t, "USDC", *l.TokenSymbol)
			require.Equal(t, uint8(6), *l.TokenDecimals)
		})
	}
}

func TestHandle_QuantityMonotonicity(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.chain.setQuantityListing(t, 1, 2, 2)
	h.handle(t, listingCreated(1, 1, "bafy1", 10))

	l := h.listing(t, "1")
	require.Equal(t, int64(2), l.RemainingQuantity.Int64())
	require.False(t, *l.Unlimited)

	h.chain.setQuantityListing(t, 1, 2, 1)
	h.handle(t, listingAction(t, 1, events.ActionBuy, buyer, 11))

	l = h.listing(t, "1")
	require.Equal(t, int64(1), l.RemainingQuantity.Int64())
	require.True(t, l.Active)
	require.Equal(t, buyer, *l.Buyer)

	action, err := h.store.FindAction(ctx, store.Predicate{"tx_hash": txHash(11), "log_index": uint(1)})
	require.NoError(t, err)
	require.Equal(t, events.ActionBuy, *action.ActionName)
	require.Equal(t, int64(1), action.Quantity.Int64())

	h.chain.setQuantityListing(t, 1, 2, 0)
	h.handle(t, listingAction(t, 1, events.ActionBuy, buyer, 12))

	l = h.listing(t, "1")
	require.Equal(t, int64(0), l.RemainingQuantity.Int64())
	require.False(t, l.Active)

	// a stale read reporting more stock never raises the remaining quantity
	h.chain.setQuantityListing(t, 1, 2, 2)
	h.handle(t, listingAction(t, 1, events.ActionBuy, stranger, 13))

	l = h.listing(t, "1")
	require.Equal(t, int64(0), l.RemainingQuantity.Int64())
	require.False(t, l.Active)

	action, err = h.store.FindAction(ctx, store.Predicate{"tx_hash": txHash(13), "log_index": uint(1)})
	require.NoError(t, err)
	require.Nil(t, action.Quantity)
}

func TestHandle_Unlimited(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.chain.setQuantityListing(t, 1, 0, 0)
	h.handle(t, listingCreated(1, 1, "bafy1", 10))

	for block := uint64(11); block <= 13; block++ {
		h.handle(t, listingAction(t, 1, events.ActionBuy, buyer, block))

		action, err := h.store.FindAction(ctx, store.Predicate{"tx_hash": txHash(block), "log_index": uint(1)})
		require.NoError(t, err)
		require.Nil(t, action.Quantity)
	}

	l := h.listing(t, "1")
	require.Equal(t, int64(0), l.RemainingQuantity.Int64())
	require.True(t, *l.Unlimited)
	require.True(t, l.Active)
	require.Equal(t, buyer, *l.Buyer)
}

func TestHandle_SimpleBuyKeepsQuantities(t *testing.T) {
	h := newHarness(t)

	data, err := chain.EncodeSimpleListingData(usdc, big.NewInt(9))
	require.NoError(t, err)
	h.chain.setListingData(1, data)
	h.handle(t, listingCreated(1, 1, "bafy1", 10))
	h.handle(t, listingAction(t, 1, events.ActionBuy, buyer, 11))

	l := h.listing(t, "1")
	require.Equal(t, buyer, *l.Buyer)
	require.Nil(t, l.RemainingQuantity)
	require.Nil(t, l.Unlimited)
	require.True(t, l.Active)
}

func TestHandle_CloseActionRecorded(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.handle(t, listingCreated(1, 1, "bafy1", 10))
	h.handle(t, listingAction(t, 1, events.ActionClose, seller, 11))

	actions, err := h.store.ListActions(ctx, "1", 0, 0)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.Equal(t, events.ActionClose, *actions[0].ActionName)
	require.Nil(t, h.listing(t, "1").Buyer)

	unknown := listingAction(t, 1, events.ActionBuy, seller, 12)
	args := unknown.Args.(events.ListingAction)
	args.Action = [32]byte{0x01, 0x02, 0x03, 0x04}
	unknown.Args = args
	h.handle(t, unknown)

	action, err := h.store.FindAction(ctx, store.Predicate{"tx_hash": txHash(12), "log_index": uint(1)})
	require.NoError(t, err)
	require.Equal(t, "0x01020304", action.Selector)
	require.Nil(t, action.ActionName)
}

func TestHandle_BufferRace(t *testing.T) {
	const doc = `{"title":"Road bike","category":"sports","price":"120","currency":"USDC","locationId":"lisbon","tags":["bike"]}`

	tests := []struct {
		name           string
		satelliteFirst bool
	}{
		{name: "satellite first", satelliteFirst: true},
		{name: "primary first"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()
			h.content.docs["bafysatellite"] = doc

			primary := listingCreated(5, 3, "bafyprimary", 20)
			satellite := simpleListingCreated(3, "bafysatellite", 21)
			if tt.satelliteFirst {
				h.handle(t, satellite)
				h.handle(t, primary)
			} else {
				h.handle(t, primary)
				h.handle(t, satellite)
			}

			all, err := h.store.ListListings(ctx, store.ListingFilter{})
			require.NoError(t, err)
			require.Len(t, all, 1)

			l := all[0]
			require.Equal(t, "5", l.ID)
			require.Equal(t, usdc, *l.PaymentToken)
			require.Equal(t, int64(5_000_000), l.PriceWei.Int64())
			require.Equal(t, "bafysatellite", *l.CID)
			require.Equal(t, "USDC", *l.TokenSymbol)
			require.Equal(t, "Road bike", *l.Title)
			require.Equal(t, "lisbon", *l.LocationID)
			require.JSONEq(t, `["bike"]`, *l.Tags)
			require.True(t, l.Active)

			buf, err := h.store.FindBuffer(ctx, bufferKey(simpleListings, big.NewInt(3)))
			if tt.satelliteFirst {
				require.NoError(t, err)
				require.Equal(t, "5", *buf.ConsumedBy)
			} else {
				require.ErrorIs(t, err, store.ErrNotFound)
			}
		})
	}
}

func TestHandle_SatelliteLastWriteWins(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	first := simpleListingCreated(3, "bafyfirst", 20)
	second := simpleListingCreated(3, "bafysecond", 21)
	args := second.Args.(events.SimpleListingCreated)
	args.Price = big.NewInt(7)
	second.Args = args

	h.handle(t, first)
	h.handle(t, second)

	buf, err := h.store.FindBuffer(ctx, bufferKey(simpleListings, big.NewInt(3)))
	require.NoError(t, err)
	require.Equal(t, "bafysecond", *buf.CID)
	require.Equal(t, int64(7), buf.PriceWei.Int64())
	require.Equal(t, "USD Coin", *buf.TokenName)
	require.Nil(t, buf.Metadata)
}

func TestHandle_SimpleListingSoldAndClosed(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.handle(t, listingCreated(5, 3, "bafy5", 20))

	h.handle(t, events.Event{
		ContractName: bcommon.ContractSimpleListings,
		EventName:    events.EventSimpleListingSold,
		Args:         events.SimpleListingSold{ListingID: big.NewInt(3), Buyer: buyer, Price: big.NewInt(10), PaymentToken: usdc},
		Block:        events.Block{Number: 21, Timestamp: 1_700_000_021},
		Tx:           events.Tx{Hash: txHash(21)},
		Log:          events.LogRef{Index: 4, Address: simpleListings},
	})

	l := h.listing(t, "5")
	require.Equal(t, buyer, *l.Buyer)
	require.False(t, l.Active)

	sales, err := h.store.ListSales(ctx, "5")
	require.NoError(t, err)
	require.Len(t, sales, 1)
	require.Equal(t, buyer, sales[0].Buyer)

	h.handle(t, events.Event{
		ContractName: bcommon.ContractMarketplace,
		EventName:    events.EventListingActivationChanged,
		Args:         events.ListingActivationChanged{ListingID: big.NewInt(5), Active: true},
		Block:        events.Block{Number: 22, Timestamp: 1_700_000_022},
		Tx:           events.Tx{Hash: txHash(22)},
		Log:          events.LogRef{Index: 0, Address: marketplace},
	})
	require.True(t, h.listing(t, "5").Active)

	h.handle(t, events.Event{
		ContractName: bcommon.ContractSimpleListings,
		EventName:    events.EventSimpleListingClosed,
		Args:         events.SimpleListingClosed{ListingID: big.NewInt(3), Caller: seller},
		Block:        events.Block{Number: 23, Timestamp: 1_700_000_023},
		Tx:           events.Tx{Hash: txHash(23)},
		Log:          events.LogRef{Index: 0, Address: simpleListings},
	})
	require.False(t, h.listing(t, "5").Active)

	changes, err := h.store.ListStatusChanges(ctx, "5")
	require.NoError(t, err)
	require.Len(t, changes, 2)
	require.Equal(t, store.StatusActivationChanged, changes[0].Kind)
	require.Equal(t, store.StatusClosed, changes[1].Kind)
	require.Equal(t, seller, *changes[1].Caller)
}

func simpleListingSold(innerID int64, block uint64) events.Event {
	return events.Event{
		ContractName: bcommon.ContractSimpleListings,
		EventName:    events.EventSimpleListingSold,
		Args:         events.SimpleListingSold{ListingID: big.NewInt(innerID), Buyer: buyer, Price: big.NewInt(10), PaymentToken: usdc},
		Block:        events.Block{Number: block, Timestamp: 1_700_000_000 + block},
		Tx:           events.Tx{Hash: txHash(block)},
		Log:          events.LogRef{Index: 4, Address: simpleListings},
	}
}

func simpleListingClosed(innerID int64, block uint64) events.Event {
	return events.Event{
		ContractName: bcommon.ContractSimpleListings,
		EventName:    events.EventSimpleListingClosed,
		Args:         events.SimpleListingClosed{ListingID: big.NewInt(innerID), Caller: seller},
		Block:        events.Block{Number: block, Timestamp: 1_700_000_000 + block},
		Tx:           events.Tx{Hash: txHash(block)},
		Log:          events.LogRef{Index: 5, Address: simpleListings},
	}
}

func activationChanged(id int64, active bool, block uint64) events.Event {
	return events.Event{
		ContractName: bcommon.ContractMarketplace,
		EventName:    events.EventListingActivationChanged,
		Args:         events.ListingActivationChanged{ListingID: big.NewInt(id), Active: active},
		Block:        events.Block{Number: block, Timestamp: 1_700_000_000 + block},
		Tx:           events.Tx{Hash: txHash(block)},
		Log:          events.LogRef{Index: 6, Address: marketplace},
	}
}

func TestHandle_ReplayKeepsListingInactive(t *testing.T) {
	tests := []struct {
		name      string
		end       func() events.Event
		wantBuyer bool
		wantSales int
		wantStats int
	}{
		{name: "closed", end: func() events.Event { return simpleListingClosed(3, 22) }, wantStats: 1},
		{name: "sold", end: func() events.Event { return simpleListingSold(3, 22) }, wantBuyer: true, wantSales: 1},
		{name: "deactivated", end: func() events.Event { return activationChanged(5, false, 22) }, wantStats: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()

			h.handle(t, listingCreated(5, 3, "bafy5", 20))
			batch := []events.Event{simpleListingCreated(3, "bafy5", 21), tt.end()}

			for _, ev := range batch {
				h.handle(t, ev)
			}
			require.False(t, h.listing(t, "5").Active)

			// the range is delivered again from the last checkpoint
			for _, ev := range batch {
				h.handle(t, ev)
			}

			l := h.listing(t, "5")
			require.False(t, l.Active)
			if tt.wantBuyer {
				require.Equal(t, buyer, *l.Buyer)
			}

			sales, err := h.store.ListSales(ctx, "5")
			require.NoError(t, err)
			require.Len(t, sales, tt.wantSales)

			changes, err := h.store.ListStatusChanges(ctx, "5")
			require.NoError(t, err)
			require.Len(t, changes, tt.wantStats)
		})
	}
}

func TestHandle_ActionRedelivery(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.handle(t, listingCreated(1, 1, "bafy1", 10))
	buy := listingAction(t, 1, events.ActionBuy, buyer, 11)
	h.handle(t, buy)
	h.handle(t, buy)

	actions, err := h.store.ListActions(ctx, "1", 0, 0)
	require.NoError(t, err)
	require.Len(t, actions, 1)
	require.Equal(t, buyer, *h.listing(t, "1").Buyer)
}

func TestHandle_ReviewFlags(t *testing.T) {
	tests := []struct {
		name         string
		reviewer     common.Address
		listingID    int64
		wantSeller   bool
		wantBuyer    bool
		listingFound bool
	}{
		{name: "reviewer is the seller", reviewer: seller, listingID: 1, wantSeller: true, listingFound: true},
		{name: "reviewer is the buyer", reviewer: buyer, listingID: 1, wantBuyer: true, listingFound: true},
		{name: "reviewer is neither", reviewer: stranger, listingID: 1, listingFound: true},
		{name: "listing unknown", reviewer: seller, listingID: 99},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			ctx := context.Background()

			h.handle(t, listingCreated(1, 1, "bafy1", 10))
			_, err := h.store.UpdateListingsWhere(ctx, store.Predicate{"id": "1"}, store.Patch{"buyer": buyer})
			require.NoError(t, err)

			uid := common.HexToHash("0xabc1")
			h.handle(t, attested(t, h.chain, uid, tt.reviewer, tt.listingID, 30))

			review, err := h.store.FindReview(ctx, store.Predicate{"uid": uid})
			require.NoError(t, err)
			require.Equal(t, tt.reviewer, review.Reviewer)
			require.Equal(t, uint8(5), review.Rating)
			require.Equal(t, "bafycomment", *review.CommentCID)

			l := h.listing(t, "1")
			require.Equal(t, tt.wantSeller, l.SellerReviewed)
			require.Equal(t, tt.wantBuyer, l.BuyerReviewed)
		})
	}
}

func TestHandle_DuplicateAttestation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	h.handle(t, listingCreated(1, 1, "bafy1", 10))

	uid := common.HexToHash("0xabc2")
	ev := attested(t, h.chain, uid, seller, 1, 30)
	h.handle(t, ev)
	h.handle(t, ev)

	reviews, err := h.store.ListReviews(ctx, store.ReviewFilter{})
	require.NoError(t, err)
	require.Len(t, reviews, 1)
	require.True(t, h.listing(t, "1").SellerReviewed)
}

func TestHandle_AttestationFiltering(t *testing.T) {
	ctx := context.Background()

	t.Run("other schema", func(t *testing.T) {
		h := newHarness(t)
		ev := attested(t, h.chain, common.HexToHash("0xabc3"), seller, 1, 30)
		args := ev.Args.(events.Attested)
		args.SchemaUID = common.HexToHash("0x01")
		ev.Args = args

		h.handle(t, ev)
		require.Zero(t, h.chain.attestReads)
	})

	t.Run("no schema configured", func(t *testing.T) {
		h := newHarness(t)
		h.r = New(h.store, h.chain, h.content, Config{}, logger.NewNopLogger())

		h.handle(t, attested(t, h.chain, common.HexToHash("0xabc4"), seller, 1, 30))
		require.Zero(t, h.chain.attestReads)
	})

	t.Run("attestation read fails", func(t *testing.T) {
		h := newHarness(t)
		ev := attested(t, h.chain, common.HexToHash("0xabc5"), seller, 1, 30)
		delete(h.chain.attestations, common.HexToHash("0xabc5"))

		h.handle(t, ev)
		reviews, err := h.store.ListReviews(ctx, store.ReviewFilter{})
		require.NoError(t, err)
		require.Empty(t, reviews)
	})

	t.Run("undecodable payload", func(t *testing.T) {
		h := newHarness(t)
		uid := common.HexToHash("0xabc6")
		ev := attested(t, h.chain, uid, seller, 1, 30)
		att := h.chain.attestations[uid]
		att.Data = []byte{0x01}
		h.chain.attestations[uid] = att

		h.handle(t, ev)
		reviews, err := h.store.ListReviews(ctx, store.ReviewFilter{})
		require.NoError(t, err)
		require.Empty(t, reviews)
	})
}

func TestHandle_EnrichmentFaultIsolation(t *testing.T) {
	h := newHarness(t)

	contentBefore := testutil.ToFloat64(enrichmentFailures.WithLabelValues(StepContent))
	stateBefore := testutil.ToFloat64(enrichmentFailures.WithLabelValues(StepListingState))

	// no listing state and no document: every enrichment source is down
	h.handle(t, listingCreated(8, 2, "bafyoffline", 40))

	l := h.listing(t, "8")
	require.Equal(t, seller, l.Creator)
	require.True(t, l.Active)
	require.Equal(t, "bafyoffline", *l.CID)
	require.Nil(t, l.Title)
	require.Nil(t, l.Description)
	require.Nil(t, l.Metadata)
	require.Nil(t, l.PriceWei)

	require.Equal(t, contentBefore+1, testutil.ToFloat64(enrichmentFailures.WithLabelValues(StepContent)))
	require.Equal(t, stateBefore+1, testutil.ToFloat64(enrichmentFailures.WithLabelValues(StepListingState)))
}

func TestHandle_ContentEnrichment(t *testing.T) {
	h := newHarness(t)
	h.content.docs["bafydoc"] = `{"title":"Lamp","description":42,"contact":{"telegram":"@seller"},"price":12.5}`

	h.handle(t, listingCreated(9, 4, "bafydoc", 50))

	l := h.listing(t, "9")
	require.Equal(t, "Lamp", *l.Title)
	require.Nil(t, l.Description)
	require.Equal(t, "12.5", *l.Price)
	require.JSONEq(t, `{"telegram":"@seller"}`, *l.Contact)
	require.JSONEq(t, h.content.docs["bafydoc"], *l.Metadata)
}

func TestEnrichmentError(t *testing.T) {
	err := &EnrichmentError{Step: StepContent, Subject: "listing 1", Err: content.ErrUnavailable}
	require.ErrorIs(t, err, content.ErrUnavailable)
	require.Equal(t, "content enrichment of listing 1: "+content.ErrUnavailable.Error(), err.Error())
}
