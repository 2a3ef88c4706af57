package events

import (
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	marketplaceAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	simpleAddr      = common.HexToAddress("0x2222222222222222222222222222222222222222")
	easAddr         = common.HexToAddress("0x4200000000000000000000000000000000000021")
	creatorAddr     = common.HexToAddress("0xAaAaaAAAaAaaAaAaAaaAAaAaAAAAAaAaaaAaAaaa")
	tokenAddr       = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
)

// buildLog encodes an event of contractABI the same way the EVM would.
func buildLog(t *testing.T, contractABI abi.ABI, address common.Address, event string, indexed []any, data ...any) types.Log {
	t.Helper()

	ev, ok := contractABI.Events[event]
	require.True(t, ok, event)

	topics := []common.Hash{ev.ID}
	if len(indexed) > 0 {
		query := make([][]any, len(indexed))
		for i, v := range indexed {
			query[i] = []any{v}
		}
		rule, err := abi.MakeTopics(query...)
		require.NoError(t, err)
		for _, r := range rule {
			topics = append(topics, r[0])
		}
	}

	payload, err := ev.Inputs.NonIndexed().Pack(data...)
	require.NoError(t, err)

	return types.Log{
		Address:     address,
		Topics:      topics,
		Data:        payload,
		BlockNumber: 120,
		TxHash:      common.HexToHash("0xabc"),
		Index:       3,
	}
}

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()

	d := NewDecoder()
	require.NoError(t, d.RegisterContract("marketplace", marketplaceAddr, nil))
	require.NoError(t, d.RegisterContract("SimpleListings", simpleAddr, nil))
	require.NoError(t, d.RegisterContract("EAS", easAddr, []string{EventAttested}))
	return d
}

func TestRegisterContract(t *testing.T) {
	tests := []struct {
		name       string
		contract   string
		events     []string
		wantErr    string
		wantEvents int
	}{
		{name: "all marketplace events", contract: "Marketplace", wantEvents: 3},
		{name: "case insensitive", contract: "simplelistings", wantEvents: 3},
		{name: "event filter", contract: "Marketplace", events: []string{EventListingCreated}, wantEvents: 1},
		{name: "unknown contract", contract: "Uniswap", wantErr: "unknown contract"},
		{name: "unknown event", contract: "EAS", events: []string{"Revoked"}, wantErr: "has no event"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := NewDecoder()
			err := d.RegisterContract(tt.contract, marketplaceAddr, tt.events)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, d.EventSignatures(), tt.wantEvents)
			require.Equal(t, []common.Address{marketplaceAddr}, d.Addresses())
		})
	}
}

func TestDecode(t *testing.T) {
	d := newTestDecoder(t)

	var action [32]byte
	copy(action[:], common.FromHex("0xdeadbeef"))
	uid := common.HexToHash("0x01")
	schema := common.HexToHash("0x02")

	tests := []struct {
		name    string
		log     types.Log
		wantKey string
		want    Args
	}{
		{
			name: "listing created",
			log: buildLog(t, MarketplaceABI, marketplaceAddr, EventListingCreated,
				[]any{big.NewInt(7), creatorAddr, simpleAddr}, big.NewInt(42), "ipfs://bafy"),
			wantKey: "Marketplace:ListingCreated",
			want: ListingCreated{
				ID:          big.NewInt(7),
				Creator:     creatorAddr,
				ListingType: simpleAddr,
				ListingID:   big.NewInt(42),
				Contenthash: "ipfs://bafy",
			},
		},
		{
			name: "listing action",
			log: buildLog(t, MarketplaceABI, marketplaceAddr, EventListingAction,
				[]any{big.NewInt(7), creatorAddr}, action),
			wantKey: "Marketplace:ListingAction",
			want:    ListingAction{ID: big.NewInt(7), Caller: creatorAddr, Action: action},
		},
		{
			name: "activation changed",
			log: buildLog(t, MarketplaceABI, marketplaceAddr, EventListingActivationChanged,
				[]any{big.NewInt(7)}, false),
			wantKey: "Marketplace:ListingActivationChanged",
			want:    ListingActivationChanged{ListingID: big.NewInt(7), Active: false},
		},
		{
			name: "simple listing created",
			log: buildLog(t, SimpleListingsABI, simpleAddr, EventSimpleListingCreated,
				[]any{big.NewInt(42), creatorAddr}, tokenAddr, big.NewInt(1_000_000), "bafy"),
			wantKey: "SimpleListings:SimpleListingCreated",
			want: SimpleListingCreated{
				ListingID:    big.NewInt(42),
				Creator:      creatorAddr,
				PaymentToken: tokenAddr,
				Price:        big.NewInt(1_000_000),
				IpfsHash:     "bafy",
			},
		},
		{
			name: "simple listing sold",
			log: buildLog(t, SimpleListingsABI, simpleAddr, EventSimpleListingSold,
				[]any{big.NewInt(42), creatorAddr}, big.NewInt(5), tokenAddr),
			wantKey: "SimpleListings:SimpleListingSold",
			want:    SimpleListingSold{ListingID: big.NewInt(42), Buyer: creatorAddr, Price: big.NewInt(5), PaymentToken: tokenAddr},
		},
		{
			name: "simple listing closed",
			log: buildLog(t, SimpleListingsABI, simpleAddr, EventSimpleListingClosed,
				[]any{big.NewInt(42), creatorAddr}),
			wantKey: "SimpleListings:SimpleListingClosed",
			want:    SimpleListingClosed{ListingID: big.NewInt(42), Caller: creatorAddr},
		},
		{
			name: "attested",
			log: buildLog(t, EASABI, easAddr, EventAttested,
				[]any{tokenAddr, creatorAddr, [32]byte(schema)}, [32]byte(uid)),
			wantKey: "EAS:Attested",
			want:    Attested{Recipient: tokenAddr, Attester: creatorAddr, UID: uid, SchemaUID: schema},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := d.Decode(tt.log, 1_700_000_000)
			require.NoError(t, err)
			require.Equal(t, tt.wantKey, ev.Key())
			require.Equal(t, tt.want, ev.Args)
			require.Equal(t, Block{Number: 120, Timestamp: 1_700_000_000}, ev.Block)
			require.Equal(t, common.HexToHash("0xabc"), ev.Tx.Hash)
			require.Equal(t, LogRef{Index: 3, Address: tt.log.Address}, ev.Log)
		})
	}
}

func TestDecode_Unknown(t *testing.T) {
	d := newTestDecoder(t)

	known := buildLog(t, SimpleListingsABI, simpleAddr, EventSimpleListingClosed, []any{big.NewInt(1), creatorAddr})

	wrongAddress := known
	wrongAddress.Address = tokenAddr

	wrongSig := known
	wrongSig.Topics = append([]common.Hash{common.HexToHash("0x1234")}, known.Topics[1:]...)

	noTopics := known
	noTopics.Topics = nil

	for name, log := range map[string]types.Log{
		"unregistered address": wrongAddress,
		"unregistered topic":   wrongSig,
		"no topics":            noTopics,
	} {
		t.Run(name, func(t *testing.T) {
			require.False(t, d.CanDecode(log))
			_, err := d.Decode(log, 0)
			require.ErrorIs(t, err, ErrUnknownEvent)
		})
	}

	require.True(t, d.CanDecode(known))
}

func TestDecode_TruncatedData(t *testing.T) {
	d := newTestDecoder(t)

	log := buildLog(t, MarketplaceABI, marketplaceAddr, EventListingCreated,
		[]any{big.NewInt(7), creatorAddr, simpleAddr}, big.NewInt(42), "ipfs://bafy")
	log.Data = nil

	_, err := d.Decode(log, 0)
	require.ErrorContains(t, err, `missing field "listingId"`)
}

func TestActionSelectors(t *testing.T) {
	buy, ok := ActionSelector(ActionBuy)
	require.True(t, ok)
	require.Len(t, buy, 10)

	name, ok := ActionName(buy)
	require.True(t, ok)
	require.Equal(t, ActionBuy, name)

	closeSel, ok := ActionSelector(ActionClose)
	require.True(t, ok)
	require.NotEqual(t, buy, closeSel)

	_, ok = ActionName("0x00000000")
	require.False(t, ok)

	var action [32]byte
	copy(action[:], common.FromHex(buy))
	require.Equal(t, buy, ListingAction{Action: action}.Selector())
}

func TestSubscriptions(t *testing.T) {
	t.Parallel()

	d := NewDecoder()
	require.NoError(t, d.RegisterContract("Marketplace", marketplaceAddr, []string{EventListingCreated, EventListingAction}))
	require.NoError(t, d.RegisterContract("EAS", easAddr, nil))

	subs := d.Subscriptions()
	require.Len(t, subs, 2)
	require.Len(t, subs[marketplaceAddr], 2)
	require.Contains(t, subs[marketplaceAddr], MarketplaceABI.Events[EventListingCreated].ID)
	require.NotContains(t, subs[marketplaceAddr], MarketplaceABI.Events[EventListingActivationChanged].ID)
	require.Equal(t, map[common.Hash]struct{}{EASABI.Events[EventAttested].ID: {}}, subs[easAddr])
}
