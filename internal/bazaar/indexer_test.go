package bazaar

import (
	"context"
	"errors"
	"math/big"
	"path/filepath"
	"testing"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/chain"
	bcommon "github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/content"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/events"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/reconciler"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/store"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/indexer"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/stretchr/testify/require"
)

var (
	marketplaceAddr = common.HexToAddress("0x1111111111111111111111111111111111111111")
	simpleAddr      = common.HexToAddress("0x2222222222222222222222222222222222222222")
	creator         = common.HexToAddress("0xAaAaaAAAaAaaAaAaAaaAAaAaAAAAAaAaaaAaAaaa")
	usdc            = common.HexToAddress("0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913")
)

type stubChain struct{}

func (stubChain) ReadListingState(context.Context, common.Address, *big.Int) (chain.ListingState, error) {
	return chain.ListingState{}, errors.New("execution reverted")
}

func (stubChain) ReadERC20Metadata(context.Context, common.Address) chain.TokenMetadata {
	name, symbol, decimals := "USD Coin", "USDC", uint8(6)
	return chain.TokenMetadata{Name: &name, Symbol: &symbol, Decimals: &decimals}
}

func (stubChain) ReadAttestation(context.Context, common.Address, common.Hash) (chain.Attestation, error) {
	return chain.Attestation{}, errors.New("execution reverted")
}

type stubContent struct{}

func (stubContent) FetchJSON(_ context.Context, identifier string) (content.Document, error) {
	if identifier == "bafy-doc" {
		return content.ParseDocument([]byte(`{"title":"Bike","locationId":"lisbon"}`))
	}
	return content.Document{}, content.ErrUnavailable
}

func testConfig(t *testing.T) config.IndexerConfig {
	t.Helper()

	cfg := config.IndexerConfig{
		Name:       "bazaar-test",
		StartBlock: 100,
		DB:         config.DatabaseConfig{Path: filepath.Join(t.TempDir(), "bazaar.sqlite")},
		Contracts: []config.ContractConfig{
			{Name: bcommon.ContractMarketplace, Address: marketplaceAddr.Hex()},
			{Name: bcommon.ContractSimpleListings, Address: simpleAddr.Hex()},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func newTestIndexer(t *testing.T) *Indexer {
	t.Helper()

	idx, err := New(testConfig(t), stubChain{}, stubContent{}, reconciler.Config{}, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = idx.Close() })
	return idx
}

func buildLog(t *testing.T, contractABI abi.ABI, address common.Address, event string, block uint64, logIndex uint, indexed []any, data ...any) types.Log {
	t.Helper()

	ev, ok := contractABI.Events[event]
	require.True(t, ok, event)

	query := make([][]any, len(indexed))
	for i, v := range indexed {
		query[i] = []any{v}
	}
	rule, err := abi.MakeTopics(query...)
	require.NoError(t, err)

	topics := []common.Hash{ev.ID}
	for _, r := range rule {
		topics = append(topics, r[0])
	}

	payload, err := ev.Inputs.NonIndexed().Pack(data...)
	require.NoError(t, err)

	return types.Log{
		Address:     address,
		Topics:      topics,
		Data:        payload,
		BlockNumber: block,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block)),
		Index:       logIndex,
	}
}

func TestFactory_RequiresDeps(t *testing.T) {
	tests := []struct {
		name    string
		deps    indexer.Deps
		wantErr string
	}{
		{name: "no config", deps: indexer.Deps{}, wantErr: "process configuration"},
		{name: "no caller", deps: indexer.Deps{Config: &config.Config{}}, wantErr: "contract caller"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Factory(testConfig(t), tt.deps, logger.NewNopLogger())
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestFactory_Registered(t *testing.T) {
	require.NotNil(t, indexer.GetFactory(IndexerType))
}

func TestNew_InvalidContract(t *testing.T) {
	tests := []struct {
		name     string
		contract config.ContractConfig
		wantErr  string
	}{
		{
			name:     "bad address",
			contract: config.ContractConfig{Name: bcommon.ContractMarketplace, Address: "0x1234"},
			wantErr:  "invalid address",
		},
		{
			name:     "unknown contract",
			contract: config.ContractConfig{Name: "Seaport", Address: marketplaceAddr.Hex()},
			wantErr:  "register contract Seaport",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(t)
			cfg.Contracts = []config.ContractConfig{tt.contract}
			_, err := New(cfg, stubChain{}, stubContent{}, reconciler.Config{}, logger.NewNopLogger())
			require.ErrorContains(t, err, tt.wantErr)
		})
	}
}

func TestIndexer_Accessors(t *testing.T) {
	idx := newTestIndexer(t)

	require.Equal(t, "bazaar-test", idx.GetName())
	require.Equal(t, IndexerType, idx.GetType())
	require.Equal(t, uint64(100), idx.StartBlock())
	require.NotNil(t, idx.Store())

	subs := idx.EventsToIndex()
	require.Len(t, subs, 2)
	require.Len(t, subs[marketplaceAddr], 3)
	require.Len(t, subs[simpleAddr], 3)
}

func TestIndexer_HandleLogs(t *testing.T) {
	idx := newTestIndexer(t)
	ctx := context.Background()

	satellite := buildLog(t, events.SimpleListingsABI, simpleAddr, events.EventSimpleListingCreated, 120, 0,
		[]any{big.NewInt(42), creator}, usdc, big.NewInt(1_000_000), "bafy-doc")
	created := buildLog(t, events.MarketplaceABI, marketplaceAddr, events.EventListingCreated, 121, 1,
		[]any{big.NewInt(7), creator, simpleAddr}, big.NewInt(42), "bafy-doc")

	foreign := created
	foreign.Address = common.HexToAddress("0x9999999999999999999999999999999999999999")

	malformed := created
	malformed.Topics = malformed.Topics[:1]
	malformed.Index = 2

	batch := indexer.Batch{
		FromBlock:       120,
		ToBlock:         121,
		Logs:            []types.Log{satellite, foreign, created, malformed},
		BlockTimestamps: map[uint64]uint64{120: 1_700_000_000, 121: 1_700_000_012},
	}
	require.NoError(t, idx.HandleLogs(ctx, batch))

	listing, err := idx.Store().GetListing(ctx, "7")
	require.NoError(t, err)
	require.Equal(t, creator, listing.Creator)
	require.Equal(t, uint64(1_700_000_012), listing.CreatedBlockTimestamp)
	require.NotNil(t, listing.PaymentToken)
	require.Equal(t, usdc, *listing.PaymentToken)
	require.NotNil(t, listing.TokenSymbol)
	require.Equal(t, "USDC", *listing.TokenSymbol)
	require.NotNil(t, listing.Title)
	require.Equal(t, "Bike", *listing.Title)

	// redelivery of an already applied batch is not an error
	require.NoError(t, idx.HandleLogs(ctx, batch))

	listings, err := idx.Store().ListListings(ctx, store.ListingFilter{})
	require.NoError(t, err)
	require.Len(t, listings, 1)
}

func TestIndexer_HandleLogs_Empty(t *testing.T) {
	idx := newTestIndexer(t)
	require.NoError(t, idx.HandleLogs(context.Background(), indexer.Batch{FromBlock: 1, ToBlock: 5}))
}
