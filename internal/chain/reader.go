package chain

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/events"
	"github.com/BuidlGuidl/ethereum-bazaar/internal/logger"
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"
)

// Native currency metadata used for the zero payment token.
const (
	NativeName     = "Ether"
	NativeSymbol   = "ETH"
	NativeDecimals = uint8(18)
)

var errUnexpectedTypes = errors.New("unexpected return types")

// Reader performs read-only contract calls. Every call is bounded by the configured
// call timeout and fails on its own.
type Reader struct {
	caller      ethereum.ContractCaller
	callTimeout time.Duration
	log         *logger.Logger
}

// NewReader creates a chain reader on top of caller.
func NewReader(caller ethereum.ContractCaller, cfg config.ChainReaderConfig, log *logger.Logger) *Reader {
	cfg.ApplyDefaults()
	return &Reader{
		caller:      caller,
		callTimeout: cfg.CallTimeout.Duration,
		log:         log,
	}
}

func (r *Reader) call(
	ctx context.Context,
	contractABI abi.ABI,
	to common.Address,
	method string,
	args ...any,
) (out []any, err error) {
	defer func() { callFinished(method, err) }()

	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("packing %s: %w", method, err)
	}

	ctx, cancel := context.WithTimeout(ctx, r.callTimeout)
	defer cancel()

	raw, err := r.caller.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
	if err != nil {
		return nil, fmt.Errorf("calling %s on %s: %w", method, to.Hex(), err)
	}

	out, err = contractABI.Unpack(method, raw)
	if err != nil {
		return nil, fmt.Errorf("unpacking %s: %w", method, err)
	}
	return out, nil
}

// ReadListingState calls getListing(id) on the marketplace registry.
func (r *Reader) ReadListingState(ctx context.Context, marketplace common.Address, id *big.Int) (ListingState, error) {
	out, err := r.call(ctx, events.MarketplaceABI, marketplace, "getListing", id)
	if err != nil {
		return ListingState{}, err
	}
	if len(out) != 5 { //nolint:mnd
		return ListingState{}, fmt.Errorf("getListing: %w", errUnexpectedTypes)
	}

	var (
		st                      ListingState
		ok1, ok2, ok3, ok4, ok5 bool
	)
	st.Creator, ok1 = out[0].(common.Address)
	st.ListingType, ok2 = out[1].(common.Address)
	st.Contenthash, ok3 = out[2].(string)
	st.Active, ok4 = out[3].(bool)
	st.ListingData, ok5 = out[4].([]byte)
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 {
		return ListingState{}, fmt.Errorf("getListing: %w", errUnexpectedTypes)
	}
	return st, nil
}

// ReadERC20Metadata reads name, symbol and decimals concurrently. Each field is read
// in isolation so one failing read never hides the others. The zero address is the
// native currency and needs no call.
func (r *Reader) ReadERC20Metadata(ctx context.Context, token common.Address) TokenMetadata {
	if token == (common.Address{}) {
		name, symbol, decimals := NativeName, NativeSymbol, NativeDecimals
		return TokenMetadata{Name: &name, Symbol: &symbol, Decimals: &decimals}
	}

	var md TokenMetadata
	var nameErr, symbolErr, decErr error
	var g errgroup.Group

	g.Go(func() error {
		var v string
		if v, nameErr = readSingle[string](ctx, r, token, "name"); nameErr == nil {
			md.Name = &v
		}
		return nil
	})
	g.Go(func() error {
		var v string
		if v, symbolErr = readSingle[string](ctx, r, token, "symbol"); symbolErr == nil {
			md.Symbol = &v
		}
		return nil
	})
	g.Go(func() error {
		var v uint8
		if v, decErr = readSingle[uint8](ctx, r, token, "decimals"); decErr == nil {
			md.Decimals = &v
		}
		return nil
	})
	_ = g.Wait()

	md.Err = errors.Join(nameErr, symbolErr, decErr)
	return md
}

func readSingle[T any](ctx context.Context, r *Reader, token common.Address, method string) (T, error) {
	var zero T
	out, err := r.call(ctx, events.ERC20ABI, token, method)
	if err != nil {
		return zero, err
	}
	if len(out) != 1 {
		return zero, fmt.Errorf("%s: %w", method, errUnexpectedTypes)
	}
	v, ok := out[0].(T)
	if !ok {
		return zero, fmt.Errorf("%s: %w", method, errUnexpectedTypes)
	}
	return v, nil
}

// ReadAttestation calls getAttestation(uid) on the EAS contract.
func (r *Reader) ReadAttestation(ctx context.Context, eas common.Address, uid common.Hash) (Attestation, error) {
	out, err := r.call(ctx, events.EASABI, eas, "getAttestation", [32]byte(uid))
	if err != nil {
		return Attestation{}, err
	}
	if len(out) != 1 {
		return Attestation{}, fmt.Errorf("getAttestation: %w", errUnexpectedTypes)
	}

	t, ok := abi.ConvertType(out[0], new(attestationTuple)).(*attestationTuple)
	if !ok {
		return Attestation{}, fmt.Errorf("getAttestation: %w", errUnexpectedTypes)
	}

	return Attestation{
		UID:       t.Uid,
		Schema:    t.Schema,
		Time:      t.Time,
		Recipient: t.Recipient,
		Attester:  t.Attester,
		Revocable: t.Revocable,
		Data:      t.Data,
	}, nil
}
