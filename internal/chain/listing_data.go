package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
)

type listingDataDecoder struct {
	name string
	args abi.Arguments
	conv func(values []any) (ListingTerms, bool)
}

func mustType(t string) abi.Type {
	typ, err := abi.NewType(t, "", nil)
	if err != nil {
		panic(err)
	}
	return typ
}

var (
	addressType = mustType("address")
	uint256Type = mustType("uint256")
	uint8Type   = mustType("uint8")
	stringType  = mustType("string")
)

// Candidates are tried widest first: a 4-word payload also satisfies the 2-word layout,
// the reverse is never true.
var listingDataDecoders = []listingDataDecoder{
	{
		name: "quantity",
		args: abi.Arguments{{Type: addressType}, {Type: uint256Type}, {Type: uint256Type}, {Type: uint256Type}},
		conv: func(v []any) (ListingTerms, bool) {
			token, ok1 := v[0].(common.Address)
			price, ok2 := v[1].(*big.Int)
			initial, ok3 := v[2].(*big.Int)
			remaining, ok4 := v[3].(*big.Int)
			if !ok1 || !ok2 || !ok3 || !ok4 {
				return ListingTerms{}, false
			}
			return ListingTerms{PaymentToken: token, Price: price, InitialQuantity: initial, RemainingQuantity: remaining}, true
		},
	},
	{
		name: "simple",
		args: abi.Arguments{{Type: addressType}, {Type: uint256Type}},
		conv: func(v []any) (ListingTerms, bool) {
			token, ok1 := v[0].(common.Address)
			price, ok2 := v[1].(*big.Int)
			if !ok1 || !ok2 {
				return ListingTerms{}, false
			}
			return ListingTerms{PaymentToken: token, Price: price}, true
		},
	},
}

// DecodeListingData decodes listingData with the first layout that fits.
// It returns false when no layout decodes.
func DecodeListingData(payload []byte) (ListingTerms, bool) {
	if len(payload) == 0 {
		return ListingTerms{}, false
	}
	for _, dec := range listingDataDecoders {
		values, err := dec.args.Unpack(payload)
		if err != nil || len(values) != len(dec.args) {
			continue
		}
		if terms, ok := dec.conv(values); ok {
			return terms, true
		}
	}
	return ListingTerms{}, false
}

// EncodeQuantityListingData packs terms in the quantity layout.
func EncodeQuantityListingData(token common.Address, price, initial, remaining *big.Int) ([]byte, error) {
	return listingDataDecoders[0].args.Pack(token, price, initial, remaining)
}

// EncodeSimpleListingData packs terms in the simple layout.
func EncodeSimpleListingData(token common.Address, price *big.Int) ([]byte, error) {
	return listingDataDecoders[1].args.Pack(token, price)
}

var reviewDataArgs = abi.Arguments{{Type: uint256Type}, {Type: uint8Type}, {Type: stringType}}

// DecodeReviewData decodes attestation data laid out as (uint256 listingId, uint8 rating, string commentCid).
func DecodeReviewData(data []byte) (ReviewData, error) {
	values, err := reviewDataArgs.Unpack(data)
	if err != nil {
		return ReviewData{}, err
	}
	listingID, ok1 := values[0].(*big.Int)
	rating, ok2 := values[1].(uint8)
	comment, ok3 := values[2].(string)
	if !ok1 || !ok2 || !ok3 {
		return ReviewData{}, errUnexpectedTypes
	}
	return ReviewData{ListingID: listingID, Rating: rating, CommentCID: comment}, nil
}

// EncodeReviewData packs a review payload.
func EncodeReviewData(r ReviewData) ([]byte, error) {
	return reviewDataArgs.Pack(r.ListingID, r.Rating, r.CommentCID)
}
