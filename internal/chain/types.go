package chain

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// ListingState is the registry view of a listing as returned by getListing.
type ListingState struct {
	Creator     common.Address
	ListingType common.Address
	Contenthash string
	Active      bool
	ListingData []byte
}

// TokenMetadata holds the ERC-20 fields that could be read. A nil field failed to
// read; Err joins the per-field failures.
type TokenMetadata struct {
	Name     *string
	Symbol   *string
	Decimals *uint8
	Err      error
}

// Attestation is the subset of an EAS attestation the indexer uses.
type Attestation struct {
	UID       common.Hash
	Schema    common.Hash
	Time      uint64
	Recipient common.Address
	Attester  common.Address
	Revocable bool
	Data      []byte
}

// ListingTerms are the commercial terms carried in a listing's opaque listingData.
// InitialQuantity and RemainingQuantity are nil unless the quantity layout decoded.
type ListingTerms struct {
	PaymentToken      common.Address
	Price             *big.Int
	InitialQuantity   *big.Int
	RemainingQuantity *big.Int
}

// HasQuantity reports whether the terms came from the quantity layout.
func (t ListingTerms) HasQuantity() bool {
	return t.InitialQuantity != nil && t.RemainingQuantity != nil
}

// Unlimited reports whether a quantity listing has no stock limit. It returns nil
// when the terms carry no quantity at all.
func (t ListingTerms) Unlimited() *bool {
	if !t.HasQuantity() {
		return nil
	}
	unlimited := t.InitialQuantity.Sign() == 0
	return &unlimited
}

// ReviewData is the payload of a marketplace review attestation.
type ReviewData struct {
	ListingID  *big.Int
	Rating     uint8
	CommentCID string
}

// attestationTuple mirrors the field order of the EAS Attestation struct.
type attestationTuple struct {
	Uid            [32]byte //nolint:revive,stylecheck
	Schema         [32]byte
	Time           uint64
	ExpirationTime uint64
	RevocationTime uint64
	RefUID         [32]byte
	Recipient      common.Address
	Attester       common.Address
	Revocable      bool
	Data           []byte
}
