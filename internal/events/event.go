package events

import (
	"math/big"

	"github.com/ethereum/go-ethereum/common"
)

// Key builds the dispatch key for a contract event, e.g. "Marketplace:ListingCreated".
func Key(contract, event string) string {
	return contract + ":" + event
}

// Block identifies the block a log was emitted in.
type Block struct {
	Number    uint64
	Timestamp uint64
}

// Tx identifies the transaction a log was emitted by.
type Tx struct {
	Hash common.Hash
}

// LogRef locates the log inside its block.
type LogRef struct {
	Index   uint
	Address common.Address
}

// Event is a decoded contract log together with its provenance.
type Event struct {
	ContractName string
	EventName    string
	Args         Args
	Block        Block
	Tx           Tx
	Log          LogRef
}

// Key returns the "Contract:Event" dispatch key.
func (e Event) Key() string {
	return Key(e.ContractName, e.EventName)
}

// Args is the typed payload of an event. Every implementation belongs to this package.
type Args interface {
	eventName() string
}

// ListingCreated is emitted by the marketplace registry when a listing is created.
type ListingCreated struct {
	ID          *big.Int
	Creator     common.Address
	ListingType common.Address
	ListingID   *big.Int // id inside the listing type contract
	Contenthash string
}

// ListingAction is emitted for every action executed against a listing.
type ListingAction struct {
	ID     *big.Int
	Caller common.Address
	Action [32]byte
}

// Selector returns the 4 byte action selector as 0x-prefixed lowercase hex.
func (a ListingAction) Selector() string {
	return hexSelector(a.Action[:4])
}

// ListingActivationChanged is emitted by the marketplace registry when a listing is
// activated or deactivated.
type ListingActivationChanged struct {
	ListingID *big.Int
	Active    bool
}

// SimpleListingCreated is emitted by the SimpleListings contract with the sale terms
// and the metadata document of a listing. ListingID is the id inside that contract.
type SimpleListingCreated struct {
	ListingID    *big.Int
	Creator      common.Address
	PaymentToken common.Address
	Price        *big.Int
	IpfsHash     string
}

// SimpleListingSold is emitted by the SimpleListings contract on a direct purchase.
type SimpleListingSold struct {
	ListingID    *big.Int
	Buyer        common.Address
	Price        *big.Int
	PaymentToken common.Address
}

// SimpleListingClosed is emitted by the SimpleListings contract when the seller closes a listing.
type SimpleListingClosed struct {
	ListingID *big.Int
	Caller    common.Address
}

// Attested is emitted by EAS for every new attestation.
type Attested struct {
	Recipient common.Address
	Attester  common.Address
	UID       common.Hash
	SchemaUID common.Hash
}

func (ListingCreated) eventName() string           { return EventListingCreated }
func (ListingAction) eventName() string            { return EventListingAction }
func (ListingActivationChanged) eventName() string { return EventListingActivationChanged }
func (SimpleListingCreated) eventName() string     { return EventSimpleListingCreated }
func (SimpleListingSold) eventName() string        { return EventSimpleListingSold }
func (SimpleListingClosed) eventName() string      { return EventSimpleListingClosed }
func (Attested) eventName() string                 { return EventAttested }
