package events

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/ethereum/go-ethereum/accounts/abi"
)

var (
	//go:embed abi/marketplace.json
	marketplaceJSON []byte

	//go:embed abi/simple_listings.json
	simpleListingsJSON []byte

	//go:embed abi/eas.json
	easJSON []byte

	//go:embed abi/erc20.json
	erc20JSON []byte
)

// Parsed contract ABIs. They are also used by the chain reader to pack calls.
var (
	MarketplaceABI    = mustParse("Marketplace", marketplaceJSON)
	SimpleListingsABI = mustParse("SimpleListings", simpleListingsJSON)
	EASABI            = mustParse("EAS", easJSON)
	ERC20ABI          = mustParse("ERC20", erc20JSON)
)

// Event names emitted by the indexed contracts.
const (
	EventListingCreated           = "ListingCreated"
	EventListingAction            = "ListingAction"
	EventListingActivationChanged = "ListingActivationChanged"
	EventSimpleListingCreated     = "SimpleListingCreated"
	EventSimpleListingSold        = "SimpleListingSold"
	EventSimpleListingClosed      = "SimpleListingClosed"
	EventAttested                 = "Attested"
)

func mustParse(name string, raw []byte) abi.ABI {
	parsed, err := abi.JSON(bytes.NewReader(raw))
	if err != nil {
		panic(fmt.Sprintf("parsing %s ABI: %v", name, err))
	}
	return parsed
}

// CanonicalContract maps a case-insensitive contract name to its canonical spelling.
func CanonicalContract(name string) (string, bool) {
	for _, known := range common.KnownContracts {
		if strings.EqualFold(known, strings.TrimSpace(name)) {
			return known, true
		}
	}
	return "", false
}

// ContractABI returns the embedded ABI for a known contract name.
func ContractABI(contract string) (abi.ABI, bool) {
	contract, _ = CanonicalContract(contract)
	switch contract {
	case common.ContractMarketplace:
		return MarketplaceABI, true
	case common.ContractSimpleListings:
		return SimpleListingsABI, true
	case common.ContractEAS:
		return EASABI, true
	default:
		return abi.ABI{}, false
	}
}
