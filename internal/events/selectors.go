package events

import (
	"encoding/hex"

	"github.com/ethereum/go-ethereum/crypto"
)

// Listing action names.
const (
	ActionBuy   = "buy"
	ActionClose = "close"
)

var actionSignatures = map[string]string{
	ActionBuy:   "buy(uint256,address,bool,address,bytes)",
	ActionClose: "close(uint256,address,bool,address,bytes)",
}

// selector -> action name
var actionNames = func() map[string]string {
	out := make(map[string]string, len(actionSignatures))
	for name, sig := range actionSignatures {
		out[hexSelector(crypto.Keccak256([]byte(sig))[:4])] = name
	}
	return out
}()

// ActionSelector returns the selector of a known action, e.g. "0x" + 8 hex chars.
func ActionSelector(action string) (string, bool) {
	sig, ok := actionSignatures[action]
	if !ok {
		return "", false
	}
	return hexSelector(crypto.Keccak256([]byte(sig))[:4]), true
}

// ActionName maps a selector to its action name. Unknown selectors return "", false.
func ActionName(selector string) (string, bool) {
	name, ok := actionNames[selector]
	return name, ok
}

func hexSelector(b []byte) string {
	return "0x" + hex.EncodeToString(b)
}
