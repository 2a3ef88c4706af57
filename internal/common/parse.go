package common

import (
	"fmt"
	"math/big"
	"strconv"
	"strings"

	gethcommon "github.com/ethereum/go-ethereum/common"
)

// ParseUint64orHex converts the given uint64 string into the number.
// It can parse the string with 0x prefix as well.
func ParseUint64orHex(val *string) (uint64, error) {
	if val == nil {
		return 0, nil
	}

	str := *val
	base := 10

	if strings.HasPrefix(str, "0x") {
		str = str[2:]
		base = 16
	}

	return strconv.ParseUint(str, base, 64)
}

const bytesInMB = 1024 * 1024

func MBToBytes(mb uint64) uint64 {
	return mb * bytesInMB
}

func BytesToMB(bytes uint64) uint64 {
	return bytes / bytesInMB
}

func ToLowerWithTrim(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// LowerHex renders an address the way it is persisted: 0x-prefixed lowercase hex.
func LowerHex(addr gethcommon.Address) string {
	return strings.ToLower(addr.Hex())
}

// ParseAddress validates and parses a 0x-prefixed hex address.
func ParseAddress(s string) (gethcommon.Address, error) {
	s = strings.TrimSpace(s)
	if !gethcommon.IsHexAddress(s) {
		return gethcommon.Address{}, fmt.Errorf("invalid address %q", s)
	}
	return gethcommon.HexToAddress(s), nil
}

// ParseBigInt parses a decimal (or 0x hex) integer string.
func ParseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	return v, nil
}
