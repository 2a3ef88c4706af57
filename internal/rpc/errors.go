package rpc

import (
	"errors"
	"fmt"
	"regexp"

	"github.com/BuidlGuidl/ethereum-bazaar/internal/common"
	"github.com/ethereum/go-ethereum/rpc"
)

var (
	tooManyResultsRe = regexp.MustCompile(`Query returned more than \d+ results`)
	suggestedRangeRe = regexp.MustCompile(`\[(0x[0-9a-fA-F]+),\s*(0x[0-9a-fA-F]+)\]`)
)

// IsTooManyResultsError reports whether err is the eth_getLogs "too many results" DataError,
// returning its error data so the suggested range can be parsed from it.
func IsTooManyResultsError(err error) (bool, string) {
	var dataErr rpc.DataError
	if !errors.As(err, &dataErr) {
		return false, ""
	}

	errData := fmt.Sprintf("%v", dataErr.ErrorData())
	return tooManyResultsRe.MatchString(errData), errData
}

// ParseSuggestedBlockRange extracts the range from a message like
// "Query returned more than 20000 results. Try with this block range [0x7dfd25, 0x7e0fcc]."
func ParseSuggestedBlockRange(msg string) (fromBlock, toBlock uint64, ok bool) {
	matches := suggestedRangeRe.FindStringSubmatch(msg)
	if len(matches) != 3 { //nolint:mnd
		return 0, 0, false
	}

	from, err := common.ParseUint64orHex(&matches[1])
	if err != nil {
		return 0, 0, false
	}
	to, err := common.ParseUint64orHex(&matches[2])
	if err != nil || to < from {
		return 0, 0, false
	}

	return from, to, true
}
