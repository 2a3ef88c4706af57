package rpc

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"
)

type dataError struct{ data string }

func (d *dataError) Error() string  { return d.data }
func (d *dataError) ErrorData() any { return d.data }

const tooManyResults = "Query returned more than 10000 results. Try with this block range [0x1600000, 0x16003e7]."

func TestIsTooManyResultsError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		err       error
		wantMatch bool
		wantData  string
	}{
		{name: "nil"},
		{name: "plain error", err: errors.New(tooManyResults)},
		{name: "unrelated data error", err: &dataError{"header not found"}, wantData: "header not found"},
		{name: "too many results", err: &dataError{tooManyResults}, wantMatch: true, wantData: tooManyResults},
		{
			name:      "wrapped",
			err:       fmt.Errorf("eth_getLogs: %w", &dataError{tooManyResults}),
			wantMatch: true,
			wantData:  tooManyResults,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			match, data := IsTooManyResultsError(tt.err)
			require.Equal(t, tt.wantMatch, match)
			require.Equal(t, tt.wantData, data)
		})
	}
}

func TestParseSuggestedBlockRange(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		msg      string
		from, to uint64
		ok       bool
	}{
		{name: "empty"},
		{name: "no range", msg: "Query returned more than 10000 results."},
		{name: "valid", msg: tooManyResults, from: 0x1600000, to: 0x16003e7, ok: true},
		{name: "mixed case and spaces", msg: "range [0x1aBc,   0x2DEF]", from: 0x1abc, to: 0x2def, ok: true},
		{name: "invalid hex", msg: "range [0xZZ, 0x12]"},
		{name: "inverted", msg: "range [0x20, 0x10]"},
		{name: "first range wins", msg: "[0x10, 0x20] or [0x30, 0x40]", from: 0x10, to: 0x20, ok: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			from, to, ok := ParseSuggestedBlockRange(tt.msg)
			require.Equal(t, tt.ok, ok)
			require.Equal(t, tt.from, from)
			require.Equal(t, tt.to, to)
		})
	}
}
