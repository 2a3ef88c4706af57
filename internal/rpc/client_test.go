package rpc

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/rpc"
	"github.com/stretchr/testify/require"
)

// fakeEth serves the subset of the eth namespace the client uses.
type fakeEth struct {
	calls     atomic.Int32
	failFirst int32
	failWith  string
	result    hexutil.Bytes
}

func (f *fakeEth) Call(_ context.Context, _ map[string]any, _ string) (hexutil.Bytes, error) {
	if n := f.calls.Add(1); n <= f.failFirst {
		return nil, errors.New(f.failWith)
	}
	return f.result, nil
}

func (f *fakeEth) ChainId() *hexutil.Big { //nolint:revive,stylecheck
	return (*hexutil.Big)(big.NewInt(8453))
}

func (f *fakeEth) GetBlockByNumber(number string, _ bool) (*types.Header, error) {
	n, err := hexutil.DecodeUint64(number)
	if err != nil {
		return nil, err
	}
	return &types.Header{
		Number:     new(big.Int).SetUint64(n),
		Time:       1_700_000_000 + n,
		Difficulty: big.NewInt(0),
	}, nil
}

func newTestClient(t *testing.T, svc *fakeEth, retry *config.RetryConfig) *Client {
	t.Helper()

	server := rpc.NewServer()
	require.NoError(t, server.RegisterName("eth", svc))
	t.Cleanup(server.Stop)

	c := newClient(rpc.DialInProc(server), retry, &config.RateLimitConfig{RequestsPerSecond: 1000, Burst: 10})
	t.Cleanup(c.Close)
	return c
}

func TestClient_CallContract(t *testing.T) {
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	msg := ethereum.CallMsg{To: &to, Data: []byte{0x01, 0x02, 0x03, 0x04}}

	tests := []struct {
		name      string
		failFirst int32
		failWith  string
		retry     *config.RetryConfig
		wantErr   string
		wantCalls int32
	}{
		{name: "success", retry: fastRetry(3), wantCalls: 1},
		{name: "retries transient failures", failFirst: 2, failWith: "503 service unavailable", retry: fastRetry(3), wantCalls: 3},
		{name: "revert is not retried", failFirst: 5, failWith: "execution reverted", retry: fastRetry(3), wantErr: "execution reverted", wantCalls: 1},
		{name: "no retry policy", failFirst: 1, failWith: "503 service unavailable", wantErr: "503", wantCalls: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &fakeEth{failFirst: tt.failFirst, failWith: tt.failWith, result: hexutil.Bytes{0xca, 0xfe}}
			c := newTestClient(t, svc, tt.retry)

			out, err := c.CallContract(context.Background(), msg, nil)
			require.Equal(t, tt.wantCalls, svc.calls.Load())
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			require.Equal(t, []byte{0xca, 0xfe}, out)
		})
	}
}

func TestClient_ChainID(t *testing.T) {
	c := newTestClient(t, &fakeEth{}, nil)

	id, err := c.ChainID(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(8453), id.Int64())
}

func TestClient_BatchGetBlockHeaders(t *testing.T) {
	c := newTestClient(t, &fakeEth{}, fastRetry(2))

	blocks := make([]uint64, 0, 250)
	for n := range uint64(250) {
		blocks = append(blocks, 1000+n)
	}

	headers, err := c.BatchGetBlockHeaders(context.Background(), blocks)
	require.NoError(t, err)
	require.Len(t, headers, len(blocks))
	for i, h := range headers {
		require.Equal(t, blocks[i], h.Number.Uint64())
		require.Equal(t, 1_700_000_000+blocks[i], h.Time)
	}
}

func TestToBlockNumArg(t *testing.T) {
	for blockNum, want := range map[uint64]string{0: "0x0", 100: "0x64", 18000000: "0x112a880"} {
		require.Equal(t, want, toBlockNumArg(blockNum))
	}
}

func TestToFilterArg(t *testing.T) {
	addr1 := common.HexToAddress("0x1234567890123456789012345678901234567890")
	addr2 := common.HexToAddress("0xabcdefabcdefabcdefabcdefabcdefabcdefabcd")
	blockHash := common.HexToHash("0xdeadbeef")
	topic := common.HexToHash("0x1111111111111111111111111111111111111111111111111111111111111111")

	tests := []struct {
		name  string
		query ethereum.FilterQuery
		want  map[string]any
	}{
		{
			name: "single address and range",
			query: ethereum.FilterQuery{
				FromBlock: big.NewInt(100),
				ToBlock:   big.NewInt(200),
				Addresses: []common.Address{addr1},
				Topics:    [][]common.Hash{{topic}},
			},
			want: map[string]any{
				"fromBlock": "0x64",
				"toBlock":   "0xc8",
				"address":   addr1,
				"topics":    [][]common.Hash{{topic}},
			},
		},
		{
			name: "multiple addresses",
			query: ethereum.FilterQuery{
				FromBlock: big.NewInt(1),
				ToBlock:   big.NewInt(10),
				Addresses: []common.Address{addr1, addr2},
			},
			want: map[string]any{
				"fromBlock": "0x1",
				"toBlock":   "0xa",
				"address":   []common.Address{addr1, addr2},
				"topics":    [][]common.Hash(nil),
			},
		},
		{
			name: "block hash wins over range",
			query: ethereum.FilterQuery{
				BlockHash: &blockHash,
				FromBlock: big.NewInt(1),
				ToBlock:   big.NewInt(2),
			},
			want: map[string]any{
				"blockHash": blockHash,
				"topics":    [][]common.Hash(nil),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.want, toFilterArg(tt.query))
		})
	}
}
