package downloader

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"slices"
	"sync"

	pkgrpc "github.com/BuidlGuidl/ethereum-bazaar/pkg/rpc"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

var _ pkgrpc.EthClient = (*fakeEthClient)(nil)

const genesisTime = 1_700_000_000

// fakeEthClient serves a fixed set of logs below a movable head.
type fakeEthClient struct {
	mu sync.Mutex

	head uint64
	logs []types.Log

	// maxRange makes eth_getLogs fail with a suggested range for wider queries. 0 disables.
	maxRange uint64

	getLogsRanges  [][2]uint64
	headerRequests [][]uint64
}

type tooManyResultsError struct{ from, to uint64 }

func (e tooManyResultsError) Error() string { return "query returned more than 10000 results" }

func (e tooManyResultsError) ErrorData() interface{} {
	return fmt.Sprintf("Query returned more than 10000 results. Try with this block range [%#x, %#x].", e.from, e.to)
}

func fakeHeader(n uint64) *types.Header {
	return &types.Header{Number: new(big.Int).SetUint64(n), Time: genesisTime + n*12}
}

func (f *fakeEthClient) setHead(n uint64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.head = n
}

func (f *fakeEthClient) GetLogs(_ context.Context, q ethereum.FilterQuery) ([]types.Log, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	from, to := q.FromBlock.Uint64(), q.ToBlock.Uint64()
	f.getLogsRanges = append(f.getLogsRanges, [2]uint64{from, to})
	if f.maxRange > 0 && to-from+1 > f.maxRange {
		return nil, tooManyResultsError{from: from, to: from + f.maxRange - 1}
	}

	var out []types.Log
	for _, l := range f.logs {
		if l.BlockNumber < from || l.BlockNumber > to {
			continue
		}
		if len(q.Addresses) > 0 && !slices.Contains(q.Addresses, l.Address) {
			continue
		}
		if len(q.Topics) > 0 && len(q.Topics[0]) > 0 && (len(l.Topics) == 0 || !slices.Contains(q.Topics[0], l.Topics[0])) {
			continue
		}
		out = append(out, l)
	}
	return out, nil
}

func (f *fakeEthClient) BatchGetBlockHeaders(_ context.Context, nums []uint64) ([]*types.Header, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.headerRequests = append(f.headerRequests, slices.Clone(nums))
	headers := make([]*types.Header, 0, len(nums))
	for _, n := range nums {
		headers = append(headers, fakeHeader(n))
	}
	return headers, nil
}

func (f *fakeEthClient) latest() *types.Header {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeHeader(f.head)
}

func (f *fakeEthClient) GetLatestBlockHeader(context.Context) (*types.Header, error) {
	return f.latest(), nil
}

func (f *fakeEthClient) GetFinalizedBlockHeader(context.Context) (*types.Header, error) {
	return f.latest(), nil
}

func (f *fakeEthClient) GetSafeBlockHeader(context.Context) (*types.Header, error) {
	return f.latest(), nil
}

func (f *fakeEthClient) GetBlockHeader(_ context.Context, n uint64) (*types.Header, error) {
	return fakeHeader(n), nil
}

func (f *fakeEthClient) BatchGetLogs(ctx context.Context, qs []ethereum.FilterQuery) ([][]types.Log, error) {
	out := make([][]types.Log, 0, len(qs))
	for _, q := range qs {
		logs, err := f.GetLogs(ctx, q)
		if err != nil {
			return nil, err
		}
		out = append(out, logs)
	}
	return out, nil
}

func (f *fakeEthClient) CallContract(context.Context, ethereum.CallMsg, *big.Int) ([]byte, error) {
	return nil, errors.New("not supported")
}

func (f *fakeEthClient) ChainID(context.Context) (*big.Int, error) {
	return big.NewInt(31337), nil
}

func (f *fakeEthClient) Close() {}

func testLog(addr common.Address, topic common.Hash, block uint64, index uint) types.Log {
	return types.Log{
		Address:     addr,
		Topics:      []common.Hash{topic},
		BlockNumber: block,
		Index:       index,
		TxHash:      common.BigToHash(new(big.Int).SetUint64(block*1000 + uint64(index))),
	}
}
