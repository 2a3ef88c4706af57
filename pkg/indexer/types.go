package indexer

import (
	"github.com/BuidlGuidl/ethereum-bazaar/pkg/config"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/core/types"
)

// Batch is the slice of a fetched block range routed to one indexer.
type Batch struct {
	FromBlock uint64
	ToBlock   uint64
	Logs      []types.Log

	// BlockTimestamps maps every block that carries a log in Logs to its header time.
	BlockTimestamps map[uint64]uint64
}

// Timestamp returns the header time of a block carrying a log, or 0 when unknown.
func (b Batch) Timestamp(blockNum uint64) uint64 {
	return b.BlockTimestamps[blockNum]
}

// Deps are the process wide services handed to every indexer factory.
type Deps struct {
	// Caller serves read-only contract calls against the indexed chain.
	Caller ethereum.ContractCaller

	// Config is the complete loaded configuration.
	Config *config.Config
}
