package downloader

import (
	pkgdownloader "github.com/BuidlGuidl/ethereum-bazaar/pkg/downloader"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
)

type FetchMode = pkgdownloader.FetchMode

const (
	ModeBackfill = pkgdownloader.ModeBackfill
	ModeLive     = pkgdownloader.ModeLive
)

// FetchResult is one fetched block range.
type FetchResult struct {
	FromBlock uint64
	ToBlock   uint64

	Logs []types.Log

	// BlockTimestamps holds the header time of every block carrying a log.
	BlockTimestamps map[uint64]uint64

	// ToBlockHash is the hash of ToBlock, stored with the checkpoint.
	ToBlockHash common.Hash
}
