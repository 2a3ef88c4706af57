package types

import (
	"fmt"
	"strconv"
	"strings"
)

// BlockFinality is the block tag the downloader trusts as final.
type BlockFinality string

const (
	FinalityFinalized BlockFinality = "finalized"
	FinalitySafe      BlockFinality = "safe"
	// FinalityLatest follows the head, optionally held back by a lag.
	FinalityLatest BlockFinality = "latest"
)

func (f BlockFinality) String() string {
	return string(f)
}

func (f BlockFinality) IsValid() bool {
	switch f {
	case FinalityFinalized, FinalitySafe, FinalityLatest:
		return true
	default:
		return false
	}
}

// ParseBlockFinality parses a finality mode. Case and surrounding spaces are ignored.
func ParseBlockFinality(s string) (BlockFinality, error) {
	f := BlockFinality(strings.ToLower(strings.TrimSpace(s)))
	if !f.IsValid() {
		return "", fmt.Errorf("invalid block finality %q (must be one of: finalized, safe, latest)", s)
	}
	return f, nil
}

// Finality is a finality mode together with the lag applied in latest mode.
type Finality struct {
	Mode BlockFinality
	Lag  uint64
}

// NewFinality builds a Finality from the downloader settings. A non-zero lag
// requires FinalityLatest.
func NewFinality(mode string, lag uint64) (Finality, error) {
	m, err := ParseBlockFinality(mode)
	if err != nil {
		return Finality{}, err
	}
	if lag > 0 && m != FinalityLatest {
		return Finality{}, fmt.Errorf("finalized_lag %d requires finality %q, got %q", lag, FinalityLatest, m)
	}
	return Finality{Mode: m, Lag: lag}, nil
}

// Head returns the highest indexable block given the block the node reports for Mode.
func (f Finality) Head(reported uint64) uint64 {
	if f.Mode != FinalityLatest {
		return reported
	}
	if reported < f.Lag {
		return 0
	}
	return reported - f.Lag
}

func (f Finality) String() string {
	if f.Mode == FinalityLatest && f.Lag > 0 {
		return string(f.Mode) + "-" + strconv.FormatUint(f.Lag, 10)
	}
	return string(f.Mode)
}
