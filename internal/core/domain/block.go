package domain

import (
	"fmt"
	"math"
)

const (
	// MasterchainID is the workchain id of the masterchain.
	MasterchainID int32 = -1

	// MasterchainShard is the full shard prefix of the masterchain.
	MasterchainShard int64 = math.MinInt64
)

// BlockID identifies a block on a specific chain.
type BlockID struct {
	Workchain int32
	Shard     int64
	Seqno     uint64
}

// ShardDescr describes one shard chain head as of a masterchain block.
type ShardDescr struct {
	Shard int64
	Seqno uint64
}

// ShardID renders a signed 64-bit shard prefix as its canonical
// 16-hex-digit big-endian form, e.g. "a000000000000000".
func ShardID(shard int64) string {
	return fmt.Sprintf("%016x", uint64(shard))
}
