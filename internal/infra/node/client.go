// Package node implements the wire client for a single fleet node.
//
// This package contains:
//   - Client interface: the opaque capability the prober drives
//   - HTTPClient: JSON-RPC over HTTP implementation
//   - per-client health recording (latency, error rate)
package node

import (
	"context"
	"time"

	"github.com/vietddude/lsprobe/internal/core/domain"
)

// Client is the set of operations the prober may attempt against one
// node. Every operation is fallible; callers treat any returned error
// as an opaque "this measurement is unavailable" signal.
type Client interface {
	// Connect establishes the connection. It must be called before any
	// other operation and honors ctx cancellation/deadline.
	Connect(ctx context.Context) error

	// LastPing returns the cached liveness latency, if one exists.
	LastPing() (time.Duration, bool)

	// PingOnce performs a single liveness round trip.
	PingOnce(ctx context.Context) (time.Duration, error)

	// GetVersion returns the node-reported software version.
	GetVersion(ctx context.Context) (string, error)

	// GetTime returns the node-reported Unix time.
	GetTime(ctx context.Context) (int64, error)

	// Refresh re-fetches the current chain head and stores it.
	Refresh(ctx context.Context) error

	// LastHead returns the chain head from the most recent Refresh.
	LastHead() (domain.BlockID, bool)

	// GetAllShardsInfo lists shard heads as of the given chain head.
	GetAllShardsInfo(ctx context.Context, head domain.BlockID) ([]domain.ShardDescr, error)

	// LookupBlock resolves a historical block near the given Unix time.
	LookupBlock(ctx context.Context, workchain int32, shard int64, utime int64) (domain.BlockID, error)

	// Host and Port identify the node's configured address.
	Host() string
	Port() int

	// Close releases the connection. Safe to call when never connected.
	Close() error
}

// Health holds per-client request accounting.
type Health struct {
	Latency       time.Duration
	ErrorRate     float64
	SuccessCount  int
	FailureCount  int
	LastSuccessAt time.Time
	LastFailureAt time.Time
}
