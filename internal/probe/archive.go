package probe

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/lsprobe/internal/core/domain"
	"github.com/vietddude/lsprobe/internal/infra/node"
	"github.com/vietddude/lsprobe/internal/probe/metrics"
)

const (
	// genesisUnix is the wall-clock time of the chain's first block.
	genesisUnix int64 = 1573822385

	secondsPerDay int64 = 86400
)

// quickOffsets is the fixed ladder probed by EstimateQuick, in
// ascending order. Months are 30 days.
var quickOffsets = []struct {
	label string
	delta int64
}{
	{"≈ 1d", 1 * secondsPerDay},
	{"≈ 3d", 3 * secondsPerDay},
	{"≈ 7d", 7 * secondsPerDay},
	{"≈ 14d", 14 * secondsPerDay},
	{"≈ 1m", 30 * secondsPerDay},
	{"≈ 3m", 3 * 30 * secondsPerDay},
	{"≈ 6m", 6 * 30 * secondsPerDay},
	{"≈ 9m", 9 * 30 * secondsPerDay},
	{"≈ 1y", 365 * secondsPerDay},
}

// EstimateExact finds the largest whole number of days d such that a
// historical lookup at now-d*86400 still succeeds, by binary search
// over [0, days since genesis]. Assumes retention is monotonic: once a
// depth fails, all greater depths fail too.
func EstimateExact(ctx context.Context, cli node.Client, now int64) string {
	maxDays := (now - genesisUnix) / secondsPerDay

	var best int64
	left, right := int64(0), maxDays
	for left <= right {
		mid := (left + right) / 2
		if lookupOK(ctx, cli, now-mid*secondsPerDay, "exact") {
			best = mid
			left = mid + 1
		} else {
			right = mid - 1
		}
	}

	return formatDepth(best)
}

// EstimateQuick probes the fixed offset ladder concurrently and
// returns the label of the largest offset that succeeded. A success at
// a larger offset overrides every smaller one regardless of gaps.
func EstimateQuick(ctx context.Context, cli node.Client, now int64) string {
	results := make([]bool, len(quickOffsets))

	var g errgroup.Group
	for i, off := range quickOffsets {
		g.Go(func() error {
			results[i] = lookupOK(ctx, cli, now-off.delta, "quick")
			return nil
		})
	}
	_ = g.Wait()

	label := domain.MarkArchiveUnknown
	for i, off := range quickOffsets {
		if results[i] {
			label = off.label
		}
	}
	return label
}

// lookupOK treats any lookup failure, for any reason, as "that depth
// is not available".
func lookupOK(ctx context.Context, cli node.Client, utime int64, mode string) bool {
	_, err := cli.LookupBlock(ctx, domain.MasterchainID, domain.MasterchainShard, utime)
	if err != nil {
		metrics.ArchiveLookupsTotal.WithLabelValues(mode, "miss").Inc()
		return false
	}
	metrics.ArchiveLookupsTotal.WithLabelValues(mode, "hit").Inc()
	return true
}

// formatDepth renders a day count as "Ny Mm Dd" with zero components
// omitted; zero days collapses to the unknown marker.
func formatDepth(days int64) string {
	years := days / 365
	rem := days % 365
	months := rem / 30
	rest := rem % 30

	var parts []string
	if years > 0 {
		parts = append(parts, fmt.Sprintf("%dy", years))
	}
	if months > 0 {
		parts = append(parts, fmt.Sprintf("%dm", months))
	}
	if rest > 0 {
		parts = append(parts, fmt.Sprintf("%dd", rest))
	}
	if len(parts) == 0 {
		return domain.MarkArchiveUnknown
	}
	return strings.Join(parts, " ")
}
