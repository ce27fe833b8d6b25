package probe

import (
	"strconv"

	"github.com/vietddude/lsprobe/internal/core/domain"
	"github.com/vietddude/lsprobe/internal/probe/metrics"
)

// Annotate computes fleet-wide maxima and marks per-node lag flags and
// display labels, mutating the slice in place. It must run only after
// fan-in has completed; it is single-threaded and idempotent (labels
// are rebuilt from raw values on every pass, never appended to).
func Annotate(statuses []domain.NodeStatus) {
	annotateSeqnoLags(statuses)
	annotateTimeLags(statuses)

	var headLag, shardLag, timeLag float64
	for i := range statuses {
		if statuses[i].HeadLag {
			headLag++
		}
		if statuses[i].ShardLag {
			shardLag++
		}
		if statuses[i].TimeLag {
			timeLag++
		}
	}
	metrics.LagNodes.WithLabelValues("head").Set(headLag)
	metrics.LagNodes.WithLabelValues("shard").Set(shardLag)
	metrics.LagNodes.WithLabelValues("time").Set(timeLag)
}

// annotateSeqnoLags flags nodes whose chain head, or any shard head, is
// strictly behind the fleet maximum. Head lag wins over shard lag: a
// node behind on the head gets "(!)" and its shards are not checked.
func annotateSeqnoLags(statuses []domain.NodeStatus) {
	var maxHead uint64
	for i := range statuses {
		if s := statuses[i].HeadSeqno; s != nil && *s > maxHead {
			maxHead = *s
		}
	}

	maxShards := make(map[string]uint64)
	for i := range statuses {
		for shardID, seqno := range statuses[i].Shards {
			if seqno > maxShards[shardID] {
				maxShards[shardID] = seqno
			}
		}
	}

	for i := range statuses {
		s := &statuses[i]
		if s.HeadSeqno == nil {
			continue
		}

		label := strconv.FormatUint(*s.HeadSeqno, 10)

		if *s.HeadSeqno < maxHead {
			s.HeadLag = true
			label += " " + domain.MarkHeadLag
		} else {
			for shardID, seqno := range s.Shards {
				if seqno < maxShards[shardID] {
					s.ShardLag = true
					label += " " + domain.MarkShardLag
					break
				}
			}
		}

		s.HeadLabel = label
	}
}

// annotateTimeLags flags nodes whose reported wall clock is strictly
// behind the fleet maximum. When no node reports a positive time, no
// time labels are derived at all.
func annotateTimeLags(statuses []domain.NodeStatus) {
	var maxTime int64
	for i := range statuses {
		if t := statuses[i].TimeValue; t != nil && *t > maxTime {
			maxTime = *t
		}
	}

	if maxTime <= 0 {
		return
	}

	for i := range statuses {
		s := &statuses[i]
		if s.TimeValue == nil {
			continue
		}
		if *s.TimeValue < maxTime {
			s.TimeLag = true
			s.TimeLabel = strconv.FormatInt(*s.TimeValue, 10) + " " + domain.MarkTimeLag
		} else {
			s.TimeLabel = strconv.FormatInt(*s.TimeValue, 10)
		}
	}
}

// BuildLegend returns one row per marker present in the result set.
func BuildLegend(statuses []domain.NodeStatus) []domain.LegendRow {
	var hasTimeLag, hasUnknownArchive, hasHeadLag, hasShardLag bool
	for i := range statuses {
		hasTimeLag = hasTimeLag || statuses[i].TimeLag
		hasUnknownArchive = hasUnknownArchive || statuses[i].ArchiveUnknown
		hasHeadLag = hasHeadLag || statuses[i].HeadLag
		hasShardLag = hasShardLag || statuses[i].ShardLag
	}

	var rows []domain.LegendRow
	if hasTimeLag {
		rows = append(rows, domain.LegendRow{
			Mark:        domain.MarkTimeLag,
			Description: "Node time is behind maximum time across the fleet",
			Severity:    domain.SeverityWarn,
		})
	}
	if hasUnknownArchive {
		rows = append(rows, domain.LegendRow{
			Mark:        domain.MarkArchiveUnknown,
			Description: "Failed to determine archive depth for this node",
			Severity:    domain.SeverityWarn,
		})
	}
	if hasHeadLag {
		rows = append(rows, domain.LegendRow{
			Mark:        domain.MarkHeadLag,
			Description: "Chain head seqno is behind maximum across the fleet",
			Severity:    domain.SeverityCrit,
		})
	}
	if hasShardLag {
		rows = append(rows, domain.LegendRow{
			Mark:        domain.MarkShardLag,
			Description: "One or more shard seqnos is behind maximum for that shard",
			Severity:    domain.SeverityCrit,
		})
	}
	return rows
}
