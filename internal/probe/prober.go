// Package probe implements the probing core: the per-node prober, the
// archive depth estimator, the fleet orchestrator and the consistency
// annotator.
package probe

import (
	"context"
	"log/slog"
	"time"

	"github.com/vietddude/lsprobe/internal/core/domain"
	"github.com/vietddude/lsprobe/internal/infra/node"
	"github.com/vietddude/lsprobe/internal/probe/metrics"
)

// Prober drives one node through the full measurement sequence. Every
// step after a successful connect is independently optional: a failed
// step leaves its field absent and never aborts the probe.
type Prober struct {
	connectTimeout time.Duration
	exact          bool
	log            *slog.Logger

	now func() int64
}

// NewProber creates a prober. exact selects the precise archive depth
// search instead of the quick ladder.
func NewProber(connectTimeout time.Duration, exact bool, log *slog.Logger) *Prober {
	if connectTimeout <= 0 {
		connectTimeout = time.Second
	}
	if log == nil {
		log = slog.Default()
	}
	return &Prober{
		connectTimeout: connectTimeout,
		exact:          exact,
		log:            log,
		now:            func() int64 { return time.Now().Unix() },
	}
}

// Probe produces the best NodeStatus obtainable for one node. The only
// early return is a connect failure; the connection is released on
// every exit path after a successful connect.
func (p *Prober) Probe(ctx context.Context, index int, cli node.Client) domain.NodeStatus {
	status := domain.NewNodeStatus(index, cli.Host(), cli.Port())
	log := p.log.With("node", index, "addr", status.Addr())

	connectMS, err := p.measureConnect(ctx, cli)
	if err != nil {
		log.Debug("connect failed", "error", err)
		metrics.StepErrorsTotal.WithLabelValues("connect").Inc()
		metrics.NodeProbesTotal.WithLabelValues("connect_failed").Inc()
		return status
	}
	status.ConnectMS = &connectMS
	metrics.ConnectLatency.Observe(float64(connectMS) / 1000)

	defer func() {
		if cerr := cli.Close(); cerr != nil {
			log.Debug("close failed", "error", cerr)
		}
	}()

	if ms, err := p.measurePing(ctx, cli); err == nil {
		status.PingMS = &ms
	} else {
		p.stepFailed(log, "ping", err)
	}

	if v, err := cli.GetTime(ctx); err == nil {
		status.TimeValue = &v
	} else {
		p.stepFailed(log, "time", err)
	}

	if v, err := cli.GetVersion(ctx); err == nil {
		status.Version = &v
	} else {
		p.stepFailed(log, "version", err)
	}

	if ms, err := measureRequest(ctx, cli); err == nil {
		status.RequestMS = &ms
	} else {
		p.stepFailed(log, "refresh", err)
	}

	// Head seqno and shard map are assigned together or not at all, so
	// a status never carries shard data from a different head.
	if head, ok := cli.LastHead(); ok {
		if shards, err := cli.GetAllShardsInfo(ctx, head); err == nil {
			shardMap := make(map[string]uint64, len(shards))
			for _, sd := range shards {
				shardMap[domain.ShardID(sd.Shard)] = sd.Seqno
			}
			seqno := head.Seqno
			status.HeadSeqno = &seqno
			status.Shards = shardMap
		} else {
			p.stepFailed(log, "shards", err)
		}
	}

	now := p.now()
	if p.exact {
		status.ArchiveDepthLabel = EstimateExact(ctx, cli, now)
	} else {
		status.ArchiveDepthLabel = EstimateQuick(ctx, cli, now)
	}
	if status.ArchiveDepthLabel == domain.MarkArchiveUnknown {
		status.ArchiveUnknown = true
	}

	if hc, ok := cli.(interface{ Health() node.Health }); ok {
		h := hc.Health()
		log.Debug("node health",
			"avg_latency", h.Latency,
			"error_rate", h.ErrorRate,
			"failures", h.FailureCount)
	}

	metrics.NodeProbesTotal.WithLabelValues("ok").Inc()
	return status
}

func (p *Prober) measureConnect(ctx context.Context, cli node.Client) (int64, error) {
	cctx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()

	start := time.Now()
	if err := cli.Connect(cctx); err != nil {
		return 0, err
	}
	return time.Since(start).Milliseconds(), nil
}

// measurePing reuses the client's cached liveness latency when present,
// otherwise performs exactly one ping.
func (p *Prober) measurePing(ctx context.Context, cli node.Client) (float64, error) {
	if d, ok := cli.LastPing(); ok {
		return float64(d.Microseconds()) / 1000, nil
	}
	d, err := cli.PingOnce(ctx)
	if err != nil {
		return 0, err
	}
	return float64(d.Microseconds()) / 1000, nil
}

func measureRequest(ctx context.Context, cli node.Client) (int64, error) {
	start := time.Now()
	if err := cli.Refresh(ctx); err != nil {
		return 0, err
	}
	return time.Since(start).Milliseconds(), nil
}

func (p *Prober) stepFailed(log *slog.Logger, step string, err error) {
	log.Debug("probe step failed", "step", step, "error", err)
	metrics.StepErrorsTotal.WithLabelValues(step).Inc()
}
