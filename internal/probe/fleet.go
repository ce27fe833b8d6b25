package probe

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/vietddude/lsprobe/internal/core/domain"
	"github.com/vietddude/lsprobe/internal/infra/node"
	"github.com/vietddude/lsprobe/internal/probe/metrics"
)

// Orchestrator fans a probe out to every configured node at once and
// joins all results. The returned slice preserves configured order
// regardless of completion order.
type Orchestrator struct {
	prober       *Prober
	probeTimeout time.Duration
	log          *slog.Logger
}

// NewOrchestrator creates an orchestrator. probeTimeout bounds one
// node's entire probe; zero disables the deadline.
func NewOrchestrator(prober *Prober, probeTimeout time.Duration, log *slog.Logger) *Orchestrator {
	if log == nil {
		log = slog.Default()
	}
	return &Orchestrator{prober: prober, probeTimeout: probeTimeout, log: log}
}

// Run probes all nodes concurrently and returns one status per node in
// input order. No node's failure, hang (up to the probe deadline) or
// defect affects a sibling: a panic inside one probe is recovered and
// recorded as an address-only status for that node.
func (o *Orchestrator) Run(ctx context.Context, clients []node.Client) []domain.NodeStatus {
	statuses := make([]domain.NodeStatus, len(clients))

	var g errgroup.Group
	for i, cli := range clients {
		g.Go(func() error {
			defer func() {
				if r := recover(); r != nil {
					o.log.Error("probe panicked", "node", i, "panic", r)
					metrics.NodeProbesTotal.WithLabelValues("panic").Inc()
					statuses[i] = domain.NewNodeStatus(i, cli.Host(), cli.Port())
				}
			}()

			pctx := ctx
			if o.probeTimeout > 0 {
				var cancel context.CancelFunc
				pctx, cancel = context.WithTimeout(ctx, o.probeTimeout)
				defer cancel()
			}

			statuses[i] = o.prober.Probe(pctx, i, cli)
			return nil
		})
	}
	_ = g.Wait()

	return statuses
}
