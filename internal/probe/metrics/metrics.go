package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// NodeProbesTotal tracks probe outcomes per node
	NodeProbesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsprobe_node_probes_total",
			Help: "Total number of node probes by outcome",
		},
		[]string{"outcome"},
	)

	// StepErrorsTotal tracks failed measurement steps
	StepErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsprobe_probe_step_errors_total",
			Help: "Total number of failed probe steps",
		},
		[]string{"step"},
	)

	// ConnectLatency tracks connection establishment latency
	ConnectLatency = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "lsprobe_connect_latency_seconds",
			Help:    "Connection establishment latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// ArchiveLookupsTotal tracks historical lookup probes per mode
	ArchiveLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lsprobe_archive_lookups_total",
			Help: "Total number of archive depth lookup probes",
		},
		[]string{"mode", "outcome"},
	)

	// LagNodes tracks how many nodes lag the fleet per lag kind
	LagNodes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lsprobe_lag_nodes",
			Help: "Number of nodes lagging the fleet maximum",
		},
		[]string{"kind"},
	)
)
