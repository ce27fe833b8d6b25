package domain

import (
	"net"
	"strconv"
)

// Legend marks attached to status labels by the annotator.
const (
	MarkTimeLag        = "(*)"
	MarkArchiveUnknown = "(?)"
	MarkHeadLag        = "(!)"
	MarkShardLag       = "(!!)"
)

// Severity classifies a legend row for rendering.
type Severity string

const (
	SeverityWarn Severity = "warn"
	SeverityCrit Severity = "crit"
)

// LegendRow describes one marker present in the current result set.
type LegendRow struct {
	Mark        string
	Description string
	Severity    Severity
}

// NodeStatus is the best-effort probe result for one configured node.
// Every field except Index/Host/Port is optional: a nil pointer (or
// empty string/map) means the step was never reached or failed.
type NodeStatus struct {
	Index int
	Host  string
	Port  int

	ConnectMS *int64
	RequestMS *int64
	PingMS    *float64
	Version   *string

	TimeValue *int64
	TimeLabel string

	HeadSeqno *uint64
	HeadLabel string
	Shards    map[string]uint64

	ArchiveDepthLabel string

	// Lag flags, set only by the annotator (ArchiveUnknown by the prober).
	HeadLag        bool
	ShardLag       bool
	TimeLag        bool
	ArchiveUnknown bool
}

// NewNodeStatus creates a status record with only the address fields set.
func NewNodeStatus(index int, host string, port int) NodeStatus {
	return NodeStatus{Index: index, Host: host, Port: port}
}

// Addr returns the node's host:port address.
func (s NodeStatus) Addr() string {
	return net.JoinHostPort(s.Host, strconv.Itoa(s.Port))
}
