package probe

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vietddude/lsprobe/internal/core/domain"
)

// =============================================================================
// Stub client
// =============================================================================

var errStub = errors.New("unavailable")

type stubClient struct {
	host string
	port int

	connectErr   error
	connectDelay time.Duration
	panicConnect bool

	cachedPing *time.Duration
	ping       time.Duration
	pingErr    error

	timeVal  int64
	timeErr  error
	timeHang bool

	version    string
	versionErr error

	refreshErr error
	head       *domain.BlockID
	shards     []domain.ShardDescr
	shardsErr  error

	// lookup decides whether a historical lookup at utime succeeds.
	// nil means every lookup fails.
	lookup func(utime int64) error

	mu          sync.Mutex
	pingCalls   int
	lookupCalls int
	closed      bool
}

func newStubClient() *stubClient {
	return &stubClient{
		host:    "203.0.113.7",
		port:    4924,
		ping:    12 * time.Millisecond,
		timeVal: 1700000000,
		version: "2.1.0",
	}
}

func (c *stubClient) Connect(ctx context.Context) error {
	if c.panicConnect {
		panic("defective client")
	}
	if c.connectDelay > 0 {
		select {
		case <-time.After(c.connectDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return c.connectErr
}

func (c *stubClient) LastPing() (time.Duration, bool) {
	if c.cachedPing == nil {
		return 0, false
	}
	return *c.cachedPing, true
}

func (c *stubClient) PingOnce(ctx context.Context) (time.Duration, error) {
	c.mu.Lock()
	c.pingCalls++
	c.mu.Unlock()
	if c.pingErr != nil {
		return 0, c.pingErr
	}
	return c.ping, nil
}

func (c *stubClient) GetVersion(ctx context.Context) (string, error) {
	if c.versionErr != nil {
		return "", c.versionErr
	}
	return c.version, nil
}

func (c *stubClient) GetTime(ctx context.Context) (int64, error) {
	if c.timeHang {
		<-ctx.Done()
		return 0, ctx.Err()
	}
	if c.timeErr != nil {
		return 0, c.timeErr
	}
	return c.timeVal, nil
}

func (c *stubClient) Refresh(ctx context.Context) error {
	return c.refreshErr
}

func (c *stubClient) LastHead() (domain.BlockID, bool) {
	if c.head == nil {
		return domain.BlockID{}, false
	}
	return *c.head, true
}

func (c *stubClient) GetAllShardsInfo(ctx context.Context, head domain.BlockID) ([]domain.ShardDescr, error) {
	if c.shardsErr != nil {
		return nil, c.shardsErr
	}
	return c.shards, nil
}

func (c *stubClient) LookupBlock(ctx context.Context, workchain int32, shard int64, utime int64) (domain.BlockID, error) {
	c.mu.Lock()
	c.lookupCalls++
	c.mu.Unlock()
	if c.lookup == nil {
		return domain.BlockID{}, errStub
	}
	if err := c.lookup(utime); err != nil {
		return domain.BlockID{}, err
	}
	return domain.BlockID{Workchain: workchain, Shard: shard, Seqno: 1}, nil
}

func (c *stubClient) Host() string { return c.host }
func (c *stubClient) Port() int    { return c.port }

func (c *stubClient) Close() error {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	return nil
}

func (c *stubClient) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// monotonicLookup succeeds for every depth up to maxDays back from now.
func monotonicLookup(now, maxDays int64) func(utime int64) error {
	return func(utime int64) error {
		if now-utime > maxDays*secondsPerDay {
			return errStub
		}
		return nil
	}
}

func newTestProber(exact bool, now int64) *Prober {
	p := NewProber(time.Second, exact, nil)
	p.now = func() int64 { return now }
	return p
}

// =============================================================================
// Prober
// =============================================================================

func TestProbeAllStepsSucceed(t *testing.T) {
	now := genesisUnix + 1000*secondsPerDay
	cli := newStubClient()
	cli.head = &domain.BlockID{Workchain: domain.MasterchainID, Shard: domain.MasterchainShard, Seqno: 4200}
	cli.shards = []domain.ShardDescr{
		{Shard: -0x6000000000000000, Seqno: 900},
		{Shard: 0x2000000000000000, Seqno: 910},
	}
	cli.lookup = monotonicLookup(now, 400)

	status := newTestProber(false, now).Probe(context.Background(), 3, cli)

	if status.Index != 3 || status.Host != "203.0.113.7" || status.Port != 4924 {
		t.Fatalf("address fields wrong: %+v", status)
	}
	if status.ConnectMS == nil {
		t.Error("ConnectMS should be set")
	}
	if status.PingMS == nil {
		t.Error("PingMS should be set")
	}
	if status.TimeValue == nil || *status.TimeValue != 1700000000 {
		t.Errorf("TimeValue = %v, want 1700000000", status.TimeValue)
	}
	if status.Version == nil || *status.Version != "2.1.0" {
		t.Errorf("Version = %v, want 2.1.0", status.Version)
	}
	if status.RequestMS == nil {
		t.Error("RequestMS should be set")
	}
	if status.HeadSeqno == nil || *status.HeadSeqno != 4200 {
		t.Errorf("HeadSeqno = %v, want 4200", status.HeadSeqno)
	}
	if len(status.Shards) != 2 {
		t.Errorf("Shards = %v, want 2 entries", status.Shards)
	}
	if got := status.Shards[domain.ShardID(0x2000000000000000)]; got != 910 {
		t.Errorf("shard seqno = %d, want 910", got)
	}
	if status.ArchiveDepthLabel != "≈ 1y" {
		t.Errorf("ArchiveDepthLabel = %q, want \"≈ 1y\"", status.ArchiveDepthLabel)
	}
	if status.ArchiveUnknown {
		t.Error("ArchiveUnknown should be false")
	}
	if !cli.Closed() {
		t.Error("connection not released")
	}
}

func TestProbeConnectFailureReturnsAddressOnly(t *testing.T) {
	cli := newStubClient()
	cli.connectErr = errStub

	status := newTestProber(false, genesisUnix+secondsPerDay).Probe(context.Background(), 0, cli)

	if status.ConnectMS != nil || status.PingMS != nil || status.TimeValue != nil ||
		status.Version != nil || status.RequestMS != nil || status.HeadSeqno != nil ||
		len(status.Shards) != 0 || status.ArchiveDepthLabel != "" {
		t.Fatalf("expected address-only status, got %+v", status)
	}
	if cli.Closed() {
		t.Error("Close must not be called when connect failed")
	}
}

func TestProbeConnectTimeout(t *testing.T) {
	cli := newStubClient()
	cli.connectDelay = 200 * time.Millisecond

	p := NewProber(20*time.Millisecond, false, nil)
	p.now = func() int64 { return genesisUnix + secondsPerDay }

	status := p.Probe(context.Background(), 0, cli)
	if status.ConnectMS != nil {
		t.Fatal("slow connect should count as failure")
	}
}

func TestProbeStepFailuresAreFieldLocal(t *testing.T) {
	cli := newStubClient()
	cli.pingErr = errStub
	cli.timeErr = errStub
	cli.versionErr = errStub
	cli.refreshErr = errStub

	status := newTestProber(false, genesisUnix+secondsPerDay).Probe(context.Background(), 0, cli)

	if status.ConnectMS == nil {
		t.Error("ConnectMS should survive sibling step failures")
	}
	if status.PingMS != nil || status.TimeValue != nil || status.Version != nil || status.RequestMS != nil {
		t.Errorf("failed steps must leave fields absent: %+v", status)
	}
	if !status.ArchiveUnknown || status.ArchiveDepthLabel != domain.MarkArchiveUnknown {
		t.Errorf("archive depth should be unknown, got %q", status.ArchiveDepthLabel)
	}
	if !cli.Closed() {
		t.Error("connection not released after step failures")
	}
}

func TestProbeShardFailureDiscardsHeadAndShards(t *testing.T) {
	cli := newStubClient()
	cli.head = &domain.BlockID{Seqno: 4200}
	cli.shardsErr = errStub

	status := newTestProber(false, genesisUnix+secondsPerDay).Probe(context.Background(), 0, cli)

	if status.HeadSeqno != nil {
		t.Error("HeadSeqno must be discarded together with the shard map")
	}
	if len(status.Shards) != 0 {
		t.Error("partial shard map must not survive")
	}
}

func TestProbeReusesCachedPing(t *testing.T) {
	cli := newStubClient()
	cached := 7 * time.Millisecond
	cli.cachedPing = &cached

	status := newTestProber(false, genesisUnix+secondsPerDay).Probe(context.Background(), 0, cli)

	if cli.pingCalls != 0 {
		t.Errorf("pingCalls = %d, want 0 when a cached ping exists", cli.pingCalls)
	}
	if status.PingMS == nil || *status.PingMS != 7 {
		t.Errorf("PingMS = %v, want 7", status.PingMS)
	}
}
