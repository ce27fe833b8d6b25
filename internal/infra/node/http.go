package node

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/vietddude/lsprobe/internal/core/domain"
)

// HTTPClient implements Client for nodes exposing the fleet JSON-RPC
// API over HTTP.
type HTTPClient struct {
	host string
	port int

	endpoint   string
	httpClient *http.Client

	mu           sync.RWMutex
	connected    bool
	lastPing     *time.Duration
	lastHead     *domain.BlockID
	health       Health
	totalLatency time.Duration
}

// NewHTTPClient creates a client for a single node address.
// requestTimeout bounds every individual RPC round trip.
func NewHTTPClient(host string, port int, requestTimeout time.Duration) *HTTPClient {
	return &HTTPClient{
		host:     host,
		port:     port,
		endpoint: fmt.Sprintf("http://%s/rpc", net.JoinHostPort(host, strconv.Itoa(port))),
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				MaxIdleConns:        4,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

func (c *HTTPClient) Host() string { return c.host }
func (c *HTTPClient) Port() int    { return c.port }

// Connect dials the node's TCP address to verify reachability. The
// probe connection is closed immediately; the HTTP transport maintains
// its own pool for subsequent calls.
func (c *HTTPClient) Connect(ctx context.Context) error {
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", net.JoinHostPort(c.host, strconv.Itoa(c.port)))
	if err != nil {
		return fmt.Errorf("connect %s: %w", c.host, err)
	}
	_ = conn.Close()

	c.mu.Lock()
	c.connected = true
	c.mu.Unlock()
	return nil
}

// LastPing returns the cached liveness latency from a prior PingOnce.
func (c *HTTPClient) LastPing() (time.Duration, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastPing == nil {
		return 0, false
	}
	return *c.lastPing, true
}

// PingOnce performs a single liveness round trip and caches its latency.
func (c *HTTPClient) PingOnce(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := c.call(ctx, "ping", nil, nil); err != nil {
		return 0, err
	}
	latency := time.Since(start)

	c.mu.Lock()
	c.lastPing = &latency
	c.mu.Unlock()
	return latency, nil
}

// GetVersion returns the node-reported software version.
func (c *HTTPClient) GetVersion(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	if err := c.call(ctx, "getVersion", nil, &out); err != nil {
		return "", err
	}
	return out.Version, nil
}

// GetTime returns the node-reported Unix time.
func (c *HTTPClient) GetTime(ctx context.Context) (int64, error) {
	var out struct {
		Now int64 `json:"now"`
	}
	if err := c.call(ctx, "getTime", nil, &out); err != nil {
		return 0, err
	}
	return out.Now, nil
}

// Refresh fetches the current chain head and stores it as LastHead.
func (c *HTTPClient) Refresh(ctx context.Context) error {
	var out struct {
		Last blockID `json:"last"`
	}
	if err := c.call(ctx, "getMasterchainInfo", nil, &out); err != nil {
		return err
	}

	head := out.Last.toDomain()
	c.mu.Lock()
	c.lastHead = &head
	c.mu.Unlock()
	return nil
}

// LastHead returns the chain head from the most recent Refresh.
func (c *HTTPClient) LastHead() (domain.BlockID, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.lastHead == nil {
		return domain.BlockID{}, false
	}
	return *c.lastHead, true
}

// GetAllShardsInfo lists shard heads as of the given chain head.
func (c *HTTPClient) GetAllShardsInfo(ctx context.Context, head domain.BlockID) ([]domain.ShardDescr, error) {
	params := map[string]any{
		"workchain": head.Workchain,
		"shard":     head.Shard,
		"seqno":     head.Seqno,
	}
	var out struct {
		Shards []struct {
			Shard int64  `json:"shard"`
			Seqno uint64 `json:"seqno"`
		} `json:"shards"`
	}
	if err := c.call(ctx, "getShardsInfo", params, &out); err != nil {
		return nil, err
	}

	descrs := make([]domain.ShardDescr, 0, len(out.Shards))
	for _, s := range out.Shards {
		descrs = append(descrs, domain.ShardDescr{Shard: s.Shard, Seqno: s.Seqno})
	}
	return descrs, nil
}

// LookupBlock resolves the block current at the given Unix time.
func (c *HTTPClient) LookupBlock(ctx context.Context, workchain int32, shard int64, utime int64) (domain.BlockID, error) {
	params := map[string]any{
		"workchain": workchain,
		"shard":     shard,
		"utime":     utime,
	}
	var out struct {
		ID blockID `json:"id"`
	}
	if err := c.call(ctx, "lookupBlock", params, &out); err != nil {
		return domain.BlockID{}, err
	}
	return out.ID.toDomain(), nil
}

// Close releases the transport's idle connections.
func (c *HTTPClient) Close() error {
	c.mu.Lock()
	c.connected = false
	c.mu.Unlock()
	c.httpClient.CloseIdleConnections()
	return nil
}

// Health returns the client's request accounting.
func (c *HTTPClient) Health() Health {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.health
}

type blockID struct {
	Workchain int32  `json:"workchain"`
	Shard     int64  `json:"shard"`
	Seqno     uint64 `json:"seqno"`
}

func (b blockID) toDomain() domain.BlockID {
	return domain.BlockID{Workchain: b.Workchain, Shard: b.Shard, Seqno: b.Seqno}
}

// call makes a single JSON-RPC request and unmarshals its result into
// out (which may be nil for calls without a useful result).
func (c *HTTPClient) call(ctx context.Context, method string, params any, out any) error {
	start := time.Now()

	if params == nil {
		params = map[string]any{}
	}
	reqBody := map[string]any{
		"jsonrpc": "2.0",
		"method":  method,
		"params":  params,
		"id":      1,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("rpc call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordFailure()
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		c.recordFailure()
		return fmt.Errorf("http %d: %s", resp.StatusCode, string(body))
	}

	var rpcResp struct {
		Result json.RawMessage `json:"result"`
		Error  *struct {
			Code    int    `json:"code"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &rpcResp); err != nil {
		c.recordFailure()
		return fmt.Errorf("parse response: %w", err)
	}

	if rpcResp.Error != nil {
		c.recordFailure()
		return fmt.Errorf("rpc error %d: %s", rpcResp.Error.Code, rpcResp.Error.Message)
	}

	if out != nil {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			c.recordFailure()
			return fmt.Errorf("parse result: %w", err)
		}
	}

	c.recordSuccess(time.Since(start))
	return nil
}

func (c *HTTPClient) recordSuccess(latency time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.health.SuccessCount++
	c.totalLatency += latency
	c.health.LastSuccessAt = time.Now()
	c.health.Latency = c.totalLatency / time.Duration(c.health.SuccessCount)
	c.updateErrorRate()
}

func (c *HTTPClient) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.health.FailureCount++
	c.health.LastFailureAt = time.Now()
	c.updateErrorRate()
}

func (c *HTTPClient) updateErrorRate() {
	total := c.health.SuccessCount + c.health.FailureCount
	if total > 0 {
		c.health.ErrorRate = float64(c.health.FailureCount) / float64(total)
	}
}
