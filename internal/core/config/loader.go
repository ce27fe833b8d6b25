package config

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"
)

const (
	fetchTimeout = 10 * time.Second
	cacheTTL     = time.Hour
)

// DocumentCache caches fetched remote config documents. Implementations
// must treat a miss as (_, false, nil).
type DocumentCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, val string, ttl time.Duration) error
}

// Resolver turns a profile (plus an optional override document) into a
// concrete node list.
type Resolver struct {
	httpClient *http.Client
	cache      DocumentCache
	log        *slog.Logger
}

// NewResolver creates a resolver. cache may be nil to disable caching
// of remote documents.
func NewResolver(cache DocumentCache, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		httpClient: &http.Client{Timeout: fetchTimeout},
		cache:      cache,
		log:        log,
	}
}

// Fleet resolves the ordered node list for a profile. A non-empty
// override (local path or URL of a fleet config document) takes
// precedence over the profile's own source.
func (r *Resolver) Fleet(ctx context.Context, profile Profile, override string) ([]NodeAddr, error) {
	if override != "" {
		return r.loadDoc(ctx, override)
	}
	if len(profile.Nodes) > 0 {
		return profile.Nodes, nil
	}
	if profile.ConfigURL != "" {
		return r.loadDoc(ctx, profile.ConfigURL)
	}
	return nil, fmt.Errorf("profile has neither nodes nor config_url")
}

func (r *Resolver) loadDoc(ctx context.Context, pathOrURL string) ([]NodeAddr, error) {
	var text string
	var err error

	if strings.HasPrefix(pathOrURL, "http://") || strings.HasPrefix(pathOrURL, "https://") {
		text, err = r.fetch(ctx, pathOrURL)
	} else {
		text, err = readFile(pathOrURL)
	}
	if err != nil {
		return nil, err
	}

	var doc FleetDoc
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("failed to parse fleet config: %w", err)
	}

	addrs := make([]NodeAddr, 0, len(doc.Liteservers))
	for _, ls := range doc.Liteservers {
		addrs = append(addrs, ls.Addr())
	}
	return addrs, nil
}

// fetch downloads a remote document, consulting the cache first. Cache
// failures fall through to a direct fetch.
func (r *Resolver) fetch(ctx context.Context, url string) (string, error) {
	key := "lsprobe:config:" + url

	if r.cache != nil {
		if text, ok, err := r.cache.Get(ctx, key); err == nil && ok {
			r.log.Debug("fleet config cache hit", "url", url)
			return text, nil
		} else if err != nil {
			r.log.Debug("fleet config cache get failed", "error", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch fleet config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch fleet config: http %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read fleet config: %w", err)
	}

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, string(body), cacheTTL); err != nil {
			r.log.Debug("fleet config cache set failed", "error", err)
		}
	}
	return string(body), nil
}

func readFile(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read fleet config: %w", err)
	}
	return string(data), nil
}
