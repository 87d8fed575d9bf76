package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/matzehuels/peerguard/pkg/cache"
	"github.com/matzehuels/peerguard/pkg/httputil"
	"github.com/matzehuels/peerguard/pkg/observability"
)

// DefaultHTTPTimeout bounds a single registry request. The detector usually
// imposes a tighter per-query deadline through the request context.
const DefaultHTTPTimeout = 10 * time.Second

var (
	// ErrNotFound is returned when the registry does not know a package.
	ErrNotFound = errors.New("resource not found")

	// ErrNetwork is returned for transport failures and unexpected statuses.
	ErrNetwork = errors.New("network error")
)

// Client performs cached JSON GETs against a registry.
type Client struct {
	http      *http.Client
	cache     cache.Cache
	keyPrefix string
	ttl       time.Duration
	headers   map[string]string
	now       func() time.Time
}

// NewClient creates a Client backed by c. Every cache key passed to
// [Client.Cached] is prefixed with keyPrefix and stored for ttl. A nil cache
// disables caching; headers may be nil.
func NewClient(c cache.Cache, keyPrefix string, ttl time.Duration, headers map[string]string) *Client {
	if c == nil {
		c = cache.NewNullCache()
	}
	return &Client{
		http:      &http.Client{Timeout: DefaultHTTPTimeout},
		cache:     c,
		keyPrefix: keyPrefix,
		ttl:       ttl,
		headers:   headers,
		now:       time.Now,
	}
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(h *http.Client) {
	if h != nil {
		c.http = h
	}
}

// Cached fills v from the cache or, on a miss, by calling fetch with retries
// and storing v as JSON. With refresh the cache is not read. Cache failures
// never fail the call, and failed fetches are not cached.
func (c *Client) Cached(ctx context.Context, key string, refresh bool, v any, fetch func() error) error {
	keyType, _, _ := strings.Cut(key, ":")
	key = c.keyPrefix + key
	hooks := observability.Cache()

	if !refresh {
		data, hit, err := c.cache.Get(ctx, key)
		if err == nil && hit && json.Unmarshal(data, v) == nil {
			hooks.OnCacheHit(ctx, keyType)
			return nil
		}
		hooks.OnCacheMiss(ctx, keyType)
	}

	if err := httputil.RetryWithBackoff(ctx, fetch); err != nil {
		return err
	}

	if data, err := json.Marshal(v); err == nil {
		if c.cache.Set(ctx, key, data, c.ttl) == nil {
			hooks.OnCacheSet(ctx, keyType, len(data))
		}
	}
	return nil
}

// Get fetches url with the client's default headers and decodes the JSON
// body into v.
func (c *Client) Get(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	for k, val := range c.headers {
		req.Header.Set(k, val)
	}

	hooks := observability.HTTP()
	host, path := req.URL.Host, req.URL.Path
	hooks.OnRequest(ctx, req.Method, host, path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, host, path, err)
		if ctx.Err() != nil {
			return fmt.Errorf("%w: %v", ErrNetwork, ctx.Err())
		}
		return &httputil.RetryableError{Err: fmt.Errorf("%w: %v", ErrNetwork, err)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, host, path, resp.StatusCode, time.Since(start))

	if err := c.checkStatus(resp); err != nil {
		return err
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("decode %s: %w", url, err)
	}
	return nil
}

// checkStatus maps a response status to nil, ErrNotFound, a retryable
// ErrNetwork (429 and 5xx, honoring Retry-After) or a permanent ErrNetwork.
func (c *Client) checkStatus(resp *http.Response) error {
	code := resp.StatusCode
	switch {
	case code == http.StatusOK:
		return nil
	case code == http.StatusNotFound:
		return ErrNotFound
	case code == http.StatusTooManyRequests || code >= 500:
		return &httputil.RetryableError{
			Err:   fmt.Errorf("%w: status %d", ErrNetwork, code),
			After: httputil.ParseRetryAfter(resp.Header.Get("Retry-After"), c.now()),
		}
	default:
		return fmt.Errorf("%w: status %d", ErrNetwork, code)
	}
}
