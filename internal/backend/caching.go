package backend

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/kiranshivaraju/eveview/internal/cache"
	"github.com/kiranshivaraju/eveview/internal/metrics"
	"github.com/kiranshivaraju/eveview/internal/query"
	"github.com/kiranshivaraju/eveview/pkg/models"
	"github.com/vmihailenco/msgpack/v5"
)

// generationTTL keeps a scope's generation counter alive well past any page TTL.
const generationTTL = 24 * time.Hour

// CachingClient serves repeated list requests from a cache. Pages that still
// contain processing records are never stored, and a successful upload moves
// the scope to a new generation so earlier pages are no longer read.
// Cache failures are logged and bypassed; they never fail a request.
type CachingClient struct {
	next  Client
	cache cache.Cache
	ttl   time.Duration
	scope func() string
}

// NewCachingClient wraps next. scope partitions entries per credential.
func NewCachingClient(next Client, c cache.Cache, ttl time.Duration, scope func() string) *CachingClient {
	return &CachingClient{next: next, cache: c, ttl: ttl, scope: scope}
}

func (c *CachingClient) ListResults(ctx context.Context, q query.State) (*ListResponse, error) {
	scope := c.scope()
	gen, err := c.cache.Counter(ctx, cache.ResultGenerationKey(scope))
	if err != nil {
		slog.Warn("result cache generation read failed", "error", err)
		metrics.IncreaseResultCache(metrics.CacheError)
		return c.next.ListResults(ctx, q)
	}
	key := cache.ResultPageKey(scope, gen, q.Hash())

	raw, found, err := c.cache.Get(ctx, key)
	switch {
	case err != nil:
		slog.Warn("result cache read failed", "error", err)
		metrics.IncreaseResultCache(metrics.CacheError)
	case found:
		var page models.ResultPage
		if err := msgpack.Unmarshal(raw, &page); err == nil {
			metrics.IncreaseResultCache(metrics.CacheHit)
			return &ListResponse{StatusCode: http.StatusOK, Page: page}, nil
		}
		slog.Warn("discarding undecodable cached page", "key", key)
		_ = c.cache.Delete(ctx, key)
		metrics.IncreaseResultCache(metrics.CacheError)
	default:
		metrics.IncreaseResultCache(metrics.CacheMiss)
	}

	resp, err := c.next.ListResults(ctx, q)
	if err != nil {
		return nil, err
	}

	if !resp.Page.HasProcessing() {
		encoded, err := msgpack.Marshal(resp.Page)
		if err == nil {
			err = c.cache.Set(ctx, key, encoded, c.ttl)
		}
		if err != nil {
			slog.Warn("result cache write failed", "error", err)
		}
	}

	return resp, nil
}

func (c *CachingClient) Upload(ctx context.Context, req UploadRequest) (*UploadResponse, error) {
	resp, err := c.next.Upload(ctx, req)
	if err != nil {
		return nil, err
	}
	if err := c.Invalidate(ctx); err != nil {
		slog.Warn("result cache invalidation failed", "error", err)
	}
	return resp, nil
}

// Invalidate drops every cached page for the current scope.
func (c *CachingClient) Invalidate(ctx context.Context) error {
	_, err := c.cache.IncrWithExpiry(ctx, cache.ResultGenerationKey(c.scope()), generationTTL)
	return err
}

var _ Client = (*CachingClient)(nil)
