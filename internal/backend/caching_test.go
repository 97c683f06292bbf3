package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kiranshivaraju/eveview/internal/cache"
	"github.com/kiranshivaraju/eveview/internal/query"
	"github.com/kiranshivaraju/eveview/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingClient struct {
	mu        sync.Mutex
	calls     int
	page      models.ResultPage
	err       error
	uploadErr error
}

func (c *countingClient) ListResults(_ context.Context, _ query.State) (*ListResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return &ListResponse{StatusCode: http.StatusOK, Page: c.page}, nil
}

func (c *countingClient) Upload(_ context.Context, _ UploadRequest) (*UploadResponse, error) {
	if c.uploadErr != nil {
		return nil, c.uploadErr
	}
	return &UploadResponse{Message: "ok"}, nil
}

func (c *countingClient) Calls() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

type failingCache struct{ *cache.MemoryCache }

func (failingCache) Get(_ context.Context, _ string) ([]byte, bool, error) {
	return nil, false, errors.New("redis down")
}

func completedPage() models.ResultPage {
	return models.ResultPage{
		Items:      []models.ResultRecord{{FileName: "a.png", Status: models.RecordStatusCompleted, Result: "cat"}},
		TotalCount: 1,
	}
}

func staticScope(s string) func() string { return func() string { return s } }

func TestCachingClient_HitAfterMiss(t *testing.T) {
	inner := &countingClient{page: completedPage()}
	c := NewCachingClient(inner, cache.NewMemoryCache(), time.Minute, staticScope("u1"))
	ctx := context.Background()

	first, err := c.ListResults(ctx, query.Default())
	require.NoError(t, err)
	second, err := c.ListResults(ctx, query.Default())
	require.NoError(t, err)

	assert.Equal(t, 1, inner.Calls())
	assert.Equal(t, first.Page, second.Page)
	assert.Equal(t, http.StatusOK, second.StatusCode)
}

func TestCachingClient_DistinctQueriesMiss(t *testing.T) {
	inner := &countingClient{page: completedPage()}
	c := NewCachingClient(inner, cache.NewMemoryCache(), time.Minute, staticScope("u1"))
	ctx := context.Background()

	_, err := c.ListResults(ctx, query.Default())
	require.NoError(t, err)
	_, err = c.ListResults(ctx, query.Default().WithPage(2, 10))
	require.NoError(t, err)

	assert.Equal(t, 2, inner.Calls())
}

func TestCachingClient_ScopesAreIsolated(t *testing.T) {
	inner := &countingClient{page: completedPage()}
	shared := cache.NewMemoryCache()
	ctx := context.Background()

	_, err := NewCachingClient(inner, shared, time.Minute, staticScope("u1")).ListResults(ctx, query.Default())
	require.NoError(t, err)
	_, err = NewCachingClient(inner, shared, time.Minute, staticScope("u2")).ListResults(ctx, query.Default())
	require.NoError(t, err)

	assert.Equal(t, 2, inner.Calls())
}

func TestCachingClient_ProcessingPagesNotCached(t *testing.T) {
	inner := &countingClient{page: models.ResultPage{
		Items:      []models.ResultRecord{{FileName: "a.png", Status: models.RecordStatusProcessing}},
		TotalCount: 1,
	}}
	c := NewCachingClient(inner, cache.NewMemoryCache(), time.Minute, staticScope("u1"))
	ctx := context.Background()

	_, err := c.ListResults(ctx, query.Default())
	require.NoError(t, err)
	_, err = c.ListResults(ctx, query.Default())
	require.NoError(t, err)

	assert.Equal(t, 2, inner.Calls())
}

func TestCachingClient_ErrorsNotCached(t *testing.T) {
	inner := &countingClient{err: &StatusError{StatusCode: http.StatusInternalServerError}}
	c := NewCachingClient(inner, cache.NewMemoryCache(), time.Minute, staticScope("u1"))
	ctx := context.Background()

	_, err := c.ListResults(ctx, query.Default())
	require.Error(t, err)
	_, err = c.ListResults(ctx, query.Default())
	require.Error(t, err)

	assert.Equal(t, 2, inner.Calls())
}

func TestCachingClient_UploadInvalidates(t *testing.T) {
	inner := &countingClient{page: completedPage()}
	c := NewCachingClient(inner, cache.NewMemoryCache(), time.Minute, staticScope("u1"))
	ctx := context.Background()

	_, err := c.ListResults(ctx, query.Default())
	require.NoError(t, err)

	_, err = c.Upload(ctx, UploadRequest{FileName: "b.png", Image: strings.NewReader("x")})
	require.NoError(t, err)

	_, err = c.ListResults(ctx, query.Default())
	require.NoError(t, err)

	assert.Equal(t, 2, inner.Calls())
}

func TestCachingClient_FailedUploadKeepsCache(t *testing.T) {
	inner := &countingClient{page: completedPage(), uploadErr: &StatusError{StatusCode: http.StatusBadRequest}}
	c := NewCachingClient(inner, cache.NewMemoryCache(), time.Minute, staticScope("u1"))
	ctx := context.Background()

	_, err := c.ListResults(ctx, query.Default())
	require.NoError(t, err)
	_, err = c.Upload(ctx, UploadRequest{FileName: "b.png", Image: strings.NewReader("x")})
	require.Error(t, err)
	_, err = c.ListResults(ctx, query.Default())
	require.NoError(t, err)

	assert.Equal(t, 1, inner.Calls())
}

func TestCachingClient_CacheFailureFallsThrough(t *testing.T) {
	inner := &countingClient{page: completedPage()}
	c := NewCachingClient(inner, failingCache{cache.NewMemoryCache()}, time.Minute, staticScope("u1"))

	resp, err := c.ListResults(context.Background(), query.Default())
	require.NoError(t, err)
	assert.Equal(t, 1, resp.Page.TotalCount)
	assert.Equal(t, 1, inner.Calls())
}
