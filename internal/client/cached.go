package client

import (
	"context"
	"time"

	"github.com/philanthrohub/directory/internal/db/models"
	"github.com/philanthrohub/directory/internal/directory"
)

// Writer adds organizations to the directory. *Client implements it.
type Writer interface {
	CreateOrganization(ctx context.Context, req directory.CreateRequest) (models.Organization, error)
	SubmitOrganization(ctx context.Context, sub models.Submission) (models.Organization, error)
}

// Service is the full directory API. *Client implements it.
type Service interface {
	Fetcher
	Writer
}

// CachedClient reads through a Cache and writes straight to the service.
// Every accepted write invalidates the cache, so the next Get blocks on a
// listing that includes it.
type CachedClient struct {
	svc   Service
	cache *Cache
}

// NewCachedClient wraps svc with a cache polling at pollInterval.
func NewCachedClient(svc Service, pollInterval, staleTime time.Duration) *CachedClient {
	return &CachedClient{
		svc:   svc,
		cache: NewCache(svc, pollInterval, staleTime),
	}
}

// Cache returns the cache backing reads.
func (c *CachedClient) Cache() *Cache {
	return c.cache
}

// Get is Cache().Get.
func (c *CachedClient) Get(ctx context.Context) Snapshot {
	return c.cache.Get(ctx)
}

// CreateOrganization posts a direct create and invalidates the cache when the
// service accepts it.
func (c *CachedClient) CreateOrganization(ctx context.Context, req directory.CreateRequest) (models.Organization, error) {
	org, err := c.svc.CreateOrganization(ctx, req)
	if err != nil {
		return org, err
	}
	c.cache.Invalidate()
	return org, nil
}

// SubmitOrganization posts a completed application and invalidates the cache
// when the service accepts it.
func (c *CachedClient) SubmitOrganization(ctx context.Context, sub models.Submission) (models.Organization, error) {
	org, err := c.svc.SubmitOrganization(ctx, sub)
	if err != nil {
		return org, err
	}
	c.cache.Invalidate()
	return org, nil
}

// Stop stops the cache.
func (c *CachedClient) Stop() {
	c.cache.Stop()
}
