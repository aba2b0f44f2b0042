package invoices

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is a caching layer in front of an invoice Service. Reads
// are served from Redis when possible; writes pass through and
// invalidate. The cache is best-effort: a Redis failure falls back to
// the underlying service.
type RedisCache struct {
	service Service
	redis   *redis.Client
	ttl     map[string]time.Duration
}

// NewRedisCache creates a new Redis cache layer over a Service
func NewRedisCache(service Service, redisAddr, password string) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewRedisCacheWithClient(service, client), nil
}

// NewRedisCacheWithClient creates a cache layer using an existing client
func NewRedisCacheWithClient(service Service, client *redis.Client) *RedisCache {
	return &RedisCache{
		service: service,
		redis:   client,
		ttl: map[string]time.Duration{
			"invoice": 10 * time.Minute,
			"list":    2 * time.Minute,
		},
	}
}

// WithTTLs overrides the per-kind cache TTLs ("invoice", "list") and
// returns the cache for chaining. Unknown kinds are stored but unused.
func (c *RedisCache) WithTTLs(ttls map[string]time.Duration) *RedisCache {
	for kind, ttl := range ttls {
		c.ttl[kind] = ttl
	}
	return c
}

// Close closes the Redis connection
func (c *RedisCache) Close() error {
	return c.redis.Close()
}

func (c *RedisCache) invoiceKey(tenantID, invoiceID int64) string {
	return fmt.Sprintf("invoice:%d:%d", tenantID, invoiceID)
}

func (c *RedisCache) listKey(tenantID, companyID int64) string {
	return fmt.Sprintf("invoices:%d:%d", tenantID, companyID)
}

// invalidateLists drops every cached list variant for a company.
func (c *RedisCache) invalidateLists(ctx context.Context, tenantID, companyID int64) {
	keys, err := c.redis.Keys(ctx, c.listKey(tenantID, companyID)+":*").Result()
	if err != nil || len(keys) == 0 {
		return
	}
	c.redis.Del(ctx, keys...)
}

// GenerateInvoice passes through and invalidates the company's invoice list
func (c *RedisCache) GenerateInvoice(ctx context.Context, tenantID, companyID int64, periodStart, periodEnd time.Time) (*Invoice, error) {
	invoice, err := c.service.GenerateInvoice(ctx, tenantID, companyID, periodStart, periodEnd)
	if err != nil {
		return nil, err
	}
	c.invalidateLists(ctx, tenantID, companyID)
	return invoice, nil
}

// FinalizeInvoice passes through and invalidates the cached invoice
func (c *RedisCache) FinalizeInvoice(ctx context.Context, tenantID, invoiceID int64) (*Invoice, error) {
	invoice, err := c.service.FinalizeInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	c.redis.Del(ctx, c.invoiceKey(tenantID, invoiceID))
	c.invalidateLists(ctx, tenantID, invoice.CompanyID)
	return invoice, nil
}

// GetInvoice retrieves an invoice with caching
func (c *RedisCache) GetInvoice(ctx context.Context, tenantID, invoiceID int64) (*Invoice, error) {
	key := c.invoiceKey(tenantID, invoiceID)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var invoice Invoice
		if err := json.Unmarshal([]byte(cached), &invoice); err == nil {
			return &invoice, nil
		}
		// Corrupt entry: drop it and fall through.
		c.redis.Del(ctx, key)
	}

	invoice, err := c.service.GetInvoice(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(invoice); err == nil {
		c.redis.Set(ctx, key, data, c.ttl["invoice"])
	}
	return invoice, nil
}

// GetInvoiceDetail passes through; the company half is not cached
func (c *RedisCache) GetInvoiceDetail(ctx context.Context, tenantID, invoiceID int64) (*Detail, error) {
	return c.service.GetInvoiceDetail(ctx, tenantID, invoiceID)
}

// ListInvoices lists a company's invoices with caching
func (c *RedisCache) ListInvoices(ctx context.Context, tenantID, companyID int64, limit int) ([]*Invoice, error) {
	key := fmt.Sprintf("%s:%d", c.listKey(tenantID, companyID), limit)

	cached, err := c.redis.Get(ctx, key).Result()
	if err == nil {
		var result []*Invoice
		if err := json.Unmarshal([]byte(cached), &result); err == nil {
			return result, nil
		}
		c.redis.Del(ctx, key)
	}

	result, err := c.service.ListInvoices(ctx, tenantID, companyID, limit)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(result); err == nil {
		c.redis.Set(ctx, key, data, c.ttl["list"])
	}
	return result, nil
}

// interface guard
var _ Service = (*RedisCache)(nil)
