package middleware

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platinummonkey/mspbill/pkg/observability"
)

func newTestLimiter(t *testing.T, requests int) (*TenantRateLimiter, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	limiter := NewTenantRateLimiter(client, &RateLimitConfig{
		RequestsPerWindow: requests,
		WindowDuration:    time.Minute,
	}, logger)
	return limiter, mr
}

func TestAllowUnderLimit(t *testing.T) {
	limiter, _ := newTestLimiter(t, 3)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		allowed, err := limiter.Allow(ctx, "tenant:1")
		require.NoError(t, err)
		assert.True(t, allowed)
	}

	allowed, err := limiter.Allow(ctx, "tenant:1")
	require.NoError(t, err)
	assert.False(t, allowed)
}

func TestLimitsAreKeyScoped(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "tenant:1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "tenant:1")
	require.NoError(t, err)
	assert.False(t, allowed)

	// A different tenant still has its full quota.
	allowed, err = limiter.Allow(ctx, "tenant:2")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestReset(t *testing.T) {
	limiter, _ := newTestLimiter(t, 1)
	ctx := context.Background()

	_, err := limiter.Allow(ctx, "tenant:1")
	require.NoError(t, err)

	require.NoError(t, limiter.Reset(ctx, "tenant:1"))

	allowed, err := limiter.Allow(ctx, "tenant:1")
	require.NoError(t, err)
	assert.True(t, allowed)
}

func TestHandlerLimitsByTenantHeader(t *testing.T) {
	limiter, _ := newTestLimiter(t, 2)
	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(tenantID string) *httptest.ResponseRecorder {
		r := httptest.NewRequest("GET", "/api/v1/invoices/1", nil)
		r.Header.Set("X-Tenant-ID", tenantID)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusOK, do("1").Code)
	rec := do("1")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))

	rec = do("1")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))

	// Tenant 2 is unaffected by tenant 1's exhaustion.
	assert.Equal(t, http.StatusOK, do("2").Code)
}

func TestHandlerFailsOpenWhenRedisDown(t *testing.T) {
	limiter, mr := newTestLimiter(t, 1)
	mr.Close()

	handler := limiter.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 5; i++ {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestClientIP(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	r.RemoteAddr = "10.0.0.9:4312"
	assert.Equal(t, "10.0.0.9", clientIP(r))

	r.Header.Set("X-Forwarded-For", "203.0.113.5, 10.0.0.1")
	assert.Equal(t, "203.0.113.5", clientIP(r))
}
