// Package tenant carries the tenant identity through request
// handling. The billing engine and delivery pipeline take the tenant
// as an explicit parameter; this package only bridges the HTTP layer,
// where the tenant arrives as the X-Tenant-ID header.
package tenant

import (
	"context"
	"net/http"
	"strconv"
)

// Header is the HTTP header carrying the tenant identifier
const Header = "X-Tenant-ID"

type contextKey string

// tenantKey contains the tenant id as int64
const tenantKey contextKey = "tenant_id"

// WithTenant adds the tenant id to the context
func WithTenant(ctx context.Context, tenantID int64) context.Context {
	return context.WithValue(ctx, tenantKey, tenantID)
}

// FromContext retrieves the tenant id from the context
func FromContext(ctx context.Context) (int64, bool) {
	tenantID, ok := ctx.Value(tenantKey).(int64)
	return tenantID, ok
}

// Middleware extracts the tenant id from the request header and adds
// it to the request context. Requests without a valid tenant are
// rejected before reaching any handler.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(Header)
		if raw == "" {
			http.Error(w, "Missing "+Header+" header", http.StatusBadRequest)
			return
		}

		tenantID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || tenantID <= 0 {
			http.Error(w, "Invalid "+Header+" header", http.StatusBadRequest)
			return
		}

		ctx := WithTenant(r.Context(), tenantID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
