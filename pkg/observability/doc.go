// Package observability provides structured logging, health checks,
// and OpenTelemetry tracing for the billing services.
//
// # Structured Logging
//
// Create logger:
//
//	logger := observability.NewLogger(observability.InfoLevel, nil)
//	logger.WithField("tenant_id", tenantID).Info("invoice generated")
//
// # Health Checks
//
// Configure health checker:
//
//	checker := observability.NewHealthChecker(db, redisClient)
//	status := checker.Check(ctx)
//
// # OpenTelemetry
//
// Initialize tracing:
//
//	provider, err := observability.InitTracing(ctx, observability.TracingConfig{
//		ServiceName: "mspbill",
//		Endpoint:    "otel-collector:4317",
//	}, logger)
//	defer observability.ShutdownTracing(ctx, provider, logger)
//
// # Related Packages
//
//   - pkg/config: observability configuration
//   - pkg/storage/postgres: traced storage operations
package observability
