// Package observability provides structured logging, Prometheus metrics,
// and health check endpoints for the food-cost backend.
//
// Logging uses stdlib slog with a JSON handler; loggers travel on the
// request context and pick up the request ID automatically:
//
//	logger := observability.FromContext(ctx)
//	logger.WithField("tenant", tenantID).Info("tenant resolved")
//
// Metrics cover the HTTP surface plus the two decision points that matter
// for a multi-tenant authorization pipeline: tenant resolution outcomes and
// authorization decisions by rule. Register them once at startup:
//
//	registry := prometheus.NewRegistry()
//	metrics := observability.NewMetrics(registry)
//
// The health checker exposes liveness and readiness probes on a separate
// port so Kubernetes probes never compete with API traffic.
package observability
