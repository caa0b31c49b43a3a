// Package middleware provides the HTTP middleware chain in front of the
// protected API surface.
//
// The order matters and is fixed in cmd/foodcost:
//
//	RequestID -> RequestLogger -> metrics -> Auth -> TenantContext -> routes
//
// AuthMiddleware turns a bearer token into a principal. TenantContext
// resolves the principal's email domain into a tenant scope on every
// request; RequireTenant and the per-route permission guard consume that
// scope. RateLimiter sits only in front of /auth/login.
package middleware
