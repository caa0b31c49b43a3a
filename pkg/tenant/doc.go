// Package tenant implements tenant identity: the directory of tenants keyed
// by subdomain, the resolver that derives a request's tenant context from the
// authenticated principal's email domain, and the operator endpoints that
// provision and manage tenants.
//
// # Resolution
//
// Every request resolves to exactly one of three shapes of Context:
//
//   - Super admin: the email domain equals the platform root domain. The
//     context may optionally carry a tenant ID supplied as a hint, letting
//     an operator act within a specific tenant.
//   - Tenant-bound: the email domain is a direct subdomain of the root
//     domain. The leading label is looked up in the directory; the tenant
//     must exist and be active.
//   - Unbound: any other domain. The request proceeds without a tenant and
//     is rejected later by handlers that require one.
//
// Directory outages surface as *DirectoryError and are never reported as a
// missing tenant, so transient database trouble cannot look like a
// deprovisioned customer.
//
// # Caching
//
// CachingDirectory wraps the store with a small expirable LRU keyed by
// subdomain. Mutating endpoints invalidate the touched subdomain so
// suspensions take effect immediately.
package tenant
