// Package users holds the account store and the HTTP surface around it:
// registration, login, profile lookup and tenant-scoped user management.
//
// The store implements rbac.SubjectLoader, so the permission middleware
// reads fresh activation state and permissions from here on every guarded
// request, and tenant.AdminSeeder, so tenant provisioning can create the
// first admin account without importing this package from pkg/tenant.
//
// Registration is domain driven. An email at the root domain registers a
// platform operator; an email at <subdomain>.<root> registers a member of
// that tenant, which must already exist. Tokens issued at login carry the
// resolved tenant id and super admin flag; the tenant resolver re-derives
// both on each request and rejects tokens whose claims have drifted.
package users
