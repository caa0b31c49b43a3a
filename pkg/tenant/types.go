package tenant

import (
	"time"
)

// Status represents the lifecycle state of a tenant
type Status string

const (
	StatusActive    Status = "active"
	StatusSuspended Status = "suspended"
	StatusInactive  Status = "inactive"
)

// Plan represents subscription plan tiers
type Plan string

const (
	PlanBasic      Plan = "basic"
	PlanPro        Plan = "pro"
	PlanEnterprise Plan = "enterprise"
)

// Tenant represents an isolated restaurant account. All tenant-scoped data
// is partitioned by its ID.
type Tenant struct {
	ID           string         `json:"id"`
	Subdomain    string         `json:"subdomain"`
	Name         string         `json:"name"`
	Plan         Plan           `json:"plan"`
	Status       Status         `json:"status"`
	Settings     map[string]any `json:"settings,omitempty"`
	Subscription map[string]any `json:"subscription,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
}

// Context is the resolved tenant scope for a single request. It is derived
// from the authenticated principal's email domain on every request and never
// persisted.
//
// TenantID is a pointer on purpose: "no tenant bound" must stay
// distinguishable from any concrete tenant, and two unbound values must never
// compare equal anywhere downstream (see rbac.Evaluator).
type Context struct {
	TenantID        *string
	TenantSubdomain string
	IsSuperAdmin    bool
}

// Bound reports whether the context carries a concrete tenant.
func (c *Context) Bound() bool {
	return c.TenantID != nil
}

// Stats summarizes a tenant for the operator dashboard.
type Stats struct {
	Tenant        *Tenant `json:"tenant"`
	TotalUsers    int     `json:"total_users"`
	ActiveUsers   int     `json:"active_users"`
	InactiveUsers int     `json:"inactive_users"`
	AdminUsers    int     `json:"admin_users"`
	TotalRoles    int     `json:"total_roles"`
	CustomRoles   int     `json:"custom_roles"`
	SystemRoles   int     `json:"system_roles"`
}

// DefaultSettings returns the initial settings for a newly provisioned tenant.
func DefaultSettings(plan Plan) map[string]any {
	return map[string]any{
		"currency":     "PEN",
		"timezone":     "America/Lima",
		"language":     "es",
		"businessType": "restaurant",
		"features": map[string]any{
			"inventory": true,
			"recipes":   true,
			"reports":   true,
			"multiUser": plan != PlanBasic,
		},
	}
}

// DefaultSubscription returns the initial subscription record for a newly
/// provisioned tenant: one year of monthly billing starting now.
func DefaultSubscription(now time.Time) map[string]any {
	return map[string]any{
		"startDate": now.UTC().Format(time.RFC3339),
		"endDate":   now.AddDate(1, 0, 0).UTC().Format(time.RFC3339),
		"billing":   "monthly",
		"status":    "active",
	}
}
