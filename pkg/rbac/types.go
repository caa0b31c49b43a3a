package rbac

import (
	"context"
	"time"
)

// UserRole is the coarse account role, distinct from the fine-grained
// assigned Role. "admin" is scoped to the user's own tenant; "super_admin"
// grants everything everywhere.
type UserRole string

const (
	UserRoleUser       UserRole = "user"
	UserRoleAdmin      UserRole = "admin"
	UserRoleSuperAdmin UserRole = "super_admin"
)

// Role is a named permission set owned by a single tenant.
type Role struct {
	ID          string        `json:"id"`
	TenantID    string        `json:"tenant_id"`
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Permissions PermissionSet `json:"permissions"`
	IsCustom    bool          `json:"is_custom"`
	IsActive    bool          `json:"is_active"`
	CreatedBy   string        `json:"created_by,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
	UserCount   int           `json:"user_count"`
}

// Subject is the authorization view of a user: exactly the fields the
// evaluator needs, nothing else.
type Subject struct {
	UserID          string
	Email           string
	Role            UserRole
	TenantID        *string
	IsActive        bool
	RolePermissions PermissionSet
	Permissions     []string
}

// SubjectLoader fetches the authorization view of a user, including the
// assigned role's permission set. Implemented by the users store.
type SubjectLoader interface {
	SubjectByID(ctx context.Context, userID string) (*Subject, error)
}

// DefaultRoles returns the role set provisioned for every new tenant. All
// permission sets are valid against DefaultMatrix.
func DefaultRoles() []Role {
	return []Role{
		{
			Name:        "Cajero",
			Description: "Empleado con acceso a caja y ventas",
			Permissions: PermissionSet{}.
				Grant(ModuleDashboard, ActionView).
				Grant(ModuleOrders, ActionView, ActionCreate, ActionEdit).
				Grant(ModuleInventory, ActionView).
				Grant(ModuleReports, ActionView),
		},
		{
			Name:        "Cocinero",
			Description: "Empleado con acceso a cocina y preparación",
			Permissions: PermissionSet{}.
				Grant(ModuleDashboard, ActionView).
				Grant(ModuleOrders, ActionView, ActionEdit).
				Grant(ModuleRecipes, ActionView, ActionCreate).
				Grant(ModuleInventory, ActionView, ActionEdit),
		},
		{
			Name:        "Mesero",
			Description: "Empleado con atención al cliente",
			Permissions: PermissionSet{}.
				Grant(ModuleDashboard, ActionView).
				Grant(ModuleOrders, ActionView, ActionCreate, "process"),
		},
		{
			Name:        "Supervisor",
			Description: "Supervisor de área con permisos extendidos",
			Permissions: PermissionSet{}.
				Grant(ModuleDashboard, ActionView).
				Grant(ModuleOrders, ActionView, ActionCreate, ActionEdit, ActionDelete).
				Grant(ModuleInventory, ActionView, ActionEdit).
				Grant(ModuleReports, ActionView, "export").
				Grant(ModuleUsers, ActionView),
		},
	}
}
