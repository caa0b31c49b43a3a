package users

import (
	"errors"
	"time"

	"github.com/almoud/foodcost/pkg/rbac"
)

// User is an account in the identity directory. Platform operators have a
// nil TenantID; everyone else belongs to exactly one tenant.
type User struct {
	ID           string        `json:"id"`
	Email        string        `json:"email"`
	PasswordHash string        `json:"-"`
	Name         string        `json:"name"`
	Lastname     string        `json:"lastname"`
	Role         rbac.UserRole `json:"role"`
	TenantID     *string       `json:"tenantId,omitempty"`
	RoleID       *string       `json:"roleId,omitempty"`
	Permissions  []string      `json:"permissions,omitempty"`
	IsActive     bool          `json:"isActive"`
	LastLogin    *time.Time    `json:"lastLogin,omitempty"`
	CreatedBy    string        `json:"createdBy,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`

	AssignedRole *rbac.Role `json:"assignedRole,omitempty"`
}

// Subject projects the user into the evaluator's view.
func (u *User) Subject() *rbac.Subject {
	s := &rbac.Subject{
		UserID:      u.ID,
		Email:       u.Email,
		Role:        u.Role,
		TenantID:    u.TenantID,
		IsActive:    u.IsActive,
		Permissions: u.Permissions,
	}
	if u.AssignedRole != nil {
		s.RolePermissions = u.AssignedRole.Permissions
	}
	return s
}

// ErrUserNotFound means no user matched the lookup within its scope.
var ErrUserNotFound = errors.New("user not found")

// ErrEmailTaken means the email is already registered.
var ErrEmailTaken = errors.New("email already registered")

// ErrInvalidRole means the referenced role does not exist in the user's
// tenant.
var ErrInvalidRole = errors.New("role not valid for tenant")
