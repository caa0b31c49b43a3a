package rbac

import (
	"errors"
	"fmt"
)

// ErrUserInactive means the subject's account is deactivated. A deactivated
// identity carries no permissions, whatever its role says.
var ErrUserInactive = errors.New("user is inactive")

// ErrSubjectNotFound means the subject loader has no record of the user.
var ErrSubjectNotFound = errors.New("subject not found")

// ErrRoleNotFound means no role matched the id within the tenant scope.
var ErrRoleNotFound = errors.New("role not found")

// ErrRoleExists means the tenant already has a role with that name.
var ErrRoleExists = errors.New("role name already exists in tenant")

// UnknownPermissionError reports a module/action pair that is not in the
// permission matrix. Role creation and updates reject these eagerly.
type UnknownPermissionError struct {
	Module Module
	Action Action
}

func (e *UnknownPermissionError) Error() string {
	return fmt.Sprintf("unknown permission %s:%s", e.Module, e.Action)
}

// IsUnknownPermission checks if an error is an UnknownPermissionError
func IsUnknownPermission(err error) bool {
	var upe *UnknownPermissionError
	return errors.As(err, &upe)
}

// InsufficientPermissionError is the terminal denial of the evaluator. It
// carries diagnostic context but never the role's permission blob, so a
// denial cannot leak another tenant's configuration.
type InsufficientPermissionError struct {
	Module        Module
	Action        Action
	UserRole      UserRole
	UserTenant    *string
	RequestTenant *string
}

func (e *InsufficientPermissionError) Error() string {
	return fmt.Sprintf("no permission for %s on %s", e.Action, e.Module)
}

// IsInsufficientPermission checks if an error is an InsufficientPermissionError
func IsInsufficientPermission(err error) bool {
	var ipe *InsufficientPermissionError
	return errors.As(err, &ipe)
}

// RoleInUseError means a role still has users assigned and cannot be
// deleted.
type RoleInUseError struct {
	RoleID string
	Users  int
}

func (e *RoleInUseError) Error() string {
	return fmt.Sprintf("role %s has %d assigned users", e.RoleID, e.Users)
}

// IsRoleInUse checks if an error is a RoleInUseError
func IsRoleInUse(err error) bool {
	var riu *RoleInUseError
	return errors.As(err, &riu)
}
