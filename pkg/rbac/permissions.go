package rbac

import (
	"fmt"
	"strings"
)

// PermissionSet maps module to action to granted. It is the permission shape
// stored on roles, validated against the Matrix at role creation time so no
// unknown module/action pair can ever be persisted.
type PermissionSet map[Module]map[Action]bool

// Allows reports whether the set grants an action. Missing modules and
// actions simply report false.
func (p PermissionSet) Allows(module Module, action Action) bool {
	return p[module][action]
}

// Validate checks every pair in the set against the matrix.
func (p PermissionSet) Validate(m *Matrix) error {
	for module, actions := range p {
		for action := range actions {
			if !m.Contains(module, action) {
				return &UnknownPermissionError{Module: module, Action: action}
			}
		}
	}
	return nil
}

// Grant adds an allowed action, creating the module entry as needed.
func (p PermissionSet) Grant(module Module, actions ...Action) PermissionSet {
	if p[module] == nil {
		p[module] = make(map[Action]bool)
	}
	for _, action := range actions {
		p[module][action] = true
	}
	return p
}

// PermissionKey renders a module/action pair in the "module:action" form
// used by direct user grants.
func PermissionKey(module Module, action Action) string {
	return string(module) + ":" + string(action)
}

// ParsePermissionKey splits a "module:action" grant.
func ParsePermissionKey(key string) (Module, Action, error) {
	module, action, ok := strings.Cut(key, ":")
	if !ok || module == "" || action == "" {
		return "", "", fmt.Errorf("invalid permission key %q", key)
	}
	return Module(module), Action(action), nil
}
