package rbac

import (
	"github.com/almoud/foodcost/pkg/tenant"
)

// Rule identifies which step of the evaluation chain decided a request.
// Exposed so callers can label metrics and audit entries.
type Rule string

const (
	RuleSuperAdminBypass  Rule = "super_admin_bypass"
	RuleInactiveUser      Rule = "inactive_user"
	RuleTenantAdminBypass Rule = "tenant_admin_bypass"
	RuleGlobalRole        Rule = "global_role"
	RuleRolePermission    Rule = "role_permission"
	RuleDirectPermission  Rule = "direct_permission"
	RuleDeny              Rule = "deny"
)

// Evaluator decides ALLOW or DENY for a module/action pair. It is stateless;
// every decision is a pure function of the tenant context and the subject.
type Evaluator struct{}

// NewEvaluator creates a permission evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Authorize runs the ordered rule chain. The order is load-bearing: each
// rule only fires if every rule above it declined to decide.
//
//  1. A super admin context allows everything, before the subject is even
//     considered. The subject may be nil on this path.
//  2. An inactive subject is denied outright, whatever its role.
//  3. A tenant admin allows everything inside their own tenant. The tenant
//     comparison requires both sides to be present; two absent tenants do
//     not match, so an unscoped admin gets no bypass anywhere.
//  4. The super_admin account role allows everything. Role and domain are
//     separate trust signals and each grants on its own.
//  5. The assigned role's permission set.
//  6. The user's direct "module:action" grants.
//  7. Otherwise deny.
func (e *Evaluator) Authorize(tc *tenant.Context, subject *Subject, module Module, action Action) (Rule, error) {
	if tc != nil && tc.IsSuperAdmin {
		return RuleSuperAdminBypass, nil
	}

	if subject == nil {
		return RuleDeny, &InsufficientPermissionError{
			Module:        module,
			Action:        action,
			RequestTenant: requestTenant(tc),
		}
	}

	if !subject.IsActive {
		return RuleInactiveUser, ErrUserInactive
	}

	if subject.Role == UserRoleAdmin && sameTenant(subject.TenantID, requestTenant(tc)) {
		return RuleTenantAdminBypass, nil
	}

	if subject.Role == UserRoleSuperAdmin {
		return RuleGlobalRole, nil
	}

	if subject.RolePermissions.Allows(module, action) {
		return RuleRolePermission, nil
	}

	key := PermissionKey(module, action)
	for _, grant := range subject.Permissions {
		if grant == key {
			return RuleDirectPermission, nil
		}
	}

	return RuleDeny, &InsufficientPermissionError{
		Module:        module,
		Action:        action,
		UserRole:      subject.Role,
		UserTenant:    subject.TenantID,
		RequestTenant: requestTenant(tc),
	}
}

// sameTenant matches only when both tenants are present and equal. Absent
// values never match each other.
func sameTenant(a, b *string) bool {
	return a != nil && b != nil && *a == *b
}

func requestTenant(tc *tenant.Context) *string {
	if tc == nil {
		return nil
	}
	return tc.TenantID
}
