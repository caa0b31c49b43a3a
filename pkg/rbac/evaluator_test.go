package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almoud/foodcost/pkg/tenant"
)

func strptr(s string) *string { return &s }

func boundContext(tenantID string) *tenant.Context {
	return &tenant.Context{TenantID: strptr(tenantID)}
}

func activeSubject(role UserRole, tenantID *string) *Subject {
	return &Subject{
		UserID:   "u1",
		Email:    "u1@example.com",
		Role:     role,
		TenantID: tenantID,
		IsActive: true,
	}
}

func TestAuthorize_SuperAdminBypass(t *testing.T) {
	e := NewEvaluator()
	tc := &tenant.Context{IsSuperAdmin: true}

	// No subject at all; the bypass decides before the user is loaded.
	rule, err := e.Authorize(tc, nil, ModuleSettings, "billing")
	require.NoError(t, err)
	assert.Equal(t, RuleSuperAdminBypass, rule)
}

func TestAuthorize_InactiveUserDenied(t *testing.T) {
	e := NewEvaluator()
	subject := activeSubject(UserRoleSuperAdmin, nil)
	subject.IsActive = false

	rule, err := e.Authorize(boundContext("t1"), subject, ModuleOrders, ActionView)
	assert.ErrorIs(t, err, ErrUserInactive)
	assert.Equal(t, RuleInactiveUser, rule)
}

func TestAuthorize_InactiveBeatsTenantAdmin(t *testing.T) {
	e := NewEvaluator()
	subject := activeSubject(UserRoleAdmin, strptr("t1"))
	subject.IsActive = false

	_, err := e.Authorize(boundContext("t1"), subject, ModuleOrders, ActionView)
	assert.ErrorIs(t, err, ErrUserInactive)
}

func TestAuthorize_TenantAdminBypassWinsOverRoleDeny(t *testing.T) {
	e := NewEvaluator()
	subject := activeSubject(UserRoleAdmin, strptr("t1"))
	// The assigned role grants nothing for orders:delete; the bypass still
	// wins inside the admin's own tenant.
	subject.RolePermissions = PermissionSet{}.Grant(ModuleOrders, ActionView)

	rule, err := e.Authorize(boundContext("t1"), subject, ModuleOrders, ActionDelete)
	require.NoError(t, err)
	assert.Equal(t, RuleTenantAdminBypass, rule)
}

func TestAuthorize_TenantAdminIsolation(t *testing.T) {
	e := NewEvaluator()
	subject := activeSubject(UserRoleAdmin, strptr("t1"))

	_, err := e.Authorize(boundContext("t2"), subject, ModuleOrders, ActionView)
	require.Error(t, err)
	assert.True(t, IsInsufficientPermission(err))
}

func TestAuthorize_TenantAdminBothNilNoMatch(t *testing.T) {
	e := NewEvaluator()
	subject := activeSubject(UserRoleAdmin, nil)

	// Unbound context and unscoped admin: two absent tenants must not match.
	_, err := e.Authorize(&tenant.Context{}, subject, ModuleOrders, ActionView)
	require.Error(t, err)
	assert.True(t, IsInsufficientPermission(err))
}

func TestAuthorize_GlobalSuperAdminRole(t *testing.T) {
	e := NewEvaluator()
	subject := activeSubject(UserRoleSuperAdmin, nil)

	rule, err := e.Authorize(&tenant.Context{}, subject, ModuleFinancial, "view_profits")
	require.NoError(t, err)
	assert.Equal(t, RuleGlobalRole, rule)
}

func TestAuthorize_MatrixFallback(t *testing.T) {
	e := NewEvaluator()
	subject := activeSubject(UserRoleUser, strptr("t1"))
	subject.RolePermissions = PermissionSet{}.Grant(ModuleInventory, ActionView)

	rule, err := e.Authorize(boundContext("t1"), subject, ModuleInventory, ActionView)
	require.NoError(t, err)
	assert.Equal(t, RuleRolePermission, rule)

	_, err = e.Authorize(boundContext("t1"), subject, ModuleInventory, ActionEdit)
	require.Error(t, err)
	assert.True(t, IsInsufficientPermission(err))
}

func TestAuthorize_DirectPermission(t *testing.T) {
	e := NewEvaluator()
	subject := activeSubject(UserRoleUser, strptr("t1"))
	subject.Permissions = []string{"reports:export"}

	rule, err := e.Authorize(boundContext("t1"), subject, ModuleReports, "export")
	require.NoError(t, err)
	assert.Equal(t, RuleDirectPermission, rule)
}

func TestAuthorize_CajeroEndToEnd(t *testing.T) {
	e := NewEvaluator()
	subject := &Subject{
		UserID:          "u-cajero",
		Email:           "cajero@latrattoria.almoud.pe",
		Role:            UserRoleUser,
		TenantID:        strptr("T1"),
		IsActive:        true,
		RolePermissions: PermissionSet{}.Grant(ModuleOrders, ActionView, ActionCreate),
	}
	tc := boundContext("T1")

	rule, err := e.Authorize(tc, subject, ModuleOrders, ActionCreate)
	require.NoError(t, err)
	assert.Equal(t, RuleRolePermission, rule)

	rule, err = e.Authorize(tc, subject, ModuleOrders, ActionDelete)
	require.Error(t, err)
	assert.Equal(t, RuleDeny, rule)

	var ipe *InsufficientPermissionError
	require.ErrorAs(t, err, &ipe)
	assert.Equal(t, ModuleOrders, ipe.Module)
	assert.Equal(t, ActionDelete, ipe.Action)
	assert.Equal(t, UserRoleUser, ipe.UserRole)
	require.NotNil(t, ipe.UserTenant)
	assert.Equal(t, "T1", *ipe.UserTenant)
	require.NotNil(t, ipe.RequestTenant)
	assert.Equal(t, "T1", *ipe.RequestTenant)
}

func TestAuthorize_DenialCarriesNoPermissionBlob(t *testing.T) {
	e := NewEvaluator()
	subject := activeSubject(UserRoleUser, strptr("t1"))
	subject.RolePermissions = PermissionSet{}.Grant(ModuleFinancial, "view_costs")

	_, err := e.Authorize(boundContext("t1"), subject, ModuleFinancial, "edit_prices")
	require.Error(t, err)
	assert.NotContains(t, err.Error(), "view_costs")
}

func TestAuthorize_NilSubjectDenied(t *testing.T) {
	e := NewEvaluator()

	rule, err := e.Authorize(boundContext("t1"), nil, ModuleOrders, ActionView)
	require.Error(t, err)
	assert.Equal(t, RuleDeny, rule)
	assert.True(t, IsInsufficientPermission(err))
}

func TestAuthorize_UnregisteredPairFallsToDeny(t *testing.T) {
	e := NewEvaluator()
	subject := activeSubject(UserRoleUser, strptr("t1"))

	_, err := e.Authorize(boundContext("t1"), subject, "nonexistent", "anything")
	require.Error(t, err)
	assert.True(t, IsInsufficientPermission(err))
}
