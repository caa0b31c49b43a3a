package tenant

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almoud/foodcost/pkg/auth"
)

type fakeDirectory struct {
	tenants map[string]*Tenant
	err     error
	lookups int
}

func (d *fakeDirectory) TenantBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	d.lookups++
	if d.err != nil {
		return nil, d.err
	}
	t, ok := d.tenants[subdomain]
	if !ok {
		return nil, ErrTenantNotFound
	}
	return t, nil
}

func newFakeDirectory() *fakeDirectory {
	return &fakeDirectory{
		tenants: map[string]*Tenant{
			"bistro": {ID: "t-bistro", Subdomain: "bistro", Name: "Bistro Central", Status: StatusActive},
			"frozen": {ID: "t-frozen", Subdomain: "frozen", Name: "Frozen Spoon", Status: StatusSuspended},
			"closed": {ID: "t-closed", Subdomain: "closed", Name: "Closed Kitchen", Status: StatusInactive},
		},
	}
}

func principal(email string) *auth.Principal {
	return &auth.Principal{UserID: "u1", Email: email}
}

func TestResolve_RootDomainSuperAdmin(t *testing.T) {
	r := NewResolver(newFakeDirectory(), "almoud.pe")

	tc, err := r.Resolve(context.Background(), principal("ops@almoud.pe"), "")
	require.NoError(t, err)
	assert.True(t, tc.IsSuperAdmin)
	assert.Nil(t, tc.TenantID)
	assert.False(t, tc.Bound())
}

func TestResolve_RootDomainSuperAdminWithHint(t *testing.T) {
	r := NewResolver(newFakeDirectory(), "almoud.pe")

	tc, err := r.Resolve(context.Background(), principal("ops@almoud.pe"), "t-bistro")
	require.NoError(t, err)
	assert.True(t, tc.IsSuperAdmin)
	require.NotNil(t, tc.TenantID)
	assert.Equal(t, "t-bistro", *tc.TenantID)
	assert.True(t, tc.Bound())
}

func TestResolve_ActiveTenant(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, "almoud.pe")

	tc, err := r.Resolve(context.Background(), principal("chef@bistro.almoud.pe"), "")
	require.NoError(t, err)
	assert.False(t, tc.IsSuperAdmin)
	require.NotNil(t, tc.TenantID)
	assert.Equal(t, "t-bistro", *tc.TenantID)
	assert.Equal(t, "bistro", tc.TenantSubdomain)
}

func TestResolve_SuspendedTenant(t *testing.T) {
	r := NewResolver(newFakeDirectory(), "almoud.pe")

	_, err := r.Resolve(context.Background(), principal("chef@frozen.almoud.pe"), "")
	assert.ErrorIs(t, err, ErrTenantSuspended)
}

func TestResolve_InactiveTenant(t *testing.T) {
	r := NewResolver(newFakeDirectory(), "almoud.pe")

	_, err := r.Resolve(context.Background(), principal("chef@closed.almoud.pe"), "")
	assert.ErrorIs(t, err, ErrTenantSuspended)
}

func TestResolve_UnknownTenant(t *testing.T) {
	r := NewResolver(newFakeDirectory(), "almoud.pe")

	_, err := r.Resolve(context.Background(), principal("chef@ghost.almoud.pe"), "")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestResolve_UnboundDomain(t *testing.T) {
	r := NewResolver(newFakeDirectory(), "almoud.pe")

	tc, err := r.Resolve(context.Background(), principal("someone@gmail.com"), "")
	require.NoError(t, err)
	assert.False(t, tc.IsSuperAdmin)
	assert.False(t, tc.Bound())
	assert.Empty(t, tc.TenantSubdomain)
}

func TestResolve_MalformedEmail(t *testing.T) {
	r := NewResolver(newFakeDirectory(), "almoud.pe")

	for _, email := range []string{"no-at-sign", "trailing@", ""} {
		_, err := r.Resolve(context.Background(), principal(email), "")
		assert.ErrorIs(t, err, ErrMalformedEmail, "email %q", email)
	}
}

func TestResolve_DomainCaseInsensitive(t *testing.T) {
	r := NewResolver(newFakeDirectory(), "almoud.pe")

	tc, err := r.Resolve(context.Background(), principal("Chef@BISTRO.Almoud.PE"), "")
	require.NoError(t, err)
	require.NotNil(t, tc.TenantID)
	assert.Equal(t, "t-bistro", *tc.TenantID)
}

func TestResolve_ClaimMismatch(t *testing.T) {
	r := NewResolver(newFakeDirectory(), "almoud.pe")

	p := principal("chef@bistro.almoud.pe")
	p.TenantClaim = "t-other"
	_, err := r.Resolve(context.Background(), p, "")
	assert.ErrorIs(t, err, ErrTenantMismatch)
}

func TestResolve_ClaimMatch(t *testing.T) {
	r := NewResolver(newFakeDirectory(), "almoud.pe")

	p := principal("chef@bistro.almoud.pe")
	p.TenantClaim = "t-bistro"
	tc, err := r.Resolve(context.Background(), p, "")
	require.NoError(t, err)
	assert.Equal(t, "t-bistro", *tc.TenantID)
}

func TestResolve_DirectoryOutage(t *testing.T) {
	dir := newFakeDirectory()
	dir.err = &DirectoryError{Op: "tenant lookup", Err: errors.New("connection refused")}
	r := NewResolver(dir, "almoud.pe")

	_, err := r.Resolve(context.Background(), principal("chef@bistro.almoud.pe"), "")
	require.Error(t, err)
	assert.True(t, IsDirectoryUnavailable(err))
	assert.NotErrorIs(t, err, ErrTenantNotFound)
}

func TestResolve_Idempotent(t *testing.T) {
	dir := newFakeDirectory()
	r := NewResolver(dir, "almoud.pe")
	p := principal("chef@bistro.almoud.pe")

	first, err := r.Resolve(context.Background(), p, "")
	require.NoError(t, err)
	second, err := r.Resolve(context.Background(), p, "")
	require.NoError(t, err)

	assert.Equal(t, *first.TenantID, *second.TenantID)
	assert.Equal(t, first.TenantSubdomain, second.TenantSubdomain)
	assert.Equal(t, first.IsSuperAdmin, second.IsSuperAdmin)
}

func TestResolve_SubdomainIsLeadingLabelOnly(t *testing.T) {
	dir := newFakeDirectory()
	dir.tenants["deep"] = &Tenant{ID: "t-deep", Subdomain: "deep", Status: StatusActive}
	r := NewResolver(dir, "almoud.pe")

	// The leading label decides the tenant even with extra labels in between.
	tc, err := r.Resolve(context.Background(), principal("a@deep.kitchen.almoud.pe"), "")
	require.NoError(t, err)
	assert.Equal(t, "t-deep", *tc.TenantID)
}
