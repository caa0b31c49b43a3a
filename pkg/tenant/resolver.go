package tenant

import (
	"context"
	"strings"

	"github.com/almoud/foodcost/pkg/auth"
)

// Directory is the read side of the identity directory consumed during
// tenant resolution.
type Directory interface {
	// TenantBySubdomain returns the tenant owning a subdomain, or
	// ErrTenantNotFound. Infrastructure failures surface as *DirectoryError.
	TenantBySubdomain(ctx context.Context, subdomain string) (*Tenant, error)
}

// Resolver derives the effective tenant scope for a request from the
// authenticated principal's email domain. It runs on every authenticated
// request, before any tenant- or permission-scoped operation.
type Resolver struct {
	dir        Directory
	rootDomain string
}

// NewResolver creates a resolver bound to the operator's root domain
// (e.g. "almoud.pe").
func NewResolver(dir Directory, rootDomain string) *Resolver {
	return &Resolver{
		dir:        dir,
		rootDomain: strings.ToLower(rootDomain),
	}
}

// Resolve determines the tenant context for a principal.
//
// The hint is an optional tenant ID supplied out-of-band (query or body
// parameter "tenantId") and only honored for super admins, who operate
// without a bound tenant unless one is explicitly selected.
//
// Resolution is idempotent and has no side effects beyond the directory read.
func (r *Resolver) Resolve(ctx context.Context, principal *auth.Principal, hint string) (*Context, error) {
	at := strings.Index(principal.Email, "@")
	if at < 0 || at == len(principal.Email)-1 {
		return nil, ErrMalformedEmail
	}
	domain := strings.ToLower(principal.Email[at+1:])

	// Operator domain: super admin, unbound unless a tenant was selected.
	if domain == r.rootDomain {
		tc := &Context{IsSuperAdmin: true}
		if hint != "" {
			id := hint
			tc.TenantID = &id
		}
		return tc, nil
	}

	// Tenant domain: <subdomain>.<rootDomain>
	if strings.HasSuffix(domain, "."+r.rootDomain) {
		subdomain := domain[:strings.Index(domain, ".")]

		t, err := r.dir.TenantBySubdomain(ctx, subdomain)
		if err != nil {
			// ErrTenantNotFound and *DirectoryError pass through unchanged;
			// collapsing an outage into "not found" would misclassify a
			// security-relevant failure.
			return nil, err
		}

		if t.Status != StatusActive {
			return nil, ErrTenantSuspended
		}

		if principal.TenantClaim != "" && principal.TenantClaim != t.ID {
			return nil, ErrTenantMismatch
		}

		id := t.ID
		return &Context{
			TenantID:        &id,
			TenantSubdomain: subdomain,
		}, nil
	}

	// Domain matches neither pattern: no tenant bound. Tenant-scoped
	// operations must reject this context.
	return &Context{}, nil
}
