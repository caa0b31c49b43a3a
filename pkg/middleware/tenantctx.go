package middleware

import (
	"net/http"

	"github.com/almoud/foodcost/pkg/auth"
	"github.com/almoud/foodcost/pkg/contextkeys"
	"github.com/almoud/foodcost/pkg/httputil"
	"github.com/almoud/foodcost/pkg/observability"
	"github.com/almoud/foodcost/pkg/tenant"
)

// TenantContextMiddleware resolves the tenant scope for every authenticated
// request and stores it on the context. It must run after AuthMiddleware.
type TenantContextMiddleware struct {
	resolver *tenant.Resolver
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewTenantContextMiddleware creates the tenant resolution middleware.
func NewTenantContextMiddleware(resolver *tenant.Resolver, logger *observability.Logger, metrics *observability.Metrics) *TenantContextMiddleware {
	return &TenantContextMiddleware{resolver: resolver, logger: logger, metrics: metrics}
}

// Handler derives the tenant context from the principal's email domain.
// Super admins may select a tenant with a "tenantId" query or body field.
func (m *TenantContextMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal, _ := r.Context().Value(contextkeys.PrincipalKey).(*auth.Principal)
		if principal == nil {
			httputil.WriteUnauthorized(w, "not authenticated")
			return
		}

		hint := r.URL.Query().Get("tenantId")
		if hint == "" {
			hint = httputil.PeekBodyField(r, "tenantId")
		}

		tc, err := m.resolver.Resolve(r.Context(), principal, hint)
		if err != nil {
			m.writeResolveError(w, principal, err)
			return
		}

		m.observe(tc)
		ctx := contextkeys.WithTenantContext(r.Context(), tc)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (m *TenantContextMiddleware) observe(tc *tenant.Context) {
	if m.metrics == nil {
		return
	}
	switch {
	case tc.IsSuperAdmin:
		m.metrics.ObserveTenantResolution("super_admin")
	case tc.Bound():
		m.metrics.ObserveTenantResolution("bound")
	default:
		m.metrics.ObserveTenantResolution("unbound")
	}
}

func (m *TenantContextMiddleware) writeResolveError(w http.ResponseWriter, principal *auth.Principal, err error) {
	outcome := "error"
	defer func() {
		if m.metrics != nil {
			m.metrics.ObserveTenantResolution(outcome)
		}
	}()

	switch {
	case err == tenant.ErrMalformedEmail:
		outcome = "malformed_email"
		httputil.WriteBadRequest(w, "email address has no usable domain")
	case err == tenant.ErrTenantNotFound:
		outcome = "not_found"
		httputil.WriteNotFound(w, "no restaurant registered for this domain")
	case err == tenant.ErrTenantSuspended:
		outcome = "suspended"
		httputil.WriteForbidden(w, "restaurant is suspended")
	case err == tenant.ErrTenantMismatch:
		outcome = "mismatch"
		m.logger.WithField("user_id", principal.UserID).Warn("credential tenant does not match email domain")
		httputil.WriteForbidden(w, "credential does not match this restaurant")
	case tenant.IsDirectoryUnavailable(err):
		outcome = "directory_error"
		m.logger.WithError(err).Error("tenant directory unavailable")
		httputil.WriteServiceUnavailable(w, "tenant directory unavailable")
	default:
		m.logger.WithError(err).Error("tenant resolution failed")
		httputil.WriteInternalError(w, err)
	}
}
