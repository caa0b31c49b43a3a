package middleware

import (
	"net/http"

	"github.com/almoud/foodcost/pkg/contextkeys"
	"github.com/almoud/foodcost/pkg/httputil"
	"github.com/almoud/foodcost/pkg/tenant"
)

// RequireTenant rejects requests whose resolved context has no tenant bound.
// Super admins pass regardless; their tenant-scoped handlers decide how to
// treat an unselected tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, _ := r.Context().Value(contextkeys.TenantContextKey).(*tenant.Context)
		if tc == nil {
			httputil.WriteUnauthorized(w, "not authenticated")
			return
		}
		if !tc.IsSuperAdmin && !tc.Bound() {
			httputil.WriteForbidden(w, "no restaurant associated with this account")
			return
		}
		next.ServeHTTP(w, r)
	})
}
