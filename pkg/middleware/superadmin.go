package middleware

import (
	"net/http"

	"github.com/almoud/foodcost/pkg/contextkeys"
	"github.com/almoud/foodcost/pkg/httputil"
	"github.com/almoud/foodcost/pkg/tenant"
)

// RequireSuperAdmin restricts a route to platform operators. Tenant
// lifecycle and audit endpoints sit behind it.
func RequireSuperAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tc, _ := r.Context().Value(contextkeys.TenantContextKey).(*tenant.Context)
		if tc == nil {
			httputil.WriteUnauthorized(w, "not authenticated")
			return
		}
		if !tc.IsSuperAdmin {
			httputil.WriteForbidden(w, "platform operator access required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
