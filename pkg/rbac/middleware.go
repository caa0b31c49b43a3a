package rbac

import (
	"context"
	"fmt"
	"net/http"

	"github.com/almoud/foodcost/pkg/audit"
	"github.com/almoud/foodcost/pkg/auth"
	"github.com/almoud/foodcost/pkg/contextkeys"
	"github.com/almoud/foodcost/pkg/httputil"
	"github.com/almoud/foodcost/pkg/observability"
	"github.com/almoud/foodcost/pkg/tenant"
)

// PermissionMiddleware guards routes with a required module/action pair.
type PermissionMiddleware struct {
	evaluator *Evaluator
	subjects  SubjectLoader
	matrix    *Matrix
	recorder  audit.Recorder
	logger    *observability.Logger
	metrics   *observability.Metrics
}

// NewPermissionMiddleware creates the route guard.
func NewPermissionMiddleware(subjects SubjectLoader, matrix *Matrix, recorder audit.Recorder, logger *observability.Logger, metrics *observability.Metrics) *PermissionMiddleware {
	return &PermissionMiddleware{
		evaluator: NewEvaluator(),
		subjects:  subjects,
		matrix:    matrix,
		recorder:  recorder,
		logger:    logger,
		metrics:   metrics,
	}
}

// Require returns middleware that allows the request only when the evaluator
// grants the module/action pair. Unregistered pairs panic here, at route
// registration, so a typo in a route guard fails at startup instead of
// silently denying forever.
func (m *PermissionMiddleware) Require(module Module, action Action) func(http.Handler) http.Handler {
	if !m.matrix.Contains(module, action) {
		panic(fmt.Sprintf("rbac: %s:%s is not in the permission matrix", module, action))
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			principal, _ := ctx.Value(contextkeys.PrincipalKey).(*auth.Principal)
			tc, _ := ctx.Value(contextkeys.TenantContextKey).(*tenant.Context)
			if principal == nil || tc == nil {
				httputil.WriteUnauthorized(w, "not authenticated")
				return
			}

			var subject *Subject
			if !tc.IsSuperAdmin {
				var err error
				subject, err = m.subjects.SubjectByID(ctx, principal.UserID)
				if err == ErrSubjectNotFound {
					m.deny(ctx, principal, tc, module, action, RuleInactiveUser)
					httputil.WriteForbidden(w, "user is inactive")
					return
				}
				if err != nil {
					m.logger.WithError(err).WithField("user_id", principal.UserID).Error("failed to load subject")
					httputil.WriteInternalError(w, fmt.Errorf("failed to verify permissions"))
					return
				}
			}

			rule, err := m.evaluator.Authorize(tc, subject, module, action)
			if err != nil {
				m.deny(ctx, principal, tc, module, action, rule)
				switch {
				case err == ErrUserInactive:
					httputil.WriteForbidden(w, "user is inactive")
				case IsInsufficientPermission(err):
					httputil.WriteForbidden(w, fmt.Sprintf("no permission for %s on %s", action, module))
				default:
					httputil.WriteForbidden(w, "access denied")
				}
				return
			}

			if m.metrics != nil {
				m.metrics.ObserveAuthzDecision(string(rule), true)
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *PermissionMiddleware) deny(ctx context.Context, principal *auth.Principal, tc *tenant.Context, module Module, action Action, rule Rule) {
	if m.metrics != nil {
		m.metrics.ObserveAuthzDecision(string(rule), false)
	}
	if m.recorder == nil {
		return
	}
	m.recorder.Record(ctx, &audit.Event{
		ActorID:    principal.UserID,
		ActorEmail: principal.Email,
		TenantID:   tc.TenantID,
		Action:     "authz.deny",
		Resource:   string(module),
		Success:    false,
		Message:    fmt.Sprintf("denied %s on %s by rule %s", action, module, rule),
	})
}
