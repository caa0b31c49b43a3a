package middleware

import (
	"net/http"
	"strings"

	"github.com/almoud/foodcost/pkg/auth"
	"github.com/almoud/foodcost/pkg/contextkeys"
	"github.com/almoud/foodcost/pkg/httputil"
	"github.com/almoud/foodcost/pkg/observability"
)

// AuthMiddleware authenticates requests from a bearer token and stores the
// resolved principal on the request context.
type AuthMiddleware struct {
	tokens *auth.TokenManager
	logger *observability.Logger
}

// NewAuthMiddleware creates the authentication middleware.
func NewAuthMiddleware(tokens *auth.TokenManager, logger *observability.Logger) *AuthMiddleware {
	return &AuthMiddleware{tokens: tokens, logger: logger}
}

// Handler rejects requests without a valid bearer token.
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			httputil.WriteUnauthorized(w, "authorization header required")
			return
		}

		credential := strings.TrimPrefix(header, "Bearer ")
		if credential == header {
			httputil.WriteUnauthorized(w, "authorization header must use the Bearer scheme")
			return
		}

		principal, err := m.tokens.Resolve(credential)
		if err != nil {
			m.logger.WithError(err).Debug("credential rejected")
			httputil.WriteUnauthorized(w, "invalid or expired token")
			return
		}

		ctx := contextkeys.WithPrincipal(r.Context(), principal)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
