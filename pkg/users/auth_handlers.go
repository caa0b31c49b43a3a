package users

import (
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/almoud/foodcost/pkg/audit"
	"github.com/almoud/foodcost/pkg/auth"
	"github.com/almoud/foodcost/pkg/contextkeys"
	"github.com/almoud/foodcost/pkg/httputil"
	"github.com/almoud/foodcost/pkg/observability"
	"github.com/almoud/foodcost/pkg/rbac"
	"github.com/almoud/foodcost/pkg/tenant"
)

// AuthHandlers provides registration, login and profile endpoints. Tokens
// are issued with the tenant identity and super admin flag resolved once,
// here, from the email domain; requests then re-derive and cross-check.
type AuthHandlers struct {
	store      *Store
	tokens     *auth.TokenManager
	directory  tenant.Directory
	rootDomain string
	recorder   audit.Recorder
	logger     *observability.Logger
	metrics    *observability.Metrics
}

// NewAuthHandlers creates the authentication handlers.
func NewAuthHandlers(store *Store, tokens *auth.TokenManager, directory tenant.Directory, rootDomain string, recorder audit.Recorder, logger *observability.Logger, metrics *observability.Metrics) *AuthHandlers {
	return &AuthHandlers{
		store:      store,
		tokens:     tokens,
		directory:  directory,
		rootDomain: rootDomain,
		recorder:   recorder,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterRoutes registers the auth routes
func (h *AuthHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/auth/register", h.Register).Methods("POST")
	router.HandleFunc("/auth/login", h.Login).Methods("POST")
}

// RegisterProtectedRoutes registers routes that need an authenticated
// principal.
func (h *AuthHandlers) RegisterProtectedRoutes(router *mux.Router) {
	router.HandleFunc("/auth/profile", h.Profile).Methods("GET")
}

// emailDomain returns the lowercased domain of an email, or "" when the
// email has no usable domain.
func emailDomain(email string) string {
	at := strings.LastIndex(email, "@")
	if at < 0 || at == len(email)-1 {
		return ""
	}
	return strings.ToLower(email[at+1:])
}

// Register creates an account. The email domain decides where the account
// lands: the root domain registers an operator, a tenant subdomain registers
// a member of that tenant, anything else is rejected.
func (h *AuthHandlers) Register(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Lastname string `json:"lastname"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Lastname == "" {
		httputil.WriteBadRequest(w, "email, password, name and lastname are required")
		return
	}

	domain := emailDomain(req.Email)
	isRoot := domain == h.rootDomain
	if !isRoot && !strings.HasSuffix(domain, "."+h.rootDomain) {
		httputil.WriteBadRequest(w, "email must use a @<restaurant>."+h.rootDomain+" or @"+h.rootDomain+" domain")
		return
	}

	var tenantID *string
	if !isRoot {
		subdomain := domain[:strings.Index(domain, ".")]
		t, err := h.directory.TenantBySubdomain(ctx, subdomain)
		if err == tenant.ErrTenantNotFound {
			httputil.WriteBadRequest(w, "restaurant not found")
			return
		}
		if err != nil {
			httputil.WriteServiceUnavailable(w, "tenant directory unavailable")
			return
		}
		tenantID = &t.ID
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	u := &User{
		Email:        req.Email,
		PasswordHash: hash,
		Name:         req.Name,
		Lastname:     req.Lastname,
		Role:         rbac.UserRoleUser,
		TenantID:     tenantID,
		IsActive:     true,
	}
	if err := h.store.Create(ctx, u); err == ErrEmailTaken {
		httputil.WriteBadRequest(w, "email already registered")
		return
	} else if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	token, err := h.tokens.Issue(u.ID, u.Email, derefOrEmpty(tenantID), isRoot)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	h.logger.WithFields(map[string]interface{}{
		"user_id": u.ID,
		"email":   u.Email,
	}).Info("user registered")

	httputil.WriteCreated(w, map[string]interface{}{
		"message": "user registered",
		"token":   token,
		"user":    u,
	})
}

// Login verifies credentials and issues a token carrying the resolved tenant
// identity.
func (h *AuthHandlers) Login(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" {
		httputil.WriteBadRequest(w, "email and password are required")
		return
	}

	u, err := h.store.GetByEmail(ctx, req.Email)
	if err == ErrUserNotFound {
		h.loginFailed(req.Email, "unknown email")
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if !u.IsActive {
		h.loginFailed(req.Email, "inactive account")
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}
	if !auth.CheckPassword(u.PasswordHash, req.Password) {
		h.loginFailed(req.Email, "wrong password")
		httputil.WriteUnauthorized(w, "invalid credentials")
		return
	}

	if err := h.store.RecordLogin(ctx, u.ID); err != nil {
		h.logger.WithError(err).WithField("user_id", u.ID).Warn("failed to record login time")
	}

	isSuperAdmin := emailDomain(u.Email) == h.rootDomain
	token, err := h.tokens.Issue(u.ID, u.Email, derefOrEmpty(u.TenantID), isSuperAdmin)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	if h.metrics != nil {
		h.metrics.ObserveLogin("success")
	}
	if h.recorder != nil {
		h.recorder.Record(ctx, &audit.Event{
			ActorID:    u.ID,
			ActorEmail: u.Email,
			TenantID:   u.TenantID,
			Action:     "auth.login",
			Resource:   "user",
			ResourceID: u.ID,
			Success:    true,
		})
	}

	dashboardType := "tenant"
	if isSuperAdmin {
		dashboardType = "super-admin"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message":       "login successful",
		"token":         token,
		"user":          u,
		"dashboardType": dashboardType,
	})
}

// Profile returns the authenticated user's record.
func (h *AuthHandlers) Profile(w http.ResponseWriter, r *http.Request) {
	principal, _ := r.Context().Value(contextkeys.PrincipalKey).(*auth.Principal)
	if principal == nil {
		httputil.WriteUnauthorized(w, "not authenticated")
		return
	}

	u, err := h.store.GetByID(r.Context(), principal.UserID)
	if err == ErrUserNotFound {
		httputil.WriteNotFound(w, "user not found")
		return
	}
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}

func (h *AuthHandlers) loginFailed(email, reason string) {
	if h.metrics != nil {
		h.metrics.ObserveLogin("failure")
	}
	h.logger.WithFields(map[string]interface{}{
		"email":  email,
		"reason": reason,
	}).Warn("login failed")
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
