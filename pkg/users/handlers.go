package users

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/almoud/foodcost/pkg/audit"
	"github.com/almoud/foodcost/pkg/auth"
	"github.com/almoud/foodcost/pkg/contextkeys"
	"github.com/almoud/foodcost/pkg/httputil"
	"github.com/almoud/foodcost/pkg/observability"
	"github.com/almoud/foodcost/pkg/rbac"
	"github.com/almoud/foodcost/pkg/tenant"
)

// Handlers exposes the user management endpoints. Operators see every user;
// everyone else is scoped to their tenant.
type Handlers struct {
	store    *Store
	recorder audit.Recorder
	logger   *observability.Logger
}

// NewHandlers creates the user management handlers.
func NewHandlers(store *Store, recorder audit.Recorder, logger *observability.Logger) *Handlers {
	return &Handlers{store: store, recorder: recorder, logger: logger}
}

// RegisterRoutes registers the user management routes. The guard enforces
// users permissions before any handler runs.
func (h *Handlers) RegisterRoutes(router *mux.Router, guard *rbac.PermissionMiddleware) {
	router.Handle("/users", guard.Require(rbac.ModuleUsers, rbac.ActionView)(http.HandlerFunc(h.ListUsers))).Methods("GET")
	router.Handle("/users", guard.Require(rbac.ModuleUsers, rbac.ActionCreate)(http.HandlerFunc(h.CreateUser))).Methods("POST")
	router.Handle("/users/{id}", guard.Require(rbac.ModuleUsers, rbac.ActionView)(http.HandlerFunc(h.GetUser))).Methods("GET")
	router.Handle("/users/{id}", guard.Require(rbac.ModuleUsers, rbac.ActionDelete)(http.HandlerFunc(h.DeleteUser))).Methods("DELETE")
	router.Handle("/users/{id}/role", guard.Require(rbac.ModuleUsers, rbac.ActionAssignRoles)(http.HandlerFunc(h.AssignRole))).Methods("PUT")
	router.Handle("/users/{id}/toggle-active", guard.Require(rbac.ModuleUsers, rbac.ActionEdit)(http.HandlerFunc(h.ToggleActive))).Methods("PUT")
}

// scope returns the tenant filter for the request. Super admins get a nil
// filter and operate across every tenant.
func scope(r *http.Request) (tenantID *string, global bool, ok bool) {
	tc, _ := r.Context().Value(contextkeys.TenantContextKey).(*tenant.Context)
	if tc == nil {
		return nil, false, false
	}
	if tc.IsSuperAdmin {
		return nil, true, true
	}
	if !tc.Bound() {
		return nil, false, false
	}
	return tc.TenantID, false, true
}

func actor(r *http.Request) *auth.Principal {
	principal, _ := r.Context().Value(contextkeys.PrincipalKey).(*auth.Principal)
	return principal
}

// ListUsers lists users within the caller's scope.
func (h *Handlers) ListUsers(w http.ResponseWriter, r *http.Request) {
	tenantID, global, ok := scope(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	users, err := h.store.List(r.Context(), tenantID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}

	context := "tenant"
	if global {
		context = "global"
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"users":   users,
		"count":   len(users),
		"context": context,
	})
}

// GetUser fetches a single user within the caller's scope.
func (h *Handlers) GetUser(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := scope(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	u, err := h.store.GetScoped(r.Context(), mux.Vars(r)["id"], tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"user": u})
}

// CreateUser creates a user in the caller's tenant. Super admins may create
// users for any tenant by passing tenantId.
func (h *Handlers) CreateUser(w http.ResponseWriter, r *http.Request) {
	tenantID, global, ok := scope(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		Name     string `json:"name"`
		Lastname string `json:"lastname"`
		RoleID   string `json:"roleId"`
		TenantID string `json:"tenantId"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Email == "" || req.Password == "" || req.Name == "" || req.Lastname == "" {
		httputil.WriteBadRequest(w, "email, password, name and lastname are required")
		return
	}

	target := tenantID
	if global && req.TenantID != "" {
		target = &req.TenantID
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
		TenantID:     target,
		IsActive:     true,
	}
	if req.RoleID != "" {
		u.RoleID = &req.RoleID
	}
	if err := h.store.Create(r.Context(), u); err != nil {
		h.writeError(w, err)
		return
	}

	h.record(r, "users.create", u.ID, true)
	httputil.WriteCreated(w, map[string]interface{}{"user": u})
}

// AssignRole assigns a tenant role to a user. The role must belong to the
// user's tenant.
func (h *Handlers) AssignRole(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := scope(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	var req struct {
		RoleID string `json:"roleId"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.RoleID == "" {
		httputil.WriteBadRequest(w, "roleId is required")
		return
	}

	userID := mux.Vars(r)["id"]
	u, err := h.store.AssignRole(r.Context(), userID, req.RoleID, tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.record(r, "users.assign_role", userID, true)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "role assigned",
		"user":    u,
	})
}

// ToggleActive flips a user's active flag. Deactivated users fail every
// permission check on their next request.
func (h *Handlers) ToggleActive(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := scope(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	userID := mux.Vars(r)["id"]
	if principal := actor(r); principal != nil && principal.UserID == userID {
		httputil.WriteBadRequest(w, "cannot change your own active status")
		return
	}

	u, err := h.store.ToggleActive(r.Context(), userID, tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.record(r, "users.toggle_active", userID, true)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "user updated",
		"user":    u,
	})
}

// DeleteUser removes a user within the caller's scope.
func (h *Handlers) DeleteUser(w http.ResponseWriter, r *http.Request) {
	tenantID, _, ok := scope(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	userID := mux.Vars(r)["id"]
	if principal := actor(r); principal != nil && principal.UserID == userID {
		httputil.WriteBadRequest(w, "cannot delete your own account")
		return
	}

	if err := h.store.Delete(r.Context(), userID, tenantID); err != nil {
		h.writeError(w, err)
		return
	}

	h.record(r, "users.delete", userID, true)
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"message": "user deleted"})
}

func (h *Handlers) record(r *http.Request, action, resourceID string, success bool) {
	if h.recorder == nil {
		return
	}
	event := &audit.Event{
		Action:     action,
		Resource:   "user",
		ResourceID: resourceID,
		Success:    success,
	}
	if principal := actor(r); principal != nil {
		event.ActorID = principal.UserID
		event.ActorEmail = principal.Email
	}
	if tc, _ := r.Context().Value(contextkeys.TenantContextKey).(*tenant.Context); tc != nil {
		event.TenantID = tc.TenantID
	}
	h.recorder.Record(r.Context(), event)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch err {
	case ErrUserNotFound:
		httputil.WriteNotFound(w, "user not found")
	case ErrEmailTaken:
		httputil.WriteBadRequest(w, "email already registered")
	case ErrInvalidRole:
		httputil.WriteBadRequest(w, "role not found in this restaurant")
	default:
		httputil.WriteInternalError(w, err)
	}
}
