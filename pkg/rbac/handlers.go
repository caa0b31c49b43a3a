package rbac

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/almoud/foodcost/pkg/auth"
	"github.com/almoud/foodcost/pkg/contextkeys"
	"github.com/almoud/foodcost/pkg/httputil"
	"github.com/almoud/foodcost/pkg/tenant"
)

// Handlers provides the role management endpoints. All of them operate
// inside the request's resolved tenant.
type Handlers struct {
	store *Store
}

// NewHandlers creates role management handlers.
func NewHandlers(store *Store) *Handlers {
	return &Handlers{store: store}
}

// RegisterRoutes registers the role routes. Reading roles needs users:view,
// changing them needs users:assign_roles.
func (h *Handlers) RegisterRoutes(router *mux.Router, guard *PermissionMiddleware) {
	router.Handle("/roles", guard.Require(ModuleUsers, ActionView)(http.HandlerFunc(h.ListRoles))).Methods("GET")
	router.Handle("/roles", guard.Require(ModuleUsers, ActionAssignRoles)(http.HandlerFunc(h.CreateRole))).Methods("POST")
	router.Handle("/roles/{id}", guard.Require(ModuleUsers, ActionView)(http.HandlerFunc(h.GetRole))).Methods("GET")
	router.Handle("/roles/{id}", guard.Require(ModuleUsers, ActionAssignRoles)(http.HandlerFunc(h.UpdateRole))).Methods("PUT")
	router.Handle("/roles/{id}", guard.Require(ModuleUsers, ActionAssignRoles)(http.HandlerFunc(h.DeleteRole))).Methods("DELETE")
	router.Handle("/permissions/matrix", guard.Require(ModuleUsers, ActionView)(http.HandlerFunc(h.GetPermissionMatrix))).Methods("GET")
}

func requestTenantID(r *http.Request) (string, bool) {
	tc, _ := r.Context().Value(contextkeys.TenantContextKey).(*tenant.Context)
	if tc == nil || tc.TenantID == nil {
		return "", false
	}
	return *tc.TenantID, true
}

// ListRoles lists the tenant's roles.
func (h *Handlers) ListRoles(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenantID(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	roles, err := h.store.ListRoles(r.Context(), tenantID)
	if err != nil {
		httputil.WriteInternalError(w, err)
		return
	}
	if roles == nil {
		roles = []*Role{}
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{"roles": roles})
}

// GetRole retrieves one role.
func (h *Handlers) GetRole(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenantID(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	role, err := h.store.GetRole(r.Context(), mux.Vars(r)["id"], tenantID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, role)
}

// CreateRole creates a custom role for the tenant.
func (h *Handlers) CreateRole(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenantID(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	var req struct {
		Name        string        `json:"name"`
		Description string        `json:"description"`
		Permissions PermissionSet `json:"permissions"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}
	if req.Name == "" || req.Permissions == nil {
		httputil.WriteBadRequest(w, "name and permissions are required")
		return
	}

	role := &Role{
		TenantID:    tenantID,
		Name:        req.Name,
		Description: req.Description,
		Permissions: req.Permissions,
		IsCustom:    true,
		IsActive:    true,
	}
	if p, ok := r.Context().Value(contextkeys.PrincipalKey).(*auth.Principal); ok && p != nil {
		role.CreatedBy = p.UserID
	}

	if err := h.store.CreateRole(r.Context(), role); err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteCreated(w, role)
}

// UpdateRole applies partial changes to a role.
func (h *Handlers) UpdateRole(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenantID(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	var update RoleUpdate
	if !httputil.ParseJSONOrError(w, r, &update) {
		return
	}

	role, err := h.store.UpdateRole(r.Context(), mux.Vars(r)["id"], tenantID, update)
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, role)
}

// DeleteRole removes a role that no user references.
func (h *Handlers) DeleteRole(w http.ResponseWriter, r *http.Request) {
	tenantID, ok := requestTenantID(r)
	if !ok {
		httputil.WriteForbidden(w, "no tenant bound to request")
		return
	}

	if err := h.store.DeleteRole(r.Context(), mux.Vars(r)["id"], tenantID); err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteNoContent(w)
}

// GetPermissionMatrix returns the full module/action registry for permission
// editor UIs.
func (h *Handlers) GetPermissionMatrix(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"permissions": h.store.Matrix().Snapshot(),
	})
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case err == ErrRoleNotFound:
		httputil.WriteNotFound(w, "role not found")
	case err == ErrRoleExists:
		httputil.WriteConflict(w, "a role with that name already exists")
	case IsUnknownPermission(err):
		httputil.WriteBadRequest(w, err.Error())
	case IsRoleInUse(err):
		httputil.WriteBadRequest(w, err.Error())
	default:
		httputil.WriteInternalError(w, err)
	}
}
