package tenant

import (
	"context"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/almoud/foodcost/pkg/audit"
	"github.com/almoud/foodcost/pkg/auth"
	"github.com/almoud/foodcost/pkg/contextkeys"
	"github.com/almoud/foodcost/pkg/httputil"
	"github.com/almoud/foodcost/pkg/observability"
)

// AdminSpec describes the first admin account of a newly provisioned tenant.
type AdminSpec struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

// AdminSeeder creates the initial admin user for a tenant. Implemented by the
// users store; declared here so the tenant package does not depend on it.
type AdminSeeder interface {
	SeedAdmin(ctx context.Context, tenantID string, spec AdminSpec) (string, error)
}

// RoleSeeder provisions the default role set for a tenant. Implemented by the
// rbac store.
type RoleSeeder interface {
	SeedDefaultRoles(ctx context.Context, tenantID, createdBy string) (int, error)
}

// Handlers provides the operator-facing tenant management endpoints. All of
// them sit behind super admin authorization.
type Handlers struct {
	store    *Store
	cache    *CachingDirectory
	admins   AdminSeeder
	roles    RoleSeeder
	recorder audit.Recorder
	logger   *observability.Logger
	metrics  *observability.Metrics
}

// NewHandlers creates new tenant management handlers.
func NewHandlers(store *Store, cache *CachingDirectory, admins AdminSeeder, roles RoleSeeder, recorder audit.Recorder, logger *observability.Logger, metrics *observability.Metrics) *Handlers {
	return &Handlers{
		store:    store,
		cache:    cache,
		admins:   admins,
		roles:    roles,
		recorder: recorder,
		logger:   logger,
		metrics:  metrics,
	}
}

// RegisterRoutes registers all tenant management routes
func (h *Handlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/tenants", h.CreateTenant).Methods("POST")
	router.HandleFunc("/tenants", h.ListTenants).Methods("GET")
	router.HandleFunc("/tenants/{id}", h.GetTenant).Methods("GET")
	router.HandleFunc("/tenants/{id}", h.UpdateTenant).Methods("PUT")
	router.HandleFunc("/tenants/{id}", h.DeleteTenant).Methods("DELETE")
	router.HandleFunc("/tenants/{id}/stats", h.GetTenantStats).Methods("GET")
	router.HandleFunc("/tenants/{id}/activate", h.ActivateTenant).Methods("POST")
	router.HandleFunc("/tenants/{id}/suspend", h.SuspendTenant).Methods("POST")
	router.HandleFunc("/tenants/{id}/deactivate", h.DeactivateTenant).Methods("POST")
}

// CreateTenant provisions a new tenant: the tenant record, its default role
// set and its first admin user.
func (h *Handlers) CreateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req struct {
		Subdomain string         `json:"subdomain"`
		Name      string         `json:"name"`
		Plan      Plan           `json:"plan"`
		Settings  map[string]any `json:"settings,omitempty"`
		Admin     AdminSpec      `json:"admin"`
	}
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	if req.Subdomain == "" || req.Name == "" {
		httputil.WriteBadRequest(w, "subdomain and name are required")
		return
	}
	if req.Admin.Email == "" || req.Admin.Password == "" {
		httputil.WriteBadRequest(w, "admin email and password are required")
		return
	}

	t := &Tenant{
		Subdomain: req.Subdomain,
		Name:      req.Name,
		Plan:      req.Plan,
		Settings:  req.Settings,
	}
	if err := h.store.Create(ctx, t); err != nil {
		h.writeError(w, err)
		return
	}

	rolesCreated, err := h.roles.SeedDefaultRoles(ctx, t.ID, "")
	if err != nil {
		h.logger.WithError(err).WithField("tenant_id", t.ID).Error("failed to seed default roles")
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "failed to provision tenant roles")
		return
	}

	adminID, err := h.admins.SeedAdmin(ctx, t.ID, req.Admin)
	if err != nil {
		h.logger.WithError(err).WithField("tenant_id", t.ID).Error("failed to create tenant admin")
		httputil.WriteErrorMessage(w, http.StatusInternalServerError, "failed to provision tenant admin")
		return
	}

	h.record(ctx, "tenant.create", t.ID, true)
	h.logger.WithFields(map[string]interface{}{
		"tenant_id": t.ID,
		"subdomain": t.Subdomain,
		"roles":     rolesCreated,
	}).Info("tenant provisioned")

	httputil.WriteCreated(w, map[string]interface{}{
		"tenant":      t,
		"adminUserId": adminID,
		"rolesSeeded": rolesCreated,
	})
}

// ListTenants lists all tenants.
func (h *Handlers) ListTenants(w http.ResponseWriter, r *http.Request) {
	tenants, err := h.store.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, tenants)
}

// GetTenant retrieves a specific tenant.
func (h *Handlers) GetTenant(w http.ResponseWriter, r *http.Request) {
	t, err := h.store.GetByID(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, t)
}

// UpdateTenant applies partial changes. The subdomain cannot change.
func (h *Handlers) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req UpdateRequest
	if !httputil.ParseJSONOrError(w, r, &req) {
		return
	}

	t, err := h.store.Update(ctx, id, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.invalidate(t.Subdomain)
	h.record(ctx, "tenant.update", id, true)
	httputil.WriteJSON(w, http.StatusOK, t)
}

// GetTenantStats summarizes a tenant's users and roles.
func (h *Handlers) GetTenantStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		h.writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}

// ActivateTenant transitions a tenant to active and reactivates its users.
func (h *Handlers) ActivateTenant(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, StatusActive, "tenant.activate")
}

// SuspendTenant transitions a tenant to suspended and deactivates its users.
func (h *Handlers) SuspendTenant(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, StatusSuspended, "tenant.suspend")
}

// DeactivateTenant transitions a tenant to inactive and deactivates its users.
func (h *Handlers) DeactivateTenant(w http.ResponseWriter, r *http.Request) {
	h.setStatus(w, r, StatusInactive, "tenant.deactivate")
}

func (h *Handlers) setStatus(w http.ResponseWriter, r *http.Request, status Status, action string) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	t, err := h.store.SetStatus(ctx, id, status)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.invalidate(t.Subdomain)
	h.record(ctx, action, id, true)
	httputil.WriteJSON(w, http.StatusOK, t)
}

// DeleteTenant permanently removes a tenant and everything it owns. The
// caller must send {"confirmDelete": true} to go through with it.
func (h *Handlers) DeleteTenant(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := mux.Vars(r)["id"]

	var req struct {
		ConfirmDelete bool `json:"confirmDelete"`
	}
	if err := httputil.ParseJSON(r, &req); err != nil || !req.ConfirmDelete {
		httputil.WriteBadRequest(w, "confirmDelete must be true to delete a tenant")
		return
	}

	t, err := h.store.GetByID(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	result, err := h.store.Delete(ctx, id)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.invalidate(t.Subdomain)
	h.record(ctx, "tenant.delete", id, true)
	h.logger.WithFields(map[string]interface{}{
		"tenant_id":     id,
		"users_deleted": result.Users,
		"roles_deleted": result.Roles,
	}).Info("tenant deleted")

	httputil.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"message": "tenant deleted",
		"deleted": result,
	})
}

func (h *Handlers) invalidate(subdomain string) {
	if h.cache != nil {
		h.cache.Invalidate(subdomain)
	}
}

func (h *Handlers) record(ctx context.Context, action, tenantID string, success bool) {
	if h.recorder == nil {
		return
	}
	event := &audit.Event{
		Action:     action,
		Resource:   "tenant",
		ResourceID: tenantID,
		Success:    success,
	}
	if p, ok := ctx.Value(contextkeys.PrincipalKey).(*auth.Principal); ok && p != nil {
		event.ActorID = p.UserID
		event.ActorEmail = p.Email
	}
	h.recorder.Record(ctx, event)
}

func (h *Handlers) writeError(w http.ResponseWriter, err error) {
	switch {
	case err == ErrTenantNotFound:
		httputil.WriteNotFound(w, "tenant not found")
	case err == ErrSubdomainTaken:
		httputil.WriteConflict(w, "subdomain is already taken")
	case err == ErrSubdomainReserved:
		httputil.WriteBadRequest(w, "subdomain is reserved")
	case err == ErrSubdomainInvalid:
		httputil.WriteBadRequest(w, "subdomain may only contain lowercase letters, digits and hyphens")
	case IsDirectoryUnavailable(err):
		httputil.WriteServiceUnavailable(w, "tenant directory unavailable")
	default:
		httputil.WriteInternalError(w, err)
	}
}
