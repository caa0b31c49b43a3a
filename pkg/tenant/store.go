package tenant

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	"github.com/google/uuid"
)

// subdomainPattern is the allowed subdomain syntax: lowercase alphanumerics
// and hyphens.
var subdomainPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// reservedSubdomains are never available to tenants.
var reservedSubdomains = map[string]bool{
	"admin":     true,
	"api":       true,
	"www":       true,
	"mail":      true,
	"ftp":       true,
	"localhost": true,
	"almoud":    true,
}

// ValidateSubdomain checks subdomain syntax and reserved words.
func ValidateSubdomain(subdomain string) error {
	if !subdomainPattern.MatchString(subdomain) {
		return ErrSubdomainInvalid
	}
	if reservedSubdomains[subdomain] {
		return ErrSubdomainReserved
	}
	return nil
}

// Store handles tenant persistence. It implements Directory for the resolver.
type Store struct {
	db *sql.DB
}

// NewStore creates a new tenant store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// TenantBySubdomain returns the tenant owning a subdomain.
func (s *Store) TenantBySubdomain(ctx context.Context, subdomain string) (*Tenant, error) {
	query := `
		SELECT id, subdomain, name, plan, status, settings, subscription, created_at, updated_at
		FROM tenants
		WHERE subdomain = $1
	`
	t, err := scanTenant(s.db.QueryRowContext(ctx, query, subdomain))
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, &DirectoryError{Op: "tenant lookup", Err: err}
	}
	return t, nil
}

// GetByID retrieves a tenant by ID.
func (s *Store) GetByID(ctx context.Context, id string) (*Tenant, error) {
	query := `
		SELECT id, subdomain, name, plan, status, settings, subscription, created_at, updated_at
		FROM tenants
		WHERE id = $1
	`
	t, err := scanTenant(s.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, ErrTenantNotFound
	}
	if err != nil {
		return nil, &DirectoryError{Op: "tenant lookup", Err: err}
	}
	return t, nil
}

// List returns all tenants, newest first.
func (s *Store) List(ctx context.Context) ([]*Tenant, error) {
	query := `
		SELECT id, subdomain, name, plan, status, settings, subscription, created_at, updated_at
		FROM tenants
		ORDER BY created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, &DirectoryError{Op: "tenant list", Err: err}
	}
	defer rows.Close()

	var tenants []*Tenant
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return nil, &DirectoryError{Op: "tenant list", Err: err}
		}
		tenants = append(tenants, t)
	}
	return tenants, rows.Err()
}

// Create inserts a new tenant. The subdomain is validated and must be unique;
// default settings and subscription are filled in when absent.
func (s *Store) Create(ctx context.Context, t *Tenant) error {
	if err := ValidateSubdomain(t.Subdomain); err != nil {
		return err
	}

	existing, err := s.TenantBySubdomain(ctx, t.Subdomain)
	if err != nil && err != ErrTenantNotFound {
		return err
	}
	if existing != nil {
		return ErrSubdomainTaken
	}

	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if t.Plan == "" {
		t.Plan = PlanBasic
	}
	if t.Status == "" {
		t.Status = StatusActive
	}
	now := time.Now()
	if t.Settings == nil {
		t.Settings = DefaultSettings(t.Plan)
	}
	if t.Subscription == nil {
		t.Subscription = DefaultSubscription(now)
	}

	settingsJSON, err := json.Marshal(t.Settings)
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	subscriptionJSON, err := json.Marshal(t.Subscription)
	if err != nil {
		return fmt.Errorf("failed to marshal subscription: %w", err)
	}

	query := `
		INSERT INTO tenants (id, subdomain, name, plan, status, settings, subscription, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err = s.db.ExecContext(ctx, query,
		t.ID, t.Subdomain, t.Name, t.Plan, t.Status,
		string(settingsJSON), string(subscriptionJSON), now, now,
	)
	if err != nil {
		return &DirectoryError{Op: "tenant create", Err: err}
	}

	t.CreatedAt = now
	t.UpdatedAt = now
	return nil
}

// UpdateRequest carries the mutable tenant fields. The subdomain is immutable
// after creation and deliberately absent here.
type UpdateRequest struct {
	Name     *string        `json:"name,omitempty"`
	Plan     *Plan          `json:"plan,omitempty"`
	Status   *Status        `json:"status,omitempty"`
	Settings map[string]any `json:"settings,omitempty"`
}

// Update applies partial changes to a tenant. Supplied settings are merged
// into the existing settings rather than replacing them.
func (s *Store) Update(ctx context.Context, id string, req UpdateRequest) (*Tenant, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		t.Name = *req.Name
	}
	if req.Plan != nil {
		t.Plan = *req.Plan
	}
	if req.Status != nil {
		t.Status = *req.Status
	}
	if req.Settings != nil {
		if t.Settings == nil {
			t.Settings = make(map[string]any)
		}
		for k, v := range req.Settings {
			t.Settings[k] = v
		}
	}

	settingsJSON, err := json.Marshal(t.Settings)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}

	now := time.Now()
	query := `
		UPDATE tenants
		SET name = $1, plan = $2, status = $3, settings = $4, updated_at = $5
		WHERE id = $6
	`
	if _, err := s.db.ExecContext(ctx, query, t.Name, t.Plan, t.Status, string(settingsJSON), now, id); err != nil {
		return nil, &DirectoryError{Op: "tenant update", Err: err}
	}

	t.UpdatedAt = now
	return t, nil
}

// SetStatus transitions a tenant's lifecycle state and toggles the active
// flag of its users to match, atomically.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) (*Tenant, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	usersActive := status == StatusActive

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &DirectoryError{Op: "tenant status change", Err: err}
	}
	defer tx.Rollback()

	now := time.Now()
	if _, err := tx.ExecContext(ctx,
		`UPDATE tenants SET status = $1, updated_at = $2 WHERE id = $3`,
		status, now, id,
	); err != nil {
		return nil, &DirectoryError{Op: "tenant status change", Err: err}
	}

	if _, err := tx.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = $2 WHERE tenant_id = $3`,
		usersActive, now, id,
	); err != nil {
		return nil, &DirectoryError{Op: "tenant status change", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &DirectoryError{Op: "tenant status change", Err: err}
	}

	t.Status = status
	t.UpdatedAt = now
	return t, nil
}

// DeleteResult reports what a tenant deletion removed.
type DeleteResult struct {
	Tenant string `json:"tenant"`
	Users  int64  `json:"users"`
	Roles  int64  `json:"roles"`
}

// Delete removes a tenant and everything it owns. Users and roles go first
// (foreign keys point at the tenant), all inside one transaction so a partial
// failure cannot leave orphaned records.
func (s *Store) Delete(ctx context.Context, id string) (*DeleteResult, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, &DirectoryError{Op: "tenant delete", Err: err}
	}
	defer tx.Rollback()

	usersRes, err := tx.ExecContext(ctx, `DELETE FROM users WHERE tenant_id = $1`, id)
	if err != nil {
		return nil, &DirectoryError{Op: "tenant delete", Err: err}
	}
	rolesRes, err := tx.ExecContext(ctx, `DELETE FROM roles WHERE tenant_id = $1`, id)
	if err != nil {
		return nil, &DirectoryError{Op: "tenant delete", Err: err}
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM tenants WHERE id = $1`, id); err != nil {
		return nil, &DirectoryError{Op: "tenant delete", Err: err}
	}

	if err := tx.Commit(); err != nil {
		return nil, &DirectoryError{Op: "tenant delete", Err: err}
	}

	users, _ := usersRes.RowsAffected()
	roles, _ := rolesRes.RowsAffected()
	return &DeleteResult{Tenant: t.Name, Users: users, Roles: roles}, nil
}

// GetStats summarizes a tenant's users and roles.
func (s *Store) GetStats(ctx context.Context, id string) (*Stats, error) {
	t, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	stats := &Stats{Tenant: t}

	query := `
		SELECT
			(SELECT COUNT(*) FROM users WHERE tenant_id = $1),
			(SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND is_active = $2),
			(SELECT COUNT(*) FROM users WHERE tenant_id = $1 AND role = 'admin'),
			(SELECT COUNT(*) FROM roles WHERE tenant_id = $1),
			(SELECT COUNT(*) FROM roles WHERE tenant_id = $1 AND is_custom = $2)
	`
	err = s.db.QueryRowContext(ctx, query, id, true).Scan(
		&stats.TotalUsers,
		&stats.ActiveUsers,
		&stats.AdminUsers,
		&stats.TotalRoles,
		&stats.CustomRoles,
	)
	if err != nil {
		return nil, &DirectoryError{Op: "tenant stats", Err: err}
	}

	stats.InactiveUsers = stats.TotalUsers - stats.ActiveUsers
	stats.SystemRoles = stats.TotalRoles - stats.CustomRoles
	return stats, nil
}

// scanTenant scans a tenant from a database row
func scanTenant(scanner interface {
	Scan(dest ...interface{}) error
}) (*Tenant, error) {
	var t Tenant
	var settingsJSON, subscriptionJSON sql.NullString

	err := scanner.Scan(
		&t.ID,
		&t.Subdomain,
		&t.Name,
		&t.Plan,
		&t.Status,
		&settingsJSON,
		&subscriptionJSON,
		&t.CreatedAt,
		&t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if settingsJSON.Valid && settingsJSON.String != "" {
		if err := json.Unmarshal([]byte(settingsJSON.String), &t.Settings); err != nil {
			return nil, fmt.Errorf("failed to unmarshal settings: %w", err)
		}
	}
	if subscriptionJSON.Valid && subscriptionJSON.String != "" {
		if err := json.Unmarshal([]byte(subscriptionJSON.String), &t.Subscription); err != nil {
			return nil, fmt.Errorf("failed to unmarshal subscription: %w", err)
		}
	}

	return &t, nil
}
