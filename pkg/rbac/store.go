package rbac

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Store handles role persistence. Every read and write is scoped to a
// tenant; a role id from another tenant behaves as if it does not exist.
type Store struct {
	db     *sql.DB
	matrix *Matrix
}

// NewStore creates a new role store
func NewStore(db *sql.DB, matrix *Matrix) *Store {
	return &Store{db: db, matrix: matrix}
}

// Matrix returns the permission matrix the store validates against.
func (s *Store) Matrix() *Matrix {
	return s.matrix
}

// GetRole retrieves a role by id within a tenant.
func (s *Store) GetRole(ctx context.Context, id, tenantID string) (*Role, error) {
	query := `
		SELECT r.id, r.tenant_id, r.name, r.description, r.permissions,
		       r.is_custom, r.is_active, r.created_by, r.created_at, r.updated_at,
		       (SELECT COUNT(*) FROM users u WHERE u.role_id = r.id)
		FROM roles r
		WHERE r.id = $1 AND r.tenant_id = $2
	`
	role, err := scanRole(s.db.QueryRowContext(ctx, query, id, tenantID))
	if err == sql.ErrNoRows {
		return nil, ErrRoleNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get role: %w", err)
	}
	return role, nil
}

// ListRoles returns a tenant's roles, newest first, with user counts.
func (s *Store) ListRoles(ctx context.Context, tenantID string) ([]*Role, error) {
	query := `
		SELECT r.id, r.tenant_id, r.name, r.description, r.permissions,
		       r.is_custom, r.is_active, r.created_by, r.created_at, r.updated_at,
		       (SELECT COUNT(*) FROM users u WHERE u.role_id = r.id)
		FROM roles r
		WHERE r.tenant_id = $1
		ORDER BY r.created_at DESC
	`
	rows, err := s.db.QueryContext(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("failed to list roles: %w", err)
	}
	defer rows.Close()

	var roles []*Role
	for rows.Next() {
		role, err := scanRole(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, role)
	}
	return roles, rows.Err()
}

// CreateRole inserts a new role. The permission set is validated against the
// matrix and the name must be unique within the tenant.
func (s *Store) CreateRole(ctx context.Context, role *Role) error {
	if role.Name == "" {
		return fmt.Errorf("role name is required")
	}
	if err := role.Permissions.Validate(s.matrix); err != nil {
		return err
	}

	var exists int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM roles WHERE tenant_id = $1 AND name = $2`,
		role.TenantID, role.Name,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check role name: %w", err)
	}
	if exists > 0 {
		return ErrRoleExists
	}

	if role.ID == "" {
		role.ID = uuid.NewString()
	}
	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO roles (id, tenant_id, name, description, permissions, is_custom, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`,
		role.ID, role.TenantID, role.Name, role.Description, string(permissionsJSON),
		role.IsCustom, role.IsActive, role.CreatedBy, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create role: %w", err)
	}

	role.CreatedAt = now
	role.UpdatedAt = now
	return nil
}

// RoleUpdate carries the mutable role fields.
type RoleUpdate struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Permissions PermissionSet `json:"permissions,omitempty"`
	IsActive    *bool         `json:"isActive,omitempty"`
}

// UpdateRole applies partial changes to a role within a tenant.
func (s *Store) UpdateRole(ctx context.Context, id, tenantID string, update RoleUpdate) (*Role, error) {
	role, err := s.GetRole(ctx, id, tenantID)
	if err != nil {
		return nil, err
	}

	if update.Name != nil && *update.Name != role.Name {
		var exists int
		err := s.db.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM roles WHERE tenant_id = $1 AND name = $2 AND id != $3`,
			tenantID, *update.Name, id,
		).Scan(&exists)
		if err != nil {
			return nil, fmt.Errorf("failed to check role name: %w", err)
		}
		if exists > 0 {
			return nil, ErrRoleExists
		}
		role.Name = *update.Name
	}
	if update.Description != nil {
		role.Description = *update.Description
	}
	if update.Permissions != nil {
		if err := update.Permissions.Validate(s.matrix); err != nil {
			return nil, err
		}
		role.Permissions = update.Permissions
	}
	if update.IsActive != nil {
		role.IsActive = *update.IsActive
	}

	permissionsJSON, err := json.Marshal(role.Permissions)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal permissions: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		UPDATE roles
		SET name = $1, description = $2, permissions = $3, is_active = $4, updated_at = $5
		WHERE id = $6 AND tenant_id = $7
	`,
		role.Name, role.Description, string(permissionsJSON), role.IsActive, now, id, tenantID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update role: %w", err)
	}

	role.UpdatedAt = now
	return role, nil
}

// DeleteRole removes a role. It refuses while any user still references the
// role.
func (s *Store) DeleteRole(ctx context.Context, id, tenantID string) error {
	role, err := s.GetRole(ctx, id, tenantID)
	if err != nil {
		return err
	}
	if role.UserCount > 0 {
		return &RoleInUseError{RoleID: id, Users: role.UserCount}
	}

	_, err = s.db.ExecContext(ctx, `DELETE FROM roles WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	return nil
}

// SeedDefaultRoles provisions the default role set for a new tenant. It
// satisfies the tenant provisioning flow and returns how many roles were
// created.
func (s *Store) SeedDefaultRoles(ctx context.Context, tenantID, createdBy string) (int, error) {
	created := 0
	for _, role := range DefaultRoles() {
		role.TenantID = tenantID
		role.CreatedBy = createdBy
		role.IsCustom = false
		role.IsActive = true

		err := s.CreateRole(ctx, &role)
		if err == ErrRoleExists {
			continue
		}
		if err != nil {
			return created, fmt.Errorf("failed to seed role %s: %w", role.Name, err)
		}
		created++
	}
	return created, nil
}

// scanRole scans a role from a database row
func scanRole(scanner interface {
	Scan(dest ...interface{}) error
}) (*Role, error) {
	var role Role
	var description, createdBy sql.NullString
	var permissionsJSON sql.NullString

	err := scanner.Scan(
		&role.ID,
		&role.TenantID,
		&role.Name,
		&description,
		&permissionsJSON,
		&role.IsCustom,
		&role.IsActive,
		&createdBy,
		&role.CreatedAt,
		&role.UpdatedAt,
		&role.UserCount,
	)
	if err != nil {
		return nil, err
	}

	role.Description = description.String
	role.CreatedBy = createdBy.String
	if permissionsJSON.Valid && permissionsJSON.String != "" {
		if err := json.Unmarshal([]byte(permissionsJSON.String), &role.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}
	return &role, nil
}
