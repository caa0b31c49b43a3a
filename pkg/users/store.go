package users

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/almoud/foodcost/pkg/auth"
	"github.com/almoud/foodcost/pkg/rbac"
	"github.com/almoud/foodcost/pkg/tenant"
)

const userColumns = `
	u.id, u.email, u.password, u.name, u.lastname, u.role,
	u.tenant_id, u.role_id, u.permissions, u.is_active, u.last_login,
	u.created_by, u.created_at, u.updated_at,
	r.id, r.name, r.permissions
`

const userSelect = `
	SELECT ` + userColumns + `
	FROM users u
	LEFT JOIN roles r ON r.id = u.role_id
`

// Store handles user persistence. It also implements rbac.SubjectLoader and
// tenant.AdminSeeder, wiring the identity directory into authorization and
// tenant provisioning.
type Store struct {
	db *sql.DB
}

// NewStore creates a new user store
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// GetByID retrieves a user with the assigned role's permission set.
func (s *Store) GetByID(ctx context.Context, id string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE u.id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// GetScoped retrieves a user visible within a tenant scope. A nil tenantID
// means the global scope.
func (s *Store) GetScoped(ctx context.Context, id string, tenantID *string) (*User, error) {
	u, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if tenantID != nil && (u.TenantID == nil || *u.TenantID != *tenantID) {
		return nil, ErrUserNotFound
	}
	return u, nil
}

// GetByEmail retrieves a user by email.
func (s *Store) GetByEmail(ctx context.Context, email string) (*User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, userSelect+` WHERE u.email = $1`, email))
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return u, nil
}

// List returns users, newest first. A nil tenantID lists every user; a
// non-nil one restricts to that tenant.
func (s *Store) List(ctx context.Context, tenantID *string) ([]*User, error) {
	query := userSelect
	var args []interface{}
	if tenantID != nil {
		query += ` WHERE u.tenant_id = $1`
		args = append(args, *tenantID)
	}
	query += ` ORDER BY u.created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []*User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// Create inserts a new user. The email must be globally unique and any
// assigned role must belong to the user's tenant.
func (s *Store) Create(ctx context.Context, u *User) error {
	existing, err := s.GetByEmail(ctx, u.Email)
	if err != nil && err != ErrUserNotFound {
		return err
	}
	if existing != nil {
		return ErrEmailTaken
	}

	if u.RoleID != nil {
		if err := s.checkRoleInTenant(ctx, *u.RoleID, u.TenantID); err != nil {
			return err
		}
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = rbac.UserRoleUser
	}
	permissionsJSON, err := json.Marshal(u.Permissions)
	if err != nil {
		return fmt.Errorf("failed to marshal permissions: %w", err)
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password, name, lastname, role, tenant_id, role_id, permissions, is_active, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
	`,
		u.ID, u.Email, u.PasswordHash, u.Name, u.Lastname, u.Role,
		u.TenantID, u.RoleID, string(permissionsJSON), u.IsActive, u.CreatedBy, now, now,
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}

	u.CreatedAt = now
	u.UpdatedAt = now
	return nil
}

// AssignRole attaches a tenant role to a user. Both the user and the role
// must live in the given tenant.
func (s *Store) AssignRole(ctx context.Context, userID, roleID string, tenantID *string) (*User, error) {
	u, err := s.GetScoped(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}
	if err := s.checkRoleInTenant(ctx, roleID, u.TenantID); err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET role_id = $1, updated_at = $2 WHERE id = $3`,
		roleID, now, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to assign role: %w", err)
	}
	return s.GetByID(ctx, userID)
}

// ToggleActive flips a user's active flag within a tenant scope and returns
// the updated user.
func (s *Store) ToggleActive(ctx context.Context, userID string, tenantID *string) (*User, error) {
	u, err := s.GetScoped(ctx, userID, tenantID)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	_, err = s.db.ExecContext(ctx,
		`UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3`,
		!u.IsActive, now, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to toggle user status: %w", err)
	}

	u.IsActive = !u.IsActive
	u.UpdatedAt = now
	return u, nil
}

// Delete removes a user within a tenant scope.
func (s *Store) Delete(ctx context.Context, userID string, tenantID *string) error {
	if _, err := s.GetScoped(ctx, userID, tenantID); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	return nil
}

// RecordLogin stamps the user's last login time.
func (s *Store) RecordLogin(ctx context.Context, userID string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE users SET last_login = $1 WHERE id = $2`,
		time.Now(), userID,
	)
	if err != nil {
		return fmt.Errorf("failed to record login: %w", err)
	}
	return nil
}

// SubjectByID implements rbac.SubjectLoader.
func (s *Store) SubjectByID(ctx context.Context, userID string) (*rbac.Subject, error) {
	u, err := s.GetByID(ctx, userID)
	if err == ErrUserNotFound {
		return nil, rbac.ErrSubjectNotFound
	}
	if err != nil {
		return nil, err
	}
	return u.Subject(), nil
}

// SeedAdmin implements tenant.AdminSeeder: it creates the first admin
// account of a newly provisioned tenant.
func (s *Store) SeedAdmin(ctx context.Context, tenantID string, spec tenant.AdminSpec) (string, error) {
	hash, err := auth.HashPassword(spec.Password)
	if err != nil {
		return "", err
	}

	u := &User{
		Email:        spec.Email,
		PasswordHash: hash,
		Name:         spec.FirstName,
		Lastname:     spec.LastName,
		Role:         rbac.UserRoleAdmin,
		TenantID:     &tenantID,
		IsActive:     true,
	}
	if err := s.Create(ctx, u); err != nil {
		return "", err
	}
	return u.ID, nil
}

func (s *Store) checkRoleInTenant(ctx context.Context, roleID string, tenantID *string) error {
	if tenantID == nil {
		return ErrInvalidRole
	}
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM roles WHERE id = $1 AND tenant_id = $2`,
		roleID, *tenantID,
	).Scan(&count)
	if err != nil {
		return fmt.Errorf("failed to check role: %w", err)
	}
	if count == 0 {
		return ErrInvalidRole
	}
	return nil
}

// scanUser scans a user from a database row
func scanUser(scanner interface {
	Scan(dest ...interface{}) error
}) (*User, error) {
	var u User
	var name, lastname, createdBy sql.NullString
	var tenantID, roleID sql.NullString
	var permissionsJSON sql.NullString
	var lastLogin sql.NullTime
	var assignedRoleID, assignedRoleName, assignedRolePermissions sql.NullString

	err := scanner.Scan(
		&u.ID, &u.Email, &u.PasswordHash, &name, &lastname, &u.Role,
		&tenantID, &roleID, &permissionsJSON, &u.IsActive, &lastLogin,
		&createdBy, &u.CreatedAt, &u.UpdatedAt,
		&assignedRoleID, &assignedRoleName, &assignedRolePermissions,
	)
	if err != nil {
		return nil, err
	}

	u.Name = name.String
	u.Lastname = lastname.String
	u.CreatedBy = createdBy.String
	if tenantID.Valid {
		u.TenantID = &tenantID.String
	}
	if roleID.Valid {
		u.RoleID = &roleID.String
	}
	if lastLogin.Valid {
		u.LastLogin = &lastLogin.Time
	}
	if permissionsJSON.Valid && permissionsJSON.String != "" {
		if err := json.Unmarshal([]byte(permissionsJSON.String), &u.Permissions); err != nil {
			return nil, fmt.Errorf("failed to unmarshal permissions: %w", err)
		}
	}
	if assignedRoleID.Valid {
		role := &rbac.Role{ID: assignedRoleID.String, Name: assignedRoleName.String}
		if assignedRolePermissions.Valid && assignedRolePermissions.String != "" {
			if err := json.Unmarshal([]byte(assignedRolePermissions.String), &role.Permissions); err != nil {
				return nil, fmt.Errorf("failed to unmarshal role permissions: %w", err)
			}
		}
		u.AssignedRole = role
	}
	return &u, nil
}
