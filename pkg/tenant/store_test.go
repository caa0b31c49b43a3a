package tenant

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE tenants (
			id TEXT PRIMARY KEY,
			subdomain TEXT NOT NULL UNIQUE,
			name TEXT NOT NULL,
			plan TEXT NOT NULL DEFAULT 'basic',
			status TEXT NOT NULL DEFAULT 'active',
			settings TEXT,
			subscription TEXT,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);

		CREATE TABLE users (
			id TEXT PRIMARY KEY,
			tenant_id TEXT,
			email TEXT NOT NULL,
			role TEXT NOT NULL DEFAULT 'user',
			is_active INTEGER NOT NULL DEFAULT 1,
			updated_at TIMESTAMP
		);

		CREATE TABLE roles (
			id TEXT PRIMARY KEY,
			tenant_id TEXT,
			name TEXT NOT NULL,
			is_custom INTEGER NOT NULL DEFAULT 0
		);
	`)
	if err != nil {
		t.Fatalf("Failed to create test tables: %v", err)
	}

	return db
}

func createTestTenant(t *testing.T, store *Store, subdomain string) *Tenant {
	t.Helper()

	tn := &Tenant{Subdomain: subdomain, Name: "Test " + subdomain}
	require.NoError(t, store.Create(context.Background(), tn))
	return tn
}

func TestStore_CreateDefaults(t *testing.T) {
	store := NewStore(setupTestDB(t))

	tn := createTestTenant(t, store, "bistro")
	assert.NotEmpty(t, tn.ID)
	assert.Equal(t, PlanBasic, tn.Plan)
	assert.Equal(t, StatusActive, tn.Status)
	assert.Equal(t, "PEN", tn.Settings["currency"])
	assert.Equal(t, "America/Lima", tn.Settings["timezone"])
	assert.Equal(t, "monthly", tn.Subscription["billing"])

	features, ok := tn.Settings["features"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, false, features["multiUser"])
}

func TestStore_CreateProPlanEnablesMultiUser(t *testing.T) {
	store := NewStore(setupTestDB(t))

	tn := &Tenant{Subdomain: "grande", Name: "Grande", Plan: PlanPro}
	require.NoError(t, store.Create(context.Background(), tn))

	features := tn.Settings["features"].(map[string]any)
	assert.Equal(t, true, features["multiUser"])
}

func TestStore_CreateDuplicateSubdomain(t *testing.T) {
	store := NewStore(setupTestDB(t))
	createTestTenant(t, store, "bistro")

	err := store.Create(context.Background(), &Tenant{Subdomain: "bistro", Name: "Other"})
	assert.ErrorIs(t, err, ErrSubdomainTaken)
}

func TestStore_CreateInvalidSubdomain(t *testing.T) {
	store := NewStore(setupTestDB(t))

	cases := map[string]error{
		"Bistro":     ErrSubdomainInvalid,
		"bis tro":    ErrSubdomainInvalid,
		"bistro.pe":  ErrSubdomainInvalid,
		"":           ErrSubdomainInvalid,
		"admin":      ErrSubdomainReserved,
		"api":        ErrSubdomainReserved,
		"www":        ErrSubdomainReserved,
		"almoud":     ErrSubdomainReserved,
	}
	for subdomain, want := range cases {
		err := store.Create(context.Background(), &Tenant{Subdomain: subdomain, Name: "x"})
		assert.ErrorIs(t, err, want, "subdomain %q", subdomain)
	}
}

func TestStore_TenantBySubdomain(t *testing.T) {
	store := NewStore(setupTestDB(t))
	created := createTestTenant(t, store, "bistro")

	got, err := store.TenantBySubdomain(context.Background(), "bistro")
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)
	assert.Equal(t, "PEN", got.Settings["currency"])

	_, err = store.TenantBySubdomain(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestStore_TenantBySubdomainOutage(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectQuery("SELECT (.+) FROM tenants").
		WillReturnError(errors.New("connection refused"))

	_, err = NewStore(db).TenantBySubdomain(context.Background(), "bistro")
	require.Error(t, err)
	assert.True(t, IsDirectoryUnavailable(err))
	assert.NotErrorIs(t, err, ErrTenantNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_UpdateMergesSettings(t *testing.T) {
	store := NewStore(setupTestDB(t))
	tn := createTestTenant(t, store, "bistro")

	name := "New Name"
	updated, err := store.Update(context.Background(), tn.ID, UpdateRequest{
		Name:     &name,
		Settings: map[string]any{"language": "en"},
	})
	require.NoError(t, err)

	assert.Equal(t, "New Name", updated.Name)
	assert.Equal(t, "en", updated.Settings["language"])
	assert.Equal(t, "PEN", updated.Settings["currency"])
	assert.Equal(t, "bistro", updated.Subdomain)
}

func TestStore_SetStatusCascadesUsers(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	tn := createTestTenant(t, store, "bistro")

	_, err := db.Exec(`INSERT INTO users (id, tenant_id, email, is_active) VALUES ('u1', $1, 'a@bistro.almoud.pe', 1)`, tn.ID)
	require.NoError(t, err)

	updated, err := store.SetStatus(context.Background(), tn.ID, StatusSuspended)
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, updated.Status)

	var active bool
	require.NoError(t, db.QueryRow(`SELECT is_active FROM users WHERE id = 'u1'`).Scan(&active))
	assert.False(t, active)

	_, err = store.SetStatus(context.Background(), tn.ID, StatusActive)
	require.NoError(t, err)
	require.NoError(t, db.QueryRow(`SELECT is_active FROM users WHERE id = 'u1'`).Scan(&active))
	assert.True(t, active)
}

func TestStore_DeleteCascades(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	tn := createTestTenant(t, store, "bistro")
	other := createTestTenant(t, store, "other")

	_, err := db.Exec(`INSERT INTO users (id, tenant_id, email) VALUES ('u1', $1, 'a@x'), ('u2', $1, 'b@x'), ('u3', $2, 'c@x')`, tn.ID, other.ID)
	require.NoError(t, err)
	_, err = db.Exec(`INSERT INTO roles (id, tenant_id, name) VALUES ('r1', $1, 'Cajero'), ('r2', $2, 'Cajero')`, tn.ID, other.ID)
	require.NoError(t, err)

	result, err := store.Delete(context.Background(), tn.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), result.Users)
	assert.Equal(t, int64(1), result.Roles)

	_, err = store.GetByID(context.Background(), tn.ID)
	assert.ErrorIs(t, err, ErrTenantNotFound)

	// The other tenant keeps its rows.
	var count int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM users WHERE tenant_id = $1`, other.ID).Scan(&count))
	assert.Equal(t, 1, count)

	_, err = store.Delete(context.Background(), tn.ID)
	assert.ErrorIs(t, err, ErrTenantNotFound)
}

func TestStore_GetStats(t *testing.T) {
	db := setupTestDB(t)
	store := NewStore(db)
	tn := createTestTenant(t, store, "bistro")

	_, err := db.Exec(`
		INSERT INTO users (id, tenant_id, email, role, is_active) VALUES
			('u1', $1, 'a@x', 'admin', 1),
			('u2', $1, 'b@x', 'user', 1),
			('u3', $1, 'c@x', 'user', 0)
	`, tn.ID)
	require.NoError(t, err)
	_, err = db.Exec(`
		INSERT INTO roles (id, tenant_id, name, is_custom) VALUES
			('r1', $1, 'Cajero', 0),
			('r2', $1, 'Barista', 1)
	`, tn.ID)
	require.NoError(t, err)

	stats, err := store.GetStats(context.Background(), tn.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalUsers)
	assert.Equal(t, 2, stats.ActiveUsers)
	assert.Equal(t, 1, stats.InactiveUsers)
	assert.Equal(t, 1, stats.AdminUsers)
	assert.Equal(t, 2, stats.TotalRoles)
	assert.Equal(t, 1, stats.CustomRoles)
	assert.Equal(t, 1, stats.SystemRoles)
}

func TestCachingDirectory(t *testing.T) {
	dir := newFakeDirectory()
	cache := NewCachingDirectory(dir, 128, time.Minute)
	ctx := context.Background()

	first, err := cache.TenantBySubdomain(ctx, "bistro")
	require.NoError(t, err)
	second, err := cache.TenantBySubdomain(ctx, "bistro")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, dir.lookups)

	cache.Invalidate("bistro")
	_, err = cache.TenantBySubdomain(ctx, "bistro")
	require.NoError(t, err)
	assert.Equal(t, 2, dir.lookups)
}

func TestCachingDirectory_ErrorsNotCached(t *testing.T) {
	dir := newFakeDirectory()
	cache := NewCachingDirectory(dir, 128, time.Minute)
	ctx := context.Background()

	_, err := cache.TenantBySubdomain(ctx, "missing")
	assert.ErrorIs(t, err, ErrTenantNotFound)
	_, err = cache.TenantBySubdomain(ctx, "missing")
	assert.ErrorIs(t, err, ErrTenantNotFound)
	assert.Equal(t, 2, dir.lookups)
}
