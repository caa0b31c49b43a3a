package audit

import (
	"context"
	"database/sql"
	"io"
	"testing"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/almoud/foodcost/pkg/observability"
)

func setupTestStore(t *testing.T) *DBStore {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE audit_events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			timestamp TIMESTAMP NOT NULL,
			actor_id TEXT,
			actor_email TEXT,
			tenant_id TEXT,
			action TEXT NOT NULL,
			resource TEXT,
			resource_id TEXT,
			success BOOLEAN NOT NULL,
			message TEXT,
			ip_address TEXT,
			request_id TEXT,
			metadata TEXT
		)
	`)
	require.NoError(t, err)

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	store, err := NewDBStore(db, logger)
	require.NoError(t, err)
	return store
}

func recordAt(t *testing.T, store *DBStore, ts time.Time, event Event) {
	event.Timestamp = ts
	store.Record(context.Background(), &event)

	// Record is best effort, so verify the write landed
	var count int
	require.NoError(t, store.db.QueryRow(
		`SELECT COUNT(*) FROM audit_events WHERE action = $1 AND timestamp = $2`,
		event.Action, ts,
	).Scan(&count))
	require.Equal(t, 1, count)
}

func TestRecordAndSearch(t *testing.T) {
	store := setupTestStore(t)
	tenantID := "tenant-1"

	store.Record(context.Background(), &Event{
		ActorID:    "user-1",
		ActorEmail: "ana@cocina.almoud.pe",
		TenantID:   &tenantID,
		Action:     "authz.deny",
		Resource:   "ingredients",
		ResourceID: "delete",
		Success:    false,
		Message:    "denied ingredients:delete",
		Metadata:   map[string]interface{}{"rule": "deny"},
	})

	events, err := store.Search(context.Background(), SearchFilter{})
	require.NoError(t, err)
	require.Len(t, events, 1)

	e := events[0]
	assert.NotZero(t, e.ID)
	assert.False(t, e.Timestamp.IsZero())
	assert.Equal(t, "user-1", e.ActorID)
	assert.Equal(t, "ana@cocina.almoud.pe", e.ActorEmail)
	require.NotNil(t, e.TenantID)
	assert.Equal(t, "tenant-1", *e.TenantID)
	assert.Equal(t, "authz.deny", e.Action)
	assert.False(t, e.Success)
	assert.Equal(t, "deny", e.Metadata["rule"])
}

func TestSearch_Filters(t *testing.T) {
	store := setupTestStore(t)
	tenantA := "tenant-a"
	tenantB := "tenant-b"
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	recordAt(t, store, base, Event{ActorID: "user-1", TenantID: &tenantA, Action: "auth.login", Resource: "user", Success: true})
	recordAt(t, store, base.Add(time.Minute), Event{ActorID: "user-2", TenantID: &tenantA, Action: "authz.deny", Resource: "orders", Success: false})
	recordAt(t, store, base.Add(2*time.Minute), Event{ActorID: "user-3", TenantID: &tenantB, Action: "users.delete", Resource: "user", Success: true})

	byActor, err := store.Search(context.Background(), SearchFilter{ActorID: "user-1"})
	require.NoError(t, err)
	require.Len(t, byActor, 1)
	assert.Equal(t, "auth.login", byActor[0].Action)

	byTenant, err := store.Search(context.Background(), SearchFilter{TenantID: &tenantA})
	require.NoError(t, err)
	assert.Len(t, byTenant, 2)

	denied, err := store.Search(context.Background(), SearchFilter{OnlyDenied: true})
	require.NoError(t, err)
	require.Len(t, denied, 1)
	assert.Equal(t, "authz.deny", denied[0].Action)

	since := base.Add(90 * time.Second)
	recent, err := store.Search(context.Background(), SearchFilter{StartTime: &since})
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "users.delete", recent[0].Action)
}

func TestSearch_OrderAndPaging(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	for i := 0; i < 5; i++ {
		recordAt(t, store, base.Add(time.Duration(i)*time.Minute), Event{
			ActorID: "user-1",
			Action:  "auth.login",
			Success: true,
		})
	}

	page, err := store.Search(context.Background(), SearchFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, page, 2)
	// newest first
	assert.True(t, page[0].Timestamp.After(page[1].Timestamp))

	next, err := store.Search(context.Background(), SearchFilter{Limit: 2, Offset: 2})
	require.NoError(t, err)
	require.Len(t, next, 2)
	assert.True(t, page[1].Timestamp.After(next[0].Timestamp))
}

func TestRecord_FailureDoesNotPanic(t *testing.T) {
	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	_, err = db.Exec(`CREATE TABLE audit_events (id INTEGER PRIMARY KEY, timestamp TIMESTAMP, actor_id TEXT, actor_email TEXT, tenant_id TEXT, action TEXT, resource TEXT, resource_id TEXT, success BOOLEAN, message TEXT, ip_address TEXT, request_id TEXT, metadata TEXT)`)
	require.NoError(t, err)

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	store, err := NewDBStore(db, logger)
	require.NoError(t, err)

	require.NoError(t, db.Close())
	store.Record(context.Background(), &Event{Action: "auth.login", Success: true})
}

func TestDeleteOlderThan(t *testing.T) {
	store := setupTestStore(t)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	recordAt(t, store, base.Add(-48*time.Hour), Event{Action: "auth.login", Success: true})
	recordAt(t, store, base.Add(-36*time.Hour), Event{Action: "auth.login", Success: true})
	recordAt(t, store, base, Event{Action: "auth.login", Success: true})

	deleted, err := store.DeleteOlderThan(context.Background(), base.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	remaining, err := store.Search(context.Background(), SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestRetentionJob_RunOnce(t *testing.T) {
	store := setupTestStore(t)

	recordAt(t, store, time.Now().Add(-100*24*time.Hour), Event{Action: "auth.login", Success: true})
	recordAt(t, store, time.Now().Add(-time.Hour), Event{Action: "auth.login", Success: true})

	logger := observability.NewLogger(observability.ErrorLevel, io.Discard)
	job := NewRetentionJob(store, 90*24*time.Hour, "0 3 * * *", logger)

	deleted, err := job.RunOnce(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	remaining, err := store.Search(context.Background(), SearchFilter{})
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}
